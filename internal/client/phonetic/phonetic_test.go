package phonetic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncode_Length(t *testing.T) {
	for _, name := range []string{"Martin", "Li", "A", "Dubois-Lefevre"} {
		code := Encode(name)
		assert.Len(t, code, 4, "code for %q", name)
	}
}

func TestEncode_Empty(t *testing.T) {
	assert.Equal(t, "", Encode(""))
}

func TestEncode_Deterministic(t *testing.T) {
	assert.Equal(t, Encode("Martin"), Encode("Martin"))
}

func TestEncode_Equivalences(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"Martin", "Marten"},
		{"Dupont", "Dupond"},
		{"Bernard", "Bernar"},
		{"Lefèvre", "Lefevre"},
		{"François", "Francois"},
	}
	for _, tt := range tests {
		assert.Equal(t, Encode(tt.a), Encode(tt.b), "%s vs %s", tt.a, tt.b)
		assert.True(t, Compare(tt.a, tt.b))
	}
}

func TestEncode_DistinctNames(t *testing.T) {
	assert.NotEqual(t, Encode("Martin"), Encode("Dupont"))
}

func TestEncode_CaseAndSpacing(t *testing.T) {
	assert.Equal(t, Encode("martin"), Encode("  MARTIN  "))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, Levenshtein("abc", "abc"))
	assert.Equal(t, 3, Levenshtein("", "abc"))
	assert.Equal(t, 3, Levenshtein("abc", ""))
	assert.Equal(t, 1, Levenshtein("dupont", "dupond"))
	assert.Equal(t, 3, Levenshtein("kitten", "sitting"))
}

func TestSearch_ExactPhoneticMatch(t *testing.T) {
	items := []map[string]any{
		{"name": "Martin"},
		{"name": "Marten"},
		{"name": "Dupont"},
	}

	got := Search(items, "martin", []string{"name"})
	assert.Len(t, got, 2)
	assert.Equal(t, "Martin", got[0]["name"])
	assert.Equal(t, "Marten", got[1]["name"])
}

func TestSearch_EmptyQueryReturnsInput(t *testing.T) {
	items := []map[string]any{{"name": "Martin"}}
	assert.Equal(t, items, Search(items, "", []string{"name"}))
}

func TestSearch_NestedField(t *testing.T) {
	items := []map[string]any{
		{"client": map[string]any{"last_name": "Dupont"}},
		{"client": map[string]any{"last_name": "Smith"}},
	}
	got := Search(items, "Dupond", []string{"client.last_name"})
	assert.Len(t, got, 1)
}

func TestFuzzySearch_Ranking(t *testing.T) {
	items := []map[string]any{
		{"name": "Smith"},
		{"name": "Dupond"},
		{"name": "Dupont"},
	}

	got := FuzzySearch(items, "Dupont", []string{"name"}, 0.5)
	assert.Len(t, got, 2)
	assert.Equal(t, "Dupont", got[0]["name"], "exact match ranks first")
	assert.Equal(t, "Dupond", got[1]["name"], "phonetic match ranks second")
}

func TestFuzzySearch_ThresholdExcludes(t *testing.T) {
	items := []map[string]any{{"name": "Smith"}}
	got := FuzzySearch(items, "Dupont", []string{"name"}, 0.5)
	assert.Empty(t, got)
}

func TestFuzzySearch_TiesKeepInputOrder(t *testing.T) {
	items := []map[string]any{
		{"name": "Marten"},
		{"name": "Martine"},
		{"name": "Martin"},
	}

	got := FuzzySearch(items, "Martin", []string{"name"}, 0.5)
	assert.Equal(t, "Martin", got[0]["name"])
	// Marten and Martine both score as phonetic matches; input order holds.
	assert.Equal(t, "Marten", got[1]["name"])
	assert.Equal(t, "Martine", got[2]["name"])
}

func TestFuzzySearch_BestFieldWins(t *testing.T) {
	items := []map[string]any{
		{"first_name": "Jean", "last_name": "Dupont"},
	}
	got := FuzzySearch(items, "dupont", []string{"first_name", "last_name"}, 0.9)
	assert.Len(t, got, 1)
}
