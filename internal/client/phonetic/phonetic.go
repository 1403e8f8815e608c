// Package phonetic implements a Soundex-like encoder for French text plus
// similarity scoring, used as the offline search fallback when the
// server-side search endpoint is unreachable.
package phonetic

import (
	"regexp"
	"sort"
	"strings"

	"github.com/smadwh/claimsync/internal/docpath"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

// French phonetic rules, applied strictly in order.
var earlyRules = []rule{
	// Silent letters at the end.
	{regexp.MustCompile(`[aeioux]$`), ""},
	// H is always silent.
	{regexp.MustCompile(`h`), ""},
	// PH -> F.
	{regexp.MustCompile(`ph`), "f"},
	// GN -> NI.
	{regexp.MustCompile(`gn`), "ni"},
	// QU -> K.
	{regexp.MustCompile(`qu`), "k"},
	// CH -> S.
	{regexp.MustCompile(`ch`), "s"},
	// C before E, I -> S.
	{regexp.MustCompile(`c([ei])`), "s${1}"},
	// C before other -> K.
	{regexp.MustCompile(`c`), "k"},
	// G before E, I -> J.
	{regexp.MustCompile(`g([ei])`), "j${1}"},
	// Y -> I.
	{regexp.MustCompile(`y`), "i"},
}

// Applied after double-consonant collapsing.
var lateRules = []rule{
	// Accent folding.
	{regexp.MustCompile(`[àâä]`), "a"},
	{regexp.MustCompile(`[éèêë]`), "e"},
	{regexp.MustCompile(`[îï]`), "i"},
	{regexp.MustCompile(`[ôö]`), "o"},
	{regexp.MustCompile(`[ùûü]`), "u"},
	{regexp.MustCompile(`ç`), "s"},
	// Collapse vowel runs, keeping the first vowel.
	{regexp.MustCompile(`([aeiou])[aeiou]+`), "${1}"},
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

const pad = "0000"

// Encode converts text to its 4-character phonetic code, right-padded with
// zeros and uppercased. Pure function; empty input yields "".
func Encode(text string) string {
	if text == "" {
		return ""
	}

	code := strings.ToLower(strings.TrimSpace(text))
	for _, r := range earlyRules {
		code = r.re.ReplaceAllString(code, r.repl)
	}
	code = collapseDoubles(code)
	for _, r := range lateRules {
		code = r.re.ReplaceAllString(code, r.repl)
	}
	code = nonAlnum.ReplaceAllString(code, "")

	return strings.ToUpper((code + pad)[:4])
}

// collapseDoubles reduces runs of the same consonant to a single one.
func collapseDoubles(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune = -1
	for _, r := range s {
		if r == prev && strings.ContainsRune("bcdfghjklmnpqrstvwxz", r) {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// Compare reports whether two strings are phonetically equivalent.
func Compare(a, b string) bool {
	return Encode(a) == Encode(b)
}

// Search filters items by exact phonetic-code match against one or more
// dotted-path fields, preserving input order. An empty query returns the
// input unchanged.
func Search(items []map[string]any, query string, fields []string) []map[string]any {
	if query == "" {
		return items
	}

	queryCode := Encode(query)
	var result []map[string]any
	for _, item := range items {
		for _, field := range fields {
			value := docpath.LookupString(item, field)
			if value != "" && Encode(value) == queryCode {
				result = append(result, item)
				break
			}
		}
	}
	return result
}

// FuzzySearch ranks items by their best field score against the query and
// returns those scoring at least threshold, best first. Ties keep input
// order. An empty query returns the input unchanged.
//
// Score precedence per field: exact case-insensitive match 1.0, phonetic
// match 0.9, substring 0.8, prefix 0.7, otherwise normalized edit-distance
// similarity.
func FuzzySearch(items []map[string]any, query string, fields []string, threshold float64) []map[string]any {
	if query == "" {
		return items
	}

	queryCode := Encode(query)
	queryLower := strings.ToLower(query)

	type scored struct {
		item  map[string]any
		score float64
	}
	matches := make([]scored, 0, len(items))

	for _, item := range items {
		var maxScore float64
		for _, field := range fields {
			value := docpath.LookupString(item, field)
			if value == "" {
				continue
			}
			valueLower := strings.ToLower(value)

			var score float64
			switch {
			case valueLower == queryLower:
				score = 1.0
			case Encode(value) == queryCode:
				score = 0.9
			case strings.Contains(valueLower, queryLower):
				score = 0.8
			case strings.HasPrefix(valueLower, queryLower):
				score = 0.7
			default:
				distance := Levenshtein(queryLower, valueLower)
				score = 1 - float64(distance)/float64(max(len(queryLower), len(valueLower)))
			}
			if score > maxScore {
				maxScore = score
			}
		}
		if maxScore >= threshold {
			matches = append(matches, scored{item: item, score: maxScore})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	result := make([]map[string]any, len(matches))
	for i, m := range matches {
		result[i] = m.item
	}
	return result
}

// Levenshtein computes the classic edit distance with unit costs for
// insertion, deletion and substitution.
func Levenshtein(a, b string) int {
	m, n := len(a), len(b)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	prev := make([]int, n+1)
	cur := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		cur[0] = i
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1]
			} else {
				cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+1)
			}
		}
		prev, cur = cur, prev
	}
	return prev[n]
}
