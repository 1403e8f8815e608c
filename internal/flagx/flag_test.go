package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs_SeparateValue(t *testing.T) {
	args := []string{"-d", "client.db", "-x", "ignored"}
	got := FilterArgs(args, []string{"-d"})
	assert.Equal(t, []string{"-d", "client.db"}, got)
}

func TestFilterArgs_EqualsForm(t *testing.T) {
	args := []string{"--database=client.db", "--other=1"}
	got := FilterArgs(args, []string{"--database"})
	assert.Equal(t, []string{"--database=client.db"}, got)
}

func TestFilterArgs_BooleanFlagWithoutValue(t *testing.T) {
	args := []string{"-v", "-d", "client.db"}
	got := FilterArgs(args, []string{"-v"})
	assert.Equal(t, []string{"-v"}, got)
}

func TestFilterArgs_Empty(t *testing.T) {
	got := FilterArgs(nil, []string{"-d"})
	assert.Empty(t, got)
}

func TestJsonConfigFlags(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()

	os.Args = []string{"client", "-a", "http://localhost:8000", "-c", "cfg.json"}
	assert.Equal(t, "cfg.json", JsonConfigFlags())

	os.Args = []string{"client", "-a", "http://localhost:8000"}
	assert.Equal(t, "", JsonConfigFlags())
}
