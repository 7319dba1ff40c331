package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/rules"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seasons.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestTableAppliesOverrides(t *testing.T) {
	path := writeFile(t, `
seasons:
  2017:
    stats:
      score: {mean: 55, var: 1000}
      gears: {mean: 1, var: 2}
`)
	table, err := Table(path)
	require.NoError(t, err)

	s, ok := table.Lookup(2017)
	require.True(t, ok)
	assert.Equal(t, 55.0, s.Stat("score").PriorMean)
	assert.Equal(t, 1000.0, s.Stat("score").PriorVar)
	assert.Equal(t, 1.0, s.Stat("gears").PriorMean)
	assert.Equal(t, 0.0, s.Stat("pressure").PriorMean)

	// The built-in table is untouched.
	def, _ := rules.Default().Lookup(2017)
	assert.Equal(t, 50.0, def.Stat("score").PriorMean)
}

func TestTableWithoutPath(t *testing.T) {
	table, err := Table("")
	require.NoError(t, err)
	assert.Equal(t, rules.Default().Years(), table.Years())
}

func TestLoadSeasonPriorsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown season", "seasons:\n  1999:\n    stats:\n      score: {mean: 1, var: 1}\n"},
		{"unknown stat", "seasons:\n  2017:\n    stats:\n      fuel: {mean: 1, var: 1}\n"},
		{"negative variance", "seasons:\n  2017:\n    stats:\n      score: {mean: 1, var: -4}\n"},
		{"not yaml", "seasons: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSeasonPriors(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadSeasonPriors(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
