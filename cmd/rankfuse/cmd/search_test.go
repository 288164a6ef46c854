package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/rankfuse/internal/fusion"
)

// indexedProject creates and indexes a test project, then makes it the
// working directory so search resolves it as the project root.
func indexedProject(t *testing.T) string {
	t.Helper()
	testDir := t.TempDir()
	createTestProject(t, testDir)

	_, err := runCLI(t, "index", "--path", testDir)
	require.NoError(t, err)

	t.Chdir(testDir)
	return testDir
}

func TestSearchCmd_FindsIndexedCode(t *testing.T) {
	indexedProject(t)

	output, err := runCLI(t, "search", "connectDatabase")
	require.NoError(t, err)
	assert.Contains(t, output, "db.go")
	assert.Contains(t, output, "results for")
}

func TestSearchCmd_JSONFormat(t *testing.T) {
	indexedProject(t)

	output, err := runCLI(t, "search", "database", "--format", "json")
	require.NoError(t, err)

	var results []fusion.SearchResult
	require.NoError(t, json.Unmarshal([]byte(output), &results))
	require.NotEmpty(t, results)
	assert.Equal(t, "db.go", results[0].FilePath)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSearchCmd_LimitFlag(t *testing.T) {
	indexedProject(t)

	output, err := runCLI(t, "search", "main", "--limit", "1", "--format", "json")
	require.NoError(t, err)

	var results []fusion.SearchResult
	require.NoError(t, json.Unmarshal([]byte(output), &results))
	assert.LessOrEqual(t, len(results), 1)
}

func TestSearchCmd_PresetFlag(t *testing.T) {
	indexedProject(t)

	_, err := runCLI(t, "search", "database", "--preset", "natural_language")
	require.NoError(t, err)

	_, err = runCLI(t, "search", "database", "--preset", "bogus")
	require.Error(t, err)
}

func TestSearchCmd_NoIndex(t *testing.T) {
	testDir := t.TempDir()
	createTestProject(t, testDir)
	t.Chdir(testDir)

	_, err := runCLI(t, "search", "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no index found")
}

func TestStatsCmd(t *testing.T) {
	indexedProject(t)

	output, err := runCLI(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, output, "Documents:")

	output, err = runCLI(t, "stats", "--json")
	require.NoError(t, err)

	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &stats))
	assert.Greater(t, stats["documents"], 0.0)
}
