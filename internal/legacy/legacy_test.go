package legacy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapshotmanager/boom-go/internal/runner"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestWriteAppendsFenceWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.lst")
	writeFile(t, path, "# hand-written preamble\ntimeout 5\n")

	err := Write(runner.New(false), path, "entries", []Entry{
		{Version: "5.14.0", Title: "Fedora 39", Block: "title Fedora 39\n\tkernel /vmlinuz-5.14.0"},
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "# hand-written preamble")
	assert.Contains(t, text, "#--- BOOM_entries_BEGIN ---")
	assert.Contains(t, text, "title Fedora 39")
	assert.Contains(t, text, "#--- BOOM_entries_END ---")
}

func TestWriteReplacesExistingFenceInPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.lst")
	writeFile(t, path, "before\n#--- BOOM_entries_BEGIN ---\nstale block\n#--- BOOM_entries_END ---\nafter\n")

	err := Write(runner.New(false), path, "entries", []Entry{
		{Version: "5.14.0", Title: "Fedora 39", Block: "fresh block"},
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "before")
	assert.Contains(t, text, "after")
	assert.Contains(t, text, "fresh block")
	assert.NotContains(t, text, "stale block")
}

func TestWriteOrdersEntriesByVersionThenTitle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.lst")
	writeFile(t, path, "")

	err := Write(runner.New(false), path, "entries", []Entry{
		{Version: "5.15.0", Title: "Fedora 39", Block: "BLOCK_B"},
		{Version: "5.14.0", Title: "Fedora 39 (rescue)", Block: "BLOCK_C"},
		{Version: "5.14.0", Title: "Fedora 39", Block: "BLOCK_A"},
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	posA := indexOf(text, "BLOCK_A")
	posB := indexOf(text, "BLOCK_B")
	posC := indexOf(text, "BLOCK_C")
	assert.True(t, posA < posC && posC < posB, "entries must be ordered by (version, title)")
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func TestWriteRejectsDuplicateBeginMarker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.lst")
	writeFile(t, path, "#--- BOOM_entries_BEGIN ---\nx\n#--- BOOM_entries_BEGIN ---\n#--- BOOM_entries_END ---\n")

	err := Write(runner.New(false), path, "entries", nil)
	require.Error(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "x", "a fatal fence error must not modify the file")
}

func TestWriteRejectsUnmatchedBeginMarker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.lst")
	writeFile(t, path, "#--- BOOM_entries_BEGIN ---\nx\n")

	err := Write(runner.New(false), path, "entries", nil)
	require.Error(t, err)
}

func TestClearIsNoOpWhenNoMarkersPresent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.lst")
	writeFile(t, path, "plain content\n")

	require.NoError(t, Clear(runner.New(false), path, "entries"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "plain content\n", string(content))
}

func TestClearFailsWhenOnlyOneMarkerPresent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.lst")
	writeFile(t, path, "#--- BOOM_entries_BEGIN ---\nx\n")

	err := Clear(runner.New(false), path, "entries")
	require.Error(t, err)
}

func TestClearRemovesFenceAndContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.lst")
	writeFile(t, path, "before\n#--- BOOM_entries_BEGIN ---\nstale\n#--- BOOM_entries_END ---\nafter\n")

	require.NoError(t, Clear(runner.New(false), path, "entries"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "before")
	assert.Contains(t, text, "after")
	assert.NotContains(t, text, "BOOM_entries")
	assert.NotContains(t, text, "stale")
}
