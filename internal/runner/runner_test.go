package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	assert.True(t, New(true).IsDryRun())
	assert.False(t, New(false).IsDryRun())
}

func TestDryRunnerNeverTouchesDisk(t *testing.T) {
	r := &DryRunner{}
	tempDir := t.TempDir()

	testDir := filepath.Join(tempDir, "test-dry-mkdir")
	require.NoError(t, r.MkdirAll(testDir, 0755, "test mkdir"))
	_, err := os.Stat(testDir)
	assert.True(t, os.IsNotExist(err))

	testFile := filepath.Join(tempDir, "test-dry-file.txt")
	require.NoError(t, r.WriteFileAtomic(testFile, []byte("content"), 0644, "test write"))
	_, err = os.Stat(testFile)
	assert.True(t, os.IsNotExist(err))

	src := filepath.Join(tempDir, "src.img")
	require.NoError(t, os.WriteFile(src, []byte("image"), 0644))
	dst := filepath.Join(tempDir, "dst.img")
	require.NoError(t, r.CopyFileAtomic(src, dst, 0644, "test copy"))
	_, err = os.Stat(dst)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, r.Chown(src, 0, 0, "test chown"))

	require.NoError(t, r.Remove(testFile, "test remove"))
}

func TestRealRunnerMkdirAll(t *testing.T) {
	r := &RealRunner{}
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "test-real-mkdir")

	require.NoError(t, r.MkdirAll(testDir, 0755, "test mkdir"))
	info, err := os.Stat(testDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRealRunnerWriteFileAtomic(t *testing.T) {
	r := &RealRunner{}
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "test-real-file.txt")

	require.NoError(t, r.WriteFileAtomic(testFile, []byte("hello"), 0644, "test write"))

	content, err := os.ReadFile(testFile)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	info, err := os.Stat(testFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestRealRunnerWriteFileAtomicLeavesNoTempOnSuccess(t *testing.T) {
	r := &RealRunner{}
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "entry.conf")

	require.NoError(t, r.WriteFileAtomic(testFile, []byte("data"), 0644, "test write"))

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "entry.conf", entries[0].Name())
}

func TestRealRunnerWriteFileAtomicOverwritesExisting(t *testing.T) {
	r := &RealRunner{}
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "entry.conf")

	require.NoError(t, r.WriteFileAtomic(testFile, []byte("first"), 0644, "write 1"))
	require.NoError(t, r.WriteFileAtomic(testFile, []byte("second"), 0644, "write 2"))

	content, err := os.ReadFile(testFile)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestRealRunnerCopyFileAtomic(t *testing.T) {
	r := &RealRunner{}
	tempDir := t.TempDir()
	src := filepath.Join(tempDir, "src.img")
	require.NoError(t, os.WriteFile(src, []byte("kernel bytes"), 0644))
	dst := filepath.Join(tempDir, "cache", "abc123.img")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0755))

	require.NoError(t, r.CopyFileAtomic(src, dst, 0644, "test copy"))

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "kernel bytes", string(content))

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no leftover temp file after a successful copy")
}

func TestRealRunnerRemove(t *testing.T) {
	r := &RealRunner{}
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "entry.conf")
	require.NoError(t, os.WriteFile(testFile, []byte("x"), 0644))

	require.NoError(t, r.Remove(testFile, "test remove"))
	_, err := os.Stat(testFile)
	assert.True(t, os.IsNotExist(err))
}
