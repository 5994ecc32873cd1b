package boomconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWhenFileAbsent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	require.NoError(t, err)
	assert.Equal(t, "/boot", cfg.Global.BootRoot)
	assert.Equal(t, "/boot/boom", cfg.Global.BoomRoot)
	assert.True(t, cfg.Cache.Enable)
	assert.False(t, cfg.Legacy.Enable)
}

func TestLoadEmptyPathAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/boot", cfg.Global.BootRoot)
}

func TestLoadOverlaysFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boom.conf")
	content := "[global]\nboot_root = /mnt/boot\nboom_root = /mnt/boot/boom\n\n[cache]\nenable = false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/boot", cfg.Global.BootRoot)
	assert.Equal(t, "/mnt/boot/boom", cfg.Global.BoomRoot)
	assert.False(t, cfg.Cache.Enable)
	assert.Equal(t, "grub1", cfg.Legacy.Format, "unset keys still default")
}

func TestLoadFailsWhenGlobalSectionMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boom.conf")
	content := "[cache]\nenable = false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	require.Error(t, err)
}
