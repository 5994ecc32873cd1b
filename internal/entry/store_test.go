package entry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapshotmanager/boom-go/internal/compose"
	"github.com/snapshotmanager/boom-go/internal/platform"
	"github.com/snapshotmanager/boom-go/internal/runner"
)

// fakeSource is a minimal compose.TemplateSource for store tests.
type fakeSource struct {
	options      string
	rootOptsLVM2 string
	rootOptsBtrfs string
}

func (f fakeSource) UnamePattern() string     { return "" }
func (f fakeSource) KernelPattern() string    { return "" }
func (f fakeSource) InitramfsPattern() string { return "" }
func (f fakeSource) RootOptsLVM2() string     { return f.rootOptsLVM2 }
func (f fakeSource) RootOptsBtrfs() string    { return f.rootOptsBtrfs }
func (f fakeSource) Options() string          { return f.options }
func (f fakeSource) Title() string            { return "" }
func (f fakeSource) OsName() string           { return "" }
func (f fakeSource) OsShortName() string      { return "" }
func (f fakeSource) OsVersion() string        { return "" }
func (f fakeSource) OsVersionID() string      { return "" }

// fakeResolver returns a fixed TemplateSource/os_id/overlay for every
// lookup, regardless of the arguments passed.
type fakeResolver struct {
	src     compose.TemplateSource
	osID    string
	addOpts []string
	delOpts []string
}

func (r fakeResolver) ResolveForEntry(machineID, version, osIdentifierComment, actualOptions string) (compose.TemplateSource, string, []string, []string) {
	return r.src, r.osID, r.addOpts, r.delOpts
}

func newTestStore(t *testing.T, resolver ProfileResolver) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s := NewStore(dir, runner.New(false), resolver, platform.NewCannedProbe())
	return s, dir
}

func plainResolver() fakeResolver {
	return fakeResolver{src: fakeSource{options: "root=%{root_device} ro quiet"}, osID: "os-1"}
}

// newLinuxEntry builds a BootEntry that satisfies Validate (title,
// machine-id, linux+initrd) for store tests that don't care about content
// beyond having something writable.
func newLinuxEntry(t *testing.T) *BootEntry {
	t.Helper()
	params, err := compose.NewBootParams("5.14.0", "/dev/sda2", "")
	require.NoError(t, err)
	e, err := New("Fedora 39", "abc123", "5.14.0", params)
	require.NoError(t, err)
	e.Linux = "/boot/vmlinuz-5.14.0"
	e.Initrd = "/boot/initramfs-5.14.0.img"
	e.Options = "root=/dev/sda2 ro quiet"
	return e
}

func TestCreateThenLoadRoundTrip(t *testing.T) {
	s, dir := newTestStore(t, plainResolver())
	e := newLinuxEntry(t)
	e.OsID = "os-1"

	require.NoError(t, s.Create(e))
	assert.FileExists(t, e.Path())

	s2, _ := newTestStore(t, plainResolver())
	s2.EntriesDir = dir
	require.NoError(t, s2.Load())
	require.Len(t, s2.Entries(), 1)

	loaded := s2.Entries()[0]
	assert.Equal(t, "Fedora 39", loaded.Title)
	assert.Equal(t, "abc123", loaded.MachineID)
	assert.Equal(t, "os-1", loaded.OsID)
	assert.False(t, loaded.ReadOnly)
}

func TestLoadFlagsNonBoomShapedFilenameReadOnly(t *testing.T) {
	s, dir := newTestStore(t, plainResolver())
	require.NoError(t, os.MkdirAll(dir, 0755))
	content := "title Manual Entry\nlinux /boot/vmlinuz-custom\noptions root=/dev/sda1 ro\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.conf"), []byte(content), 0644))

	require.NoError(t, s.Load())
	require.Len(t, s.Entries(), 1)
	assert.True(t, s.Entries()[0].ReadOnly)
}

func TestLoadAdoptsSuppressedMachineIDFromFilename(t *testing.T) {
	s, dir := newTestStore(t, plainResolver())
	machineID := "11111111111111111111111111111111"
	name := machineID + "-aaaaaaa-5.14.0.conf"
	content := "title No MachineID Key\nlinux /boot/vmlinuz-5.14.0\noptions root=/dev/sda2 ro\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))

	require.NoError(t, s.Load())
	require.Len(t, s.Entries(), 1)
	loaded := s.Entries()[0]
	assert.Equal(t, machineID, loaded.MachineID)
	assert.True(t, loaded.SuppressMachineID)
}

func TestUpdateRewritesPathWhenIdentityChanges(t *testing.T) {
	s, _ := newTestStore(t, plainResolver())
	e := newLinuxEntry(t)
	require.NoError(t, s.Create(e))
	oldPath := e.Path()

	e.Options = "root=/dev/sda2 ro quiet nomodeset"
	require.NoError(t, s.Update(e))

	assert.NotEqual(t, oldPath, e.Path())
	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, e.Path())
}

func TestUpdateRefusesOnReadOnly(t *testing.T) {
	s, _ := newTestStore(t, plainResolver())
	e := newLinuxEntry(t)
	require.NoError(t, s.Create(e))
	e.ReadOnly = true

	err := s.Update(e)
	require.Error(t, err)
}

func TestDeleteRemovesFileAndRecord(t *testing.T) {
	s, _ := newTestStore(t, plainResolver())
	e := newLinuxEntry(t)
	require.NoError(t, s.Create(e))
	path := e.Path()

	require.NoError(t, s.Delete(e))
	assert.NoFileExists(t, path)
	assert.Empty(t, s.Entries())
}

func TestDeleteRefusesOnReadOnly(t *testing.T) {
	s, _ := newTestStore(t, plainResolver())
	e := newLinuxEntry(t)
	require.NoError(t, s.Create(e))
	e.ReadOnly = true

	err := s.Delete(e)
	require.Error(t, err)
	assert.FileExists(t, e.Path())
}

func TestCloneOverridesFields(t *testing.T) {
	s, _ := newTestStore(t, plainResolver())
	e := newLinuxEntry(t)
	require.NoError(t, s.Create(e))

	clone, err := s.Clone(e, Delta{Title: "Fedora 39 (rescue)", Options: "root=/dev/sda2 ro single"})
	require.NoError(t, err)
	require.NotSame(t, e, clone)
	assert.Equal(t, "Fedora 39 (rescue)", clone.Title)
	assert.Equal(t, "root=/dev/sda2 ro single", clone.Options)
	assert.Equal(t, e.MachineID, clone.MachineID)
	assert.FileExists(t, clone.Path())
	assert.NotEqual(t, e.Path(), clone.Path())
	assert.Contains(t, s.Entries(), clone)
}
