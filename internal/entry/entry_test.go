package entry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapshotmanager/boom-go/internal/compose"
)

func mustParams(t *testing.T, version, rootDevice, lvmRootLV string) *compose.BootParams {
	t.Helper()
	p, err := compose.NewBootParams(version, rootDevice, lvmRootLV)
	require.NoError(t, err)
	return p
}

func TestNewRejectsMissingFields(t *testing.T) {
	params := mustParams(t, "5.14.0", "/dev/sda2", "")

	_, err := New("", "machine1", "5.14.0", params)
	require.Error(t, err)

	_, err = New("Title", "", "5.14.0", params)
	require.Error(t, err)

	_, err = New("Title", "machine1", "5.14.0", nil)
	require.Error(t, err)
}

func TestBootIDStableUntilParamsChange(t *testing.T) {
	params := mustParams(t, "5.14.0", "/dev/sda2", "")
	e, err := New("Fedora", "abc123", "5.14.0", params)
	require.NoError(t, err)
	e.Options = "root=/dev/sda2 ro"
	e.Linux = "/boot/vmlinuz-5.14.0"

	first := e.BootID()
	assert.Equal(t, first, e.BootID(), "BootID must be stable with no changes")

	params.SetRootDevice("/dev/sda3")
	e.Options = "root=/dev/sda3 ro"
	second := e.BootID()
	assert.NotEqual(t, first, second, "BootID must change once params are dirtied and fields updated")
}

func TestFileNameShape(t *testing.T) {
	params := mustParams(t, "5.14.0", "/dev/sda2", "")
	e, err := New("Fedora", "abc123", "5.14.0", params)
	require.NoError(t, err)
	name := e.FileName()
	assert.Contains(t, name, "abc123-")
	assert.Contains(t, name, "-5.14.0.conf")
}

func TestMutateRefusesOnReadOnly(t *testing.T) {
	params := mustParams(t, "5.14.0", "/dev/sda2", "")
	e, err := New("Fedora", "abc123", "5.14.0", params)
	require.NoError(t, err)
	e.ReadOnly = true

	err = e.SetTitle("New Title")
	require.Error(t, err)
	assert.Equal(t, "Fedora", e.Title, "title must be unchanged after a refused mutation")
}

func TestSettersMutateWhenWritable(t *testing.T) {
	params := mustParams(t, "5.14.0", "/dev/sda2", "")
	e, err := New("Fedora", "abc123", "5.14.0", params)
	require.NoError(t, err)

	require.NoError(t, e.SetOptions("root=/dev/sda2 ro quiet"))
	assert.Equal(t, "root=/dev/sda2 ro quiet", e.Options)
}

func TestKindDistinguishesLinuxFromEFI(t *testing.T) {
	params := mustParams(t, "5.14.0", "/dev/sda2", "")
	e, err := New("Fedora", "abc123", "5.14.0", params)
	require.NoError(t, err)

	assert.Equal(t, KindLinux, e.Kind(), "an entry with neither linux nor efi set still reports KindLinux by default")

	e.EFI = "/EFI/fedora/shimx64.efi"
	assert.Equal(t, KindEFI, e.Kind())

	e.Linux = "/boot/vmlinuz-5.14.0"
	assert.Equal(t, KindLinux, e.Kind(), "linux present takes precedence over efi")
}

func TestValidateRequiresLinuxOrEFI(t *testing.T) {
	params := mustParams(t, "5.14.0", "/dev/sda2", "")
	e, err := New("Fedora", "abc123", "5.14.0", params)
	require.NoError(t, err)
	require.Error(t, e.Validate())

	e.EFI = "/EFI/fedora/shimx64.efi"
	assert.NoError(t, e.Validate())
}

func TestValidateRequiresInitrdWithLinux(t *testing.T) {
	params := mustParams(t, "5.14.0", "/dev/sda2", "")
	e, err := New("Fedora", "abc123", "5.14.0", params)
	require.NoError(t, err)
	e.Linux = "/boot/vmlinuz-5.14.0"
	require.Error(t, e.Validate())

	e.Initrd = "/boot/initramfs-5.14.0.img"
	assert.NoError(t, e.Validate())
}

func TestCanonicalTextOmitsMachineIDWhenSuppressed(t *testing.T) {
	params := mustParams(t, "5.14.0", "/dev/sda2", "")
	e, err := New("Fedora", "abc123", "5.14.0", params)
	require.NoError(t, err)
	e.SuppressMachineID = true

	assert.NotContains(t, e.CanonicalText(), "MACHINE_ID")
}
