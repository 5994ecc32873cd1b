package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rhelProfile() OsProfile {
	return OsProfile{
		Name:             "Red Hat Enterprise Linux",
		ShortName:        "rhel",
		Version:          "7.2 (Maipo)",
		VersionID:        "7.2",
		UnamePattern:     `el7\.x86_64$`,
		KernelPattern:    "/vmlinuz-%{version}",
		InitramfsPattern: "/initramfs-%{version}.img",
		RootOptsLVM2:     "rd.lvm.lv=%{lvm_root_lv}",
		Options:          "root=%{root_device} ro %{root_opts} rhgb quiet",
		Title:            "Red Hat Enterprise Linux %{version}",
		OptionalKeys:     map[OptionalKey]bool{},
	}
}

func TestOsIDDeterministic(t *testing.T) {
	a := rhelProfile().OsID()
	b := rhelProfile().OsID()
	assert.Equal(t, a, b)
	assert.Len(t, a, 40)
}

func TestOsIDChangesWithIdentity(t *testing.T) {
	p1 := rhelProfile()
	p2 := rhelProfile()
	p2.VersionID = "7.3"
	assert.NotEqual(t, p1.OsID(), p2.OsID())
}

func TestValidateRequiresRootEquals(t *testing.T) {
	p := rhelProfile()
	p.Options = "quiet rhgb"
	require.Error(t, p.Validate())
}

func TestValidateRejectsSelfReferencingPattern(t *testing.T) {
	p := rhelProfile()
	p.KernelPattern = "/vmlinuz-%{kernel}"
	require.Error(t, p.Validate())
}

func TestValidateRejectsInvalidOptionalKey(t *testing.T) {
	p := rhelProfile()
	p.OptionalKeys["bogus"] = true
	require.Error(t, p.Validate())
}

func TestNullProfileIsNullAndValid(t *testing.T) {
	n := NullOsProfile()
	assert.True(t, n.IsNull())
	require.NoError(t, n.Validate())
}

func TestHostIDDeterministic(t *testing.T) {
	h := HostProfile{MachineID: "abc123", Label: "laptop"}
	assert.Equal(t, h.HostID(), h.HostID())
	assert.Len(t, h.HostID(), 40)
}
