// Package profile implements the OS-profile and host-profile store
// (component C3): loading, identity, host overlay lookup, and profile
// re-binding for entries parsed from disk.
package profile

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/snapshotmanager/boom-go/internal/bmerr"
)

// OptionalKey names one of the closed universe of optional BLS keys an
// OsProfile may declare support for.
type OptionalKey string

const (
	OptionalGrubUsers OptionalKey = "grub_users"
	OptionalGrubArg   OptionalKey = "grub_arg"
	OptionalGrubClass OptionalKey = "grub_class"
	OptionalID        OptionalKey = "id"
)

var validOptionalKeys = map[OptionalKey]bool{
	OptionalGrubUsers: true,
	OptionalGrubArg:   true,
	OptionalGrubClass: true,
	OptionalID:        true,
}

// OsProfile is a template for rendering a BootEntry for one operating
// system version. Its identity triple is (ShortName, Version, VersionID).
type OsProfile struct {
	Name      string
	ShortName string
	Version   string
	VersionID string

	UnamePattern     string
	KernelPattern    string
	InitramfsPattern string
	RootOptsLVM2     string
	RootOptsBtrfs    string
	Options          string
	Title            string

	OptionalKeys map[OptionalKey]bool
}

// OsID is the content-addressed identity SHA1(short_name ∥ version ∥ version_id).
func (p OsProfile) OsID() string {
	return sha1Hex(p.ShortName + p.Version + p.VersionID)
}

// IsNull reports whether this is the null profile occupying index 0 of the
// store's collection (empty identity, never returned by default selections).
func (p OsProfile) IsNull() bool {
	return p.ShortName == "" && p.Version == "" && p.VersionID == ""
}

// NullOsProfile is the sentinel fallback profile used when an on-disk entry
// cannot be matched to any real profile.
func NullOsProfile() OsProfile {
	return OsProfile{Name: "null", OptionalKeys: map[OptionalKey]bool{}}
}

// Validate enforces the OsProfile invariants: options must render "root=",
// and no pattern field may reference its own substitution key.
func (p OsProfile) Validate() error {
	if p.IsNull() {
		return nil
	}
	if !strings.Contains(p.Options, "root=") {
		return bmerr.New(bmerr.KindProfile, `options template must contain the literal token "root="`)
	}
	selfRef := []struct{ field, key, name string }{
		{p.KernelPattern, "kernel", "kernel_pattern"},
		{p.InitramfsPattern, "initramfs", "initramfs_pattern"},
	}
	for _, s := range selfRef {
		if strings.Contains(s.field, "%{"+s.key+"}") {
			return bmerr.Newf(bmerr.KindProfile, "%s must not reference its own substitution key %%{%s}", s.name, s.key)
		}
	}
	for k := range p.OptionalKeys {
		if !validOptionalKeys[k] {
			return bmerr.Newf(bmerr.KindProfile, "invalid optional key %q", k)
		}
	}
	return nil
}

// HostProfile is a per-machine overlay on exactly one OsProfile, identified
// by (MachineID, Label). A nil override field means "defer to the OsProfile".
type HostProfile struct {
	MachineID string
	Label     string
	HostName  string
	OsID      string

	UnamePattern     *string
	KernelPattern    *string
	InitramfsPattern *string
	RootOptsLVM2     *string
	RootOptsBtrfs    *string
	Options          *string
	Title            *string

	AddOpts []string
	DelOpts []string
}

// HostID is the content-addressed identity SHA1(machine_id ∥ label).
func (h HostProfile) HostID() string {
	return sha1Hex(h.MachineID + h.Label)
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
