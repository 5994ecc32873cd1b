// Package selector implements the declarative entity filter shared by every
// boom store: a struct of optional criteria, validated against the set of
// attribute groups a given entity type actually carries, then matched as the
// logical AND of every populated criterion.
package selector

import (
	"strings"

	"github.com/snapshotmanager/boom-go/internal/bmerr"
)

// Group names the attribute family a selector field belongs to, so a
// listing operation can reject criteria that don't apply to its entity.
type Group string

const (
	GroupEntry   Group = "entry"
	GroupParams  Group = "params"
	GroupProfile Group = "profile"
	GroupHost    Group = "host"
	GroupCache   Group = "cache"
)

// Selector carries one optional field per queryable attribute across every
// entity kind. A nil field is unset and ignored during matching.
type Selector struct {
	// entry
	BootID       *string
	Title        *string
	MachineID    *string
	Version      *string
	Linux        *string
	Initrd       *string
	Architecture *string

	// profile
	OsID         *string
	OsName       *string
	OsShortName  *string
	OsVersion    *string
	OsVersionID  *string
	UnamePattern *string

	// host
	HostID   *string
	HostName *string
	Label    *string

	// params
	RootDevice      *string
	LvmRootLV       *string
	BtrfsSubvolPath *string
	BtrfsSubvolID   *string
	StratisPoolUUID *string

	// cache
	Path  *string
	ImgID *string
}

type fieldSpec struct {
	name  string
	group Group
	set   func(*Selector) bool
}

func strField(name string, group Group, get func(*Selector) *string) fieldSpec {
	return fieldSpec{name: name, group: group, set: func(s *Selector) bool { return get(s) != nil }}
}

var fields = []fieldSpec{
	strField("boot_id", GroupEntry, func(s *Selector) *string { return s.BootID }),
	strField("title", GroupEntry, func(s *Selector) *string { return s.Title }),
	strField("machine_id", GroupEntry, func(s *Selector) *string { return s.MachineID }),
	strField("version", GroupEntry, func(s *Selector) *string { return s.Version }),
	strField("linux", GroupEntry, func(s *Selector) *string { return s.Linux }),
	strField("initrd", GroupEntry, func(s *Selector) *string { return s.Initrd }),
	strField("architecture", GroupEntry, func(s *Selector) *string { return s.Architecture }),

	strField("os_id", GroupProfile, func(s *Selector) *string { return s.OsID }),
	strField("os_name", GroupProfile, func(s *Selector) *string { return s.OsName }),
	strField("os_short_name", GroupProfile, func(s *Selector) *string { return s.OsShortName }),
	strField("os_version", GroupProfile, func(s *Selector) *string { return s.OsVersion }),
	strField("os_version_id", GroupProfile, func(s *Selector) *string { return s.OsVersionID }),
	strField("uname_pattern", GroupProfile, func(s *Selector) *string { return s.UnamePattern }),

	strField("host_id", GroupHost, func(s *Selector) *string { return s.HostID }),
	strField("host_name", GroupHost, func(s *Selector) *string { return s.HostName }),
	strField("label", GroupHost, func(s *Selector) *string { return s.Label }),

	strField("root_device", GroupParams, func(s *Selector) *string { return s.RootDevice }),
	strField("lvm_root_lv", GroupParams, func(s *Selector) *string { return s.LvmRootLV }),
	strField("btrfs_subvol_path", GroupParams, func(s *Selector) *string { return s.BtrfsSubvolPath }),
	strField("btrfs_subvol_id", GroupParams, func(s *Selector) *string { return s.BtrfsSubvolID }),
	strField("stratis_pool_uuid", GroupParams, func(s *Selector) *string { return s.StratisPoolUUID }),

	strField("path", GroupCache, func(s *Selector) *string { return s.Path }),
	strField("img_id", GroupCache, func(s *Selector) *string { return s.ImgID }),
}

// ValidateForType fails if any populated field on s belongs to a group not
// present in allowed, preventing e.g. a profile listing from being filtered
// by boot_id.
func (s *Selector) ValidateForType(allowed ...Group) error {
	allowedSet := make(map[Group]bool, len(allowed))
	for _, g := range allowed {
		allowedSet[g] = true
	}
	for _, f := range fields {
		if f.set(s) && !allowedSet[f.group] {
			return bmerr.Newf(bmerr.KindEntry, "selector field %q is not valid for this listing", f.name)
		}
	}
	return nil
}

// prefixEq matches by exact prefix: want is a prefix of have, or equal.
func prefixEq(want, have string) bool {
	return strings.HasPrefix(have, want)
}

func strEq(want *string, have string) bool {
	return want == nil || *want == have
}

func prefixMatch(want *string, have string) bool {
	return want == nil || prefixEq(*want, have)
}

// EntryFields is the subset of a BootEntry's attributes a Selector can
// match against.
type EntryFields struct {
	BootID       string
	Title        string
	MachineID    string
	Version      string
	Linux        string
	Initrd       string
	Architecture string
}

// MatchEntry reports whether every populated entry-group field (and the
// cache-group Path, matched against the entry's linux or initrd path)
// matches f.
func (s *Selector) MatchEntry(f EntryFields) bool {
	if !prefixMatch(s.BootID, f.BootID) {
		return false
	}
	if !strEq(s.Title, f.Title) {
		return false
	}
	if !strEq(s.MachineID, f.MachineID) {
		return false
	}
	if !strEq(s.Version, f.Version) {
		return false
	}
	if !strEq(s.Linux, f.Linux) {
		return false
	}
	if !strEq(s.Initrd, f.Initrd) {
		return false
	}
	if !strEq(s.Architecture, f.Architecture) {
		return false
	}
	// Path is a cache-group criterion but, per spec, matches a BootEntry if
	// it equals either the linux or the initrd image path -- used to find
	// entries referencing a given cached image.
	if s.Path != nil && *s.Path != f.Linux && *s.Path != f.Initrd {
		return false
	}
	return true
}

// ProfileFields is the subset of an OsProfile's attributes a Selector can
// match against.
type ProfileFields struct {
	OsID         string
	OsName       string
	OsShortName  string
	OsVersion    string
	OsVersionID  string
	UnamePattern string
}

func (s *Selector) MatchProfile(f ProfileFields) bool {
	return prefixMatch(s.OsID, f.OsID) &&
		strEq(s.OsName, f.OsName) &&
		strEq(s.OsShortName, f.OsShortName) &&
		strEq(s.OsVersion, f.OsVersion) &&
		strEq(s.OsVersionID, f.OsVersionID) &&
		strEq(s.UnamePattern, f.UnamePattern)
}

// HostFields is the subset of a HostProfile's attributes a Selector can
// match against.
type HostFields struct {
	HostID    string
	MachineID string
	HostName  string
	Label     string
	OsID      string
}

func (s *Selector) MatchHost(f HostFields) bool {
	return prefixMatch(s.HostID, f.HostID) &&
		strEq(s.MachineID, f.MachineID) &&
		strEq(s.HostName, f.HostName) &&
		strEq(s.Label, f.Label) &&
		prefixMatch(s.OsID, f.OsID)
}

// ParamsFields is the subset of a BootParams' attributes a Selector can
// match against.
type ParamsFields struct {
	Version         string
	RootDevice      string
	LvmRootLV       string
	BtrfsSubvolPath string
	BtrfsSubvolID   string
	StratisPoolUUID string
}

func (s *Selector) MatchParams(f ParamsFields) bool {
	return strEq(s.Version, f.Version) &&
		strEq(s.RootDevice, f.RootDevice) &&
		strEq(s.LvmRootLV, f.LvmRootLV) &&
		strEq(s.BtrfsSubvolPath, f.BtrfsSubvolPath) &&
		strEq(s.BtrfsSubvolID, f.BtrfsSubvolID) &&
		strEq(s.StratisPoolUUID, f.StratisPoolUUID)
}

// CacheFields is the subset of a CacheEntry's attributes a Selector can
// match against.
type CacheFields struct {
	Path  string
	ImgID string
}

func (s *Selector) MatchCache(f CacheFields) bool {
	return strEq(s.Path, f.Path) && prefixMatch(s.ImgID, f.ImgID)
}

// MinUniqueWidth computes the smallest prefix length w >= 7 such that no two
// ids in the set share a w-character prefix, used to size display columns
// for boot_id/os_id/host_id.
func MinUniqueWidth(ids []string) int {
	for w := 7; w <= 64; w++ {
		seen := make(map[string]bool, len(ids))
		collision := false
		for _, id := range ids {
			key := id
			if len(key) > w {
				key = key[:w]
			}
			if seen[key] {
				collision = true
				break
			}
			seen[key] = true
		}
		if !collision {
			return w
		}
	}
	return 64
}
