package profile

import "github.com/snapshotmanager/boom-go/internal/compose"

// Effective is an OsProfile optionally wrapped by a HostProfile overlay. It
// implements compose.TemplateSource, resolving each template field by
// "host wins if present, else the OsProfile's value" per spec.md §4.3's
// host-wrap lookup semantics.
type Effective struct {
	Os   OsProfile
	Host *HostProfile
}

var _ compose.TemplateSource = Effective{}

func (e Effective) UnamePattern() string {
	if e.Host != nil && e.Host.UnamePattern != nil {
		return *e.Host.UnamePattern
	}
	return e.Os.UnamePattern
}

func (e Effective) KernelPattern() string {
	if e.Host != nil && e.Host.KernelPattern != nil {
		return *e.Host.KernelPattern
	}
	return e.Os.KernelPattern
}

func (e Effective) InitramfsPattern() string {
	if e.Host != nil && e.Host.InitramfsPattern != nil {
		return *e.Host.InitramfsPattern
	}
	return e.Os.InitramfsPattern
}

func (e Effective) RootOptsLVM2() string {
	if e.Host != nil && e.Host.RootOptsLVM2 != nil {
		return *e.Host.RootOptsLVM2
	}
	return e.Os.RootOptsLVM2
}

func (e Effective) RootOptsBtrfs() string {
	if e.Host != nil && e.Host.RootOptsBtrfs != nil {
		return *e.Host.RootOptsBtrfs
	}
	return e.Os.RootOptsBtrfs
}

func (e Effective) Options() string {
	if e.Host != nil && e.Host.Options != nil {
		return *e.Host.Options
	}
	return e.Os.Options
}

func (e Effective) Title() string {
	if e.Host != nil && e.Host.Title != nil {
		return *e.Host.Title
	}
	return e.Os.Title
}

func (e Effective) OsName() string      { return e.Os.Name }
func (e Effective) OsShortName() string { return e.Os.ShortName }
func (e Effective) OsVersion() string   { return e.Os.Version }
func (e Effective) OsVersionID() string { return e.Os.VersionID }

// AddOpts returns the host overlay's additional option tokens, or nil when
// no host profile is wrapped.
func (e Effective) AddOpts() []string {
	if e.Host == nil {
		return nil
	}
	return e.Host.AddOpts
}

// DelOpts returns the host overlay's removed option tokens, or nil when no
// host profile is wrapped.
func (e Effective) DelOpts() []string {
	if e.Host == nil {
		return nil
	}
	return e.Host.DelOpts
}

// OsID is the identity of the bound OsProfile, regardless of host wrap
// (HostProfile never changes which OsProfile an entry's identity resolves
// to — it only overlays template fields).
func (e Effective) OsID() string { return e.Os.OsID() }
