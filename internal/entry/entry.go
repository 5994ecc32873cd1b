// Package entry implements the BLS entry store (component C5): lifecycle,
// naming, atomic writes, and selection of boot entries on disk.
package entry

import (
	"github.com/snapshotmanager/boom-go/internal/bmerr"
	"github.com/snapshotmanager/boom-go/internal/compose"
)

// ProfileResolver is the consumer-side interface entry.Store uses to
// re-bind a profile to an entry loaded from disk and to recover the host
// overlay's add_opts/del_opts. profile.Store satisfies this structurally —
// entry never imports profile, keeping the two packages acyclic.
type ProfileResolver interface {
	ResolveForEntry(machineID, version, osIdentifierComment, actualOptions string) (src compose.TemplateSource, osID string, hostAddOpts, hostDelOpts []string)
}

// BootEntry is a renderable BLS entry: a bound profile (by os_id), an
// attached BootParams, and the rendered fields that make up its canonical
// text and content-addressed boot_id.
type BootEntry struct {
	Title        string
	MachineID    string
	Version      string
	Linux        string
	Initrd       string
	EFI          string
	Options      string
	DeviceTree   string
	Architecture string
	GrubID       string
	GrubUsers    string
	GrubArg      string
	GrubClass    string

	OsID   string
	Params *compose.BootParams

	SuppressMachineID bool
	ReadOnly          bool

	// path is the on-disk location this entry was last written to or
	// loaded from; empty for an entry not yet persisted.
	path string

	bootIDCache      string
	bootIDText       string
	bootIDGeneration uint64
	bootIDValid      bool
}

// New constructs a BootEntry, validating the mandatory-key invariants
// spec.md §7 names for create time: title, machine-id, and boot params.
// The caller is expected to set Linux+Initrd or EFI before the entry is
// persisted; Validate enforces that shape at write time.
func New(title, machineID, version string, params *compose.BootParams) (*BootEntry, error) {
	if title == "" {
		return nil, bmerr.New(bmerr.KindEntry, "title is required")
	}
	if machineID == "" {
		return nil, bmerr.New(bmerr.KindEntry, "machine-id is required")
	}
	if params == nil {
		return nil, bmerr.New(bmerr.KindEntry, "boot params are required")
	}
	return &BootEntry{
		Title:     title,
		MachineID: machineID,
		Version:   version,
		Params:    params,
	}, nil
}

// Kind distinguishes a kernel+initramfs entry from a pure EFI-stub entry
// (original boom/bootloader.py's BootEntry shape; spec.md's BootEntry
// already lists efi as an alternative to linux/initrd).
type Kind int

const (
	KindLinux Kind = iota
	KindEFI
)

// Kind reports whether e is a kernel+initramfs entry or an EFI-stub entry.
func (e *BootEntry) Kind() Kind {
	if e.Linux == "" && e.EFI != "" {
		return KindEFI
	}
	return KindLinux
}

// Validate checks the mandatory-key shape spec.md §7 requires before an
// entry is written: title, machine-id (unless suppressed), and either
// linux+initrd or efi.
func (e *BootEntry) Validate() error {
	if e.Title == "" {
		return bmerr.New(bmerr.KindEntry, "title is required")
	}
	if e.MachineID == "" && !e.SuppressMachineID {
		return bmerr.New(bmerr.KindEntry, "machine-id is required")
	}
	hasKernel := e.Linux != ""
	hasEFI := e.EFI != ""
	if !hasKernel && !hasEFI {
		return bmerr.New(bmerr.KindEntry, "entry must have either linux or efi set")
	}
	if hasKernel && e.Initrd == "" {
		return bmerr.New(bmerr.KindEntry, "entry with linux set requires initrd")
	}
	return nil
}

// canonicalFields builds the compose.CanonicalFields view used for hashing.
func (e *BootEntry) canonicalFields() compose.CanonicalFields {
	return compose.CanonicalFields{
		Title:             e.Title,
		MachineID:         e.MachineID,
		SuppressMachineID: e.SuppressMachineID,
		Version:           e.Version,
		Linux:             e.Linux,
		EFI:               e.EFI,
		Initrd:            e.Initrd,
		Options:           e.Options,
		DeviceTree:        e.DeviceTree,
		Architecture:      e.Architecture,
		GrubID:            e.GrubID,
		GrubUsers:         e.GrubUsers,
		GrubArg:           e.GrubArg,
		GrubClass:         e.GrubClass,
	}
}

// CanonicalText is the fixed-order textual form boot_id hashes.
func (e *BootEntry) CanonicalText() string {
	return compose.CanonicalText(e.canonicalFields())
}

// BootID recomputes on demand: the first time it is requested, whenever
// the attached BootParams' generation has advanced since the last hash
// (spec.md §4.4.4), or whenever the entry's canonical text has changed
// since the last hash (a field assigned directly or through a setter).
func (e *BootEntry) BootID() string {
	gen := uint64(0)
	if e.Params != nil {
		gen = e.Params.Generation()
	}
	text := e.CanonicalText()
	if e.bootIDValid && e.bootIDGeneration == gen && e.bootIDText == text {
		return e.bootIDCache
	}
	e.bootIDCache = compose.BootID(e.canonicalFields())
	e.bootIDText = text
	e.bootIDGeneration = gen
	e.bootIDValid = true
	return e.bootIDCache
}

// FileName is "<machine_id>-<boot_id[0..7]>-<version>.conf".
func (e *BootEntry) FileName() string {
	return compose.FileName(e.MachineID, e.BootID(), e.Version)
}

// Path returns the last-known on-disk path, or "" if never persisted.
func (e *BootEntry) Path() string { return e.path }

// mutate runs fn if the entry is not read-only, returning an EntryError
// otherwise. Every exported setter goes through this so a read-only entry
// can never be silently modified (spec.md §3's read-only flag invariant).
func (e *BootEntry) mutate(fn func()) error {
	if e.ReadOnly {
		return bmerr.New(bmerr.KindEntry, "cannot mutate a read-only entry")
	}
	fn()
	return nil
}

func (e *BootEntry) SetTitle(v string) error   { return e.mutate(func() { e.Title = v }) }
func (e *BootEntry) SetOptions(v string) error { return e.mutate(func() { e.Options = v }) }
func (e *BootEntry) SetLinux(v string) error   { return e.mutate(func() { e.Linux = v }) }
func (e *BootEntry) SetInitrd(v string) error  { return e.mutate(func() { e.Initrd = v }) }
func (e *BootEntry) SetEFI(v string) error     { return e.mutate(func() { e.EFI = v }) }
func (e *BootEntry) SetVersion(v string) error { return e.mutate(func() { e.Version = v }) }
