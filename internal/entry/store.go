package entry

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/snapshotmanager/boom-go/internal/bmerr"
	"github.com/snapshotmanager/boom-go/internal/compose"
	"github.com/snapshotmanager/boom-go/internal/platform"
	"github.com/snapshotmanager/boom-go/internal/runner"
	"github.com/snapshotmanager/boom-go/internal/selector"
)

// boomShaped recognises the "<machine_id>-<boot_id7+>-<version>.conf"
// filename pattern. A file that doesn't match is a non-Boom-authored entry
// and gets flagged read-only (spec.md §4.5 load step 7).
var boomShaped = regexp.MustCompile(`^([0-9a-fA-F]+)-([0-9a-fA-F]{7,})-(.+)\.conf$`)

// machineID32Hex recognises a 32-hex-digit machine id leading a filename.
var machineID32Hex = regexp.MustCompile(`^[0-9a-fA-F]{32}`)

// Store owns every loaded BootEntry and the filesystem directory they
// persist to.
type Store struct {
	EntriesDir string
	Runner     runner.Runner
	Resolver   ProfileResolver
	Probe      platform.Probe

	// DebugMask, when it has DebugEntry set, turns a single bad entry file
	// during Load into a fatal error instead of a logged skip.
	DebugMask bmerr.DebugMask

	entries []*BootEntry
}

// NewStore constructs an empty Store rooted at entriesDir.
func NewStore(entriesDir string, rnr runner.Runner, resolver ProfileResolver, probe platform.Probe) *Store {
	return &Store{EntriesDir: entriesDir, Runner: rnr, Resolver: resolver, Probe: probe}
}

// Entries returns every loaded BootEntry.
func (s *Store) Entries() []*BootEntry { return append([]*BootEntry(nil), s.entries...) }

// ReferencesPath reports whether any loaded entry's linux or initrd field
// equals path. The image cache's Uncache/Clean operations use this to
// refuse dropping an image still referenced by a live entry (spec.md §4.6).
func (s *Store) ReferencesPath(path string) bool {
	for _, e := range s.entries {
		if e.Linux == path || e.Initrd == path {
			return true
		}
	}
	return false
}

// Load scans EntriesDir for *.conf files, parses each, re-binds a profile,
// and recovers BootParams. A bad individual file logs a warning and is
// skipped (spec.md §7 load-time propagation policy).
func (s *Store) Load() error {
	matches, err := filepath.Glob(filepath.Join(s.EntriesDir, "*.conf"))
	if err != nil {
		return bmerr.Wrap(bmerr.KindIO, "globbing entries directory", err)
	}
	sort.Strings(matches)

	s.entries = nil
	for _, path := range matches {
		e, err := s.loadOne(path)
		if err != nil {
			if s.DebugMask.Has(bmerr.DebugEntry) {
				return bmerr.Wrapf(bmerr.KindEntry, err, "loading entry %s", path)
			}
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable entry")
			continue
		}
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *Store) loadOne(path string) (*BootEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, bmerr.Wrap(bmerr.KindIO, "reading entry file", err)
	}
	lines := strings.Split(string(raw), "\n")

	parsed, err := parseBLSFile(lines)
	if err != nil {
		return nil, err
	}
	e := fromParsed(parsed)
	e.path = path

	base := filepath.Base(path)
	m := boomShaped.FindStringSubmatch(base)
	if m == nil {
		e.ReadOnly = true
	}

	if !parsed.hasKeyMID {
		if loc := machineID32Hex.FindString(base); loc != "" {
			e.MachineID = loc
			e.SuppressMachineID = true
		}
	}

	src, osID, hostAdd, hostDel := s.Resolver.ResolveForEntry(e.MachineID, e.Version, parsed.osID, e.Options)
	e.OsID = osID

	rev := compose.ReverseMatch(src.Options(), src.RootOptsLVM2(), src.RootOptsBtrfs(), e.Options, s.Probe)
	version := e.Version
	if version == "" {
		version = rev.Version
	}
	params, perr := compose.NewBootParams(version, rev.RootDevice, rev.LvmRootLV)
	if perr != nil {
		params, _ = compose.NewBootParams("unknown", rev.RootDevice, rev.LvmRootLV)
	}
	if rev.BtrfsSubvolPath != "" {
		params.SetBtrfsSubvolPath(rev.BtrfsSubvolPath)
	}
	if rev.BtrfsSubvolID != "" {
		params.SetBtrfsSubvolID(rev.BtrfsSubvolID)
	}
	if rev.StratisPoolUUID != "" {
		params.SetStratisPoolUUID(rev.StratisPoolUUID)
	}
	params.SetAddOpts(rev.AddOpts)
	params.SetDelOpts(rev.DelOpts)
	params.AppendAddOpts(hostAdd)
	params.AppendDelOpts(hostDel)
	e.Params = params

	if !e.ReadOnly && m != nil {
		computed := e.BootID()
		if compose.DisplayPrefix(computed, 7) != strings.ToLower(m[2]) {
			if err := s.rewrite(e, path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("self-healing rewrite failed")
			}
		}
	}

	return e, nil
}

// Create renders, computes the identity, and atomically writes a new
// entry, adding it to the store.
func (s *Store) Create(e *BootEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	path := filepath.Join(s.EntriesDir, e.FileName())
	if err := s.write(e, path); err != nil {
		return err
	}
	e.path = path
	s.entries = append(s.entries, e)
	return nil
}

// Update re-renders e and writes it to its (possibly new) identity-derived
// path, unlinking the previous path if the identity changed (spec.md §4.5
// "Update" = write then unlink-if-different).
func (s *Store) Update(e *BootEntry) error {
	if e.ReadOnly {
		return bmerr.New(bmerr.KindEntry, "cannot update a read-only entry")
	}
	if err := e.Validate(); err != nil {
		return err
	}
	oldPath := e.path
	newPath := filepath.Join(s.EntriesDir, e.FileName())
	if err := s.write(e, newPath); err != nil {
		return err
	}
	if oldPath != "" && oldPath != newPath {
		if err := s.Runner.Remove(oldPath, "remove superseded entry"); err != nil && !os.IsNotExist(err) {
			return bmerr.Wrap(bmerr.KindIO, "removing superseded entry file", err)
		}
	}
	e.path = newPath
	return nil
}

// Delete refuses for read-only entries and for entries with no known path
// (a protocol error — the caller has stale state), otherwise unlinks the
// file and drops the in-memory record.
func (s *Store) Delete(e *BootEntry) error {
	if e.ReadOnly {
		return bmerr.New(bmerr.KindEntry, "cannot delete a read-only entry")
	}
	if e.path == "" {
		return bmerr.New(bmerr.KindEntry, "entry has no on-disk path to delete")
	}
	if _, err := os.Stat(e.path); err != nil {
		return bmerr.Wrap(bmerr.KindEntry, "entry file is already absent", err)
	}
	if err := s.Runner.Remove(e.path, "delete entry"); err != nil {
		return bmerr.Wrap(bmerr.KindIO, "removing entry file", err)
	}
	for i, other := range s.entries {
		if other == e {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	return nil
}

// Delta names the fields a clone may override; a zero-value field leaves
// the corresponding field copied from the source entry unchanged (boom
// clone, from the original boom/command.py --clone path).
type Delta struct {
	Title   string
	Options string
	Linux   string
	Initrd  string
	EFI     string
	Version string
}

// Clone creates a new entry from src's profile binding and params, with
// any non-zero Delta fields overridden, and persists it under its own
// content-addressed identity.
func (s *Store) Clone(src *BootEntry, delta Delta) (*BootEntry, error) {
	clone := &BootEntry{
		Title:        src.Title,
		MachineID:    src.MachineID,
		Version:      src.Version,
		Linux:        src.Linux,
		Initrd:       src.Initrd,
		EFI:          src.EFI,
		Options:      src.Options,
		DeviceTree:   src.DeviceTree,
		Architecture: src.Architecture,
		GrubID:       src.GrubID,
		GrubUsers:    src.GrubUsers,
		GrubArg:      src.GrubArg,
		GrubClass:    src.GrubClass,
		OsID:         src.OsID,
	}
	if src.Params != nil {
		clone.Params = src.Params.Clone()
	}

	if delta.Title != "" {
		clone.Title = delta.Title
	}
	if delta.Options != "" {
		clone.Options = delta.Options
	}
	if delta.Linux != "" {
		clone.Linux = delta.Linux
	}
	if delta.Initrd != "" {
		clone.Initrd = delta.Initrd
	}
	if delta.EFI != "" {
		clone.EFI = delta.EFI
	}
	if delta.Version != "" {
		clone.Version = delta.Version
	}

	if err := s.Create(clone); err != nil {
		return nil, err
	}
	return clone, nil
}

// MinUniqueWidth computes the smallest unique display-prefix width over
// the store's boot_ids, delegating to the selector package's shared
// helper (original boom/command.py's min_boot_id_width).
func (s *Store) MinUniqueWidth() int {
	ids := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		ids = append(ids, e.BootID())
	}
	return selector.MinUniqueWidth(ids)
}

func (s *Store) write(e *BootEntry, path string) error {
	if err := s.Runner.MkdirAll(s.EntriesDir, 0755, "ensure entries directory"); err != nil {
		return bmerr.Wrap(bmerr.KindIO, "creating entries directory", err)
	}
	if err := s.Runner.WriteFileAtomic(path, []byte(e.Render()), 0644, "write boot entry"); err != nil {
		return bmerr.Wrap(bmerr.KindIO, "writing entry file", err)
	}
	return nil
}

// rewrite performs the self-healing step: the file at oldPath was found to
// disagree with its own computed identity, so it is rewritten at the
// correct path (spec.md §4.5 load step 8).
func (s *Store) rewrite(e *BootEntry, oldPath string) error {
	newPath := filepath.Join(s.EntriesDir, e.FileName())
	if err := s.write(e, newPath); err != nil {
		return err
	}
	e.path = newPath
	if newPath != oldPath {
		if err := s.Runner.Remove(oldPath, "remove stale-identity entry"); err != nil && !os.IsNotExist(err) {
			return bmerr.Wrap(bmerr.KindIO, "removing stale entry file", err)
		}
	}
	return nil
}
