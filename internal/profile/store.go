package profile

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/snapshotmanager/boom-go/internal/bmerr"
	"github.com/snapshotmanager/boom-go/internal/compose"
	"github.com/snapshotmanager/boom-go/internal/runner"
	"github.com/snapshotmanager/boom-go/internal/selector"
)

// Store owns the in-memory OsProfile and HostProfile collections, keyed by
// identity, and their on-disk persistence under <boom>/profiles/.
type Store struct {
	ProfilesDir string
	HostsDir    string
	Runner      runner.Runner

	// DebugMask, when it has DebugProfile set, turns a single bad profile
	// file during Load into a fatal error instead of a logged skip.
	DebugMask bmerr.DebugMask

	osProfiles   []OsProfile
	osByID       map[string]int
	hostProfiles []HostProfile
	hostByID     map[string]int
}

// NewStore constructs an empty Store rooted at profilesDir, with host
// profiles in profilesDir/hosts. The null profile occupies index 0 per
// spec.md §4.3.
func NewStore(profilesDir string, rnr runner.Runner) *Store {
	s := &Store{
		ProfilesDir: profilesDir,
		HostsDir:    filepath.Join(profilesDir, "hosts"),
		Runner:      rnr,
		osByID:      map[string]int{},
		hostByID:    map[string]int{},
	}
	null := NullOsProfile()
	s.osProfiles = append(s.osProfiles, null)
	s.osByID[null.OsID()] = 0
	return s
}

// Load reads every *.profile and *.host file into the in-memory
// collections. A bad individual file logs a warning and is skipped,
// per spec.md §7's "loading one bad entry does not deny service" policy.
func (s *Store) Load() error {
	profileFiles, err := filepath.Glob(filepath.Join(s.ProfilesDir, "*.profile"))
	if err != nil {
		return bmerr.Wrap(bmerr.KindIO, "globbing profiles directory", err)
	}
	sort.Strings(profileFiles)
	for _, path := range profileFiles {
		if err := s.loadOsProfileFile(path); err != nil {
			if s.DebugMask.Has(bmerr.DebugProfile) {
				return bmerr.Wrapf(bmerr.KindProfile, err, "loading OS profile %s", path)
			}
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable OS profile")
		}
	}

	hostFiles, err := filepath.Glob(filepath.Join(s.HostsDir, "*.host"))
	if err != nil {
		return bmerr.Wrap(bmerr.KindIO, "globbing hosts directory", err)
	}
	sort.Strings(hostFiles)
	for _, path := range hostFiles {
		if err := s.loadHostProfileFile(path); err != nil {
			if s.DebugMask.Has(bmerr.DebugProfile) {
				return bmerr.Wrapf(bmerr.KindProfile, err, "loading host profile %s", path)
			}
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable host profile")
		}
	}

	s.sortOsProfiles()
	return nil
}

func (s *Store) loadOsProfileFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return bmerr.Wrap(bmerr.KindIO, "opening profile file", err)
	}
	defer f.Close()

	fields, err := parseProfileFile(f)
	if err != nil {
		return err
	}
	p := osProfileFromFields(fields)
	if err := p.Validate(); err != nil {
		return err
	}
	return s.InsertOsProfile(p)
}

func (s *Store) loadHostProfileFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return bmerr.Wrap(bmerr.KindIO, "opening host profile file", err)
	}
	defer f.Close()

	fields, err := parseProfileFile(f)
	if err != nil {
		return err
	}
	h := hostProfileFromFields(fields)
	return s.InsertHostProfile(h)
}

// SaveOsProfile validates, inserts (if not already present), and
// atomically persists p to its canonical path under ProfilesDir.
func (s *Store) SaveOsProfile(p OsProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, exists := s.osByID[p.OsID()]; !exists {
		if err := s.InsertOsProfile(p); err != nil {
			return err
		}
		s.sortOsProfiles()
	}
	path := filepath.Join(s.ProfilesDir, OsProfileFileName(p))
	content := writeProfileFile(osProfileToFields(p))
	if err := s.Runner.MkdirAll(s.ProfilesDir, 0755, "ensure profiles directory"); err != nil {
		return bmerr.Wrap(bmerr.KindIO, "creating profiles directory", err)
	}
	if err := s.Runner.WriteFileAtomic(path, content, 0644, "write os profile"); err != nil {
		return bmerr.Wrap(bmerr.KindIO, "writing os profile", err)
	}
	return nil
}

// SaveHostProfile atomically persists h to its canonical path under
// HostsDir. boundShortName is the bound OsProfile's short name, used in the
// filename.
func (s *Store) SaveHostProfile(h HostProfile, boundShortName string) error {
	if _, exists := s.hostByID[h.HostID()]; !exists {
		if err := s.InsertHostProfile(h); err != nil {
			return err
		}
	}
	path := filepath.Join(s.HostsDir, HostProfileFileName(h, boundShortName))
	content := writeProfileFile(hostProfileToFields(h))
	if err := s.Runner.MkdirAll(s.HostsDir, 0755, "ensure hosts directory"); err != nil {
		return bmerr.Wrap(bmerr.KindIO, "creating hosts directory", err)
	}
	if err := s.Runner.WriteFileAtomic(path, content, 0644, "write host profile"); err != nil {
		return bmerr.Wrap(bmerr.KindIO, "writing host profile", err)
	}
	return nil
}

// InsertOsProfile adds p to the collection, rejecting a duplicate identity
// (spec.md §7 ProfileError, §8 invariant 4).
func (s *Store) InsertOsProfile(p OsProfile) error {
	id := p.OsID()
	if _, exists := s.osByID[id]; exists {
		return bmerr.Newf(bmerr.KindProfile, "duplicate os profile identity %s", id)
	}
	s.osByID[id] = len(s.osProfiles)
	s.osProfiles = append(s.osProfiles, p)
	return nil
}

// InsertHostProfile adds h to the collection, rejecting a duplicate identity.
func (s *Store) InsertHostProfile(h HostProfile) error {
	id := h.HostID()
	if _, exists := s.hostByID[id]; exists {
		return bmerr.Newf(bmerr.KindProfile, "duplicate host profile identity %s", id)
	}
	s.hostByID[id] = len(s.hostProfiles)
	s.hostProfiles = append(s.hostProfiles, h)
	return nil
}

// sortOsProfiles orders profiles by (os_name, os_version) for matching,
// preserving the null profile at index 0.
func (s *Store) sortOsProfiles() {
	if len(s.osProfiles) <= 1 {
		return
	}
	rest := s.osProfiles[1:]
	sort.SliceStable(rest, func(i, j int) bool {
		if rest[i].Name != rest[j].Name {
			return rest[i].Name < rest[j].Name
		}
		return rest[i].Version < rest[j].Version
	})
	s.osProfiles = append(s.osProfiles[:1], rest...)
	s.osByID = map[string]int{}
	for i, p := range s.osProfiles {
		s.osByID[p.OsID()] = i
	}
}

// FindOsProfile returns the OsProfile with the given os_id.
func (s *Store) FindOsProfile(osID string) (OsProfile, bool) {
	idx, ok := s.osByID[osID]
	if !ok {
		return OsProfile{}, false
	}
	return s.osProfiles[idx], true
}

// FindHostProfile returns the HostProfile with the given host_id.
func (s *Store) FindHostProfile(hostID string) (HostProfile, bool) {
	idx, ok := s.hostByID[hostID]
	if !ok {
		return HostProfile{}, false
	}
	return s.hostProfiles[idx], true
}

// HostProfileForMachine returns the first host profile bound to machineID,
// if any.
func (s *Store) HostProfileForMachine(machineID string) (HostProfile, bool) {
	for _, h := range s.hostProfiles {
		if h.MachineID == machineID {
			return h, true
		}
	}
	return HostProfile{}, false
}

// OsProfiles returns every loaded OsProfile, including the null profile.
func (s *Store) OsProfiles() []OsProfile { return append([]OsProfile(nil), s.osProfiles...) }

// HostProfiles returns every loaded HostProfile.
func (s *Store) HostProfiles() []HostProfile { return append([]HostProfile(nil), s.hostProfiles...) }

// MinUniqueWidth computes the smallest unique display-prefix width over the
// store's os_ids, delegating to the selector package's shared helper.
func (s *Store) MinUniqueWidth() int {
	ids := make([]string, 0, len(s.osProfiles))
	for _, p := range s.osProfiles {
		ids = append(ids, p.OsID())
	}
	return selector.MinUniqueWidth(ids)
}

// Resolve implements the §4.3 OS-matching order for an entry parsed from
// disk with no bound profile: (1) the #OsIdentifier comment, (2) the first
// profile whose uname_pattern matches version, (3) the first profile whose
// rendered options template structurally matches actualOptions, (4) the
// null profile.
func (s *Store) Resolve(version, osIdentifierComment, actualOptions string) Effective {
	if osIdentifierComment != "" {
		if p, ok := s.FindOsProfile(osIdentifierComment); ok {
			return Effective{Os: p}
		}
	}

	for _, p := range s.osProfiles[1:] {
		if p.UnamePattern == "" {
			continue
		}
		re, err := regexp.Compile(p.UnamePattern)
		if err != nil {
			continue
		}
		if re.MatchString(version) {
			return Effective{Os: p}
		}
	}

	for _, p := range s.osProfiles[1:] {
		if p.Options == "" {
			continue
		}
		if compose.StructuralMatch(p.Options, actualOptions) {
			return Effective{Os: p}
		}
	}

	return Effective{Os: NullOsProfile()}
}

// ResolveForEntry adapts Resolve to the entry package's locally-declared
// ProfileResolver interface (a compose.TemplateSource plus an os_id), and
// applies the host wrap when machineID has a bound host profile.
func (s *Store) ResolveForEntry(machineID, version, osIdentifierComment, actualOptions string) (compose.TemplateSource, string, []string, []string) {
	eff := s.Resolve(version, osIdentifierComment, actualOptions)
	if h, ok := s.HostProfileForMachine(machineID); ok {
		host := h
		eff.Host = &host
		return eff, eff.OsID(), host.AddOpts, host.DelOpts
	}
	return eff, eff.OsID(), nil, nil
}
