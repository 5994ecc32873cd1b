package compose

import (
	"regexp"
	"strings"

	"github.com/snapshotmanager/boom-go/internal/platform"
)

// Key names a recognised %{key} substitution token (spec.md §4.4.1).
type Key string

const (
	KeyVersion         Key = "version"
	KeyLvmRootLV       Key = "lvm_root_lv"
	KeyLvmRootOpts     Key = "lvm_root_opts"
	KeyBtrfsRootOpts   Key = "btrfs_root_opts"
	KeyBtrfsSubvolume  Key = "btrfs_subvolume"
	KeyStratisPoolUUID Key = "stratis_pool_uuid"
	KeyStratisRootOpts Key = "stratis_root_opts"
	KeyRootDevice      Key = "root_device"
	KeyRootOpts        Key = "root_opts"
	KeyKernel          Key = "kernel"
	KeyInitramfs       Key = "initramfs"
	KeyOsName          Key = "os_name"
	KeyOsShortName     Key = "os_short_name"
	KeyOsVersion       Key = "os_version"
	KeyOsVersionID     Key = "os_version_id"
)

var keyToken = regexp.MustCompile(`%\{(\w+)\}`)

// maxExpandPasses bounds recursive substitution (e.g. root_opts_lvm2 itself
// referencing %{lvm_root_lv}); the invariant that a pattern must not
// self-reference its own key rules out true infinite recursion, this is
// just a backstop.
const maxExpandPasses = 6

// TemplateSource is the read side of a profile (optionally wrapped by a
// host profile overlay) that the composition engine substitutes from.
// profile.Effective implements this; compose never imports profile, so the
// two packages stay acyclic.
type TemplateSource interface {
	UnamePattern() string
	KernelPattern() string
	InitramfsPattern() string
	RootOptsLVM2() string
	RootOptsBtrfs() string
	Options() string
	Title() string
	OsName() string
	OsShortName() string
	OsVersion() string
	OsVersionID() string
}

// Rendered holds every field the composition engine produces for a
// BootEntry from a TemplateSource + BootParams pair.
type Rendered struct {
	Title      string
	Options    string
	Linux      string
	Initramfs  string
	RootDevice string
	RootOpts   string
}

// resolver is the lazily-evaluated value for one substitution key: it
// returns (value, true) when its source is defined and its guard predicate
// holds, or ("", false) to leave the token unsubstituted.
type resolver func() (string, bool)

// Engine renders BootEntry templates from a profile and a concrete set of
// boot parameters, consulting a platform.Probe for the collaborators
// spec.md §6 names (LVM, Stratis, GRUB2 environment).
type Engine struct {
	Probe platform.Probe
}

// NewEngine constructs an Engine. probe may be nil, in which case every
// probe-dependent substitution degrades to unsubstituted, matching spec.md
// §6's "core must degrade gracefully when any collaborator is unavailable".
func NewEngine(probe platform.Probe) *Engine {
	return &Engine{Probe: probe}
}

// Render produces the final entry fields for src + params.
func (e *Engine) Render(src TemplateSource, params *BootParams) Rendered {
	values := e.resolvers(src, params)

	rootOpts := e.rootOpts(src, params, values)
	values[KeyRootOpts] = func() (string, bool) { return rootOpts, true }

	options := strings.Join(strings.Fields(expand(src.Options(), values)), " ")
	options = appendAddOpts(options, params.AddOpts())
	options = removeDelOpts(options, params.DelOpts())

	return Rendered{
		Title:      expand(src.Title(), values),
		Options:    options,
		Linux:      expand(src.KernelPattern(), values),
		Initramfs:  expand(src.InitramfsPattern(), values),
		RootDevice: params.RootDevice(),
		RootOpts:   rootOpts,
	}
}

func (e *Engine) resolvers(src TemplateSource, params *BootParams) map[Key]resolver {
	values := map[Key]resolver{
		KeyVersion: func() (string, bool) {
			if params.Version() != "" {
				return params.Version(), true
			}
			return "", false
		},
		KeyRootDevice: func() (string, bool) {
			if params.RootDevice() != "" {
				return params.RootDevice(), true
			}
			return "", false
		},
		KeyLvmRootLV: func() (string, bool) {
			if params.HasLvm() {
				return params.LvmRootLV(), true
			}
			return "", false
		},
		KeyLvmRootOpts: func() (string, bool) {
			if !params.HasLvm() {
				return "", false
			}
			return expandOnce(src.RootOptsLVM2(), map[Key]resolver{
				KeyLvmRootLV: func() (string, bool) { return params.LvmRootLV(), true },
			}), true
		},
		KeyBtrfsSubvolume: func() (string, bool) {
			return btrfsSubvolume(params)
		},
		KeyBtrfsRootOpts: func() (string, bool) {
			if !params.HasBtrfs() {
				return "", false
			}
			subvol, _ := btrfsSubvolume(params)
			return expandOnce(src.RootOptsBtrfs(), map[Key]resolver{
				KeyBtrfsSubvolume: func() (string, bool) { return subvol, true },
			}), true
		},
		KeyStratisPoolUUID: func() (string, bool) {
			if uuid := e.stratisUUID(params); uuid != "" {
				return uuid, true
			}
			return "", false
		},
		KeyStratisRootOpts: func() (string, bool) {
			uuid := e.stratisUUID(params)
			if uuid == "" {
				return "", false
			}
			return "stratis.rootfs.pool_uuid=" + uuid, true
		},
		KeyKernel: func() (string, bool) {
			return expand(src.KernelPattern(), nil), true
		},
		KeyInitramfs: func() (string, bool) {
			return expand(src.InitramfsPattern(), nil), true
		},
		KeyOsName:      func() (string, bool) { return presentOrAbsent(src.OsName()) },
		KeyOsShortName: func() (string, bool) { return presentOrAbsent(src.OsShortName()) },
		KeyOsVersion:   func() (string, bool) { return presentOrAbsent(src.OsVersion()) },
		KeyOsVersionID: func() (string, bool) { return presentOrAbsent(src.OsVersionID()) },
	}
	return values
}

// btrfsSubvolume derives the %{btrfs_subvolume} token from params, preferring
// subvolid over subvol path when both are somehow set (mutually exclusive by
// construction, see BootParams.SetBtrfsSubvolPath/SetBtrfsSubvolID).
func btrfsSubvolume(params *BootParams) (string, bool) {
	switch {
	case params.BtrfsSubvolID() != "":
		return "subvolid=" + params.BtrfsSubvolID(), true
	case params.BtrfsSubvolPath() != "":
		return "subvol=" + params.BtrfsSubvolPath(), true
	}
	return "", false
}

func presentOrAbsent(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	return s, true
}

func (e *Engine) stratisUUID(params *BootParams) string {
	if params.StratisPoolUUID() != "" {
		return params.StratisPoolUUID()
	}
	if e.Probe == nil {
		return ""
	}
	if !strings.HasPrefix(params.RootDevice(), "/dev/stratis/") {
		return ""
	}
	uuid, err := e.Probe.StratisPoolUUIDOfPath(params.RootDevice())
	if err != nil {
		return ""
	}
	return uuid
}

// rootOpts assembles the concatenation of LVM/BTRFS/Stratis sub-expansions,
// in that order, per spec.md §4.4.1.
func (e *Engine) rootOpts(src TemplateSource, params *BootParams, values map[Key]resolver) string {
	var parts []string
	if params.HasLvm() {
		if v, ok := values[KeyLvmRootOpts](); ok && v != "" {
			parts = append(parts, v)
		}
	}
	if params.HasBtrfs() {
		if v, ok := values[KeyBtrfsRootOpts](); ok && v != "" {
			parts = append(parts, v)
		}
	}
	if e.stratisUUID(params) != "" {
		if v, ok := values[KeyStratisRootOpts](); ok && v != "" {
			parts = append(parts, v)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// expand runs the substitution dispatch table over tmpl until a fixed point
// or maxExpandPasses is reached. A token whose key has no resolver, or
// whose resolver declines, is left as literal text.
func expand(tmpl string, values map[Key]resolver) string {
	for i := 0; i < maxExpandPasses; i++ {
		changed := false
		tmpl = keyToken.ReplaceAllStringFunc(tmpl, func(m string) string {
			sub := keyToken.FindStringSubmatch(m)
			key := Key(sub[1])
			if fn, ok := values[key]; ok {
				if v, present := fn(); present {
					changed = true
					return v
				}
			}
			return m
		})
		if !changed {
			break
		}
	}
	return tmpl
}

// expandOnce runs a single substitution pass, used for the small
// self-contained root_opts_lvm2/root_opts_btrfs sub-templates.
func expandOnce(tmpl string, values map[Key]resolver) string {
	return keyToken.ReplaceAllStringFunc(tmpl, func(m string) string {
		sub := keyToken.FindStringSubmatch(m)
		key := Key(sub[1])
		if fn, ok := values[key]; ok {
			if v, present := fn(); present {
				return v
			}
		}
		return m
	})
}

// appendAddOpts space-joins extra option tokens onto the rendered options
// string.
func appendAddOpts(options string, addOpts []string) string {
	if len(addOpts) == 0 {
		return options
	}
	joined := strings.Join(addOpts, " ")
	if options == "" {
		return joined
	}
	return options + " " + joined
}

// removeDelOpts removes tokens matching any del-spec from options. A
// del-spec of the form "name" matches a bare flag or "name=...", "name="
// matches any value for name (wildcard), and "name=value" matches exactly.
func removeDelOpts(options string, delOpts []string) string {
	if len(delOpts) == 0 {
		return options
	}
	words := strings.Fields(options)
	var kept []string
	for _, w := range words {
		if matchesAnyDelSpec(w, delOpts) {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func matchesAnyDelSpec(word string, delOpts []string) bool {
	for _, spec := range delOpts {
		if delSpecMatches(spec, word) {
			return true
		}
	}
	return false
}

func delSpecMatches(spec, word string) bool {
	eq := strings.IndexByte(spec, '=')
	switch {
	case eq < 0:
		// bare "name": match the flag itself or "name=..."
		return word == spec || strings.HasPrefix(word, spec+"=")
	case eq == len(spec)-1:
		// "name=" wildcard: match any value for name
		return strings.HasPrefix(word, spec)
	default:
		// "name=value" exact
		return word == spec
	}
}

// delSpecKey returns the bare parameter name a del-spec targets, used by
// reverse matching to decide which template-supplied words to ignore when
// recovering del_opts (spec.md §4.4.3 step 4's optional-key exclusion list).
func delSpecKey(word string) string {
	if eq := strings.IndexByte(word, '='); eq >= 0 {
		return word[:eq]
	}
	return word
}
