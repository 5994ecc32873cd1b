package compose

import (
	"regexp"
	"strings"

	"github.com/snapshotmanager/boom-go/internal/platform"
)

// optionalDelKeys is the whitelist of template-supplied keys that never
// count toward del_opts, because their presence in the rendered options is
// itself conditional on a guard predicate (spec.md §4.4.3 step 4).
var optionalDelKeys = map[string]bool{
	"rootflags":                 true,
	"rd.lvm.lv":                 true,
	"subvol":                    true,
	"subvolid":                  true,
	"stratis.rootfs.pool_uuid": true,
}

// subvolume sub-patterns recognised inside a rendered root_opts blob.
var (
	reLvmRootLV    = regexp.MustCompile(`^rd\.lvm\.lv=(.+)$`)
	reBtrfsSubvol  = regexp.MustCompile(`^rootflags=subvol=(.+)$`)
	reBtrfsSubvolID = regexp.MustCompile(`^rootflags=subvolid=(.+)$`)
	reStratisUUID  = regexp.MustCompile(`^stratis\.rootfs\.pool_uuid=(.+)$`)
)

// ReverseMatched is the result of recovering a BootParams-shaped set of
// values from a rendered options string plus a profile's options template.
type ReverseMatched struct {
	Version         string
	RootDevice      string
	LvmRootLV       string
	BtrfsSubvolPath string
	BtrfsSubvolID   string
	StratisPoolUUID string
	AddOpts         []string
	DelOpts         []string
}

// wordPattern is one compiled template word: a whole-word regex, the name
// of the %{key} it captures (if any), and whether it is the %{root_opts}
// placeholder (handled out of band).
type wordPattern struct {
	re       *regexp.Regexp
	captures string
	literal  string
	isRootOpts bool
}

// compileWordPatterns turns a template's whitespace-separated tokens into
// per-word regexes, substituting a named capture group for each %{key}.
func compileWordPatterns(template string) []wordPattern {
	var patterns []wordPattern
	for _, word := range strings.Fields(template) {
		if word == "%{root_opts}" {
			patterns = append(patterns, wordPattern{isRootOpts: true, literal: word})
			continue
		}
		var sb strings.Builder
		sb.WriteByte('^')
		name := ""
		rest := word
		for {
			idx := strings.Index(rest, "%{")
			if idx < 0 {
				sb.WriteString(regexp.QuoteMeta(rest))
				break
			}
			sb.WriteString(regexp.QuoteMeta(rest[:idx]))
			rest = rest[idx+2:]
			end := strings.IndexByte(rest, '}')
			if end < 0 {
				sb.WriteString(regexp.QuoteMeta("%{" + rest))
				break
			}
			key := rest[:end]
			name = key
			sb.WriteString("(?P<" + sanitizeGroupName(key) + ">.+)")
			rest = rest[end+1:]
		}
		sb.WriteByte('$')
		patterns = append(patterns, wordPattern{
			re:       regexp.MustCompile(sb.String()),
			captures: name,
			literal:  word,
		})
	}
	return patterns
}

// sanitizeGroupName makes a %{key} name safe as a Go regexp named group
// (Go group names must be identifiers; our keys are already snake_case and
// therefore already safe, but this guards against stray characters).
func sanitizeGroupName(key string) string {
	return strings.ReplaceAll(key, "-", "_")
}

// ReverseMatch recovers a BootParams-shaped value set from the rendered
// options string of an entry and the options template of the profile it
// was matched to, per spec.md §4.4.3.
func ReverseMatch(optionsTemplate, rootOptsLVM2, rootOptsBtrfs, actualOptions string, probe platform.Probe) ReverseMatched {
	patterns := compileWordPatterns(optionsTemplate)
	words := strings.Fields(actualOptions)
	consumed := make([]bool, len(words))

	result := ReverseMatched{}

	for _, p := range patterns {
		if p.isRootOpts {
			consumeRootOpts(words, consumed, &result, probe)
			continue
		}
		matched := false
		for i, w := range words {
			if consumed[i] {
				continue
			}
			m := p.re.FindStringSubmatch(w)
			if m == nil {
				continue
			}
			consumed[i] = true
			matched = true
			if p.captures != "" && len(m) > 1 {
				assignCapture(&result, p.captures, m[1], probe)
			}
			break
		}
		if !matched && p.captures == "" {
			key := delSpecKey(p.literal)
			if !optionalDelKeys[key] {
				result.DelOpts = append(result.DelOpts, p.literal)
			}
		}
	}

	for i, w := range words {
		if !consumed[i] {
			result.AddOpts = append(result.AddOpts, w)
		}
	}

	return result
}

// consumeRootOpts scans every unconsumed word for one of the recognised
// root_opts sub-patterns (rd.lvm.lv=, rootflags=subvol(id)=,
// stratis.rootfs.pool_uuid=) and folds any matches into result, marking
// them consumed so they are excluded from add_opts.
func consumeRootOpts(words []string, consumed []bool, result *ReverseMatched, probe platform.Probe) {
	for i, w := range words {
		if consumed[i] {
			continue
		}
		switch {
		case reLvmRootLV.MatchString(w):
			lv := reLvmRootLV.FindStringSubmatch(w)[1]
			if lvmRootLVConsistent(lv, result.RootDevice, probe) {
				result.LvmRootLV = lv
				consumed[i] = true
			}
		case reBtrfsSubvolID.MatchString(w):
			result.BtrfsSubvolID = reBtrfsSubvolID.FindStringSubmatch(w)[1]
			consumed[i] = true
		case reBtrfsSubvol.MatchString(w):
			result.BtrfsSubvolPath = reBtrfsSubvol.FindStringSubmatch(w)[1]
			consumed[i] = true
		case reStratisUUID.MatchString(w):
			result.StratisPoolUUID = reStratisUUID.FindStringSubmatch(w)[1]
			consumed[i] = true
		}
	}
}

// lvmRootLVConsistent applies the "does this vg/lv correspond to this
// /dev/... path" rejection rule. With no probe available, falls back to
// the simple "/dev/<lv>" convention.
func lvmRootLVConsistent(lv, rootDevice string, probe platform.Probe) bool {
	if rootDevice == "" {
		return true
	}
	if probe != nil {
		if resolved := probe.LVOfPath(rootDevice); resolved != "" {
			return resolved == lv
		}
	}
	return rootDevice == "/dev/"+lv
}

// StructuralMatch reports whether every literal, non-guarded word of
// template can be found among actualOptions' words (in any order) — the
// "rendered options template structurally matches the entry's options"
// probe spec.md §4.3 step 3 uses to re-bind a profile to an entry loaded
// from disk. The %{root_opts} token is skipped: its presence in rendered
// output is conditional on guard predicates, so its absence must not
// disqualify an otherwise-matching profile.
func StructuralMatch(template, actualOptions string) bool {
	patterns := compileWordPatterns(template)
	words := strings.Fields(actualOptions)
	consumed := make([]bool, len(words))

	for _, p := range patterns {
		if p.isRootOpts {
			continue
		}
		matched := false
		for i, w := range words {
			if consumed[i] {
				continue
			}
			if p.re.MatchString(w) {
				consumed[i] = true
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func assignCapture(result *ReverseMatched, key, value string, probe platform.Probe) {
	switch Key(key) {
	case KeyVersion:
		result.Version = value
	case KeyRootDevice:
		result.RootDevice = value
	case KeyLvmRootLV:
		if lvmRootLVConsistent(value, result.RootDevice, probe) {
			result.LvmRootLV = value
		}
	case KeyStratisPoolUUID:
		result.StratisPoolUUID = value
	}
}
