package profile

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/snapshotmanager/boom-go/internal/bmerr"
	"github.com/snapshotmanager/boom-go/internal/kv"
)

// parseProfileFile parses the "BOOM_<KEY>="value"" line format shared by
// .profile and .host files into a plain key→value map, reusing the C1
// key-value parser for each line.
func parseProfileFile(r io.Reader) (map[string]string, error) {
	fields := map[string]string{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if kv.IsBlank(line) {
			continue
		}
		pair, err := kv.ParseLine(line, false)
		if err != nil {
			return nil, bmerr.Wrapf(bmerr.KindParse, err, "line %d", lineNo)
		}
		name := strings.TrimPrefix(pair.Name, "BOOM_")
		fields[name] = pair.Value
	}
	if err := scanner.Err(); err != nil {
		return nil, bmerr.Wrap(bmerr.KindIO, "reading profile file", err)
	}
	return fields, nil
}

// writeProfileFile renders fields as "BOOM_<KEY>="value"" lines in a stable
// key order, so repeated writes of unchanged data are byte-identical.
func writeProfileFile(fields map[string]string) []byte {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := fields[k]
		if v == "" {
			continue
		}
		fmt.Fprintf(&b, "BOOM_%s=%q\n", k, v)
	}
	return []byte(b.String())
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Fields(s)
	return parts
}

func joinList(items []string) string {
	return strings.Join(items, " ")
}

func osProfileFromFields(f map[string]string) OsProfile {
	p := OsProfile{
		Name:             f["OS_NAME"],
		ShortName:        f["OS_SHORT_NAME"],
		Version:          f["OS_VERSION"],
		VersionID:        f["OS_VERSION_ID"],
		UnamePattern:     f["UNAME_PATTERN"],
		KernelPattern:    f["KERNEL_PATTERN"],
		InitramfsPattern: f["INITRAMFS_PATTERN"],
		RootOptsLVM2:     f["ROOT_OPTS_LVM2"],
		RootOptsBtrfs:    f["ROOT_OPTS_BTRFS"],
		Options:          f["OPTIONS"],
		Title:            f["TITLE"],
		OptionalKeys:     map[OptionalKey]bool{},
	}
	for _, k := range splitList(f["OPTIONAL_KEYS"]) {
		p.OptionalKeys[OptionalKey(k)] = true
	}
	return p
}

func osProfileToFields(p OsProfile) map[string]string {
	var optKeys []string
	for k := range p.OptionalKeys {
		optKeys = append(optKeys, string(k))
	}
	sort.Strings(optKeys)
	return map[string]string{
		"OS_NAME":           p.Name,
		"OS_SHORT_NAME":     p.ShortName,
		"OS_VERSION":        p.Version,
		"OS_VERSION_ID":     p.VersionID,
		"UNAME_PATTERN":     p.UnamePattern,
		"KERNEL_PATTERN":    p.KernelPattern,
		"INITRAMFS_PATTERN": p.InitramfsPattern,
		"ROOT_OPTS_LVM2":    p.RootOptsLVM2,
		"ROOT_OPTS_BTRFS":   p.RootOptsBtrfs,
		"OPTIONS":           p.Options,
		"TITLE":             p.Title,
		"OPTIONAL_KEYS":     joinList(optKeys),
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func hostProfileFromFields(f map[string]string) HostProfile {
	return HostProfile{
		MachineID:        f["MACHINE_ID"],
		Label:            f["LABEL"],
		HostName:         f["HOST_NAME"],
		OsID:             f["OS_ID"],
		UnamePattern:     strPtr(f["UNAME_PATTERN"]),
		KernelPattern:    strPtr(f["KERNEL_PATTERN"]),
		InitramfsPattern: strPtr(f["INITRAMFS_PATTERN"]),
		RootOptsLVM2:     strPtr(f["ROOT_OPTS_LVM2"]),
		RootOptsBtrfs:    strPtr(f["ROOT_OPTS_BTRFS"]),
		Options:          strPtr(f["OPTIONS"]),
		Title:            strPtr(f["TITLE"]),
		AddOpts:          splitList(f["ADD_OPTS"]),
		DelOpts:          splitList(f["DEL_OPTS"]),
	}
}

func hostProfileToFields(h HostProfile) map[string]string {
	return map[string]string{
		"MACHINE_ID":        h.MachineID,
		"LABEL":             h.Label,
		"HOST_NAME":         h.HostName,
		"OS_ID":             h.OsID,
		"UNAME_PATTERN":     derefOr(h.UnamePattern),
		"KERNEL_PATTERN":    derefOr(h.KernelPattern),
		"INITRAMFS_PATTERN": derefOr(h.InitramfsPattern),
		"ROOT_OPTS_LVM2":    derefOr(h.RootOptsLVM2),
		"ROOT_OPTS_BTRFS":   derefOr(h.RootOptsBtrfs),
		"OPTIONS":           derefOr(h.Options),
		"TITLE":             derefOr(h.Title),
		"ADD_OPTS":          joinList(h.AddOpts),
		"DEL_OPTS":          joinList(h.DelOpts),
	}
}

// OsProfileFileName is "<os_id>-<short_name><version_id>.profile".
func OsProfileFileName(p OsProfile) string {
	return fmt.Sprintf("%s-%s%s.profile", p.OsID(), p.ShortName, p.VersionID)
}

// HostProfileFileName is "<host_id>-<short_name>[-<label>].host"; short_name
// is the bound OsProfile's, supplied by the caller since a HostProfile only
// stores an os_id reference.
func HostProfileFileName(h HostProfile, boundShortName string) string {
	if h.Label == "" {
		return fmt.Sprintf("%s-%s.host", h.HostID(), boundShortName)
	}
	return fmt.Sprintf("%s-%s-%s.host", h.HostID(), boundShortName, h.Label)
}
