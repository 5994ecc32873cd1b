package entry

import (
	"strings"

	"github.com/snapshotmanager/boom-go/internal/kv"
)

// blsLine renders one "key value" BLS line, or "" if value is empty.
func blsLine(key, value string) string {
	if value == "" {
		return ""
	}
	return key + " " + value
}

// toBLSLines renders e's fields as BLS key-value lines in a fixed key
// order (the same order compose.CanonicalText uses),
// honouring the suppress-machine-id flag (spec.md §3).
func (e *BootEntry) toBLSLines() []string {
	var lines []string
	add := func(key, value string) {
		if l := blsLine(key, value); l != "" {
			lines = append(lines, l)
		}
	}

	add("title", e.Title)
	if !e.SuppressMachineID {
		add("machine-id", e.MachineID)
	}
	add("version", e.Version)
	add("linux", e.Linux)
	add("efi", e.EFI)
	add("initrd", e.Initrd)
	add("options", e.Options)
	add("devicetree", e.DeviceTree)
	add("architecture", e.Architecture)
	add("id", e.GrubID)
	add("grub_users", e.GrubUsers)
	add("grub_arg", e.GrubArg)
	add("grub_class", e.GrubClass)

	return lines
}

// osIdentifierComment is the "#OsIdentifier: <os_id>" line re-emitted on
// write when a profile is bound (spec.md §4.5 write algorithm).
func (e *BootEntry) osIdentifierComment() string {
	if e.OsID == "" {
		return ""
	}
	return "#OsIdentifier: " + e.OsID
}

// Render produces the full file content for e: the optional #OsIdentifier
// comment, followed by the canonical BLS lines, LF-terminated.
func (e *BootEntry) Render() string {
	var b strings.Builder
	if c := e.osIdentifierComment(); c != "" {
		b.WriteString(c)
		b.WriteByte('\n')
	}
	for _, line := range e.toBLSLines() {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// parsedEntry is the raw result of scanning one BLS file, before profile
// re-binding and BootParams recovery.
type parsedEntry struct {
	fields    map[string]string
	osID      string
	hasKeyMID bool
}

// parseBLSFile scans lines of a BLS entry file: comment lines accumulate
// until the next key, with a leading "#OsIdentifier: <id>" comment bound
// to the entry's profile reference (spec.md §4.5 load steps 3-4).
func parseBLSFile(lines []string) (parsedEntry, error) {
	p := parsedEntry{fields: map[string]string{}}
	for _, line := range lines {
		if kv.IsBlank(line) {
			trimmed := strings.TrimSpace(line)
			if id, ok := strings.CutPrefix(trimmed, "#OsIdentifier:"); ok {
				p.osID = strings.TrimSpace(id)
			}
			continue
		}
		pair, err := kv.ParseLine(line, false)
		if err != nil {
			return parsedEntry{}, err
		}
		p.fields[pair.Name] = pair.Value
		if pair.Name == "machine-id" {
			p.hasKeyMID = true
		}
	}
	return p, nil
}

func fromParsed(p parsedEntry) *BootEntry {
	e := &BootEntry{
		Title:        p.fields["title"],
		MachineID:    p.fields["machine-id"],
		Version:      p.fields["version"],
		Linux:        p.fields["linux"],
		Initrd:       p.fields["initrd"],
		EFI:          p.fields["efi"],
		Options:      p.fields["options"],
		DeviceTree:   p.fields["devicetree"],
		Architecture: p.fields["architecture"],
		GrubID:       p.fields["id"],
		GrubUsers:    p.fields["grub_users"],
		GrubArg:      p.fields["grub_arg"],
		GrubClass:    p.fields["grub_class"],
		OsID:         p.osID,
	}
	return e
}
