// Package kv parses the single-line "name=value" / "name value" format
// shared by BLS entry snippets and profile files (.profile and .host).
package kv

import (
	"strings"

	"github.com/snapshotmanager/boom-go/internal/bmerr"
)

// Pair is one parsed name/value line.
type Pair struct {
	Name     string
	Value    string
	HasValue bool // false for a bare name parsed with allowEmpty
}

// isNameChar reports whether r is permitted in a key name:
// [A-Za-z0-9_\-,.'"].
func isNameChar(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-' || r == ',' || r == '.' || r == '\'' || r == '"':
		return true
	}
	return false
}

// IsBlank reports whether line is blank or a comment line: empty after
// trimming, or its first non-whitespace character is '#'.
func IsBlank(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}

// ParseLine parses a single "name=value" or "name value" line. When
// allowEmpty is set, a bare name with no separator yields (name, "", false)
// instead of an error.
func ParseLine(line string, allowEmpty bool) (Pair, error) {
	raw := line
	line = strings.TrimLeft(line, " \t")

	i := 0
	for i < len(line) && isNameChar(rune(line[i])) {
		i++
	}
	if i == 0 {
		return Pair{}, bmerr.Newf(bmerr.KindParse, "no valid key name in line: %q", raw)
	}
	name := line[:i]

	if i == len(line) {
		if allowEmpty {
			return Pair{Name: name, HasValue: false}, nil
		}
		return Pair{}, bmerr.Newf(bmerr.KindParse, "missing separator after key %q in line: %q", name, raw)
	}

	boundary := line[i]
	rest := line[i:]

	switch {
	case boundary == ' ' || boundary == '\t':
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			if allowEmpty {
				return Pair{Name: name, HasValue: false}, nil
			}
			return Pair{}, bmerr.Newf(bmerr.KindParse, "missing value after key %q in line: %q", name, raw)
		}
	case boundary == '=':
		rest = rest[1:]
		if strings.HasPrefix(rest, "=") {
			return Pair{}, bmerr.Newf(bmerr.KindParse, "double separator '==' after key %q in line: %q", name, raw)
		}
	default:
		return Pair{}, bmerr.Newf(bmerr.KindParse, "disallowed joiner %q after key %q in line: %q", string(boundary), name, raw)
	}

	value := parseValue(rest)
	return Pair{Name: name, Value: value, HasValue: true}, nil
}

// parseValue strips a leading quote pair (removing the quotes, preserving
// embedded whitespace) or, for an unquoted value, truncates at the first
// '#' (inline comment) and trims trailing whitespace.
func parseValue(s string) string {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return ""
	}

	if s[0] == '\'' || s[0] == '"' {
		quote := s[0]
		if end := strings.IndexByte(s[1:], quote); end >= 0 {
			return s[1 : end+1]
		}
		// Unterminated quote: treat the rest of the line, minus the
		// opening quote, as the value.
		return s[1:]
	}

	if idx := strings.IndexByte(s, '#'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimRight(s, " \t")
}
