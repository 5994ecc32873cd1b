package bmerr

import (
	"os"
	"strings"
)

// DebugMask gates whether a store's load loop aborts on the first bad item
// (fail-fast) or logs a warning and skips it, matching the original boom
// tool's BOOM_DEBUG-style knob as described in spec.md's "Failure policy".
type DebugMask uint

const (
	DebugProfile DebugMask = 1 << iota
	DebugEntry
	DebugCache
)

// Has reports whether every bit in want is set in m.
func (m DebugMask) Has(want DebugMask) bool {
	return m&want == want
}

// MaskFromEnv parses the BOOM_DEBUG environment variable into a DebugMask.
// Accepted values are a comma-separated list of "profile", "entry", "cache",
// or "all"; unrecognised tokens are ignored. An unset or empty variable
// yields a zero mask (load-and-skip everywhere, the spec default).
func MaskFromEnv() DebugMask {
	return ParseMask(os.Getenv("BOOM_DEBUG"))
}

// ParseMask parses a comma-separated debug token list into a DebugMask.
func ParseMask(s string) DebugMask {
	var m DebugMask
	for _, tok := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(tok)) {
		case "profile":
			m |= DebugProfile
		case "entry":
			m |= DebugEntry
		case "cache":
			m |= DebugCache
		case "all":
			m |= DebugProfile | DebugEntry | DebugCache
		}
	}
	return m
}
