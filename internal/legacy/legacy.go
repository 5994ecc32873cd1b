// Package legacy regenerates a marker-delimited block of rendered boot
// entries inside an otherwise foreign configuration file (spec.md
// component C7), the way a non-BLS bootloader config would carry a
// generated section alongside hand-written content.
package legacy

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/snapshotmanager/boom-go/internal/bmerr"
	"github.com/snapshotmanager/boom-go/internal/runner"
)

// Entry is one boot entry's contribution to a legacy config's fenced
// section: a rendered block plus the (version, title) stable sort key
// spec.md §4.7 requires.
type Entry struct {
	Version string
	Title   string
	Block   string
}

func beginMarker(name string) string { return fmt.Sprintf("#--- BOOM_%s_BEGIN ---", name) }
func endMarker(name string) string   { return fmt.Sprintf("#--- BOOM_%s_END ---", name) }

// sortEntries returns entries ordered by (version, title), stable for
// equal keys (grounded on refind/config.go's "keep entries in original
// order for consistency" comment, generalized to an explicit sort key
// since spec.md names one).
func sortEntries(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Version != out[j].Version {
			return out[i].Version < out[j].Version
		}
		return out[i].Title < out[j].Title
	})
	return out
}

// fenceSpan locates the begin/end marker lines in lines, erroring on the
// two fatal shapes spec.md §4.7 names: a duplicate begin or end, or a begin
// with no matching end by EOF.
func fenceSpan(lines []string, name string) (beginIdx, endIdx int, found bool, err error) {
	begin, end := beginMarker(name), endMarker(name)
	beginIdx, endIdx = -1, -1

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch trimmed {
		case begin:
			if beginIdx != -1 {
				return 0, 0, false, bmerr.Newf(bmerr.KindLegacyFormat, "duplicate begin marker for %q", name)
			}
			beginIdx = i
		case end:
			if beginIdx == -1 {
				return 0, 0, false, bmerr.Newf(bmerr.KindLegacyFormat, "end marker for %q with no matching begin", name)
			}
			if endIdx != -1 {
				return 0, 0, false, bmerr.Newf(bmerr.KindLegacyFormat, "duplicate end marker for %q", name)
			}
			endIdx = i
		}
	}
	if beginIdx != -1 && endIdx == -1 {
		return 0, 0, false, bmerr.Newf(bmerr.KindLegacyFormat, "begin marker for %q with no matching end (reached EOF inside fence)", name)
	}
	if beginIdx == -1 {
		return 0, 0, false, nil
	}
	return beginIdx, endIdx, true, nil
}

func readLines(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, bmerr.Wrap(bmerr.KindIO, "reading legacy target file", err)
	}
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, bmerr.Wrap(bmerr.KindIO, "scanning legacy target file", err)
	}
	return lines, nil
}

// Write regenerates the fenced "BOOM_<name>" section of path with one
// rendered block per entry, in (version, title) order. Everything outside
// the fence is copied verbatim; if no fence exists yet, one is appended
// (spec.md §4.7 "Algorithm").
func Write(rnr runner.Runner, path, name string, entries []Entry) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}

	beginIdx, endIdx, found, err := fenceSpan(lines, name)
	if err != nil {
		return err
	}

	ordered := sortEntries(entries)
	var block []string
	block = append(block, beginMarker(name))
	for _, e := range ordered {
		block = append(block, strings.Split(e.Block, "\n")...)
	}
	block = append(block, endMarker(name))

	var out []string
	if found {
		out = append(out, lines[:beginIdx]...)
		out = append(out, block...)
		out = append(out, lines[endIdx+1:]...)
	} else {
		out = append(out, lines...)
		if len(out) > 0 && out[len(out)-1] != "" {
			out = append(out, "")
		}
		out = append(out, block...)
	}

	content := strings.Join(out, "\n") + "\n"
	if err := rnr.WriteFileAtomic(path, []byte(content), 0644, "regenerate legacy fence"); err != nil {
		return bmerr.Wrap(bmerr.KindIO, "writing legacy target file", err)
	}
	log.Debug().Str("path", path).Str("name", name).Int("entries", len(entries)).Msg("regenerated legacy fence")
	return nil
}

// Clear removes the fenced "BOOM_<name>" section, markers included. Absence
// of both markers is a no-op; presence of only one is a fatal format error
// (spec.md §4.7 "Clear").
func Clear(rnr runner.Runner, path, name string) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}

	beginIdx, endIdx, found, err := fenceSpan(lines, name)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	out := append([]string(nil), lines[:beginIdx]...)
	out = append(out, lines[endIdx+1:]...)
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	content := ""
	if len(out) > 0 {
		content = strings.Join(out, "\n") + "\n"
	}
	if err := rnr.WriteFileAtomic(path, []byte(content), 0644, "clear legacy fence"); err != nil {
		return bmerr.Wrap(bmerr.KindIO, "writing legacy target file", err)
	}
	return nil
}
