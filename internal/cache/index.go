// Package cache implements the content-addressed boot-image cache
// (spec.md component C6): hashing, copy-in, JSON index persistence, and
// restore/purge of kernel and initramfs files under <BOOT>/boom/cache.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/snapshotmanager/boom-go/internal/bmerr"
	"github.com/snapshotmanager/boom-go/internal/runner"
)

// PathMeta is the metadata captured from a source file at insertion time,
// replayed onto a restored file (spec.md §4.6 "paths" map).
type PathMeta struct {
	Mode   uint32            `json:"mode"`
	UID    int               `json:"uid"`
	GID    int               `json:"gid"`
	Xattrs map[string]string `json:"xattrs,omitempty"`
}

// ImageMeta is the per-img_id metadata the index tracks (spec.md §4.6
// "images" map).
type ImageMeta struct {
	MTime int64 `json:"mtime"`
}

// indexFile is the on-disk JSON shape of cacheindex.json: three maps keyed
// by path and img_id respectively.
type indexFile struct {
	Index  map[string][]string  `json:"index"`
	Paths  map[string]PathMeta  `json:"paths"`
	Images map[string]ImageMeta `json:"images"`
}

func newIndexFile() indexFile {
	return indexFile{
		Index:  map[string][]string{},
		Paths:  map[string]PathMeta{},
		Images: map[string]ImageMeta{},
	}
}

// loadIndex reads and parses cacheindex.json. A missing file yields an
// empty index, not an error — an uninitialised cache is valid.
func loadIndex(path string) (indexFile, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return newIndexFile(), nil
	}
	if err != nil {
		return indexFile{}, bmerr.Wrap(bmerr.KindIO, "reading cache index", err)
	}
	var idx indexFile
	if err := json.Unmarshal(raw, &idx); err != nil {
		return indexFile{}, bmerr.Wrap(bmerr.KindCache, "parsing cache index", err)
	}
	if idx.Index == nil {
		idx.Index = map[string][]string{}
	}
	if idx.Paths == nil {
		idx.Paths = map[string]PathMeta{}
	}
	if idx.Images == nil {
		idx.Images = map[string]ImageMeta{}
	}
	return idx, nil
}

// saveIndex writes the whole index back atomically (temp file in the same
// directory, fdatasync-equivalent sync, rename, chmod — spec.md §4.6
// "Load/save").
func saveIndex(rnr runner.Runner, path string, idx indexFile) error {
	if err := rnr.MkdirAll(filepath.Dir(path), 0755, "ensure cache directory"); err != nil {
		return bmerr.Wrap(bmerr.KindIO, "creating cache directory", err)
	}
	raw, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return bmerr.Wrap(bmerr.KindCache, "encoding cache index", err)
	}
	if err := rnr.WriteFileAtomic(path, raw, 0644, "write cache index"); err != nil {
		return bmerr.Wrap(bmerr.KindIO, "writing cache index", err)
	}
	return nil
}

// imageIDsForPath returns the img_ids indexed for path, newest first,
// defensively copied.
func (idx indexFile) imageIDsForPath(path string) []string {
	return append([]string(nil), idx.Index[path]...)
}

// paths returns every indexed path, sorted for stable iteration.
func (idx indexFile) paths() []string {
	out := make([]string, 0, len(idx.Index))
	for p := range idx.Index {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
