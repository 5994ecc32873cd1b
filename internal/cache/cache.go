package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/snapshotmanager/boom-go/internal/bmerr"
	"github.com/snapshotmanager/boom-go/internal/runner"
	"github.com/snapshotmanager/boom-go/internal/selector"
)

// State is the derived lifecycle state of a cached (path, img_id) pair
// (spec.md §4.6 "State computation").
type State string

const (
	StateCached   State = "CACHED"
	StateMissing  State = "MISSING"
	StateBroken   State = "BROKEN"
	StateRestored State = "RESTORED"
)

// EntryLister is the consumer-side interface Cache uses to check whether a
// path is still referenced by any live BootEntry, without importing
// internal/entry (entry.Store satisfies this structurally).
type EntryLister interface {
	ReferencesPath(path string) bool
}

// Cache owns the on-disk image cache rooted at <BOOT>/boom/cache and its
// JSON index.
type Cache struct {
	BootRoot string
	CacheDir string
	Runner   runner.Runner
	Entries  EntryLister

	idx indexFile
}

func indexPath(cacheDir string) string { return filepath.Join(cacheDir, "cacheindex.json") }

// NewCache constructs an empty Cache rooted at bootRoot; the on-disk cache
// directory is bootRoot/boom/cache per spec.md §6's filesystem layout.
func NewCache(bootRoot string, rnr runner.Runner, entries EntryLister) *Cache {
	return &Cache{
		BootRoot: bootRoot,
		CacheDir: filepath.Join(bootRoot, "boom", "cache"),
		Runner:   rnr,
		Entries:  entries,
		idx:      newIndexFile(),
	}
}

// Load reads cacheindex.json and reconciles it against the *.img files
// actually present in CacheDir, logging (not repairing) every divergence:
// an indexed img_id with no file, or a file with no index entry (spec.md
// §4.6 "Load/save").
func (c *Cache) Load() error {
	idx, err := loadIndex(indexPath(c.CacheDir))
	if err != nil {
		return err
	}
	c.idx = idx

	onDisk := map[string]bool{}
	matches, globErr := filepath.Glob(filepath.Join(c.CacheDir, "*.img"))
	if globErr == nil {
		for _, m := range matches {
			base := filepath.Base(m)
			id := base[:len(base)-len(".img")]
			onDisk[id] = true
		}
	}

	for id := range c.idx.Images {
		if !onDisk[id] {
			log.Warn().Str("img_id", id).Msg("cache index references a missing image file")
		}
	}
	for id := range onDisk {
		if _, ok := c.idx.Images[id]; !ok {
			log.Warn().Str("img_id", id).Msg("unreferenced image file present in cache directory")
		}
	}
	return nil
}

// Save persists the in-memory index atomically.
func (c *Cache) Save() error {
	return saveIndex(c.Runner, indexPath(c.CacheDir), c.idx)
}

func (c *Cache) imagePath(imgID string) string {
	return filepath.Join(c.CacheDir, imgID+".img")
}

func (c *Cache) restoredMarkerPath(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	return filepath.Join(c.BootRoot, dir, "."+base+".boomrestored")
}

func (c *Cache) bootPath(path string) string {
	return filepath.Join(c.BootRoot, path)
}

// sha1File streams path's contents through SHA-1 at a 1 MiB block size
// (spec.md §4.6 "Insert").
func sha1File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, 1<<20)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// statOwner extracts the uid/gid from a FileInfo's platform-specific Sys()
// value (grounded on distri's cmd/distri/pack.go syscall.Stat_t pattern).
func statOwner(info os.FileInfo) (uid, gid int) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	return int(st.Uid), int(st.Gid)
}

// CachePath inserts the boot-relative path's current content into the
// cache. If the exact (path, img_id) pair is already indexed, it returns
// the existing img_id without copying again (spec.md §4.6 "Insert").
func (c *Cache) CachePath(path string) (string, error) {
	src := c.bootPath(path)
	info, err := os.Stat(src)
	if err != nil {
		return "", bmerr.Wrap(bmerr.KindCache, "stat source file", err)
	}
	if !info.Mode().IsRegular() {
		return "", bmerr.Newf(bmerr.KindCache, "refusing to cache non-regular file %s", path)
	}

	opID := uuid.New().String()
	log.Debug().Str("op_id", opID).Str("path", path).Msg("caching path")

	imgID, err := sha1File(src)
	if err != nil {
		return "", bmerr.Wrap(bmerr.KindCache, "hashing source file", err)
	}

	for _, existing := range c.idx.imageIDsForPath(path) {
		if existing == imgID {
			return imgID, nil
		}
	}

	if err := c.Runner.MkdirAll(c.CacheDir, 0755, "ensure cache directory"); err != nil {
		return "", bmerr.Wrap(bmerr.KindIO, "creating cache directory", err)
	}
	if !fileExists(c.imagePath(imgID)) {
		if err := c.Runner.CopyFileAtomic(src, c.imagePath(imgID), 0644, "cache image"); err != nil {
			return "", bmerr.Wrap(bmerr.KindIO, "copying image into cache", err)
		}
	}

	uid, gid := statOwner(info)

	c.idx.Index[path] = append([]string{imgID}, c.idx.Index[path]...)
	c.idx.Paths[path] = PathMeta{Mode: uint32(info.Mode().Perm()), UID: uid, GID: gid}
	c.idx.Images[imgID] = ImageMeta{MTime: info.ModTime().Unix()}

	if err := c.Save(); err != nil {
		return "", err
	}
	return imgID, nil
}

// CacheBackup caches path's current content, then registers that same
// image under the smallest-numbered "<path>.boomN" name that doesn't yet
// exist in /boot and restores it there — a tamper-resistant sidecar copy
// of the original, independent of what later happens to path itself
// (spec.md §4.6 "Backup variant").
func (c *Cache) CacheBackup(path string) (string, error) {
	imgID, err := c.CachePath(path)
	if err != nil {
		return "", err
	}

	n := 0
	var backupPath string
	for {
		backupPath = path + ".boom" + strconv.Itoa(n)
		if !fileExists(c.bootPath(backupPath)) {
			break
		}
		n++
	}

	c.idx.Index[backupPath] = []string{imgID}
	c.idx.Paths[backupPath] = c.idx.Paths[path]
	if err := c.Save(); err != nil {
		return "", err
	}

	if err := c.Restore(backupPath); err != nil {
		return "", err
	}
	return backupPath, nil
}

// Restore copies the newest cached image for path back to /boot, restores
// its saved mode/ownership, and drops a zero-byte ".<basename>.boomrestored"
// sentinel. Preconditions: State must be MISSING or RESTORED (spec.md §4.6
// "Restore").
func (c *Cache) Restore(path string) error {
	ids := c.idx.imageIDsForPath(path)
	if len(ids) == 0 {
		return bmerr.Newf(bmerr.KindCache, "no cached image for %s", path)
	}
	imgID := ids[0]
	state := c.State(path, imgID)
	if state != StateMissing && state != StateRestored {
		return bmerr.Newf(bmerr.KindCache, "cannot restore %s from state %s", path, state)
	}

	opID := uuid.New().String()
	log.Debug().Str("op_id", opID).Str("path", path).Str("img_id", imgID).Msg("restoring path")

	dst := c.bootPath(path)
	if err := c.Runner.MkdirAll(filepath.Dir(dst), 0755, "ensure boot directory"); err != nil {
		return bmerr.Wrap(bmerr.KindIO, "creating boot directory", err)
	}
	meta := c.idx.Paths[path]
	if err := c.Runner.CopyFileAtomic(c.imagePath(imgID), dst, os.FileMode(meta.Mode), "restore image"); err != nil {
		_ = c.Runner.Remove(dst, "cleanup partial restore")
		return bmerr.Wrap(bmerr.KindIO, "restoring image from cache", err)
	}
	if err := c.Runner.Chown(dst, meta.UID, meta.GID, "restore ownership"); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to chown restored image")
	}

	marker := c.restoredMarkerPath(path)
	if err := c.Runner.WriteFileAtomic(marker, nil, 0644, "restore sentinel"); err != nil {
		return bmerr.Wrap(bmerr.KindIO, "writing restore sentinel", err)
	}
	return nil
}

// Uncache drops path from the index. Every img_id that was unique to path
// is removed from disk and from the images map. A restored sentinel and
// file in /boot are removed too. Uncache refuses a path still referenced
// by a live entry unless force is set (spec.md §4.6 "Uncache").
func (c *Cache) Uncache(path string, force bool) error {
	ids, ok := c.idx.Index[path]
	if !ok {
		return bmerr.Newf(bmerr.KindCache, "path %s is not cached", path)
	}
	if c.Entries != nil && c.Entries.ReferencesPath(path) {
		if !force {
			return bmerr.Newf(bmerr.KindCache, "%s is still referenced by a live entry", path)
		}
		log.Warn().Str("path", path).Msg("uncaching a path still referenced by a live entry")
	}

	delete(c.idx.Index, path)
	delete(c.idx.Paths, path)

	stillUsed := map[string]bool{}
	for _, otherIDs := range c.idx.Index {
		for _, id := range otherIDs {
			stillUsed[id] = true
		}
	}
	for _, id := range ids {
		if stillUsed[id] {
			continue
		}
		if err := c.Runner.Remove(c.imagePath(id), "unlink orphaned cache image"); err != nil && !os.IsNotExist(err) {
			return bmerr.Wrap(bmerr.KindIO, "removing cache image", err)
		}
		delete(c.idx.Images, id)
	}

	marker := c.restoredMarkerPath(path)
	if fileExists(marker) {
		if err := c.Runner.Remove(c.bootPath(path), "remove restored image"); err != nil && !os.IsNotExist(err) {
			return bmerr.Wrap(bmerr.KindIO, "removing restored image", err)
		}
		if err := c.Runner.Remove(marker, "remove restore sentinel"); err != nil && !os.IsNotExist(err) {
			return bmerr.Wrap(bmerr.KindIO, "removing restore sentinel", err)
		}
	}

	return c.Save()
}

// Clean walks every cached path and uncaches every one not referenced by
// any live entry (spec.md §4.6 "Clean").
func (c *Cache) Clean() error {
	for _, path := range c.idx.paths() {
		if c.Entries != nil && c.Entries.ReferencesPath(path) {
			continue
		}
		if err := c.Uncache(path, false); err != nil {
			return err
		}
	}
	return nil
}

// State computes the lifecycle state of the (path, imgID) pair per
// spec.md §4.6's state table. Neither a boot file nor a cache file present
// is not named by the table; this implementation treats it as BROKEN since
// the index claims a cached version that no longer exists anywhere.
func (c *Cache) State(path, imgID string) State {
	bootFile := c.bootPath(path)
	bootExists := fileExists(bootFile)
	cacheExists := fileExists(c.imagePath(imgID))

	switch {
	case cacheExists && bootExists:
		if fileExists(c.restoredMarkerPath(path)) {
			if hash, err := sha1File(bootFile); err == nil && hash == imgID {
				return StateRestored
			}
		}
		return StateCached
	case cacheExists && !bootExists:
		return StateMissing
	default:
		return StateBroken
	}
}

// PathRecord is one find_cache_paths result: a path and its cached images,
// newest first.
type PathRecord struct {
	Path   string
	Images []string
	Meta   PathMeta
}

// ImageRecord is one find_cache_images result: a single img_id and the
// paths that reference it.
type ImageRecord struct {
	ImgID string
	Meta  ImageMeta
	Paths []string
}

// FindPaths returns one record per indexed path matching sel, default-
// loading the cache if it has never been loaded (spec.md §4.6 "Find").
func (c *Cache) FindPaths(sel *selector.Selector) ([]PathRecord, error) {
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	if sel == nil {
		sel = &selector.Selector{}
	}
	if err := sel.ValidateForType(selector.GroupCache); err != nil {
		return nil, err
	}

	var out []PathRecord
	for _, path := range c.idx.paths() {
		ids := c.idx.imageIDsForPath(path)
		imgID := ""
		if len(ids) > 0 {
			imgID = ids[0]
		}
		if !sel.MatchCache(selector.CacheFields{Path: path, ImgID: imgID}) {
			continue
		}
		out = append(out, PathRecord{Path: path, Images: ids, Meta: c.idx.Paths[path]})
	}
	return out, nil
}

// FindImages returns one record per indexed img_id matching sel.
func (c *Cache) FindImages(sel *selector.Selector) ([]ImageRecord, error) {
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	if sel == nil {
		sel = &selector.Selector{}
	}
	if err := sel.ValidateForType(selector.GroupCache); err != nil {
		return nil, err
	}

	byImage := map[string][]string{}
	for _, path := range c.idx.paths() {
		for _, id := range c.idx.Index[path] {
			byImage[id] = append(byImage[id], path)
		}
	}

	ids := make([]string, 0, len(byImage))
	for id := range byImage {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []ImageRecord
	for _, id := range ids {
		paths := byImage[id]
		matched := false
		for _, p := range paths {
			if sel.MatchCache(selector.CacheFields{Path: p, ImgID: id}) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		out = append(out, ImageRecord{ImgID: id, Meta: c.idx.Images[id], Paths: paths})
	}
	return out, nil
}

func (c *Cache) ensureLoaded() error {
	if len(c.idx.Index) == 0 && len(c.idx.Images) == 0 {
		return c.Load()
	}
	return nil
}
