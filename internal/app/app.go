// Package app wires boomconfig, profile.Store, entry.Store, and
// cache.Cache together into the single bundle every CLI command operates
// on, the way the teacher's cmd package wires a Generator from its own
// config (cmd/generate.go's NewGenerator call).
package app

import (
	"path/filepath"

	"github.com/snapshotmanager/boom-go/internal/bmerr"
	"github.com/snapshotmanager/boom-go/internal/boomconfig"
	"github.com/snapshotmanager/boom-go/internal/cache"
	"github.com/snapshotmanager/boom-go/internal/entry"
	"github.com/snapshotmanager/boom-go/internal/platform"
	"github.com/snapshotmanager/boom-go/internal/profile"
	"github.com/snapshotmanager/boom-go/internal/runner"
)

// App bundles the stores every subcommand needs, constructed from a loaded
// Config and a dry-run flag.
type App struct {
	Config  *boomconfig.Config
	Runner  runner.Runner
	Profile *profile.Store
	Entry   *entry.Store
	Cache   *cache.Cache
}

// New constructs an App rooted at cfg.Global.BootRoot/BoomRoot. It does not
// load anything from disk; call Load to populate the stores.
func New(cfg *boomconfig.Config, dryRun bool) *App {
	rnr := runner.New(dryRun)
	probe := platform.Probe(platform.RealProbe{})
	mask := bmerr.MaskFromEnv()

	profiles := profile.NewStore(filepath.Join(cfg.Global.BoomRoot, "profiles"), rnr)
	profiles.DebugMask = mask
	entries := entry.NewStore(filepath.Join(cfg.Global.BootRoot, "loader", "entries"), rnr, profiles, probe)
	entries.DebugMask = mask

	cachePath := cfg.Cache.CachePath
	if cachePath == "" {
		cachePath = filepath.Join(cfg.Global.BoomRoot, "cache")
	}
	c := cache.NewCache(cfg.Global.BootRoot, rnr, entries)
	c.CacheDir = cachePath

	return &App{Config: cfg, Runner: rnr, Profile: profiles, Entry: entries, Cache: c}
}

// Load populates Profile and Entry from disk, in that order since entry
// loading resolves each entry against the profile store.
func (a *App) Load() error {
	if err := a.Profile.Load(); err != nil {
		return err
	}
	if err := a.Entry.Load(); err != nil {
		return err
	}
	if a.Config.Cache.Enable {
		if err := a.Cache.Load(); err != nil {
			return err
		}
	}
	return nil
}
