// Package boomconfig loads boom.conf, the INI configuration spec.md §6
// names, the way the teacher loads its own YAML config in cmd/root.go:
// viper defaults, then an optional file overlay, then a typed unmarshal.
package boomconfig

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/snapshotmanager/boom-go/internal/bmerr"
)

// Global holds the `[global]` section. It is the only section whose
// absence is fatal (spec.md §6).
type Global struct {
	BootRoot string `mapstructure:"boot_root"`
	BoomRoot string `mapstructure:"boom_root"`
}

// Legacy holds the `[legacy]` section.
type Legacy struct {
	Enable bool   `mapstructure:"enable"`
	Format string `mapstructure:"format"`
	Sync   bool   `mapstructure:"sync"`
}

// Cache holds the `[cache]` section.
type Cache struct {
	Enable    bool   `mapstructure:"enable"`
	AutoClean bool   `mapstructure:"auto_clean"`
	CachePath string `mapstructure:"cache_path"`
}

// Config is boom.conf's fully parsed, defaulted shape.
type Config struct {
	Global Global `mapstructure:"global"`
	Legacy Legacy `mapstructure:"legacy"`
	Cache  Cache  `mapstructure:"cache"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("global.boot_root", "/boot")
	v.SetDefault("global.boom_root", "/boot/boom")

	v.SetDefault("legacy.enable", false)
	v.SetDefault("legacy.format", "grub1")
	v.SetDefault("legacy.sync", true)

	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.auto_clean", false)
	v.SetDefault("cache.cache_path", "/boot/boom/cache")
}

// Load reads path as an INI file into a Config. A missing file is not an
// error — defaults apply throughout, same as every other missing section
// or key — but a present file missing the `[global]` section is a fatal
// ConfigError (spec.md §6).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("ini")
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			// A separate, default-free reader checks what the file itself
			// declares — setDefaults on v would otherwise make every
			// section look "set" regardless of what's on disk.
			raw := viper.New()
			raw.SetConfigType("ini")
			raw.SetConfigFile(path)
			if err := raw.ReadInConfig(); err != nil {
				return nil, bmerr.Wrap(bmerr.KindConfig, "parsing boom.conf", err)
			}
			if !raw.IsSet("global") {
				return nil, bmerr.New(bmerr.KindConfig, "boom.conf is missing the required [global] section")
			}

			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, bmerr.Wrap(bmerr.KindConfig, "parsing boom.conf", err)
			}
			log.Debug().Str("config_file", path).Msg("using config file")
		} else if !os.IsNotExist(err) {
			return nil, bmerr.Wrap(bmerr.KindConfig, "statting boom.conf", err)
		} else {
			log.Debug().Str("config_file", path).Msg("no config file found, using defaults")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, bmerr.Wrap(bmerr.KindConfig, "unmarshalling boom.conf", err)
	}
	return &cfg, nil
}
