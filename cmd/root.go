package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/snapshotmanager/boom-go/internal/app"
	"github.com/snapshotmanager/boom-go/internal/boomconfig"
)

var (
	cfgFile  string
	bootDir  string
	logLevel string
	dryRun   bool
	Version  = "dev"
	Commit   = "unknown"
	BuildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "boom",
	Short: "Manage Boot Loader Specification entries on /boot",
	Long: `boom composes and manages Boot Loader Specification (BLS) entries
from OS profiles, host overlays, and boot parameters, and maintains a
content-addressed cache of the kernel and initramfs images those entries
reference.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
		NoColor:    false,
	})

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/boom.conf)")
	rootCmd.PersistentFlags().StringVar(&bootDir, "boot-dir", "", "override the <BOOT> root (default /boot, or $BOOM_BOOT_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "log intended filesystem mutations without performing them")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = "/etc/boom.conf"
	}
	viper.SetConfigFile(cfgFile)
	viper.SetEnvPrefix("BOOM")
	viper.AutomaticEnv()
	viper.SetDefault("log_level", "info")

	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("using config file")
	} else {
		log.Debug().Msg("no config file found, using defaults")
	}
}

func initLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := viper.GetString("log_level")
	switch level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Debug().
		Str("version", getVersion()).
		Str("commit", Commit).
		Str("build_time", BuildTime).
		Str("log_level", level).
		Msg("logger initialized")
}

func getVersion() string {
	if Version != "" {
		return Version
	}
	return "dev"
}

// newApp loads boom.conf (applying the --boot-dir / $BOOM_BOOT_PATH
// override over the config file's [global] boot_root) and constructs an
// App ready for Load.
func newApp() (*app.App, error) {
	cfg, err := boomconfig.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	override := bootDir
	if override == "" {
		override = os.Getenv("BOOM_BOOT_PATH")
	}
	if override != "" {
		cfg.Global.BootRoot = override
	}

	a := app.New(cfg, dryRun)
	if err := a.Load(); err != nil {
		return nil, err
	}
	return a, nil
}
