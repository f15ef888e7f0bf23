package cmd

import (
	"os"
	"time"

	"github.com/CompassSecurity/imageleek/internal/cmd/bitbucket"
	"github.com/CompassSecurity/imageleek/pkg/config"
	"github.com/CompassSecurity/imageleek/pkg/format"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version information - set via ldflags during build
var Version = "dev"

var (
	rootCmd = &cobra.Command{
		Use:     "imageleek",
		Short:   "Inventory Docker base images across Bitbucket repositories",
		Long:    "Imageleek walks BitBucket Server projects and repositories, finds Dockerfiles and collects the distinct base images referenced by their FROM statements.",
		Example: "imageleek bb scan --bitbucket https://bitbucket.example.com --username auser --token xxxxxx",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadConfigFile()
			initLogger()
			setGlobalLogLevel()
		},
	}
	JsonLogoutput bool
	LogFile       string
	LogDebug      bool
	LogLevel      string
	LogColor      bool
	ConfigFile    string
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(bitbucket.NewBitBucketRootCmd())

	rootCmd.PersistentFlags().StringVar(&ConfigFile, "config", "", "Config file path (YAML, JSON, or TOML). Example: ~/.config/imageleek/config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&JsonLogoutput, "json", "", false, "Use JSON as log output format")
	rootCmd.PersistentFlags().StringVarP(&LogFile, "logfile", "l", "", "Log output to a file")
	rootCmd.PersistentFlags().BoolVarP(&LogDebug, "verbose", "v", false, "Enable debug logging (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().StringVar(&LogLevel, "log-level", "", "Set log level globally (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&LogColor, "color", true, "Enable colored log output (auto-disabled when using --logfile)")

	rootCmd.AddGroup(&cobra.Group{ID: "BitBucket", Title: "BitBucket Commands"})
}

func initLogger() {
	out := os.Stdout
	colorEnabled := LogColor

	if LogFile != "" {
		// #nosec G304 - User-provided log file path via --logfile flag, user controls their own filesystem
		logFile, err := os.OpenFile(LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, format.FileUserReadWrite)
		if err != nil {
			panic(err)
		}
		out = logFile
		colorEnabled = false
	}

	if JsonLogoutput {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    !colorEnabled,
	}).With().Timestamp().Logger()
}

func setGlobalLogLevel() {
	if LogLevel != "" {
		level, err := zerolog.ParseLevel(LogLevel)
		if err != nil {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			log.Warn().Str("logLevelSpecified", LogLevel).Msg("Invalid log level, defaulting to info")
			return
		}
		zerolog.SetGlobalLevel(level)
		return
	}

	if LogDebug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Debug().Msg("Log level set to debug (-v)")
		return
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func loadConfigFile() {
	if _, err := config.LoadConfig(ConfigFile); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration file")
	}
}
