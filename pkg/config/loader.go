package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "IMAGELEEK"

// Config represents the complete configuration structure for imageleek.
type Config struct {
	BitBucket BitBucketConfig `mapstructure:"bitbucket"`
	Common    CommonConfig    `mapstructure:"common"`
}

// BitBucketConfig contains BitBucket-specific configuration
type BitBucketConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Token    string `mapstructure:"token"`
}

// CommonConfig contains common configuration settings
type CommonConfig struct {
	Threads     int    `mapstructure:"threads"`
	MaxFileSize string `mapstructure:"max_file_size"`
}

var globalViper *viper.Viper

// LoadConfig initializes the global Viper instance from an explicit config
// file path or the standard search locations. Calling it again replaces the
// previous instance.
func LoadConfig(configFile string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		log.Debug().Str("path", configFile).Msg("Using specified config file")
	} else {
		v.SetConfigName("imageleek")
		v.SetConfigType("yaml")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "imageleek"))
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Debug().Msg("No config file found, using defaults and command-line flags")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		log.Info().Str("file", v.ConfigFileUsed()).Msg("Loaded config file")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	globalViper = v
	return v, nil
}

// GetViper returns the global Viper instance
func GetViper() *viper.Viper {
	if globalViper == nil {
		if _, err := LoadConfig(""); err != nil {
			log.Fatal().Err(err).Msg("Failed to auto-initialize configuration")
		}
	}
	return globalViper
}

// AutoBindFlags binds command flags to Viper configuration keys, including
// flags inherited from parent commands. This enables automatic priority
// handling: CLI flags > environment > config file > defaults.
func AutoBindFlags(cmd *cobra.Command, flagMappings map[string]string) error {
	v := GetViper()
	for flagName, viperKey := range flagMappings {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil {
			flag = cmd.InheritedFlags().Lookup(flagName)
		}
		if flag != nil {
			if err := v.BindPFlag(viperKey, flag); err != nil {
				return fmt.Errorf("failed to bind flag %s to key %s: %w", flagName, viperKey, err)
			}
		}
	}
	return nil
}

// RequireConfigKeys returns an error naming every key that resolved to an
// empty value.
func RequireConfigKeys(keys ...string) error {
	v := GetViper()
	var missing []string
	for _, key := range keys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s (set via flags, a config file or %s_* environment variables)", strings.Join(missing, ", "), envPrefix)
	}
	return nil
}

// GetString retrieves a string value using Viper's native priority handling
func GetString(key string) string {
	return GetViper().GetString(key)
}

// GetBool retrieves a bool value using Viper's native priority handling
func GetBool(key string) bool {
	return GetViper().GetBool(key)
}

// GetInt retrieves an int value using Viper's native priority handling
func GetInt(key string) int {
	return GetViper().GetInt(key)
}

// GetStringSlice retrieves a string slice using Viper's native priority handling
func GetStringSlice(key string) []string {
	return GetViper().GetStringSlice(key)
}

// UnmarshalConfig unmarshals the configuration into a Config struct
func UnmarshalConfig() (*Config, error) {
	config := &Config{}
	if err := GetViper().Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return config, nil
}

// setDefaults sets default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("common.threads", 4)
	v.SetDefault("common.max_file_size", "1Mb")
}
