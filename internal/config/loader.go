package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".repolens"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for repolens settings.
const envPrefix = "REPOLENS"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("analysis.structural_deadline", DefaultStructuralDeadline)
	viperCfg.SetDefault("analysis.security_deadline", DefaultSecurityDeadline)
	viperCfg.SetDefault("analysis.performance_deadline", DefaultPerformanceDeadline)
	viperCfg.SetDefault("analysis.run_timeout", DefaultRunTimeout)

	viperCfg.SetDefault("enrichment.endpoint", "")
	viperCfg.SetDefault("enrichment.api_key", "")
	viperCfg.SetDefault("enrichment.disabled", false)
	viperCfg.SetDefault("enrichment.request_timeout", DefaultEnrichmentRequestTimeout)
	viperCfg.SetDefault("enrichment.max_attempts", DefaultEnrichmentMaxAttempts)
	viperCfg.SetDefault("enrichment.backoff_base", DefaultEnrichmentBackoffBase)
	viperCfg.SetDefault("enrichment.backoff_ceiling", DefaultEnrichmentBackoffCeiling)

	viperCfg.SetDefault("report.formats", DefaultReportFormats)
	viperCfg.SetDefault("report.output_dir", DefaultReportOutputDir)

	viperCfg.SetDefault("server.addr", DefaultServerAddr)

	viperCfg.SetDefault("log.level", DefaultLogLevel)
	viperCfg.SetDefault("log.json", DefaultLogJSON)
}
