package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".zing-stats"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for zing-stats settings.
const envPrefix = "ZING_STATS"

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
	viperCfg.SetDefault("gerrit.url", "")
	viperCfg.SetDefault("gerrit.user", "")
	viperCfg.SetDefault("gerrit.token", "")

	viperCfg.SetDefault("github.url", "")
	viperCfg.SetDefault("github.token", "")

	viperCfg.SetDefault("gather.range_hours", DefaultRangeHours)
	viperCfg.SetDefault("gather.query_size", DefaultQuerySize)
	viperCfg.SetDefault("gather.max_changes", 0)
	viperCfg.SetDefault("gather.branches", []string{})
	viperCfg.SetDefault("gather.insecure_skip_verify", false)

	viperCfg.SetDefault("report.title", DefaultReportTitle)
	viperCfg.SetDefault("report.issue_link", DefaultReportIssueLink)
	viperCfg.SetDefault("report.contact_email", DefaultContactEmail)
	viperCfg.SetDefault("report.format", FormatHTML)
	viperCfg.SetDefault("report.system_capacity_daily_ci_hours", DefaultSystemCapacityDailyCIHours)
	viperCfg.SetDefault("report.ci_job_recommended_max_minutes", DefaultCIJobRecommendedMaxMinutes)

	viperCfg.SetDefault("output.dir", DefaultOutputDir)
	viperCfg.SetDefault("output.snapshot_dir", "")
	viperCfg.SetDefault("output.metrics_textfile", "")
}
