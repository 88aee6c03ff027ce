// Package config provides a reusable loader for DuxNet configuration files
// and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"duxnet/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a duxnetd node. It mirrors the
// structure of the optional default.yaml that Load looks for under
// cmd/config or config; no such file ships with this repository.
type Config struct {
	RPC struct {
		Bitcoin struct {
			Endpoint string `mapstructure:"endpoint" json:"endpoint"`
			User     string `mapstructure:"user" json:"user"`
			Pass     string `mapstructure:"pass" json:"pass"`
		} `mapstructure:"bitcoin" json:"bitcoin"`
		Ethereum struct {
			Endpoint string `mapstructure:"endpoint" json:"endpoint"`
			Address  string `mapstructure:"address" json:"address"`
		} `mapstructure:"ethereum" json:"ethereum"`
	} `mapstructure:"rpc" json:"rpc"`

	Airdrop struct {
		Threshold   int64 `mapstructure:"threshold" json:"threshold"`
		MinAmount   int64 `mapstructure:"min_amount" json:"min_amount"`
		IntervalHrs int   `mapstructure:"interval_hours" json:"interval_hours"`
		MaxNodes    int   `mapstructure:"max_nodes" json:"max_nodes"`
	} `mapstructure:"airdrop" json:"airdrop"`

	Escrow struct {
		TaxPercent int `mapstructure:"tax_percent" json:"tax_percent"`
	} `mapstructure:"escrow" json:"escrow"`

	Sandbox struct {
		Interpreter    string `mapstructure:"interpreter" json:"interpreter"`
		MaxMemoryMB    int    `mapstructure:"max_memory_mb" json:"max_memory_mb"`
		MaxTimeoutSecs int    `mapstructure:"max_timeout_seconds" json:"max_timeout_seconds"`
	} `mapstructure:"sandbox" json:"sandbox"`

	Scheduler struct {
		MaxRetries      int `mapstructure:"max_retries" json:"max_retries"`
		MaxTasksPerNode int `mapstructure:"max_tasks_per_node" json:"max_tasks_per_node"`
	} `mapstructure:"scheduler" json:"scheduler"`

	Auth struct {
		MaxFailuresPerWindow int `mapstructure:"max_failures_per_window" json:"max_failures_per_window"`
		WindowSeconds        int `mapstructure:"window_seconds" json:"window_seconds"`
		ClockSkewSeconds     int `mapstructure:"clock_skew_seconds" json:"clock_skew_seconds"`
	} `mapstructure:"auth" json:"auth"`

	Governance struct {
		MinVoteThreshold float64 `mapstructure:"min_vote_threshold" json:"min_vote_threshold"`
	} `mapstructure:"governance" json:"governance"`

	Ops struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"ops" json:"ops"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment-specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	_ = godotenv.Load() // optional .env overlay; a missing file is not an error

	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	setDefaults()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("DUXNET")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the DUXNET_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("DUXNET_ENV", ""))
}

func setDefaults() {
	viper.SetDefault("airdrop.threshold", 100000)
	viper.SetDefault("airdrop.min_amount", 100)
	viper.SetDefault("airdrop.interval_hours", 24)
	viper.SetDefault("airdrop.max_nodes", 500)
	viper.SetDefault("escrow.tax_percent", 5)
	viper.SetDefault("sandbox.interpreter", "python3")
	viper.SetDefault("sandbox.max_memory_mb", 8192)
	viper.SetDefault("sandbox.max_timeout_seconds", 3600)
	viper.SetDefault("scheduler.max_retries", 3)
	viper.SetDefault("scheduler.max_tasks_per_node", 10)
	viper.SetDefault("auth.max_failures_per_window", 5)
	viper.SetDefault("auth.window_seconds", 300)
	viper.SetDefault("auth.clock_skew_seconds", 300)
	viper.SetDefault("governance.min_vote_threshold", 0.0)
	viper.SetDefault("ops.listen_addr", ":8090")
	viper.SetDefault("logging.level", "info")
}
