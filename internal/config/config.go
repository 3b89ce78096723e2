// Package config loads the broker's runtime knobs from a TOML file,
// environment variables, and CLI flags, in that order of increasing
// priority, via viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Broker holds every knob a running broker reads. Every partition inherits
// these unless/until per-topic overrides exist.
type Broker struct {
	BaseDir string `mapstructure:"base_dir"`
	Port    int    `mapstructure:"port"`

	// SegmentMaxBytes bounds a single segment's size before rotation.
	SegmentMaxBytes uint64 `mapstructure:"segment_max_bytes"`
	// Retention is how long a segment's data is kept. Time wins over size.
	Retention time.Duration `mapstructure:"retention"`
	// RetentionBytes is a soft cap on total on-disk bytes per partition.
	// Zero disables size-based retention.
	RetentionBytes uint64 `mapstructure:"retention_bytes"`
	// CleanupInterval is how often the background retention sweep runs.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

	AutoCreateTopics bool `mapstructure:"auto_create_topics"`
	MetricsAddr      string `mapstructure:"metrics_addr"`
}

func defaults() Broker {
	return Broker{
		BaseDir:          "./data",
		Port:             9092,
		SegmentMaxBytes:  1 << 30, // 1 GiB
		Retention:        7 * 24 * time.Hour,
		RetentionBytes:   0,
		CleanupInterval:  60 * time.Second,
		AutoCreateTopics: true,
		MetricsAddr:      ":9644",
	}
}

// Load builds a Broker config layering, from lowest to highest priority: the
// hardcoded defaults, an optional TOML config file, FLYQ_-prefixed
// environment variables, then CLI flags that were set explicitly.
func Load(flags *pflag.FlagSet) (*Broker, error) {
	v := viper.New()
	d := defaults()
	v.SetDefault("base_dir", d.BaseDir)
	v.SetDefault("port", d.Port)
	v.SetDefault("segment_max_bytes", d.SegmentMaxBytes)
	v.SetDefault("retention", d.Retention)
	v.SetDefault("retention_bytes", d.RetentionBytes)
	v.SetDefault("cleanup_interval", d.CleanupInterval)
	v.SetDefault("auto_create_topics", d.AutoCreateTopics)
	v.SetDefault("metrics_addr", d.MetricsAddr)

	v.SetEnvPrefix("flyq")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	binds := map[string]string{
		"base_dir":           "base-dir",
		"port":               "port",
		"segment_max_bytes":  "segment-max-bytes",
		"retention":          "retention",
		"retention_bytes":    "retention-bytes",
		"cleanup_interval":   "cleanup-interval",
		"auto_create_topics": "auto-create-topics",
		"metrics_addr":       "metrics-addr",
	}
	for viperKey, flagName := range binds {
		if err := v.BindPFlag(viperKey, flags.Lookup(flagName)); err != nil {
			return nil, fmt.Errorf("config: bind flag %s: %w", flagName, err)
		}
	}

	if configFile, _ := flags.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	var cfg Broker
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

// Flags registers the CLI flags Load binds into viper.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("flyqd", pflag.ExitOnError)
	d := defaults()
	fs.String("config", "", "path to a TOML config file")
	fs.String("base-dir", d.BaseDir, "root directory for topic data")
	fs.Int("port", d.Port, "TCP port the broker listens on")
	fs.Uint64("segment-max-bytes", d.SegmentMaxBytes, "max bytes per segment before rotation")
	fs.Duration("retention", d.Retention, "how long segment data is kept")
	fs.Uint64("retention-bytes", d.RetentionBytes, "soft cap on bytes per partition, 0 disables")
	fs.Duration("cleanup-interval", d.CleanupInterval, "how often retention cleanup runs")
	fs.Bool("auto-create-topics", d.AutoCreateTopics, "create a topic on first produce if missing")
	fs.String("metrics-addr", d.MetricsAddr, "address the /metrics endpoint listens on")
	return fs
}
