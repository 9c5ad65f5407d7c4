// Package config loads server configuration from a YAML file and AOA_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AOA_SERVER_HTTP_ADDRESS.
const EnvPrefix = "AOA"

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Pages     PagesConfig     `mapstructure:"pages"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Game      GameConfig      `mapstructure:"game"`
	Replay    ReplayConfig    `mapstructure:"replay"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
	GRPC GRPCConfig `mapstructure:"grpc"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PagesConfig selects where the page tables come from.
type PagesConfig struct {
	// Source is "csv" or "postgres".
	Source    string `mapstructure:"source"`
	Dir       string `mapstructure:"dir"`
	StartPage int    `mapstructure:"start_page"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int    `mapstructure:"max_conns"`
}

type GameConfig struct {
	StartingHealth float64      `mapstructure:"starting_health"`
	Damage         DamageConfig `mapstructure:"damage"`
}

// DamageConfig is the damage of one hit at each distance.
type DamageConfig struct {
	Long   float64 `mapstructure:"long"`
	Medium float64 `mapstructure:"medium"`
	Close  float64 `mapstructure:"close"`
}

// ReplayConfig controls saving finished games. An empty Dir disables it.
type ReplayConfig struct {
	Dir string `mapstructure:"dir"`
}

// TelemetryConfig controls trace export. An empty endpoint disables it.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.address", ":8000")
	v.SetDefault("server.grpc.address", ":9090")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("pages.source", "csv")
	v.SetDefault("pages.dir", "data")
	v.SetDefault("pages.start_page", 170)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 4)

	v.SetDefault("game.starting_health", 6.0)
	v.SetDefault("game.damage.long", 0.5)
	v.SetDefault("game.damage.medium", 1.0)
	v.SetDefault("game.damage.close", 2.0)

	v.SetDefault("replay.dir", "")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "aoa-server")
}

// Load reads the configuration file at path. A missing file leaves the
// defaults and environment in effect.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.Pages.Source {
	case "csv":
		if c.Pages.Dir == "" {
			return fmt.Errorf("pages.dir is required for the csv source")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres source")
		}
	default:
		return fmt.Errorf("pages.source must be csv or postgres, got %q", c.Pages.Source)
	}
	if c.Pages.StartPage <= 0 {
		return fmt.Errorf("pages.start_page must be positive")
	}
	if c.Game.StartingHealth <= 0 {
		return fmt.Errorf("game.starting_health must be positive")
	}
	d := c.Game.Damage
	if d.Long <= 0 || d.Medium <= d.Long || d.Close <= d.Medium {
		return fmt.Errorf("game.damage must satisfy 0 < long < medium < close")
	}
	if c.Server.GRPC.MaxConcurrentStreams <= 0 {
		return fmt.Errorf("server.grpc.max_concurrent_streams must be positive")
	}
	return nil
}
