// Package config loads settings from an optional YAML file, a .env file and
// STOCKCARD_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/robinvdvleuten/stockcard/export"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "STOCKCARD"

type Config struct {
	App struct {
		Env       string `mapstructure:"env"`
		LogLevel  string `mapstructure:"log_level"`
		LogFormat string `mapstructure:"log_format"`
	} `mapstructure:"app"`

	// Backend selects where stock cards live: "file" or "postgres".
	Backend string `mapstructure:"backend"`

	Book struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"book"`

	Postgres struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"postgres"`

	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"redis"`

	HTTP struct {
		Addr     string `mapstructure:"addr"`
		ReadOnly bool   `mapstructure:"read_only"`
	} `mapstructure:"http"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`

	S3 struct {
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		Bucket    string `mapstructure:"bucket"`
		Prefix    string `mapstructure:"prefix"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"s3"`
}

var defaults = map[string]any{
	"app.env":         "production",
	"app.log_level":   "",
	"app.log_format":  "text",
	"backend":         "file",
	"book.path":       "stockcards.json",
	"postgres.dsn":    "",
	"redis.addr":      "",
	"redis.password":  "",
	"redis.db":        0,
	"redis.ttl":       15 * time.Minute,
	"http.addr":       "localhost:8080",
	"http.read_only":  false,
	"metrics.enabled": true,
	"s3.endpoint":     "",
	"s3.region":       "auto",
	"s3.bucket":       "",
	"s3.prefix":       "stock-cards/",
	"s3.access_key":   "",
	"s3.secret_key":   "",
}

// Load reads the configuration. When path is empty, stockcard.yaml in the
// working directory is used if it exists.
func Load(path string) (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("stockcard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected backend is configured.
func (c *Config) Validate() error {
	switch c.Backend {
	case "file":
		if c.Book.Path == "" {
			return errors.New("book.path is required for the file backend")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown backend %q (expected file or postgres)", c.Backend)
	}
	return nil
}

// S3Config returns the export upload settings, or false when no bucket is
// configured.
func (c *Config) S3Config() (export.S3Config, bool) {
	if c.S3.Bucket == "" {
		return export.S3Config{}, false
	}
	return export.S3Config{
		Endpoint:  c.S3.Endpoint,
		Region:    c.S3.Region,
		Bucket:    c.S3.Bucket,
		Prefix:    c.S3.Prefix,
		AccessKey: c.S3.AccessKey,
		SecretKey: c.S3.SecretKey,
	}, true
}
