// Package app assembles the gateway: configuration loading, backend
// construction, and the serving lifecycle.
package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"dbxmcp/internal/domain"
)

// Config is the full gateway configuration, loaded from an optional YAML
// file with DBXMCP_-prefixed environment overrides.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Backend BackendConfig `mapstructure:"backend"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	ListenAddress string `mapstructure:"listenAddress" validate:"required"`
}

type BackendConfig struct {
	Provider string        `mapstructure:"provider" validate:"oneof=dropbox s3"`
	Dropbox  DropboxConfig `mapstructure:"dropbox"`
	S3       S3Config      `mapstructure:"s3"`
}

type DropboxConfig struct {
	// AccessToken is a long-lived token. Alternatively set the refresh
	// triple below for short-lived tokens with automatic renewal.
	AccessToken  string `mapstructure:"accessToken"`
	RefreshToken string `mapstructure:"refreshToken"`
	AppKey       string `mapstructure:"appKey"`
	AppSecret    string `mapstructure:"appSecret"`
}

// Configured reports whether any usable credential set is present.
// Missing credentials do not block startup: the gateway serves anyway,
// reports api_configured false, and fails each tool call cleanly.
func (d DropboxConfig) Configured() bool {
	return d.AccessToken != "" || (d.RefreshToken != "" && d.AppKey != "" && d.AppSecret != "")
}

type S3Config struct {
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"accessKeyId"`
	SecretAccessKey string        `mapstructure:"secretAccessKey"`
	KeyPrefix       string        `mapstructure:"keyPrefix"`
	PresignExpiry   time.Duration `mapstructure:"presignExpiry"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

func newConfigViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DBXMCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setConfigDefaults(v)
	return v
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("server.listenAddress", domain.DefaultListenAddress)
	v.SetDefault("backend.provider", "dropbox")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("logging.level", "info")
}

// LoadConfig reads the YAML file at path when it is non-empty, applies
// environment overrides, and validates the result. An empty path loads
// defaults plus environment only.
func LoadConfig(path string) (Config, error) {
	v := newConfigViper()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config file: %w", err)
		}
		defer func() { _ = file.Close() }()
		if err := v.ReadConfig(file); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	// Legacy deployments set a bare PORT instead of a listen address.
	if port := os.Getenv("PORT"); port != "" && cfg.Server.ListenAddress == domain.DefaultListenAddress {
		cfg.Server.ListenAddress = "0.0.0.0:" + port
	}

	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateConfig checks structural constraints plus the per-provider
// requirements the struct tags cannot express. Dropbox credentials are
// deliberately not required here; see DropboxConfig.Configured.
func ValidateConfig(cfg Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch cfg.Backend.Provider {
	case "s3":
		if cfg.Backend.S3.Bucket == "" {
			return fmt.Errorf("s3 backend requires a bucket")
		}
		if cfg.Backend.S3.Region == "" {
			return fmt.Errorf("s3 backend requires a region")
		}
	}
	return nil
}
