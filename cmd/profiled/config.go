package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the runtime configuration of the profile service.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Profiles ProfilesConfig `mapstructure:"profiles"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr     string `mapstructure:"addr"`
	LogLevel string `mapstructure:"log_level"`
	TLS      bool   `mapstructure:"tls"`
}

// DatabaseConfig describes the SQLite user store.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
	DSN  string `mapstructure:"dsn"`
}

// AuthConfig holds token signing options.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	TokenTTL  string `mapstructure:"token_ttl"`
}

// ProfilesConfig points at the git repositories backing the service.
type ProfilesConfig struct {
	RepoPath       string `mapstructure:"repo_path"`
	CatalogPath    string `mapstructure:"catalog_path"`
	ConfigRepoPath string `mapstructure:"config_repo_path"`
}

func loadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("profiled")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if path != "" {
		v.SetConfigFile(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("PROFILED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required (set PROFILED_AUTH_JWT_SECRET)")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.tls", false)

	v.SetDefault("database.path", "./data/profiled.db")
	v.SetDefault("database.dsn", "")

	// Registered empty so the PROFILED_AUTH_JWT_SECRET env var binds.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("profiles.repo_path", "./profiles")
	v.SetDefault("profiles.catalog_path", "./services.json")
	v.SetDefault("profiles.config_repo_path", "./config-repo")
}
