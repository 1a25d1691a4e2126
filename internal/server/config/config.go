package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, first hit wins.
var DefaultConfigPaths = []string{
	"tunno-server.yaml",
	"tunno-server.yml",
	"/etc/tunno/server.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "TUNNO_CONFIG"

// envPrefix namespaces environment overrides: TUNNO_SERVER_PORT -> server.port.
const envPrefix = "TUNNO_"

// Config holds the sync server configuration.
type Config struct {
	Server ServerConfig `koanf:"server"`
	DB     DBConfig     `koanf:"db"`
	Sync   SyncConfig   `koanf:"sync"`
	Log    LogConfig    `koanf:"log"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type DBConfig struct {
	Path string `koanf:"path"`
}

type SyncConfig struct {
	// SessionTimeout is how long a paired session may stay idle before it
	// is considered lost.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// TokenTTL bounds the lifetime of a pairing token.
	TokenTTL time.Duration `koanf:"token_ttl"`

	// QRFile, when set, is where the pairing QR code PNG is written.
	QRFile string `koanf:"qr_file"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3030,
		},
		DB: DBConfig{
			Path: "tunno-server.db",
		},
		Sync: SyncConfig{
			SessionTimeout: 2 * time.Minute,
			TokenTTL:       time.Hour,
			QRFile:         "",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from layered sources, later layers winning:
// built-in defaults, then an optional YAML file, then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// TUNNO_SERVER_PORT=8080 -> server.port
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.Replace(s, "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db path must not be empty")
	}
	if c.Sync.SessionTimeout <= 0 {
		return fmt.Errorf("session timeout must be positive")
	}
	if c.Sync.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	return nil
}

// Addr returns the host:port string the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
