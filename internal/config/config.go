// Package config loads layered configuration: struct defaults, then an
// optional YAML file, then MUSICREC_-prefixed environment variables.
package config

import (
	"errors"
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

// DefaultConfigPaths lists where config files are searched, first hit wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/musicrec/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "MUSICREC_CONFIG"

// envPrefix namespaces all environment overrides.
const envPrefix = "MUSICREC_"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Cluster  ClusterConfig  `koanf:"cluster"`
	Index    IndexConfig    `koanf:"index"`
	Auth     AuthConfig     `koanf:"auth"`
	Mail     MailConfig     `koanf:"mail"`
	Enrich   EnrichConfig   `koanf:"enrich"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	FrontendURL     string        `koanf:"frontend_url"`
}

type DatabaseConfig struct {
	URL string `koanf:"url"`
}

type CatalogConfig struct {
	Path        string `koanf:"path"`
	SnapshotDir string `koanf:"snapshot_dir"`
}

type ClusterConfig struct {
	K         int     `koanf:"k"`
	BatchSize int     `koanf:"batch_size"`
	MaxIter   int     `koanf:"max_iter"`
	Tol       float64 `koanf:"tol"`
	Seed      int64   `koanf:"seed"`
}

type IndexConfig struct {
	Backend string `koanf:"backend"`
	Lists   int    `koanf:"lists"`
	Probes  int    `koanf:"probes"`
}

type AuthConfig struct {
	JWTSecret     string        `koanf:"jwt_secret"`
	AccessTTL     time.Duration `koanf:"access_ttl"`
	RefreshTTL    time.Duration `koanf:"refresh_ttl"`
	AdminEmail    string        `koanf:"admin_email"`
	AdminPassword string        `koanf:"admin_password"`
}

type MailConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

type EnrichConfig struct {
	Enabled   bool   `koanf:"enabled"`
	CachePath string `koanf:"cache_path"`
	Workers   int    `koanf:"workers"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			CORSOrigins:     []string{"*"},
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			FrontendURL:     "http://localhost:5173",
		},
		Database: DatabaseConfig{
			URL: "",
		},
		Catalog: CatalogConfig{
			Path:        "data/tracks.csv",
			SnapshotDir: "data/snapshots",
		},
		Cluster: ClusterConfig{
			K:         150,
			BatchSize: 50000,
			MaxIter:   200,
			Tol:       1e-4,
			Seed:      42,
		},
		Index: IndexConfig{
			Backend: "brute",
			Lists:   64,
			Probes:  8,
		},
		Auth: AuthConfig{
			JWTSecret:  "",
			AccessTTL:  24 * time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Mail: MailConfig{
			Enabled: false,
			Port:    587,
		},
		Enrich: EnrichConfig{
			Enabled:   false,
			CachePath: "data/enrich.json",
			Workers:   8,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// MUSICREC_ environment variables, in ascending priority.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// MUSICREC_SERVER_PORT -> server.port, MUSICREC_AUTH_JWT_SECRET ->
	// auth.jwt_secret, etc. Section names are single words so the first
	// underscore splits section from key.
	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := normalizeSlices(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return ""
	}
	return section + "." + rest
}

// normalizeSlices splits comma-separated env strings into the slice fields
// that expect them.
func normalizeSlices(k *koanf.Koanf) error {
	const path = "server.cors_origins"
	val := k.Get(path)
	s, ok := val.(string)
	if !ok {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if err := k.Set(path, out); err != nil {
		return fmt.Errorf("normalizing %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations the process cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Catalog.Path == "" {
		errs = append(errs, errors.New("catalog.path is required"))
	}
	if c.Cluster.K <= 0 {
		errs = append(errs, fmt.Errorf("cluster.k must be positive, got %d", c.Cluster.K))
	}
	if b := c.Index.Backend; b != "brute" && b != "ivf" {
		errs = append(errs, fmt.Errorf("index.backend %q is not brute or ivf", b))
	}
	if c.Database.URL != "" && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required when accounts are enabled"))
	}
	if c.Mail.Enabled && c.Mail.Host == "" {
		errs = append(errs, errors.New("mail.host is required when mail is enabled"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
