// Package config loads shadowbox settings from SHADOWBOX_* environment variables.
//
// Environment Variables:
//   - SHADOWBOX_ARTIFACT_OFFLINE_DIR, SHADOWBOX_ARTIFACT_PROPERTIES
//   - SHADOWBOX_ARTIFACT_REPOSITORY, SHADOWBOX_ARTIFACT_CACHE_DIR, SHADOWBOX_ARTIFACT_TTL
//   - SHADOWBOX_ARTIFACT_RPS, SHADOWBOX_ARTIFACT_TIMEOUT
//   - SHADOWBOX_CACHE_SIZE_FACTOR
//   - SHADOWBOX_PROJECT_FILE, SHADOWBOX_PROJECT_MANIFEST, SHADOWBOX_PROJECT_VERSIONS
//   - SHADOWBOX_LOG_LEVEL, SHADOWBOX_LOG_DEV
//   - SHADOWBOX_MIRROR_HOST, SHADOWBOX_MIRROR_PORT, SHADOWBOX_MIRROR_ORIGINS
//   - SHADOWBOX_MIRROR_RPS, SHADOWBOX_MIRROR_BURST
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix of every environment variable
const Prefix = "shadowbox"

// Config holds all shadowbox configuration.
type Config struct {
	Artifact ArtifactConfig `envconfig:"ARTIFACT"`
	Cache    CacheConfig    `envconfig:"CACHE"`
	Project  ProjectConfig  `envconfig:"PROJECT"`
	Logging  LogConfig      `envconfig:"LOG"`
	Mirror   MirrorConfig   `envconfig:"MIRROR"`
}

// ArtifactConfig selects how framework artifacts are located.
type ArtifactConfig struct {
	// OfflineDir, when set, is the only place artifacts are looked up
	OfflineDir string `envconfig:"OFFLINE_DIR"`
	// Properties is a TOML file mapping coordinates to local paths
	Properties string        `envconfig:"PROPERTIES"`
	Repository string        `envconfig:"REPOSITORY" default:"https://repo1.maven.org/maven2"`
	CacheDir   string        `envconfig:"CACHE_DIR"`
	TTL        time.Duration `envconfig:"TTL" default:"24h"`
	RPS        float64       `envconfig:"RPS" default:"0"`
	Timeout    time.Duration `envconfig:"TIMEOUT" default:"5m"`
	// StaleFallback serves an expired cache entry when the repository fails
	StaleFallback bool `envconfig:"STALE_FALLBACK" default:"false"`
}

// CacheConfig sizes the environment cache.
type CacheConfig struct {
	SizeFactor int `envconfig:"SIZE_FACTOR" default:"3"`
}

// ProjectConfig locates project level test configuration.
type ProjectConfig struct {
	File     string `envconfig:"FILE" default:"shadowbox.toml"`
	Manifest string `envconfig:"MANIFEST"`
	// Versions restricts every run to these levels when set
	Versions []int `envconfig:"VERSIONS"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LEVEL" default:"info"`
	Development bool   `envconfig:"DEV" default:"false"`
}

// MirrorConfig holds the artifact mirror server configuration.
type MirrorConfig struct {
	Host    string   `envconfig:"HOST" default:"127.0.0.1"`
	Port    string   `envconfig:"PORT" default:"8765"`
	Origins []string `envconfig:"ORIGINS" default:"*"`
	// RPS limits requests per client; zero disables limiting
	RPS   float64 `envconfig:"RPS" default:"0"`
	Burst int     `envconfig:"BURST" default:"50"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Artifact.CacheDir = resolveCacheDir(cfg.Artifact.CacheDir)
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Artifact: ArtifactConfig{
			Repository: "https://repo1.maven.org/maven2",
			CacheDir:   resolveCacheDir(""),
			TTL:        24 * time.Hour,
			Timeout:    5 * time.Minute,
		},
		Cache: CacheConfig{
			SizeFactor: 3,
		},
		Project: ProjectConfig{
			File: "shadowbox.toml",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Mirror: MirrorConfig{
			Host:    "127.0.0.1",
			Port:    "8765",
			Origins: []string{"*"},
			Burst:   50,
		},
	}
}

// Addr returns the mirror listen address
func (m MirrorConfig) Addr() string {
	return m.Host + ":" + m.Port
}

func resolveCacheDir(dir string) string {
	if dir != "" {
		return dir
	}
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "shadowbox", "artifacts")
	}
	return filepath.Join(os.TempDir(), "shadowbox", "artifacts")
}
