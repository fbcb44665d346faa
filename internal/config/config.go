package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Common    CommonConfig    `yaml:"common"`
	Site      SiteConfig      `yaml:"site"`
	Proxy     ProxyConfig     `yaml:"proxy"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	Fallback  FallbackConfig  `yaml:"fallback"`
	Poster    PosterConfig    `yaml:"poster"`
	DebugMode DebugModeConfig `yaml:"debug_mode"`
}

type CommonConfig struct {
	Username   string `yaml:"username"`
	Limit      int    `yaml:"limit"`
	MinRecords int    `yaml:"min_records"`
	Source     string `yaml:"source"`
	Sleep      int    `yaml:"sleep"` // milliseconds between accepted items
	OutputPath string `yaml:"output_path"`
}

type SiteConfig struct {
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"` // 为空时使用内置浏览器 UA
}

type ProxyConfig struct {
	Switch     bool   `yaml:"switch"`
	Proxy      string `yaml:"proxy"`
	Timeout    int    `yaml:"timeout"`
	Retry      int    `yaml:"retry"`
	Type       string `yaml:"type"`
	CACertFile string `yaml:"cacert_file"`
}

// DefaultsConfig holds the values used when a field cannot be resolved
type DefaultsConfig struct {
	Year           string  `yaml:"year"`
	Rating         float64 `yaml:"rating"`
	ReviewTemplate string  `yaml:"review_template"`
	DateLayout     string  `yaml:"date_layout"`
}

type FallbackConfig struct {
	Path string `yaml:"path"`
}

type PosterConfig struct {
	Download         bool   `yaml:"download"`
	Folder           string `yaml:"folder"`
	ParallelDownload int    `yaml:"parallel_download"`
}

type DebugModeConfig struct {
	Switch bool `yaml:"switch"`
}

// Review sources
const (
	SourceHTML = "html"
	SourceRSS  = "rss"
	SourceAuto = "auto"
)

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Common: CommonConfig{
			Username:   "",
			Limit:      4,
			MinRecords: 2,
			Source:     SourceAuto,
			Sleep:      400,
			OutputPath: filepath.Join("public", "data", "letterboxd_reviews.json"),
		},
		Site: SiteConfig{
			BaseURL: "https://letterboxd.com",
		},
		Proxy: ProxyConfig{
			Switch:  false,
			Proxy:   "",
			Timeout: 25,
			Retry:   1,
			Type:    "socks5",
		},
		Defaults: DefaultsConfig{
			Year:           "2024",
			Rating:         4.0,
			ReviewTemplate: "A great film! Really enjoyed watching %s.",
			DateLayout:     "January 02, 2006",
		},
		Poster: PosterConfig{
			Download:         false,
			Folder:           filepath.Join("public", "data", "posters"),
			ParallelDownload: 1,
		},
	}
}

// SearchPaths returns the locations Load looks at, in order
func SearchPaths(configPath string) []string {
	home := os.Getenv("HOME")
	paths := []string{}
	if configPath != "" {
		paths = append(paths, configPath)
	}
	return append(paths,
		filepath.Join(".", "config.yaml"),
		filepath.Join(".", "config.yml"),
		filepath.Join(home, ".lbx.yaml"),
		filepath.Join(home, ".config", "lbx", "config.yaml"),
	)
}

// Load loads configuration from the first existing search path, then applies
// .env and environment overrides and validates the result.
func Load(configPath string) (*Config, error) {
	var actualPath string
	for _, path := range SearchPaths(configPath) {
		if _, err := os.Stat(path); err == nil {
			actualPath = path
			break
		}
	}

	var cfg *Config
	if actualPath == "" {
		created, err := createDefaultConfig(filepath.Join(".", "config.yaml"))
		if err != nil {
			return nil, err
		}
		cfg = created
	} else {
		parsed, err := LoadFile(actualPath)
		if err != nil {
			return nil, err
		}
		cfg = parsed
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	ApplyEnvOverrides(cfg)

	if err := NewBasicConfigValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile parses a single YAML file on top of the defaults
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// createDefaultConfig writes the built-in configuration to path
func createDefaultConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write default config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads ./.env into the process environment if it exists.
// Variables already set are left alone.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load .env: %w", err)
}

// ApplyEnvOverrides copies supported environment variables onto cfg
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LETTERBOXD_USERNAME"); v != "" {
		cfg.Common.Username = v
	}
	if v := os.Getenv("LETTERBOXD_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Common.Limit = n
		}
	}
	if v := os.Getenv("LETTERBOXD_SOURCE"); v != "" {
		cfg.Common.Source = strings.ToLower(v)
	}
	if v := os.Getenv("LETTERBOXD_OUTPUT"); v != "" {
		cfg.Common.OutputPath = v
	}
	if v := os.Getenv("LBX_PROXY"); v != "" {
		cfg.Proxy.Switch = true
		cfg.Proxy.Proxy = v
		if i := strings.Index(v, "://"); i > 0 {
			cfg.Proxy.Type = v[:i]
		}
	}
}
