package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/hylla/vettrack/internal/domain"
)

// StoreDriver selects the report ledger backend.
type StoreDriver string

const (
	StoreDriverSQLite StoreDriver = "sqlite"
	StoreDriverMemory StoreDriver = "memory"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Identity IdentityConfig `toml:"identity"`
	Vetting  VettingConfig  `toml:"vetting"`
	Data     DataConfig     `toml:"data"`
	Server   ServerConfig   `toml:"server"`
}

type DatabaseConfig struct {
	Driver StoreDriver `toml:"driver"`
	Path   string      `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"` // debug | info | warn | error
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig controls the rotated dev-mode log file.
type DevFileConfig struct {
	Enabled    bool   `toml:"enabled"`
	Dir        string `toml:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

type IdentityConfig struct {
	User         string `toml:"user"`
	Organization string `toml:"organization"`
}

type VettingConfig struct {
	Coverage      string   `toml:"coverage"`
	Categories    []string `toml:"categories"`
	Parallelism   int      `toml:"parallelism"`
	PathCacheSize int      `toml:"path_cache_size"`
}

// DataConfig points at locale data, baseline data and optional rule overrides.
// Empty CoverageFile and HintsFile use the embedded defaults.
type DataConfig struct {
	Dir          string `toml:"dir"`
	BaselineDir  string `toml:"baseline_dir"`
	CoverageFile string `toml:"coverage_file"`
	HintsFile    string `toml:"hints_file"`
}

type ServerConfig struct {
	Bind            string `toml:"bind"`
	APIEndpoint     string `toml:"api_endpoint"`
	MCPEndpoint     string `toml:"mcp_endpoint"`
	MetricsEndpoint string `toml:"metrics_endpoint"`
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Driver: StoreDriverSQLite,
			Path:   dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled:    true,
				Dir:        ".vettrack/log",
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 14,
			},
		},
		Vetting: VettingConfig{
			Coverage:      domain.CoverageModern.String(),
			Parallelism:   4,
			PathCacheSize: 4096,
		},
		Server: ServerConfig{
			Bind:            "127.0.0.1:8080",
			APIEndpoint:     "/api/v1",
			MCPEndpoint:     "/mcp",
			MetricsEndpoint: "/metrics",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case StoreDriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("database path is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("invalid database.driver: %q", c.Database.Driver)
	}

	level := strings.TrimSpace(strings.ToLower(c.Logging.Level))
	if !slices.Contains(validLogLevels, level) {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	dev := c.Logging.DevFile
	if dev.MaxSizeMB < 0 || dev.MaxBackups < 0 || dev.MaxAgeDays < 0 {
		return errors.New("logging.dev_file limits must be >= 0")
	}

	if _, err := c.CoverageLevel(); err != nil {
		return fmt.Errorf("invalid vetting.coverage: %w", err)
	}
	if _, err := domain.ParseCategories(c.Vetting.Categories); err != nil {
		return fmt.Errorf("invalid vetting.categories: %w", err)
	}
	if c.Vetting.Parallelism < 0 {
		return errors.New("vetting.parallelism must be >= 0")
	}
	if c.Vetting.PathCacheSize < 0 {
		return errors.New("vetting.path_cache_size must be >= 0")
	}

	if strings.TrimSpace(c.Identity.User) != "" {
		if _, err := domain.ParseUserID(c.Identity.User); err != nil {
			return fmt.Errorf("invalid identity.user: %w", err)
		}
	}

	return nil
}

// CoverageLevel returns the configured default coverage level.
func (c Config) CoverageLevel() (domain.CoverageLevel, error) {
	return domain.ParseCoverageLevel(c.Vetting.Coverage)
}

// Categories returns the configured default categories; empty means all.
func (c Config) Categories() []domain.Category {
	categories, err := domain.ParseCategories(c.Vetting.Categories)
	if err != nil {
		return nil
	}
	return categories
}

// ErrConfigExists reports that Save refused to replace an existing config file.
var ErrConfigExists = errors.New("config file already exists")

// Save validates cfg and writes it as TOML at path, creating the parent dir.
// An existing file is kept unless overwrite is set.
func Save(path string, cfg Config, overwrite bool) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
		return fmt.Errorf("write config: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("write config: %w", err)
	}
	return f.Close()
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
