package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/justyntemme/sidebar/internal/debug"
	"github.com/justyntemme/sidebar/internal/domain"
)

// Environment overrides applied on Load.
const (
	EnvConfigPath = "SIDEBAR_CONFIG"
	EnvDBPath     = "SIDEBAR_DB_PATH"
)

// Config holds the application settings loaded from config.yaml
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Files    FilesConfig    `yaml:"files"`
	Panels   PanelsConfig   `yaml:"panels"`
}

// DatabaseConfig locates the SQLite file
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `yaml:"level"` // "debug" | "info" | "warn" | "error"
	Debug string `yaml:"debug"` // debug categories, same syntax as SIDEBAR_DEBUG
}

// FilesConfig holds defaults for the file manager
type FilesConfig struct {
	// DefaultBasePath seeds files_base_path when the database has none.
	DefaultBasePath string `yaml:"default_base_path"`
}

// PanelsConfig holds defaults for newly pinned panels
type PanelsConfig struct {
	DefaultWidth      int    `yaml:"default_width"`
	DefaultHeight     int    `yaml:"default_height"`
	GlobalSearchName  string `yaml:"global_search_name"`
	GlobalSearchColor string `yaml:"global_search_color"`
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Validate checks value ranges. Nested sections validate themselves.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Database),
		validation.Field(&c.Logging),
		validation.Field(&c.Panels),
	)
}

func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Path, validation.Required),
	)
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
	)
}

func (p PanelsConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.DefaultWidth, validation.Min(1)),
		validation.Field(&p.DefaultHeight, validation.Min(1)),
		validation.Field(&p.GlobalSearchColor, validation.Match(hexColor)),
	)
}

// ZapLevel maps the configured level name to a zap level.
func (l LoggingConfig) ZapLevel() zapcore.Level {
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Manager handles loading, saving, and accessing configuration
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error // Stores parsing error if config failed to load
	logger   *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for load and save messages.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l.Named("Config")
		}
	}
}

// NewManager creates a configuration manager for path. An empty path means
// ConfigPath().
func NewManager(path string, opts ...Option) *Manager {
	if path == "" {
		path = ConfigPath()
	}
	m := &Manager{
		config: DefaultConfig(),
		path:   path,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(configDir(), "sidebar.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Panels: PanelsConfig{
			DefaultWidth:      350,
			DefaultHeight:     500,
			GlobalSearchName:  "Global Search",
			GlobalSearchColor: "#ff6b00",
		},
	}
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "sidebar")
}

// ConfigPath returns the config file path: $SIDEBAR_CONFIG, or
// ~/.config/sidebar/config.yaml
func ConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return filepath.Join(configDir(), "config.yaml")
}

// Path returns the file the manager reads and writes.
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Load reads the configuration from the config file
// If the file doesn't exist, creates it with defaults
// If parsing or validation fails, stores the error and uses defaults
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.parseErr = nil

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		m.logger.Error("failed to create config directory", zap.String("dir", dir), zap.Error(err))
		return fmt.Errorf("%w: create config directory: %v", domain.ErrIO, err)
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		m.logger.Info("creating default config", zap.String("path", m.path))
		m.config = DefaultConfig()
		if saveErr := m.saveUnlocked(); saveErr != nil {
			m.logger.Error("failed to save default config", zap.Error(saveErr))
			return saveErr
		}
		m.applyEnvUnlocked()
		return nil
	}
	if err != nil {
		m.logger.Error("failed to read config", zap.String("path", m.path), zap.Error(err))
		return fmt.Errorf("%w: read config: %v", domain.ErrIO, err)
	}

	// Start from defaults so keys missing in the file keep their default value
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		m.logger.Warn("config parse error, using defaults", zap.Error(err))
		m.parseErr = fmt.Errorf("%w: %v", domain.ErrParse, err)
		m.config = DefaultConfig()
		m.applyEnvUnlocked()
		return nil // Don't return error - we're using defaults
	}
	if err := cfg.Validate(); err != nil {
		m.logger.Warn("invalid config, using defaults", zap.Error(err))
		m.parseErr = fmt.Errorf("%w: %v", domain.ErrValidation, err)
		cfg = DefaultConfig()
	}

	debug.Log(debug.CONFIG, "loaded %s", m.path)
	m.config = cfg
	m.applyEnvUnlocked()
	return nil
}

// applyEnvUnlocked applies environment overrides (caller must hold lock)
func (m *Manager) applyEnvUnlocked() {
	if p := os.Getenv(EnvDBPath); p != "" {
		debug.Log(debug.CONFIG, "database path overridden by %s", EnvDBPath)
		m.config.Database.Path = p
	}
}

// saveUnlocked saves config without acquiring lock (caller must hold lock)
func (m *Manager) saveUnlocked() error {
	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write config: %v", domain.ErrIO, err)
	}
	return nil
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnlocked()
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return *DefaultConfig()
	}
	return *m.config
}

// ParseError returns the parsing error if config failed to load
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// DatabasePath returns the configured database file
func (m *Manager) DatabasePath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Database.Path
}

// PanelDefaults returns the panel defaults section
func (m *Manager) PanelDefaults() PanelsConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Panels
}

// GenerateConfig backs up an existing config and writes a fresh default one.
// An empty path means ConfigPath(). Returns the backup path if a backup was
// created, or empty string if there was no existing config.
func GenerateConfig(path string) (backupPath string, err error) {
	if path == "" {
		path = ConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		timestamp := time.Now().Format("20060102-150405")
		backupPath = filepath.Join(filepath.Dir(path), "config.backup."+timestamp+".yaml")

		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read existing config: %w", err)
		}
		if err := os.WriteFile(backupPath, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return backupPath, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return backupPath, fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return backupPath, fmt.Errorf("failed to write config: %w", err)
	}

	return backupPath, nil
}
