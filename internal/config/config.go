package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Java     JavaConfig     `yaml:"java" json:"java"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Backups  BackupsConfig  `yaml:"backups" json:"backups"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

// StorageConfig contains storage paths.
type StorageConfig struct {
	JarsDir    string `yaml:"jars_dir" json:"jars_dir"`
	ServersDir string `yaml:"servers_dir" json:"servers_dir"`
	BackupDir  string `yaml:"backup_dir" json:"backup_dir"`
	DataDir    string `yaml:"data_dir" json:"data_dir"`
}

// JavaConfig contains the launcher defaults recorded into new instances.
type JavaConfig struct {
	Path          string `yaml:"path" json:"path"`
	DefaultMemory string `yaml:"default_memory" json:"default_memory"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
}

// BackupsConfig contains backup scheduler settings.
type BackupsConfig struct {
	SchedulerEnabled bool `yaml:"scheduler_enabled" json:"scheduler_enabled"`
	PollSeconds      int  `yaml:"poll_seconds" json:"poll_seconds"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	cfg := Default()

	configPath := os.Getenv("MCAUTO_CONFIG")
	if configPath == "" {
		configPath = resolveConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if jarsDir := os.Getenv("MCAUTO_JARS_DIR"); jarsDir != "" {
		cfg.Storage.JarsDir = jarsDir
	}
	if serversDir := os.Getenv("MCAUTO_SERVERS_DIR"); serversDir != "" {
		cfg.Storage.ServersDir = serversDir
	}
	if backupDir := os.Getenv("MCAUTO_BACKUP_DIR"); backupDir != "" {
		cfg.Storage.BackupDir = backupDir
	}
	if dbPath := os.Getenv("MCAUTO_DATABASE_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if logLevel := os.Getenv("MCAUTO_LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	cfg.normalizeStoragePaths(configPath)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "./data/mcauto.db",
		},
		Storage: StorageConfig{
			JarsDir:    "./minecraft_jars",
			ServersDir: "./minecraft_servers",
			BackupDir:  "",
			DataDir:    "./data",
		},
		Java: JavaConfig{
			Path:          "java",
			DefaultMemory: "4G",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			File:       "",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Backups: BackupsConfig{
			SchedulerEnabled: true,
			PollSeconds:      30,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if strings.TrimSpace(c.Java.Path) == "" {
		return fmt.Errorf("java path must not be empty")
	}
	if strings.TrimSpace(c.Storage.ServersDir) == "" {
		return fmt.Errorf("servers directory must not be empty")
	}
	return nil
}

// Save writes the configuration back to disk.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func resolveConfigPath() string {
	candidates := []string{"./mcauto.yml", "./configs/mcauto.yml"}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "./mcauto.yml"
}

func (c *Config) normalizeStoragePaths(configPath string) {
	baseDir := filepath.Dir(configPath)
	if !filepath.IsAbs(baseDir) {
		if absBase, err := filepath.Abs(baseDir); err == nil {
			baseDir = absBase
		}
	}

	resolvePath := func(value string) string {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return ""
		}
		if filepath.IsAbs(trimmed) {
			return filepath.Clean(trimmed)
		}
		return filepath.Clean(filepath.Join(baseDir, trimmed))
	}

	c.Storage.JarsDir = resolvePath(c.Storage.JarsDir)
	c.Storage.ServersDir = resolvePath(c.Storage.ServersDir)

	if strings.TrimSpace(c.Storage.DataDir) == "" {
		c.Storage.DataDir = filepath.Join(baseDir, "data")
	}
	c.Storage.DataDir = resolvePath(c.Storage.DataDir)

	// An empty backup dir means each instance defaults to a sibling
	// "backups" directory next to the instance itself.
	if strings.TrimSpace(c.Storage.BackupDir) != "" {
		c.Storage.BackupDir = resolvePath(c.Storage.BackupDir)
	}

	if strings.TrimSpace(c.Database.Path) == "" {
		c.Database.Path = filepath.Join(c.Storage.DataDir, "mcauto.db")
	}
	c.Database.Path = resolvePath(c.Database.Path)
}
