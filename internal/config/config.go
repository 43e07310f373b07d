// Package config provides configuration management using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "option-strategist/internal/errors"
	"option-strategist/internal/logging"
	"option-strategist/internal/security"
)

// MasterPasswordEnv names the variable holding the vault master password.
const MasterPasswordEnv = "STRATEGIST_MASTER_PASSWORD"

// Config holds all configuration for the application.
type Config struct {
	Engine      EngineConfig      `mapstructure:"engine"`
	Data        DataConfig        `mapstructure:"data"`
	Server      ServerConfig      `mapstructure:"server"`
	Logging     logging.LogConfig `mapstructure:"logging"`
	Credentials Credentials       `mapstructure:"-"` // Environment only
	Agents      AgentConfig       `mapstructure:"-"` // Loaded separately
	Dir         string            `mapstructure:"-"`
}

// EngineConfig holds strategy engine settings.
type EngineConfig struct {
	MaxStrategies      int   `mapstructure:"max_strategies"`
	ContractMultiplier int64 `mapstructure:"contract_multiplier"`
	DefaultProbability int   `mapstructure:"default_probability"`
}

// DataConfig holds market data settings.
type DataConfig struct {
	DatabasePath string `mapstructure:"database_path"`
	SnapshotDir  string `mapstructure:"snapshot_dir"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Credentials holds API credentials.
type Credentials struct {
	OpenAI OpenAICredentials
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey  string
	BaseURL string
}

// AgentConfig holds strategy generator settings.
type AgentConfig struct {
	Model             string        `mapstructure:"model"`
	KnowledgeBasePath string        `mapstructure:"knowledge_base_path"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/option-strategist"
	}
	return filepath.Join(home, ".config", "option-strategist")
}

// Load loads configuration from the specified directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	loadDotEnv(configDir)

	cfg := &Config{Dir: configDir}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadAgentConfig(configDir, &cfg.Agents); err != nil {
		return nil, fmt.Errorf("loading agents.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := applyVault(cfg); err != nil {
		return nil, fmt.Errorf("unlocking %s: %w", security.VaultFile, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads the first .env found in the working or config directory.
func loadDotEnv(configDir string) {
	for _, path := range []string{".env", filepath.Join(configDir, ".env")} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// loadConfigFile loads config.toml, creating it from the template if missing.
func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	log := logging.DefaultLogConfig()
	v.SetDefault("engine.max_strategies", 3)
	v.SetDefault("engine.contract_multiplier", 100)
	v.SetDefault("engine.default_probability", 50)
	v.SetDefault("data.database_path", filepath.Join(configDir, "strategist.db"))
	v.SetDefault("data.snapshot_dir", filepath.Join(configDir, "snapshots"))
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("logging.level", log.Level)
	v.SetDefault("logging.console", log.Console)
	v.SetDefault("logging.file", log.File)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "strategist.log"))
	v.SetDefault("logging.max_size", log.MaxSize)
	v.SetDefault("logging.max_backups", log.MaxBackups)
	v.SetDefault("logging.max_age", log.MaxAge)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateConfig(configDir); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

// loadAgentConfig loads agents.toml, creating it from the template if missing.
func loadAgentConfig(configDir string, agents *AgentConfig) error {
	v := viper.New()
	v.SetConfigName("agents")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("knowledge_base_path", "")
	v.SetDefault("requests_per_minute", 20)
	v.SetDefault("timeout", "60s")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateAgentConfig(configDir); err != nil {
			return err
		}
	}

	return v.Unmarshal(agents)
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Credentials.OpenAI.BaseURL = v
	}
	if v := os.Getenv("STRATEGIST_MODEL"); v != "" {
		cfg.Agents.Model = v
	}
	if v := os.Getenv("STRATEGIST_DB"); v != "" {
		cfg.Data.DatabasePath = v
	}
	if v := os.Getenv("STRATEGIST_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}

// applyVault fills credentials the environment left unset from the
// encrypted vault, when both the vault and the master password exist.
func applyVault(cfg *Config) error {
	password := os.Getenv(MasterPasswordEnv)
	vault := security.NewVault(cfg.Dir)
	if password == "" || !vault.Exists() {
		return nil
	}

	creds, err := vault.Load(password)
	if err != nil {
		return err
	}
	if cfg.Credentials.OpenAI.APIKey == "" {
		cfg.Credentials.OpenAI.APIKey = creds.OpenAIKey
	}
	if cfg.Credentials.OpenAI.BaseURL == "" {
		cfg.Credentials.OpenAI.BaseURL = creds.OpenAIBaseURL
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.MaxStrategies < 1 {
		return fmt.Errorf("%w: max_strategies must be at least 1", apperrors.ErrConfigInvalid)
	}
	if c.Engine.ContractMultiplier < 1 {
		return fmt.Errorf("%w: contract_multiplier must be at least 1", apperrors.ErrConfigInvalid)
	}
	if c.Engine.DefaultProbability < 1 || c.Engine.DefaultProbability > 100 {
		return fmt.Errorf("%w: default_probability must be between 1 and 100", apperrors.ErrConfigInvalid)
	}
	if c.Agents.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: requests_per_minute must be non-negative", apperrors.ErrConfigInvalid)
	}
	if c.Agents.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be non-negative", apperrors.ErrConfigInvalid)
	}
	return nil
}

// HasGenerator reports whether an LLM generator can be built.
func (c *Config) HasGenerator() bool {
	return c.Credentials.OpenAI.APIKey != "" && c.Agents.Model != ""
}
