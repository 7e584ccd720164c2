package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envConfigPath = "SELFBOT_CONFIG"
	envAPIID      = "SELFBOT_API_ID"
	envAPIHash    = "SELFBOT_API_HASH"

	DefaultPrefix      = "."
	DefaultLanguage    = "ru"
	DefaultSessionFile = "selfbot.session"
	DefaultLogFile     = "selfbot.log"
	DefaultModulesDir  = "modules"
	DefaultBackupsDir  = "backups"
	DefaultIPInfoURL   = "http://ip-api.com/json"
	DefaultEditRate    = 20
)

// ErrNotFound is returned by LoadConfig when no config file exists yet.
var ErrNotFound = errors.New("config file not found")

// Languages lists the supported interface languages.
var Languages = []string{"ru", "en"}

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram" json:"telegram"`
	Bot      BotConfig      `mapstructure:"bot" json:"bot"`
	Paths    PathsConfig    `mapstructure:"paths" json:"paths"`
	IPInfo   IPInfoConfig   `mapstructure:"ipinfo" json:"ipinfo"`
	Logging  LoggingConfig  `mapstructure:"logging" json:"logging"`
	Status   StatusConfig   `mapstructure:"status" json:"status"`
	Notify   NotifyConfig   `mapstructure:"notify" json:"notify"`
}

// TelegramConfig holds the MTProto application credentials and session location.
type TelegramConfig struct {
	APIID       int    `mapstructure:"api_id" json:"api_id"`
	APIHash     string `mapstructure:"api_hash" json:"api_hash"`
	SessionFile string `mapstructure:"session_file" json:"session_file"`
	EditRate    int    `mapstructure:"edit_rate" json:"edit_rate"`
}

// BotConfig controls command parsing and presentation.
type BotConfig struct {
	Prefix   string `mapstructure:"prefix" json:"prefix"`
	Language string `mapstructure:"language" json:"language"`
	OwnerID  string `mapstructure:"owner_id" json:"owner_id"`
}

// PathsConfig locates the files and directories the bot reads and writes.
type PathsConfig struct {
	ModulesDir string `mapstructure:"modules_dir" json:"modules_dir"`
	BackupsDir string `mapstructure:"backups_dir" json:"backups_dir"`
	TempDir    string `mapstructure:"temp_dir" json:"temp_dir"`
	LogFile    string `mapstructure:"log_file" json:"log_file"`
}

// IPInfoConfig configures the geolocation lookup endpoint.
type IPInfoConfig struct {
	BaseURL string `mapstructure:"base_url" json:"base_url"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `mapstructure:"format" json:"format,omitempty"`
	Level     string `mapstructure:"level" json:"level,omitempty"`
	AddSource bool   `mapstructure:"add_source" json:"add_source,omitempty"`
}

// StatusConfig configures the local HTTP status server.
type StatusConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Host    string `mapstructure:"host" json:"host"`
	Port    int    `mapstructure:"port" json:"port"`
}

// NotifyConfig configures owner notifications through the Bot API.
type NotifyConfig struct {
	BotToken string `mapstructure:"bot_token" json:"bot_token"`
}

// Default returns a config with every optional field populated.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	if c.Telegram.SessionFile == "" {
		c.Telegram.SessionFile = DefaultSessionFile
	}
	if c.Telegram.EditRate <= 0 {
		c.Telegram.EditRate = DefaultEditRate
	}
	if c.Bot.Prefix == "" {
		c.Bot.Prefix = DefaultPrefix
	}
	c.Bot.Language = strings.ToLower(strings.TrimSpace(c.Bot.Language))
	if c.Bot.Language == "" {
		c.Bot.Language = DefaultLanguage
	}
	c.Bot.OwnerID = strings.TrimSpace(c.Bot.OwnerID)
	if c.Paths.ModulesDir == "" {
		c.Paths.ModulesDir = DefaultModulesDir
	}
	if c.Paths.BackupsDir == "" {
		c.Paths.BackupsDir = DefaultBackupsDir
	}
	if c.Paths.TempDir == "" {
		c.Paths.TempDir = os.TempDir()
	}
	if c.Paths.LogFile == "" {
		c.Paths.LogFile = DefaultLogFile
	}
	if c.IPInfo.BaseURL == "" {
		c.IPInfo.BaseURL = DefaultIPInfoURL
	}
}

// Validate reports the first field that makes the config unusable.
func (c *Config) Validate() error {
	if c.Telegram.APIID <= 0 {
		return errors.New("telegram.api_id must be a positive integer")
	}
	if strings.TrimSpace(c.Telegram.APIHash) == "" {
		return errors.New("telegram.api_hash is required")
	}
	if c.Bot.Prefix == "" {
		return errors.New("bot.prefix must not be empty")
	}
	if !SupportedLanguage(c.Bot.Language) {
		return fmt.Errorf("bot.language %q is not one of %s", c.Bot.Language, strings.Join(Languages, ", "))
	}
	if c.Bot.OwnerID != "" {
		if _, err := strconv.ParseInt(c.Bot.OwnerID, 10, 64); err != nil {
			return fmt.Errorf("bot.owner_id %q is not a numeric user id", c.Bot.OwnerID)
		}
	}
	if c.Status.Enabled && (c.Status.Port < 0 || c.Status.Port > 65535) {
		return fmt.Errorf("status.port %d is out of range", c.Status.Port)
	}
	return nil
}

// SupportedLanguage reports whether lang is a known interface language.
func SupportedLanguage(lang string) bool {
	for _, known := range Languages {
		if lang == known {
			return true
		}
	}
	return false
}

// OwnerChatID returns the numeric owner id, or zero when unset.
func (c *Config) OwnerChatID() int64 {
	id, err := strconv.ParseInt(c.Bot.OwnerID, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// LoadConfig resolves config.json, unmarshals it, and applies environment overrides.
//
// ErrNotFound is returned when no candidate file exists so callers can fall back
// to interactive setup.
func LoadConfig() (*Config, string, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	configPath, err := findConfigPath()
	if err != nil {
		return nil, "", err
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, configPath, err
	}
	return cfg, configPath, nil
}

// Load reads one config file with viper.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	cfg.ApplyDefaults()

	return &cfg, nil
}

// Save writes cfg as JSON to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("json")
	v.Set("telegram", map[string]any{
		"api_id":       cfg.Telegram.APIID,
		"api_hash":     cfg.Telegram.APIHash,
		"session_file": cfg.Telegram.SessionFile,
		"edit_rate":    cfg.Telegram.EditRate,
	})
	v.Set("bot", map[string]any{
		"prefix":   cfg.Bot.Prefix,
		"language": cfg.Bot.Language,
		"owner_id": cfg.Bot.OwnerID,
	})
	v.Set("paths", map[string]any{
		"modules_dir": cfg.Paths.ModulesDir,
		"backups_dir": cfg.Paths.BackupsDir,
		"temp_dir":    cfg.Paths.TempDir,
		"log_file":    cfg.Paths.LogFile,
	})
	v.Set("ipinfo", map[string]any{"base_url": cfg.IPInfo.BaseURL})
	v.Set("logging", map[string]any{
		"format":     cfg.Logging.Format,
		"level":      cfg.Logging.Level,
		"add_source": cfg.Logging.AddSource,
	})
	v.Set("status", map[string]any{
		"enabled": cfg.Status.Enabled,
		"host":    cfg.Status.Host,
		"port":    cfg.Status.Port,
	})
	v.Set("notify", map[string]any{"bot_token": cfg.Notify.BotToken})

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// DefaultPath is where interactive setup stores its answers.
func DefaultPath() string {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		return value
	}
	return "config.json"
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if raw := strings.TrimSpace(os.Getenv(envAPIID)); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			cfg.Telegram.APIID = id
		}
	}
	if hash := strings.TrimSpace(os.Getenv(envAPIHash)); hash != "" {
		cfg.Telegram.APIHash = hash
	}
}

// findConfigPath resolves the active config file location.
//
// Precedence is SELFBOT_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		info, err := os.Stat(value)
		if err == nil && !info.IsDir() {
			return value, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, value)
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w (checked %s and %s)", ErrNotFound, candidates[0], candidates[1])
}
