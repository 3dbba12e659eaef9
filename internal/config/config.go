// Package config loads the agent's YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// FileName is the config file inside the data directory.
const FileName = "config.yaml"

// Counter backends.
const (
	BackendEncrypted = "encrypted"
	BackendFile      = "file"
	BackendRedis     = "redis"
)

// Vision providers.
const (
	VisionNone   = "none"
	VisionOllama = "ollama"
)

// Secret names looked up in the encrypted store when the YAML value is empty.
const (
	SecretSMTPPassword  = "smtp_password"
	SecretTelegramToken = "telegram_token"
)

// Config holds contentmon configuration.
type Config struct {
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Guardian   GuardianConfig   `yaml:"guardian"`
	Counter    CounterConfig    `yaml:"counter"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	UI         UIConfig         `yaml:"ui"`
	Vision     VisionConfig     `yaml:"vision"`
	Uninstall  UninstallConfig  `yaml:"uninstall"`
}

type MonitoringConfig struct {
	Enabled         bool          `yaml:"enabled"`
	ScreenInterval  time.Duration `yaml:"screen_interval"`
	NetworkInterval time.Duration `yaml:"network_interval"`
	KeyboardEnabled bool          `yaml:"keyboard_enabled"`
	StrictMode      bool          `yaml:"strict_mode"`
	Stealth         bool          `yaml:"stealth"` // no overlay hub; detections are still journaled
}

type GuardianConfig struct {
	Email string `yaml:"email"`
}

type CounterConfig struct {
	Backend string      `yaml:"backend"` // encrypted | file | redis
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type UIConfig struct {
	Address string `yaml:"address"`
}

type VisionConfig struct {
	Provider string `yaml:"provider"` // none | ollama
	URL      string `yaml:"url"`      // empty: OLLAMA_HOST or the local default
	Model    string `yaml:"model"`
}

type UninstallConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Path returns the config path inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
// Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Monitoring: MonitoringConfig{
			Enabled:         true,
			ScreenInterval:  domain.DefaultScreenInterval,
			NetworkInterval: domain.DefaultNetworkInterval,
			KeyboardEnabled: true,
		},
		Counter: CounterConfig{
			Backend: BackendEncrypted,
		},
		UI: UIConfig{
			Address: "127.0.0.1:47831",
		},
		Vision: VisionConfig{
			Provider: VisionNone,
			Model:    "llava",
		},
		Uninstall: UninstallConfig{
			PollInterval: 10 * time.Second,
		},
	}
}

func applyDefaults(cfg *Config) {
	def := Default()
	cfg.Counter.Backend = strings.ToLower(strings.TrimSpace(cfg.Counter.Backend))
	if cfg.Counter.Backend == "" {
		cfg.Counter.Backend = def.Counter.Backend
	}
	cfg.Vision.Provider = strings.ToLower(strings.TrimSpace(cfg.Vision.Provider))
	if cfg.Vision.Provider == "" {
		cfg.Vision.Provider = def.Vision.Provider
	}
	if cfg.Vision.Model == "" {
		cfg.Vision.Model = def.Vision.Model
	}
	if cfg.UI.Address == "" {
		cfg.UI.Address = def.UI.Address
	}
	if cfg.Uninstall.PollInterval == 0 {
		cfg.Uninstall.PollInterval = def.Uninstall.PollInterval
	}
	cfg.Guardian.Email = strings.TrimSpace(cfg.Guardian.Email)
}

// Validate checks cfg for values the agent cannot run with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Monitoring.ScreenInterval <= 0 {
		return fmt.Errorf("monitoring.screen_interval must be positive")
	}
	if cfg.Monitoring.NetworkInterval <= 0 {
		return fmt.Errorf("monitoring.network_interval must be positive")
	}
	if cfg.Uninstall.PollInterval < 0 {
		return fmt.Errorf("uninstall.poll_interval must not be negative")
	}

	switch cfg.Counter.Backend {
	case BackendEncrypted, BackendFile:
	case BackendRedis:
		if cfg.Counter.Redis.Address == "" {
			return fmt.Errorf("counter.redis.address is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown counter.backend %q (want encrypted, file or redis)", cfg.Counter.Backend)
	}

	switch cfg.Vision.Provider {
	case VisionNone, VisionOllama:
	default:
		return fmt.Errorf("unknown vision.provider %q (want none or ollama)", cfg.Vision.Provider)
	}

	if cfg.Guardian.Email != "" && !strings.Contains(cfg.Guardian.Email, "@") {
		return fmt.Errorf("guardian.email %q is not an email address", cfg.Guardian.Email)
	}
	if cfg.SMTP.Port < 0 || cfg.SMTP.Port > 65535 {
		return fmt.Errorf("smtp.port %d out of range", cfg.SMTP.Port)
	}
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required when telegram.token is set")
	}
	return nil
}

// MonitoringConfig returns the settings the agent controller starts with.
func (c *Config) MonitoringConfig() domain.MonitoringConfig {
	return domain.MonitoringConfig{
		ScreenInterval:  c.Monitoring.ScreenInterval,
		NetworkInterval: c.Monitoring.NetworkInterval,
		KeyboardEnabled: c.Monitoring.KeyboardEnabled,
		StrictMode:      c.Monitoring.StrictMode,
		GuardianAddress: c.Guardian.Email,
	}
}
