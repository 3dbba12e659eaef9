package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.True(t, cfg.Monitoring.Enabled)
	assert.True(t, cfg.Monitoring.KeyboardEnabled)
	assert.False(t, cfg.Monitoring.StrictMode)
	assert.Equal(t, 60*time.Second, cfg.Monitoring.ScreenInterval)
	assert.Equal(t, BackendEncrypted, cfg.Counter.Backend)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
monitoring:
  screen_interval: 30s
  strict_mode: true
guardian:
  email: " parent@example.com "
counter:
  backend: Redis
  redis:
    address: 10.0.0.5:6379
telegram:
  token: "123:abc"
  chat_id: 987654
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Monitoring.ScreenInterval)
	assert.Equal(t, 60*time.Second, cfg.Monitoring.NetworkInterval)
	assert.True(t, cfg.Monitoring.Enabled)
	assert.True(t, cfg.Monitoring.KeyboardEnabled)
	assert.True(t, cfg.Monitoring.StrictMode)
	assert.Equal(t, "parent@example.com", cfg.Guardian.Email)
	assert.Equal(t, BackendRedis, cfg.Counter.Backend)
	assert.Equal(t, "10.0.0.5:6379", cfg.Counter.Redis.Address)
	assert.Equal(t, int64(987654), cfg.Telegram.ChatID)
	assert.Equal(t, VisionNone, cfg.Vision.Provider)
	assert.Equal(t, "llava", cfg.Vision.Model)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_ExplicitFalse(t *testing.T) {
	path := writeConfig(t, `
monitoring:
  enabled: false
  keyboard_enabled: false
  stealth: true
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.False(t, cfg.Monitoring.KeyboardEnabled)
	assert.True(t, cfg.Monitoring.Stealth)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "monitoring: [unclosed")

	_, err := Load(path)

	assert.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "monitoring:\n  screen_interval: soon\n")

	_, err := Load(path)

	assert.Error(t, err)
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"zero screen interval", func(c *Config) { c.Monitoring.ScreenInterval = 0 }, "screen_interval"},
		{"negative network interval", func(c *Config) { c.Monitoring.NetworkInterval = -time.Second }, "network_interval"},
		{"negative poll interval", func(c *Config) { c.Uninstall.PollInterval = -time.Second }, "poll_interval"},
		{"unknown backend", func(c *Config) { c.Counter.Backend = "mongo" }, "unknown counter.backend"},
		{"redis without address", func(c *Config) { c.Counter.Backend = BackendRedis }, "redis.address"},
		{"unknown vision provider", func(c *Config) { c.Vision.Provider = "gpt" }, "vision.provider"},
		{"bad guardian email", func(c *Config) { c.Guardian.Email = "parent" }, "guardian.email"},
		{"bad smtp port", func(c *Config) { c.SMTP.Port = 70000 }, "smtp.port"},
		{"telegram without chat", func(c *Config) { c.Telegram.Token = "t" }, "chat_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)

			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "got %q", err.Error())
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	assert.Error(t, Validate(nil))
}

func TestMonitoringConfig(t *testing.T) {
	cfg := Default()
	cfg.Monitoring.StrictMode = true
	cfg.Monitoring.KeyboardEnabled = false
	cfg.Guardian.Email = "parent@example.com"

	got := cfg.MonitoringConfig()

	assert.Equal(t, domain.MonitoringConfig{
		ScreenInterval:  domain.DefaultScreenInterval,
		NetworkInterval: domain.DefaultNetworkInterval,
		KeyboardEnabled: false,
		StrictMode:      true,
		GuardianAddress: "parent@example.com",
	}, got)
}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/var/lib/contentmon", "config.yaml"), Path("/var/lib/contentmon"))
}
