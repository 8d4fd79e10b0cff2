package config

import (
	"os"
	"path/filepath"
	"testing"
)

// validConfig returns defaults completed with the required webhook settings.
func validConfig() *Config {
	cfg := Defaults()
	cfg.Webhook.URL = "https://n8n.example.com/webhook/bot"
	cfg.Webhook.Secret = "secret"
	return cfg
}

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_MissingWebhook(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing webhook url and secret")
	}
}

func TestValidate_ConcurrencyBounds(t *testing.T) {
	cfg := validConfig()
	cfg.General.MaxConcurrentMessages = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxConcurrentMessages=0")
	}

	cfg = validConfig()
	cfg.General.MaxConcurrentMessages = 101
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxConcurrentMessages=101")
	}

	cfg = validConfig()
	cfg.General.MaxConcurrentMessages = 100
	if err := Validate(cfg); err != nil {
		t.Fatalf("maxConcurrentMessages=100 should be valid: %v", err)
	}
}

func TestValidate_EnabledChannelNeedsToken(t *testing.T) {
	cfg := validConfig()
	cfg.Channels.Discord.Enabled = true
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for enabled discord without token")
	}

	cfg = validConfig()
	cfg.Channels.Telegram.Enabled = true
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for enabled telegram without token")
	}
}

func TestValidate_DeliveryThresholds(t *testing.T) {
	cfg := validConfig()
	cfg.Delivery.FileThreshold = cfg.Delivery.MaxMessageLen - 1
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for fileThreshold below maxMessageLen")
	}
}

func TestValidate_InvalidMetricsPort(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Port = 70000
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for port > 65535")
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := validConfig()
	original.General.CommandPrefix = "?"

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.General.CommandPrefix != "?" {
		t.Errorf("expected prefix ?, got %q", loaded.General.CommandPrefix)
	}
	if loaded.Webhook.URL != original.Webhook.URL {
		t.Errorf("webhook url lost in round trip")
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
webhook:
  url: https://n8n.example.com/webhook/bot
  secret: yaml-secret
general:
  allowFrom: "123, 456"
channels:
  discord:
    enabled: true
    token: tok
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if cfg.Webhook.Secret != "yaml-secret" {
		t.Errorf("yaml secret not parsed: %q", cfg.Webhook.Secret)
	}
	if len(cfg.General.AllowFrom) != 2 || cfg.General.AllowFrom[0] != "123" {
		t.Errorf("comma list not split: %v", cfg.General.AllowFrom)
	}
	// Defaults survive a partial file.
	if cfg.Delivery.MaxMessageLen != 2000 {
		t.Errorf("defaults lost: %d", cfg.Delivery.MaxMessageLen)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("RELAY_SECRET", "from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
  "webhook": {"url": "${RELAY_URL:-https://fallback.example.com}", "secret": "${RELAY_SECRET}"}
}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Webhook.Secret != "from-env" {
		t.Errorf("env var not expanded: %q", cfg.Webhook.Secret)
	}
	if cfg.Webhook.URL != "https://fallback.example.com" {
		t.Errorf("default value not applied: %q", cfg.Webhook.URL)
	}
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"webhook": {"url": "https://x"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing secret")
	}
}

// --- FlexStringList ---

func TestFlexStringList_MixedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
  "webhook": {"url": "https://x", "secret": "s"},
  "general": {"allowFrom": ["123", 456]}
}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"123", "456"}
	if len(cfg.General.AllowFrom) != 2 {
		t.Fatalf("expected 2 entries, got %v", cfg.General.AllowFrom)
	}
	for i, w := range want {
		if cfg.General.AllowFrom[i] != w {
			t.Errorf("entry %d: expected %q, got %q", i, w, cfg.General.AllowFrom[i])
		}
	}
}

// --- Accessors ---

func TestGetByPath(t *testing.T) {
	cfg := validConfig()
	v, err := GetByPath(cfg, "webhook.url")
	if err != nil {
		t.Fatal(err)
	}
	if v != "https://n8n.example.com/webhook/bot" {
		t.Errorf("unexpected value %v", v)
	}

	if _, err := GetByPath(cfg, "webhook.nonexistent"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSetByPath(t *testing.T) {
	cfg := validConfig()
	if err := SetByPath(cfg, "delivery.maxMessageLen", "1500"); err != nil {
		t.Fatal(err)
	}
	if cfg.Delivery.MaxMessageLen != 1500 {
		t.Errorf("expected 1500, got %d", cfg.Delivery.MaxMessageLen)
	}

	if err := SetByPath(cfg, "channels.discord.enabled", "true"); err != nil {
		t.Fatal(err)
	}
	if !cfg.Channels.Discord.Enabled {
		t.Error("expected discord enabled")
	}
}

func TestSanitize(t *testing.T) {
	cfg := validConfig()
	cfg.Webhook.Secret = "super-secret-value"
	cfg.Channels.Discord.Token = "discord-token-value"

	safe := Sanitize(cfg)
	if safe.Webhook.Secret == cfg.Webhook.Secret {
		t.Error("secret not masked")
	}
	if safe.Channels.Discord.Token == cfg.Channels.Discord.Token {
		t.Error("token not masked")
	}
	// Original untouched.
	if cfg.Webhook.Secret != "super-secret-value" {
		t.Error("sanitize must not mutate the original")
	}
}

func TestListPaths(t *testing.T) {
	cfg := validConfig()
	paths := ListPaths(cfg)

	if paths["webhook.url"] != "https://n8n.example.com/webhook/bot" {
		t.Errorf("expected webhook.url, got %v", paths["webhook.url"])
	}
	if _, ok := paths["channels.discord.enabled"]; !ok {
		t.Error("expected nested channel paths to be flattened")
	}
	// Only leaves, never intermediate objects.
	if _, ok := paths["webhook"]; ok {
		t.Error("intermediate objects must not appear as paths")
	}
}

func TestExpandEnvVars_KeepsUnknown(t *testing.T) {
	out := ExpandEnvVars("value: ${DEFINITELY_NOT_SET_XYZ}")
	if out != "value: ${DEFINITELY_NOT_SET_XYZ}" {
		t.Errorf("unset var without default should stay verbatim, got %q", out)
	}
}
