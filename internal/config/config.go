// Package config loads the relay configuration from a JSON or YAML file
// with environment-variable expansion, defaults, and validation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the relay. It is loaded once at
// startup and passed by value; nothing mutates it afterwards.
type Config struct {
	General       GeneralConfig       `json:"general" yaml:"general"`
	Webhook       WebhookConfig       `json:"webhook" yaml:"webhook"`
	Channels      ChannelsConfig      `json:"channels" yaml:"channels"`
	Transcription TranscriptionConfig `json:"transcription" yaml:"transcription"`
	Files         FilesConfig         `json:"files" yaml:"files"`
	Delivery      DeliveryConfig      `json:"delivery" yaml:"delivery"`
	Metrics       MetricsConfig       `json:"metrics" yaml:"metrics"`
}

type GeneralConfig struct {
	LogLevel              string `json:"logLevel" yaml:"logLevel"`
	LogFile               string `json:"logFile,omitempty" yaml:"logFile,omitempty"`
	MaxConcurrentMessages int    `json:"maxConcurrentMessages" yaml:"maxConcurrentMessages"`
	// CommandPrefix marks built-in commands (default "!").
	CommandPrefix string `json:"commandPrefix" yaml:"commandPrefix"`
	// AllowFrom is an optional sender allow-list; empty means allow all.
	AllowFrom FlexStringList `json:"allowFrom" yaml:"allowFrom"`
}

// WebhookConfig points at the automation endpoint.
type WebhookConfig struct {
	URL    string `json:"url" yaml:"url"`
	Secret string `json:"secret" yaml:"secret"` // HMAC secret for the per-call JWT
}

type ChannelsConfig struct {
	Discord  DiscordConfig  `json:"discord" yaml:"discord"`
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
}

type DiscordConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Token   string `json:"token" yaml:"token"`
	GuildID string `json:"guildId,omitempty" yaml:"guildId,omitempty"`
	// MessageContent requests the privileged message-content intent.
	MessageContent bool `json:"messageContent" yaml:"messageContent"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Token   string `json:"token" yaml:"token"`
}

// TranscriptionConfig configures the Whisper speech-to-text collaborator.
type TranscriptionConfig struct {
	APIBase  string `json:"apiBase" yaml:"apiBase"`
	APIKey   string `json:"apiKey" yaml:"apiKey"`
	Model    string `json:"model" yaml:"model"`
	Language string `json:"language" yaml:"language"`
}

type FilesConfig struct {
	// MaxSizeBytes caps relayed attachments (default 10 MiB).
	MaxSizeBytes int64 `json:"maxSizeBytes" yaml:"maxSizeBytes"`
}

// DeliveryConfig tunes the long-response delivery policy.
type DeliveryConfig struct {
	MaxMessageLen int    `json:"maxMessageLen" yaml:"maxMessageLen"`
	FileThreshold int    `json:"fileThreshold" yaml:"fileThreshold"`
	Filename      string `json:"filename" yaml:"filename"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// FlexStringList is a []string that can unmarshal from JSON/YAML arrays
// containing both strings and numbers (e.g. ["123", 456] both become
// "123", "456"), and from a single comma-separated string.
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*f = splitList(single)
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, strconv.FormatInt(int64(n), 10))
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

func (f *FlexStringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*f = splitList(value.Value)
		return nil
	case yaml.SequenceNode:
		result := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			result = append(result, item.Value)
		}
		*f = result
		return nil
	default:
		return fmt.Errorf("allowFrom: unsupported YAML node kind %d", value.Kind)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DefaultConfigDir returns the default config directory (~/.relaybot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".relaybot"
	}
	return filepath.Join(home, ".relaybot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads, expands, parses, and validates a config file. The format is
// chosen by extension: .yaml/.yml parse as YAML, everything else as JSON.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Webhook.URL == "" {
		errs = append(errs, "webhook.url is required")
	}
	if cfg.Webhook.Secret == "" {
		errs = append(errs, "webhook.secret is required")
	}
	if cfg.General.MaxConcurrentMessages < 1 || cfg.General.MaxConcurrentMessages > 100 {
		errs = append(errs, "general.maxConcurrentMessages must be between 1 and 100")
	}
	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token == "" {
		errs = append(errs, "channels.discord.token is required when discord is enabled")
	}
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token == "" {
		errs = append(errs, "channels.telegram.token is required when telegram is enabled")
	}
	if cfg.Files.MaxSizeBytes < 1 {
		errs = append(errs, "files.maxSizeBytes must be >= 1")
	}
	if cfg.Delivery.MaxMessageLen < 1 {
		errs = append(errs, "delivery.maxMessageLen must be >= 1")
	}
	if cfg.Delivery.FileThreshold < cfg.Delivery.MaxMessageLen {
		errs = append(errs, "delivery.fileThreshold must be >= delivery.maxMessageLen")
	}
	if cfg.Metrics.Port < 0 || cfg.Metrics.Port > 65535 {
		errs = append(errs, "metrics.port must be between 0 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
