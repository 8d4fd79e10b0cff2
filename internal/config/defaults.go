package config

// Defaults returns the configuration a fresh install starts from.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:              "info",
			MaxConcurrentMessages: 3,
			CommandPrefix:         "!",
		},
		Webhook: WebhookConfig{},
		Channels: ChannelsConfig{
			Discord: DiscordConfig{
				Enabled:        false,
				MessageContent: true,
			},
			Telegram: TelegramConfig{
				Enabled: false,
			},
		},
		Transcription: TranscriptionConfig{
			APIBase:  "https://api.groq.com/openai/v1",
			Model:    "whisper-large-v3",
			Language: "fr",
		},
		Files: FilesConfig{
			MaxSizeBytes: 10 * 1024 * 1024,
		},
		Delivery: DeliveryConfig{
			MaxMessageLen: 2000,
			FileThreshold: 4000,
			Filename:      "response.txt",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Host:     "127.0.0.1",
			Port:     9090,
			Endpoint: "/metrics",
		},
	}
}
