package config

// DemoConfig holds settings for the demo HTTP server.
type DemoConfig struct {
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool
}

// LoadDemo reads demo server configuration from environment variables.
func LoadDemo() (*DemoConfig, error) {
	return &DemoConfig{
		BindAddr:         getEnvOrDefault("DEMO_BIND_ADDR", "0.0.0.0:8000"),
		PortCandidates:   getEnvListOrDefault("DEMO_PORT_CANDIDATES", []string{"0.0.0.0:8001", "0.0.0.0:8002", "0.0.0.0:8080"}),
		PortAutoFallback: getEnvBoolOrDefault("DEMO_PORT_AUTO_FALLBACK", true),
	}, nil
}

// BotConfig holds settings for the Telegram bot and its scheduler.
type BotConfig struct {
	Token          string
	ChannelID      string
	APIBaseURL     string
	PollTimeoutSec int
	ScheduleFile   string
	NtfyEndpoint   string
}

// LoadBot reads bot configuration from environment variables.
func LoadBot() (*BotConfig, error) {
	cfg := &BotConfig{
		Token:          getEnvOrDefault("TELEGRAM_BOT_TOKEN", ""),
		ChannelID:      getEnvOrDefault("TELEGRAM_CHANNEL_ID", ""),
		APIBaseURL:     getEnvOrDefault("TELEGRAM_API_URL", "https://api.telegram.org"),
		PollTimeoutSec: getEnvIntOrDefault("TELEGRAM_POLL_TIMEOUT_SEC", 30),
		ScheduleFile:   getEnvOrDefault("SCHEDULE_FILE", ""),
		NtfyEndpoint:   getEnvOrDefault("NTFY_ENDPOINT", ""),
	}
	if cfg.Token == "" {
		return nil, errMissing("TELEGRAM_BOT_TOKEN")
	}
	return cfg, nil
}

type missingEnvError string

func (e missingEnvError) Error() string { return string(e) + " is required" }

func errMissing(key string) error { return missingEnvError(key) }
