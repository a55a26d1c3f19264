package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath   string `envconfig:"DB_PATH" default:"./data/vladobot.db"`

	// Empty API key disables the generative backend and speech-to-text;
	// digests then come from the deterministic fallback.
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	STTModel      string `envconfig:"STT_MODEL" default:"whisper-1"`

	// Defaults for chats created on first observed activity.
	DefaultTZ         string `envconfig:"DEFAULT_TZ" default:"Europe/Moscow"`
	DefaultReportTime string `envconfig:"DEFAULT_REPORT_TIME" default:"21:00"`
	DefaultMention    string `envconfig:"DEFAULT_MENTION" default:"друзья"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"` // healthz
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
