package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// ChannelID is the moderation channel where submissions are reviewed.
	ChannelID int64  `yaml:"channel_id" envconfig:"CHANNEL_ID"`
	RunMode   string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// HTTPConfig specifies the embedded web server used for the payment webhook.
type HTTPConfig struct {
	Listen string `yaml:"listen" envconfig:"HTTP_LISTEN"`
	Port   int    `yaml:"port" envconfig:"HTTP_PORT"`
	// PublicURL is the externally reachable base URL; the payment
	// callback is PublicURL + "/verify".
	PublicURL string `yaml:"public_url" envconfig:"PUBLIC_URL"`
}

// ChapaConfig holds payment gateway credentials and the fee schedule.
type ChapaConfig struct {
	SecretKey string `yaml:"secret_key" envconfig:"CHAPA_SECRET_KEY"`
	BaseURL   string `yaml:"base_url" envconfig:"CHAPA_BASE_URL"`
	Currency  string `yaml:"currency" envconfig:"CHAPA_CURRENCY"`
	BaseFee   int    `yaml:"base_fee" envconfig:"CHAPA_BASE_FEE"`
	LateFee   int    `yaml:"late_fee" envconfig:"CHAPA_LATE_FEE"`
	// WindowHours is how long after approval the base fee applies.
	WindowHours int `yaml:"window_hours" envconfig:"CHAPA_WINDOW_HOURS"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
	File   string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// RateLimitConfig holds settings for per-user rate limiting.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// Defaults matching the original fee schedule.
const (
	DefaultChapaBaseURL = "https://api.chapa.co"
	DefaultCurrency     = "ETB"
	DefaultBaseFee      = 100
	DefaultLateFee      = 150
	DefaultWindowHours  = 24
)

// Config aggregates all application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	HTTP      HTTPConfig      `yaml:"http"`
	Chapa     ChapaConfig     `yaml:"chapa"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if cfg.Telegram.ChannelID == 0 {
		return fmt.Errorf("telegram.channel_id is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	case RunModeWebhook:
		// Telegram webhook mode shares the public URL with the payment callback.
		if strings.TrimSpace(cfg.HTTP.PublicURL) == "" {
			return fmt.Errorf("http.public_url is required when telegram.run_mode is 'webhook'")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if strings.TrimSpace(cfg.HTTP.Listen) == "" {
		cfg.HTTP.Listen = "0.0.0.0"
	}
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 3000
	}
	if strings.TrimSpace(cfg.HTTP.PublicURL) == "" {
		cfg.HTTP.PublicURL = fmt.Sprintf("http://localhost:%d", cfg.HTTP.Port)
	}
	cfg.HTTP.PublicURL = strings.TrimRight(cfg.HTTP.PublicURL, "/")

	if cfg.Chapa.SecretKey == "" {
		return fmt.Errorf("chapa.secret_key is required")
	}
	if strings.TrimSpace(cfg.Chapa.BaseURL) == "" {
		cfg.Chapa.BaseURL = DefaultChapaBaseURL
	}
	cfg.Chapa.BaseURL = strings.TrimRight(cfg.Chapa.BaseURL, "/")
	if strings.TrimSpace(cfg.Chapa.Currency) == "" {
		cfg.Chapa.Currency = DefaultCurrency
	}
	if cfg.Chapa.BaseFee <= 0 {
		cfg.Chapa.BaseFee = DefaultBaseFee
	}
	if cfg.Chapa.LateFee <= 0 {
		cfg.Chapa.LateFee = DefaultLateFee
	}
	if cfg.Chapa.LateFee < cfg.Chapa.BaseFee {
		return fmt.Errorf("chapa.late_fee must be >= chapa.base_fee")
	}
	if cfg.Chapa.WindowHours <= 0 {
		cfg.Chapa.WindowHours = DefaultWindowHours
	}

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}

// CallbackURL returns the absolute URL of the payment confirmation endpoint.
func (c *Config) CallbackURL() string {
	return c.HTTP.PublicURL + "/verify"
}
