// Package config holds the settings every bot shares: Telegram transport,
// webhook listener, logging and the anti-spam gate. Values come from a YAML file
// and are then overridden from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

var runModeAliases = map[string]string{
	"":              RunModeLongpoll,
	"polling":       RunModeLongpoll,
	"long_polling":  RunModeLongpoll,
	RunModeLongpoll: RunModeLongpoll,
	RunModeWebhook:  RunModeWebhook,
	"webhooks":      RunModeWebhook,
}

// TelegramConfig is the bot identity and how updates and replies flow.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds of 0 selects the default.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// SendRate caps outgoing calls per second; 0 keeps the Bot API limit and a
	// negative value removes the cap.
	SendRate    float64 `yaml:"send_rate" envconfig:"TELEGRAM_SEND_RATE"`
	SendWorkers int     `yaml:"send_workers" envconfig:"TELEGRAM_SEND_WORKERS"`
}

// WebhookConfig is used when RunMode is webhook.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
	// SecretToken is checked against the X-Telegram-Bot-Api-Secret-Token header.
	SecretToken string `yaml:"secret_token" envconfig:"WEBHOOK_SECRET_TOKEN"`
}

// LoggingConfig selects format, level and sinks of the structured logger.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample" envconfig:"LOG_DEBUG_SAMPLE"`
	Stacks      string `yaml:"stacks"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	ErrorsFile  string `yaml:"errors_file"`
	// Profile is "prod", "dev" or "debug"; dev and debug default to key=value lines.
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// DefaultCooldownMS is the minimum pause between two button presses of one user in one chat.
const DefaultCooldownMS = 800

// DefaultWhitelist lists payloads that bypass the anti-spam gate.
var DefaultWhitelist = []string{"MAIN", "ADMIN", "ADM_BACK_TO_MAIN"}

// AntiSpamConfig configures the per (user, chat) button gate.
// EnableLock is a pointer so that an omitted key keeps the default (on).
type AntiSpamConfig struct {
	CooldownMS int      `yaml:"cooldown_ms" envconfig:"ANTI_SPAM_COOLDOWN_MS"`
	EnableLock *bool    `yaml:"enable_lock" envconfig:"ANTI_SPAM_ENABLE_LOCK"`
	Whitelist  []string `yaml:"whitelist" envconfig:"ANTI_SPAM_WHITELIST"`
}

// LockEnabled reports whether concurrent presses are locked out.
func (c AntiSpamConfig) LockEnabled() bool {
	return c.EnableLock == nil || *c.EnableLock
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Logging  LoggingConfig  `yaml:"logging"`
	AntiSpam AntiSpamConfig `yaml:"anti_spam"`
}

// Load reads path, applies the environment and validates the result.
func Load(path string) (*Config, error) {
	cfg := new(Config)
	if err := Decode(path, cfg); err != nil {
		return nil, err
	}
	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode fills out from the YAML file at path and then from the environment.
// out may be any struct carrying yaml and envconfig tags, including ones that embed Config.
func Decode(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", out); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Normalize validates cfg and fills defaults. All problems are reported together.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	var errs []error
	fail := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		fail("telegram token is required")
	}
	mode, ok := runModeAliases[strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))]
	switch {
	case !ok:
		fail("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	case mode == RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			fail("webhook.url is required in webhook mode")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			fail("webhook.listen is required in webhook mode")
		}
		if cfg.Webhook.Port <= 0 {
			fail("webhook.port must be > 0 in webhook mode")
		}
	}
	cfg.Telegram.RunMode = mode
	if cfg.Telegram.LongPollTimeoutSeconds < 0 {
		fail("telegram.longpoll_timeout_seconds must be >= 0")
	}
	if cfg.Telegram.SendWorkers < 0 {
		fail("telegram.send_workers must be >= 0")
	}
	if cfg.AntiSpam.CooldownMS < 0 {
		fail("anti_spam.cooldown_ms must be >= 0")
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	cfg.AntiSpam.applyDefaults()
	return nil
}

func (c *AntiSpamConfig) applyDefaults() {
	if c.CooldownMS == 0 {
		c.CooldownMS = DefaultCooldownMS
	}
	if c.Whitelist == nil {
		c.Whitelist = append([]string(nil), DefaultWhitelist...)
		return
	}
	kept := c.Whitelist[:0]
	for _, v := range c.Whitelist {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	c.Whitelist = kept
}
