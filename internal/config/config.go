package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "CITATIONWATCH_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	wikiUsernameEnv   = "WIKI_USERNAME"
	wikiPasswordEnv   = "WIKI_PASSWORD"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Wiki          WikiConfig         `yaml:"wiki"`
	Alerts        AlertsConfig       `yaml:"alerts"`
	Crawl         CrawlConfig        `yaml:"crawl"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

// DatabaseConfig describes the fact store connection.
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=postgres sqlite"`
	DSN    string `yaml:"dsn" validate:"required"`
}

// WikiConfig points the bot at a MediaWiki site and the pages it maintains.
type WikiConfig struct {
	BaseURL       string        `yaml:"baseUrl" validate:"required,url"`
	UserAgent     string        `yaml:"userAgent" validate:"required"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	ReportPage    string        `yaml:"reportPage" validate:"required"`
	AlertsPage    string        `yaml:"alertsPage" validate:"required"`
	PerennialPage string        `yaml:"perennialPage" validate:"required"`
	DryRun        bool          `yaml:"dryRun"`
	Timeout       time.Duration `yaml:"timeout" validate:"gte=0"`
}

// AlertsConfig tunes alert candidate selection.
type AlertsConfig struct {
	FrequentThreshold int `yaml:"frequentThreshold" validate:"gte=1"`
}

// CrawlConfig lists the article sources harvested before a run.
type CrawlConfig struct {
	Enabled bool           `yaml:"enabled"`
	Sources []SourceConfig `yaml:"sources" validate:"dive"`
}

// SourceConfig describes a single article set with its resolution strategy.
type SourceConfig struct {
	Name     string            `yaml:"name" validate:"required"`
	Strategy string            `yaml:"strategy" validate:"required,oneof=static category"`
	Titles   []string          `yaml:"titles"`
	Options  map[string]string `yaml:"options"`
}

// SchedulerConfig defines how often the daemon runs.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval" validate:"gte=0"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId" validate:"omitempty,numeric"`
}

// Enabled reports whether both the token and the chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads YAML configuration from path (or CITATIONWATCH_CONFIG when path is empty),
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks field constraints declared in struct tags.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(wikiUsernameEnv); v != "" {
		c.Wiki.Username = v
	}

	if v := os.Getenv(wikiPasswordEnv); v != "" {
		c.Wiki.Password = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("config: unknown timezone %s: %w", tz, err)
	}
	c.Scheduler.location = loc
	return nil
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Wiki.BaseURL != "" {
		base.Wiki.BaseURL = override.Wiki.BaseURL
	}
	if override.Wiki.UserAgent != "" {
		base.Wiki.UserAgent = override.Wiki.UserAgent
	}
	if override.Wiki.Username != "" {
		base.Wiki.Username = override.Wiki.Username
	}
	if override.Wiki.Password != "" {
		base.Wiki.Password = override.Wiki.Password
	}
	if override.Wiki.ReportPage != "" {
		base.Wiki.ReportPage = override.Wiki.ReportPage
	}
	if override.Wiki.AlertsPage != "" {
		base.Wiki.AlertsPage = override.Wiki.AlertsPage
	}
	if override.Wiki.PerennialPage != "" {
		base.Wiki.PerennialPage = override.Wiki.PerennialPage
	}
	if override.Wiki.DryRun {
		base.Wiki.DryRun = true
	}
	if override.Wiki.Timeout != 0 {
		base.Wiki.Timeout = override.Wiki.Timeout
	}

	if override.Alerts.FrequentThreshold != 0 {
		base.Alerts.FrequentThreshold = override.Alerts.FrequentThreshold
	}

	if override.Crawl.Enabled {
		base.Crawl.Enabled = true
	}
	if len(override.Crawl.Sources) > 0 {
		base.Crawl.Sources = override.Crawl.Sources
	}

	if override.Scheduler.Interval != 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file:citationwatch.db"},
		Wiki: WikiConfig{
			BaseURL:       "https://en.wikipedia.org",
			UserAgent:     "CitationWatch/1.0 (https://en.wikipedia.org/wiki/Wikipedia:Vaccine_safety)",
			ReportPage:    "Wikipedia:Vaccine safety/Reports",
			AlertsPage:    "Wikipedia:Vaccine safety/Alerts",
			PerennialPage: "Wikipedia:Vaccine safety/Perennial sources",
			Timeout:       30 * time.Second,
		},
		Alerts: AlertsConfig{FrequentThreshold: 10},
		Crawl: CrawlConfig{
			Sources: []SourceConfig{
				{
					Name:     "vaccines",
					Strategy: "category",
					Options:  map[string]string{"category": "Vaccines"},
				},
			},
		},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone, location: tz},
	}
}
