package config

import (
	"strings"
	"time"

	"dmvScrapper/pkg/scraper"
)

// DefaultURL is the NC DMV "skip the line" booking flow
const DefaultURL = "https://skiptheline.ncdot.gov/Webapp/Appointment/Index/a7ade79b-996d-4971-8766-97feb75254de"

// Notification providers
const (
	ProviderSendGrid = "sendgrid"
	ProviderSMTP     = "smtp"
	ProviderLine     = "line"
	ProviderNone     = "none"
)

type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config holds the application configuration
type Config struct {
	Scraper struct {
		URL                string   `yaml:"url"`
		WaitTimeoutSeconds int      `yaml:"wait_timeout_seconds"`
		RunTimeoutSeconds  int      `yaml:"run_timeout_seconds"`
		Headless           *bool    `yaml:"headless"`
		ServiceTypeID      string   `yaml:"service_type_id"`
		LocationsToMonitor []string `yaml:"locations_to_monitor"`
	} `yaml:"scraper"`

	Schedule struct {
		Cron       string `yaml:"cron"`
		RunOnStart *bool  `yaml:"run_on_start"`
	} `yaml:"schedule"`

	Notify struct {
		Provider       string `yaml:"provider"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"notify"`

	Email struct {
		APIKey         string   `yaml:"api_key"`
		KeyringAccount string   `yaml:"keyring_account"`
		Sender         string   `yaml:"sender"`
		Recipients     []string `yaml:"recipients"`
		Subject        string   `yaml:"subject"`
		TemplateFile   string   `yaml:"template_file"`
		SMTP           SMTP     `yaml:"smtp"`
	} `yaml:"email"`

	Line struct {
		ChannelToken string `yaml:"channel_token"`
		UserID       string `yaml:"user_id"`
	} `yaml:"line"`

	Log struct {
		Dir   string `yaml:"dir"`
		Level string `yaml:"level"`
	} `yaml:"log"`

	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
}

// Default returns a configuration with every optional field filled in
func Default() Config {
	var cfg Config
	cfg.Scraper.URL = DefaultURL
	cfg.Scraper.WaitTimeoutSeconds = 10
	cfg.Scraper.RunTimeoutSeconds = 600
	cfg.Scraper.ServiceTypeID = "3"
	cfg.Schedule.Cron = "0 */15 * * * *"
	cfg.Notify.Provider = ProviderSendGrid
	cfg.Notify.TimeoutSeconds = 30
	cfg.Email.Subject = "DMV appointments available"
	cfg.Email.SMTP.Port = 587
	cfg.Log.Dir = "logs"
	cfg.Log.Level = "info"
	cfg.Store.Path = "scraper.db"
	return cfg
}

func (c Config) WaitTimeout() time.Duration {
	return time.Duration(c.Scraper.WaitTimeoutSeconds) * time.Second
}

func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.Scraper.RunTimeoutSeconds) * time.Second
}

func (c Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notify.TimeoutSeconds) * time.Second
}

// Headless defaults to true
func (c Config) Headless() bool {
	return c.Scraper.Headless == nil || *c.Scraper.Headless
}

// RunOnStart defaults to true
func (c Config) RunOnStart() bool {
	return c.Schedule.RunOnStart == nil || *c.Schedule.RunOnStart
}

func (c Config) AllowList() scraper.AllowList {
	return scraper.NewAllowList(c.Scraper.LocationsToMonitor...)
}

func (c Config) Provider() string {
	p := strings.ToLower(strings.TrimSpace(c.Notify.Provider))
	if p == "" {
		return ProviderSendGrid
	}
	return p
}
