package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no config file is given on the command line
const DefaultPath = "config.yml"

// Environment variables that take precedence over the files
const (
	EnvURL              = "DMV_URL"
	EnvSendGridAPIKey   = "SENDGRID_API_KEY"
	EnvSMTPPassword     = "SMTP_PASSWORD"
	EnvLineChannelToken = "LINE_CHANNEL_TOKEN"
	EnvLineUserID       = "LINE_USER_ID"
	EnvHeadless         = "SCRAPER_HEADLESS"
)

// LocalPath returns the overlay file that sits next to path:
// config.yml -> config.local.yml
func LocalPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// Load reads path on top of Default(), merges <name>.local.<ext> when it
// exists and applies environment overrides. It is an error if neither file
// exists.
func Load(path string) (Config, error) {
	cfg := Default()
	found := false

	base, err := readFile(path)
	if err != nil {
		return cfg, err
	}
	if base != nil {
		if err := mergo.Merge(&cfg, *base, mergo.WithOverride); err != nil {
			return cfg, fmt.Errorf("merge %s: %w", path, err)
		}
		found = true
	}

	localPath := LocalPath(path)
	local, err := readFile(localPath)
	if err != nil {
		return cfg, err
	}
	if local != nil {
		if err := mergo.Merge(&cfg, *local, mergo.WithOverride); err != nil {
			return cfg, fmt.Errorf("merge %s: %w", localPath, err)
		}
		slog.Info("merging config with local overrides", "local", localPath)
		found = true
	}

	if !found {
		return cfg, fmt.Errorf("config %s: %w", path, os.ErrNotExist)
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// readFile returns nil without error when the file does not exist
func readFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyEnv overrides secrets and deployment knobs from the environment
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvURL, &cfg.Scraper.URL)
	set(EnvSendGridAPIKey, &cfg.Email.APIKey)
	set(EnvSMTPPassword, &cfg.Email.SMTP.Password)
	set(EnvLineChannelToken, &cfg.Line.ChannelToken)
	set(EnvLineUserID, &cfg.Line.UserID)

	if v, ok := lookup(EnvHeadless); ok && v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHeadless, err)
		}
		cfg.Scraper.Headless = &headless
	}
	return nil
}
