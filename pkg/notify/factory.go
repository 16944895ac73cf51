package notify

import (
	"fmt"
	"log/slog"

	"dmvScrapper/internal/secrets"
	"dmvScrapper/pkg/config"
	"dmvScrapper/pkg/line"
)

// FromConfig builds the notifier selected by notify.provider. With
// noNotify set a logging notifier is returned whatever the provider.
func FromConfig(cfg config.Config, noNotify bool, logger *slog.Logger) (Notifier, error) {
	logger = logger.With("provider", cfg.Provider())
	if noNotify {
		logger.Info("notifications disabled (--no-notify flag is set)")
		return Log{Logger: logger}, nil
	}

	switch cfg.Provider() {
	case config.ProviderNone:
		return Log{Logger: logger}, nil

	case config.ProviderLine:
		return line.NewClient(cfg.Line.ChannelToken, cfg.Line.UserID, cfg.Scraper.URL, logger), nil

	case config.ProviderSendGrid:
		body, err := NewBody(cfg.Email.TemplateFile, cfg.Email.Subject, cfg.Scraper.URL)
		if err != nil {
			return nil, err
		}
		key, err := secrets.Resolve(cfg.Email.APIKey, cfg.Email.KeyringAccount)
		if err != nil {
			return nil, fmt.Errorf("sendgrid api key: %w", err)
		}
		return NewSendGrid(SendGridOptions{
			APIKey:     key,
			Sender:     cfg.Email.Sender,
			Recipients: cfg.Email.Recipients,
			Subject:    cfg.Email.Subject,
			Body:       body,
		}, logger)

	case config.ProviderSMTP:
		body, err := NewBody(cfg.Email.TemplateFile, cfg.Email.Subject, cfg.Scraper.URL)
		if err != nil {
			return nil, err
		}
		password := cfg.Email.SMTP.Password
		if password == "" && cfg.Email.KeyringAccount != "" {
			if password, err = secrets.Get(cfg.Email.KeyringAccount); err != nil {
				return nil, fmt.Errorf("smtp password: %w", err)
			}
		}
		return NewSMTP(SMTPOptions{
			Host:       cfg.Email.SMTP.Host,
			Port:       cfg.Email.SMTP.Port,
			Username:   cfg.Email.SMTP.Username,
			Password:   password,
			Sender:     cfg.Email.Sender,
			Recipients: cfg.Email.Recipients,
			Subject:    cfg.Email.Subject,
			Body:       body,
		}, logger)
	}
	return nil, fmt.Errorf("unknown notify provider %q", cfg.Provider())
}
