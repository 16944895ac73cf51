package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"dmvScrapper/pkg/scraper"

	"github.com/jordan-wright/email"
)

type SMTPOptions struct {
	Host       string
	Port       int
	Username   string
	Password   string
	Sender     string
	Recipients []string
	Subject    string
	Body       *Body
}

// SMTP sends the alert through a mail server
type SMTP struct {
	opts   SMTPOptions
	logger *slog.Logger
	send   func(e *email.Email, addr string, a smtp.Auth) error
}

func NewSMTP(opts SMTPOptions, logger *slog.Logger) (*SMTP, error) {
	if opts.Host == "" || opts.Port == 0 {
		return nil, fmt.Errorf("smtp: host and port are required")
	}
	if opts.Sender == "" || len(opts.Recipients) == 0 {
		return nil, fmt.Errorf("smtp: sender and recipients are required")
	}
	if opts.Body == nil {
		return nil, fmt.Errorf("smtp: body template is required")
	}
	return &SMTP{
		opts:   opts,
		logger: logger,
		send:   (*email.Email).Send,
	}, nil
}

// Message builds the email for appointments
func (s *SMTP) Message(appointments []scraper.Observation) (*email.Email, error) {
	html, err := s.opts.Body.HTML(appointments)
	if err != nil {
		return nil, err
	}
	mail := email.NewEmail()
	mail.From = s.opts.Sender
	mail.To = s.opts.Recipients
	mail.Subject = s.opts.Subject
	mail.Text = []byte(s.opts.Body.Text(appointments))
	mail.HTML = []byte(html)
	return mail, nil
}

func (s *SMTP) Notify(ctx context.Context, appointments []scraper.Observation) error {
	if len(appointments) == 0 {
		return ErrNoAppointments
	}
	mail, err := s.Message(appointments)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	user := s.opts.Username
	if user == "" {
		user = s.opts.Sender
	}
	auth := smtp.PlainAuth("", user, s.opts.Password, s.opts.Host)

	done := make(chan error, 1)
	go func() {
		err := s.send(mail, addr, auth)
		if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
			err = s.send(mail, addr, nil)
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			s.logger.Error("error sending email notifications", "provider", "smtp", "error", err)
			return fmt.Errorf("smtp: %w", err)
		}
	}

	s.logger.Info("notification sent", "provider", "smtp", "recipients", len(s.opts.Recipients), "appointments", len(appointments))
	return nil
}
