package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"dmvScrapper/pkg/scraper"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridEndpoint = "/v3/mail/send"

// SendGrid sends one email to every recipient through the v3 mail API
type SendGrid struct {
	apiKey     string
	host       string
	sender     string
	recipients []string
	subject    string
	body       *Body
	logger     *slog.Logger
}

type SendGridOptions struct {
	APIKey     string
	Sender     string
	Recipients []string
	Subject    string
	Body       *Body
	// Host overrides https://api.sendgrid.com
	Host string
}

func NewSendGrid(opts SendGridOptions, logger *slog.Logger) (*SendGrid, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("sendgrid: api key is required")
	}
	if opts.Sender == "" || len(opts.Recipients) == 0 {
		return nil, fmt.Errorf("sendgrid: sender and recipients are required")
	}
	if opts.Body == nil {
		return nil, fmt.Errorf("sendgrid: body template is required")
	}
	return &SendGrid{
		apiKey:     opts.APIKey,
		host:       opts.Host,
		sender:     opts.Sender,
		recipients: opts.Recipients,
		subject:    opts.Subject,
		body:       opts.Body,
		logger:     logger,
	}, nil
}

// Message builds the v3 payload: one personalization with every recipient
func (s *SendGrid) Message(appointments []scraper.Observation) (*sgmail.SGMailV3, error) {
	html, err := s.body.HTML(appointments)
	if err != nil {
		return nil, err
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(address(s.sender))
	m.Subject = s.subject

	p := sgmail.NewPersonalization()
	for _, r := range s.recipients {
		p.AddTos(address(r))
	}
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", s.body.Text(appointments)),
		sgmail.NewContent("text/html", html),
	)
	return m, nil
}

func (s *SendGrid) Notify(ctx context.Context, appointments []scraper.Observation) error {
	if len(appointments) == 0 {
		return ErrNoAppointments
	}

	m, err := s.Message(appointments)
	if err != nil {
		return err
	}

	req := sendgrid.GetRequest(s.apiKey, sendGridEndpoint, s.host)
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(m)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		s.logger.Error("error sending email notifications", "error", err)
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Error("error sending email notifications", "status", resp.StatusCode, "body", resp.Body)
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}

	s.logger.Info("notification sent", "provider", "sendgrid", "recipients", len(s.recipients), "appointments", len(appointments))
	return nil
}

// address accepts "Name <addr>" or a bare address
func address(s string) *sgmail.Email {
	if a, err := mail.ParseAddress(s); err == nil {
		return sgmail.NewEmail(a.Name, a.Address)
	}
	return sgmail.NewEmail("", strings.TrimSpace(s))
}
