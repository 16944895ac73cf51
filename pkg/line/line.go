package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"dmvScrapper/pkg/scraper"
)

const (
	lineAPIURL = "https://api.line.me/v2/bot/message/push"
	brandColor = "#1DB446"
	mutedColor = "#666666"
)

// displayLayout is how dates read in the message
const displayLayout = "Mon Jan 2, 2006"

// Client pushes appointment alerts to one LINE user
type Client struct {
	channelToken string
	userID       string
	bookingURL   string

	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

// WithEndpoint replaces the push API URL
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithHTTPClient replaces the default client, which times out after 30s
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a LINE client. bookingURL is opened by the message
// button.
func NewClient(channelToken, userID, bookingURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		channelToken: channelToken,
		userID:       userID,
		bookingURL:   bookingURL,
		endpoint:     lineAPIURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Message represents a LINE push request
type Message struct {
	To       string        `json:"to"`
	Messages []LineContent `json:"messages"`
}

// LineContent represents the content of a LINE message
type LineContent struct {
	Type     string  `json:"type"`
	Text     string  `json:"text,omitempty"`
	AltText  string  `json:"altText,omitempty"`
	Contents *Bubble `json:"contents,omitempty"`
}

// Bubble is a flex message container
type Bubble struct {
	Type   string `json:"type"`
	Header *Box   `json:"header,omitempty"`
	Body   *Box   `json:"body,omitempty"`
}

// Component is any flex element: box, text, separator or button
type Component struct {
	Type     string      `json:"type"`
	Layout   string      `json:"layout,omitempty"`
	Contents []Component `json:"contents,omitempty"`
	Text     string      `json:"text,omitempty"`
	Size     string      `json:"size,omitempty"`
	Weight   string      `json:"weight,omitempty"`
	Color    string      `json:"color,omitempty"`
	Margin   string      `json:"margin,omitempty"`
	Spacing  string      `json:"spacing,omitempty"`
	Style    string      `json:"style,omitempty"`
	Action   *Action     `json:"action,omitempty"`
}

type Box = Component

type Action struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	URI   string `json:"uri"`
}

// Notify sends one flex message listing every appointment
func (c *Client) Notify(ctx context.Context, appointments []scraper.Observation) error {
	if len(appointments) == 0 {
		return scraper.ErrNoAppointments
	}

	payload := Message{
		To:       c.userID,
		Messages: []LineContent{c.createFlexMessage(appointments)},
	}
	return c.sendMessage(ctx, payload)
}

// TestNotification sends a plain text message to check the credentials
func (c *Client) TestNotification(ctx context.Context) error {
	payload := Message{
		To: c.userID,
		Messages: []LineContent{{
			Type: "text",
			Text: "DMV appointment monitor is connected. You will be notified here when appointments open up.",
		}},
	}
	return c.sendMessage(ctx, payload)
}

func (c *Client) sendMessage(ctx context.Context, payload Message) error {
	if c.channelToken == "" || c.userID == "" {
		return fmt.Errorf("LINE configuration is incomplete")
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.channelToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("LINE push failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	c.logger.Info("notification sent", "provider", "line")
	return nil
}

func (c *Client) createFlexMessage(appointments []scraper.Observation) LineContent {
	boxes := make([]Component, 0, len(appointments)+1)
	for _, a := range appointments {
		date, _ := a.Date()
		boxes = append(boxes, Component{
			Type:   "box",
			Layout: "vertical",
			Contents: []Component{
				{
					Type:    "box",
					Layout:  "vertical",
					Spacing: "sm",
					Contents: []Component{
						{Type: "text", Text: "📍 " + a.Location(), Size: "md", Weight: "bold", Color: brandColor},
						{Type: "text", Text: "📅 " + date.Format(displayLayout), Size: "sm", Color: mutedColor, Margin: "sm"},
					},
				},
				{Type: "separator", Margin: "md"},
			},
		})
	}

	if c.bookingURL != "" {
		boxes = append(boxes, Component{
			Type:   "box",
			Layout: "vertical",
			Margin: "md",
			Contents: []Component{{
				Type:   "button",
				Style:  "primary",
				Color:  brandColor,
				Action: &Action{Type: "uri", Label: "Book now", URI: c.bookingURL},
			}},
		})
	}

	return LineContent{
		Type:    "flex",
		AltText: fmt.Sprintf("DMV appointments available (%d)", len(appointments)),
		Contents: &Bubble{
			Type: "bubble",
			Header: &Box{
				Type:   "box",
				Layout: "vertical",
				Contents: []Component{
					{Type: "text", Text: "🎉 Appointments available", Size: "xl", Weight: "bold", Color: brandColor},
				},
			},
			Body: &Box{
				Type:     "box",
				Layout:   "vertical",
				Spacing:  "md",
				Contents: boxes,
			},
		},
	}
}
