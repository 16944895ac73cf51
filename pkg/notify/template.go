package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"strings"

	"dmvScrapper/pkg/scraper"
)

// ShortDateLayout is how dates appear in emails
const ShortDateLayout = "01/02/2006"

//go:embed templates/appointments.html
var templateFS embed.FS

// Row is one line of the appointments table
type Row struct {
	Location string
	Date     string
}

// Page is the data a body template is executed with
type Page struct {
	Subject      string
	BookingURL   string
	Count        int
	Appointments []Row
}

// Body renders the HTML and plain-text versions of an alert
type Body struct {
	tmpl       *template.Template
	subject    string
	bookingURL string
}

// NewBody uses the template at path, or the built-in one when path is empty
func NewBody(path, subject, bookingURL string) (*Body, error) {
	var (
		tmpl *template.Template
		err  error
	)
	if strings.TrimSpace(path) == "" {
		tmpl, err = template.ParseFS(templateFS, "templates/appointments.html")
	} else {
		var b []byte
		b, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("email template: %w", err)
		}
		tmpl, err = template.New("appointments").Parse(string(b))
	}
	if err != nil {
		return nil, fmt.Errorf("parse email template: %w", err)
	}
	return &Body{tmpl: tmpl, subject: subject, bookingURL: bookingURL}, nil
}

func (b *Body) page(appointments []scraper.Observation) Page {
	p := Page{
		Subject:      b.subject,
		BookingURL:   b.bookingURL,
		Count:        len(appointments),
		Appointments: make([]Row, 0, len(appointments)),
	}
	for _, a := range appointments {
		date, _ := a.Date()
		p.Appointments = append(p.Appointments, Row{Location: a.Location(), Date: date.Format(ShortDateLayout)})
	}
	return p
}

// HTML renders the email body. Location names are escaped.
func (b *Body) HTML(appointments []scraper.Observation) (string, error) {
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, b.page(appointments)); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

// Text renders a plain-text alternative
func (b *Body) Text(appointments []scraper.Observation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d DMV appointment(s) available:\n\n", len(appointments))
	for _, r := range b.page(appointments).Appointments {
		fmt.Fprintf(&sb, "%s  %s\n", r.Date, r.Location)
	}
	if b.bookingURL != "" {
		fmt.Fprintf(&sb, "\nBook: %s\n", b.bookingURL)
	}
	return sb.String()
}
