package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dmvScrapper/pkg/config"
	"dmvScrapper/pkg/line"
	"dmvScrapper/pkg/scraper"

	"github.com/PuerkitoBio/goquery"
	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func appointments() []scraper.Observation {
	return []scraper.Observation{
		scraper.NewObservation("Cary", time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)),
		scraper.NewObservation("Raleigh <West> & Co", time.Date(2024, time.May, 12, 0, 0, 0, 0, time.UTC)),
	}
}

func defaultBody(t *testing.T) *Body {
	t.Helper()
	b, err := NewBody("", "DMV appointments available", "https://example.test/book")
	require.NoError(t, err)
	return b
}

func TestBodyHTML(t *testing.T) {
	html, err := defaultBody(t).HTML(appointments())
	require.NoError(t, err)

	assert.NotContains(t, html, "Raleigh <West>")
	assert.Contains(t, html, "Raleigh &lt;West&gt; &amp; Co")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	rows := doc.Find("#appointments tr.appointment")
	require.Equal(t, 2, rows.Length())
	assert.Equal(t, "Cary", rows.Eq(0).Find("td.location").Text())
	assert.Equal(t, "05/01/2024", rows.Eq(0).Find("td.date").Text())
	assert.Equal(t, "Raleigh <West> & Co", rows.Eq(1).Find("td.location").Text())
	assert.Equal(t, "05/12/2024", rows.Eq(1).Find("td.date").Text())

	href, ok := doc.Find("a#book").Attr("href")
	require.True(t, ok)
	assert.Equal(t, "https://example.test/book", href)
	assert.Equal(t, "DMV appointments available", doc.Find("title").Text())
	assert.Contains(t, doc.Find("h2").Text(), "2 DMV appointments")
}

func TestBodyCustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.html")
	require.NoError(t, os.WriteFile(path, []byte(`<ul>{{range .Appointments}}<li>{{.Location}}={{.Date}}</li>{{end}}</ul>`), 0o600))

	b, err := NewBody(path, "s", "")
	require.NoError(t, err)
	html, err := b.HTML(appointments()[:1])
	require.NoError(t, err)
	assert.Equal(t, "<ul><li>Cary=05/01/2024</li></ul>", html)
}

func TestBodyTemplateErrors(t *testing.T) {
	_, err := NewBody(filepath.Join(t.TempDir(), "missing.html"), "s", "")
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "broken.html")
	require.NoError(t, os.WriteFile(path, []byte(`{{range .Appointments}`), 0o600))
	_, err = NewBody(path, "s", "")
	assert.Error(t, err)
}

func TestBodyText(t *testing.T) {
	text := defaultBody(t).Text(appointments())
	assert.Contains(t, text, "05/01/2024  Cary\n")
	assert.Contains(t, text, "Book: https://example.test/book")
}

func TestSendGridNotify(t *testing.T) {
	var (
		auth    string
		path    string
		payload map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	sg, err := NewSendGrid(SendGridOptions{
		APIKey:     "SG.test",
		Sender:     "DMV Alerts <dmv@example.com>",
		Recipients: []string{"a@example.com", "b@example.com"},
		Subject:    "DMV appointments available",
		Body:       defaultBody(t),
		Host:       srv.URL,
	}, testLogger())
	require.NoError(t, err)

	require.NoError(t, sg.Notify(context.Background(), appointments()))

	assert.Equal(t, "Bearer SG.test", auth)
	assert.Equal(t, "/v3/mail/send", path)
	assert.Equal(t, "DMV appointments available", payload["subject"])

	from := payload["from"].(map[string]any)
	assert.Equal(t, "dmv@example.com", from["email"])
	assert.Equal(t, "DMV Alerts", from["name"])

	personalizations := payload["personalizations"].([]any)
	require.Len(t, personalizations, 1)
	tos := personalizations[0].(map[string]any)["to"].([]any)
	require.Len(t, tos, 2)
	assert.Equal(t, "b@example.com", tos[1].(map[string]any)["email"])

	content := payload["content"].([]any)
	require.Len(t, content, 2)
	assert.Equal(t, "text/html", content[1].(map[string]any)["type"])
	assert.Contains(t, content[1].(map[string]any)["value"], "05/12/2024")
}

func TestSendGridErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":[{"message":"access forbidden"}]}`))
	}))
	t.Cleanup(srv.Close)

	sg, err := NewSendGrid(SendGridOptions{
		APIKey: "SG.test", Sender: "dmv@example.com", Recipients: []string{"a@example.com"},
		Body: defaultBody(t), Host: srv.URL,
	}, testLogger())
	require.NoError(t, err)

	err = sg.Notify(context.Background(), appointments())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "access forbidden")
}

func TestSendGridRejectsEmpty(t *testing.T) {
	sg, err := NewSendGrid(SendGridOptions{
		APIKey: "SG.test", Sender: "dmv@example.com", Recipients: []string{"a@example.com"},
		Body: defaultBody(t), Host: "http://127.0.0.1:1",
	}, testLogger())
	require.NoError(t, err)
	assert.ErrorIs(t, sg.Notify(context.Background(), nil), ErrNoAppointments)
}

func TestNewSendGridRequiresFields(t *testing.T) {
	_, err := NewSendGrid(SendGridOptions{Sender: "a@example.com", Recipients: []string{"b@example.com"}, Body: defaultBody(t)}, testLogger())
	assert.Error(t, err)
	_, err = NewSendGrid(SendGridOptions{APIKey: "k", Body: defaultBody(t)}, testLogger())
	assert.Error(t, err)
}

type sentMail struct {
	addr  string
	auth  bool
	email *email.Email
}

func newTestSMTP(t *testing.T, results ...error) (*SMTP, *[]sentMail) {
	t.Helper()
	s, err := NewSMTP(SMTPOptions{
		Host: "smtp.example.com", Port: 587, Username: "user", Password: "pw",
		Sender: "dmv@example.com", Recipients: []string{"a@example.com"},
		Subject: "DMV appointments available", Body: defaultBody(t),
	}, testLogger())
	require.NoError(t, err)

	var sent []sentMail
	s.send = func(e *email.Email, addr string, a smtp.Auth) error {
		sent = append(sent, sentMail{addr: addr, auth: a != nil, email: e})
		if len(results) == 0 {
			return nil
		}
		err := results[0]
		results = results[1:]
		return err
	}
	return s, &sent
}

func TestSMTPNotify(t *testing.T) {
	s, sent := newTestSMTP(t)

	require.NoError(t, s.Notify(context.Background(), appointments()))
	require.Len(t, *sent, 1)

	m := (*sent)[0]
	assert.Equal(t, "smtp.example.com:587", m.addr)
	assert.True(t, m.auth)
	assert.Equal(t, []string{"a@example.com"}, m.email.To)
	assert.Equal(t, "DMV appointments available", m.email.Subject)
	assert.Contains(t, string(m.email.HTML), "Raleigh &lt;West&gt;")
	assert.Contains(t, string(m.email.Text), "05/01/2024  Cary")
}

func TestSMTPRetriesWithoutAuth(t *testing.T) {
	s, sent := newTestSMTP(t, errors.New("smtp: server doesn't support AUTH"))

	require.NoError(t, s.Notify(context.Background(), appointments()))
	require.Len(t, *sent, 2)
	assert.True(t, (*sent)[0].auth)
	assert.False(t, (*sent)[1].auth)
}

func TestSMTPFailure(t *testing.T) {
	s, sent := newTestSMTP(t, errors.New("550 mailbox unavailable"))

	err := s.Notify(context.Background(), appointments())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "550")
	assert.Len(t, *sent, 1)
}

func TestSMTPRejectsEmpty(t *testing.T) {
	s, sent := newTestSMTP(t)
	assert.ErrorIs(t, s.Notify(context.Background(), []scraper.Observation{}), ErrNoAppointments)
	assert.Empty(t, *sent)
}

func TestLogNotifier(t *testing.T) {
	var buf strings.Builder
	n := Log{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	require.NoError(t, n.Notify(context.Background(), appointments()))
	assert.Contains(t, buf.String(), "location=Cary date=2024-05-01")
	assert.ErrorIs(t, n.Notify(context.Background(), nil), ErrNoAppointments)
}

func TestFromConfig(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, keyring.Set("dmv-scraper", "sendgrid", "SG.from-keyring"))

	base := config.Default()
	base.Email.Sender = "dmv@example.com"
	base.Email.Recipients = []string{"a@example.com"}

	t.Run("sendgrid with keyring key", func(t *testing.T) {
		cfg := base
		cfg.Email.KeyringAccount = "sendgrid"
		n, err := FromConfig(cfg, false, testLogger())
		require.NoError(t, err)
		sg, ok := n.(*SendGrid)
		require.True(t, ok)
		assert.Equal(t, "SG.from-keyring", sg.apiKey)
	})

	t.Run("sendgrid without key", func(t *testing.T) {
		_, err := FromConfig(base, false, testLogger())
		assert.Error(t, err)
	})

	t.Run("smtp", func(t *testing.T) {
		cfg := base
		cfg.Notify.Provider = config.ProviderSMTP
		cfg.Email.SMTP.Host = "smtp.example.com"
		n, err := FromConfig(cfg, false, testLogger())
		require.NoError(t, err)
		assert.IsType(t, &SMTP{}, n)
	})

	t.Run("line", func(t *testing.T) {
		cfg := base
		cfg.Notify.Provider = config.ProviderLine
		n, err := FromConfig(cfg, false, testLogger())
		require.NoError(t, err)
		assert.IsType(t, &line.Client{}, n)
	})

	t.Run("none", func(t *testing.T) {
		cfg := base
		cfg.Notify.Provider = config.ProviderNone
		n, err := FromConfig(cfg, false, testLogger())
		require.NoError(t, err)
		assert.IsType(t, Log{}, n)
	})

	t.Run("no-notify wins", func(t *testing.T) {
		n, err := FromConfig(base, true, testLogger())
		require.NoError(t, err)
		assert.IsType(t, Log{}, n)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := base
		cfg.Notify.Provider = "pager"
		_, err := FromConfig(cfg, false, testLogger())
		assert.Error(t, err)
	})
}
