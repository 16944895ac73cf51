package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

var (
	// ErrNavigation is returned when the page at a URL could not be loaded
	ErrNavigation = errors.New("navigation failed")
	// ErrElementNotFound is returned when no element matches a selector
	ErrElementNotFound = errors.New("element not found")
	// ErrWaitTimeout is returned when a visibility wait expires
	ErrWaitTimeout = errors.New("wait timed out")
)

// Options control how Chrome is started
type Options struct {
	Headless     bool
	WindowWidth  int
	WindowHeight int
	// ExecPath overrides the Chrome binary lookup when set
	ExecPath string
}

// DefaultOptions returns the options used for scheduled runs
func DefaultOptions() Options {
	return Options{
		Headless:     true,
		WindowWidth:  1920,
		WindowHeight: 1080,
	}
}

// Browser handles the Chrome automation
type Browser struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	logger      *slog.Logger
}

// New creates a new browser allocator. No Chrome process is started until
// the first session is opened.
func New(opts Options, logger *slog.Logger) *Browser {
	if opts.WindowWidth == 0 || opts.WindowHeight == 0 {
		opts.WindowWidth, opts.WindowHeight = 1920, 1080
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
		chromedp.NoSandbox,
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("disable-site-isolation-trials", true),
		chromedp.Flag("disable-features", "SameSiteByDefaultCookies,CookiesWithoutSameSiteMustBeSecure"),
		chromedp.Flag("headless", opts.Headless),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	return &Browser{
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		logger:      logger,
	}
}

// Close closes the browser allocator
func (b *Browser) Close() {
	b.cancelAlloc()
}

// NewSession starts a browser with a single tab. The caller owns the
// session and must Close it.
func (b *Browser) NewSession(ctx context.Context) (*Session, error) {
	tabCtx, cancel := chromedp.NewContext(
		b.allocCtx,
		chromedp.WithLogf(b.filteredLog(slog.LevelDebug)),
		chromedp.WithErrorf(b.filteredLog(slog.LevelWarn)),
	)

	s := &Session{ctx: tabCtx, cancel: cancel}

	// An empty Run starts Chrome and attaches to the first tab. It must run
	// on the tab context itself: the browser lives as long as the context
	// of the first Run.
	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return s, nil
}

// filteredLog drops routine chromedp chatter and cookie/unmarshal noise,
// keeping messages about errors and failures.
func (b *Browser) filteredLog(level slog.Level) func(string, ...interface{}) {
	return func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		if (strings.Contains(msg, "error") || strings.Contains(msg, "failed")) &&
			!strings.Contains(msg, "cookiePart") &&
			!strings.Contains(msg, "unmarshal event") {
			b.logger.Log(context.Background(), level, "chrome", "msg", msg)
		}
	}
}

// pollInterval is how often visibility is re-checked while waiting for an
// element to disappear
const pollInterval = 100 * time.Millisecond
