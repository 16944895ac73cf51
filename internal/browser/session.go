package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// Element is a handle to a DOM node in a session's current page.
// Handles are invalidated by navigation: after any navigate, click or back
// operation, elements must be looked up again.
type Element interface {
	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value and whether it is present
	Attribute(ctx context.Context, name string) (string, bool, error)
	Click(ctx context.Context) error
	// Find returns the first descendant matching a CSS selector
	Find(ctx context.Context, sel string) (Element, error)
	Parent(ctx context.Context) (Element, error)
}

// Session is a single Chrome tab driven through chromedp. It is not safe
// for concurrent use.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// bind derives a context from the tab that is also cancelled when ctx is
func (s *Session) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, stop := s.bind(ctx)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url in the tab
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
	}
	return nil
}

// Click clicks the first element matching sel
func (s *Session) Click(ctx context.Context, sel string) error {
	el, err := s.FindOne(ctx, sel)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

// FindOne returns the first element matching sel without waiting
func (s *Session) FindOne(ctx context.Context, sel string) (Element, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(sel, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query %s: %w", sel, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, sel)
	}
	return &element{s: s, node: nodes[0]}, nil
}

// FindAll returns every element matching sel in document order
func (s *Session) FindAll(ctx context.Context, sel string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query %s: %w", sel, err)
	}
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{s: s, node: n})
	}
	return out, nil
}

// WaitVisible blocks until an element matching sel is visible
func (s *Session) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	runCtx, stop := s.bind(ctx)
	defer stop()
	waitCtx, cancel := context.WithTimeout(runCtx, timeout)
	defer cancel()

	err := chromedp.Run(waitCtx, chromedp.WaitVisible(sel, chromedp.ByQuery))
	return s.waitErr(ctx, waitCtx, sel, timeout, err)
}

// WaitNotVisible blocks until no element matching sel is visible. An
// element that is missing from the DOM counts as not visible.
func (s *Session) WaitNotVisible(ctx context.Context, sel string, timeout time.Duration) error {
	runCtx, stop := s.bind(ctx)
	defer stop()
	waitCtx, cancel := context.WithTimeout(runCtx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		var visible bool
		if err := chromedp.Run(waitCtx, chromedp.Evaluate(visibleScript(sel), &visible)); err != nil {
			return s.waitErr(ctx, waitCtx, sel, timeout, err)
		}
		if !visible {
			return nil
		}
		select {
		case <-waitCtx.Done():
			return s.waitErr(ctx, waitCtx, sel, timeout, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func (s *Session) waitErr(ctx, waitCtx context.Context, sel string, timeout time.Duration, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %s", ErrWaitTimeout, timeout, sel)
	}
	return fmt.Errorf("wait %s: %w", sel, err)
}

// Visible reports whether an element matching sel is currently displayed
func (s *Session) Visible(ctx context.Context, sel string) (bool, error) {
	var visible bool
	if err := s.run(ctx, chromedp.Evaluate(visibleScript(sel), &visible)); err != nil {
		return false, fmt.Errorf("check visibility of %s: %w", sel, err)
	}
	return visible, nil
}

// Close shuts the tab and its browser down. Calling it more than once is safe.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = chromedp.Cancel(s.ctx)
		s.cancel()
		if errors.Is(s.closeErr, context.Canceled) {
			s.closeErr = nil
		}
	})
	return s.closeErr
}

func visibleScript(sel string) string {
	return fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden') return false;
		return el.getClientRects().length > 0;
	})()`, sel)
}

type element struct {
	s    *Session
	node *cdp.Node
}

func (e *element) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.s.run(ctx, chromedp.Text(e.ids(), &text, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	if err := e.s.run(ctx, chromedp.AttributeValue(e.ids(), name, &value, &ok, chromedp.ByNodeID)); err != nil {
		return "", false, fmt.Errorf("read attribute %s: %w", name, err)
	}
	return value, ok, nil
}

func (e *element) Click(ctx context.Context) error {
	if err := e.s.run(ctx, chromedp.MouseClickNode(e.node)); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	return nil
}

func (e *element) Find(ctx context.Context, sel string) (Element, error) {
	var nodes []*cdp.Node
	if err := e.s.run(ctx, chromedp.Nodes(sel, &nodes, chromedp.ByQuery, chromedp.FromNode(e.node), chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query %s: %w", sel, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, sel)
	}
	return &element{s: e.s, node: nodes[0]}, nil
}

func (e *element) Parent(ctx context.Context) (Element, error) {
	e.node.RLock()
	parent := e.node.Parent
	e.node.RUnlock()
	if parent == nil {
		return nil, fmt.Errorf("%w: parent of %s", ErrElementNotFound, e.node.LocalName)
	}
	return &element{s: e.s, node: parent}, nil
}
