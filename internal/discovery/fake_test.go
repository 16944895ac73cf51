package discovery

import (
	"context"
	"fmt"
	"time"

	"dmvScrapper/internal/browser"
)

// fakeLocation describes how a location behaves once clicked
type fakeLocation struct {
	validationError bool
	calendarTimeout bool
	noOverlay       bool
	unclickable     bool
	// day, month (zero-based) and year text of the first active calendar
	// day; an empty day means no active day is rendered
	day, month, year string
}

// fakeSite is a scripted booking flow. Each time the location list is
// shown it renders the next snapshot; the last snapshot repeats.
type fakeSite struct {
	sel Selectors

	snapshots [][]string
	locations map[string]fakeLocation

	navigateErr       error
	hideServiceType   bool
	hideLocationList  bool
	listGoneAfterBack bool
	// listAlwaysVisible keeps the list container reported visible on the
	// calendar page, as when step panels stay stacked in the DOM
	listAlwaysVisible bool

	page       string
	current    string
	listShown  int
	generation int

	closed       int
	clicked      []string
	backClicks   int
	extractCalls map[string]int
}

func newFakeSite(snapshots [][]string, locations map[string]fakeLocation) *fakeSite {
	return &fakeSite{
		sel:          DefaultSelectors(),
		snapshots:    snapshots,
		locations:    locations,
		extractCalls: make(map[string]int),
	}
}

func (f *fakeSite) launcher() Launcher {
	return LauncherFunc(func(ctx context.Context) (Session, error) {
		return f, nil
	})
}

func (f *fakeSite) show(page string) {
	f.page = page
	f.generation++
	if page == "list" {
		f.listShown++
	}
}

func (f *fakeSite) timeout(sel string) error {
	return fmt.Errorf("%w: %s", browser.ErrWaitTimeout, sel)
}

func (f *fakeSite) Navigate(ctx context.Context, url string) error {
	if f.navigateErr != nil {
		return f.navigateErr
	}
	f.show("welcome")
	return nil
}

func (f *fakeSite) Click(ctx context.Context, sel string) error {
	switch {
	case sel == f.sel.Start && f.page == "welcome":
		f.show("types")
	case sel == f.sel.ServiceType && f.page == "types":
		f.show("list")
	case sel == f.sel.Back && f.page == "calendar":
		f.backClicks++
		f.current = ""
		f.show("list")
	default:
		return fmt.Errorf("%w: %s", browser.ErrElementNotFound, sel)
	}
	return nil
}

func (f *fakeSite) FindAll(ctx context.Context, sel string) ([]browser.Element, error) {
	switch {
	case sel == f.sel.LocationItem && f.page == "list":
		names := f.snapshots[min(f.listShown-1, len(f.snapshots)-1)]
		out := make([]browser.Element, 0, len(names))
		for _, n := range names {
			out = append(out, &fakeElement{site: f, gen: f.generation, kind: "item", text: n})
		}
		return out, nil
	case sel == f.sel.ActiveDay && f.page == "calendar":
		f.extractCalls[f.current]++
		loc := f.locations[f.current]
		if loc.day == "" {
			return nil, nil
		}
		month := &fakeElement{site: f, gen: f.generation, kind: "month", attrs: map[string]string{
			monthAttr: loc.month,
			yearAttr:  loc.year,
		}}
		return []browser.Element{&fakeElement{site: f, gen: f.generation, kind: "day", text: loc.day, parent: month}}, nil
	}
	return nil, nil
}

func (f *fakeSite) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	visible := false
	switch sel {
	case f.sel.ServiceType:
		visible = f.page == "types" && !f.hideServiceType
	case f.sel.LocationList:
		visible = f.page == "list" && !f.hideLocationList && !(f.listGoneAfterBack && f.listShown > 1)
	case f.sel.Calendar:
		visible = f.page == "calendar" && !f.locations[f.current].calendarTimeout
	case f.sel.LoadingOverlay:
		visible = f.current != "" && !f.locations[f.current].noOverlay
	}
	if !visible {
		return f.timeout(sel)
	}
	return nil
}

func (f *fakeSite) WaitNotVisible(ctx context.Context, sel string, timeout time.Duration) error {
	return ctx.Err()
}

func (f *fakeSite) Visible(ctx context.Context, sel string) (bool, error) {
	switch sel {
	case f.sel.ValidationError:
		return f.page == "calendar" && f.locations[f.current].validationError, nil
	case f.sel.LocationList:
		return f.page == "list" || f.listAlwaysVisible, nil
	}
	return false, nil
}

func (f *fakeSite) Close() error {
	f.closed++
	return nil
}

type fakeElement struct {
	site   *fakeSite
	gen    int
	kind   string
	text   string
	attrs  map[string]string
	parent *fakeElement
}

// stale mirrors a real DOM: handles from before a navigation are dead
func (e *fakeElement) stale() error {
	if e.gen != e.site.generation {
		return fmt.Errorf("stale element %q", e.text)
	}
	return nil
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	if err := e.stale(); err != nil {
		return "", err
	}
	return e.text, nil
}

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.stale(); err != nil {
		return "", false, err
	}
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *fakeElement) Click(ctx context.Context) error {
	if err := e.stale(); err != nil {
		return err
	}
	if e.kind != "item" || e.site.locations[e.text].unclickable {
		return fmt.Errorf("cannot click %s %q", e.kind, e.text)
	}
	e.site.clicked = append(e.site.clicked, e.text)
	e.site.current = e.text
	e.site.show("calendar")
	return nil
}

func (e *fakeElement) Find(ctx context.Context, sel string) (browser.Element, error) {
	if err := e.stale(); err != nil {
		return nil, err
	}
	if e.kind == "item" && sel == e.site.sel.LocationName {
		return &fakeElement{site: e.site, gen: e.gen, kind: "label", text: "  " + e.text + "\n"}, nil
	}
	return nil, fmt.Errorf("%w: %s", browser.ErrElementNotFound, sel)
}

func (e *fakeElement) Parent(ctx context.Context) (browser.Element, error) {
	if err := e.stale(); err != nil {
		return nil, err
	}
	if e.parent == nil {
		return nil, browser.ErrElementNotFound
	}
	return e.parent, nil
}
