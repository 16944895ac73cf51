package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"dmvScrapper/internal/browser"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type location struct {
	name string
	el   browser.Element
}

// nextLocation scans the current list for the first location not visited
// yet and marks it visited. ok is false when every listed location has
// been seen.
func (r *run) nextLocation(ctx context.Context) (_ location, ok bool, _ error) {
	sel := r.cfg.Selectors

	items, err := r.session.FindAll(ctx, sel.LocationItem)
	if err != nil {
		return location{}, false, fatal(ctx, StageLocationList, fmt.Errorf("list locations: %w", err))
	}

	for i, item := range items {
		name, err := locationName(ctx, item, sel.LocationName)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return location{}, false, cerr
			}
			r.logger.Warn("unreadable location entry", "index", i, "error", err)
			continue
		}
		if name == "" {
			continue
		}
		if _, seen := r.processed[name]; seen {
			continue
		}
		r.processed[name] = struct{}{}
		return location{name: name, el: item}, true, nil
	}
	return location{}, false, nil
}

func locationName(ctx context.Context, item browser.Element, nameSel string) (string, error) {
	label, err := item.Find(ctx, nameSel)
	if err != nil {
		return "", err
	}
	text, err := label.Text(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// extractFirstAvailableDate reads the first selectable day of the calendar
// currently shown. Anything unreadable means "no usable date".
func (r *run) extractFirstAvailableDate(ctx context.Context, logger *slog.Logger) (time.Time, bool) {
	days, err := r.session.FindAll(ctx, r.cfg.Selectors.ActiveDay)
	if err != nil {
		logger.Warn("reading calendar failed", "error", err)
		return time.Time{}, false
	}
	if len(days) == 0 {
		return time.Time{}, false
	}

	first := days[0]
	dayText, err := first.Text(ctx)
	if err != nil {
		logger.Warn("reading calendar day failed", "error", err)
		return time.Time{}, false
	}
	month, err := first.Parent(ctx)
	if err != nil {
		logger.Warn("reading calendar month failed", "error", err)
		return time.Time{}, false
	}
	monthText, _, err := month.Attribute(ctx, monthAttr)
	if err != nil {
		logger.Warn("reading calendar month failed", "error", err)
		return time.Time{}, false
	}
	yearText, _, err := month.Attribute(ctx, yearAttr)
	if err != nil {
		logger.Warn("reading calendar year failed", "error", err)
		return time.Time{}, false
	}

	date, ok := parseCalendarDate(yearText, monthText, dayText)
	if !ok {
		logger.Debug("malformed calendar day", "day", dayText, "month", monthText, "year", yearText)
	}
	return date, ok
}

// parseCalendarDate builds a date from the datepicker's text. The month is
// zero-based. Values that are not integers or do not name a real day give
// ok == false.
func parseCalendarDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(strings.TrimSpace(day))
	if err != nil {
		return time.Time{}, false
	}
	m++

	date := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if date.Year() != y || int(date.Month()) != m || date.Day() != d {
		return time.Time{}, false
	}
	return date, true
}

func tracerAttrs(name string) trace.SpanStartOption {
	return trace.WithAttributes(attribute.String("location", name))
}
