// Package notify delivers appointment results to recipients.
package notify

import (
	"context"
	"log/slog"

	"dmvScrapper/pkg/scraper"
)

// ErrNoAppointments is returned when a notifier is handed an empty result
var ErrNoAppointments = scraper.ErrNoAppointments

// Notifier delivers a non-empty, date-sorted list of appointments.
// Delivery is attempted once.
type Notifier interface {
	Notify(ctx context.Context, appointments []scraper.Observation) error
}

// Func adapts a function to Notifier
type Func func(ctx context.Context, appointments []scraper.Observation) error

func (f Func) Notify(ctx context.Context, appointments []scraper.Observation) error {
	return f(ctx, appointments)
}

// Log only writes the appointments to the log
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(ctx context.Context, appointments []scraper.Observation) error {
	if len(appointments) == 0 {
		return ErrNoAppointments
	}
	for _, a := range appointments {
		date, _ := a.Date()
		l.Logger.InfoContext(ctx, "appointment available", "location", a.Location(), "date", date.Format(scraper.DateLayout))
	}
	return nil
}
