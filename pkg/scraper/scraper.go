package scraper

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoAppointments is returned by notifiers asked to report an empty result
var ErrNoAppointments = errors.New("no appointments to report")

// DateLayout is the layout used when an appointment date is rendered as text
const DateLayout = "2006-01-02"

// Observation is one location's appointment state for a single run.
// The zero value is not meaningful; use NewObservation or NoAppointment.
type Observation struct {
	location string
	date     time.Time
	hasDate  bool
}

// NewObservation records the first bookable date found at a location.
// The time of day is discarded.
func NewObservation(location string, date time.Time) Observation {
	return Observation{
		location: location,
		date:     time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		hasDate:  true,
	}
}

// NoAppointment records a location that was visited but has no usable date
func NoAppointment(location string) Observation {
	return Observation{location: location}
}

// Location returns the location label as shown in the booking UI
func (o Observation) Location() string {
	return o.location
}

// Date returns the appointment date and whether one exists
func (o Observation) Date() (time.Time, bool) {
	return o.date, o.hasDate
}

// HasDate reports whether the location had an open slot
func (o Observation) HasDate() bool {
	return o.hasDate
}

func (o Observation) String() string {
	if !o.hasDate {
		return fmt.Sprintf("%s: none", o.location)
	}
	return fmt.Sprintf("%s: %s", o.location, o.date.Format(DateLayout))
}

// AppointmentDates extracts "location date" labels for logging
func AppointmentDates(observations []Observation) []string {
	dates := make([]string, 0, len(observations))
	for _, o := range observations {
		if d, ok := o.Date(); ok {
			dates = append(dates, fmt.Sprintf("%s %s", o.location, d.Format(DateLayout)))
		}
	}
	return dates
}
