package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/REMSofram/plateforme-coach/internal/schedule"
)

const (
	productID   = "-//plateforme-coach//scheduler//FR"
	uidDomain   = "@plateforme-coach"
	defaultSpan = time.Hour
)

// Options control calendar generation.
type Options struct {
	// Name is shown by calendar apps as the feed title.
	Name string
	// Location interprets session start and end times. Nil means UTC.
	Location *time.Location
	// Now stamps every event.
	Now time.Time
}

// Export renders sessions as an iCalendar document.
//
// Sessions with a start time become timed events; an end time before the
// start, or none, gives a one hour event. Sessions without a start time
// become all-day events.
func Export(sessions []schedule.Session, opts Options) string {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	stamp := opts.Now
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	cal.SetXWRTimezone(loc.String())

	for _, session := range sessions {
		event := cal.AddEvent(session.ID + uidDomain)
		event.SetDtStampTime(stamp)
		event.SetSummary(session.Title)
		if session.Description != "" {
			event.SetDescription(session.Description)
		}

		start, ok := clockOn(session, session.StartTime, loc)
		if !ok {
			day := session.Date.Time(time.UTC)
			event.SetAllDayStartAt(day)
			event.SetAllDayEndAt(day.AddDate(0, 0, 1))
			continue
		}
		end, ok := clockOn(session, session.EndTime, loc)
		if !ok || !end.After(start) {
			end = start.Add(defaultSpan)
		}
		event.SetStartAt(start)
		event.SetEndAt(end)
	}
	return cal.Serialize()
}

func clockOn(session schedule.Session, value string, loc *time.Location) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	clock, err := time.Parse("15:04", value)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(session.Date.Year, session.Date.Month, session.Date.Day, clock.Hour(), clock.Minute(), 0, 0, loc), true
}
