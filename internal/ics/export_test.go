package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/REMSofram/plateforme-coach/internal/schedule"
	"github.com/REMSofram/plateforme-coach/internal/testfixtures"
)

func parse(t *testing.T, body string) map[string]*ical.VEvent {
	t.Helper()
	cal, err := ical.ParseCalendar(strings.NewReader(body))
	if err != nil {
		t.Fatalf("ParseCalendar returned error: %v", err)
	}
	events := make(map[string]*ical.VEvent)
	for _, event := range cal.Events() {
		events[event.Id()] = event
	}
	return events
}

func property(t *testing.T, event *ical.VEvent, name ical.ComponentProperty) string {
	t.Helper()
	prop := event.GetProperty(name)
	if prop == nil {
		t.Fatalf("event %s has no %s", event.Id(), name)
	}
	return prop.Value
}

func TestExport(t *testing.T) {
	t.Parallel()

	paris := time.FixedZone("CEST", 2*60*60)
	sessions := []schedule.Session{
		testfixtures.NewSessionFixture(
			testfixtures.WithSessionID("timed"),
			testfixtures.WithSessionTitle("Cardio"),
			testfixtures.WithSessionDescription("30 min de vélo"),
			testfixtures.WithSessionDate("2024-06-05"),
			testfixtures.WithSessionTimes("07:30", "08:15"),
		).Schedule(),
		testfixtures.NewSessionFixture(
			testfixtures.WithSessionID("open-ended"),
			testfixtures.WithSessionDate("2024-06-06"),
			testfixtures.WithSessionTimes("18:00", ""),
		).Schedule(),
		testfixtures.NewSessionFixture(
			testfixtures.WithSessionID("all-day"),
			testfixtures.WithSessionDate("2024-06-07"),
		).Schedule(),
	}

	body := Export(sessions, Options{Name: "Séances de Léa", Location: paris, Now: testfixtures.ReferenceTime()})
	if !strings.Contains(body, "PRODID:"+productID) {
		t.Fatalf("expected product id in %q", body)
	}
	if !strings.Contains(body, "X-WR-CALNAME:Séances de Léa") {
		t.Fatalf("expected calendar name in %q", body)
	}

	events := parse(t, body)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	timed := events["timed@plateforme-coach"]
	if timed == nil {
		t.Fatalf("timed event missing from %v", events)
	}
	if got := property(t, timed, ical.ComponentPropertySummary); got != "Cardio" {
		t.Fatalf("unexpected summary %q", got)
	}
	if got := property(t, timed, ical.ComponentPropertyDtStart); got != "20240605T053000Z" {
		t.Fatalf("expected start converted to UTC, got %q", got)
	}
	if got := property(t, timed, ical.ComponentPropertyDtEnd); got != "20240605T061500Z" {
		t.Fatalf("unexpected end %q", got)
	}

	openEnded := events["open-ended@plateforme-coach"]
	if got := property(t, openEnded, ical.ComponentPropertyDtEnd); got != "20240606T170000Z" {
		t.Fatalf("expected one hour default span, got %q", got)
	}

	allDay := events["all-day@plateforme-coach"]
	if got := property(t, allDay, ical.ComponentPropertyDtStart); got != "20240607" {
		t.Fatalf("expected all-day start, got %q", got)
	}
	if got := property(t, allDay, ical.ComponentPropertyDtEnd); got != "20240608" {
		t.Fatalf("expected exclusive all-day end, got %q", got)
	}
}

func TestExportEmpty(t *testing.T) {
	t.Parallel()

	body := Export(nil, Options{Now: testfixtures.ReferenceTime()})
	if len(parse(t, body)) != 0 {
		t.Fatalf("expected no events")
	}
	if !strings.HasPrefix(body, "BEGIN:VCALENDAR") {
		t.Fatalf("expected a calendar envelope, got %q", body)
	}
}
