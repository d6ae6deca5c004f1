package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}

	clock.Set(start.Add(2 * time.Hour))
	if got := clock.Current(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected %v, got %v", start.Add(2*time.Hour), got)
	}
}

func TestTickingClockIncreasesOnEveryRead(t *testing.T) {
	start := time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)
	clock := NewTickingClock(start, time.Second)

	first := clock.Now()
	second := clock.Now()
	if !first.Equal(start) || !second.Equal(start.Add(time.Second)) {
		t.Fatalf("unexpected ticks %v, %v", first, second)
	}
	if !clock.Current().Equal(start.Add(2 * time.Second)) {
		t.Fatalf("Current must not advance the clock, got %v", clock.Current())
	}
}

func TestClockToday(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	clock := NewClock(time.Date(2024, time.June, 2, 23, 30, 0, 0, time.UTC))

	if got := clock.Today(time.UTC).String(); got != "2024-06-02" {
		t.Fatalf("expected UTC date 2024-06-02, got %s", got)
	}
	if got := clock.Today(paris).String(); got != "2024-06-03" {
		t.Fatalf("expected Paris date 2024-06-03, got %s", got)
	}
}
