package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/REMSofram/plateforme-coach/internal/calendar"
)

// Mode selects how a session is repeated when duplicated.
type Mode string

const (
	// ModeNone produces a single copy on the day after the anchor.
	ModeNone Mode = "none"
	// ModeWeekly repeats every 7 days.
	ModeWeekly Mode = "weekly"
	// ModeBiweekly repeats every 14 days.
	ModeBiweekly Mode = "biweekly"
	// ModeMonthly repeats on the same day of each following month.
	ModeMonthly Mode = "monthly"
)

const (
	// MinOccurrences is the lower bound accepted for recurring duplication.
	MinOccurrences = 1
	// MaxOccurrences is the upper bound accepted for recurring duplication.
	MaxOccurrences = 12
)

// ErrInvalidMode indicates the recurrence mode is not supported.
var ErrInvalidMode = errors.New("recurrence: invalid mode")

// ParseMode reads a mode name case-insensitively. An empty value means ModeNone.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeNone:
		return ModeNone, nil
	case ModeWeekly:
		return ModeWeekly, nil
	case ModeBiweekly:
		return ModeBiweekly, nil
	case ModeMonthly:
		return ModeMonthly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, value)
	}
}

// Recurring reports whether the mode produces more than a single copy.
func (m Mode) Recurring() bool {
	return m == ModeWeekly || m == ModeBiweekly || m == ModeMonthly
}

// Policy describes a duplication request.
type Policy struct {
	Mode        Mode
	Occurrences int
	AnchorDate  calendar.Date
}

// Template carries the session fields copied onto every candidate.
type Template struct {
	ClientID    string
	Title       string
	Description string
	StartTime   string
	EndTime     string
}

// Candidate is a session to be created on Date. It has no identity yet.
type Candidate struct {
	Template
	Date calendar.Date
}

// ClampOccurrences forces n into [MinOccurrences, MaxOccurrences].
func ClampOccurrences(n int) int {
	if n < MinOccurrences {
		return MinOccurrences
	}
	if n > MaxOccurrences {
		return MaxOccurrences
	}
	return n
}

// Expand returns the candidates produced by policy for the template.
//
// The anchor itself is never part of the result. Occurrences are not clamped
// here; a recurring policy with Occurrences <= 0 yields no candidates.
func Expand(template Template, policy Policy) ([]Candidate, error) {
	dates, err := Dates(policy)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(dates))
	for _, date := range dates {
		candidates = append(candidates, Candidate{Template: template, Date: date})
	}
	return candidates, nil
}

// Dates returns the target dates of policy in chronological order.
func Dates(policy Policy) ([]calendar.Date, error) {
	if policy.AnchorDate.IsZero() {
		return nil, fmt.Errorf("recurrence: anchor date is required")
	}

	switch policy.Mode {
	case ModeNone, "":
		return []calendar.Date{policy.AnchorDate.AddDays(1)}, nil
	case ModeWeekly, ModeBiweekly, ModeMonthly:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, policy.Mode)
	}

	if policy.Occurrences <= 0 {
		return []calendar.Date{}, nil
	}

	rule, err := rrule.NewRRule(buildOption(policy))
	if err != nil {
		return nil, fmt.Errorf("recurrence: build rule: %w", err)
	}

	dates := make([]calendar.Date, 0, policy.Occurrences)
	for _, occurrence := range rule.All() {
		date := calendar.DateOf(occurrence)
		if !date.After(policy.AnchorDate) {
			continue
		}
		dates = append(dates, date)
		if len(dates) == policy.Occurrences {
			break
		}
	}
	return dates, nil
}

func buildOption(policy Policy) rrule.ROption {
	opt := rrule.ROption{
		Dtstart: policy.AnchorDate.Time(time.UTC),
		// The anchor matches the rule and is dropped afterwards.
		Count: policy.Occurrences + 1,
	}

	switch policy.Mode {
	case ModeWeekly:
		opt.Freq = rrule.WEEKLY
		opt.Interval = 1
	case ModeBiweekly:
		opt.Freq = rrule.WEEKLY
		opt.Interval = 2
	case ModeMonthly:
		opt.Freq = rrule.MONTHLY
		opt.Interval = 1
		day := policy.AnchorDate.Day
		if day <= 28 {
			opt.Bymonthday = []int{day}
			break
		}
		// Last existing day among 28..day, so Jan 31 lands on Feb 28/29.
		for d := 28; d <= day; d++ {
			opt.Bymonthday = append(opt.Bymonthday, d)
		}
		opt.Bysetpos = []int{-1}
	}
	return opt
}
