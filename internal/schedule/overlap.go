package schedule

import "time"

// Overlap pairs two sessions of the same day whose time ranges intersect.
type Overlap struct {
	First  string
	Second string
}

// DetectOverlaps reports the intersecting pairs within one day bucket, in
// bucket order. Sessions without a start time are skipped; a missing or
// inverted end time counts as one hour after the start.
func DetectOverlaps(sessions []Session) []Overlap {
	type span struct {
		id         string
		start, end int
	}
	spans := make([]span, 0, len(sessions))
	for _, session := range sessions {
		start, ok := clockMinutes(session.StartTime)
		if !ok {
			continue
		}
		end, ok := clockMinutes(session.EndTime)
		if !ok || end <= start {
			end = start + 60
		}
		spans = append(spans, span{id: session.ID, start: start, end: end})
	}

	var overlaps []Overlap
	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			if spans[i].start < spans[j].end && spans[j].start < spans[i].end {
				overlaps = append(overlaps, Overlap{First: spans[i].id, Second: spans[j].id})
			}
		}
	}
	return overlaps
}

func clockMinutes(value string) (int, bool) {
	value, ok := ValidateClock(value)
	if !ok || value == "" {
		return 0, false
	}
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
