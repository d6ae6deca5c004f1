package schedule

import "testing"

func TestDetectOverlaps(t *testing.T) {
	t.Parallel()

	session := func(id, start, end string) Session {
		return Session{ID: id, StartTime: start, EndTime: end}
	}

	tests := []struct {
		name     string
		sessions []Session
		want     []Overlap
	}{
		{
			name:     "intersecting ranges",
			sessions: []Session{session("a", "07:30", "08:30"), session("b", "08:00", "09:00")},
			want:     []Overlap{{First: "a", Second: "b"}},
		},
		{
			name:     "touching ranges do not overlap",
			sessions: []Session{session("a", "07:30", "08:30"), session("b", "08:30", "09:00")},
		},
		{
			name:     "missing end lasts one hour",
			sessions: []Session{session("a", "18:00", ""), session("b", "18:45", "19:30")},
			want:     []Overlap{{First: "a", Second: "b"}},
		},
		{
			name:     "untimed sessions are ignored",
			sessions: []Session{session("a", "", ""), session("b", "09:00", "10:00"), session("c", "", "")},
		},
		{
			name: "every intersecting pair is reported",
			sessions: []Session{
				session("a", "09:00", "12:00"),
				session("b", "09:30", "10:00"),
				session("c", "11:00", "11:30"),
			},
			want: []Overlap{{First: "a", Second: "b"}, {First: "a", Second: "c"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := DetectOverlaps(tt.sessions)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}
