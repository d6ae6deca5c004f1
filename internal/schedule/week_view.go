package schedule

import (
	"context"
	"log/slog"
	"sync"

	"github.com/REMSofram/plateforme-coach/internal/calendar"
)

// WeekView holds one client's sessions for the current week window, bucketed
// per day. All bucket writes go through its methods.
type WeekView struct {
	store    SessionStore
	clientID string
	logger   *slog.Logger

	mu         sync.RWMutex
	window     WeekWindow
	buckets    map[calendar.Date][]Session
	loading    bool
	generation uint64
	deleted    map[string]struct{}
}

// NewWeekView returns a view positioned on the week containing start. Buckets
// are empty until SetWindow or Refresh loads them.
func NewWeekView(store SessionStore, clientID string, start calendar.Date, logger *slog.Logger) *WeekView {
	v := &WeekView{
		store:    store,
		clientID: clientID,
		logger:   defaultLogger(logger),
		deleted:  make(map[string]struct{}),
	}
	v.window = WindowContaining(start)
	v.buckets = emptyBuckets(v.window)
	return v
}

// ClientID returns the client whose sessions the view shows.
func (v *WeekView) ClientID() string {
	return v.clientID
}

// SetWindow moves the view to the week containing start and reloads it.
//
// On success every bucket is replaced. A response that arrives after another
// SetWindow call has started is discarded. On failure the buckets of the new
// window stay empty and the error is returned.
func (v *WeekView) SetWindow(ctx context.Context, start calendar.Date) error {
	window := WindowContaining(start)

	v.mu.Lock()
	if window != v.window {
		v.window = window
		v.buckets = emptyBuckets(window)
	}
	v.loading = true
	v.generation++
	generation := v.generation
	v.mu.Unlock()

	logger := componentLogger(ctx, v.logger, "WeekView", "SetWindow",
		"client_id", v.clientID,
		"window_start", window.Start.String(),
	)

	sessions, err := v.store.ListSessions(ctx, v.clientID, window.Start, window.End())

	v.mu.Lock()
	defer v.mu.Unlock()

	if generation != v.generation {
		logger.DebugContext(ctx, "discarding superseded window response")
		return nil
	}
	v.loading = false

	if err != nil {
		logger.ErrorContext(ctx, "failed to load week", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	buckets := emptyBuckets(window)
	for _, session := range sessions {
		if _, gone := v.deleted[session.ID]; gone {
			continue
		}
		if !window.Contains(session.Date) {
			continue
		}
		buckets[session.Date] = append(buckets[session.Date], session)
	}
	for day := range buckets {
		SortSessions(buckets[day])
	}
	v.buckets = buckets

	logger.DebugContext(ctx, "week loaded", "sessions", len(sessions))
	return nil
}

// ShiftWeek moves the window by delta weeks, usually +1 or -1.
func (v *WeekView) ShiftWeek(ctx context.Context, delta int) error {
	return v.SetWindow(ctx, v.Window().Shift(delta).Start)
}

// Refresh reloads the current window.
func (v *WeekView) Refresh(ctx context.Context) error {
	return v.SetWindow(ctx, v.Window().Start)
}

// ApplyLocalMutation removes the session from wherever it sits and reinserts
// it in the bucket of its date, keeping bucket order. Sessions dated outside
// the window are only removed. It reports whether the view changed.
func (v *WeekView) ApplyLocalMutation(session Session) bool {
	if session.ID == "" {
		return false
	}
	if session.ClientID != "" && session.ClientID != v.clientID {
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, gone := v.deleted[session.ID]; gone {
		return false
	}

	changed := v.removeLocked(session.ID)
	if bucket, ok := v.buckets[session.Date]; ok {
		bucket = append(bucket, session)
		SortSessions(bucket)
		v.buckets[session.Date] = bucket
		changed = true
	}
	return changed
}

// RemoveLocal drops the session from the view. Later mutations carrying the
// same id are ignored.
func (v *WeekView) RemoveLocal(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.deleted[id] = struct{}{}
	return v.removeLocked(id)
}

func (v *WeekView) removeLocked(id string) bool {
	for day, bucket := range v.buckets {
		for i := range bucket {
			if bucket[i].ID != id {
				continue
			}
			next := make([]Session, 0, len(bucket)-1)
			next = append(next, bucket[:i]...)
			next = append(next, bucket[i+1:]...)
			v.buckets[day] = next
			return true
		}
	}
	return false
}

// Find returns the session with id when it is in the current window.
func (v *WeekView) Find(id string) (Session, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	for _, bucket := range v.buckets {
		for _, session := range bucket {
			if session.ID == id {
				return session, true
			}
		}
	}
	return Session{}, false
}

// Window returns the current week window.
func (v *WeekView) Window() WeekWindow {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.window
}

// Loading reports whether a window load is in flight.
func (v *WeekView) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loading
}

// Day returns a copy of the bucket for date. Dates outside the window yield nil.
func (v *WeekView) Day(date calendar.Date) []Session {
	v.mu.RLock()
	defer v.mu.RUnlock()

	bucket, ok := v.buckets[date]
	if !ok {
		return nil
	}
	return append(make([]Session, 0, len(bucket)), bucket...)
}

// Buckets returns a copy of all seven buckets keyed by date.
func (v *WeekView) Buckets() map[calendar.Date][]Session {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make(map[calendar.Date][]Session, len(v.buckets))
	for day, bucket := range v.buckets {
		out[day] = append(make([]Session, 0, len(bucket)), bucket...)
	}
	return out
}

// Days returns the seven buckets in calendar order.
func (v *WeekView) Days() []Day {
	v.mu.RLock()
	defer v.mu.RUnlock()

	days := make([]Day, 0, DaysPerWeek)
	for _, date := range v.window.Days() {
		bucket := v.buckets[date]
		days = append(days, Day{Date: date, Sessions: append(make([]Session, 0, len(bucket)), bucket...)})
	}
	return days
}

func emptyBuckets(window WeekWindow) map[calendar.Date][]Session {
	buckets := make(map[calendar.Date][]Session, DaysPerWeek)
	for _, day := range window.Days() {
		buckets[day] = []Session{}
	}
	return buckets
}
