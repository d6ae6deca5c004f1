package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrStoreUnavailable is matched by every failed read or write against the session store.
	ErrStoreUnavailable = errors.New("schedule: store unavailable")
	// ErrSessionNotFound is returned by stores when the session id does not exist.
	ErrSessionNotFound = errors.New("schedule: session not found")
	// ErrNoSelection is returned by detail panel actions that need a selected session.
	ErrNoSelection = errors.New("schedule: no session selected")
	// ErrNoPendingDelete is returned when a delete is confirmed without being requested.
	ErrNoPendingDelete = errors.New("schedule: no delete pending")
)

// StoreError wraps a store failure with the operation that produced it.
type StoreError struct {
	Op  string
	Err error
}

// Unavailable wraps err as a store failure for op.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("schedule: %s: store unavailable", e.Op)
	}
	return fmt.Sprintf("schedule: %s: store unavailable: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes every StoreError match ErrStoreUnavailable.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// PartialBatchFailure reports a batch creation that returned fewer records than requested.
// Sessions holds the records that were created; they stay persisted.
type PartialBatchFailure struct {
	Requested int
	Created   int
	Sessions  []Session
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("schedule: batch created %d of %d sessions", e.Created, e.Requested)
}

// ValidationError captures local input problems caught before any store call.
type ValidationError struct {
	FieldErrors map[string]string
}

func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// ErrorKind maps errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var (
		partial *PartialBatchFailure
		vErr    *ValidationError
	)
	switch {
	case errors.As(err, &partial):
		return "partial_batch"
	case errors.As(err, &vErr):
		return "validation"
	case errors.Is(err, ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrNoSelection), errors.Is(err, ErrNoPendingDelete):
		return "state"
	}
	return "unexpected"
}
