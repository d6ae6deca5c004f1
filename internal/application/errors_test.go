package application

import "testing"

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"password": "too short", "email": "invalid"}}
	if got := withFields.Error(); got != "validation failed: email: invalid; password: too short" {
		t.Fatalf("expected fields in name order, got %q", got)
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	if base.HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	base.merge(&ValidationError{FieldErrors: map[string]string{"second": "another"}})
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 || !base.HasErrors() {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}
