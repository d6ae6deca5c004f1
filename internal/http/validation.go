package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/REMSofram/plateforme-coach/internal/application"
	"github.com/REMSofram/plateforme-coach/internal/schedule"
)

const maxBodyBytes = 1 << 20

// requestValidator checks decoded request bodies. Field names in reported
// errors follow the json tags.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, ok := schedule.ValidateClock(fl.Field().String())
		return ok
	})
	return requestValidator{validate: v}
}

// decode reads a JSON body into dst and validates it. Syntax problems yield
// errBadRequestBody; rule violations yield *application.ValidationError.
func (rv requestValidator) decode(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequestBody, err)
	}
	return rv.check(dst)
}

func (rv requestValidator) check(value any) error {
	err := rv.validate.Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", errBadRequestBody, err)
	}

	vErr := &application.ValidationError{FieldErrors: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		vErr.FieldErrors[fieldPath(fe.Namespace())] = ruleMessage(fe)
	}
	return vErr
}

// fieldPath drops the struct name: "BatchRequest.sessions[0].date" becomes
// "sessions[0].date".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value is required"
	case "email":
		return "email is invalid"
	case "clock":
		return "time must be HH:MM"
	case "oneof":
		return "value must be one of " + fe.Param()
	case "min", "gt":
		return "value is too small"
	case "max", "lt":
		return "value is too large"
	default:
		return "value is invalid"
	}
}
