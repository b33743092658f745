package shared

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"hradmin/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// payloads checks `validate` struct tags and reports fields by their json names.
var payloads = newPayloadValidator()

func newPayloadValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(err)
	}
	return v
}

// Validator collects field issues for one request and renders them as a validation_error.
type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{issues: make([]ValidationIssue, 0, 4)}
}

func (v *Validator) Add(field, reason string) {
	if v == nil {
		return
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{Field: strings.TrimSpace(field), Reason: reason})
}

// Struct runs the tag rules of payload, a pointer or value of a struct type.
func (v *Validator) Struct(payload any) {
	v.collect("", payloads.Struct(payload))
}

// Var checks a single value against tag and files failures under field.
func (v *Validator) Var(field string, value any, tag string) {
	v.collect(field, payloads.Var(value, tag))
}

func (v *Validator) collect(field string, err error) {
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.Add(field, "could not be validated")
		return
	}
	for _, fe := range fieldErrs {
		name := field
		if name == "" {
			name = fieldPath(fe.Namespace())
		}
		v.Add(name, reasonFor(fe))
	}
}

// fieldPath drops the struct type prefix from a namespace like "grantRequest.empIds[0]".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func reasonFor(fe validator.FieldError) string {
	kind := fe.Kind()
	collection := kind == reflect.Slice || kind == reflect.Array || kind == reflect.Map
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "min", "gte":
		if collection {
			if fe.Param() == "1" {
				return "select at least one item"
			}
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		if kind == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max", "lte":
		if collection {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		if kind == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	}
	return "is invalid"
}

func (v *Validator) Required(field, value, reason string) {
	if payloads.Var(strings.TrimSpace(value), "required") != nil {
		v.Add(field, reason)
	}
}

// Enum accepts value case-insensitively; blank values pass.
func (v *Validator) Enum(field, value string, allowed []string, reason string) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return
	}
	options := make([]string, 0, len(allowed))
	for _, candidate := range allowed {
		options = append(options, strings.ToLower(strings.TrimSpace(candidate)))
	}
	if payloads.Var(normalized, "oneof="+strings.Join(options, " ")) != nil {
		v.Add(field, reason)
	}
}

// Email accepts a blank value or one well-formed address.
func (v *Validator) Email(field, value string) {
	v.Var(field, strings.TrimSpace(value), "omitempty,email")
}

func (v *Validator) Date(field, raw string) (time.Time, bool) {
	parsed, err := ParseDate(strings.TrimSpace(raw))
	if err != nil || parsed.IsZero() {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return parsed, true
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

// Issues returns the collected issues sorted by field then reason.
func (v *Validator) Issues() []ValidationIssue {
	if v == nil || len(v.issues) == 0 {
		return nil
	}
	out := make([]ValidationIssue, len(v.issues))
	copy(out, v.issues)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field == out[j].Field {
			return out[i].Reason < out[j].Reason
		}
		return out[i].Field < out[j].Field
	})
	return out
}

// Reject writes the validation_error response when issues were collected.
func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	FailValidation(w, requestID, v.Issues())
	return true
}

// DecodeAndValidate decodes the body into dst and checks its tags, writing the failure itself.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	if !DecodeJSON(w, r, dst, requestID) {
		return false
	}
	v := NewValidator()
	v.Struct(dst)
	return !v.Reject(w, requestID)
}

func FailValidation(w http.ResponseWriter, requestID string, issues []ValidationIssue) {
	api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed",
		map[string]any{"fields": issues}, requestID)
}
