package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation marks blocking input errors shown next to the offending field.
	ErrValidation = errors.New("validation error")
	// ErrProvider marks wallet or provider errors mapped to fixed user messages.
	ErrProvider = errors.New("provider error")
	// ErrTransient marks upload, transcode and network failures worth a manual retry.
	ErrTransient = errors.New("transient failure")
	// ErrUnexpected marks anything that could not be classified.
	ErrUnexpected          = errors.New("unexpected error")
	ErrTimeout             = errors.New("timeout")
	ErrNotFound            = errors.New("not found")
	ErrConfiguration       = errors.New("configuration error")
	ErrReceiptEventMissing = errors.New("receipt event missing")
)

// GenericUserMessage is shown for unexpected errors.
const GenericUserMessage = "Something is wrong"

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrUnexpected
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the persisted taxonomy name for err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrProvider):
		return "provider"
	case errors.Is(err, ErrReceiptEventMissing):
		return "receipt_event_missing"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "unexpected"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// FieldErrors maps form field names to inline error messages.
type FieldErrors map[string]string

// Add records msg for field unless the field already has an error.
func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; ok {
		return
	}
	f[field] = msg
}

// Err returns nil when no field failed.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+f[field])
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (f FieldErrors) Is(target error) bool {
	return target == ErrValidation
}

// UserError pairs a cause with the fixed text shown to the user.
type UserError struct {
	Message string
	Err     error
}

// WithUserMessage attaches user-facing text to err.
func WithUserMessage(err error, message string) error {
	if err == nil {
		return nil
	}
	return &UserError{Message: message, Err: err}
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Err.Error()
}

func (e *UserError) Unwrap() error { return e.Err }

// UserMessage returns the text to surface for err. Validation errors use their
// own message, errors carrying a UserError use its text, and everything else
// falls back to the generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var userErr *UserError
	if errors.As(err, &userErr) && strings.TrimSpace(userErr.Message) != "" {
		return userErr.Message
	}
	var fields FieldErrors
	if errors.As(err, &fields) {
		return fields.Error()
	}
	return GenericUserMessage
}
