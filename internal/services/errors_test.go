package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"clipto/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "uploader", "upload chunk", "failed", base)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"uploader", "upload chunk", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToUnexpected(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrUnexpected) {
		t.Fatalf("expected unexpected marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrValidation, "form", "", "", nil), "validation"},
		{services.Wrap(services.ErrProvider, "wallet", "", "", nil), "provider"},
		{services.Wrap(services.ErrTransient, "upload", "", "", nil), "transient"},
		{services.Wrap(services.ErrReceiptEventMissing, "minter", "", "", nil), "receipt_event_missing"},
		{services.Wrap(services.ErrTimeout, "poll", "", "", nil), "timeout"},
		{errors.New("plain"), "unexpected"},
		{services.FieldErrors{"name": "This field cannot be empty"}, "validation"},
	}
	for _, tc := range tests {
		if got := services.Kind(tc.err); got != tc.want {
			t.Errorf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestFieldErrors(t *testing.T) {
	fields := services.FieldErrors{}
	if fields.Err() != nil {
		t.Fatal("expected nil error for empty field set")
	}
	fields.Add("name", "This field cannot be empty")
	fields.Add("name", "ignored")
	fields.Add("description", "This field cannot be empty")

	err := fields.Err()
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected field errors to match ErrValidation, got %v", err)
	}
	if fields["name"] != "This field cannot be empty" {
		t.Fatalf("expected first message kept, got %q", fields["name"])
	}
	var got services.FieldErrors
	if !errors.As(fmt.Errorf("submit: %w", err), &got) || len(got) != 2 {
		t.Fatalf("expected both field errors through wrapping, got %v", got)
	}
}

func TestUserMessage(t *testing.T) {
	cause := services.Wrap(services.ErrProvider, "wallet", "activate", "", errors.New("The user rejected the request"))
	err := fmt.Errorf("login: %w", services.WithUserMessage(cause, "The MetaMask login was closed, try connecting again"))
	if got := services.UserMessage(err); got != "The MetaMask login was closed, try connecting again" {
		t.Fatalf("unexpected user message %q", got)
	}
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider marker through user error, got %v", err)
	}
	if got := services.UserMessage(errors.New("nil pointer")); got != services.GenericUserMessage {
		t.Fatalf("expected generic message, got %q", got)
	}
	if services.UserMessage(nil) != "" {
		t.Fatal("expected empty message for nil")
	}
}
