package errors

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect int
	}{
		{name: "validation", err: NewValidationError("bad input", nil), expect: http.StatusBadRequest},
		{name: "transport", err: NewTransportError("cat API responded 500", 500, "boom"), expect: http.StatusBadGateway},
		{name: "network", err: NewNetworkError("cat API unreachable", nil), expect: http.StatusBadGateway},
		{name: "not found", err: NewNotFoundError("no vote found", nil), expect: http.StatusNotFound},
		{name: "duplicate favourite", err: NewAlreadyFavouritedError("already favourited"), expect: http.StatusConflict},
		{name: "internal", err: NewInternalError("broken", nil), expect: http.StatusInternalServerError},
		{name: "plain error", err: errors.New("who knows"), expect: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetStatusCode(tt.err); got != tt.expect {
				t.Errorf("Expected %d, got %d", tt.expect, got)
			}
		})
	}
}

func TestIsType(t *testing.T) {
	err := NewAlreadyFavouritedError("already favourited")
	if !IsType(err, ErrorTypeAlreadyFavourited) {
		t.Error("Expected already_favourited match")
	}
	if IsType(err, ErrorTypeTransport) {
		t.Error("Expected mismatch for other type")
	}
	if IsType(errors.New("plain"), ErrorTypeInternal) {
		t.Error("Plain errors carry no type")
	}
}

func TestTransportError_KeepsUpstreamDetails(t *testing.T) {
	err := NewTransportError("cat API responded 429", 429, "rate limited")
	if !strings.Contains(err.Details, "HTTP 429") || !strings.Contains(err.Details, "rate limited") {
		t.Errorf("Expected upstream status and body in details, got %q", err.Details)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewNetworkError("cat API unreachable", cause)
	if !errors.Is(err, cause) {
		t.Error("Expected the cause to be reachable through Unwrap")
	}
}
