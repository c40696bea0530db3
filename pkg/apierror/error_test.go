package apierror

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew_Classification(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		httpStatus int
		want       Kind
	}{
		{name: "401 is authentication failure", code: 40, httpStatus: 401, want: KindAuthenticationFailed},
		{name: "404 is api error", code: 16, httpStatus: 404, want: KindAPI},
		{name: "429 is api error", code: 9, httpStatus: 429, want: KindAPI},
		{name: "500 is api error", code: 0, httpStatus: 500, want: KindAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", tt.httpStatus)
			if err.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", err.Kind, tt.want)
			}
			if err.Code != tt.code || err.HTTPStatus != tt.httpStatus {
				t.Errorf("Code/HTTPStatus = %d/%d, want %d/%d", err.Code, err.HTTPStatus, tt.code, tt.httpStatus)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	err := New(16, "not found", 404)

	if !errors.Is(err, &Error{Kind: KindAPI}) {
		t.Error("errors.Is should match on kind alone")
	}
	if !errors.Is(err, &Error{Kind: KindAPI, Code: 16}) {
		t.Error("errors.Is should match on kind and code")
	}
	if errors.Is(err, &Error{Kind: KindAPI, Code: 99}) {
		t.Error("errors.Is should not match a different code")
	}
	if errors.Is(err, &Error{Kind: KindTransport}) {
		t.Error("errors.Is should not match a different kind")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewTransport("request failed", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if err.HTTPStatus != 0 {
		t.Errorf("transport fault HTTPStatus = %d, want 0", err.HTTPStatus)
	}
}

func TestFrom(t *testing.T) {
	ae := New(5, "rate limited", 429)
	if got := From(fmt.Errorf("wrapped: %w", ae)); got != ae {
		t.Errorf("From() should unwrap to the original *Error, got %v", got)
	}

	plain := errors.New("dial tcp: timeout")
	got := From(plain)
	if got.Kind != KindTransport {
		t.Errorf("From(plain).Kind = %v, want KindTransport", got.Kind)
	}
	if !errors.Is(got, plain) {
		t.Error("From(plain) should wrap the original error")
	}
}

func TestNewAuthenticationFailed_SynthesizesStatus(t *testing.T) {
	err := NewAuthenticationFailed("connect rejected", nil)
	if err.HTTPStatus != 401 {
		t.Errorf("HTTPStatus = %d, want 401", err.HTTPStatus)
	}
	if err.Kind != KindAuthenticationFailed {
		t.Errorf("Kind = %v, want KindAuthenticationFailed", err.Kind)
	}
}

func TestIsKind(t *testing.T) {
	if !IsKind(NewNotAuthenticated("no session"), KindNotAuthenticated) {
		t.Error("IsKind should match KindNotAuthenticated")
	}
	if IsKind(errors.New("plain"), KindTransport) {
		t.Error("IsKind should be false for non-SDK errors")
	}
}
