package stash

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "without wrapped error",
			err: &APIError{
				StatusCode: 500,
				Class:      ErrorClassServer,
				Message:    "500 Internal Server Error",
			},
			want: "stash server error (status 500): 500 Internal Server Error",
		},
		{
			name: "with wrapped error",
			err: &APIError{
				Class:   ErrorClassNetwork,
				Message: "findScenes request failed",
				Err:     errors.New("connection refused"),
			},
			want: "stash network error (status 0): findScenes request failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	inner := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("fetch page 3: %w", &APIError{
		Class: ErrorClassNetwork,
		Err:   inner,
	})

	if !errors.Is(err, inner) {
		t.Error("Expected errors.Is to find the wrapped error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Error("Expected errors.As to find the APIError")
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{status: 400, want: ErrorClassClient},
		{status: 401, want: ErrorClassClient},
		{status: 404, want: ErrorClassClient},
		{status: 500, want: ErrorClassServer},
		{status: 502, want: ErrorClassServer},
		{status: 200, want: ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.want {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}
