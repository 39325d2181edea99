package core

import (
	"errors"
	"net/http"
	"testing"
)

func TestCacheError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *CacheError
		expected string
	}{
		{
			name: "error with tenant",
			err: &CacheError{
				Type:    ErrorTypeNotFound,
				Message: "cache not registered",
				Tenant:  "acme",
			},
			expected: "[acme] not_found_error: cache not registered",
		},
		{
			name: "error without tenant",
			err: &CacheError{
				Type:    ErrorTypeInvalidRequest,
				Message: "bad request",
			},
			expected: "invalid_request_error: bad request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCacheError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	cacheErr := NewStorageError("acme", "export failed", originalErr)

	if unwrapped := cacheErr.Unwrap(); unwrapped != originalErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, originalErr)
	}
	if !errors.Is(cacheErr, originalErr) {
		t.Error("errors.Is should find the original error")
	}
}

func TestCacheError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      *CacheError
		expected int
	}{
		{
			name:     "explicit status code wins",
			err:      &CacheError{Type: ErrorTypeNotFound, StatusCode: http.StatusGone},
			expected: http.StatusGone,
		},
		{
			name:     "not found default",
			err:      &CacheError{Type: ErrorTypeNotFound},
			expected: http.StatusNotFound,
		},
		{
			name:     "invalid request default",
			err:      &CacheError{Type: ErrorTypeInvalidRequest},
			expected: http.StatusBadRequest,
		},
		{
			name:     "storage default",
			err:      &CacheError{Type: ErrorTypeStorage},
			expected: http.StatusBadGateway,
		},
		{
			name:     "authentication default",
			err:      &CacheError{Type: ErrorTypeAuthentication},
			expected: http.StatusUnauthorized,
		},
		{
			name:     "unknown type",
			err:      &CacheError{Type: "mystery"},
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatusCode(); got != tt.expected {
				t.Errorf("HTTPStatusCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCacheError_ToJSON(t *testing.T) {
	err := NewNotFoundError("acme", "no cache registered")
	body, ok := err.ToJSON()["error"].(map[string]interface{})
	if !ok {
		t.Fatal("expected error object in JSON body")
	}
	if body["type"] != ErrorTypeNotFound {
		t.Errorf("type = %v, want %v", body["type"], ErrorTypeNotFound)
	}
	if body["tenant"] != "acme" {
		t.Errorf("tenant = %v, want acme", body["tenant"])
	}

	invalid := NewInvalidRequestError("bad since", nil)
	body = invalid.ToJSON()["error"].(map[string]interface{})
	if _, present := body["tenant"]; present {
		t.Error("tenant should be omitted when empty")
	}
}
