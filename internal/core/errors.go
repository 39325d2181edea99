// Package core provides core types and interfaces shared by the cache packages.
package core

import (
	"fmt"
	"net/http"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeNotFound indicates an unregistered tenant cache (404)
	ErrorTypeNotFound ErrorType = "not_found_error"
	// ErrorTypeInvalidRequest indicates a client error (4xx)
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeStorage indicates a failure in an export store (5xx)
	ErrorTypeStorage ErrorType = "storage_error"
	// ErrorTypeAuthentication indicates a missing or wrong master key (401)
	ErrorTypeAuthentication ErrorType = "authentication_error"
)

// CacheError is the base error type for all cache errors
type CacheError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Tenant     string    `json:"tenant,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *CacheError) Error() string {
	if e.Tenant != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Tenant, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *CacheError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *CacheError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeStorage:
		return http.StatusBadGateway
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map
func (e *CacheError) ToJSON() map[string]interface{} {
	body := map[string]interface{}{
		"type":    e.Type,
		"message": e.Message,
	}
	if e.Tenant != "" {
		body["tenant"] = e.Tenant
	}
	return map[string]interface{}{"error": body}
}

// NewNotFoundError creates an error for a tenant without a registered cache (404)
func NewNotFoundError(tenant string, message string) *CacheError {
	return &CacheError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Tenant:     tenant,
	}
}

// NewInvalidRequestError creates a new invalid request error (400)
func NewInvalidRequestError(message string, err error) *CacheError {
	return &CacheError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewStorageError creates an error for a failed export store operation (502)
func NewStorageError(tenant string, message string, err error) *CacheError {
	return &CacheError{
		Type:       ErrorTypeStorage,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Tenant:     tenant,
		Err:        err,
	}
}

// NewAuthenticationError creates a new authentication error (401)
func NewAuthenticationError(message string) *CacheError {
	return &CacheError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}
