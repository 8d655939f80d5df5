package model

import "fmt"

// AuthError indicates that a token exchange with the brokerage login
// server returned a non-success status.
type AuthError struct {
	Status int
}

func NewAuthError(status int) *AuthError {
	return &AuthError{Status: status}
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("token exchange failed with status %d", e.Status)
}

// APIError indicates a non-success response from an upstream data API
// (brokerage or exchange-rate provider).
type APIError struct {
	URL    string
	Status int
	Body   string
}

func NewAPIError(url string, status int, body string) *APIError {
	return &APIError{URL: url, Status: status, Body: body}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream API returned status %d for %s: %s", e.Status, e.URL, e.Body)
}

// CacheError indicates a persistence failure while reading or writing
// cached investment data.
type CacheError struct {
	Op  string
	Err error
}

func NewCacheReadError(err error) *CacheError {
	return &CacheError{Op: "read", Err: err}
}

func NewCacheWriteError(err error) *CacheError {
	return &CacheError{Op: "write", Err: err}
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s failed: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// DefectError indicates an upstream payload that violates the shape this
// service depends on, e.g. an account balance response without a CAD entry.
type DefectError struct {
	Reason string
}

func NewDefectError(format string, args ...interface{}) *DefectError {
	return &DefectError{Reason: fmt.Sprintf(format, args...)}
}

func (e *DefectError) Error() string {
	return "aggregation defect: " + e.Reason
}
