package client

import (
	"fmt"
	"net/http"
	"net/url"
)

// ErrorClass represents a classification of fetch errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a response body that is not the expected document.
	ErrorClassDecode ErrorClass = "decode"
)

// FetchError is returned for any page request that did not produce a usable
// response. It ends the run; requests are never retried.
type FetchError struct {
	StatusCode int
	Class      ErrorClass
	URL        string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s error (status %d): %s: %v",
			e.URL, e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s error (status %d): %s",
		e.URL, e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClassifyStatus maps an HTTP status code to an error class. It returns ""
// for success codes.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	case status < 200 || status >= 300:
		return ErrorClassClient
	default:
		return ""
	}
}

// RedactURL returns u without its user info, so API keys never reach logs
// or error messages.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clean := *u
	clean.User = nil
	return clean.String()
}
