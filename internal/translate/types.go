package translate

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingCredentials is returned when a request lacks a key or region
var ErrMissingCredentials = errors.New("translator credentials missing")

// Request is one text translation. The credential pair is the host's
// subscription key and region.
type Request struct {
	Text            string
	From            string
	To              string
	SubscriptionKey string
	Region          string
}

// Translator translates recognized text
type Translator interface {
	Translate(ctx context.Context, req Request) (string, error)
}

// StatusError reports a non-success response from the translation service
type StatusError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("translator returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("translator returned status %d", e.StatusCode)
}

// Temporary reports whether the request may succeed if repeated
func (e *StatusError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
