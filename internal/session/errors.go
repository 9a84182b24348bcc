package session

import "errors"

var (
	// ErrAlreadyRunning is returned by Start while a session is listening
	ErrAlreadyRunning = errors.New("recognition session is already running")

	// ErrControllerClosed is returned for commands submitted after Run has returned
	ErrControllerClosed = errors.New("session controller is closed")
)

// ProviderConnectError wraps a failure to open the recognition provider
type ProviderConnectError struct {
	Err error
}

func (e *ProviderConnectError) Error() string {
	return "failed to connect to recognition provider: " + e.Err.Error()
}

func (e *ProviderConnectError) Unwrap() error {
	return e.Err
}

// SessionEndedError carries the cause reported by the provider when it ends a session
type SessionEndedError struct {
	Err error
}

func (e *SessionEndedError) Error() string {
	return "recognition session ended by provider: " + e.Err.Error()
}

func (e *SessionEndedError) Unwrap() error {
	return e.Err
}
