package session

import (
	"context"

	"github.com/lexiqai/live-translator/internal/config"
)

// Handle identifies one provider connection. Events carrying a handle that is
// not the current session's are discarded.
type Handle string

// Result is the text of one partial or final recognition event
type Result struct {
	Text        string
	Translation string
}

// Connection is an open provider connection
type Connection interface {
	// Handle returns the handle the connection was opened with
	Handle() Handle

	// Close stops recognition. It must be idempotent.
	Close() error
}

// Listener receives provider callbacks. Implementations are called from the
// provider's own goroutines.
type Listener interface {
	OnPartial(h Handle, r Result)
	OnFinal(h Handle, r Result)

	// OnSessionEnded reports provider-side termination; err is nil for a clean end
	OnSessionEnded(h Handle, err error)
}

// Provider opens recognition connections
type Provider interface {
	// Open starts continuous recognition for settings. Callbacks for the
	// connection are delivered to l tagged with h, possibly before Open returns.
	Open(ctx context.Context, h Handle, settings config.Settings, l Listener) (Connection, error)
}

// Notifier is told about every new output snapshot. It is called from the
// controller loop and must not block.
type Notifier interface {
	OutputsChanged(s Snapshot)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Snapshot)

func (f NotifierFunc) OutputsChanged(s Snapshot) { f(s) }
