package session

import (
	"context"
	"time"

	"github.com/lexiqai/live-translator/internal/config"
	"github.com/lexiqai/live-translator/internal/transcript"
)

// Session is one start-to-stop lifespan of continuous recognition
type Session struct {
	handle     Handle
	settings  config.Settings
	startedAt time.Time

	// conn is nil until the asynchronous open completes
	conn   Connection
	cancel context.CancelFunc

	// open is cleared exactly once, when the session leaves the active states
	open bool
}

// Handle returns the connection handle of the session
func (s *Session) Handle() Handle {
	return s.handle
}

// Settings returns the configuration the session was started with
func (s *Session) Settings() config.Settings {
	return s.settings
}

// Machine applies the lifecycle transitions of the control.
// It is not safe for concurrent use; the Controller is its only caller.
type Machine struct {
	state     State
	current   *Session
	errorText string
	newHandle func() Handle
	now       func() time.Time

	// transcript outlives its session so the host keeps the text after a
	// stop; it is reset when the next session starts
	transcript *transcript.Aggregator
}

// NewMachine returns a machine in StateIdle
func NewMachine(newHandle func() Handle) *Machine {
	return &Machine{
		state:      StateIdle,
		newHandle:  newHandle,
		now:        time.Now,
		transcript: transcript.New(),
	}
}

// State returns the current lifecycle state
func (m *Machine) State() State {
	return m.state
}

// Current returns the most recent session, which may already be closed
func (m *Machine) Current() *Session {
	return m.current
}

// Start validates settings and begins a fresh session in StateListening.
// The caller is responsible for opening the provider connection.
func (m *Machine) Start(settings config.Settings) (*Session, error) {
	if m.state.Active() {
		m.errorText = ErrAlreadyRunning.Error()
		return nil, ErrAlreadyRunning
	}

	if err := settings.Validate(); err != nil {
		m.state = StateIdle
		m.errorText = err.Error()
		return nil, err
	}

	s := &Session{
		handle:    m.newHandle(),
		settings:  settings,
		startedAt: m.now(),
		open:      true,
	}

	m.transcript.Reset()
	m.current = s
	m.state = StateListening
	m.errorText = ""
	return s, nil
}

// Opened attaches conn to the session it was opened for. It reports false
// when that session is no longer live; the caller must then close conn.
func (m *Machine) Opened(h Handle, conn Connection) bool {
	s := m.live(h)
	if s == nil {
		return false
	}
	s.conn = conn
	return true
}

// OpenFailed ends the session whose open attempt failed
func (m *Machine) OpenFailed(h Handle, err error) bool {
	s := m.live(h)
	if s == nil {
		return false
	}
	m.end(s)
	m.errorText = err.Error()
	return true
}

// Partial records an in-flight result
func (m *Machine) Partial(h Handle, r Result) bool {
	if m.live(h) == nil {
		return false
	}
	m.transcript.SetPartial(r.Text, r.Translation)
	m.state = StateRecognising
	return true
}

// Final appends a finalized utterance and clears the partial result
func (m *Machine) Final(h Handle, r Result) bool {
	if m.live(h) == nil {
		return false
	}
	m.transcript.AppendFinal(r.Text, r.Translation)
	m.transcript.ClearPartial()
	m.state = StateRecognised
	return true
}

// Stop ends the active session. It returns the session whose connection must
// be released, or false when there was nothing to stop.
func (m *Machine) Stop() (*Session, bool) {
	if !m.state.Active() || m.current == nil || !m.current.open {
		return nil, false
	}
	s := m.current
	m.end(s)
	return s, true
}

// Ended handles provider-initiated termination the same way as Stop
func (m *Machine) Ended(h Handle, cause error) (*Session, bool) {
	s := m.live(h)
	if s == nil {
		return nil, false
	}
	m.end(s)
	if cause != nil {
		m.errorText = (&SessionEndedError{Err: cause}).Error()
	}
	return s, true
}

// Snapshot returns the current outputs
func (m *Machine) Snapshot() Snapshot {
	snap := Snapshot{
		State:          m.state,
		ErrorText:      m.errorText,
		SourceText:     m.transcript.SourceText(),
		TranslatedText: m.transcript.TranslatedText(),
	}
	snap.SpokenRecognisingText, snap.TranslatedRecognisingText = m.transcript.Partial()
	return snap
}

func (m *Machine) live(h Handle) *Session {
	if m.current == nil || !m.current.open || m.current.handle != h {
		return nil
	}
	return m.current
}

func (m *Machine) end(s *Session) {
	s.open = false
	m.transcript.ClearPartial()
	m.state = StateStopped
}
