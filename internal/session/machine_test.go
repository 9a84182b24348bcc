package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lexiqai/live-translator/internal/config"
)

func validSettings() config.Settings {
	return config.Settings{
		SubscriptionKey: "test-key",
		Region:          "westeurope",
		SourceLanguage:  "en-US",
		TargetLanguage:  "fr-FR",
	}
}

func sequentialHandles() func() Handle {
	n := 0
	return func() Handle {
		n++
		return Handle(fmt.Sprintf("h%d", n))
	}
}

func TestMachine_InitialState(t *testing.T) {
	m := NewMachine(sequentialHandles())

	snap := m.Snapshot()
	if snap.State != StateIdle {
		t.Errorf("Expected initial state Idle, got %s", snap.State)
	}
	if snap.SourceText != "" || snap.ErrorText != "" {
		t.Errorf("Expected empty outputs, got %+v", snap)
	}
}

func TestMachine_StartStopWithoutEvents(t *testing.T) {
	m := NewMachine(sequentialHandles())

	s, err := m.Start(validSettings())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if m.State() != StateListening {
		t.Fatalf("Expected Listening, got %s", m.State())
	}

	stopped, ok := m.Stop()
	if !ok || stopped != s {
		t.Fatal("Expected Stop to return the started session")
	}

	snap := m.Snapshot()
	if snap.State.String() != "complete" {
		t.Errorf("Expected state 'complete', got %q", snap.State.String())
	}
	if snap.SourceText != "" || snap.TranslatedText != "" {
		t.Errorf("Expected empty transcripts, got %+v", snap)
	}
}

func TestMachine_Scenario(t *testing.T) {
	m := NewMachine(sequentialHandles())
	s, err := m.Start(validSettings())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h := s.Handle()

	m.Partial(h, Result{Text: "Hel", Translation: "Bon"})
	if m.State() != StateRecognising {
		t.Errorf("Expected Recognising after partial, got %s", m.State())
	}
	m.Final(h, Result{Text: "Hello", Translation: "Bonjour"})
	if m.State() != StateRecognised {
		t.Errorf("Expected Recognised after final, got %s", m.State())
	}
	m.Partial(h, Result{Text: "Wor", Translation: "Mon"})
	m.Final(h, Result{Text: "World", Translation: "Monde"})
	m.Stop()

	snap := m.Snapshot()
	if snap.SourceText != "Hello World " {
		t.Errorf("Expected sourceText 'Hello World ', got %q", snap.SourceText)
	}
	if snap.TranslatedText != "Bonjour Monde " {
		t.Errorf("Expected translatedText 'Bonjour Monde ', got %q", snap.TranslatedText)
	}
	if snap.SpokenRecognisingText != "" || snap.TranslatedRecognisingText != "" {
		t.Errorf("Expected partial cleared, got %+v", snap)
	}
	if snap.State.String() != "complete" {
		t.Errorf("Expected 'complete', got %q", snap.State.String())
	}
}

func TestMachine_PartialDoesNotMutateTranscript(t *testing.T) {
	m := NewMachine(sequentialHandles())
	s, _ := m.Start(validSettings())

	m.Final(s.Handle(), Result{Text: "Hello", Translation: "Bonjour"})
	m.Partial(s.Handle(), Result{Text: "Wor", Translation: "Mon"})

	snap := m.Snapshot()
	if snap.SourceText != "Hello " || snap.TranslatedText != "Bonjour " {
		t.Errorf("Partial mutated transcript: %+v", snap)
	}
	if snap.SpokenRecognisingText != "Wor" || snap.TranslatedRecognisingText != "Mon" {
		t.Errorf("Expected partial pair exposed, got %+v", snap)
	}
}

func TestMachine_ConfigurationError(t *testing.T) {
	m := NewMachine(sequentialHandles())
	settings := validSettings()
	settings.SubscriptionKey = ""

	_, err := m.Start(settings)
	var cfgErr *config.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigurationError, got %v", err)
	}

	snap := m.Snapshot()
	if snap.State.String() != "idle" {
		t.Errorf("Expected state 'idle', got %q", snap.State.String())
	}
	if snap.ErrorText == "" {
		t.Error("Expected errorText to be set")
	}
	if m.Current() != nil {
		t.Error("Expected no session to be created")
	}
}

func TestMachine_ConfigurationErrorAfterStopReturnsToIdle(t *testing.T) {
	m := NewMachine(sequentialHandles())
	s, _ := m.Start(validSettings())
	m.Final(s.Handle(), Result{Text: "Hello", Translation: "Bonjour"})
	m.Stop()

	_, err := m.Start(config.Settings{})
	if err == nil {
		t.Fatal("Expected configuration error")
	}
	if m.State() != StateIdle {
		t.Errorf("Expected Idle, got %s", m.State())
	}
	if m.Snapshot().SourceText != "Hello " {
		t.Errorf("Rejected start must not reset the transcript, got %q", m.Snapshot().SourceText)
	}
}

func TestMachine_AlreadyRunning(t *testing.T) {
	m := NewMachine(sequentialHandles())
	s, _ := m.Start(validSettings())
	m.Final(s.Handle(), Result{Text: "Hello", Translation: "Bonjour"})

	_, err := m.Start(validSettings())
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("Expected ErrAlreadyRunning, got %v", err)
	}

	if m.Current() != s {
		t.Error("Expected the running session to be kept")
	}
	snap := m.Snapshot()
	if snap.State != StateRecognised {
		t.Errorf("Expected state unchanged, got %s", snap.State)
	}
	if snap.SourceText != "Hello " {
		t.Errorf("Expected transcript untouched, got %q", snap.SourceText)
	}
}

func TestMachine_StaleEventsIgnored(t *testing.T) {
	m := NewMachine(sequentialHandles())
	s, _ := m.Start(validSettings())
	old := s.Handle()
	m.Final(old, Result{Text: "Hello", Translation: "Bonjour"})
	m.Stop()

	before := m.Snapshot()
	if m.Partial(old, Result{Text: "late", Translation: "tard"}) {
		t.Error("Expected stale partial to be discarded")
	}
	if m.Final(old, Result{Text: "late", Translation: "tard"}) {
		t.Error("Expected stale final to be discarded")
	}
	if _, ok := m.Ended(old, nil); ok {
		t.Error("Expected stale session end to be discarded")
	}
	if m.Snapshot() != before {
		t.Errorf("Stale events changed outputs: %+v", m.Snapshot())
	}
}

func TestMachine_EventsFromPreviousSessionIgnored(t *testing.T) {
	m := NewMachine(sequentialHandles())
	first, _ := m.Start(validSettings())
	m.Stop()
	second, _ := m.Start(validSettings())

	if first.Handle() == second.Handle() {
		t.Fatal("Expected distinct handles per session")
	}
	if m.Final(first.Handle(), Result{Text: "old"}) {
		t.Error("Expected event from previous session to be discarded")
	}
	if m.Snapshot().SourceText != "" {
		t.Errorf("Expected fresh transcript, got %q", m.Snapshot().SourceText)
	}
}

func TestMachine_StartResetsTranscript(t *testing.T) {
	m := NewMachine(sequentialHandles())
	s, _ := m.Start(validSettings())
	m.Final(s.Handle(), Result{Text: "Hello", Translation: "Bonjour"})
	m.Stop()

	if m.Snapshot().SourceText != "Hello " {
		t.Fatal("Expected transcript to survive stop")
	}

	m.Start(validSettings())
	if snap := m.Snapshot(); snap.SourceText != "" || snap.TranslatedText != "" {
		t.Errorf("Expected transcript reset on start, got %+v", snap)
	}
}

func TestMachine_StopWhenIdleIsNoop(t *testing.T) {
	m := NewMachine(sequentialHandles())

	if _, ok := m.Stop(); ok {
		t.Error("Expected Stop on idle machine to be a no-op")
	}

	m.Start(validSettings())
	m.Stop()
	if _, ok := m.Stop(); ok {
		t.Error("Expected second Stop to be a no-op")
	}
	if m.State() != StateStopped {
		t.Errorf("Expected Stopped, got %s", m.State())
	}
}

func TestMachine_ProviderEndedWithError(t *testing.T) {
	m := NewMachine(sequentialHandles())
	s, _ := m.Start(validSettings())
	m.Partial(s.Handle(), Result{Text: "Hel"})

	ended, ok := m.Ended(s.Handle(), errors.New("socket closed"))
	if !ok || ended != s {
		t.Fatal("Expected Ended to release the session")
	}

	snap := m.Snapshot()
	if snap.State != StateStopped {
		t.Errorf("Expected Stopped, got %s", snap.State)
	}
	if snap.SpokenRecognisingText != "" {
		t.Errorf("Expected partial cleared, got %q", snap.SpokenRecognisingText)
	}
	if snap.ErrorText == "" {
		t.Error("Expected errorText for provider failure")
	}
}

func TestMachine_OpenFailed(t *testing.T) {
	m := NewMachine(sequentialHandles())
	s, _ := m.Start(validSettings())

	if !m.OpenFailed(s.Handle(), &ProviderConnectError{Err: errors.New("401")}) {
		t.Fatal("Expected OpenFailed to apply")
	}
	if m.State() != StateStopped {
		t.Errorf("Expected Stopped after connect failure, got %s", m.State())
	}
	if m.Snapshot().ErrorText == "" {
		t.Error("Expected errorText for connect failure")
	}

	// Restartable
	if _, err := m.Start(validSettings()); err != nil {
		t.Errorf("Expected restart after failure, got %v", err)
	}
	if m.Snapshot().ErrorText != "" {
		t.Error("Expected errorText cleared by a successful start")
	}
}

func TestMachine_OpenedForStaleSession(t *testing.T) {
	m := NewMachine(sequentialHandles())
	s, _ := m.Start(validSettings())
	m.Stop()

	if m.Opened(s.Handle(), nil) {
		t.Error("Expected Opened to report a stale session")
	}
}

func TestState_Labels(t *testing.T) {
	cases := map[State]string{
		StateIdle:        "idle",
		StateListening:   "listening",
		StateRecognising: "recognising",
		StateRecognised:  "recognised",
		StateStopped:     "complete",
	}
	for state, label := range cases {
		if state.String() != label {
			t.Errorf("Expected %q, got %q", label, state.String())
		}
		parsed, err := ParseState(label)
		if err != nil || parsed != state {
			t.Errorf("ParseState(%q) = %v, %v", label, parsed, err)
		}
	}

	if _, err := ParseState("stopped"); err == nil {
		t.Error("Expected internal name 'stopped' to be rejected")
	}
}
