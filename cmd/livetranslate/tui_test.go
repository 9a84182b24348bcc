package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/lexiqai/live-translator/internal/audio"
	"github.com/lexiqai/live-translator/internal/session"
)

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTUI_ToggleKey(t *testing.T) {
	toggled := 0
	m := newTUIModel("en-US", "fr-FR", func() tea.Msg {
		toggled++
		return commandErrMsg{}
	}, nil)

	_, cmd := m.Update(key(" "))
	if cmd == nil {
		t.Fatal("Expected a toggle command")
	}
	cmd()
	if toggled != 1 {
		t.Errorf("Expected one toggle, got %d", toggled)
	}
}

func TestTUI_CopyTranslation(t *testing.T) {
	var copied string
	m := newTUIModel("en-US", "fr-FR", nil, func(s string) error {
		copied = s
		return nil
	})

	updated, _ := m.Update(key("c"))
	if got := updated.(tuiModel).status; got != "nothing to copy" {
		t.Errorf("Expected nothing to copy, got %q", got)
	}

	updated, _ = updated.Update(snapshotMsg(session.Snapshot{
		State:          session.StateRecognised,
		SourceText:     "Hello ",
		TranslatedText: "Bonjour ",
	}))
	updated, _ = updated.Update(key("c"))
	if copied != "Bonjour " {
		t.Errorf("Expected translation copied, got %q", copied)
	}
	updated, _ = updated.Update(key("C"))
	if copied != "Hello " {
		t.Errorf("Expected transcript copied, got %q", copied)
	}
	if got := updated.(tuiModel).status; got != "copied transcript" {
		t.Errorf("Unexpected status %q", got)
	}
}

func TestTUI_CopyFailure(t *testing.T) {
	m := newTUIModel("en-US", "fr-FR", nil, func(string) error { return errors.New("no clipboard") })
	m.snap = session.Snapshot{TranslatedText: "Bonjour "}

	updated, _ := m.Update(key("c"))
	if got := updated.(tuiModel).status; !strings.Contains(got, "no clipboard") {
		t.Errorf("Expected copy failure status, got %q", got)
	}
}

func TestTUI_View(t *testing.T) {
	m := newTUIModel("en-US", "fr-FR", nil, nil)
	updated, _ := m.Update(snapshotMsg(session.Snapshot{
		State:                     session.StateRecognising,
		SourceText:                "Hello ",
		TranslatedText:            "Bonjour ",
		SpokenRecognisingText:     "wor",
		TranslatedRecognisingText: "mon",
		ErrorText:                 "",
	}))

	view := updated.View()
	for _, want := range []string{"RECOGNISING", "Hello", "Bonjour", "wor", "mon", "en-US"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q:\n%s", want, view)
		}
	}

	updated, _ = updated.Update(snapshotMsg(session.Snapshot{State: session.StateIdle, ErrorText: "configuration incomplete"}))
	if !strings.Contains(updated.View(), "configuration incomplete") {
		t.Error("Expected error text in view")
	}
}

func TestTUI_Quit(t *testing.T) {
	m := newTUIModel("en-US", "fr-FR", nil, nil)
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestStreamAudio(t *testing.T) {
	feed := audio.NewFeed(audio.FeedConfig{SampleRate: 8000, ChunkMs: 10}, zerolog.Nop())
	chunks, unsubscribe := feed.Subscribe(16)
	defer unsubscribe()

	format := audio.Format{Encoding: audio.EncodingLinear16, SampleRate: 8000}
	// Three full chunks plus a trailing odd byte
	input := bytes.NewReader(make([]byte, 3*160+1))

	if err := streamAudio(context.Background(), input, feed, format, 10, false); err != nil {
		t.Fatalf("streamAudio failed: %v", err)
	}
	if got := len(chunks); got != 3 {
		t.Errorf("Expected 3 chunks, got %d", got)
	}
}
