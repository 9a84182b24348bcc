package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lexiqai/live-translator/internal/session"
)

// snapshotMsg carries the newest controller outputs into the TUI
type snapshotMsg session.Snapshot

// audioDoneMsg is sent when the audio source is exhausted
type audioDoneMsg struct{ err error }

// commandErrMsg reports a failed toggle
type commandErrMsg struct{ err error }

type tuiModel struct {
	snap          session.Snapshot
	from, to      string
	width, height int
	status        string
	audioDone     bool

	toggle func() tea.Msg
	copy   func(string) error
}

var (
	stateStyles = map[session.State]lipgloss.Style{
		session.StateIdle:        lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		session.StateListening:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		session.StateRecognising: lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
		session.StateRecognised:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
		session.StateStopped:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	partialStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldHelp     = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

func newTUIModel(from, to string, toggle func() tea.Msg, copyText func(string) error) tuiModel {
	return tuiModel{from: from, to: to, toggle: toggle, copy: copyText}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "enter":
			m.status = ""
			return m, m.toggle
		case "c":
			m.status = m.copyText("translation", m.snap.TranslatedText)
		case "C":
			m.status = m.copyText("transcript", m.snap.SourceText)
		}

	case snapshotMsg:
		m.snap = session.Snapshot(msg)

	case commandErrMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		}

	case audioDoneMsg:
		m.audioDone = true
		if msg.err != nil {
			m.status = "audio: " + msg.err.Error()
		}
	}
	return m, nil
}

func (m tuiModel) copyText(what, text string) string {
	if strings.TrimSpace(text) == "" {
		return "nothing to copy"
	}
	if err := m.copy(text); err != nil {
		return "copy failed: " + err.Error()
	}
	return "copied " + what
}

func (m tuiModel) View() string {
	var b strings.Builder

	style, ok := stateStyles[m.snap.State]
	if !ok {
		style = stateStyles[session.StateIdle]
	}
	marker := "○"
	if m.snap.State.Active() {
		marker = "●"
	}
	b.WriteString(style.Render(fmt.Sprintf("%s %s", marker, strings.ToUpper(m.snap.State.String()))))
	b.WriteString(helpStyle.Render(fmt.Sprintf("  %s → %s", m.from, m.to)))
	if m.audioDone {
		b.WriteString(helpStyle.Render("  (end of audio)"))
	}
	b.WriteString("\n\n")

	width := m.width - 4
	if width < 20 {
		width = 60
	}
	b.WriteString(panel("Spoken", m.snap.SourceText, m.snap.SpokenRecognisingText, width))
	b.WriteString("\n")
	b.WriteString(panel("Translated", m.snap.TranslatedText, m.snap.TranslatedRecognisingText, width))
	b.WriteString("\n")

	if m.snap.ErrorText != "" {
		b.WriteString(errorStyle.Render("! "+m.snap.ErrorText) + "\n")
	}
	if m.status != "" {
		b.WriteString(helpStyle.Render(m.status) + "\n")
	}

	b.WriteString(boldHelp.Render("space") + helpStyle.Render(" start/stop  "))
	b.WriteString(boldHelp.Render("c") + helpStyle.Render(" copy translation  "))
	b.WriteString(boldHelp.Render("C") + helpStyle.Render(" copy transcript  "))
	b.WriteString(boldHelp.Render("q") + helpStyle.Render(" quit"))
	return b.String()
}

func panel(title, text, partial string, width int) string {
	body := text
	if partial != "" {
		body += partialStyle.Render(partial)
	}
	if body == "" {
		body = partialStyle.Render("…")
	}
	return labelStyle.Render(title) + "\n" + panelStyle.Width(width).Render(body) + "\n"
}
