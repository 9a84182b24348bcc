package bus

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/live-translator/internal/session"
)

type recordedMessage struct {
	subject string
	data    []byte
}

type fakeConn struct {
	messages []recordedMessage
	err      error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, recordedMessage{subject: subject, data: data})
	return nil
}

func TestSubject(t *testing.T) {
	if got := Subject("livetranslate", "abc"); got != "livetranslate.abc.outputs" {
		t.Errorf("Unexpected subject %q", got)
	}
	if got := Subject("livetranslate.", "abc"); got != "livetranslate.abc.outputs" {
		t.Errorf("Expected trailing dot trimmed, got %q", got)
	}
	if got := Subject("", "abc"); got != "abc.outputs" {
		t.Errorf("Unexpected subject without prefix %q", got)
	}
}

func TestPublisher_OutputsChanged(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "livetranslate", "control-1", zerolog.Nop())
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	p.OutputsChanged(session.Snapshot{
		State:          session.StateRecognised,
		SourceText:     "Hello ",
		TranslatedText: "Bonjour ",
	})

	if len(conn.messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(conn.messages))
	}
	msg := conn.messages[0]
	if msg.subject != "livetranslate.control-1.outputs" {
		t.Errorf("Unexpected subject %q", msg.subject)
	}

	var decoded OutputsMessage
	if err := json.Unmarshal(msg.data, &decoded); err != nil {
		t.Fatalf("Invalid payload: %v", err)
	}
	if decoded.ControlID != "control-1" || !decoded.Timestamp.Equal(fixed) {
		t.Errorf("Unexpected envelope %+v", decoded)
	}
	if decoded.Outputs["state"] != "recognised" || decoded.Outputs["spokenText"] != "Hello " {
		t.Errorf("Unexpected outputs %v", decoded.Outputs)
	}
}

func TestPublisher_PublishErrorIsNotFatal(t *testing.T) {
	conn := &fakeConn{err: errors.New("nats: connection closed")}
	p := NewPublisher(conn, "livetranslate", "control-1", zerolog.Nop())

	p.OutputsChanged(session.Snapshot{})
}

func TestClient_HealthyNil(t *testing.T) {
	var c *Client
	if c.Healthy() {
		t.Error("Expected nil client to be unhealthy")
	}
	c.Close()
}

func TestConnect_RequiresURL(t *testing.T) {
	if _, err := Connect("", time.Second, zerolog.Nop()); err == nil {
		t.Error("Expected error without a server URL")
	}
}
