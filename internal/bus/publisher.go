package bus

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/live-translator/internal/observability"
	"github.com/lexiqai/live-translator/internal/session"
)

// Conn is the publishing side of a NATS connection
type Conn interface {
	Publish(subject string, data []byte) error
}

// OutputsMessage is the payload published after every transition
type OutputsMessage struct {
	ControlID string            `json:"controlId"`
	Outputs   map[string]string `json:"outputs"`
	Timestamp time.Time         `json:"timestamp"`
}

// Publisher implements session.Notifier by publishing each snapshot on
// <prefix>.<controlID>.outputs
type Publisher struct {
	conn      Conn
	subject   string
	controlID string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPublisher creates a publisher for one control instance
func NewPublisher(conn Conn, prefix, controlID string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		conn:      conn,
		subject:   Subject(prefix, controlID),
		controlID: controlID,
		logger:    logger,
		now:       time.Now,
	}
}

// Subject returns the outputs subject of a control
func Subject(prefix, controlID string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return controlID + ".outputs"
	}
	return prefix + "." + controlID + ".outputs"
}

// OutputsChanged implements session.Notifier
func (p *Publisher) OutputsChanged(snap session.Snapshot) {
	data, err := json.Marshal(OutputsMessage{
		ControlID: p.controlID,
		Outputs:   snap.Outputs(),
		Timestamp: p.now().UTC(),
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to encode outputs")
		return
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		observability.RecordError("publish", "bus")
		p.logger.Warn().Err(err).Str("subject", p.subject).Msg("Failed to publish outputs")
	}
}
