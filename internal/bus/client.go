// Package bus publishes control outputs to NATS.
package bus

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Client wraps a NATS connection
type Client struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// Connect dials url. Reconnects are handled by the NATS client.
func Connect(url string, timeout time.Duration, logger zerolog.Logger) (*Client, error) {
	if url == "" {
		return nil, errors.New("no NATS server configured")
	}

	conn, err := nats.Connect(url,
		nats.Name("live-translator"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("Disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("Reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	logger.Info().Str("url", url).Msg("Connected to NATS")
	return &Client{conn: conn, logger: logger}, nil
}

// Close drains pending messages and closes the connection
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.logger.Info().Msg("Closing NATS connection")
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}

// Healthy reports whether the connection is up
func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && c.conn.Status() == nats.CONNECTED
}

// Conn returns the underlying connection
func (c *Client) Conn() *nats.Conn {
	return c.conn
}
