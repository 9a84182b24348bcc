// Package control serves the host-facing control socket. Each WebSocket
// connection is one control instance with its own session controller.
package control

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/live-translator/internal/audio"
	"github.com/lexiqai/live-translator/internal/bus"
	"github.com/lexiqai/live-translator/internal/config"
	"github.com/lexiqai/live-translator/internal/manifest"
	"github.com/lexiqai/live-translator/internal/observability"
	"github.com/lexiqai/live-translator/internal/provider"
	"github.com/lexiqai/live-translator/internal/render"
	"github.com/lexiqai/live-translator/internal/session"
	"github.com/lexiqai/live-translator/internal/stt"
	"github.com/lexiqai/live-translator/internal/translate"
)

const (
	writeTimeout   = 10 * time.Second
	commandTimeout = 5 * time.Second
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Hosts embed the control from arbitrary origins
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Dependencies are the services shared by every control instance
type Dependencies struct {
	Config      *config.Config
	Manifest    *manifest.Manifest
	Recognizers stt.Factory
	Translator  translate.Translator
	Bus         bus.Conn // nil disables output publishing
	Logger      zerolog.Logger
}

// Handler accepts control connections
type Handler struct {
	deps Dependencies

	mu       sync.Mutex
	sessions map[string]*controlSession
}

// NewHandler creates a control socket handler
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		deps:     deps,
		sessions: make(map[string]*controlSession),
	}
}

// ServeHTTP upgrades the request and runs the control until the host disconnects
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.deps.Logger.Warn().Err(err).Msg("Failed to upgrade control connection")
		return
	}

	s := h.newSession(conn)
	h.track(s, true)
	defer h.track(s, false)

	observability.RecordControlConnected()
	defer observability.RecordControlDisconnected()

	s.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("Control connected")
	s.run()
	s.logger.Info().Msg("Control disconnected")
}

// Active returns the number of connected controls
func (h *Handler) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Shutdown disconnects every control. Active sessions are stopped.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	sessions := make([]*controlSession, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

func (h *Handler) track(s *controlSession, add bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if add {
		h.sessions[s.id] = s
	} else {
		delete(h.sessions, s.id)
	}
}

// controlSession is one connected control instance
type controlSession struct {
	id       string
	conn     *websocket.Conn
	deps     Dependencies
	feed     *audio.Feed
	ctrl     *session.Controller
	logger   zerolog.Logger
	base     config.Settings
	ctx      context.Context
	cancel   context.CancelFunc
	wake     chan struct{}
	replies  chan OutboundMessage
	width    atomic.Int64
	height   atomic.Int64
	writeErr sync.Once
}

func (h *Handler) newSession(conn *websocket.Conn) *controlSession {
	id := observability.NewControlID()
	logger := h.deps.Logger.With().Str("control_id", id).Logger()
	cfg := h.deps.Config

	ctx, cancel := context.WithCancel(context.Background())
	s := &controlSession{
		id:      id,
		conn:    conn,
		deps:    h.deps,
		feed:    audio.NewFeed(audio.FeedConfigFromConfig(cfg), logger),
		logger:  logger,
		base:    cfg.DefaultSettings(),
		ctx:     ctx,
		cancel:  cancel,
		wake:    make(chan struct{}, 1),
		replies: make(chan OutboundMessage, 16),
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithQueueSize(cfg.EventQueueSize),
		session.WithSettings(h.deps.Manifest.Bind(nil, s.base).Settings),
		session.WithNotifier(session.NotifierFunc(s.outputsChanged)),
	}
	if h.deps.Bus != nil {
		opts = append(opts, session.WithNotifier(bus.NewPublisher(h.deps.Bus, cfg.NATSSubjectPrefix, id, logger)))
	}

	pipeline := provider.NewPipeline(s.feed, h.deps.Recognizers, h.deps.Translator, logger)
	s.ctrl = session.NewController(pipeline, opts...)
	return s
}

func (s *controlSession) run() {
	conn := s.conn
	defer conn.Close()

	if !s.write(OutboundMessage{Type: MessageReady, ControlID: s.id}) {
		return
	}
	s.outputsChanged(s.ctrl.Snapshot())

	go s.ctrl.Run(s.ctx)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop()
	}()

	s.readLoop()

	s.cancel()
	<-s.ctrl.Done()
	s.feed.Close()
	<-writerDone
}

func (s *controlSession) close() {
	s.cancel()
	s.conn.Close()
}

// outputsChanged wakes the writer. Only the newest snapshot is sent.
func (s *controlSession) outputsChanged(session.Snapshot) {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *controlSession) reply(msg OutboundMessage) {
	select {
	case s.replies <- msg:
	case <-s.ctx.Done():
	}
}

func (s *controlSession) readLoop() {
	s.conn.SetReadLimit(maxMessageSize)

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("Control read error")
			}
			return
		}

		if kind == websocket.BinaryMessage {
			s.writeAudio(data)
			continue
		}

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Error().Err(err).Msg("Failed to parse control message")
			s.reply(OutboundMessage{Type: MessageError, Error: "invalid message"})
			continue
		}
		s.handle(msg)
	}
}

func (s *controlSession) handle(msg InboundMessage) {
	switch msg.Type {
	case MessageUpdate:
		s.update(msg)

	case MessageStart:
		s.command(msg.Type, s.ctrl.Start)

	case MessageStop:
		s.command(msg.Type, s.ctrl.Stop)

	case MessageToggle:
		s.command(msg.Type, s.ctrl.Toggle)

	case MessageAudioFormat:
		format, err := audio.ParseFormat(msg.Encoding, msg.SampleRate)
		if err != nil {
			s.reply(OutboundMessage{Type: MessageError, Command: msg.Type, Error: err.Error()})
			return
		}
		s.feed.SetFormat(format)
		s.logger.Info().
			Str("encoding", string(format.Encoding)).
			Int("sample_rate", format.SampleRate).
			Msg("Audio format changed")

	case MessageAudio:
		data, err := base64.StdEncoding.DecodeString(msg.Payload)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to decode audio payload")
			return
		}
		s.writeAudio(data)

	default:
		s.logger.Warn().Str("type", msg.Type).Msg("Unknown control message")
		s.reply(OutboundMessage{Type: MessageError, Command: msg.Type, Error: "unknown message type"})
	}
}

// update applies a host property refresh. The running session keeps the
// settings it started with.
func (s *controlSession) update(msg InboundMessage) {
	b := s.deps.Manifest.Bind(msg.Properties, s.base)
	s.ctrl.Update(b.Settings)

	if msg.Width != nil {
		s.width.Store(int64(*msg.Width))
	}
	if msg.Height != nil {
		s.height.Store(int64(*msg.Height))
	}

	if len(b.Unknown) > 0 {
		s.logger.Debug().Strs("keys", b.Unknown).Msg("Ignoring undeclared properties")
	}
	if len(b.Missing) > 0 {
		s.logger.Debug().Strs("properties", b.Missing).Msg("Required properties not set")
	}
	if b.HostState != "" {
		if _, err := session.ParseState(b.HostState); err != nil {
			s.logger.Warn().Err(err).Msg("Host sent an unknown state")
			s.reply(OutboundMessage{Type: MessageError, Command: MessageUpdate, Error: err.Error()})
		} else {
			s.logger.Debug().Str("host_state", b.HostState).Msg("Host state received")
		}
	}

	// The theme may have changed
	s.outputsChanged(s.ctrl.Snapshot())
}

func (s *controlSession) command(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(s.ctx, commandTimeout)
	defer cancel()

	err := fn(ctx)
	var cfgErr *config.ConfigurationError
	switch {
	case err == nil, errors.Is(err, session.ErrAlreadyRunning):
	case errors.As(err, &cfgErr):
		// Reported through errorText
	default:
		s.logger.Warn().Err(err).Str("command", name).Msg("Control command failed")
		s.reply(OutboundMessage{Type: MessageError, Command: name, Error: err.Error()})
	}
}

func (s *controlSession) writeAudio(data []byte) {
	if err := s.feed.Write(data); err != nil && !errors.Is(err, audio.ErrFeedClosed) {
		s.logger.Warn().Err(err).Msg("Dropping audio frame")
	}
}

func (s *controlSession) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.replies:
			if !s.write(msg) {
				return
			}
		case <-s.wake:
			msg, err := s.outputs()
			if err != nil {
				s.logger.Error().Err(err).Msg("Failed to render outputs")
				continue
			}
			if !s.write(msg) {
				return
			}
		}
	}
}

func (s *controlSession) outputs() (OutboundMessage, error) {
	snap := s.ctrl.Snapshot()
	button, err := render.Button(snap.State, s.ctrl.Settings().Theme, int(s.width.Load()), int(s.height.Load()))
	if err != nil {
		return OutboundMessage{}, err
	}
	return OutboundMessage{
		Type:    MessageOutputs,
		Outputs: s.deps.Manifest.Outputs(snap),
		Button:  button,
	}, nil
}

func (s *controlSession) write(msg OutboundMessage) bool {
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.writeErr.Do(func() {
			s.logger.Warn().Err(err).Msg("Control write failed")
		})
		s.close()
		return false
	}
	return true
}
