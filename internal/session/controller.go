package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lexiqai/live-translator/internal/config"
	"github.com/lexiqai/live-translator/internal/observability"
)

const defaultQueueSize = 256

// Controller owns the control's session and is its only writer. Host commands
// and provider callbacks are marshaled onto the goroutine running Run.
type Controller struct {
	provider  Provider
	machine   *Machine
	notifiers []Notifier
	logger    zerolog.Logger

	inbox chan func()
	done  chan struct{}

	// stopping releases posts blocked on a full inbox. postMu is held
	// shared by every post, so once shutdown holds it exclusively no send
	// is in flight and the final drain sees every accepted callback.
	stopping chan struct{}
	postMu   sync.RWMutex
	stopped  bool

	// runCtx parents every provider open; runCtx and closing are loop-only
	runCtx  context.Context
	closing bool

	snapshot atomic.Pointer[Snapshot]
	settings atomic.Pointer[config.Settings]
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the controller logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithNotifier adds a receiver of output snapshots
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifiers = append(c.notifiers, n) }
}

// WithQueueSize bounds the number of pending commands and callbacks
func WithQueueSize(size int) Option {
	return func(c *Controller) {
		if size > 0 {
			c.inbox = make(chan func(), size)
		}
	}
}

// WithSettings sets the settings used until the first Update
func WithSettings(s config.Settings) Option {
	return func(c *Controller) { c.settings.Store(&s) }
}

// NewController creates a controller in StateIdle. Run must be called for
// any command to take effect.
func NewController(provider Provider, opts ...Option) *Controller {
	c := &Controller{
		provider: provider,
		machine:  NewMachine(newUUIDHandle),
		logger:   observability.GetLogger(),
		inbox:    make(chan func(), defaultQueueSize),
		done:     make(chan struct{}),
		stopping: make(chan struct{}),
		runCtx:   context.Background(),
	}
	c.settings.Store(&config.Settings{})
	for _, opt := range opts {
		opt(c)
	}

	initial := c.machine.Snapshot()
	c.snapshot.Store(&initial)
	return c
}

func newUUIDHandle() Handle {
	return Handle(uuid.New().String())
}

// Run processes commands and provider callbacks until ctx is cancelled.
// An active session is stopped before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	c.runCtx = ctx
	defer close(c.done)

	for {
		select {
		case fn := <-c.inbox:
			fn()
		case <-ctx.Done():
			c.shutdown()
			return nil
		}
	}
}

// shutdown stops the active session and drains queued work so that late
// provider opens are closed. Queued Start commands fail.
func (c *Controller) shutdown() {
	c.closing = true
	if s, ok := c.machine.Stop(); ok {
		c.release(s, "stop")
		c.publish()
	}

	close(c.stopping)
	c.postMu.Lock()
	c.stopped = true
	c.postMu.Unlock()

	for {
		select {
		case fn := <-c.inbox:
			fn()
		default:
			return
		}
	}
}

// Done is closed once Run has returned
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Update replaces the settings used by the next Start. It never touches the
// running session or its transcript.
func (c *Controller) Update(s config.Settings) {
	c.settings.Store(&s)
}

// Settings returns the settings the next Start will use
func (c *Controller) Settings() config.Settings {
	return *c.settings.Load()
}

// Snapshot returns the outputs published by the last transition
func (c *Controller) Snapshot() Snapshot {
	return *c.snapshot.Load()
}

// Start begins a session. It returns once the transition is applied; the
// provider connection is opened asynchronously.
func (c *Controller) Start(ctx context.Context) error {
	return c.call(ctx, c.start)
}

// Stop ends the active session. Stopping an idle control is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	return c.call(ctx, c.stop)
}

// Toggle stops an active session, otherwise starts one
func (c *Controller) Toggle(ctx context.Context) error {
	return c.call(ctx, func() error {
		if c.machine.State().Active() {
			return c.stop()
		}
		return c.start()
	})
}

// OnPartial implements Listener
func (c *Controller) OnPartial(h Handle, r Result) {
	c.post(func() {
		if !c.machine.Partial(h, r) {
			c.discard("partial", h)
			return
		}
		c.publish()
	})
}

// OnFinal implements Listener
func (c *Controller) OnFinal(h Handle, r Result) {
	c.post(func() {
		if !c.machine.Final(h, r) {
			c.discard("final", h)
			return
		}
		c.publish()
	})
}

// OnSessionEnded implements Listener
func (c *Controller) OnSessionEnded(h Handle, err error) {
	c.post(func() {
		s, ok := c.machine.Ended(h, err)
		if !ok {
			c.discard("session_ended", h)
			return
		}
		if err != nil {
			c.logger.Warn().Err(err).Str("handle", string(h)).Msg("Provider ended session with error")
			observability.RecordError("session_ended", "provider")
		} else {
			c.logger.Info().Str("handle", string(h)).Msg("Provider ended session")
		}
		c.release(s, "provider_ended")
		c.publish()
	})
}

func (c *Controller) start() error {
	if c.closing {
		return ErrControllerClosed
	}
	s, err := c.machine.Start(c.Settings())
	if err != nil {
		var cfgErr *config.ConfigurationError
		switch {
		case errors.Is(err, ErrAlreadyRunning):
			c.logger.Debug().Msg("Start ignored, session already running")
		case errors.As(err, &cfgErr):
			c.logger.Warn().Strs("missing", cfgErr.Missing).Msg("Cannot start session, configuration incomplete")
			observability.RecordError("configuration", "session")
		}
		c.publish()
		return err
	}

	ctx, cancel := context.WithCancel(c.runCtx)
	s.cancel = cancel

	observability.RecordSessionStart()
	c.logger.Info().
		Str("handle", string(s.handle)).
		Str("source_language", s.settings.SourceLanguage).
		Str("target_language", s.settings.TargetLanguage).
		Msg("Recognition session starting")

	c.publish()
	go c.open(ctx, s.handle, s.settings)
	return nil
}

func (c *Controller) open(ctx context.Context, h Handle, settings config.Settings) {
	conn, err := c.provider.Open(ctx, h, settings, c)
	if err != nil {
		c.post(func() {
			if !c.machine.OpenFailed(h, &ProviderConnectError{Err: err}) {
				return
			}
			c.logger.Error().Err(err).Str("handle", string(h)).Msg("Failed to open recognition provider")
			observability.RecordError("provider_connect", "provider")
			c.release(c.machine.Current(), "connect_failed")
			c.publish()
		})
		return
	}

	posted := c.post(func() {
		if c.machine.Opened(h, conn) {
			c.logger.Debug().Str("handle", string(h)).Msg("Recognition provider connected")
			return
		}
		// The session was stopped while the open was in flight
		go closeConnection(c.logger, conn)
	})
	if !posted {
		closeConnection(c.logger, conn)
	}
}

func (c *Controller) stop() error {
	s, ok := c.machine.Stop()
	if !ok {
		return nil
	}
	c.logger.Info().Str("handle", string(s.handle)).Msg("Recognition session stopping")
	c.release(s, "stop")
	c.publish()
	return nil
}

// release closes the session's connection without blocking the loop
func (c *Controller) release(s *Session, reason string) {
	observability.RecordSessionEnd(reason, c.machine.now().Sub(s.startedAt))

	conn, cancel := s.conn, s.cancel
	s.conn, s.cancel = nil, nil
	go func() {
		if conn != nil {
			closeConnection(c.logger, conn)
		}
		if cancel != nil {
			cancel()
		}
	}()
}

func closeConnection(logger zerolog.Logger, conn Connection) {
	if err := conn.Close(); err != nil {
		logger.Warn().Err(err).Str("handle", string(conn.Handle())).Msg("Error closing recognition provider")
	}
}

func (c *Controller) discard(kind string, h Handle) {
	observability.RecordStaleEvent(kind)
	c.logger.Debug().Str("kind", kind).Str("handle", string(h)).Msg("Discarding stale provider event")
}

func (c *Controller) publish() {
	snap := c.machine.Snapshot()
	c.snapshot.Store(&snap)
	observability.RecordTransition(snap.State.String())
	for _, n := range c.notifiers {
		n.OutputsChanged(snap)
	}
}

// call runs fn on the loop and waits for its result
func (c *Controller) call(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	select {
	case c.inbox <- func() { errc <- fn() }:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrControllerClosed
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		select {
		case err := <-errc:
			return err
		default:
			return ErrControllerClosed
		}
	}
}

// post queues fn for the loop. It blocks while the queue is full and reports
// false once the controller is shutting down. Every accepted fn runs.
func (c *Controller) post(fn func()) bool {
	c.postMu.RLock()
	defer c.postMu.RUnlock()
	if c.stopped {
		return false
	}
	select {
	case c.inbox <- fn:
		return true
	case <-c.stopping:
		return false
	}
}
