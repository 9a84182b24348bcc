package stt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/lexiqai/live-translator/internal/config"
	"github.com/lexiqai/live-translator/internal/observability"
	"github.com/lexiqai/live-translator/internal/resilience"
)

var (
	// ErrNotActive is returned when audio is sent outside an open connection
	ErrNotActive = errors.New("deepgram client is not active")

	// ErrAlreadyStarted is returned by a second Start
	ErrAlreadyStarted = errors.New("deepgram client already started")

	// ErrRemoteClosed is the end reason when Deepgram closes the stream
	ErrRemoteClosed = errors.New("deepgram closed the stream")
)

// messageCallbackHandler implements the LiveMessageCallback interface.
// Events the session does not consume are logged at debug level.
type messageCallbackHandler struct {
	client *DeepgramClient
}

// Open logs the established stream
func (m *messageCallbackHandler) Open(*msginterfaces.OpenResponse) error {
	m.client.opts.Logger.Debug().Msg("Deepgram stream opened")
	return nil
}

// Message forwards transcription results
func (m *messageCallbackHandler) Message(message *msginterfaces.MessageResponse) error {
	m.client.handleDeepgramMessage(message)
	return nil
}

func (m *messageCallbackHandler) Metadata(md *msginterfaces.MetadataResponse) error {
	if md != nil {
		m.client.opts.Logger.Debug().Str("request_id", md.RequestID).Msg("Deepgram metadata")
	}
	return nil
}

func (m *messageCallbackHandler) SpeechStarted(ssr *msginterfaces.SpeechStartedResponse) error {
	if ssr != nil {
		m.client.opts.Logger.Debug().Float64("timestamp", ssr.Timestamp).Msg("Deepgram speech started")
	}
	return nil
}

func (m *messageCallbackHandler) UtteranceEnd(ur *msginterfaces.UtteranceEndResponse) error {
	if ur != nil {
		m.client.opts.Logger.Debug().Float64("last_word_end", ur.LastWordEnd).Msg("Deepgram utterance end")
	}
	return nil
}

// Close ends the session when Deepgram closes the stream. The SDK holds its
// connection lock here, so the socket must not be stopped from this path.
func (m *messageCallbackHandler) Close(*msginterfaces.CloseResponse) error {
	m.client.end(ErrRemoteClosed, false)
	return nil
}

// Error ends the session with the reported error
func (m *messageCallbackHandler) Error(errorResponse *msginterfaces.ErrorResponse) error {
	m.client.handleDeepgramError(errorResponse)
	return nil
}

func (m *messageCallbackHandler) UnhandledEvent(byData []byte) error {
	m.client.opts.Logger.Debug().Int("bytes", len(byData)).Msg("Unhandled Deepgram event")
	return nil
}

// ClientOptions configures one recognition connection
type ClientOptions struct {
	APIKey     string
	Model      string
	Language   string
	SampleRate int
	Breaker    *resilience.CircuitBreaker
	Logger     zerolog.Logger
}

// DeepgramClient implements STTClient using Deepgram's streaming API
type DeepgramClient struct {
	opts    ClientOptions
	results chan *TranscriptionResult
	done    chan struct{}

	mu      sync.RWMutex
	client  *listenClient.WSCallback
	started bool
	active  bool
	err     error

	endOnce sync.Once
	cancel  context.CancelFunc
}

// NewDeepgramClient creates an unstarted Deepgram streaming client
func NewDeepgramClient(opts ClientOptions) *DeepgramClient {
	if opts.Model == "" {
		opts.Model = "nova-2"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.Breaker == nil {
		opts.Breaker = resilience.NewCircuitBreaker("deepgram", 5, 30*time.Second)
	}

	return &DeepgramClient{
		opts:    opts,
		results: make(chan *TranscriptionResult, 100),
		done:    make(chan struct{}),
	}
}

// NewFactory returns a Factory building Deepgram clients from service
// configuration. Every client shares breaker.
func NewFactory(cfg *config.Config, breaker *resilience.CircuitBreaker, logger zerolog.Logger) Factory {
	return func(language string, sampleRate int) STTClient {
		return NewDeepgramClient(ClientOptions{
			APIKey:     cfg.DeepgramAPIKey,
			Model:      cfg.DeepgramModel,
			Language:   language,
			SampleRate: sampleRate,
			Breaker:    breaker,
			Logger:     logger,
		})
	}
}

// Start opens the Deepgram streaming connection. It fails fast while the
// shared circuit breaker is open.
func (d *DeepgramClient) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return ErrAlreadyStarted
	}
	d.started = true

	select {
	case <-d.done:
		return ErrNotActive
	default:
	}

	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          d.opts.Model,
		Language:       d.opts.Language,
		Punctuate:      true,
		SmartFormat:    true,
		InterimResults: true,
		UtteranceEndMs: "1000",
		VadEvents:      true,
		Encoding:       "linear16",
		Channels:       1,
		SampleRate:     d.opts.SampleRate,
	}

	callback := &messageCallbackHandler{client: d}

	ctx, cancel := context.WithCancel(ctx)
	err := d.opts.Breaker.Call(func() error {
		client, err := listenClient.NewWSUsingCallback(ctx, d.opts.APIKey, &interfaces.ClientOptions{}, tOptions, callback)
		if err != nil {
			return fmt.Errorf("failed to create Deepgram client: %w", err)
		}
		if !client.Connect() {
			return fmt.Errorf("failed to connect to Deepgram")
		}
		d.client = client
		return nil
	})
	if err != nil {
		cancel()
		observability.RecordError("connect", "deepgram")
		d.opts.Logger.Warn().Err(err).
			Str("circuit", d.opts.Breaker.GetState().String()).
			Msg("Deepgram connect failed")
		return err
	}

	d.cancel = cancel
	d.active = true
	d.opts.Logger.Info().
		Str("model", d.opts.Model).
		Str("language", d.opts.Language).
		Int("sample_rate", d.opts.SampleRate).
		Msg("Deepgram streaming client started")
	return nil
}

// handleDeepgramMessage processes messages from Deepgram
func (d *DeepgramClient) handleDeepgramMessage(msg *msginterfaces.MessageResponse) {
	if msg == nil || len(msg.Channel.Alternatives) == 0 {
		return
	}

	alt := msg.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return
	}

	startTime, duration := msg.Start, msg.Duration
	if len(alt.Words) > 0 && duration == 0 {
		startTime = alt.Words[0].Start
		duration = alt.Words[len(alt.Words)-1].End - startTime
	}

	result := &TranscriptionResult{
		Text:       alt.Transcript,
		IsFinal:    msg.IsFinal,
		Confidence: alt.Confidence,
		StartTime:  startTime,
		Duration:   duration,
	}

	select {
	case d.results <- result:
		if result.IsFinal {
			d.opts.Logger.Debug().Str("text", result.Text).Float64("confidence", result.Confidence).Msg("Deepgram final transcription")
		}
	case <-d.done:
	default:
		d.opts.Logger.Warn().Msg("Transcript channel full, dropping transcription")
		observability.RecordError("results_full", "deepgram")
	}
}

func (d *DeepgramClient) handleDeepgramError(errorResponse *msginterfaces.ErrorResponse) {
	err := fmt.Errorf("deepgram error: %s", describeError(errorResponse))
	d.opts.Logger.Error().Err(err).Msg("Deepgram stream failed")
	d.opts.Breaker.RecordResult(false)
	d.finish(err)
}

func describeError(e *msginterfaces.ErrorResponse) string {
	if e == nil {
		return "unknown"
	}
	if e.Description != "" {
		return e.Description
	}
	if e.ErrMsg != "" {
		return e.ErrMsg
	}
	return e.Type
}

// SendAudio sends an audio chunk to Deepgram
func (d *DeepgramClient) SendAudio(audioData []byte) error {
	d.mu.RLock()
	active, client := d.active, d.client
	d.mu.RUnlock()

	if !active || client == nil {
		return ErrNotActive
	}

	if _, err := client.Write(audioData); err != nil {
		d.opts.Breaker.RecordResult(false)
		err = fmt.Errorf("failed to send audio to Deepgram: %w", err)
		d.finish(err)
		return err
	}

	observability.RecordAudioBytes("out", int64(len(audioData)))
	return nil
}

// Results returns the channel of recognition results
func (d *DeepgramClient) Results() <-chan *TranscriptionResult {
	return d.results
}

// Done is closed once the connection has ended
func (d *DeepgramClient) Done() <-chan struct{} {
	return d.done
}

// Err returns the reason the connection ended
func (d *DeepgramClient) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}

// Close finishes the stream and releases the connection
func (d *DeepgramClient) Close() error {
	d.finish(nil)
	return nil
}

// finish records the end reason once and stops the connection
func (d *DeepgramClient) finish(reason error) {
	d.end(reason, true)
}

// end records the end reason once. Only the call that records it tears the
// connection down. With stop set the SDK client sends CloseStream and closes
// the socket; its close callback re-enters end as a no-op.
func (d *DeepgramClient) end(reason error, stop bool) {
	var (
		ended  bool
		client *listenClient.WSCallback
		cancel context.CancelFunc
	)
	d.endOnce.Do(func() {
		ended = true

		d.mu.Lock()
		client, cancel = d.client, d.cancel
		d.active = false
		d.err = reason
		d.mu.Unlock()

		close(d.done)
	})
	if !ended {
		return
	}

	if stop && client != nil {
		client.Stop()
	}
	if cancel != nil {
		cancel()
	}
	if reason == nil {
		d.opts.Logger.Info().Msg("Deepgram streaming client stopped")
	}
}
