// Package provider connects the session controller to speech recognition
// and text translation services.
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lexiqai/live-translator/internal/audio"
	"github.com/lexiqai/live-translator/internal/config"
	"github.com/lexiqai/live-translator/internal/session"
	"github.com/lexiqai/live-translator/internal/stt"
	"github.com/lexiqai/live-translator/internal/translate"
)

// Pipeline implements session.Provider by streaming a control's audio feed
// to a recognizer and translating each recognition result
type Pipeline struct {
	feed        *audio.Feed
	recognizers stt.Factory
	translator  translate.Translator
	logger      zerolog.Logger
}

// NewPipeline creates a provider for one control
func NewPipeline(feed *audio.Feed, recognizers stt.Factory, translator translate.Translator, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		feed:        feed,
		recognizers: recognizers,
		translator:  translator,
		logger:      logger,
	}
}

// Open starts a recognizer for settings.SourceLanguage and begins streaming.
// Results and termination are reported to l tagged with h.
func (p *Pipeline) Open(ctx context.Context, h session.Handle, settings config.Settings, l session.Listener) (session.Connection, error) {
	rec := p.recognizers(settings.SourceLanguage, p.feed.SampleRate())
	if err := rec.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start recognizer: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	chunks, unsubscribe := p.feed.Subscribe(64)

	c := &connection{
		handle:      h,
		settings:    settings,
		listener:    l,
		rec:         rec,
		translator:  p.translator,
		logger:      p.logger.With().Str("handle", string(h)).Logger(),
		ctx:         ctx,
		cancel:      cancel,
		unsubscribe: unsubscribe,
		closed:      make(chan struct{}),
		wake:        make(chan struct{}, 1),
	}

	// More than one subscriber means an earlier connection was not closed
	c.logger.Debug().
		Str("source_language", settings.SourceLanguage).
		Int("feed_subscribers", p.feed.Subscribers()).
		Msg("Recognition connection opened")

	c.wg.Add(3)
	go c.pump(chunks)
	go c.receive()
	go c.translate()
	return c, nil
}

// connection is one open recognition session
type connection struct {
	handle     session.Handle
	settings   config.Settings
	listener   session.Listener
	rec        stt.STTClient
	translator translate.Translator
	logger     zerolog.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	closed      chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup

	// pending work for the translate goroutine
	mu      sync.Mutex
	finals  []*stt.TranscriptionResult
	partial *stt.TranscriptionResult
	ended   bool
	wake    chan struct{}
}

func (c *connection) Handle() session.Handle {
	return c.handle
}

// Close stops streaming and releases the recognizer. No listener calls are
// made once Close returns.
func (c *connection) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.cancel()
		c.unsubscribe()
		c.rec.Close()
		c.wg.Wait()
		c.logger.Debug().Msg("Recognition connection closed")
	})
	return nil
}

func (c *connection) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// pump forwards feed chunks to the recognizer
func (c *connection) pump(chunks <-chan []byte) {
	defer c.wg.Done()
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			if err := c.rec.SendAudio(chunk); err != nil {
				c.logger.Debug().Err(err).Msg("Stopped sending audio")
				return
			}
		case <-c.closed:
			return
		case <-c.rec.Done():
			return
		}
	}
}

// receive queues recognition results until the recognizer ends
func (c *connection) receive() {
	defer c.wg.Done()
	for {
		select {
		case r := <-c.rec.Results():
			c.enqueue(r)
		case <-c.closed:
			return
		case <-c.rec.Done():
			// Results delivered before the end still count
		drain:
			for {
				select {
				case r := <-c.rec.Results():
					c.enqueue(r)
				default:
					break drain
				}
			}
			c.mu.Lock()
			c.ended = true
			c.mu.Unlock()
			c.signal()
			return
		}
	}
}

// enqueue keeps every final in order and only the newest partial. A final
// supersedes any partial still waiting.
func (c *connection) enqueue(r *stt.TranscriptionResult) {
	if r == nil {
		return
	}
	c.mu.Lock()
	if r.IsFinal {
		c.finals = append(c.finals, r)
		c.partial = nil
	} else {
		c.partial = r
	}
	c.mu.Unlock()
	c.signal()
}

func (c *connection) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest final, else the pending partial
func (c *connection) next() (r *stt.TranscriptionResult, ended bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.finals) > 0 {
		r = c.finals[0]
		c.finals = c.finals[1:]
		return r, false
	}
	if c.partial != nil {
		r, c.partial = c.partial, nil
		return r, false
	}
	return nil, c.ended
}

// translate translates queued results one at a time and reports them
func (c *connection) translate() {
	defer c.wg.Done()
	for {
		select {
		case <-c.wake:
		case <-c.closed:
			return
		}

		for {
			r, ended := c.next()
			if r == nil {
				if ended {
					c.reportEnded()
					return
				}
				break
			}

			result := session.Result{Text: r.Text, Translation: c.translateText(r.Text)}
			if c.isClosed() {
				return
			}
			if r.IsFinal {
				c.listener.OnFinal(c.handle, result)
			} else {
				c.listener.OnPartial(c.handle, result)
			}
		}
	}
}

func (c *connection) translateText(text string) string {
	translated, err := c.translator.Translate(c.ctx, translate.Request{
		Text:            text,
		From:            c.settings.SourceLanguage,
		To:              c.settings.TargetLanguage,
		SubscriptionKey: c.settings.SubscriptionKey,
		Region:          c.settings.Region,
	})
	if err != nil {
		if !c.isClosed() {
			c.logger.Warn().Err(err).Msg("Translation unavailable, keeping recognized text only")
		}
		return ""
	}
	return translated
}

func (c *connection) reportEnded() {
	if c.isClosed() {
		return
	}
	err := c.rec.Err()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Recognizer ended the session")
	}
	c.listener.OnSessionEnded(c.handle, err)
}
