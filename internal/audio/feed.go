package audio

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lexiqai/live-translator/internal/config"
	"github.com/lexiqai/live-translator/internal/observability"
)

// ErrFeedClosed is returned by Write after Close
var ErrFeedClosed = errors.New("audio feed is closed")

// FeedConfig holds the recognizer-side audio parameters
type FeedConfig struct {
	SampleRate int // linear16 rate delivered to subscribers
	ChunkMs    int
	BufferSize int
	VAD        *VADConfig
}

// FeedConfigFromConfig derives feed parameters from service configuration
func FeedConfigFromConfig(cfg *config.Config) FeedConfig {
	return FeedConfig{
		SampleRate: cfg.AudioSampleRate,
		ChunkMs:    cfg.AudioChunkMs,
		BufferSize: cfg.AudioBufferSize,
		VAD:        NewVADConfig(cfg.VADEnergyThreshold, cfg.VADSilenceFrames, cfg.AudioSampleRate),
	}
}

// Feed carries one control's host audio to the recognizer of its current
// session. Frames are normalized to linear16 at SampleRate and rechunked
// into ChunkMs frames. Audio written with no subscriber is discarded.
type Feed struct {
	cfg        FeedConfig
	chunkBytes int
	logger     zerolog.Logger

	mu     sync.Mutex
	format Format
	ring   *RingBuffer
	vad    *VADDetector
	subs   map[int]chan []byte
	nextID int
	closed bool
}

// NewFeed creates a feed expecting linear16 input at the output rate until
// SetFormat is called.
func NewFeed(cfg FeedConfig, logger zerolog.Logger) *Feed {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.ChunkMs <= 0 {
		cfg.ChunkMs = 100
	}
	chunk := cfg.SampleRate * cfg.ChunkMs / 1000 * 2
	if cfg.BufferSize < chunk*2 {
		cfg.BufferSize = chunk * 4
	}
	if cfg.VAD == nil {
		cfg.VAD = NewVADConfig(500, 10, cfg.SampleRate)
	}

	return &Feed{
		cfg:        cfg,
		chunkBytes: chunk,
		logger:     logger,
		format:     Format{Encoding: EncodingLinear16, SampleRate: cfg.SampleRate},
		ring:       NewRingBuffer(cfg.BufferSize),
		vad:        NewVADDetector(cfg.VAD),
		subs:       make(map[int]chan []byte),
	}
}

// SampleRate returns the linear16 rate of delivered chunks
func (f *Feed) SampleRate() int {
	return f.cfg.SampleRate
}

// SetFormat declares the format of subsequent host frames
func (f *Feed) SetFormat(format Format) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if format != f.format {
		f.ring.Clear()
		f.vad.Reset()
	}
	f.format = format
}

// Format returns the declared host frame format
func (f *Feed) Format() Format {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.format
}

// Write accepts one host audio frame
func (f *Feed) Write(frame []byte) error {
	observability.RecordAudioBytes("in", int64(len(frame)))

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFeedClosed
	}
	if len(f.subs) == 0 {
		return nil
	}

	samples, err := ToLinear16(frame, f.format, f.cfg.SampleRate)
	if err != nil {
		observability.RecordError("audio_decode", "audio")
		return err
	}

	for _, ev := range f.vad.Process(samples) {
		if ev == SpeechStarted {
			observability.RecordSpeechSegment()
			f.logger.Debug().Msg("Speech started")
		} else {
			f.logger.Debug().Msg("Speech ended")
		}
	}

	pcm := SamplesToBytes(samples)
	for len(pcm) > 0 {
		n := f.ring.Write(pcm)
		pcm = pcm[n:]
		f.flush()
		if n == 0 {
			break
		}
	}
	return nil
}

// flush fans complete chunks out to subscribers. Callers hold f.mu.
func (f *Feed) flush() {
	for {
		chunk, ok := f.ring.NextChunk(f.chunkBytes)
		if !ok {
			return
		}
		for _, ch := range f.subs {
			select {
			case ch <- chunk:
			default:
				observability.RecordDroppedFrame()
			}
		}
	}
}

// Subscribe returns a channel of linear16 chunks and a function that ends the
// subscription and closes the channel. Chunks are dropped while the channel
// is full.
func (f *Feed) Subscribe(buffer int) (<-chan []byte, func()) {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan []byte, buffer)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	id := f.nextID
	f.nextID++
	if len(f.subs) == 0 {
		f.ring.Clear()
		f.vad.Reset()
	}
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(ch)
			}
		})
	}
}

// Subscribers returns the number of active subscriptions
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close ends every subscription and rejects further writes
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}
