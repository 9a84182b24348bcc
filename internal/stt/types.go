package stt

import (
	"context"
)

// TranscriptionResult represents one recognition result
type TranscriptionResult struct {
	// Text is the recognized text
	Text string

	// IsFinal is true for a finalized utterance and false for a hypothesis
	IsFinal bool

	// Confidence is the confidence score (0.0 to 1.0) if available
	Confidence float64

	// StartTime is the start time of the utterance in seconds
	StartTime float64

	// Duration is the duration of the utterance in seconds
	Duration float64
}

// STTClient is one streaming recognition connection. A client is used for a
// single session and cannot be restarted.
type STTClient interface {
	// Start opens the streaming connection
	Start(ctx context.Context) error

	// SendAudio sends a linear16 chunk to the recognizer
	SendAudio(audioData []byte) error

	// Results delivers recognition results until Done is closed
	Results() <-chan *TranscriptionResult

	// Done is closed when the connection ends for any reason
	Done() <-chan struct{}

	// Err returns the reason the connection ended, or nil after Close
	Err() error

	// Close ends the connection. It is safe to call more than once.
	Close() error
}

// Factory creates a recognizer for one session
type Factory func(language string, sampleRate int) STTClient
