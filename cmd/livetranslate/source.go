package main

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/lexiqai/live-translator/internal/audio"
)

// streamAudio copies raw frames from r into feed. With realtime set, frames
// are paced at the rate they would be captured.
func streamAudio(ctx context.Context, r io.Reader, feed *audio.Feed, format audio.Format, chunkMs int, realtime bool) error {
	bytesPerSample := 2
	if format.Encoding == audio.EncodingMulaw {
		bytesPerSample = 1
	}
	if chunkMs <= 0 {
		chunkMs = 100
	}
	frame := make([]byte, format.SampleRate*chunkMs/1000*bytesPerSample)

	var ticker *time.Ticker
	if realtime {
		ticker = time.NewTicker(time.Duration(chunkMs) * time.Millisecond)
		defer ticker.Stop()
	}

	for {
		n, err := io.ReadFull(r, frame)
		if bytesPerSample == 2 {
			n &^= 1
		}
		if n > 0 {
			data := make([]byte, n)
			copy(data, frame[:n])
			if werr := feed.Write(data); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return nil
		}
	}
}
