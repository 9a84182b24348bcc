package audio

import (
	"sync"
)

// RingBuffer is a thread-safe byte ring used to rechunk host audio into
// fixed-size recognizer frames.
type RingBuffer struct {
	mu     sync.Mutex
	buffer []byte
	read   int
	write  int
}

// NewRingBuffer creates a ring buffer holding up to size-1 bytes
func NewRingBuffer(size int) *RingBuffer {
	if size < 2 {
		size = 2
	}
	return &RingBuffer{buffer: make([]byte, size)}
}

// Write copies as much of data as fits and returns the number of bytes written
func (rb *RingBuffer) Write(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := min(len(data), rb.space())
	for written := 0; written < n; {
		end := len(rb.buffer)
		if rb.read > rb.write {
			end = rb.read - 1
		} else if rb.read == 0 {
			end = len(rb.buffer) - 1
		}
		c := copy(rb.buffer[rb.write:end], data[written:n])
		written += c
		rb.write = (rb.write + c) % len(rb.buffer)
	}
	return n
}

// Read fills data from the buffer and returns the number of bytes read
func (rb *RingBuffer) Read(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := min(len(data), rb.available())
	for read := 0; read < n; {
		end := len(rb.buffer)
		if rb.write > rb.read {
			end = rb.write
		}
		c := copy(data[read:n], rb.buffer[rb.read:end])
		read += c
		rb.read = (rb.read + c) % len(rb.buffer)
	}
	return n
}

// NextChunk returns the next size bytes, or false while fewer are buffered
func (rb *RingBuffer) NextChunk(size int) ([]byte, bool) {
	if rb.Available() < size {
		return nil, false
	}
	chunk := make([]byte, size)
	rb.Read(chunk)
	return chunk, true
}

// Available returns the number of bytes available to read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.available()
}

// Space returns the number of bytes available to write
func (rb *RingBuffer) Space() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.space()
}

// Clear discards buffered data
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.read, rb.write = 0, 0
}

func (rb *RingBuffer) available() int {
	if rb.write >= rb.read {
		return rb.write - rb.read
	}
	return len(rb.buffer) - rb.read + rb.write
}

// one slot stays empty to tell full from empty
func (rb *RingBuffer) space() int {
	return len(rb.buffer) - rb.available() - 1
}
