package audio

import (
	"sync"
)

// RingBuffer is a thread-safe byte ring used to stage decoded playback PCM
// between the network reader and the output device. One slot is kept free to
// distinguish full from empty.
type RingBuffer struct {
	buffer []byte
	size   int
	read   int
	write  int
	mu     sync.RWMutex
}

// NewRingBuffer creates a ring buffer holding up to size-1 bytes.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		buffer: make([]byte, size),
		size:   size,
	}
}

// Write appends data to the buffer. Returns the number of bytes written,
// which is less than len(data) when the buffer fills.
func (rb *RingBuffer) Write(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	space := rb.size - rb.available() - 1
	if len(data) > space {
		data = data[:space]
	}

	n := 0
	for n < len(data) {
		c := copy(rb.buffer[rb.write:], data[n:])
		rb.write = (rb.write + c) % rb.size
		n += c
	}
	return n
}

// Read drains up to len(data) bytes into data. Returns the number of bytes read.
func (rb *RingBuffer) Read(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	want := rb.available()
	if want > len(data) {
		want = len(data)
	}

	n := 0
	for n < want {
		c := copy(data[n:want], rb.buffer[rb.read:])
		rb.read = (rb.read + c) % rb.size
		n += c
	}
	return n
}

// Available returns the number of bytes buffered for reading.
func (rb *RingBuffer) Available() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.available()
}

// Space returns the number of bytes that can be written without truncation.
func (rb *RingBuffer) Space() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size - rb.available() - 1
}

func (rb *RingBuffer) available() int {
	if rb.write >= rb.read {
		return rb.write - rb.read
	}
	return rb.size - rb.read + rb.write
}

// Clear discards all buffered bytes. Used when playback is interrupted.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.read = 0
	rb.write = 0
}

// IsEmpty returns true if no bytes are buffered.
func (rb *RingBuffer) IsEmpty() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.read == rb.write
}

// IsFull returns true if no more bytes can be written.
func (rb *RingBuffer) IsFull() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return (rb.write+1)%rb.size == rb.read
}
