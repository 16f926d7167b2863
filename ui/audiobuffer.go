package ui

import (
	"io"
	"sync"
)

// bytesPerFrame is one stereo pair of 16-bit little-endian samples.
const bytesPerFrame = 4

// AudioRingBuffer is a thread-safe ring of stereo PCM frames implementing
// io.Reader. The emulation goroutine appends samples with WriteSamples and
// oto's player pulls bytes with Read. Overflow drops the oldest whole
// frames so left and right never swap.
type AudioRingBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	head   int // Read position
	count  int // Buffered bytes
	closed bool
}

// NewAudioRingBuffer creates a ring buffer holding capacity bytes, rounded
// down to whole frames.
func NewAudioRingBuffer(capacity int) *AudioRingBuffer {
	capacity -= capacity % bytesPerFrame
	if capacity < bytesPerFrame {
		capacity = bytesPerFrame
	}
	rb := &AudioRingBuffer{buf: make([]byte, capacity)}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// WriteSamples appends interleaved stereo samples. A trailing odd sample
// is ignored. Never blocks.
func (rb *AudioRingBuffer) WriteSamples(samples []int16) {
	samples = samples[:len(samples)&^1]
	if len(samples) == 0 {
		return
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closed {
		return
	}

	size := len(rb.buf)
	n := len(samples) * 2
	if n > size {
		samples = samples[(n-size)/2:]
		n = size
	}
	if over := rb.count + n - size; over > 0 {
		if r := over % bytesPerFrame; r != 0 {
			over += bytesPerFrame - r
		}
		if over > rb.count {
			over = rb.count
		}
		rb.head = (rb.head + over) % size
		rb.count -= over
	}

	pos := (rb.head + rb.count) % size
	for _, s := range samples {
		rb.buf[pos] = byte(s)
		rb.buf[(pos+1)%size] = byte(s >> 8)
		pos = (pos + 2) % size
	}
	rb.count += n
	rb.cond.Signal()
}

// Read implements io.Reader. It blocks until at least one frame is
// buffered and only hands out whole frames when p has room for one.
// Returns io.EOF once closed and drained.
func (rb *AudioRingBuffer) Read(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for rb.count == 0 {
		if rb.closed {
			return 0, io.EOF
		}
		rb.cond.Wait()
	}

	n := len(p)
	if n >= bytesPerFrame {
		n -= n % bytesPerFrame
	}
	if n > rb.count {
		n = rb.count
	}

	size := len(rb.buf)
	first := size - rb.head
	if first >= n {
		copy(p, rb.buf[rb.head:rb.head+n])
	} else {
		copy(p, rb.buf[rb.head:])
		copy(p[first:], rb.buf[:n-first])
	}
	rb.head = (rb.head + n) % size
	rb.count -= n
	return n, nil
}

// Buffered returns the number of bytes waiting to be read.
func (rb *AudioRingBuffer) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Clear discards everything buffered.
func (rb *AudioRingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.head = 0
	rb.count = 0
}

// Close wakes any blocked reader. Reads drain what is left, then return
// io.EOF.
func (rb *AudioRingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
}
