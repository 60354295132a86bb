package ui

import (
	"encoding/binary"
	"io"
	"sync"
)

// AudioRingBuffer queues interleaved stereo int16 samples from the
// emulation goroutine and serves them to oto as little-endian bytes.
// Write never blocks: on overflow the oldest whole frames are dropped.
// Read blocks while the buffer is empty.
type AudioRingBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []int16
	read   int
	count  int
	closed bool

	dropped uint64 // samples discarded on overflow
}

// NewAudioRingBuffer creates a ring buffer holding capacity bytes of
// 16-bit stereo audio.
func NewAudioRingBuffer(capacity int) *AudioRingBuffer {
	rb := &AudioRingBuffer{
		buf: make([]int16, capacity/4*2),
	}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// Write queues samples, which must be whole stereo frames.
func (rb *AudioRingBuffer) Write(samples []int16) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closed || len(samples) == 0 {
		return
	}

	size := len(rb.buf)
	if len(samples) > size {
		rb.dropped += uint64(len(samples) - size)
		samples = samples[len(samples)-size:]
	}
	if over := rb.count + len(samples) - size; over > 0 {
		rb.read = (rb.read + over) % size
		rb.count -= over
		rb.dropped += uint64(over)
	}

	w := (rb.read + rb.count) % size
	n := copy(rb.buf[w:], samples)
	copy(rb.buf, samples[n:])
	rb.count += len(samples)
	rb.cond.Signal()
}

// Read implements io.Reader. It returns whole samples only and io.EOF
// once the buffer is closed and drained.
func (rb *AudioRingBuffer) Read(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for rb.count == 0 {
		if rb.closed {
			return 0, io.EOF
		}
		rb.cond.Wait()
	}

	n := min(len(p)/2, rb.count)
	size := len(rb.buf)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(rb.buf[(rb.read+i)%size]))
	}
	rb.read = (rb.read + n) % size
	rb.count -= n
	return n * 2, nil
}

// Buffered returns the number of bytes waiting to be read.
func (rb *AudioRingBuffer) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count * 2
}

// Dropped returns the number of samples lost to overflow.
func (rb *AudioRingBuffer) Dropped() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.dropped
}

// Clear discards all queued audio.
func (rb *AudioRingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.read = 0
	rb.count = 0
}

// Close signals shutdown and wakes any blocked reader.
func (rb *AudioRingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
}
