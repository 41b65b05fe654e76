// Package ring provides a fixed-capacity byte queue shared between a
// producer goroutine and a consumer goroutine.
package ring

import "sync"

// Buffer is a FIFO of bytes with a fixed capacity. It never grows; Put
// reports false once the buffer is full.
type Buffer struct {
	mu   sync.Mutex
	data []byte
	head int
	used int
}

// New creates a buffer holding at most size bytes.
func New(size int) *Buffer {
	if size < 1 {
		size = 1
	}
	return &Buffer{data: make([]byte, size)}
}

// Put appends b, reporting false if there is no room.
func (r *Buffer) Put(b byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.used == len(r.data) {
		return false
	}
	r.data[(r.head+r.used)%len(r.data)] = b
	r.used++
	return true
}

// Get removes and returns the oldest byte.
func (r *Buffer) Get() (byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.used == 0 {
		return 0, false
	}
	b := r.data[r.head]
	r.head = (r.head + 1) % len(r.data)
	r.used--
	return b, true
}

// Used returns the number of queued bytes.
func (r *Buffer) Used() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used
}

// Free returns the remaining room.
func (r *Buffer) Free() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data) - r.used
}

// Cap returns the fixed capacity.
func (r *Buffer) Cap() int {
	return len(r.data)
}

// Reset discards all queued bytes.
func (r *Buffer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.used = 0
}
