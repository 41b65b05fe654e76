package sequans

import (
	"io"

	"github.com/allbin/go-sequans/internal/ring"
	"go.uber.org/atomic"
)

// pumpBatch is the most bytes handed to the writer in one call.
const pumpBatch = 64

// pump drains a software transmit queue into the device while its gate is
// open. It plays the part of the data-register-empty interrupt: it runs only
// while bytes are pending and the gate is enabled.
type pump struct {
	queue   *ring.Buffer
	w       io.Writer
	enabled atomic.Bool
	lastErr atomic.Error

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newPump(size int, w io.Writer) *pump {
	return &pump{
		queue: ring.New(size),
		w:     w,
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (p *pump) start() {
	go p.run()
}

func (p *pump) run() {
	defer close(p.done)

	batch := make([]byte, 0, pumpBatch)
	for {
		batch = batch[:0]
		for p.enabled.Load() && len(batch) < pumpBatch {
			b, ok := p.queue.Get()
			if !ok {
				break
			}
			batch = append(batch, b)
		}

		if len(batch) > 0 {
			if _, err := p.w.Write(batch); err != nil {
				p.lastErr.Store(err)
			}
			continue
		}

		select {
		case <-p.stop:
			return
		case <-p.wake:
		}
	}
}

// push queues b and wakes the pump.
func (p *pump) push(b byte) bool {
	ok := p.queue.Put(b)
	p.kick()
	return ok
}

func (p *pump) setEnabled(enabled bool) {
	p.enabled.Store(enabled)
	if enabled {
		p.kick()
	}
}

func (p *pump) kick() {
	select {
	case p.wake <- struct{}{}:
	default:
		// Already woken
	}
}

// close stops the pump and returns the last write error, if any. Bytes still
// queued are discarded.
func (p *pump) close() error {
	close(p.stop)
	<-p.done
	p.queue.Reset()
	return p.lastErr.Load()
}
