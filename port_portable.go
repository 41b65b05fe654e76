package sequans

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allbin/go-sequans/internal/ring"
	"go.bug.st/serial"
)

const (
	// portableRxCapacity is the size of the software receive ring.
	portableRxCapacity  = 256
	portableTxQueueSize = 256

	// portableReadTimeout bounds each blocking read of the reader goroutine.
	portableReadTimeout = 20 * time.Millisecond
	// portableCTSPoll is how often CTS is sampled; go.bug.st/serial has no
	// edge notification.
	portableCTSPoll = 5 * time.Millisecond
)

// PortableLine is a Line over go.bug.st/serial, for platforms without the
// termios Line. A reader goroutine moves bytes into a software receive ring,
// so Buffered and Capacity describe that ring, and CTS edges are found by
// polling the modem status bits.
type PortableLine struct {
	mu     sync.RWMutex
	device string
	port   serial.Port
	open   bool

	rx *ring.Buffer
	tx *pump

	// modemStatus samples the input pins; it is the port's
	// GetModemStatusBits once open.
	modemStatus func() (*serial.ModemStatusBits, error)

	notify      func(asserted bool)
	notifyReset bool
	notifyMu    sync.Mutex

	stop chan struct{}
	wg   sync.WaitGroup
}

var _ Line = (*PortableLine)(nil)

// NewPortableLine returns an unopened Line for device.
func NewPortableLine(device string) *PortableLine {
	return &PortableLine{device: device}
}

// portError maps go.bug.st/serial open failures onto the package's errors
func portError(device string, err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		if sentinel := portErrorSentinel(portErr.Code()); sentinel != nil {
			return fmt.Errorf("%s: %w", device, sentinel)
		}
	}
	return fmt.Errorf("failed to open %s: %w", device, err)
}

func portErrorSentinel(code serial.PortErrorCode) error {
	switch code {
	case serial.PortNotFound:
		return ErrDeviceNotFound
	case serial.PermissionDenied:
		return ErrPermissionDenied
	case serial.PortBusy:
		return ErrDeviceInUse
	case serial.InvalidSpeed:
		return ErrInvalidBaudRate
	default:
		return nil
	}
}

// Open opens the port 8N1 with RTS and DTR deasserted.
func (p *PortableLine) Open(baudRate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.open {
		return ErrAlreadyStarted
	}
	if _, ok := supportedBaudRates[baudRate]; !ok {
		return ErrInvalidBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
		InitialStatusBits: &serial.ModemOutputBits{
			RTS: false,
			DTR: false,
		},
	}

	port, err := serial.Open(p.device, mode)
	if err != nil {
		return portError(p.device, err)
	}

	if err := port.SetReadTimeout(portableReadTimeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	p.port = port
	p.modemStatus = port.GetModemStatusBits
	p.open = true
	p.rx = ring.New(portableRxCapacity)
	p.tx = newPump(portableTxQueueSize, port)
	p.stop = make(chan struct{})

	p.tx.start()
	p.wg.Add(2)
	go p.readLoop()
	go p.ctsLoop()

	return nil
}

// readLoop copies incoming bytes into the receive ring. Bytes that arrive
// while the ring is full are dropped; RTS should have stopped the modem
// long before that.
func (p *PortableLine) readLoop() {
	defer p.wg.Done()

	buf := make([]byte, 64)
	for {
		select {
		case <-p.stop:
			return
		default:
		}

		n, err := p.port.Read(buf)
		if err != nil {
			return
		}
		for _, b := range buf[:n] {
			p.rx.Put(b)
		}
	}
}

// ctsLoop samples CTS and reports changes to the installed handler
func (p *PortableLine) ctsLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(portableCTSPoll)
	defer ticker.Stop()

	var edge ctsEdge
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
		}

		p.sampleCTS(&edge)
	}
}

// sampleCTS reads CTS once. A handler installed since the last sample gets
// the current level; otherwise only changes are delivered.
func (p *PortableLine) sampleCTS(edge *ctsEdge) {
	bits, err := p.modemStatus()
	if err != nil {
		return
	}

	p.notifyMu.Lock()
	fn := p.notify
	if p.notifyReset {
		edge.reset()
		p.notifyReset = false
	}
	p.notifyMu.Unlock()

	edge.observe(bits.CTS, fn)
}

// Close stops the background goroutines and closes the port. The lock is
// released before waiting, since a CTS handler in flight may call back into
// the line.
func (p *PortableLine) Close() error {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return ErrLineClosed
	}
	p.open = false
	port, tx := p.port, p.tx
	p.mu.Unlock()

	close(p.stop)
	err := port.Close()
	p.wg.Wait()
	txErr := tx.close()
	p.rx.Reset()

	return errors.Join(err, txErr)
}

func (p *PortableLine) Buffered() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return 0
	}
	return p.rx.Used()
}

func (p *PortableLine) Capacity() int {
	return portableRxCapacity
}

func (p *PortableLine) Receive() (byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return 0, false
	}
	return p.rx.Get()
}

func (p *PortableLine) Writable() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.open && p.tx.queue.Free() > 0
}

func (p *PortableLine) Transmit(b byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return ErrLineClosed
	}
	if !p.tx.push(b) {
		return ErrTxQueueFull
	}
	return nil
}

func (p *PortableLine) Pending() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return 0
	}
	return p.tx.queue.Used()
}

func (p *PortableLine) SetTransmit(enabled bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.open {
		p.tx.setEnabled(enabled)
	}
}

func (p *PortableLine) SetRTS(asserted bool) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return ErrLineClosed
	}
	return p.port.SetRTS(asserted)
}

// SetReset drives the modem reset through DTR
func (p *PortableLine) SetReset(asserted bool) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return ErrLineClosed
	}
	return p.port.SetDTR(asserted)
}

func (p *PortableLine) CTS() (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return false, ErrLineClosed
	}
	bits, err := p.modemStatus()
	if err != nil {
		return false, err
	}
	return bits.CTS, nil
}

// NotifyCTS installs the CTS handler. The next sample delivers the current
// level, then only changes follow.
func (p *PortableLine) NotifyCTS(fn func(asserted bool)) error {
	p.mu.RLock()
	open := p.open
	p.mu.RUnlock()

	if fn != nil && !open {
		return ErrLineClosed
	}

	p.notifyMu.Lock()
	p.notify = fn
	p.notifyReset = true
	p.notifyMu.Unlock()
	return nil
}
