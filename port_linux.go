//go:build linux

package sequans

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	// termiosRxCapacity is the size of the kernel's n_tty receive buffer.
	termiosRxCapacity = 4096
	// termiosTxQueueSize is the size of the software transmit queue.
	termiosTxQueueSize = 256
)

// TermiosLine is a Line over a Linux tty device, driven directly through
// termios and the modem-control ioctls. RTS is managed by the Link rather
// than by the kernel, and CTS gates a software transmit queue. The reset
// line is wired to DTR.
type TermiosLine struct {
	mu     sync.RWMutex
	device string
	fd     int
	open   bool

	tx         *pump
	ctsMonitor *ctsMonitor
}

// Ensure TermiosLine implements Line at compile time
var _ Line = (*TermiosLine)(nil)

// NewTermiosLine returns an unopened Line for device, e.g. /dev/ttyACM0.
func NewTermiosLine(device string) *TermiosLine {
	return &TermiosLine{device: device, fd: -1}
}

// ctsMonitor handles CTS signal monitoring using TIOCMIWAIT
type ctsMonitor struct {
	status func() (bool, error)
	wait   func() error
	notify func(asserted bool)
	stopCh chan struct{}
}

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	switch rate {
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 921600:
		return unix.B921600, nil
	default:
		return 0, ErrInvalidBaudRate
	}
}

// getModemStatus retrieves modem control signals using unix package
func getModemStatus(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCMGET)
}

// setModemBit sets or clears one TIOCM output bit
func setModemBit(fd int, bit int, state bool) error {
	if state {
		return unix.IoctlSetInt(fd, unix.TIOCMBIS, bit)
	}
	return unix.IoctlSetInt(fd, unix.TIOCMBIC, bit)
}

// waitForCTSChange blocks until CTS changes, using TIOCMIWAIT
func waitForCTSChange(fd int) error {
	return unix.IoctlSetInt(fd, unix.TIOCMIWAIT, unix.TIOCM_CTS)
}

func newCTSMonitor(fd int, notify func(bool)) *ctsMonitor {
	return &ctsMonitor{
		status: func() (bool, error) {
			status, err := getModemStatus(fd)
			return status&unix.TIOCM_CTS != 0, err
		},
		wait:   func() error { return waitForCTSChange(fd) },
		notify: notify,
		stopCh: make(chan struct{}),
	}
}

// start delivers the current CTS level and then every edge to notify from a
// background goroutine. The level is sampled before each wait, so an edge
// between Begin reading CTS and the monitor starting is not lost.
func (c *ctsMonitor) start() {
	go func() {
		var edge ctsEdge
		for {
			select {
			case <-c.stopCh:
				return
			default:
			}

			if cts, err := c.status(); err == nil {
				select {
				case <-c.stopCh:
					return
				default:
					edge.observe(cts, c.notify)
				}
			}

			if err := c.wait(); err != nil {
				// Descriptor closed or ioctl unsupported
				return
			}
		}
	}()
}

func (c *ctsMonitor) stop() {
	close(c.stopCh)
}

// openError maps open(2) failures onto the package's errors
func openError(device string, err error) error {
	switch {
	case errors.Is(err, unix.ENOENT):
		return fmt.Errorf("%s: %w", device, ErrDeviceNotFound)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%s: %w", device, ErrPermissionDenied)
	case errors.Is(err, unix.EBUSY):
		return fmt.Errorf("%s: %w", device, ErrDeviceInUse)
	default:
		return fmt.Errorf("failed to open %s: %w", device, err)
	}
}

// Open opens the device raw 8N1 at baudRate with RTS deasserted.
func (t *TermiosLine) Open(baudRate int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open {
		return ErrAlreadyStarted
	}

	rate, err := getBaudRate(baudRate)
	if err != nil {
		return err
	}

	fd, err := unix.Open(t.device, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return openError(t.device, err)
	}

	if err := configurePort(fd, rate); err != nil {
		unix.Close(fd)
		return err
	}

	if err := setModemBit(fd, unix.TIOCM_RTS, false); err != nil {
		unix.Close(fd)
		return fmt.Errorf("failed to deassert RTS: %w", err)
	}

	t.fd = fd
	t.open = true
	t.tx = newPump(termiosTxQueueSize, fdWriter(fd))
	t.tx.start()

	return nil
}

// configurePort puts the tty into raw, non-blocking-read mode
func configurePort(fd int, baudRate uint32) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	// Raw mode, 8N1. No CRTSCTS: RTS follows our own receive occupancy and
	// CTS gates the transmit pump.
	termios.Cflag = unix.CS8 | unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0

	// VMIN=0, VTIME=0: read returns immediately with whatever is buffered
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 0

	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | baudRate
	termios.Ispeed = baudRate
	termios.Ospeed = baudRate

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}

	return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH)
}

// fdWriter adapts a descriptor to io.Writer for the transmit pump
type fdWriter int

func (w fdWriter) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := unix.Write(int(w), p[written:])
		if err != nil {
			if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
				continue
			}
			return written, err
		}
		written += n
	}
	return written, nil
}

// Close stops CTS monitoring and the transmit pump and closes the device
func (t *TermiosLine) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.open {
		return ErrLineClosed
	}

	if t.ctsMonitor != nil {
		t.ctsMonitor.stop()
		t.ctsMonitor = nil
	}

	txErr := t.tx.close()
	err := unix.Close(t.fd)
	t.open = false
	t.fd = -1

	return errors.Join(err, txErr)
}

// Buffered returns the bytes waiting in the kernel receive buffer
func (t *TermiosLine) Buffered() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.open {
		return 0
	}

	n, err := unix.IoctlGetInt(t.fd, unix.TIOCINQ)
	if err != nil {
		return 0
	}
	return n
}

// Capacity returns the kernel receive buffer size
func (t *TermiosLine) Capacity() int {
	return termiosRxCapacity
}

// Receive reads one byte if one is waiting
func (t *TermiosLine) Receive() (byte, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.open {
		return 0, false
	}

	var b [1]byte
	n, err := unix.Read(t.fd, b[:])
	if err != nil || n != 1 {
		return 0, false
	}
	return b[0], true
}

// Writable reports whether the transmit queue has room
func (t *TermiosLine) Writable() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.open && t.tx.queue.Free() > 0
}

// Transmit queues b for the pump
func (t *TermiosLine) Transmit(b byte) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.open {
		return ErrLineClosed
	}
	if !t.tx.push(b) {
		return ErrTxQueueFull
	}
	return nil
}

// Pending returns the bytes queued but not yet written to the device
func (t *TermiosLine) Pending() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.open {
		return 0
	}
	return t.tx.queue.Used()
}

// SetTransmit opens or closes the transmit gate
func (t *TermiosLine) SetTransmit(enabled bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.open {
		t.tx.setEnabled(enabled)
	}
}

// SetRTS sets the RTS signal state
func (t *TermiosLine) SetRTS(asserted bool) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.open {
		return ErrLineClosed
	}
	return setModemBit(t.fd, unix.TIOCM_RTS, asserted)
}

// SetReset drives the modem reset through DTR
func (t *TermiosLine) SetReset(asserted bool) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.open {
		return ErrLineClosed
	}
	return setModemBit(t.fd, unix.TIOCM_DTR, asserted)
}

// CTS returns the current CTS status
func (t *TermiosLine) CTS() (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.open {
		return false, ErrLineClosed
	}

	status, err := getModemStatus(t.fd)
	if err != nil {
		return false, err
	}
	return status&unix.TIOCM_CTS != 0, nil
}

// NotifyCTS starts or stops the TIOCMIWAIT monitor. The handler is first
// called with the current level.
func (t *TermiosLine) NotifyCTS(fn func(asserted bool)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ctsMonitor != nil {
		t.ctsMonitor.stop()
		t.ctsMonitor = nil
	}
	if fn == nil {
		return nil
	}
	if !t.open {
		return ErrLineClosed
	}

	t.ctsMonitor = newCTSMonitor(t.fd, fn)
	t.ctsMonitor.start()
	return nil
}
