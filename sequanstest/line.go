// Package sequanstest provides a simulated modem line for testing code that
// talks to a Sequans modem through a sequans.Link.
//
// The simulated modem shifts bytes out instantly while its transmit gate is
// open and answers complete command lines from a script:
//
//	line := sequanstest.NewLine()
//	line.SetCTS(true)
//	line.Reply("AT", "\r\nOK\r\n")
//	link, _ := sequans.New(line)
package sequanstest

import (
	"errors"
	"strings"
	"sync"
)

const (
	// DefaultCapacity is the receive buffer size of a new Line.
	DefaultCapacity = 256
	// DefaultTxCapacity is the transmit queue size of a new Line.
	DefaultTxCapacity = 64
)

// ErrClosed is returned by operations on a Line that is not open.
var ErrClosed = errors.New("sequanstest: line closed")

// Line simulates the UART channel and modem-control pins under a Link.
// All methods are safe for concurrent use.
type Line struct {
	mu sync.Mutex

	open    bool
	baud    int
	openErr error
	rtsErr  error

	rx       []byte
	capacity int
	dropped  int

	tx      []byte
	txCap   int
	gate    bool
	written []byte
	partial []byte

	commands  []string
	replies   map[string][]string
	responder func(command string) string

	rts          bool
	rtsHistory   []bool
	reset        bool
	resetHistory []bool

	cts       bool
	notify    func(asserted bool)
	ctsReadFn func()
}

// NewLine returns a closed Line with CTS deasserted and no script.
func NewLine() *Line {
	return &Line{
		capacity: DefaultCapacity,
		txCap:    DefaultTxCapacity,
		replies:  make(map[string][]string),
	}
}

// SetCapacity changes the receive buffer size. Bytes already buffered are
// kept.
func (l *Line) SetCapacity(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.capacity = n
}

// SetTxCapacity changes the transmit queue size.
func (l *Line) SetTxCapacity(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txCap = n
}

// FailOpen makes the next Open calls return err.
func (l *Line) FailOpen(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.openErr = err
}

// FailRTS makes SetRTS return err until called again with nil.
func (l *Line) FailRTS(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rtsErr = err
}

func (l *Line) Open(baudRate int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.openErr != nil {
		return l.openErr
	}
	l.open = true
	l.baud = baudRate
	l.setRTS(false)
	return nil
}

func (l *Line) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open {
		return ErrClosed
	}
	l.open = false
	l.tx = nil
	return nil
}

// IsOpen reports whether Open succeeded and Close has not been called.
func (l *Line) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

// Baud returns the rate of the last successful Open.
func (l *Line) Baud() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.baud
}

// Feed delivers bytes from the modem. Bytes beyond the receive capacity are
// dropped and counted; Feed returns how many were accepted.
func (l *Line) Feed(data string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.feed(data)
}

func (l *Line) feed(data string) int {
	room := l.capacity - len(l.rx)
	if room < 0 {
		room = 0
	}
	n := min(room, len(data))
	l.rx = append(l.rx, data[:n]...)
	l.dropped += len(data) - n
	return n
}

// Dropped returns how many fed bytes did not fit the receive buffer.
func (l *Line) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

func (l *Line) Buffered() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rx)
}

func (l *Line) Capacity() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capacity
}

func (l *Line) Receive() (byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.rx) == 0 {
		return 0, false
	}
	b := l.rx[0]
	l.rx = l.rx[1:]
	return b, true
}

func (l *Line) Writable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open && len(l.tx) < l.txCap
}

// Transmit queues b. While the transmit gate is open the modem takes it at
// once.
func (l *Line) Transmit(b byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open {
		return ErrClosed
	}
	if len(l.tx) >= l.txCap {
		return errors.New("sequanstest: transmit queue full")
	}
	l.tx = append(l.tx, b)
	l.shift()
	return nil
}

func (l *Line) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tx)
}

func (l *Line) SetTransmit(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gate = enabled
	l.shift()
}

// TransmitEnabled reports the state of the transmit gate.
func (l *Line) TransmitEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gate
}

// shift moves queued bytes to the modem while the gate is open.
func (l *Line) shift() {
	if !l.gate {
		return
	}
	for _, b := range l.tx {
		l.written = append(l.written, b)
		l.receiveAtModem(b)
	}
	l.tx = l.tx[:0]
}

// receiveAtModem assembles command lines and answers them.
func (l *Line) receiveAtModem(b byte) {
	if b != '\r' {
		l.partial = append(l.partial, b)
		return
	}

	command := string(l.partial)
	l.partial = l.partial[:0]
	l.commands = append(l.commands, command)

	if queued := l.replies[command]; len(queued) > 0 {
		l.feed(queued[0])
		if len(queued) > 1 {
			l.replies[command] = queued[1:]
		}
		return
	}
	if l.responder != nil {
		l.feed(l.responder(command))
	}
}

// Reply scripts the modem's answer to command. Several replies for the same
// command are used in order; the last one repeats.
func (l *Line) Reply(command string, responses ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.replies[command] = append(l.replies[command], responses...)
}

// Respond installs fn to answer commands that have no scripted reply. fn
// runs with the line locked and must not call back into it.
func (l *Line) Respond(fn func(command string) string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.responder = fn
}

// Written returns every byte the modem has received.
func (l *Line) Written() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return string(l.written)
}

// Commands returns the carriage-return terminated lines the modem has
// received, without the terminator.
func (l *Line) Commands() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.commands...)
}

// LastCommand returns the most recent command line, or "".
func (l *Line) LastCommand() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.commands) == 0 {
		return ""
	}
	return l.commands[len(l.commands)-1]
}

// HasCommandPrefix reports whether any received command starts with prefix.
func (l *Line) HasCommandPrefix(prefix string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.commands {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (l *Line) SetRTS(asserted bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open {
		return ErrClosed
	}
	if l.rtsErr != nil {
		return l.rtsErr
	}
	l.setRTS(asserted)
	return nil
}

func (l *Line) setRTS(asserted bool) {
	l.rts = asserted
	l.rtsHistory = append(l.rtsHistory, asserted)
}

// RTS returns the current RTS level.
func (l *Line) RTS() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rts
}

// RTSHistory returns every level written to RTS, including the one Open
// sets.
func (l *Line) RTSHistory() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]bool(nil), l.rtsHistory...)
}

func (l *Line) SetReset(asserted bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open {
		return ErrClosed
	}
	l.reset = asserted
	l.resetHistory = append(l.resetHistory, asserted)
	return nil
}

// ResetHistory returns every level written to the reset line.
func (l *Line) ResetHistory() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]bool(nil), l.resetHistory...)
}

func (l *Line) CTS() (bool, error) {
	l.mu.Lock()
	if !l.open {
		l.mu.Unlock()
		return false, ErrClosed
	}
	cts, hook := l.cts, l.ctsReadFn
	l.mu.Unlock()

	if hook != nil {
		hook()
	}
	return cts, nil
}

// OnCTSRead sets fn to run after each CTS read, outside the line's lock. It
// lets a test move CTS right after the level was sampled.
func (l *Line) OnCTSRead(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ctsReadFn = fn
}

// NotifyCTS installs fn and calls it once with the current level, then on
// every change.
func (l *Line) NotifyCTS(fn func(asserted bool)) error {
	l.mu.Lock()
	if fn != nil && !l.open {
		l.mu.Unlock()
		return ErrClosed
	}
	l.notify = fn
	cts := l.cts
	l.mu.Unlock()

	if fn != nil {
		fn(cts)
	}
	return nil
}

// Notifying reports whether a CTS handler is installed.
func (l *Line) Notifying() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.notify != nil
}

// SetCTS drives the modem's CTS output. The installed handler is called
// synchronously on a change, outside the line's lock, the way an edge
// interrupt would fire.
func (l *Line) SetCTS(asserted bool) {
	l.mu.Lock()
	changed := l.cts != asserted
	l.cts = asserted
	fn := l.notify
	l.mu.Unlock()

	if changed && fn != nil {
		fn(asserted)
	}
}
