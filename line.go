package sequans

// Line is the hardware under a Link: a UART channel with its receive and
// transmit queues plus the RTS, CTS and reset pins. Signal levels are
// logical; an implementation maps "asserted" onto the active-low wiring.
//
// Receive, Buffered and Writable must never block. NotifyCTS callbacks run
// on the implementation's own goroutine and must be delivered in edge order.
type Line interface {
	// Open starts the channel at the given baud rate, 8N1, with RTS deasserted.
	Open(baudRate int) error
	Close() error

	// Buffered returns the number of received bytes waiting to be read.
	Buffered() int
	// Capacity returns the size of the receive buffer.
	Capacity() int
	// Receive pops one received byte, reporting false when none is waiting.
	Receive() (byte, bool)

	// Writable reports whether the transmit queue has room for a byte.
	Writable() bool
	// Transmit queues one byte for the transmitter.
	Transmit(b byte) error
	// Pending returns the number of queued bytes not yet shifted out.
	Pending() int
	// SetTransmit gates the transmitter. While disabled, queued bytes stay
	// queued.
	SetTransmit(enabled bool)

	SetRTS(asserted bool) error
	SetReset(asserted bool) error
	CTS() (bool, error)
	// NotifyCTS installs fn. fn is first called with the current CTS level,
	// then on every transition. A nil fn disables notification.
	NotifyCTS(fn func(asserted bool)) error
}

// Signals is a snapshot of the link's flow-control state
type Signals struct {
	RTS       bool // we accept more data
	CTS       bool // the modem accepts more data
	TxEnabled bool // transmit gate open, whether or not bytes are pending
	Occupancy int  // bytes waiting in the receive buffer
	HighWater int
	Pending   int // bytes waiting in the transmit queue
}
