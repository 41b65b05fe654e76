package sequans

import (
	"fmt"
	"time"

	"go.uber.org/atomic"
)

// Link is the transport session to the modem. It owns the Line, drives RTS
// from receive occupancy and reacts to CTS edges. One Link is created at
// startup and handed to every component that talks to the modem.
//
// The foreground methods (writes, reads, flushes) are meant for a single
// caller at a time. The CTS handler runs concurrently on the Line's
// notification goroutine and is the only writer of the CTS and
// transmit-enable flags.
type Link struct {
	line      Line
	config    Config
	highWater int
	sleep     func(time.Duration)

	retries    atomic.Int32
	retryDelay atomic.Duration

	rts       atomic.Bool
	cts       atomic.Bool
	txEnabled atomic.Bool
	started   atomic.Bool
}

// New creates a Link over line. The line is not touched until Begin.
func New(line Line, opts ...Option) (*Link, error) {
	if line == nil {
		return nil, ErrInvalidConfig
	}

	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	l := &Link{
		line:   line,
		config: config,
		sleep:  config.sleep,
	}
	l.retries.Store(int32(config.Retries))
	l.retryDelay.Store(config.RetryDelay)

	return l, nil
}

// Begin opens the line and brings up flow control. RTS stays deasserted
// until the channel is open and the first occupancy check has run.
func (l *Link) Begin() error {
	if l.started.Load() {
		return ErrAlreadyStarted
	}

	if err := l.line.Open(l.config.BaudRate); err != nil {
		return fmt.Errorf("open line: %w", err)
	}

	if err := l.line.SetRTS(false); err != nil {
		l.line.Close()
		return fmt.Errorf("deassert RTS: %w", err)
	}
	l.rts.Store(false)

	if err := l.line.SetReset(false); err != nil {
		l.line.Close()
		return fmt.Errorf("release reset: %w", err)
	}

	l.highWater = l.config.HighWaterMark
	if l.highWater == 0 {
		l.highWater = l.line.Capacity() - 2
	}
	if l.highWater < 1 {
		l.highWater = 1
	}

	// Seed the flags before notifications run. NotifyCTS then reports the
	// current level again, covering an edge in between.
	cts, err := l.line.CTS()
	if err != nil {
		l.line.Close()
		return fmt.Errorf("read CTS: %w", err)
	}
	l.onCTSChange(cts)

	if err := l.line.NotifyCTS(l.onCTSChange); err != nil {
		l.line.Close()
		return fmt.Errorf("enable CTS notification: %w", err)
	}

	l.started.Store(true)
	l.flowControlUpdate()

	return nil
}

// End disables CTS notification and closes the line.
func (l *Link) End() error {
	if !l.started.Swap(false) {
		return ErrNotStarted
	}

	notifyErr := l.line.NotifyCTS(nil)
	if err := l.line.Close(); err != nil {
		return err
	}
	return notifyErr
}

// SetRetryConfiguration changes the retry budget of every blocking call.
// It takes effect on the next call; a call already in its retry loop keeps
// the budget it started with.
func (l *Link) SetRetryConfiguration(retries int, delay time.Duration) {
	retries = min(max(retries, 1), MaxRetries)
	if delay < 0 {
		delay = 0
	}
	l.retries.Store(int32(retries))
	l.retryDelay.Store(delay)
}

// RetryConfiguration returns the current retry budget.
func (l *Link) RetryConfiguration() (int, time.Duration) {
	return int(l.retries.Load()), l.retryDelay.Load()
}

// IsTxReady reports whether the transmit queue can take another byte.
func (l *Link) IsTxReady() bool {
	return l.line.Writable()
}

// IsRxReady reports whether a received byte is waiting.
func (l *Link) IsRxReady() bool {
	return l.line.Buffered() > 0
}

// flowControlUpdate asserts RTS while there is room below the high-water
// mark and deasserts it otherwise. The pin is only written on change; a
// failed write leaves the flag as it was so the next update retries.
func (l *Link) flowControlUpdate() {
	assert := l.line.Buffered() < l.highWater
	if l.rts.Load() == assert {
		return
	}
	if err := l.line.SetRTS(assert); err != nil {
		return
	}
	l.rts.Store(assert)
}

// onCTSChange is the CTS edge handler. It only flips the transmit gate and
// the flags it owns.
func (l *Link) onCTSChange(asserted bool) {
	l.cts.Store(asserted)

	if !asserted {
		// Modem cannot take more data, stop feeding the transmitter
		l.txEnabled.Store(false)
		l.line.SetTransmit(false)
		return
	}

	// Open the gate; the transmitter itself idles until bytes are queued
	l.txEnabled.Store(true)
	l.line.SetTransmit(true)
}

// ResetModem holds the reset line asserted for hold, then releases it.
func (l *Link) ResetModem(hold time.Duration) error {
	if !l.started.Load() {
		return ErrNotStarted
	}
	if err := l.line.SetReset(true); err != nil {
		return fmt.Errorf("assert reset: %w", err)
	}
	l.sleep(hold)
	if err := l.line.SetReset(false); err != nil {
		return fmt.Errorf("release reset: %w", err)
	}
	return nil
}

// Signals returns a snapshot of the flow-control state.
func (l *Link) Signals() Signals {
	return Signals{
		RTS:       l.rts.Load(),
		CTS:       l.cts.Load(),
		TxEnabled: l.txEnabled.Load(),
		Occupancy: l.line.Buffered(),
		HighWater: l.highWater,
		Pending:   l.line.Pending(),
	}
}

func (l *Link) retryBudget() (int, time.Duration) {
	return int(l.retries.Load()), l.retryDelay.Load()
}
