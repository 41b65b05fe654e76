package sequans

import (
	"errors"
	"testing"
	"time"

	"github.com/allbin/go-sequans/sequanstest"
)

var _ Line = (*sequanstest.Line)(nil)

// sleepRecorder stands in for time.Sleep. hook runs after each sleep with
// the running call count, so tests can deliver bytes "while" the link waits.
type sleepRecorder struct {
	calls int
	total time.Duration
	hook  func(call int)
}

func (s *sleepRecorder) sleep(d time.Duration) {
	s.calls++
	s.total += d
	if s.hook != nil {
		s.hook(s.calls)
	}
}

// newTestLine returns a simulated line with CTS asserted
func newTestLine() (*sleepRecorder, *sequanstest.Line) {
	line := sequanstest.NewLine()
	line.SetCTS(true)
	return &sleepRecorder{}, line
}

func startLink(t *testing.T, line *sequanstest.Line, rec *sleepRecorder, opts ...Option) *Link {
	t.Helper()

	opts = append([]Option{WithSleep(rec.sleep)}, opts...)
	link, err := New(line, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := link.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	t.Cleanup(func() {
		if link.started.Load() {
			link.End()
		}
	})
	return link
}

func TestBeginBringsUpFlowControl(t *testing.T) {
	rec, line := newTestLine()
	link := startLink(t, line, rec, WithBaudRate(57600))

	if !line.IsOpen() {
		t.Fatal("Line not opened")
	}
	if line.Baud() != 57600 {
		t.Errorf("Expected baud 57600, got %d", line.Baud())
	}

	// Deasserted on open, then asserted by the first occupancy check
	history := line.RTSHistory()
	if len(history) < 2 || history[0] || !history[len(history)-1] {
		t.Errorf("Unexpected RTS history %v", history)
	}
	if reset := line.ResetHistory(); len(reset) != 1 || reset[0] {
		t.Errorf("Expected reset released once, got %v", reset)
	}
	if !line.Notifying() {
		t.Error("CTS notification not installed")
	}

	sig := link.Signals()
	if !sig.RTS || !sig.CTS || !sig.TxEnabled {
		t.Errorf("Unexpected signals after Begin: %+v", sig)
	}
	if sig.HighWater != sequanstest.DefaultCapacity-2 {
		t.Errorf("Expected high water %d, got %d", sequanstest.DefaultCapacity-2, sig.HighWater)
	}
}

func TestBeginWithFullReceiveBuffer(t *testing.T) {
	rec, line := newTestLine()
	line.Feed("0123456789")

	link := startLink(t, line, rec, WithHighWaterMark(4))

	if line.RTS() {
		t.Error("RTS asserted although occupancy is above the high-water mark")
	}
	if link.Signals().RTS {
		t.Error("RTS flag set although the pin is deasserted")
	}
}

func TestBeginSeedsCTSDeasserted(t *testing.T) {
	rec := &sleepRecorder{}
	line := sequanstest.NewLine()
	link := startLink(t, line, rec)

	sig := link.Signals()
	if sig.CTS || sig.TxEnabled {
		t.Errorf("Expected CTS and transmit disabled, got %+v", sig)
	}
	if line.TransmitEnabled() {
		t.Error("Transmit gate open while CTS is deasserted")
	}
}

func TestHighWaterDerivedFromCapacity(t *testing.T) {
	tests := []struct {
		capacity int
		want     int
	}{
		{256, 254},
		{64, 62},
		{2, 1},
		{1, 1},
	}

	for _, tt := range tests {
		rec, line := newTestLine()
		line.SetCapacity(tt.capacity)
		link := startLink(t, line, rec)
		if got := link.Signals().HighWater; got != tt.want {
			t.Errorf("capacity %d: high water %d, want %d", tt.capacity, got, tt.want)
		}
		link.End()
	}
}

func TestBeginErrors(t *testing.T) {
	openErr := errors.New("no such port")

	rec, line := newTestLine()
	line.FailOpen(openErr)
	link, err := New(line, WithSleep(rec.sleep))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := link.Begin(); !errors.Is(err, openErr) {
		t.Errorf("Expected wrapped open error, got %v", err)
	}

	rec, line = newTestLine()
	link = startLink(t, line, rec)
	if err := link.Begin(); err != ErrAlreadyStarted {
		t.Errorf("Expected ErrAlreadyStarted, got %v", err)
	}
}

func TestEnd(t *testing.T) {
	rec, line := newTestLine()
	link := startLink(t, line, rec)

	if err := link.End(); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if line.IsOpen() {
		t.Error("Line still open after End")
	}
	if line.Notifying() {
		t.Error("CTS notification still installed after End")
	}
	if err := link.End(); err != ErrNotStarted {
		t.Errorf("Expected ErrNotStarted, got %v", err)
	}
}

func TestRTSFollowsOccupancy(t *testing.T) {
	rec, line := newTestLine()
	link := startLink(t, line, rec, WithHighWaterMark(4))

	line.Feed("abcdef")

	// 5 left: above the mark
	if _, ok := link.PollByte(); !ok {
		t.Fatal("PollByte returned nothing")
	}
	if line.RTS() {
		t.Error("RTS still asserted at occupancy 5 with high water 4")
	}

	// 4 left: at the mark, still deasserted
	link.PollByte()
	if line.RTS() {
		t.Error("RTS asserted at occupancy equal to high water")
	}

	// 3 left: below the mark
	link.PollByte()
	if !line.RTS() {
		t.Error("RTS not reasserted below high water")
	}
	if !link.Signals().RTS {
		t.Error("RTS flag not set")
	}
}

func TestRTSWrittenOnlyOnChange(t *testing.T) {
	rec, line := newTestLine()
	link := startLink(t, line, rec)

	before := len(line.RTSHistory())
	for i := 0; i < 10; i++ {
		link.PollByte()
	}
	line.Feed("abc")
	for i := 0; i < 3; i++ {
		link.PollByte()
	}

	if after := len(line.RTSHistory()); after != before {
		t.Errorf("RTS written %d times without a level change", after-before)
	}
}

func TestRTSWriteFailureRetried(t *testing.T) {
	rec, line := newTestLine()
	link := startLink(t, line, rec, WithHighWaterMark(4))

	line.Feed("abcdef")
	line.FailRTS(errors.New("ioctl failed"))
	link.PollByte()
	if !link.Signals().RTS {
		t.Error("RTS flag changed although the pin write failed")
	}

	line.FailRTS(nil)
	link.PollByte()
	if line.RTS() || link.Signals().RTS {
		t.Error("RTS not deasserted once the pin write succeeded")
	}
}

func TestCTSEdgesGateTransmitter(t *testing.T) {
	rec, line := newTestLine()
	link := startLink(t, line, rec)

	line.SetCTS(false)
	if link.Signals().TxEnabled || line.TransmitEnabled() {
		t.Fatal("Transmit path still enabled after CTS deasserted")
	}

	if !link.SendByte('A') || !link.SendByte('T') {
		t.Fatal("SendByte failed with room in the queue")
	}
	if line.Pending() != 2 || line.Written() != "" {
		t.Fatalf("Bytes left the queue while CTS deasserted: pending %d, written %q",
			line.Pending(), line.Written())
	}

	line.SetCTS(true)
	sig := link.Signals()
	if !sig.CTS || !sig.TxEnabled {
		t.Errorf("Transmit path not re-enabled: %+v", sig)
	}
	if line.Pending() != 0 || line.Written() != "AT" {
		t.Errorf("Pending data not sent after CTS asserted: pending %d, written %q",
			line.Pending(), line.Written())
	}
}

// TestCTSRiseDuringBeginOpensTransmitter covers the modem asserting CTS
// between Begin sampling it and the handler being installed.
func TestCTSRiseDuringBeginOpensTransmitter(t *testing.T) {
	rec := &sleepRecorder{}
	line := sequanstest.NewLine()
	line.OnCTSRead(func() {
		line.OnCTSRead(nil)
		line.SetCTS(true)
	})

	link := startLink(t, line, rec)

	sig := link.Signals()
	if !sig.CTS || !sig.TxEnabled || !line.TransmitEnabled() {
		t.Fatalf("Transmit path closed after CTS rose during Begin: %+v", sig)
	}
	if !link.WriteCommand("AT") {
		t.Fatal("WriteCommand failed")
	}
	if line.Written() != "AT\r" {
		t.Errorf("Written = %q, want %q", line.Written(), "AT\r")
	}
}

func TestTxEnabledMeansGateOpen(t *testing.T) {
	rec, line := newTestLine()
	link := startLink(t, line, rec)

	line.SetCTS(false)
	line.SetCTS(true)

	sig := link.Signals()
	if sig.Pending != 0 || !sig.TxEnabled || !line.TransmitEnabled() {
		t.Errorf("Expected an open gate with nothing pending, got %+v", sig)
	}
}

func TestSetRetryConfiguration(t *testing.T) {
	rec, line := newTestLine()
	link := startLink(t, line, rec)

	link.SetRetryConfiguration(2, time.Millisecond)
	if n, d := link.RetryConfiguration(); n != 2 || d != time.Millisecond {
		t.Errorf("RetryConfiguration() = %d, %v", n, d)
	}

	buf := make([]byte, 16)
	if result := link.ReadResponse(buf); result != ResponseTimeout {
		t.Fatalf("Expected timeout, got %v", result)
	}
	if rec.calls != 2 || rec.total != 2*time.Millisecond {
		t.Errorf("Expected 2 sleeps totalling 2ms, got %d totalling %v", rec.calls, rec.total)
	}

	link.SetRetryConfiguration(0, -time.Second)
	if n, d := link.RetryConfiguration(); n != 1 || d != 0 {
		t.Errorf("Expected clamped configuration 1, 0; got %d, %v", n, d)
	}
}

func TestSetRetryConfigurationClampsLargeBudget(t *testing.T) {
	rec, line := newTestLine()
	link := startLink(t, line, rec)

	link.SetRetryConfiguration(int(^uint(0)>>1), time.Millisecond)
	if n, _ := link.RetryConfiguration(); n != MaxRetries {
		t.Fatalf("Expected retries clamped to %d, got %d", MaxRetries, n)
	}

	// The response shows up after a few empty polls
	rec.hook = func(call int) {
		if call == 3 {
			line.Feed("OK\r\n")
		}
	}
	buf := make([]byte, 16)
	if result := link.ReadResponse(buf); result != ResponseOK {
		t.Fatalf("Expected OK after 3 empty polls, got %v", result)
	}
	if rec.calls != 3 {
		t.Errorf("Expected 3 sleeps, got %d", rec.calls)
	}
}

func TestResetModem(t *testing.T) {
	rec, line := newTestLine()
	link, err := New(line, WithSleep(rec.sleep))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := link.ResetModem(time.Second); err != ErrNotStarted {
		t.Errorf("Expected ErrNotStarted, got %v", err)
	}

	link = startLink(t, line, rec)
	if err := link.ResetModem(150 * time.Millisecond); err != nil {
		t.Fatalf("ResetModem failed: %v", err)
	}

	want := []bool{false, true, false}
	got := line.ResetHistory()
	if len(got) != len(want) {
		t.Fatalf("Reset history %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Reset history %v, want %v", got, want)
		}
	}
	if rec.total != 150*time.Millisecond {
		t.Errorf("Expected reset held 150ms, got %v", rec.total)
	}
}
