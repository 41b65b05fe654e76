package sequans

import (
	"strings"
	"testing"
	"time"
)

func TestWriteCommandAppendsCarriageReturn(t *testing.T) {
	commands := []string{
		"AT",
		"AT+CGMR",
		`AT+SQNHTTPCFG=0,"example.com",443,0,"","",1,120,1,1`,
		"",
	}

	for _, command := range commands {
		rec, line := newTestLine()
		link := startLink(t, line, rec)

		if !link.WriteCommand(command) {
			t.Fatalf("WriteCommand(%q) failed", command)
		}

		written := line.Written()
		if written != command+"\r" {
			t.Errorf("Written %q, want %q", written, command+"\r")
		}
		if strings.Contains(written, "\n") {
			t.Errorf("Line feed written for %q", command)
		}
		link.End()
	}
}

func TestWriteBytes(t *testing.T) {
	rec, line := newTestLine()
	link := startLink(t, line, rec)

	payload := []byte{'{', '"', 'a', '"', ':', '1', '}', 0x00, 0xff}
	if !link.WriteBytes(payload) {
		t.Fatal("WriteBytes failed")
	}
	if got := line.Written(); got != string(payload)+"\r" {
		t.Errorf("Written %q, want %q", got, string(payload)+"\r")
	}
}

func TestSendByteGivesUpAfterRetries(t *testing.T) {
	rec, line := newTestLine()
	line.SetTxCapacity(2)
	link := startLink(t, line, rec, WithRetries(5), WithRetryDelay(10*time.Millisecond))

	line.SetCTS(false)
	if !link.SendByte('A') || !link.SendByte('B') {
		t.Fatal("SendByte failed with room in the queue")
	}

	if link.SendByte('C') {
		t.Fatal("SendByte succeeded with a full queue")
	}
	// N non-ready observations, with a sleep between each
	if rec.calls != 4 {
		t.Errorf("Expected 4 sleeps, got %d", rec.calls)
	}
	if line.Pending() != 2 {
		t.Errorf("Expected 2 pending bytes, got %d", line.Pending())
	}
}

func TestSendByteSucceedsWhenQueueDrains(t *testing.T) {
	rec, line := newTestLine()
	line.SetTxCapacity(1)
	link := startLink(t, line, rec)

	line.SetCTS(false)
	link.SendByte('A')

	// The modem frees the queue during the second wait
	rec.hook = func(call int) {
		if call == 2 {
			line.SetCTS(true)
		}
	}
	if !link.SendByte('B') {
		t.Fatal("SendByte failed although the queue drained")
	}
	if got := line.Written(); got != "AB" {
		t.Errorf("Written %q, want %q", got, "AB")
	}
}

func TestWriteCommandIsNotAtomic(t *testing.T) {
	rec, line := newTestLine()
	line.SetTxCapacity(3)
	link := startLink(t, line, rec)

	line.SetCTS(false)
	if link.WriteCommand("AT+CFUN=1") {
		t.Fatal("WriteCommand succeeded with a stalled transmitter")
	}

	// The first bytes stay queued and reach the modem once CTS returns
	line.SetCTS(true)
	if got := line.Written(); got != "AT+" {
		t.Errorf("Written %q, want truncated %q", got, "AT+")
	}
}

func TestPollByteNeverBlocks(t *testing.T) {
	rec, line := newTestLine()
	link := startLink(t, line, rec)

	if _, ok := link.PollByte(); ok {
		t.Error("PollByte returned a byte from an empty line")
	}
	if rec.calls != 0 {
		t.Errorf("PollByte slept %d times", rec.calls)
	}

	line.Feed("OK")
	for _, want := range []byte("OK") {
		got, ok := link.PollByte()
		if !ok || got != want {
			t.Errorf("PollByte() = %q, %v; want %q", got, ok, want)
		}
	}
}
