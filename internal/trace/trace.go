// Package trace renders modem traffic as timestamped TX/RX lines.
package trace

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Status is the state of a transmitted chunk
type Status int

const (
	StatusNone Status = iota
	// StatusQueued bytes sit in the transmit queue
	StatusQueued
	// StatusBlocked bytes are held back by a deasserted CTS
	StatusBlocked
	StatusWritten
	StatusFailed
)

// Event is one chunk of traffic
type Event struct {
	Timestamp time.Time
	Data      []byte
	IsTX      bool
	Status    Status
}

// Mode selects the renderings shown for each event
type Mode struct {
	ShowHex   bool
	ShowASCII bool
}

// Formatter renders events. A zero Mode shows byte counts only.
type Formatter struct {
	mode Mode
}

func NewFormatter(showHex, showASCII bool) *Formatter {
	return &Formatter{mode: Mode{ShowHex: showHex, ShowASCII: showASCII}}
}

func (f *Formatter) Mode() Mode {
	return f.mode
}

func (f *Formatter) indicator(ev Event) string {
	if !ev.IsTX {
		return lipgloss.NewStyle().Foreground(Sky).Bold(true).Render("↙ RX")
	}

	color, text := Peach, "TX"
	switch ev.Status {
	case StatusQueued:
		color, text = Yellow, "TX ○"
	case StatusBlocked:
		color, text = Blue, "TX ⏸"
	case StatusWritten:
		color, text = Green, "TX ✓"
	case StatusFailed:
		color, text = Red, "TX ✗"
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render("↗ " + text)
}

// Format renders one event on a single line
func (f *Formatter) Format(ev Event) string {
	var parts []string

	if f.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", ev.Data))
	}
	if f.mode.ShowASCII {
		parts = append(parts, "ASCII: "+ASCII(ev.Data))
	}
	if !f.mode.ShowHex && !f.mode.ShowASCII {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(ev.Data)))
	}

	timestamp := lipgloss.NewStyle().
		Foreground(Subtext0).
		Render("[" + ev.Timestamp.Format("15:04:05.000") + "]")

	return fmt.Sprintf("%s %s: %s", timestamp, f.indicator(ev), strings.Join(parts, "  "))
}

// ASCII replaces everything outside printable ASCII with dots, so no
// control sequence reaches the terminal
func ASCII(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// Writer prints formatted events to an output
type Writer struct {
	out io.Writer
	f   *Formatter
	now func() time.Time
}

func NewWriter(out io.Writer, f *Formatter) *Writer {
	return &Writer{out: out, f: f, now: time.Now}
}

// TX records a transmitted chunk
func (w *Writer) TX(data []byte, status Status) {
	w.write(Event{Data: data, IsTX: true, Status: status})
}

// RX records a received chunk. Empty chunks are skipped.
func (w *Writer) RX(data []byte) {
	if len(data) == 0 {
		return
	}
	w.write(Event{Data: data})
}

func (w *Writer) write(ev Event) {
	ev.Timestamp = w.now()
	fmt.Fprintln(w.out, w.f.Format(ev))
}
