package sequans

const (
	carriageReturn = '\r'
	lineFeed       = '\n'
)

// SendByte queues one byte for transmission. It polls the transmit queue up
// to the retry budget, sleeping the retry delay between polls, and reports
// false if the queue never had room.
func (l *Link) SendByte(b byte) bool {
	retries, delay := l.retryBudget()

	attempts := 0
	for !l.IsTxReady() {
		attempts++
		if attempts >= retries {
			return false
		}
		l.sleep(delay)
	}

	return l.line.Transmit(b) == nil
}

// WriteCommand sends command followed by a single carriage return.
//
// The write is not atomic: on failure the bytes already queued stay queued
// and the modem sees a truncated command.
func (l *Link) WriteCommand(command string) bool {
	for i := 0; i < len(command); i++ {
		if !l.SendByte(command[i]) {
			return false
		}
	}
	return l.SendByte(carriageReturn)
}

// WriteBytes sends a raw payload followed by a single carriage return. It
// has the same partial-write behaviour as WriteCommand.
func (l *Link) WriteBytes(data []byte) bool {
	for _, b := range data {
		if !l.SendByte(b) {
			return false
		}
	}
	return l.SendByte(carriageReturn)
}

// PollByte returns the next received byte, if any, recomputing flow control
// against the occupancy left behind. It never blocks.
func (l *Link) PollByte() (byte, bool) {
	b, ok := l.line.Receive()
	l.flowControlUpdate()

	return b, ok
}
