package sequans

import "bytes"

const (
	okTermination    = "OK\r\n"
	errorTermination = "ERROR\r\n"

	// MinResponseBuffer is the smallest buffer ReadResponse accepts; it must
	// at least hold the OK terminator.
	MinResponseBuffer = len(okTermination)

	// maxDrainRounds bounds Drain against a modem that never goes quiet.
	maxDrainRounds = 64
)

// ReadResponse fills buf with the modem's response until an "OK" or "ERROR"
// line terminates it.
//
// Each poll that finds no data counts against the retry budget and sleeps the
// retry delay without using a slot of buf; any received byte resets the
// count. Once the last two bytes are CRLF, the bytes read so far are checked
// for "OK\r\n" and then "ERROR\r\n". On a match every byte of buf from the
// start of the terminator onwards is zeroed, leaving the response
// NUL-terminated.
//
// ResponseBufferOverflow means buf filled up before a terminator arrived; the
// response is unusable and the caller should retry with a larger buffer.
func (l *Link) ReadResponse(buf []byte) ResponseResult {
	if len(buf) < MinResponseBuffer {
		return ResponseBufferOverflow
	}

	retries, delay := l.retryBudget()
	attempts := 0

	for i := 0; i < len(buf); {
		b, ok := l.nextByte()
		if !ok {
			attempts++
			l.sleep(delay)
			if attempts >= retries {
				return ResponseTimeout
			}
			continue
		}
		attempts = 0
		buf[i] = b

		if i >= 1 && buf[i-1] == carriageReturn && b == lineFeed {
			if result, at, found := findTermination(buf[:i+1]); found {
				clear(buf[at:])
				return result
			}
		}
		i++
	}

	// No terminator within the space given. Caller should grow the buffer.
	return ResponseBufferOverflow
}

// findTermination looks for a terminator ending at the last byte of data.
//
// Every CRLF is checked as it arrives, so a terminator earlier in data would
// already have ended the read; only a suffix can match. OK is checked before
// ERROR.
func findTermination(data []byte) (ResponseResult, int, bool) {
	if bytes.HasSuffix(data, []byte(okTermination)) {
		return ResponseOK, len(data) - len(okTermination), true
	}
	if bytes.HasSuffix(data, []byte(errorTermination)) {
		return ResponseError, len(data) - len(errorTermination), true
	}
	return 0, 0, false
}

// FlushResponse consumes and discards a response up to its "OK" or "ERROR"
// terminator without needing a caller buffer. A window just large enough for
// "ERROR\r\n" slides over the incoming bytes. It reports ResponseOK,
// ResponseError or ResponseTimeout, never ResponseBufferOverflow.
func (l *Link) FlushResponse() ResponseResult {
	var window [len(errorTermination)]byte
	for i := range window {
		window[i] = ' '
	}
	last := len(window) - 1

	retries, delay := l.retryBudget()
	attempts := 0

	for attempts < retries {
		b, ok := l.nextByte()
		if !ok {
			attempts++
			l.sleep(delay)
			continue
		}
		attempts = 0

		copy(window[:last], window[1:])
		window[last] = b

		if window[last-1] == carriageReturn && window[last] == lineFeed {
			if bytes.Contains(window[:], []byte(okTermination)) {
				return ResponseOK
			}
			if bytes.Contains(window[:], []byte(errorTermination)) {
				return ResponseError
			}
		}
	}

	return ResponseTimeout
}

// nextByte polls only when data is waiting, so an empty poll does not
// touch flow control.
func (l *Link) nextByte() (byte, bool) {
	if !l.IsRxReady() {
		return 0, false
	}
	return l.PollByte()
}

// Drain flushes responses for as long as received data is waiting, so the
// next command starts with an empty receive buffer. It returns the number of
// flushes performed.
func (l *Link) Drain() int {
	rounds := 0
	for l.IsRxReady() && rounds < maxDrainRounds {
		l.FlushResponse()
		rounds++
	}
	return rounds
}

// Command writes command and reads its response into buf. A command that
// could not be written reports ResponseTimeout, since the transmitter never
// became ready within the retry budget.
func (l *Link) Command(command string, buf []byte) ResponseResult {
	if !l.WriteCommand(command) {
		return ResponseTimeout
	}
	return l.ReadResponse(buf)
}
