package httpclient

import "errors"

var (
	// ErrBodyBufferSize is returned by ReadBody when the buffer is outside
	// the range the modem accepts for one receive command.
	ErrBodyBufferSize = errors.New("body buffer size must be between 64 and 1500 bytes")

	// ErrHostTooLong is returned by Configure for host names longer than a
	// DNS name can be.
	ErrHostTooLong = errors.New("host name too long")

	// ErrWrite is returned when a command or payload could not be written
	// within the link's retry budget.
	ErrWrite = errors.New("failed to write to modem")

	// ErrTimeout is returned when the modem did not start answering within
	// the response timeout.
	ErrTimeout = errors.New("timed out waiting for modem")

	// ErrMalformedResponse is returned when the response line carries no
	// status code.
	ErrMalformedResponse = errors.New("malformed HTTP response line")
)
