package sequans

import "errors"

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid link configuration")
	ErrLineClosed       = errors.New("line is closed")
	ErrTxQueueFull      = errors.New("transmit queue full")

	// Link lifecycle errors
	ErrNotStarted     = errors.New("link not started")
	ErrAlreadyStarted = errors.New("link already started")

	// Response outcomes, for callers that prefer errors over ResponseResult
	ErrModemError      = errors.New("modem responded with ERROR")
	ErrResponseTimeout = errors.New("no response within retry budget")
	ErrBufferOverflow  = errors.New("response did not fit in buffer")
)
