package sequans

import (
	"math"
	"time"
)

const (
	// DefaultBaudRate is the rate the Sequans module ships with.
	DefaultBaudRate = 115200
	// DefaultRetries is the retry budget of every blocking transport call.
	DefaultRetries = 5
	// DefaultRetryDelay is the sleep between two retries.
	DefaultRetryDelay = 10 * time.Millisecond
	// MaxRetries is the largest retry budget a Link holds.
	MaxRetries = math.MaxInt32
)

// Config holds the configuration for a Link
type Config struct {
	BaudRate   int
	Retries    int
	RetryDelay time.Duration
	// HighWaterMark is the receive occupancy at which RTS is deasserted.
	// Zero means two bytes below the line's receive capacity.
	HighWaterMark int

	sleep func(time.Duration)
}

// Option is a functional option for configuring a Link
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaudRate:   DefaultBaudRate,
		Retries:    DefaultRetries,
		RetryDelay: DefaultRetryDelay,
		sleep:      time.Sleep,
	}
}

// supportedBaudRates lists the rates every Line implementation accepts.
var supportedBaudRates = map[int]struct{}{
	9600: {}, 19200: {}, 38400: {}, 57600: {}, 115200: {},
	230400: {}, 460800: {}, 921600: {},
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, ok := supportedBaudRates[rate]; !ok {
			return ErrInvalidBaudRate
		}
		c.BaudRate = rate
		return nil
	}
}

// WithRetries sets how many times a blocking call polls before giving up.
// n must be between 1 and MaxRetries.
func WithRetries(n int) Option {
	return func(c *Config) error {
		if n < 1 || n > MaxRetries {
			return ErrInvalidConfig
		}
		c.Retries = n
		return nil
	}
}

// WithRetryDelay sets the sleep between retries
func WithRetryDelay(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return ErrInvalidConfig
		}
		c.RetryDelay = d
		return nil
	}
}

// WithHighWaterMark sets the receive occupancy at which RTS is deasserted
func WithHighWaterMark(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return ErrInvalidConfig
		}
		c.HighWaterMark = n
		return nil
	}
}

// WithSleep replaces time.Sleep for the retry loops. Tests use it to run
// against simulated time.
func WithSleep(fn func(time.Duration)) Option {
	return func(c *Config) error {
		if fn == nil {
			return ErrInvalidConfig
		}
		c.sleep = fn
		return nil
	}
}
