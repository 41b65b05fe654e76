// Package httpclient drives the HTTP client built into the Sequans modem.
//
// The modem performs the HTTP exchange itself; this package formats the
// AT+SQNHTTP* commands, waits for the unsolicited +SQNHTTPRING line that
// announces the result, and reads the response body in chunks. Only
// profile 0 is used.
package httpclient

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/allbin/go-sequans"
	"github.com/allbin/go-sequans/internal/deadline"
)

const (
	configureCommand = `AT+SQNHTTPCFG=0,"%s",%d,0,"","",%d,120,1,1`
	sendCommand      = `AT+SQNHTTPSND=0,%d,"%s",%d`
	receiveCommand   = `AT+SQNHTTPRCV=0,%d`
	queryCommand     = `AT+SQNHTTPQRY=0,%d,"%s"`

	// MaxHostLength is the longest host name Configure accepts.
	MaxHostLength = 127

	// BodyBufferMinSize and BodyBufferMaxSize bound one ReadBody call.
	BodyBufferMinSize = 64
	BodyBufferMaxSize = 1500

	receiveStartCharacter = '<'
	receiveStartBytes     = 3

	responseMaxLength = 128
	statusCodeIndex   = 2
	dataSizeIndex     = 4

	// DefaultResponseTimeout bounds the wait for the modem to start answering
	// a request.
	DefaultResponseTimeout = 30 * time.Second
	// DefaultPollInterval is the sleep between two checks for received data.
	DefaultPollInterval = 10 * time.Millisecond
)

// HTTP methods, as numbered by the send and query commands
const (
	methodPost = 0
	methodPut  = 1

	methodGet    = 0
	methodHead   = 1
	methodDelete = 2
)

// Terminator after the body, since AT+SQNHTTPRCV ends with an OK line
var bodyTrailer = []byte("\r\nOK\r\n")

// Transport is the part of a sequans.Link the client needs.
type Transport interface {
	WriteCommand(command string) bool
	WriteBytes(data []byte) bool
	ReadResponse(buf []byte) sequans.ResponseResult
	FlushResponse() sequans.ResponseResult
	Drain() int
	IsRxReady() bool
	PollByte() (byte, bool)
}

var _ Transport = (*sequans.Link)(nil)

// Response is what the modem reports about a finished request. DataSize is
// the number of body bytes waiting to be read with ReadBody.
type Response struct {
	StatusCode int
	DataSize   int
}

// Client issues HTTP requests through the modem.
type Client struct {
	link            Transport
	logger          *slog.Logger
	responseTimeout time.Duration
	pollInterval    time.Duration
	now             func() time.Time
	sleep           func(time.Duration)
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger used for per-request debug output
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithResponseTimeout bounds how long a request waits for the modem
func WithResponseTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.responseTimeout = d
		}
	}
}

// WithPollInterval sets the sleep between checks for received data
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.pollInterval = d
		}
	}
}

// WithClock replaces time.Now and time.Sleep for the response waits
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// New creates a Client over link.
func New(link Transport, opts ...Option) *Client {
	c := &Client{
		link:            link,
		logger:          slog.Default(),
		responseTimeout: DefaultResponseTimeout,
		pollInterval:    DefaultPollInterval,
		now:             time.Now,
		sleep:           time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configure points profile 0 at host:port, optionally over TLS using
// security profile 1.
func (c *Client) Configure(host string, port uint16, tls bool) error {
	if len(host) > MaxHostLength {
		return ErrHostTooLong
	}

	tlsFlag := 0
	if tls {
		tlsFlag = 1
	}

	command := fmt.Sprintf(configureCommand, host, port, tlsFlag)
	c.logger.Debug("Configuring HTTP profile", "host", host, "port", port, "tls", tls)

	if !c.link.WriteCommand(command) {
		return fmt.Errorf("configure: %w", ErrWrite)
	}
	if result := c.link.FlushResponse(); result != sequans.ResponseOK {
		return fmt.Errorf("configure: %w", result.Err())
	}
	return nil
}

// Post sends data to endpoint with POST
func (c *Client) Post(endpoint string, data []byte) (Response, error) {
	return c.send(endpoint, data, methodPost)
}

// Put sends data to endpoint with PUT
func (c *Client) Put(endpoint string, data []byte) (Response, error) {
	return c.send(endpoint, data, methodPut)
}

// Get requests endpoint with GET
func (c *Client) Get(endpoint string) (Response, error) {
	return c.query(endpoint, methodGet)
}

// Head requests endpoint with HEAD
func (c *Client) Head(endpoint string) (Response, error) {
	return c.query(endpoint, methodHead)
}

// Delete requests endpoint with DELETE
func (c *Client) Delete(endpoint string) (Response, error) {
	return c.query(endpoint, methodDelete)
}

func (c *Client) send(endpoint string, data []byte, method int) (Response, error) {
	// Clear the receive buffer to be ready for the response
	c.link.Drain()

	command := fmt.Sprintf(sendCommand, method, endpoint, len(data))
	c.logger.Debug("Sending HTTP request", "method", method, "endpoint", endpoint, "size", len(data))

	if !c.link.WriteCommand(command) {
		return Response{}, fmt.Errorf("send: %w", ErrWrite)
	}
	if !c.link.WriteBytes(data) {
		return Response{}, fmt.Errorf("send payload: %w", ErrWrite)
	}
	if result := c.link.FlushResponse(); result != sequans.ResponseOK {
		return Response{}, fmt.Errorf("send: %w", result.Err())
	}

	return c.awaitResponse()
}

func (c *Client) query(endpoint string, method int) (Response, error) {
	c.link.Drain()

	command := fmt.Sprintf(queryCommand, method, endpoint)
	c.logger.Debug("Querying HTTP endpoint", "method", method, "endpoint", endpoint)

	if !c.link.WriteCommand(command) {
		return Response{}, fmt.Errorf("query: %w", ErrWrite)
	}
	if result := c.link.FlushResponse(); result != sequans.ResponseOK {
		return Response{}, fmt.Errorf("query: %w", result.Err())
	}

	return c.awaitResponse()
}

// awaitResponse waits for the +SQNHTTPRING line and parses it.
//
// The line is unsolicited and has no terminator of its own, so once data
// starts arriving a bare AT is sent; its OK ends the framed read.
func (c *Client) awaitResponse() (Response, error) {
	if err := c.waitForData(); err != nil {
		return Response{}, err
	}

	if !c.link.WriteCommand("AT") {
		return Response{}, fmt.Errorf("response: %w", ErrWrite)
	}

	buf := make([]byte, responseMaxLength)
	if result := c.link.ReadResponse(buf); result != sequans.ResponseOK {
		return Response{}, fmt.Errorf("response: %w", result.Err())
	}

	return parseResponse(buf)
}

func parseResponse(buf []byte) (Response, error) {
	status, ok := sequans.FieldInt(buf, statusCodeIndex)
	if !ok {
		return Response{}, fmt.Errorf("%w: %q", ErrMalformedResponse, trimNul(buf))
	}

	// The size is optional, a HEAD reply may not carry one
	size, _ := sequans.FieldInt(buf, dataSizeIndex)

	return Response{StatusCode: status, DataSize: size}, nil
}

// ReadBody reads the next chunk of the response body into buf and returns
// its length. buf must hold between 64 and 1500 bytes; bodies larger than
// that are read with repeated calls.
func (c *Client) ReadBody(buf []byte) (int, error) {
	if len(buf) < BodyBufferMinSize || len(buf) > BodyBufferMaxSize {
		return 0, ErrBodyBufferSize
	}

	c.link.Drain()

	command := fmt.Sprintf(receiveCommand, len(buf))
	c.logger.Debug("Reading HTTP body", "size", len(buf))

	if !c.link.WriteCommand(command) {
		return 0, fmt.Errorf("receive: %w", ErrWrite)
	}

	if err := c.waitForStartBytes(); err != nil {
		return 0, err
	}

	// Room for the full chunk plus the CRLF and OK line that close it
	response := make([]byte, len(buf)+len(bodyTrailer))
	if result := c.link.ReadResponse(response); result != sequans.ResponseOK {
		return 0, fmt.Errorf("receive: %w", result.Err())
	}

	body := trimNul(response)
	body = bytes.TrimSuffix(body, []byte("\r\n"))

	return copy(buf, body), nil
}

// waitForData blocks until a received byte is waiting or the response
// timeout passes
func (c *Client) waitForData() error {
	timer := deadline.NewWithClock(c.responseTimeout, c.now)
	for !c.link.IsRxReady() {
		if timer.HasTimedOut() {
			return ErrTimeout
		}
		c.sleep(c.pollInterval)
	}
	return nil
}

// waitForStartBytes consumes bytes until three '<' have been seen
func (c *Client) waitForStartBytes() error {
	timer := deadline.NewWithClock(c.responseTimeout, c.now)

	remaining := receiveStartBytes
	for remaining > 0 {
		b, ok := c.link.PollByte()
		if !ok {
			if timer.HasTimedOut() {
				return fmt.Errorf("receive: %w", ErrTimeout)
			}
			c.sleep(c.pollInterval)
			continue
		}
		if b == receiveStartCharacter {
			remaining--
		}
	}
	return nil
}

func trimNul(buf []byte) []byte {
	if end := bytes.IndexByte(buf, 0); end >= 0 {
		return buf[:end]
	}
	return buf
}
