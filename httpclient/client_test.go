package httpclient

import (
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbin/go-sequans"
	"github.com/allbin/go-sequans/sequanstest"
)

type fakeClock struct {
	t     time.Time
	slept time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(d time.Duration) {
	c.t = c.t.Add(d)
	c.slept += d
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *sequanstest.Line, *fakeClock) {
	t.Helper()

	line := sequanstest.NewLine()
	line.SetCapacity(4096)
	line.SetTxCapacity(2048)
	line.SetCTS(true)

	link, err := sequans.New(line, sequans.WithSleep(func(time.Duration) {}))
	require.NoError(t, err)
	require.NoError(t, link.Begin())
	t.Cleanup(func() { link.End() })

	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	opts = append([]Option{
		WithClock(clock.now, clock.sleep),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)

	return New(link, opts...), line, clock
}

func ringLine(status, size int, contentType string) string {
	return "\r\n+SQNHTTPRING: 0," + strconv.Itoa(status) + ",\"" + contentType + "\"," + strconv.Itoa(size) + "\r\n"
}

func TestConfigure(t *testing.T) {
	client, line, _ := newTestClient(t)
	line.Reply(`AT+SQNHTTPCFG=0,"example.com",443,0,"","",1,120,1,1`, "\r\nOK\r\n")
	line.Reply(`AT+SQNHTTPCFG=0,"example.com",80,0,"","",0,120,1,1`, "\r\nOK\r\n")

	require.NoError(t, client.Configure("example.com", 443, true))
	require.NoError(t, client.Configure("example.com", 80, false))

	assert.Equal(t, []string{
		`AT+SQNHTTPCFG=0,"example.com",443,0,"","",1,120,1,1`,
		`AT+SQNHTTPCFG=0,"example.com",80,0,"","",0,120,1,1`,
	}, line.Commands())
}

func TestConfigureModemError(t *testing.T) {
	client, line, _ := newTestClient(t)
	line.Respond(func(string) string { return "\r\nERROR\r\n" })

	err := client.Configure("example.com", 443, true)
	assert.ErrorIs(t, err, sequans.ErrModemError)
}

func TestConfigureHostTooLong(t *testing.T) {
	client, line, _ := newTestClient(t)

	err := client.Configure(strings.Repeat("a", MaxHostLength+1), 443, true)
	assert.ErrorIs(t, err, ErrHostTooLong)
	assert.Empty(t, line.Commands())
}

func TestQueryMethods(t *testing.T) {
	tests := []struct {
		name    string
		call    func(*Client) (Response, error)
		command string
		ring    string
		want    Response
	}{
		{
			name:    "get",
			call:    func(c *Client) (Response, error) { return c.Get("/status") },
			command: `AT+SQNHTTPQRY=0,0,"/status"`,
			ring:    ringLine(200, 35, "application/json"),
			want:    Response{StatusCode: 200, DataSize: 35},
		},
		{
			name:    "head",
			call:    func(c *Client) (Response, error) { return c.Head("/status") },
			command: `AT+SQNHTTPQRY=0,1,"/status"`,
			ring:    ringLine(200, 0, ""),
			want:    Response{StatusCode: 200},
		},
		{
			name:    "delete",
			call:    func(c *Client) (Response, error) { return c.Delete("/items/7") },
			command: `AT+SQNHTTPQRY=0,2,"/items/7"`,
			ring:    ringLine(404, 9, "text/plain"),
			want:    Response{StatusCode: 404, DataSize: 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, line, _ := newTestClient(t)
			line.Reply(tt.command, "\r\nOK\r\n"+tt.ring)
			line.Reply("AT", "\r\nOK\r\n")

			resp, err := tt.call(client)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp)
			assert.Equal(t, []string{tt.command, "AT"}, line.Commands())
		})
	}
}

func TestSendMethods(t *testing.T) {
	payload := []byte(`{"temp":21}`)

	tests := []struct {
		name    string
		call    func(*Client) (Response, error)
		command string
	}{
		{"post", func(c *Client) (Response, error) { return c.Post("/data", payload) }, `AT+SQNHTTPSND=0,0,"/data",11`},
		{"put", func(c *Client) (Response, error) { return c.Put("/data", payload) }, `AT+SQNHTTPSND=0,1,"/data",11`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, line, _ := newTestClient(t)
			line.Reply(tt.command, "> ")
			line.Reply(string(payload), "\r\nOK\r\n"+ringLine(201, 0, ""))
			line.Reply("AT", "\r\nOK\r\n")

			resp, err := tt.call(client)
			require.NoError(t, err)
			assert.Equal(t, Response{StatusCode: 201}, resp)
			assert.Equal(t, tt.command+"\r"+string(payload)+"\rAT\r", line.Written())
		})
	}
}

func TestSendRejected(t *testing.T) {
	client, line, _ := newTestClient(t)
	line.Reply(`AT+SQNHTTPSND=0,0,"/data",2`, "> ")
	line.Reply("{}", "\r\nERROR\r\n")

	_, err := client.Post("/data", []byte("{}"))
	assert.ErrorIs(t, err, sequans.ErrModemError)
	assert.NotContains(t, line.Commands(), "AT")
}

func TestRequestDrainsStaleResponses(t *testing.T) {
	client, line, _ := newTestClient(t)
	line.Feed("\r\n+CEREG: 5\r\n\r\nOK\r\n")
	line.Reply(`AT+SQNHTTPQRY=0,0,"/"`, "\r\nOK\r\n"+ringLine(200, 12, "text/html"))
	line.Reply("AT", "\r\nOK\r\n")

	resp, err := client.Get("/")
	require.NoError(t, err)
	assert.Equal(t, Response{StatusCode: 200, DataSize: 12}, resp)
}

func TestRequestTimesOutWithoutRing(t *testing.T) {
	client, line, clock := newTestClient(t, WithResponseTimeout(100*time.Millisecond))
	line.Reply(`AT+SQNHTTPQRY=0,0,"/slow"`, "\r\nOK\r\n")

	_, err := client.Get("/slow")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Greater(t, clock.slept, 100*time.Millisecond)
	assert.NotContains(t, line.Commands(), "AT")
}

func TestMalformedRing(t *testing.T) {
	client, line, _ := newTestClient(t)
	line.Reply(`AT+SQNHTTPQRY=0,0,"/"`, "\r\nOK\r\n\r\n+SQNHTTPRING: 0\r\n")
	line.Reply("AT", "\r\nOK\r\n")

	_, err := client.Get("/")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestReadBody(t *testing.T) {
	client, line, _ := newTestClient(t)
	line.Reply("AT+SQNHTTPRCV=0,64", "\r\n<<<hello world\r\nOK\r\n")

	buf := make([]byte, 64)
	n, err := client.ReadBody(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(buf[:n]))
}

func TestReadBodyFullChunk(t *testing.T) {
	client, line, _ := newTestClient(t)
	body := strings.Repeat("x", 100)
	line.Reply("AT+SQNHTTPRCV=0,100", "\r\n<<<"+body+"\r\nOK\r\n")

	buf := make([]byte, 100)
	n, err := client.ReadBody(buf)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, body, string(buf))
}

func TestReadBodyBufferSize(t *testing.T) {
	client, line, _ := newTestClient(t)

	for _, size := range []int{0, BodyBufferMinSize - 1, BodyBufferMaxSize + 1} {
		_, err := client.ReadBody(make([]byte, size))
		assert.ErrorIs(t, err, ErrBodyBufferSize, "size %d", size)
	}
	assert.Empty(t, line.Commands())
}

func TestReadBodyModemError(t *testing.T) {
	client, line, _ := newTestClient(t)
	line.Reply("AT+SQNHTTPRCV=0,64", "\r\n<<<\r\nERROR\r\n")

	_, err := client.ReadBody(make([]byte, 64))
	assert.ErrorIs(t, err, sequans.ErrModemError)
}

func TestReadBodyNoStartBytes(t *testing.T) {
	client, line, _ := newTestClient(t, WithResponseTimeout(50*time.Millisecond))
	line.Reply("AT+SQNHTTPRCV=0,64", "\r\nERROR\r\n")

	_, err := client.ReadBody(make([]byte, 64))
	assert.ErrorIs(t, err, ErrTimeout)
}
