/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/allbin/go-sequans/httpclient"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// httpCmd represents the http command
var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Make HTTP requests through the modem's HTTP client",
	Long: `Make HTTP requests through the HTTP client built into the modem.

The modem resolves the host, opens the connection and performs the exchange
itself. atctl configures profile 0, sends the request, waits for the modem's
+SQNHTTPRING notification and reads the body back in chunks.

Examples:
  atctl http get /status --host example.com
  atctl http head / --host example.com --tls --http-port 443
  atctl http post /api/data --host example.com --body '{"temp":21}'
  cat payload.json | atctl http put /api/data --host example.com`,
}

var httpMethods = []struct {
	use     string
	short   string
	hasBody bool
	do      func(c *httpclient.Client, endpoint string, body []byte) (httpclient.Response, error)
}{
	{"get", "Send a GET request", false, func(c *httpclient.Client, endpoint string, _ []byte) (httpclient.Response, error) {
		return c.Get(endpoint)
	}},
	{"head", "Send a HEAD request", false, func(c *httpclient.Client, endpoint string, _ []byte) (httpclient.Response, error) {
		return c.Head(endpoint)
	}},
	{"delete", "Send a DELETE request", false, func(c *httpclient.Client, endpoint string, _ []byte) (httpclient.Response, error) {
		return c.Delete(endpoint)
	}},
	{"post", "Send a POST request", true, func(c *httpclient.Client, endpoint string, body []byte) (httpclient.Response, error) {
		return c.Post(endpoint, body)
	}},
	{"put", "Send a PUT request", true, func(c *httpclient.Client, endpoint string, body []byte) (httpclient.Response, error) {
		return c.Put(endpoint, body)
	}},
}

func init() {
	rootCmd.AddCommand(httpCmd)

	flags := httpCmd.PersistentFlags()
	flags.String("host", "", "Server host name (required)")
	flags.Uint16("http-port", 80, "Server port")
	flags.Bool("tls", false, "Use TLS")
	flags.Duration("response-timeout", httpclient.DefaultResponseTimeout, "How long to wait for the modem to answer")
	flags.Int("chunk", httpclient.BodyBufferMaxSize, "Body chunk size per read")
	flags.Bool("no-body", false, "Do not read the response body")

	for _, name := range []string{"host", "http-port", "tls", "response-timeout"} {
		if err := viper.BindPFlag("http."+name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	for _, m := range httpMethods {
		m := m
		sub := &cobra.Command{
			Use:   m.use + " <endpoint>",
			Short: m.short,
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				var body []byte
				if m.hasBody {
					var err error
					body, err = requestBody(cmd)
					if err != nil {
						fmt.Fprintf(os.Stderr, "Error: %v\n", err)
						os.Exit(1)
					}
				}

				readBody := m.use != "head"
				if noBody, _ := cmd.Flags().GetBool("no-body"); noBody {
					readBody = false
				}
				chunk, _ := cmd.Flags().GetInt("chunk")

				if err := runHTTP(args[0], body, m.do, readBody, chunk); err != nil {
					fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("✗"), err)
					os.Exit(1)
				}
			},
		}
		if m.hasBody {
			sub.Flags().String("body", "", "Request body (default: read from stdin)")
		}
		httpCmd.AddCommand(sub)
	}
}

// requestBody returns --body, or stdin when it is not a terminal
func requestBody(cmd *cobra.Command) ([]byte, error) {
	if cmd.Flags().Changed("body") {
		body, _ := cmd.Flags().GetString("body")
		return []byte(body), nil
	}

	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return nil, errors.New("no request body: use --body or pipe data on stdin")
	}
	return io.ReadAll(os.Stdin)
}

func runHTTP(
	endpoint string,
	body []byte,
	do func(*httpclient.Client, string, []byte) (httpclient.Response, error),
	readBody bool,
	chunk int,
) error {
	host := viper.GetString("http.host")
	if host == "" {
		return errors.New("--host is required")
	}

	link, err := openLink(viper.GetString("port"))
	if err != nil {
		return err
	}
	defer link.End()

	client := httpclient.New(link,
		httpclient.WithLogger(slog.Default()),
		httpclient.WithResponseTimeout(viper.GetDuration("http.response-timeout")),
	)

	if err := client.Configure(host, uint16(viper.GetUint("http.http-port")), viper.GetBool("http.tls")); err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	resp, err := do(client, endpoint, body)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s HTTP %d, %d bytes\n", successStyle.Render("✓"), resp.StatusCode, resp.DataSize)

	if !readBody || resp.DataSize == 0 {
		return nil
	}
	return copyBody(client, os.Stdout, resp.DataSize, chunk)
}

// copyBody reads size bytes of body in chunks and writes them to w
func copyBody(client *httpclient.Client, w io.Writer, size, chunk int) error {
	buf := make([]byte, chunk)
	for remaining := size; remaining > 0; {
		want := min(chunk, remaining)
		if want < httpclient.BodyBufferMinSize {
			want = httpclient.BodyBufferMinSize
		}

		n, err := client.ReadBody(buf[:want])
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if n == 0 {
			break
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}
