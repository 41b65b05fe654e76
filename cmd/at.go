/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/allbin/go-sequans"
	"github.com/allbin/go-sequans/internal/trace"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("40")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

// atCmd represents the at command
var atCmd = &cobra.Command{
	Use:   "at [command]",
	Short: "Send an AT command and print the response",
	Long: `Send one AT command to the modem and print its framed response.

The command can be given as an argument, piped on stdin or typed at a prompt.
A single carriage return is appended; the response is read until the modem's
OK or ERROR line.

Examples:
  atctl at AT+CGMR
  atctl at 'AT+SQNHTTPCFG?' --buffer 512
  atctl at AT+CSQ --field 1 --field 2
  echo AT+CEREG? | atctl at
  atctl at --flush AT+CFUN=1
  atctl at AT+CGMR --trace --hex`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var command string
		if len(args) == 1 {
			command = args[0]
		} else {
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				command = promptForCommand()
			} else {
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
					os.Exit(1)
				}
				command = strings.TrimRight(string(stdinData), "\r\n")
			}
		}

		if command == "" {
			fmt.Fprintln(os.Stderr, "Error: empty command")
			os.Exit(1)
		}

		bufferSize, _ := cmd.Flags().GetInt("buffer")
		fields, _ := cmd.Flags().GetIntSlice("field")
		flush, _ := cmd.Flags().GetBool("flush")

		var tracer *trace.Writer
		if traceOn, _ := cmd.Flags().GetBool("trace"); traceOn {
			showHex, _ := cmd.Flags().GetBool("hex")
			tracer = trace.NewWriter(os.Stdout, trace.NewFormatter(showHex, true))
		}

		if err := runCommand(command, bufferSize, fields, flush, tracer); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("✗"), err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(atCmd)

	atCmd.Flags().Int("buffer", 1024, "Response buffer size in bytes")
	atCmd.Flags().IntSlice("field", nil, "Print the Nth comma-separated value of the response (1-based, repeatable)")
	atCmd.Flags().Bool("flush", false, "Discard the response and only report OK or ERROR")
	atCmd.Flags().Bool("trace", false, "Show the raw traffic as TX/RX lines")
	atCmd.Flags().Bool("hex", false, "Include hex dumps in the trace")
}

func promptForCommand() string {
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	fmt.Print(promptStyle.Render("AT command: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

func runCommand(command string, bufferSize int, fields []int, flush bool, tracer *trace.Writer) error {
	if bufferSize < sequans.MinResponseBuffer {
		return fmt.Errorf("--buffer must be at least %d bytes", sequans.MinResponseBuffer)
	}

	link, err := openLink(viper.GetString("port"))
	if err != nil {
		return err
	}
	defer link.End()

	// Stale URCs would otherwise end up in front of our response
	link.Drain()

	if tracer == nil {
		fmt.Printf("%s %s\n", infoStyle.Render("→"), command)
	}

	if !link.WriteCommand(command) {
		traceTX(tracer, link, command, false)
		return fmt.Errorf("write %s: %w", command, sequans.ErrResponseTimeout)
	}
	traceTX(tracer, link, command, true)

	if flush {
		result := link.FlushResponse()
		printResult(result)
		return result.Err()
	}

	buf := make([]byte, bufferSize)
	result := link.ReadResponse(buf)
	if tracer != nil {
		tracer.RX(responseText(buf))
	}
	printResult(result)

	if tracer == nil && (result == sequans.ResponseOK || result == sequans.ResponseError) {
		printResponse(buf)
	}
	if result != sequans.ResponseOK {
		return result.Err()
	}

	for _, index := range fields {
		value, ok := sequans.Field(string(responseText(buf)), index)
		if !ok {
			fmt.Printf("%s field %d: not present\n", errorStyle.Render("✗"), index)
			continue
		}
		fmt.Printf("%s field %d: %s\n", infoStyle.Render("•"), index, value)
	}
	return nil
}

// traceTX records the command line as sent, marking it blocked when CTS is
// holding it in the transmit queue
func traceTX(tracer *trace.Writer, link *sequans.Link, command string, ok bool) {
	if tracer == nil {
		return
	}

	status := trace.StatusWritten
	switch s := link.Signals(); {
	case !ok:
		status = trace.StatusFailed
	case !s.TxEnabled && s.Pending > 0:
		status = trace.StatusBlocked
	case s.Pending > 0:
		status = trace.StatusQueued
	}
	tracer.TX([]byte(command+"\r"), status)
}

func printResult(result sequans.ResponseResult) {
	if result == sequans.ResponseOK {
		fmt.Printf("%s %s\n", successStyle.Render("✓"), result)
		return
	}
	fmt.Printf("%s %s\n", errorStyle.Render("✗"), result)
}

// responseText returns the response up to the zeroed terminator
func responseText(buf []byte) []byte {
	if end := bytes.IndexByte(buf, 0); end >= 0 {
		return buf[:end]
	}
	return buf
}

func printResponse(buf []byte) {
	for _, line := range strings.Split(string(responseText(buf)), "\r\n") {
		if line == "" {
			continue
		}
		fmt.Printf("  %s\n", printable(line))
	}
}

// printable replaces non-printable characters for display
func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '·'
		}
		return r
	}, s)
}
