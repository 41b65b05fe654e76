/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/allbin/go-sequans"
	"github.com/spf13/cobra"
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals [port]",
	Short: "Display the link's flow-control state",
	Long: `Bring up the link and display its flow-control state.

RTS is driven from our receive buffer occupancy and CTS is the modem's
permission to send. The transmit gate follows CTS.

Examples:
  atctl signals
  atctl signals /dev/ttyACM0 --driver portable

Signal meanings:
  RTS - Request To Send (output, we can take more data)
  CTS - Clear To Send (input, the modem can take more data)`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := portArg(args)

		link, err := openLink(portPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening link: %v\n", err)
			os.Exit(1)
		}
		defer link.End()

		printSignals(portPath, link.Signals())
	},
}

func printSignals(portPath string, s sequans.Signals) {
	fmt.Printf("Flow control for %s:\n\n", portPath)
	fmt.Printf("  RTS (Request To Send): %s\n", formatSignalState(s.RTS))
	fmt.Printf("  CTS (Clear To Send):   %s\n", formatSignalState(s.CTS))
	fmt.Printf("  Transmit gate:         %s\n", formatGate(s.TxEnabled))
	fmt.Printf("  Receive buffer:        %d bytes (high water %d)\n", s.Occupancy, s.HighWater)
	fmt.Printf("  Transmit queue:        %d bytes\n", s.Pending)
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

func formatGate(enabled bool) string {
	if enabled {
		return "OPEN"
	}
	return "CLOSED"
}

func init() {
	rootCmd.AddCommand(signalsCmd)
}
