/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allbin/go-sequans"
	"github.com/spf13/cobra"
)

var (
	monitorInterval time.Duration
	monitorTimeout  time.Duration
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor [port]",
	Short: "Monitor flow-control changes",
	Long: `Monitor the link's flow-control state in real-time.

Reports RTS, CTS and transmit gate transitions as they happen. Unsolicited
responses from the modem are drained so the receive buffer does not hold RTS
deasserted. Press Ctrl+C to stop.

Examples:
  atctl monitor
  atctl monitor /dev/ttyACM0 --interval 5ms
  atctl monitor --timeout 30s`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := portArg(args)

		link, err := openLink(portPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening link: %v\n", err)
			os.Exit(1)
		}
		defer link.End()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if monitorTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, monitorTimeout)
			defer cancel()
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigChan
			fmt.Println("\nStopping monitor...")
			cancel()
		}()

		fmt.Printf("Monitoring flow control on %s\n", portPath)
		fmt.Println("Press Ctrl+C to stop")

		last := link.Signals()
		printSignalState("Initial", last)

		ticker := time.NewTicker(monitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			if n := link.Drain(); n > 0 {
				fmt.Printf("[%s] Drained %d unsolicited responses\n", time.Now().Format("15:04:05"), n)
			}

			current := link.Signals()
			printSignalChange(last, current)
			last = current
		}
	},
}

func printSignalState(prefix string, s sequans.Signals) {
	timestamp := time.Now().Format("15:04:05")
	fmt.Printf("[%s] %s state:\n", timestamp, prefix)
	fmt.Printf("  RTS: %s\n", formatSignalState(s.RTS))
	fmt.Printf("  CTS: %s\n", formatSignalState(s.CTS))
	fmt.Printf("  TX:  %s\n", formatGate(s.TxEnabled))
	fmt.Println()
}

// printSignalChange prints the signals that differ between two snapshots
func printSignalChange(before, after sequans.Signals) {
	if before.RTS == after.RTS && before.CTS == after.CTS && before.TxEnabled == after.TxEnabled {
		return
	}

	timestamp := time.Now().Format("15:04:05")
	fmt.Printf("[%s] Signal change detected:\n", timestamp)
	if before.RTS != after.RTS {
		fmt.Printf("  RTS: %s (occupancy %d)\n", formatSignalState(after.RTS), after.Occupancy)
	}
	if before.CTS != after.CTS {
		fmt.Printf("  CTS: %s\n", formatSignalState(after.CTS))
	}
	if before.TxEnabled != after.TxEnabled {
		fmt.Printf("  TX:  %s (%d pending)\n", formatGate(after.TxEnabled), after.Pending)
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().DurationVarP(&monitorInterval, "interval", "i", 10*time.Millisecond,
		"Polling interval")
	monitorCmd.Flags().DurationVarP(&monitorTimeout, "timeout", "t", 0,
		"Stop after this long (0 = run until interrupted)")
}
