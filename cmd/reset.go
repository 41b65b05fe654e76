/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset [port]",
	Short: "Hardware-reset the modem",
	Long: `Pulse the modem's reset line. The reset input is wired to DTR.

The line is held asserted for --hold and then released. The modem drops off
the network and reboots; give it a few seconds before sending commands.

Examples:
  atctl reset
  atctl reset /dev/ttyACM0 --hold 500ms`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := portArg(args)
		hold, _ := cmd.Flags().GetDuration("hold")

		link, err := openLink(portPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening link: %v\n", err)
			os.Exit(1)
		}
		defer link.End()

		fmt.Printf("Resetting modem on %s (hold %s)\n", portPath, hold)
		if err := link.ResetModem(hold); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			link.End()
			os.Exit(1)
		}

		fmt.Println("Modem reset successfully")
		fmt.Println("\nUse 'atctl at AT' to check when it is back")
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().Duration("hold", 100*time.Millisecond, "How long to hold the reset line asserted")
}
