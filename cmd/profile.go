/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/allbin/go-sequans/secprofile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// profileCmd represents the profile command
var profileCmd = &cobra.Command{
	Use:   "profile [id]",
	Short: "List or check TLS security profiles",
	Long: `List the security profiles configured in the modem, or check whether one
exists. Security profiles hold the certificates used by TLS connections.

Exits non-zero when a requested profile does not exist.

Examples:
  atctl profile
  atctl profile 1`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := -1
		if len(args) == 1 {
			var err error
			id, err = strconv.Atoi(args[0])
			if err != nil || id < 0 {
				fmt.Fprintf(os.Stderr, "Error: invalid profile id %q\n", args[0])
				os.Exit(1)
			}
		}

		link, err := openLink(viper.GetString("port"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening link: %v\n", err)
			os.Exit(1)
		}
		defer link.End()

		checker := secprofile.New(link, slog.Default())

		if id >= 0 {
			if !checker.Exists(id) {
				fmt.Printf("%s profile %d not found\n", errorStyle.Render("✗"), id)
				link.End()
				os.Exit(1)
			}
			fmt.Printf("%s profile %d exists\n", successStyle.Render("✓"), id)
			return
		}

		profiles, err := checker.Profiles()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			link.End()
			os.Exit(1)
		}

		if len(profiles) == 0 {
			fmt.Println("No security profiles configured")
			return
		}

		fmt.Printf("Found %d security profile(s):\n", len(profiles))
		for _, p := range profiles {
			fmt.Printf("  %s %d\n", infoStyle.Render("•"), p)
		}
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
}
