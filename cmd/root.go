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
	"strings"

	"github.com/allbin/go-sequans"
	"github.com/phsym/console-slog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "atctl",
	Short: "Talk to a Sequans LTE modem over AT commands",
	Long: `atctl drives a Sequans LTE modem over a serial link with RTS/CTS flow
control. It sends AT commands, inspects the flow-control state and exercises
the modem's built-in HTTP client.

Settings are read from flags, from ATCTL_* environment variables and from an
optional atctl.yaml in the working directory or $HOME/.config/atctl.

Examples:
  atctl list --table
  atctl at AT+CGMR --port /dev/ttyACM0
  atctl signals
  ATCTL_PORT=/dev/ttyUSB1 atctl http get /status --host example.com`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger(cmd.ErrOrStderr())
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./atctl.yaml or $HOME/.config/atctl/atctl.yaml)")
	flags.StringP("port", "p", "/dev/ttyACM0", "Serial device the modem is attached to")
	flags.IntP("baud", "b", sequans.DefaultBaudRate, "Baud rate")
	flags.String("driver", "termios", "Line driver: termios, portable")
	flags.Int("retries", sequans.DefaultRetries, "Polls per blocking call before giving up")
	flags.Duration("retry-delay", sequans.DefaultRetryDelay, "Sleep between two polls")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "console", "Log format: console, json")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("atctl")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.config/atctl")
		}
	}

	viper.SetEnvPrefix("ATCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	lvl, err := parseLogLevel(level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(format) {
	case "console", "":
		return slog.New(console.NewHandler(w, &console.HandlerOptions{
			Level: lvl,
		})), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: lvl,
		})), nil
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}
}

func setupLogger(w io.Writer) error {
	logger, err := newLogger(w, viper.GetString("log-format"), viper.GetString("log-level"))
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// newLine builds the Line for the configured driver
func newLine(driver, device string) (sequans.Line, error) {
	switch strings.ToLower(driver) {
	case "termios", "":
		return newTermiosLine(device)
	case "portable":
		return sequans.NewPortableLine(device), nil
	default:
		return nil, fmt.Errorf("unknown driver: %s (valid: termios, portable)", driver)
	}
}

// linkOptions turns the global settings into Link options
func linkOptions() []sequans.Option {
	return []sequans.Option{
		sequans.WithBaudRate(viper.GetInt("baud")),
		sequans.WithRetries(viper.GetInt("retries")),
		sequans.WithRetryDelay(viper.GetDuration("retry-delay")),
	}
}

// openLink opens and starts a Link on device with the global settings. The
// caller must End it.
func openLink(device string) (*sequans.Link, error) {

	line, err := newLine(viper.GetString("driver"), device)
	if err != nil {
		return nil, err
	}

	link, err := sequans.New(line, linkOptions()...)
	if err != nil {
		return nil, err
	}

	slog.Debug("Opening modem link", "port", device, "baud", viper.GetInt("baud"), "driver", viper.GetString("driver"))
	if err := link.Begin(); err != nil {
		return nil, err
	}

	return link, nil
}

// portArg returns the port given on the command line, or the configured one
func portArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return viper.GetString("port")
}
