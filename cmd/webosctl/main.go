// Webosctl controls LG webOS displays over their local WebSocket API.
//
// It discovers displays on the LAN, pairs with them, stores the issued
// client keys, and sends commands, button presses and notifications.
// Powered-off displays can be woken with a Wake-on-LAN magic packet.
//
// Usage:
//
//	webosctl [command] [flags]
//
// See 'webosctl --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/webosctl/internal/config"
	"github.com/muurk/webosctl/internal/logging"
	"github.com/muurk/webosctl/internal/ui"
	"github.com/muurk/webosctl/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		if ui.IsTerminal(os.Stderr) {
			ui.NewPrinter(os.Stderr).PrintFailure("webosctl", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "webosctl",
	Short: "Control LG webOS displays on the local network",
	Long: `A command-line remote for LG webOS displays.

Discover displays with 'scan', pair with 'auth', then send commands with
'run', 'call', 'button' and 'notify-icon'. Paired displays are stored in
the configuration file and selected with --name (or the default).`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: cli.setup,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cli.name, "name", "n", "", "Paired display to use (defaults to the configured default)")
	flags.BoolVar(&cli.secure, "ssl", false, "Connect to the TLS endpoint on port 3001")
	flags.BoolVar(&cli.debug, "debug", false, "Enable debug logging on stderr")
	flags.DurationVar(&cli.timeout, "timeout", 0, "Per-request timeout (e.g. 5s); 0 uses the configured preference")
	flags.BoolVar(&cli.metrics, "metrics", false, "Print session metrics to stderr on exit")
	flags.IntVar(&cli.port, "port", 0, "Override the command socket port (e.g. for webosctl-emulator)")
	flags.StringVar(&cli.configPath, "config", "", "Configuration file (overrides "+config.PathEnvVar+")")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		fmt.Fprintf(cmd.OutOrStdout(), "webosctl %s (commit: %s, %s, %s)\n", info.Version, info.Commit, info.GoVersion, info.Platform)
		return nil
	},
}
