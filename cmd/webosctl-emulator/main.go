// Webosctl-emulator serves an emulated LG webOS display.
//
// It answers pairing, a subset of the command API and the pointer socket,
// which makes it possible to try webosctl without a display on the network.
//
// Usage:
//
//	webosctl-emulator [flags]
//
// Pair with it using 'webosctl --port <port> auth 127.0.0.1 emulator'.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/webosctl/internal/emulator"
	"github.com/muurk/webosctl/internal/logging"
	"github.com/muurk/webosctl/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	host        string
	port        int
	secure      bool
	clientKey   string
	reject      bool
	promptDelay time.Duration
	mac         string
	model       string
	logLevel    string
	envFile     string
)

var rootCmd = &cobra.Command{
	Use:   "webosctl-emulator",
	Short: "Emulated LG webOS display",
	Long: `Serve an emulated LG webOS display on one port.

The emulator accepts pairing (optionally after a delay, or rejecting it),
answers audio, power, system, network and notification requests, hands out
a pointer socket and exposes Prometheus counters on /metrics.

Settings are read from WEBOSCTL_EMULATOR_* variables (HOST, PORT, SSL, KEY,
REJECT, PROMPT_DELAY, MAC, MODEL, LOG_LEVEL), optionally loaded from a
.env file. Flags given on the command line take precedence.`,
	Example: `  # Plain command socket on the usual port
  webosctl-emulator

  # TLS on the secure port, with a slow user at the prompt
  webosctl-emulator --ssl --port 3001 --prompt-delay 3s

  # Always reject pairing
  webosctl-emulator --reject

  # Settings from a file
  webosctl-emulator --env-file emulator.env`,
	Version:      version.Version,
	SilenceUsage: true,
	RunE:         runEmulator,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	bindFlags(rootCmd)
	rootCmd.AddCommand(versionCmd)
}

func bindFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&host, "host", "", "Listen host (empty = all interfaces)")
	flags.IntVar(&port, "port", 3000, "Listen port")
	flags.BoolVar(&secure, "ssl", false, "Serve TLS with a generated self-signed certificate")
	flags.StringVar(&clientKey, "key", "", "Client key issued on pairing (random if empty)")
	flags.BoolVar(&reject, "reject", false, "Reject every pairing request")
	flags.DurationVar(&promptDelay, "prompt-delay", time.Second, "Time the emulated user takes to accept pairing")
	flags.StringVar(&mac, "mac", "", "MAC address reported by network info")
	flags.StringVar(&model, "model", "", "Model name reported by system info")
	flags.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&envFile, "env-file", "", "Load WEBOSCTL_EMULATOR_* settings from this file (default .env if present)")
}

// settings is the emulator configuration plus process-level options.
type settings struct {
	emulator.Config
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// loadSettings reads the environment (after an optional .env file) and
// applies the flags that were set explicitly.
func loadSettings(cmd *cobra.Command) (settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return settings{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	} else {
		// .env is optional
		_ = godotenv.Load()
	}

	var s settings
	if err := env.ParseWithOptions(&s, env.Options{Prefix: emulator.EnvPrefix}); err != nil {
		return settings{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	f := cmd.Flags()
	if f.Changed("host") {
		s.Host = host
	}
	if f.Changed("port") {
		s.Port = port
	}
	if f.Changed("ssl") {
		s.Secure = secure
	}
	if f.Changed("key") {
		s.ClientKey = clientKey
	}
	if f.Changed("reject") {
		s.Reject = reject
	}
	if f.Changed("prompt-delay") {
		s.PromptDelay = promptDelay
	}
	if f.Changed("mac") {
		s.MAC = mac
	}
	if f.Changed("model") {
		s.ModelName = model
	}
	if f.Changed("log-level") {
		s.LogLevel = logLevel
	}
	return s, nil
}

func runEmulator(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	if err := logging.Initialize(s.LogLevel); err != nil {
		return err
	}
	defer logging.Sync()

	d, err := emulator.New(s.Config)
	if err != nil {
		return fmt.Errorf("failed to create emulator: %w", err)
	}
	if err := d.Start(); err != nil {
		return err
	}
	logging.Info("Pairing will issue client key", zap.String("key", d.ClientKey()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logging.Info("Shutdown signal received, stopping emulator...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return d.Shutdown(shutdownCtx)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "webosctl-emulator %s\n", version.Full())
	},
}
