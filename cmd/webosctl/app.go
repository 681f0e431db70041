package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/webosctl/internal/config"
	"github.com/muurk/webosctl/internal/logging"
	"github.com/muurk/webosctl/internal/metrics"
	"github.com/muurk/webosctl/internal/protocol"
	"github.com/muurk/webosctl/internal/session"
)

// app holds the persistent flags and the loaded registry.
type app struct {
	name       string
	secure     bool
	debug      bool
	timeout    time.Duration
	metrics    bool
	configPath string
	port       int

	registry *config.Registry
}

var cli app

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	level := ""
	if a.debug {
		level = "debug"
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}

	var err error
	if a.configPath != "" {
		a.registry, err = config.LoadFrom(a.configPath)
	} else {
		a.registry, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Debug("Configuration loaded",
		zap.String("path", a.registry.Path()),
		zap.Int("devices", len(a.registry.Devices)),
	)
	return nil
}

// useSecure returns --ssl when given, otherwise the stored preference.
func (a *app) useSecure(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("ssl") {
		return a.secure
	}
	return a.registry.Preferences.Secure
}

func (a *app) requestTimeout() time.Duration {
	if a.timeout > 0 {
		return a.timeout
	}
	return time.Duration(a.registry.Preferences.RequestTimeout) * time.Second
}

// displayPort returns the port the command socket is dialled on.
func (a *app) displayPort(cmd *cobra.Command) int {
	switch {
	case a.port > 0:
		return a.port
	case a.useSecure(cmd):
		return session.SecurePort
	default:
		return session.PlainPort
	}
}

func (a *app) scanTimeout() time.Duration {
	return time.Duration(a.registry.Preferences.ScanTimeout) * time.Second
}

// newSession builds a session for cred with the flags applied.
func (a *app) newSession(cmd *cobra.Command, cred session.Credential, obs *metrics.Metrics, extra ...session.Option) (*session.Session, error) {
	opts := []session.Option{
		session.WithSecure(a.useSecure(cmd)),
		session.WithRequestTimeout(a.requestTimeout()),
		session.WithUnsolicitedHandler(func(env *protocol.Envelope) {
			logging.Debug("Unsolicited frame",
				zap.String("id", env.ID),
				zap.String("type", string(env.Type)),
			)
		}),
	}
	if obs != nil {
		opts = append(opts, session.WithObserver(obs))
	}
	if a.port > 0 {
		dialer := session.NewWebSocketDialer()
		dialer.PlainPort, dialer.SecurePort = a.port, a.port
		opts = append(opts, session.WithDialer(dialer))
	}
	return session.New(cred, append(opts, extra...)...)
}

// newMetrics returns a collector when --metrics is set.
func (a *app) newMetrics() *metrics.Metrics {
	if !a.metrics {
		return nil
	}
	return metrics.New()
}

// dumpMetrics writes m to w in the Prometheus text format.
func dumpMetrics(w io.Writer, m *metrics.Metrics) {
	if m == nil {
		return
	}
	if err := m.WriteText(w); err != nil {
		logging.Warn("Failed to write metrics", zap.Error(err))
	}
}

// withSession connects to the selected paired display, runs fn and closes
// the session.
func (a *app) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session.Session) error) error {
	name, device, err := a.registry.Resolve(a.name)
	if err != nil {
		return err
	}

	m := a.newMetrics()
	defer dumpMetrics(cmd.ErrOrStderr(), m)

	s, err := a.newSession(cmd, device.Credential(name), m)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := s.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logging.Debug("Session close failed", zap.Error(err))
		}
	}()

	// Displays reissue keys after a factory reset.
	if key := s.ClientKey(); key != device.Key {
		a.registry.Put(s.Credential())
		if err := a.registry.Save(); err != nil {
			logging.Warn("Failed to store refreshed client key", zap.Error(err))
		}
	}

	return fn(ctx, s)
}
