package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/webosctl/internal/commands"
	"github.com/muurk/webosctl/internal/discovery"
	"github.com/muurk/webosctl/internal/errs"
	"github.com/muurk/webosctl/internal/logging"
	"github.com/muurk/webosctl/internal/pointer"
	"github.com/muurk/webosctl/internal/session"
	"github.com/muurk/webosctl/internal/ui"
	"github.com/muurk/webosctl/internal/wol"
)

var (
	scanMDNS bool
	scanAll  bool
	scanJSON bool
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(setDefaultCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(opsCmd)
	rootCmd.AddCommand(buttonCmd)
	rootCmd.AddCommand(notifyIconCmd)

	scanCmd.Flags().BoolVar(&scanMDNS, "mdns", false, "Browse with mDNS instead of SSDP")
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "Run SSDP and mDNS together and merge the results")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print results as JSON")
	scanCmd.MarkFlagsMutuallyExclusive("mdns", "all")
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover displays on the local network",
	Long: `Discover LG displays with an SSDP search (or mDNS with --mdns).
With --all both run at once and replies are merged by address.

The scan window comes from the scan_timeout preference (10s by default).`,
	Example: `  # SSDP search
  webosctl scan

  # mDNS browse, JSON output for scripting
  webosctl scan --mdns --json

  # Both, merged
  webosctl scan --all`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, _ []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())

	var devices []discovery.DiscoveredDevice
	label := fmt.Sprintf("Scanning for displays (%s)", cli.scanTimeout())
	err := ui.Wait(cmd.Context(), cmd.ErrOrStderr(), label, func(ctx context.Context, _ ui.StatusFunc) error {
		ssdp := discovery.NewScanner()
		ssdp.Timeout = cli.scanTimeout()
		mdns := discovery.NewMDNSScanner()
		mdns.Timeout = cli.scanTimeout()

		var err error
		switch {
		case scanAll:
			devices, err = discovery.ScanAll(ctx, ssdp, mdns)
		case scanMDNS:
			devices, err = mdns.Scan(ctx)
		default:
			devices, err = ssdp.Scan(ctx)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if scanJSON {
		return p.PrintJSON(devices)
	}
	if len(devices) == 0 {
		p.PrintWarning("No displays found",
			ui.Field{Key: "Hint", Value: "Make sure the display is on and on this network"},
			ui.Field{Key: "Hint", Value: "Try --all, or pair directly with 'auth <ip> <name>'"},
		)
		return nil
	}
	p.PrintDevices(devices)
	return nil
}

var authCmd = &cobra.Command{
	Use:   "auth <host> <name>",
	Short: "Pair with a display and store its client key",
	Long: `Connect to the display at <host>, register this client and store the
issued client key under <name>. The display shows a prompt that must be
accepted with the remote. The first paired display becomes the default.`,
	Example: `  webosctl auth 192.168.1.20 lounge
  webosctl auth --ssl lgwebostv.local bedroom`,
	Args: cobra.ExactArgs(2),
	RunE: runAuth,
}

func runAuth(cmd *cobra.Command, args []string) error {
	host, name := args[0], args[1]
	p := ui.NewPrinter(cmd.OutOrStdout())

	cred := session.Credential{Name: name}
	if net.ParseIP(host) != nil {
		cred.IP = host
	} else {
		cred.Hostname = host
	}
	if existing, ok := cli.registry.Device(name); ok {
		cred.ClientKey = existing.Key
		cred.MAC = existing.MAC
	}

	m := cli.newMetrics()
	defer dumpMetrics(cmd.ErrOrStderr(), m)

	p.PrintHeader("Pairing", "webosctl auth "+host+" "+name,
		ui.Field{Key: "Display", Value: net.JoinHostPort(host, fmt.Sprint(cli.displayPort(cmd)))},
		ui.Field{Key: "Name", Value: name},
	)

	var s *session.Session
	err := ui.Wait(cmd.Context(), cmd.OutOrStdout(), "Connecting to display", func(ctx context.Context, status ui.StatusFunc) error {
		var err error
		s, err = cli.newSession(cmd, cred, m, session.WithPairingPrompt(func() {
			status("Accept the pairing request on the display")
		}))
		if err != nil {
			return err
		}
		return s.Connect(ctx)
	})
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	paired := s.Credential()
	if paired.MAC == "" {
		paired.MAC = lookupMAC(cmd.Context(), s)
	}

	cli.registry.Put(paired)
	if err := cli.registry.Save(); err != nil {
		return fmt.Errorf("paired but failed to save configuration: %w", err)
	}

	details := []ui.Field{
		{Key: "Name", Value: name},
		{Key: "Target", Value: paired.Target()},
		{Key: "MAC", Value: orNone(paired.MAC)},
		{Key: "Config", Value: cli.registry.Path()},
	}
	if cli.registry.Default == name {
		details = append(details, ui.Field{Key: "Default", Value: "yes"})
	}
	p.PrintSuccess("Paired with "+name, details...)
	return nil
}

// lookupMAC asks the display for its network info so 'on' can wake it
// later. Failure only costs the wake feature.
func lookupMAC(ctx context.Context, s *session.Session) string {
	payload, err := commands.NewRemote(s, nil).Run(ctx, "networkInfo")
	if err != nil {
		logging.Debug("MAC lookup failed", zap.Error(err))
		return ""
	}
	return commands.MACFromNetworkInfo(payload)
}

var setDefaultCmd = &cobra.Command{
	Use:   "set-default <name>",
	Short: "Make a paired display the default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.registry.SetDefault(args[0]); err != nil {
			return err
		}
		if err := cli.registry.Save(); err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Default display set", ui.Field{Key: "Name", Value: args[0]})
		return nil
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List paired displays",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p := ui.NewPrinter(cmd.OutOrStdout())
		names := cli.registry.Names()
		if len(names) == 0 {
			p.PrintWarning("No paired displays", ui.Field{Key: "Hint", Value: "Pair with 'webosctl auth <host> <name>'"})
			return nil
		}

		rows := make([][]string, 0, len(names))
		for _, name := range names {
			d, _ := cli.registry.Device(name)
			target := d.IP
			if target == "" {
				target = d.Hostname
			}
			marker := ""
			if name == cli.registry.Default {
				marker = "*"
			}
			rows = append(rows, []string{marker, name, orNone(target), orNone(d.MAC), d.LastSeen.Format("2006-01-02 15:04")})
		}
		p.PrintTable([]string{"", "NAME", "TARGET", "MAC", "LAST PAIRED"}, rows)
		return nil
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <name>",
	Short: "Remove a paired display from the configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, ok := cli.registry.Device(args[0]); !ok {
			return fmt.Errorf("unknown display %q", args[0])
		}
		cli.registry.Remove(args[0])
		if err := cli.registry.Save(); err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Display removed", ui.Field{Key: "Name", Value: args[0]})
		return nil
	},
}

var onCmd = &cobra.Command{
	Use:   "on",
	Short: "Wake the display with a Wake-on-LAN packet",
	Long: `Broadcast a magic packet to the stored MAC address of the display.

The display must have "Turn on via Wi-Fi/LAN" enabled. Delivery is not
confirmed; a successful send is all that is reported.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		name, device, err := cli.registry.Resolve(cli.name)
		if err != nil {
			return err
		}
		if device.MAC == "" {
			return errs.NewCommandError("on", fmt.Sprintf("no MAC address stored for %q", name), errs.ErrInvalidHardware)
		}

		sender := &wol.Sender{Logger: logging.GetLogger()}
		if err := sender.Wake(cmd.Context(), device.MAC); err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Wake packet sent",
			ui.Field{Key: "Name", Value: name},
			ui.Field{Key: "MAC", Value: device.MAC},
		)
		return nil
	},
}

var callCmd = &cobra.Command{
	Use:   "call <uri> [json]",
	Short: "Issue a raw request and print the response payload",
	Example: `  webosctl call ssap://audio/getVolume
  webosctl call ssap://audio/setVolume '{"volume": 10}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload any
		if len(args) == 2 {
			if !json.Valid([]byte(args[1])) {
				return errs.NewCommandError("call", "payload is not valid JSON", nil)
			}
			payload = json.RawMessage(args[1])
		}

		return cli.withSession(cmd, func(ctx context.Context, s *session.Session) error {
			resp, err := s.Request(ctx, args[0], payload, "")
			if err != nil {
				return err
			}
			return ui.NewPrinter(cmd.OutOrStdout()).PrintJSON(resp)
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run <operation> [args...]",
	Short: "Run a named operation (see 'ops')",
	Example: `  webosctl run setVolume 12
  webosctl run startApp netflix
  webosctl -n bedroom run off`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, ok := commands.Lookup(args[0]); !ok {
			return errs.NewCommandError("run", fmt.Sprintf("unknown operation %q", args[0]), nil)
		}
		return cli.withSession(cmd, func(ctx context.Context, s *session.Session) error {
			resp, err := commands.NewRemote(s, nil).Run(ctx, args[0], args[1:]...)
			if err != nil {
				return err
			}
			return ui.NewPrinter(cmd.OutOrStdout()).PrintJSON(resp)
		})
	},
}

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "List the named operations accepted by 'run'",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ops := commands.Operations()
		rows := make([][]string, 0, len(ops))
		for _, op := range ops {
			rows = append(rows, []string{op.Group, op.Usage(), op.Summary})
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintTable([]string{"GROUP", "USAGE", "DESCRIPTION"}, rows)
		return nil
	},
}

var buttonCmd = &cobra.Command{
	Use:   "button <name>...",
	Short: "Press remote-control buttons",
	Long: `Send button presses over the display's pointer socket, 100ms apart.

Known buttons: ` + strings.Join(pointer.Buttons(), ", "),
	Example: `  webosctl button home
  webosctl button down down enter`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.withSession(cmd, func(ctx context.Context, s *session.Session) error {
			ptr, err := pointer.Open(ctx, s)
			if err != nil {
				return err
			}
			defer func() { _ = ptr.Close() }()

			skipped, err := ptr.Execute(ctx, args)
			if err != nil {
				return err
			}

			p := ui.NewPrinter(cmd.OutOrStdout())
			if len(skipped) > 0 {
				p.PrintWarning("Some buttons were not recognised",
					ui.Field{Key: "Skipped", Value: strings.Join(skipped, ", ")},
					ui.Field{Key: "Sent", Value: fmt.Sprint(len(args) - len(skipped))},
				)
				return nil
			}
			p.PrintSuccess("Buttons sent", ui.Field{Key: "Sent", Value: fmt.Sprint(len(args))})
			return nil
		})
	},
}

var notifyIconCmd = &cobra.Command{
	Use:   "notify-icon <message> <icon-url>",
	Short: "Show a toast with an icon downloaded from a URL",
	Example: `  webosctl notify-icon "Build finished" https://example.com/ok.png`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.withSession(cmd, func(ctx context.Context, s *session.Session) error {
			resp, err := commands.NewRemote(s, nil).NotifyWithIcon(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return ui.NewPrinter(cmd.OutOrStdout()).PrintJSON(resp)
		})
	},
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
