package discovery

import (
	"context"
	"errors"
	"net"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/muurk/webosctl/internal/errs"
	"github.com/muurk/webosctl/internal/logging"
)

const (
	// MulticastAddr is the SSDP discovery group.
	MulticastAddr = "239.255.255.250:1900"

	// SearchTarget is the device type displays answer to.
	SearchTarget = "urn:schemas-upnp-org:device:MediaRenderer:1"

	// VendorMarker must appear in a reply for it to be accepted.
	VendorMarker = "LG"

	// DefaultScanTimeout is the overall read window.
	DefaultScanTimeout = 10 * time.Second

	// DefaultRounds is how many search messages are sent.
	DefaultRounds = 4

	// DefaultInterval separates search rounds.
	DefaultInterval = 2 * time.Second

	maxReplySize = 4096
)

var (
	uuidPattern = regexp.MustCompile(`uuid:(.*?):`)
	namePattern = regexp.MustCompile(`DLNADeviceName\.lge\.com:(.*?)[\r\n]`)
)

// SearchRequest is the M-SEARCH message sent each round.
const SearchRequest = "M-SEARCH * HTTP/1.1\r\n" +
	"HOST: " + MulticastAddr + "\r\n" +
	"MAN: \"ssdp:discover\"\r\n" +
	"MX: 2\r\n" +
	"ST: " + SearchTarget + "\r\n\r\n"

// Scanner probes the local network over SSDP.
type Scanner struct {
	// Timeout is the overall read window, measured from the first probe.
	Timeout time.Duration

	// Rounds is how many search messages are sent.
	Rounds int

	// Interval separates search rounds.
	Interval time.Duration

	// GroupAddr overrides MulticastAddr.
	GroupAddr string

	Logger *zap.Logger
}

// NewScanner creates an SSDP scanner with the default timings.
func NewScanner() *Scanner {
	return &Scanner{
		Timeout:   DefaultScanTimeout,
		Rounds:    DefaultRounds,
		Interval:  DefaultInterval,
		GroupAddr: MulticastAddr,
	}
}

// Scan sends the search rounds and collects replies until the read window
// closes or ctx ends. It returns an empty slice when nothing answers.
// Socket setup failures are IO errors; bad replies are skipped.
func (s *Scanner) Scan(ctx context.Context) ([]DiscoveredDevice, error) {
	log := s.logger()

	group, err := net.ResolveUDPAddr("udp4", s.groupAddr())
	if err != nil {
		return nil, errs.NewIOError("scan", "invalid discovery group", err)
	}

	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, errs.NewIOError("scan", "failed to bind discovery socket", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(s.timeout())
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, errs.NewIOError("scan", "failed to set read timeout", err)
	}

	// Cancelling ctx unblocks the read loop.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.WriteTo([]byte(SearchRequest), group); err != nil {
		return nil, errs.NewIOError("scan", "failed to send search request", err)
	}
	log.Debug("Sent SSDP search", zap.String("group", group.String()), zap.Int("round", 1))

	probing, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.probe(probing, conn, group)

	found := newCollector()
	buf := make([]byte, maxReplySize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, os.ErrDeadlineExceeded) && ctx.Err() == nil {
				log.Debug("Discovery read ended", zap.Error(err))
			}
			break
		}

		device, ok := ParseReply(buf[:n], from)
		if !ok {
			continue
		}
		if found.add(device) {
			log.Debug("Discovered display", zap.Stringer("device", device))
		}
	}

	return found.list(), nil
}

// probe sends the remaining search rounds.
func (s *Scanner) probe(ctx context.Context, conn net.PacketConn, group net.Addr) {
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	for round := 2; round <= s.rounds(); round++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := conn.WriteTo([]byte(SearchRequest), group); err != nil {
			s.logger().Debug("SSDP search failed", zap.Int("round", round), zap.Error(err))
			return
		}
		s.logger().Debug("Sent SSDP search", zap.Int("round", round))
	}
}

// ParseReply extracts a device from an SSDP reply. Replies that are not
// valid UTF-8 or lack the vendor marker are rejected.
func ParseReply(data []byte, from net.Addr) (DiscoveredDevice, bool) {
	if !utf8.Valid(data) {
		return DiscoveredDevice{}, false
	}
	reply := string(data)
	if !strings.Contains(reply, VendorMarker) {
		return DiscoveredDevice{}, false
	}

	address := hostIP(from)
	if address == "" {
		return DiscoveredDevice{}, false
	}

	device := DiscoveredDevice{Address: address}
	if m := uuidPattern.FindStringSubmatch(reply); m != nil {
		device.UUID = m[1]
	}
	if m := namePattern.FindStringSubmatch(reply); m != nil {
		device.Name = strings.TrimSpace(m[1])
	}
	return device, true
}

func (s *Scanner) timeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultScanTimeout
	}
	return s.Timeout
}

func (s *Scanner) rounds() int {
	if s.Rounds <= 0 {
		return DefaultRounds
	}
	return s.Rounds
}

func (s *Scanner) interval() time.Duration {
	if s.Interval <= 0 {
		return DefaultInterval
	}
	return s.Interval
}

func (s *Scanner) groupAddr() string {
	if s.GroupAddr == "" {
		return MulticastAddr
	}
	return s.GroupAddr
}

func (s *Scanner) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logging.GetLogger()
}
