package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/webosctl/internal/errs"
	"github.com/muurk/webosctl/internal/logging"
)

const (
	// MDNSService is the service type webOS displays advertise for screen
	// mirroring.
	MDNSService = "_airplay._tcp"

	// MDNSDomain is the mDNS domain.
	MDNSDomain = "local."
)

// MDNSScanner browses mDNS advertisements as an alternative to SSDP on
// networks that filter UPnP multicast.
type MDNSScanner struct {
	Timeout time.Duration
	Service string
	Logger  *zap.Logger
}

// NewMDNSScanner creates an mDNS scanner with default settings.
func NewMDNSScanner() *MDNSScanner {
	return &MDNSScanner{
		Timeout: DefaultScanTimeout,
		Service: MDNSService,
	}
}

// Scan browses until the timeout or ctx ends and returns the LG displays
// seen, de-duplicated by address.
func (s *MDNSScanner) Scan(ctx context.Context) ([]DiscoveredDevice, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := s.Logger
	if log == nil {
		log = logging.GetLogger()
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, errs.NewIOError("scan", "failed to create mDNS resolver", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := newCollector()
	collected := make(chan struct{})

	go func() {
		defer close(collected)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if device, ok := parseServiceEntry(entry); ok && found.add(device) {
					log.Debug("Discovered display over mDNS", zap.Stringer("device", device))
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	service := s.Service
	if service == "" {
		service = MDNSService
	}
	if err := resolver.Browse(ctx, service, MDNSDomain, entries); err != nil {
		cancel()
		<-collected
		return nil, errs.NewIOError("scan", fmt.Sprintf("failed to browse for %s", service), err)
	}

	<-ctx.Done()
	<-collected

	return found.list(), nil
}

// parseServiceEntry converts an advertisement into a device. Entries that
// do not identify as LG, or carry no address, are rejected.
func parseServiceEntry(entry *zeroconf.ServiceEntry) (DiscoveredDevice, bool) {
	if entry == nil {
		return DiscoveredDevice{}, false
	}

	txt := make(map[string]string, len(entry.Text))
	for _, record := range entry.Text {
		key, value, _ := strings.Cut(record, "=")
		txt[strings.ToLower(key)] = value
	}

	if !strings.Contains(strings.ToUpper(txt["manufacturer"]), VendorMarker) &&
		!strings.Contains(entry.Instance, VendorMarker) {
		return DiscoveredDevice{}, false
	}

	var address string
	if len(entry.AddrIPv4) > 0 {
		address = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		address = entry.AddrIPv6[0].String()
	}
	if address == "" {
		return DiscoveredDevice{}, false
	}

	return DiscoveredDevice{
		Name:     strings.TrimSpace(strings.TrimPrefix(entry.Instance, "[LG]")),
		Address:  address,
		MAC:      strings.ToLower(txt["deviceid"]),
		Hostname: strings.TrimSuffix(entry.HostName, "."),
	}, true
}
