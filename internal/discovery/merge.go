package discovery

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DeviceScanner is implemented by Scanner and MDNSScanner.
type DeviceScanner interface {
	Scan(ctx context.Context) ([]DiscoveredDevice, error)
}

// ScanAll runs the scanners concurrently and merges their results. The
// first scanner to fail cancels the others and its error is returned.
func ScanAll(ctx context.Context, scanners ...DeviceScanner) ([]DiscoveredDevice, error) {
	results := make([][]DiscoveredDevice, len(scanners))

	g, ctx := errgroup.WithContext(ctx)
	for i, s := range scanners {
		g.Go(func() error {
			devices, err := s.Scan(ctx)
			if err != nil {
				return err
			}
			results[i] = devices
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Merge(results...), nil
}

// Merge combines device lists keyed by address, in first-seen order.
// Fields left empty by an earlier entry are filled from later ones, so an
// SSDP reply picks up the MAC and hostname of a matching mDNS record.
func Merge(lists ...[]DiscoveredDevice) []DiscoveredDevice {
	index := make(map[string]int)
	merged := make([]DiscoveredDevice, 0)

	for _, list := range lists {
		for _, d := range list {
			i, ok := index[d.Address]
			if !ok {
				index[d.Address] = len(merged)
				merged = append(merged, d)
				continue
			}
			m := &merged[i]
			m.UUID = firstNonEmpty(m.UUID, d.UUID)
			m.Name = firstNonEmpty(m.Name, d.Name)
			m.MAC = firstNonEmpty(m.MAC, d.MAC)
			m.Hostname = firstNonEmpty(m.Hostname, d.Hostname)
		}
	}
	return merged
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
