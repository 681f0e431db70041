package discovery

import (
	"fmt"
	"net"
)

// DiscoveredDevice is a display that answered a discovery probe.
type DiscoveredDevice struct {
	// UUID is the UPnP device UUID, when the reply carried one.
	UUID string `json:"uuid,omitempty"`

	// Name is the friendly name the display advertises.
	Name string `json:"name,omitempty"`

	// Address is the source IP of the reply.
	Address string `json:"address"`

	// MAC is only known from mDNS advertisements.
	MAC string `json:"mac,omitempty"`

	// Hostname is only known from mDNS advertisements.
	Hostname string `json:"hostname,omitempty"`
}

// String returns a human-readable description of the device
func (d DiscoveredDevice) String() string {
	name := d.Name
	if name == "" {
		name = "unnamed display"
	}
	if d.UUID != "" {
		return fmt.Sprintf("%s (%s) at %s", name, d.UUID, d.Address)
	}
	return fmt.Sprintf("%s at %s", name, d.Address)
}

// collector de-duplicates devices by address, keeping the first one seen
// and first-seen order.
type collector struct {
	seen    map[string]struct{}
	devices []DiscoveredDevice
}

func newCollector() *collector {
	return &collector{
		seen:    make(map[string]struct{}),
		devices: make([]DiscoveredDevice, 0),
	}
}

// add records d and reports whether its address was new.
func (c *collector) add(d DiscoveredDevice) bool {
	if _, ok := c.seen[d.Address]; ok {
		return false
	}
	c.seen[d.Address] = struct{}{}
	c.devices = append(c.devices, d)
	return true
}

func (c *collector) list() []DiscoveredDevice {
	return c.devices
}

// hostIP returns the IP part of a packet source address.
func hostIP(addr net.Addr) string {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP.String()
	case nil:
		return ""
	default:
		host, _, err := net.SplitHostPort(a.String())
		if err != nil {
			return a.String()
		}
		return host
	}
}
