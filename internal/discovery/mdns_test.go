package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	newEntry := func(instance string, text []string, v4 ...string) *zeroconf.ServiceEntry {
		e := zeroconf.NewServiceEntry(instance, MDNSService, MDNSDomain)
		e.HostName = "LGwebOSTV.local."
		e.Text = text
		for _, ip := range v4 {
			e.AddrIPv4 = append(e.AddrIPv4, net.ParseIP(ip))
		}
		return e
	}

	tests := []struct {
		name   string
		entry  *zeroconf.ServiceEntry
		want   DiscoveredDevice
		wantOK bool
	}{
		{
			name:  "manufacturer txt record",
			entry: newEntry("Living Room", []string{"manufacturer=LG Electronics", "deviceid=AA:BB:CC:DD:EE:FF"}, "192.168.1.20"),
			want: DiscoveredDevice{
				Name:     "Living Room",
				Address:  "192.168.1.20",
				MAC:      "aa:bb:cc:dd:ee:ff",
				Hostname: "LGwebOSTV.local",
			},
			wantOK: true,
		},
		{
			name:  "vendor in instance name",
			entry: newEntry("[LG] webOS TV UN7000", nil, "10.0.0.3"),
			want: DiscoveredDevice{
				Name:     "webOS TV UN7000",
				Address:  "10.0.0.3",
				Hostname: "LGwebOSTV.local",
			},
			wantOK: true,
		},
		{
			name:   "other vendor",
			entry:  newEntry("Kitchen speaker", []string{"manufacturer=Acme"}, "10.0.0.4"),
			wantOK: false,
		},
		{
			name:   "no address",
			entry:  newEntry("[LG] webOS TV", nil),
			wantOK: false,
		},
		{
			name:   "nil entry",
			entry:  nil,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseServiceEntry(tt.entry)
			if ok != tt.wantOK {
				t.Fatalf("parseServiceEntry() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("parseServiceEntry() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewMDNSScanner(t *testing.T) {
	s := NewMDNSScanner()
	if s.Service != "_airplay._tcp" {
		t.Errorf("Service = %q, want _airplay._tcp", s.Service)
	}
	if s.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", s.Timeout, DefaultScanTimeout)
	}
}
