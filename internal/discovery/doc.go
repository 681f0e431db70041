// Package discovery locates webOS displays on the local network.
//
// The primary mechanism is an SSDP search: an M-SEARCH message for the
// MediaRenderer device type is sent to the multicast group several times
// and every reply that mentions the vendor is parsed for its UUID and
// friendly name. Replies are de-duplicated by source address.
//
// MDNSScanner is an alternative for networks that filter UPnP multicast. It
// browses the screen-mirroring service displays advertise over mDNS, which
// additionally yields the MAC address needed for Wake-on-LAN. ScanAll runs
// both at once and merges what they find.
//
// Usage:
//
//	devices, err := discovery.NewScanner().Scan(ctx)
//	if err != nil {
//		return err
//	}
//	for _, d := range devices {
//		fmt.Println(d)
//	}
//
// Network requirements: multicast must be allowed on the interface (UDP 1900
// for SSDP, UDP 5353 for mDNS) and the display must be on the same segment.
package discovery
