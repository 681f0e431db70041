package commands

import (
	"encoding/json"
	"strings"
)

type interfaceInfo struct {
	State      string `json:"state"`
	MACAddress string `json:"macAddress"`
}

// MACFromNetworkInfo extracts a MAC address from a networkInfo reply,
// preferring the connected interface and then wired over wifi. It returns
// "" when the payload carries none.
func MACFromNetworkInfo(payload json.RawMessage) string {
	var info struct {
		Wired interfaceInfo `json:"wiredInfo"`
		Wifi  interfaceInfo `json:"wifiInfo"`
	}
	if err := json.Unmarshal(payload, &info); err != nil {
		return ""
	}

	candidates := []interfaceInfo{info.Wired, info.Wifi}
	for _, c := range candidates {
		if c.MACAddress != "" && strings.EqualFold(c.State, "connected") {
			return c.MACAddress
		}
	}
	for _, c := range candidates {
		if c.MACAddress != "" {
			return c.MACAddress
		}
	}
	return ""
}
