package commands

import (
	"encoding/json"
	"testing"
)

func TestMACFromNetworkInfo(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"wired connected", `{"wiredInfo":{"state":"connected","macAddress":"aa:bb:cc:dd:ee:01"},"wifiInfo":{"state":"disconnected","macAddress":"aa:bb:cc:dd:ee:02"}}`, "aa:bb:cc:dd:ee:01"},
		{"wifi connected", `{"wiredInfo":{"state":"disconnected","macAddress":"aa:bb:cc:dd:ee:01"},"wifiInfo":{"state":"connected","macAddress":"aa:bb:cc:dd:ee:02"}}`, "aa:bb:cc:dd:ee:02"},
		{"nothing connected", `{"wiredInfo":{"macAddress":"aa:bb:cc:dd:ee:01"}}`, "aa:bb:cc:dd:ee:01"},
		{"no addresses", `{"returnValue":true}`, ""},
		{"not json", `nope`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MACFromNetworkInfo(json.RawMessage(tt.payload)); got != tt.want {
				t.Errorf("MACFromNetworkInfo() = %q, want %q", got, tt.want)
			}
		})
	}
}
