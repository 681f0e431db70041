package commands

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCatalogue_Consistent(t *testing.T) {
	seen := map[string]bool{}
	for _, op := range catalogue {
		if seen[op.Name] {
			t.Errorf("duplicate operation %q", op.Name)
		}
		seen[op.Name] = true

		if !strings.HasPrefix(op.URI, "ssap://") && !strings.HasPrefix(op.URI, "luna://") {
			t.Errorf("%s: URI %q has no ssap:// or luna:// scheme", op.Name, op.URI)
		}
		if op.Group == "" || op.Summary == "" {
			t.Errorf("%s: missing group or summary", op.Name)
		}
		if len(op.Args) > 0 && op.Build == nil {
			t.Errorf("%s: takes arguments but has no builder", op.Name)
		}
	}
}

func TestOperation_Payload(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "setVolume", op: "setVolume", args: []string{"10"}, want: `{"volume":10}`},
		{name: "setVolume negative", op: "setVolume", args: []string{"-1"}, wantErr: true},
		{name: "mute true", op: "mute", args: []string{"true"}, want: `{"mute":true}`},
		{name: "mute garbage", op: "mute", args: []string{"loud"}, wantErr: true},
		{name: "no args", op: "off", args: nil, want: `null`},
		{name: "too many args", op: "off", args: []string{"x"}, wantErr: true},
		{name: "too few args", op: "setDeviceInfo", args: []string{"HDMI_1"}, wantErr: true},
		{name: "startApp", op: "startApp", args: []string{"netflix"}, want: `{"id":"netflix"}`},
		{name: "openBrowserAt", op: "openBrowserAt", args: []string{"https://example.com"}, want: `{"target":"https://example.com"}`},
		{
			name: "openYoutubeURL",
			op:   "openYoutubeURL",
			args: []string{"https://youtu.be/x"},
			want: `{"id":"youtube.leanback.v4","params":{"contentTarget":"https://youtu.be/x"}}`,
		},
		{
			name: "setPictureMode",
			op:   "setPictureMode",
			args: []string{"cinema"},
			want: `{"category":"picture","settings":{"pictureMode":"cinema"}}`,
		},
		{
			name: "getPictureSettings",
			op:   "getPictureSettings",
			want: `{"category":"picture","keys":["contrast","backlight","brightness","color","pictureMode"]}`,
		},
		{
			name: "createAlert",
			op:   "createAlert",
			args: []string{"Hi", `[{"label":"OK"}]`},
			want: `{"buttons":[{"label":"OK"}],"message":"Hi"}`,
		},
		{name: "createAlert bad buttons", op: "createAlert", args: []string{"Hi", "["}, wantErr: true},
		{name: "openAppWithPayload", op: "openAppWithPayload", args: []string{`{"id":"x"}`}, want: `{"id":"x"}`},
		{name: "openAppWithPayload not object", op: "openAppWithPayload", args: []string{`[1]`}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := Lookup(tt.op)
			if !ok {
				t.Fatalf("Lookup(%q) not found", tt.op)
			}

			payload, err := op.Payload(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Payload(%v) error = nil, want error", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("Payload(%v) error = %v", tt.args, err)
			}

			got, err := json.Marshal(payload)
			if err != nil {
				t.Fatalf("json.Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Payload(%v) = %s, want %s", tt.args, got, tt.want)
			}
		})
	}
}

func TestOperation_Usage(t *testing.T) {
	op, _ := Lookup("setDeviceInfo")
	if got := op.Usage(); got != "setDeviceInfo <id> <icon> <label>" {
		t.Errorf("Usage() = %q", got)
	}
}

func TestOperations_Sorted(t *testing.T) {
	ops := Operations()
	if len(ops) != len(catalogue) {
		t.Fatalf("Operations() len = %d, want %d", len(ops), len(catalogue))
	}
	for i := 1; i < len(ops); i++ {
		a, b := ops[i-1], ops[i]
		if a.Group > b.Group || (a.Group == b.Group && a.Name > b.Name) {
			t.Errorf("Operations() not sorted at %d: %s/%s before %s/%s", i, a.Group, a.Name, b.Group, b.Name)
		}
	}
}
