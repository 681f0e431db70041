package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/muurk/webosctl/internal/config"
	"github.com/muurk/webosctl/internal/emulator"
)

func startEmulator(t *testing.T, cfg emulator.Config) *emulator.Display {
	t.Helper()

	cfg.Host = "127.0.0.1"
	d, err := emulator.New(cfg)
	if err != nil {
		t.Fatalf("emulator.New() error = %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.Shutdown(ctx)
	})
	return d
}

func TestPairAndControlEmulator(t *testing.T) {
	d := startEmulator(t, emulator.Config{ClientKey: "e2e-key", MAC: "AA:BB:CC:00:11:22"})
	path := filepath.Join(t.TempDir(), "config.yaml")
	port := fmt.Sprint(d.Port())

	out, err := execute(t, path, "--port", port, "auth", "127.0.0.1", "lounge")
	if err != nil {
		t.Fatalf("auth error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Accept the pairing request") {
		t.Errorf("auth output missing prompt status:\n%s", out)
	}

	reg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	dev, ok := reg.Device("lounge")
	if !ok {
		t.Fatal("auth did not store the display")
	}
	if dev.Key != "e2e-key" || dev.MAC != "aa:bb:cc:00:11:22" || reg.Default != "lounge" {
		t.Errorf("stored device = %+v default %q, want key, MAC and default", dev, reg.Default)
	}

	if _, err := execute(t, path, "--port", port, "run", "setVolume", "33"); err != nil {
		t.Fatalf("run setVolume error = %v", err)
	}
	if d.Volume() != 33 {
		t.Errorf("Volume() = %d, want 33", d.Volume())
	}

	out, err = execute(t, path, "--port", port, "call", "ssap://audio/getVolume")
	if err != nil {
		t.Fatalf("call error = %v", err)
	}
	if !strings.Contains(out, `"volume": 33`) {
		t.Errorf("call output = %s, want volume 33", out)
	}

	if _, err := execute(t, path, "--port", port, "-n", "lounge", "button", "up", "click"); err != nil {
		t.Fatalf("button error = %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for len(d.Buttons()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := strings.Join(d.Buttons(), ","); got != "UP,CLICK" {
		t.Errorf("Buttons() = %s, want UP,CLICK", got)
	}

	out, err = execute(t, path, "--port", port, "--metrics", "run", "getPowerState")
	if err != nil {
		t.Fatalf("run getPowerState error = %v", err)
	}
	if !strings.Contains(out, `"state": "Active"`) {
		t.Errorf("getPowerState output = %s", out)
	}
	if !strings.Contains(out, `webosctl_requests_total{outcome="completed",uri="ssap://com.webos.service.tvpower/power/getPowerState"} 1`) {
		t.Errorf("--metrics output missing request counter:\n%s", out)
	}
}

func TestAuthRejected(t *testing.T) {
	d := startEmulator(t, emulator.Config{Reject: true})
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := execute(t, path, "--port", fmt.Sprint(d.Port()), "auth", "127.0.0.1", "lounge")
	if err == nil {
		t.Fatal("auth error = nil, want rejection")
	}

	reg, _ := config.LoadFrom(path)
	if _, ok := reg.Device("lounge"); ok {
		t.Error("rejected pairing was stored")
	}
}
