package emulator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/webosctl/internal/errs"
	"github.com/muurk/webosctl/internal/pointer"
	"github.com/muurk/webosctl/internal/protocol"
	"github.com/muurk/webosctl/internal/session"
)

func startDisplay(t *testing.T, config Config) *Display {
	t.Helper()

	config.Host = "127.0.0.1"
	d, err := New(config)
	if err != nil {
		t.Fatalf("New() error = %v", err)
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

func dialerFor(d *Display) *session.WebSocketDialer {
	dialer := session.NewWebSocketDialer()
	dialer.PlainPort = d.Port()
	dialer.SecurePort = d.Port()
	return dialer
}

func connect(t *testing.T, d *Display, key string, opts ...session.Option) (*session.Session, error) {
	t.Helper()

	cred := session.Credential{Name: "emu", IP: "127.0.0.1", ClientKey: key}
	s, err := session.New(cred, append([]session.Option{session.WithDialer(dialerFor(d))}, opts...)...)
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s, s.Connect(ctx)
}

func TestPairing(t *testing.T) {
	d := startDisplay(t, Config{ClientKey: "emu-key"})

	var prompted atomic.Int32
	s, err := connect(t, d, "", session.WithPairingPrompt(func() { prompted.Add(1) }))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if s.ClientKey() != "emu-key" {
		t.Errorf("ClientKey() = %q, want emu-key", s.ClientKey())
	}
	if prompted.Load() != 1 {
		t.Errorf("prompt callback fired %d times, want 1", prompted.Load())
	}
}

func TestPairingWithKnownKeySkipsPrompt(t *testing.T) {
	d := startDisplay(t, Config{ClientKey: "emu-key", Reject: true})

	var prompted atomic.Int32
	_, err := connect(t, d, "emu-key", session.WithPairingPrompt(func() { prompted.Add(1) }))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if prompted.Load() != 0 {
		t.Errorf("prompt callback fired %d times, want 0", prompted.Load())
	}
}

func TestPairingRejected(t *testing.T) {
	d := startDisplay(t, Config{Reject: true})

	_, err := connect(t, d, "")
	if !errs.IsAuthError(err) {
		t.Fatalf("Connect() error = %v, want AuthError", err)
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("Connect() error = %v, want 403 detail", err)
	}
}

func TestGeneratedClientKey(t *testing.T) {
	d := startDisplay(t, Config{})
	if d.ClientKey() == "" {
		t.Error("ClientKey() = \"\", want generated key")
	}
}

func TestRequests(t *testing.T) {
	d := startDisplay(t, Config{MAC: "AA:BB:CC:DD:EE:FF", ModelName: "OLED65TEST"})
	s, err := connect(t, d, "")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	ctx := context.Background()

	if _, err := s.Request(ctx, "ssap://audio/setVolume", map[string]any{"volume": 25}, "volume"); err != nil {
		t.Fatalf("setVolume error = %v", err)
	}
	if _, err := s.Request(ctx, "ssap://audio/volumeUp", nil, "volumeup"); err != nil {
		t.Fatalf("volumeUp error = %v", err)
	}

	raw, err := s.Request(ctx, "ssap://audio/getVolume", nil, "status")
	if err != nil {
		t.Fatalf("getVolume error = %v", err)
	}
	var vol struct {
		Volume int `json:"volume"`
	}
	if err := json.Unmarshal(raw, &vol); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if vol.Volume != 26 || d.Volume() != 26 {
		t.Errorf("volume = %d (display %d), want 26", vol.Volume, d.Volume())
	}

	raw, err = s.Request(ctx, "ssap://com.webos.service.connectionmanager/getinfo", nil, "")
	if err != nil {
		t.Fatalf("getinfo error = %v", err)
	}
	if !strings.Contains(string(raw), "aa:bb:cc:dd:ee:ff") {
		t.Errorf("getinfo payload = %s, want MAC", raw)
	}

	raw, err = s.Request(ctx, "ssap://system/getSystemInfo", nil, "")
	if err != nil || !strings.Contains(string(raw), "OLED65TEST") {
		t.Errorf("getSystemInfo = %s, %v", raw, err)
	}

	raw, err = s.Request(ctx, "ssap://tv/getCurrentChannel", nil, "channels")
	if err != nil || string(raw) != `{"returnValue":true}` {
		t.Errorf("unknown URI = %s, %v, want returnValue true", raw, err)
	}
}

func TestDeviceErrors(t *testing.T) {
	d := startDisplay(t, Config{})
	s, err := connect(t, d, "")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	resp, err := s.Issue(context.Background(), session.Request{URI: "ssap://audio/setVolume", Payload: map[string]any{"volume": "loud"}})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	derr := resp.DeviceError()
	if derr == nil || derr.Code != 400 {
		t.Errorf("DeviceError() = %v, want code 400", derr)
	}
}

func TestRequestBeforeRegistration(t *testing.T) {
	d := startDisplay(t, Config{})

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+d.Addr()+"/", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	req, _ := protocol.NewRequest("status_0", protocol.KindRequest, "ssap://audio/getVolume", nil)
	data, _ := req.Encode()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, reply, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	env, err := protocol.Decode(reply)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if env.ID != "status_0" || env.Type != protocol.KindError || !strings.HasPrefix(env.Error, "401") {
		t.Errorf("reply = %+v, want 401 error for status_0", env)
	}
}

func TestPointerSocket(t *testing.T) {
	d := startDisplay(t, Config{})
	s, err := connect(t, d, "")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	ctx := context.Background()
	p, err := pointer.Open(ctx, s)
	if err != nil {
		t.Fatalf("pointer.Open() error = %v", err)
	}
	p.SetDelay(time.Millisecond)

	skipped, err := p.Execute(ctx, []string{"up", "bogus", "click", "home"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(skipped) != 1 || skipped[0] != "bogus" {
		t.Errorf("skipped = %v, want [bogus]", skipped)
	}
	_ = p.Close()

	want := []string{"UP", "CLICK", "HOME"}
	deadline := time.Now().Add(5 * time.Second)
	for len(d.Buttons()) < len(want) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	got := d.Buttons()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Buttons() = %v, want %v", got, want)
	}
}

func TestSecure(t *testing.T) {
	d := startDisplay(t, Config{Secure: true, ClientKey: "tls-key"})

	s, err := connect(t, d, "", session.WithSecure(true))
	if err != nil {
		t.Fatalf("Connect() over TLS error = %v", err)
	}
	if s.ClientKey() != "tls-key" {
		t.Errorf("ClientKey() = %q, want tls-key", s.ClientKey())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	d := startDisplay(t, Config{})
	if _, err := connect(t, d, ""); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	resp, err := http.Get("http://" + d.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `webosctl_emulator_registrations_total{outcome="accepted"} 1`) {
		t.Errorf("/metrics missing accepted registration:\n%s", body)
	}
}

func TestShutdownClosesSessions(t *testing.T) {
	d := startDisplay(t, Config{})
	s, err := connect(t, d, "")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if d.ActiveConnections() != 1 {
		t.Errorf("ActiveConnections() = %d, want 1", d.ActiveConnections())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.State() != session.Disconnected && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.State() != session.Disconnected {
		t.Errorf("State() = %v after shutdown, want disconnected", s.State())
	}
	if d.ActiveConnections() != 0 {
		t.Errorf("ActiveConnections() = %d after shutdown, want 0", d.ActiveConnections())
	}
}

func TestNoSocketsTrackedAfterShutdown(t *testing.T) {
	d, err := New(Config{Host: "127.0.0.1"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if d.track("127.0.0.1:5000/", nil) {
		t.Error("track() after Shutdown = true, want false")
	}
	if got := d.ActiveConnections(); got != 0 {
		t.Errorf("ActiveConnections() = %d, want 0", got)
	}

	srv := httptest.NewServer(d.Handler())
	defer srv.Close()
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/", nil)
	if err == nil {
		t.Fatal("Dial() after Shutdown error = nil, want error")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Dial() response = %v, want 503", resp)
	}
}

func TestParseButtonFrame(t *testing.T) {
	tests := []struct {
		frame  string
		want   string
		wantOK bool
	}{
		{"type:button\nname:UP\n\n", "UP", true},
		{"type:click\n\n\n", "CLICK", true},
		{"type:button\n\n", "", false},
		{"type:move\ndx:1\ndy:1\n\n", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := parseButtonFrame(tt.frame)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseButtonFrame(%q) = %q, %v, want %q, %v", tt.frame, got, ok, tt.want, tt.wantOK)
		}
	}
}
