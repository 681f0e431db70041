package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/webosctl/internal/protocol"
)

// rawFrame is written to the wire as-is.
type rawFrame string

// startPeer runs a fake display. handler is called once per connection.
func startPeer(t *testing.T, handler func(conn *websocket.Conn)) *WebSocketDialer {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("strconv.Atoi() error = %v", err)
	}

	d := NewWebSocketDialer()
	d.PlainPort = port
	d.HandshakeTimeout = 2 * time.Second
	return d
}

func readEnvelope(conn *websocket.Conn) (*protocol.Envelope, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return protocol.Decode(data)
}

func writeFrame(conn *websocket.Conn, v any) error {
	if raw, ok := v.(rawFrame); ok {
		return conn.WriteMessage(websocket.TextMessage, []byte(raw))
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// acceptPairing answers the registration with a prompt notice followed by
// the client key.
func acceptPairing(conn *websocket.Conn, key string) (*protocol.Envelope, error) {
	reg, err := readEnvelope(conn)
	if err != nil {
		return nil, err
	}

	prompt := map[string]any{
		"id":      reg.ID,
		"type":    "response",
		"payload": map[string]any{"pairingType": "PROMPT", "returnValue": true},
	}
	if err := writeFrame(conn, prompt); err != nil {
		return nil, err
	}

	registered := map[string]any{
		"id":      reg.ID,
		"type":    "registered",
		"payload": map[string]any{"client-key": key},
	}
	if err := writeFrame(conn, registered); err != nil {
		return nil, err
	}
	return reg, nil
}

// serve answers each request with the frames respond returns until the
// stream ends.
func serve(conn *websocket.Conn, respond func(req *protocol.Envelope) []any) {
	for {
		req, err := readEnvelope(conn)
		if err != nil {
			return
		}
		for _, frame := range respond(req) {
			if err := writeFrame(conn, frame); err != nil {
				return
			}
		}
	}
}

// pairAndServe pairs with key "K" and then serves requests.
func pairAndServe(respond func(req *protocol.Envelope) []any) func(conn *websocket.Conn) {
	return func(conn *websocket.Conn) {
		if _, err := acceptPairing(conn, "K"); err != nil {
			return
		}
		serve(conn, respond)
	}
}

// echo answers with the request payload.
func echo(req *protocol.Envelope) []any {
	return []any{map[string]any{
		"id":      req.ID,
		"type":    "response",
		"payload": req.Payload,
	}}
}

func silent(*protocol.Envelope) []any { return nil }

func newTestSession(t *testing.T, d Dialer, opts ...Option) *Session {
	t.Helper()

	s, err := New(Credential{Name: "tv", IP: "127.0.0.1"}, append([]Option{WithDialer(d)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func connectTestSession(t *testing.T, d Dialer, opts ...Option) *Session {
	t.Helper()

	s := newTestSession(t, d, opts...)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return s
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
