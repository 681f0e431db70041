// Package session manages the command socket of a webOS display.
//
// A Session dials the display, registers with it to obtain (or reuse) a
// client key, and then correlates concurrent requests with their responses.
//
// # Lifecycle
//
// Connect moves the session through Connecting and Handshaking to Ready.
// Any transport failure returns it to Disconnected and fails every waiting
// caller with a ConnectionError. There is no automatic reconnect; call
// Connect again. Correlation ids keep counting across reconnects.
//
// # Concurrency
//
// Each connection runs one reader goroutine that routes inbound frames and
// one writer goroutine that drains a bounded outbound queue. Callers share
// nothing with these loops except the queue and the table of pending
// requests.
//
// Connect and Issue each record an OpenTelemetry span. Without
// WithTracerProvider the global provider is used, which is a no-op until
// the program installs one.
//
// Usage:
//
//	s, err := session.New(session.Credential{IP: "192.168.1.20", ClientKey: key})
//	if err != nil {
//		return err
//	}
//	if err := s.Connect(ctx); err != nil {
//		return err
//	}
//	defer s.Close()
//
//	payload, err := s.Request(ctx, "ssap://audio/setVolume", map[string]any{"volume": 10}, "")
package session
