package session

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/webosctl/internal/errs"
)

const (
	// PlainPort is the conventional port of the unencrypted command socket.
	PlainPort = 3000

	// SecurePort is the conventional port of the TLS command socket.
	SecurePort = 3001

	// DefaultHandshakeTimeout bounds the WebSocket upgrade, not the pairing.
	DefaultHandshakeTimeout = 10 * time.Second
)

// Conn is the bidirectional message stream to a display.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens the command socket of a display.
type Dialer interface {
	Dial(ctx context.Context, host string, secure bool) (Conn, error)
}

// WebSocketDialer dials the command socket with gorilla/websocket.
type WebSocketDialer struct {
	// PlainPort and SecurePort override the conventional ports.
	PlainPort  int
	SecurePort int

	// HandshakeTimeout bounds the HTTP upgrade.
	HandshakeTimeout time.Duration

	// TLSConfig is used for the secure endpoint. When nil, certificate
	// verification is skipped because displays present self-signed
	// certificates.
	TLSConfig *tls.Config

	// Resolver resolves hostnames. When nil, net.DefaultResolver is used.
	Resolver *net.Resolver
}

// NewWebSocketDialer creates a dialer using the conventional ports.
func NewWebSocketDialer() *WebSocketDialer {
	return &WebSocketDialer{
		PlainPort:        PlainPort,
		SecurePort:       SecurePort,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}
}

// Endpoint returns the URL of the command socket on host.
func (d *WebSocketDialer) Endpoint(host string, secure bool) string {
	scheme, port := "ws", d.PlainPort
	if secure {
		scheme, port = "wss", d.SecurePort
	}
	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/",
	}
	return u.String()
}

// Dial resolves host and opens the command socket. Failures are returned as
// connection errors.
func (d *WebSocketDialer) Dial(ctx context.Context, host string, secure bool) (Conn, error) {
	if host == "" {
		return nil, errs.NewConnectionError("connect", "no target address", errs.ErrNoTarget)
	}

	ip, err := d.resolve(ctx, host)
	if err != nil {
		return nil, errs.ClassifyDialError(err, host)
	}

	tlsConfig := d.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // displays use self-signed certificates
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: d.HandshakeTimeout,
		TLSClientConfig:  tlsConfig,
	}

	conn, resp, err := dialer.DialContext(ctx, d.Endpoint(ip, secure), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errs.ClassifyDialError(err, host)
	}

	return conn, nil
}

// resolve returns host unchanged when it is an IP literal, otherwise the
// first IPv4 address it resolves to (or the first address of any family).
func (d *WebSocketDialer) resolve(ctx context.Context, host string) (string, error) {
	if net.ParseIP(host) != nil {
		return host, nil
	}

	resolver := d.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", &net.DNSError{Err: "no addresses", Name: host, IsNotFound: true}
	}

	for _, addr := range addrs {
		if v4 := addr.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return addrs[0].IP.String(), nil
}

// String describes the dialer's endpoints
func (d *WebSocketDialer) String() string {
	return fmt.Sprintf("WebSocketDialer{plain=%d, secure=%d}", d.PlainPort, d.SecurePort)
}
