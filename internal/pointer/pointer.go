// Package pointer drives the display's pointer input socket, which accepts
// remote-control button presses in a line-based text format.
package pointer

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/webosctl/internal/errs"
	"github.com/muurk/webosctl/internal/logging"
)

const (
	// SocketURI asks the display for the pointer socket address.
	SocketURI = "ssap://com.webos.service.networkinput/getPointerInputSocket"

	// DefaultDelay separates consecutive presses.
	DefaultDelay = 100 * time.Millisecond

	clickFrame = "type:click\n\n\n"
)

// buttonNames maps accepted names to the wire name. click has its own frame.
var buttonNames = map[string]string{
	"up":           "UP",
	"down":         "DOWN",
	"left":         "LEFT",
	"right":        "RIGHT",
	"click":        "",
	"back":         "BACK",
	"enter":        "ENTER",
	"home":         "HOME",
	"exit":         "EXIT",
	"red":          "RED",
	"green":        "GREEN",
	"yellow":       "YELLOW",
	"blue":         "BLUE",
	"channel_up":   "CHANNELUP",
	"channel_down": "CHANNELDOWN",
	"volume_up":    "VOLUMEUP",
	"volume_down":  "VOLUMEDOWN",
	"play":         "PLAY",
	"pause":        "PAUSE",
	"stop":         "STOP",
	"rewind":       "REWIND",
	"fast_forward": "FASTFORWARD",
	"asterisk":     "ASTERISK",
}

// Buttons returns the accepted button names in sorted order.
func Buttons() []string {
	names := make([]string, 0, len(buttonNames))
	for name := range buttonNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Frame returns the wire frame for a button name.
func Frame(name string) (string, bool) {
	wire, ok := buttonNames[name]
	if !ok {
		return "", false
	}
	if name == "click" {
		return clickFrame, true
	}
	return "type:button\nname:" + wire + "\n\n", true
}

// Requester issues a request on the main command socket.
type Requester interface {
	Request(ctx context.Context, uri string, payload any, prefix string) (json.RawMessage, error)
}

// Conn is the write side of the pointer socket.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Pointer sends button presses. It is not safe for concurrent use.
type Pointer struct {
	conn  Conn
	delay time.Duration
	log   *zap.Logger
}

// New wraps an already-open pointer socket.
func New(conn Conn) *Pointer {
	return &Pointer{conn: conn, delay: DefaultDelay, log: logging.GetLogger()}
}

// Open asks the display for its pointer socket and dials it.
func Open(ctx context.Context, r Requester) (*Pointer, error) {
	payload, err := r.Request(ctx, SocketURI, nil, "")
	if err != nil {
		return nil, err
	}

	var reply struct {
		SocketPath string `json:"socketPath"`
	}
	if err := json.Unmarshal(payload, &reply); err != nil || reply.SocketPath == "" {
		return nil, errs.NewCommandError("pointer", "display did not return a pointer socket", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // displays use self-signed certificates
	}
	conn, resp, err := dialer.DialContext(ctx, reply.SocketPath, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errs.NewConnectionError("pointer", fmt.Sprintf("failed to open pointer socket %s", reply.SocketPath), err)
	}

	logging.LogConnection(logging.GetLogger(), reply.SocketPath, "pointer socket open")
	return New(conn), nil
}

// SetDelay changes the pause between presses.
func (p *Pointer) SetDelay(d time.Duration) { p.delay = d }

// Press sends a single button.
func (p *Pointer) Press(name string) error {
	frame, ok := Frame(name)
	if !ok {
		return errs.NewCommandError("pointer", fmt.Sprintf("unknown button %q", name), nil)
	}
	if err := p.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		return errs.NewConnectionError("pointer", "failed to send button", err)
	}
	p.log.Debug("Pressed button", zap.String("button", name))
	return nil
}

// Execute presses each known button in order with the configured delay
// between presses. Unknown names are skipped and returned.
func (p *Pointer) Execute(ctx context.Context, names []string) ([]string, error) {
	var skipped []string
	pressed := 0

	for _, name := range names {
		if _, ok := Frame(name); !ok {
			p.log.Warn("Skipping unknown button", zap.String("button", name))
			skipped = append(skipped, name)
			continue
		}

		if pressed > 0 && p.delay > 0 {
			timer := time.NewTimer(p.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return skipped, ctx.Err()
			case <-timer.C:
			}
		}

		if err := p.Press(name); err != nil {
			return skipped, err
		}
		pressed++
	}

	return skipped, nil
}

// Close closes the pointer socket.
func (p *Pointer) Close() error {
	return p.conn.Close()
}
