package emulator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/webosctl/internal/logging"
	"github.com/muurk/webosctl/internal/protocol"
)

const (
	// writeWait bounds each frame written to a client.
	writeWait = 10 * time.Second

	errDenied       = "403 User denied access"
	errUnauthorized = "401 insufficient permissions"
)

// controlConn is one client on the command socket.
type controlConn struct {
	d          *Display
	conn       *websocket.Conn
	host       string
	log        *zap.Logger
	registered bool
}

func (d *Display) handleControl(w http.ResponseWriter, r *http.Request) {
	conn, release, ok := d.upgrade(w, r)
	if !ok {
		return
	}
	defer release()

	c := &controlConn{
		d:    d,
		conn: conn,
		host: r.Host,
		log:  d.log.With(zap.String("remote_addr", r.RemoteAddr)),
	}
	c.serve()
}

func (c *controlConn) serve() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.log.Debug("Command socket closed", zap.Error(err))
			return
		}
		logging.LogFrame(c.log, "in", data)

		env, err := protocol.Decode(data)
		if err != nil {
			logging.LogUndecodable(c.log, data, err)
			continue
		}

		switch env.Type {
		case protocol.KindRegister:
			if !c.register(env) {
				return
			}
		case protocol.KindRequest, protocol.Kind("subscribe"):
			c.request(env)
		default:
			c.log.Debug("Ignoring frame", zap.String("type", string(env.Type)))
		}
	}
}

// register answers a registration. It returns false when the emulator is
// shutting down mid-prompt.
func (c *controlConn) register(env *protocol.Envelope) bool {
	var reg protocol.Registration
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &reg); err != nil {
			c.replyError(env.ID, "400 bad registration payload")
			return true
		}
	}

	if reg.ClientKey != "" && reg.ClientKey == c.d.config.ClientKey {
		c.d.metrics.registrations.WithLabelValues("known_key").Inc()
		c.registered = true
		c.send(&protocol.Envelope{ID: env.ID, Type: protocol.KindRegistered, Payload: clientKeyPayload(c.d.config.ClientKey)})
		return true
	}

	c.send(&protocol.Envelope{ID: env.ID, Type: protocol.KindResponse, Payload: mustJSON(map[string]any{
		"pairingType": protocol.PairingPrompt,
		"returnValue": true,
	})})

	if c.d.config.PromptDelay > 0 {
		select {
		case <-time.After(c.d.config.PromptDelay):
		case <-c.d.closing:
			return false
		}
	}

	if c.d.config.Reject {
		c.d.metrics.registrations.WithLabelValues("rejected").Inc()
		c.replyError(env.ID, errDenied)
		return true
	}

	c.d.metrics.registrations.WithLabelValues("accepted").Inc()
	c.registered = true
	c.send(&protocol.Envelope{ID: env.ID, Type: protocol.KindRegistered, Payload: clientKeyPayload(c.d.config.ClientKey)})
	return true
}

func (c *controlConn) request(env *protocol.Envelope) {
	c.d.metrics.requests.WithLabelValues(env.URI).Inc()

	if !c.registered {
		c.replyError(env.ID, errUnauthorized)
		return
	}

	payload, errText := c.d.dispatch(env, c.host)
	if errText != "" {
		c.replyError(env.ID, errText)
		return
	}
	c.send(&protocol.Envelope{ID: env.ID, Type: protocol.KindResponse, Payload: mustJSON(payload)})
}

func (c *controlConn) replyError(id, text string) {
	c.send(&protocol.Envelope{ID: id, Type: protocol.KindError, Error: text, Payload: json.RawMessage(`{}`)})
}

func (c *controlConn) send(env *protocol.Envelope) {
	data, err := env.Encode()
	if err != nil {
		c.log.Error("Failed to encode reply", zap.Error(err))
		return
	}
	logging.LogFrame(c.log, "out", data)

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.log.Debug("Write failed", zap.Error(err))
	}
}

// dispatch answers one request. A non-empty string is a device error.
func (d *Display) dispatch(env *protocol.Envelope, host string) (map[string]any, string) {
	fields, _ := env.Fields()
	ok := map[string]any{"returnValue": true}

	switch env.URI {
	case "ssap://audio/getVolume":
		volume, muted := d.state.audio()
		return map[string]any{"returnValue": true, "volume": volume, "muted": muted, "scenario": "mastervolume_tv_speaker"}, ""
	case "ssap://audio/setVolume":
		v, isNum := fields["volume"].(float64)
		if !isNum {
			return nil, "400 volume must be a number"
		}
		d.state.setVolume(int(v))
		return ok, ""
	case "ssap://audio/volumeUp":
		d.state.stepVolume(1)
		return ok, ""
	case "ssap://audio/volumeDown":
		d.state.stepVolume(-1)
		return ok, ""
	case "ssap://audio/setMute":
		m, _ := fields["mute"].(bool)
		d.state.setMuted(m)
		return ok, ""
	case "ssap://system/turnOff":
		d.state.setPower("Suspend")
		return ok, ""
	case "ssap://com.webos.service.tvpower/power/getPowerState":
		return map[string]any{"returnValue": true, "state": d.state.powerState()}, ""
	case "ssap://system/getSystemInfo":
		return map[string]any{"returnValue": true, "modelName": d.config.ModelName, "features": map[string]any{"3d": false, "dvr": true}}, ""
	case "ssap://com.webos.service.connectionmanager/getinfo":
		return map[string]any{
			"returnValue": true,
			"wiredInfo":   map[string]any{"state": "connected", "macAddress": strings.ToLower(d.config.MAC)},
			"wifiInfo":    map[string]any{"state": "disconnected", "macAddress": "02:00:00:00:00:ff"},
		}, ""
	case "ssap://com.webos.service.networkinput/getPointerInputSocket":
		return map[string]any{"returnValue": true, "socketPath": d.pointerURL(host)}, ""
	case "ssap://system.notifications/createToast":
		if msg, _ := fields["message"].(string); msg == "" {
			return nil, "400 message is required"
		}
		return map[string]any{"returnValue": true, "toastId": fmt.Sprintf("com.webos.service.apiadapter-%d", d.state.nextToast())}, ""
	}
	return ok, ""
}

func (d *Display) handlePointer(w http.ResponseWriter, r *http.Request) {
	conn, release, ok := d.upgrade(w, r)
	if !ok {
		return
	}
	defer release()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if name, ok := parseButtonFrame(string(data)); ok {
			d.metrics.buttons.Inc()
			d.state.press(name)
		}
	}
}

// parseButtonFrame reads "type:button\nname:X\n\n" or "type:click\n\n".
func parseButtonFrame(frame string) (string, bool) {
	fields := make(map[string]string)
	for _, line := range strings.Split(frame, "\n") {
		if k, v, found := strings.Cut(line, ":"); found {
			fields[k] = v
		}
	}

	switch fields["type"] {
	case "button":
		if fields["name"] == "" {
			return "", false
		}
		return fields["name"], true
	case "click":
		return "CLICK", true
	}
	return "", false
}

func clientKeyPayload(key string) json.RawMessage {
	return mustJSON(map[string]any{protocol.ClientKeyField: key})
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("emulator: marshal %T: %v", v, err))
	}
	return data
}
