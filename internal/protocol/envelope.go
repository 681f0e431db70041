package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the value of an envelope's "type" field.
type Kind string

// Envelope kinds used by the device protocol.
const (
	KindRequest    Kind = "request"
	KindResponse   Kind = "response"
	KindError      Kind = "error"
	KindRegister   Kind = "register"
	KindRegistered Kind = "registered"
)

// RegisterPrefix is reserved for the registration envelope. Requests may not
// use it, so RegisterID never collides with a caller's correlation id.
const RegisterPrefix = "register"

// RegisterID is the correlation id carried by the registration envelope.
const RegisterID = RegisterPrefix + "_0"

// ClientKeyField is the payload field holding the pairing credential.
const ClientKeyField = "client-key"

// ErrEmptyFrame is returned by Decode for zero-length input.
var ErrEmptyFrame = errors.New("empty frame")

// Envelope is the unit exchanged over the command socket.
//
// Outbound requests always set ID, Type and URI. Responses echo the ID of the
// request they answer. Error replies carry a top-level Error string such as
// "404 no such service or method".
type Envelope struct {
	ID      string          `json:"id,omitempty"`
	Type    Kind            `json:"type"`
	URI     string          `json:"uri,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// NewRequest builds an outbound envelope. A nil payload is omitted from the
// wire form.
func NewRequest(id string, kind Kind, uri string, payload any) (*Envelope, error) {
	env := &Envelope{ID: id, Type: kind, URI: uri}
	if payload == nil {
		return env, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload for %s: %w", uri, err)
	}
	if string(raw) != "null" {
		env.Payload = raw
	}
	return env, nil
}

// Decode parses a text frame into an Envelope.
func Decode(data []byte) (*Envelope, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return &env, nil
}

// UnmarshalJSON decodes an envelope object. The string fields are read
// leniently: an id, type, uri or error of any other JSON type decodes as
// empty, which leaves the frame unmatched instead of undecodable.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID      json.RawMessage `json:"id"`
		Type    json.RawMessage `json:"type"`
		URI     json.RawMessage `json:"uri"`
		Payload json.RawMessage `json:"payload"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*e = Envelope{
		ID:      looseString(wire.ID),
		Type:    Kind(looseString(wire.Type)),
		URI:     looseString(wire.URI),
		Payload: wire.Payload,
		Error:   looseString(wire.Error),
	}
	return nil
}

func looseString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// Encode serializes the envelope for the wire.
func (e *Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope %s: %w", e.ID, err)
	}
	return data, nil
}

// PayloadOrEmpty returns the payload, or an empty JSON object when the
// envelope carried none.
func (e *Envelope) PayloadOrEmpty() json.RawMessage {
	if e.payloadAbsent() {
		return json.RawMessage(`{}`)
	}
	return e.Payload
}

// Fields decodes the payload as a JSON object. Envelopes without a payload
// yield an empty map.
func (e *Envelope) Fields() (map[string]any, error) {
	fields := map[string]any{}
	if e.payloadAbsent() {
		return fields, nil
	}
	if err := json.Unmarshal(e.Payload, &fields); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	return fields, nil
}

// StringField returns a string-valued payload field.
func (e *Envelope) StringField(name string) (string, bool) {
	fields, err := e.Fields()
	if err != nil {
		return "", false
	}
	s, ok := fields[name].(string)
	return s, ok
}

// ClientKey returns the pairing credential when the payload carries one.
func (e *Envelope) ClientKey() (string, bool) {
	key, ok := e.StringField(ClientKeyField)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

func (e *Envelope) payloadAbsent() bool {
	return len(e.Payload) == 0 || string(e.Payload) == "null"
}

// String returns a short debug representation without the payload body.
func (e *Envelope) String() string {
	return fmt.Sprintf("Envelope{ID=%q, Type=%s, URI=%q, Payload=%d bytes}",
		e.ID, e.Type, e.URI, len(e.Payload))
}
