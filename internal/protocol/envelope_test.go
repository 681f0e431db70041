package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewRequest(t *testing.T) {
	tests := []struct {
		name        string
		payload     any
		wantPayload string
	}{
		{
			name:        "map payload",
			payload:     map[string]any{"volume": 10},
			wantPayload: `{"volume":10}`,
		},
		{
			name:        "nil payload omitted",
			payload:     nil,
			wantPayload: "",
		},
		{
			name:        "raw payload passed through",
			payload:     json.RawMessage(`{"mute":true}`),
			wantPayload: `{"mute":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := NewRequest("7", KindRequest, "ssap://audio/setVolume", tt.payload)
			if err != nil {
				t.Fatalf("NewRequest() error = %v", err)
			}
			if string(env.Payload) != tt.wantPayload {
				t.Errorf("Payload = %s, want %s", env.Payload, tt.wantPayload)
			}
		})
	}
}

func TestNewRequest_UnmarshalablePayload(t *testing.T) {
	_, err := NewRequest("1", KindRequest, "ssap://x", map[string]any{"f": func() {}})
	if err == nil {
		t.Fatal("NewRequest() with func payload should fail")
	}
}

func TestEnvelope_EncodeOmitsEmptyFields(t *testing.T) {
	env, err := NewRequest("status_1", KindRequest, "ssap://audio/getStatus", nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	data, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	want := `{"id":"status_1","type":"request","uri":"ssap://audio/getStatus"}`
	if string(data) != want {
		t.Errorf("Encode() = %s, want %s", data, want)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		wantID  string
		kind    Kind
	}{
		{"response", `{"id":"3","type":"response","payload":{"returnValue":true}}`, false, "3", KindResponse},
		{"no id", `{"type":"response","payload":{}}`, false, "", KindResponse},
		{"unknown kind kept", `{"id":"x","type":"hello"}`, false, "x", Kind("hello")},
		{"numeric id unmapped", `{"id":7,"type":"response","payload":{}}`, false, "", KindResponse},
		{"object id and numeric type", `{"id":{"n":1},"type":2}`, false, "", ""},
		{"null id", `{"id":null,"type":"registered"}`, false, "", KindRegistered},
		{"array frame", `[1,2]`, true, "", ""},
		{"truncated", `{"id":"3","type":`, true, "", ""},
		{"not json", `type:button`, true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Decode([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Errorf("Decode(%q) error = nil, want error", tt.data)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if env.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", env.ID, tt.wantID)
			}
			if env.Type != tt.kind {
				t.Errorf("Type = %q, want %q", env.Type, tt.kind)
			}
		})
	}
}

func TestDecode_KeepsPayloadWithOddID(t *testing.T) {
	env, err := Decode([]byte(`{"id":1,"type":"registered","payload":{"client-key":"K"},"error":404}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if key, ok := env.ClientKey(); !ok || key != "K" {
		t.Errorf("ClientKey() = %q, %v, want K, true", key, ok)
	}
	if env.Error != "" {
		t.Errorf("Error = %q, want empty", env.Error)
	}
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode(nil)
	if !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("Decode(nil) error = %v, want ErrEmptyFrame", err)
	}
}

func TestEnvelope_ClientKey(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		ok      bool
	}{
		{"present", `{"client-key":"K"}`, "K", true},
		{"empty string", `{"client-key":""}`, "", false},
		{"wrong type", `{"client-key":42}`, "", false},
		{"absent", `{"pairingType":"PROMPT"}`, "", false},
		{"payload not object", `[1,2]`, "", false},
		{"no payload", ``, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &Envelope{Type: KindRegistered, Payload: json.RawMessage(tt.payload)}
			got, ok := env.ClientKey()
			if got != tt.want || ok != tt.ok {
				t.Errorf("ClientKey() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestEnvelope_PayloadOrEmpty(t *testing.T) {
	env := &Envelope{ID: "1", Type: KindResponse}
	if got := string(env.PayloadOrEmpty()); got != "{}" {
		t.Errorf("PayloadOrEmpty() = %s, want {}", got)
	}

	env.Payload = json.RawMessage(`{"a":1}`)
	if got := string(env.PayloadOrEmpty()); got != `{"a":1}` {
		t.Errorf("PayloadOrEmpty() = %s, want {\"a\":1}", got)
	}
}

func TestEnvelope_String(t *testing.T) {
	env := &Envelope{ID: "9", Type: KindRequest, URI: "ssap://tv/channelUp"}
	s := env.String()
	if !strings.Contains(s, `"9"`) || !strings.Contains(s, "ssap://tv/channelUp") {
		t.Errorf("String() = %s, missing id or uri", s)
	}
}
