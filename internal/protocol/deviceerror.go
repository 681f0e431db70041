package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DeviceError is a failure reported by the device inside an otherwise
// well-formed reply.
type DeviceError struct {
	Code    int
	Message string
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("device error %d: %s", e.Code, e.Message)
	}
	return "device error: " + e.Message
}

// replyStatus is the subset of payload fields the device uses to flag
// failures on "response" envelopes.
type replyStatus struct {
	ReturnValue *bool  `json:"returnValue"`
	ErrorCode   any    `json:"errorCode"`
	ErrorText   string `json:"errorText"`
}

// DeviceError reports whether the envelope describes a device-side failure.
//
// Two shapes are recognized: a "type":"error" envelope whose error string
// starts with a numeric code ("401 insufficient permissions"), and a
// response whose payload has "returnValue": false. Nil means success.
func (e *Envelope) DeviceError() *DeviceError {
	if e.Type == KindError {
		return parseErrorString(e.Error)
	}

	if len(e.Payload) == 0 {
		return nil
	}

	var status replyStatus
	if err := json.Unmarshal(e.Payload, &status); err != nil {
		return nil
	}
	if status.ReturnValue == nil || *status.ReturnValue {
		return nil
	}

	derr := &DeviceError{Message: status.ErrorText}
	switch v := status.ErrorCode.(type) {
	case float64:
		derr.Code = int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			derr.Code = n
		}
	}
	if derr.Message == "" {
		derr.Message = "request failed"
	}
	return derr
}

func parseErrorString(s string) *DeviceError {
	s = strings.TrimSpace(s)
	if s == "" {
		return &DeviceError{Message: "unspecified error"}
	}

	head, rest, found := strings.Cut(s, " ")
	if code, err := strconv.Atoi(head); err == nil {
		if !found {
			rest = s
		}
		return &DeviceError{Code: code, Message: strings.TrimSpace(rest)}
	}
	return &DeviceError{Message: s}
}
