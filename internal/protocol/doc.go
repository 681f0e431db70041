// Package protocol defines the wire model of the display's command socket.
//
// Every message is a JSON text frame shaped as an Envelope:
//
//	{"id": "volume_3", "type": "request", "uri": "ssap://audio/getVolume"}
//	{"id": "volume_3", "type": "response", "payload": {"returnValue": true, "volume": 12}}
//
// The id correlates a reply with its request. Frames without an id, or with
// an id nobody is waiting for, are device-pushed and handled by whoever is
// subscribed to unsolicited traffic (see package session).
//
// # Registration
//
// A connection must register before any request is accepted. The client
// sends a "register" envelope carrying a fixed capability manifest and, when
// it has one, the client key from an earlier pairing:
//
//	env, err := protocol.NewRegistration(savedKey)
//
// The device answers with a "registered" envelope whose payload holds the
// "client-key". Without a saved key the device first shows a confirmation
// prompt on screen.
//
// # Device Errors
//
// The device reports failures in two ways: a "type":"error" envelope with a
// top-level error string, or a "response" whose payload has
// "returnValue": false. Envelope.DeviceError decodes both shapes; callers
// decide whether to treat them as failures.
//
// All functions in this package are stateless and safe for concurrent use.
package protocol
