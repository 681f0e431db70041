// Package emulator serves an emulated LG webOS display for development and
// tests.
//
// A Display listens on one port (plain or TLS with a generated self-signed
// certificate) and serves three routes through a chi router:
//
//   - "/" is the command socket. It answers registration with a PROMPT
//     response followed by "registered" (or a 403 error when configured to
//     reject), and answers requests for a small set of audio, power, system,
//     network and notification URIs. Other URIs succeed with an empty
//     returnValue payload.
//   - "/resources/{token}/netinput.pointer.sock" is the pointer socket
//     returned by getPointerInputSocket. Button frames are recorded.
//   - "/metrics" exposes registration, request and button counters.
//
// Example:
//
//	d, err := emulator.New(emulator.Config{Host: "127.0.0.1", Port: 3000})
//	if err != nil {
//	    return err
//	}
//	if err := d.Start(); err != nil {
//	    return err
//	}
//	defer d.Shutdown(context.Background())
//
// LoadConfig builds a Config from WEBOSCTL_EMULATOR_* environment variables.
package emulator
