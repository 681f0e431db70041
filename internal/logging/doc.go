// Package logging provides structured logging for webosctl.
//
// It wraps a global zap logger with a few helpers for the events the session
// layer cares about: connection state changes, frames crossing the wire and
// frames that could not be decoded.
//
// # Log Levels
//
//   - Debug: frame contents, correlation bookkeeping, hex dumps
//   - Info: connection lifecycle, pairing, discovery results
//   - Warn: dropped or undecodable frames, late responses
//   - Error: transport failures
//
// # Configuration
//
// Logging is silent unless a level is given, either through Initialize or the
// WEBOSCTL_LOG_LEVEL environment variable. This keeps command output clean
// for scripts that parse the JSON printed by the CLI.
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// All functions are safe for concurrent use.
package logging
