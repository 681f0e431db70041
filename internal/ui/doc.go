// Package ui renders the human-facing output of the webosctl CLI.
//
// Everything here follows a "run once and exit" pattern: a header box names
// the operation and its target, a result box reports the outcome with
// troubleshooting hints drawn from errs.TroubleshootingHint, and a device
// table lists discovery results. The only animated component is the pairing
// spinner, a Bubble Tea program that runs while the display shows its
// "allow this device" prompt.
//
// Machine-readable output (command payloads) bypasses this package and is
// written as JSON by the caller. Logging goes to stderr through the logging
// package and is silent unless --debug or WEBOSCTL_LOG_LEVEL is set.
package ui
