// Package config stores paired displays and user preferences in a YAML file.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/webosctl/config.yaml or $HOME/.config/webosctl/config.yaml
//   - macOS: $HOME/.config/webosctl/config.yaml
//   - Windows: %LOCALAPPDATA%\webosctl\config.yaml
//
// WEBOSCTL_CONFIG overrides the location.
//
// # Format
//
//	version: 1
//	default: living-room
//	devices:
//	  living-room:
//	    ip: 192.168.1.20
//	    mac: aa:bb:cc:dd:ee:ff
//	    key: 0123456789abcdef
//	preferences:
//	  secure: false
//	  scan_timeout: 10
//	  request_timeout: 0
//
// # Security
//
// Client keys grant control of a display. The file is written with 0600
// permissions inside a 0700 directory.
//
// Writes go to a temporary file that is renamed over the original, so a
// crash never leaves a truncated file.
package config
