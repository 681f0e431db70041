package config

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/muurk/webosctl/internal/session"
)

// CurrentVersion is the registry format version.
const CurrentVersion = 1

var (
	// ErrUnknownDevice is returned when a name is not in the registry.
	ErrUnknownDevice = errors.New("device not found in configuration")

	// ErrNoDefault is returned when no name was given and no default is set.
	ErrNoDefault = errors.New("no device name given and no default set")
)

// Registry is the user configuration file: paired displays and
// preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Default     string             `yaml:"default,omitempty"` // Name used when --name is omitted
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by user-chosen name
	Preferences *Preferences       `yaml:"preferences,omitempty"`

	path string
}

// Device is the stored credential of one display.
type Device struct {
	IP       string    `yaml:"ip,omitempty"`
	MAC      string    `yaml:"mac,omitempty"`
	Key      string    `yaml:"key,omitempty"` // Client key issued on pairing
	Hostname string    `yaml:"hostname,omitempty"`
	LastSeen time.Time `yaml:"last_seen,omitempty"`
}

// Preferences are defaults for command-line flags.
type Preferences struct {
	Secure         bool `yaml:"secure"`          // Use the TLS endpoint
	ScanTimeout    int  `yaml:"scan_timeout"`    // Discovery read window in seconds
	RequestTimeout int  `yaml:"request_timeout"` // Per-request deadline in seconds, 0 for none
}

func defaultPreferences() *Preferences {
	return &Preferences{ScanTimeout: 10}
}

// NewRegistry creates an empty registry with default preferences.
func NewRegistry() *Registry {
	return &Registry{
		Version:     CurrentVersion,
		Devices:     make(map[string]*Device),
		Preferences: defaultPreferences(),
	}
}

// Path returns the file the registry was loaded from, if any.
func (r *Registry) Path() string { return r.path }

// Device returns the entry stored under name.
func (r *Registry) Device(name string) (*Device, bool) {
	d, ok := r.Devices[name]
	return d, ok
}

// Names returns the stored device names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Devices))
	for name := range r.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve picks the device to use: name when given, otherwise the default.
func (r *Registry) Resolve(name string) (string, *Device, error) {
	if name == "" {
		name = r.Default
	}
	if name == "" {
		return "", nil, ErrNoDefault
	}

	d, ok := r.Devices[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownDevice, name)
	}
	return name, d, nil
}

// SetDefault makes name the default device.
func (r *Registry) SetDefault(name string) error {
	if _, ok := r.Devices[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDevice, name)
	}
	r.Default = name
	return nil
}

// Remove deletes name, clearing the default if it pointed there.
func (r *Registry) Remove(name string) {
	delete(r.Devices, name)
	if r.Default == name {
		r.Default = ""
	}
}

// Put stores a credential under its name, stamping LastSeen. The first
// device stored becomes the default.
func (r *Registry) Put(cred session.Credential) {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	r.Devices[cred.Name] = &Device{
		IP:       cred.IP,
		MAC:      cred.MAC,
		Key:      cred.ClientKey,
		Hostname: cred.Hostname,
		LastSeen: time.Now().UTC().Truncate(time.Second),
	}
	if r.Default == "" {
		r.Default = cred.Name
	}
}

// Credential converts a stored device into a session credential.
func (d *Device) Credential(name string) session.Credential {
	return session.Credential{
		Name:      name,
		ClientKey: d.Key,
		MAC:       d.MAC,
		IP:        d.IP,
		Hostname:  d.Hostname,
	}
}
