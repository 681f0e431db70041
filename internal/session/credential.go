package session

// Credential identifies a display and the key it issued on pairing.
// It is produced by a successful handshake and persisted by the caller.
type Credential struct {
	Name      string
	ClientKey string
	MAC       string
	IP        string
	Hostname  string
}

// Target returns the address used to reach the display, preferring the IP.
func (c Credential) Target() string {
	if c.IP != "" {
		return c.IP
	}
	return c.Hostname
}

// Paired reports whether the credential carries a client key.
func (c Credential) Paired() bool {
	return c.ClientKey != ""
}
