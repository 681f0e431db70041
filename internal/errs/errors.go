// Package errs defines the error taxonomy shared by the session, discovery
// and wake components.
package errs

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeConnection indicates resolution, socket or TLS failure, or a
	// transport that is no longer available.
	ErrTypeConnection ErrorType = iota
	// ErrTypeAuth indicates pairing never completed.
	ErrTypeAuth
	// ErrTypeCommand indicates a dispatch precondition failed, no response was
	// delivered, or an argument (such as a hardware address) was malformed.
	ErrTypeCommand
	// ErrTypeIO indicates a low-level socket fault outside the session.
	ErrTypeIO
	// ErrTypeDecode indicates an inbound frame could not be parsed.
	ErrTypeDecode
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeConnection:
		return "Connection Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeCommand:
		return "Command Error"
	case ErrTypeIO:
		return "IO Error"
	case ErrTypeDecode:
		return "Decode Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Sentinel causes used with errors.Is.
var (
	ErrNotReady        = errors.New("handshake not completed")
	ErrClosed          = errors.New("connection closed")
	ErrPairingFailed   = errors.New("pairing failed")
	ErrAlreadyActive   = errors.New("session already connected")
	ErrNoTarget        = errors.New("either IP or hostname is required")
	ErrInvalidHardware = errors.New("invalid hardware address")
	ErrReservedPrefix  = errors.New("id prefix is reserved")
)

// Error is a categorized failure with optional context.
type Error struct {
	Type    ErrorType // Category of error
	Op      string    // Operation that failed, e.g. "connect", "issue"
	Message string    // Human-readable error message
	Target  string    // Device address, when known
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Type.String())
	if e.Op != "" {
		b.WriteString(" [")
		b.WriteString(e.Op)
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// NewConnectionError creates a connection error
func NewConnectionError(op, message string, err error) *Error {
	return &Error{Type: ErrTypeConnection, Op: op, Message: message, Err: err}
}

// NewAuthError creates an authentication error
func NewAuthError(op, message string, err error) *Error {
	return &Error{Type: ErrTypeAuth, Op: op, Message: message, Err: err}
}

// NewCommandError creates a command error
func NewCommandError(op, message string, err error) *Error {
	return &Error{Type: ErrTypeCommand, Op: op, Message: message, Err: err}
}

// NewIOError creates an IO error
func NewIOError(op, message string, err error) *Error {
	return &Error{Type: ErrTypeIO, Op: op, Message: message, Err: err}
}

// NewDecodeError creates a decode error
func NewDecodeError(op, message string, err error) *Error {
	return &Error{Type: ErrTypeDecode, Op: op, Message: message, Err: err}
}

func isType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsConnectionError checks if an error is a connection error
func IsConnectionError(err error) bool { return isType(err, ErrTypeConnection) }

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool { return isType(err, ErrTypeAuth) }

// IsCommandError checks if an error is a command error
func IsCommandError(err error) bool { return isType(err, ErrTypeCommand) }

// IsIOError checks if an error is an IO error
func IsIOError(err error) bool { return isType(err, ErrTypeIO) }

// IsDecodeError checks if an error is a decode error
func IsDecodeError(err error) bool { return isType(err, ErrTypeDecode) }

// ClassifyDialError wraps a failure to open the command socket as a
// connection error with a message naming the likely cause.
func ClassifyDialError(err error, target string) *Error {
	if err == nil {
		return nil
	}

	message := "failed to open connection"

	var dnsErr *net.DNSError
	var opErr *net.OpError
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var recordErr tls.RecordHeaderError

	switch {
	case errors.As(err, &dnsErr):
		message = fmt.Sprintf("could not resolve hostname %s", dnsErr.Name)
	case errors.As(err, &certErr), errors.As(err, &unknownAuth):
		message = "TLS certificate rejected"
	case errors.As(err, &recordErr):
		message = "TLS handshake failed (is the secure port in use?)"
	case os.IsTimeout(err):
		message = "connection timed out"
	case errors.As(err, &opErr):
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			message = "device refused connection"
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			message = "host unreachable"
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			message = "network unreachable"
		}
	}

	return &Error{Type: ErrTypeConnection, Op: "connect", Message: message, Target: target, Err: err}
}

// TroubleshootingHint returns user-facing advice for an error.
func TroubleshootingHint(err error) []string {
	var e *Error
	if !errors.As(err, &e) {
		return nil
	}

	switch e.Type {
	case ErrTypeConnection:
		return []string{
			"Check that the display is powered on (use 'on' to wake it)",
			"Verify the IP address with 'scan'",
			"Newer firmware only accepts the secure port; try --ssl",
		}
	case ErrTypeAuth:
		return []string{
			"Accept the pairing prompt shown on the display",
			"Re-run 'auth' if the stored client key was revoked",
		}
	case ErrTypeCommand:
		if errors.Is(err, ErrInvalidHardware) {
			return []string{"MAC addresses look like AA:BB:CC:DD:EE:FF"}
		}
		return []string{"Run 'ops' to list available operations and their arguments"}
	case ErrTypeIO:
		return []string{"Check that multicast/broadcast traffic is allowed on this network"}
	default:
		return nil
	}
}
