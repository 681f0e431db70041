// Package commands holds the catalogue of display operations.
//
// Each operation maps a name to a URI, an optional correlation id prefix and
// a builder that turns positional string arguments into the request payload.
// Remote runs operations by name over anything that can issue a request,
// normally a connected *session.Session.
package commands
