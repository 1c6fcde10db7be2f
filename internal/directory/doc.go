// Package directory defines the optional people, room and suggestion
// capabilities a calendar backend may offer beyond free/busy and booking.
// Callers type-assert a backend against these interfaces and report
// ErrNotSupported when one is missing.
package directory
