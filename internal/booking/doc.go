// Package booking turns a chosen time range into a calendar write.
//
// Request is the backend-neutral description of a meeting. Backends
// implement Booker; ExportICS renders the same request as an iCalendar file
// for clients that book by mail instead.
package booking
