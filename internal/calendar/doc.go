// Package calendar is the Google Calendar backend.
//
// Free/busy comes from freeBusy.query and is rasterized onto the same slot
// grid the Microsoft Graph backend reports, so the availability aggregator
// treats both backends alike. Bookings are inserted into the primary
// calendar with invitations sent to every attendee.
package calendar
