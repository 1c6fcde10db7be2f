// Package graph is the Microsoft Graph calendar backend.
//
// The Client reads free/busy through getSchedule, searches the user and room
// directories, asks findMeetingTimes for suggestions and books events in the
// signed-in user's calendar. Requests carry a Prefer header so Graph reports
// all times in UTC.
package graph
