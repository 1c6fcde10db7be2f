// Package scheduling_tools provides the MCP tools for finding and booking
// meetings.
//
// The read tools search the directory, compute common availability and walk
// a selection session from a start to an end slot. Each successful
// find_common_availability call opens a session keyed by the returned
// selectionId; the selection tools operate on that session.
//
// The write tools (book_selected_meeting and book_meeting) create calendar
// events and are only registered when the server is not read-only.
package scheduling_tools
