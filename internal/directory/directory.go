package directory

import (
	"context"
	"errors"
	"time"
)

// ErrNotSupported is returned when a backend lacks a directory capability.
var ErrNotSupported = errors.New("operation not supported by this backend")

// Person is a directory entry for a user.
type Person struct {
	DisplayName       string `json:"name"`
	Email             string `json:"email"`
	UserPrincipalName string `json:"userPrincipalName,omitempty"`
}

// Room is a bookable meeting room.
type Room struct {
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	Building    string `json:"building,omitempty"`
	Capacity    int    `json:"capacity,omitempty"`
}

// Suggestion is an upstream-proposed meeting time.
type Suggestion struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason,omitempty"`
}

// SuggestQuery bounds a meeting-time suggestion request.
type SuggestQuery struct {
	Attendees     []string
	Start         time.Time
	End           time.Time
	Duration      time.Duration
	MaxCandidates int
	TimeZone      string
	WorkHoursOnly bool
}

// PeopleSearcher finds users by name or address prefix.
type PeopleSearcher interface {
	SearchUsers(ctx context.Context, query string, limit int) ([]Person, error)
}

// RoomFinder lists rooms that are free for the whole of [start, end).
type RoomFinder interface {
	FindAvailableRooms(ctx context.Context, start, end time.Time) ([]Room, error)
}

// MeetingTimeSuggester asks the backend for ranked meeting times.
type MeetingTimeSuggester interface {
	SuggestMeetingTimes(ctx context.Context, q SuggestQuery) ([]Suggestion, error)
}

// Profiler returns the signed-in user.
type Profiler interface {
	Me(ctx context.Context) (*Person, error)
}
