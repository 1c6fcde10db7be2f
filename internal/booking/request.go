package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/meetfinder/internal/availability"
	"github.com/teemow/meetfinder/internal/selection"
)

const (
	// DefaultBody is used when a request carries no invitation text.
	DefaultBody = "Please join us for a meeting."

	// DefaultTimeZone is sent to backends when a request does not name one.
	DefaultTimeZone = "UTC"

	onlineLocation = "Online"
	tbdLocation    = "TBD"
)

// ErrInvalidRequest is wrapped by Validate failures.
var ErrInvalidRequest = errors.New("invalid booking request")

// Request is everything a backend needs to create a calendar event.
type Request struct {
	Subject           string    `json:"subject"`
	Body              string    `json:"body,omitempty"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	TimeZone          string    `json:"timeZone,omitempty"`
	RequiredAttendees []string  `json:"requiredAttendees"`
	Resource          string    `json:"resource,omitempty"`
	IsOnlineMeeting   bool      `json:"isOnlineMeeting"`
	Location          string    `json:"location,omitempty"`
}

// Details are the caller-supplied parts of a booking that a selection does
// not determine.
type Details struct {
	Subject         string
	Body            string
	TimeZone        string
	Attendees       []string
	Resource        string
	IsOnlineMeeting bool
	Location        string
}

// FromSelection combines a chosen range with the meeting details.
func FromSelection(rng selection.Range, d Details) Request {
	return Request{
		Subject:           d.Subject,
		Body:              d.Body,
		Start:             rng.Start,
		End:               rng.End,
		TimeZone:          d.TimeZone,
		RequiredAttendees: d.Attendees,
		Resource:          d.Resource,
		IsOnlineMeeting:   d.IsOnlineMeeting,
		Location:          d.Location,
	}
}

// Validate normalizes the request in place and checks it can be booked.
// Attendees are trimmed and deduplicated; body, time zone and location get
// their defaults.
func (r *Request) Validate() error {
	r.Subject = strings.TrimSpace(r.Subject)
	if r.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidRequest)
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidRequest)
	}
	if !r.End.After(r.Start) {
		return fmt.Errorf("%w: end %s must be after start %s", ErrInvalidRequest,
			r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	}

	r.Resource = strings.TrimSpace(r.Resource)
	r.RequiredAttendees = availability.NormalizeIdentities(r.RequiredAttendees)
	for _, a := range r.RequiredAttendees {
		if !strings.Contains(a, "@") {
			return fmt.Errorf("%w: attendee %q is not an email address", ErrInvalidRequest, a)
		}
	}
	if r.Resource != "" && !strings.Contains(r.Resource, "@") {
		return fmt.Errorf("%w: resource %q is not an email address", ErrInvalidRequest, r.Resource)
	}

	if strings.TrimSpace(r.Body) == "" {
		r.Body = DefaultBody
	}
	if r.TimeZone == "" {
		r.TimeZone = DefaultTimeZone
	}
	if r.Location == "" {
		r.Location = r.defaultLocation()
	}
	return nil
}

func (r *Request) defaultLocation() string {
	switch {
	case r.Resource != "":
		return r.Resource
	case r.IsOnlineMeeting:
		return onlineLocation
	default:
		return tbdLocation
	}
}

// Duration returns End - Start.
func (r Request) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Confirmation is a backend's durable reference to a booked event.
type Confirmation struct {
	ID               string `json:"id"`
	WebLink          string `json:"webLink,omitempty"`
	OnlineMeetingURL string `json:"onlineMeetingUrl,omitempty"`
}

// Booker writes a validated request to a calendar.
type Booker interface {
	Book(ctx context.Context, req Request) (*Confirmation, error)
}
