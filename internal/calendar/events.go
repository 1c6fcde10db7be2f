package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/meetfinder/internal/booking"
	"github.com/teemow/meetfinder/internal/instrumentation"
)

// Book inserts the event and emails invitations to all attendees. Online
// meetings get a Google Meet conference.
func (c *Client) Book(ctx context.Context, req booking.Request) (*booking.Confirmation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	event := &calendar.Event{
		Summary:     req.Subject,
		Description: req.Body,
		Location:    req.Location,
		Start:       eventDateTime(req.Start, req.TimeZone),
		End:         eventDateTime(req.End, req.TimeZone),
	}
	for _, a := range req.RequiredAttendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: a})
	}
	if req.Resource != "" {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: req.Resource, Resource: true})
	}

	call := c.svc.Events.Insert(c.calendarID, event).SendUpdates("all")
	if req.IsOnlineMeeting {
		event.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		}
		call = call.ConferenceDataVersion(1)
	}

	var created *calendar.Event
	err := c.observe(ctx, instrumentation.OperationBook, func(ctx context.Context) error {
		var err error
		created, err = call.Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &booking.Confirmation{
		ID:               created.Id,
		WebLink:          created.HtmlLink,
		OnlineMeetingURL: created.HangoutLink,
	}, nil
}

func eventDateTime(t time.Time, zone string) *calendar.EventDateTime {
	if loc, err := time.LoadLocation(zone); err == nil && zone != "" {
		return &calendar.EventDateTime{DateTime: t.In(loc).Format(time.RFC3339), TimeZone: zone}
	}
	return &calendar.EventDateTime{DateTime: t.UTC().Format(time.RFC3339), TimeZone: "UTC"}
}
