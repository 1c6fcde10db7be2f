package graph

import (
	"context"
	"net/http"
	"time"

	"github.com/teemow/meetfinder/internal/booking"
	"github.com/teemow/meetfinder/internal/instrumentation"
)

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type location struct {
	DisplayName string `json:"displayName"`
}

type eventRequest struct {
	Subject               string           `json:"subject"`
	Body                  itemBody         `json:"body"`
	Start                 dateTimeTimeZone `json:"start"`
	End                   dateTimeTimeZone `json:"end"`
	Location              location         `json:"location"`
	Attendees             []attendee       `json:"attendees"`
	IsOnlineMeeting       bool             `json:"isOnlineMeeting"`
	OnlineMeetingProvider string           `json:"onlineMeetingProvider,omitempty"`
}

type eventResponse struct {
	ID            string `json:"id"`
	WebLink       string `json:"webLink"`
	OnlineMeeting *struct {
		JoinURL string `json:"joinUrl"`
	} `json:"onlineMeeting"`
}

// Book creates the event in the signed-in user's calendar and sends
// invitations to the attendees. A room is invited as a resource attendee.
func (c *Client) Book(ctx context.Context, req booking.Request) (*booking.Confirmation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := eventRequest{
		Subject:         req.Subject,
		Body:            itemBody{ContentType: "HTML", Content: req.Body},
		Start:           zonedDateTime(req.Start, req.TimeZone),
		End:             zonedDateTime(req.End, req.TimeZone),
		Location:        location{DisplayName: req.Location},
		IsOnlineMeeting: req.IsOnlineMeeting,
	}
	for _, a := range req.RequiredAttendees {
		body.Attendees = append(body.Attendees, attendee{EmailAddress: emailAddress{Address: a}, Type: "required"})
	}
	if req.Resource != "" {
		body.Attendees = append(body.Attendees, attendee{EmailAddress: emailAddress{Address: req.Resource}, Type: "resource"})
	}
	if req.IsOnlineMeeting {
		body.OnlineMeetingProvider = "teamsForBusiness"
	}

	var resp eventResponse
	err := c.observe(ctx, instrumentation.OperationBook, func(ctx context.Context) error {
		return c.Do(ctx, http.MethodPost, "/me/events", nil, body, &resp)
	})
	if err != nil {
		return nil, err
	}

	conf := &booking.Confirmation{ID: resp.ID, WebLink: resp.WebLink}
	if resp.OnlineMeeting != nil {
		conf.OnlineMeetingURL = resp.OnlineMeeting.JoinURL
	}
	return conf, nil
}

// zonedDateTime renders t in the named IANA zone. Unknown zones are sent as UTC.
func zonedDateTime(t time.Time, zone string) dateTimeTimeZone {
	loc, err := time.LoadLocation(zone)
	if err != nil || zone == "" {
		return utcDateTime(t)
	}
	return dateTimeTimeZone{DateTime: t.In(loc).Format("2006-01-02T15:04:05"), TimeZone: zone}
}
