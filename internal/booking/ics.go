package booking

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

const productID = "-//meetfinder//meetfinder//EN"

// ExportICS writes req as a single-event iCalendar REQUEST. Times are
// emitted in UTC so no VTIMEZONE is needed.
func ExportICS(w io.Writer, req Request, organizer string) error {
	if err := req.Validate(); err != nil {
		return err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropMethod, "REQUEST")

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uuid.NewString()+"@meetfinder")
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, req.Start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, req.End.UTC())
	event.Props.SetText(ical.PropSummary, req.Subject)
	event.Props.SetText(ical.PropDescription, req.Body)
	event.Props.SetText(ical.PropLocation, req.Location)

	if organizer = strings.TrimSpace(organizer); organizer != "" {
		prop := ical.NewProp(ical.PropOrganizer)
		prop.Value = "mailto:" + organizer
		event.Props.Set(prop)
	}
	for _, a := range req.RequiredAttendees {
		event.Props.Add(attendee(a, "INDIVIDUAL"))
	}
	if req.Resource != "" {
		event.Props.Add(attendee(req.Resource, "ROOM"))
	}

	cal.Children = append(cal.Children, event.Component)

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func attendee(email, cutype string) *ical.Prop {
	prop := ical.NewProp(ical.PropAttendee)
	prop.Value = "mailto:" + email
	role := "REQ-PARTICIPANT"
	if cutype == "ROOM" {
		role = "NON-PARTICIPANT"
	}
	prop.Params.Set(ical.ParamRole, role)
	prop.Params.Set(ical.ParamCalendarUserType, cutype)
	prop.Params.Set(ical.ParamRSVP, "TRUE")
	return prop
}
