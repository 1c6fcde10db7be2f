package scheduling_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetfinder/internal/booking"
	"github.com/teemow/meetfinder/internal/logging"
	"github.com/teemow/meetfinder/internal/server"
	"github.com/teemow/meetfinder/internal/tools/common"
)

func meetingDetailOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Meeting title"),
		),
		mcp.WithString("body",
			mcp.Description("Invitation text (HTML allowed; default: 'Please join us for a meeting.')"),
		),
		mcp.WithString("roomEmail",
			mcp.Description("Email of a meeting room to book as a resource"),
		),
		mcp.WithString("location",
			mcp.Description("Location text (default: the room, 'Online' or 'TBD')"),
		),
		mcp.WithBoolean("isOnlineMeeting",
			mcp.Description("Create an online meeting (Teams or Google Meet, depending on the backend)"),
		),
		mcp.WithString("timeZone",
			mcp.Description("IANA time zone for local times and the event (default: server time zone)"),
		),
	}
}

// RegisterBookingTools registers the tools that write to the calendar.
func RegisterBookingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	selectedOpts := []mcp.ToolOption{
		mcp.WithDescription("Book the meeting range chosen in a selection session. The session is closed afterwards."),
		accountOption,
		selectionIDOption,
		mcp.WithArray("attendees",
			mcp.Description("Attendee emails (default: the session's participants)"),
			mcp.WithStringItems(),
		),
	}
	addTool(s, sc, mcp.NewTool("book_selected_meeting", append(selectedOpts, meetingDetailOptions()...)...), handleBookSelected)

	directOpts := []mcp.ToolOption{
		mcp.WithDescription("Book a meeting at an explicit start and end time"),
		accountOption,
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start time (RFC 3339, or YYYY-MM-DDTHH:MM in timeZone)"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("End time (RFC 3339, or YYYY-MM-DDTHH:MM in timeZone)"),
		),
		mcp.WithArray("attendees",
			mcp.Required(),
			mcp.Description("Attendee emails (array, or a comma-separated string)"),
			mcp.WithStringItems(),
		),
	}
	addTool(s, sc, mcp.NewTool("book_meeting", append(directOpts, meetingDetailOptions()...)...), handleBookMeeting)

	return nil
}

type bookingResponse struct {
	Message      string                `json:"message"`
	Start        time.Time             `json:"start"`
	End          time.Time             `json:"end"`
	Confirmation *booking.Confirmation `json:"confirmation"`
}

func handleBookSelected(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	account, id, sel, errResult := lookupSelection(ctx, request, sc)
	if errResult != nil {
		return errResult, nil
	}
	loc, err := requestLocation(request, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rng, err := sel.ToBookingRequest()
	recordTransition(ctx, sc, "to_booking_request", id, err)
	if err != nil {
		return selectionError(err), nil
	}
	details, err := bookingDetails(request, sel.Result().Participants, loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := book(ctx, sc, account, booking.FromSelection(rng, details))
	if err == nil && !result.IsError {
		sc.Sessions().Delete(sc.SessionOwner(ctx, account), id)
	}
	return result, err
}

func handleBookMeeting(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	account := common.ResolveAccount(ctx, request.GetArguments())

	loc, err := requestLocation(request, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := requiredTime(request, "start", loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := requiredTime(request, "end", loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	details, err := bookingDetails(request, nil, loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(details.Attendees) == 0 {
		return mcp.NewToolResultError("attendees is required"), nil
	}

	req := booking.Request{
		Subject:           details.Subject,
		Body:              details.Body,
		Start:             start,
		End:               end,
		TimeZone:          details.TimeZone,
		RequiredAttendees: details.Attendees,
		Resource:          details.Resource,
		IsOnlineMeeting:   details.IsOnlineMeeting,
		Location:          details.Location,
	}
	return book(ctx, sc, account, req)
}

// book validates and submits req. Failures are returned as tool errors so
// the session stays open for another attempt.
func book(ctx context.Context, sc *server.ServerContext, account string, req booking.Request) (*mcp.CallToolResult, error) {
	if err := req.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := getBackend(ctx, account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conf, err := b.Book(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to book meeting: %v", err)), nil
	}
	sc.Logger().Info("meeting booked",
		logging.Account(account),
		logging.Backend(b.Name()),
		logging.Participants(req.RequiredAttendees))

	return jsonResult(bookingResponse{
		Message:      "Meeting booked successfully!",
		Start:        req.Start,
		End:          req.End,
		Confirmation: conf,
	})
}
