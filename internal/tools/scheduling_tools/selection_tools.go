package scheduling_tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetfinder/internal/availability"
	"github.com/teemow/meetfinder/internal/booking"
	"github.com/teemow/meetfinder/internal/instrumentation"
	"github.com/teemow/meetfinder/internal/logging"
	"github.com/teemow/meetfinder/internal/selection"
	"github.com/teemow/meetfinder/internal/server"
	"github.com/teemow/meetfinder/internal/tools/common"
)

// maxListedCandidates caps candidate lists in tool output.
const maxListedCandidates = 48

var selectionIDOption = mcp.WithString("selectionId",
	mcp.Required(),
	mcp.Description("Session id returned by find_common_availability; usable by any account signed in as the same user"),
)

// RegisterSelectionTools registers the tools that walk a selection session.
func RegisterSelectionTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	startTool := mcp.NewTool("select_meeting_start",
		mcp.WithDescription("Choose the meeting start inside one of the common free intervals. Returns the valid end times."),
		accountOption,
		selectionIDOption,
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start time on a slot boundary (RFC 3339, or YYYY-MM-DDTHH:MM in timeZone)"),
		),
		mcp.WithString("timeZone",
			mcp.Description("IANA time zone for local times (default: server time zone)"),
		),
	)
	addTool(s, sc, startTool, handleSelectStart)

	endTool := mcp.NewTool("select_meeting_end",
		mcp.WithDescription("Choose the meeting end. It must be after the chosen start and inside the same free interval."),
		accountOption,
		selectionIDOption,
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("End time on a slot boundary (RFC 3339, or YYYY-MM-DDTHH:MM in timeZone)"),
		),
		mcp.WithString("timeZone",
			mcp.Description("IANA time zone for local times (default: server time zone)"),
		),
	)
	addTool(s, sc, endTool, handleSelectEnd)

	getTool := mcp.NewTool("get_selection",
		mcp.WithDescription("Show the state of a selection session and the times that can be chosen next"),
		accountOption,
		selectionIDOption,
	)
	addTool(s, sc, getTool, handleGetSelection)

	resetTool := mcp.NewTool("reset_selection",
		mcp.WithDescription("Clear the chosen start and end of a selection session"),
		accountOption,
		selectionIDOption,
	)
	addTool(s, sc, resetTool, handleResetSelection)

	icsTool := mcp.NewTool("export_meeting_ics",
		mcp.WithDescription("Export the chosen meeting range as an iCalendar (.ics) invitation without booking it"),
		accountOption,
		selectionIDOption,
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Meeting title"),
		),
		mcp.WithString("body",
			mcp.Description("Invitation text"),
		),
		mcp.WithArray("attendees",
			mcp.Description("Attendee emails (default: the session's participants)"),
			mcp.WithStringItems(),
		),
		mcp.WithString("roomEmail",
			mcp.Description("Meeting room email address"),
		),
		mcp.WithString("location",
			mcp.Description("Location text (default: the room, 'Online' or 'TBD')"),
		),
		mcp.WithBoolean("isOnlineMeeting",
			mcp.Description("Mark the meeting as online"),
		),
	)
	addTool(s, sc, icsTool, handleExportICS)

	return nil
}

type selectionView struct {
	SelectionID     string                     `json:"selectionId"`
	State           string                     `json:"state"`
	Start           *time.Time                 `json:"start,omitempty"`
	End             *time.Time                 `json:"end,omitempty"`
	Bounding        *availability.FreeInterval `json:"boundingInterval,omitempty"`
	StartCandidates []time.Time                `json:"startCandidates,omitempty"`
	EndCandidates   []time.Time                `json:"endCandidates,omitempty"`
	MoreCandidates  bool                       `json:"moreCandidates,omitempty"`
}

func newSelectionView(id string, sel *selection.Selector) selectionView {
	snap := sel.Snapshot()
	v := selectionView{
		SelectionID: id,
		State:       snap.StateStr,
		Start:       snap.Start,
		End:         snap.End,
		Bounding:    snap.Bounding,
	}
	switch snap.State {
	case selection.Unselected:
		v.StartCandidates, v.MoreCandidates = capCandidates(sel.StartCandidates())
	case selection.StartChosen:
		v.EndCandidates, v.MoreCandidates = capCandidates(sel.EndCandidates())
	}
	return v
}

func capCandidates(ts []time.Time) ([]time.Time, bool) {
	if len(ts) > maxListedCandidates {
		return ts[:maxListedCandidates], true
	}
	return ts, false
}

// lookupSelection resolves the session named by the selectionId argument.
func lookupSelection(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (string, string, *selection.Selector, *mcp.CallToolResult) {
	account := common.ResolveAccount(ctx, request.GetArguments())
	id := request.GetString("selectionId", "")
	if id == "" {
		return "", "", nil, mcp.NewToolResultError("selectionId is required")
	}
	sel, err := sc.Sessions().Get(sc.SessionOwner(ctx, account), id)
	if err != nil {
		return "", "", nil, mcp.NewToolResultError(fmt.Sprintf("%v: %s. Run find_common_availability to start a new session.", err, id))
	}
	return account, id, sel, nil
}

func recordTransition(ctx context.Context, sc *server.ServerContext, transition, id string, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	sc.Metrics().RecordSelectionTransition(ctx, transition, status)
	sc.Logger().Debug("selection transition",
		logging.Operation(transition),
		logging.Selection(id),
		logging.Status(status))
}

func selectionError(err error) *mcp.CallToolResult {
	if errors.Is(err, selection.ErrInvalidSelection) {
		return mcp.NewToolResultError(fmt.Sprintf("%v. Use get_selection to list valid times.", err))
	}
	return mcp.NewToolResultError(err.Error())
}

func handleSelectStart(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	_, id, sel, errResult := lookupSelection(ctx, request, sc)
	if errResult != nil {
		return errResult, nil
	}
	loc, err := requestLocation(request, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := requiredTime(request, "start", loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	err = sel.ChooseStart(start)
	recordTransition(ctx, sc, "choose_start", id, err)
	if err != nil {
		return selectionError(err), nil
	}
	return jsonResult(newSelectionView(id, sel))
}

func handleSelectEnd(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	_, id, sel, errResult := lookupSelection(ctx, request, sc)
	if errResult != nil {
		return errResult, nil
	}
	loc, err := requestLocation(request, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := requiredTime(request, "end", loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	err = sel.ChooseEnd(end)
	recordTransition(ctx, sc, "choose_end", id, err)
	if err != nil {
		return selectionError(err), nil
	}
	return jsonResult(newSelectionView(id, sel))
}

func handleGetSelection(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	_, id, sel, errResult := lookupSelection(ctx, request, sc)
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(newSelectionView(id, sel))
}

func handleResetSelection(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	_, id, sel, errResult := lookupSelection(ctx, request, sc)
	if errResult != nil {
		return errResult, nil
	}
	sel.Reset()
	recordTransition(ctx, sc, "reset", id, nil)
	return jsonResult(newSelectionView(id, sel))
}

// bookingDetails reads the meeting details shared by the ICS and booking
// tools. Attendees default to the participants of the session.
func bookingDetails(request mcp.CallToolRequest, defaultAttendees []string, loc *time.Location) (booking.Details, error) {
	attendees, err := common.ParseIdentityList(request.GetArguments()["attendees"], "attendees")
	if err != nil {
		return booking.Details{}, err
	}
	if len(attendees) == 0 {
		attendees = defaultAttendees
	}
	return booking.Details{
		Subject:         request.GetString("subject", ""),
		Body:            request.GetString("body", ""),
		TimeZone:        zoneName(loc),
		Attendees:       attendees,
		Resource:        request.GetString("roomEmail", ""),
		IsOnlineMeeting: request.GetBool("isOnlineMeeting", false),
		Location:        request.GetString("location", ""),
	}, nil
}

func handleExportICS(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	account, id, sel, errResult := lookupSelection(ctx, request, sc)
	if errResult != nil {
		return errResult, nil
	}

	rng, err := sel.ToBookingRequest()
	if err != nil {
		return selectionError(err), nil
	}
	details, err := bookingDetails(request, sel.Result().Participants, sc.Scheduling().Location)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	organizer := ""
	if b, err := getBackend(ctx, account, sc); err == nil {
		if me, err := b.Me(ctx); err == nil {
			organizer = me.Email
		}
	}

	var buf bytes.Buffer
	if err := booking.ExportICS(&buf, booking.FromSelection(rng, details), organizer); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to export meeting: %v", err)), nil
	}
	recordTransition(ctx, sc, "export_ics", id, nil)
	return mcp.NewToolResultText(buf.String()), nil
}
