package scheduling_tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetfinder/internal/availability"
	"github.com/teemow/meetfinder/internal/logging"
	"github.com/teemow/meetfinder/internal/server"
	"github.com/teemow/meetfinder/internal/tools/common"
)

// RegisterAvailabilityTools registers find_common_availability.
func RegisterAvailabilityTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	sched := sc.Scheduling()

	findTool := mcp.NewTool("find_common_availability",
		mcp.WithDescription("Find the time ranges where you and every participant are free, per working day. "+
			"Returns a selectionId that select_meeting_start, select_meeting_end and book_selected_meeting operate on."),
		accountOption,
		mcp.WithArray("participants",
			mcp.Required(),
			mcp.Description("Participant email addresses (array, or a comma-separated string)"),
			mcp.WithStringItems(),
		),
		mcp.WithString("startDate",
			mcp.Description("First date to search, YYYY-MM-DD (default: today)"),
		),
		mcp.WithNumber("numDays",
			mcp.Description(fmt.Sprintf("Number of working days to search, at most %d; weekends are skipped (default: %d)", availability.MaxHorizonDays, sched.HorizonDays)),
		),
		mcp.WithBoolean("workingHoursOnly",
			mcp.Description(fmt.Sprintf("Restrict results to working hours %s (default: true)", sched.WorkingHours)),
		),
		mcp.WithNumber("slotMinutes",
			mcp.Description(fmt.Sprintf("Slot size in minutes; must divide 24h (default: %d)", int(sched.SlotDuration/time.Minute))),
		),
		mcp.WithBoolean("includeMe",
			mcp.Description("Include your own calendar (default: true)"),
		),
		mcp.WithString("timeZone",
			mcp.Description("IANA time zone used for day boundaries (default: server time zone)"),
		),
	)
	addTool(s, sc, findTool, handleFindCommonAvailability)

	return nil
}

type availabilityResponse struct {
	SelectionID  string                                 `json:"selectionId"`
	TimeZone     string                                 `json:"timeZone"`
	SlotMinutes  int                                    `json:"slotMinutes"`
	Dates        []string                               `json:"dates"`
	Days         map[string][]availability.FreeInterval `json:"days"`
	Participants []string                               `json:"participants"`
	Unresolved   []string                               `json:"unresolved,omitempty"`
	Warning      string                                 `json:"warning,omitempty"`
	Grid         string                                 `json:"grid"`
}

func handleFindCommonAvailability(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.ResolveAccount(ctx, args)
	sched := sc.Scheduling()

	participants, err := common.ParseIdentityList(args["participants"], "participants")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(participants) == 0 {
		return mcp.NewToolResultError("participants is required"), nil
	}

	loc, err := requestLocation(request, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	q := availability.Query{
		Participants:     participants,
		NumWorkingDays:   request.GetInt("numDays", sched.HorizonDays),
		WorkingHoursOnly: request.GetBool("workingHoursOnly", true),
		SlotDuration:     time.Duration(request.GetInt("slotMinutes", int(sched.SlotDuration/time.Minute))) * time.Minute,
		Location:         loc,
	}
	if q.NumWorkingDays < 1 || q.NumWorkingDays > availability.MaxHorizonDays {
		return mcp.NewToolResultError(fmt.Sprintf("numDays must be between 1 and %d", availability.MaxHorizonDays)), nil
	}
	if err := availability.ValidateSlotDuration(q.SlotDuration); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s := request.GetString("startDate", ""); s != "" {
		if q.StartDate, err = common.ParseDate(s, loc); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	b, err := getBackend(ctx, account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if request.GetBool("includeMe", true) {
		me, err := b.Me(ctx)
		if err != nil {
			sc.Logger().Warn("could not resolve organizer, continuing with participants only",
				logging.Account(account), logging.Err(err))
		} else {
			q.Organizer = me.Email
		}
	}

	res, err := sc.Aggregator(b).Compute(ctx, q)
	if errors.Is(err, availability.ErrNoParticipants) {
		return mcp.NewToolResultError(fmt.Sprintf("None of the participants could be resolved: %v. Use search_users to verify the email addresses.", err)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to compute availability: %v", err)), nil
	}

	id, _ := sc.Sessions().Create(sc.SessionOwner(ctx, account), res)
	sc.Metrics().SelectionSessionOpened(ctx)

	var grid strings.Builder
	if err := availability.FormatGrid(&grid, res); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to render availability: %v", err)), nil
	}

	resp := availabilityResponse{
		SelectionID:  id,
		TimeZone:     loc.String(),
		SlotMinutes:  int(res.SlotDuration / time.Minute),
		Dates:        res.Dates,
		Days:         res.Days,
		Participants: res.Participants,
		Unresolved:   res.Unresolved,
		Grid:         grid.String(),
	}
	if warn := res.Warning(); warn != nil {
		resp.Warning = warn.Error()
	}
	return jsonResult(resp)
}
