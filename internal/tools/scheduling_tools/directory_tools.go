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
	"github.com/teemow/meetfinder/internal/directory"
	"github.com/teemow/meetfinder/internal/server"
	"github.com/teemow/meetfinder/internal/tools/common"
)

const (
	defaultSearchLimit    = 10
	defaultMaxSuggestions = 10
)

// RegisterDirectoryTools registers people search, room search and meeting
// time suggestions.
func RegisterDirectoryTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	searchUsersTool := mcp.NewTool("search_users",
		mcp.WithDescription("Search for users in the organization by name or email prefix. Use this to verify a person's exact email address before checking availability or booking."),
		accountOption,
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Start of a display name or email address (e.g. 'John', 'j.smith')"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of users to return (default: 10)"),
		),
	)
	addTool(s, sc, searchUsersTool, handleSearchUsers)

	findRoomsTool := mcp.NewTool("find_available_rooms",
		mcp.WithDescription("Find meeting rooms that are free for the whole of a time range"),
		accountOption,
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Range start (RFC 3339, or YYYY-MM-DDTHH:MM in timeZone)"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("Range end (RFC 3339, or YYYY-MM-DDTHH:MM in timeZone)"),
		),
		mcp.WithString("timeZone",
			mcp.Description("IANA time zone for local times (default: server time zone)"),
		),
	)
	addTool(s, sc, findRoomsTool, handleFindAvailableRooms)

	suggestTool := mcp.NewTool("suggest_meeting_times",
		mcp.WithDescription("Suggest meeting times where all attendees are free. Uses the calendar service's own ranking when available, otherwise the earliest common free slots."),
		accountOption,
		mcp.WithArray("attendees",
			mcp.Required(),
			mcp.Description("Attendee email addresses (array, or a comma-separated string)"),
			mcp.WithStringItems(),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Search window start (RFC 3339, or YYYY-MM-DDTHH:MM in timeZone)"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("Search window end (RFC 3339, or YYYY-MM-DDTHH:MM in timeZone)"),
		),
		mcp.WithNumber("durationMinutes",
			mcp.Description("Meeting length in minutes (default: the slot size)"),
		),
		mcp.WithNumber("maxCandidates",
			mcp.Description("Maximum number of suggestions (default: 10)"),
		),
		mcp.WithBoolean("workingHoursOnly",
			mcp.Description("Only suggest times inside working hours (default: true)"),
		),
		mcp.WithString("timeZone",
			mcp.Description("IANA time zone for local times (default: server time zone)"),
		),
	)
	addTool(s, sc, suggestTool, handleSuggestMeetingTimes)

	return nil
}

func handleSearchUsers(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	account := common.ResolveAccount(ctx, request.GetArguments())

	query := strings.TrimSpace(request.GetString("query", ""))
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	limit := request.GetInt("limit", defaultSearchLimit)

	b, err := getBackend(ctx, account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	searcher, ok := b.(directory.PeopleSearcher)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("search_users: %v (%s)", directory.ErrNotSupported, b.Name())), nil
	}

	people, err := searcher.SearchUsers(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to search users: %v", err)), nil
	}
	if len(people) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No users found matching '%s'.", query)), nil
	}
	return jsonResult(people)
}

func handleFindAvailableRooms(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
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
	if !end.After(start) {
		return mcp.NewToolResultError("end must be after start"), nil
	}

	b, err := getBackend(ctx, account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	finder, ok := b.(directory.RoomFinder)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("find_available_rooms: %v (%s)", directory.ErrNotSupported, b.Name())), nil
	}

	rooms, err := finder.FindAvailableRooms(ctx, start, end)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to find rooms: %v", err)), nil
	}
	if len(rooms) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No meeting rooms are free from %s to %s.",
			start.In(loc).Format("2006-01-02 15:04"), end.In(loc).Format("15:04"))), nil
	}
	return jsonResult(rooms)
}

type suggestionsResponse struct {
	Source      string                 `json:"source"`
	Suggestions []directory.Suggestion `json:"suggestions"`
	Warning     string                 `json:"warning,omitempty"`
}

func handleSuggestMeetingTimes(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.ResolveAccount(ctx, args)

	attendees, err := common.ParseIdentityList(args["attendees"], "attendees")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(attendees) == 0 {
		return mcp.NewToolResultError("attendees is required"), nil
	}
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
	if !end.After(start) {
		return mcp.NewToolResultError("end must be after start"), nil
	}

	sched := sc.Scheduling()
	length := time.Duration(request.GetInt("durationMinutes", int(sched.SlotDuration/time.Minute))) * time.Minute
	if length <= 0 {
		return mcp.NewToolResultError("durationMinutes must be positive"), nil
	}
	maxCandidates := request.GetInt("maxCandidates", defaultMaxSuggestions)
	workingHoursOnly := request.GetBool("workingHoursOnly", true)

	b, err := getBackend(ctx, account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if suggester, ok := b.(directory.MeetingTimeSuggester); ok {
		suggestions, err := suggester.SuggestMeetingTimes(ctx, directory.SuggestQuery{
			Attendees:     attendees,
			Start:         start,
			End:           end,
			Duration:      length,
			MaxCandidates: maxCandidates,
			TimeZone:      zoneName(loc),
			WorkHoursOnly: workingHoursOnly,
		})
		if err == nil {
			return jsonResult(suggestionsResponse{Source: b.Name(), Suggestions: suggestions})
		}
		if !errors.Is(err, directory.ErrNotSupported) {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to suggest meeting times: %v", err)), nil
		}
	}

	resp, err := suggestFromAvailability(ctx, sc, b, attendees, start, end, length, maxCandidates, workingHoursOnly, loc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to suggest meeting times: %v", err)), nil
	}
	return jsonResult(resp)
}

// suggestFromAvailability enumerates the earliest common free slots in
// [start, end) for backends without a suggestion service.
func suggestFromAvailability(ctx context.Context, sc *server.ServerContext, b server.Backend, attendees []string, start, end time.Time, length time.Duration, maxCandidates int, workingHoursOnly bool, loc *time.Location) (*suggestionsResponse, error) {
	slot := sc.Scheduling().SlotDuration
	if length%slot != 0 {
		slot = gcdSlot(length, slot)
	}

	days := 0
	for d := availability.StartOfDay(start.In(loc)); d.Before(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	if days == 0 {
		return &suggestionsResponse{Source: "availability", Suggestions: []directory.Suggestion{}}, nil
	}

	res, err := sc.Aggregator(b).Compute(ctx, availability.Query{
		Participants:     attendees,
		StartDate:        start.In(loc),
		NumWorkingDays:   days,
		WorkingHoursOnly: workingHoursOnly,
		SlotDuration:     slot,
		Location:         loc,
	})
	if err != nil {
		return nil, err
	}

	candidates, err := availability.Suggest(res, length, 0)
	if err != nil {
		return nil, err
	}
	resp := &suggestionsResponse{Source: "availability", Suggestions: []directory.Suggestion{}}
	for _, c := range candidates {
		if c.Start.Before(start) || c.End.After(end) {
			continue
		}
		resp.Suggestions = append(resp.Suggestions, directory.Suggestion{Start: c.Start, End: c.End, Confidence: 100})
		if maxCandidates > 0 && len(resp.Suggestions) == maxCandidates {
			break
		}
	}
	if warn := res.Warning(); warn != nil {
		resp.Warning = warn.Error()
	}
	return resp, nil
}

// gcdSlot returns the largest valid slot dividing both durations.
func gcdSlot(a, b time.Duration) time.Duration {
	for b != 0 {
		a, b = b, a%b
	}
	if availability.ValidateSlotDuration(a) != nil {
		return time.Minute
	}
	return a
}
