package graph

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/teemow/meetfinder/internal/availability"
	"github.com/teemow/meetfinder/internal/directory"
	"github.com/teemow/meetfinder/internal/instrumentation"
)

const defaultMaxCandidates = 10

type timeSlot struct {
	Start dateTimeTimeZone `json:"start"`
	End   dateTimeTimeZone `json:"end"`
}

type findMeetingTimesRequest struct {
	Attendees      []attendee `json:"attendees"`
	TimeConstraint struct {
		ActivityDomain string     `json:"activityDomain"`
		TimeSlots      []timeSlot `json:"timeSlots"`
	} `json:"timeConstraint"`
	MeetingDuration           string `json:"meetingDuration"`
	MaxCandidates             int    `json:"maxCandidates"`
	ReturnSuggestionReasons   bool   `json:"returnSuggestionReasons"`
	MinimumAttendeePercentage int    `json:"minimumAttendeePercentage"`
}

type findMeetingTimesResponse struct {
	EmptySuggestionsReason string `json:"emptySuggestionsReason"`
	MeetingTimeSuggestions []struct {
		Confidence       float64  `json:"confidence"`
		SuggestionReason string   `json:"suggestionReason"`
		MeetingTimeSlot  timeSlot `json:"meetingTimeSlot"`
	} `json:"meetingTimeSuggestions"`
}

// SuggestMeetingTimes asks Graph's findMeetingTimes for slots where every
// attendee is available.
func (c *Client) SuggestMeetingTimes(ctx context.Context, q directory.SuggestQuery) ([]directory.Suggestion, error) {
	attendees := availability.NormalizeIdentities(q.Attendees)
	if len(attendees) == 0 {
		return nil, availability.ErrNoParticipants
	}
	if q.Duration <= 0 || q.Duration%time.Minute != 0 {
		return nil, fmt.Errorf("meeting duration must be a positive number of minutes, got %s", q.Duration)
	}
	if !q.End.After(q.Start) {
		return nil, fmt.Errorf("search window end must be after start")
	}
	if q.MaxCandidates <= 0 {
		q.MaxCandidates = defaultMaxCandidates
	}

	var body findMeetingTimesRequest
	for _, a := range attendees {
		body.Attendees = append(body.Attendees, attendee{EmailAddress: emailAddress{Address: a}, Type: "required"})
	}
	body.TimeConstraint.ActivityDomain = "unrestricted"
	if q.WorkHoursOnly {
		body.TimeConstraint.ActivityDomain = "work"
	}
	body.TimeConstraint.TimeSlots = []timeSlot{{Start: utcDateTime(q.Start), End: utcDateTime(q.End)}}
	body.MeetingDuration = fmt.Sprintf("PT%dM", int(q.Duration/time.Minute))
	body.MaxCandidates = q.MaxCandidates
	body.ReturnSuggestionReasons = true
	body.MinimumAttendeePercentage = 100

	var resp findMeetingTimesResponse
	err := c.observe(ctx, instrumentation.OperationMeetingTimes, func(ctx context.Context) error {
		return c.Do(ctx, http.MethodPost, "/me/findMeetingTimes", nil, body, &resp)
	})
	if err != nil {
		return nil, err
	}

	out := make([]directory.Suggestion, 0, len(resp.MeetingTimeSuggestions))
	for _, s := range resp.MeetingTimeSuggestions {
		start, err := s.MeetingTimeSlot.Start.parse()
		if err != nil {
			return nil, err
		}
		end, err := s.MeetingTimeSlot.End.parse()
		if err != nil {
			return nil, err
		}
		out = append(out, directory.Suggestion{
			Start:      start,
			End:        end,
			Confidence: s.Confidence,
			Reason:     s.SuggestionReason,
		})
	}
	if len(out) == 0 && resp.EmptySuggestionsReason != "" {
		c.logger.Debug("no meeting time suggestions", "reason", resp.EmptySuggestionsReason)
	}
	return out, nil
}
