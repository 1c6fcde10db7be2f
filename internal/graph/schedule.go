package graph

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/meetfinder/internal/availability"
	"github.com/teemow/meetfinder/internal/instrumentation"
)

const (
	// getSchedule accepts at most this many addresses per call.
	maxSchedulesPerRequest = 20

	minViewInterval = 5 * time.Minute
	maxViewInterval = 24 * time.Hour
)

// ScheduleInformation is one entry of a getSchedule response.
type ScheduleInformation struct {
	ScheduleID       string         `json:"scheduleId"`
	AvailabilityView string         `json:"availabilityView"`
	ScheduleItems    []ScheduleItem `json:"scheduleItems,omitempty"`
	Error            *ScheduleError `json:"error,omitempty"`
}

// ScheduleItem is a busy block on a schedule.
type ScheduleItem struct {
	Status string           `json:"status"`
	Start  dateTimeTimeZone `json:"start"`
	End    dateTimeTimeZone `json:"end"`
}

// ScheduleError explains why a schedule could not be read.
type ScheduleError struct {
	Message      string `json:"message"`
	ResponseCode string `json:"responseCode"`
}

type scheduleRequest struct {
	Schedules                []string         `json:"schedules"`
	StartTime                dateTimeTimeZone `json:"startTime"`
	EndTime                  dateTimeTimeZone `json:"endTime"`
	AvailabilityViewInterval int              `json:"availabilityViewInterval"`
}

// GetSchedules returns the availability of each address in [start, end)
// sampled every interval. Large address lists are split into several
// concurrent requests.
func (c *Client) GetSchedules(ctx context.Context, identities []string, start, end time.Time, interval time.Duration) ([]ScheduleInformation, error) {
	if len(identities) == 0 {
		return nil, nil
	}
	if interval < minViewInterval || interval > maxViewInterval || interval%time.Minute != 0 {
		return nil, fmt.Errorf("availability view interval must be whole minutes between %s and %s, got %s", minViewInterval, maxViewInterval, interval)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("schedule end %s must be after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	chunks := chunk(identities, maxSchedulesPerRequest)
	results := make([][]ScheduleInformation, len(chunks))

	err := c.observe(ctx, instrumentation.OperationGetSchedule, func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for i, ids := range chunks {
			g.Go(func() error {
				body := scheduleRequest{
					Schedules:                ids,
					StartTime:                utcDateTime(start),
					EndTime:                  utcDateTime(end),
					AvailabilityViewInterval: int(interval / time.Minute),
				}
				var resp struct {
					Value []ScheduleInformation `json:"value"`
				}
				if err := c.Do(gctx, http.MethodPost, "/me/calendar/getSchedule", nil, body, &resp); err != nil {
					return err
				}
				results[i] = resp.Value
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}

	var out []ScheduleInformation
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// FetchFreeBusyBatch reads one day of schedules for all identities in a
// single logical call. Identities with a schedule error or an empty view
// are returned as unresolved.
func (c *Client) FetchFreeBusyBatch(ctx context.Context, identities []string, day time.Time, slot time.Duration) (map[string]availability.FreeBusyRow, []string, error) {
	if err := availability.ValidateSlotDuration(slot); err != nil {
		return nil, nil, err
	}
	start := availability.StartOfDay(day)
	infos, err := c.GetSchedules(ctx, identities, start, start.Add(24*time.Hour), slot)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[string]ScheduleInformation, len(infos))
	for _, info := range infos {
		byID[strings.ToLower(info.ScheduleID)] = info
	}

	rows := make(map[string]availability.FreeBusyRow, len(identities))
	var unresolved []string
	for _, id := range identities {
		info, ok := byID[strings.ToLower(id)]
		if !ok || info.Error != nil || info.AvailabilityView == "" {
			unresolved = append(unresolved, id)
			continue
		}
		rows[id] = availability.ParseRow(info.AvailabilityView)
	}
	return rows, unresolved, nil
}

// FetchFreeBusy reads one identity's schedule for one day.
func (c *Client) FetchFreeBusy(ctx context.Context, identity string, day time.Time, slot time.Duration) (availability.FreeBusyRow, error) {
	rows, _, err := c.FetchFreeBusyBatch(ctx, []string{identity}, day, slot)
	if err != nil {
		return nil, err
	}
	row, ok := rows[identity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", availability.ErrParticipantUnresolved, identity)
	}
	return row, nil
}

func chunk(items []string, size int) [][]string {
	var out [][]string
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
