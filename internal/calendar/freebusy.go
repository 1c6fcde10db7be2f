package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/meetfinder/internal/availability"
	"github.com/teemow/meetfinder/internal/instrumentation"
)

// freeBusy.query accepts at most this many calendars per call.
const maxCalendarsPerQuery = 50

// TimeRange is a half-open busy block.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// FreeBusyInfo is one calendar's busy blocks, or the reasons it could not
// be read.
type FreeBusyInfo struct {
	Calendar string
	Busy     []TimeRange
	Errors   []string
}

// QueryFreeBusy returns busy blocks for each calendar in [timeMin, timeMax).
func (c *Client) QueryFreeBusy(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time) ([]FreeBusyInfo, error) {
	if len(calendarIDs) == 0 {
		return nil, nil
	}
	if !timeMax.After(timeMin) {
		return nil, fmt.Errorf("freebusy end %s must be after start %s", timeMax.Format(time.RFC3339), timeMin.Format(time.RFC3339))
	}

	var chunks [][]string
	for ids := calendarIDs; len(ids) > 0; {
		n := min(len(ids), maxCalendarsPerQuery)
		chunks = append(chunks, ids[:n])
		ids = ids[n:]
	}
	results := make([][]FreeBusyInfo, len(chunks))

	err := c.observe(ctx, instrumentation.OperationFreeBusy, func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for i, ids := range chunks {
			g.Go(func() error {
				infos, err := c.queryChunk(gctx, ids, timeMin, timeMax)
				if err != nil {
					return err
				}
				results[i] = infos
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}

	var out []FreeBusyInfo
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func (c *Client) queryChunk(ctx context.Context, ids []string, timeMin, timeMax time.Time) ([]FreeBusyInfo, error) {
	items := make([]*calendar.FreeBusyRequestItem, len(ids))
	for i, id := range ids {
		items[i] = &calendar.FreeBusyRequestItem{Id: id}
	}
	query := &calendar.FreeBusyRequest{
		TimeMin:  timeMin.UTC().Format(time.RFC3339),
		TimeMax:  timeMax.UTC().Format(time.RFC3339),
		TimeZone: "UTC",
		Items:    items,
	}

	result, err := c.svc.Freebusy.Query(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query freebusy: %w", err)
	}

	infos := make([]FreeBusyInfo, 0, len(result.Calendars))
	for calID, cal := range result.Calendars {
		info := FreeBusyInfo{Calendar: calID}
		for _, busy := range cal.Busy {
			start, err := time.Parse(time.RFC3339, busy.Start)
			if err != nil {
				return nil, fmt.Errorf("invalid busy start %q for %s: %w", busy.Start, calID, err)
			}
			end, err := time.Parse(time.RFC3339, busy.End)
			if err != nil {
				return nil, fmt.Errorf("invalid busy end %q for %s: %w", busy.End, calID, err)
			}
			info.Busy = append(info.Busy, TimeRange{Start: start, End: end})
		}
		for _, e := range cal.Errors {
			info.Errors = append(info.Errors, e.Reason)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// FetchFreeBusyBatch reads one day for all identities. Calendars reported
// with errors (typically notFound) or missing from the response are returned
// as unresolved.
func (c *Client) FetchFreeBusyBatch(ctx context.Context, identities []string, day time.Time, slot time.Duration) (map[string]availability.FreeBusyRow, []string, error) {
	if err := availability.ValidateSlotDuration(slot); err != nil {
		return nil, nil, err
	}
	start := availability.StartOfDay(day)
	infos, err := c.QueryFreeBusy(ctx, identities, start, start.Add(24*time.Hour))
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[string]FreeBusyInfo, len(infos))
	for _, info := range infos {
		byID[strings.ToLower(info.Calendar)] = info
	}

	rows := make(map[string]availability.FreeBusyRow, len(identities))
	var unresolved []string
	for _, id := range identities {
		info, ok := byID[strings.ToLower(id)]
		if !ok || len(info.Errors) > 0 {
			unresolved = append(unresolved, id)
			continue
		}
		rows[id] = BusyToRow(info.Busy, start, slot)
	}
	return rows, unresolved, nil
}

// FetchFreeBusy reads one identity's calendar for one day.
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

// BusyToRow rasterizes busy blocks onto the slot grid of day. A slot is Busy
// when any block overlaps it, even partially.
func BusyToRow(busy []TimeRange, day time.Time, slot time.Duration) availability.FreeBusyRow {
	n := availability.SlotsPerDay(slot)
	row := availability.NewRow(n, availability.Free)
	dayStart := availability.StartOfDay(day)
	dayEnd := dayStart.Add(time.Duration(n) * slot)

	for _, b := range busy {
		start, end := b.Start, b.End
		if start.Before(dayStart) {
			start = dayStart
		}
		if end.After(dayEnd) {
			end = dayEnd
		}
		if !end.After(start) {
			continue
		}
		first := int(start.Sub(dayStart) / slot)
		last := int((end.Sub(dayStart) + slot - 1) / slot)
		for i := first; i < last && i < n; i++ {
			row[i] = availability.Busy
		}
	}
	return row
}
