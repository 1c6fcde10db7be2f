package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teemow/meetfinder/internal/directory"
	"github.com/teemow/meetfinder/internal/instrumentation"
)

const maxRooms = 100

type place struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
	Building     string `json:"building"`
	Capacity     int    `json:"capacity"`
}

// ListRooms returns the tenant's room directory.
func (c *Client) ListRooms(ctx context.Context) ([]directory.Room, error) {
	params := url.Values{}
	params.Set("$top", fmt.Sprint(maxRooms))

	var resp struct {
		Value []place `json:"value"`
	}
	err := c.observe(ctx, instrumentation.OperationListRooms, func(ctx context.Context) error {
		return c.Do(ctx, http.MethodGet, "/places/microsoft.graph.room", params, nil, &resp)
	})
	if err != nil {
		return nil, err
	}

	rooms := make([]directory.Room, 0, len(resp.Value))
	for _, p := range resp.Value {
		if p.EmailAddress == "" {
			continue
		}
		rooms = append(rooms, directory.Room{
			DisplayName: p.DisplayName,
			Email:       p.EmailAddress,
			Building:    p.Building,
			Capacity:    p.Capacity,
		})
	}
	return rooms, nil
}

// FindAvailableRooms returns the rooms that are free for all of [start, end).
func (c *Client) FindAvailableRooms(ctx context.Context, start, end time.Time) ([]directory.Room, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("end %s must be after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	rooms, err := c.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return []directory.Room{}, nil
	}

	emails := make([]string, len(rooms))
	for i, r := range rooms {
		emails[i] = r.Email
	}

	infos, err := c.GetSchedules(ctx, emails, start, end, roomViewInterval(end.Sub(start)))
	if err != nil {
		return nil, err
	}

	free := make(map[string]bool, len(infos))
	for _, info := range infos {
		free[strings.ToLower(info.ScheduleID)] = info.Error == nil && allFree(info.AvailabilityView)
	}

	available := []directory.Room{}
	for _, r := range rooms {
		if free[strings.ToLower(r.Email)] {
			available = append(available, r)
		}
	}
	return available, nil
}

// roomViewInterval picks the coarsest sampling step that still tiles the
// requested range exactly, so no slot reaches past its end.
func roomViewInterval(d time.Duration) time.Duration {
	for _, step := range []time.Duration{60 * time.Minute, 30 * time.Minute, 15 * time.Minute} {
		if d%step == 0 {
			return step
		}
	}
	return minViewInterval
}

func allFree(view string) bool {
	if view == "" {
		return false
	}
	for i := 0; i < len(view); i++ {
		if view[i] != '0' {
			return false
		}
	}
	return true
}
