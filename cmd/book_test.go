package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetfinder/internal/auth"
	"github.com/teemow/meetfinder/internal/selection"
)

func newBookOptions() *bookOptions {
	return &bookOptions{
		query: queryOptions{
			account:      auth.DefaultAccount,
			participants: alice,
			includeMe:    true,
		},
		start:   "2024-03-04T11:00",
		end:     "2024-03-04T12:30",
		subject: "Planning",
	}
}

func TestRunBook_Book(t *testing.T) {
	b := newFakeBackend()
	sc := newTestServerContext(t, b)
	opts := newBookOptions()
	opts.yolo = true
	opts.online = true

	var out bytes.Buffer
	require.NoError(t, runBook(context.Background(), &out, sc, opts))
	assert.Contains(t, out.String(), `Booked "Planning" from 2024-03-04 11:00 to 12:30 (id evt-1)`)
	assert.Contains(t, out.String(), "https://calendar.example.com/evt-1")

	booked := b.bookings()
	require.Len(t, booked, 1)
	req := booked[0]
	assert.Equal(t, "Planning", req.Subject)
	assert.Equal(t, []string{me, alice}, req.RequiredAttendees)
	assert.Equal(t, "UTC", req.TimeZone)
	assert.Equal(t, "Online", req.Location)
	assert.Equal(t, 11, req.Start.Hour())
	assert.Equal(t, 30, req.End.Minute())
}

func TestRunBook_ExportICS(t *testing.T) {
	b := newFakeBackend()
	sc := newTestServerContext(t, b)
	opts := newBookOptions()
	opts.attendees = "bob@example.com"
	opts.icsOut = filepath.Join(t.TempDir(), "planning.ics")

	var out bytes.Buffer
	require.NoError(t, runBook(context.Background(), &out, sc, opts))
	assert.Contains(t, out.String(), "Invitation written to")
	assert.Empty(t, b.bookings())

	f, err := os.Open(opts.icsOut)
	require.NoError(t, err)
	defer f.Close()

	cal, err := ical.NewDecoder(f).Decode()
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 1)

	summary, err := events[0].Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Planning", summary)

	organizer := events[0].Props.Get(ical.PropOrganizer)
	require.NotNil(t, organizer)
	assert.Equal(t, "mailto:"+me, organizer.Value)

	attendees := events[0].Props.Values(ical.PropAttendee)
	require.Len(t, attendees, 1)
	assert.Equal(t, "mailto:bob@example.com", attendees[0].Value)
}

func TestRunBook_ExportICSToStdout(t *testing.T) {
	sc := newTestServerContext(t, newFakeBackend())
	opts := newBookOptions()
	opts.icsOut = "-"

	var out bytes.Buffer
	require.NoError(t, runBook(context.Background(), &out, sc, opts))
	assert.Contains(t, out.String(), "BEGIN:VCALENDAR")
}

func TestRunBook_InvalidRange(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		wantErr error
		errText string
	}{
		{name: "start while busy", start: "2024-03-04T10:00", end: "2024-03-04T11:00", wantErr: selection.ErrInvalidSelection},
		{name: "start not aligned", start: "2024-03-04T11:10", end: "2024-03-04T12:00", wantErr: selection.ErrInvalidSelection},
		{name: "end in another interval", start: "2024-03-04T09:00", end: "2024-03-04T12:00", wantErr: selection.ErrInvalidSelection},
		{name: "weekend", start: "2024-03-09T11:00", end: "2024-03-09T12:00", wantErr: selection.ErrInvalidSelection},
		{name: "unparseable start", start: "tomorrow", end: "2024-03-04T12:00", errText: "invalid time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			sc := newTestServerContext(t, b)
			opts := newBookOptions()
			opts.yolo = true
			opts.start = tt.start
			opts.end = tt.end

			err := runBook(context.Background(), &bytes.Buffer{}, sc, opts)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.errText != "" {
				assert.ErrorContains(t, err, tt.errText)
			}
			assert.Empty(t, b.bookings())
		})
	}
}
