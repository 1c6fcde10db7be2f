package booking

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportICS(t *testing.T) {
	req := Request{
		Subject:           "Planning",
		Body:              "Quarterly planning",
		Start:             start.In(time.FixedZone("CET", 3600)),
		End:               end,
		RequiredAttendees: []string{"bob@example.com", "carol@example.com"},
		Resource:          "room1@example.com",
	}

	var buf bytes.Buffer
	require.NoError(t, ExportICS(&buf, req, "alice@example.com"))

	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 1)
	ev := events[0]

	assert.NotEmpty(t, ev.Props.Get(ical.PropUID).Value)
	assert.Equal(t, "Planning", ev.Props.Get(ical.PropSummary).Value)
	assert.Equal(t, "Quarterly planning", ev.Props.Get(ical.PropDescription).Value)
	assert.Equal(t, "room1@example.com", ev.Props.Get(ical.PropLocation).Value)
	assert.Equal(t, "mailto:alice@example.com", ev.Props.Get(ical.PropOrganizer).Value)

	gotStart, err := ev.DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.True(t, gotStart.Equal(start))
	gotEnd, err := ev.DateTimeEnd(time.UTC)
	require.NoError(t, err)
	assert.True(t, gotEnd.Equal(end))

	attendees := ev.Props.Values(ical.PropAttendee)
	require.Len(t, attendees, 3)
	assert.Equal(t, "mailto:bob@example.com", attendees[0].Value)
	assert.Equal(t, "REQ-PARTICIPANT", attendees[0].Params.Get(ical.ParamRole))
	assert.Equal(t, "mailto:room1@example.com", attendees[2].Value)
	assert.Equal(t, "ROOM", attendees[2].Params.Get(ical.ParamCalendarUserType))
}

func TestExportICS_InvalidRequest(t *testing.T) {
	var buf bytes.Buffer
	err := ExportICS(&buf, Request{Start: start, End: end}, "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, buf.Len())
}
