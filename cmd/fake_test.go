package cmd

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teemow/meetfinder/internal/auth"
	"github.com/teemow/meetfinder/internal/availability"
	"github.com/teemow/meetfinder/internal/booking"
	"github.com/teemow/meetfinder/internal/directory"
	"github.com/teemow/meetfinder/internal/logging"
	"github.com/teemow/meetfinder/internal/server"
)

const (
	me    = "me@example.com"
	alice = "alice@example.com"
)

// fakeBackend reports busy hours per identity; unknown identities are
// unresolved.
type fakeBackend struct {
	busy map[string][][2]int

	mu     sync.Mutex
	booked []booking.Request
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{busy: map[string][][2]int{
		me:    nil,
		alice: {{10, 11}},
	}}
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Me(context.Context) (*directory.Person, error) {
	return &directory.Person{DisplayName: "Me", Email: me}, nil
}

func (b *fakeBackend) FetchFreeBusy(_ context.Context, identity string, _ time.Time, slot time.Duration) (availability.FreeBusyRow, error) {
	blocks, ok := b.busy[strings.ToLower(identity)]
	if !ok {
		return nil, availability.ErrParticipantUnresolved
	}
	row := availability.NewRow(availability.SlotsPerDay(slot), availability.Free)
	for _, blk := range blocks {
		for i := int(time.Duration(blk[0]) * time.Hour / slot); i < int(time.Duration(blk[1])*time.Hour/slot); i++ {
			row[i] = availability.Busy
		}
	}
	return row, nil
}

func (b *fakeBackend) Book(_ context.Context, req booking.Request) (*booking.Confirmation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.booked = append(b.booked, req)
	return &booking.Confirmation{ID: "evt-1", WebLink: "https://calendar.example.com/evt-1"}, nil
}

func (b *fakeBackend) bookings() []booking.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]booking.Request(nil), b.booked...)
}

func newTestServerContext(t *testing.T, b server.Backend) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), server.Config{
		Backend: auth.BackendGraph,
		Scheduling: server.Scheduling{
			SlotDuration: 30 * time.Minute,
			WorkingHours: availability.DefaultWorkingHours,
			HorizonDays:  2,
			Location:     time.UTC,
		},
		ReadOnly: true,
		Logger:   logging.Discard().Logger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	if b != nil {
		sc.SetBackendForAccount(auth.DefaultAccount, b)
	}
	return sc
}
