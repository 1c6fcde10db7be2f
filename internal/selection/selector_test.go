package selection

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetfinder/internal/availability"
)

var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return monday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

// testResult has two free intervals on Monday, 09:00-10:30 and 14:00-15:00,
// and none on Tuesday.
func testResult() *availability.Result {
	return &availability.Result{
		Dates: []string{"2025-03-03", "2025-03-04"},
		Days: map[string][]availability.FreeInterval{
			"2025-03-03": {
				{Start: at(9, 0), End: at(10, 30)},
				{Start: at(14, 0), End: at(15, 0)},
			},
			"2025-03-04": {},
		},
		SlotDuration: 30 * time.Minute,
	}
}

func TestSelector_HappyPath(t *testing.T) {
	s := New(testResult())
	assert.Equal(t, Unselected, s.State())

	require.NoError(t, s.ChooseStart(at(9, 30)))
	assert.Equal(t, StartChosen, s.State())
	assert.Equal(t, []time.Time{at(10, 0), at(10, 30)}, s.EndCandidates())

	require.NoError(t, s.ChooseEnd(at(10, 30)))
	assert.Equal(t, RangeChosen, s.State())

	rng, err := s.ToBookingRequest()
	require.NoError(t, err)
	assert.Equal(t, Range{Start: at(9, 30), End: at(10, 30)}, rng)
	assert.Equal(t, time.Hour, rng.Duration())
}

func TestSelector_ChooseStart(t *testing.T) {
	tests := []struct {
		name    string
		t       time.Time
		wantErr bool
	}{
		{name: "interval start", t: at(9, 0)},
		{name: "last slot of interval", t: at(10, 0)},
		{name: "second interval", t: at(14, 30)},
		{name: "unaligned", t: at(9, 15), wantErr: true},
		{name: "interval end is exclusive", t: at(10, 30), wantErr: true},
		{name: "inside busy gap", t: at(12, 0), wantErr: true},
		{name: "day without free time", t: at(33, 0), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(testResult())
			err := s.ChooseStart(tt.t)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSelection)
				assert.Equal(t, Unselected, s.State())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StartChosen, s.State())
		})
	}
}

func TestSelector_ChooseEnd(t *testing.T) {
	tests := []struct {
		name    string
		end     time.Time
		wantErr bool
	}{
		{name: "one slot", end: at(9, 30)},
		{name: "bound end", end: at(10, 30)},
		{name: "equal to start", end: at(9, 0), wantErr: true},
		{name: "before start", end: at(8, 30), wantErr: true},
		{name: "straddles busy gap", end: at(14, 30), wantErr: true},
		{name: "unaligned", end: at(9, 45), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(testResult())
			require.NoError(t, s.ChooseStart(at(9, 0)))

			err := s.ChooseEnd(tt.end)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSelection)
				assert.Equal(t, StartChosen, s.State())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, RangeChosen, s.State())
		})
	}
}

func TestSelector_ChooseEndWithoutStart(t *testing.T) {
	s := New(testResult())
	assert.ErrorIs(t, s.ChooseEnd(at(10, 0)), ErrIllegalState)
	assert.Nil(t, s.EndCandidates())
}

func TestSelector_ToBookingRequestRequiresRange(t *testing.T) {
	s := New(testResult())
	_, err := s.ToBookingRequest()
	assert.ErrorIs(t, err, ErrIllegalState)

	require.NoError(t, s.ChooseStart(at(9, 0)))
	_, err = s.ToBookingRequest()
	assert.ErrorIs(t, err, ErrIllegalState)
}

func TestSelector_RechoosingStartClearsEnd(t *testing.T) {
	s := New(testResult())
	require.NoError(t, s.ChooseStart(at(9, 0)))
	require.NoError(t, s.ChooseEnd(at(10, 0)))

	require.NoError(t, s.ChooseStart(at(14, 0)))
	assert.Equal(t, StartChosen, s.State())
	assert.Equal(t, []time.Time{at(14, 30), at(15, 0)}, s.EndCandidates())

	snap := s.Snapshot()
	assert.Nil(t, snap.End)
	require.NotNil(t, snap.Bounding)
	assert.Equal(t, at(15, 0), snap.Bounding.End)
}

func TestSelector_ChooseEndFromRangeChosen(t *testing.T) {
	s := New(testResult())
	require.NoError(t, s.ChooseStart(at(9, 0)))
	require.NoError(t, s.ChooseEnd(at(9, 30)))
	require.NoError(t, s.ChooseEnd(at(10, 30)))

	rng, err := s.ToBookingRequest()
	require.NoError(t, err)
	assert.Equal(t, at(10, 30), rng.End)
}

func TestSelector_Reset(t *testing.T) {
	s := New(testResult())
	require.NoError(t, s.ChooseStart(at(9, 0)))
	require.NoError(t, s.ChooseEnd(at(10, 0)))

	s.Reset()
	assert.Equal(t, Unselected, s.State())
	snap := s.Snapshot()
	assert.Equal(t, "unselected", snap.StateStr)
	assert.Nil(t, snap.Start)
	assert.Nil(t, snap.Bounding)

	s.Reset()
	assert.Equal(t, Unselected, s.State())
}

func TestSelector_StartCandidates(t *testing.T) {
	s := New(testResult())
	assert.Equal(t, []time.Time{at(9, 0), at(9, 30), at(10, 0), at(14, 0), at(14, 30)}, s.StartCandidates())
}

func TestSelector_RangeStaysInsideOneInterval(t *testing.T) {
	res := testResult()
	s := New(res)
	for _, start := range s.StartCandidates() {
		require.NoError(t, s.ChooseStart(start))
		for _, end := range s.EndCandidates() {
			require.NoError(t, s.ChooseEnd(end))
			rng, err := s.ToBookingRequest()
			require.NoError(t, err)

			containing := 0
			for _, iv := range res.Intervals() {
				if !rng.Start.Before(iv.Start) && !rng.End.After(iv.End) {
					containing++
				}
			}
			assert.Equal(t, 1, containing, "range %v-%v", rng.Start, rng.End)
			assert.Zero(t, rng.Duration()%res.SlotDuration)
			assert.Positive(t, rng.Duration())
		}
	}
}

func TestSelector_ConcurrentUse(t *testing.T) {
	s := New(testResult())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = s.ChooseStart(at(9, 0))
				_ = s.ChooseEnd(at(10, 0))
			} else {
				s.Reset()
			}
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "start_chosen", StartChosen.String())
	assert.Equal(t, "range_chosen", RangeChosen.String())
	assert.Equal(t, "state(9)", State(9).String())
}
