package selection

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/teemow/meetfinder/internal/availability"
)

var (
	// ErrInvalidSelection is returned when a candidate lies outside every
	// free interval or is not aligned to a slot boundary.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrIllegalState is returned when an operation is not permitted in the
	// selector's current state.
	ErrIllegalState = errors.New("illegal selection state")
)

// State is the selector's position in the Unselected → StartChosen →
// RangeChosen progression.
type State int

const (
	Unselected State = iota
	StartChosen
	RangeChosen
)

func (s State) String() string {
	switch s {
	case Unselected:
		return "unselected"
	case StartChosen:
		return "start_chosen"
	case RangeChosen:
		return "range_chosen"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Range is the immutable [Start, End) pair a booking is derived from.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start.
func (r Range) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Snapshot is a point-in-time copy of a selector's state.
type Snapshot struct {
	State    State                      `json:"-"`
	StateStr string                     `json:"state"`
	Start    *time.Time                 `json:"start,omitempty"`
	End      *time.Time                 `json:"end,omitempty"`
	Bounding *availability.FreeInterval `json:"boundingInterval,omitempty"`
}

// Selector narrows one availability result down to a single bookable range.
// It is safe for concurrent use; calls are serialized.
type Selector struct {
	mu       sync.Mutex
	result   *availability.Result
	slot     time.Duration
	state    State
	start    time.Time
	end      time.Time
	bounding availability.FreeInterval
}

// New creates a Selector over result in the Unselected state.
func New(result *availability.Result) *Selector {
	slot := availability.DefaultSlotDuration
	if result != nil && result.SlotDuration > 0 {
		slot = result.SlotDuration
	}
	return &Selector{result: result, slot: slot}
}

// Result returns the availability result the selector was built from.
func (s *Selector) Result() *availability.Result {
	return s.result
}

// SlotDuration returns the alignment step for candidates.
func (s *Selector) SlotDuration() time.Duration {
	return s.slot
}

// State returns the current state.
func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ChooseStart picks t as the meeting start. t must lie inside a free interval
// F with F.Start <= t < F.End and be a whole number of slots after F.Start.
// Any previously chosen end is cleared. On failure the state is unchanged.
func (s *Selector) ChooseStart(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	iv, ok := s.containing(t)
	if !ok {
		return fmt.Errorf("%w: %s is not inside any common free interval", ErrInvalidSelection, t.Format(time.RFC3339))
	}
	if !s.aligned(iv.Start, t) {
		return fmt.Errorf("%w: %s is not aligned to a %s slot boundary", ErrInvalidSelection, t.Format(time.RFC3339), s.slot)
	}

	s.state = StartChosen
	s.start = t
	s.bounding = iv
	s.end = time.Time{}
	return nil
}

// ChooseEnd picks t as the meeting end. A start must already be chosen;
// t must satisfy start < t <= bounding.End and be slot aligned.
func (s *Selector) ChooseEnd(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Unselected {
		return fmt.Errorf("%w: choose a start before choosing an end", ErrIllegalState)
	}
	if !t.After(s.start) {
		return fmt.Errorf("%w: end %s must be after start %s", ErrInvalidSelection, t.Format(time.RFC3339), s.start.Format(time.RFC3339))
	}
	if t.After(s.bounding.End) {
		return fmt.Errorf("%w: end %s is past the free interval ending %s", ErrInvalidSelection, t.Format(time.RFC3339), s.bounding.End.Format(time.RFC3339))
	}
	if !s.aligned(s.bounding.Start, t) {
		return fmt.Errorf("%w: %s is not aligned to a %s slot boundary", ErrInvalidSelection, t.Format(time.RFC3339), s.slot)
	}

	s.state = RangeChosen
	s.end = t
	return nil
}

// Reset returns the selector to Unselected.
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Unselected
	s.start = time.Time{}
	s.end = time.Time{}
	s.bounding = availability.FreeInterval{}
}

// StartCandidates lists every aligned start inside every free interval, in
// chronological order.
func (s *Selector) StartCandidates() []time.Time {
	if s.result == nil {
		return nil
	}
	var out []time.Time
	for _, iv := range s.result.Intervals() {
		for t := iv.Start; t.Before(iv.End); t = t.Add(s.slot) {
			out = append(out, t)
		}
	}
	return out
}

// EndCandidates lists start + k*slot for k >= 1 up to the bounding interval's
// end. It is empty in the Unselected state.
func (s *Selector) EndCandidates() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Unselected {
		return nil
	}
	var out []time.Time
	for t := s.start.Add(s.slot); !t.After(s.bounding.End); t = t.Add(s.slot) {
		out = append(out, t)
	}
	return out
}

// Snapshot returns a copy of the current state.
func (s *Selector) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{State: s.state, StateStr: s.state.String()}
	if s.state == Unselected {
		return snap
	}
	start := s.start
	bounding := s.bounding
	snap.Start = &start
	snap.Bounding = &bounding
	if s.state == RangeChosen {
		end := s.end
		snap.End = &end
	}
	return snap
}

// ToBookingRequest returns the chosen range. It fails with ErrIllegalState
// unless both start and end have been chosen.
func (s *Selector) ToBookingRequest() (Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != RangeChosen {
		return Range{}, fmt.Errorf("%w: a booking needs a chosen range, selector is %s", ErrIllegalState, s.state)
	}
	return Range{Start: s.start, End: s.end}, nil
}

func (s *Selector) containing(t time.Time) (availability.FreeInterval, bool) {
	if s.result == nil {
		return availability.FreeInterval{}, false
	}
	for _, iv := range s.result.Intervals() {
		if iv.Contains(t) {
			return iv, true
		}
	}
	return availability.FreeInterval{}, false
}

func (s *Selector) aligned(base, t time.Time) bool {
	return t.Sub(base)%s.slot == 0
}
