package availability

import (
	"fmt"
	"strings"
	"time"
)

// Result maps every date of the requested horizon to its common free
// intervals. Dates with no free time map to an empty slice, never a missing key.
type Result struct {
	// Dates lists the horizon in ascending order; it fixes the grid layout.
	Dates []string `json:"dates"`

	Days map[string][]FreeInterval `json:"days"`

	SlotDuration     time.Duration `json:"slotDuration"`
	WorkingHoursOnly bool          `json:"workingHoursOnly"`

	// Participants were resolved and contributed rows.
	Participants []string `json:"participants"`

	// Unresolved identities were dropped from the computation.
	Unresolved []string `json:"unresolved,omitempty"`
}

func newResult(days []time.Time, slot time.Duration) *Result {
	r := &Result{
		Dates:        make([]string, len(days)),
		Days:         make(map[string][]FreeInterval, len(days)),
		SlotDuration: slot,
	}
	for i, d := range days {
		key := DateKey(d)
		r.Dates[i] = key
		r.Days[key] = []FreeInterval{}
	}
	return r
}

// Intervals flattens the result in date order.
func (r *Result) Intervals() []FreeInterval {
	var out []FreeInterval
	for _, key := range r.Dates {
		out = append(out, r.Days[key]...)
	}
	return out
}

// Warning returns the partial-resolution warning for this result, or nil
// when every participant resolved.
func (r *Result) Warning() *PartialResolutionWarning {
	if len(r.Unresolved) == 0 {
		return nil
	}
	return &PartialResolutionWarning{Unresolved: append([]string(nil), r.Unresolved...)}
}

// PartialResolutionWarning reports participants dropped because they could
// not be resolved. It accompanies a result rather than replacing it.
type PartialResolutionWarning struct {
	Unresolved []string
}

func (w *PartialResolutionWarning) Error() string {
	return fmt.Sprintf("%d participant(s) could not be resolved and were ignored: %s",
		len(w.Unresolved), strings.Join(w.Unresolved, ", "))
}
