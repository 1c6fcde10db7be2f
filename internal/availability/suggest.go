package availability

import (
	"fmt"
	"time"
)

// Candidate is a concrete meeting slot of a requested length.
type Candidate struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Suggest enumerates slot-aligned candidates of the given length inside the
// result's free intervals, in chronological order. Candidates are not ranked.
// max <= 0 means no limit.
func Suggest(r *Result, length time.Duration, max int) ([]Candidate, error) {
	if r == nil {
		return nil, nil
	}
	step := r.SlotDuration
	if err := ValidateSlotDuration(step); err != nil {
		return nil, err
	}
	if length <= 0 || length%step != 0 {
		return nil, fmt.Errorf("meeting length %s must be a positive multiple of the %s slot", length, step)
	}

	var out []Candidate
	for _, iv := range r.Intervals() {
		for t := iv.Start; !t.Add(length).After(iv.End); t = t.Add(step) {
			out = append(out, Candidate{Start: t, End: t.Add(length)})
			if max > 0 && len(out) == max {
				return out, nil
			}
		}
	}
	return out, nil
}
