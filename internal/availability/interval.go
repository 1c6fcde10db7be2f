package availability

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoParticipants is returned when there is nobody left to compute availability for.
var ErrNoParticipants = errors.New("no resolvable participants")

// FreeInterval is a maximal half-open range [Start, End) where every
// participant is free. Intervals are immutable once produced.
type FreeInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start.
func (f FreeInterval) Duration() time.Duration {
	return f.End.Sub(f.Start)
}

// Contains reports whether Start <= t < End.
func (f FreeInterval) Contains(t time.Time) bool {
	return !t.Before(f.Start) && t.Before(f.End)
}

func (f FreeInterval) String() string {
	return fmt.Sprintf("%s-%s", f.Start.Format("15:04"), f.End.Format("15:04"))
}

// ComputeCommonFreeIntervals scans window on the given day and returns the
// maximal runs of slots where every row reports Free, in ascending order.
//
// Rows shorter than the window count as not free past their end. An empty
// rows slice is a caller error and yields ErrNoParticipants.
func ComputeCommonFreeIntervals(rows []FreeBusyRow, day time.Time, window DayWindow, slot time.Duration) ([]FreeInterval, error) {
	if len(rows) == 0 {
		return nil, ErrNoParticipants
	}
	if err := ValidateSlotDuration(slot); err != nil {
		return nil, err
	}
	if err := window.Validate(SlotsPerDay(slot)); err != nil {
		return nil, err
	}

	intervals := []FreeInterval{}
	open := -1
	for i := window.StartIdx; i < window.EndIdx; i++ {
		if jointlyFree(rows, i) {
			if open < 0 {
				open = i
			}
			continue
		}
		if open >= 0 {
			intervals = append(intervals, FreeInterval{
				Start: SlotStart(day, open, slot),
				End:   SlotStart(day, i, slot),
			})
			open = -1
		}
	}
	if open >= 0 {
		intervals = append(intervals, FreeInterval{
			Start: SlotStart(day, open, slot),
			End:   SlotStart(day, window.EndIdx, slot),
		})
	}
	return intervals, nil
}

func jointlyFree(rows []FreeBusyRow, i int) bool {
	for _, row := range rows {
		if !row.At(i).IsFree() {
			return false
		}
	}
	return true
}
