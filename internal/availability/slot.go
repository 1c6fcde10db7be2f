package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultSlotDuration is the sampling granularity used when none is given.
	DefaultSlotDuration = 30 * time.Minute

	dayLength = 24 * time.Hour
)

var (
	// ErrInvalidSlotDuration is returned for slot sizes that do not tile a day.
	ErrInvalidSlotDuration = errors.New("slot duration must be a whole number of minutes that divides 24h")

	// ErrInvalidWindow is returned for a DayWindow outside [0, slotsPerDay).
	ErrInvalidWindow = errors.New("invalid day window")

	// DefaultWorkingHours is the 09:00-17:00 restriction applied by working-hours searches.
	DefaultWorkingHours = WorkingHours{Start: 9 * time.Hour, End: 17 * time.Hour}
)

// ValidateSlotDuration checks that slot is a positive whole number of minutes
// dividing 1440 evenly.
func ValidateSlotDuration(slot time.Duration) error {
	if slot <= 0 || slot%time.Minute != 0 || dayLength%slot != 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidSlotDuration, slot)
	}
	return nil
}

// SlotsPerDay returns how many slots of the given size fit in a day.
// The slot must already be valid.
func SlotsPerDay(slot time.Duration) int {
	return int(dayLength / slot)
}

// StartOfDay returns local midnight of t's calendar date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SlotStart returns the start timestamp of slot i on the given day.
func SlotStart(day time.Time, i int, slot time.Duration) time.Time {
	return StartOfDay(day).Add(time.Duration(i) * slot)
}

// DayWindow is the half-open slot range [StartIdx, EndIdx) examined on one day.
type DayWindow struct {
	StartIdx int
	EndIdx   int
}

// FullDay returns the unrestricted window [0, slotsPerDay).
func FullDay(slot time.Duration) DayWindow {
	return DayWindow{StartIdx: 0, EndIdx: SlotsPerDay(slot)}
}

// Validate enforces 0 <= StartIdx < EndIdx <= slotsPerDay.
func (w DayWindow) Validate(slotsPerDay int) error {
	if w.StartIdx < 0 || w.StartIdx >= w.EndIdx || w.EndIdx > slotsPerDay {
		return fmt.Errorf("%w: [%d, %d) with %d slots per day", ErrInvalidWindow, w.StartIdx, w.EndIdx, slotsPerDay)
	}
	return nil
}

// WorkingHours is a daily sub-window expressed as offsets from midnight.
type WorkingHours struct {
	Start time.Duration
	End   time.Duration
}

// ParseWorkingHours parses "HH:MM-HH:MM". "24:00" is accepted as an end.
func ParseWorkingHours(s string) (WorkingHours, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return WorkingHours{}, fmt.Errorf("invalid working hours %q: expected HH:MM-HH:MM", s)
	}
	start, err := parseClock(from)
	if err != nil {
		return WorkingHours{}, fmt.Errorf("invalid working hours start: %w", err)
	}
	end, err := parseClock(to)
	if err != nil {
		return WorkingHours{}, fmt.Errorf("invalid working hours end: %w", err)
	}
	wh := WorkingHours{Start: start, End: end}
	return wh, wh.Validate()
}

func parseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "24:00" {
		return dayLength, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%q is not HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Validate requires 0 <= Start < End <= 24h.
func (w WorkingHours) Validate() error {
	if w.Start < 0 || w.End > dayLength || w.Start >= w.End {
		return fmt.Errorf("working hours must satisfy 00:00 <= start < end <= 24:00, got %s", w)
	}
	return nil
}

func (w WorkingHours) String() string {
	return fmt.Sprintf("%s-%s", formatClock(w.Start), formatClock(w.End))
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

// Window converts working hours to the slots lying entirely inside them.
// A start that is not slot aligned rounds up; an end rounds down.
func (w WorkingHours) Window(slot time.Duration) (DayWindow, error) {
	if err := ValidateSlotDuration(slot); err != nil {
		return DayWindow{}, err
	}
	if err := w.Validate(); err != nil {
		return DayWindow{}, err
	}
	win := DayWindow{
		StartIdx: int((w.Start + slot - 1) / slot),
		EndIdx:   int(w.End / slot),
	}
	if err := win.Validate(SlotsPerDay(slot)); err != nil {
		return DayWindow{}, fmt.Errorf("working hours %s contain no whole %s slot: %w", w, slot, err)
	}
	return win, nil
}
