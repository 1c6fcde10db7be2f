package availability

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultHorizonDays is the number of weekdays searched when none is given.
	DefaultHorizonDays = 7

	// MaxHorizonDays bounds a single query; each day costs one fetch per
	// participant.
	MaxHorizonDays = 60
)

// ValidateHorizon reports whether n working days is a searchable horizon.
func ValidateHorizon(n int) error {
	if n < 1 || n > MaxHorizonDays {
		return fmt.Errorf("horizon must be between 1 and %d working days, got %d", MaxHorizonDays, n)
	}
	return nil
}

// WorkingDays returns the first n weekdays on or after start, each at local
// midnight. Saturdays and Sundays are always skipped.
func WorkingDays(start time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	days := make([]time.Time, 0, n)
	for d := StartOfDay(start); len(days) < n; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		days = append(days, d)
	}
	return days
}

// DateKey formats t as the ISO YYYY-MM-DD key used in results.
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// NormalizeIdentities trims identities, drops empty entries and removes
// case-insensitive duplicates while keeping the first spelling and order.
func NormalizeIdentities(identities []string) []string {
	seen := make(map[string]struct{}, len(identities))
	out := make([]string, 0, len(identities))
	for _, id := range identities {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		key := strings.ToLower(id)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, id)
	}
	return out
}
