package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkingDays(t *testing.T) {
	friday := time.Date(2025, 3, 7, 15, 30, 0, 0, time.UTC)
	days := WorkingDays(friday, 3)

	assert.Equal(t, []string{"2025-03-07", "2025-03-10", "2025-03-11"}, dateKeys(days))
	for _, d := range days {
		assert.Zero(t, d.Hour())
	}
}

func TestWorkingDays_StartsOnWeekend(t *testing.T) {
	saturday := time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2025-03-10"}, dateKeys(WorkingDays(saturday, 1)))
}

func TestWorkingDays_DefaultHorizon(t *testing.T) {
	days := WorkingDays(monday, DefaultHorizonDays)
	assert.Len(t, days, 7)
	assert.Equal(t, "2025-03-11", DateKey(days[6]))
	assert.Nil(t, WorkingDays(monday, 0))
}

func dateKeys(days []time.Time) []string {
	keys := make([]string, len(days))
	for i, d := range days {
		keys[i] = DateKey(d)
	}
	return keys
}

func TestNormalizeIdentities(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil", in: nil, want: []string{}},
		{name: "trims and drops empty", in: []string{" a@x.com ", "", "   "}, want: []string{"a@x.com"}},
		{name: "case-insensitive dedupe keeps first", in: []string{"Bob@x.com", "a@x.com", "bob@X.com"}, want: []string{"Bob@x.com", "a@x.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeIdentities(tt.in))
		})
	}
}

func TestValidateHorizon(t *testing.T) {
	assert.NoError(t, ValidateHorizon(1))
	assert.NoError(t, ValidateHorizon(MaxHorizonDays))
	assert.ErrorContains(t, ValidateHorizon(0), "between 1 and 60")
	assert.ErrorContains(t, ValidateHorizon(MaxHorizonDays+1), "got 61")
}
