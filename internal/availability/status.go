package availability

import "strings"

// Status is one participant's occupancy for a single slot.
type Status int

const (
	Free Status = iota
	Tentative
	Busy
	OutOfOffice
	WorkingElsewhere
	Unknown
)

var statusNames = [...]string{
	Free:             "free",
	Tentative:        "tentative",
	Busy:             "busy",
	OutOfOffice:      "oof",
	WorkingElsewhere: "workingElsewhere",
	Unknown:          "unknown",
}

func (s Status) String() string {
	if s < Free || s > Unknown {
		return statusNames[Unknown]
	}
	return statusNames[s]
}

// IsFree reports whether the slot counts as available. Only Free does;
// tentative, out-of-office, working-elsewhere and unknown codes do not.
func (s Status) IsFree() bool {
	return s == Free
}

// ParseStatus maps an availability-view digit to a Status.
//
//	'0' free, '1' tentative, '2' busy, '3' out of office, '4' working elsewhere
//
// Any other byte yields Unknown.
func ParseStatus(c byte) Status {
	switch c {
	case '0':
		return Free
	case '1':
		return Tentative
	case '2':
		return Busy
	case '3':
		return OutOfOffice
	case '4':
		return WorkingElsewhere
	default:
		return Unknown
	}
}

// FreeBusyRow is one participant's per-day occupancy indexed by slot.
type FreeBusyRow []Status

// ParseRow converts an availability-view string such as "0022100" into a row.
func ParseRow(view string) FreeBusyRow {
	row := make(FreeBusyRow, len(view))
	for i := 0; i < len(view); i++ {
		row[i] = ParseStatus(view[i])
	}
	return row
}

// NewRow returns a row of n slots all set to status.
func NewRow(n int, status Status) FreeBusyRow {
	row := make(FreeBusyRow, n)
	for i := range row {
		row[i] = status
	}
	return row
}

// At returns the status at slot i. Indices outside the row are Unknown,
// so missing data is never reported as free.
func (r FreeBusyRow) At(i int) Status {
	if i < 0 || i >= len(r) {
		return Unknown
	}
	return r[i]
}

// String renders the row back into availability-view digits, with '?' for Unknown.
func (r FreeBusyRow) String() string {
	var sb strings.Builder
	sb.Grow(len(r))
	for _, s := range r {
		if s >= Free && s < Unknown {
			sb.WriteByte(byte('0' + s))
		} else {
			sb.WriteByte('?')
		}
	}
	return sb.String()
}
