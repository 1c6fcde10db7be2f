package availability

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// FormatGrid writes one column per horizon date with that day's free
// intervals stacked below it. Days without free time show "-".
func FormatGrid(w io.Writer, r *Result) error {
	if r == nil || len(r.Dates) == 0 {
		_, err := fmt.Fprintln(w, "no dates in range")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := make([]string, len(r.Dates))
	rows := 0
	for i, date := range r.Dates {
		header[i] = date
		if n := len(r.Days[date]); n > rows {
			rows = n
		}
	}
	if rows == 0 {
		rows = 1
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	cells := make([]string, len(r.Dates))
	for row := 0; row < rows; row++ {
		for i, date := range r.Dates {
			ivs := r.Days[date]
			switch {
			case row < len(ivs):
				cells[i] = ivs[row].String()
			case row == 0:
				cells[i] = "-"
			default:
				cells[i] = ""
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	if err := tw.Flush(); err != nil {
		return err
	}
	if warn := r.Warning(); warn != nil {
		_, err := fmt.Fprintf(w, "warning: %s\n", warn.Error())
		return err
	}
	return nil
}
