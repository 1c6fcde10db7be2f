// Package selection implements the interactive narrowing of an availability
// result down to one bookable time range.
//
// A Selector moves through three states:
//
//	Unselected → StartChosen → RangeChosen
//
// ChooseStart accepts a slot-aligned instant inside one of the result's free
// intervals and remembers that interval as the bound. ChooseEnd then accepts
// any aligned instant after the start up to the bound's end, so a chosen
// range never crosses a gap where a participant is busy. Only a selector in
// RangeChosen yields a Range for booking.
//
// Store keeps one Selector per session for the MCP server, keyed by random
// ids and scoped to the account that created it.
package selection
