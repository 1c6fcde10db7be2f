// Package availability computes the time ranges where every participant of a
// meeting is free.
//
// Each participant's day is sampled into a FreeBusyRow of fixed-size slots.
// ComputeCommonFreeIntervals scans one day's rows inside a DayWindow and
// returns the maximal jointly-free runs as half-open FreeIntervals. The
// Aggregator drives that scan across a horizon of working days, fetching rows
// through a Fetcher and dropping participants the backend cannot resolve.
//
// Only Free counts as available. Tentative, out-of-office, working-elsewhere
// and unknown slots, as well as slots beyond the end of a short row, never do.
package availability
