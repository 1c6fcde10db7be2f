package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/meetfinder/internal/logging"
)

// ErrParticipantUnresolved is wrapped by fetchers when an identity cannot be
// mapped to a schedulable mailbox.
var ErrParticipantUnresolved = errors.New("participant could not be resolved")

// Fetcher retrieves one participant's occupancy for one day.
type Fetcher interface {
	FetchFreeBusy(ctx context.Context, identity string, day time.Time, slot time.Duration) (FreeBusyRow, error)
}

// BatchFetcher is implemented by backends that can fetch many schedules in a
// single round trip. Identities missing from rows are treated as unresolved.
type BatchFetcher interface {
	FetchFreeBusyBatch(ctx context.Context, identities []string, day time.Time, slot time.Duration) (rows map[string]FreeBusyRow, unresolved []string, err error)
}

// Query describes one availability request.
type Query struct {
	// Organizer is the requesting user and is included in the computation.
	Organizer    string
	Participants []string

	// StartDate defaults to today in Location.
	StartDate time.Time

	// NumWorkingDays defaults to DefaultHorizonDays.
	NumWorkingDays int

	WorkingHoursOnly bool

	// SlotDuration defaults to DefaultSlotDuration.
	SlotDuration time.Duration

	// Location is used for day boundaries; defaults to the aggregator's.
	Location *time.Location
}

// Identities returns organizer and participants normalized for fetching.
func (q Query) Identities() []string {
	return NormalizeIdentities(append([]string{q.Organizer}, q.Participants...))
}

// Observer is notified after every Compute call.
type Observer func(ctx context.Context, q Query, res *Result, elapsed time.Duration, err error)

// Aggregator turns per-participant free/busy rows into common free intervals
// over a horizon of working days.
type Aggregator struct {
	fetcher     Fetcher
	hours       WorkingHours
	location    *time.Location
	concurrency int
	now         func() time.Time
	observer    Observer
	logger      *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithWorkingHours sets the restriction used when WorkingHoursOnly is true.
func WithWorkingHours(h WorkingHours) Option {
	return func(a *Aggregator) { a.hours = h }
}

// WithLocation sets the default location for day boundaries.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.location = loc
		}
	}
}

// WithConcurrency bounds how many days are fetched in parallel.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) { a.concurrency = n }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithObserver registers a callback invoked after every computation.
func WithObserver(o Observer) Option {
	return func(a *Aggregator) { a.observer = o }
}

// WithLogger sets the logger used for partial-resolution warnings.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAggregator creates an Aggregator backed by fetcher.
func NewAggregator(fetcher Fetcher, opts ...Option) *Aggregator {
	a := &Aggregator{
		fetcher:     fetcher,
		hours:       DefaultWorkingHours,
		location:    time.Local,
		concurrency: 4,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Compute fetches rows for every participant on every working day of the
// horizon and returns the common free intervals.
//
// Unresolved participants are dropped on every day and listed in
// Result.Unresolved. ErrNoParticipants is returned when nobody is left.
// Any other fetch error fails the request.
func (a *Aggregator) Compute(ctx context.Context, q Query) (*Result, error) {
	start := time.Now()
	res, err := a.compute(ctx, &q)
	elapsed := time.Since(start)
	if err == nil {
		a.logger.Debug("availability computed",
			logging.Operation("availability.compute"),
			logging.Day(q.StartDate),
			slog.Int("days", len(res.Dates)),
			logging.Duration(elapsed))
	}
	if a.observer != nil {
		a.observer(ctx, q, res, elapsed, err)
	}
	return res, err
}

func (a *Aggregator) compute(ctx context.Context, q *Query) (*Result, error) {
	identities := q.Identities()
	if len(identities) == 0 {
		return nil, ErrNoParticipants
	}

	if q.SlotDuration == 0 {
		q.SlotDuration = DefaultSlotDuration
	}
	if err := ValidateSlotDuration(q.SlotDuration); err != nil {
		return nil, err
	}
	if q.NumWorkingDays <= 0 {
		q.NumWorkingDays = DefaultHorizonDays
	}
	if err := ValidateHorizon(q.NumWorkingDays); err != nil {
		return nil, err
	}
	if q.Location == nil {
		q.Location = a.location
	}
	if q.StartDate.IsZero() {
		q.StartDate = a.now()
	}

	window := FullDay(q.SlotDuration)
	if q.WorkingHoursOnly {
		w, err := a.hours.Window(q.SlotDuration)
		if err != nil {
			return nil, err
		}
		window = w
	}

	days := WorkingDays(q.StartDate.In(q.Location), q.NumWorkingDays)

	rowsByDay, unresolved, err := a.fetchAll(ctx, identities, days, q.SlotDuration)
	if err != nil {
		return nil, err
	}

	resolved := make([]string, 0, len(identities))
	dropped := make([]string, 0, len(unresolved))
	for _, id := range identities {
		if _, bad := unresolved[id]; bad {
			dropped = append(dropped, id)
			continue
		}
		resolved = append(resolved, id)
	}
	if len(resolved) == 0 {
		return nil, fmt.Errorf("%w: none of %d participant(s) could be resolved", ErrNoParticipants, len(identities))
	}
	if len(dropped) > 0 {
		a.logger.Warn("dropping unresolved participants",
			logging.Operation("availability.compute"),
			logging.Participants(dropped))
	}

	res := newResult(days, q.SlotDuration)
	res.WorkingHoursOnly = q.WorkingHoursOnly
	res.Participants = resolved
	if len(dropped) > 0 {
		res.Unresolved = dropped
	}

	perDay := make([][]FreeInterval, len(days))
	g := new(errgroup.Group)
	for i, d := range days {
		rows := make([]FreeBusyRow, 0, len(resolved))
		for _, id := range resolved {
			rows = append(rows, rowsByDay[i][id])
		}
		g.Go(func() error {
			ivs, err := ComputeCommonFreeIntervals(rows, d, window, q.SlotDuration)
			if err != nil {
				return fmt.Errorf("computing %s: %w", DateKey(d), err)
			}
			perDay[i] = ivs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, d := range days {
		res.Days[DateKey(d)] = perDay[i]
	}
	return res, nil
}

// fetchAll fans out one fetch task per day. An identity unresolved on any
// day is reported once in the returned set.
func (a *Aggregator) fetchAll(ctx context.Context, identities []string, days []time.Time, slot time.Duration) ([]map[string]FreeBusyRow, map[string]struct{}, error) {
	rowsByDay := make([]map[string]FreeBusyRow, len(days))
	unresolved := make(map[string]struct{})
	var mu sync.Mutex
	markUnresolved := func(ids ...string) {
		mu.Lock()
		defer mu.Unlock()
		for _, id := range ids {
			unresolved[id] = struct{}{}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if a.concurrency > 0 {
		g.SetLimit(a.concurrency)
	}
	for i, d := range days {
		g.Go(func() error {
			rows, missing, err := a.fetchDay(gctx, identities, d, slot)
			if err != nil {
				a.logger.Debug("free/busy fetch failed", logging.Day(d), logging.Err(err))
				return fmt.Errorf("fetching free/busy for %s: %w", DateKey(d), err)
			}
			rowsByDay[i] = rows
			markUnresolved(missing...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return rowsByDay, unresolved, nil
}

func (a *Aggregator) fetchDay(ctx context.Context, identities []string, d time.Time, slot time.Duration) (map[string]FreeBusyRow, []string, error) {
	if bf, ok := a.fetcher.(BatchFetcher); ok {
		rows, missing, err := bf.FetchFreeBusyBatch(ctx, identities, d, slot)
		if err != nil {
			return nil, nil, err
		}
		for _, id := range identities {
			if _, ok := rows[id]; !ok {
				missing = append(missing, id)
			}
		}
		return rows, missing, nil
	}

	rows := make(map[string]FreeBusyRow, len(identities))
	var missing []string
	for _, id := range identities {
		row, err := a.fetcher.FetchFreeBusy(ctx, id, d, slot)
		switch {
		case errors.Is(err, ErrParticipantUnresolved):
			missing = append(missing, id)
		case err != nil:
			return nil, nil, err
		default:
			rows[id] = row
		}
	}
	return rows, missing, nil
}
