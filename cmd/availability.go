package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/meetfinder/internal/auth"
	"github.com/teemow/meetfinder/internal/availability"
	"github.com/teemow/meetfinder/internal/logging"
	"github.com/teemow/meetfinder/internal/server"
	"github.com/teemow/meetfinder/internal/tools/common"
)

// queryOptions select whose calendars are read and over which days. They
// are shared by availability and book.
type queryOptions struct {
	backend      string
	account      string
	participants string
	startDate    string
	allDay       bool
	includeMe    bool
	debug        bool

	// numDays overrides the scheduling horizon when positive.
	numDays int

	scheduling schedulingOptions
}

func (o *queryOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.backend, "backend", auth.BackendGraph, "Calendar backend: graph or google")
	cmd.Flags().StringVar(&o.account, "account", auth.DefaultAccount, "Cached login to use")
	cmd.Flags().StringVar(&o.participants, "participants", "", "Comma-separated participant email addresses")
	cmd.Flags().StringVar(&o.startDate, "start-date", "", "First day to search, YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&o.allDay, "all-day", false, "Search the whole day instead of working hours only")
	cmd.Flags().BoolVar(&o.includeMe, "include-me", true, "Include the signed-in user's own calendar")
	cmd.Flags().BoolVar(&o.debug, "debug", false, "Enable debug logging")
	o.scheduling.addFlags(cmd)
}

// newServerContext resolves backend and scheduling defaults and builds a
// read-only server context backed by the local token cache.
func (o *queryOptions) newServerContext(ctx context.Context, cmd *cobra.Command) (*server.ServerContext, error) {
	backend, err := resolveBackend(cmd, o.backend)
	if err != nil {
		return nil, err
	}
	sched, err := o.scheduling.resolve(cmd)
	if err != nil {
		return nil, err
	}
	tokens, err := localTokenProvider(backend)
	if err != nil {
		return nil, err
	}
	return server.NewServerContext(ctx, server.Config{
		Backend:       backend,
		TokenProvider: tokens,
		Scheduling:    sched,
		ReadOnly:      true,
		Logger:        newLogger(o.debug),
	})
}

// compute runs one availability query through the server context.
func (o *queryOptions) compute(ctx context.Context, sc *server.ServerContext) (server.Backend, *availability.Result, error) {
	b, err := sc.BackendForAccount(ctx, o.account)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (run \"meetfinder login --backend %s --account %s\" first)", err, sc.BackendName(), o.account)
	}

	sched := sc.Scheduling()
	q := availability.Query{
		Participants:     parseCommaSeparatedList(o.participants),
		NumWorkingDays:   sched.HorizonDays,
		WorkingHoursOnly: !o.allDay,
		SlotDuration:     sched.SlotDuration,
		Location:         sched.Location,
	}
	if o.numDays > 0 {
		q.NumWorkingDays = o.numDays
	}
	if o.startDate != "" {
		if q.StartDate, err = common.ParseDate(o.startDate, sched.Location); err != nil {
			return nil, nil, err
		}
	}
	if o.includeMe {
		me, err := b.Me(ctx)
		if err != nil {
			sc.Logger().Warn("could not look up the signed-in user, continuing without them",
				logging.Account(o.account), logging.Err(err))
		} else {
			q.Organizer = me.Email
		}
	}

	res, err := sc.Aggregator(b).Compute(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	return b, res, nil
}

func newAvailabilityCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Print the times when all participants are free",
		Long: `Read the free/busy schedules of the participants and print one column
per working day listing the intervals where everybody is free.

Participants that cannot be resolved are reported and left out.`,
		Example: `  meetfinder availability --participants alice@example.com,bob@example.com
  meetfinder availability --participants alice@example.com --start-date 2024-03-04 --horizon-days 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			sc, err := opts.newServerContext(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = sc.Shutdown() }()

			return runAvailability(ctx, cmd.OutOrStdout(), sc, &opts)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

// runAvailability prints the grid; FormatGrid appends the partial
// resolution warning when participants were dropped.
func runAvailability(ctx context.Context, out io.Writer, sc *server.ServerContext, opts *queryOptions) error {
	_, res, err := opts.compute(ctx, sc)
	if err != nil {
		return err
	}
	return availability.FormatGrid(out, res)
}
