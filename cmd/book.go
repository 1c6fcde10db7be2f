package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/meetfinder/internal/booking"
	"github.com/teemow/meetfinder/internal/logging"
	"github.com/teemow/meetfinder/internal/selection"
	"github.com/teemow/meetfinder/internal/server"
	"github.com/teemow/meetfinder/internal/tools/common"
)

type bookOptions struct {
	query queryOptions

	start     string
	end       string
	subject   string
	body      string
	attendees string
	room      string
	online    bool
	location  string
	yolo      bool
	icsOut    string
}

func newBookCmd() *cobra.Command {
	var opts bookOptions

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book a meeting inside the participants' common free time",
		Long: `Compute availability for the day of --start, select the range from
--start to --end and either book it (--yolo) or write it as an iCalendar
invitation (--ics-out, "-" for stdout).

The range must lie inside a single free interval and both ends must fall on
slot boundaries. Attendees default to the resolved participants.`,
		Example: `  meetfinder book --participants alice@example.com --start 2024-03-04T10:00 --end 2024-03-04T11:00 \
    --subject "Planning" --ics-out planning.ics
  meetfinder book --participants alice@example.com --start 2024-03-04T10:00 --end 2024-03-04T11:00 \
    --subject "Planning" --online --yolo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			envBool(cmd, "yolo", "MEETFINDER_YOLO", &opts.yolo)
			if !opts.yolo && opts.icsOut == "" {
				return errors.New("nothing to do: pass --yolo to book the meeting or --ics-out to export it")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			sc, err := opts.query.newServerContext(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = sc.Shutdown() }()

			return runBook(ctx, cmd.OutOrStdout(), sc, &opts)
		},
	}

	opts.query.addFlags(cmd)
	cmd.Flags().StringVar(&opts.start, "start", "", "Meeting start (RFC 3339 or YYYY-MM-DDTHH:MM)")
	cmd.Flags().StringVar(&opts.end, "end", "", "Meeting end (RFC 3339 or YYYY-MM-DDTHH:MM)")
	cmd.Flags().StringVar(&opts.subject, "subject", "", "Meeting subject")
	cmd.Flags().StringVar(&opts.body, "body", "", "Invitation text")
	cmd.Flags().StringVar(&opts.attendees, "attendees", "", "Comma-separated attendees (default: the participants)")
	cmd.Flags().StringVar(&opts.room, "room", "", "Meeting room email address")
	cmd.Flags().BoolVar(&opts.online, "online", false, "Create an online meeting")
	cmd.Flags().StringVar(&opts.location, "location", "", "Location text")
	cmd.Flags().BoolVar(&opts.yolo, "yolo", false, "Write the meeting to the calendar")
	cmd.Flags().StringVar(&opts.icsOut, "ics-out", "", `Write the meeting as an .ics file ("-" for stdout)`)
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func runBook(ctx context.Context, out io.Writer, sc *server.ServerContext, opts *bookOptions) error {
	loc := sc.Scheduling().Location
	start, err := common.ParseTime(opts.start, loc)
	if err != nil {
		return err
	}
	end, err := common.ParseTime(opts.end, loc)
	if err != nil {
		return err
	}

	// The range never leaves one free interval, so the day of the start is
	// all that needs to be fetched.
	query := opts.query
	query.startDate = start.In(loc).Format(time.DateOnly)
	query.numDays = 1
	b, res, err := query.compute(ctx, sc)
	if err != nil {
		return err
	}

	sel := selection.New(res)
	if err := sel.ChooseStart(start); err != nil {
		return fmt.Errorf("start %s: %w", start.Format("2006-01-02 15:04"), err)
	}
	if err := sel.ChooseEnd(end); err != nil {
		return fmt.Errorf("end %s: %w", end.Format("2006-01-02 15:04"), err)
	}
	rng, err := sel.ToBookingRequest()
	if err != nil {
		return err
	}

	attendees := parseCommaSeparatedList(opts.attendees)
	if len(attendees) == 0 {
		attendees = res.Participants
	}
	zone := ""
	if loc != nil && loc != time.Local {
		zone = loc.String()
	}
	req := booking.FromSelection(rng, booking.Details{
		Subject:         opts.subject,
		Body:            opts.body,
		TimeZone:        zone,
		Attendees:       attendees,
		Resource:        opts.room,
		IsOnlineMeeting: opts.online,
		Location:        opts.location,
	})
	if err := req.Validate(); err != nil {
		return err
	}

	if opts.icsOut != "" {
		organizer := ""
		if me, err := b.Me(ctx); err == nil {
			organizer = me.Email
		}
		if err := writeICS(out, opts.icsOut, req, organizer); err != nil {
			return err
		}
	}

	if !opts.yolo {
		return nil
	}
	conf, err := b.Book(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to book meeting: %w", err)
	}
	sc.Logger().Info("meeting booked",
		logging.Operation("book"),
		logging.Backend(b.Name()),
		logging.Participants(req.RequiredAttendees))

	fmt.Fprintf(out, "Booked %q from %s to %s (id %s)\n", req.Subject,
		req.Start.In(loc).Format("2006-01-02 15:04"), req.End.In(loc).Format("15:04"), conf.ID)
	if conf.WebLink != "" {
		fmt.Fprintf(out, "  %s\n", conf.WebLink)
	}
	if conf.OnlineMeetingURL != "" {
		fmt.Fprintf(out, "  Join: %s\n", conf.OnlineMeetingURL)
	}
	return nil
}

func writeICS(stdout io.Writer, path string, req booking.Request, organizer string) error {
	if path == "-" {
		return booking.ExportICS(stdout, req, organizer)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := booking.ExportICS(f, req, organizer); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Invitation written to %s\n", path)
	return nil
}
