package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/meetfinder/internal/auth"
	"github.com/teemow/meetfinder/internal/availability"
	"github.com/teemow/meetfinder/internal/server"
)

// schedulingOptions are the availability defaults shared by serve and the
// CLI commands.
type schedulingOptions struct {
	slotMinutes  int
	workingHours string
	horizonDays  int
	timeZone     string
}

func (o *schedulingOptions) addFlags(cmd *cobra.Command) {
	def := server.DefaultScheduling()
	cmd.Flags().IntVar(&o.slotMinutes, "slot-minutes", int(def.SlotDuration/time.Minute), "Slot granularity in minutes (must divide 24h)")
	cmd.Flags().StringVar(&o.workingHours, "working-hours", def.WorkingHours.String(), "Working hours as HH:MM-HH:MM")
	cmd.Flags().IntVar(&o.horizonDays, "horizon-days", def.HorizonDays, "Number of working days to search")
	cmd.Flags().StringVar(&o.timeZone, "timezone", "", "IANA time zone for day boundaries (default: local)")
}

// resolve applies MEETFINDER_* fallbacks and validates the result.
func (o *schedulingOptions) resolve(cmd *cobra.Command) (server.Scheduling, error) {
	if err := envInt(cmd, "slot-minutes", "MEETFINDER_SLOT_MINUTES", &o.slotMinutes); err != nil {
		return server.Scheduling{}, err
	}
	envString(cmd, "working-hours", "MEETFINDER_WORKING_HOURS", &o.workingHours)
	if err := envInt(cmd, "horizon-days", "MEETFINDER_HORIZON_DAYS", &o.horizonDays); err != nil {
		return server.Scheduling{}, err
	}
	envString(cmd, "timezone", "MEETFINDER_TIMEZONE", &o.timeZone)

	wh, err := availability.ParseWorkingHours(o.workingHours)
	if err != nil {
		return server.Scheduling{}, err
	}
	loc := time.Local
	if o.timeZone != "" {
		loc, err = time.LoadLocation(o.timeZone)
		if err != nil {
			return server.Scheduling{}, fmt.Errorf("unknown time zone %q: %w", o.timeZone, err)
		}
	}

	sched := server.Scheduling{
		SlotDuration: time.Duration(o.slotMinutes) * time.Minute,
		WorkingHours: wh,
		HorizonDays:  o.horizonDays,
		Location:     loc,
	}
	if err := sched.Validate(); err != nil {
		return server.Scheduling{}, err
	}
	return sched, nil
}

// envString overrides dst with the environment variable unless the flag was
// set on the command line.
func envString(cmd *cobra.Command, flag, key string, dst *string) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(cmd *cobra.Command, flag, key string, dst *int) error {
	if cmd.Flags().Changed(flag) {
		return nil
	}
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func envBool(cmd *cobra.Command, flag, key string, dst *bool) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		*dst = b
	}
}

// resolveBackend returns the backend named by --backend or MEETFINDER_BACKEND.
func resolveBackend(cmd *cobra.Command, backend string) (string, error) {
	envString(cmd, "backend", "MEETFINDER_BACKEND", &backend)
	switch backend = strings.ToLower(strings.TrimSpace(backend)); backend {
	case auth.BackendGraph, auth.BackendGoogle:
		return backend, nil
	default:
		return "", fmt.Errorf("unsupported backend %q (supported: graph, google)", backend)
	}
}

// localTokenProvider serves AZURE_ACCESS_TOKEN when set, then the tokens
// cached by login.
func localTokenProvider(backend string) (auth.ChainTokenProvider, error) {
	var chain auth.ChainTokenProvider
	if backend == auth.BackendGraph {
		if env := auth.NewEnvTokenProvider(); env != nil {
			chain = append(chain, env)
		}
	}
	files, err := auth.NewFileTokenProvider(os.Getenv("MEETFINDER_TOKEN_DIR"), auth.ConfigFromEnv(backend).OAuth2())
	if err != nil {
		return nil, err
	}
	return append(chain, files), nil
}

// newLogger writes text logs to stderr so stdout stays free for the stdio
// transport and command output.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
