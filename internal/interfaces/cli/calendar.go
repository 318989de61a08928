package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/turtacn/SessionSync/internal/application/calendar"
	"github.com/turtacn/SessionSync/internal/domain/appointment"
	"github.com/turtacn/SessionSync/internal/domain/timezone"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// sessionFlags describe an appointment on the command line.
type sessionFlags struct {
	id         string
	date       string
	clock      string
	hostZone   string
	viewerZone string
	host       string
	viewer     string
	duration   int
	notes      string
	meetLink   string
	label      string
}

func (s *sessionFlags) register(f *pflag.FlagSet) {
	f.StringVar(&s.id, "id", "sessionctl", "appointment id used for the event UID")
	f.StringVar(&s.date, "date", "", "session date in the host zone, YYYY-MM-DD (required)")
	f.StringVar(&s.clock, "time", "", "session start in the host zone, HH:MM (required)")
	f.StringVar(&s.hostZone, "host-zone", "", "host IANA zone (required)")
	f.StringVar(&s.viewerZone, "viewer-zone", "", "viewer IANA zone (defaults to the host zone)")
	f.StringVar(&s.host, "host", "", "host display name (required)")
	f.StringVar(&s.viewer, "viewer", "", "viewer display name (required)")
	f.IntVar(&s.duration, "duration", appointment.DefaultDurationMinutes, "session length in minutes")
	f.StringVar(&s.notes, "notes", "", "free-form notes added to the event description")
	f.StringVar(&s.meetLink, "meet-link", "", "video meeting URL")
	f.StringVar(&s.label, "label", calendar.DefaultSessionLabel, "event title prefix")
}

func (s *sessionFlags) appointment() (*appointment.Appointment, error) {
	viewerZone := s.viewerZone
	if strings.TrimSpace(viewerZone) == "" {
		viewerZone = s.hostZone
	}
	a := &appointment.Appointment{
		ID:              strings.TrimSpace(s.id),
		Date:            strings.TrimSpace(s.date),
		Time:            strings.TrimSpace(s.clock),
		HostTimezone:    strings.TrimSpace(s.hostZone),
		ViewerTimezone:  strings.TrimSpace(viewerZone),
		DurationMinutes: s.duration,
		Status:          string(appointment.StatusConfirmed),
		HostName:        s.host,
		ViewerName:      s.viewer,
		Notes:           s.notes,
		MeetLink:        s.meetLink,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// resolve validates the flags and resolves the session window.
func (s *sessionFlags) resolve(cmd *cobra.Command) (*appointment.Appointment, *calendar.LinkBuilder, time.Time, time.Time, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, time.Time{}, time.Time{}, err
	}
	a, err := s.appointment()
	if err != nil {
		return nil, nil, time.Time{}, time.Time{}, err
	}
	links := calendar.NewLinkBuilder(calendar.LinkConfig{SessionLabel: s.label})
	start, end, err := links.Window(a, timezone.NewConverter(cliCtx.Logger))
	if err != nil {
		return nil, nil, time.Time{}, time.Time{}, err
	}
	return a, links, start, end, nil
}

// linkOutput is the JSON shape of the link command.
type linkOutput struct {
	URL      string    `json:"url"`
	Degraded bool      `json:"degraded"`
	Reason   string    `json:"reason,omitempty"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

func newLinkCmd() *cobra.Command {
	s := &sessionFlags{}
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Print the add-to-calendar link of a session",
		Example: "  sessionctl link --date 2024-09-18 --time 14:00 --host-zone America/New_York \\\n" +
			"    --viewer-zone Europe/Paris --host \"Coach Martin\" --viewer \"Jean Dupont\"",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, links, start, end, err := s.resolve(cmd)
			if err != nil {
				return err
			}
			res := links.BuildLink(a, start, end)

			cliCtx, _ := GetCLIContext(cmd)
			if cliCtx.JSON() {
				return printJSON(cmd, linkOutput{
					URL: res.URL, Degraded: res.Degraded, Reason: res.Reason,
					Start: start.UTC(), End: end.UTC(),
				})
			}
			if res.Degraded {
				PrintWarning(cmd, "calendar link degraded: "+res.Reason)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.URL)
			return nil
		},
	}
	s.register(cmd.Flags())
	markRequired(cmd, "date", "time", "host-zone", "host", "viewer")
	return cmd
}

func newICSCmd() *cobra.Command {
	s := &sessionFlags{}
	var outPath string
	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Export a session as an iCalendar (.ics) document",
		Example: "  sessionctl ics --date 2024-09-18 --time 14:00 --host-zone America/New_York \\\n" +
			"    --host \"Coach Martin\" --viewer \"Jean Dupont\" --out session.ics",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, links, start, end, err := s.resolve(cmd)
			if err != nil {
				return err
			}
			doc, err := links.ExportICS(a, start, end)
			if err != nil {
				return err
			}
			if outPath == "" || outPath == "-" {
				_, err = cmd.OutOrStdout().Write(doc)
				return err
			}
			if err := os.WriteFile(outPath, doc, 0o644); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to write "+outPath)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", outPath)
			return nil
		},
	}
	s.register(cmd.Flags())
	cmd.Flags().StringVar(&outPath, "out", "-", "output file, - for stdout")
	markRequired(cmd, "date", "time", "host-zone", "host", "viewer")
	return cmd
}

func markRequired(cmd *cobra.Command, names ...string) {
	for _, n := range names {
		_ = cmd.MarkFlagRequired(n)
	}
}

//Personal.AI order the ending
