package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/SessionSync/internal/domain/timezone"
)

type convertOptions struct {
	clock    string
	date     string
	fromZone string
	toZone   string
}

// convertOutput is the JSON shape of the convert command.
type convertOutput struct {
	Input    convertInput `json:"input"`
	Time     string       `json:"time"`
	Date     string       `json:"date"`
	DayShift int          `json:"day_offset"`
	Fallback bool         `json:"fallback"`
	Warning  string       `json:"warning,omitempty"`
}

type convertInput struct {
	Time     string `json:"time"`
	Date     string `json:"date"`
	FromZone string `json:"from_zone"`
	ToZone   string `json:"to_zone"`
}

func newConvertCmd() *cobra.Command {
	o := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a wall-clock time from one IANA zone to another",
		Example: "  sessionctl convert --time 10:00 --date 2024-09-17 --from America/New_York --to Europe/Zurich\n" +
			"  sessionctl convert --time 23:30 --date 2024-03-09 --from America/Los_Angeles --to Asia/Tokyo -o json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.clock, "time", "", "wall-clock time, HH:MM (required)")
	f.StringVar(&o.date, "date", "", "calendar date, YYYY-MM-DD (required)")
	f.StringVar(&o.fromZone, "from", "", "source IANA zone, e.g. America/New_York (required)")
	f.StringVar(&o.toZone, "to", "", "target IANA zone, e.g. Europe/Paris (required)")
	_ = cmd.MarkFlagRequired("time")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// runConvert prints the converted time.  An unresolvable zone prints the
// input unchanged with a warning and still succeeds.
func runConvert(cmd *cobra.Command, o *convertOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	conv, err := timezone.NewConverter(cliCtx.Logger).Convert(o.clock, o.date, o.fromZone, o.toZone)
	if err != nil && !conv.Fallback {
		return err
	}

	out := convertOutput{
		Input:    convertInput{Time: o.clock, Date: o.date, FromZone: o.fromZone, ToZone: o.toZone},
		Time:     conv.Time,
		Date:     conv.Date,
		DayShift: conv.DayOffset,
		Fallback: conv.Fallback,
	}
	if conv.Fallback {
		out.Warning = errorText(err)
	}

	if cliCtx.JSON() {
		return printJSON(cmd, out)
	}
	if out.Fallback {
		PrintWarning(cmd, out.Warning+"; showing the input time unchanged")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s -> %s %s %s%s\n",
		o.date, o.clock, o.fromZone, out.Date, out.Time, o.toZone, dayShiftSuffix(out.DayShift))
	return nil
}

func dayShiftSuffix(offset int) string {
	switch {
	case offset > 0:
		return fmt.Sprintf(" (+%dd)", offset)
	case offset < 0:
		return fmt.Sprintf(" (%dd)", offset)
	default:
		return ""
	}
}

//Personal.AI order the ending
