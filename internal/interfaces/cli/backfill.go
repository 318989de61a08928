package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/SessionSync/internal/application/backfill"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/pkg/errors"
)

func newBackfillCmd(deps Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Repair missing calendar links on confirmed appointments",
		Long: "backfill runs one reconciliation pass against the configured database:\n" +
			"every confirmed appointment without a calendar link gets one.  Items\n" +
			"that cannot be repaired are listed and make the command exit non-zero.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(cmd, deps)
		},
	}
}

func runBackfill(cmd *cobra.Command, deps Dependencies) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cliCtx.Config()
	if err != nil {
		return err
	}

	log := cliCtx.Logger.Named("backfill")
	runner, closeFn, err := deps.OpenBackfill(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil {
			log.Warn("failed to close database", logging.Err(cerr))
		}
	}()

	ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
	defer cancel()

	report, runErr := runner.Run(ctx, backfill.TriggerManual)
	if report == nil {
		return runErr
	}

	if cliCtx.JSON() {
		if err := printJSON(cmd, report); err != nil {
			return err
		}
	} else {
		printReport(cmd, report)
	}

	switch {
	case runErr != nil:
		return runErr
	case len(report.Failures) > 0:
		return errors.New(errors.ErrCodeBackfillFailed,
			fmt.Sprintf("%d appointment(s) could not be repaired", len(report.Failures)))
	}
	return nil
}

func printReport(cmd *cobra.Command, r *backfill.Report) {
	w := cmd.OutOrStdout()
	renderTable(w, []string{"SCANNED", "ELIGIBLE", "FIXED", "DEGRADED", "SKIPPED", "FAILED", "DURATION"}, [][]string{{
		fmt.Sprint(r.Scanned),
		fmt.Sprint(r.Eligible),
		color.GreenString(fmt.Sprint(r.Fixed)),
		fmt.Sprint(r.Degraded),
		fmt.Sprint(r.Skipped),
		failedCount(len(r.Failures)),
		r.Duration().String(),
	}})
	if len(r.Failures) == 0 {
		return
	}

	rows := make([][]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		rows = append(rows, []string{f.ID, string(errors.GetCode(f.Err)), errorText(f.Err)})
	}
	fmt.Fprintln(w)
	renderTable(w, []string{"APPOINTMENT", "CODE", "ERROR"}, rows)
}

func failedCount(n int) string {
	if n == 0 {
		return "0"
	}
	return color.RedString(fmt.Sprint(n))
}

//Personal.AI order the ending
