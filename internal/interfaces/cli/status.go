package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/SessionSync/internal/domain/appointment"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// classification is one row of the classify command.
type classification struct {
	Input    string               `json:"input"`
	Status   appointment.Status   `json:"status,omitempty"`
	Label    string               `json:"label,omitempty"`
	Next     []appointment.Status `json:"next,omitempty"`
	Terminal bool                 `json:"terminal"`
	Error    string               `json:"error,omitempty"`
}

func newClassifyCmd() *cobra.Command {
	var locale string
	cmd := &cobra.Command{
		Use:   "classify STATUS [STATUS...]",
		Short: "Map stored status spellings to their canonical status",
		Long: "classify folds case, accents and separators and maps every known English\n" +
			"or French spelling to pending, confirmed, rejected or completed.  The\n" +
			"command fails when any input is unknown.",
		Example: `  sessionctl classify "En attente" confirmé CANCELLED --locale fr`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, args, locale)
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "en", "label locale (en, fr)")
	return cmd
}

func runClassify(cmd *cobra.Command, inputs []string, locale string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	rows := make([]classification, 0, len(inputs))
	var firstErr error
	for _, in := range inputs {
		s, err := appointment.Classify(in)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			rows = append(rows, classification{Input: in, Error: errorText(err)})
			continue
		}
		rows = append(rows, classification{
			Input:    in,
			Status:   s,
			Label:    s.Label(locale),
			Next:     s.Next(),
			Terminal: s.IsTerminal(),
		})
	}

	if cliCtx.JSON() {
		if err := printJSON(cmd, rows); err != nil {
			return err
		}
		return firstErr
	}

	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		if r.Error != "" {
			table = append(table, []string{r.Input, color.RedString("unknown"), "", "", ""})
			continue
		}
		table = append(table, []string{
			r.Input,
			colorStatus(r.Status, string(r.Status)),
			r.Label,
			joinStatuses(r.Next),
			fmt.Sprintf("%t", r.Terminal),
		})
	}
	renderTable(cmd.OutOrStdout(), []string{"INPUT", "STATUS", "LABEL", "NEXT", "TERMINAL"}, table)
	return firstErr
}

func newTransitionCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transition-check FROM TO",
		Short: "Check whether a status change is allowed",
		Long: "transition-check classifies both statuses and reports whether the\n" +
			"lifecycle allows the edge.  Allowed edges are pending->confirmed,\n" +
			"pending->rejected and confirmed->completed.  A forbidden edge exits\n" +
			"non-zero.",
		Example: "  sessionctl transition-check \"en attente\" accepté",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransitionCheck(cmd, args[0], args[1])
		},
	}
}

// transitionResult is the JSON shape of transition-check.
type transitionResult struct {
	From    appointment.Status `json:"from"`
	To      appointment.Status `json:"to"`
	Allowed bool               `json:"allowed"`
}

func runTransitionCheck(cmd *cobra.Command, rawFrom, rawTo string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	from, err := appointment.Classify(rawFrom)
	if err != nil {
		return err
	}
	to, err := appointment.Classify(rawTo)
	if err != nil {
		return err
	}
	res := transitionResult{From: from, To: to, Allowed: appointment.CanTransition(from, to)}

	if cliCtx.JSON() {
		if err := printJSON(cmd, res); err != nil {
			return err
		}
	} else if res.Allowed {
		fmt.Fprintf(cmd.OutOrStdout(), "allowed: %s -> %s\n", colorStatus(from, string(from)), colorStatus(to, string(to)))
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "forbidden: %s -> %s (allowed from %s: %s)\n",
			from, to, from, orNone(joinStatuses(from.Next())))
	}

	if !res.Allowed {
		return errors.InvalidTransition(string(from), string(to))
	}
	return nil
}

func joinStatuses(ss []appointment.Status) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

//Personal.AI order the ending
