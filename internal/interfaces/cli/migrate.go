package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/pkg/errors"
)

func newMigrateCmd(deps Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, deps, func(m SchemaMigrator) error {
				if err := m.Rollback(steps); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd, deps, func(m SchemaMigrator) error {
					if err := m.Up(); err != nil {
						return err
					}
					return printVersion(cmd, m)
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd, deps, func(m SchemaMigrator) error {
					return printVersion(cmd, m)
				})
			},
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Record VERSION as applied without running migrations",
			Long:  "force clears a dirty schema after a failed migration was repaired by hand.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil || version < 0 {
					return errors.Validation(fmt.Sprintf("version must be a non-negative integer, got %q", args[0]))
				}
				return withMigrator(cmd, deps, func(m SchemaMigrator) error {
					if err := m.Force(version); err != nil {
						return err
					}
					return printVersion(cmd, m)
				})
			},
		},
	)
	return cmd
}

func withMigrator(cmd *cobra.Command, deps Dependencies, fn func(SchemaMigrator) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cliCtx.Config()
	if err != nil {
		return err
	}
	log := cliCtx.Logger.Named("migrate")
	m, err := deps.OpenMigrator(cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); cerr != nil {
			log.Warn("failed to close migrator", logging.Err(cerr))
		}
	}()
	return fn(m)
}

// schemaVersion is the JSON shape of the migrate commands.
type schemaVersion struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func printVersion(cmd *cobra.Command, m SchemaMigrator) error {
	version, dirty, err := m.Status()
	if err != nil {
		return err
	}
	cliCtx, _ := GetCLIContext(cmd)
	if cliCtx != nil && cliCtx.JSON() {
		return printJSON(cmd, schemaVersion{Version: version, Dirty: dirty})
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", version, state)
	return nil
}

//Personal.AI order the ending
