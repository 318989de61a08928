package cli

import (
	"context"

	"github.com/turtacn/SessionSync/internal/application/backfill"
	"github.com/turtacn/SessionSync/internal/application/calendar"
	"github.com/turtacn/SessionSync/internal/config"
	"github.com/turtacn/SessionSync/internal/domain/timezone"
	"github.com/turtacn/SessionSync/internal/infrastructure/database/postgres"
	"github.com/turtacn/SessionSync/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
)

// BackfillRunner runs one reconciliation pass.  *backfill.Reconciler
// implements it.
type BackfillRunner interface {
	Run(ctx context.Context, trigger string) (*backfill.Report, error)
}

// SchemaMigrator is the subset of *postgres.Migrator the migrate command
// drives.
type SchemaMigrator interface {
	Up() error
	Rollback(steps int) error
	Status() (version uint, dirty bool, err error)
	Force(version int) error
	Close() error
}

// Dependencies are the factories the commands build their collaborators
// with.  Zero fields fall back to the production implementations.
type Dependencies struct {
	NewLogger    func(cfg logging.LogConfig) (logging.Logger, error)
	LoadConfig   func(opts *RootOptions) (*config.Config, error)
	OpenBackfill func(cfg *config.Config, log logging.Logger) (BackfillRunner, func() error, error)
	OpenMigrator func(cfg config.DatabaseConfig, log logging.Logger) (SchemaMigrator, error)
}

func (d Dependencies) withDefaults() Dependencies {
	if d.NewLogger == nil {
		d.NewLogger = logging.NewLogger
	}
	if d.LoadConfig == nil {
		d.LoadConfig = loadConfig
	}
	if d.OpenBackfill == nil {
		d.OpenBackfill = openPostgresBackfill
	}
	if d.OpenMigrator == nil {
		d.OpenMigrator = func(cfg config.DatabaseConfig, log logging.Logger) (SchemaMigrator, error) {
			return postgres.NewMigrator(cfg, log)
		}
	}
	return d
}

// openPostgresBackfill connects to the configured database and returns a
// reconciler over it together with the pool's close function.
func openPostgresBackfill(cfg *config.Config, log logging.Logger) (BackfillRunner, func() error, error) {
	conn, err := postgres.NewConnection(cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	repo := repositories.NewPostgresAppointmentRepo(conn, log)
	r := backfill.NewReconciler(repo, timezone.NewConverter(log), calendar.NewLinkBuilder(cfg.Calendar.ToLinkConfig()), log)
	return r, conn.Close, nil
}

//Personal.AI order the ending
