package postgres

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers the "pgx5" scheme
	_ "github.com/golang-migrate/migrate/v4/source/file"     // file:// sources
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/turtacn/SessionSync/internal/config"
	"github.com/turtacn/SessionSync/internal/infrastructure/database/postgres/migrations"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Migrator
// ─────────────────────────────────────────────────────────────────────────────

// Migrator applies the schema migrations.  It opens its own connection so
// closing it never touches the application pool.
type Migrator struct {
	m      *migrate.Migrate
	logger logging.Logger
}

// NewMigrator reads migrations from cfg.MigrationPath when set, otherwise
// from the embedded set.
func NewMigrator(cfg config.DatabaseConfig, log logging.Logger) (*Migrator, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	dbURL := migrateURL(cfg)

	var (
		m   *migrate.Migrate
		err error
	)
	if path := strings.TrimSpace(cfg.MigrationPath); path != "" {
		m, err = migrate.New(sourceURL(path), dbURL)
	} else {
		src, serr := iofs.New(migrations.FS, ".")
		if serr != nil {
			return nil, errors.Wrap(serr, errors.ErrCodeInternal, "failed to open embedded migrations")
		}
		m, err = migrate.NewWithSourceInstance("iofs", src, dbURL)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	return &Migrator{m: m, logger: log}, nil
}

// Up applies every pending migration.  Nothing to apply is not an error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		version, _, _ := mg.m.Version()
		return errors.Wrap(err, errors.ErrCodeDatabaseError,
			fmt.Sprintf("failed to run migrations (current version: %d)", version))
	}
	version, dirty, err := mg.Status()
	if err != nil {
		mg.logger.Warn("Failed to get migration version", logging.Err(err))
	}
	mg.logger.Info("Database migrations completed",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty),
	)
	return nil
}

// Rollback reverts steps migrations.
func (mg *Migrator) Rollback(steps int) error {
	if steps <= 0 {
		return errors.Validation(fmt.Sprintf("steps must be greater than 0, got %d", steps))
	}
	if err := mg.m.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return errors.Validation("no migrations to roll back")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("failed to rollback %d step(s)", steps))
	}
	mg.logger.Info("Database migrations rolled back", logging.Int("steps", steps))
	return nil
}

// Status returns the applied version and whether a previous run left the
// schema dirty.  A fresh database reports version 0.
func (mg *Migrator) Status() (version uint, dirty bool, err error) {
	version, dirty, err = mg.m.Version()
	if err != nil {
		if stderrors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get migration version")
	}
	return version, dirty, nil
}

// Force sets the recorded version without running migrations.  It is the
// recovery path for a dirty schema.
func (mg *Migrator) Force(version int) error {
	if err := mg.m.Force(version); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("failed to force version %d", version))
	}
	mg.logger.Warn("Database migration version forced", logging.Int("version", version))
	return nil
}

// Close releases the migrator's connection and source.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

func migrateURL(cfg config.DatabaseConfig) string {
	return buildURL("pgx5", cfg)
}

func sourceURL(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return "file://" + path
}

//Personal.AI order the ending
