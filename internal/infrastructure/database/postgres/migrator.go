package postgres

import (
	goerrors "errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // file source driver

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
)

// Migrate applies all pending migrations from cfg.MigrationPath. Called on
// startup by the API server and the worker; a no-op when the schema is
// already current.
func Migrate(cfg config.DatabaseConfig, logger logging.Logger) error {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.MigrationPath == "" {
		logger.Warn("no migration path configured, skipping migrations")
		return nil
	}

	m, err := migrate.New("file://"+cfg.MigrationPath, DSN(cfg))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	defer m.Close()

	if err := m.Up(); err != nil && !goerrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to run migrations")
	}

	version, dirty, err := m.Version()
	if err != nil && !goerrors.Is(err, migrate.ErrNilVersion) {
		logger.Warn("failed to read migration version", logging.Err(err))
		return nil
	}

	logger.Info("database migrations applied",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty),
	)
	return nil
}

// MigrationStatus reports the current schema version and whether a previous
// migration left the schema dirty.
func MigrationStatus(cfg config.DatabaseConfig) (version uint, dirty bool, err error) {
	m, err := migrate.New("file://"+cfg.MigrationPath, DSN(cfg))
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	defer m.Close()

	version, dirty, err = m.Version()
	if err != nil {
		if goerrors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read migration version")
	}
	return version, dirty, nil
}
