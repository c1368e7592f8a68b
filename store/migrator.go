package store

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
)

// SchemaVersion is the latest schema version supported by the drivers.
// Each driver records it in schema_migrations after applying its schema.
const SchemaVersion = 1

// Migrate creates or upgrades the database schema through the driver.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.driver.Migrate(ctx); err != nil {
		return errors.Wrap(err, "failed to migrate")
	}
	if s.profile != nil {
		slog.Info("database schema ready",
			slog.String("driver", s.profile.Driver),
			slog.Int("schema_version", SchemaVersion))
	}
	return nil
}
