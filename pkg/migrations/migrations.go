package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations holds the schema changes registered by the init functions in
// this package.
var Migrations = migrate.NewMigrations()

// NewMigrator returns a migrator that only marks a migration applied after it
// succeeds, so a failed step is retried on the next run.
func NewMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, Migrations, migrate.WithMarkAppliedOnSuccess(true))
}

// BringUpToDate creates the migration tables if needed and applies every
// pending migration. The returned group is zero when nothing was pending.
func BringUpToDate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := NewMigrator(db)
	if err := migrator.Init(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !group.IsZero() {
		logger.FromContext(ctx).Info("applied migrations", logger.Data{"group": group.String()})
	}
	return group, nil
}
