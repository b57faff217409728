package database

import (
	"context"
	"fmt"
	"sort"

	"github.com/ksred/schema-registry/internal/models"
	"github.com/ksred/schema-registry/internal/registry"
	"github.com/ksred/schema-registry/internal/utils"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// MigrationFunc performs one direction of a migration inside a transaction
type MigrationFunc func(ctx context.Context, tx *gorm.DB, logger zerolog.Logger) error

// Migration is a named schema change. Names sort in the order they must run,
// e.g. "20250601000000-create-ai-placeholders".
type Migration struct {
	Name string
	Up   MigrationFunc
	Down MigrationFunc
}

// Status is the applied/pending split of the registered migrations.
// Unknown lists applied names that no registered migration matches.
type Status struct {
	Applied []string `json:"applied"`
	Pending []string `json:"pending"`
	Unknown []string `json:"unknown,omitempty"`
}

// MigrationRunner applies migrations and records them in sequelize_meta
type MigrationRunner struct {
	db         *Database
	reg        *registry.Registry
	meta       *registry.Definition
	logger     zerolog.Logger
	migrations []Migration
	names      map[string]bool
}

// NewMigrationRunner binds sequelize_meta on reg. It fails with a
// configuration error when db is missing or reg has no connection.
func NewMigrationRunner(db *Database, reg *registry.Registry, logger zerolog.Logger) (*MigrationRunner, error) {
	if db == nil {
		return nil, utils.WrapConfigurationError("migrations", "database is not initialized")
	}

	meta, err := models.BindSequelizeMeta(reg)
	if err != nil {
		return nil, err
	}

	return &MigrationRunner{
		db:     db,
		reg:    reg,
		meta:   meta,
		logger: utils.ForComponent(logger, "migrations"),
		names:  make(map[string]bool),
	}, nil
}

// Register adds a migration to the runner
func (r *MigrationRunner) Register(migration Migration) error {
	if err := r.meta.Validate(map[string]interface{}{"name": migration.Name}); err != nil {
		return err
	}
	if err := (models.SequelizeMeta{Name: migration.Name}).Validate(); err != nil {
		return err
	}
	if migration.Up == nil {
		return utils.InvalidFieldError("up", fmt.Sprintf("migration %s has no up step", migration.Name))
	}
	if r.names[migration.Name] {
		return utils.WrapConflictError("migration", "name", migration.Name)
	}

	r.names[migration.Name] = true
	r.migrations = append(r.migrations, migration)
	sort.Slice(r.migrations, func(i, j int) bool {
		return r.migrations[i].Name < r.migrations[j].Name
	})
	return nil
}

// Migrations returns the registered migrations in run order
func (r *MigrationRunner) Migrations() []Migration {
	out := make([]Migration, len(r.migrations))
	copy(out, r.migrations)
	return out
}

// Applied returns the names stored in sequelize_meta, sorted
func (r *MigrationRunner) Applied(ctx context.Context) ([]string, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}

	db := r.db.DB()
	if db == nil {
		return nil, ErrNotConnected
	}

	var applied []string
	err := db.WithContext(ctx).
		Model(&models.SequelizeMeta{}).
		Order("name").
		Pluck("name", &applied).Error
	if err != nil {
		return nil, utils.WrapDatabaseError("read applied migrations", err)
	}
	return applied, nil
}

// Pending returns the registered migrations that are not in sequelize_meta
func (r *MigrationRunner) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}

	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}

	var pending []Migration
	for _, m := range r.migrations {
		if !done[m.Name] {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Status reports applied, pending and unknown migration names
func (r *MigrationRunner) Status(ctx context.Context) (Status, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return Status{}, err
	}

	status := Status{Applied: applied, Pending: []string{}}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
		if !r.names[name] {
			status.Unknown = append(status.Unknown, name)
		}
	}
	for _, m := range r.migrations {
		if !done[m.Name] {
			status.Pending = append(status.Pending, m.Name)
		}
	}
	return status, nil
}

// Run executes all pending migrations in name order, one transaction each,
// and returns the names it applied
func (r *MigrationRunner) Run(ctx context.Context) ([]string, error) {
	pending, err := r.Pending(ctx)
	if err != nil {
		return nil, err
	}

	if len(pending) == 0 {
		r.logger.Info().Msg("No pending migrations, database is up to date")
		return nil, nil
	}

	var ran []string
	for _, migration := range pending {
		r.logger.Info().Str("migration", migration.Name).Msg("Running migration")

		err := r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
			if err := migration.Up(ctx, tx, r.logger); err != nil {
				return fmt.Errorf("migration %s failed: %w", migration.Name, err)
			}
			if err := tx.Create(&models.SequelizeMeta{Name: migration.Name}).Error; err != nil {
				return utils.TranslateDBError("record migration", err, models.SequelizeMetaTable, "name", migration.Name)
			}
			return nil
		})
		if err != nil {
			return ran, err
		}

		ran = append(ran, migration.Name)
		r.logger.Info().Str("migration", migration.Name).Msg("Migration completed successfully")
	}

	return ran, nil
}

// Undo reverts the most recently applied migration and removes its row.
// It returns the reverted name, or "" when nothing was applied.
func (r *MigrationRunner) Undo(ctx context.Context) (string, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return "", err
	}
	if len(applied) == 0 {
		r.logger.Info().Msg("No executed migrations to undo")
		return "", nil
	}

	name := applied[len(applied)-1]
	migration, ok := r.lookup(name)
	if !ok {
		return "", utils.WrapNotFoundError("migration", name)
	}
	if migration.Down == nil {
		return "", fmt.Errorf("migration %s cannot be undone: no down step", name)
	}

	r.logger.Info().Str("migration", name).Msg("Reverting migration")

	err = r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := migration.Down(ctx, tx, r.logger); err != nil {
			return fmt.Errorf("revert %s failed: %w", name, err)
		}
		res := tx.Where("name = ?", name).Delete(&models.SequelizeMeta{})
		if res.Error != nil {
			return utils.WrapDatabaseError("delete migration record", res.Error)
		}
		if res.RowsAffected == 0 {
			return utils.WrapNotFoundError(models.SequelizeMetaTable, name)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	r.logger.Info().Str("migration", name).Msg("Migration reverted")
	return name, nil
}

func (r *MigrationRunner) lookup(name string) (Migration, bool) {
	for _, m := range r.migrations {
		if m.Name == name {
			return m, true
		}
	}
	return Migration{}, false
}

// ensureTable creates sequelize_meta from its registered definition
func (r *MigrationRunner) ensureTable(ctx context.Context) error {
	stmt, err := r.reg.CreateStatement(r.db.DB(), models.SequelizeMetaTable)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	if err := r.db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", utils.WrapDatabaseError("create table "+models.SequelizeMetaTable, err))
	}
	return nil
}
