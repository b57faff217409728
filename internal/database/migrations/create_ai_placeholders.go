package migrations

import (
	"context"

	"github.com/ksred/schema-registry/internal/database"
	"github.com/ksred/schema-registry/internal/models"
	"github.com/ksred/schema-registry/internal/registry"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// CreateAIPlaceholdersName is the sequelize_meta row for this migration
const CreateAIPlaceholdersName = "20250601000000-create-ai-placeholders"

var placeholderTables = []string{
	models.AIModelPlaceholderTable,
	models.AIUsagePlaceholderTable,
}

// CreateAIPlaceholders creates whichever placeholder tables are defined on reg.
// With the placeholders capability switched off none are, and the step only
// gets recorded.
func CreateAIPlaceholders(reg *registry.Registry) database.MigrationFunc {
	return func(ctx context.Context, tx *gorm.DB, logger zerolog.Logger) error {
		for _, table := range placeholderTables {
			if _, ok := reg.Lookup(table); !ok {
				logger.Info().Str("table", table).Msg("Placeholder not defined, skipping")
				continue
			}
			if err := reg.Sync(ctx, tx, table); err != nil {
				return err
			}
		}
		return nil
	}
}

// DropAIPlaceholders drops the placeholder tables defined on reg
func DropAIPlaceholders(reg *registry.Registry) database.MigrationFunc {
	return func(ctx context.Context, tx *gorm.DB, logger zerolog.Logger) error {
		for _, table := range placeholderTables {
			if _, ok := reg.Lookup(table); !ok {
				logger.Info().Str("table", table).Msg("Placeholder not defined, skipping")
				continue
			}
			if err := reg.DropTable(ctx, tx, table); err != nil {
				return err
			}
		}
		return nil
	}
}
