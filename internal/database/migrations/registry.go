package migrations

import (
	"github.com/ksred/schema-registry/internal/database"
	"github.com/ksred/schema-registry/internal/registry"
)

// GetMigrations returns all registered migrations
func GetMigrations(reg *registry.Registry) []database.Migration {
	return []database.Migration{
		{
			Name: CreateAIPlaceholdersName,
			Up:   CreateAIPlaceholders(reg),
			Down: DropAIPlaceholders(reg),
		},
	}
}

// RegisterAll registers every migration on runner
func RegisterAll(runner *database.MigrationRunner, reg *registry.Registry) error {
	for _, m := range GetMigrations(reg) {
		if err := runner.Register(m); err != nil {
			return err
		}
	}
	return nil
}
