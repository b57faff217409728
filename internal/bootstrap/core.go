// Package bootstrap builds the dependencies shared by the CLI commands and
// the admin server.
package bootstrap

import (
	"github.com/ksred/schema-registry/internal/aicompat"
	"github.com/ksred/schema-registry/internal/config"
	"github.com/ksred/schema-registry/internal/database"
	"github.com/ksred/schema-registry/internal/database/migrations"
	"github.com/ksred/schema-registry/internal/registry"
	"github.com/rs/zerolog"
)

// Core holds the connection, the schema registry and the migration runner.
// There is exactly one Core per process and it is passed down explicitly.
type Core struct {
	Cfg        *config.Config
	Logger     zerolog.Logger
	DB         *database.Database
	Registry   *registry.Registry
	Runner     *database.MigrationRunner
	Capability aicompat.Capability

	Placeholders aicompat.Placeholders
	AI           *aicompat.Retired
}

// NewCore connects to the configured database and wires everything on top of it
func NewCore(cfg *config.Config, logger zerolog.Logger) (*Core, error) {
	db := database.NewDatabase(cfg.Database, logger)
	if err := db.Connect(); err != nil {
		return nil, err
	}

	c, err := NewCoreWithDB(cfg, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// NewCoreWithDB wires the registry and runner onto an already opened database
func NewCoreWithDB(cfg *config.Config, db *database.Database, logger zerolog.Logger) (*Core, error) {
	capability, err := aicompat.ParseCapability(cfg.Legacy.AIModels)
	if err != nil {
		return nil, err
	}

	reg := registry.New(db.DB(), logger)

	// sequelize_meta is bound first; without a connection nothing else is registered
	runner, err := database.NewMigrationRunner(db, reg, logger)
	if err != nil {
		return nil, err
	}

	placeholders, err := aicompat.RegisterPlaceholders(reg, capability)
	if err != nil {
		return nil, err
	}

	if err := migrations.RegisterAll(runner, reg); err != nil {
		return nil, err
	}

	logger.Info().
		Strs("tables", reg.Tables()).
		Str("ai_models", string(capability)).
		Int("migrations", len(runner.Migrations())).
		Msg("Schema registry ready")

	return &Core{
		Cfg:          cfg,
		Logger:       logger,
		DB:           db,
		Registry:     reg,
		Runner:       runner,
		Capability:   capability,
		Placeholders: placeholders,
		AI:           aicompat.NewRetired(logger),
	}, nil
}

// Close releases the database connection
func (c *Core) Close() error {
	return c.DB.Close()
}
