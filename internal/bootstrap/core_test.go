package bootstrap

import (
	"context"
	"testing"

	"github.com/ksred/schema-registry/internal/aicompat"
	"github.com/ksred/schema-registry/internal/config"
	"github.com/ksred/schema-registry/internal/database"
	"github.com/ksred/schema-registry/internal/models"
	"github.com/ksred/schema-registry/internal/testutil"
	"github.com/ksred/schema-registry/internal/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = zerolog.New(nil).Level(zerolog.Disabled)

func openCore(t *testing.T, capability string) *Core {
	t.Helper()
	cfg := config.NewDefault()
	cfg.Legacy.AIModels = capability

	db := database.NewDatabase(cfg.Database, testLogger)
	db.SetDB(testutil.OpenTestDB(t))

	core, err := NewCoreWithDB(cfg, db, testLogger)
	require.NoError(t, err)
	return core
}

func TestNewCoreWithDB(t *testing.T) {
	core := openCore(t, "placeholders")

	assert.Equal(t, aicompat.CapabilityPlaceholders, core.Capability)
	assert.Equal(t, []string{
		models.AIModelPlaceholderTable,
		models.AIUsagePlaceholderTable,
		models.SequelizeMetaTable,
	}, core.Registry.Tables())
	require.NotNil(t, core.Placeholders.Model)
	assert.Empty(t, core.Placeholders.Model.Columns)
	assert.NotNil(t, core.AI)

	ran, err := core.Runner.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, ran, 1)
	assert.True(t, core.DB.DB().Migrator().HasTable(models.AIModelPlaceholderTable))
}

func TestNewCoreWithDB_CapabilityRemoved(t *testing.T) {
	core := openCore(t, "removed")

	assert.Equal(t, []string{models.SequelizeMetaTable}, core.Registry.Tables())
	assert.Nil(t, core.Placeholders.Model)
	assert.Nil(t, core.Placeholders.Usage)
}

func TestNewCoreWithDB_NoConnection(t *testing.T) {
	cfg := config.NewDefault()
	db := database.NewDatabase(cfg.Database, testLogger)

	core, err := NewCoreWithDB(cfg, db, testLogger)
	assert.Nil(t, core)
	assert.True(t, utils.IsConfigurationError(err))
}

func TestNewCoreWithDB_UnknownCapability(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Legacy.AIModels = "resurrected"
	db := database.NewDatabase(cfg.Database, testLogger)
	db.SetDB(testutil.OpenTestDB(t))

	_, err := NewCoreWithDB(cfg, db, testLogger)
	assert.True(t, utils.IsValidationError(err))
}

func TestNewCore_SQLiteFile(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.Path = t.TempDir() + "/registry.db"
	cfg.Database.LogLevel = "silent"

	core, err := NewCore(cfg, testLogger)
	require.NoError(t, err)
	defer core.Close()

	require.NoError(t, core.DB.Health(context.Background()))
	status, err := core.Runner.Status(context.Background())
	require.NoError(t, err)
	assert.Len(t, status.Pending, 1)
}
