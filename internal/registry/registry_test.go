package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ksred/schema-registry/internal/testutil"
	"github.com/ksred/schema-registry/internal/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRegistry(t *testing.T, withDB bool) *Registry {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	if !withDB {
		return New(nil, logger)
	}
	return New(testutil.OpenTestDB(t), logger)
}

func TestRegistry_Define(t *testing.T) {
	reg := newTestRegistry(t, false)

	def, err := reg.Define("audit_entries", []Column{
		{Name: "name", Type: TypeString, PrimaryKey: true},
		{Name: "note", Type: TypeText},
	}, Options{})
	require.NoError(t, err)

	assert.Equal(t, "audit_entries", def.Table)
	assert.Equal(t, []string{"name", "note"}, def.ColumnNames())
	assert.Equal(t, []string{"name"}, def.PrimaryKey())
	assert.Equal(t, []string{"audit_entries"}, reg.Tables())
}

func TestRegistry_DefineEmpty(t *testing.T) {
	reg := newTestRegistry(t, false)

	def, err := reg.Define("legacy_table", nil, Options{})
	require.NoError(t, err)

	assert.NotNil(t, def.Columns)
	assert.Empty(t, def.Columns)
}

func TestRegistry_RedefineReplaces(t *testing.T) {
	reg := newTestRegistry(t, false)

	_, err := reg.Define("things", []Column{{Name: "a", Type: TypeText}}, Options{})
	require.NoError(t, err)

	second, err := reg.Define("things", nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, second.Columns)

	stored, ok := reg.Lookup("things")
	require.True(t, ok)
	assert.Empty(t, stored.Columns)
	assert.Len(t, reg.Tables(), 1)
}

func TestRegistry_DefineRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []Column
		errMsg  string
	}{
		{name: "empty table", table: "", errMsg: "table"},
		{name: "bad table", table: "drop table;", errMsg: "not a valid identifier"},
		{name: "bad column", table: "t", columns: []Column{{Name: "1st", Type: TypeText}}, errMsg: "not a valid identifier"},
		{name: "missing type", table: "t", columns: []Column{{Name: "a"}}, errMsg: "column type is required"},
		{name: "unknown type", table: "t", columns: []Column{{Name: "a", Type: "JSONB"}}, errMsg: "unsupported column type"},
		{
			name:  "duplicate column",
			table: "t",
			columns: []Column{
				{Name: "a", Type: TypeText},
				{Name: "a", Type: TypeText},
			},
			errMsg: "declared twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newTestRegistry(t, false)

			_, err := reg.Define(tt.table, tt.columns, Options{})
			require.Error(t, err)
			assert.True(t, utils.IsValidationError(err))
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Empty(t, reg.Tables())
		})
	}
}

func TestRegistry_HandlesAreCopies(t *testing.T) {
	reg := newTestRegistry(t, false)

	def, err := reg.Define("t", []Column{{Name: "a", Type: TypeText}}, Options{})
	require.NoError(t, err)

	def.Columns[0].Name = "mutated"

	stored, _ := reg.Lookup("t")
	assert.Equal(t, "a", stored.Columns[0].Name)
}

func TestRegistry_LookupMissing(t *testing.T) {
	reg := newTestRegistry(t, false)

	def, ok := reg.Lookup("nope")
	assert.False(t, ok)
	assert.Nil(t, def)
}

func TestRegistry_TablesSorted(t *testing.T) {
	reg := newTestRegistry(t, false)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := reg.Define(name, nil, Options{})
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, reg.Tables())
	defs := reg.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "alpha", defs[0].Table)
}

func TestRegistry_SyncWithoutConnection(t *testing.T) {
	reg := newTestRegistry(t, false)
	_, err := reg.Define("t", nil, Options{})
	require.NoError(t, err)

	assert.ErrorIs(t, reg.Sync(context.Background(), reg.DB()), ErrNotConnected)
	assert.ErrorIs(t, reg.DropTable(context.Background(), reg.DB(), "t"), ErrNotConnected)

	_, err = reg.CreateStatement(reg.DB(), "t")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestRegistry_Sync(t *testing.T) {
	reg := newTestRegistry(t, true)
	ctx := context.Background()

	_, err := reg.Define("keyed", []Column{
		{Name: "name", Type: TypeString, PrimaryKey: true},
		{Name: "enabled", Type: TypeBoolean, Default: true},
	}, Options{})
	require.NoError(t, err)
	_, err = reg.Define("empty_one", nil, Options{})
	require.NoError(t, err)
	_, err = reg.Define("stamped", nil, DefaultOptions())
	require.NoError(t, err)

	require.NoError(t, reg.Sync(ctx, reg.DB()))

	migrator := reg.DB().Migrator()
	for _, table := range []string{"keyed", "empty_one", "stamped"} {
		assert.True(t, migrator.HasTable(table), table)
	}

	assert.True(t, migrator.HasColumn("keyed", "name"))
	assert.False(t, migrator.HasColumn("keyed", ImplicitIDColumn))
	assert.False(t, migrator.HasColumn("keyed", CreatedAtColumn))

	assert.True(t, migrator.HasColumn("empty_one", ImplicitIDColumn))
	assert.False(t, migrator.HasColumn("empty_one", CreatedAtColumn))

	assert.True(t, migrator.HasColumn("stamped", CreatedAtColumn))
	assert.True(t, migrator.HasColumn("stamped", UpdatedAtColumn))

	// Sync is repeatable
	require.NoError(t, reg.Sync(ctx, reg.DB(), "keyed"))
}

func TestRegistry_SyncInTransaction(t *testing.T) {
	reg := newTestRegistry(t, true)
	ctx := context.Background()

	_, err := reg.Define("rolled_back", nil, Options{})
	require.NoError(t, err)

	err = reg.DB().Transaction(func(tx *gorm.DB) error {
		if err := reg.Sync(ctx, tx, "rolled_back"); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)
	assert.False(t, reg.DB().Migrator().HasTable("rolled_back"))
}

func TestRegistry_CreateStatement(t *testing.T) {
	reg := newTestRegistry(t, true)

	_, err := reg.Define("sequelize_meta", []Column{{Name: "name", Type: TypeString, PrimaryKey: true}}, Options{})
	require.NoError(t, err)

	stmt, err := reg.CreateStatement(reg.DB(), "sequelize_meta")
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS `sequelize_meta` (`name` VARCHAR(255) NOT NULL, PRIMARY KEY (`name`))", stmt)

	_, err = reg.CreateStatement(reg.DB(), "ghost")
	assert.True(t, utils.IsNotFoundError(err))
}

func TestRegistry_SyncUnknownTable(t *testing.T) {
	reg := newTestRegistry(t, true)

	err := reg.Sync(context.Background(), reg.DB(), "ghost")
	require.Error(t, err)
	assert.True(t, utils.IsNotFoundError(err))
}

func TestRegistry_DropTable(t *testing.T) {
	reg := newTestRegistry(t, true)
	ctx := context.Background()

	_, err := reg.Define("short_lived", nil, Options{})
	require.NoError(t, err)
	require.NoError(t, reg.Sync(ctx, reg.DB(), "short_lived"))
	require.True(t, reg.DB().Migrator().HasTable("short_lived"))

	require.NoError(t, reg.DropTable(ctx, reg.DB(), "short_lived"))
	assert.False(t, reg.DB().Migrator().HasTable("short_lived"))

	_, stillDefined := reg.Lookup("short_lived")
	assert.True(t, stillDefined)

	// dropping a table that is already gone is fine
	require.NoError(t, reg.DropTable(ctx, reg.DB(), "short_lived"))

	err = reg.DropTable(ctx, reg.DB(), "never_defined")
	assert.True(t, utils.IsNotFoundError(err))
}

func TestRegistry_ConcurrentDefine(t *testing.T) {
	reg := newTestRegistry(t, false)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Define("shared", nil, Options{})
			assert.NoError(t, err)
			reg.Tables()
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"shared"}, reg.Tables())
}
