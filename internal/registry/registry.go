// Package registry keeps the catalog of table definitions bound to a
// connection and materialises them on demand.
package registry

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/ksred/schema-registry/internal/utils"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ErrNotConnected is returned by operations that need a live connection
var ErrNotConnected = errors.New("database not connected")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Registry is the in-memory model catalog for one connection.
// Define never touches the database; Sync and DropTable do, on the handle
// they are given.
type Registry struct {
	db          *gorm.DB
	logger      zerolog.Logger
	mu          sync.RWMutex
	definitions map[string]*Definition
}

// New creates a registry. db may be nil, in which case only the catalog
// operations are usable.
func New(db *gorm.DB, logger zerolog.Logger) *Registry {
	return &Registry{
		db:          db,
		logger:      utils.ForComponent(logger, "registry"),
		definitions: make(map[string]*Definition),
	}
}

// DB returns the connection the registry is bound to, or nil
func (r *Registry) DB() *gorm.DB {
	if r == nil {
		return nil
	}
	return r.db
}

// Define registers a table definition and returns its handle. Defining a table
// that already exists replaces the previous definition.
func (r *Registry) Define(table string, columns []Column, opts Options) (*Definition, error) {
	if err := validateIdentifier("table", table); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(columns))
	cols := make([]Column, 0, len(columns))
	for _, c := range columns {
		if err := validateIdentifier("column", c.Name); err != nil {
			return nil, err
		}
		if seen[c.Name] {
			return nil, utils.InvalidFieldError(c.Name, fmt.Sprintf("declared twice on table %s", table))
		}
		seen[c.Name] = true

		if c.Type == "" {
			return nil, utils.InvalidFieldError(c.Name, "column type is required")
		}
		if _, ok := typeNames[c.Type]; !ok {
			return nil, utils.InvalidFieldError(c.Name, fmt.Sprintf("unsupported column type %s", c.Type))
		}
		cols = append(cols, c)
	}

	def := &Definition{Table: table, Columns: cols, Options: opts}

	r.mu.Lock()
	_, redefined := r.definitions[table]
	r.definitions[table] = def
	r.mu.Unlock()

	r.logger.Debug().
		Str("table", table).
		Int("columns", len(cols)).
		Bool("timestamps", opts.Timestamps).
		Bool("redefined", redefined).
		Msg("Table defined")

	return def.clone(), nil
}

// Lookup returns a copy of the definition registered for table
func (r *Registry) Lookup(table string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[table]
	if !ok {
		return nil, false
	}
	return def.clone(), true
}

// Tables returns the registered table names, sorted
func (r *Registry) Tables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns copies of every definition, sorted by table name
func (r *Registry) Definitions() []*Definition {
	var defs []*Definition
	for _, name := range r.Tables() {
		if def, ok := r.Lookup(name); ok {
			defs = append(defs, def)
		}
	}
	return defs
}

// CreateStatement renders the CREATE TABLE statement of a registered table
// for the dialect of db
func (r *Registry) CreateStatement(db *gorm.DB, table string) (string, error) {
	if db == nil {
		return "", ErrNotConnected
	}
	def, ok := r.Lookup(table)
	if !ok {
		return "", utils.WrapNotFoundError("table definition", table)
	}
	return CreateTableSQL(db, def), nil
}

// Sync creates the physical tables for the given definitions on db, which is
// usually a migration transaction, or every registered definition when no
// table is named. Existing tables are left as is.
func (r *Registry) Sync(ctx context.Context, db *gorm.DB, tables ...string) error {
	if db == nil {
		return ErrNotConnected
	}
	if len(tables) == 0 {
		tables = r.Tables()
	}

	for _, table := range tables {
		stmt, err := r.CreateStatement(db, table)
		if err != nil {
			return err
		}
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return utils.WrapDatabaseError("create table "+table, err)
		}

		r.logger.Info().
			Str("table", table).
			Str("dialect", db.Dialector.Name()).
			Msg("Table synced")
	}
	return nil
}

// DropTable removes the physical table. The definition stays registered.
func (r *Registry) DropTable(ctx context.Context, db *gorm.DB, table string) error {
	if db == nil {
		return ErrNotConnected
	}
	if _, ok := r.Lookup(table); !ok {
		return utils.WrapNotFoundError("table definition", table)
	}

	if err := db.WithContext(ctx).Migrator().DropTable(table); err != nil {
		return utils.WrapDatabaseError("drop table "+table, err)
	}

	r.logger.Info().Str("table", table).Msg("Table dropped")
	return nil
}

func validateIdentifier(kind, name string) error {
	if name == "" {
		return utils.RequiredFieldError(kind)
	}
	if !identifierPattern.MatchString(name) {
		return utils.InvalidFieldError(kind, fmt.Sprintf("%q is not a valid identifier", name))
	}
	return nil
}
