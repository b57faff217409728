package registry

import (
	"github.com/ksred/schema-registry/internal/utils"
)

// DataType is the logical column type of a definition
type DataType string

const (
	TypeString  DataType = "STRING"
	TypeText    DataType = "TEXT"
	TypeInteger DataType = "INTEGER"
	TypeBigInt  DataType = "BIGINT"
	TypeBoolean DataType = "BOOLEAN"
	TypeDecimal DataType = "DECIMAL"
	TypeDate    DataType = "DATE"
)

// Names of the columns added on top of the declared ones
const (
	ImplicitIDColumn = "id"
	CreatedAtColumn  = "created_at"
	UpdatedAtColumn  = "updated_at"
)

// Column declares one attribute of a table
type Column struct {
	Name       string      `json:"name"`
	Type       DataType    `json:"type"`
	NotNull    bool        `json:"not_null"`
	PrimaryKey bool        `json:"primary_key"`
	Unique     bool        `json:"unique"`
	Default    interface{} `json:"default,omitempty"`

	// AutoIncrement is only set on the implicit surrogate key
	AutoIncrement bool `json:"auto_increment,omitempty"`
}

// Required reports whether the column rejects null and absent values.
// Primary keys are always required.
func (c Column) Required() bool {
	return c.NotNull || c.PrimaryKey
}

func (c Column) isText() bool {
	return c.Type == TypeString || c.Type == TypeText
}

// Options controls the columns the registry adds by itself
type Options struct {
	// Timestamps adds created_at and updated_at
	Timestamps bool   `json:"timestamps"`
	Comment    string `json:"comment,omitempty"`
}

// DefaultOptions mirrors the ORM defaults: timestamps on
func DefaultOptions() Options {
	return Options{Timestamps: true}
}

// Definition is the handle returned by Define: a named table and its declared columns
type Definition struct {
	Table   string   `json:"table"`
	Columns []Column `json:"columns"`
	Options Options  `json:"options"`
}

// ColumnNames returns the declared column names in declaration order
func (d *Definition) ColumnNames() []string {
	names := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Column looks up a declared column
func (d *Definition) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// PrimaryKey returns the names of the declared primary key columns
func (d *Definition) PrimaryKey() []string {
	var keys []string
	for _, c := range d.Columns {
		if c.PrimaryKey {
			keys = append(keys, c.Name)
		}
	}
	return keys
}

// PhysicalColumns is what Sync creates: an implicit surrogate id when nothing
// is declared as primary key, the declared columns, then the timestamp columns
// when enabled.
func (d *Definition) PhysicalColumns() []Column {
	cols := make([]Column, 0, len(d.Columns)+3)
	if len(d.PrimaryKey()) == 0 {
		cols = append(cols, Column{
			Name:          ImplicitIDColumn,
			Type:          TypeInteger,
			PrimaryKey:    true,
			NotNull:       true,
			AutoIncrement: true,
		})
	}
	cols = append(cols, d.Columns...)
	if d.Options.Timestamps {
		cols = append(cols,
			Column{Name: CreatedAtColumn, Type: TypeDate, NotNull: true},
			Column{Name: UpdatedAtColumn, Type: TypeDate, NotNull: true},
		)
	}
	return cols
}

// Validate checks a record against the declared columns before it reaches the
// database. Keys that are not declared are ignored.
func (d *Definition) Validate(record map[string]interface{}) error {
	for _, c := range d.Columns {
		value, ok := record[c.Name]
		if !ok || value == nil {
			if c.Required() && c.Default == nil {
				return utils.RequiredFieldError(c.Name)
			}
			continue
		}

		if !c.isText() {
			continue
		}
		s, ok := value.(string)
		if !ok {
			return utils.InvalidFieldError(c.Name, "must be text")
		}
		if c.PrimaryKey && s == "" {
			return utils.InvalidFieldError(c.Name, "primary key must not be empty")
		}
	}
	return nil
}

func (d *Definition) clone() *Definition {
	cols := make([]Column, len(d.Columns))
	copy(cols, d.Columns)
	return &Definition{Table: d.Table, Columns: cols, Options: d.Options}
}
