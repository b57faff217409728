package registry

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// typeNames maps logical types to the SQL types of each dialect.
// The "" entry is used for dialects not listed.
var typeNames = map[DataType]map[string]string{
	TypeString:  {"": "VARCHAR(255)"},
	TypeText:    {"": "TEXT"},
	TypeInteger: {"": "INTEGER"},
	TypeBigInt:  {"": "BIGINT"},
	TypeBoolean: {"": "BOOLEAN"},
	TypeDecimal: {"": "DECIMAL(12,6)"},
	TypeDate:    {"": "DATETIME", DialectPostgres: "TIMESTAMP WITH TIME ZONE"},
}

// CreateTableSQL renders the CREATE TABLE IF NOT EXISTS statement for a
// definition, quoted and typed for the dialect db is opened with
func CreateTableSQL(db *gorm.DB, def *Definition) string {
	var parts []string
	var keys []string

	for _, c := range def.PhysicalColumns() {
		if c.AutoIncrement {
			parts = append(parts, autoIncrementColumn(db, c.Name))
			continue
		}
		parts = append(parts, columnSQL(db, c))
		if c.PrimaryKey {
			keys = append(keys, db.Statement.Quote(c.Name))
		}
	}
	if len(keys) > 0 {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(keys, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		db.Statement.Quote(def.Table), strings.Join(parts, ", "))
}

func columnSQL(db *gorm.DB, c Column) string {
	var b strings.Builder
	b.WriteString(db.Statement.Quote(c.Name))
	b.WriteString(" ")
	b.WriteString(sqlType(db.Dialector.Name(), c.Type))
	if c.Required() {
		b.WriteString(" NOT NULL")
	}
	if c.Unique && !c.PrimaryKey {
		b.WriteString(" UNIQUE")
	}
	if c.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(literal(c.Default))
	}
	return b.String()
}

func autoIncrementColumn(db *gorm.DB, name string) string {
	q := db.Statement.Quote(name)
	if db.Dialector.Name() == DialectPostgres {
		return q + " SERIAL PRIMARY KEY"
	}
	return q + " INTEGER PRIMARY KEY AUTOINCREMENT"
}

func sqlType(dialect string, t DataType) string {
	names := typeNames[t]
	if name, ok := names[dialect]; ok {
		return name
	}
	return names[""]
}

func literal(v interface{}) string {
	switch val := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", val)
	}
}
