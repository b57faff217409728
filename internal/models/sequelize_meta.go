package models

import (
	"github.com/ksred/schema-registry/internal/registry"
	"github.com/ksred/schema-registry/internal/utils"
	"gorm.io/gorm"
)

// SequelizeMetaTable is the bookkeeping table the migration runner reads at startup
const SequelizeMetaTable = "sequelize_meta"

// SequelizeMeta is one applied migration. The struct has no CreatedAt or
// UpdatedAt field, so gorm never tracks timestamps for it.
type SequelizeMeta struct {
	Name string `gorm:"primaryKey;type:varchar(255);not null" json:"name" validate:"required,max=255"`
}

var validate = utils.NewValidator()

// Validate checks the row before it is written; the column holds at most 255 characters
func (m SequelizeMeta) Validate() error {
	return utils.TranslateValidatorError(validate.Struct(m))
}

// TableName ensures consistent table naming
func (SequelizeMeta) TableName() string {
	return SequelizeMetaTable
}

// Binder is a registry that also exposes its connection
type Binder interface {
	Definer
	DB() *gorm.DB
}

// SequelizeMetaColumns is the single declared column: name, text, required, primary key, no default
func SequelizeMetaColumns() []registry.Column {
	return []registry.Column{
		{
			Name:       "name",
			Type:       registry.TypeString,
			NotNull:    true,
			PrimaryKey: true,
			Unique:     true,
		},
	}
}

// BindSequelizeMeta registers sequelize_meta on reg. The connection must
// already be open: a missing registry or connection is a configuration error
// and nothing is registered.
func BindSequelizeMeta(reg Binder) (*registry.Definition, error) {
	if reg == nil {
		return nil, utils.WrapConfigurationError(SequelizeMetaTable, "schema registry is not initialized")
	}
	if reg.DB() == nil {
		return nil, utils.WrapConfigurationError(SequelizeMetaTable, "database connection is not initialized")
	}

	return reg.Define(SequelizeMetaTable, SequelizeMetaColumns(), registry.Options{Timestamps: false})
}
