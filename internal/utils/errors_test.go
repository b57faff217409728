package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestValidationError(t *testing.T) {
	t.Run("With field", func(t *testing.T) {
		err := &ValidationError{
			Field:   "name",
			Message: "field is required",
		}

		assert.Equal(t, "validation error on field 'name': field is required", err.Error())
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("Without field", func(t *testing.T) {
		err := &ValidationError{Message: "record is empty"}

		assert.Equal(t, "validation error: record is empty", err.Error())
		assert.True(t, errors.Is(err, ErrValidation))
	})
}

func TestNotFoundError(t *testing.T) {
	t.Run("With ID", func(t *testing.T) {
		err := &NotFoundError{Resource: "table", ID: "ai_model_placeholder"}

		assert.Equal(t, "table 'ai_model_placeholder' not found", err.Error())
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("Without ID", func(t *testing.T) {
		err := &NotFoundError{Resource: "migration"}

		assert.Equal(t, "migration not found", err.Error())
	})
}

func TestConflictError(t *testing.T) {
	t.Run("Field and value", func(t *testing.T) {
		err := &ConflictError{Resource: "sequelize_meta", Field: "name", Value: "20250101-init.js"}

		assert.Equal(t, "sequelize_meta already exists with name='20250101-init.js'", err.Error())
		assert.True(t, errors.Is(err, ErrConflict))
	})

	t.Run("Missing value", func(t *testing.T) {
		err := &ConflictError{Resource: "sequelize_meta", Field: "name"}

		assert.Equal(t, "sequelize_meta already exists", err.Error())
	})
}

func TestDatabaseError(t *testing.T) {
	cause := errors.New("connection refused")

	t.Run("With cause", func(t *testing.T) {
		err := &DatabaseError{Operation: "insert", Cause: cause}

		assert.Equal(t, "database error during insert: connection refused", err.Error())
		assert.True(t, errors.Is(err, ErrDatabase))
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("Without cause", func(t *testing.T) {
		err := &DatabaseError{Operation: "select"}

		assert.Equal(t, "database error during select", err.Error())
		assert.True(t, errors.Is(err, ErrDatabase))
	})
}

func TestConfigurationError(t *testing.T) {
	err := WrapConfigurationError("sequelize_meta", "database connection is not initialized")

	assert.Equal(t, "configuration error in sequelize_meta: database connection is not initialized", err.Error())
	assert.True(t, IsConfigurationError(err))
	assert.False(t, IsDatabaseError(err))

	bare := &ConfigurationError{Message: "missing"}
	assert.Equal(t, "configuration error: missing", bare.Error())
}

func TestTranslateDBError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, err error)
	}{
		{
			name: "nil stays nil",
			err:  nil,
			check: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "duplicate key becomes conflict",
			err:  fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey),
			check: func(t *testing.T, err error) {
				assert.True(t, IsConflictError(err))
				assert.Contains(t, err.Error(), "name='m1'")
			},
		},
		{
			name: "record not found becomes not found",
			err:  gorm.ErrRecordNotFound,
			check: func(t *testing.T, err error) {
				assert.True(t, IsNotFoundError(err))
			},
		},
		{
			name: "anything else is a database error",
			err:  errors.New("disk I/O error"),
			check: func(t *testing.T, err error) {
				assert.True(t, IsDatabaseError(err))
				assert.Contains(t, err.Error(), "during insert")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, TranslateDBError("insert", tt.err, "sequelize_meta", "name", "m1"))
		})
	}
}

func TestErrorClassifiers(t *testing.T) {
	wrapped := fmt.Errorf("binding failed: %w", RequiredFieldError("name"))

	assert.True(t, IsValidationError(wrapped))
	assert.False(t, IsConflictError(wrapped))
	assert.False(t, IsNotFoundError(wrapped))
	assert.Equal(t, "validation error on field 'name': must not be empty",
		InvalidFieldError("name", "must not be empty").Error())
}

func TestTranslateValidatorError(t *testing.T) {
	type record struct {
		Name  string `json:"name" validate:"required,max=5"`
		Count int    `json:"count" validate:"gte=0"`
	}
	v := NewValidator()

	assert.NoError(t, TranslateValidatorError(nil))
	assert.NoError(t, TranslateValidatorError(v.Struct(record{Name: "ok"})))

	err := TranslateValidatorError(v.Struct(record{}))
	assert.True(t, IsValidationError(err))
	assert.Equal(t, "validation error on field 'name': field is required", err.Error())

	err = TranslateValidatorError(v.Struct(record{Name: "too long"}))
	assert.True(t, IsValidationError(err))
	assert.Equal(t, "validation error on field 'name': failed max=5", err.Error())

	err = TranslateValidatorError(v.Struct(record{Name: "ok", Count: -1}))
	assert.Equal(t, "validation error on field 'count': failed gte=0", err.Error())

	err = TranslateValidatorError(errors.New("plain"))
	assert.True(t, IsValidationError(err))
}
