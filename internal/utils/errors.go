package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Sentinel errors matched with errors.Is
var (
	// ErrValidation is returned when a record or a definition fails validation
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a table definition or record does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned on duplicate keys and duplicate registrations
	ErrConflict = errors.New("conflict")

	// ErrDatabase is returned when a database operation fails
	ErrDatabase = errors.New("database error")

	// ErrConfiguration is returned when a required collaborator is missing at bind time
	ErrConfiguration = errors.New("configuration error")
)

// ValidationError reports a rejected field value
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError reports a missing resource
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConflictError reports a unique or primary key violation
type ConflictError struct {
	Resource string
	Field    string
	Value    string
}

func (e *ConflictError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("%s already exists with %s='%s'", e.Resource, e.Field, e.Value)
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// DatabaseError wraps a failure surfaced by the driver or the ORM.
// Both ErrDatabase and the cause are reachable through errors.Is.
type DatabaseError struct {
	Operation string
	Cause     error
}

func (e *DatabaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("database error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("database error during %s", e.Operation)
}

func (e *DatabaseError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrDatabase}
	}
	return []error{ErrDatabase, e.Cause}
}

// ConfigurationError reports a collaborator that was absent when a binding ran
type ConfigurationError struct {
	Component string
	Message   string
}

func (e *ConfigurationError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// WrapValidationError builds a validation error
func WrapValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// WrapNotFoundError builds a not found error
func WrapNotFoundError(resource, id string) error {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// WrapConflictError builds a conflict error
func WrapConflictError(resource, field, value string) error {
	return &ConflictError{
		Resource: resource,
		Field:    field,
		Value:    value,
	}
}

// WrapDatabaseError wraps an error as a database error
func WrapDatabaseError(operation string, cause error) error {
	return &DatabaseError{
		Operation: operation,
		Cause:     cause,
	}
}

// WrapConfigurationError builds a configuration error
func WrapConfigurationError(component, message string) error {
	return &ConfigurationError{
		Component: component,
		Message:   message,
	}
}

// TranslateDBError maps gorm's translated errors onto the typed errors above.
// resource, field and value describe the row being written and are only used
// for conflicts.
func TranslateDBError(operation string, err error, resource, field, value string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey), isDuplicateKeyMessage(err):
		return WrapConflictError(resource, field, value)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return WrapNotFoundError(resource, value)
	default:
		return WrapDatabaseError(operation, err)
	}
}

// NewValidator returns a struct validator that reports fields by their json name
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// TranslateValidatorError turns the first failed struct tag into a ValidationError
func TranslateValidatorError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return RequiredFieldError(fe.Field())
		}
		if fe.Param() != "" {
			return InvalidFieldError(fe.Field(), fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param()))
		}
		return InvalidFieldError(fe.Field(), "failed "+fe.Tag())
	}
	return WrapValidationError("", err.Error())
}

// isDuplicateKeyMessage catches drivers that do not translate constraint errors
func isDuplicateKeyMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"unique constraint failed",
		"duplicate key value",
		"duplicate entry",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsDatabaseError checks if an error is a database error
func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// RequiredFieldError is the validation error for a missing or null value
func RequiredFieldError(field string) error {
	return WrapValidationError(field, "field is required")
}

// InvalidFieldError is the validation error for a value that is present but unusable
func InvalidFieldError(field, reason string) error {
	return WrapValidationError(field, reason)
}
