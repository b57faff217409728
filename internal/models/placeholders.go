package models

import "github.com/ksred/schema-registry/internal/registry"

// Tables kept after the AI model feature moved to the tenant center.
// They have no columns and are never read or written.
const (
	AIModelPlaceholderTable = "ai_model_placeholder"
	AIUsagePlaceholderTable = "ai_usage_placeholder"
)

// Definer is the part of the schema registry the bindings need
type Definer interface {
	Define(table string, columns []registry.Column, opts registry.Options) (*registry.Definition, error)
}

// AIModelPlaceholder defines the empty ai_model_placeholder table.
// Calling it again redefines the same empty table.
func AIModelPlaceholder(reg Definer) (*registry.Definition, error) {
	return reg.Define(AIModelPlaceholderTable, []registry.Column{}, registry.Options{})
}

// AIUsagePlaceholder defines the empty ai_usage_placeholder table
func AIUsagePlaceholder(reg Definer) (*registry.Definition, error) {
	return reg.Define(AIUsagePlaceholderTable, []registry.Column{}, registry.Options{})
}
