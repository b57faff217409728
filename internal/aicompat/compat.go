// Package aicompat keeps callers of the retired AI model feature working.
// The feature moved to the tenant center; what is left here is a capability
// flag, no-op adapters for the old interfaces and the two empty placeholder
// tables.
package aicompat

import (
	"context"
	"errors"
	"fmt"

	"github.com/ksred/schema-registry/internal/models"
	"github.com/ksred/schema-registry/internal/registry"
	"github.com/ksred/schema-registry/internal/utils"
	"github.com/rs/zerolog"
)

// Capability says what remains of the AI model feature in this deployment
type Capability string

const (
	// CapabilityPlaceholders keeps the empty placeholder tables registered
	CapabilityPlaceholders Capability = "placeholders"
	// CapabilityRemoved registers nothing; only the no-op adapters remain
	CapabilityRemoved Capability = "removed"
)

var (
	// ErrFeatureRetired is returned by lookups against the retired feature
	ErrFeatureRetired = errors.New("ai model feature has moved to the tenant center")

	errNegativeCost = utils.InvalidFieldError("cost", "must not be negative")
)

// ParseCapability maps a config value to a Capability
func ParseCapability(s string) (Capability, error) {
	switch Capability(s) {
	case CapabilityPlaceholders, CapabilityRemoved:
		return Capability(s), nil
	case "":
		return CapabilityPlaceholders, nil
	default:
		return "", utils.InvalidFieldError("legacy.ai_models", fmt.Sprintf("unknown capability %q", s))
	}
}

// ModelCatalog is the lookup side of the old AI model feature
type ModelCatalog interface {
	ListModels(ctx context.Context) ([]ModelConfig, error)
	GetModel(ctx context.Context, id uint) (*ModelConfig, error)
}

// UsageRecorder is the accounting side of the old AI model feature
type UsageRecorder interface {
	RecordUsage(ctx context.Context, record UsageRecord) error
}

// Retired implements ModelCatalog and UsageRecorder without storage
type Retired struct {
	logger zerolog.Logger
}

// NewRetired creates the no-op adapter
func NewRetired(logger zerolog.Logger) *Retired {
	return &Retired{logger: utils.ForComponent(logger, "aicompat")}
}

// ListModels always returns an empty list
func (r *Retired) ListModels(ctx context.Context) ([]ModelConfig, error) {
	return []ModelConfig{}, nil
}

// GetModel always fails with ErrFeatureRetired
func (r *Retired) GetModel(ctx context.Context, id uint) (*ModelConfig, error) {
	return nil, fmt.Errorf("get model %d: %w", id, ErrFeatureRetired)
}

// RecordUsage validates and then drops the record
func (r *Retired) RecordUsage(ctx context.Context, record UsageRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	r.logger.Debug().
		Uint("model_id", record.ModelID).
		Int("token_count", record.TokenCount).
		Str("cost", record.Cost.String()).
		Msg("Usage dropped, feature retired")
	return nil
}

// Placeholders holds the handles registered for the capability
type Placeholders struct {
	Model *registry.Definition
	Usage *registry.Definition
}

// RegisterPlaceholders defines both placeholder tables when the capability
// keeps them. With CapabilityRemoved it returns empty handles and no error.
func RegisterPlaceholders(reg models.Definer, capability Capability) (Placeholders, error) {
	if capability == CapabilityRemoved {
		return Placeholders{}, nil
	}

	model, err := models.AIModelPlaceholder(reg)
	if err != nil {
		return Placeholders{}, err
	}
	usage, err := models.AIUsagePlaceholder(reg)
	if err != nil {
		return Placeholders{}, err
	}
	return Placeholders{Model: model, Usage: usage}, nil
}
