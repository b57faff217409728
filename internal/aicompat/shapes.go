package aicompat

import (
	"github.com/ksred/schema-registry/internal/utils"
	"github.com/shopspring/decimal"
)

// ModelConfig is the configuration record of the retired AI model feature.
// The placeholder tables do not store it.
type ModelConfig struct {
	ID        uint   `json:"id"`
	ModelName string `json:"model_name"`
	Provider  string `json:"provider"`
	IsActive  bool   `json:"is_active"`
}

// UsageRecord is one usage entry of the retired AI model feature
type UsageRecord struct {
	ID         uint            `json:"id"`
	ModelID    uint            `json:"model_id" validate:"required"`
	TokenCount int             `json:"token_count" validate:"gte=0"`
	Cost       decimal.Decimal `json:"cost"`
}

var validate = utils.NewValidator()

// Validate checks the struct tags and that the cost is not negative
func (u UsageRecord) Validate() error {
	if err := validate.Struct(u); err != nil {
		return utils.TranslateValidatorError(err)
	}
	if u.Cost.IsNegative() {
		return errNegativeCost
	}
	return nil
}
