package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelPricing is the per-1000-token cost for a model, split by prompt and
// completion tokens.
type ModelPricing struct {
	Prompt     float64 `yaml:"prompt"`
	Completion float64 `yaml:"completion"`
}

// PricingTable maps model names to pricing. Unknown models fall back to the
// Default entry instead of erroring, so a new model never breaks usage
// accounting.
type PricingTable struct {
	Models  map[string]ModelPricing `yaml:"models"`
	Default ModelPricing            `yaml:"default"`
}

// DefaultPricingTable returns the compiled-in pricing table.
func DefaultPricingTable() PricingTable {
	return PricingTable{
		Models: map[string]ModelPricing{
			"gpt-4":         {Prompt: 0.03, Completion: 0.06},
			"gpt-4-turbo":   {Prompt: 0.01, Completion: 0.03},
			"gpt-3.5-turbo": {Prompt: 0.0005, Completion: 0.0015},
		},
		Default: ModelPricing{Prompt: 0.03, Completion: 0.06},
	}
}

// LoadPricingTable reads a pricing table from a YAML file. An empty path
// returns the compiled-in defaults.
func LoadPricingTable(path string) (PricingTable, error) {
	if path == "" {
		return DefaultPricingTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return PricingTable{}, fmt.Errorf("read pricing file: %w", err)
	}

	var table PricingTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return PricingTable{}, fmt.Errorf("parse pricing file: %w", err)
	}

	// Merge missing pieces from the defaults so a partial file stays usable.
	defaults := DefaultPricingTable()
	if table.Models == nil {
		table.Models = defaults.Models
	}
	if table.Default == (ModelPricing{}) {
		table.Default = defaults.Default
	}

	return table, nil
}

// For returns the pricing for a model, falling back to the default entry.
func (t PricingTable) For(model string) ModelPricing {
	if p, ok := t.Models[model]; ok {
		return p
	}
	return t.Default
}

// Cost computes the dollar cost of a call given token counts.
func (t PricingTable) Cost(model string, promptTokens, completionTokens int) float64 {
	p := t.For(model)
	return float64(promptTokens)/1000*p.Prompt + float64(completionTokens)/1000*p.Completion
}
