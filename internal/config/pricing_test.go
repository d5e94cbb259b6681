package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPricingTableCost(t *testing.T) {
	table := DefaultPricingTable()

	tests := []struct {
		name       string
		model      string
		prompt     int
		completion int
		want       float64
	}{
		{"gpt-4", "gpt-4", 1000, 1000, 0.09},
		{"gpt-3.5-turbo", "gpt-3.5-turbo", 2000, 1000, 0.0025},
		{"unknown model uses default", "mystery-model", 1000, 1000, 0.09},
		{"zero tokens", "gpt-4", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Cost(tt.model, tt.prompt, tt.completion)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Cost(%s, %d, %d) = %v, want %v", tt.model, tt.prompt, tt.completion, got, tt.want)
			}
		})
	}
}

func TestLoadPricingTable(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		table, err := LoadPricingTable("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := table.Models["gpt-4"]; !ok {
			t.Error("default table missing gpt-4")
		}
	})

	t.Run("file overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pricing.yaml")
		content := `models:
  my-model:
    prompt: 0.001
    completion: 0.002
default:
  prompt: 0.01
  completion: 0.02
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		table, err := LoadPricingTable(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		p := table.For("my-model")
		if p.Prompt != 0.001 || p.Completion != 0.002 {
			t.Errorf("For(my-model) = %+v", p)
		}
		if d := table.For("other"); d.Prompt != 0.01 {
			t.Errorf("fallback = %+v, want file default", d)
		}
	})

	t.Run("missing file errors", func(t *testing.T) {
		if _, err := LoadPricingTable("/nonexistent/pricing.yaml"); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
