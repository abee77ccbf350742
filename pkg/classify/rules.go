package classify

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CodeRule maps an exact provider error code to a classification.
type CodeRule struct {
	Code        string `yaml:"code" json:"code"`
	Type        string `yaml:"type" json:"type"`
	Retryable   bool   `yaml:"retryable" json:"retryable"`
	Description string `yaml:"description" json:"description"`
	Action      string `yaml:"action" json:"action"`
}

// KeywordRule classifies by substring match on the provider error message.
type KeywordRule struct {
	Keywords  []string `yaml:"keywords" json:"keywords"`
	Type      string   `yaml:"type" json:"type"`
	Retryable bool     `yaml:"retryable" json:"retryable"`
	Action    string   `yaml:"action" json:"action"`
}

type RulesConfig struct {
	Codes    []CodeRule    `yaml:"codes" json:"codes"`
	Keywords []KeywordRule `yaml:"keywords" json:"keywords"`
}

// LoadRules reads a rule table from a YAML file, falling back to the
// built-in defaults when no path is configured.
func LoadRules(path string) (RulesConfig, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultRules(), err
	}

	// Any failure yields the built-in table, never an empty one: a broken
	// rules file must not silently disable classification.
	var cfg RulesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return DefaultRules(), err
	}

	if len(cfg.Codes) == 0 && len(cfg.Keywords) == 0 {
		return DefaultRules(), errors.New("no classification rules configured")
	}

	return cfg, nil
}

// DefaultRules returns the provider error taxonomy shipped with the engine.
func DefaultRules() RulesConfig {
	return RulesConfig{
		Codes: []CodeRule{
			{Code: "ADDRESS_INVALID", Type: TypeRecoverable, Retryable: true, Description: "recipient address rejected by provider", Action: "correct the shipping address, then retry"},
			{Code: "PRODUCT_UNAVAILABLE", Type: TypeRecoverable, Retryable: true, Description: "product temporarily unavailable at provider", Action: "swap the variant or wait for restock"},
			{Code: "INSUFFICIENT_STOCK", Type: TypeCritical, Retryable: false, Description: "provider has no stock for a requested variant", Action: "replace the variant before resubmitting"},
			{Code: "PAYMENT_FAILED", Type: TypeCritical, Retryable: false, Description: "provider billing rejected the order", Action: "review provider billing settings"},
			{Code: "ACCOUNT_SUSPENDED", Type: TypeCritical, Retryable: false, Description: "provider account is suspended", Action: "contact provider support"},
		},
		// Keyword rules are evaluated in order; first match wins.
		Keywords: []KeywordRule{
			{Keywords: []string{"timeout", "timed out", "deadline exceeded", "connection", "network", "unreachable", "temporarily", "econnrefused", "econnreset"}, Type: TypeTemporal, Retryable: true, Action: "automatic retry"},
			{Keywords: []string{"address", "recipient", "zip", "postal", "country", "shipping"}, Type: TypeRecoverable, Retryable: true, Action: "correct the shipping address, then retry"},
			{Keywords: []string{"variant", "product", "stock", "sku", "unavailable", "print file", "design"}, Type: TypeRecoverable, Retryable: true, Action: "review the order's items, then retry"},
			{Keywords: []string{"payment", "billing", "insufficient funds", "charge"}, Type: TypeCritical, Retryable: false, Action: "review provider billing settings"},
		},
	}
}
