package classify

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules file: %v", err)
	}
	return path
}

func TestLoadRulesCustomTable(t *testing.T) {
	path := writeRulesFile(t, `
codes:
  - code: CUSTOM_CODE
    type: critical
    retryable: false
    description: custom rule
    action: page someone
`)
	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rules.Codes) != 1 || rules.Codes[0].Code != "CUSTOM_CODE" {
		t.Fatalf("custom table not loaded: %+v", rules)
	}
}

func TestLoadRulesMalformedFileFallsBackToDefaults(t *testing.T) {
	path := writeRulesFile(t, "codes: [unclosed")

	rules, err := LoadRules(path)
	if err == nil {
		t.Fatal("expected unmarshal error")
	}
	if len(rules.Codes) == 0 || len(rules.Keywords) == 0 {
		t.Fatalf("malformed file must yield the built-in table, got %+v", rules)
	}

	cls := New(rules).Classify(Failure{Message: "request timed out"})
	if cls.ErrorType != TypeTemporal || !cls.Retryable {
		t.Fatalf("fallback table must still classify timeouts: %+v", cls)
	}
}

func TestLoadRulesEmptyFileFallsBackToDefaults(t *testing.T) {
	path := writeRulesFile(t, "codes: []\nkeywords: []\n")

	rules, err := LoadRules(path)
	if err == nil {
		t.Fatal("expected error for empty rule table")
	}
	if len(rules.Codes) == 0 || len(rules.Keywords) == 0 {
		t.Fatal("empty file must yield the built-in table")
	}
}

func TestLoadRulesMissingFileFallsBackToDefaults(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected read error")
	}
	if len(rules.Codes) == 0 {
		t.Fatal("missing file must yield the built-in table")
	}
}
