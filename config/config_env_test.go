package config

import (
	"strings"
	"testing"
)

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "secret-from-env")

	yamlConfig := `
gemini:
  api_key: ${TEST_GEMINI_KEY}
  model: ${TEST_GEMINI_MODEL:-gemini-2.0-flash}
`

	config, err := Load(strings.NewReader(yamlConfig))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Gemini.APIKey != "secret-from-env" {
		t.Errorf("expected API key from environment, got %q", config.Gemini.APIKey)
	}
	if config.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("expected default value for unset variable, got %q", config.Gemini.Model)
	}
}

func TestEnvVarDefaultOverridden(t *testing.T) {
	t.Setenv("TEST_GEMINI_MODEL", "gemini-2.5-flash")

	config, err := Load(strings.NewReader("gemini:\n  model: ${TEST_GEMINI_MODEL:-gemini-2.0-flash}\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("environment value should win over default, got %q", config.Gemini.Model)
	}
}

func TestDefaultHonorsPortEnv(t *testing.T) {
	t.Setenv("PORT", "9100")

	config := Default()
	if config.Server.Port != 9100 {
		t.Errorf("expected PORT env to set the port, got %d", config.Server.Port)
	}
}

func TestDefaultIgnoresMalformedPortEnv(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	config := Default()
	if config.Server.Port != 8000 {
		t.Errorf("malformed PORT should fall back to 8000, got %d", config.Server.Port)
	}
}
