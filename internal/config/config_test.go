package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/socialchef/recipe-agent/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return path
}

func TestLoadGenerationConfig(t *testing.T) {
	configPath := writeConfig(t, `generation:
  model_id: ibm/granite-3-8b-instruct
  max_new_tokens: 600
  temperature: 0.2
  timeout: 15s
fallback:
  enabled: true
  provider: openai
cache:
  ttl: 1m
rate_limit:
  requests_per_second: 2.5
  burst: 10`)

	cfg := &Config{}
	if err := cfg.LoadFromYAML(configPath); err != nil {
		t.Fatalf("Failed to load YAML config: %v", err)
	}
	cfg.SetDefaults()

	if cfg.Generation.ModelID != "ibm/granite-3-8b-instruct" {
		t.Errorf("Expected model_id override, got '%s'", cfg.Generation.ModelID)
	}
	if cfg.Generation.MaxNewTokens != 600 {
		t.Errorf("Expected max_new_tokens 600, got %d", cfg.Generation.MaxNewTokens)
	}
	if cfg.Generation.Temperature != 0.2 {
		t.Errorf("Expected temperature 0.2, got %v", cfg.Generation.Temperature)
	}
	if cfg.Generation.Timeout != 15*time.Second {
		t.Errorf("Expected timeout 15s, got %v", cfg.Generation.Timeout)
	}
	// Unset fields keep their defaults
	if cfg.Generation.TopP != 0.9 {
		t.Errorf("Expected default top_p 0.9, got %v", cfg.Generation.TopP)
	}
	if cfg.Generation.DecodingMethod != "greedy" {
		t.Errorf("Expected default decoding_method greedy, got '%s'", cfg.Generation.DecodingMethod)
	}
	if !cfg.Fallback.Enabled || cfg.Fallback.Provider != "openai" {
		t.Errorf("Expected openai fallback enabled, got %+v", cfg.Fallback)
	}
	if cfg.Fallback.Model != "gpt-4o-mini" {
		t.Errorf("Expected openai default model, got '%s'", cfg.Fallback.Model)
	}
	if cfg.Cache.TTL != time.Minute {
		t.Errorf("Expected cache ttl 1m, got %v", cfg.Cache.TTL)
	}
	if cfg.RateLimit.RequestsPerSecond != 2.5 || cfg.RateLimit.Burst != 10 {
		t.Errorf("Expected rate limit 2.5/10, got %+v", cfg.RateLimit)
	}
}

func TestGenerationDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	g := cfg.Generation
	if g.ModelID != DefaultModelID {
		t.Errorf("Expected default model, got '%s'", g.ModelID)
	}
	if g.MaxNewTokens != 1000 || g.Temperature != 0.7 || g.TopP != 0.9 || g.RepetitionPenalty != 1.1 {
		t.Errorf("Unexpected decoding defaults: %+v", g)
	}
	if g.MaxAttempts != 2 {
		t.Errorf("Expected one retry by default, got max_attempts %d", g.MaxAttempts)
	}
	if cfg.Watsonx.URL != DefaultWatsonxURL {
		t.Errorf("Expected default watsonx URL, got '%s'", cfg.Watsonx.URL)
	}
	if cfg.Fallback.Provider != "groq" || cfg.Fallback.Model != "llama-3.3-70b-versatile" {
		t.Errorf("Unexpected fallback defaults: %+v", cfg.Fallback)
	}
	if cfg.Port != "5000" {
		t.Errorf("Expected default port 5000, got '%s'", cfg.Port)
	}
}

func TestLoadFromYAMLFileNotFound(t *testing.T) {
	cfg := &Config{}
	if err := cfg.LoadFromYAML("non_existent_file.yaml"); err != nil {
		t.Errorf("Expected no error for non-existent file, got: %v", err)
	}
}

func TestLoadFromYAMLInvalid(t *testing.T) {
	configPath := writeConfig(t, `generation:
  model_id: x
  invalid_yaml: [unclosed`)

	cfg := &Config{}
	if err := cfg.LoadFromYAML(configPath); err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("IBM_WATSON_ML_API_KEY", "")
	t.Setenv("IBM_WATSON_ML_PROJECT_ID", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected configuration error, got nil")
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Type != apperrors.ErrorTypeConfig {
		t.Fatalf("Expected config AppError, got %T: %v", err, err)
	}
	for _, name := range []string{"IBM_WATSON_ML_API_KEY", "IBM_WATSON_ML_PROJECT_ID"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("Expected error to name %s, got %q", name, err.Error())
		}
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("IBM_WATSON_ML_API_KEY", "key")
	t.Setenv("IBM_WATSON_ML_PROJECT_ID", "project")
	t.Setenv("IBM_WATSON_ML_URL", "https://eu-de.ml.cloud.ibm.com")
	t.Setenv("LEGACY_ERROR_PAYLOAD", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "Authorization=Bearer x, X-Scope=1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Watsonx.URL != "https://eu-de.ml.cloud.ibm.com" {
		t.Errorf("Expected URL from env, got '%s'", cfg.Watsonx.URL)
	}
	if !cfg.LegacyErrorPayload {
		t.Error("Expected legacy error payload enabled")
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins: %v", cfg.AllowedOrigins)
	}
	headers := cfg.OTLPHeaders()
	if headers["Authorization"] != "Bearer x" || headers["X-Scope"] != "1" {
		t.Errorf("Unexpected OTLP headers: %v", headers)
	}
}

func TestValidateRejectsBadDecoding(t *testing.T) {
	cfg := &Config{Watsonx: WatsonxConfig{APIKey: "k", ProjectID: "p"}}
	cfg.SetDefaults()
	cfg.Generation.DecodingMethod = "beam"

	if err := cfg.validate(); err == nil {
		t.Error("Expected error for unsupported decoding method")
	}

	cfg.Generation.DecodingMethod = "sample"
	cfg.Generation.TopP = 1.5
	if err := cfg.validate(); err == nil {
		t.Error("Expected error for top_p > 1")
	}
}

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("IBM_WATSON_ML_API_KEY", "key")
	t.Setenv("IBM_WATSON_ML_PROJECT_ID", "project")
}

func TestLoadYAMLExplicitZero(t *testing.T) {
	setCredentials(t)
	t.Setenv("CONFIG_FILE", writeConfig(t, `generation:
  decoding_method: sample
  temperature: 0
  top_p: 0
fallback:
  provider: openai`))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Generation.Temperature != 0 {
		t.Errorf("Expected explicit temperature 0, got %v", cfg.Generation.Temperature)
	}
	if cfg.Generation.TopP != 0 {
		t.Errorf("Expected explicit top_p 0, got %v", cfg.Generation.TopP)
	}
	// keys the file leaves out keep their defaults
	if cfg.Generation.MaxNewTokens != 1000 || cfg.Generation.RepetitionPenalty != 1.1 {
		t.Errorf("Expected untouched defaults, got %+v", cfg.Generation)
	}
	if cfg.Fallback.Model != "gpt-4o-mini" {
		t.Errorf("Expected the openai default model, got '%s'", cfg.Fallback.Model)
	}
}

func TestLoadRejectsZeroMaxNewTokens(t *testing.T) {
	setCredentials(t)
	t.Setenv("CONFIG_FILE", writeConfig(t, `generation:
  max_new_tokens: 0`))

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "max_new_tokens must be positive") {
		t.Fatalf("Expected max_new_tokens error, got %v", err)
	}
}

func TestCacheIsOptIn(t *testing.T) {
	setCredentials(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("CACHE_ENABLED", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Cache.Enabled {
		t.Error("Expected the generation cache to be off by default")
	}

	t.Setenv("CONFIG_FILE", writeConfig(t, `cache:
  enabled: true
  ttl: 2m`))
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != 2*time.Minute || cfg.Cache.Size != 256 {
		t.Errorf("Unexpected cache config: %+v", cfg.Cache)
	}

	t.Setenv("CONFIG_FILE", writeConfig(t, `cache:
  enabled: true
  size: 0`))
	if _, err := Load(); err == nil {
		t.Error("Expected error for an enabled cache with size 0")
	}
}
