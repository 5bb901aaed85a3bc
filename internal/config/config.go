package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/socialchef/recipe-agent/internal/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWatsonxURL = "https://us-south.ml.cloud.ibm.com"
	DefaultIAMURL     = "https://iam.cloud.ibm.com/identity/token"
	DefaultModelID    = "ibm/granite-13b-chat-v2"
)

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string
	LogLevel       string

	Watsonx WatsonxConfig

	GroqKey   string
	OpenAIKey string

	RedisURL string

	OtelExporterOTLPEndpoint string
	OtelExporterOTLPHeaders  string
	SentryDSN                string

	Port           string
	AllowedOrigins []string
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxy bool

	// LegacyErrorPayload answers upstream failures with 200 and the error text
	// in the recipe field, for clients that cannot handle 5xx.
	LegacyErrorPayload   bool
	MaxIngredientsLength int

	Generation GenerationConfig
	Fallback   FallbackConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
}

// WatsonxConfig holds the credentials of the hosted generation service.
type WatsonxConfig struct {
	APIKey    string
	URL       string
	ProjectID string
	IAMURL    string
}

// GenerationConfig holds the model id and decoding parameters sent with every generation.
type GenerationConfig struct {
	ModelID           string        `yaml:"model_id"`
	DecodingMethod    string        `yaml:"decoding_method"`
	MaxNewTokens      int           `yaml:"max_new_tokens"`
	Temperature       float64       `yaml:"temperature"`
	TopP              float64       `yaml:"top_p"`
	RepetitionPenalty float64       `yaml:"repetition_penalty"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxAttempts       int           `yaml:"max_attempts"`
}

type FallbackConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// CacheConfig controls the optional generation cache. It is off unless enabled.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	TTL      time.Duration `yaml:"ttl"`
	Size     int           `yaml:"size"`
}

type RateLimitConfig struct {
	Disabled          bool    `yaml:"disabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:            os.Getenv("ENV"),
		ServiceName:    os.Getenv("SERVICE_NAME"),
		ServiceVersion: os.Getenv("SERVICE_VERSION"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		Watsonx: WatsonxConfig{
			APIKey:    os.Getenv("IBM_WATSON_ML_API_KEY"),
			URL:       os.Getenv("IBM_WATSON_ML_URL"),
			ProjectID: os.Getenv("IBM_WATSON_ML_PROJECT_ID"),
			IAMURL:    os.Getenv("IBM_IAM_URL"),
		},
		GroqKey:                  os.Getenv("GROQ_API_KEY"),
		OpenAIKey:                os.Getenv("OPENAI_API_KEY"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterOTLPHeaders:  os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		Port:                     os.Getenv("PORT"),
		AllowedOrigins:           splitList(os.Getenv("ALLOWED_ORIGINS")),
		TrustProxy:               envBool("TRUST_PROXY"),
		LegacyErrorPayload:       envBool("LEGACY_ERROR_PAYLOAD"),
		MaxIngredientsLength:     envInt("MAX_INGREDIENTS_LENGTH"),
	}

	cfg.Cache.Enabled = envBool("CACHE_ENABLED")

	// Defaults first: the file only overrides the keys it sets, zero included.
	cfg.SetDefaults()

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	if err := cfg.LoadFromYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Decoding into the current values keeps every key the file leaves out,
	// so an explicit zero (temperature: 0) is distinguishable from absence.
	yamlConfig := struct {
		Generation GenerationConfig `yaml:"generation"`
		Fallback   FallbackConfig   `yaml:"fallback"`
		Cache      CacheConfig      `yaml:"cache"`
		RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	}{
		Generation: c.Generation,
		Fallback:   c.Fallback,
		Cache:      c.Cache,
		RateLimit:  c.RateLimit,
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	// A new fallback provider without a model gets that provider's default model.
	if yamlConfig.Fallback.Provider != c.Fallback.Provider && yamlConfig.Fallback.Model == c.Fallback.Model {
		yamlConfig.Fallback.Model = ""
	}

	c.Generation = yamlConfig.Generation
	c.Fallback = yamlConfig.Fallback
	c.Cache = yamlConfig.Cache
	c.RateLimit = yamlConfig.RateLimit
	c.SetFallbackDefaults()

	return nil
}

// SetDefaults fills every unset field with its default.
func (c *Config) SetDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.ServiceName == "" {
		c.ServiceName = "recipe-agent"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "1.0.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Port == "" {
		c.Port = "5000"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.MaxIngredientsLength == 0 {
		c.MaxIngredientsLength = 2000
	}
	if c.Watsonx.URL == "" {
		c.Watsonx.URL = DefaultWatsonxURL
	}
	if c.Watsonx.IAMURL == "" {
		c.Watsonx.IAMURL = DefaultIAMURL
	}

	c.SetGenerationDefaults()
	c.SetFallbackDefaults()

	if c.Cache.TTL == 0 {
		c.Cache.TTL = 10 * time.Minute
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = 256
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 1
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 5
	}
}

func (c *Config) SetGenerationDefaults() {
	g := &c.Generation
	if g.ModelID == "" {
		g.ModelID = DefaultModelID
	}
	if g.DecodingMethod == "" {
		g.DecodingMethod = "greedy"
	}
	if g.MaxNewTokens == 0 {
		g.MaxNewTokens = 1000
	}
	if g.Temperature == 0 {
		g.Temperature = 0.7
	}
	if g.TopP == 0 {
		g.TopP = 0.9
	}
	if g.RepetitionPenalty == 0 {
		g.RepetitionPenalty = 1.1
	}
	if g.Timeout == 0 {
		g.Timeout = 60 * time.Second
	}
	if g.MaxAttempts == 0 {
		g.MaxAttempts = 2
	}
}

func (c *Config) SetFallbackDefaults() {
	if c.Fallback.Provider == "" {
		c.Fallback.Provider = "groq"
	}
	if c.Fallback.Model == "" {
		switch c.Fallback.Provider {
		case "openai":
			c.Fallback.Model = "gpt-4o-mini"
		default:
			c.Fallback.Model = "llama-3.3-70b-versatile"
		}
	}
}

func (c *Config) validate() error {
	var missing []string
	if c.Watsonx.APIKey == "" {
		missing = append(missing, "IBM_WATSON_ML_API_KEY")
	}
	if c.Watsonx.ProjectID == "" {
		missing = append(missing, "IBM_WATSON_ML_PROJECT_ID")
	}
	if len(missing) > 0 {
		return apperrors.NewConfigError(
			"missing required environment variables: "+strings.Join(missing, ", "),
			"MISSING_ENV",
		)
	}

	g := c.Generation
	if g.DecodingMethod != "greedy" && g.DecodingMethod != "sample" {
		return apperrors.NewConfigError(fmt.Sprintf("unsupported decoding_method %q", g.DecodingMethod), "INVALID_GENERATION")
	}
	if g.MaxNewTokens <= 0 {
		return apperrors.NewConfigError("max_new_tokens must be positive", "INVALID_GENERATION")
	}
	if g.TopP < 0 || g.TopP > 1 {
		return apperrors.NewConfigError("top_p must be within [0, 1]", "INVALID_GENERATION")
	}
	if g.Temperature < 0 {
		return apperrors.NewConfigError("temperature must not be negative", "INVALID_GENERATION")
	}
	if g.MaxAttempts < 1 {
		return apperrors.NewConfigError("max_attempts must be at least 1", "INVALID_GENERATION")
	}
	if c.Cache.Enabled && (c.Cache.Size <= 0 || c.Cache.TTL <= 0) {
		return apperrors.NewConfigError("cache size and ttl must be positive", "INVALID_CACHE")
	}
	return nil
}

// OTLPHeaders parses OTEL_EXPORTER_OTLP_HEADERS ("k1=v1,k2=v2").
func (c *Config) OTLPHeaders() map[string]string {
	headers := map[string]string{}
	for _, pair := range splitList(c.OtelExporterOTLPHeaders) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return headers
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func envInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}
