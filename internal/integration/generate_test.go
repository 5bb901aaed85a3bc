// Package integration drives the full router against a fake watsonx.ai
// deployment.
package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/socialchef/recipe-agent/internal/api"
	"github.com/socialchef/recipe-agent/internal/cache"
	"github.com/socialchef/recipe-agent/internal/config"
	"github.com/socialchef/recipe-agent/internal/middleware"
	"github.com/socialchef/recipe-agent/internal/services/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const generatedRecipe = `Recipe Name: Garlic Chicken and Rice
Prep Time: 15 minutes
Cook Time: 30 minutes
Servings: 4
Ingredients:
- 2 chicken breasts
- 1 cup rice
- 3 cloves garlic
Instructions:
1. Season and sear the chicken.
2. Cook the rice with the garlic.
3. Slice the chicken and serve over rice.
Tips:
Rest the chicken for 5 minutes before slicing.`

type fakeWatsonx struct {
	tokenCalls      atomic.Int32
	generationCalls atomic.Int32
	// status answers every generation request when non-zero
	status atomic.Int32
	prompt atomic.Value
}

func (f *fakeWatsonx) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /identity/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"integration-token","expires_in":3600,"expiration":%d}`,
			time.Now().Add(time.Hour).Unix())
	})
	mux.HandleFunc("POST /ml/v1/text/generation", func(w http.ResponseWriter, r *http.Request) {
		f.generationCalls.Add(1)

		var req struct {
			ModelID   string `json:"model_id"`
			Input     string `json:"input"`
			ProjectID string `json:"project_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || r.Header.Get("Authorization") != "Bearer integration-token" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.prompt.Store(req.Input)

		if status := int(f.status.Load()); status != 0 {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"errors":[{"code":"upstream","message":"try again later"}]}`)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model_id": req.ModelID,
			"results": []map[string]any{{
				"generated_text":        generatedRecipe,
				"generated_token_count": 120,
				"stop_reason":           "eos_token",
			}},
		})
	})
	return mux
}

func setup(t *testing.T, mutate func(*config.Config)) (http.Handler, *fakeWatsonx) {
	t.Helper()

	fake := &fakeWatsonx{}
	upstream := httptest.NewServer(fake.handler())
	t.Cleanup(upstream.Close)

	cfg := &config.Config{
		Watsonx: config.WatsonxConfig{
			APIKey:    "integration-key",
			ProjectID: "integration-project",
			URL:       upstream.URL,
			IAMURL:    upstream.URL + "/identity/token",
		},
	}
	cfg.SetDefaults()
	cfg.Cache.Enabled = true
	cfg.Generation.MaxAttempts = 1
	cfg.RateLimit.Disabled = true
	if mutate != nil {
		mutate(cfg)
	}

	var c cache.Cache
	if cfg.Cache.Enabled {
		c = cache.NewMemoryCache(cfg.Cache.Size, cfg.Cache.TTL)
	}

	provider := recipe.NewProvider(cfg, c)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := api.NewRouter(api.NewServer(cfg, provider), log, middleware.NewRateLimiterFromConfig(cfg.RateLimit))
	return router, fake
}

func generate(t *testing.T, h http.Handler, ingredients string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(api.GenerateRecipeRequest{Ingredients: ingredients})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/generate-recipe", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestGenerateRecipeEndToEnd(t *testing.T) {
	router, fake := setup(t, nil)

	rr := generate(t, router, "chicken, rice, garlic")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp api.GenerateRecipeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, generatedRecipe, resp.Recipe)
	assert.Equal(t, "chicken, rice, garlic", resp.IngredientsUsed)
	assert.False(t, resp.Fallback)
	assert.False(t, resp.Cached)

	require.NotNil(t, resp.Summary)
	assert.Equal(t, "Garlic Chicken and Rice", resp.Summary.Name)
	assert.Equal(t, "15 minutes", resp.Summary.PrepTime)
	assert.Equal(t, "30 minutes", resp.Summary.CookTime)
	assert.Equal(t, "4", resp.Summary.Servings)
	assert.Equal(t, 3, resp.Summary.IngredientCount)
	assert.Equal(t, 3, resp.Summary.InstructionCount)
	assert.True(t, resp.Summary.HasTips)
	assert.False(t, resp.Summary.HasSubstitutions)

	prompt, _ := fake.prompt.Load().(string)
	assert.Contains(t, prompt, "Create a detailed recipe using the following ingredients: chicken, rice, garlic")
	assert.EqualValues(t, 1, fake.tokenCalls.Load())
}

func TestGenerateRecipeServedFromCache(t *testing.T) {
	router, fake := setup(t, nil)

	first := generate(t, router, "eggs, spinach")
	require.Equal(t, http.StatusOK, first.Code)

	second := generate(t, router, "  eggs, spinach ")
	require.Equal(t, http.StatusOK, second.Code)

	var resp api.GenerateRecipeResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.True(t, resp.Cached)
	assert.Equal(t, generatedRecipe, resp.Recipe)
	assert.Equal(t, "  eggs, spinach ", resp.IngredientsUsed)

	assert.EqualValues(t, 1, fake.generationCalls.Load())
}

func TestGenerateRecipeCacheDisabled(t *testing.T) {
	router, fake := setup(t, func(cfg *config.Config) {
		cfg.Cache.Enabled = false
	})

	for range 2 {
		require.Equal(t, http.StatusOK, generate(t, router, "tofu").Code)
	}
	assert.EqualValues(t, 2, fake.generationCalls.Load())
	// the IAM token is reused between generations
	assert.EqualValues(t, 1, fake.tokenCalls.Load())
}

func TestGenerateRecipeUpstreamFailure(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		attempts   int
		wantStatus int
		wantCalls  int32
	}{
		{name: "server error is retried", status: http.StatusInternalServerError, attempts: 2, wantStatus: http.StatusBadGateway, wantCalls: 2},
		{name: "bad request is not retried", status: http.StatusBadRequest, attempts: 2, wantStatus: http.StatusBadGateway, wantCalls: 1},
		{name: "rate limited", status: http.StatusTooManyRequests, attempts: 1, wantStatus: http.StatusServiceUnavailable, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, fake := setup(t, func(cfg *config.Config) {
				cfg.Generation.MaxAttempts = tt.attempts
			})
			fake.status.Store(int32(tt.status))

			rr := generate(t, router, "beans")
			assert.Equal(t, tt.wantStatus, rr.Code)

			var body api.ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Contains(t, body.Error, "Error generating recipe: ")
			assert.Contains(t, body.Error, fmt.Sprintf("status %d", tt.status))
			assert.EqualValues(t, tt.wantCalls, fake.generationCalls.Load())
		})
	}
}

func TestFailedGenerationIsNotCached(t *testing.T) {
	router, fake := setup(t, nil)

	fake.status.Store(http.StatusInternalServerError)
	require.Equal(t, http.StatusBadGateway, generate(t, router, "lentils").Code)

	fake.status.Store(0)
	rr := generate(t, router, "lentils")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.GenerateRecipeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Cached)
	assert.EqualValues(t, 2, fake.generationCalls.Load())
}
