package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/socialchef/recipe-agent/internal/config"
	apperrors "github.com/socialchef/recipe-agent/internal/errors"
	"github.com/socialchef/recipe-agent/internal/formatter"
	"github.com/socialchef/recipe-agent/internal/logger"
	"github.com/socialchef/recipe-agent/internal/metrics"
	"github.com/socialchef/recipe-agent/internal/sentry"
	"github.com/socialchef/recipe-agent/internal/services/recipe"
	"github.com/socialchef/recipe-agent/internal/telemetry"
	"github.com/socialchef/recipe-agent/internal/validation"
	"go.opentelemetry.io/otel/attribute"
)

// ServiceName is reported by the health check.
const ServiceName = "Recipe Preparation Agent"

// maxBodyBytes caps request bodies well above any valid ingredient list.
const maxBodyBytes = 1 << 20

//go:embed static/index.html
var indexHTML []byte

var tracer = telemetry.Tracer("github.com/socialchef/recipe-agent/internal/api")

type Server struct {
	cfg      *config.Config
	provider recipe.Provider
}

func NewServer(cfg *config.Config, provider recipe.Provider) *Server {
	return &Server{
		cfg:      cfg,
		provider: provider,
	}
}

type GenerateRecipeRequest struct {
	Ingredients string `json:"ingredients"`
}

type GenerateRecipeResponse struct {
	Success         bool               `json:"success"`
	Recipe          string             `json:"recipe"`
	IngredientsUsed string             `json:"ingredients_used"`
	Summary         *formatter.Summary `json:"summary,omitempty"`
	Fallback        bool               `json:"fallback"`
	Cached          bool               `json:"cached,omitempty"`
}

// legacyErrorResponse reports an upstream failure as recipe text with 200.
type legacyErrorResponse struct {
	Success         bool   `json:"success"`
	Recipe          string `json:"recipe"`
	IngredientsUsed string `json:"ingredients_used"`
}

type FormatRecipeRequest struct {
	Recipe string `json:"recipe"`
}

type FormatRecipeResponse struct {
	Success bool `json:"success"`
	formatter.Formatted
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (s *Server) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}

// HandleHealth never calls the generation service.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Service: ServiceName})
}

func (s *Server) HandleGenerateRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GenerateRecipeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Success: false, Error: "Invalid request body"})
		return
	}

	if err := validation.Ingredients(req.Ingredients, s.cfg.MaxIngredientsLength); err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code() == "INGREDIENTS_REQUIRED" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": validation.MsgIngredientsRequired})
			return
		}
		metrics.RecordGeneration(ctx, "rejected")
		if errors.As(err, &appErr) {
			writeError(w, appErr)
			return
		}
		writeError(w, apperrors.NewValidationError(err.Error(), "INVALID_INGREDIENTS", ""))
		return
	}

	generationID := uuid.NewString()
	w.Header().Set("X-Generation-ID", generationID)

	gen, err := s.provider.Generate(ctx, req.Ingredients)
	if err != nil {
		s.handleGenerationError(ctx, w, req.Ingredients, generationID, err)
		return
	}

	summary := s.summarize(ctx, gen.Text)

	if check := validation.QuickValidate(gen.Text); !check.IsValid || check.Confidence != validation.ConfidenceHigh {
		slog.WarnContext(ctx, "Generated text does not look like a recipe",
			"generation_id", generationID,
			"reason", check.Reason,
			"confidence", check.Confidence)
	}

	outcome := "success"
	switch {
	case gen.Cached:
		outcome = "cached"
	case gen.Fallback:
		outcome = "fallback"
	}
	metrics.RecordGeneration(ctx, outcome)
	metrics.RecordIngredientCount(ctx, summary.IngredientCount)

	slog.InfoContext(ctx, "Recipe generated",
		"generation_id", generationID,
		"provider", gen.Provider,
		"model", gen.Model,
		"fallback", gen.Fallback,
		"cached", gen.Cached,
		"ingredient_count", summary.IngredientCount,
		"instruction_count", summary.InstructionCount,
		logger.WithTraceContext(ctx))

	writeJSON(w, http.StatusOK, GenerateRecipeResponse{
		Success:         true,
		Recipe:          gen.Text,
		IngredientsUsed: req.Ingredients,
		Summary:         &summary,
		Fallback:        gen.Fallback,
		Cached:          gen.Cached,
	})
}

func (s *Server) summarize(ctx context.Context, text string) formatter.Summary {
	_, span := tracer.Start(ctx, "formatter.GenerateSummary")
	defer span.End()

	summary := formatter.GenerateSummary(text)
	span.SetAttributes(
		attribute.Int("recipe.ingredient_count", summary.IngredientCount),
		attribute.Int("recipe.instruction_count", summary.InstructionCount),
	)
	return summary
}

func (s *Server) handleGenerationError(ctx context.Context, w http.ResponseWriter, ingredients, generationID string, err error) {
	providerErr := recipe.ClassifyError(err, "")
	appErr := upstreamAppError(providerErr)

	metrics.RecordGeneration(ctx, "error")
	slog.ErrorContext(ctx, "Recipe generation failed",
		"generation_id", generationID,
		"provider", providerErr.Provider,
		"error_type", providerErr.Type,
		"error", err.Error(),
		logger.WithTraceContext(ctx))

	if providerErr.Type == recipe.ErrorTypeServer || providerErr.Type == recipe.ErrorTypeUnknown {
		sentry.CaptureError(ctx, err, map[string]string{
			"provider":      providerErr.Provider,
			"error_type":    providerErr.Type,
			"generation_id": generationID,
		})
	}

	if s.cfg.LegacyErrorPayload {
		writeJSON(w, http.StatusOK, legacyErrorResponse{
			Success:         true,
			Recipe:          appErr.Message,
			IngredientsUsed: ingredients,
		})
		return
	}

	writeError(w, appErr)
}

// upstreamAppError maps a classified provider failure to 503 when the
// service is throttled or out of credit and to 502 otherwise.
func upstreamAppError(providerErr *recipe.ProviderError) *apperrors.AppError {
	msg := "Error generating recipe: " + providerErr.Message
	code := "UPSTREAM_" + strings.ToUpper(providerErr.Type)

	switch providerErr.Type {
	case recipe.ErrorTypeRateLimit, recipe.ErrorTypeCreditExhausted:
		return apperrors.NewUpstreamUnavailableError(msg, code, providerErr)
	default:
		return apperrors.NewUpstreamError(msg, code, providerErr)
	}
}

func (s *Server) HandleFormatRecipe(w http.ResponseWriter, r *http.Request) {
	var req FormatRecipeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Success: false, Error: "Invalid request body"})
		return
	}

	if strings.TrimSpace(req.Recipe) == "" {
		writeError(w, apperrors.NewValidationError("Please provide recipe text", "RECIPE_REQUIRED",
			"Send the recipe text in the \"recipe\" field."))
		return
	}

	_, span := tracer.Start(r.Context(), "formatter.Format")
	formatted := formatter.Format(req.Recipe)
	span.End()

	writeJSON(w, http.StatusOK, FormatRecipeResponse{Success: true, Formatted: formatted})
}
