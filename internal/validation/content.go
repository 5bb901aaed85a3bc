package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// Confidence represents certainty in the validation result
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// MinRecipeLength is the shortest generated text that can hold a recipe.
const MinRecipeLength = 30

// ContentValidationResult contains the outcome of validation
type ContentValidationResult struct {
	IsValid    bool       `json:"is_valid"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason"`
	Missing    []string   `json:"missing"`
}

// recipeKeywords for quick heuristic validation
var recipeKeywords = []string{
	// Cooking verbs
	"bake", "cook", "fry", "boil", "grill", "roast", "saute", "simmer", "steam",
	"mix", "whisk", "stir", "blend", "chop", "dice", "slice", "preheat", "prepare",
	// Ingredients indicators
	"ingredient", "cup", "tablespoon", "teaspoon", "tbsp", "tsp", "ounce", "oz", "gram", "ml", "liter",
	// Recipe terms
	"recipe", "dish", "meal", "serve", "serving", "minutes", "hours", "temperature", "degrees",
}

var (
	placeholderWords = map[string]bool{
		"n/a":           true,
		"na":            true,
		"none":          true,
		"unknown":       true,
		"not specified": true,
		"tbd":           true,
		"xxx":           true,
	}
	bracketedRe = regexp.MustCompile(`^[\[<{].*[\]>}]$`)
)

// DetectPlaceholders reports whether text is empty or a stand-in value
// such as "N/A" or "[name]" rather than real content.
func DetectPlaceholders(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return true
	}
	return placeholderWords[t] || bracketedRe.MatchString(t)
}

// QuickValidate performs a fast heuristic check that generated text reads
// like a recipe. It never calls out to a model.
func QuickValidate(text string) ContentValidationResult {
	content := strings.TrimSpace(text)

	if len(content) < MinRecipeLength {
		reason := fmt.Sprintf("Content too short (%d chars). Need at least %d chars.", len(content), MinRecipeLength)
		if len(content) == 0 {
			reason = "No content provided"
		}
		return ContentValidationResult{
			IsValid:    false,
			Confidence: ConfidenceHigh,
			Reason:     reason,
			Missing:    []string{"sufficient content length"},
		}
	}

	if DetectPlaceholders(content) {
		return ContentValidationResult{
			IsValid:    false,
			Confidence: ConfidenceHigh,
			Reason:     "Content is a placeholder",
			Missing:    []string{"recipe content"},
		}
	}

	foundKeywords := false
	lowerContent := strings.ToLower(content)
	for _, kw := range recipeKeywords {
		if strings.Contains(lowerContent, kw) {
			foundKeywords = true
			break
		}
	}

	if !foundKeywords {
		return ContentValidationResult{
			IsValid:    true,
			Confidence: ConfidenceMedium,
			Reason:     "Content has sufficient length but no common recipe keywords found",
			Missing:    []string{"recipe keywords"},
		}
	}

	return ContentValidationResult{
		IsValid:    true,
		Confidence: ConfidenceHigh,
		Reason:     "Content passed quick validation",
		Missing:    []string{},
	}
}
