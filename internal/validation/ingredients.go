// Package validation checks user input before generation and generated
// text after it.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/socialchef/recipe-agent/internal/errors"
)

// MsgIngredientsRequired is the fixed message for an empty ingredient list.
const MsgIngredientsRequired = "Please provide ingredients"

// Ingredients validates a free-text ingredient list. The input is opaque:
// it must not be blank and, when maxLen is positive, must not exceed maxLen
// characters.
func Ingredients(input string, maxLen int) error {
	if strings.TrimSpace(input) == "" {
		return apperrors.NewValidationError(MsgIngredientsRequired, "INGREDIENTS_REQUIRED",
			"List the ingredients you have, separated by commas.")
	}

	if n := utf8.RuneCountInString(input); maxLen > 0 && n > maxLen {
		return apperrors.NewValidationError(
			fmt.Sprintf("Ingredient list is too long (%d characters, maximum %d)", n, maxLen),
			"INGREDIENTS_TOO_LONG",
			"Shorten the ingredient list.",
		)
	}

	return nil
}
