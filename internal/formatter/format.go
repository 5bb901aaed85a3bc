package formatter

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// Formatted is everything the formatter can derive from one recipe text.
type Formatted struct {
	Sections    Sections `json:"sections"`
	Times       Times    `json:"times"`
	Servings    string   `json:"servings"`
	Ingredients []string `json:"ingredients"`
	Display     string   `json:"display"`
	Summary     Summary  `json:"summary"`
}

// maxStripPasses bounds how many levels of entity-escaped markup are unwrapped.
const maxStripPasses = 4

// StripMarkup removes HTML tags the model may have emitted and returns plain
// text. Entities are decoded after each pass and the text is sanitized again,
// so escaped markup such as "&lt;img&gt;" cannot come back as a live tag. The
// result is a fixed point: sanitizing it removes nothing. Text that is still
// changing after maxStripPasses is returned in its escaped, sanitized form.
func StripMarkup(text string) string {
	if !strings.ContainsAny(text, "<>&") {
		return text
	}
	for range maxStripPasses {
		plain := html.UnescapeString(strictPolicy.Sanitize(text))
		if plain == text {
			return plain
		}
		text = plain
	}
	return strictPolicy.Sanitize(text)
}

// Format runs every extraction over text once markup has been stripped.
func Format(text string) Formatted {
	clean := StripMarkup(text)
	sections := ParseSections(clean)
	times := ExtractCookingTime(clean)

	return Formatted{
		Sections:    sections,
		Times:       times,
		Servings:    ExtractServings(clean),
		Ingredients: ValidateIngredients(sections.Ingredients),
		Display:     FormatForDisplay(clean),
		Summary:     GenerateSummary(clean),
	}
}
