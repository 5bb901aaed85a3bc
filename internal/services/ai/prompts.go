package ai

import (
	"fmt"
	"strings"
)

// SystemPrompt is sent as the system message to chat-completion providers.
// The watsonx text-generation endpoint takes a single input string and does not use it.
const SystemPrompt = `You are a helpful cooking assistant. You write complete, practical home-cooking recipes in plain text. Do not use HTML or Markdown tables.`

const requestSection = `Create a detailed recipe using the following ingredients: %s`

// recipeItems is the list of parts every generated recipe must contain.
// The section detectors in the formatter key off the same words.
var recipeItems = []string{
	"Recipe Name",
	"Preparation Time",
	"Cooking Time",
	"Servings",
	"Complete ingredient list with measurements",
	"Step-by-step cooking instructions",
	"Cooking tips and tricks",
	"Possible ingredient substitutions",
	"Nutritional highlights",
}

const structureSection = `Format the response in a clear, easy-to-follow structure.`

// BuildRecipePrompt returns the generation prompt for the given ingredients.
// The ingredients are embedded verbatim and the output is deterministic.
func BuildRecipePrompt(ingredients string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(requestSection, ingredients))
	sb.WriteString("\n\nPlease provide:\n")
	for i, item := range recipeItems {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, item))
	}
	sb.WriteString("\n")
	sb.WriteString(structureSection)

	return sb.String()
}
