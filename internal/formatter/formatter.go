// Package formatter turns the free-text recipes produced by the generation
// service into structured sections, cooking times, servings and a summary.
//
// The input has no grammar: it is whatever the model wrote. Section headers
// are recognised by keyword tests applied in a fixed order, so a line such as
// "Cooking tips for prep time" is classified by the first detector that
// matches it, not by the most plausible reading.
package formatter

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultRecipeName is used by GenerateSummary when no name was found.
const DefaultRecipeName = "Delicious Recipe"

// Section identifies a part of a recipe.
type Section string

const (
	SectionNone          Section = ""
	SectionName          Section = "name"
	SectionPrepTime      Section = "prep_time"
	SectionCookTime      Section = "cook_time"
	SectionServings      Section = "servings"
	SectionIngredients   Section = "ingredients"
	SectionInstructions  Section = "instructions"
	SectionTips          Section = "tips"
	SectionSubstitutions Section = "substitutions"
)

// Sections is the structured form of a recipe. Every field is always
// present; list fields are empty slices rather than nil so they encode as [].
type Sections struct {
	Name          string   `json:"name"`
	PrepTime      string   `json:"prep_time"`
	CookTime      string   `json:"cook_time"`
	Servings      string   `json:"servings"`
	Ingredients   []string `json:"ingredients"`
	Instructions  []string `json:"instructions"`
	Tips          []string `json:"tips"`
	Substitutions []string `json:"substitutions"`
}

// Times holds durations found anywhere in the text, e.g. "20 minutes" or "1-2 hours".
type Times struct {
	PrepTime  string `json:"prep_time"`
	CookTime  string `json:"cook_time"`
	TotalTime string `json:"total_time"`
}

// Summary is a read-only digest of a recipe.
type Summary struct {
	Name             string `json:"name"`
	PrepTime         string `json:"prep_time"`
	CookTime         string `json:"cook_time"`
	TotalTime        string `json:"total_time"`
	Servings         string `json:"servings"`
	IngredientCount  int    `json:"ingredient_count"`
	InstructionCount int    `json:"instruction_count"`
	HasTips          bool   `json:"has_tips"`
	HasSubstitutions bool   `json:"has_substitutions"`
}

type detector struct {
	section Section
	match   func(line, lower string) bool
}

func containsAll(lower string, words ...string) bool {
	for _, w := range words {
		if !strings.Contains(lower, w) {
			return false
		}
	}
	return true
}

// detectors are evaluated in order; the first match wins.
var detectors = []detector{
	{SectionName, func(line, lower string) bool {
		return strings.Contains(lower, "recipe name") || strings.HasPrefix(line, "Recipe:")
	}},
	{SectionPrepTime, func(_, lower string) bool { return containsAll(lower, "prep", "time") }},
	{SectionCookTime, func(_, lower string) bool { return containsAll(lower, "cook", "time") }},
	{SectionServings, func(_, lower string) bool { return strings.Contains(lower, "serving") }},
	{SectionIngredients, func(_, lower string) bool { return strings.Contains(lower, "ingredient") }},
	{SectionInstructions, func(_, lower string) bool {
		return strings.Contains(lower, "instruction") || strings.Contains(lower, "step")
	}},
	{SectionTips, func(_, lower string) bool { return strings.Contains(lower, "tip") }},
	{SectionSubstitutions, func(_, lower string) bool { return strings.Contains(lower, "substitution") }},
}

// DetectHeader returns the section a line switches to, or SectionNone if the
// line is content.
func DetectHeader(line string) Section {
	lower := strings.ToLower(line)
	for _, d := range detectors {
		if d.match(line, lower) {
			return d.section
		}
	}
	return SectionNone
}

func newSections() Sections {
	return Sections{
		Ingredients:   []string{},
		Instructions:  []string{},
		Tips:          []string{},
		Substitutions: []string{},
	}
}

func (s *Sections) scalar(sec Section) *string {
	switch sec {
	case SectionName:
		return &s.Name
	case SectionPrepTime:
		return &s.PrepTime
	case SectionCookTime:
		return &s.CookTime
	case SectionServings:
		return &s.Servings
	}
	return nil
}

func (s *Sections) list(sec Section) *[]string {
	switch sec {
	case SectionIngredients:
		return &s.Ingredients
	case SectionInstructions:
		return &s.Instructions
	case SectionTips:
		return &s.Tips
	case SectionSubstitutions:
		return &s.Substitutions
	}
	return nil
}

// ParseSections splits recipe text into sections by scanning it line by line.
//
// Header lines switch the current section. Content lines overwrite scalar
// sections (the last one wins) and are appended to list sections. Content
// seen before the first header is dropped. A scalar header that carries a
// value after its colon ("Servings: 4") assigns that value.
func ParseSections(text string) Sections {
	sections := newSections()
	current := SectionNone

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if sec := DetectHeader(line); sec != SectionNone {
			current = sec
			if dst := sections.scalar(sec); dst != nil {
				if _, value, ok := strings.Cut(line, ":"); ok {
					if value = strings.TrimSpace(value); value != "" {
						*dst = value
					}
				}
			}
			continue
		}

		if dst := sections.scalar(current); dst != nil {
			*dst = line
		} else if dst := sections.list(current); dst != nil {
			*dst = append(*dst, line)
		}
	}

	return sections
}

// FormatForDisplay removes leading whitespace from every line and collapses
// each run of blank lines into a single empty line. It is idempotent.
func FormatForDisplay(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false

	for _, line := range lines {
		line = strings.TrimLeftFunc(line, unicode.IsSpace)
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}

// Longer unit spellings come first so "20 minutes" is captured whole rather than as "20 min".
const durationPattern = `(\d+(?:\s*-\s*\d+)?\s*(?:minute|min|hour|hr)s?)`

var (
	prepTimeRe  = regexp.MustCompile(`(?i)prep(?:aration)?\s*time[:\s]*` + durationPattern)
	cookTimeRe  = regexp.MustCompile(`(?i)cook(?:ing)?\s*time[:\s]*` + durationPattern)
	totalTimeRe = regexp.MustCompile(`(?i)total\s*time[:\s]*` + durationPattern)

	servingsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)serves?\s*:?\s*(\d+(?:\s*-\s*\d+)?)`),
		regexp.MustCompile(`(?i)servings?[:\s]*(\d+(?:\s*-\s*\d+)?)`),
		regexp.MustCompile(`(?i)yield[:\s]*(\d+(?:\s*-\s*\d+)?)`),
	}

	bulletRe = regexp.MustCompile(`^[-•*]\s*`)
)

func firstGroup(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// ExtractCookingTime searches the whole text for prep, cook and total times.
// Each search is independent and anchored to its own keyword.
func ExtractCookingTime(text string) Times {
	return Times{
		PrepTime:  firstGroup(prepTimeRe, text),
		CookTime:  firstGroup(cookTimeRe, text),
		TotalTime: firstGroup(totalTimeRe, text),
	}
}

// ExtractServings returns the first serving count or range ("4", "4-6"), or "".
func ExtractServings(text string) string {
	for _, re := range servingsPatterns {
		if v := firstGroup(re, text); v != "" {
			return v
		}
	}
	return ""
}

// ValidateIngredients trims ingredient lines, drops empty and single-character
// entries and strips one leading bullet marker. Order is preserved.
func ValidateIngredients(ingredients []string) []string {
	cleaned := make([]string, 0, len(ingredients))
	for _, ingredient := range ingredients {
		ingredient = strings.TrimSpace(ingredient)
		if utf8.RuneCountInString(ingredient) <= 1 {
			continue
		}
		cleaned = append(cleaned, bulletRe.ReplaceAllString(ingredient, ""))
	}
	return cleaned
}

// GenerateSummary composes ParseSections, ExtractCookingTime and
// ExtractServings over the same text. Counts are taken from the parsed
// sections before ingredient validation.
func GenerateSummary(text string) Summary {
	sections := ParseSections(text)
	times := ExtractCookingTime(text)

	name := sections.Name
	if name == "" {
		name = DefaultRecipeName
	}

	return Summary{
		Name:             name,
		PrepTime:         times.PrepTime,
		CookTime:         times.CookTime,
		TotalTime:        times.TotalTime,
		Servings:         ExtractServings(text),
		IngredientCount:  len(sections.Ingredients),
		InstructionCount: len(sections.Instructions),
		HasTips:          len(sections.Tips) > 0,
		HasSubstitutions: len(sections.Substitutions) > 0,
	}
}
