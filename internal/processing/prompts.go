package processing

import (
	"fmt"
	"strings"
)

// Scene keys sent to the completion backend. The backend selects its system
// prompt and output format by scene.
const (
	SceneTranslation  = "question_translation"
	ScenePolish       = "question_polish"
	SceneFillMissing  = "question_fill_missing"
	SceneCategoryTags = "question_category_tags"
)

// missingMarker labels an absent field in a fill_missing input so the model
// knows which parts to generate.
const missingMarker = "[missing]"

// buildTranslationInput assembles the question text for the translation
// scene. The layout is fixed: Content, then Options as a dash list, then
// Explanation, each section omitted when empty.
func buildTranslationInput(content string, options []string, explanation string) string {
	parts := []string{fmt.Sprintf("Content: %s", content)}

	if len(options) > 0 {
		parts = append(parts, "Options:\n- "+strings.Join(options, "\n- "))
	}

	if explanation != "" {
		parts = append(parts, fmt.Sprintf("Explanation: %s", explanation))
	}

	return strings.Join(parts, "\n")
}

// buildPolishInput assembles the question text for the polish scene. It
// leads with the content language so the model polishes in place instead of
// translating.
func buildPolishInput(locale, content string, options []string, explanation string) string {
	parts := []string{
		fmt.Sprintf("Language: %s", locale),
		fmt.Sprintf("Content: %s", content),
	}

	if len(options) > 0 {
		parts = append(parts, "Options:\n- "+strings.Join(options, "\n- "))
	}

	if explanation != "" {
		parts = append(parts, fmt.Sprintf("Explanation: %s", explanation))
	}

	return strings.Join(parts, "\n")
}

// buildCategoryInput assembles the question text for the category/tags
// scene.
func buildCategoryInput(content string, options []string, explanation string) string {
	return buildTranslationInput(content, options, explanation)
}

// buildFillMissingInput assembles the question text for the fill_missing
// scene. Unlike the other scenes, absent sections are kept and marked so the
// model fills exactly the gaps.
func buildFillMissingInput(content string, options []string, explanation string) string {
	contentPart := content
	if contentPart == "" {
		contentPart = missingMarker
	}

	optionsPart := "Options: " + missingMarker
	if len(options) > 0 {
		optionsPart = "Options:\n- " + strings.Join(options, "\n- ")
	}

	explanationPart := "Explanation: " + missingMarker
	if explanation != "" {
		explanationPart = fmt.Sprintf("Explanation: %s", explanation)
	}

	return strings.Join([]string{
		fmt.Sprintf("Content: %s", contentPart),
		optionsPart,
		explanationPart,
	}, "\n")
}
