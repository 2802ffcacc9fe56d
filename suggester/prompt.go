package suggester

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"redgen/models"
)

const SYSTEM_INSTRUCTION = `
You are an expert Print-on-Demand (POD) SEO specialist for Redbubble.
Analyze the provided design image (if any) and the reference metadata, then produce optimized listing metadata.
The response MUST be a valid JSON object with three keys:
1.  title: the optimized title.
2.  description: the optimized description.
3.  tags: an array of objects {"text": string, "riskScore": integer}. riskScore rates the trademark risk of the tag:
    1 = safe generic word, 2-4 = graded caution (fan terms, names close to brands), 5 = danger (registered brand, character or franchise name).
You MUST NOT wrap the JSON output in a markdown code block. The response should contain ONLY the raw JSON string.
Use the reference data as inspiration, do not copy it directly.
`

// CurrentData is the reference copy the model improves on.
type CurrentData struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
}

// BuildPrompt renders the user turn. Empty prompts fall back to the built-in ones.
func BuildPrompt(settings models.AppSettings, customContext string, current CurrentData) string {
	s := settings.WithDefaults()

	var b strings.Builder
	fmt.Fprintf(&b, "TITLE RULES:\n%s\n\n", s.TitlePrompt)
	fmt.Fprintf(&b, "TAG RULES:\n%s\n\n", s.TagsPrompt)
	fmt.Fprintf(&b, "DESCRIPTION RULES:\n%s\n\n", s.DescPrompt)
	if c := strings.TrimSpace(customContext); c != "" {
		fmt.Fprintf(&b, "USER CONTEXT / INSTRUCTIONS:\n%q\n\n", c)
	}
	b.WriteString("REFERENCE DATA:\n")
	fmt.Fprintf(&b, "Title: %s\n", current.Title)
	fmt.Fprintf(&b, "Tags: %s\n", current.Tags)
	fmt.Fprintf(&b, "Description: %s\n", current.Description)
	return b.String()
}

func responseSchema() *genai.Schema {
	minRisk, maxRisk := 1.0, 5.0
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
			"tags": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"text":      {Type: genai.TypeString},
						"riskScore": {Type: genai.TypeInteger, Minimum: &minRisk, Maximum: &maxRisk},
					},
					Required: []string{"text", "riskScore"},
				},
			},
		},
		Required: []string{"title", "description", "tags"},
	}
}
