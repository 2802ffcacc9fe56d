package models

const DefaultTitlePrompt = `Create a catchy, SEO-friendly title (Max 60 chars). Focus on subject, style, and medium.`

const DefaultDescPrompt = `Write a persuasive description (2-3 sentences). Include keywords for Google SEO. Focus on the design's theme and emotion.`

const DefaultTagsPrompt = `RED BUBBLE TAGGING RULES:
1. Use 15-20 tags.
2. Focus on: Content (flower, tree), Theme (nature, zen), Style (watercolor).
3. AVOID: Generic words (art, image), Spam (best selling, trending), Repetition (dog, dogs).
4. Use Synonyms (Celestial for Starry).
5. Format: Single words or short phrases, comma-separated.`

// AppSettings is the process-wide configuration edited from the settings screen.
type AppSettings struct {
	APIKey      string `json:"apiKey"`
	TitlePrompt string `json:"titlePrompt"`
	TagsPrompt  string `json:"tagsPrompt"`
	DescPrompt  string `json:"descPrompt"`
}

// WithDefaults fills empty prompts with the built-in ones.
func (s AppSettings) WithDefaults() AppSettings {
	if s.TitlePrompt == "" {
		s.TitlePrompt = DefaultTitlePrompt
	}
	if s.TagsPrompt == "" {
		s.TagsPrompt = DefaultTagsPrompt
	}
	if s.DescPrompt == "" {
		s.DescPrompt = DefaultDescPrompt
	}
	return s
}
