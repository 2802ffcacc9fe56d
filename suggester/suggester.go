// Package suggester asks Gemini for optimized listing metadata. Every failure mode maps to
// one of the errors below; callers apply nothing unless Suggest returns a nil error.
package suggester

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"redgen/config"
	"redgen/listing"
	"redgen/models"
	"redgen/tagset"
)

var (
	ErrMissingAPIKey     = errors.New("missing Gemini API key in settings")
	ErrEmptyResponse     = errors.New("gemini returned no content")
	ErrMalformedResponse = errors.New("gemini returned malformed JSON")
)

// UpstreamError carries a non-success status from the Gemini API.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini api error (status %d)", e.Status)
	}
	return fmt.Sprintf("gemini api error (status %d): %s", e.Status, e.Message)
}

// Limiter paces calls; quota.SuggestionQuotaLimiter implements it.
type Limiter interface {
	WaitAndReserve(ctx context.Context) error
}

// Input is everything one suggestion needs. Image is a data URI or an http(s) URL; empty
// means text only.
type Input struct {
	Settings      models.AppSettings
	Image         string
	CustomContext string
	Current       CurrentData
}

type Client struct {
	httpClient *http.Client
	model      string
	baseURL    string
	defaultKey string
	limiter    Limiter
}

// New builds a client. limiter may be nil.
func New(cfg config.GeminiConfig, httpClient *http.Client, limiter Limiter) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		defaultKey: cfg.APIKey,
		limiter:    limiter,
	}
}

func (c *Client) apiKey(s models.AppSettings) string {
	if k := strings.TrimSpace(s.APIKey); k != "" {
		return k
	}
	return c.defaultKey
}

// Configured reports whether a key is available for s, before any network call.
func (c *Client) Configured(s models.AppSettings) error {
	if c.apiKey(s) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// Suggest runs one generateContent call.
func (c *Client) Suggest(ctx context.Context, in Input) (listing.Suggestion, error) {
	if err := c.Configured(in.Settings); err != nil {
		return listing.Suggestion{}, err
	}

	parts := []*genai.Part{genai.NewPartFromText(BuildPrompt(in.Settings, in.CustomContext, in.Current))}
	if in.Image != "" {
		data, mime, err := loadImage(ctx, c.httpClient, in.Image)
		if err != nil {
			// 이미지 없이도 제안은 가능하므로 텍스트만으로 진행한다.
			config.Log.Warnf("suggester: skip image: %v", err)
		} else {
			parts = append(parts, genai.NewPartFromBytes(data, mime))
		}
	}

	if c.limiter != nil {
		if err := c.limiter.WaitAndReserve(ctx); err != nil {
			return listing.Suggestion{}, err
		}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      c.apiKey(in.Settings),
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  c.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.baseURL},
	})
	if err != nil {
		return listing.Suggestion{}, fmt.Errorf("gemini client: %w", err)
	}

	result, err := client.Models.GenerateContent(
		ctx,
		c.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: SYSTEM_INSTRUCTION}}},
			ResponseMIMEType:  "application/json",
			ResponseSchema:    responseSchema(),
		},
	)
	if err != nil {
		return listing.Suggestion{}, upstreamError(err)
	}
	return decodeResult(result)
}

func upstreamError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Status: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &UpstreamError{Status: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return fmt.Errorf("gemini request: %w", err)
}

func decodeResult(result *genai.GenerateContentResponse) (listing.Suggestion, error) {
	if result == nil {
		return listing.Suggestion{}, ErrEmptyResponse
	}
	if fb := result.PromptFeedback; fb != nil && fb.BlockReason != "" {
		msg := fb.BlockReasonMessage
		if msg == "" {
			msg = string(fb.BlockReason)
		}
		return listing.Suggestion{}, fmt.Errorf("%w: blocked: %s", ErrEmptyResponse, msg)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return listing.Suggestion{}, ErrEmptyResponse
	}
	return ParseSuggestion(text)
}

type rawSuggestion struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Tags        json.RawMessage `json:"tags"`
}

type rawTag struct {
	Text      string  `json:"text"`
	RiskScore float64 `json:"riskScore"`
}

// ParseSuggestion decodes model text. Code fences are stripped, tags may be an array of
// {text, riskScore} or a comma-joined string, and scores are clamped to 1..5.
func ParseSuggestion(text string) (listing.Suggestion, error) {
	var raw rawSuggestion
	if err := json.Unmarshal([]byte(StripFences(text)), &raw); err != nil {
		return listing.Suggestion{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out := listing.Suggestion{
		Title:       strings.TrimSpace(raw.Title),
		Description: strings.TrimSpace(raw.Description),
		Tags:        []tagset.Tag{},
	}

	var joined string
	var items []rawTag
	switch {
	case len(raw.Tags) == 0 || string(raw.Tags) == "null":
	case json.Unmarshal(raw.Tags, &joined) == nil:
		out.Tags = tagset.FromString(joined)
	case json.Unmarshal(raw.Tags, &items) == nil:
		for _, it := range items {
			score := int(it.RiskScore)
			if it.RiskScore == 0 {
				score = int(tagset.RiskSafe)
			}
			// "a, b" in one item becomes two tags with the same score
			out.Tags = append(out.Tags, tagset.FromStrings(tagset.Parse(it.Text), tagset.ClampRisk(score))...)
		}
	default:
		return listing.Suggestion{}, fmt.Errorf("%w: tags is neither an array nor a string", ErrMalformedResponse)
	}
	return out, nil
}

// StripFences removes a surrounding markdown code fence such as ```json ... ```.
func StripFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		// drop the info string ("json")
		t = t[nl+1:]
	} else {
		t = strings.TrimPrefix(t, "json")
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}
