package models

import (
	"redgen/tagset"
)

const (
	DefaultListingTitle = "New Design Project"
	ScrapedListingTitle = "Scraped Product"
)

// ScrapedData is the read-only copy of what the product page showed.
type ScrapedData struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        string   `json:"tags"`
	Images      []string `json:"images"`
}

// GeneratedData is the editable optimized copy (AI or user produced).
type GeneratedData struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Tags        []tagset.Tag `json:"tags"`
}

// Listing is one design project. The collection of listings is the whole persisted state.
//
// PreservedRiskScores keeps the score of preserved tags that came from active, keyed by text.
type Listing struct {
	ID                  string                      `json:"id"`
	CreatedAt           int64                       `json:"createdAt"`
	Title               string                      `json:"title"`
	Images              []string                    `json:"images"`
	CustomContext       string                      `json:"customContext"`
	PreservedTags       string                      `json:"preservedTags"`
	PreservedRiskScores map[string]tagset.RiskScore `json:"preservedRiskScores,omitempty"`
	ScrapedData         ScrapedData                 `json:"scrapedData"`
	GeneratedData       GeneratedData               `json:"generatedData"`
	IsExpanded          bool                        `json:"isExpanded"`
}

// DisplayTitle falls back to the default project name.
func (l Listing) DisplayTitle() string {
	if l.Title != "" {
		return l.Title
	}
	return DefaultListingTitle
}

// Partitions views the listing tags as active/preserved partitions.
func (l Listing) Partitions() tagset.Partitions {
	p := tagset.Partitions{
		Active:    l.GeneratedData.Tags,
		Preserved: tagset.Parse(l.PreservedTags),
	}
	if len(l.PreservedRiskScores) > 0 {
		p.Remembered = l.PreservedRiskScores
	}
	return p.Clone()
}

// WithPartitions returns a copy whose generated tags and preserved tags both come from p.
func (l Listing) WithPartitions(p tagset.Partitions) Listing {
	p = p.Clone()
	l.GeneratedData.Tags = p.Active
	l.PreservedTags = tagset.Serialize(p.Preserved)
	l.PreservedRiskScores = p.Remembered
	return l
}

// Clone deep-copies the slices and maps of a listing.
func (l Listing) Clone() Listing {
	out := l
	out.Images = append([]string{}, l.Images...)
	out.ScrapedData.Images = append([]string{}, l.ScrapedData.Images...)
	out.GeneratedData.Tags = append([]tagset.Tag{}, l.GeneratedData.Tags...)
	if l.PreservedRiskScores != nil {
		out.PreservedRiskScores = make(map[string]tagset.RiskScore, len(l.PreservedRiskScores))
		for k, v := range l.PreservedRiskScores {
			out.PreservedRiskScores[k] = v
		}
	}
	return out
}
