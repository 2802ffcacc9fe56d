// Package listing holds the update rules of the Listing aggregate. Every function
// returns a new value; tag changes always go through tagset.Partitions.
package listing

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"redgen/models"
	"redgen/tagset"
)

var ErrUnknownField = errors.New("unknown listing field")

// Field names an editable text field of the optimized view.
type Field string

const (
	FieldTitle         Field = "title"
	FieldDescription   Field = "description"
	FieldTags          Field = "tags"
	FieldCustomContext Field = "customContext"
)

// Suggestion is the AI result applied by ApplySuggestion.
type Suggestion struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Tags        []tagset.Tag `json:"tags"`
}

// New creates an empty, expanded listing.
func New(now time.Time) models.Listing {
	return models.Listing{
		ID:          uuid.New().String(),
		CreatedAt:   now.UnixMilli(),
		Images:      []string{},
		ScrapedData: models.ScrapedData{Images: []string{}},
		GeneratedData: models.GeneratedData{
			Tags: []tagset.Tag{},
		},
		IsExpanded: true,
	}
}

// ApplyScrape replaces the scraped copy. When the optimized view has no title yet it is
// seeded from the scrape; a non-empty optimized title is never overwritten.
func ApplyScrape(l models.Listing, scraped models.ScrapedData) models.Listing {
	out := l.Clone()
	scraped.Images = append([]string{}, scraped.Images...)
	out.ScrapedData = scraped

	if len(scraped.Images) > 0 {
		out.Images = append([]string{}, scraped.Images...)
	}

	if out.GeneratedData.Title != "" {
		return out
	}

	current := out.Partitions()
	seeded := tagset.Normalize(tagset.FromString(scraped.Tags), current.Preserved, current.Remembered)
	out.GeneratedData.Title = scraped.Title
	out.GeneratedData.Description = scraped.Description
	out = out.WithPartitions(seeded)

	if out.Title == "" {
		out.Title = scraped.Title
		if out.Title == "" {
			out.Title = models.ScrapedListingTitle
		}
	}
	return out
}

// ApplySuggestion replaces the optimized copy with the AI result. Preserved tags are kept
// as they are; suggested tags that are already preserved stay preserved.
func ApplySuggestion(l models.Listing, s Suggestion) models.Listing {
	out := l.Clone()
	out.GeneratedData.Title = s.Title
	out.GeneratedData.Description = s.Description

	current := out.Partitions()
	parts := tagset.Normalize(s.Tags, current.Preserved, current.Remembered)
	out = out.WithPartitions(parts)

	if s.Title != "" {
		out.Title = s.Title
	}
	return out
}

// EditField replaces one text field. Title, description and tags edit the optimized copy;
// the scraped copy is reference material and is never edited.
func EditField(l models.Listing, field Field, value string) (models.Listing, error) {
	out := l.Clone()
	switch field {
	case FieldTitle:
		out.GeneratedData.Title = value
		if value != "" {
			out.Title = value
		}
	case FieldDescription:
		out.GeneratedData.Description = value
	case FieldTags:
		out = out.WithPartitions(replaceActive(out.Partitions(), tagset.Parse(value)))
	case FieldCustomContext:
		out.CustomContext = value
	default:
		return l, ErrUnknownField
	}
	return out, nil
}

// replaceActive rebuilds active from texts. Retained texts keep their score and a text
// typed into active leaves preserved.
func replaceActive(p tagset.Partitions, texts []string) tagset.Partitions {
	scores := make(map[string]tagset.RiskScore, len(p.Active))
	for _, t := range p.Active {
		scores[t.Text] = t.RiskScore
	}
	next := tagset.Partitions{Active: []tagset.Tag{}, Preserved: p.Preserved, Remembered: p.Remembered}
	for _, text := range texts {
		if s, ok := scores[text]; ok {
			next = next.AddTag(text, tagset.TargetActive, &s)
			continue
		}
		next = next.AddTag(text, tagset.TargetActive, nil)
	}
	return next
}

// OpKind is a tag operation.
type OpKind string

const (
	OpAdd    OpKind = "add"
	OpRemove OpKind = "remove"
	OpDrop   OpKind = "drop"
)

var ErrUnknownOp = errors.New("unknown tag operation")

// TagOp is one tag edit. RiskScore applies to OpAdd onto active only.
type TagOp struct {
	Kind      OpKind
	Text      string
	Target    tagset.Target
	RiskScore *tagset.RiskScore
}

// UpdateTags applies op and writes generated tags and preserved tags together.
func UpdateTags(l models.Listing, op TagOp) (models.Listing, error) {
	p := l.Partitions()
	switch op.Kind {
	case OpAdd:
		p = p.AddTag(op.Text, op.Target, op.RiskScore)
	case OpDrop:
		p = p.DropOnto(op.Text, op.Target)
	case OpRemove:
		p = p.RemoveTag(op.Text)
	default:
		return l, ErrUnknownOp
	}
	return l.Clone().WithPartitions(p), nil
}

// SetExpanded toggles the UI flag.
func SetExpanded(l models.Listing, expanded bool) models.Listing {
	out := l.Clone()
	out.IsExpanded = expanded
	return out
}

// AutofillPayload is what the form autofiller receives.
type AutofillPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
}

// Autofill flattens the listing for the upload form: preserved tags first.
func Autofill(l models.Listing) AutofillPayload {
	return AutofillPayload{
		Title:       l.GeneratedData.Title,
		Description: l.GeneratedData.Description,
		Tags:        l.Partitions().FlattenString(),
	}
}
