package tagset

import (
	"strings"
)

// RiskScore grades how likely a tag is to collide with a trademark.
// 1 is safe, 5 is danger, 2-4 are caution levels.
type RiskScore int

const (
	RiskSafe    RiskScore = 1
	RiskCaution RiskScore = 3
	RiskDanger  RiskScore = 5

	MinRisk = RiskSafe
	MaxRisk = RiskDanger
)

// Valid reports whether r lies in 1..5.
func (r RiskScore) Valid() bool {
	return r >= MinRisk && r <= MaxRisk
}

// ClampRisk pins n into 1..5.
func ClampRisk(n int) RiskScore {
	if n < int(MinRisk) {
		return MinRisk
	}
	if n > int(MaxRisk) {
		return MaxRisk
	}
	return RiskScore(n)
}

// Tag is one active tag. Text is the identity key.
type Tag struct {
	Text      string    `json:"text" bson:"text"`
	RiskScore RiskScore `json:"riskScore" bson:"riskScore"`
}

const separator = ", "

// Parse splits a comma-joined tag string, trims each entry and drops empties.
func Parse(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Serialize joins tag texts with ", ".
func Serialize(texts []string) string {
	return strings.Join(texts, separator)
}

// FromStrings wraps bare texts as tags carrying the same score.
func FromStrings(texts []string, score RiskScore) []Tag {
	out := make([]Tag, 0, len(texts))
	for _, t := range texts {
		out = append(out, Tag{Text: t, RiskScore: score})
	}
	return out
}

// Texts returns the text of every tag in order.
func Texts(tags []Tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Text)
	}
	return out
}

// FromString parses a raw scrape string into safe tags.
func FromString(s string) []Tag {
	return FromStrings(Parse(s), RiskSafe)
}

func indexOfTag(tags []Tag, text string) int {
	for i, t := range tags {
		if t.Text == text {
			return i
		}
	}
	return -1
}

func indexOfText(texts []string, text string) int {
	for i, t := range texts {
		if t == text {
			return i
		}
	}
	return -1
}
