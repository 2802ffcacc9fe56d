package tagset

import (
	"errors"
	"strings"
)

// Target names one of the two partitions of a listing.
type Target string

const (
	TargetActive    Target = "active"
	TargetPreserved Target = "preserved"
)

var ErrInvalidTarget = errors.New("invalid tag target")

// ParseTarget accepts "active" (or the older "main") and "preserved".
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "main":
		return TargetActive, nil
	case "preserved":
		return TargetPreserved, nil
	default:
		return "", ErrInvalidTarget
	}
}

// Partitions holds the active and preserved tags of one listing.
// No text appears in both; every operation below keeps it that way.
//
// Preserved tags carry no score. Remembered keeps the score a preserved tag had
// when it left active, so dragging it back restores it.
type Partitions struct {
	Active     []Tag                `json:"active"`
	Preserved  []string             `json:"preserved"`
	Remembered map[string]RiskScore `json:"remembered,omitempty"`
}

// Clone returns a deep copy so callers never share backing arrays.
func (p Partitions) Clone() Partitions {
	active := make([]Tag, len(p.Active))
	copy(active, p.Active)
	preserved := make([]string, len(p.Preserved))
	copy(preserved, p.Preserved)
	var remembered map[string]RiskScore
	if len(p.Remembered) > 0 {
		remembered = make(map[string]RiskScore, len(p.Remembered))
		for k, v := range p.Remembered {
			remembered[k] = v
		}
	}
	return Partitions{Active: active, Preserved: preserved, Remembered: remembered}
}

// Contains reports whether text is in either partition.
func (p Partitions) Contains(text string) bool {
	return indexOfTag(p.Active, text) >= 0 || indexOfText(p.Preserved, text) >= 0
}

// AddTag removes text from both partitions and appends it to target.
// An active tag takes score, else its last known score, else safe.
// Text holding commas is split and each piece is added in turn, since preserved
// tags persist as one comma-joined string. Blank text returns p unchanged.
func (p Partitions) AddTag(text string, target Target, score *RiskScore) Partitions {
	if target != TargetActive && target != TargetPreserved {
		return p
	}
	pieces := Parse(text)
	if len(pieces) == 0 {
		return p
	}
	for _, piece := range pieces {
		p = p.addOne(piece, target, score)
	}
	return p
}

func (p Partitions) addOne(text string, target Target, score *RiskScore) Partitions {
	resolved, known := p.scoreOf(text)
	if score != nil {
		resolved, known = ClampRisk(int(*score)), true
	}
	if !known {
		resolved = RiskSafe
	}

	next := p.removeOne(text)
	switch target {
	case TargetActive:
		next.Active = append(next.Active, Tag{Text: text, RiskScore: resolved})
	case TargetPreserved:
		next.Preserved = append(next.Preserved, text)
		if known && resolved != RiskSafe {
			if next.Remembered == nil {
				next.Remembered = make(map[string]RiskScore, 1)
			}
			next.Remembered[text] = resolved
		}
	}
	return next
}

// DropOnto moves text to target regardless of where it came from.
// The risk score is looked up before removal so it survives the move.
func (p Partitions) DropOnto(text string, target Target) Partitions {
	return p.AddTag(text, target, nil)
}

// scoreOf finds the last known score of text in active or in the remembered table.
func (p Partitions) scoreOf(text string) (RiskScore, bool) {
	if i := indexOfTag(p.Active, text); i >= 0 {
		return ClampRisk(int(p.Active[i].RiskScore)), true
	}
	if s, ok := p.Remembered[text]; ok {
		return ClampRisk(int(s)), true
	}
	return RiskSafe, false
}

// RemoveTag drops text from both partitions. Absent text is not an error.
// Comma-joined text removes every piece.
func (p Partitions) RemoveTag(text string) Partitions {
	next := p.removeOne(strings.TrimSpace(text))
	for _, piece := range Parse(text) {
		next = next.removeOne(piece)
	}
	return next
}

func (p Partitions) removeOne(text string) Partitions {
	active := make([]Tag, 0, len(p.Active))
	for _, t := range p.Active {
		if t.Text != text {
			active = append(active, t)
		}
	}
	preserved := make([]string, 0, len(p.Preserved))
	for _, t := range p.Preserved {
		if t != text {
			preserved = append(preserved, t)
		}
	}
	var remembered map[string]RiskScore
	for k, v := range p.Remembered {
		if k == text {
			continue
		}
		if remembered == nil {
			remembered = make(map[string]RiskScore, len(p.Remembered))
		}
		remembered[k] = v
	}
	return Partitions{Active: active, Preserved: preserved, Remembered: remembered}
}

// Flatten lists preserved tags first, then active tags, each in insertion order.
func (p Partitions) Flatten() []string {
	out := make([]string, 0, len(p.Preserved)+len(p.Active))
	out = append(out, p.Preserved...)
	out = append(out, Texts(p.Active)...)
	return out
}

// FlattenString is Flatten joined for the upload form.
func (p Partitions) FlattenString() string {
	return Serialize(p.Flatten())
}

// Disjoint reports whether no text is shared between the partitions.
func (p Partitions) Disjoint() bool {
	seen := make(map[string]struct{}, len(p.Preserved))
	for _, t := range p.Preserved {
		seen[t] = struct{}{}
	}
	for _, t := range p.Active {
		if _, ok := seen[t.Text]; ok {
			return false
		}
	}
	return true
}

// Normalize repairs partitions read from an untrusted source. Texts are split on commas,
// trimmed and blanks dropped, duplicates inside a partition collapse to their first
// occurrence, scores are clamped, and a text present in both partitions stays preserved only.
// Remembered scores survive only for preserved texts.
func Normalize(active []Tag, preserved []string, remembered map[string]RiskScore) Partitions {
	out := Partitions{Active: make([]Tag, 0, len(active)), Preserved: make([]string, 0, len(preserved))}

	pinned := make(map[string]struct{}, len(preserved))
	for _, raw := range preserved {
		for _, t := range Parse(raw) {
			if _, dup := pinned[t]; dup {
				continue
			}
			pinned[t] = struct{}{}
			out.Preserved = append(out.Preserved, t)
		}
	}

	seen := make(map[string]struct{}, len(active))
	for _, tag := range active {
		for _, text := range Parse(tag.Text) {
			if _, ok := pinned[text]; ok {
				continue
			}
			if _, dup := seen[text]; dup {
				continue
			}
			seen[text] = struct{}{}
			out.Active = append(out.Active, Tag{Text: text, RiskScore: ClampRisk(int(tag.RiskScore))})
		}
	}

	for k, v := range remembered {
		k = strings.TrimSpace(k)
		if _, ok := pinned[k]; !ok {
			continue
		}
		score := ClampRisk(int(v))
		if score == RiskSafe {
			continue
		}
		if out.Remembered == nil {
			out.Remembered = make(map[string]RiskScore, len(remembered))
		}
		out.Remembered[k] = score
	}
	return out
}
