package migrator

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Historical shapes of the tags field. Every persisted value classifies into
// exactly one of these; convertTags switches over all of them.
type tagsShape interface{ isTagsShape() }

type (
	// missingTags: field absent or null.
	missingTags struct{}
	// stringTags: the oldest schema, a comma-joined string without risk.
	stringTags struct{ raw string }
	// arrayTags: any array; each element classifies on its own.
	arrayTags struct{ elems []tagElem }
	// unknownTags: a number, bool or object where tags should be.
	unknownTags struct{}
)

func (missingTags) isTagsShape() {}
func (stringTags) isTagsShape()  {}
func (arrayTags) isTagsShape()   {}
func (unknownTags) isTagsShape() {}

// Shapes of a single element of a tags array.
type tagElem interface{ isTagElem() }

type (
	// scoredElem: {text, riskScore} (current schema).
	scoredElem struct {
		text  string
		score int
	}
	// enumElem: {text, risk: "safe"|"caution"|"danger"}.
	enumElem struct {
		text string
		risk string
	}
	// bareElem: {text} or a plain string element.
	bareElem struct{ text string }
	// invalidElem: anything without usable text.
	invalidElem struct{}
)

func (scoredElem) isTagElem()  {}
func (enumElem) isTagElem()    {}
func (bareElem) isTagElem()    {}
func (invalidElem) isTagElem() {}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func classifyTags(raw json.RawMessage) tagsShape {
	if isNull(raw) {
		return missingTags{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return stringTags{raw: s}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err == nil {
		out := arrayTags{elems: make([]tagElem, 0, len(elems))}
		for _, e := range elems {
			out.elems = append(out.elems, classifyElem(e))
		}
		return out
	}
	return unknownTags{}
}

func classifyElem(raw json.RawMessage) tagElem {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return bareElem{text: s}
	}
	obj, ok := asObject(raw)
	if !ok {
		return invalidElem{}
	}
	text, ok := asString(obj["text"])
	if !ok {
		return invalidElem{}
	}
	if n, ok := asInt(obj["riskScore"]); ok {
		return scoredElem{text: text, score: n}
	}
	if risk, ok := asString(obj["risk"]); ok {
		return enumElem{text: text, risk: risk}
	}
	return bareElem{text: text}
}

// Shapes of the image fields: images[] (current) and imagePreview (legacy).
type imagesShape struct {
	images  []string
	preview string
}

func classifyImages(obj map[string]json.RawMessage) imagesShape {
	shape := imagesShape{}
	var elems []json.RawMessage
	if raw, ok := obj["images"]; ok && json.Unmarshal(raw, &elems) == nil {
		for _, e := range elems {
			if s, ok := asString(e); ok && strings.TrimSpace(s) != "" {
				shape.images = append(shape.images, s)
			}
		}
	}
	if s, ok := asString(obj["imagePreview"]); ok && strings.TrimSpace(s) != "" {
		shape.preview = s
	}
	return shape
}

func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if isNull(raw) {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func asString(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func asBool(raw json.RawMessage) (bool, bool) {
	if isNull(raw) {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false
	}
	return b, true
}

// asInt accepts JSON numbers and numeric strings. Fractions truncate.
func asInt(raw json.RawMessage) (int, bool) {
	if isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(f), true
	}
	if s, ok := asString(raw); ok {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
			return int(n), true
		}
	}
	return 0, false
}

func asInt64(raw json.RawMessage) (int64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

func asStringSlice(raw json.RawMessage) ([]string, bool) {
	var elems []json.RawMessage
	if isNull(raw) || json.Unmarshal(raw, &elems) != nil {
		return nil, false
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		if s, ok := asString(e); ok {
			out = append(out, s)
			continue
		}
		if obj, ok := asObject(e); ok {
			if s, ok := asString(obj["text"]); ok {
				out = append(out, s)
			}
		}
	}
	return out, true
}
