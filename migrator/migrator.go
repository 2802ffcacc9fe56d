// Package migrator turns persisted listing records of any historical vintage into the
// current models.Listing shape. It never fails: unknown sub-shapes degrade to the safest
// default (risk 1, no images, empty text). Migrate(Migrate(x)) == Migrate(x).
package migrator

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"redgen/models"
	"redgen/tagset"
)

// idNamespace derives stable ids for legacy records that were stored without one.
var idNamespace = uuid.MustParse("5d3c1f0e-7c1a-4b8e-9a51-2f0e6b4c9d21")

// MigrateListings migrates a persisted "listings" value. Non-object elements are dropped,
// and a repeated id keeps only its first record.
func MigrateListings(raw json.RawMessage) []models.Listing {
	out := []models.Listing{}
	var elems []json.RawMessage
	if isNull(raw) || json.Unmarshal(raw, &elems) != nil {
		return out
	}
	seen := make(map[string]struct{}, len(elems))
	for _, e := range elems {
		l, ok := MigrateListing(e)
		if !ok {
			continue
		}
		if _, dup := seen[l.ID]; dup {
			continue
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	return out
}

// MigrateListing migrates one record. ok is false only when raw is not a JSON object.
func MigrateListing(raw json.RawMessage) (models.Listing, bool) {
	obj, ok := asObject(raw)
	if !ok {
		return models.Listing{}, false
	}

	l := models.Listing{
		ID:            migrateID(obj["id"], raw),
		CreatedAt:     migrateCreatedAt(obj["createdAt"]),
		Title:         stringOrEmpty(obj["title"]),
		Images:        migrateImages(classifyImages(obj)),
		CustomContext: stringOrEmpty(obj["customContext"]),
		ScrapedData:   migrateScraped(obj["scrapedData"]),
	}
	if b, ok := asBool(obj["isExpanded"]); ok {
		l.IsExpanded = b
	}

	gen, _ := asObject(obj["generatedData"])
	l.GeneratedData = models.GeneratedData{
		Title:       stringOrEmpty(gen["title"]),
		Description: stringOrEmpty(gen["description"]),
	}

	parts := tagset.Normalize(
		convertTags(classifyTags(gen["tags"])),
		migratePreserved(obj["preservedTags"]),
		migrateRemembered(obj["preservedRiskScores"]),
	)
	return l.WithPartitions(parts), true
}

// MigrateSettings migrates a persisted "settings" value. Missing fields stay empty.
func MigrateSettings(raw json.RawMessage) models.AppSettings {
	obj, _ := asObject(raw)
	return models.AppSettings{
		APIKey:      stringOrEmpty(obj["apiKey"]),
		TitlePrompt: stringOrEmpty(obj["titlePrompt"]),
		TagsPrompt:  stringOrEmpty(obj["tagsPrompt"]),
		DescPrompt:  stringOrEmpty(obj["descPrompt"]),
	}
}

func convertTags(shape tagsShape) []tagset.Tag {
	switch s := shape.(type) {
	case stringTags:
		return tagset.FromString(s.raw)
	case arrayTags:
		out := make([]tagset.Tag, 0, len(s.elems))
		for _, e := range s.elems {
			if t, ok := convertElem(e); ok {
				out = append(out, t)
			}
		}
		return out
	case missingTags, unknownTags:
		return []tagset.Tag{}
	default:
		return []tagset.Tag{}
	}
}

func convertElem(elem tagElem) (tagset.Tag, bool) {
	switch e := elem.(type) {
	case scoredElem:
		return tagset.Tag{Text: e.text, RiskScore: tagset.ClampRisk(e.score)}, true
	case enumElem:
		return tagset.Tag{Text: e.text, RiskScore: riskFromEnum(e.risk)}, true
	case bareElem:
		return tagset.Tag{Text: e.text, RiskScore: tagset.RiskSafe}, true
	case invalidElem:
		return tagset.Tag{}, false
	default:
		return tagset.Tag{}, false
	}
}

func riskFromEnum(risk string) tagset.RiskScore {
	switch strings.ToLower(strings.TrimSpace(risk)) {
	case "danger":
		return tagset.RiskDanger
	case "caution":
		return tagset.RiskCaution
	default:
		return tagset.RiskSafe
	}
}

// migrateImages prefers a non-empty images array, else wraps imagePreview.
func migrateImages(shape imagesShape) []string {
	if len(shape.images) > 0 {
		return shape.images
	}
	if shape.preview != "" {
		return []string{shape.preview}
	}
	return []string{}
}

func migrateScraped(raw json.RawMessage) models.ScrapedData {
	obj, _ := asObject(raw)
	out := models.ScrapedData{
		Title:       stringOrEmpty(obj["title"]),
		Description: stringOrEmpty(obj["description"]),
		Images:      migrateImages(classifyImages(obj)),
	}
	// Scraped tags are a string; older builds copied generated arrays here.
	switch s := classifyTags(obj["tags"]).(type) {
	case stringTags:
		out.Tags = s.raw
	case arrayTags:
		out.Tags = tagset.Serialize(tagset.Texts(convertTags(s)))
	}
	return out
}

func migratePreserved(raw json.RawMessage) []string {
	if s, ok := asString(raw); ok {
		return tagset.Parse(s)
	}
	if xs, ok := asStringSlice(raw); ok {
		// an element may itself be comma-joined; storage re-parses the joined string
		out := make([]string, 0, len(xs))
		for _, x := range xs {
			out = append(out, tagset.Parse(x)...)
		}
		return out
	}
	return nil
}

func migrateRemembered(raw json.RawMessage) map[string]tagset.RiskScore {
	obj, ok := asObject(raw)
	if !ok {
		return nil
	}
	out := make(map[string]tagset.RiskScore, len(obj))
	for k, v := range obj {
		if n, ok := asInt(v); ok {
			out[k] = tagset.ClampRisk(n)
		}
	}
	return out
}

func migrateID(raw json.RawMessage, record json.RawMessage) string {
	if s, ok := asString(raw); ok && strings.TrimSpace(s) != "" {
		return s
	}
	if n, ok := asInt64(raw); ok {
		return uuid.NewSHA1(idNamespace, []byte(jsonNumber(n))).String()
	}
	return uuid.NewSHA1(idNamespace, record).String()
}

func migrateCreatedAt(raw json.RawMessage) int64 {
	if n, ok := asInt64(raw); ok {
		return n
	}
	if s, ok := asString(raw); ok {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(s)); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

func stringOrEmpty(raw json.RawMessage) string {
	s, _ := asString(raw)
	return s
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
