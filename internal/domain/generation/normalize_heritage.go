package generation

import "strings"

const (
	// NotIdentifiedSiteName replaces low quality guesses from the model.
	NotIdentifiedSiteName = "Not identified"

	notIdentifiedConfidence   = 40
	defaultHeritageConfidence = 70
	descriptionFallbackRunes  = 200
	notIdentifiedMessage      = "We could not identify this heritage site with enough confidence. Try a clearer photo or add more detail to the description."
)

// Generic names models use when they cannot tell what the site is.
var heritageSentinels = map[string]struct{}{
	"unknown":               {},
	"heritage site":         {},
	"unknown heritage site": {},
}

// NormalizeHeritage turns an extracted object (nil when extraction failed)
// into a complete heritage record. A missing or generic site name produces
// the not-identified record instead of the model's guess.
func NormalizeHeritage(obj map[string]any, raw string, req HeritageRequest) HeritageRecognition {
	rec := normalizeHeritage(obj, raw, req)
	rec.kind = KindHeritageImage
	if req.Type == HeritageDescription {
		rec.kind = KindHeritageText
	}
	return rec
}

func normalizeHeritage(obj map[string]any, raw string, req HeritageRequest) HeritageRecognition {
	country := firstNonEmpty(req.CountryHint, "Unknown")

	name, ok := stringField(obj, "site_name")
	if obj == nil || !ok || isSentinelSiteName(name) {
		return notIdentified(obj == nil, raw, country)
	}

	return HeritageRecognition{
		SiteName:          name,
		Confidence:        clampConfidence(intOr(obj, "confidence", defaultHeritageConfidence)),
		Country:           stringOr(obj, "country", country),
		City:              stringOr(obj, "city", "Unknown"),
		Period:            stringOr(obj, "period", "Historical period"),
		Civilization:      stringOr(obj, "civilization", "Unknown"),
		Description:       stringOr(obj, "description", "No description available."),
		HistoricalContext: stringOr(obj, "historical_context", "Historical context not available"),
		FunFacts:          stringList(obj, "fun_facts"),
		VisitorTips:       stringOr(obj, "visitor_tips", "Visit during daylight hours"),
		NearbySites:       stringList(obj, "nearby_sites"),
		BestTimeToVisit:   stringOr(obj, "best_time_to_visit", "Spring or Autumn"),
		UNESCO:            boolOr(obj, "unesco", false),
		Significance:      stringOr(obj, "significance", ""),
		Identified:        true,
	}
}

func notIdentified(noObject bool, raw, country string) HeritageRecognition {
	description := notIdentifiedMessage
	if noObject {
		if fallback := truncateRunes(stripFences(raw), descriptionFallbackRunes); fallback != "" {
			description = fallback
		}
	}
	return HeritageRecognition{
		SiteName:          NotIdentifiedSiteName,
		Confidence:        notIdentifiedConfidence,
		Country:           country,
		City:              "Unknown",
		Period:            "Unknown",
		Civilization:      "Unknown",
		Description:       description,
		HistoricalContext: "Historical context not available",
		FunFacts:          []string{},
		VisitorTips:       "Ask a local guide or the tourist office to help identify the site.",
		NearbySites:       []string{},
		BestTimeToVisit:   "Spring or Autumn",
		Identified:        false,
		Message:           notIdentifiedMessage,
	}
}

func isSentinelSiteName(name string) bool {
	_, ok := heritageSentinels[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
