package generation

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fenceMarker matches ``` plus an optional language tag such as json or JSON.
var fenceMarker = regexp.MustCompile("```[A-Za-z0-9_+-]*")

// ExtractedJSON is the object isolated from a model response.
type ExtractedJSON struct {
	Text   string
	Object map[string]any
}

// Extract isolates the single JSON object in raw model text.
//
// Fence markers are removed anywhere in the text, then the candidate runs
// from the first '{' to the last '}'. A response holding two sibling objects
// produces a candidate spanning both, which fails to parse and yields false.
func Extract(raw string) (ExtractedJSON, bool) {
	cleaned := stripFences(raw)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end < start {
		return ExtractedJSON{}, false
	}
	candidate := cleaned[start : end+1]

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil || obj == nil {
		return ExtractedJSON{}, false
	}
	return ExtractedJSON{Text: candidate, Object: obj}, true
}

func stripFences(raw string) string {
	return fenceMarker.ReplaceAllString(raw, "")
}
