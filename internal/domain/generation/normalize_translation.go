package generation

import "strings"

const defaultTranslationConfidence = 85

// NormalizeTranslation prefers the structured answer and falls back to the
// raw text when the model replied with plain prose.
func NormalizeTranslation(obj map[string]any, raw string, req TranslationRequest) TranslationResult {
	text, ok := stringField(obj, "translatedText")
	if !ok && obj == nil {
		text = plainTranslation(raw)
	}
	if text == "" {
		text = req.Text
	}

	detected := string(req.SourceLang)
	if lang, ok := stringField(obj, "detectedLanguage"); ok {
		if _, known := languageNames[Language(strings.ToLower(lang))]; known {
			detected = strings.ToLower(lang)
		}
	}

	confidence := clampConfidence(intOr(obj, "confidence", defaultTranslationConfidence))
	return TranslationResult{
		TranslatedText:   text,
		DetectedLanguage: detected,
		Confidence:       &confidence,
	}
}

func plainTranslation(raw string) string {
	text := strings.TrimSpace(stripFences(raw))
	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	return text
}
