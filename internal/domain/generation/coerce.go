package generation

import (
	"math"
	"strings"
	"unicode/utf8"
)

// The helpers below accept a value only when it already has the expected
// JSON shape. Anything else falls back to the caller supplied default.

func stringField(obj map[string]any, key string) (string, bool) {
	v, ok := obj[key].(string)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func stringOr(obj map[string]any, key, def string) string {
	if v, ok := stringField(obj, key); ok {
		return v
	}
	return def
}

func numberField(obj map[string]any, key string) (float64, bool) {
	v, ok := obj[key].(float64)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// intOr saturates at the int32 range so out-of-range floats never wrap.
func intOr(obj map[string]any, key string, def int) int {
	if v, ok := numberField(obj, key); ok {
		return int(math.Round(math.Max(math.MinInt32, math.Min(math.MaxInt32, v))))
	}
	return def
}

func boolOr(obj map[string]any, key string, def bool) bool {
	if v, ok := obj[key].(bool); ok {
		return v
	}
	return def
}

// stringList keeps the trimmed, non-empty, de-duplicated string elements of an array.
// The result is never nil.
func stringList(obj map[string]any, key string) []string {
	out := []string{}
	items, ok := obj[key].([]any)
	if !ok {
		return out
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func objectList(obj map[string]any, key string) []map[string]any {
	items, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// enumOr matches case-insensitively and returns the canonical spelling.
func enumOr(obj map[string]any, key string, allowed []string, def string) string {
	v, ok := stringField(obj, key)
	if !ok {
		return def
	}
	for _, candidate := range allowed {
		if strings.EqualFold(v, candidate) {
			return candidate
		}
	}
	return def
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampConfidence(v int) int {
	return clampInt(v, 0, 100)
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
