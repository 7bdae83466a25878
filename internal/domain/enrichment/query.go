package enrichment

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)

// activitySuffixes is checked in order; the first keyword hit wins.
var activitySuffixes = []struct {
	keywords []string
	suffix   string
}{
	{[]string{"eat", "food", "restaurant"}, "food guide"},
	{[]string{"beach", "sea"}, "beach travel"},
	{[]string{"museum", "historical"}, "museum tour"},
	{[]string{"market", "souk"}, "market shopping"},
}

const defaultQuerySuffix = "travel guide"

// DestinationQuery builds the video search query for one itinerary stop.
func DestinationQuery(name, country, activity string) string {
	clean := strings.Join(strings.Fields(nonWord.ReplaceAllString(name, " ")), " ")
	activity = strings.ToLower(activity)
	suffix := defaultQuerySuffix
	for _, candidate := range activitySuffixes {
		if containsAny(activity, candidate.keywords) {
			suffix = candidate.suffix
			break
		}
	}
	return strings.Join(strings.Fields(clean+" "+country+" "+suffix), " ")
}

// NormalizeQuery lowercases, turns punctuation into spaces and collapses whitespace.
func NormalizeQuery(q string) string {
	lowered := strings.ToLower(strings.TrimSpace(q))
	var builder strings.Builder
	builder.Grow(len(lowered))
	lastSpace := true
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			builder.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(builder.String())
}

// CacheKey identifies a search in the result cache.
func CacheKey(query string, maxResults int) string {
	return NormalizeQuery(query) + "-" + strconv.Itoa(maxResults)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
