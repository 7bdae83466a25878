package generation

import (
	"fmt"
	"math"
)

const (
	defaultStopHours = 1.0
	maxTripDays      = 30
	maxStopsPerDay   = 50
)

// NormalizeItinerary builds a complete itinerary. Day and destination
// entries that are not objects are skipped. Positions fill missing numbers.
func NormalizeItinerary(obj map[string]any, req ItineraryRequest) Itinerary {
	it := Itinerary{
		Title:              stringOr(obj, "title", defaultItineraryTitle(req)),
		AIHighlights:       stringList(obj, "ai_highlights"),
		EstimatedCost:      stringOr(obj, "estimated_cost", "Not available"),
		SustainabilityTips: stringList(obj, "sustainability_tips"),
		Days:               []ItineraryDay{},
	}
	for i, raw := range objectList(obj, "days") {
		it.Days = append(it.Days, normalizeDay(raw, i+1))
	}
	return it
}

func normalizeDay(obj map[string]any, position int) ItineraryDay {
	day := ItineraryDay{
		Day:           intOr(obj, "day", position),
		Title:         stringOr(obj, "title", fmt.Sprintf("Day %d", position)),
		Theme:         stringOr(obj, "theme", ""),
		Tips:          stringOr(obj, "tips", ""),
		Accommodation: stringOr(obj, "accommodation", ""),
		Destinations:  []Destination{},
	}
	if day.Day < 1 || day.Day > maxTripDays {
		day.Day = position
	}
	for i, raw := range objectList(obj, "destinations") {
		day.Destinations = append(day.Destinations, normalizeDestination(raw, i+1))
	}
	return day
}

func normalizeDestination(obj map[string]any, position int) Destination {
	hours, ok := numberField(obj, "duration_hours")
	if !ok {
		hours = defaultStopHours
	}
	order := intOr(obj, "order", position)
	if order < 1 || order > maxStopsPerDay {
		order = position
	}
	return Destination{
		Name:          stringOr(obj, "name", fmt.Sprintf("Stop %d", position)),
		DurationHours: math.Max(0, hours),
		Activity:      stringOr(obj, "activity", ""),
		Notes:         stringOr(obj, "notes", ""),
		Order:         order,
	}
}

func defaultItineraryTitle(req ItineraryRequest) string {
	country := firstNonEmpty(req.Country, "your destination")
	if req.Days > 0 {
		return fmt.Sprintf("%d-day %s itinerary", req.Days, country)
	}
	return fmt.Sprintf("%s itinerary", country)
}
