package generation

var (
	levels  = []string{"low", "moderate", "high"}
	ratings = []string{"A", "B", "C", "D"}
)

const defaultScore = 50

// NormalizeSustainability builds a complete insights record with scores clamped to 0..100.
func NormalizeSustainability(obj map[string]any) SustainabilityInsights {
	carbon, ok := numberField(obj, "carbon_estimate_kg")
	if !ok || carbon < 0 {
		carbon = 0
	}
	insights := SustainabilityInsights{
		CrowdForecast:           enumOr(obj, "crowd_forecast", levels, "moderate"),
		CrowdScore:              clampInt(intOr(obj, "crowd_score", defaultScore), 0, 100),
		EcoScore:                clampInt(intOr(obj, "eco_score", defaultScore), 0, 100),
		CarbonEstimateKg:        carbon,
		WaterStress:             enumOr(obj, "water_stress", levels, "moderate"),
		ResponsibleTips:         stringList(obj, "responsible_tips"),
		LocalInitiatives:        stringList(obj, "local_initiatives"),
		AlternativeDestinations: stringList(obj, "alternative_destinations"),
		MonthlyTrend:            []TrendPoint{},
		BestVisitTimes:          stringList(obj, "best_visit_times"),
		GreenPractices:          stringList(obj, "green_practices"),
		AvoidPeriods:            stringList(obj, "avoid_periods"),
		SustainabilityRating:    enumOr(obj, "sustainability_rating", ratings, "C"),
		CarryingCapacityAlert:   boolOr(obj, "carrying_capacity_alert", false),
	}
	for _, point := range objectList(obj, "monthly_trend") {
		month, ok := stringField(point, "month")
		if !ok {
			continue
		}
		insights.MonthlyTrend = append(insights.MonthlyTrend, TrendPoint{
			Month:    month,
			Visitors: max(0, intOr(point, "visitors", 0)),
			EcoScore: clampInt(intOr(point, "eco_score", defaultScore), 0, 100),
		})
	}
	return insights
}
