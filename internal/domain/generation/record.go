package generation

// Record is implemented by every canonical record returned to callers.
type Record interface {
	ContentKind() Kind
}

// Itinerary is the canonical multi-day trip plan.
type Itinerary struct {
	Title              string         `json:"title"`
	AIHighlights       []string       `json:"ai_highlights"`
	EstimatedCost      string         `json:"estimated_cost"`
	SustainabilityTips []string       `json:"sustainability_tips"`
	Days               []ItineraryDay `json:"days"`
}

// ItineraryDay is one day of an itinerary.
type ItineraryDay struct {
	Day           int           `json:"day"`
	Title         string        `json:"title"`
	Theme         string        `json:"theme"`
	Tips          string        `json:"tips"`
	Accommodation string        `json:"accommodation"`
	Destinations  []Destination `json:"destinations"`
}

// Destination is a single stop within a day.
type Destination struct {
	Name          string  `json:"name"`
	DurationHours float64 `json:"duration_hours"`
	Activity      string  `json:"activity"`
	Notes         string  `json:"notes"`
	Order         int     `json:"order"`
	Videos        []Video `json:"videos,omitempty"`
}

// Video is a short clip attached to a destination by enrichment.
type Video struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Channel   string `json:"channel"`
}

// HeritageRecognition describes an identified (or explicitly unidentified) site.
type HeritageRecognition struct {
	SiteName          string   `json:"site_name"`
	Confidence        int      `json:"confidence"`
	Country           string   `json:"country"`
	City              string   `json:"city"`
	Period            string   `json:"period"`
	Civilization      string   `json:"civilization"`
	Description       string   `json:"description"`
	HistoricalContext string   `json:"historical_context"`
	FunFacts          []string `json:"fun_facts"`
	VisitorTips       string   `json:"visitor_tips"`
	NearbySites       []string `json:"nearby_sites"`
	BestTimeToVisit   string   `json:"best_time_to_visit"`
	UNESCO            bool     `json:"unesco"`
	Significance      string   `json:"significance"`
	Identified        bool     `json:"identified"`
	Message           string   `json:"message"`

	kind Kind
}

// SustainabilityInsights covers crowding and environmental pressure for a destination.
type SustainabilityInsights struct {
	CrowdForecast           string       `json:"crowd_forecast"`
	CrowdScore              int          `json:"crowd_score"`
	EcoScore                int          `json:"eco_score"`
	CarbonEstimateKg        float64      `json:"carbon_estimate_kg"`
	WaterStress             string       `json:"water_stress"`
	ResponsibleTips         []string     `json:"responsible_tips"`
	LocalInitiatives        []string     `json:"local_initiatives"`
	AlternativeDestinations []string     `json:"alternative_destinations"`
	MonthlyTrend            []TrendPoint `json:"monthly_trend"`
	BestVisitTimes          []string     `json:"best_visit_times"`
	GreenPractices          []string     `json:"green_practices"`
	AvoidPeriods            []string     `json:"avoid_periods"`
	SustainabilityRating    string       `json:"sustainability_rating"`
	CarryingCapacityAlert   bool         `json:"carrying_capacity_alert"`
}

// TrendPoint is one month of the visitor trend.
type TrendPoint struct {
	Month    string `json:"month"`
	Visitors int    `json:"visitors"`
	EcoScore int    `json:"eco_score"`
}

// TranslationResult is the canonical translation output.
type TranslationResult struct {
	TranslatedText   string `json:"translatedText"`
	DetectedLanguage string `json:"detectedLanguage,omitempty"`
	Confidence       *int   `json:"confidence,omitempty"`
}

// ChatReply is the concierge's free text answer.
type ChatReply struct {
	Message string `json:"message"`
}

func (Itinerary) ContentKind() Kind              { return KindItinerary }
func (SustainabilityInsights) ContentKind() Kind { return KindSustainability }
func (TranslationResult) ContentKind() Kind      { return KindTranslation }
func (ChatReply) ContentKind() Kind              { return KindChat }

// ContentKind reports the image kind for image_url and upload inputs.
func (h HeritageRecognition) ContentKind() Kind {
	if h.kind == "" {
		return KindHeritageText
	}
	return h.kind
}
