package generation

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Prompt is the system/user pair sent to the model. Image is set for image
// modality only. History holds earlier chat turns that precede User.
type Prompt struct {
	System  string
	User    string
	Image   *ImageRef
	History []ChatMessage
}

// ImageRef points the model at an image. URL is either remote or a data URL.
// Data and MimeType are kept for providers that want raw bytes.
type ImageRef struct {
	URL      string
	Data     []byte
	MimeType string
}

const (
	plannerSystemPrompt = `You are Rihla AI, a travel planner specialising in Tunisia, North Africa and the wider Mediterranean. ` +
		`You know medinas, archaeological sites, the Sahara, coastal towns, local cuisine and etiquette. ` +
		`You always answer with a single JSON object and nothing else.`
	heritageSystemPrompt = `You are Rihla AI, a heritage recognition expert for North African and Maghrebi cultural sites. ` +
		`You identify monuments and landmarks and give accurate historical context and practical visitor information. ` +
		`If you cannot identify the site, set "site_name" to "Unknown". Always answer with a single JSON object.`
	sustainabilitySystemPrompt = `You are Rihla AI, an analyst for sustainable tourism and crowd management in the Mediterranean. ` +
		`Always answer with a single JSON object.`
	translatorSystemPrompt = `You are a professional translator. Translate accurately while preserving meaning, tone, formatting, emojis and cultural nuance. ` +
		`Answer with a single JSON object and no commentary.`
	conciergeSystemPrompt = `You are Rihla AI, an expert travel concierge specialising in Tunisia, North Africa and the Maghreb region. ` +
		`You know Tunisian culture, history, cuisine and geography, hidden gems, the Sahara, the medinas, Carthage, Djerba, Sidi Bou Said, Kairouan, Douz, Tataouine, Tozeur and Cap Bon. ` +
		`You also know Morocco, Algeria, Libya, Egypt and the broader MENA region.`
	conciergeStyle = `Be warm and specific. Give actionable advice that names exact places, local dishes and customs. ` +
		`Respond in 2-4 paragraphs and use markdown where it helps. Never be generic.`
	jsonOnlyInstruction = "Return ONLY valid JSON. No markdown, no prose before or after the object."
)

const itinerarySchema = `{
  "title": "A descriptive title for this itinerary",
  "ai_highlights": ["Highlight 1", "Highlight 2", "Highlight 3"],
  "estimated_cost": "Budget estimate in local currency or USD",
  "sustainability_tips": ["Tip 1", "Tip 2", "Tip 3"],
  "days": [
    {
      "day": 1,
      "title": "Day title",
      "theme": "Theme of the day",
      "tips": "Practical tips for the day",
      "accommodation": "Recommended accommodation",
      "destinations": [
        {
          "name": "Place name",
          "duration_hours": 2,
          "activity": "Activity description",
          "notes": "Additional notes",
          "order": 1
        }
      ]
    }
  ]
}`

const heritageSchema = `{
  "site_name": "Name of the site",
  "confidence": 85,
  "country": "%s",
  "city": "City name",
  "period": "Historical period",
  "civilization": "Civilization name",
  "description": "Detailed description",
  "historical_context": "Historical context and significance",
  "fun_facts": ["Fun fact 1", "Fun fact 2", "Fun fact 3"],
  "visitor_tips": "Practical tips for visitors",
  "nearby_sites": ["Nearby site 1", "Nearby site 2"],
  "best_time_to_visit": "Best time information",
  "unesco": true,
  "significance": "Cultural significance"
}`

const sustainabilitySchema = `{
  "crowd_forecast": "low|moderate|high",
  "crowd_score": 65,
  "best_visit_times": ["Early morning (7-9am)", "Late afternoon (4-6pm)"],
  "eco_score": 72,
  "carbon_estimate_kg": 12.5,
  "water_stress": "low|moderate|high",
  "sustainability_rating": "A|B|C|D",
  "green_practices": ["Use public transport", "Support local businesses"],
  "responsible_tips": ["Bring a reusable water bottle", "Respect local customs"],
  "avoid_periods": ["Peak season (Jul-Aug)", "Weekend afternoons"],
  "local_initiatives": ["Beach cleanup programme", "Local conservation project"],
  "alternative_destinations": ["Nearby less visited site 1", "Nearby less visited site 2"],
  "carrying_capacity_alert": false,
  "monthly_trend": [
    {"month": "Jan", "visitors": 1200, "eco_score": 85},
    {"month": "Feb", "visitors": 1100, "eco_score": 87},
    {"month": "Mar", "visitors": 1500, "eco_score": 80},
    {"month": "Apr", "visitors": 2200, "eco_score": 74},
    {"month": "May", "visitors": 3100, "eco_score": 68},
    {"month": "Jun", "visitors": 4200, "eco_score": 58},
    {"month": "Jul", "visitors": 5500, "eco_score": 45},
    {"month": "Aug", "visitors": 6200, "eco_score": 40},
    {"month": "Sep", "visitors": 3800, "eco_score": 62},
    {"month": "Oct", "visitors": 2500, "eco_score": 72},
    {"month": "Nov", "visitors": 1600, "eco_score": 81},
    {"month": "Dec", "visitors": 1300, "eco_score": 84}
  ]
}`

const translationSchema = `{
  "translatedText": "The translated text",
  "detectedLanguage": "en|fr|ar",
  "confidence": 90
}`

// BuildPrompt dispatches to the builder registered for the request kind.
func BuildPrompt(req Request) (Prompt, bool) {
	p, ok := pipelines[req.Kind]
	if !ok {
		return Prompt{}, false
	}
	return p.prompt(req), true
}

func buildItineraryPrompt(req Request) Prompt {
	it := req.Itinerary
	var b strings.Builder
	fmt.Fprintf(&b, "Create a detailed %d-day travel itinerary for %s.\n\n", it.Days, it.Country)
	b.WriteString("Traveller profile:\n")
	fmt.Fprintf(&b, "- Style: %s\n", it.Style)
	fmt.Fprintf(&b, "- Budget: %s\n", it.Budget)
	if len(it.Interests) > 0 {
		fmt.Fprintf(&b, "- Interests: %s\n", strings.Join(it.Interests, ", "))
	}
	if it.Special != "" {
		fmt.Fprintf(&b, "- Special requests: %s\n", it.Special)
	}
	b.WriteString("\n" + jsonOnlyInstruction + "\n\nThe JSON must follow this exact structure:\n")
	b.WriteString(itinerarySchema)
	fmt.Fprintf(&b, "\n\nInclude exactly %d entries in \"days\". Make it specific to %s with local cuisine, cultural etiquette and hidden gems.", it.Days, it.Country)
	return Prompt{System: plannerSystemPrompt, User: b.String()}
}

func buildHeritagePrompt(req Request) Prompt {
	h := req.Heritage
	var b strings.Builder
	switch h.Type {
	case HeritageDescription:
		fmt.Fprintf(&b, "A traveller describes this heritage site or landmark: %q\n", h.Value)
		fmt.Fprintf(&b, "It may be in: %s\n\nIdentify the site and provide rich cultural context.\n\n", h.CountryHint)
	default:
		fmt.Fprintf(&b, "%s in %s.\n", h.Prompt, h.CountryHint)
		if h.Landmark != nil && h.Landmark.Name != "" {
			fmt.Fprintf(&b, "A landmark detector suggests: %s (score %d%%). Confirm or correct this from the image.\n", h.Landmark.Name, int(h.Landmark.Score*100+0.5))
		}
		b.WriteString("Describe only what the image supports.\n\n")
	}
	b.WriteString(jsonOnlyInstruction + "\n\nThe JSON must follow this exact structure:\n")
	fmt.Fprintf(&b, heritageSchema, h.CountryHint)

	prompt := Prompt{System: heritageSystemPrompt, User: b.String()}
	if req.Modality == ModalityImage {
		prompt.Image = imageRefFor(h)
	}
	return prompt
}

func imageRefFor(h *HeritageRequest) *ImageRef {
	if h.Image != nil && len(h.Image.Data) > 0 {
		return &ImageRef{
			URL:      "data:" + h.Image.MimeType + ";base64," + base64.StdEncoding.EncodeToString(h.Image.Data),
			Data:     h.Image.Data,
			MimeType: h.Image.MimeType,
		}
	}
	return &ImageRef{URL: h.Value}
}

func buildSustainabilityPrompt(req Request) Prompt {
	s := req.Sustainability
	var b strings.Builder
	fmt.Fprintf(&b, "Provide sustainability and crowd management insights for %q, %s in %s.\n", s.Name, s.Country, s.Month)
	if s.VisitorCount != nil {
		fmt.Fprintf(&b, "Current monthly visitors: %d\n", *s.VisitorCount)
	}
	b.WriteString("\n" + jsonOnlyInstruction + "\n\nThe JSON must follow this exact structure:\n")
	b.WriteString(sustainabilitySchema)
	fmt.Fprintf(&b, "\n\nBase the numbers on typical Mediterranean and North African tourism patterns for %s: peak seasons, climate, environmental pressure and local initiatives. Scores are integers from 0 to 100.", s.Name)
	return Prompt{System: sustainabilitySystemPrompt, User: b.String()}
}

func buildTranslationPrompt(req Request) Prompt {
	t := req.Translation
	var b strings.Builder
	if t.SourceLang != "" {
		fmt.Fprintf(&b, "Translate the following text from %s to %s.", t.SourceLang.Name(), t.TargetLang.Name())
	} else {
		fmt.Fprintf(&b, "Detect the language of the following text and translate it to %s.", t.TargetLang.Name())
	}
	b.WriteString(" Keep every line that reads ---SEPARATOR--- unchanged.\n\n")
	fmt.Fprintf(&b, "Text: %q\n\n", t.Text)
	b.WriteString(jsonOnlyInstruction + "\n\nThe JSON must follow this exact structure:\n")
	b.WriteString(translationSchema)
	return Prompt{System: translatorSystemPrompt, User: b.String()}
}

func buildChatPrompt(req Request) Prompt {
	c := req.Chat
	var system strings.Builder
	system.WriteString(conciergeSystemPrompt + "\n")
	if c.Context != nil {
		if c.Context.Country != "" {
			fmt.Fprintf(&system, "Current focus: %s\n", c.Context.Country)
		}
		if len(c.Context.Interests) > 0 {
			fmt.Fprintf(&system, "Traveller interests: %s\n", strings.Join(c.Context.Interests, ", "))
		}
	}
	system.WriteString("\n" + conciergeStyle)

	prompt := Prompt{System: system.String()}
	if n := len(c.Messages); n > 0 {
		prompt.History = append([]ChatMessage(nil), c.Messages[:n-1]...)
		prompt.User = c.Messages[n-1].Content
	}
	return prompt
}
