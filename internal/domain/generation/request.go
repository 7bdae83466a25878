package generation

import "strings"

// Kind names one of the fixed content generation tasks.
type Kind string

const (
	KindItinerary      Kind = "itinerary"
	KindHeritageText   Kind = "heritage_text"
	KindHeritageImage  Kind = "heritage_image"
	KindSustainability Kind = "sustainability"
	KindTranslation    Kind = "translation"
	KindChat           Kind = "chat"
)

// Modality tells whether a request carries an image next to its text.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// Language is a supported translation language code.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageFrench  Language = "fr"
	LanguageArabic  Language = "ar"
)

var languageNames = map[Language]string{
	LanguageEnglish: "English",
	LanguageFrench:  "French",
	LanguageArabic:  "Arabic",
}

// Name returns the English name of the language, or the raw code if unknown.
func (l Language) Name() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return string(l)
}

// HeritageInputType selects how the traveller describes the site.
type HeritageInputType string

const (
	HeritageDescription HeritageInputType = "description"
	HeritageImageURL    HeritageInputType = "image_url"
	HeritageUpload      HeritageInputType = "upload"
)

const (
	defaultTripDays       = 7
	defaultTravelStyle    = "cultural"
	defaultBudget         = "mid-range"
	defaultCountryHint    = "Tunisia"
	defaultHeritagePrompt = "Identify this heritage site"
)

// ItineraryRequest is the traveller profile used to plan a trip.
type ItineraryRequest struct {
	Country       string   `json:"country"`
	Days          int      `json:"days"`
	Style         string   `json:"style"`
	Budget        string   `json:"budget"`
	Interests     []string `json:"interests"`
	Special       string   `json:"special"`
	IncludeVideos bool     `json:"include_videos,omitempty"`
}

// HeritageRequest identifies a site from a description, a remote image or an upload.
type HeritageRequest struct {
	Type        HeritageInputType `json:"type"`
	Value       string            `json:"value"`
	CountryHint string            `json:"country_hint"`
	Prompt      string            `json:"prompt,omitempty"`
	Image       *ImageUpload      `json:"-"`
	Landmark    *Landmark         `json:"-"`
}

// ImageUpload holds the bytes of a photo posted by the traveller.
type ImageUpload struct {
	Data     []byte
	MimeType string
	Filename string
}

// Landmark is a detector hint forwarded to the vision model.
type Landmark struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// SustainabilityRequest asks for crowd and environmental insights for a month.
type SustainabilityRequest struct {
	Name         string `json:"name"`
	Country      string `json:"country"`
	Month        string `json:"month"`
	VisitorCount *int   `json:"visitor_count,omitempty"`
}

// TranslationRequest translates a single text.
type TranslationRequest struct {
	Text       string   `json:"text"`
	TargetLang Language `json:"targetLang"`
	SourceLang Language `json:"sourceLang,omitempty"`
}

// TranslationBatchRequest translates several texts in a single model call.
type TranslationBatchRequest struct {
	Texts      []string `json:"texts"`
	TargetLang Language `json:"targetLang"`
	SourceLang Language `json:"sourceLang,omitempty"`
}

// Chat roles a caller may send. The system turn is always built server side.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn of a travel conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatContext narrows the concierge to a country and the traveller's interests.
type ChatContext struct {
	Country   string   `json:"country,omitempty"`
	Interests []string `json:"interests,omitempty"`
}

// ChatRequest is a conversation whose last turn is the traveller's question.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	Context  *ChatContext  `json:"context,omitempty"`
}

// Request is the kind-tagged envelope flowing through the pipeline.
// Exactly one payload pointer is set, matching Kind.
type Request struct {
	Kind           Kind
	Modality       Modality
	Itinerary      *ItineraryRequest
	Heritage       *HeritageRequest
	Sustainability *SustainabilityRequest
	Translation    *TranslationRequest
	Chat           *ChatRequest
}

// NewItineraryRequest applies the planner defaults and wraps the payload.
func NewItineraryRequest(p ItineraryRequest) Request {
	p.Country = strings.TrimSpace(p.Country)
	if p.Days == 0 {
		p.Days = defaultTripDays
	}
	p.Style = firstNonEmpty(p.Style, defaultTravelStyle)
	p.Budget = firstNonEmpty(p.Budget, defaultBudget)
	p.Interests = cleanList(p.Interests)
	p.Special = strings.TrimSpace(p.Special)
	return Request{Kind: KindItinerary, Modality: ModalityText, Itinerary: &p}
}

// NewHeritageRequest picks the kind from the input type. Image inputs use the vision route.
func NewHeritageRequest(p HeritageRequest) Request {
	p.Value = strings.TrimSpace(p.Value)
	p.CountryHint = firstNonEmpty(p.CountryHint, defaultCountryHint)
	if p.Type == "" && p.Image != nil {
		p.Type = HeritageUpload
	}
	if p.Type == HeritageDescription {
		return Request{Kind: KindHeritageText, Modality: ModalityText, Heritage: &p}
	}
	p.Prompt = firstNonEmpty(p.Prompt, defaultHeritagePrompt)
	return Request{Kind: KindHeritageImage, Modality: ModalityImage, Heritage: &p}
}

// NewSustainabilityRequest wraps the payload.
func NewSustainabilityRequest(p SustainabilityRequest) Request {
	p.Name = strings.TrimSpace(p.Name)
	p.Country = strings.TrimSpace(p.Country)
	p.Month = strings.TrimSpace(p.Month)
	return Request{Kind: KindSustainability, Modality: ModalityText, Sustainability: &p}
}

// NewTranslationRequest wraps the payload.
func NewTranslationRequest(p TranslationRequest) Request {
	return Request{Kind: KindTranslation, Modality: ModalityText, Translation: &p}
}

// NewChatRequest trims the context and wraps the payload.
func NewChatRequest(p ChatRequest) Request {
	if p.Messages == nil {
		p.Messages = []ChatMessage{}
	}
	if p.Context != nil {
		ctx := ChatContext{
			Country:   strings.TrimSpace(p.Context.Country),
			Interests: cleanList(p.Context.Interests),
		}
		p.Context = &ctx
	}
	return Request{Kind: KindChat, Modality: ModalityText, Chat: &p}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		clean := strings.TrimSpace(item)
		if clean == "" {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	return out
}
