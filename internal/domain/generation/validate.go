package generation

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	itineraryRequestSchema = `{
  "type": "object",
  "required": ["country", "days"],
  "properties": {
    "country": {"type": "string", "pattern": "\\S", "maxLength": 100},
    "days": {"type": "integer", "minimum": 1, "maximum": 30},
    "style": {"type": "string", "maxLength": 64},
    "budget": {"type": "string", "maxLength": 64},
    "interests": {"type": "array", "maxItems": 20, "items": {"type": "string", "maxLength": 80}},
    "special": {"type": "string", "maxLength": 1000}
  }
}`
	heritageRequestSchema = `{
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"enum": ["description", "image_url", "upload"]},
    "value": {"type": "string", "maxLength": 4000},
    "country_hint": {"type": "string", "maxLength": 100},
    "prompt": {"type": "string", "maxLength": 500}
  }
}`
	sustainabilityRequestSchema = `{
  "type": "object",
  "required": ["name", "country", "month"],
  "properties": {
    "name": {"type": "string", "pattern": "\\S", "maxLength": 200},
    "country": {"type": "string", "pattern": "\\S", "maxLength": 100},
    "month": {"enum": ["Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"]},
    "visitor_count": {"type": "integer", "minimum": 0}
  }
}`
	translationRequestSchema = `{
  "type": "object",
  "required": ["text", "targetLang"],
  "properties": {
    "text": {"type": "string", "maxLength": 8000},
    "targetLang": {"enum": ["en", "fr", "ar"]},
    "sourceLang": {"enum": ["", "en", "fr", "ar"]}
  }
}`
	chatRequestSchema = `{
  "type": "object",
  "required": ["messages"],
  "properties": {
    "messages": {
      "type": "array",
      "minItems": 1,
      "maxItems": 50,
      "items": {
        "type": "object",
        "required": ["role", "content"],
        "properties": {
          "role": {"enum": ["user", "assistant"]},
          "content": {"type": "string", "pattern": "\\S", "maxLength": 4000}
        }
      }
    },
    "context": {
      "type": "object",
      "properties": {
        "country": {"type": "string", "maxLength": 100},
        "interests": {"type": "array", "maxItems": 20, "items": {"type": "string", "maxLength": 80}}
      }
    }
  }
}`
	translationBatchRequestSchema = `{
  "type": "object",
  "required": ["texts", "targetLang"],
  "properties": {
    "texts": {"type": "array", "maxItems": 50, "items": {"type": "string", "maxLength": 2000}},
    "targetLang": {"enum": ["en", "fr", "ar"]},
    "sourceLang": {"enum": ["", "en", "fr", "ar"]}
  }
}`
)

var (
	itinerarySchemaValidator        = mustSchema(itineraryRequestSchema)
	heritageSchemaValidator         = mustSchema(heritageRequestSchema)
	sustainabilitySchemaValidator   = mustSchema(sustainabilityRequestSchema)
	translationSchemaValidator      = mustSchema(translationRequestSchema)
	translationBatchSchemaValidator = mustSchema(translationBatchRequestSchema)
	chatSchemaValidator             = mustSchema(chatRequestSchema)
)

func mustSchema(source string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(fmt.Sprintf("compile request schema: %v", err))
	}
	return schema
}

// ValidateRequest rejects malformed caller input before any network call.
func ValidateRequest(req Request, maxImageBytes int64) error {
	switch req.Kind {
	case KindItinerary:
		return validateAgainst(itinerarySchemaValidator, req.Itinerary)
	case KindHeritageText, KindHeritageImage:
		if err := validateAgainst(heritageSchemaValidator, req.Heritage); err != nil {
			return err
		}
		return validateHeritage(req.Heritage, maxImageBytes)
	case KindSustainability:
		return validateAgainst(sustainabilitySchemaValidator, req.Sustainability)
	case KindTranslation:
		return validateAgainst(translationSchemaValidator, req.Translation)
	case KindChat:
		if err := validateAgainst(chatSchemaValidator, req.Chat); err != nil {
			return err
		}
		if last := req.Chat.Messages[len(req.Chat.Messages)-1]; last.Role != ChatRoleUser {
			return invalidInput("the last chat message must come from the user")
		}
		return nil
	default:
		return invalidInput(fmt.Sprintf("unsupported content kind %q", req.Kind))
	}
}

// ValidateBatch checks a batch translation request.
func ValidateBatch(req TranslationBatchRequest) error {
	if req.Texts == nil {
		req.Texts = []string{}
	}
	return validateAgainst(translationBatchSchemaValidator, req)
}

func validateAgainst(schema *gojsonschema.Schema, payload any) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return invalidInput(fmt.Sprintf("request could not be validated: %v", err))
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.Field()+": "+desc.Description())
	}
	return invalidInput("invalid request: " + strings.Join(problems, "; "))
}

func validateHeritage(h *HeritageRequest, maxImageBytes int64) error {
	switch h.Type {
	case HeritageDescription:
		if h.Value == "" {
			return invalidInput("description or image URL is required")
		}
	case HeritageImageURL:
		if h.Value == "" {
			return invalidInput("description or image URL is required")
		}
		if !isImageURL(h.Value) {
			return invalidInput("value must be an http(s) image URL")
		}
	case HeritageUpload:
		return validateUpload(h.Image, maxImageBytes)
	}
	return nil
}

func validateUpload(img *ImageUpload, maxImageBytes int64) error {
	if img == nil || len(img.Data) == 0 {
		return invalidInput("image is required")
	}
	if maxImageBytes > 0 && int64(len(img.Data)) > maxImageBytes {
		return invalidInput(fmt.Sprintf("image exceeds the %d MB limit", maxImageBytes>>20))
	}
	mime := img.MimeType
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(img.Data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return invalidInput("uploaded file must be an image")
	}
	img.MimeType = mime
	return nil
}

func isImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
