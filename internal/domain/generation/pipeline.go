package generation

import "strings"

// kindPipeline binds the per-kind pieces of the shared pipeline.
// The gateway is the same for every kind. Free text kinds skip extraction
// and normalize the raw reply.
type kindPipeline struct {
	prompt    func(Request) Prompt
	normalize func(obj map[string]any, raw string, req Request) Record
	freeText  bool
}

var pipelines map[Kind]kindPipeline

func init() {
	heritage := kindPipeline{
		prompt: buildHeritagePrompt,
		normalize: func(obj map[string]any, raw string, req Request) Record {
			return NormalizeHeritage(obj, raw, *req.Heritage)
		},
	}
	pipelines = map[Kind]kindPipeline{
		KindItinerary: {
			prompt: buildItineraryPrompt,
			normalize: func(obj map[string]any, _ string, req Request) Record {
				return NormalizeItinerary(obj, *req.Itinerary)
			},
		},
		KindHeritageText:  heritage,
		KindHeritageImage: heritage,
		KindSustainability: {
			prompt: buildSustainabilityPrompt,
			normalize: func(obj map[string]any, _ string, _ Request) Record {
				return NormalizeSustainability(obj)
			},
		},
		KindTranslation: {
			prompt: buildTranslationPrompt,
			normalize: func(obj map[string]any, raw string, req Request) Record {
				return NormalizeTranslation(obj, raw, *req.Translation)
			},
		},
		KindChat: {
			prompt: buildChatPrompt,
			normalize: func(_ map[string]any, raw string, _ Request) Record {
				return ChatReply{Message: strings.TrimSpace(raw)}
			},
			freeText: true,
		},
	}
}
