package generation

import "time"

// ModelCallSpec holds the provider parameters for one content kind.
type ModelCallSpec struct {
	ModelID         string
	MaxOutputTokens int
	Temperature     float32
	Timeout         time.Duration
	MaxRetries      int
}

type route struct {
	kind     Kind
	modality Modality
}

// ModelTable is the static (kind, modality) to call spec lookup.
type ModelTable struct {
	specs map[route]ModelCallSpec
}

// DefaultModelSpecs returns the built-in model tiers.
func DefaultModelSpecs() map[Kind]ModelCallSpec {
	return map[Kind]ModelCallSpec{
		KindItinerary: {
			ModelID:         "meta-llama/llama-3.3-70b-instruct",
			MaxOutputTokens: 3000,
			Temperature:     0.7,
			Timeout:         45 * time.Second,
			MaxRetries:      2,
		},
		KindHeritageText: {
			ModelID:         "meta-llama/llama-3.2-3b-instruct",
			MaxOutputTokens: 1500,
			Temperature:     0.7,
			Timeout:         30 * time.Second,
			MaxRetries:      2,
		},
		KindHeritageImage: {
			ModelID:         "anthropic/claude-3-haiku",
			MaxOutputTokens: 1000,
			Temperature:     0.7,
			Timeout:         45 * time.Second,
			MaxRetries:      2,
		},
		KindSustainability: {
			ModelID:         "meta-llama/llama-3.2-3b-instruct",
			MaxOutputTokens: 1500,
			Temperature:     0.7,
			Timeout:         30 * time.Second,
			MaxRetries:      2,
		},
		KindTranslation: {
			ModelID:         "arcee-ai/trinity-large-preview:free",
			MaxOutputTokens: 1000,
			Temperature:     0.3,
			Timeout:         30 * time.Second,
			MaxRetries:      2,
		},
		KindChat: {
			ModelID:         "meta-llama/llama-3.3-70b-instruct",
			MaxOutputTokens: 900,
			Temperature:     0.7,
			Timeout:         30 * time.Second,
			MaxRetries:      2,
		},
	}
}

// NewModelTable merges overrides onto the defaults. Zero fields in an override keep the default.
func NewModelTable(overrides map[Kind]ModelCallSpec) ModelTable {
	specs := make(map[route]ModelCallSpec)
	for kind, spec := range DefaultModelSpecs() {
		if o, ok := overrides[kind]; ok {
			spec = mergeSpec(spec, o)
		}
		specs[route{kind: kind, modality: modalityOf(kind)}] = spec
	}
	return ModelTable{specs: specs}
}

// Lookup returns the call spec for a kind and modality.
func (t ModelTable) Lookup(kind Kind, modality Modality) (ModelCallSpec, bool) {
	spec, ok := t.specs[route{kind: kind, modality: modality}]
	return spec, ok
}

func modalityOf(kind Kind) Modality {
	if kind == KindHeritageImage {
		return ModalityImage
	}
	return ModalityText
}

func mergeSpec(base, override ModelCallSpec) ModelCallSpec {
	if override.ModelID != "" {
		base.ModelID = override.ModelID
	}
	if override.MaxOutputTokens > 0 {
		base.MaxOutputTokens = override.MaxOutputTokens
	}
	if override.Temperature > 0 {
		base.Temperature = override.Temperature
	}
	if override.Timeout > 0 {
		base.Timeout = override.Timeout
	}
	if override.MaxRetries > 0 {
		base.MaxRetries = override.MaxRetries
	}
	return base
}
