package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/yanqian/rihla/pkg/errors"
	"github.com/yanqian/rihla/pkg/metrics"
	"github.com/yanqian/rihla/pkg/util"
)

// BatchSeparator joins batch segments into a single translation call.
const BatchSeparator = "\n---SEPARATOR---\n"

const (
	defaultRawPreviewChars = 500
	defaultAuditTimeout    = 3 * time.Second
	maxRecentGenerations   = 100
)

// Service exposes the generate-then-extract pipeline for every content kind.
type Service interface {
	GenerateItinerary(ctx context.Context, req ItineraryRequest) (Itinerary, error)
	RecognizeHeritage(ctx context.Context, req HeritageRequest) (HeritageRecognition, error)
	SustainabilityInsights(ctx context.Context, req SustainabilityRequest) (SustainabilityInsights, error)
	Translate(ctx context.Context, req TranslationRequest) (TranslationResult, error)
	TranslateBatch(ctx context.Context, req TranslationBatchRequest) ([]string, error)
	Chat(ctx context.Context, req ChatRequest) (ChatReply, error)
	RecentGenerations(ctx context.Context, limit int) ([]AuditEntry, error)
}

// ModelInvoker performs one logical model call. *Gateway satisfies it.
type ModelInvoker interface {
	Invoke(ctx context.Context, kind Kind, spec ModelCallSpec, prompt Prompt) (RawModelResponse, error)
}

var _ ModelInvoker = (*Gateway)(nil)

type service struct {
	cfg       Config
	invoker   ModelInvoker
	audit     AuditLog
	archive   ImageArchive
	landmarks LandmarkDetector
	logger    *slog.Logger
	clock     util.Clock
	newID     func() string
}

// NewService constructs the generation service. audit, archive and landmarks are optional.
func NewService(cfg Config, invoker ModelInvoker, audit AuditLog, archive ImageArchive, landmarks LandmarkDetector, logger *slog.Logger) Service {
	if cfg.RawPreviewChars <= 0 {
		cfg.RawPreviewChars = defaultRawPreviewChars
	}
	if cfg.AuditTimeout <= 0 {
		cfg.AuditTimeout = defaultAuditTimeout
	}
	return &service{
		cfg:       cfg,
		invoker:   invoker,
		audit:     audit,
		archive:   archive,
		landmarks: landmarks,
		logger:    logger.With("component", "generation.service"),
		clock:     util.SystemClock{},
		newID:     uuid.NewString,
	}
}

func (s *service) GenerateItinerary(ctx context.Context, payload ItineraryRequest) (Itinerary, error) {
	req := NewItineraryRequest(payload)
	if err := ValidateRequest(req, s.cfg.MaxImageBytes); err != nil {
		return Itinerary{}, err
	}
	record, err := s.generate(ctx, req, "")
	if err != nil {
		return Itinerary{}, err
	}
	return record.(Itinerary), nil
}

func (s *service) RecognizeHeritage(ctx context.Context, payload HeritageRequest) (HeritageRecognition, error) {
	req := NewHeritageRequest(payload)
	if err := ValidateRequest(req, s.cfg.MaxImageBytes); err != nil {
		return HeritageRecognition{}, err
	}
	var imageKey string
	if req.Heritage.Type == HeritageUpload {
		imageKey = s.archiveImage(ctx, req.Heritage.Image)
		if req.Heritage.Landmark == nil {
			req.Heritage.Landmark = s.detectLandmark(ctx, req.Heritage.Image)
		}
	}
	record, err := s.generate(ctx, req, imageKey)
	if err != nil {
		return HeritageRecognition{}, err
	}
	return record.(HeritageRecognition), nil
}

func (s *service) SustainabilityInsights(ctx context.Context, payload SustainabilityRequest) (SustainabilityInsights, error) {
	req := NewSustainabilityRequest(payload)
	if err := ValidateRequest(req, s.cfg.MaxImageBytes); err != nil {
		return SustainabilityInsights{}, err
	}
	record, err := s.generate(ctx, req, "")
	if err != nil {
		return SustainabilityInsights{}, err
	}
	return record.(SustainabilityInsights), nil
}

func (s *service) Translate(ctx context.Context, payload TranslationRequest) (TranslationResult, error) {
	req := NewTranslationRequest(payload)
	if err := ValidateRequest(req, s.cfg.MaxImageBytes); err != nil {
		return TranslationResult{}, err
	}
	if strings.TrimSpace(payload.Text) == "" {
		return TranslationResult{TranslatedText: payload.Text}, nil
	}
	record, err := s.generate(ctx, req, "")
	if err != nil {
		return TranslationResult{}, err
	}
	return record.(TranslationResult), nil
}

// TranslateBatch sends every text in one call and splits the answer on the
// separator. Segments the model dropped keep their original text.
func (s *service) TranslateBatch(ctx context.Context, payload TranslationBatchRequest) ([]string, error) {
	if err := ValidateBatch(payload); err != nil {
		return nil, err
	}
	if len(payload.Texts) == 0 {
		return []string{}, nil
	}
	joined := strings.Join(payload.Texts, BatchSeparator)
	if strings.TrimSpace(strings.ReplaceAll(joined, strings.TrimSpace(BatchSeparator), "")) == "" {
		return append([]string(nil), payload.Texts...), nil
	}
	req := NewTranslationRequest(TranslationRequest{
		Text:       joined,
		TargetLang: payload.TargetLang,
		SourceLang: payload.SourceLang,
	})
	record, err := s.generate(ctx, req, "")
	if err != nil {
		return nil, err
	}
	return splitBatch(record.(TranslationResult).TranslatedText, payload.Texts), nil
}

// Chat answers the last user turn of a conversation as free text.
func (s *service) Chat(ctx context.Context, payload ChatRequest) (ChatReply, error) {
	req := NewChatRequest(payload)
	if err := ValidateRequest(req, s.cfg.MaxImageBytes); err != nil {
		return ChatReply{}, err
	}
	record, err := s.generate(ctx, req, "")
	if err != nil {
		return ChatReply{}, err
	}
	return record.(ChatReply), nil
}

func (s *service) RecentGenerations(ctx context.Context, limit int) ([]AuditEntry, error) {
	if s.audit == nil {
		return []AuditEntry{}, nil
	}
	limit = clampInt(limit, 1, maxRecentGenerations)
	entries, err := s.audit.Recent(ctx, limit)
	if err != nil {
		return nil, apperrors.Wrap(CodeProviderUnavailable, "failed to load generation history", err)
	}
	if entries == nil {
		entries = []AuditEntry{}
	}
	return entries, nil
}

func (s *service) generate(ctx context.Context, req Request, imageKey string) (Record, error) {
	pipeline, ok := pipelines[req.Kind]
	if !ok {
		return nil, invalidInput(fmt.Sprintf("unsupported content kind %q", req.Kind))
	}
	spec, ok := s.cfg.Models.Lookup(req.Kind, req.Modality)
	if !ok {
		return nil, apperrors.Wrap(CodeProviderUnavailable, "no model configured for "+string(req.Kind), nil)
	}

	start := s.clock.Now()
	entry := AuditEntry{
		ID:        s.newID(),
		Kind:      req.Kind,
		Model:     spec.ModelID,
		ImageKey:  imageKey,
		CreatedAt: start,
	}

	raw, err := s.invoker.Invoke(ctx, req.Kind, spec, pipeline.prompt(req))
	entry.LatencyMs = s.clock.Now().Sub(start).Milliseconds()
	if err != nil {
		entry.Outcome = ClassOf(err)
		s.recordAudit(ctx, entry)
		return nil, err
	}

	entry.Model = raw.Model
	var obj map[string]any
	found := false
	if pipeline.freeText {
		if strings.TrimSpace(raw.Text) == "" {
			entry.Outcome = CodeProviderUnavailable
			s.recordAudit(ctx, entry)
			s.logger.Warn("model returned an empty reply", "kind", req.Kind, "model", raw.Model)
			return nil, apperrors.Wrap(CodeProviderUnavailable, "the AI provider returned an empty reply", nil)
		}
	} else {
		obj, found = s.extract(req.Kind, raw)
		if !found {
			entry.RawText = raw.Text
		}
	}
	if raw.Truncated {
		s.logger.Warn("model response was cut at the output token limit", "kind", req.Kind, "model", raw.Model, "max_tokens", spec.MaxOutputTokens)
	}

	record := pipeline.normalize(obj, raw.Text, req)

	entry.Outcome = "ok"
	entry.Extracted = found
	entry.Truncated = raw.Truncated
	entry.Usage = raw.Usage
	s.recordAudit(ctx, entry)
	return record, nil
}

func (s *service) extract(kind Kind, raw RawModelResponse) (map[string]any, bool) {
	extracted, found := Extract(raw.Text)
	result := "extracted"
	if !found {
		result = "absent"
		s.logger.Warn("model response held no JSON object",
			"kind", kind,
			"model", raw.Model,
			"truncated", raw.Truncated,
			"raw_preview", truncateRunes(raw.Text, s.cfg.RawPreviewChars),
		)
	}
	metrics.Extractions.WithLabelValues(string(kind), result).Inc()
	return extracted.Object, found
}

// recordAudit is best effort and survives caller cancellation.
func (s *service) recordAudit(ctx context.Context, entry AuditEntry) {
	if s.audit == nil {
		return
	}
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.AuditTimeout)
	defer cancel()
	if err := s.audit.Record(auditCtx, entry); err != nil {
		s.logger.Warn("failed to record generation", "id", entry.ID, "kind", entry.Kind, "error", err)
	}
}

func (s *service) archiveImage(ctx context.Context, img *ImageUpload) string {
	if s.archive == nil || img == nil {
		return ""
	}
	key := fmt.Sprintf("heritage/%s/%s%s", s.clock.Now().Format("2006/01/02"), s.newID(), extensionFor(img.MimeType))
	location, err := s.archive.Put(ctx, key, img.Data, img.MimeType)
	if err != nil {
		s.logger.Warn("failed to archive heritage upload", "key", key, "error", err)
		return ""
	}
	return location
}

func (s *service) detectLandmark(ctx context.Context, img *ImageUpload) *Landmark {
	if s.landmarks == nil || img == nil {
		return nil
	}
	landmark, found, err := s.landmarks.DetectLandmark(ctx, img.Data)
	if err != nil {
		s.logger.Warn("landmark detection failed", "error", err)
		return nil
	}
	if !found {
		return nil
	}
	return &landmark
}

func splitBatch(translated string, originals []string) []string {
	parts := strings.Split(translated, strings.TrimSpace(BatchSeparator))
	out := make([]string, len(originals))
	for i, original := range originals {
		if i < len(parts) {
			if part := strings.TrimSpace(parts[i]); part != "" {
				out[i] = part
				continue
			}
		}
		out[i] = original
	}
	return out
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}
