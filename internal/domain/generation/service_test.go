package generation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/rihla/pkg/errors"
	"github.com/yanqian/rihla/pkg/util"
)

type stubInvoker struct {
	text    string
	err     error
	calls   int
	kind    Kind
	spec    ModelCallSpec
	prompts []Prompt
}

func (s *stubInvoker) Invoke(_ context.Context, kind Kind, spec ModelCallSpec, prompt Prompt) (RawModelResponse, error) {
	s.calls++
	s.kind = kind
	s.spec = spec
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return RawModelResponse{}, s.err
	}
	return RawModelResponse{Text: s.text, Model: spec.ModelID}, nil
}

type stubAudit struct {
	entries []AuditEntry
	err     error
}

func (s *stubAudit) Record(ctx context.Context, entry AuditEntry) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.entries = append(s.entries, entry)
	return s.err
}

func (s *stubAudit) Recent(_ context.Context, limit int) ([]AuditEntry, error) {
	if limit > len(s.entries) {
		limit = len(s.entries)
	}
	return s.entries[:limit], s.err
}

type stubArchive struct {
	keys []string
	err  error
}

func (s *stubArchive) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	s.keys = append(s.keys, key)
	return "memory://" + key, s.err
}

type stubLandmarks struct {
	landmark Landmark
	found    bool
	err      error
}

func (s stubLandmarks) DetectLandmark(context.Context, []byte) (Landmark, bool, error) {
	return s.landmark, s.found, s.err
}

func newTestService(invoker ModelInvoker, audit AuditLog) *service {
	return &service{
		cfg:     Config{Models: NewModelTable(nil), MaxImageBytes: 1 << 20, RawPreviewChars: 50, AuditTimeout: time.Second},
		invoker: invoker,
		audit:   audit,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:   util.NewManualClock(time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)),
		newID:   func() string { return "gen-1" },
	}
}

func TestServiceRecognizeHeritageDescription(t *testing.T) {
	invoker := &stubInvoker{text: "```json\n{\"site_name\": \"Dougga\", \"confidence\": 92}\n```"}
	audit := &stubAudit{}
	svc := newTestService(invoker, audit)

	rec, err := svc.RecognizeHeritage(context.Background(), HeritageRequest{Type: HeritageDescription, Value: "Roman capitol on a hill", CountryHint: "Tunisia"})
	require.NoError(t, err)
	require.Equal(t, "Dougga", rec.SiteName)
	require.Equal(t, "Unknown", rec.City)
	require.Equal(t, KindHeritageText, invoker.kind)
	require.Equal(t, "meta-llama/llama-3.2-3b-instruct", invoker.spec.ModelID)

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	require.Equal(t, "gen-1", entry.ID)
	require.Equal(t, "ok", entry.Outcome)
	require.True(t, entry.Extracted)
	require.Empty(t, entry.RawText)
}

func TestServiceRecognizeHeritageUnidentified(t *testing.T) {
	invoker := &stubInvoker{text: "I'm not sure what this is."}
	audit := &stubAudit{}
	svc := newTestService(invoker, audit)

	rec, err := svc.RecognizeHeritage(context.Background(), HeritageRequest{Type: HeritageImageURL, Value: "https://example.com/ruin.jpg"})
	require.NoError(t, err)
	require.Equal(t, NotIdentifiedSiteName, rec.SiteName)
	require.Equal(t, 40, rec.Confidence)
	require.Equal(t, []string{}, rec.FunFacts)
	require.Equal(t, KindHeritageImage, invoker.kind)
	require.Equal(t, "https://example.com/ruin.jpg", invoker.prompts[0].Image.URL)

	require.False(t, audit.entries[0].Extracted)
	require.Equal(t, "I'm not sure what this is.", audit.entries[0].RawText)
}

func TestServiceRecognizeHeritageUpload(t *testing.T) {
	invoker := &stubInvoker{text: `{"site_name": "Amphitheatre of El Jem"}`}
	archive := &stubArchive{}
	svc := newTestService(invoker, &stubAudit{})
	svc.archive = archive
	svc.landmarks = stubLandmarks{landmark: Landmark{Name: "El Jem", Score: 0.9}, found: true}

	rec, err := svc.RecognizeHeritage(context.Background(), HeritageRequest{Image: &ImageUpload{Data: pngHeader}})
	require.NoError(t, err)
	require.Equal(t, "Amphitheatre of El Jem", rec.SiteName)
	require.Equal(t, []string{"heritage/2025/03/14/gen-1.png"}, archive.keys)
	require.Contains(t, invoker.prompts[0].User, "A landmark detector suggests: El Jem")
	require.True(t, strings.HasPrefix(invoker.prompts[0].Image.URL, "data:image/png;base64,"))
}

func TestServiceUploadSideEffectsAreBestEffort(t *testing.T) {
	invoker := &stubInvoker{text: `{"site_name": "Carthage"}`}
	svc := newTestService(invoker, &stubAudit{})
	svc.archive = &stubArchive{err: errors.New("bucket offline")}
	svc.landmarks = stubLandmarks{err: errors.New("quota")}

	rec, err := svc.RecognizeHeritage(context.Background(), HeritageRequest{Image: &ImageUpload{Data: pngHeader}})
	require.NoError(t, err)
	require.Equal(t, "Carthage", rec.SiteName)
	require.NotContains(t, invoker.prompts[0].User, "landmark detector")
}

func TestServiceGenerateItinerary(t *testing.T) {
	invoker := &stubInvoker{text: `Here you go: {"title": "Tunisia", "days": [{"day": 1, "title": "Tunis", "destinations": "Medina"}]}`}
	svc := newTestService(invoker, nil)

	it, err := svc.GenerateItinerary(context.Background(), ItineraryRequest{Country: "Tunisia", Days: 1})
	require.NoError(t, err)
	require.Equal(t, "Tunisia", it.Title)
	require.Equal(t, []Destination{}, it.Days[0].Destinations)
	require.Equal(t, 3000, invoker.spec.MaxOutputTokens)
}

func TestServiceRejectsInvalidInputBeforeCallingModel(t *testing.T) {
	invoker := &stubInvoker{}
	svc := newTestService(invoker, nil)

	_, err := svc.GenerateItinerary(context.Background(), ItineraryRequest{Country: ""})
	require.Equal(t, CodeInvalidInput, apperrors.CodeOf(err))
	_, err = svc.SustainabilityInsights(context.Background(), SustainabilityRequest{Name: "Djerba", Country: "Tunisia", Month: "Summer"})
	require.Equal(t, CodeInvalidInput, apperrors.CodeOf(err))
	require.Zero(t, invoker.calls)
}

func TestServicePropagatesGatewayErrors(t *testing.T) {
	invoker := &stubInvoker{err: Classify(&StatusError{StatusCode: 429})}
	audit := &stubAudit{}
	svc := newTestService(invoker, audit)

	_, err := svc.SustainabilityInsights(context.Background(), SustainabilityRequest{Name: "Djerba", Country: "Tunisia", Month: "Aug"})
	require.Equal(t, CodeRateLimited, apperrors.CodeOf(err))
	require.Equal(t, CodeRateLimited, audit.entries[0].Outcome)
}

func TestServiceAuditFailureDoesNotFailRequest(t *testing.T) {
	invoker := &stubInvoker{text: `{"crowd_forecast": "low"}`}
	svc := newTestService(invoker, &stubAudit{err: errors.New("db down")})

	ins, err := svc.SustainabilityInsights(context.Background(), SustainabilityRequest{Name: "Djerba", Country: "Tunisia", Month: "Jan"})
	require.NoError(t, err)
	require.Equal(t, "low", ins.CrowdForecast)
}

func TestServiceTranslateEmptyTextSkipsModel(t *testing.T) {
	invoker := &stubInvoker{}
	svc := newTestService(invoker, nil)

	res, err := svc.Translate(context.Background(), TranslationRequest{Text: "   ", TargetLang: LanguageFrench})
	require.NoError(t, err)
	require.Equal(t, "   ", res.TranslatedText)
	require.Zero(t, invoker.calls)
}

func TestServiceTranslatePlainReply(t *testing.T) {
	invoker := &stubInvoker{text: "Bonjour"}
	svc := newTestService(invoker, nil)

	res, err := svc.Translate(context.Background(), TranslationRequest{Text: "Hello", TargetLang: LanguageFrench, SourceLang: LanguageEnglish})
	require.NoError(t, err)
	require.Equal(t, "Bonjour", res.TranslatedText)
	require.Equal(t, "en", res.DetectedLanguage)
}

func TestServiceTranslateBatch(t *testing.T) {
	invoker := &stubInvoker{text: `{"translatedText": "Bonjour\n---SEPARATOR---\nMerci"}`}
	svc := newTestService(invoker, nil)

	out, err := svc.TranslateBatch(context.Background(), TranslationBatchRequest{Texts: []string{"Hello", "Thanks", "Goodbye"}, TargetLang: LanguageFrench})
	require.NoError(t, err)
	require.Equal(t, []string{"Bonjour", "Merci", "Goodbye"}, out)
	require.Equal(t, 1, invoker.calls)
	require.Contains(t, invoker.prompts[0].User, "---SEPARATOR---")
}

func TestServiceTranslateBatchEmpty(t *testing.T) {
	invoker := &stubInvoker{}
	svc := newTestService(invoker, nil)

	out, err := svc.TranslateBatch(context.Background(), TranslationBatchRequest{TargetLang: LanguageFrench})
	require.NoError(t, err)
	require.Equal(t, []string{}, out)
	require.Zero(t, invoker.calls)
}

func TestServiceRecentGenerations(t *testing.T) {
	svc := newTestService(&stubInvoker{}, nil)
	entries, err := svc.RecentGenerations(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, []AuditEntry{}, entries)

	audit := &stubAudit{entries: []AuditEntry{{ID: "a"}, {ID: "b"}}}
	svc.audit = audit
	entries, err = svc.RecentGenerations(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestServiceChatReturnsFreeText(t *testing.T) {
	reply := "Head to **Sidi Bou Said** at sunset.\n\nTry a `bambalouni` on the way: {not json}"
	invoker := &stubInvoker{text: "  " + reply + "\n"}
	audit := &stubAudit{}
	svc := newTestService(invoker, audit)

	got, err := svc.Chat(context.Background(), ChatRequest{
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "Best sunset spot near Tunis?"}},
		Context:  &ChatContext{Country: "Tunisia"},
	})
	require.NoError(t, err)
	require.Equal(t, ChatReply{Message: reply}, got)
	require.Equal(t, KindChat, invoker.kind)
	require.Equal(t, 900, invoker.spec.MaxOutputTokens)
	require.Equal(t, "Best sunset spot near Tunis?", invoker.prompts[0].User)

	require.Len(t, audit.entries, 1)
	require.Equal(t, KindChat, audit.entries[0].Kind)
	require.Equal(t, "ok", audit.entries[0].Outcome)
	require.Empty(t, audit.entries[0].RawText)
}

func TestServiceChatEmptyReplyIsProviderUnavailable(t *testing.T) {
	invoker := &stubInvoker{text: " \n "}
	audit := &stubAudit{}
	svc := newTestService(invoker, audit)

	_, err := svc.Chat(context.Background(), ChatRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "Hello?"}}})
	require.Error(t, err)
	require.Equal(t, CodeProviderUnavailable, apperrors.CodeOf(err))
	require.Equal(t, CodeProviderUnavailable, audit.entries[0].Outcome)
}

func TestServiceChatRejectsAssistantLastTurn(t *testing.T) {
	invoker := &stubInvoker{text: "ignored"}
	svc := newTestService(invoker, nil)

	_, err := svc.Chat(context.Background(), ChatRequest{Messages: []ChatMessage{{Role: ChatRoleAssistant, Content: "Marhba!"}}})
	require.Equal(t, CodeInvalidInput, apperrors.CodeOf(err))
	require.Zero(t, invoker.calls)
}
