package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/rihla/internal/domain/generation"
	"github.com/yanqian/rihla/internal/infra/config"
	apperrors "github.com/yanqian/rihla/pkg/errors"
)

func TestRouter_GenerateItineraryWithVideos(t *testing.T) {
	gen := &stubGeneration{
		itineraryFn: func(ctx context.Context, req generation.ItineraryRequest) (generation.Itinerary, error) {
			require.Equal(t, "Tunisia", req.Country)
			require.Equal(t, 3, req.Days)
			return generation.Itinerary{
				Title: "Three days in Tunisia",
				Days: []generation.ItineraryDay{{
					Day:          1,
					Destinations: []generation.Destination{{Name: "Sidi Bou Said", Order: 1}},
				}},
			}, nil
		},
	}
	videos := &stubEnrichment{}

	recorder := performRequest(http.MethodPost, "/api/v1/itineraries", `{"country":"Tunisia","days":3,"include_videos":true}`, newRouterUnderTest(t, gen, videos, nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got generation.Itinerary
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "Three days in Tunisia", got.Title)
	require.Len(t, got.Days[0].Destinations[0].Videos, 1)
	require.Equal(t, "Tunisia", videos.enrichedCountry)
}

func TestRouter_GenerateItineraryWithoutVideos(t *testing.T) {
	gen := &stubGeneration{}
	videos := &stubEnrichment{}

	recorder := performRequest(http.MethodPost, "/api/v1/itineraries", `{"country":"Tunisia"}`, newRouterUnderTest(t, gen, videos, nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Empty(t, videos.enrichedCountry)
}

func TestRouter_InvalidJSON(t *testing.T) {
	recorder := performRequest(http.MethodPost, "/api/v1/translations", `{"text":123}`, newRouterUnderTest(t, &stubGeneration{}, nil, nil))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_input", errBody["error"]["code"])
	require.NotEmpty(t, errBody["error"]["message"])
	require.Empty(t, errBody["error"]["details"])
}

func TestRouter_StatusMapping(t *testing.T) {
	cases := []struct {
		code   string
		status int
	}{
		{generation.CodeInvalidInput, http.StatusBadRequest},
		{generation.CodeAuth, http.StatusUnauthorized},
		{generation.CodeRateLimited, http.StatusTooManyRequests},
		{generation.CodeTimeout, http.StatusGatewayTimeout},
		{generation.CodeProviderUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			gen := &stubGeneration{
				sustainabilityFn: func(ctx context.Context, req generation.SustainabilityRequest) (generation.SustainabilityInsights, error) {
					return generation.SustainabilityInsights{}, apperrors.Wrap(tc.code, "friendly message", &generation.StatusError{StatusCode: 500, Body: "upstream secret"})
				},
			}
			recorder := performRequest(http.MethodPost, "/api/v1/sustainability", `{"name":"Djerba","country":"Tunisia","month":"Aug"}`, newRouterUnderTest(t, gen, nil, nil))
			require.Equal(t, tc.status, recorder.Code)

			errBody := decodeErrorBody(t, recorder.Body.Bytes())
			require.Equal(t, tc.code, errBody["error"]["code"])
			require.Equal(t, "friendly message", errBody["error"]["message"])
			require.NotContains(t, recorder.Body.String(), "upstream secret")
		})
	}
}

func TestRouter_UnknownErrorIsInternal(t *testing.T) {
	gen := &stubGeneration{
		translateFn: func(ctx context.Context, req generation.TranslationRequest) (generation.TranslationResult, error) {
			return generation.TranslationResult{}, io.ErrUnexpectedEOF
		},
	}
	recorder := performRequest(http.MethodPost, "/api/v1/translations", `{"text":"hi","targetLang":"fr"}`, newRouterUnderTest(t, gen, nil, nil))
	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	require.Equal(t, "internal_error", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func TestRouter_ExposeErrorDetails(t *testing.T) {
	gen := &stubGeneration{
		translateFn: func(ctx context.Context, req generation.TranslationRequest) (generation.TranslationResult, error) {
			return generation.TranslationResult{}, apperrors.Wrap(generation.CodeTimeout, "too slow", context.DeadlineExceeded)
		},
	}
	server := newRouterUnderTest(t, gen, nil, func(cfg *config.Config) { cfg.HTTP.ExposeErrorDetails = true })

	recorder := performRequest(http.MethodPost, "/api/v1/translations", `{"text":"hi","targetLang":"fr"}`, server)
	require.Equal(t, http.StatusGatewayTimeout, recorder.Code)
	require.Contains(t, decodeErrorBody(t, recorder.Body.Bytes())["error"]["details"], "deadline exceeded")
}

func TestRouter_HeritageRejectsJSONUpload(t *testing.T) {
	recorder := performRequest(http.MethodPost, "/api/v1/heritage", `{"type":"upload","value":"x"}`, newRouterUnderTest(t, &stubGeneration{}, nil, nil))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Equal(t, "invalid_input", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func TestRouter_HeritageDescription(t *testing.T) {
	gen := &stubGeneration{
		heritageFn: func(ctx context.Context, req generation.HeritageRequest) (generation.HeritageRecognition, error) {
			require.Equal(t, generation.HeritageDescription, req.Type)
			require.Nil(t, req.Image)
			return generation.HeritageRecognition{SiteName: "Dougga", Confidence: 92, Identified: true, FunFacts: []string{}, NearbySites: []string{}}, nil
		},
	}
	recorder := performRequest(http.MethodPost, "/api/v1/heritage", `{"type":"description","value":"Roman capitol on a hill"}`, newRouterUnderTest(t, gen, nil, nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got generation.HeritageRecognition
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "Dougga", got.SiteName)
}

func TestRouter_HeritageVisionUpload(t *testing.T) {
	image := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}
	gen := &stubGeneration{
		heritageFn: func(ctx context.Context, req generation.HeritageRequest) (generation.HeritageRecognition, error) {
			require.Equal(t, generation.HeritageUpload, req.Type)
			require.Equal(t, "Tunisia", req.CountryHint)
			require.Equal(t, "What is this?", req.Prompt)
			require.NotNil(t, req.Image)
			require.Equal(t, image, req.Image.Data)
			require.Equal(t, "image/png", req.Image.MimeType)
			require.Equal(t, "site.png", req.Image.Filename)
			return generation.HeritageRecognition{SiteName: "El Jem", Identified: true}, nil
		},
	}
	body, contentType := multipartImage(t, image, map[string]string{"country": "Tunisia", "prompt": "What is this?"})

	recorder := performMultipart("/api/v1/heritage/vision", body, contentType, newRouterUnderTest(t, gen, nil, nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "El Jem")
}

func TestRouter_HeritageVisionRejectsOversizedImage(t *testing.T) {
	gen := &stubGeneration{
		heritageFn: func(ctx context.Context, req generation.HeritageRequest) (generation.HeritageRecognition, error) {
			t.Fatal("service must not be called")
			return generation.HeritageRecognition{}, nil
		},
	}
	body, contentType := multipartImage(t, bytes.Repeat([]byte{1}, 64), nil)
	server := newRouterUnderTestWithLimit(t, gen, 32)

	recorder := performMultipart("/api/v1/heritage/vision", body, contentType, server)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Equal(t, "invalid_input", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func TestRouter_HeritageVisionMissingImage(t *testing.T) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("country", "Tunisia"))
	require.NoError(t, writer.Close())

	recorder := performMultipart("/api/v1/heritage/vision", &buf, writer.FormDataContentType(), newRouterUnderTest(t, &stubGeneration{}, nil, nil))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_TranslateBatch(t *testing.T) {
	gen := &stubGeneration{
		batchFn: func(ctx context.Context, req generation.TranslationBatchRequest) ([]string, error) {
			require.Equal(t, []string{"Hello", "Goodbye"}, req.Texts)
			require.Equal(t, generation.LanguageFrench, req.TargetLang)
			return []string{"Bonjour", "Goodbye"}, nil
		},
	}
	recorder := performRequest(http.MethodPost, "/api/v1/translations/batch", `{"texts":["Hello","Goodbye"],"targetLang":"fr"}`, newRouterUnderTest(t, gen, nil, nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got struct {
		Translations []string `json:"translations"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, []string{"Bonjour", "Goodbye"}, got.Translations)
}

func TestRouter_Chat(t *testing.T) {
	gen := &stubGeneration{
		chatFn: func(ctx context.Context, req generation.ChatRequest) (generation.ChatReply, error) {
			require.Len(t, req.Messages, 3)
			require.Equal(t, generation.ChatRoleAssistant, req.Messages[1].Role)
			require.NotNil(t, req.Context)
			require.Equal(t, "Tunisia", req.Context.Country)
			require.Equal(t, []string{"food"}, req.Context.Interests)
			return generation.ChatReply{Message: "Try **lablabi** in Tunis."}, nil
		},
	}
	body := `{"messages":[{"role":"user","content":"Hi"},{"role":"assistant","content":"Marhba!"},{"role":"user","content":"Breakfast ideas?"}],"context":{"country":"Tunisia","interests":["food"]}}`
	recorder := performRequest(http.MethodPost, "/api/v1/chat", body, newRouterUnderTest(t, gen, nil, nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"message":"Try **lablabi** in Tunis."}`, recorder.Body.String())
}

func TestRouter_ChatProviderFailure(t *testing.T) {
	gen := &stubGeneration{
		chatFn: func(context.Context, generation.ChatRequest) (generation.ChatReply, error) {
			return generation.ChatReply{}, apperrors.Wrap(generation.CodeProviderUnavailable, "the AI provider returned an empty reply", nil)
		},
	}
	recorder := performRequest(http.MethodPost, "/api/v1/chat", `{"messages":[{"role":"user","content":"Hi"}]}`, newRouterUnderTest(t, gen, nil, nil))
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	require.Equal(t, "provider_unavailable", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func TestRouter_SearchVideos(t *testing.T) {
	videos := &stubEnrichment{}
	recorder := performRequest(http.MethodGet, "/api/v1/videos?q=Carthage&maxResults=3", "", newRouterUnderTest(t, &stubGeneration{}, videos, nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "Carthage", videos.query)
	require.Equal(t, 3, videos.maxResults)
	require.Contains(t, recorder.Body.String(), `"videos":[`)
}

func TestRouter_SearchVideosBadMaxResults(t *testing.T) {
	recorder := performRequest(http.MethodGet, "/api/v1/videos?q=Carthage&maxResults=lots", "", newRouterUnderTest(t, &stubGeneration{}, &stubEnrichment{}, nil))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_SearchVideosBlankQuery(t *testing.T) {
	videos := &stubEnrichment{searchErr: apperrors.Wrap(generation.CodeInvalidInput, "query parameter q is required", nil)}
	recorder := performRequest(http.MethodGet, "/api/v1/videos", "", newRouterUnderTest(t, &stubGeneration{}, videos, nil))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_DiagnosticsToggle(t *testing.T) {
	gen := &stubGeneration{
		recentFn: func(ctx context.Context, limit int) ([]generation.AuditEntry, error) {
			require.Equal(t, defaultDiagnosticsLimit, limit)
			return []generation.AuditEntry{{ID: "gen-1", Kind: generation.KindTranslation, Outcome: "ok"}}, nil
		},
	}

	disabled := performRequest(http.MethodGet, "/api/v1/diagnostics/generations", "", newRouterUnderTest(t, gen, nil, nil))
	require.Equal(t, http.StatusNotFound, disabled.Code)

	server := newRouterUnderTest(t, gen, nil, func(cfg *config.Config) { cfg.Diagnostics.Enabled = true })
	enabled := performRequest(http.MethodGet, "/api/v1/diagnostics/generations", "", server)
	require.Equal(t, http.StatusOK, enabled.Code)
	require.Contains(t, enabled.Body.String(), "gen-1")
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	server := newRouterUnderTest(t, &stubGeneration{}, nil, nil)

	health := performRequest(http.MethodGet, "/healthz", "", server)
	require.Equal(t, http.StatusOK, health.Code)
	require.JSONEq(t, `{"status":"ok"}`, health.Body.String())

	metrics := performRequest(http.MethodGet, "/metrics", "", server)
	require.Equal(t, http.StatusOK, metrics.Code)
}

func TestRouter_RequestID(t *testing.T) {
	server := newRouterUnderTest(t, &stubGeneration{}, nil, nil)

	generated := performRequest(http.MethodGet, "/healthz", "", server)
	require.NotEmpty(t, generated.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "trace-42")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, "trace-42", rec.Header().Get(requestIDHeader))
}

func TestRouter_RateLimit(t *testing.T) {
	server := newRouterUnderTest(t, &stubGeneration{}, nil, func(cfg *config.Config) {
		cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	})

	first := performRequest(http.MethodPost, "/api/v1/translations", `{"text":"hi","targetLang":"fr"}`, server)
	require.Equal(t, http.StatusOK, first.Code)

	second := performRequest(http.MethodPost, "/api/v1/translations", `{"text":"hi","targetLang":"fr"}`, server)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.Equal(t, "rate_limited", decodeErrorBody(t, second.Body.Bytes())["error"]["code"])
}

func TestRouter_CORSPreflight(t *testing.T) {
	server := newRouterUnderTest(t, &stubGeneration{}, nil, func(cfg *config.Config) {
		cfg.HTTP.AllowedOrigins = []string{"https://rihla.app"}
	})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/itineraries", nil)
	req.Header.Set("Origin", "https://rihla.app")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://rihla.app", rec.Header().Get("Access-Control-Allow-Origin"))
}

func performRequest(method, path, body string, server *http.Server) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func performMultipart(path string, body io.Reader, contentType string, server *http.Server) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func multipartImage(t *testing.T, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="site.png"`)
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func newRouterUnderTest(t *testing.T, gen generation.Service, videos *stubEnrichment, mutate func(*config.Config)) *http.Server {
	t.Helper()
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
	if mutate != nil {
		mutate(cfg)
	}
	var handler *Handler
	if videos != nil {
		handler = NewHandler(gen, videos, 10<<20, newTestLogger())
	} else {
		handler = NewHandler(gen, nil, 10<<20, newTestLogger())
	}
	return NewRouter(cfg, handler)
}

func newRouterUnderTestWithLimit(t *testing.T, gen generation.Service, maxImageBytes int64) *http.Server {
	t.Helper()
	cfg := &config.Config{HTTP: config.HTTPConfig{Address: ":0"}}
	return NewRouter(cfg, NewHandler(gen, nil, maxImageBytes, newTestLogger()))
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubGeneration struct {
	itineraryFn      func(ctx context.Context, req generation.ItineraryRequest) (generation.Itinerary, error)
	heritageFn       func(ctx context.Context, req generation.HeritageRequest) (generation.HeritageRecognition, error)
	sustainabilityFn func(ctx context.Context, req generation.SustainabilityRequest) (generation.SustainabilityInsights, error)
	translateFn      func(ctx context.Context, req generation.TranslationRequest) (generation.TranslationResult, error)
	batchFn          func(ctx context.Context, req generation.TranslationBatchRequest) ([]string, error)
	recentFn         func(ctx context.Context, limit int) ([]generation.AuditEntry, error)
	chatFn           func(ctx context.Context, req generation.ChatRequest) (generation.ChatReply, error)
}

func (s *stubGeneration) GenerateItinerary(ctx context.Context, req generation.ItineraryRequest) (generation.Itinerary, error) {
	if s.itineraryFn != nil {
		return s.itineraryFn(ctx, req)
	}
	return generation.Itinerary{Days: []generation.ItineraryDay{}}, nil
}

func (s *stubGeneration) RecognizeHeritage(ctx context.Context, req generation.HeritageRequest) (generation.HeritageRecognition, error) {
	if s.heritageFn != nil {
		return s.heritageFn(ctx, req)
	}
	return generation.HeritageRecognition{}, nil
}

func (s *stubGeneration) SustainabilityInsights(ctx context.Context, req generation.SustainabilityRequest) (generation.SustainabilityInsights, error) {
	if s.sustainabilityFn != nil {
		return s.sustainabilityFn(ctx, req)
	}
	return generation.SustainabilityInsights{}, nil
}

func (s *stubGeneration) Translate(ctx context.Context, req generation.TranslationRequest) (generation.TranslationResult, error) {
	if s.translateFn != nil {
		return s.translateFn(ctx, req)
	}
	return generation.TranslationResult{TranslatedText: req.Text}, nil
}

func (s *stubGeneration) TranslateBatch(ctx context.Context, req generation.TranslationBatchRequest) ([]string, error) {
	if s.batchFn != nil {
		return s.batchFn(ctx, req)
	}
	return req.Texts, nil
}

func (s *stubGeneration) Chat(ctx context.Context, req generation.ChatRequest) (generation.ChatReply, error) {
	if s.chatFn != nil {
		return s.chatFn(ctx, req)
	}
	return generation.ChatReply{Message: "Marhba!"}, nil
}

func (s *stubGeneration) RecentGenerations(ctx context.Context, limit int) ([]generation.AuditEntry, error) {
	if s.recentFn != nil {
		return s.recentFn(ctx, limit)
	}
	return []generation.AuditEntry{}, nil
}

type stubEnrichment struct {
	query           string
	maxResults      int
	searchErr       error
	enrichedCountry string
}

func (s *stubEnrichment) Search(ctx context.Context, query string, maxResults int) ([]generation.Video, error) {
	s.query = query
	s.maxResults = maxResults
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return []generation.Video{{ID: "v1", Title: query}}, nil
}

func (s *stubEnrichment) EnrichItinerary(ctx context.Context, it generation.Itinerary, country string) generation.Itinerary {
	s.enrichedCountry = country
	for d := range it.Days {
		for i := range it.Days[d].Destinations {
			it.Days[d].Destinations[i].Videos = []generation.Video{{ID: "v-" + it.Days[d].Destinations[i].Name}}
		}
	}
	return it
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
