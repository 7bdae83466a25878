package enrichment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/rihla/internal/domain/generation"
	apperrors "github.com/yanqian/rihla/pkg/errors"
)

type stubSearcher struct {
	mu      sync.Mutex
	queries []string
	fail    string
}

func (s *stubSearcher) Search(_ context.Context, query string, maxResults int) ([]generation.Video, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.fail != "" && strings.Contains(query, s.fail) {
		return nil, errors.New("quota exceeded")
	}
	videos := make([]generation.Video, 0, maxResults)
	for i := 0; i < maxResults; i++ {
		videos = append(videos, generation.Video{ID: query, Title: query})
	}
	return videos, nil
}

type passthroughCache struct {
	mu   sync.Mutex
	keys []string
}

func (c *passthroughCache) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) ([]generation.Video, error)) ([]generation.Video, error) {
	c.mu.Lock()
	c.keys = append(c.keys, key)
	c.mu.Unlock()
	return fetch(ctx)
}

func newTestService(searcher VideoSearcher, cache VideoCache) Service {
	return NewService(Config{}, searcher, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSearchUsesCacheKey(t *testing.T) {
	cache := &passthroughCache{}
	svc := newTestService(&stubSearcher{}, cache)

	videos, err := svc.Search(context.Background(), "Carthage ruins", 0)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	require.Equal(t, []string{"carthage ruins-2"}, cache.keys)
}

func TestSearchRejectsBlankQuery(t *testing.T) {
	svc := newTestService(&stubSearcher{}, &passthroughCache{})

	_, err := svc.Search(context.Background(), "  ", 2)
	require.Equal(t, generation.CodeInvalidInput, apperrors.CodeOf(err))
}

func TestSearchDegradesToEmpty(t *testing.T) {
	svc := newTestService(&stubSearcher{fail: "Kairouan"}, &passthroughCache{})

	videos, err := svc.Search(context.Background(), "Kairouan", 2)
	require.NoError(t, err)
	require.Equal(t, []generation.Video{}, videos)
}

func TestEnrichItinerary(t *testing.T) {
	searcher := &stubSearcher{fail: "Kairouan"}
	svc := newTestService(searcher, &passthroughCache{})
	original := generation.Itinerary{
		Days: []generation.ItineraryDay{
			{Day: 1, Destinations: []generation.Destination{{Name: "Bardo Museum", Activity: "museum visit"}, {Name: "Kairouan"}}},
			{Day: 2, Destinations: []generation.Destination{{Name: "Djerba", Activity: "beach day"}}},
		},
	}

	enriched := svc.EnrichItinerary(context.Background(), original, "Tunisia")

	require.Len(t, enriched.Days[0].Destinations[0].Videos, 2)
	require.Equal(t, "Bardo Museum Tunisia museum tour", enriched.Days[0].Destinations[0].Videos[0].ID)
	require.Equal(t, []generation.Video{}, enriched.Days[0].Destinations[1].Videos)
	require.Len(t, enriched.Days[1].Destinations[0].Videos, 2)
	require.Nil(t, original.Days[0].Destinations[0].Videos)
	require.Len(t, searcher.queries, 3)
}
