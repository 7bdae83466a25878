package enrichment

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yanqian/rihla/internal/domain/generation"
	apperrors "github.com/yanqian/rihla/pkg/errors"
)

const (
	defaultMaxResults       = 2
	maxResultsLimit         = 50
	defaultBatchConcurrency = 2
)

// VideoSearcher queries an external video catalogue.
type VideoSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]generation.Video, error)
}

// VideoCache memoizes search results. Errors returned by fetch are never stored.
type VideoCache interface {
	GetOrFetch(ctx context.Context, key string, fetch func(context.Context) ([]generation.Video, error)) ([]generation.Video, error)
}

// Config controls video enrichment.
type Config struct {
	MaxResults       int
	BatchConcurrency int
}

// Service attaches short videos to itinerary stops.
type Service interface {
	Search(ctx context.Context, query string, maxResults int) ([]generation.Video, error)
	EnrichItinerary(ctx context.Context, it generation.Itinerary, country string) generation.Itinerary
}

type service struct {
	cfg      Config
	searcher VideoSearcher
	cache    VideoCache
	logger   *slog.Logger
}

// NewService constructs the enrichment service.
func NewService(cfg Config, searcher VideoSearcher, cache VideoCache, logger *slog.Logger) Service {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = defaultBatchConcurrency
	}
	return &service{
		cfg:      cfg,
		searcher: searcher,
		cache:    cache,
		logger:   logger.With("component", "enrichment.service"),
	}
}

// Search returns cached or fresh results. Upstream failures degrade to an
// empty list; only a blank query is an error.
func (s *service) Search(ctx context.Context, query string, maxResults int) ([]generation.Video, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.Wrap(generation.CodeInvalidInput, "query parameter q is required", nil)
	}
	if maxResults <= 0 {
		maxResults = s.cfg.MaxResults
	}
	if maxResults > maxResultsLimit {
		maxResults = maxResultsLimit
	}

	videos, err := s.cache.GetOrFetch(ctx, CacheKey(query, maxResults), func(ctx context.Context) ([]generation.Video, error) {
		return s.searcher.Search(ctx, query, maxResults)
	})
	if err != nil {
		s.logger.Warn("video search failed", "query", query, "error", err)
		return []generation.Video{}, nil
	}
	if videos == nil {
		videos = []generation.Video{}
	}
	return videos, nil
}

// EnrichItinerary returns a copy of it with videos on every destination.
// A failed lookup leaves that destination with an empty list.
func (s *service) EnrichItinerary(ctx context.Context, it generation.Itinerary, country string) generation.Itinerary {
	days := make([]generation.ItineraryDay, len(it.Days))
	for i, day := range it.Days {
		day.Destinations = append([]generation.Destination(nil), day.Destinations...)
		if day.Destinations == nil {
			day.Destinations = []generation.Destination{}
		}
		days[i] = day
	}
	it.Days = days

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchConcurrency)
	for i := range it.Days {
		for j := range it.Days[i].Destinations {
			dest := &it.Days[i].Destinations[j]
			g.Go(func() error {
				query := DestinationQuery(dest.Name, country, dest.Activity)
				videos, err := s.Search(gctx, query, s.cfg.MaxResults)
				if err != nil {
					videos = []generation.Video{}
				}
				dest.Videos = videos
				return nil
			})
		}
	}
	_ = g.Wait()
	return it
}
