package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/rihla/internal/domain/enrichment"
	"github.com/yanqian/rihla/internal/domain/generation"
)

const defaultDiagnosticsLimit = 20

// Handler wires the HTTP transport to domain services.
type Handler struct {
	generationSvc generation.Service
	enrichmentSvc enrichment.Service
	maxImageBytes int64
	logger        *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(generationSvc generation.Service, enrichmentSvc enrichment.Service, maxImageBytes int64, logger *slog.Logger) *Handler {
	return &Handler{
		generationSvc: generationSvc,
		enrichmentSvc: enrichmentSvc,
		maxImageBytes: maxImageBytes,
		logger:        logger.With("component", "http.handler"),
	}
}

// GenerateItinerary plans a trip and optionally attaches videos to each stop.
func (h *Handler) GenerateItinerary(c *gin.Context) {
	var req generation.ItineraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidRequest("request body must be a valid itinerary request", err))
		return
	}

	it, err := h.generationSvc.GenerateItinerary(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	if req.IncludeVideos && h.enrichmentSvc != nil {
		it = h.enrichmentSvc.EnrichItinerary(c.Request.Context(), it, req.Country)
	}

	c.JSON(http.StatusOK, it)
}

// SustainabilityInsights returns crowd and environmental guidance for a month.
func (h *Handler) SustainabilityInsights(c *gin.Context) {
	var req generation.SustainabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidRequest("request body must be a valid sustainability request", err))
		return
	}

	resp, err := h.generationSvc.SustainabilityInsights(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Translate handles a single text.
func (h *Handler) Translate(c *gin.Context) {
	var req generation.TranslationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidRequest("request body must be a valid translation request", err))
		return
	}

	resp, err := h.generationSvc.Translate(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// TranslateBatch translates several texts in one model call.
func (h *Handler) TranslateBatch(c *gin.Context) {
	var req generation.TranslationBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidRequest("request body must be a valid batch translation request", err))
		return
	}

	translations, err := h.generationSvc.TranslateBatch(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"translations": translations})
}

// Chat answers a travel question with the conversation so far.
func (h *Handler) Chat(c *gin.Context) {
	var req generation.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidRequest("request body must be a valid chat request", err))
		return
	}

	reply, err := h.generationSvc.Chat(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.JSON(http.StatusOK, reply)
}

// SearchVideos looks up short travel clips. Upstream trouble yields an empty list.
func (h *Handler) SearchVideos(c *gin.Context) {
	maxResults, ok := queryInt(c, "maxResults")
	if !ok {
		return
	}
	if h.enrichmentSvc == nil {
		c.JSON(http.StatusOK, gin.H{"videos": []generation.Video{}})
		return
	}

	videos, err := h.enrichmentSvc.Search(c.Request.Context(), c.Query("q"), maxResults)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// RecentGenerations lists the latest audit entries.
func (h *Handler) RecentGenerations(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	if limit == 0 {
		limit = defaultDiagnosticsLimit
	}

	entries, err := h.generationSvc.RecentGenerations(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": entries})
}

// queryInt parses an optional positive integer query parameter. A missing
// value yields 0.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		abortWithError(c, invalidRequest(name+" must be a positive integer", err))
		return 0, false
	}
	return v, true
}
