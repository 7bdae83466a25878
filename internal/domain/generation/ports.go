package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/yanqian/rihla/pkg/metrics"
)

// RawModelResponse is the untouched text returned by a provider.
type RawModelResponse struct {
	Text      string
	Truncated bool
	Model     string
	Usage     metrics.TokenUsage
}

// ProviderCall is everything a provider needs for one attempt.
type ProviderCall struct {
	Kind   Kind
	Spec   ModelCallSpec
	Prompt Prompt
}

// Provider sends a single completion request to an LLM backend.
type Provider interface {
	Complete(ctx context.Context, call ProviderCall) (RawModelResponse, error)
}

// StatusError is returned by providers when the upstream answered with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider request failed: status=%d body=%s", e.StatusCode, e.Body)
}

// TokenCounter estimates token counts when a provider omits usage.
type TokenCounter interface {
	Count(text string) int
}

// AuditEntry is the diagnostics record kept for every generation.
// RawText is only populated when extraction failed.
type AuditEntry struct {
	ID        string             `json:"id"`
	Kind      Kind               `json:"kind"`
	Model     string             `json:"model"`
	Outcome   string             `json:"outcome"`
	Extracted bool               `json:"extracted"`
	Truncated bool               `json:"truncated"`
	RawText   string             `json:"raw_text,omitempty"`
	ImageKey  string             `json:"image_key,omitempty"`
	LatencyMs int64              `json:"latency_ms"`
	Usage     metrics.TokenUsage `json:"usage"`
	CreatedAt time.Time          `json:"created_at"`
}

// AuditLog persists diagnostics entries.
type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry) error
	Recent(ctx context.Context, limit int) ([]AuditEntry, error)
}

// ImageArchive keeps a copy of uploaded photos.
type ImageArchive interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (string, error)
}

// LandmarkDetector looks for a well known landmark in an image.
type LandmarkDetector interface {
	DetectLandmark(ctx context.Context, image []byte) (Landmark, bool, error)
}
