package generation

import "time"

// Config holds runtime knobs for the generation service.
type Config struct {
	Models        ModelTable
	MaxImageBytes int64
	// RawPreviewChars bounds the raw payload preview logged when extraction fails.
	RawPreviewChars int
	AuditTimeout    time.Duration
}
