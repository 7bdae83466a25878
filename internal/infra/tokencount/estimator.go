package tokencount

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/yanqian/rihla/internal/domain/generation"
)

const defaultEncoding = "cl100k_base"

// Estimator counts tokens with a tiktoken encoding. The encoding is loaded
// lazily; when it cannot be loaded a rune based heuristic is used instead.
type Estimator struct {
	load   func() (*tiktoken.Tiktoken, error)
	logger *slog.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewEstimator builds an estimator for the cl100k_base encoding.
func NewEstimator(logger *slog.Logger) *Estimator {
	return &Estimator{
		load:   func() (*tiktoken.Tiktoken, error) { return tiktoken.GetEncoding(defaultEncoding) },
		logger: logger.With("component", "tokencount.estimator"),
	}
}

// Count implements generation.TokenCounter.
func (e *Estimator) Count(text string) int {
	if text == "" {
		return 0
	}
	e.once.Do(func() {
		enc, err := e.load()
		if err != nil {
			e.logger.Warn("tiktoken encoding unavailable, using heuristic", "encoding", defaultEncoding, "error", err)
			return
		}
		e.enc = enc
	})
	if e.enc == nil {
		return heuristic(text)
	}
	return len(e.enc.Encode(text, nil, nil))
}

// heuristic assumes roughly four characters per token.
func heuristic(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

var _ generation.TokenCounter = (*Estimator)(nil)
