package generation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"syscall"
	"time"

	"github.com/yanqian/rihla/pkg/metrics"
)

const defaultRetryBackoff = 250 * time.Millisecond

// GatewayConfig tunes retry pacing.
type GatewayConfig struct {
	RetryBackoff time.Duration
}

// Gateway invokes the provider with a hard deadline and bounded retries.
type Gateway struct {
	provider Provider
	counter  TokenCounter
	backoff  time.Duration
	logger   *slog.Logger
}

// NewGateway wires the configured provider. counter may be nil.
func NewGateway(provider Provider, counter TokenCounter, cfg GatewayConfig, logger *slog.Logger) *Gateway {
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	return &Gateway{
		provider: provider,
		counter:  counter,
		backoff:  backoff,
		logger:   logger.With("component", "generation.gateway"),
	}
}

// Invoke performs one logical model call. spec.Timeout bounds every attempt
// together. Only 5xx responses and connection resets are retried.
func (g *Gateway) Invoke(ctx context.Context, kind Kind, spec ModelCallSpec, prompt Prompt) (RawModelResponse, error) {
	start := time.Now()
	defer func() {
		metrics.GatewayLatency.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}()

	callCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 0; attempt <= spec.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.GatewayRetries.WithLabelValues(string(kind)).Inc()
			g.logger.Warn("transient provider failure, retrying", "kind", kind, "model", spec.ModelID, "attempt", attempt, "error", lastErr)
			if err := sleepContext(callCtx, g.backoff<<(attempt-1)); err != nil {
				lastErr = err
				break
			}
		}

		resp, err := g.provider.Complete(callCtx, ProviderCall{Kind: kind, Spec: spec, Prompt: prompt})
		if err == nil {
			resp = g.withUsage(resp, prompt)
			if resp.Model == "" {
				resp.Model = spec.ModelID
			}
			metrics.GatewayCalls.WithLabelValues(string(kind), "ok").Inc()
			metrics.ObserveUsage(string(kind), resp.Usage)
			return resp, nil
		}
		lastErr = err
		if callCtx.Err() != nil || !isTransient(err) {
			break
		}
	}

	if callCtx.Err() != nil && !errors.Is(lastErr, context.DeadlineExceeded) && !errors.Is(lastErr, context.Canceled) {
		lastErr = errors.Join(callCtx.Err(), lastErr)
	}
	classified := Classify(lastErr)
	metrics.GatewayCalls.WithLabelValues(string(kind), ClassOf(classified)).Inc()
	g.logger.Error("model call failed", "kind", kind, "model", spec.ModelID, "code", ClassOf(classified), "error", lastErr)
	return RawModelResponse{}, classified
}

func (g *Gateway) withUsage(resp RawModelResponse, prompt Prompt) RawModelResponse {
	if !resp.Usage.IsZero() {
		resp.Usage = resp.Usage.Normalized()
		return resp
	}
	if g.counter == nil {
		return resp
	}
	promptTokens := g.counter.Count(prompt.System) + g.counter.Count(prompt.User)
	for _, turn := range prompt.History {
		promptTokens += g.counter.Count(turn.Content)
	}
	resp.Usage = metrics.TokenUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: g.counter.Count(resp.Text),
		Estimated:        true,
	}.Normalized()
	return resp
}

func isTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
