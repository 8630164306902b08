package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/pavelanni/skillmeter/internal/metrics"
)

// LoggingProvider is a decorator that logs every LLM request and records
// it in the metrics registry.
type LoggingProvider struct {
	inner Provider
}

// WithLogging wraps a Provider with request logging.
func WithLogging(p Provider) Provider {
	return &LoggingProvider{inner: p}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)
	elapsed := time.Since(start)

	model := l.inner.ModelID()
	var in, out int
	if resp != nil {
		in, out = resp.Usage.InputTokens, resp.Usage.OutputTokens
		if resp.Model != "" {
			model = resp.Model
		}
	}
	metrics.ObserveLLM(purpose, model, elapsed, in, out, err)

	if err != nil {
		slog.Error("llm request failed",
			"purpose", purpose,
			"model", model,
			"latency_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	slog.Info("llm request",
		"purpose", purpose,
		"model", model,
		"latency_ms", elapsed.Milliseconds(),
		"input_tokens", in,
		"output_tokens", out,
	)
	return resp, nil
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
