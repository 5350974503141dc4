// Package executor performs one logical completion call with bounded total
// latency: per-attempt timeout, exponential backoff between retries, and
// conversion of exhausted budgets into a terminal error.
package executor

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/toolfinder/ai-service/internal/domain"
	"github.com/toolfinder/ai-service/internal/metrics"
)

const (
	DefaultMaxRetries = 3
	DefaultTimeout    = 30 * time.Second

	backoffInitial = time.Second
	backoffMax     = 5 * time.Second
)

// Provider performs a single completion attempt. Implementations classify
// their own failures as *domain.ServiceError; anything else is treated as a
// transient transport failure.
type Provider interface {
	ID() string
	Complete(ctx context.Context, req domain.ChatRequest) (*domain.AIResponse, error)
}

// Options bounds one Execute call. Zero values take the defaults.
type Options struct {
	MaxRetries int
	Timeout    time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = backoffInitial
	b.Multiplier = 2
	b.MaxInterval = backoffMax
	b.RandomizationFactor = 0
	return b
}

// Execute runs req against p with up to opts.MaxRetries retries after the
// first attempt. Each attempt gets its own deadline; retries are strictly
// sequential, never speculative. A non-retryable error propagates
// immediately. When the budget is exhausted the last error is wrapped in
// MAX_RETRIES_EXCEEDED.
func Execute(ctx context.Context, p Provider, req domain.ChatRequest, opts Options) (*domain.AIResponse, error) {
	opts = opts.withDefaults()
	bo := newBackOff()

	var lastErr *domain.ServiceError

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.RecordRetry(p.ID())
		}

		attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		resp, err := p.Complete(attemptCtx, req)
		cancel()

		if err == nil {
			return resp, nil
		}

		se := domain.AsServiceError(err)
		if se == nil {
			se = &domain.ServiceError{
				Message:    "request failed",
				Code:       domain.CodeUnknownError,
				StatusCode: http.StatusInternalServerError,
				Retryable:  true,
				Err:        err,
			}
		}
		lastErr = se
		metrics.RecordProviderError(p.ID(), se.Code)

		// The caller going away ends the loop regardless of classification.
		if ctx.Err() != nil {
			return nil, se
		}

		if !se.Retryable {
			return nil, se
		}

		if attempt == opts.MaxRetries {
			break
		}

		delay := bo.NextBackOff()
		slog.Debug("retrying provider call",
			"provider", p.ID(),
			"attempt", attempt+1,
			"max_retries", opts.MaxRetries,
			"delay", delay,
			"code", se.Code,
		)

		if err := sleep(ctx, delay); err != nil {
			return nil, se
		}
	}

	return nil, &domain.ServiceError{
		Message:    "max retries exceeded: " + lastErr.Message,
		Code:       domain.CodeMaxRetriesExceeded,
		StatusCode: http.StatusInternalServerError,
		Retryable:  false,
		Err:        lastErr,
	}
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
