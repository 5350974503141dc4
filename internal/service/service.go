// Package service is the façade the web application talks to. It owns input
// validation, rate limiting, prompt assembly, provider selection, and
// response post-processing for every AI operation.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/toolfinder/ai-service/internal/alert"
	"github.com/toolfinder/ai-service/internal/cache"
	"github.com/toolfinder/ai-service/internal/circuitbreaker"
	"github.com/toolfinder/ai-service/internal/config"
	"github.com/toolfinder/ai-service/internal/domain"
	"github.com/toolfinder/ai-service/internal/executor"
	"github.com/toolfinder/ai-service/internal/metrics"
	"github.com/toolfinder/ai-service/internal/prompt"
	"github.com/toolfinder/ai-service/internal/ratelimit"
	"github.com/toolfinder/ai-service/internal/telemetry"
	"github.com/toolfinder/ai-service/internal/usage"
)

// Operation names used in metrics, usage records, and cache keys.
const (
	OpChat        = "chat"
	OpSuggestions = "suggestions"
	OpDescription = "description"
	OpToolPrompt  = "tool_prompt"
	OpName        = "name"
	OpWelcome     = "welcome"
)

const (
	generateTimeout    = 15 * time.Second
	generateMaxRetries = 2
)

// Deps collects the collaborators a Service needs. Primary is required;
// everything else degrades gracefully when nil.
type Deps struct {
	Config   *config.Config
	Limiter  ratelimit.Limiter
	Primary  executor.Provider
	Fallback executor.Provider
	Breaker  *circuitbreaker.Breaker
	Cache    cache.Cache
	Tracker  usage.Tracker
	Alerts   alert.Notifier
	Logger   *slog.Logger
}

type Service struct {
	cfg      *config.Config
	limiter  ratelimit.Limiter
	primary  executor.Provider
	fallback executor.Provider
	breaker  *circuitbreaker.Breaker
	cache    cache.Cache
	tracker  usage.Tracker
	alerts   alert.Notifier
	calc     *usage.Calculator
	logger   *slog.Logger
}

// New validates configuration and assembles the façade. A missing API key is
// a configuration error and fails fast rather than surfacing on the first
// request.
func New(deps Deps) (*Service, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Config.APIKey == "" {
		return nil, domain.NewServiceError(
			"provider API key is not configured",
			domain.CodeMissingAPIKey,
			http.StatusInternalServerError,
			false,
		)
	}
	if deps.Primary == nil {
		return nil, fmt.Errorf("primary provider is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.NewSlidingWindow(deps.Config.RateLimitMax, deps.Config.RateLimitWindow)
	}

	return &Service{
		cfg:      deps.Config,
		limiter:  limiter,
		primary:  deps.Primary,
		fallback: deps.Fallback,
		breaker:  deps.Breaker,
		cache:    deps.Cache,
		tracker:  deps.Tracker,
		alerts:   deps.Alerts,
		calc:     usage.NewCalculator(),
		logger:   logger,
	}, nil
}

// ChatOptions parameterizes one chat turn.
type ChatOptions struct {
	ToolName   string
	ToolPrompt string
	History    []domain.Message
	MaxRetries int
	Timeout    time.Duration
	Config     *prompt.Overrides
}

// Chat produces the assistant's reply for one user message in a conversation
// with a directory tool. This is the user-facing critical path, so every
// failure propagates to the caller.
func (s *Service) Chat(ctx context.Context, input string, opts ChatOptions) (*domain.AIResponse, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, domain.NewServiceError("message must not be empty", domain.CodeInvalidInput, http.StatusBadRequest, false)
	}
	if len(trimmed) > prompt.MaxInputLength {
		return nil, domain.NewServiceError(
			fmt.Sprintf("message exceeds %d characters", prompt.MaxInputLength),
			domain.CodeInputTooLong, http.StatusBadRequest, false,
		)
	}
	if opts.ToolName == "" || opts.ToolPrompt == "" {
		return nil, domain.NewServiceError("tool name and tool prompt are required", domain.CodeInvalidInput, http.StatusBadRequest, false)
	}

	if err := s.checkRateLimit(ctx, OpChat); err != nil {
		return nil, err
	}

	systemPrompt := prompt.Build(prompt.QuickToolTemplate, map[string]string{
		"tool_name":   opts.ToolName,
		"tool_prompt": opts.ToolPrompt,
	})
	history := prompt.PrepareHistory(opts.History, prompt.DefaultMaxMessages, prompt.DefaultMaxTokens)
	cfg := prompt.ConfigFor(domain.TaskFactual, s.cfg.ModelFor(s.cfg.FactualModel), opts.Config)
	req := prompt.BuildChatRequest(systemPrompt, history, input, cfg)

	return s.complete(ctx, OpChat, req, executor.Options{
		MaxRetries: opts.MaxRetries,
		Timeout:    opts.Timeout,
	})
}

// checkRateLimit consults the shared limiter and converts a denial into the
// retryable rate-limit error with a human-readable wait estimate.
func (s *Service) checkRateLimit(ctx context.Context, operation string) error {
	allowed, err := s.limiter.Allow(ctx)
	if err != nil {
		// A broken limiter backend must not take the service down.
		s.logger.Warn("rate limiter unavailable, allowing request", "operation", operation, "error", err)
		return nil
	}
	if allowed {
		return nil
	}

	metrics.RecordRateLimitHit(operation)
	s.notify(ctx, alert.Event{
		Type:    alert.EventRateLimited,
		Message: fmt.Sprintf("%s operation denied by the local rate limiter", operation),
		Data:    map[string]any{"operation": operation},
	})

	wait, _ := s.limiter.ResetAfter(ctx)
	seconds := int(wait.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	return domain.NewServiceError(
		fmt.Sprintf("too many requests, try again in about %d seconds", seconds),
		domain.CodeRateLimitExceeded,
		http.StatusTooManyRequests,
		true,
	)
}

// complete routes one prepared request to a provider and records the outcome.
// The primary provider is guarded by the circuit breaker; while the circuit
// is open requests go to the fallback provider instead of failing.
func (s *Service) complete(ctx context.Context, operation string, req domain.ChatRequest, opts executor.Options) (*domain.AIResponse, error) {
	provider := s.primary
	if s.breaker != nil && s.breaker.Allow() != nil {
		if s.fallback == nil {
			return nil, domain.NewServiceError(
				"model provider temporarily unavailable",
				domain.CodeServiceUnavailable,
				http.StatusServiceUnavailable,
				true,
			)
		}
		provider = s.fallback
		metrics.RecordFallback(operation, "provider")
		s.logger.Warn("primary circuit open, using fallback provider",
			"operation", operation,
			"provider", provider.ID(),
		)
	}

	requestID := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, "service."+operation)
	defer span.End()
	telemetry.AddRequestAttributes(span, operation, provider.ID(), req.Model, requestID)

	start := time.Now()
	resp, err := executor.Execute(ctx, provider, req, opts)
	elapsed := time.Since(start)

	if provider == s.primary && s.breaker != nil {
		if err != nil {
			s.breaker.RecordFailure()
		} else {
			s.breaker.RecordSuccess()
		}
	}

	status := "success"
	if err != nil {
		status = "error"
		telemetry.AddErrorAttribute(span, err)
	}
	metrics.RecordRequest(operation, provider.ID(), status, elapsed.Seconds())

	if resp != nil && resp.Usage != nil {
		metrics.RecordTokens(operation, provider.ID(), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		telemetry.AddTokenAttributes(span, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	s.recordUsage(ctx, requestID, operation, provider.ID(), req.Model, resp, status, elapsed)

	if err != nil {
		se := domain.AsServiceError(err)
		if se != nil && se.Code == domain.CodeMaxRetriesExceeded {
			s.notify(ctx, alert.Event{
				Type:     alert.EventRetriesExhausted,
				Provider: provider.ID(),
				Message:  fmt.Sprintf("%s operation exhausted its retry budget", operation),
				Data:     map[string]any{"request_id": requestID},
			})
		}
		return nil, err
	}

	return resp, nil
}

func (s *Service) recordUsage(ctx context.Context, requestID, operation, provider, model string, resp *domain.AIResponse, status string, elapsed time.Duration) {
	if s.tracker == nil {
		return
	}

	record := usage.Record{
		RequestID: requestID,
		Operation: operation,
		Provider:  provider,
		Model:     model,
		LatencyMs: elapsed.Milliseconds(),
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if resp != nil && resp.Usage != nil {
		record.PromptTokens = resp.Usage.PromptTokens
		record.CompletionTokens = resp.Usage.CompletionTokens
		record.CostUSD = s.calc.Calculate(model, resp.Usage)
	}

	if err := s.tracker.Record(ctx, record); err != nil {
		s.logger.Warn("usage record failed", "operation", operation, "error", err)
	}
}

func (s *Service) notify(ctx context.Context, event alert.Event) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Send(ctx, event); err != nil {
		s.logger.Warn("alert send failed", "type", event.Type, "error", err)
	}
}
