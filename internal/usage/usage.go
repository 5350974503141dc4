// Package usage records per-operation token consumption and cost. Records
// feed the directory's (external) analytics pipeline; sinks are best-effort
// and never fail the calling operation.
package usage

import (
	"context"
	"sync"
	"time"

	"github.com/toolfinder/ai-service/internal/domain"
)

// Record captures one completed AI operation.
type Record struct {
	RequestID        string    `json:"request_id"`
	Operation        string    `json:"operation"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	LatencyMs        int64     `json:"latency_ms"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// Tracker is the interface for usage sinks.
type Tracker interface {
	Record(ctx context.Context, record Record) error
}

// ModelPricing is the per-1K-token price for one model.
type ModelPricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

var defaultPricing = map[string]ModelPricing{
	"openai/gpt-4o":                     {InputPer1K: 0.0025, OutputPer1K: 0.01},
	"openai/gpt-4o-mini":                {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	"anthropic/claude-3.5-sonnet":       {InputPer1K: 0.003, OutputPer1K: 0.015},
	"anthropic/claude-3.5-haiku":        {InputPer1K: 0.0008, OutputPer1K: 0.004},
	"meta-llama/llama-3.1-70b-instruct": {InputPer1K: 0.00059, OutputPer1K: 0.00079},

	"anthropic.claude-3-haiku-20240307-v1:0":  {InputPer1K: 0.00025, OutputPer1K: 0.00125},
	"anthropic.claude-3-sonnet-20240229-v1:0": {InputPer1K: 0.003, OutputPer1K: 0.015},
}

// Calculator turns token usage into USD cost. Unknown models cost zero.
type Calculator struct {
	pricing map[string]ModelPricing
}

func NewCalculator() *Calculator {
	return &Calculator{pricing: defaultPricing}
}

func (c *Calculator) Calculate(model string, u *domain.Usage) float64 {
	if u == nil {
		return 0
	}

	pricing, ok := c.pricing[model]
	if !ok {
		return 0
	}

	inputCost := float64(u.PromptTokens) / 1000 * pricing.InputPer1K
	outputCost := float64(u.CompletionTokens) / 1000 * pricing.OutputPer1K

	return inputCost + outputCost
}

func (c *Calculator) SetPricing(model string, pricing ModelPricing) {
	c.pricing[model] = pricing
}

// InMemoryTracker keeps records in memory; default when no sink is
// configured, and the test double.
type InMemoryTracker struct {
	mu      sync.RWMutex
	records []Record
}

func NewInMemoryTracker() *InMemoryTracker {
	return &InMemoryTracker{
		records: make([]Record, 0),
	}
}

func (t *InMemoryTracker) Record(ctx context.Context, record Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = append(t.records, record)
	return nil
}

func (t *InMemoryTracker) Records() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]Record, len(t.records))
	copy(result, t.records)
	return result
}

// TotalCost sums the cost of all records since the given time.
func (t *InMemoryTracker) TotalCost(since time.Time) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total float64
	for _, r := range t.records {
		if r.CreatedAt.After(since) {
			total += r.CostUSD
		}
	}
	return total
}
