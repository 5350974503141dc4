package usage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/toolfinder/ai-service/internal/domain"
)

func TestNewSQSTrackerWithConfig(t *testing.T) {
	queueURL := "https://sqs.us-east-1.amazonaws.com/123456789012/ai-usage"
	tracker := NewSQSTrackerWithConfig(aws.Config{Region: "us-east-1"}, queueURL)

	if tracker.queueURL != queueURL {
		t.Errorf("queueURL = %q", tracker.queueURL)
	}
	if tracker.client == nil {
		t.Error("client not initialized")
	}
}

func TestNewPostgresTrackerWithDB(t *testing.T) {
	// sql.Open does not connect, so no database is needed here.
	db, err := sql.Open("postgres", "postgres://localhost:5432/toolfinder?sslmode=disable")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	tracker := NewPostgresTrackerWithDB(db)
	if tracker.DB() != db {
		t.Error("DB() should return the injected handle")
	}
}

func TestCalculator_KnownModel(t *testing.T) {
	c := NewCalculator()

	cost := c.Calculate("openai/gpt-4o-mini", &domain.Usage{
		PromptTokens:     1000,
		CompletionTokens: 1000,
	})

	want := 0.00015 + 0.0006
	if diff := cost - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("cost = %v, want %v", cost, want)
	}
}

func TestCalculator_UnknownModel(t *testing.T) {
	c := NewCalculator()

	if cost := c.Calculate("unknown/model", &domain.Usage{PromptTokens: 1000}); cost != 0 {
		t.Errorf("unknown model cost = %v, want 0", cost)
	}
}

func TestCalculator_NilUsage(t *testing.T) {
	c := NewCalculator()

	if cost := c.Calculate("openai/gpt-4o-mini", nil); cost != 0 {
		t.Errorf("nil usage cost = %v, want 0", cost)
	}
}

func TestCalculator_SetPricing(t *testing.T) {
	c := NewCalculator()
	c.SetPricing("custom/model", ModelPricing{InputPer1K: 1, OutputPer1K: 2})

	cost := c.Calculate("custom/model", &domain.Usage{PromptTokens: 500, CompletionTokens: 500})
	if cost != 1.5 {
		t.Errorf("cost = %v, want 1.5", cost)
	}
}

func TestInMemoryTracker(t *testing.T) {
	tr := NewInMemoryTracker()
	ctx := context.Background()

	now := time.Now()
	tr.Record(ctx, Record{Operation: "chat", CostUSD: 0.01, CreatedAt: now})
	tr.Record(ctx, Record{Operation: "description", CostUSD: 0.02, CreatedAt: now})

	records := tr.Records()
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	total := tr.TotalCost(now.Add(-time.Minute))
	if diff := total - 0.03; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("TotalCost = %v, want 0.03", total)
	}

	if old := tr.TotalCost(now.Add(time.Minute)); old != 0 {
		t.Errorf("TotalCost since future = %v, want 0", old)
	}
}
