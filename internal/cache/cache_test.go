package cache

import (
	"context"
	"testing"
	"time"

	"github.com/toolfinder/ai-service/internal/domain"
)

func TestKey_Deterministic(t *testing.T) {
	req := domain.ChatRequest{
		Model:    "openai/gpt-4o-mini",
		Messages: []domain.Message{{Role: "user", Content: "describe this tool"}},
	}

	if Key("description", req) != Key("description", req) {
		t.Error("same operation and request must produce the same key")
	}
}

func TestKey_DistinguishesOperationAndRequest(t *testing.T) {
	req := domain.ChatRequest{
		Model:    "openai/gpt-4o-mini",
		Messages: []domain.Message{{Role: "user", Content: "describe this tool"}},
	}
	other := req
	other.Messages = []domain.Message{{Role: "user", Content: "different"}}

	if Key("description", req) == Key("name", req) {
		t.Error("different operations must produce different keys")
	}
	if Key("description", req) == Key("description", other) {
		t.Error("different requests must produce different keys")
	}
}

func TestInMemoryCache_GetSet(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	resp := &domain.AIResponse{Content: "a generated description"}
	if err := c.Set(ctx, "k", resp, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Content != "a generated description" {
		t.Errorf("Content = %q", got.Content)
	}
}

func TestInMemoryCache_Miss(t *testing.T) {
	c := NewInMemoryCache()

	if _, ok := c.Get(context.Background(), "absent"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestInMemoryCache_Expiry(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "k", &domain.AIResponse{Content: "x"}, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expected miss after TTL expiry")
	}
}
