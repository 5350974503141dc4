package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/toolfinder/ai-service/internal/cache"
	"github.com/toolfinder/ai-service/internal/domain"
	"github.com/toolfinder/ai-service/internal/ratelimit"
)

func TestCleanupGenerated(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "A helpful description.", "A helpful description."},
		{"option prefix", "Option 1: A helpful description.", "A helpful description."},
		{"option prefix dash", "Option 2 - A helpful description.", "A helpful description."},
		{"bold markers", "A **helpful** description.", "A helpful description."},
		{"lead-in", "Here is the welcome message: Hello and welcome!", "Hello and welcome!"},
		{"lead-in contraction", "Here's your description: A tool for recipes.", "A tool for recipes."},
		{"lead-in with sure", "Sure, here is a name: Recipe Genie", "Recipe Genie"},
		{"wrapping double quotes", `"Hello and welcome!"`, "Hello and welcome!"},
		{"wrapping single quotes", "'Recipe Genie'", "Recipe Genie"},
		{"wrapping backticks", "`Recipe Genie`", "Recipe Genie"},
		{"lead-in then quotes", `Here is the welcome message: "Hello!"`, "Hello!"},
		{"whitespace", "   padded   ", "padded"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanupGenerated(tt.in); got != tt.want {
				t.Errorf("CleanupGenerated(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerateToolDescription_Success(t *testing.T) {
	provider := &fakeProvider{resp: &domain.AIResponse{Content: "Option 1: **A recipe helper.**"}}
	svc := newTestService(t, Deps{Primary: provider})

	got, err := svc.GenerateToolDescription(context.Background(), GenerateOptions{
		ToolName:    "Recipe Genie",
		ToolPurpose: "helps with cooking",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "A recipe helper." {
		t.Errorf("description = %q, want cleaned output", got)
	}

	req := provider.lastReq
	if !strings.Contains(req.Messages[0].Content, "Recipe Genie") {
		t.Errorf("prompt missing tool name: %q", req.Messages[0].Content)
	}
	if req.Temperature != 0.9 {
		t.Errorf("Temperature = %v, want creative preset", req.Temperature)
	}
}

func TestGenerateToolDescription_EnhanceVariant(t *testing.T) {
	provider := &fakeProvider{resp: &domain.AIResponse{Content: "Better description."}}
	svc := newTestService(t, Deps{Primary: provider})

	_, err := svc.GenerateToolDescription(context.Background(), GenerateOptions{
		ToolName: "Recipe Genie",
		Existing: "An old description of the tool.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sys := provider.lastReq.Messages[0].Content
	if !strings.Contains(sys, "An old description of the tool.") {
		t.Errorf("enhance prompt missing existing content: %q", sys)
	}
	if !strings.Contains(sys, "Improve") {
		t.Errorf("expected enhance template, got %q", sys)
	}
}

func TestGenerateToolPrompt_UsesTechnicalPreset(t *testing.T) {
	provider := &fakeProvider{resp: &domain.AIResponse{Content: "You are a recipe assistant."}}
	svc := newTestService(t, Deps{Primary: provider})

	_, err := svc.GenerateToolPrompt(context.Background(), GenerateOptions{
		ToolName:    "Recipe Genie",
		ToolPurpose: "helps with cooking",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := provider.lastReq
	if req.Temperature != 0.2 || req.MaxTokens != 1000 {
		t.Errorf("config = {%v %d}, want technical preset", req.Temperature, req.MaxTokens)
	}
}

func TestGenerate_Validation(t *testing.T) {
	svc := newTestService(t, Deps{Primary: &fakeProvider{}})
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"description without name", func() error {
			_, err := svc.GenerateToolDescription(ctx, GenerateOptions{ToolPurpose: "p"})
			return err
		}},
		{"description without purpose", func() error {
			_, err := svc.GenerateToolDescription(ctx, GenerateOptions{ToolName: "t"})
			return err
		}},
		{"name without purpose", func() error {
			_, err := svc.GenerateToolName(ctx, GenerateOptions{ToolName: "t"})
			return err
		}},
		{"welcome without purpose", func() error {
			_, err := svc.GenerateWelcomeMessage(ctx, GenerateOptions{ToolName: "t"})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := domain.AsServiceError(tt.call())
			if se == nil {
				t.Fatal("expected ServiceError")
			}
			if se.Code != domain.CodeInvalidInput {
				t.Errorf("Code = %q, want %q", se.Code, domain.CodeInvalidInput)
			}
		})
	}
}

func TestGenerate_RateLimitPropagates(t *testing.T) {
	provider := &fakeProvider{resp: &domain.AIResponse{Content: "Name"}}
	svc := newTestService(t, Deps{
		Primary: provider,
		Limiter: ratelimit.NewSlidingWindow(1, time.Minute),
	})
	ctx := context.Background()
	opts := GenerateOptions{ToolPurpose: "helps with cooking"}

	if _, err := svc.GenerateToolName(ctx, opts); err != nil {
		t.Fatalf("first call: %v", err)
	}

	_, err := svc.GenerateToolName(ctx, opts)
	se := domain.AsServiceError(err)
	if se == nil {
		t.Fatalf("expected ServiceError, got %v", err)
	}
	if se.Code != domain.CodeRateLimitExceeded {
		t.Errorf("Code = %q, want %q", se.Code, domain.CodeRateLimitExceeded)
	}
}

func TestGenerate_CacheHitSkipsProvider(t *testing.T) {
	provider := &fakeProvider{resp: &domain.AIResponse{Content: "A recipe helper."}}
	svc := newTestService(t, Deps{Primary: provider, Cache: cache.NewInMemoryCache()})
	ctx := context.Background()
	opts := GenerateOptions{ToolName: "Recipe Genie", ToolPurpose: "helps with cooking"}

	first, err := svc.GenerateToolDescription(ctx, opts)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}

	second, err := svc.GenerateToolDescription(ctx, opts)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if first != second {
		t.Errorf("cached result %q != original %q", second, first)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
}

func TestGenerate_EmptyContentIsInvalidResponse(t *testing.T) {
	provider := &fakeProvider{resp: &domain.AIResponse{Content: `""`}}
	svc := newTestService(t, Deps{Primary: provider})

	_, err := svc.GenerateWelcomeMessage(context.Background(), GenerateOptions{
		ToolName:    "Recipe Genie",
		ToolPurpose: "helps with cooking",
	})
	se := domain.AsServiceError(err)
	if se == nil {
		t.Fatal("expected ServiceError")
	}
	if se.Code != domain.CodeInvalidResponse {
		t.Errorf("Code = %q, want %q", se.Code, domain.CodeInvalidResponse)
	}
}
