package bedrock

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/toolfinder/ai-service/internal/domain"
)

func TestNewWithConfig(t *testing.T) {
	p := NewWithConfig(aws.Config{Region: "us-east-1"}, "anthropic.claude-3-haiku-20240307-v1:0")

	if p.ID() != "bedrock" {
		t.Errorf("ID = %q, want bedrock", p.ID())
	}
	if p.modelID != "anthropic.claude-3-haiku-20240307-v1:0" {
		t.Errorf("modelID = %q", p.modelID)
	}
	if p.client == nil {
		t.Error("client not initialized")
	}
}

func TestToInvokeRequest(t *testing.T) {
	req := domain.ChatRequest{
		Model: "openai/gpt-4o-mini",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "be helpful"},
			{Role: domain.RoleUser, Content: "hi"},
			{Role: domain.RoleAssistant, Content: "hello"},
		},
		Temperature: 0.5,
		MaxTokens:   200,
		TopP:        0.9,
		Stop:        []string{"END"},
	}

	got := toInvokeRequest(req)

	if got.System != "be helpful" {
		t.Errorf("System = %q", got.System)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("messages = %d, want 2 (system extracted)", len(got.Messages))
	}
	if got.Messages[0].Role != domain.RoleUser {
		t.Errorf("first message role = %s", got.Messages[0].Role)
	}
	if got.MaxTokens != 200 || got.Temperature != 0.5 || got.TopP != 0.9 {
		t.Errorf("sampling params not carried over: %+v", got)
	}
	if len(got.StopSequences) != 1 || got.StopSequences[0] != "END" {
		t.Errorf("StopSequences = %v", got.StopSequences)
	}
	if got.AnthropicVersion == "" {
		t.Error("AnthropicVersion must be set for the messages API")
	}
}

func TestToInvokeRequest_DefaultMaxTokens(t *testing.T) {
	got := toInvokeRequest(domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	if got.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want default 1024", got.MaxTokens)
	}
}

func TestMapStopReason(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"end_turn", "stop"},
		{"stop_sequence", "stop"},
		{"max_tokens", "length"},
		{"something_else", "something_else"},
	}

	for _, tt := range tests {
		if got := mapStopReason(tt.in); got != tt.want {
			t.Errorf("mapStopReason(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
