// Package bedrock is the fallback completion provider, used when the primary
// provider's circuit is open. Requests use the Anthropic messages format via
// the Bedrock InvokeModel API.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/toolfinder/ai-service/internal/domain"
)

type Provider struct {
	client  *bedrockruntime.Client
	modelID string
}

func New(ctx context.Context, region, modelID string) (*Provider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Provider{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

func NewWithConfig(cfg aws.Config, modelID string) *Provider {
	return &Provider{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}
}

func (p *Provider) ID() string {
	return "bedrock"
}

type invokeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	TopP             float64         `json:"top_p"`
	Messages         []invokeMessage `json:"messages"`
	System           string          `json:"system,omitempty"`
	StopSequences    []string        `json:"stop_sequences,omitempty"`
}

type invokeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      invokeUsage    `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type invokeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Complete performs one completion attempt against Bedrock. The configured
// model ID always wins over the request model, which names a model from the
// primary provider's catalog.
func (p *Provider) Complete(ctx context.Context, req domain.ChatRequest) (*domain.AIResponse, error) {
	body, err := json.Marshal(toInvokeRequest(req))
	if err != nil {
		return nil, &domain.ServiceError{
			Message:    "marshal request",
			Code:       domain.CodeBadRequest,
			StatusCode: http.StatusBadRequest,
			Retryable:  false,
			Err:        err,
		}
	}

	input := &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	}

	output, err := p.client.InvokeModel(ctx, input)
	if err != nil {
		return nil, classifyInvokeError(err)
	}

	var resp invokeResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, &domain.ServiceError{
			Message:    "decode response body",
			Code:       domain.CodeInvalidResponse,
			StatusCode: http.StatusInternalServerError,
			Retryable:  true,
			Err:        err,
		}
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	if content == "" {
		return nil, &domain.ServiceError{
			Message:    "response has no message content",
			Code:       domain.CodeInvalidResponse,
			StatusCode: http.StatusInternalServerError,
			Retryable:  true,
		}
	}

	return &domain.AIResponse{
		Content: content,
		Usage: &domain.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		Model:        p.modelID,
		FinishReason: mapStopReason(resp.StopReason),
	}, nil
}

func toInvokeRequest(req domain.ChatRequest) invokeRequest {
	var systemPrompt string
	var messages []invokeMessage

	for _, m := range req.Messages {
		if m.Role == domain.RoleSystem {
			systemPrompt = m.Content
			continue
		}
		messages = append(messages, invokeMessage{Role: m.Role, Content: m.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	return invokeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		Messages:         messages,
		System:           systemPrompt,
		StopSequences:    req.Stop,
	}
}

func classifyInvokeError(err error) *domain.ServiceError {
	var throttle *types.ThrottlingException
	if errors.As(err, &throttle) {
		return &domain.ServiceError{
			Message:    "bedrock throttled the request",
			Code:       domain.CodeRateLimited,
			StatusCode: http.StatusTooManyRequests,
			Retryable:  true,
			Err:        err,
		}
	}

	var validation *types.ValidationException
	if errors.As(err, &validation) {
		return &domain.ServiceError{
			Message:    "bedrock rejected the request",
			Code:       domain.CodeBadRequest,
			StatusCode: http.StatusBadRequest,
			Retryable:  false,
			Err:        err,
		}
	}

	var denied *types.AccessDeniedException
	if errors.As(err, &denied) {
		return &domain.ServiceError{
			Message:    "bedrock access denied",
			Code:       domain.CodeForbidden,
			StatusCode: http.StatusForbidden,
			Retryable:  false,
			Err:        err,
		}
	}

	return &domain.ServiceError{
		Message:    "bedrock invoke failed",
		Code:       domain.CodeBadGateway,
		StatusCode: http.StatusBadGateway,
		Retryable:  true,
		Err:        err,
	}
}

func mapStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	default:
		return reason
	}
}
