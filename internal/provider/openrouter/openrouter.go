// Package openrouter is the primary chat-completions provider. It performs a
// single request attempt; retry and backoff live in the executor.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/toolfinder/ai-service/internal/domain"
	"github.com/toolfinder/ai-service/internal/httputil"
)

type Client struct {
	apiKey  string
	baseURL string
	referer string
	title   string
	client  *http.Client
}

// Config carries the provider settings. Referer and Title are the OpenRouter
// attribution headers identifying the calling application.
type Config struct {
	APIKey  string
	BaseURL string
	Referer string
	Title   string
}

func New(cfg Config, client *http.Client) *Client {
	if client == nil {
		client = httputil.DefaultClient()
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		referer: cfg.Referer,
		title:   cfg.Title,
		client:  client,
	}
}

func (c *Client) ID() string {
	return "openrouter"
}

type errorBody struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete performs one chat-completions call. Failures come back as
// *domain.ServiceError classified by upstream status; transport errors and
// deadline hits map to a retryable TIMEOUT.
func (c *Client) Complete(ctx context.Context, req domain.ChatRequest) (*domain.AIResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &domain.ServiceError{
			Message:    "marshal request",
			Code:       domain.CodeBadRequest,
			StatusCode: http.StatusBadRequest,
			Retryable:  false,
			Err:        err,
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ServiceError{
			Message:    "create request",
			Code:       domain.CodeInternalError,
			StatusCode: http.StatusInternalServerError,
			Retryable:  false,
			Err:        err,
		}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", c.referer)
	httpReq.Header.Set("X-Title", c.title)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	var chatResp domain.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, invalidResponse("decode response body", err)
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message == nil || chatResp.Choices[0].Message.Content == "" {
		return nil, invalidResponse("response has no message content", nil)
	}

	choice := chatResp.Choices[0]
	return &domain.AIResponse{
		Content:      choice.Message.Content,
		Usage:        chatResp.Usage,
		Model:        chatResp.Model,
		FinishReason: choice.FinishReason,
	}, nil
}

func statusError(resp *http.Response) *domain.ServiceError {
	message := fmt.Sprintf("provider returned status %d", resp.StatusCode)

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed errorBody
	if err := json.Unmarshal(bodyBytes, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}

	return &domain.ServiceError{
		Message:    message,
		Code:       domain.CodeForStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Retryable:  domain.RetryableStatus(resp.StatusCode),
	}
}

func transportError(ctx context.Context, err error) *domain.ServiceError {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return &domain.ServiceError{
			Message:    "request canceled",
			Code:       domain.CodeUnknownError,
			StatusCode: 0,
			Retryable:  false,
			Err:        err,
		}
	}

	// Deadline hits and connection-level failures are both transient.
	return &domain.ServiceError{
		Message:    "request failed",
		Code:       domain.CodeTimeout,
		StatusCode: http.StatusRequestTimeout,
		Retryable:  true,
		Err:        err,
	}
}

func invalidResponse(message string, err error) *domain.ServiceError {
	return &domain.ServiceError{
		Message:    message,
		Code:       domain.CodeInvalidResponse,
		StatusCode: http.StatusInternalServerError,
		Retryable:  true,
		Err:        err,
	}
}
