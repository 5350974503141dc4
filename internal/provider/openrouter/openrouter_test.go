package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/toolfinder/ai-service/internal/domain"
)

func testRequest() domain.ChatRequest {
	return domain.ChatRequest{
		Model: "openai/gpt-4o-mini",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "you are a test"},
			{Role: domain.RoleUser, Content: "hello"},
		},
		Temperature: 0.3,
		MaxTokens:   100,
		TopP:        0.9,
	}
}

func newTestClient(url string) *Client {
	return New(Config{
		APIKey:  "sk-test",
		BaseURL: url,
		Referer: "https://toolfinder.app",
		Title:   "ToolFinder",
	}, nil)
}

func TestComplete_Success(t *testing.T) {
	var gotAuth, gotReferer, gotTitle string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")

		var req domain.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("server failed to decode request: %v", err)
		}

		json.NewEncoder(w).Encode(domain.ChatResponse{
			Model: "openai/gpt-4o-mini",
			Choices: []domain.Choice{
				{Message: &domain.Message{Role: "assistant", Content: "  hi!  "}, FinishReason: "stop"},
			},
			Usage: &domain.Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	resp, err := c.Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Content != "  hi!  " {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("FinishReason = %s", resp.FinishReason)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 12 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReferer != "https://toolfinder.app" {
		t.Errorf("HTTP-Referer = %q", gotReferer)
	}
	if gotTitle != "ToolFinder" {
		t.Errorf("X-Title = %q", gotTitle)
	}
}

func TestComplete_StatusMapping(t *testing.T) {
	tests := []struct {
		status        int
		wantCode      string
		wantRetryable bool
	}{
		{400, domain.CodeBadRequest, false},
		{401, domain.CodeUnauthorized, false},
		{403, domain.CodeForbidden, false},
		{404, domain.CodeNotFound, false},
		{408, domain.CodeTimeout, true},
		{429, domain.CodeRateLimited, true},
		{500, domain.CodeInternalError, true},
		{502, domain.CodeBadGateway, true},
		{503, domain.CodeServiceUnavailable, true},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		c := newTestClient(srv.URL)
		_, err := c.Complete(context.Background(), testRequest())
		srv.Close()

		se := domain.AsServiceError(err)
		if se == nil {
			t.Fatalf("status %d: want ServiceError, got %v", tt.status, err)
		}
		if se.Code != tt.wantCode {
			t.Errorf("status %d: Code = %s, want %s", tt.status, se.Code, tt.wantCode)
		}
		if se.Retryable != tt.wantRetryable {
			t.Errorf("status %d: Retryable = %v, want %v", tt.status, se.Retryable, tt.wantRetryable)
		}
		if se.StatusCode != tt.status {
			t.Errorf("status %d: StatusCode = %d", tt.status, se.StatusCode)
		}
	}
}

func TestComplete_ErrorBodyMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Complete(context.Background(), testRequest())

	se := domain.AsServiceError(err)
	if se == nil {
		t.Fatal("want ServiceError")
	}
	if se.Message != "invalid api key" {
		t.Errorf("Message = %q, want upstream error message", se.Message)
	}
}

func TestComplete_MissingContent(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices":[]}`},
		{"no message", `{"choices":[{"finish_reason":"stop"}]}`},
		{"empty content", `{"choices":[{"message":{"role":"assistant","content":""}}]}`},
		{"not json", `garbage`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(srv.URL)
			_, err := c.Complete(context.Background(), testRequest())

			se := domain.AsServiceError(err)
			if se == nil {
				t.Fatalf("want ServiceError, got %v", err)
			}
			if se.Code != domain.CodeInvalidResponse {
				t.Errorf("Code = %s, want INVALID_RESPONSE", se.Code)
			}
			if !se.Retryable {
				t.Error("malformed success body should be retryable")
			}
		})
	}
}

func TestComplete_DeadlineIsRetryableTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Complete(ctx, testRequest())

	se := domain.AsServiceError(err)
	if se == nil {
		t.Fatalf("want ServiceError, got %v", err)
	}
	if se.Code != domain.CodeTimeout {
		t.Errorf("Code = %s, want TIMEOUT", se.Code)
	}
	if !se.Retryable {
		t.Error("deadline hit should be retryable")
	}
}

func TestComplete_CancellationNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Complete(ctx, testRequest())

	se := domain.AsServiceError(err)
	if se == nil {
		t.Fatalf("want ServiceError, got %v", err)
	}
	if se.Retryable {
		t.Error("caller cancellation must not be retried")
	}
}
