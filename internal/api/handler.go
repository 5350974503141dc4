// Package api exposes the AI operations over HTTP for the web application.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/toolfinder/ai-service/internal/circuitbreaker"
	"github.com/toolfinder/ai-service/internal/domain"
	"github.com/toolfinder/ai-service/internal/service"
	"github.com/toolfinder/ai-service/internal/telemetry"
)

type HandlerConfig struct {
	Service  *service.Service
	Breaker  *circuitbreaker.Breaker
	Checkers []HealthChecker
}

type Handler struct {
	svc      *service.Service
	breaker  *circuitbreaker.Breaker
	checkers []HealthChecker
	mux      *http.ServeMux
}

func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		svc:      cfg.Service,
		breaker:  cfg.Breaker,
		checkers: cfg.Checkers,
		mux:      http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /v1/chat", h.handleChat)
	h.mux.HandleFunc("POST /v1/suggestions", h.handleSuggestions)
	h.mux.HandleFunc("POST /v1/generate/description", h.handleGenerate(service.OpDescription))
	h.mux.HandleFunc("POST /v1/generate/prompt", h.handleGenerate(service.OpToolPrompt))
	h.mux.HandleFunc("POST /v1/generate/name", h.handleGenerate(service.OpName))
	h.mux.HandleFunc("POST /v1/generate/welcome", h.handleGenerate(service.OpWelcome))
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /health/live", h.handleHealthLive)
	h.mux.HandleFunc("GET /health/ready", h.handleHealthReady)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type chatRequest struct {
	Input      string           `json:"input"`
	ToolName   string           `json:"tool_name"`
	ToolPrompt string           `json:"tool_prompt"`
	History    []domain.Message `json:"history,omitempty"`
	MaxRetries int              `json:"max_retries,omitempty"`
	TimeoutSec int              `json:"timeout_seconds,omitempty"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	requestID := requestID(r)
	w.Header().Set("X-Request-ID", requestID)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewServiceError("invalid request body", domain.CodeInvalidInput, http.StatusBadRequest, false))
		return
	}

	resp, err := h.svc.Chat(r.Context(), req.Input, service.ChatOptions{
		ToolName:   req.ToolName,
		ToolPrompt: req.ToolPrompt,
		History:    req.History,
		MaxRetries: req.MaxRetries,
		Timeout:    time.Duration(req.TimeoutSec) * time.Second,
	})
	if err != nil {
		slog.Warn("chat failed",
			"request_id", requestID,
			"trace_id", telemetry.GetTraceID(r.Context()),
			"error", err,
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type suggestionsRequest struct {
	ToolName             string           `json:"tool_name"`
	LastAssistantMessage string           `json:"last_assistant_message"`
	History              []domain.Message `json:"history,omitempty"`
	Count                int              `json:"count,omitempty"`
}

func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Request-ID", requestID(r))

	var req suggestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewServiceError("invalid request body", domain.CodeInvalidInput, http.StatusBadRequest, false))
		return
	}

	suggestions := h.svc.GenerateSuggestions(r.Context(), service.SuggestionOptions{
		ToolName:             req.ToolName,
		LastAssistantMessage: req.LastAssistantMessage,
		History:              req.History,
		Count:                req.Count,
	})

	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": suggestions})
}

type generateRequest struct {
	ToolName    string `json:"tool_name"`
	ToolPurpose string `json:"tool_purpose"`
	Existing    string `json:"existing,omitempty"`
}

func (h *Handler) handleGenerate(operation string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestID(r)
		w.Header().Set("X-Request-ID", requestID)

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, domain.NewServiceError("invalid request body", domain.CodeInvalidInput, http.StatusBadRequest, false))
			return
		}

		opts := service.GenerateOptions{
			ToolName:    req.ToolName,
			ToolPurpose: req.ToolPurpose,
			Existing:    req.Existing,
		}

		var content string
		var err error
		switch operation {
		case service.OpDescription:
			content, err = h.svc.GenerateToolDescription(r.Context(), opts)
		case service.OpToolPrompt:
			content, err = h.svc.GenerateToolPrompt(r.Context(), opts)
		case service.OpName:
			content, err = h.svc.GenerateToolName(r.Context(), opts)
		case service.OpWelcome:
			content, err = h.svc.GenerateWelcomeMessage(r.Context(), opts)
		}

		if err != nil {
			slog.Warn("generation failed",
				"operation", operation,
				"request_id", requestID,
				"trace_id", telemetry.GetTraceID(r.Context()),
				"error", err,
			)
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"content": content})
	}
}

func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.New().String()
}

type errorBody struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

// writeError renders any error as the structured JSON error body. Errors
// that are not ServiceErrors become opaque internal errors.
func writeError(w http.ResponseWriter, err error) {
	se := domain.AsServiceError(err)
	if se == nil {
		se = domain.NewServiceError("internal error", domain.CodeInternalError, http.StatusInternalServerError, false)
	}

	status := se.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, map[string]errorBody{
		"error": {
			Message:   se.Message,
			Code:      se.Code,
			Retryable: se.Retryable,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
