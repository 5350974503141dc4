package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/toolfinder/ai-service/internal/domain"
	"github.com/toolfinder/ai-service/internal/executor"
	"github.com/toolfinder/ai-service/internal/metrics"
	"github.com/toolfinder/ai-service/internal/prompt"
)

const (
	defaultSuggestionCount = 3
	maxSuggestionLength    = 49
	suggestionContextSize  = 3

	suggestionTimeout    = 10 * time.Second
	suggestionMaxRetries = 1
)

// SuggestionOptions parameterizes one GenerateSuggestions call.
type SuggestionOptions struct {
	ToolName             string
	LastAssistantMessage string
	History              []domain.Message
	Count                int
}

// GenerateSuggestions produces short follow-up prompts the user can tap after
// the assistant's last message. Suggestions are a convenience feature: this
// operation never returns an error. Any failure (rate limit, transport,
// unparseable output) degrades to a deterministic tool-name-templated list.
func (s *Service) GenerateSuggestions(ctx context.Context, opts SuggestionOptions) []string {
	count := opts.Count
	if count <= 0 {
		count = defaultSuggestionCount
	}

	if strings.TrimSpace(opts.LastAssistantMessage) == "" {
		return fallbackSuggestions(opts.ToolName, count)
	}

	if err := s.checkRateLimit(ctx, OpSuggestions); err != nil {
		s.logger.Info("suggestions rate limited, using fallback", "tool", opts.ToolName)
		metrics.RecordFallback(OpSuggestions, "static")
		return fallbackSuggestions(opts.ToolName, count)
	}

	systemPrompt := prompt.Build(prompt.SuggestionsTemplate, map[string]string{
		"tool_name":    opts.ToolName,
		"last_message": opts.LastAssistantMessage,
		"context":      historyContext(opts.History, suggestionContextSize),
		"count":        strconv.Itoa(count),
	})

	cfg := prompt.ConfigFor(domain.TaskSuggestions, s.cfg.ModelFor(s.cfg.FactualModel), nil)
	req := prompt.BuildChatRequest(systemPrompt, nil, "Generate the suggestions now.", cfg)

	resp, err := s.complete(ctx, OpSuggestions, req, executor.Options{
		MaxRetries: suggestionMaxRetries,
		Timeout:    suggestionTimeout,
	})
	if err != nil {
		s.logger.Info("suggestions generation failed, using fallback", "tool", opts.ToolName, "error", err)
		metrics.RecordFallback(OpSuggestions, "static")
		return fallbackSuggestions(opts.ToolName, count)
	}

	suggestions := parseSuggestions(resp.Content, count)
	if len(suggestions) == 0 {
		s.logger.Info("suggestions unparseable, using fallback", "tool", opts.ToolName)
		metrics.RecordFallback(OpSuggestions, "static")
		return fallbackSuggestions(opts.ToolName, count)
	}

	return suggestions
}

// historyContext renders the newest n user/assistant messages as "role: text"
// lines, oldest first.
func historyContext(messages []domain.Message, n int) string {
	relevant := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == domain.RoleUser || m.Role == domain.RoleAssistant {
			relevant = append(relevant, m)
		}
	}
	if len(relevant) > n {
		relevant = relevant[len(relevant)-n:]
	}

	lines := make([]string, 0, len(relevant))
	for _, m := range relevant {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

var suggestionFragment = regexp.MustCompile(`(?s)\{.*"suggestions".*\}`)

// parseSuggestions recovers a suggestion list from model output. Strategies
// run in order and the first one yielding a non-empty result wins:
// direct JSON parse, JSON fragment extraction, then line heuristics.
func parseSuggestions(text string, count int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if out := parseSuggestionJSON(text, count); len(out) > 0 {
		return out
	}

	if fragment := suggestionFragment.FindString(text); fragment != "" {
		if out := parseSuggestionJSON(fragment, count); len(out) > 0 {
			return out
		}
	}

	return parseSuggestionLines(text, count)
}

func parseSuggestionJSON(text string, count int) []string {
	var payload struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil
	}

	out := make([]string, 0, count)
	for _, s := range payload.Suggestions {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == count {
			break
		}
	}
	return out
}

var (
	lineNumbering = regexp.MustCompile(`^\d+[.)]\s*`)
	lineBullet    = regexp.MustCompile(`^[-*•]\s*`)
)

// parseSuggestionLines treats each line of free text as a candidate
// suggestion: numbering, bullets, wrapping quotes, and trailing commas are
// stripped, and lines that look like JSON syntax or run too long are skipped.
func parseSuggestionLines(text string, count int) []string {
	out := make([]string, 0, count)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = lineNumbering.ReplaceAllString(line, "")
		line = lineBullet.ReplaceAllString(line, "")
		line = strings.TrimSuffix(line, ",")
		line = strings.Trim(line, `"'`)
		line = strings.TrimSpace(line)

		if line == "" || len(line) > maxSuggestionLength {
			continue
		}
		if strings.ContainsAny(line, "{}") {
			continue
		}

		out = append(out, line)
		if len(out) == count {
			break
		}
	}
	return out
}

// fallbackSuggestions is the deterministic last resort shown when the model
// cannot be reached or its output cannot be salvaged.
func fallbackSuggestions(toolName string, count int) []string {
	if toolName == "" {
		toolName = "this tool"
	}

	list := []string{
		fmt.Sprintf("What can %s help me with?", toolName),
		"Can you give me an example?",
		"How do I get started?",
		"What else can you do?",
		"Tell me more about that",
	}

	if count > len(list) {
		count = len(list)
	}
	return list[:count]
}
