// Package prompt turns named templates and conversation state into finished
// chat-completions payloads. It performs no I/O.
package prompt

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/toolfinder/ai-service/internal/domain"
)

const (
	// MaxInputLength caps sanitized user input.
	MaxInputLength = 2000

	// DefaultMaxMessages bounds how many history messages are kept verbatim.
	DefaultMaxMessages = 10

	// DefaultMaxTokens is the advisory token budget callers pass alongside
	// the message cap.
	DefaultMaxTokens = 4000

	summaryPrefix  = "Previous conversation summary: "
	summarySnippet = 150
	recentFraction = 0.7
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Build replaces every {{KEY}} occurrence in template with the corresponding
// context value. Keys are uppercased before substitution. Placeholders with
// no matching key are left verbatim.
func Build(template string, context map[string]string) string {
	out := template
	for key, value := range context {
		placeholder := "{{" + strings.ToUpper(key) + "}}"
		out = strings.ReplaceAll(out, placeholder, value)
	}
	return out
}

// presets holds the fixed per-task sampling parameters. Model is filled in
// by ConfigFor.
var presets = map[domain.TaskType]domain.ModelConfig{
	domain.TaskCreative:    {Temperature: 0.9, MaxTokens: 500, TopP: 0.95},
	domain.TaskFactual:     {Temperature: 0.3, MaxTokens: 800, TopP: 0.9},
	domain.TaskTechnical:   {Temperature: 0.2, MaxTokens: 1000, TopP: 0.85},
	domain.TaskSuggestions: {Temperature: 0.8, MaxTokens: 150, TopP: 0.9},
}

// Overrides selects individual ModelConfig fields to replace on top of a
// preset. Nil fields keep the preset value.
type Overrides struct {
	Model            string
	Temperature      *float64
	MaxTokens        *int
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	Stop             []string
}

// ConfigFor resolves the ModelConfig for a task: default model, then the
// task preset, then any per-call overrides. Overrides always win.
func ConfigFor(task domain.TaskType, defaultModel string, ov *Overrides) domain.ModelConfig {
	cfg, ok := presets[task]
	if !ok {
		cfg = presets[domain.TaskFactual]
	}
	cfg.Model = defaultModel

	if ov == nil {
		return cfg
	}
	if ov.Model != "" {
		cfg.Model = ov.Model
	}
	if ov.Temperature != nil {
		cfg.Temperature = *ov.Temperature
	}
	if ov.MaxTokens != nil {
		cfg.MaxTokens = *ov.MaxTokens
	}
	if ov.TopP != nil {
		cfg.TopP = *ov.TopP
	}
	if ov.FrequencyPenalty != nil {
		cfg.FrequencyPenalty = ov.FrequencyPenalty
	}
	if ov.PresencePenalty != nil {
		cfg.PresencePenalty = ov.PresencePenalty
	}
	if len(ov.Stop) > 0 {
		cfg.Stop = ov.Stop
	}
	return cfg
}

// PrepareHistory bounds conversation history before it is sent upstream.
// Only user/assistant messages with non-empty content are considered. When
// the filtered history exceeds maxMessages, the newest floor(maxMessages*0.7)
// messages are kept verbatim and the older remainder is collapsed into a
// single system summary message. Truncation is driven by message count
// alone; the verbatim tail is never shortened, so maxTokens is an advisory
// sizing hint for callers rather than an enforced budget.
func PrepareHistory(messages []domain.Message, maxMessages, maxTokens int) []domain.Message {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}

	filtered := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		filtered = append(filtered, m)
	}

	if len(filtered) <= maxMessages {
		return filtered
	}

	recentCount := int(float64(maxMessages) * recentFraction)
	recent := filtered[len(filtered)-recentCount:]
	older := filtered[:len(filtered)-recentCount]

	parts := make([]string, 0, len(older))
	for _, m := range older {
		content := m.Content
		if len(content) > summarySnippet {
			content = truncateRunes(content, summarySnippet) + "..."
		}
		parts = append(parts, fmt.Sprintf("%s: %s", m.Role, content))
	}

	result := make([]domain.Message, 0, recentCount+1)
	result = append(result, domain.Message{
		Role:    domain.RoleSystem,
		Content: summaryPrefix + strings.Join(parts, " | "),
	})
	result = append(result, recent...)

	return result
}

// SanitizeUserInput trims, collapses internal whitespace runs to single
// spaces, and truncates to MaxInputLength. Idempotent.
func SanitizeUserInput(input string) string {
	out := whitespaceRun.ReplaceAllString(strings.TrimSpace(input), " ")
	if len(out) > MaxInputLength {
		out = strings.TrimRight(truncateRunes(out, MaxInputLength), " ")
	}
	return out
}

// truncateRunes cuts s to at most n bytes without splitting a multi-byte
// rune at the boundary.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// BuildChatRequest assembles the final wire payload: system prompt, bounded
// history, then the sanitized user message, with the model configuration
// merged in.
func BuildChatRequest(systemPrompt string, history []domain.Message, userInput string, cfg domain.ModelConfig) domain.ChatRequest {
	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: SanitizeUserInput(userInput)})

	return domain.ChatRequest{
		Model:            cfg.Model,
		Messages:         messages,
		Temperature:      cfg.Temperature,
		MaxTokens:        cfg.MaxTokens,
		TopP:             cfg.TopP,
		FrequencyPenalty: cfg.FrequencyPenalty,
		PresencePenalty:  cfg.PresencePenalty,
		Stop:             cfg.Stop,
	}
}
