package domain

// Role values for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a conversation. Messages are ordered
// chronologically and never mutated after being sent.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TaskType selects a model configuration preset.
type TaskType string

const (
	TaskCreative    TaskType = "creative"
	TaskFactual     TaskType = "factual"
	TaskTechnical   TaskType = "technical"
	TaskSuggestions TaskType = "suggestions"
)

// ModelConfig holds the sampling parameters sent with a completion request.
// Temperature must be in [0,2] and TopP in (0,1].
type ModelConfig struct {
	Model            string   `json:"model"`
	Temperature      float64  `json:"temperature"`
	MaxTokens        int      `json:"max_tokens"`
	TopP             float64  `json:"top_p"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	Stop             []string `json:"stop,omitempty"`
}

// ChatRequest is the wire payload for a chat-completions call.
type ChatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Temperature      float64   `json:"temperature"`
	MaxTokens        int       `json:"max_tokens"`
	TopP             float64   `json:"top_p"`
	FrequencyPenalty *float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64  `json:"presence_penalty,omitempty"`
	Stop             []string  `json:"stop,omitempty"`
}

// ChatResponse is the raw chat-completions response body.
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

type Choice struct {
	Index        int      `json:"index"`
	Message      *Message `json:"message,omitempty"`
	FinishReason string   `json:"finish_reason,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AIResponse is the validated result of one successful completion.
// Produced once per request, never mutated.
type AIResponse struct {
	Content      string `json:"content"`
	Usage        *Usage `json:"usage,omitempty"`
	Model        string `json:"model,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}
