package service

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/toolfinder/ai-service/internal/cache"
	"github.com/toolfinder/ai-service/internal/domain"
	"github.com/toolfinder/ai-service/internal/executor"
	"github.com/toolfinder/ai-service/internal/metrics"
	"github.com/toolfinder/ai-service/internal/prompt"
	"github.com/toolfinder/ai-service/internal/telemetry"
)

// GenerateOptions parameterizes the content-generation operations. When
// Existing is set the enhance template variant is used instead of create.
type GenerateOptions struct {
	ToolName    string
	ToolPurpose string
	Existing    string
}

// GenerateToolDescription writes or improves the short listing description
// shown on a tool's directory card.
func (s *Service) GenerateToolDescription(ctx context.Context, opts GenerateOptions) (string, error) {
	if opts.ToolName == "" {
		return "", invalidInput("tool name is required")
	}
	if opts.Existing == "" && strings.TrimSpace(opts.ToolPurpose) == "" {
		return "", invalidInput("tool purpose is required")
	}

	template := prompt.DescriptionCreateTemplate
	if opts.Existing != "" {
		template = prompt.DescriptionEnhanceTemplate
	}

	return s.generate(ctx, OpDescription, domain.TaskCreative, s.cfg.ModelFor(s.cfg.CreativeModel), template, opts)
}

// GenerateToolPrompt writes or improves the system prompt a tool author
// attaches to their tool.
func (s *Service) GenerateToolPrompt(ctx context.Context, opts GenerateOptions) (string, error) {
	if opts.ToolName == "" {
		return "", invalidInput("tool name is required")
	}
	if opts.Existing == "" && strings.TrimSpace(opts.ToolPurpose) == "" {
		return "", invalidInput("tool purpose is required")
	}

	template := prompt.ToolPromptCreateTemplate
	if opts.Existing != "" {
		template = prompt.ToolPromptEnhanceTemplate
	}

	// Prompt text rewards precision over flair, hence the technical preset.
	return s.generate(ctx, OpToolPrompt, domain.TaskTechnical, s.cfg.ModelFor(s.cfg.DefaultModel), template, opts)
}

// GenerateToolName suggests a short name from a free-text purpose.
func (s *Service) GenerateToolName(ctx context.Context, opts GenerateOptions) (string, error) {
	if strings.TrimSpace(opts.ToolPurpose) == "" {
		return "", invalidInput("tool purpose is required")
	}

	return s.generate(ctx, OpName, domain.TaskCreative, s.cfg.ModelFor(s.cfg.CreativeModel), prompt.NameTemplate, opts)
}

// GenerateWelcomeMessage writes the first assistant message shown when a
// tool's chat widget opens.
func (s *Service) GenerateWelcomeMessage(ctx context.Context, opts GenerateOptions) (string, error) {
	if opts.ToolName == "" {
		return "", invalidInput("tool name is required")
	}
	if strings.TrimSpace(opts.ToolPurpose) == "" {
		return "", invalidInput("tool purpose is required")
	}

	return s.generate(ctx, OpWelcome, domain.TaskCreative, s.cfg.ModelFor(s.cfg.CreativeModel), prompt.WelcomeTemplate, opts)
}

// generate runs one content-generation request: rate limit, cache lookup,
// provider call with the reduced budget, cleanup, cache fill. Unlike
// suggestions, failures here propagate so the form can surface them.
func (s *Service) generate(ctx context.Context, operation string, task domain.TaskType, model, template string, opts GenerateOptions) (string, error) {
	if err := s.checkRateLimit(ctx, operation); err != nil {
		return "", err
	}

	systemPrompt := prompt.Build(template, map[string]string{
		"tool_name":    opts.ToolName,
		"tool_purpose": prompt.SanitizeUserInput(opts.ToolPurpose),
		"existing":     prompt.SanitizeUserInput(opts.Existing),
	})

	cfg := prompt.ConfigFor(task, model, nil)
	req := prompt.BuildChatRequest(systemPrompt, nil, "Generate it now.", cfg)

	var key string
	if s.cache != nil {
		key = cache.Key(operation, req)
		_, span := telemetry.StartSpan(ctx, "service."+operation+".cache")
		cached, ok := s.cache.Get(ctx, key)
		telemetry.AddCacheAttribute(span, ok)
		span.End()
		if ok {
			metrics.RecordCacheHit(operation)
			return cached.Content, nil
		}
		metrics.RecordCacheMiss(operation)
	}

	resp, err := s.complete(ctx, operation, req, executor.Options{
		MaxRetries: generateMaxRetries,
		Timeout:    generateTimeout,
	})
	if err != nil {
		return "", err
	}

	content := CleanupGenerated(resp.Content)
	if content == "" {
		return "", domain.NewServiceError(
			"model returned empty content",
			domain.CodeInvalidResponse,
			http.StatusInternalServerError,
			false,
		)
	}

	if s.cache != nil {
		cleaned := *resp
		cleaned.Content = content
		if err := s.cache.Set(ctx, key, &cleaned, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("cache set failed", "operation", operation, "error", err)
		}
	}

	return content, nil
}

func invalidInput(message string) *domain.ServiceError {
	return domain.NewServiceError(message, domain.CodeInvalidInput, http.StatusBadRequest, false)
}

var (
	optionPrefix    = regexp.MustCompile(`(?i)^option\s*\d+\s*[:.\-]\s*`)
	boilerplateLead = regexp.MustCompile(`(?i)^(sure[,!]?\s*)?here( is|'s)\s+(the|a|your)\s+[^:\n]{0,60}:\s*`)
)

// CleanupGenerated normalizes raw model output into text safe to drop into a
// form field: labels, markdown bold, lead-in boilerplate, and wrapping quotes
// are removed.
func CleanupGenerated(text string) string {
	out := strings.TrimSpace(text)
	out = boilerplateLead.ReplaceAllString(out, "")
	out = optionPrefix.ReplaceAllString(out, "")
	out = strings.ReplaceAll(out, "**", "")
	out = strings.TrimSpace(out)

	for len(out) >= 2 {
		first, last := out[0], out[len(out)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			out = strings.TrimSpace(out[1 : len(out)-1])
			continue
		}
		break
	}

	return out
}
