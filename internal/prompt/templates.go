package prompt

// Templates use {{PLACEHOLDER}} markers substituted by Build. Unresolved
// placeholders are left verbatim so a missing context key never breaks a
// request.

// QuickToolTemplate is the system prompt for chat sessions with a directory
// tool. TOOL_PROMPT is the tool author's own instruction text, consumed as an
// opaque string.
const QuickToolTemplate = `You are {{TOOL_NAME}}, an AI assistant from the ToolFinder directory.

{{TOOL_PROMPT}}

Guidelines:
- Stay in character as {{TOOL_NAME}} at all times.
- Be concise and directly useful; avoid filler.
- If a request falls outside your purpose, say so briefly and steer back.`

// SuggestionsTemplate asks the model for follow-up questions a user might
// tap after the assistant's last message. The JSON shape is parsed by the
// suggestions pipeline; free-text answers are recovered heuristically.
const SuggestionsTemplate = `You generate follow-up suggestions for a conversation with {{TOOL_NAME}}.

The assistant just said:
{{LAST_MESSAGE}}

Recent context:
{{CONTEXT}}

Reply with a JSON object of exactly {{COUNT}} short follow-up questions or
requests the user might send next, each 2-8 words long:
{"suggestions": ["...", "...", "..."]}

Return only the JSON object, nothing else.`

// DescriptionCreateTemplate and DescriptionEnhanceTemplate produce the short
// listing description shown on a tool's directory card.
const DescriptionCreateTemplate = `Write a compelling one-paragraph description (40-70 words) for a directory listing of an AI tool named "{{TOOL_NAME}}".

What the tool does:
{{TOOL_PURPOSE}}

Write in third person, present tense. No markdown, no headings, no quotes.`

const DescriptionEnhanceTemplate = `Improve the following directory listing description for the AI tool "{{TOOL_NAME}}". Keep it one paragraph of 40-70 words, third person, present tense. No markdown, no quotes.

Current description:
{{EXISTING}}`

// ToolPromptCreateTemplate and ToolPromptEnhanceTemplate produce the system
// prompt a tool author can attach to their tool.
const ToolPromptCreateTemplate = `Write a system prompt for an AI assistant named "{{TOOL_NAME}}".

Purpose:
{{TOOL_PURPOSE}}

The prompt should define the assistant's role, tone, and boundaries in 3-6
sentences. Address the assistant directly ("You are..."). Output only the
prompt text.`

const ToolPromptEnhanceTemplate = `Rewrite the following system prompt for the AI assistant "{{TOOL_NAME}}" to be clearer and more specific. Keep it 3-6 sentences, addressed directly to the assistant. Output only the prompt text.

Current prompt:
{{EXISTING}}`

// NameTemplate suggests a name from a free-text purpose.
const NameTemplate = `Suggest one short, memorable name (1-3 words) for an AI tool with this purpose:

{{TOOL_PURPOSE}}

Output only the name. No quotes, no explanation, no alternatives.`

// WelcomeTemplate produces the first assistant message shown when a chat
// widget opens.
const WelcomeTemplate = `Write a friendly opening message (1-2 sentences) that the AI assistant "{{TOOL_NAME}}" sends when a user opens the chat.

What the tool does:
{{TOOL_PURPOSE}}

The message should greet the user and invite a first question. Output only the
message text, no quotes.`
