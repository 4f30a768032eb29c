// In file: internal/llm/anthropic_client.go
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dileep-u-k/llm-calculator/internal/api"
	"github.com/dileep-u-k/llm-calculator/internal/tools"
)

const (
	AnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// --- API Data Structures ---

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicRequest struct {
	Model       string               `json:"model"`
	Messages    []anthropicMessage   `json:"messages"`
	System      string               `json:"system,omitempty"`
	Tools       []anthropicTool      `json:"tools,omitempty"`
	ToolChoice  *anthropicToolChoice `json:"tool_choice,omitempty"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature *float32             `json:"temperature,omitempty"`
	TopP        *float32             `json:"top_p,omitempty"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicTool struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	InputSchema tools.JSONSchema `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
}

type anthropicContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Content   string          `json:"content,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Usage   anthropicUsage          `json:"usage"`
}

// --- Main Client ---

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
}

var _ LLMClient = (*AnthropicClient)(nil)

// NewAnthropicClient creates a client for the Anthropic Messages API. An empty
// baseURL selects the public endpoint. The API key is required.
func NewAnthropicClient(apiKey, baseURL string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic API key cannot be empty")
	}
	if baseURL == "" {
		baseURL = AnthropicBaseURL
	}
	return &AnthropicClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		retryDelay: initialRetryDelay,
	}, nil
}

// Generate converts the transcript to Anthropic content blocks, forces a
// tool_use answer when the policy requires one, and maps tool_use blocks in
// the reply back to provider-agnostic tool calls.
func (c *AnthropicClient) Generate(ctx context.Context, messages []Message, config *GenerationConfig, availableTools []tools.Tool) (*GenerationResult, error) {
	payload, err := c.buildRequestPayload(messages, config, availableTools)
	if err != nil {
		return nil, fmt.Errorf("failed to build anthropic request payload: %w", err)
	}
	respBody, err := doWithRetry(ctx, c.httpClient, c.retryDelay, "anthropic", func(ctx context.Context) (*http.Request, error) {
		return c.createRequest(ctx, payload)
	})
	if err != nil {
		return nil, err
	}
	return parseAnthropicResponse(respBody)
}

// --- Helper Functions ---

func (c *AnthropicClient) buildRequestPayload(messages []Message, config *GenerationConfig, availableTools []tools.Tool) ([]byte, error) {
	if config == nil {
		config = &GenerationConfig{}
	}
	systemPrompt, anthropicMsgs := toAnthropicMessages(messages)

	req := anthropicRequest{
		Model:       config.Model,
		Messages:    anthropicMsgs,
		System:      systemPrompt,
		Tools:       toAnthropicTools(availableTools),
		MaxTokens:   defaultMaxTokens,
		Temperature: config.Temperature,
		TopP:        config.TopP,
	}
	if config.MaxTokens > 0 {
		req.MaxTokens = config.MaxTokens
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = anthropicChoice(config.ToolChoice)
	}

	payloadBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	return payloadBytes, nil
}

func anthropicChoice(choice ToolChoice) *anthropicToolChoice {
	switch choice {
	case ToolChoiceRequired:
		return &anthropicToolChoice{Type: "any"}
	case ToolChoiceNone:
		return &anthropicToolChoice{Type: "none"}
	default:
		return &anthropicToolChoice{Type: "auto"}
	}
}

// toAnthropicMessages lifts system turns into the top-level system prompt and
// converts tool traffic into tool_use / tool_result blocks. Consecutive turns
// with the same role are merged, since tool results travel as user content.
func toAnthropicMessages(messages []Message) (string, []anthropicMessage) {
	var systemParts []string
	var out []anthropicMessage

	for _, msg := range messages {
		var role string
		var blocks []anthropicContentBlock

		switch msg.Role {
		case RoleSystem:
			systemParts = append(systemParts, msg.Content)
			continue
		case RoleTool:
			role = "user"
			blocks = []anthropicContentBlock{{
				Type:      "tool_result",
				ToolUseID: msg.ToolCallID,
				Content:   msg.Content,
			}}
		case RoleAssistant:
			role = "assistant"
			if msg.Content != "" {
				blocks = append(blocks, anthropicContentBlock{Type: "text", Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				input := json.RawMessage(tc.Function.Arguments)
				if !json.Valid(input) {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, anthropicContentBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Function.Name,
					Input: input,
				})
			}
		default:
			role = "user"
			blocks = []anthropicContentBlock{{Type: "text", Text: msg.Content}}
		}

		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			continue
		}
		out = append(out, anthropicMessage{Role: role, Content: blocks})
	}
	return strings.Join(systemParts, "\n\n"), out
}

func toAnthropicTools(toolsToConvert []tools.Tool) []anthropicTool {
	if len(toolsToConvert) == 0 {
		return nil
	}
	out := make([]anthropicTool, 0, len(toolsToConvert))
	for _, t := range toolsToConvert {
		out = append(out, anthropicTool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		})
	}
	return out
}

func parseAnthropicResponse(body []byte) (*GenerationResult, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal anthropic response: %w", err)
	}
	if len(resp.Content) == 0 {
		return nil, errors.New("no content returned from Anthropic")
	}

	var contentBuilder strings.Builder
	var toolCalls []*tools.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			contentBuilder.WriteString(block.Text)
		case "tool_use":
			toolCalls = append(toolCalls, &tools.ToolCall{
				ID:   block.ID,
				Type: tools.ToolTypeFunction,
				Function: tools.ToolCallFunction{
					Name:      block.Name,
					Arguments: string(block.Input),
				},
			})
		}
	}

	return &GenerationResult{
		Content:   strings.TrimSpace(contentBuilder.String()),
		ToolCalls: toolCalls,
		Usage: api.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

func (c *AnthropicClient) createRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")
	return req, nil
}
