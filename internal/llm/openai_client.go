// In file: internal/llm/openai_client.go
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
	OpenAIBaseURL  = "https://api.openai.com/v1"
	MistralBaseURL = "https://api.mistral.ai/v1"
)

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []tools.Tool    `json:"tools,omitempty"`
	ToolChoice  string          `json:"tool_choice,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float32        `json:"temperature,omitempty"`
	TopP        *float32        `json:"top_p,omitempty"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []tools.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage api.Usage `json:"usage"`
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
// OpenAI and Mistral share the wire format and differ only in base URL and
// in the spelling of the forced tool-choice value.
type OpenAIClient struct {
	provider       string
	apiKey         string
	baseURL        string
	requiredChoice string
	httpClient     *http.Client
	retryDelay     time.Duration
}

var _ LLMClient = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client for the OpenAI API. An empty baseURL
// selects the public endpoint.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key cannot be empty")
	}
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	return &OpenAIClient{
		provider:       "openai",
		apiKey:         apiKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		requiredChoice: string(ToolChoiceRequired),
		httpClient:     &http.Client{Timeout: defaultTimeout},
		retryDelay:     initialRetryDelay,
	}, nil
}

// NewMistralClient creates a client for the Mistral API.
func NewMistralClient(apiKey, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("Mistral API key cannot be empty")
	}
	if baseURL == "" {
		baseURL = MistralBaseURL
	}
	c, err := NewOpenAIClient(apiKey, baseURL)
	if err != nil {
		return nil, err
	}
	c.provider = "mistral"
	c.requiredChoice = "any"
	return c, nil
}

// Generate performs a blocking chat completion request.
func (c *OpenAIClient) Generate(
	ctx context.Context,
	messages []Message,
	config *GenerationConfig,
	availableTools []tools.Tool,
) (*GenerationResult, error) {
	payload, err := c.buildRequestPayload(messages, config, availableTools)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request payload: %w", c.provider, err)
	}

	respBody, err := doWithRetry(ctx, c.httpClient, c.retryDelay, c.provider, func(ctx context.Context) (*http.Request, error) {
		return c.createRequest(ctx, payload)
	})
	if err != nil {
		return nil, err
	}
	return parseOpenAIResponse(respBody)
}

func (c *OpenAIClient) buildRequestPayload(messages []Message, config *GenerationConfig, availableTools []tools.Tool) ([]byte, error) {
	if config == nil {
		config = &GenerationConfig{}
	}
	req := openAIRequest{
		Model:       config.Model,
		Messages:    toOpenAIMessages(messages),
		Tools:       availableTools,
		Temperature: config.Temperature,
		TopP:        config.TopP,
	}
	if config.MaxTokens > 0 {
		req.MaxTokens = config.MaxTokens
	}
	if len(availableTools) > 0 {
		req.ToolChoice = c.toolChoice(config.ToolChoice)
	}

	payloadBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	return payloadBytes, nil
}

func (c *OpenAIClient) toolChoice(choice ToolChoice) string {
	switch choice {
	case ToolChoiceRequired:
		return c.requiredChoice
	case ToolChoiceNone:
		return string(ToolChoiceNone)
	default:
		return string(ToolChoiceAuto)
	}
}

func (c *OpenAIClient) createRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}

// toOpenAIMessages converts the transcript to the chat completions format.
func toOpenAIMessages(messages []Message) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages))
	for _, msg := range messages {
		m := openAIMessage{Role: string(msg.Role), Content: msg.Content}
		switch msg.Role {
		case RoleTool:
			m.ToolCallID = msg.ToolCallID
		case RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				m.ToolCalls = make([]tools.ToolCall, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					m.ToolCalls[i] = *tc
					m.ToolCalls[i].Type = tools.ToolTypeFunction
				}
			}
		}
		out = append(out, m)
	}
	return out
}

func parseOpenAIResponse(body []byte) (*GenerationResult, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat completion response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices returned from chat completion")
	}

	choice := resp.Choices[0]
	result := &GenerationResult{
		Content: choice.Message.Content,
		Usage:   resp.Usage,
	}
	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, &tools.ToolCall{
			ID:   tc.ID,
			Type: tools.ToolTypeFunction,
			Function: tools.ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return result, nil
}
