// In file: internal/llm/client.go

// Package llm contains the provider-agnostic model client contract used by the
// calculator agent and its adapters for OpenAI-compatible, Anthropic and
// Gemini APIs.
package llm

import (
	"context"

	"github.com/dileep-u-k/llm-calculator/internal/api"
	"github.com/dileep-u-k/llm-calculator/internal/tools"
)

// =================================================================================
// Core Data Structures
// =================================================================================

// Role represents the originator of a message in a conversation.
type Role string

// The roles a Message can carry. RoleTool turns answer an earlier assistant
// tool call and must set Message.ToolCallID.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolChoice is the policy that tells the model whether it must call a tool.
type ToolChoice string

const (
	// ToolChoiceRequired forces the model to answer with at least one tool call.
	ToolChoiceRequired ToolChoice = "required"
	// ToolChoiceAuto lets the model decide between text and tool calls.
	ToolChoiceAuto ToolChoice = "auto"
	// ToolChoiceNone forbids tool calls even when tools are supplied.
	ToolChoiceNone ToolChoice = "none"
)

// Message is a single turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// ToolCallID is set on RoleTool turns and names the call being answered.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// ToolCalls is set on RoleAssistant turns that requested tool invocations.
	ToolCalls []*tools.ToolCall `json:"tool_calls,omitempty"`
}

// GenerationConfig holds the per-request generation parameters.
type GenerationConfig struct {
	// The specific model to use for the generation (e.g., "gpt-4o-mini").
	Model string
	// Temperature is a pointer so that 0.0 can be told apart from "unset".
	Temperature *float32
	// MaxTokens caps the completion length. Zero leaves the provider default.
	MaxTokens int
	// TopP is nil unless nucleus sampling is configured explicitly.
	TopP *float32
	// ToolChoice is only sent when tools are supplied. Empty means auto.
	ToolChoice ToolChoice
}

// GenerationResult holds the complete output of one model call.
type GenerationResult struct {
	// Content is any free text the model returned alongside its tool calls.
	Content string
	// ToolCalls may hold several calls when the model batches them.
	ToolCalls []*tools.ToolCall
	// Usage is the token accounting reported by the provider for this call.
	Usage api.Usage
}

// =================================================================================
// LLM Client Interface
// =================================================================================

// LLMClient is the capability the orchestrators depend on: send a transcript
// and a tool schema, block until the model responds.
//
// Implementations own transport concerns (authentication, timeouts, retry with
// backoff). Callers never retry.
type LLMClient interface {
	// Generate sends the transcript and the tools the model may call, and
	// returns the model's reply. The transcript is never modified.
	Generate(
		ctx context.Context,
		messages []Message,
		config *GenerationConfig,
		availableTools []tools.Tool,
	) (*GenerationResult, error)
}
