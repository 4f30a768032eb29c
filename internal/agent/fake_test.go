package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dileep-u-k/llm-calculator/internal/api"
	"github.com/dileep-u-k/llm-calculator/internal/llm"
	"github.com/dileep-u-k/llm-calculator/internal/tools"
)

// scriptedClient replays one canned response per call and records every
// request it receives.
type scriptedClient struct {
	mu        sync.Mutex
	responses []*llm.GenerationResult
	errs      []error
	requests  [][]llm.Message
	configs   []*llm.GenerationConfig
	tools     [][]tools.Tool
	// repeat, when set, is returned once the script runs out.
	repeat *llm.GenerationResult
}

var _ llm.LLMClient = (*scriptedClient)(nil)

func newScriptedClient(responses ...*llm.GenerationResult) *scriptedClient {
	return &scriptedClient{responses: responses}
}

func (c *scriptedClient) Generate(_ context.Context, messages []llm.Message, config *llm.GenerationConfig, availableTools []tools.Tool) (*llm.GenerationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.requests)
	c.requests = append(c.requests, messages)
	c.configs = append(c.configs, config)
	c.tools = append(c.tools, availableTools)

	if n < len(c.errs) && c.errs[n] != nil {
		return nil, c.errs[n]
	}
	if n < len(c.responses) {
		return c.responses[n], nil
	}
	if c.repeat != nil {
		return c.repeat, nil
	}
	return nil, errors.New("scripted client: script exhausted")
}

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// op describes one calculate call in a scripted response.
type op struct {
	a, b  float64
	sym   string
	final bool
}

// registry is the calculator-only tool registry the orchestrators use by default.
var registry = tools.NewDefaultToolManager()

var callSeq int

func calculateCall(o op) *tools.ToolCall {
	callSeq++
	args, _ := json.Marshal(map[string]any{"a": o.a, "b": o.b, "op": o.sym, "is_final_step": o.final})
	return &tools.ToolCall{
		ID:       fmt.Sprintf("call_%d", callSeq),
		Type:     tools.ToolTypeFunction,
		Function: tools.ToolCallFunction{Name: tools.CalculateToolName, Arguments: string(args)},
	}
}

// respond builds one model response carrying the given calls as a batch.
func respond(ops ...op) *llm.GenerationResult {
	calls := make([]*tools.ToolCall, 0, len(ops))
	for _, o := range ops {
		calls = append(calls, calculateCall(o))
	}
	return &llm.GenerationResult{
		ToolCalls: calls,
		Usage:     api.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

// script turns a sequence of single operations into one response each.
func script(ops ...op) []*llm.GenerationResult {
	out := make([]*llm.GenerationResult, 0, len(ops))
	for _, o := range ops {
		out = append(out, respond(o))
	}
	return out
}

func rawCall(id, arguments string) *tools.ToolCall {
	return &tools.ToolCall{
		ID:       id,
		Type:     tools.ToolTypeFunction,
		Function: tools.ToolCallFunction{Name: tools.CalculateToolName, Arguments: arguments},
	}
}

// namedCall is a calculate-shaped call addressed to an arbitrary function name.
func namedCall(name string, o op) *tools.ToolCall {
	call := calculateCall(o)
	call.Function.Name = name
	return call
}

func lastUserContent(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
