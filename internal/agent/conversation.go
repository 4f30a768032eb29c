// In file: internal/agent/conversation.go
package agent

import (
	"fmt"
	"strings"

	"github.com/dileep-u-k/llm-calculator/internal/llm"
	"github.com/dileep-u-k/llm-calculator/internal/tools"
)

// Conversation is the ordered transcript exchanged with the model during one
// run. It is owned by a single orchestrator invocation and never shared.
type Conversation struct {
	messages []llm.Message
}

// NewConversation starts a transcript primed with a system instruction and
// the first user prompt.
func NewConversation(systemPrompt, userPrompt string) *Conversation {
	c := &Conversation{}
	c.AddSystemMessage(systemPrompt)
	c.AddUserMessage(userPrompt)
	return c
}

// AddSystemMessage appends a system instruction.
func (c *Conversation) AddSystemMessage(content string) {
	c.messages = append(c.messages, llm.Message{Role: llm.RoleSystem, Content: content})
}

func (c *Conversation) AddUserMessage(content string) {
	c.messages = append(c.messages, llm.Message{Role: llm.RoleUser, Content: content})
}

// AddAssistantMessage records the model's own turn, including its tool calls,
// so later tool-result turns have something to answer.
func (c *Conversation) AddAssistantMessage(content string, toolCalls []*tools.ToolCall) {
	c.messages = append(c.messages, llm.Message{Role: llm.RoleAssistant, Content: content, ToolCalls: toolCalls})
}

// AddToolResultMessage appends the acknowledgement {"result": x} for one call.
func (c *Conversation) AddToolResultMessage(result float64, toolCallID string) error {
	payload, err := tools.ResultPayload(result)
	if err != nil {
		return err
	}
	c.messages = append(c.messages, llm.Message{Role: llm.RoleTool, Content: payload, ToolCallID: toolCallID})
	return nil
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []llm.Message {
	out := make([]llm.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of turns recorded so far.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// String renders the transcript one turn per line for the verbose trace.
func (c *Conversation) String() string {
	var b strings.Builder
	for _, m := range c.messages {
		fmt.Fprintf(&b, "[%s] %s", m.Role, m.Content)
		for _, tc := range m.ToolCalls {
			fmt.Fprintf(&b, " <%s %s(%s)>", tc.ID, tc.Function.Name, tc.Function.Arguments)
		}
		if m.ToolCallID != "" {
			fmt.Fprintf(&b, " <reply to %s>", m.ToolCallID)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
