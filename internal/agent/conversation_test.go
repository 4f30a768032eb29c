package agent

import (
	"testing"

	"github.com/dileep-u-k/llm-calculator/internal/llm"
	"github.com/dileep-u-k/llm-calculator/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation(t *testing.T) {
	conv := NewConversation("system", "what is 2 * 3?")
	require.Equal(t, 2, conv.Len())

	call := calculateCall(op{2, 3, "*", false})
	conv.AddAssistantMessage("", []*tools.ToolCall{call})
	require.NoError(t, conv.AddToolResultMessage(6, call.ID))
	conv.AddUserMessage("next?")

	msgs := conv.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, llm.RoleUser, msgs[1].Role)
	assert.Equal(t, llm.RoleAssistant, msgs[2].Role)
	assert.Equal(t, []*tools.ToolCall{call}, msgs[2].ToolCalls)
	assert.Equal(t, llm.RoleTool, msgs[3].Role)
	assert.Equal(t, call.ID, msgs[3].ToolCallID)
	assert.JSONEq(t, `{"result": 6}`, msgs[3].Content)
	assert.Equal(t, "next?", msgs[4].Content)

	assert.Contains(t, conv.String(), "<reply to "+call.ID+">")
}

func TestConversation_MessagesIsACopy(t *testing.T) {
	conv := NewConversation("system", "user")
	snapshot := conv.Messages()
	snapshot[0].Content = "changed"
	conv.AddUserMessage("more")

	assert.Len(t, snapshot, 2)
	assert.Equal(t, "system", conv.Messages()[0].Content)
}

func TestState(t *testing.T) {
	assert.True(t, StateDone.IsTerminal())
	assert.True(t, StateAborted.IsTerminal())
	for _, s := range []State{StateAwaitingModel, StateProcessingResponse, StateContinuing} {
		assert.False(t, s.IsTerminal(), s.String())
	}
}
