package agent

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/dileep-u-k/llm-calculator/internal/llm"
	"github.com/dileep-u-k/llm-calculator/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReducing(t *testing.T, client llm.LLMClient, mutate func(*Config), opts ...Option) *ReducingAgent {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := NewReducingAgent(client, cfg, opts...)
	require.NoError(t, err)
	return a
}

type scenario struct {
	expression string
	ops        []op
	want       float64
}

// Each script is the sequence a well-behaved model would produce.
var endToEndScenarios = []scenario{
	{"2 + 3", []op{{2, 3, "+", true}}, 5},
	{"2 * 3 + 4", []op{{2, 3, "*", false}, {6, 4, "+", true}}, 10},
	{"(3 + 2) * 4", []op{{3, 2, "+", false}, {5, 4, "*", true}}, 20},
	{"7 / 2", []op{{7, 2, "/", true}}, 3.5},
	{"-5 * 3", []op{{-5, 3, "*", true}}, -15},
	{"(10 + 5) * 3 - 20 / 4", []op{{10, 5, "+", false}, {15, 3, "*", false}, {20, 4, "/", false}, {45, 5, "-", true}}, 40},
	{"0.0001 + 0.0002", []op{{0.0001, 0.0002, "+", true}}, 0.0003},
	{"2.67 * 3.82 + 4.77", []op{{2.67, 3.82, "*", false}, {10.1994, 4.77, "+", true}}, 14.9694},
	{"1234567890123 + 1 * 2", []op{{1, 2, "*", false}, {1234567890123, 2, "+", true}}, 1234567890125},
	{"999999999999 + 2 + 1", []op{{999999999999, 2, "+", false}, {1000000000001, 1, "+", true}}, 1000000000002},
}

func TestReducingAgent_EndToEnd(t *testing.T) {
	for _, sc := range endToEndScenarios {
		t.Run(sc.expression, func(t *testing.T) {
			client := newScriptedClient(script(sc.ops...)...)
			a := newReducing(t, client, nil)

			got, err := a.Run(context.Background(), sc.expression)
			require.NoError(t, err)
			assert.InDelta(t, sc.want, got, 1e-9)
			assert.Equal(t, len(sc.ops), client.calls())
		})
	}
}

func TestReducingAgent_PromptCarriesReducedExpression(t *testing.T) {
	client := newScriptedClient(script(op{3, 2, "+", false}, op{5, 4, "*", true})...)
	a := newReducing(t, client, func(c *Config) {
		c.SystemPrompt = "sys"
		c.Prompt = "Evaluate: {EXPRESSION}"
	})

	ev, err := a.Evaluate(context.Background(), "(3 + 2) * 4")
	require.NoError(t, err)

	require.Len(t, client.requests, 2)
	for _, req := range client.requests {
		// Every call starts from a fresh system + user pair.
		require.Len(t, req, 2)
		assert.Equal(t, llm.RoleSystem, req[0].Role)
		assert.Equal(t, "sys", req[0].Content)
		assert.Equal(t, llm.RoleUser, req[1].Role)
	}
	assert.Equal(t, "Evaluate: (3 + 2) * 4", client.requests[0][1].Content)
	assert.Equal(t, "Evaluate: 5 * 4", client.requests[1][1].Content)

	assert.Equal(t, 20.0, ev.Value)
	assert.Equal(t, ModeReducing, ev.Mode)
	assert.Equal(t, StateDone, ev.State)
	assert.Equal(t, 2, ev.LLMCalls)
	assert.Equal(t, "20", ev.FinalExpression)
	assert.Equal(t, []string{"3 + 2 = 5", "5 * 4 = 20"}, ev.Steps)
	assert.Equal(t, 30, ev.Usage.TotalTokens)
	assert.NotEmpty(t, ev.RunID)
}

func TestReducingAgent_SendsToolSchemaAndPolicy(t *testing.T) {
	client := newScriptedClient(script(op{2, 3, "+", true})...)
	a := newReducing(t, client, func(c *Config) { c.Model = "test-model" })

	_, err := a.Run(context.Background(), "2 + 3")
	require.NoError(t, err)

	require.Len(t, client.configs, 1)
	assert.Equal(t, llm.ToolChoiceRequired, client.configs[0].ToolChoice)
	assert.Equal(t, "test-model", client.configs[0].Model)
	require.Len(t, client.tools[0], 1)
	assert.Equal(t, tools.CalculateToolName, client.tools[0][0].Function.Name)
}

func TestReducingAgent_BatchedFinalStep(t *testing.T) {
	client := newScriptedClient(respond(op{2, 3, "*", false}, op{6, 4, "+", true}))
	a := newReducing(t, client, nil)

	ev, err := a.Evaluate(context.Background(), "2 * 3 + 4")
	require.NoError(t, err)
	assert.Equal(t, 10.0, ev.Value)
	assert.Equal(t, 1, ev.LLMCalls)
	assert.Equal(t, []string{"2 * 3 = 6", "6 + 4 = 10"}, ev.Steps)
}

func TestReducingAgent_TooLongNeverCallsModel(t *testing.T) {
	client := newScriptedClient(script(op{1, 1, "+", true})...)
	a := newReducing(t, client, func(c *Config) { c.MaxExpressionLength = 5 })

	_, err := a.Run(context.Background(), "1 + 1 + 1")
	assert.ErrorIs(t, err, ErrExpressionTooLong)
	assert.Zero(t, client.calls())

	_, err = a.Run(context.Background(), "a+b")
	assert.ErrorIs(t, err, ErrInvalidCharacters)
	assert.Zero(t, client.calls())
}

func TestReducingAgent_MaxIterations(t *testing.T) {
	client := newScriptedClient(script(
		op{1, 1, "+", false},
		op{2, 1, "+", false},
		op{3, 1, "+", false},
		op{4, 1, "+", true},
	)...)
	a := newReducing(t, client, func(c *Config) { c.MaxLLMCalls = 3 })

	_, err := a.Run(context.Background(), "1 + 1 + 1 + 1 + 1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxIterationsExceeded)

	var mErr *MaxIterationsError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, 3, mErr.Limit)
	assert.Equal(t, []string{"1 + 1 = 2", "2 + 1 = 3", "3 + 1 = 4"}, mErr.Steps)
	assert.Equal(t, 3, client.calls())
	assert.True(t, strings.HasPrefix(err.Error(), "max LLM calls reached before final result. Max calls: 3"))
}

func TestReducingAgent_Errors(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		response   *llm.GenerationResult
		want       error
	}{
		{"no tool call", "2 + 3", &llm.GenerationResult{Content: "The answer is 5."}, ErrNoToolCall},
		{"malformed arguments", "2 + 3", &llm.GenerationResult{ToolCalls: []*tools.ToolCall{rawCall("c1", `{"a": 2, "b": 3}`)}}, ErrMalformedArguments},
		{"division by zero", "1 / 0", respond(op{1, 0, "/", true}), tools.ErrDivisionByZero},
		{"unsupported operation", "2 + 3", respond(op{2, 3, "%", true}), tools.ErrUnsupportedOperation},
		{"pattern not found on final step", "2 + 3", respond(op{7, 8, "+", true}), ErrPatternNotFound},
		{"unregistered tool name", "2 + 3", &llm.GenerationResult{ToolCalls: []*tools.ToolCall{namedCall("get_weather", op{2, 3, "+", true})}}, tools.ErrUnknownTool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newScriptedClient(tt.response)
			a := newReducing(t, client, nil)

			ev, err := a.Evaluate(context.Background(), tt.expression)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, client.calls(), "errors are not retried")

			require.NotNil(t, ev)
			assert.Equal(t, StateAborted, ev.State)
			assert.Equal(t, 1, ev.LLMCalls)
			assert.Empty(t, ev.Steps)
			assert.Zero(t, ev.Value)
		})
	}
}

func TestReducingAgent_AbortKeepsPartialTrace(t *testing.T) {
	client := newScriptedClient(script(op{2, 3, "*", false}, op{6, 0, "/", true})...)
	a := newReducing(t, client, nil)

	ev, err := a.Evaluate(context.Background(), "2 * 3 / 0")
	require.ErrorIs(t, err, tools.ErrDivisionByZero)
	require.NotNil(t, ev)
	assert.Equal(t, StateAborted, ev.State)
	assert.Equal(t, 2, ev.LLMCalls)
	assert.Equal(t, []string{"2 * 3 = 6"}, ev.Steps)
	assert.Equal(t, "6 / 0", ev.FinalExpression)
}

func TestReducingAgent_ValidationFailureHasNoTrace(t *testing.T) {
	a := newReducing(t, newScriptedClient(), nil)

	ev, err := a.Evaluate(context.Background(), "2 ^ 3")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Nil(t, ev)
}

func TestReducingAgent_LongIntegerOperands(t *testing.T) {
	client := newScriptedClient(script(op{1, 2, "*", false}, op{1234567890123, 2, "+", true})...)
	a := newReducing(t, client, nil)

	ev, err := a.Evaluate(context.Background(), "1234567890123 + 1 * 2")
	require.NoError(t, err)
	assert.Equal(t, 1234567890125.0, ev.Value)
	assert.Equal(t, "1234567890125", ev.FinalExpression)
	assert.Equal(t, []string{"1 * 2 = 2", "1234567890123 + 2 = 1234567890125"}, ev.Steps)
	assert.Contains(t, lastUserContent(client.requests[1]), "Expression: 1234567890123 + 2")
}

func TestReducingAgent_ModelError(t *testing.T) {
	transport := errors.New("connection reset")
	client := &scriptedClient{errs: []error{transport}}
	a := newReducing(t, client, nil)

	_, err := a.Run(context.Background(), "2 + 3")
	require.Error(t, err)
	assert.ErrorIs(t, err, transport)
	assert.Contains(t, err.Error(), "model call 1 failed")
}

func TestReducingAgent_CancelledContext(t *testing.T) {
	client := newScriptedClient(script(op{2, 3, "+", true})...)
	a := newReducing(t, client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Run(ctx, "2 + 3")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, client.calls())
}

func TestReducingAgent_Logging(t *testing.T) {
	var buf bytes.Buffer
	client := newScriptedClient(script(op{2, 3, "*", false}, op{6, 4, "+", true})...)
	a := newReducing(t, client, nil, WithLogger(log.New(&buf, "", 0)))

	_, err := a.Run(context.Background(), "2 * 3 + 4")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "reducing orchestrator ready")
	assert.Contains(t, out, "initialized with 1 tool(s)")
	assert.Contains(t, out, "Input expression: 2 * 3 + 4")
	assert.Contains(t, out, "Call 1: sending 2 message(s)")
	assert.Contains(t, out, "Call 1: 2 * 3 = 6 --> remaining expression: 6 + 4")
	assert.Contains(t, out, "Call 2: 6 + 4 = 10 --> remaining expression: 10")
	assert.Contains(t, out, "Final result: 10")
}

func TestNewReducingAgent_Rejects(t *testing.T) {
	_, err := NewReducingAgent(nil, DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.MaxLLMCalls = 0
	_, err = NewReducingAgent(newScriptedClient(), cfg)
	assert.Error(t, err)

	_, err = NewReducingAgent(newScriptedClient(), DefaultConfig(), WithToolManager(tools.NewToolManager()))
	assert.Error(t, err)
}

func TestNew_SelectsMode(t *testing.T) {
	client := newScriptedClient()

	e, err := New(client, DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &ReducingAgent{}, e)

	e, err = New(client, DefaultConfig().WithMode(ModeStepwise))
	require.NoError(t, err)
	assert.IsType(t, &StepwiseAgent{}, e)

	_, err = New(client, DefaultConfig().WithMode("other"))
	assert.Error(t, err)
}
