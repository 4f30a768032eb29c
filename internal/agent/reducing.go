// In file: internal/agent/reducing.go
package agent

import (
	"context"
	"strings"

	"github.com/dileep-u-k/llm-calculator/internal/llm"
)

// ReducingAgent rewrites the expression after each model call, replacing the
// computed operation with its result, and starts every call from a fresh
// two-turn conversation built around the reduced text.
type ReducingAgent struct {
	*orchestrator
}

var _ Evaluator = (*ReducingAgent)(nil)

// NewReducingAgent validates cfg and builds a reducing orchestrator. The
// client is required; the calculator is registered unless WithToolManager
// supplies another registry.
func NewReducingAgent(client llm.LLMClient, cfg Config, opts ...Option) (*ReducingAgent, error) {
	o, err := newOrchestrator(ModeReducing, client, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &ReducingAgent{orchestrator: o}, nil
}

// Run evaluates expression and returns only its value.
func (a *ReducingAgent) Run(ctx context.Context, expression string) (float64, error) {
	ev, err := a.Evaluate(ctx, expression)
	if err != nil {
		return 0, err
	}
	return ev.Value, nil
}

// Evaluate validates expression once, then asks the model for one or more
// operations per call until a call is marked final or MaxLLMCalls is reached.
func (a *ReducingAgent) Evaluate(ctx context.Context, expression string) (*Evaluation, error) {
	ev, err := a.begin(expression)
	if err != nil {
		return nil, err
	}

	current := expression
	for i := 1; !ev.State.IsTerminal(); i++ {
		conv := NewConversation(a.cfg.SystemPrompt, renderPrompt(a.cfg.Prompt, current, nil))

		resp, err := a.call(ctx, ev, i, conv)
		if err != nil {
			return a.abort(ev, err)
		}

		res, err := InterpretToolCalls(a.toolManager, resp.ToolCalls, current, true)
		if err != nil {
			return a.abort(ev, err)
		}
		current = res.RemainingExpression
		ev.FinalExpression = current
		ev.Steps = append(ev.Steps, res.Steps...)
		a.logger.Printf("[%s] Call %d: %s --> remaining expression: %s", ev.RunID, i, strings.Join(res.Steps, ", "), current)

		switch {
		case res.IsFinalStep:
			a.finish(ev, res)
		case i >= a.cfg.MaxLLMCalls:
			return a.abort(ev, &MaxIterationsError{Limit: a.cfg.MaxLLMCalls, Steps: ev.Steps})
		default:
			ev.State = StateContinuing
		}
	}
	return ev, nil
}
