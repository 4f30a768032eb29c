// In file: internal/agent/stepwise.go
package agent

import (
	"context"
	"strings"

	"github.com/dileep-u-k/llm-calculator/internal/llm"
)

// StepwiseAgent leaves the expression untouched and tells the model what has
// been computed so far. Depending on AppendMessages the transcript either
// grows across iterations or is rebuilt around the step trace; with
// ReturnToolCallMsgs the model's own tool calls and their results are echoed
// back into the growing transcript.
type StepwiseAgent struct {
	*orchestrator
}

var _ Evaluator = (*StepwiseAgent)(nil)

// NewStepwiseAgent validates cfg and builds a stepwise orchestrator.
func NewStepwiseAgent(client llm.LLMClient, cfg Config, opts ...Option) (*StepwiseAgent, error) {
	o, err := newOrchestrator(ModeStepwise, client, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &StepwiseAgent{orchestrator: o}, nil
}

// Run evaluates expression and returns only its value.
func (a *StepwiseAgent) Run(ctx context.Context, expression string) (float64, error) {
	ev, err := a.Evaluate(ctx, expression)
	if err != nil {
		return 0, err
	}
	return ev.Value, nil
}

// Evaluate validates expression once and keeps it fixed for the whole run.
// Progress reaches the model only through the transcript and the step list
// rendered into SubsequentPrompt.
func (a *StepwiseAgent) Evaluate(ctx context.Context, expression string) (*Evaluation, error) {
	ev, err := a.begin(expression)
	if err != nil {
		return nil, err
	}

	conv := NewConversation(a.cfg.SystemPrompt, renderPrompt(a.cfg.InitialPrompt, expression, nil))
	for i := 1; !ev.State.IsTerminal(); i++ {
		resp, err := a.call(ctx, ev, i, conv)
		if err != nil {
			return a.abort(ev, err)
		}

		res, err := InterpretToolCalls(a.toolManager, resp.ToolCalls, expression, false)
		if err != nil {
			return a.abort(ev, err)
		}
		ev.Steps = append(ev.Steps, res.Steps...)
		a.logger.Printf("[%s] Call %d: %s", ev.RunID, i, strings.Join(res.Steps, ", "))

		switch {
		case res.IsFinalStep:
			a.finish(ev, res)
		case i >= a.cfg.MaxLLMCalls:
			return a.abort(ev, &MaxIterationsError{Limit: a.cfg.MaxLLMCalls, Steps: ev.Steps})
		default:
			conv, err = a.nextConversation(conv, expression, ev.Steps, resp, res)
			if err != nil {
				return a.abort(ev, err)
			}
			ev.State = StateContinuing
		}
	}
	return ev, nil
}

// nextConversation prepares the transcript for the following call. steps is
// never mutated.
func (a *StepwiseAgent) nextConversation(conv *Conversation, expression string, steps []string, resp *llm.GenerationResult, res *ToolCallResult) (*Conversation, error) {
	next := renderPrompt(a.cfg.SubsequentPrompt, expression, steps)
	if !a.cfg.AppendMessages {
		return NewConversation(a.cfg.SystemPrompt, next), nil
	}

	if a.cfg.ReturnToolCallMsgs {
		conv.AddAssistantMessage(resp.Content, resp.ToolCalls)
		for _, r := range res.Results {
			if err := conv.AddToolResultMessage(r.Value, r.CallID); err != nil {
				return nil, err
			}
		}
	}
	conv.AddUserMessage(next)
	return conv, nil
}
