// In file: internal/agent/agent.go

// Package agent drives a language model through the evaluation of an
// arithmetic expression, one binary operation per tool call. The model picks
// the order of operations; every operation is computed locally.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/dileep-u-k/llm-calculator/internal/api"
	"github.com/dileep-u-k/llm-calculator/internal/llm"
	"github.com/dileep-u-k/llm-calculator/internal/tools"

	"github.com/google/uuid"
)

// Evaluator is implemented by both orchestrators.
type Evaluator interface {
	// Run returns only the final value.
	Run(ctx context.Context, expression string) (float64, error)
	// Evaluate returns the value together with the trace of the run. The
	// Evaluation is nil only when the expression is rejected before the
	// first model call.
	Evaluate(ctx context.Context, expression string) (*Evaluation, error)
}

// Evaluation is the trace of one run. A run that fails after it has started
// still returns its Evaluation alongside the error, with State set to
// StateAborted and the steps completed before the failure.
type Evaluation struct {
	RunID      string
	Mode       Mode
	Expression string
	Value      float64
	// Steps holds every step record in execution order, final step included.
	Steps    []string
	LLMCalls int
	// FinalExpression is the fully reduced text in reducing mode and the
	// unchanged input in stepwise mode.
	FinalExpression string
	Usage           api.Usage
	State           State
}

// Option customizes an orchestrator.
type Option func(*orchestrator)

// WithLogger sends the per-iteration trace to l. Without it the trace is discarded.
func WithLogger(l *log.Logger) Option {
	return func(o *orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithToolManager replaces the registry whose definitions are sent to the model.
func WithToolManager(tm *tools.ToolManager) Option {
	return func(o *orchestrator) {
		if tm != nil {
			o.toolManager = tm
		}
	}
}

// orchestrator holds what both loops share.
type orchestrator struct {
	mode        Mode
	client      llm.LLMClient
	cfg         Config
	genConfig   *llm.GenerationConfig
	toolManager *tools.ToolManager
	logger      *log.Logger
}

func newOrchestrator(mode Mode, client llm.LLMClient, cfg Config, opts ...Option) (*orchestrator, error) {
	if client == nil {
		return nil, errors.New("agent: nil LLM client")
	}
	cfg = cfg.WithMode(mode)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &orchestrator{
		mode:        mode,
		client:      client,
		cfg:         cfg,
		genConfig:   cfg.GenerationConfig(),
		toolManager: tools.NewDefaultToolManager(),
		logger:      log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.toolManager.ToolCount() == 0 {
		return nil, errors.New("agent: tool manager has no tools registered")
	}
	o.logger.Printf("%s orchestrator ready: model %s, tool manager initialized with %d tool(s)", mode, cfg.Model, o.toolManager.ToolCount())
	return o, nil
}

// New builds the orchestrator selected by cfg.Mode.
func New(client llm.LLMClient, cfg Config, opts ...Option) (Evaluator, error) {
	switch cfg.Mode {
	case ModeStepwise:
		a, err := NewStepwiseAgent(client, cfg, opts...)
		if err != nil {
			return nil, err
		}
		return a, nil
	case ModeReducing, "":
		a, err := NewReducingAgent(client, cfg, opts...)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}

func (o *orchestrator) begin(expression string) (*Evaluation, error) {
	if err := ValidateExpression(expression, o.cfg.MaxExpressionLength); err != nil {
		return nil, err
	}
	ev := &Evaluation{
		RunID:           uuid.NewString(),
		Mode:            o.mode,
		Expression:      expression,
		FinalExpression: expression,
		State:           StateAwaitingModel,
	}
	o.logger.Printf("[%s] Input expression: %s", ev.RunID, expression)
	return ev, nil
}

// call performs model call number i and records it on ev.
func (o *orchestrator) call(ctx context.Context, ev *Evaluation, i int, conv *Conversation) (*llm.GenerationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ev.State = StateAwaitingModel
	o.logger.Printf("[%s] Call %d: sending %d message(s)\n%s", ev.RunID, i, conv.Len(), conv)
	resp, err := o.client.Generate(ctx, conv.Messages(), o.genConfig, o.toolManager.GetDefinitions())
	ev.LLMCalls = i
	if err != nil {
		return nil, fmt.Errorf("model call %d failed: %w", i, err)
	}
	ev.Usage.Add(resp.Usage)
	ev.State = StateProcessingResponse
	return resp, nil
}

// abort ends the run and hands the partial trace back with the error.
func (o *orchestrator) abort(ev *Evaluation, err error) (*Evaluation, error) {
	ev.State = StateAborted
	o.logger.Printf("[%s] Aborted after %d call(s): %v", ev.RunID, ev.LLMCalls, err)
	return ev, err
}

func (o *orchestrator) finish(ev *Evaluation, res *ToolCallResult) {
	ev.Value = res.Value()
	ev.State = StateDone
	o.logger.Printf("[%s] Final result: %s", ev.RunID, FormatNumber(ev.Value))
}
