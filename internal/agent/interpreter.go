// In file: internal/agent/interpreter.go
package agent

import (
	"errors"
	"fmt"

	"github.com/dileep-u-k/llm-calculator/internal/tools"
)

// OperationRequest is one decoded "calculate" call.
type OperationRequest struct {
	CallID  string
	A       float64
	B       float64
	Op      string
	IsFinal bool
}

// CallResult pairs a computed value with the call that asked for it.
type CallResult struct {
	Value  float64
	CallID string
}

// ToolCallResult is everything a single model response contributed.
type ToolCallResult struct {
	Results []CallResult
	// IsFinalStep is taken from the last call in the batch.
	IsFinalStep bool
	Steps       []string
	// RemainingExpression is the input expression with every call of the
	// batch folded in. It equals the input when reduction is off.
	RemainingExpression string
}

// Value returns the result of the last call in the batch.
func (r *ToolCallResult) Value() float64 {
	if len(r.Results) == 0 {
		return 0
	}
	return r.Results[len(r.Results)-1].Value
}

// DecodeOperation converts a raw tool call into a typed OperationRequest.
func DecodeOperation(call *tools.ToolCall) (OperationRequest, error) {
	args, err := tools.DecodeCalculateArgs(call.Function.Arguments)
	if err != nil {
		return OperationRequest{}, &MalformedArgumentsError{CallID: call.ID, Arguments: call.Function.Arguments, Err: err}
	}
	return OperationRequest{
		CallID:  call.ID,
		A:       args.A,
		B:       args.B,
		Op:      args.Op,
		IsFinal: args.IsFinalStep,
	}, nil
}

// InterpretToolCalls executes a batch of calls in the order received. Every
// call is resolved by name through tm, so a call to an unregistered function
// fails with a *tools.UnknownToolError whatever its arguments look like. A nil
// tm means the calculator alone. With reduce set, each call is folded into the
// expression as already rewritten by the calls before it. Any failure aborts
// the whole batch.
func InterpretToolCalls(tm *tools.ToolManager, calls []*tools.ToolCall, expression string, reduce bool) (*ToolCallResult, error) {
	if len(calls) == 0 {
		return nil, ErrNoToolCall
	}
	if tm == nil {
		tm = tools.NewDefaultToolManager()
	}

	out := &ToolCallResult{
		Results:             make([]CallResult, 0, len(calls)),
		Steps:               make([]string, 0, len(calls)),
		RemainingExpression: expression,
	}
	for _, call := range calls {
		if call == nil {
			return nil, ErrNoToolCall
		}
		value, err := executeCall(tm, call)
		if err != nil {
			return nil, err
		}
		req, err := DecodeOperation(call)
		if err != nil {
			return nil, err
		}
		if reduce {
			out.RemainingExpression, err = ReduceExpression(out.RemainingExpression, req.A, req.B, req.Op, value)
			if err != nil {
				return nil, err
			}
		}
		out.Results = append(out.Results, CallResult{Value: value, CallID: req.CallID})
		out.Steps = append(out.Steps, FormatStep(req.A, req.B, req.Op, value))
		out.IsFinalStep = req.IsFinal
	}
	return out, nil
}

// executeCall runs one call through the registry and reads back its result.
func executeCall(tm *tools.ToolManager, call *tools.ToolCall) (float64, error) {
	payload, err := tm.Execute(call.Function.Name, call.Function.Arguments)
	if errors.Is(err, tools.ErrInvalidArguments) {
		return 0, &MalformedArgumentsError{CallID: call.ID, Arguments: call.Function.Arguments, Err: err}
	}
	if err != nil {
		return 0, err
	}
	value, err := tools.ParseResultPayload(payload)
	if err != nil {
		return 0, fmt.Errorf("tool %s returned an unusable result: %w", call.Function.Name, err)
	}
	return value, nil
}
