// In file: internal/tools/calculator_tool.go
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CalculateToolName is the function name the model must call.
const CalculateToolName = "calculate"

// Supported operator symbols.
const (
	OpAdd = "+"
	OpSub = "-"
	OpMul = "*"
	OpDiv = "/"
)

// Operators lists the operator symbols accepted by Calculate, in schema order.
var Operators = []string{OpAdd, OpSub, OpMul, OpDiv}

var (
	// ErrDivisionByZero is returned by Calculate for "/" with a zero divisor.
	ErrDivisionByZero = errors.New("division by zero is not allowed (b = 0)")
	// ErrUnsupportedOperation is the parent of every UnsupportedOperationError.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrInvalidArguments wraps every argument decoding failure reported by
	// CalculatorTool.Execute, so callers can tell a bad payload apart from a
	// failed calculation.
	ErrInvalidArguments = errors.New("invalid arguments")
)

// UnsupportedOperationError names an operator symbol Calculate does not know.
type UnsupportedOperationError struct {
	Op string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("invalid operation: %q. Supported operations are +, -, *, /", e.Op)
}

func (e *UnsupportedOperationError) Unwrap() error { return ErrUnsupportedOperation }

// Calculate applies a single binary operator to two operands.
// Division always uses floating-point semantics.
func Calculate(a, b float64, op string) (float64, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return a / b, nil
	default:
		return 0, &UnsupportedOperationError{Op: op}
	}
}

// CalculateArgs is the strongly typed form of a "calculate" invocation.
type CalculateArgs struct {
	A           float64 `json:"a"`
	B           float64 `json:"b"`
	Op          string  `json:"op"`
	IsFinalStep bool    `json:"is_final_step"`
}

// DecodeCalculateArgs decodes the raw JSON arguments of a "calculate" call.
// The payload is first read as an untyped object and checked field by field,
// so a missing field is reported instead of silently becoming a zero value.
func DecodeCalculateArgs(arguments string) (CalculateArgs, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(arguments), &raw); err != nil {
		return CalculateArgs{}, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	if raw == nil {
		return CalculateArgs{}, errors.New("arguments are not a JSON object")
	}

	var args CalculateArgs
	var ok bool
	for _, field := range []string{"a", "b", "op", "is_final_step"} {
		v, present := raw[field]
		if !present {
			return CalculateArgs{}, fmt.Errorf("missing required field %q", field)
		}
		switch field {
		case "a":
			args.A, ok = v.(float64)
		case "b":
			args.B, ok = v.(float64)
		case "op":
			args.Op, ok = v.(string)
		case "is_final_step":
			args.IsFinalStep, ok = v.(bool)
		}
		if !ok {
			return CalculateArgs{}, fmt.Errorf("field %q has unexpected type %T", field, v)
		}
	}
	return args, nil
}

// --- Calculator Tool Implementation ---

// CalculatorTool exposes Calculate to the model as the "calculate" function.
// It is stateless, so a single instance can serve any number of runs.
type CalculatorTool struct{}

var _ ToolExecutor = (*CalculatorTool)(nil)

// NewCalculatorTool creates the calculator tool. Register it with a
// ToolManager to make it callable by the model.
func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{}
}

// Definition describes one binary operation per call. The model decides the
// order of operations; is_final_step marks the call that yields the answer.
func (ct *CalculatorTool) Definition() Tool {
	noExtra := false
	return NewFunctionTool(
		CalculateToolName,
		"Given two numbers a and b and an operation op, perform the operation a op b. "+
			"Set is_final_step to true only for the call that produces the final result of the whole expression.",
		JSONSchema{
			Type: "object",
			Properties: map[string]*JSONSchema{
				"a": {
					Type:        "number",
					Description: "First number.",
				},
				"b": {
					Type:        "number",
					Description: "Second number.",
				},
				"op": {
					Type:        "string",
					Description: "Operation to perform on the two numbers.",
					Enum:        Operators,
				},
				"is_final_step": {
					Type:        "boolean",
					Description: "True if this calculation produces the final result of the expression.",
				},
			},
			Required:             []string{"a", "b", "op", "is_final_step"},
			AdditionalProperties: &noExtra,
		},
	)
}

// Execute decodes the model's arguments, runs the calculation and returns the
// tool-result payload {"result": x}.
func (ct *CalculatorTool) Execute(arguments string) (string, error) {
	args, err := DecodeCalculateArgs(arguments)
	if err != nil {
		return "", fmt.Errorf("%w for calculator: %w", ErrInvalidArguments, err)
	}
	result, err := Calculate(args.A, args.B, args.Op)
	if err != nil {
		return "", err
	}
	return ResultPayload(result)
}

// resultPayload is the JSON object carried by a tool-result turn.
type resultPayload struct {
	Result *float64 `json:"result"`
}

// ResultPayload renders the content of a tool-result turn. The number is
// written in its shortest exact form, so ParseResultPayload recovers the
// identical float64.
func ResultPayload(result float64) (string, error) {
	b, err := json.Marshal(resultPayload{Result: &result})
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return string(b), nil
}

// ParseResultPayload reads the number back out of a {"result": x} payload.
func ParseResultPayload(payload string) (float64, error) {
	var p resultPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return 0, fmt.Errorf("failed to decode tool result: %w", err)
	}
	if p.Result == nil {
		return 0, fmt.Errorf("tool result has no \"result\" field: %s", payload)
	}
	return *p.Result, nil
}
