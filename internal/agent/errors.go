// In file: internal/agent/errors.go
package agent

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Concrete errors below wrap one of these so callers can
// branch with errors.Is and still get context through errors.As.
var (
	ErrValidation            = errors.New("invalid expression")
	ErrExpressionTooLong     = fmt.Errorf("%w: expression exceeds maximum length", ErrValidation)
	ErrInvalidCharacters     = fmt.Errorf("%w: invalid characters in the expression", ErrValidation)
	ErrNoToolCall            = errors.New("expected a tool call but received none")
	ErrMalformedArguments    = errors.New("invalid tool call arguments")
	ErrPatternNotFound       = errors.New("operation not found in expression")
	ErrMaxIterationsExceeded = errors.New("max LLM calls reached before final result")
)

// ValidationError reports why an expression was rejected before any model call.
type ValidationError struct {
	Expression string
	Limit      int
	kind       error
}

func (e *ValidationError) Error() string {
	if e.kind == ErrExpressionTooLong {
		return fmt.Sprintf("expression exceeds maximum length of %d characters", e.Limit)
	}
	return fmt.Sprintf("invalid characters in the expression: %q", e.Expression)
}

func (e *ValidationError) Unwrap() error { return e.kind }

// MalformedArgumentsError reports a tool call whose payload could not be decoded.
type MalformedArgumentsError struct {
	CallID    string
	Arguments string
	Err       error
}

func (e *MalformedArgumentsError) Error() string {
	return fmt.Sprintf("invalid tool call arguments format (call %s): %s: %v", e.CallID, e.Arguments, e.Err)
}

func (e *MalformedArgumentsError) Unwrap() []error { return []error{ErrMalformedArguments, e.Err} }

// PatternNotFoundError reports an operation whose operands do not occur in the
// current expression, so the reduced expression cannot be built.
type PatternNotFoundError struct {
	Expression string
	Step       string
}

func (e *PatternNotFoundError) Error() string {
	return fmt.Sprintf("operation %q not found in expression %q", e.Step, e.Expression)
}

func (e *PatternNotFoundError) Unwrap() error { return ErrPatternNotFound }

// MaxIterationsError is returned when the model has not produced a final step
// within the configured number of calls.
type MaxIterationsError struct {
	Limit int
	Steps []string
}

func (e *MaxIterationsError) Error() string {
	msg := fmt.Sprintf("max LLM calls reached before final result. Max calls: %d", e.Limit)
	if len(e.Steps) > 0 {
		msg += fmt.Sprintf(" (steps so far: %s)", strings.Join(e.Steps, ", "))
	}
	return msg
}

func (e *MaxIterationsError) Unwrap() error { return ErrMaxIterationsExceeded }
