// In file: internal/tools/manager.go
package tools

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownTool is the parent of every UnknownToolError.
var ErrUnknownTool = errors.New("unknown tool")

// UnknownToolError is returned when the model calls a function name that
// was never registered. The arguments are not inspected in that case.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool '%s' not found", e.Name)
}

func (e *UnknownToolError) Unwrap() error { return ErrUnknownTool }

// ToolManager is a registry of locally executable tools keyed by function name.
// It is the only path by which a model-issued call reaches local code: a call
// is resolved by its function name, never by the shape of its arguments.
type ToolManager struct {
	tools map[string]ToolExecutor
}

// NewToolManager returns an empty registry. Tools are added with Register.
func NewToolManager() *ToolManager {
	return &ToolManager{
		tools: make(map[string]ToolExecutor),
	}
}

// NewDefaultToolManager returns a registry holding only the calculator, which
// is what both orchestrators advertise unless told otherwise.
func NewDefaultToolManager() *ToolManager {
	tm := NewToolManager()
	tm.Register(NewCalculatorTool())
	return tm
}

// Register adds a tool, replacing any tool already registered under the same name.
func (tm *ToolManager) Register(tool ToolExecutor) {
	name := tool.Definition().Function.Name
	tm.tools[name] = tool
}

// GetDefinitions returns the definitions of all registered tools, sorted by
// name so that the schema sent to the model is stable between calls.
func (tm *ToolManager) GetDefinitions() []Tool {
	names := make([]string, 0, len(tm.tools))
	for name := range tm.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]Tool, 0, len(names))
	for _, name := range names {
		defs = append(defs, tm.tools[name].Definition())
	}
	return defs
}

// Execute runs a tool by name with the given arguments and returns its JSON
// result payload. An unregistered name yields an *UnknownToolError.
func (tm *ToolManager) Execute(name, arguments string) (string, error) {
	tool, ok := tm.tools[name]
	if !ok {
		return "", &UnknownToolError{Name: name}
	}
	return tool.Execute(arguments)
}

// ToolCount returns the number of registered tools. It is logged when an
// orchestrator starts so a misconfigured registry is visible immediately.
func (tm *ToolManager) ToolCount() int {
	return len(tm.tools)
}
