// In file: internal/tools/types.go

// Package tools defines the provider-agnostic function-calling types used by
// the calculator agent, together with the single trusted tool it exposes to
// the model: the arithmetic "calculate" function.
package tools

// ToolTypeFunction is the only tool type the providers we talk to support.
const ToolTypeFunction = "function"

// Tool is the description of a callable function sent *to* the model.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function names a callable tool and describes its parameters.
type Function struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  JSONSchema `json:"parameters"`
}

// JSONSchema is the subset of JSON Schema needed to describe tool parameters.
type JSONSchema struct {
	// Type is the schema node type ("object", "string", "number", "boolean").
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	// Enum restricts a string parameter to a fixed set of values.
	Enum       []string               `json:"enum,omitempty"`
	Properties map[string]*JSONSchema `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`
	// AdditionalProperties is only emitted for object nodes that set it.
	AdditionalProperties *bool `json:"additionalProperties,omitempty"`
}

// ToolCall is a structured invocation request returned *by* the model.
type ToolCall struct {
	// ID ties the eventual tool-result turn back to this request.
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction carries the function name and its raw JSON arguments.
type ToolCallFunction struct {
	Name string `json:"name"`
	// Arguments is the serialized argument object exactly as the model produced it.
	Arguments string `json:"arguments"`
}

// NewFunctionTool builds a Tool of type "function".
func NewFunctionTool(name, description string, parameters JSONSchema) Tool {
	return Tool{
		Type: ToolTypeFunction,
		Function: Function{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}
