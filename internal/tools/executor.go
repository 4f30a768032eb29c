// In file: internal/tools/executor.go
package tools

// ToolExecutor is implemented by every tool the agent can run locally.
type ToolExecutor interface {
	// Definition returns the schema advertised to the model.
	Definition() Tool

	// Execute runs the tool with the JSON arguments produced by the model and
	// returns the JSON payload for the tool-result turn.
	Execute(arguments string) (string, error)
}
