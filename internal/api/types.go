// In file: internal/api/types.go

// Package api holds the request and response types shared between the HTTP
// surface of the calculator agent and its internal packages.
package api

// Usage reports token consumption for one or more model calls.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage report into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// EvaluateRequest is the body accepted by POST /api/v1/evaluate.
type EvaluateRequest struct {
	Expression string `json:"expression" binding:"required"`
	// Mode selects the orchestrator ("reducing" or "stepwise"). Empty means
	// the server's configured default.
	Mode string `json:"mode,omitempty"`
}

// EvaluateResponse is returned for a successful evaluation.
type EvaluateResponse struct {
	Expression  string   `json:"expression"`
	Result      float64  `json:"result"`
	Steps       []string `json:"steps"`
	LLMCalls    int      `json:"llm_calls"`
	Mode        string   `json:"mode"`
	Model       string   `json:"model"`
	Usage       Usage    `json:"usage"`
	CacheStatus string   `json:"cache_status"`
	LatencyMS   int64    `json:"latency_ms"`
	RequestID   string   `json:"request_id"`
}

// ErrorResponse is returned when an evaluation cannot be completed. When the
// run got as far as calling the model, Steps and LLMCalls describe the work
// done before it was aborted.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Kind      string   `json:"kind"`
	Steps     []string `json:"steps,omitempty"`
	LLMCalls  int      `json:"llm_calls,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}
