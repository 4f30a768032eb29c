// In file: internal/llm/constants.go
package llm

import "time"

// Shared by every HTTP-based client in this package.
const (
	defaultTimeout    = 120 * time.Second
	maxRetries        = 3
	initialRetryDelay = 2 * time.Second
	defaultMaxTokens  = 1024
)
