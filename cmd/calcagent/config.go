// In file: cmd/calcagent/config.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dileep-u-k/llm-calculator/internal/agent"
	"github.com/dileep-u-k/llm-calculator/internal/cache"
	"github.com/dileep-u-k/llm-calculator/internal/llm"

	"github.com/joho/godotenv"
)

const defaultPort = "8080"

// AppConfig holds everything the commands need: the agent configuration from
// YAML plus server settings and secrets from the environment.
type AppConfig struct {
	Agent     agent.Config
	APIKey    string
	Port      string
	RedisAddr string
	CacheTTL  time.Duration
}

// loadDotEnv loads a .env file for local development. In Docker, where
// GIN_MODE=release, configuration is provided directly as environment variables.
func loadDotEnv() {
	if os.Getenv("GIN_MODE") == "release" {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: No .env file found for local development.")
	}
}

// LoadConfig reads the agent YAML (or the defaults when path is empty) and
// the environment.
func LoadConfig(path string) (*AppConfig, error) {
	loadDotEnv()

	agentCfg := agent.DefaultConfig()
	if path != "" {
		var err error
		agentCfg, err = agent.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	cfg := &AppConfig{
		Agent:     agentCfg,
		Port:      os.Getenv("PORT"),
		RedisAddr: os.Getenv("REDIS_ADDR"),
		CacheTTL:  cache.DefaultTTL,
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if raw := os.Getenv("CACHE_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_TTL %q: %w", raw, err)
		}
		cfg.CacheTTL = ttl
	}

	keyVar := agentCfg.APIKeyEnvVar
	if keyVar == "" {
		keyVar = defaultKeyVar(agentCfg.Provider)
	}
	cfg.APIKey = os.Getenv(keyVar)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s environment variable is not set", keyVar)
	}
	return cfg, nil
}

// defaultKeyVar maps a provider to the general API key name.
func defaultKeyVar(provider string) string {
	switch strings.ToLower(provider) {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	case "mistral":
		return "MISTRAL_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// newLLMClient builds the adapter for the configured provider. The returned
// close function releases provider connections and is never nil.
func newLLMClient(ctx context.Context, cfg *AppConfig) (llm.LLMClient, func() error, error) {
	noop := func() error { return nil }
	a := cfg.Agent

	switch strings.ToLower(a.Provider) {
	case "", "openai":
		c, err := llm.NewOpenAIClient(cfg.APIKey, a.BaseURL)
		return c, noop, err
	case "mistral":
		c, err := llm.NewMistralClient(cfg.APIKey, a.BaseURL)
		return c, noop, err
	case "anthropic":
		c, err := llm.NewAnthropicClient(cfg.APIKey, a.BaseURL)
		return c, noop, err
	case "gemini":
		c, err := llm.NewGeminiClient(ctx, cfg.APIKey, a.Model)
		if err != nil {
			return nil, noop, err
		}
		return c, c.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown provider %q", a.Provider)
	}
}
