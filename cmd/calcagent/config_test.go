package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dileep-u-k/llm-calculator/internal/agent"
	"github.com/dileep-u-k/llm-calculator/internal/api"
	"github.com/dileep-u-k/llm-calculator/internal/cache"
	"github.com/dileep-u-k/llm-calculator/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAgentConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("MY_KEY", "secret")
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CACHE_TTL", "90m")

	path := writeAgentConfig(t, "provider: mistral\nmodel: mistral-small-latest\napi_key_env_var: MY_KEY\nmode: stepwise\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 90*time.Minute, cfg.CacheTTL)
	assert.Equal(t, agent.ModeStepwise, cfg.Agent.Mode)
	assert.Equal(t, "mistral-small-latest", cfg.Agent.Model)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "")
	t.Setenv("CACHE_TTL", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, cache.DefaultTTL, cfg.CacheTTL)
	assert.Equal(t, agent.DefaultConfig(), cfg.Agent)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Setenv("GIN_MODE", "release")

	t.Setenv("ANTHROPIC_API_KEY", "")
	path := writeAgentConfig(t, "provider: anthropic\napi_key_env_var: \"\"\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CACHE_TTL", "forever")
	_, err = LoadConfig("")
	assert.ErrorContains(t, err, "invalid CACHE_TTL")

	t.Setenv("CACHE_TTL", "")
	_, err = LoadConfig(writeAgentConfig(t, "max_llm_calls: -1\n"))
	assert.Error(t, err)
}

func TestNewLLMClient(t *testing.T) {
	ctx := context.Background()
	for provider, want := range map[string]any{
		"openai":    &llm.OpenAIClient{},
		"mistral":   &llm.OpenAIClient{},
		"anthropic": &llm.AnthropicClient{},
	} {
		cfg := &AppConfig{Agent: agent.DefaultConfig(), APIKey: "key"}
		cfg.Agent.Provider = provider

		client, closeFn, err := newLLMClient(ctx, cfg)
		require.NoError(t, err, provider)
		assert.IsType(t, want, client, provider)
		assert.NoError(t, closeFn())
	}

	cfg := &AppConfig{Agent: agent.DefaultConfig(), APIKey: "key"}
	cfg.Agent.Provider = "unknown"
	_, _, err := newLLMClient(ctx, cfg)
	assert.Error(t, err)
}

func TestBuildEvaluators(t *testing.T) {
	client, err := llm.NewOpenAIClient("key", "")
	require.NoError(t, err)

	evaluators, err := buildEvaluators(client, agent.DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, evaluators, 2)
	assert.IsType(t, &agent.ReducingAgent{}, evaluators[agent.ModeReducing])
	assert.IsType(t, &agent.StepwiseAgent{}, evaluators[agent.ModeStepwise])

	// A broken template for the secondary mode only drops that mode.
	cfg := agent.DefaultConfig()
	cfg.InitialPrompt = "no placeholder"
	evaluators, err = buildEvaluators(client, cfg)
	require.NoError(t, err)
	assert.Len(t, evaluators, 1)

	cfg.Mode = agent.ModeStepwise
	_, err = buildEvaluators(client, cfg)
	assert.Error(t, err)
}

func TestPrintEvaluation(t *testing.T) {
	var buf bytes.Buffer
	err := printEvaluation(&buf, &agent.Evaluation{
		Expression: "7 / 2",
		Value:      3.5,
		Steps:      []string{"7 / 2 = 3.5"},
		LLMCalls:   1,
		Usage:      api.Usage{TotalTokens: 12},
	})
	require.NoError(t, err)
	assert.Equal(t, " 1. 7 / 2 = 3.5\n7 / 2 = 3.5 (1 model call(s), 12 tokens)\n", buf.String())
}

func TestPrintEvaluation_Aborted(t *testing.T) {
	var buf bytes.Buffer
	err := printEvaluation(&buf, &agent.Evaluation{
		Expression: "2 * 3 / 0",
		Steps:      []string{"2 * 3 = 6"},
		LLMCalls:   2,
		State:      agent.StateAborted,
	})
	require.NoError(t, err)
	assert.Equal(t, " 1. 2 * 3 = 6\n2 * 3 / 0: aborted after 2 model call(s)\n", buf.String())
}
