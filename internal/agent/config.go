// In file: internal/agent/config.go
package agent

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dileep-u-k/llm-calculator/internal/llm"

	"gopkg.in/yaml.v3"
)

// Mode selects one of the two orchestration loops.
type Mode string

const (
	// ModeReducing rewrites the expression after every step and sends a fresh
	// two-turn conversation each iteration.
	ModeReducing Mode = "reducing"
	// ModeStepwise keeps the expression fixed and carries progress through the
	// step trace or an accumulating transcript.
	ModeStepwise Mode = "stepwise"
)

// Prompt placeholders substituted before each model call.
const (
	PlaceholderExpression = "{EXPRESSION}"
	PlaceholderStepsSoFar = "{STEPS_SO_FAR}"
)

const (
	DefaultMaxExpressionLength = 200
	DefaultMaxLLMCalls         = 10
)

const defaultSystemPrompt = "You are a calculator agent. Given a string describing a mathematical expression, " +
	"you determine the next *single* calculation step to be performed, in the form of a call to the calculate function. " +
	"Each step is specified by two numbers (a, b) and an operation (op). " +
	"The four valid operations are '+', '-', '*' and '/'. " +
	"Respect the usual order of operations and parentheses. " +
	"Set is_final_step to true only when the call produces the result of the whole expression."

const defaultReducingPrompt = "Following is a mathematical expression to be evaluated. " +
	"What is the next function call to be performed? Expression: {EXPRESSION}"

const defaultInitialPrompt = "Following is a mathematical expression to be evaluated. " +
	"What is the first function call to be performed? Expression: {EXPRESSION}"

const defaultSubsequentPrompt = "We are evaluating the expression: {EXPRESSION}\n" +
	"The steps performed so far are:\n{STEPS_SO_FAR}\n" +
	"What is the next function call to be performed?"

// Config is the agent configuration. The YAML keys are shared by the CLI and
// the HTTP server.
type Config struct {
	Mode Mode `yaml:"mode"`

	// Provider settings. These are consumed by the command layer that builds
	// the llm.LLMClient; the orchestrators only read Model.
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	APIKeyEnvVar string `yaml:"api_key_env_var"`
	BaseURL      string `yaml:"base_url"`

	MaxExpressionLength int `yaml:"max_expression_length"`
	MaxLLMCalls         int `yaml:"max_llm_calls"`

	SystemPrompt string `yaml:"system_prompt"`
	// Prompt is the reducing-mode template.
	Prompt string `yaml:"prompt"`
	// InitialPrompt and SubsequentPrompt are the stepwise-mode templates.
	InitialPrompt    string `yaml:"initial_prompt"`
	SubsequentPrompt string `yaml:"subsequent_prompt"`

	// ReturnToolCallMsgs echoes the model's tool-call turn and the tool
	// results back into an accumulating transcript.
	ReturnToolCallMsgs bool `yaml:"return_tool_call_msgs"`
	// AppendMessages keeps the stepwise transcript across iterations instead
	// of rebuilding it.
	AppendMessages bool `yaml:"append_messages"`

	ToolCallRequired llm.ToolChoice `yaml:"tool_call_required"`
	Temperature      *float32       `yaml:"temperature"`
	MaxTokens        int            `yaml:"max_tokens"`
}

// DefaultConfig returns a usable reducing-mode configuration for OpenAI.
func DefaultConfig() Config {
	return Config{
		Mode:                ModeReducing,
		Provider:            "openai",
		Model:               "gpt-4o-mini",
		APIKeyEnvVar:        "OPENAI_API_KEY",
		MaxExpressionLength: DefaultMaxExpressionLength,
		MaxLLMCalls:         DefaultMaxLLMCalls,
		SystemPrompt:        defaultSystemPrompt,
		Prompt:              defaultReducingPrompt,
		InitialPrompt:       defaultInitialPrompt,
		SubsequentPrompt:    defaultSubsequentPrompt,
		ReturnToolCallMsgs:  true,
		AppendMessages:      true,
		ToolCallRequired:    llm.ToolChoiceRequired,
	}
}

// LoadConfig reads a YAML file. Keys missing from the file keep their
// DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read agent config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse agent config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem found, joined into one error.
func (c Config) Validate() error {
	var errs []error
	switch c.Mode {
	case ModeReducing:
		if !strings.Contains(c.Prompt, PlaceholderExpression) {
			errs = append(errs, fmt.Errorf("prompt must contain %s", PlaceholderExpression))
		}
	case ModeStepwise:
		if !strings.Contains(c.InitialPrompt, PlaceholderExpression) {
			errs = append(errs, fmt.Errorf("initial_prompt must contain %s", PlaceholderExpression))
		}
		if strings.TrimSpace(c.SubsequentPrompt) == "" {
			errs = append(errs, errors.New("subsequent_prompt must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q (want %q or %q)", c.Mode, ModeReducing, ModeStepwise))
	}

	if c.MaxExpressionLength <= 0 {
		errs = append(errs, fmt.Errorf("max_expression_length must be positive, got %d", c.MaxExpressionLength))
	}
	if c.MaxLLMCalls <= 0 {
		errs = append(errs, fmt.Errorf("max_llm_calls must be positive, got %d", c.MaxLLMCalls))
	}
	if strings.TrimSpace(c.SystemPrompt) == "" {
		errs = append(errs, errors.New("system_prompt must not be empty"))
	}
	switch c.ToolCallRequired {
	case "", llm.ToolChoiceRequired, llm.ToolChoiceAuto, llm.ToolChoiceNone:
	default:
		errs = append(errs, fmt.Errorf("unknown tool_call_required value %q", c.ToolCallRequired))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max_tokens must not be negative, got %d", c.MaxTokens))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid agent config: %w", errors.Join(errs...))
	}
	return nil
}

// WithMode returns a copy of c running in the given mode.
func (c Config) WithMode(mode Mode) Config {
	c.Mode = mode
	return c
}

// GenerationConfig derives the per-call model parameters.
func (c Config) GenerationConfig() *llm.GenerationConfig {
	choice := c.ToolCallRequired
	if choice == "" {
		choice = llm.ToolChoiceRequired
	}
	return &llm.GenerationConfig{
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		ToolChoice:  choice,
	}
}

func renderPrompt(template, expression string, steps []string) string {
	return strings.NewReplacer(
		PlaceholderExpression, expression,
		PlaceholderStepsSoFar, strings.Join(steps, "\n"),
	).Replace(template)
}
