// In file: cmd/calcagent/eval.go
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dileep-u-k/llm-calculator/internal/agent"

	"github.com/spf13/cobra"
)

var evalMode string

var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluate a single expression",
	Long: `Eval runs one expression through the configured orchestrator and prints
each step followed by the result.

Modes:
  reducing   rewrite the expression after every step (default)
  stepwise   keep the expression and report the steps taken so far`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if evalMode != "" {
			cfg.Agent = cfg.Agent.WithMode(agent.Mode(evalMode))
		}

		ctx := cmd.Context()
		client, closeClient, err := newLLMClient(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeClient(); err != nil {
				log.Printf("WARNING: failed to close model client: %v", err)
			}
		}()

		var traceOut io.Writer = io.Discard
		if verbose {
			traceOut = os.Stderr
		}
		evaluator, err := agent.New(client, cfg.Agent, agent.WithLogger(log.New(traceOut, "", log.LstdFlags)))
		if err != nil {
			return err
		}

		ev, err := evaluator.Evaluate(ctx, args[0])
		if err != nil {
			if ev != nil {
				_ = printEvaluation(cmd.ErrOrStderr(), ev)
			}
			return err
		}
		return printEvaluation(cmd.OutOrStdout(), ev)
	},
}

func printEvaluation(w io.Writer, ev *agent.Evaluation) error {
	for i, step := range ev.Steps {
		if _, err := fmt.Fprintf(w, "%2d. %s\n", i+1, step); err != nil {
			return err
		}
	}
	if ev.State == agent.StateAborted {
		_, err := fmt.Fprintf(w, "%s: aborted after %d model call(s)\n", ev.Expression, ev.LLMCalls)
		return err
	}
	_, err := fmt.Fprintf(w, "%s = %s (%d model call(s), %d tokens)\n",
		ev.Expression, agent.FormatNumber(ev.Value), ev.LLMCalls, ev.Usage.TotalTokens)
	return err
}

func init() {
	evalCmd.Flags().StringVar(&evalMode, "mode", "", "orchestration mode: reducing or stepwise (overrides the config file)")
	rootCmd.AddCommand(evalCmd)
}
