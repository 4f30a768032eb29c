// In file: cmd/calcagent/main.go
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "calcagent",
	Short: "Evaluate arithmetic expressions one model-chosen step at a time",
	Long: `calcagent asks a language model to break an arithmetic expression into
single binary operations. Every operation is computed locally; the model only
decides what to compute next.

Examples:
  calcagent eval --config agent.yaml "(10 + 5) * 3 - 20 / 4"
  calcagent eval --mode stepwise "2 * 3 + 4"
  calcagent serve --config agent.yaml
  calcagent version`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "agent config file (YAML); defaults are used when empty")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print the per-call trace")
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
