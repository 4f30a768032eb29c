// In file: cmd/calcagent/version.go
package main

import (
	"fmt"
	"runtime"

	compver "github.com/dileep-u-k/llm-calculator/internal/version"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

// BuildInfo describes the running binary. The package-level variables it is
// built from are overridden with -ldflags at release time.
type BuildInfo struct {
	Version, BuildDate, GitCommit, GoVersion, Platform string
}

// GetBuildInfo returns the build metadata of the running binary.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		BuildDate: buildDate,
		GitCommit: gitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build and component versions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		info := GetBuildInfo()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "calcagent %s (commit %s, built %s)\n", info.Version, info.GitCommit, info.BuildDate)
		fmt.Fprintf(out, "go: %s %s\n", info.GoVersion, info.Platform)
		fmt.Fprintf(out, "tools: %s  prompts: %s  reducer: %s\n",
			compver.ComponentVersions.Tools, compver.ComponentVersions.PromptLogic, compver.ComponentVersions.Reducer)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
