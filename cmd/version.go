package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "threadlens %s\n", Version)
		fmt.Fprintf(cmd.OutOrStdout(), "Build Time: %s\n", BuildTime)
		fmt.Fprintf(cmd.OutOrStdout(), "Git Commit: %s\n", GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
