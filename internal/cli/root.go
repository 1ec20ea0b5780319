// Package cli implements the specforge command line.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "specforge",
		Version: Version,
		Short:   "Enhance rough specifications with an LLM",
		Long: `specforge turns a rough feature specification into a structured,
implementation-ready one plus a short list of clarifying questions.
It runs the enhancement locally with the configured provider, or against
a running specforge server with --server.`,
		SilenceUsage: true,
	}
	root.AddCommand(newEnhanceCmd(), newOptionsCmd(), newServeCmd())
	return root
}

// Execute runs the root command. It is called by main.main.
func Execute() error {
	return NewRootCmd().Execute()
}
