package cli

import (
	"github.com/spf13/cobra"
)

const (
	version = "0.1.0"
)

// NewRootCmd creates and returns the root command for dish-ai-commit
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dish-ai-commit",
		Short: "Resolve repositories and diff scope for commit-message generation",
		Long: `dish-ai-commit resolves which repository an ambiguous editor context
refers to, decides whether to diff staged changes or the full working tree,
and materializes the diff text handed to AI commit-message generation.

It degrades to safe defaults when repositories are slow, absent, or broken
rather than hanging or corrupting downstream generation.`,
		Version: version,
	}

	rootCmd.AddCommand(newReposCmd())
	rootCmd.AddCommand(newDetectCmd())
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newCommitCmd())
	rootCmd.AddCommand(newMessagesCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}
