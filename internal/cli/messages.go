package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/history"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/logging"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/repository"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/scm"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/scm/resolver"
)

// newMessagesCmd creates the messages command: recent commit subjects from
// the provider merged with the local history store, newest first.
func newMessagesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "messages [path]",
		Short: "Show recent commit messages for a repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var req repository.IdentifyRequest
			if len(args) == 1 {
				req.SelectedFiles = args
			}
			repoCtx, err := eng.registry.IdentifyRepository(ctx, req)
			if err != nil {
				return err
			}
			repoPath := repoCtx.Repository.Path

			var providerMessages []string
			provider, err := eng.resolver.DetectSCM(ctx, resolver.Request{RepositoryPath: repoPath})
			if err == nil && provider != nil {
				providerMessages = providerLogMessages(ctx, provider, eng.logger)
			}

			var storedMessages []string
			store, err := eng.openHistory()
			if err != nil {
				eng.logger.Warn("failed to open history store", "error", err)
			} else {
				defer store.Close()
				if stored, err := store.RecentMessages(ctx, repoPath, limit); err == nil {
					storedMessages = stored
				}
			}

			merged := history.MergeMessages(providerMessages, storedMessages, limit)
			if len(merged) == 0 {
				fmt.Println("no recent commit messages")
				return nil
			}
			for _, message := range merged {
				fmt.Println(message)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of messages")
	return cmd
}

// providerLogMessages queries the backend log when the provider advertises
// one; backends without a usable log are skipped so the history store alone
// serves them.
func providerLogMessages(ctx context.Context, provider scm.Provider, logger logging.Logger) []string {
	if !provider.Capabilities().NativeLog {
		logger.Debug("provider has no usable log, relying on stored history", "repository", provider.Root())
		return nil
	}

	recent, err := provider.RecentCommitMessages(ctx)
	if err != nil {
		logger.Debug("provider log query failed", "repository", provider.Root(), "error", err)
		return nil
	}
	return recent.Repository
}
