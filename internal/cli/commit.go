package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/repository"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/scm/resolver"
)

// newCommitCmd creates the commit command. Accepted messages are written
// through to the local history store so recent-message context stays useful
// even when the backend's log is slow.
func newCommitCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "commit -m <message> [files...]",
		Short: "Commit through the resolved provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

			eng, err := newEngine()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			repoCtx, err := eng.registry.IdentifyRepository(ctx, repository.IdentifyRequest{
				SelectedFiles: args,
			})
			if err != nil {
				return err
			}

			provider, err := eng.resolver.DetectSCM(ctx, resolver.Request{
				RepositoryPath: repoCtx.Repository.Path,
			})
			if err != nil {
				return err
			}
			if provider == nil {
				return fmt.Errorf("no version control detected for %s", repoCtx.Repository.Path)
			}

			if err := provider.Commit(ctx, message, args); err != nil {
				return fmt.Errorf("commit failed: %w", err)
			}

			// History write-through is best effort; a store failure must not
			// mask a successful commit.
			store, err := eng.openHistory()
			if err != nil {
				eng.logger.Warn("failed to open history store", "error", err)
			} else {
				defer store.Close()
				if err := store.RecordCommit(ctx, repoCtx.Repository.Path, "", message); err != nil {
					eng.logger.Warn("failed to record commit message", "error", err)
				}
			}

			fmt.Printf("committed to %s\n", repoCtx.Repository.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	return cmd
}
