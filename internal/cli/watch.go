package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/detect"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/watch"
)

// newWatchCmd creates the watch command: a long-running mode that invalidates
// caches as repository state changes instead of waiting for TTL expiry.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch workspace repositories and report staged-state changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			repos, err := eng.registry.AllRepositories(ctx)
			if err != nil {
				return err
			}
			if len(repos) == 0 {
				fmt.Println("no repositories to watch")
				return nil
			}

			watcher := watch.New(eng.cfg.Workspace.Roots, repos, eng.logger)
			if err := watcher.Start(); err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}
			watch.OnShutdown(func() {
				if err := watcher.Stop(); err != nil {
					eng.logger.Warn("watcher shutdown failed", "error", err)
				}
			})

			events, err := watcher.Events()
			if err != nil {
				return err
			}

			fmt.Printf("watching %d repositories, press Ctrl-C to stop\n", len(repos))
			for event := range events {
				switch event.Kind {
				case watch.KindStaged:
					eng.detector.ClearCache()
					result := eng.detector.DetectStagedContent(ctx, event.RepositoryPath, detect.Options{})
					if result.ErrorMessage != "" {
						fmt.Printf("%s: detection failed (%s)\n", event.RepositoryPath, result.ErrorMessage)
						continue
					}
					fmt.Printf("%s: %d staged, recommended target %s\n",
						event.RepositoryPath, result.StagedFileCount, result.RecommendedTarget)
				case watch.KindDiscovery:
					if err := eng.registry.Refresh(ctx); err != nil {
						eng.logger.Warn("workspace rescan failed", "error", err)
					}
				}
			}
			return nil
		},
	}
}
