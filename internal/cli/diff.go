package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/detect"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/repository"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/scm"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/scm/resolver"
)

// newDiffCmd creates the diff command, running the full resolution pipeline:
// identify repository, detect staged content, select a target, fetch the diff.
func newDiffCmd() *cobra.Command {
	var targetFlag string

	cmd := &cobra.Command{
		Use:   "diff [files...]",
		Short: "Resolve the diff scope and print the diff text",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			preference, err := scm.ParseDiffTarget(targetFlag)
			if err != nil {
				return err
			}

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
				fmt.Println("no version control detected")
				return nil
			}

			detection := eng.detector.DetectStagedContent(ctx, repoCtx.Repository.Path, detect.Options{UseCache: true})
			target := eng.selector.SelectTarget(detection, preference)

			result, err := eng.selector.DiffWithTarget(ctx, provider, target, args)
			if err != nil {
				if errors.Is(err, scm.ErrNoDiff) {
					if !eng.cfg.Notifications.Suppress {
						fmt.Printf("no changes found for target %q\n", string(target))
					}
					return nil
				}
				return err
			}

			fmt.Print(result.Content)
			return nil
		},
	}

	cmd.Flags().StringVar(&targetFlag, "target", "auto", "diff target: staged, all, or auto")
	return cmd
}
