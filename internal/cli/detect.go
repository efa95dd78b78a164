package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/detect"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/repository"
)

// newDetectCmd creates the detect command
func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [path]",
		Short: "Detect staged content for a repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var repoPath string
			if len(args) == 1 {
				repoPath = args[0]
			} else {
				repoCtx, err := eng.registry.IdentifyRepository(ctx, repository.IdentifyRequest{})
				if err != nil {
					return err
				}
				repoPath = repoCtx.Repository.Path
			}

			result := eng.detector.DetectStagedContent(ctx, repoPath, detect.Options{UseCache: true})

			fmt.Printf("repository:         %s\n", result.RepositoryPath)
			fmt.Printf("staged content:     %v\n", result.HasStagedContent)
			fmt.Printf("staged files:       %d\n", result.StagedFileCount)
			for _, file := range result.StagedFiles {
				fmt.Printf("  %s\n", file)
			}
			fmt.Printf("recommended target: %s\n", string(result.RecommendedTarget))
			if result.ErrorMessage != "" {
				fmt.Printf("detection note:     %s\n", result.ErrorMessage)
			}
			return nil
		},
	}
}
