package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newReposCmd creates the repos command
func newReposCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "repos",
		Short: "List repositories discovered in the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if refresh {
				if err := eng.registry.Refresh(ctx); err != nil {
					return fmt.Errorf("failed to refresh repositories: %w", err)
				}
			}

			repos, err := eng.registry.AllRepositories(ctx)
			if err != nil {
				return fmt.Errorf("failed to discover repositories: %w", err)
			}

			if len(repos) == 0 {
				fmt.Println("no repositories found in workspace")
				return nil
			}

			for _, repo := range repos {
				marker := " "
				if repo.IsActive {
					marker = "*"
				}
				branch := repo.Branch
				if branch == "" {
					branch = "-"
				}
				fmt.Printf("%s %-4s %-20s %s\n", marker, repo.Type.String(), branch, repo.Path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "clear the discovery cache and re-scan")
	return cmd
}
