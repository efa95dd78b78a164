package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/config"
)

// newConfigCmd creates the config command
func newConfigCmd() *cobra.Command {
	var initialize bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or scaffold configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if initialize {
				if err := config.CreateDefaultConfig(); err != nil {
					return fmt.Errorf("failed to create default config: %w", err)
				}
				fmt.Println("configuration initialized")
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&initialize, "init", false, "write the default configuration file if none exists")
	return cmd
}
