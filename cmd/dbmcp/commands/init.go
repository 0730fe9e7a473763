package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neverinfamous/db-mcp/internal/config"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(cfgFile); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile)
			}

			cfg := config.Defaults()
			if err := cfg.Save(cfgFile); err != nil {
				return err
			}

			fmt.Printf("Wrote %s\n", cfgFile)
			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Printf("  dbmcp serve --config %s\n", cfgFile)
			fmt.Println("  dbmcp tools            # see which tools the filter enables")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
