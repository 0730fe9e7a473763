package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/neverinfamous/db-mcp/internal/config"
	"github.com/neverinfamous/db-mcp/internal/toolfilter"
	"github.com/neverinfamous/db-mcp/internal/tools"
)

func newToolsCmd() *cobra.Command {
	var filterFlag string
	var all bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List tools and which the current filter enables",
		Example: `  dbmcp tools
  dbmcp tools --filter core,json
  dbmcp tools --filter starter,-sqlite_drop_table --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := filterFlag
			if raw == "" {
				if cfg, err := config.Load(cfgFile); err == nil {
					raw = cfg.ToolFilter
				}
			}
			fc := toolfilter.Parse(raw)

			enabledColor := color.New(color.FgGreen).SprintFunc()
			disabledColor := color.New(color.Faint).SprintFunc()

			total, enabled := 0, 0
			for _, group := range toolfilter.AllGroups() {
				var lines []string
				for _, name := range tools.AllToolNames() {
					g, _ := tools.ToolGroup(name)
					if g != group {
						continue
					}
					total++
					on := fc.IsToolEnabled(name, g)
					if on {
						enabled++
					}
					switch {
					case on:
						lines = append(lines, "  "+enabledColor(name)+scopeSuffix(name))
					case all:
						lines = append(lines, "  "+disabledColor(name+" (disabled)"))
					}
				}
				if len(lines) == 0 {
					continue
				}
				fmt.Printf("%s:\n", group)
				fmt.Println(strings.Join(lines, "\n"))
			}

			fmt.Println()
			fmt.Printf("%d/%d tools enabled\n", enabled, total)
			fmt.Println(fc.Summary())
			return nil
		},
	}

	cmd.Flags().StringVar(&filterFlag, "filter", "", "filter string to preview (defaults to the config file's)")
	cmd.Flags().BoolVar(&all, "all", false, "show disabled tools too")
	return cmd
}

func scopeSuffix(name string) string {
	scopes := tools.ToolRequiredScopes(name)
	if len(scopes) == 0 {
		return ""
	}
	return color.New(color.FgYellow).Sprintf("  [%s]", strings.Join(scopes, " "))
}
