package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neverinfamous/db-mcp/internal/db"
	"github.com/neverinfamous/db-mcp/internal/toolfilter"
)

type indexListInput struct {
	Table string `json:"table,omitempty" jsonschema:"limit the listing to one table"`
}

type indexCreateInput struct {
	Name    string   `json:"name" jsonschema:"index name"`
	Table   string   `json:"table" jsonschema:"table to index"`
	Columns []string `json:"columns" jsonschema:"columns in index order"`
	Unique  bool     `json:"unique,omitempty" jsonschema:"create a UNIQUE index"`
}

type indexDropInput struct {
	Name string `json:"name" jsonschema:"index name to drop"`
}

type analyzeInput struct {
	Table string `json:"table,omitempty" jsonschema:"analyze one table instead of the whole database"`
}

func adminTools(a db.Adapter) []*Definition {
	return []*Definition{
		newTool(&mcp.Tool{
			Name:        "sqlite_database_info",
			Description: "Database file, driver, size, and page layout.",
		}, toolfilter.GroupAdmin, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, error) {
			info := map[string]any{
				"driver": a.DriverName(),
				"path":   a.Path(),
			}
			if st, err := os.Stat(a.Path()); err == nil {
				info["file_size_bytes"] = st.Size()
			}
			for _, pragma := range []string{"page_count", "page_size", "journal_mode", "schema_version", "user_version"} {
				rs, err := a.Query(ctx, "PRAGMA "+pragma)
				if err == nil && rs.Count > 0 && len(rs.Rows[0]) > 0 {
					info[pragma] = rs.Rows[0][0]
				}
			}
			rs, err := a.Query(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
			if err == nil && rs.Count > 0 {
				info["table_count"] = rs.Rows[0][0]
			}
			return textResult(info), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_index_list",
			Description: "List indexes, optionally for one table.",
		}, toolfilter.GroupAdmin, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in indexListInput) (*mcp.CallToolResult, error) {
			q := "SELECT name, tbl_name, sql FROM sqlite_master WHERE type = 'index' AND name NOT LIKE 'sqlite_%'"
			args := []any{}
			if in.Table != "" {
				if !identRe.MatchString(in.Table) {
					return errorResult("invalid table name %q", in.Table), nil
				}
				q += " AND tbl_name = ?"
				args = append(args, in.Table)
			}
			rs, err := a.Query(ctx, q+" ORDER BY tbl_name, name", args...)
			if err != nil {
				return errorResult("index list failed: %v", err), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_index_create",
			Description: "Create an index over one or more columns.",
		}, toolfilter.GroupAdmin, scopeWrite, func(ctx context.Context, _ *mcp.CallToolRequest, in indexCreateInput) (*mcp.CallToolResult, error) {
			name, err := quoteIdent(in.Name)
			if err != nil {
				return errorResult("%v", err), nil
			}
			tbl, err := quoteIdent(in.Table)
			if err != nil {
				return errorResult("%v", err), nil
			}
			if len(in.Columns) == 0 {
				return errorResult("at least one column is required"), nil
			}
			cols, err := quoteIdents(in.Columns)
			if err != nil {
				return errorResult("%v", err), nil
			}
			unique := ""
			if in.Unique {
				unique = "UNIQUE "
			}
			q := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)", unique, name, tbl, cols)
			if _, err := a.Exec(ctx, q); err != nil {
				return errorResult("index create failed: %v", err), nil
			}
			return plainResult(fmt.Sprintf("index %q created on %q (%s)", in.Name, in.Table, strings.Join(in.Columns, ", "))), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_index_drop",
			Description: "Drop an index by name.",
		}, toolfilter.GroupAdmin, scopeWrite, func(ctx context.Context, _ *mcp.CallToolRequest, in indexDropInput) (*mcp.CallToolResult, error) {
			name, err := quoteIdent(in.Name)
			if err != nil {
				return errorResult("%v", err), nil
			}
			if _, err := a.Exec(ctx, fmt.Sprintf("DROP INDEX IF EXISTS %s", name)); err != nil {
				return errorResult("index drop failed: %v", err), nil
			}
			return plainResult(fmt.Sprintf("index %q dropped", in.Name)), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_analyze",
			Description: "Gather query-planner statistics with ANALYZE.",
		}, toolfilter.GroupAdmin, scopeWrite, func(ctx context.Context, _ *mcp.CallToolRequest, in analyzeInput) (*mcp.CallToolResult, error) {
			q := "ANALYZE"
			if in.Table != "" {
				tbl, err := quoteIdent(in.Table)
				if err != nil {
					return errorResult("%v", err), nil
				}
				q += " " + tbl
			}
			if _, err := a.Exec(ctx, q); err != nil {
				return errorResult("analyze failed: %v", err), nil
			}
			return plainResult("analyze complete"), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_connection_stats",
			Description: "Connection health and cache pragmas for the active database.",
		}, toolfilter.GroupAdmin, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, error) {
			stats := map[string]any{
				"driver":    a.DriverName(),
				"reachable": a.Ping(ctx) == nil,
			}
			for _, pragma := range []string{"cache_size", "busy_timeout", "synchronous", "foreign_keys"} {
				rs, err := a.Query(ctx, "PRAGMA "+pragma)
				if err == nil && rs.Count > 0 && len(rs.Rows[0]) > 0 {
					stats[pragma] = rs.Rows[0][0]
				}
			}
			return textResult(stats), nil
		}),
	}
}
