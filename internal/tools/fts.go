package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neverinfamous/db-mcp/internal/db"
	"github.com/neverinfamous/db-mcp/internal/toolfilter"
)

type ftsCreateInput struct {
	Table   string   `json:"table" jsonschema:"name for the FTS5 virtual table"`
	Columns []string `json:"columns" jsonschema:"columns to index"`
}

type ftsSearchInput struct {
	Table string `json:"table" jsonschema:"FTS5 virtual table name"`
	Query string `json:"query" jsonschema:"FTS5 MATCH query"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum rows to return (default 50)"`
}

func ftsTools(a db.Adapter) []*Definition {
	return []*Definition{
		newTool(&mcp.Tool{
			Name:        "sqlite_fts_create",
			Description: "Create an FTS5 full-text index table over the given columns.",
		}, toolfilter.GroupFTS, scopeWrite, func(ctx context.Context, _ *mcp.CallToolRequest, in ftsCreateInput) (*mcp.CallToolResult, error) {
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
			q := fmt.Sprintf("CREATE VIRTUAL TABLE %s USING fts5(%s)", tbl, cols)
			if _, err := a.Exec(ctx, q); err != nil {
				return errorResult("fts create failed: %v", err), nil
			}
			return plainResult(fmt.Sprintf("FTS5 table %q created over %d columns", in.Table, len(in.Columns))), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_fts_search",
			Description: "Full-text search an FTS5 table, ranked by relevance.",
		}, toolfilter.GroupFTS, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in ftsSearchInput) (*mcp.CallToolResult, error) {
			tbl, err := quoteIdent(in.Table)
			if err != nil {
				return errorResult("%v", err), nil
			}
			q := fmt.Sprintf("SELECT *, rank FROM %s WHERE %s MATCH ? ORDER BY rank LIMIT ?", tbl, tbl)
			rs, err := a.Query(ctx, q, in.Query, clampLimit(in.Limit, 50, 1000))
			if err != nil {
				return errorResult("fts search failed: %v", err), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_fts_rebuild",
			Description: "Rebuild an FTS5 index from its content table.",
		}, toolfilter.GroupFTS, scopeWrite, func(ctx context.Context, _ *mcp.CallToolRequest, in tableInput) (*mcp.CallToolResult, error) {
			tbl, err := quoteIdent(in.Table)
			if err != nil {
				return errorResult("%v", err), nil
			}
			q := fmt.Sprintf("INSERT INTO %s(%s) VALUES('rebuild')", tbl, tbl)
			if _, err := a.Exec(ctx, q); err != nil {
				return errorResult("fts rebuild failed: %v", err), nil
			}
			return plainResult(fmt.Sprintf("FTS5 table %q rebuilt", in.Table)), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_fts_drop",
			Description: "Drop an FTS5 virtual table.",
		}, toolfilter.GroupFTS, scopeWrite, func(ctx context.Context, _ *mcp.CallToolRequest, in tableInput) (*mcp.CallToolResult, error) {
			tbl, err := quoteIdent(in.Table)
			if err != nil {
				return errorResult("%v", err), nil
			}
			if _, err := a.Exec(ctx, fmt.Sprintf("DROP TABLE %s", tbl)); err != nil {
				return errorResult("fts drop failed: %v", err), nil
			}
			return plainResult(fmt.Sprintf("FTS5 table %q dropped", in.Table)), nil
		}),
	}
}
