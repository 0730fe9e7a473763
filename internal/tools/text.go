package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neverinfamous/db-mcp/internal/db"
	"github.com/neverinfamous/db-mcp/internal/toolfilter"
)

type textSearchInput struct {
	Table   string `json:"table" jsonschema:"table name"`
	Column  string `json:"column" jsonschema:"text column to search"`
	Pattern string `json:"pattern" jsonschema:"search pattern; LIKE syntax with % wildcards"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum rows to return (default 100)"`
}

type textReplaceInput struct {
	Table   string `json:"table" jsonschema:"table name"`
	Column  string `json:"column" jsonschema:"text column to rewrite"`
	Find    string `json:"find" jsonschema:"substring to find"`
	Replace string `json:"replace" jsonschema:"replacement substring"`
	Where   string `json:"where,omitempty" jsonschema:"optional WHERE clause body"`
}

type textExtractInput struct {
	Table  string `json:"table" jsonschema:"table name"`
	Column string `json:"column" jsonschema:"text column"`
	Start  int    `json:"start" jsonschema:"1-based start position"`
	Length int    `json:"length" jsonschema:"number of characters to extract"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum rows to return (default 100)"`
}

type textColumnInput struct {
	Table  string `json:"table" jsonschema:"table name"`
	Column string `json:"column" jsonschema:"text column"`
}

func textTools(a db.Adapter) []*Definition {
	return []*Definition{
		newTool(&mcp.Tool{
			Name:        "sqlite_text_search",
			Description: "Search a text column with a LIKE pattern.",
		}, toolfilter.GroupText, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in textSearchInput) (*mcp.CallToolResult, error) {
			tbl, col, err := quoteTableColumn(in.Table, in.Column)
			if err != nil {
				return errorResult("%v", err), nil
			}
			q := fmt.Sprintf("SELECT * FROM %s WHERE %s LIKE ? LIMIT ?", tbl, col)
			rs, err := a.Query(ctx, q, in.Pattern, clampLimit(in.Limit, 100, 10000))
			if err != nil {
				return errorResult("text search failed: %v", err), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_text_glob",
			Description: "Search a text column with a GLOB pattern (case-sensitive, * and ? wildcards).",
		}, toolfilter.GroupText, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in textSearchInput) (*mcp.CallToolResult, error) {
			tbl, col, err := quoteTableColumn(in.Table, in.Column)
			if err != nil {
				return errorResult("%v", err), nil
			}
			q := fmt.Sprintf("SELECT * FROM %s WHERE %s GLOB ? LIMIT ?", tbl, col)
			rs, err := a.Query(ctx, q, in.Pattern, clampLimit(in.Limit, 100, 10000))
			if err != nil {
				return errorResult("glob search failed: %v", err), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_text_replace",
			Description: "Replace a substring across rows of a text column.",
		}, toolfilter.GroupText, scopeWrite, func(ctx context.Context, _ *mcp.CallToolRequest, in textReplaceInput) (*mcp.CallToolResult, error) {
			tbl, col, err := quoteTableColumn(in.Table, in.Column)
			if err != nil {
				return errorResult("%v", err), nil
			}
			q := fmt.Sprintf("UPDATE %s SET %s = replace(%s, ?, ?)", tbl, col, col)
			if in.Where != "" {
				q += " WHERE " + in.Where
			}
			res, err := a.Exec(ctx, q, in.Find, in.Replace)
			if err != nil {
				return errorResult("text replace failed: %v", err), nil
			}
			return textResult(res), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_text_extract",
			Description: "Extract a substring from every row of a text column.",
		}, toolfilter.GroupText, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in textExtractInput) (*mcp.CallToolResult, error) {
			tbl, col, err := quoteTableColumn(in.Table, in.Column)
			if err != nil {
				return errorResult("%v", err), nil
			}
			q := fmt.Sprintf("SELECT substr(%s, ?, ?) AS extracted FROM %s LIMIT ?", col, tbl)
			rs, err := a.Query(ctx, q, in.Start, in.Length, clampLimit(in.Limit, 100, 10000))
			if err != nil {
				return errorResult("text extract failed: %v", err), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_text_stats",
			Description: "Length statistics (min, max, average, empty count) for a text column.",
		}, toolfilter.GroupText, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in textColumnInput) (*mcp.CallToolResult, error) {
			tbl, col, err := quoteTableColumn(in.Table, in.Column)
			if err != nil {
				return errorResult("%v", err), nil
			}
			q := fmt.Sprintf(
				"SELECT COUNT(*) AS row_count, MIN(length(%s)) AS min_len, MAX(length(%s)) AS max_len, AVG(length(%s)) AS avg_len, SUM(CASE WHEN %s IS NULL OR %s = '' THEN 1 ELSE 0 END) AS empty FROM %s",
				col, col, col, col, col, tbl)
			rs, err := a.Query(ctx, q)
			if err != nil {
				return errorResult("text stats failed: %v", err), nil
			}
			return textResult(rs), nil
		}),
	}
}
