package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neverinfamous/db-mcp/internal/db"
	"github.com/neverinfamous/db-mcp/internal/toolfilter"
)

type jsonPathInput struct {
	Table  string `json:"table" jsonschema:"table name"`
	Column string `json:"column" jsonschema:"column holding JSON documents"`
	Path   string `json:"path" jsonschema:"JSON path, e.g. $.user.name"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum rows to return (default 100)"`
}

type jsonSetInput struct {
	Table  string `json:"table" jsonschema:"table name"`
	Column string `json:"column" jsonschema:"column holding JSON documents"`
	Path   string `json:"path" jsonschema:"JSON path to set or remove"`
	Value  string `json:"value,omitempty" jsonschema:"JSON-encoded value for set operations"`
	Where  string `json:"where,omitempty" jsonschema:"optional WHERE clause body (without the WHERE keyword)"`
}

type jsonColumnInput struct {
	Table  string `json:"table" jsonschema:"table name"`
	Column string `json:"column" jsonschema:"column holding JSON documents"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum rows to return (default 100)"`
}

type jsonGroupArrayInput struct {
	Table   string `json:"table" jsonschema:"table name"`
	Column  string `json:"column" jsonschema:"column to aggregate"`
	GroupBy string `json:"group_by" jsonschema:"column to group by"`
}

func jsonTools(a db.Adapter) []*Definition {
	return []*Definition{
		newTool(&mcp.Tool{
			Name:        "sqlite_json_extract",
			Description: "Extract a JSON path from every row of a JSON column.",
		}, toolfilter.GroupJSON, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in jsonPathInput) (*mcp.CallToolResult, error) {
			tbl, col, err := quoteTableColumn(in.Table, in.Column)
			if err != nil {
				return errorResult("%v", err), nil
			}
			q := fmt.Sprintf("SELECT json_extract(%s, ?) AS value FROM %s LIMIT ?", col, tbl)
			rs, err := a.Query(ctx, q, in.Path, clampLimit(in.Limit, 100, 10000))
			if err != nil {
				return errorResult("json_extract failed: %v", err), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_json_set",
			Description: "Set a JSON path to a value across rows of a JSON column.",
		}, toolfilter.GroupJSON, scopeWrite, func(ctx context.Context, _ *mcp.CallToolRequest, in jsonSetInput) (*mcp.CallToolResult, error) {
			tbl, col, err := quoteTableColumn(in.Table, in.Column)
			if err != nil {
				return errorResult("%v", err), nil
			}
			q := fmt.Sprintf("UPDATE %s SET %s = json_set(%s, ?, json(?))", tbl, col, col)
			if in.Where != "" {
				q += " WHERE " + in.Where
			}
			res, err := a.Exec(ctx, q, in.Path, in.Value)
			if err != nil {
				return errorResult("json_set failed: %v", err), nil
			}
			return textResult(res), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_json_remove",
			Description: "Remove a JSON path across rows of a JSON column.",
		}, toolfilter.GroupJSON, scopeWrite, func(ctx context.Context, _ *mcp.CallToolRequest, in jsonSetInput) (*mcp.CallToolResult, error) {
			tbl, col, err := quoteTableColumn(in.Table, in.Column)
			if err != nil {
				return errorResult("%v", err), nil
			}
			q := fmt.Sprintf("UPDATE %s SET %s = json_remove(%s, ?)", tbl, col, col)
			if in.Where != "" {
				q += " WHERE " + in.Where
			}
			res, err := a.Exec(ctx, q, in.Path)
			if err != nil {
				return errorResult("json_remove failed: %v", err), nil
			}
			return textResult(res), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_json_each",
			Description: "Expand a JSON column into key/value rows using json_each.",
		}, toolfilter.GroupJSON, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in jsonColumnInput) (*mcp.CallToolResult, error) {
			tbl, col, err := quoteTableColumn(in.Table, in.Column)
			if err != nil {
				return errorResult("%v", err), nil
			}
			q := fmt.Sprintf("SELECT je.key, je.value FROM %s, json_each(%s.%s) AS je LIMIT ?", tbl, tbl, col)
			rs, err := a.Query(ctx, q, clampLimit(in.Limit, 100, 10000))
			if err != nil {
				return errorResult("json_each failed: %v", err), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_json_valid",
			Description: "Count valid and invalid JSON documents in a column.",
		}, toolfilter.GroupJSON, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in jsonColumnInput) (*mcp.CallToolResult, error) {
			tbl, col, err := quoteTableColumn(in.Table, in.Column)
			if err != nil {
				return errorResult("%v", err), nil
			}
			q := fmt.Sprintf("SELECT SUM(json_valid(%s)) AS valid, SUM(1 - json_valid(%s)) AS invalid FROM %s", col, col, tbl)
			rs, err := a.Query(ctx, q)
			if err != nil {
				return errorResult("json_valid failed: %v", err), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_json_group_array",
			Description: "Aggregate a column into JSON arrays, grouped by another column.",
		}, toolfilter.GroupJSON, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in jsonGroupArrayInput) (*mcp.CallToolResult, error) {
			tbl, col, err := quoteTableColumn(in.Table, in.Column)
			if err != nil {
				return errorResult("%v", err), nil
			}
			grp, err := quoteIdent(in.GroupBy)
			if err != nil {
				return errorResult("%v", err), nil
			}
			q := fmt.Sprintf("SELECT %s, json_group_array(%s) AS values_json FROM %s GROUP BY %s", grp, col, tbl, grp)
			rs, err := a.Query(ctx, q)
			if err != nil {
				return errorResult("json_group_array failed: %v", err), nil
			}
			return textResult(rs), nil
		}),
	}
}

func quoteTableColumn(table, column string) (string, string, error) {
	tbl, err := quoteIdent(table)
	if err != nil {
		return "", "", err
	}
	col, err := quoteIdent(column)
	if err != nil {
		return "", "", err
	}
	return tbl, col, nil
}
