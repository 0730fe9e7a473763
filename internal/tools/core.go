package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neverinfamous/db-mcp/internal/db"
	"github.com/neverinfamous/db-mcp/internal/toolfilter"
)

type queryInput struct {
	Query  string `json:"query" jsonschema:"SQL statement to run"`
	Params []any  `json:"params,omitempty" jsonschema:"positional bind parameters"`
}

type tableInput struct {
	Table string `json:"table" jsonschema:"table name"`
}

type dropTableInput struct {
	Table   string `json:"table" jsonschema:"table name"`
	Confirm bool   `json:"confirm" jsonschema:"must be true; guards against accidental drops"`
}

func coreTools(a db.Adapter) []*Definition {
	return []*Definition{
		newTool(&mcp.Tool{
			Name:        "sqlite_read_query",
			Description: "Execute a read-only SQL query (SELECT or WITH) with optional bind parameters.",
		}, toolfilter.GroupCore, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in queryInput) (*mcp.CallToolResult, error) {
			if !isReadStatement(in.Query) {
				return errorResult("only SELECT and WITH statements are allowed; use sqlite_write_query for writes"), nil
			}
			rs, err := a.Query(ctx, in.Query, in.Params...)
			if err != nil {
				return errorResult("query failed: %v", err), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_write_query",
			Description: "Execute an INSERT, UPDATE, or DELETE statement with optional bind parameters.",
		}, toolfilter.GroupCore, scopeWrite, func(ctx context.Context, _ *mcp.CallToolRequest, in queryInput) (*mcp.CallToolResult, error) {
			if isReadStatement(in.Query) {
				return errorResult("use sqlite_read_query for SELECT statements"), nil
			}
			res, err := a.Exec(ctx, in.Query, in.Params...)
			if err != nil {
				return errorResult("statement failed: %v", err), nil
			}
			return textResult(res), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_create_table",
			Description: "Create a table from a CREATE TABLE statement.",
		}, toolfilter.GroupCore, scopeWrite, func(ctx context.Context, _ *mcp.CallToolRequest, in queryInput) (*mcp.CallToolResult, error) {
			head := in.Query
			if len(head) < 12 || !isCreateTable(head) {
				return errorResult("statement must begin with CREATE TABLE"), nil
			}
			if _, err := a.Exec(ctx, in.Query); err != nil {
				return errorResult("create table failed: %v", err), nil
			}
			return plainResult("table created"), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_list_tables",
			Description: "List all user tables in the database.",
		}, toolfilter.GroupCore, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, error) {
			rs, err := a.Query(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
			if err != nil {
				return errorResult("listing tables: %v", err), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_describe_table",
			Description: "Show column names, types, and constraints for a table.",
		}, toolfilter.GroupCore, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in tableInput) (*mcp.CallToolResult, error) {
			tbl, err := quoteIdent(in.Table)
			if err != nil {
				return errorResult("%v", err), nil
			}
			rs, err := a.Query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", tbl))
			if err != nil {
				return errorResult("describing table: %v", err), nil
			}
			if rs.Count == 0 {
				return errorResult("table %q not found", in.Table), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_drop_table",
			Description: "Drop a table. Requires confirm=true.",
		}, toolfilter.GroupCore, scopeWrite, func(ctx context.Context, _ *mcp.CallToolRequest, in dropTableInput) (*mcp.CallToolResult, error) {
			if !in.Confirm {
				return errorResult("set confirm=true to drop table %q", in.Table), nil
			}
			tbl, err := quoteIdent(in.Table)
			if err != nil {
				return errorResult("%v", err), nil
			}
			if _, err := a.Exec(ctx, fmt.Sprintf("DROP TABLE %s", tbl)); err != nil {
				return errorResult("drop table failed: %v", err), nil
			}
			return plainResult(fmt.Sprintf("table %q dropped", in.Table)), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_table_exists",
			Description: "Check whether a table exists.",
		}, toolfilter.GroupCore, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in tableInput) (*mcp.CallToolResult, error) {
			rs, err := a.Query(ctx, "SELECT COUNT(*) AS n FROM sqlite_master WHERE type = 'table' AND name = ?", in.Table)
			if err != nil {
				return errorResult("checking table: %v", err), nil
			}
			exists := rs.Count > 0 && fmt.Sprint(rs.Rows[0][0]) != "0"
			return textResult(map[string]any{"table": in.Table, "exists": exists}), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_count_rows",
			Description: "Count the rows in a table.",
		}, toolfilter.GroupCore, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in tableInput) (*mcp.CallToolResult, error) {
			tbl, err := quoteIdent(in.Table)
			if err != nil {
				return errorResult("%v", err), nil
			}
			rs, err := a.Query(ctx, fmt.Sprintf("SELECT COUNT(*) AS count FROM %s", tbl))
			if err != nil {
				return errorResult("counting rows: %v", err), nil
			}
			return textResult(rs), nil
		}),
	}
}

func isCreateTable(q string) bool {
	head := normalizeHead(q)
	return head == "CREATE TABLE" || head == "CREATE TEMP" || head == "CREATE VIRTUAL"
}
