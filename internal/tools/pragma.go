package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neverinfamous/db-mcp/internal/db"
	"github.com/neverinfamous/db-mcp/internal/toolfilter"
)

type pragmaGetInput struct {
	Name string `json:"name" jsonschema:"pragma name, e.g. journal_mode"`
}

type pragmaSetInput struct {
	Name  string `json:"name" jsonschema:"pragma name"`
	Value string `json:"value" jsonschema:"pragma value"`
}

func pragmaTools(a db.Adapter) []*Definition {
	return []*Definition{
		newTool(&mcp.Tool{
			Name:        "sqlite_pragma_get",
			Description: "Read a PRAGMA value.",
		}, toolfilter.GroupPragma, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in pragmaGetInput) (*mcp.CallToolResult, error) {
			name, err := quoteIdent(in.Name)
			if err != nil {
				return errorResult("%v", err), nil
			}
			rs, err := a.Query(ctx, fmt.Sprintf("PRAGMA %s", name))
			if err != nil {
				return errorResult("pragma read failed: %v", err), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_pragma_set",
			Description: "Set a PRAGMA value. Affects the whole database connection.",
		}, toolfilter.GroupPragma, scopeAdmin, func(ctx context.Context, _ *mcp.CallToolRequest, in pragmaSetInput) (*mcp.CallToolResult, error) {
			name, err := quoteIdent(in.Name)
			if err != nil {
				return errorResult("%v", err), nil
			}
			if !identRe.MatchString(in.Value) {
				return errorResult("invalid pragma value %q", in.Value), nil
			}
			rs, err := a.Query(ctx, fmt.Sprintf("PRAGMA %s = %s", name, in.Value))
			if err != nil {
				return errorResult("pragma set failed: %v", err), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_integrity_check",
			Description: "Run PRAGMA integrity_check on the database.",
		}, toolfilter.GroupPragma, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, error) {
			rs, err := a.Query(ctx, "PRAGMA integrity_check")
			if err != nil {
				return errorResult("integrity check failed: %v", err), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_optimize",
			Description: "Run PRAGMA optimize to refresh query-planner statistics.",
		}, toolfilter.GroupPragma, scopeWrite, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, error) {
			if _, err := a.Exec(ctx, "PRAGMA optimize"); err != nil {
				return errorResult("optimize failed: %v", err), nil
			}
			return plainResult("optimize complete"), nil
		}),
	}
}
