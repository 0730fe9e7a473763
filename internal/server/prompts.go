package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerPrompts(srv *mcp.Server) {
	srv.AddPrompt(&mcp.Prompt{
		Name:        "analyze_table",
		Description: "Walk through structure and statistics of one table.",
		Arguments: []*mcp.PromptArgument{
			{Name: "table", Description: "table to analyze", Required: true},
		},
	}, s.handleAnalyzeTablePrompt)

	srv.AddPrompt(&mcp.Prompt{
		Name:        "query_help",
		Description: "Help writing a SQL query against this database.",
		Arguments: []*mcp.PromptArgument{
			{Name: "goal", Description: "what the query should answer", Required: false},
		},
	}, s.handleQueryHelpPrompt)
}

func (s *Server) handleAnalyzeTablePrompt(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	table := req.Params.Arguments["table"]
	if table == "" {
		return nil, fmt.Errorf("argument %q is required", "table")
	}
	text := fmt.Sprintf(`Analyze the table %q step by step:

1. Call sqlite_describe_table to see its columns and types.
2. Call sqlite_table_stats for the row count.
3. For each numeric column, call sqlite_column_stats and sqlite_percentiles.
4. Call sqlite_index_list to check which queries the table is indexed for.
5. Summarize the table's shape, data quality issues, and any index gaps.`, table)

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Analysis walkthrough for table %q", table),
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: text},
		}},
	}, nil
}

func (s *Server) handleQueryHelpPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	goal := req.Params.Arguments["goal"]
	if goal == "" {
		goal = "the user's question"
	}

	// Ground the prompt in the live schema so the model writes runnable SQL.
	schema := "unavailable"
	if rs, err := s.adapter.Query(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"); err == nil && rs.Count > 0 {
		names := make([]string, 0, rs.Count)
		for _, row := range rs.Rows {
			names = append(names, fmt.Sprint(row[0]))
		}
		schema = fmt.Sprintf("%v", names)
	}

	text := fmt.Sprintf(`Write a SQL query answering: %s

Available tables: %s

Guidance:
- Read the db://schema resource for exact column definitions.
- Use sqlite_read_query for SELECT statements; bind user input with params, never string concatenation.
- Prefer explicit column lists over SELECT *.
- Check the query with a LIMIT before running it unbounded.`, goal, schema)

	return &mcp.GetPromptResult{
		Description: "SQL query guidance",
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: text},
		}},
	}, nil
}
