package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neverinfamous/db-mcp/internal/db"
	"github.com/neverinfamous/db-mcp/internal/toolfilter"
)

// Vectors are stored as JSON arrays in a two-column table (id TEXT, vector
// TEXT). Distance math runs in process; SQLite is the store, not the index.

type vectorStoreInput struct {
	Table  string    `json:"table" jsonschema:"vector table name; created on first store"`
	ID     string    `json:"id" jsonschema:"vector identifier"`
	Vector []float64 `json:"vector" jsonschema:"vector components"`
}

type vectorSearchInput struct {
	Table  string    `json:"table" jsonschema:"vector table name"`
	Vector []float64 `json:"vector" jsonschema:"query vector"`
	K      int       `json:"k,omitempty" jsonschema:"number of nearest neighbors (default 10)"`
	Metric string    `json:"metric,omitempty" jsonschema:"cosine (default) or l2"`
}

type vectorDistanceInput struct {
	A      []float64 `json:"a" jsonschema:"first vector"`
	B      []float64 `json:"b" jsonschema:"second vector"`
	Metric string    `json:"metric,omitempty" jsonschema:"cosine (default) or l2"`
}

func vectorTools(a db.Adapter) []*Definition {
	return []*Definition{
		newTool(&mcp.Tool{
			Name:        "sqlite_vector_store",
			Description: "Store a vector under an id. Creates the vector table if needed.",
		}, toolfilter.GroupVector, scopeWrite, func(ctx context.Context, _ *mcp.CallToolRequest, in vectorStoreInput) (*mcp.CallToolResult, error) {
			tbl, err := quoteIdent(in.Table)
			if err != nil {
				return errorResult("%v", err), nil
			}
			if len(in.Vector) == 0 {
				return errorResult("vector must not be empty"), nil
			}
			if _, err := a.Exec(ctx, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, vector TEXT NOT NULL)", tbl)); err != nil {
				return errorResult("creating vector table: %v", err), nil
			}
			encoded, _ := json.Marshal(in.Vector)
			if _, err := a.Exec(ctx, fmt.Sprintf("INSERT OR REPLACE INTO %s (id, vector) VALUES (?, ?)", tbl), in.ID, string(encoded)); err != nil {
				return errorResult("storing vector: %v", err), nil
			}
			return plainResult(fmt.Sprintf("stored vector %q (%d dims)", in.ID, len(in.Vector))), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_vector_search",
			Description: "Find the k nearest stored vectors to a query vector.",
		}, toolfilter.GroupVector, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in vectorSearchInput) (*mcp.CallToolResult, error) {
			tbl, err := quoteIdent(in.Table)
			if err != nil {
				return errorResult("%v", err), nil
			}
			rs, err := a.Query(ctx, fmt.Sprintf("SELECT id, vector FROM %s", tbl))
			if err != nil {
				return errorResult("reading vectors: %v", err), nil
			}

			type hit struct {
				ID       string  `json:"id"`
				Distance float64 `json:"distance"`
			}
			hits := make([]hit, 0, rs.Count)
			for _, row := range rs.Rows {
				var v []float64
				if err := json.Unmarshal([]byte(fmt.Sprint(row[1])), &v); err != nil {
					continue
				}
				d, err := vectorDistance(in.Vector, v, in.Metric)
				if err != nil {
					continue
				}
				hits = append(hits, hit{ID: fmt.Sprint(row[0]), Distance: d})
			}
			sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
			k := clampLimit(in.K, 10, 1000)
			if len(hits) > k {
				hits = hits[:k]
			}
			return textResult(hits), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_vector_distance",
			Description: "Distance between two vectors (cosine or l2).",
		}, toolfilter.GroupVector, scopeRead, func(_ context.Context, _ *mcp.CallToolRequest, in vectorDistanceInput) (*mcp.CallToolResult, error) {
			d, err := vectorDistance(in.A, in.B, in.Metric)
			if err != nil {
				return errorResult("%v", err), nil
			}
			metric := in.Metric
			if metric == "" {
				metric = "cosine"
			}
			return textResult(map[string]any{"metric": metric, "distance": d}), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_vector_stats",
			Description: "Vector count and dimensionality of a vector table.",
		}, toolfilter.GroupVector, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in tableInput) (*mcp.CallToolResult, error) {
			tbl, err := quoteIdent(in.Table)
			if err != nil {
				return errorResult("%v", err), nil
			}
			rs, err := a.Query(ctx, fmt.Sprintf("SELECT COUNT(*) AS count, MIN(json_array_length(vector)) AS min_dims, MAX(json_array_length(vector)) AS max_dims FROM %s", tbl))
			if err != nil {
				return errorResult("vector stats failed: %v", err), nil
			}
			return textResult(rs), nil
		}),
	}
}

func vectorDistance(a, b []float64, metric string) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("vectors must be non-empty and the same length (%d vs %d)", len(a), len(b))
	}
	switch metric {
	case "", "cosine":
		var dot, na, nb float64
		for i := range a {
			dot += a[i] * b[i]
			na += a[i] * a[i]
			nb += b[i] * b[i]
		}
		if na == 0 || nb == 0 {
			return 0, fmt.Errorf("cosine distance undefined for zero vectors")
		}
		return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
	case "l2":
		var sum float64
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return math.Sqrt(sum), nil
	default:
		return 0, fmt.Errorf("unknown metric %q (want cosine or l2)", metric)
	}
}
