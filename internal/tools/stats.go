package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neverinfamous/db-mcp/internal/db"
	"github.com/neverinfamous/db-mcp/internal/toolfilter"
)

type columnStatsInput struct {
	Table  string `json:"table" jsonschema:"table name"`
	Column string `json:"column" jsonschema:"numeric column"`
}

type percentilesInput struct {
	Table       string    `json:"table" jsonschema:"table name"`
	Column      string    `json:"column" jsonschema:"numeric column"`
	Percentiles []float64 `json:"percentiles,omitempty" jsonschema:"percentiles in [0,100]; defaults to 25,50,75,90,99"`
}

type histogramInput struct {
	Table   string `json:"table" jsonschema:"table name"`
	Column  string `json:"column" jsonschema:"numeric column"`
	Buckets int    `json:"buckets,omitempty" jsonschema:"number of buckets (default 10)"`
}

type correlationInput struct {
	Table   string `json:"table" jsonschema:"table name"`
	ColumnX string `json:"column_x" jsonschema:"first numeric column"`
	ColumnY string `json:"column_y" jsonschema:"second numeric column"`
}

func statsTools(a db.Adapter) []*Definition {
	return []*Definition{
		newTool(&mcp.Tool{
			Name:        "sqlite_table_stats",
			Description: "Row count and column inventory for a table.",
		}, toolfilter.GroupStats, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in tableInput) (*mcp.CallToolResult, error) {
			tbl, err := quoteIdent(in.Table)
			if err != nil {
				return errorResult("%v", err), nil
			}
			count, err := a.Query(ctx, fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s", tbl))
			if err != nil {
				return errorResult("table stats failed: %v", err), nil
			}
			cols, err := a.Query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", tbl))
			if err != nil {
				return errorResult("table stats failed: %v", err), nil
			}
			return textResult(map[string]any{
				"table":     in.Table,
				"row_count": count.Rows[0][0],
				"columns":   cols,
			}), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_column_stats",
			Description: "Count, min, max, average, and sum for a numeric column.",
		}, toolfilter.GroupStats, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in columnStatsInput) (*mcp.CallToolResult, error) {
			tbl, col, err := quoteTableColumn(in.Table, in.Column)
			if err != nil {
				return errorResult("%v", err), nil
			}
			q := fmt.Sprintf(
				"SELECT COUNT(%s) AS count, MIN(%s) AS min, MAX(%s) AS max, AVG(%s) AS avg, SUM(%s) AS sum FROM %s",
				col, col, col, col, col, tbl)
			rs, err := a.Query(ctx, q)
			if err != nil {
				return errorResult("column stats failed: %v", err), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_percentiles",
			Description: "Percentile values for a numeric column (nearest-rank).",
		}, toolfilter.GroupStats, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in percentilesInput) (*mcp.CallToolResult, error) {
			tbl, col, err := quoteTableColumn(in.Table, in.Column)
			if err != nil {
				return errorResult("%v", err), nil
			}
			ps := in.Percentiles
			if len(ps) == 0 {
				ps = []float64{25, 50, 75, 90, 99}
			}
			countRS, err := a.Query(ctx, fmt.Sprintf("SELECT COUNT(%s) FROM %s", col, tbl))
			if err != nil {
				return errorResult("percentiles failed: %v", err), nil
			}
			n := toInt(countRS.Rows[0][0])
			if n == 0 {
				return errorResult("no non-null values in %s.%s", in.Table, in.Column), nil
			}
			out := make(map[string]any, len(ps))
			for _, p := range ps {
				if p < 0 || p > 100 {
					return errorResult("percentile %v out of range [0,100]", p), nil
				}
				offset := int(math.Round(p / 100 * float64(n-1)))
				rs, err := a.Query(ctx,
					fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL ORDER BY %s LIMIT 1 OFFSET ?", col, tbl, col, col),
					offset)
				if err != nil {
					return errorResult("percentiles failed: %v", err), nil
				}
				out[fmt.Sprintf("p%g", p)] = rs.Rows[0][0]
			}
			return textResult(out), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_histogram",
			Description: "Equal-width histogram of a numeric column.",
		}, toolfilter.GroupStats, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in histogramInput) (*mcp.CallToolResult, error) {
			tbl, col, err := quoteTableColumn(in.Table, in.Column)
			if err != nil {
				return errorResult("%v", err), nil
			}
			buckets := in.Buckets
			if buckets <= 0 {
				buckets = 10
			}
			q := fmt.Sprintf(`
WITH bounds AS (SELECT MIN(%s) AS lo, MAX(%s) AS hi FROM %s)
SELECT CAST(MIN(?1 - 1, (%s - bounds.lo) * ?1 / NULLIF(bounds.hi - bounds.lo, 0)) AS INTEGER) AS bucket,
       COUNT(*) AS count
FROM %s, bounds
WHERE %s IS NOT NULL
GROUP BY bucket ORDER BY bucket`, col, col, tbl, col, tbl, col)
			rs, err := a.Query(ctx, q, buckets)
			if err != nil {
				return errorResult("histogram failed: %v", err), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_correlation",
			Description: "Pearson correlation between two numeric columns.",
		}, toolfilter.GroupStats, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in correlationInput) (*mcp.CallToolResult, error) {
			tbl, err := quoteIdent(in.Table)
			if err != nil {
				return errorResult("%v", err), nil
			}
			x, err := quoteIdent(in.ColumnX)
			if err != nil {
				return errorResult("%v", err), nil
			}
			y, err := quoteIdent(in.ColumnY)
			if err != nil {
				return errorResult("%v", err), nil
			}
			q := fmt.Sprintf(
				"SELECT COUNT(*), SUM(%s), SUM(%s), SUM(%s*%s), SUM(%s*%s), SUM(%s*%s) FROM %s WHERE %s IS NOT NULL AND %s IS NOT NULL",
				x, y, x, y, x, x, y, y, tbl, x, y)
			rs, err := a.Query(ctx, q)
			if err != nil {
				return errorResult("correlation failed: %v", err), nil
			}
			row := rs.Rows[0]
			n := toFloat(row[0])
			sx, sy, sxy, sxx, syy := toFloat(row[1]), toFloat(row[2]), toFloat(row[3]), toFloat(row[4]), toFloat(row[5])
			denom := math.Sqrt(n*sxx-sx*sx) * math.Sqrt(n*syy-sy*sy)
			if n < 2 || denom == 0 {
				return errorResult("correlation undefined for %s.%s vs %s", in.Table, in.ColumnX, in.ColumnY), nil
			}
			r := (n*sxy - sx*sy) / denom
			return textResult(map[string]any{
				"table":       in.Table,
				"column_x":    in.ColumnX,
				"column_y":    in.ColumnY,
				"n":           int(n),
				"correlation": r,
			}), nil
		}),
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}
