package tools

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neverinfamous/db-mcp/internal/db"
	"github.com/neverinfamous/db-mcp/internal/toolfilter"
)

const earthRadiusKm = 6371.0088

type geoDistanceInput struct {
	Lat1 float64 `json:"lat1" jsonschema:"latitude of the first point"`
	Lon1 float64 `json:"lon1" jsonschema:"longitude of the first point"`
	Lat2 float64 `json:"lat2" jsonschema:"latitude of the second point"`
	Lon2 float64 `json:"lon2" jsonschema:"longitude of the second point"`
}

type geoTableInput struct {
	Table  string `json:"table" jsonschema:"table with coordinate columns"`
	LatCol string `json:"lat_col" jsonschema:"latitude column"`
	LonCol string `json:"lon_col" jsonschema:"longitude column"`
}

type geoBoundingBoxInput struct {
	geoTableInput
	MinLat float64 `json:"min_lat" jsonschema:"southern boundary"`
	MaxLat float64 `json:"max_lat" jsonschema:"northern boundary"`
	MinLon float64 `json:"min_lon" jsonschema:"western boundary"`
	MaxLon float64 `json:"max_lon" jsonschema:"eastern boundary"`
	Limit  int     `json:"limit,omitempty" jsonschema:"maximum rows to return (default 100)"`
}

type geoNearestInput struct {
	geoTableInput
	Lat float64 `json:"lat" jsonschema:"query latitude"`
	Lon float64 `json:"lon" jsonschema:"query longitude"`
	K   int     `json:"k,omitempty" jsonschema:"number of nearest rows (default 10)"`
}

type geoRadiusInput struct {
	geoTableInput
	Lat      float64 `json:"lat" jsonschema:"center latitude"`
	Lon      float64 `json:"lon" jsonschema:"center longitude"`
	RadiusKm float64 `json:"radius_km" jsonschema:"search radius in kilometers"`
	Limit    int     `json:"limit,omitempty" jsonschema:"maximum rows to return (default 100)"`
}

func geoTools(a db.Adapter) []*Definition {
	return []*Definition{
		newTool(&mcp.Tool{
			Name:        "sqlite_geo_distance",
			Description: "Great-circle (haversine) distance in kilometers between two coordinates.",
		}, toolfilter.GroupGeo, scopeRead, func(_ context.Context, _ *mcp.CallToolRequest, in geoDistanceInput) (*mcp.CallToolResult, error) {
			return textResult(map[string]any{
				"distance_km": haversineKm(in.Lat1, in.Lon1, in.Lat2, in.Lon2),
			}), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_geo_bounding_box",
			Description: "Rows whose coordinates fall inside a bounding box.",
		}, toolfilter.GroupGeo, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in geoBoundingBoxInput) (*mcp.CallToolResult, error) {
			tbl, lat, lon, err := quoteGeoColumns(in.geoTableInput)
			if err != nil {
				return errorResult("%v", err), nil
			}
			q := fmt.Sprintf("SELECT * FROM %s WHERE %s BETWEEN ? AND ? AND %s BETWEEN ? AND ? LIMIT ?", tbl, lat, lon)
			rs, err := a.Query(ctx, q, in.MinLat, in.MaxLat, in.MinLon, in.MaxLon, clampLimit(in.Limit, 100, 10000))
			if err != nil {
				return errorResult("bounding box query failed: %v", err), nil
			}
			return textResult(rs), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_geo_nearest",
			Description: "The k rows nearest to a coordinate, by haversine distance.",
		}, toolfilter.GroupGeo, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in geoNearestInput) (*mcp.CallToolResult, error) {
			rows, err := fetchCoords(ctx, a, in.geoTableInput)
			if err != nil {
				return errorResult("%v", err), nil
			}
			for i := range rows {
				rows[i].DistanceKm = haversineKm(in.Lat, in.Lon, rows[i].Lat, rows[i].Lon)
			}
			sort.Slice(rows, func(i, j int) bool { return rows[i].DistanceKm < rows[j].DistanceKm })
			k := clampLimit(in.K, 10, 1000)
			if len(rows) > k {
				rows = rows[:k]
			}
			return textResult(rows), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_geo_in_radius",
			Description: "Rows within a radius (km) of a coordinate. Bounding-box prefilter, haversine verify.",
		}, toolfilter.GroupGeo, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in geoRadiusInput) (*mcp.CallToolResult, error) {
			if in.RadiusKm <= 0 {
				return errorResult("radius_km must be positive"), nil
			}
			rows, err := fetchCoords(ctx, a, in.geoTableInput)
			if err != nil {
				return errorResult("%v", err), nil
			}
			limit := clampLimit(in.Limit, 100, 10000)
			var out []coordRow
			for i := range rows {
				d := haversineKm(in.Lat, in.Lon, rows[i].Lat, rows[i].Lon)
				if d <= in.RadiusKm {
					rows[i].DistanceKm = d
					out = append(out, rows[i])
					if len(out) >= limit {
						break
					}
				}
			}
			sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
			return textResult(out), nil
		}),
	}
}

type coordRow struct {
	RowID      any     `json:"rowid"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	DistanceKm float64 `json:"distance_km"`
}

func quoteGeoColumns(in geoTableInput) (tbl, lat, lon string, err error) {
	if tbl, err = quoteIdent(in.Table); err != nil {
		return
	}
	if lat, err = quoteIdent(in.LatCol); err != nil {
		return
	}
	lon, err = quoteIdent(in.LonCol)
	return
}

func fetchCoords(ctx context.Context, a db.Adapter, in geoTableInput) ([]coordRow, error) {
	tbl, lat, lon, err := quoteGeoColumns(in)
	if err != nil {
		return nil, err
	}
	rs, err := a.Query(ctx, fmt.Sprintf("SELECT rowid, %s, %s FROM %s WHERE %s IS NOT NULL AND %s IS NOT NULL", lat, lon, tbl, lat, lon))
	if err != nil {
		return nil, fmt.Errorf("reading coordinates: %w", err)
	}
	rows := make([]coordRow, 0, rs.Count)
	for _, r := range rs.Rows {
		rows = append(rows, coordRow{RowID: r[0], Lat: toFloat(r[1]), Lon: toFloat(r[2])})
	}
	return rows, nil
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}
