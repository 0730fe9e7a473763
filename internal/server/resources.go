package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	schemaResourceURI = "db://schema"
	infoResourceURI   = "db://info"
)

func (s *Server) registerResources(srv *mcp.Server) {
	srv.AddResource(&mcp.Resource{
		URI:         schemaResourceURI,
		Name:        "Database schema",
		Description: "CREATE statements for every user table and index.",
		MIMEType:    "text/plain",
	}, s.handleSchemaResource)

	srv.AddResource(&mcp.Resource{
		URI:         infoResourceURI,
		Name:        "Database info",
		Description: "Driver, file path, size, and table inventory.",
		MIMEType:    "application/json",
	}, s.handleInfoResource)
}

func (s *Server) handleSchemaResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	rs, err := s.adapter.Query(ctx,
		"SELECT sql FROM sqlite_master WHERE sql IS NOT NULL AND name NOT LIKE 'sqlite_%' ORDER BY type DESC, name")
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}

	var b strings.Builder
	for _, row := range rs.Rows {
		b.WriteString(fmt.Sprint(row[0]))
		b.WriteString(";\n\n")
	}
	if b.Len() == 0 {
		b.WriteString("-- empty database\n")
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      schemaResourceURI,
			MIMEType: "text/plain",
			Text:     b.String(),
		}},
	}, nil
}

func (s *Server) handleInfoResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	info := map[string]any{
		"driver":  s.adapter.DriverName(),
		"path":    s.adapter.Path(),
		"version": Version,
	}
	if st, err := os.Stat(s.adapter.Path()); err == nil {
		info["file_size_bytes"] = st.Size()
	}
	rs, err := s.adapter.Query(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err == nil {
		names := make([]string, 0, rs.Count)
		for _, row := range rs.Rows {
			names = append(names, fmt.Sprint(row[0]))
		}
		info["tables"] = names
	}

	body, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding info: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      infoResourceURI,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
