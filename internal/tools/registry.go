// Package tools defines the dbmcp tool catalog: one Definition per tool,
// each carrying its group, its required OAuth scopes, and a typed handler
// over the database adapter. The filter subsystem consumes only name, group,
// and required scopes.
package tools

import (
	"context"
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neverinfamous/db-mcp/internal/auth"
	"github.com/neverinfamous/db-mcp/internal/db"
	"github.com/neverinfamous/db-mcp/internal/toolfilter"
)

// Pipeline wraps every tool call. Before runs ahead of the handler and may
// short-circuit with a result (rate limit, scope denial); the context it
// returns flows to the handler and to After, which sees the handler's
// outcome (guard scan, audit, metrics).
type Pipeline interface {
	Before(ctx context.Context, tool string, requiredScopes []string) (context.Context, *mcp.CallToolResult, error)
	After(ctx context.Context, tool string, res *mcp.CallToolResult, err error) (*mcp.CallToolResult, error)
}

// Definition is one tool in the catalog.
type Definition struct {
	Tool           *mcp.Tool
	Group          toolfilter.Group
	RequiredScopes []string

	register func(s *mcp.Server, p Pipeline)
}

// Name returns the tool's registered (adapter-prefixed) name.
func (d *Definition) Name() string { return d.Tool.Name }

// Register adds the tool to the MCP server with its handler wrapped in p.
func (d *Definition) Register(s *mcp.Server, p Pipeline) { d.register(s, p) }

// handlerFunc is the shape shared by all tool handlers.
type handlerFunc[In any] func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, error)

// newTool builds a Definition whose input schema is inferred from In.
func newTool[In any](tool *mcp.Tool, group toolfilter.Group, scopes []string, h handlerFunc[In]) *Definition {
	d := &Definition{Tool: tool, Group: group, RequiredScopes: scopes}
	d.register = func(s *mcp.Server, p Pipeline) {
		mcp.AddTool(s, tool, func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
			if p != nil {
				pctx, res, err := p.Before(ctx, tool.Name, d.RequiredScopes)
				if res != nil || err != nil {
					return res, nil, err
				}
				if pctx != nil {
					ctx = pctx
				}
			}
			res, err := h(ctx, req, in)
			if p != nil {
				res, err = p.After(ctx, tool.Name, res, err)
			}
			return res, nil, err
		})
	}
	return d
}

// Registry builds the full tool definition list for an adapter. The list is
// constructed once at server start and filtered at registration time; it
// never changes while the server runs.
func Registry(a db.Adapter) []*Definition {
	var defs []*Definition
	defs = append(defs, coreTools(a)...)
	defs = append(defs, jsonTools(a)...)
	defs = append(defs, textTools(a)...)
	defs = append(defs, statsTools(a)...)
	defs = append(defs, vectorTools(a)...)
	defs = append(defs, geoTools(a)...)
	defs = append(defs, ftsTools(a)...)
	defs = append(defs, pragmaTools(a)...)
	defs = append(defs, backupTools(a)...)
	defs = append(defs, adminTools(a)...)
	return defs
}

// FilterDefinitions applies the tool filter, preserving catalog order.
func FilterDefinitions(defs []*Definition, cfg *toolfilter.Config) []*Definition {
	return toolfilter.Filter(defs, cfg, func(d *Definition) (string, toolfilter.Group) {
		return d.Name(), d.Group
	})
}

// The catalog cache: name list and lookup tables are computed once per
// process, since the underlying tool list never changes at runtime.
var (
	catalogMu     sync.Mutex
	catalogNames  []string
	catalogGroups map[string]toolfilter.Group
	catalogScopes map[string][]string
)

func ensureCatalog() {
	if catalogNames != nil {
		return
	}
	defs := Registry(nil)
	catalogGroups = make(map[string]toolfilter.Group, len(defs))
	catalogScopes = make(map[string][]string, len(defs))
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name())
		catalogGroups[d.Name()] = d.Group
		catalogScopes[d.Name()] = d.RequiredScopes
	}
	sort.Strings(names)
	catalogNames = names
}

// AllToolNames returns every tool name, sorted. The returned slice is the
// cached instance: two calls without an intervening ClearCatalogCaches
// return the identical collection.
func AllToolNames() []string {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	ensureCatalog()
	return catalogNames
}

// ToolGroup returns the group a tool belongs to.
func ToolGroup(name string) (toolfilter.Group, bool) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	ensureCatalog()
	g, ok := catalogGroups[name]
	return g, ok
}

// ToolRequiredScopes returns the scopes a tool declares. Unknown tools
// declare nothing.
func ToolRequiredScopes(name string) []string {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	ensureCatalog()
	return catalogScopes[name]
}

// ClearCatalogCaches resets the catalog memoization. Test isolation only;
// production code never needs it.
func ClearCatalogCaches() {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	catalogNames = nil
	catalogGroups = nil
	catalogScopes = nil
}

// ScopesGrantToolAccess reports whether the caller's granted scopes allow
// calling the named tool. The admin scope grants every tool.
func ScopesGrantToolAccess(granted []string, toolName string) bool {
	return auth.ScopesGrantAccess(granted, ToolRequiredScopes(toolName))
}
