package tools

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Scope constants shared by the tool definitions.
var (
	scopeRead  = []string{"read"}
	scopeWrite = []string{"write"}
	scopeAdmin = []string{"admin"}
)

// textResult marshals v as indented JSON text content.
func textResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("encoding result: %v", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

// plainResult wraps already-formatted text.
func plainResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult reports a tool-level failure without failing the protocol
// call.
func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quoteIdent validates and quotes a SQL identifier. Identifiers cannot be
// bound as parameters, so they are restricted to a safe character set and
// double-quoted.
func quoteIdent(name string) (string, error) {
	if !identRe.MatchString(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	return `"` + name + `"`, nil
}

// quoteIdents quotes a list of identifiers and joins them with commas.
func quoteIdents(names []string) (string, error) {
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		q, err := quoteIdent(n)
		if err != nil {
			return "", err
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, ", "), nil
}

// normalizeHead returns the first two words of q, uppercased.
func normalizeHead(q string) string {
	fields := strings.Fields(strings.ToUpper(strings.TrimSpace(q)))
	switch {
	case len(fields) >= 2:
		return fields[0] + " " + fields[1]
	case len(fields) == 1:
		return fields[0]
	default:
		return ""
	}
}

// isReadStatement reports whether q is a read-only statement.
func isReadStatement(q string) bool {
	head := strings.ToUpper(strings.TrimSpace(q))
	return strings.HasPrefix(head, "SELECT") || strings.HasPrefix(head, "WITH")
}

// clampLimit bounds a requested row limit, defaulting when unset.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
