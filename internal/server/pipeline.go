package server

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neverinfamous/db-mcp/internal/audit"
	"github.com/neverinfamous/db-mcp/internal/auth"
	"github.com/neverinfamous/db-mcp/internal/guard"
	"github.com/neverinfamous/db-mcp/internal/tools"
)

type contextKey string

const callStateKey contextKey = "dbmcp-call-state"

// callState carries per-call bookkeeping from Before to After.
type callState struct {
	id      string
	subject string
	start   time.Time
}

// Before gates a tool call: rate limit first, then the OAuth scope check.
// A non-nil result short-circuits the handler.
func (s *Server) Before(ctx context.Context, tool string, requiredScopes []string) (context.Context, *mcp.CallToolResult, error) {
	state := &callState{
		id:      uuid.New().String(),
		subject: "anonymous",
		start:   time.Now(),
	}
	claims, authenticated := auth.ClaimsFromContext(ctx)
	if authenticated && claims.Subject != "" {
		state.subject = claims.Subject
	}
	ctx = context.WithValue(ctx, callStateKey, state)

	allowed, err := s.limiter.Allow(ctx, state.subject)
	if err != nil {
		// Limiter backend down: fail open, the call path must survive it
		s.logger.Error("rate limit check failed", "error", err, "subject", state.subject)
		allowed = true
	}
	if !allowed {
		s.deny(state, tool, audit.StatusDenied, "rate_limited")
		return ctx, toolError("rate limit exceeded, retry later"), nil
	}

	if s.cfg.Auth.Enabled {
		var granted []string
		if authenticated {
			granted = claims.Scopes
		}
		if !auth.ScopesGrantAccess(granted, requiredScopes) {
			s.deny(state, tool, audit.StatusDenied, "missing scope "+strings.Join(requiredScopes, " "))
			return ctx, toolError("insufficient scope: requires one of " + strings.Join(requiredScopes, ", ")), nil
		}
	}

	return ctx, nil, nil
}

// After scans the handler's output, audits the call, and records metrics.
func (s *Server) After(ctx context.Context, tool string, res *mcp.CallToolResult, err error) (*mcp.CallToolResult, error) {
	state, ok := ctx.Value(callStateKey).(*callState)
	if !ok {
		state = &callState{id: uuid.New().String(), subject: "anonymous", start: time.Now()}
	}

	status := audit.StatusOK
	decision := ""
	switch {
	case err != nil:
		status = audit.StatusError
		decision = "handler_error"
	case res != nil && res.IsError:
		status = audit.StatusError
	}

	if s.scanner != nil && err == nil && res != nil && !res.IsError {
		if text := resultText(res); text != "" {
			outcome, scanErr := s.scanner.Scan(ctx, text)
			switch {
			case scanErr != nil:
				// Fail open, the result is already computed
				s.logger.Error("guard scan failed", "error", scanErr, "tool", tool)
			case outcome.Verdict == guard.VerdictBlock:
				status = audit.StatusBlocked
				decision = findingSummary(outcome)
				res = toolError("result blocked: suspicious content detected")
			case outcome.Verdict == guard.VerdictFlag:
				decision = findingSummary(outcome)
				s.logger.Warn("tool result flagged",
					"tool", tool, "subject", state.subject, "findings", len(outcome.Findings))
			}
		}
	}

	s.record(state, tool, status, decision)
	return res, err
}

// deny audits and counts a call the gate refused.
func (s *Server) deny(state *callState, tool, status, decision string) {
	s.record(state, tool, status, decision)
}

func (s *Server) record(state *callState, tool, status, decision string) {
	elapsed := time.Since(state.start)
	s.metrics.ObserveToolCall(tool, status, elapsed)
	if s.auditStore != nil {
		s.auditStore.Log(audit.Entry{
			ID:        state.id,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Subject:   state.subject,
			Tool:      tool,
			Status:    status,
			Decision:  decision,
			LatencyMs: elapsed.Milliseconds(),
		})
	}
}

// toolError creates a CallToolResult with IsError=true.
func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// resultText extracts text from a CallToolResult for scanning.
func resultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func findingSummary(outcome *guard.Outcome) string {
	ids := make([]string, 0, len(outcome.Findings))
	for _, f := range outcome.Findings {
		ids = append(ids, f.RuleID)
	}
	return string(outcome.Verdict) + ":" + strings.Join(ids, ",")
}

// interface check
var _ tools.Pipeline = (*Server)(nil)
