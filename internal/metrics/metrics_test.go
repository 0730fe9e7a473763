package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveToolCall(t *testing.T) {
	m := New()
	m.ObserveToolCall("sqlite_read_query", "ok", 5*time.Millisecond)
	m.ObserveToolCall("sqlite_read_query", "ok", 7*time.Millisecond)
	m.ObserveToolCall("sqlite_write_query", "error", time.Millisecond)

	if got := testutil.ToFloat64(m.toolCalls.WithLabelValues("sqlite_read_query", "ok")); got != 2 {
		t.Errorf("read_query ok count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.toolCalls.WithLabelValues("sqlite_write_query", "error")); got != 1 {
		t.Errorf("write_query error count = %v, want 1", got)
	}
}

func TestObserveAuthFailure(t *testing.T) {
	m := New()
	m.ObserveAuthFailure("invalid_token")
	m.ObserveAuthFailure("invalid_token")
	m.ObserveAuthFailure("insufficient_scope")

	if got := testutil.ToFloat64(m.authFailures.WithLabelValues("invalid_token")); got != 2 {
		t.Errorf("invalid_token count = %v, want 2", got)
	}
}

func TestHandlerExposition(t *testing.T) {
	m := New()
	m.ObserveToolCall("sqlite_list_tables", "ok", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "dbmcp_tool_calls_total") {
		t.Errorf("exposition missing tool_calls_total:\n%s", body)
	}
	if !strings.Contains(body, `tool="sqlite_list_tables"`) {
		t.Error("exposition missing tool label")
	}
}

func TestIsolatedRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveToolCall("sqlite_read_query", "ok", time.Millisecond)
	if got := testutil.ToFloat64(b.toolCalls.WithLabelValues("sqlite_read_query", "ok")); got != 0 {
		t.Errorf("second registry saw %v observations", got)
	}
}
