package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/roach88/ndc-test/internal/ndc"
)

// Request is a request received by the fake connector.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

// Connector is an in-process connector serving a Fixture over HTTP.
type Connector struct {
	*httptest.Server

	fixture Fixture
	schema  *ndc.SchemaResponse

	mu       sync.Mutex
	requests []Request
}

// NewConnector starts a fake connector for f. It is closed when the test
// ends.
func NewConnector(t testing.TB, f Fixture) *Connector {
	t.Helper()

	c := &Connector{fixture: f}
	var schema ndc.SchemaResponse
	if err := json.Unmarshal([]byte(f.Schema), &schema); err == nil {
		c.schema = &schema
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /capabilities", c.serveDocument(ndc.PathCapabilities, f.Capabilities))
	mux.HandleFunc("GET /schema", c.serveDocument(ndc.PathSchema, f.Schema))
	mux.HandleFunc("POST /query", c.serveQuery)
	mux.HandleFunc("POST /explain", c.serveExplain)
	mux.HandleFunc("POST /mutation", c.serveMutation)

	c.Server = httptest.NewServer(mux)
	t.Cleanup(c.Server.Close)
	return c
}

// Requests returns every request received so far.
func (c *Connector) Requests() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// Count returns how many requests hit path, e.g. "query".
func (c *Connector) Count(path string) int {
	n := 0
	for _, r := range c.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

func (c *Connector) record(r *http.Request, path string) []byte {
	body, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.requests = append(c.requests, Request{Method: r.Method, Path: path, Header: r.Header.Clone(), Body: string(body)})
	c.mu.Unlock()
	return body
}

func (c *Connector) fault(path, target string) *Fault {
	for i := range c.fixture.Faults {
		f := &c.fixture.Faults[i]
		if f.Path == path && (f.Target == "" || f.Target == target) {
			return f
		}
	}
	return nil
}

// applyTransportFault handles the faults that replace the reply entirely.
func applyTransportFault(w http.ResponseWriter, f *Fault) bool {
	switch {
	case f == nil:
		return false
	case f.Disconnect:
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				conn.Close()
				return true
			}
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		return true
	case f.Status != 0:
		writeJSON(w, f.Status, ndc.ErrorResponse{Message: f.Message})
		return true
	case f.Body != "":
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, f.Body)
		return true
	}
	return false
}

func (c *Connector) serveDocument(path, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.record(r, path)
		if applyTransportFault(w, c.fault(path, "")) {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func (c *Connector) serveQuery(w http.ResponseWriter, r *http.Request) {
	body := c.record(r, ndc.PathQuery)

	var req ndc.QueryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ndc.ErrorResponse{Message: err.Error()})
		return
	}
	fault := c.fault(ndc.PathQuery, req.Collection)
	if applyTransportFault(w, fault) {
		return
	}

	rows, ok := c.table(req.Collection)
	if !ok {
		writeJSON(w, http.StatusBadRequest, ndc.ErrorResponse{Message: "collection not found: " + req.Collection})
		return
	}

	rowSet := map[string]any{}
	if req.Query.Fields != nil {
		limited := rows
		if req.Query.Limit != nil && *req.Query.Limit < len(limited) {
			limited = limited[:*req.Query.Limit]
		}
		rowSet["rows"] = project(limited, req.Query.Fields, fault)
	}
	if req.Query.Aggregates != nil {
		rowSet["aggregates"] = aggregate(rows, req.Query.Aggregates, fault)
	}

	resp := []any{rowSet}
	if fault != nil && fault.ExtraRowSet {
		resp = append(resp, rowSet)
	}
	writeJSON(w, http.StatusOK, resp)
}

// table returns the rows of a collection, or the single __value row of a
// function.
func (c *Connector) table(name string) ([]map[string]any, bool) {
	if c.schema == nil {
		return nil, false
	}
	if _, ok := c.schema.Collection(name); ok {
		return c.fixture.Rows[name], true
	}
	for _, fn := range c.schema.Functions {
		if fn.Name == name {
			return []map[string]any{{ndc.FunctionValueField: c.fixture.Functions[name]}}, true
		}
	}
	return nil, false
}

func project(rows []map[string]any, fields map[string]ndc.Field, fault *Fault) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		projected := make(map[string]any, len(fields))
		for alias, f := range fields {
			projected[alias] = row[f.Column]
		}
		if fault != nil {
			if fault.DropColumn != "" {
				delete(projected, fault.DropColumn)
			}
			if fault.ExtraColumn != "" {
				projected[fault.ExtraColumn] = "unexpected"
			}
		}
		out = append(out, projected)
	}
	return out
}

func aggregate(rows []map[string]any, aggs map[string]ndc.Aggregate, fault *Fault) map[string]any {
	out := make(map[string]any, len(aggs))
	for key, a := range aggs {
		switch a.Type {
		case ndc.AggregateStarCount:
			out[key] = len(rows)
		case ndc.AggregateColumnCount:
			n := 0
			for _, row := range rows {
				if row[a.Column] != nil {
					n++
				}
			}
			out[key] = n
		default:
			out[key] = maxOf(rows, a.Column)
		}
		if fault != nil && fault.NegativeCount && a.IsCount() {
			out[key] = -1
		}
	}
	if fault != nil && fault.DropAggregate != "" {
		delete(out, fault.DropAggregate)
	}
	return out
}

func maxOf(rows []map[string]any, column string) any {
	var best any
	var bestVal float64
	for _, row := range rows {
		v, ok := toFloat(row[column])
		if !ok {
			continue
		}
		if best == nil || v > bestVal {
			best, bestVal = row[column], v
		}
	}
	return best
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func (c *Connector) serveExplain(w http.ResponseWriter, r *http.Request) {
	body := c.record(r, ndc.PathExplain)

	var req ndc.QueryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ndc.ErrorResponse{Message: err.Error()})
		return
	}
	if applyTransportFault(w, c.fault(ndc.PathExplain, req.Collection)) {
		return
	}
	writeJSON(w, http.StatusOK, ndc.ExplainResponse{Details: map[string]string{
		"collection": req.Collection,
	}})
}

func (c *Connector) serveMutation(w http.ResponseWriter, r *http.Request) {
	body := c.record(r, ndc.PathMutation)

	var req ndc.MutationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ndc.ErrorResponse{Message: err.Error()})
		return
	}
	target := ""
	if len(req.Operations) > 0 {
		target = req.Operations[0].Name
	}
	if applyTransportFault(w, c.fault(ndc.PathMutation, target)) {
		return
	}

	results := make([]any, len(req.Operations))
	for i := range req.Operations {
		results[i] = map[string]any{"type": "procedure", "result": nil}
	}
	writeJSON(w, http.StatusOK, map[string]any{"operation_results": results})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
