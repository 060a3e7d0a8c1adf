package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ehwaz/internal/noteservice"
	"github.com/starford/ehwaz/internal/testutil"
)

func testServer(t *testing.T) (*Server, *noteservice.Service) {
	t.Helper()
	svc := testutil.TestEngine(t)
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call
	// the handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "validate_links":
		result, err = srv.validateLinks(ctx, req)
	case "suggest_repairs":
		result, err = srv.suggestRepairs(ctx, req)
	case "get_connection":
		result, err = srv.getConnection(ctx, req)
	case "graph_statistics":
		result, err = srv.graphStatistics(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSearchNotes(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	if _, err := svc.CreateNote(ctx, "Project Planning", "body"); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "search_notes", map[string]interface{}{"query": "project planing"})
	if r.IsError {
		t.Fatalf("error result: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "Project Planning") {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestReadNote(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	n, err := svc.CreateNote(ctx, "Alpha", "see [[Beta]] #tag")
	if err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "read_note", map[string]interface{}{"id": n.ID})
	text := resultText(r)
	if !strings.Contains(text, "Alpha") || !strings.Contains(text, "Beta") {
		t.Errorf("result = %q", text)
	}

	r = callTool(t, srv, "read_note", map[string]interface{}{"id": "missing"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	target, err := svc.CreateNote(ctx, "Target", "x")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateNote(ctx, "Source", "see [[Target]]"); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"id": target.ID})
	if !strings.Contains(resultText(r), "[[Target]]") {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestValidateLinksAndSuggest(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	if _, err := svc.CreateNote(ctx, "Project Planning", "x"); err != nil {
		t.Fatal(err)
	}
	n, err := svc.CreateNote(ctx, "Source", "see [[Porject Planning]]")
	if err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "validate_links", map[string]interface{}{"id": n.ID})
	if !strings.Contains(resultText(r), "Similar note title") {
		t.Errorf("validate result = %q", resultText(r))
	}

	r = callTool(t, srv, "suggest_repairs", map[string]interface{}{"target": "Porject Planning"})
	if !strings.Contains(resultText(r), "Project Planning") {
		t.Errorf("suggest result = %q", resultText(r))
	}
}

func TestGetConnection(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	a, err := svc.CreateNote(ctx, "Alpha", "[[Beta]]")
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.CreateNote(ctx, "Beta", "y")
	if err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "get_connection", map[string]interface{}{"from": a.ID, "to": b.ID})
	if !strings.Contains(resultText(r), `"strength":0.5`) {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestGraphStatistics(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	if _, err := svc.CreateNote(ctx, "Alpha", "[[Beta]]"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateNote(ctx, "Beta", "y"); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "graph_statistics", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, `"note_count": 2`) {
		t.Errorf("result = %q", text)
	}
	if !strings.Contains(text, `"link_health": 1`) {
		t.Errorf("result = %q", text)
	}
}
