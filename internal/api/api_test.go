package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/noteservice"
	"github.com/starford/ehwaz/internal/testutil"
)

// testEnv sets up a temp vault, index, service, and router for testing.
// An empty authToken means disabled auth mode.
func testEnv(t *testing.T, authToken string) (*noteservice.Service, http.Handler) {
	t.Helper()
	svc := testutil.TestEngine(t)
	router := NewRouter(svc, authToken != "", authToken, nil)
	return svc, router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createNote(t *testing.T, router http.Handler, title, content string) NoteDetail {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/notes", map[string]string{"title": title, "content": content})
	if w.Code != http.StatusCreated {
		t.Fatalf("create %q status = %d, body = %s", title, w.Code, w.Body.String())
	}
	var note NoteDetail
	if err := json.Unmarshal(w.Body.Bytes(), &note); err != nil {
		t.Fatal(err)
	}
	return note
}

func TestCreateAndGetNote(t *testing.T) {
	_, router := testEnv(t, "")

	created := createNote(t, router, "Hello", "World with [[Other]] #greeting")

	w := doJSON(t, router, http.MethodGet, "/notes/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Title != "Hello" {
		t.Errorf("title = %q, want Hello", note.Title)
	}
	if len(note.Outgoing) != 1 || note.Outgoing[0] != "Other" {
		t.Errorf("outgoing = %v", note.Outgoing)
	}
	if len(note.Broken) != 1 {
		t.Errorf("broken = %v", note.Broken)
	}
}

func TestCreateNote_Validation(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/notes", map[string]string{"title": "", "content": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	createNote(t, router, "Dup", "a")
	w = doJSON(t, router, http.MethodPost, "/notes", map[string]string{"title": "Dup", "content": "b"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", w.Code)
	}
}

func TestUpdateNote_IfMatch(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "Alpha", "v1")

	req := httptest.NewRequest(http.MethodPut, "/notes/"+created.ID,
		bytes.NewReader([]byte(`{"content":"v2"}`)))
	req.Header.Set("If-Match", `"bogus"`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("stale update status = %d, want 409", w.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/notes/"+created.ID,
		bytes.NewReader([]byte(`{"content":"v2"}`)))
	req.Header.Set("If-Match", `"`+created.Checksum+`"`)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestDeleteNote(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "Doomed", "x")

	w := doJSON(t, router, http.MethodDelete, "/notes/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/notes/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

func TestBacklinksEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	target := createNote(t, router, "Target", "body")
	src := createNote(t, router, "Source", "see [[Target]]")

	w := doJSON(t, router, http.MethodGet, "/notes/"+target.ID+"/backlinks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Backlinks []models.Backlink `json:"backlinks"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Backlinks) != 1 || resp.Backlinks[0].SourceID != src.ID {
		t.Errorf("backlinks = %+v", resp.Backlinks)
	}

	w = doJSON(t, router, http.MethodGet, "/notes/unknown/backlinks", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", w.Code)
	}
}

func TestValidationEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	createNote(t, router, "Project Planning", "target")
	src := createNote(t, router, "Source", "see [[Porject Planning]] and [[Project Planning]]")

	w := doJSON(t, router, http.MethodGet, "/notes/"+src.ID+"/validation", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res models.LinkValidationResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Valid) != 1 || len(res.Broken) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Broken[0].Suggestions) == 0 || res.Broken[0].Suggestions[0].Title != "Project Planning" {
		t.Errorf("suggestions = %+v", res.Broken[0].Suggestions)
	}
}

func TestConnectionEndpoints(t *testing.T) {
	_, router := testEnv(t, "")
	a := createNote(t, router, "Alpha", "[[Beta]] #shared")
	b := createNote(t, router, "Beta", "[[Alpha]] #shared")

	w := doJSON(t, router, http.MethodGet, "/connection?from="+a.ID+"&to="+b.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ConnectionStrengthResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	// 0.5*(1+1) + 0.2*1, clamped to 1.0.
	if resp.Strength != 1.0 {
		t.Errorf("strength = %v, want 1.0", resp.Strength)
	}

	w = doJSON(t, router, http.MethodGet, "/notes/"+a.ID+"/connections", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("connections status = %d", w.Code)
	}
	var cresp struct {
		Connections []models.NoteConnection `json:"connections"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &cresp)
	if len(cresp.Connections) != 1 {
		t.Errorf("connections = %+v", cresp.Connections)
	}

	w = doJSON(t, router, http.MethodGet, "/connection?from="+a.ID, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing to status = %d, want 400", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	createNote(t, router, "Project Planning", "x")
	createNote(t, router, "Daily Journal", "y")

	w := doJSON(t, router, http.MethodGet, "/search?q=project+planning", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) == 0 || resp.Results[0].Title != "Project Planning" {
		t.Errorf("results = %+v", resp.Results)
	}

	w = doJSON(t, router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", w.Code)
	}
}

func TestGraphAndStatsEndpoints(t *testing.T) {
	_, router := testEnv(t, "")
	createNote(t, router, "Alpha", "[[Beta]] #work/projects")
	createNote(t, router, "Beta", "plain")

	w := doJSON(t, router, http.MethodGet, "/graph", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("graph status = %d", w.Code)
	}
	var g models.KnowledgeGraph
	_ = json.Unmarshal(w.Body.Bytes(), &g)
	if len(g.Nodes) != 2 || len(g.Edges) != 1 {
		t.Errorf("graph = %+v", g)
	}

	w = doJSON(t, router, http.MethodGet, "/graph/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("graph stats status = %d", w.Code)
	}
	var gs models.GraphStatistics
	_ = json.Unmarshal(w.Body.Bytes(), &gs)
	if gs.NoteCount != 2 || gs.ConnectionCount != 1 {
		t.Errorf("stats = %+v", gs)
	}

	w = doJSON(t, router, http.MethodGet, "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	var ls models.LinkStatistics
	_ = json.Unmarshal(w.Body.Bytes(), &ls)
	if ls.TotalLinks != 1 || ls.LinkHealth != 1.0 {
		t.Errorf("link stats = %+v", ls)
	}

	w = doJSON(t, router, http.MethodGet, "/tags", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tags status = %d", w.Code)
	}
	var th models.TagHierarchy
	_ = json.Unmarshal(w.Body.Bytes(), &th)
	if th.Counts["work/projects"] != 1 {
		t.Errorf("tags = %+v", th)
	}
}

func TestSuggestionsEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	createNote(t, router, "Project Planning", "x")

	w := doJSON(t, router, http.MethodGet, "/suggestions?target=Porject+Planning", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SuggestionsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Suggestions) == 0 || resp.Suggestions[0].Title != "Project Planning" {
		t.Errorf("suggestions = %+v", resp.Suggestions)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "secret-token")

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", w.Code)
	}
}
