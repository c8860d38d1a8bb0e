package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/happypulse/radar/internal/middleware"
	"github.com/happypulse/radar/internal/services"
)

type nopStore struct{ rec *services.SessionRecord }

func (s *nopStore) Load() (*services.SessionRecord, error) { return s.rec, nil }
func (s *nopStore) Save(rec *services.SessionRecord) error { s.rec = rec; return nil }
func (s *nopStore) Clear() error                           { s.rec = nil; return nil }

type testEnv struct {
	srv      *httptest.Server
	sessions *services.SessionService
	board    *services.BoardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sessions := services.NewSessionService(services.SessionConfig{
		ParticipantCode: "RADAR2024",
		AdminCode:       "ADMIN2024",
	}, &nopStore{})
	board := services.NewBoardService()
	auth := middleware.NewTokenAuth("test-secret")

	mux := http.NewServeMux()
	NewRouter(sessions, board, auth).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, sessions: sessions, board: board}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (e *testEnv) login(t *testing.T, code string) string {
	t.Helper()
	resp, out := e.do(t, http.MethodPost, "/api/login", "", map[string]string{"code": code})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login with %q: status %d", code, resp.StatusCode)
	}
	token, _ := out["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

func TestLoginRejectsUnknownCode(t *testing.T) {
	e := newTestEnv(t)
	resp, _ := e.do(t, http.MethodPost, "/api/login", "", map[string]string{"code": "WRONG"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if e.sessions.IsAuthenticated() {
		t.Fatal("failed login created a session")
	}
}

func TestLoginRoles(t *testing.T) {
	e := newTestEnv(t)
	_, out := e.do(t, http.MethodPost, "/api/login", "", map[string]string{"code": "RADAR2024"})
	if out["role"] != "participant" {
		t.Fatalf("role = %v, want participant", out["role"])
	}
	_, out = e.do(t, http.MethodPost, "/api/login", "", map[string]string{"code": "ADMIN2024"})
	if out["role"] != "admin" {
		t.Fatalf("role = %v, want admin", out["role"])
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newTestEnv(t)
	resp, _ := e.do(t, http.MethodGet, "/api/board", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("board without token: status %d, want 401", resp.StatusCode)
	}
}

func TestPainLifecycle(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "RADAR2024")

	// Blank author becomes anonymous.
	resp, pain := e.do(t, http.MethodPost, "/api/pains", token, map[string]string{
		"author": "", "description": "Meetings run long", "category": "People",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add pain: status %d", resp.StatusCode)
	}
	if pain["author"] != services.AnonymousAuthor {
		t.Fatalf("author = %v", pain["author"])
	}
	id, _ := pain["id"].(string)

	// Empty description is rejected.
	resp, _ = e.do(t, http.MethodPost, "/api/pains", token, map[string]string{
		"description": " ", "category": "People",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty description: status %d, want 400", resp.StatusCode)
	}

	// One vote per session.
	_, voted := e.do(t, http.MethodPost, "/api/pains/"+id+"/vote", token, nil)
	if voted["votes"].(float64) != 1 {
		t.Fatalf("votes after first vote = %v", voted["votes"])
	}
	_, voted = e.do(t, http.MethodPost, "/api/pains/"+id+"/vote", token, nil)
	if voted["votes"].(float64) != 1 {
		t.Fatalf("votes after repeat vote = %v", voted["votes"])
	}

	// Unknown ids surface as 404.
	resp, _ = e.do(t, http.MethodPost, "/api/pains/missing/vote", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("vote on missing pain: status %d, want 404", resp.StatusCode)
	}

	// Participants cannot delete.
	resp, _ = e.do(t, http.MethodDelete, "/api/pains/"+id, token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("participant delete: status %d, want 403", resp.StatusCode)
	}

	admin := e.login(t, "ADMIN2024")
	resp, _ = e.do(t, http.MethodDelete, "/api/pains/"+id, admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin delete: status %d", resp.StatusCode)
	}
	if e.board.Stats().TotalPains != 0 {
		t.Fatal("pain survived admin delete")
	}
}

func TestReorderEndpoint(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "RADAR2024")

	var ids []string
	for i := 0; i < 3; i++ {
		_, pain := e.do(t, http.MethodPost, "/api/pains", token, map[string]string{
			"description": fmt.Sprintf("pain %d", i), "category": "Technology",
		})
		ids = append(ids, pain["id"].(string))
	}

	// Newest first, so the list is ids[2], ids[1], ids[0]; move the
	// oldest to the front.
	resp, _ := e.do(t, http.MethodPost, "/api/pains/"+ids[0]+"/reorder", token, map[string]int{"index": 0})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reorder: status %d", resp.StatusCode)
	}
	got := e.board.Grouped()[services.CategoryTechnology]
	if got[0].ID != ids[0] {
		t.Fatalf("reorder had no effect: first is %s", got[0].ID)
	}
}

func TestEmotionEndpoint(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "RADAR2024")

	e.do(t, http.MethodPost, "/api/emotions", token, map[string]string{"category": "Technology", "emotion": "sad"})
	_, out := e.do(t, http.MethodPost, "/api/emotions", token, map[string]string{"category": "Technology", "emotion": "happy"})

	counts, _ := out["emotion_counts"].(map[string]any)
	if counts["happy"].(float64) != 1 || counts["sad"].(float64) != 0 {
		t.Fatalf("counts after replace = %v", counts)
	}

	resp, _ := e.do(t, http.MethodPost, "/api/emotions", token, map[string]string{"category": "Finance", "emotion": "sad"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad category: status %d, want 400", resp.StatusCode)
	}
}

func TestResetEndpoint(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "RADAR2024")

	_, pain := e.do(t, http.MethodPost, "/api/pains", token, map[string]string{
		"description": "flaky tooling", "category": "Technology",
	})
	e.do(t, http.MethodPost, "/api/pains/"+pain["id"].(string)+"/vote", token, nil)
	e.do(t, http.MethodPost, "/api/emotions", token, map[string]string{"category": "Technology", "emotion": "sad"})

	resp, _ := e.do(t, http.MethodPost, "/api/reset", token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("participant reset: status %d, want 403", resp.StatusCode)
	}
	if e.board.Stats().TotalVotes != 1 {
		t.Fatal("rejected reset mutated the board")
	}

	admin := e.login(t, "ADMIN2024")
	resp, out := e.do(t, http.MethodPost, "/api/reset", admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin reset: status %d", resp.StatusCode)
	}
	stats, _ := out["stats"].(map[string]any)
	if stats["total_votes"].(float64) != 0 || stats["total_emotion_votes"].(float64) != 0 {
		t.Fatalf("stats after reset = %v", stats)
	}
	if stats["total_pains"].(float64) != 1 {
		t.Fatal("reset deleted entries")
	}
}

func TestSessionEndpointAndLogout(t *testing.T) {
	e := newTestEnv(t)

	_, out := e.do(t, http.MethodGet, "/api/session", "", nil)
	if out["authenticated"] != false {
		t.Fatalf("authenticated before login = %v", out["authenticated"])
	}

	token := e.login(t, "ADMIN2024")
	_, out = e.do(t, http.MethodGet, "/api/session", "", nil)
	if out["authenticated"] != true || out["admin"] != true {
		t.Fatalf("session after admin login = %v", out)
	}
	if out["remaining_ms"].(float64) <= 0 {
		t.Fatalf("remaining_ms = %v", out["remaining_ms"])
	}

	resp, _ := e.do(t, http.MethodPost, "/api/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: status %d", resp.StatusCode)
	}
	// The token is still signed but the session is gone, so protected
	// routes are closed again.
	resp, _ = e.do(t, http.MethodGet, "/api/board", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("board after logout: status %d, want 401", resp.StatusCode)
	}
}

func TestBoardSortedView(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "RADAR2024")

	_, first := e.do(t, http.MethodPost, "/api/pains", token, map[string]string{
		"description": "old but voted", "category": "Processes",
	})
	e.do(t, http.MethodPost, "/api/pains", token, map[string]string{
		"description": "newer", "category": "Processes",
	})
	e.do(t, http.MethodPost, "/api/pains/"+first["id"].(string)+"/vote", token, nil)

	_, out := e.do(t, http.MethodGet, "/api/board?sort=votes", token, nil)
	pains, _ := out["pains"].(map[string]any)
	procs, _ := pains["Processes"].([]any)
	top, _ := procs[0].(map[string]any)
	if top["id"] != first["id"] {
		t.Fatalf("sorted view top = %v, want %v", top["id"], first["id"])
	}
}
