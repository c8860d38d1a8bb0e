// Package api exposes the session and board services over a local
// HTTP API for the workshop frontend.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/happypulse/radar/internal/middleware"
	"github.com/happypulse/radar/internal/services"
	"github.com/happypulse/radar/internal/utils"
)

type Router struct {
	sessions *services.SessionService
	board    *services.BoardService
	auth     *middleware.TokenAuth
}

func NewRouter(sessions *services.SessionService, board *services.BoardService, auth *middleware.TokenAuth) *Router {
	return &Router{sessions: sessions, board: board, auth: auth}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/login", rt.handleLogin)
	mux.HandleFunc("/api/session", rt.handleSession)
	mux.Handle("/api/logout", rt.protected(rt.handleLogout))
	mux.Handle("/api/renew", rt.protected(rt.handleRenew))
	mux.Handle("/api/board", rt.protected(rt.handleBoard))
	mux.Handle("/api/pains", rt.protected(rt.handlePains))
	mux.Handle("/api/pains/", rt.protected(rt.handlePainScoped))
	mux.Handle("/api/emotions", rt.protected(rt.handleEmotions))
	mux.Handle("/api/reset", rt.protected(rt.handleReset))
}

// protected requires a valid bearer token and a live session. Expiry is
// re-checked on every request, not only on the watcher tick.
func (rt *Router) protected(h http.HandlerFunc) http.Handler {
	guard := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rt.sessions.CheckExpiry() {
			http.Error(w, "session expired", http.StatusUnauthorized)
			return
		}
		h(w, r)
	})
	return rt.auth.WithAuth(middleware.RequireAuth(guard))
}

func isAdmin(r *http.Request) bool {
	role, ok := middleware.RoleFromContext(r.Context())
	return ok && role == string(services.RoleAdmin)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		status := http.StatusInternalServerError
		switch se.Code {
		case services.ErrorInvalid:
			status = http.StatusBadRequest
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorForbidden:
			status = http.StatusForbidden
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorConflict:
			status = http.StatusConflict
		}
		http.Error(w, se.Message, status)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// POST /api/login {code} -> {token, role, remaining_ms}
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !rt.sessions.Login(req.Code) {
		http.Error(w, "invalid access code", http.StatusUnauthorized)
		return
	}
	role := rt.sessions.Role()
	token, err := rt.auth.Sign(string(role), rt.sessions.Remaining())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":        token,
		"role":         role,
		"remaining_ms": rt.sessions.Remaining().Milliseconds(),
	})
}

// GET /api/session -> {authenticated, admin, remaining_ms, remaining}
func (rt *Router) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	authed := rt.sessions.CheckExpiry()
	remaining := rt.sessions.Remaining()
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": authed,
		"admin":         rt.sessions.IsAdmin(),
		"remaining_ms":  remaining.Milliseconds(),
		"remaining":     utils.FormatRemaining(remaining),
	})
}

// POST /api/logout
func (rt *Router) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rt.sessions.Logout()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// POST /api/renew -> {token, remaining_ms}
func (rt *Router) handleRenew(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rt.sessions.Renew()
	token, err := rt.auth.Sign(string(rt.sessions.Role()), rt.sessions.Remaining())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":        token,
		"remaining_ms": rt.sessions.Remaining().Milliseconds(),
	})
}

// GET /api/board[?sort=votes] -> pains, tallies, user reactions, stats
func (rt *Router) handleBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var pains map[services.Category][]services.Pain
	if r.URL.Query().Get("sort") == "votes" {
		pains = map[services.Category][]services.Pain{}
		for _, c := range services.Categories() {
			pains[c] = rt.board.SortedByVotes(c)
		}
	} else {
		pains = rt.board.Grouped()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pains":          pains,
		"emotion_counts": rt.board.Tallies(),
		"user_votes":     rt.board.Reactions(),
		"stats":          rt.board.Stats(),
	})
}

// POST /api/pains {author, description, category} -> pain
func (rt *Router) handlePains(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Author      string            `json:"author"`
		Description string            `json:"description"`
		Category    services.Category `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p, err := rt.board.AddPain(req.Author, req.Description, req.Category)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// /api/pains/{id}            DELETE (admin)
// /api/pains/{id}/vote       POST
// /api/pains/{id}/reorder    POST {index}
func (rt *Router) handlePainScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/pains/")
	parts := strings.Split(rest, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := rt.board.DeletePain(id, isAdmin(r)); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case len(parts) == 2 && parts[1] == "vote":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		p, err := rt.board.Vote(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case len(parts) == 2 && parts[1] == "reorder":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Index int `json:"index"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := rt.board.Reorder(id, req.Index); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		http.NotFound(w, r)
	}
}

// POST /api/emotions {category, emotion}
func (rt *Router) handleEmotions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Category services.Category `json:"category"`
		Emotion  services.Reaction `json:"emotion"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := rt.board.CastEmotion(req.Category, req.Emotion); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"emotion_counts": rt.board.Tallies()[req.Category],
		"user_vote":      req.Emotion,
	})
}

// POST /api/reset (admin) — new round, entries kept
func (rt *Router) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := rt.board.ResetRound(isAdmin(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "stats": rt.board.Stats()})
}
