package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/happypulse/radar/internal/api"
	"github.com/happypulse/radar/internal/config"
	"github.com/happypulse/radar/internal/db"
	"github.com/happypulse/radar/internal/middleware"
	"github.com/happypulse/radar/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var store services.SessionStore
	if cfg.DBPath != "" {
		sqlite, err := db.Open(cfg.DBPath)
		if err != nil {
			log.Fatalf("session store: %v", err)
		}
		defer sqlite.Close()
		store = sqlite
	} else {
		store = db.NewMemoryStore()
	}

	sessions := services.NewSessionService(services.SessionConfig{
		ParticipantCode: cfg.ParticipantCode,
		AdminCode:       cfg.AdminCode,
		Duration:        cfg.SessionDuration,
	}, store)
	board := services.NewBoardService()
	auth := middleware.NewTokenAuth(cfg.TokenSecret)

	mux := http.NewServeMux()
	api.NewRouter(sessions, board, auth).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "name": "Happiness Radar API"})
	})
	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The expiry watcher lives for the life of the process; the channel
	// lets us log forced logouts as they happen.
	expired := sessions.Watch(ctx)
	go func() {
		for range expired {
			log.Printf("session expired, forced logout")
		}
	}()

	handler := middleware.NoStore(middleware.CORS(mux))
	server := &http.Server{Addr: cfg.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	log.Printf("Happiness Radar listening on %s", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}
