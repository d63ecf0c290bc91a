// Package server exposes the run status API and progress websocket over an
// h2c-enabled HTTP server.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"archsight/internal/progress"
	"archsight/internal/runstore"
)

type Server struct {
	httpServer *http.Server
	log        *log.Logger
}

// New wires the handler set: run listing and lookup, the event stream, and
// a health probe.
func New(addr string, runs *runstore.Store, hub *progress.Hub, logger *log.Logger) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/ws", progress.NewWSHandler(hub))
	mux.HandleFunc("/runs", func(w http.ResponseWriter, r *http.Request) {
		handleListRuns(w, r, runs)
	})
	mux.HandleFunc("/runs/", func(w http.ResponseWriter, r *http.Request) {
		handleGetRun(w, r, runs)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: h2c.NewHandler(mux, &http2.Server{}),
		},
		log: logger,
	}
}

func (s *Server) Start() error {
	s.log.Printf("server: listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func handleListRuns(w http.ResponseWriter, r *http.Request, runs *runstore.Store) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	list, err := runs.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

func handleGetRun(w http.ResponseWriter, r *http.Request, runs *runstore.Store) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Path[len("/runs/"):]
	if id == "" {
		http.Error(w, "run id is required", http.StatusBadRequest)
		return
	}
	run, err := runs.Get(r.Context(), id)
	if errors.Is(err, runstore.ErrNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, run)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
