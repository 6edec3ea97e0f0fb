package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
	"github.com/lcalzada-xor/cvefuse/internal/core/services/fusion"
)

// Server exposes run status over HTTP: health, Prometheus metrics, the live
// fusion summary and record lookup. It is read-only; the pipeline never
// takes commands from the wire.
type Server struct {
	Addr  string
	Store *fusion.Store
	srv   *http.Server
}

// NewServer creates a new status server over the live fusion store.
func NewServer(addr string, store *fusion.Store) *Server {
	return &Server{Addr: addr, Store: store}
}

// Run starts the server and blocks until ctx is cancelled or the listener
// fails. Shutdown is graceful with a short drain timeout.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:    s.Addr,
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		log.Println("Status server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Status server shutdown error: %v", err)
		}
	}()

	log.Printf("Status server listening on %s", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/summary", s.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/records/{id}", s.handleRecord).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	type summary struct {
		Records    int                                      `json:"records"`
		Unresolved int                                      `json:"unresolved"`
		PerSource  map[domain.SourceName]domain.SourceStats `json:"per_source"`
	}

	resp := summary{
		Records:    s.Store.Len(),
		Unresolved: len(s.Store.Unresolved()),
		PerSource:  s.Store.Stats(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Failed to encode summary: %v", err)
	}
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, ok := s.Store.Lookup(id)
	if !ok {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rec); err != nil {
		log.Printf("Failed to encode record %s: %v", id, err)
	}
}
