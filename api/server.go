// api/server.go
package api

import (
	"encoding/json"
	"log"
	"net/http"
)

// Server exposes the sync operations over HTTP. All handlers are methods so
// configuration flows in at construction rather than being read ambiently.
type Server struct {
	cfg    *Config
	syncer *Syncer
}

// NewServer wires the handlers from explicit configuration.
func NewServer(cfg *Config) *Server {
	return &Server{
		cfg:    cfg,
		syncer: NewSyncer(cfg),
	}
}

// Register attaches all routes to the given mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/cognito/webhook", s.WebhookHandler)
	mux.HandleFunc("/api/cognito/entries", s.EntriesHandler)
	mux.HandleFunc("/api/sync/run", s.RunHandler)
	mux.HandleFunc("/api/sync/scan", s.ScanHandler)
	mux.HandleFunc("/api/status", s.StatusHandler)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError returns a structured error body. Full detail is logged
// server-side; the message alone goes to the caller.
func respondError(w http.ResponseWriter, status int, err error) {
	log.Printf("Request failed (%d): %v", status, err)
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
