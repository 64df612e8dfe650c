// api/status.go
package api

import (
	"fmt"
	"net/http"
	"time"
)

// StatusHandler reports that the service is up and which endpoints it offers.
func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"service":   "Animals Proxy API",
		"status":    "online",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"endpoints": []string{
			"POST /api/cognito/webhook - Webhook for Cognito form submissions",
			"GET /api/cognito/entries - Entries passthrough (supports ?page=&pageSize=)",
			"POST /api/sync/run - Manual sync trigger",
			"POST /api/sync/scan - Sequential-id scan fallback",
			"GET /api/status - Service status",
		},
	})
}
