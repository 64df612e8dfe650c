// api/cognito-entries.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// EntriesHandler is a read-only passthrough to the provider's entries list.
// It exists both for manual inspection and as the target of the self-proxy
// discovery fallback, so its response body is the upstream body verbatim
// (re-encoded as JSON) with the upstream status code.
func (s *Server) EntriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}

	target, err := url.Parse(fmt.Sprintf("%s/forms/%s/entries", s.cfg.Cognito.BaseURL, s.cfg.Cognito.FormID))
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Errorf("building upstream URL: %w", err))
		return
	}
	q := target.Query()
	if page := r.URL.Query().Get("page"); page != "" {
		q.Set("page", page)
	}
	if pageSize := r.URL.Query().Get("pageSize"); pageSize != "" {
		q.Set("pageSize", pageSize)
	}
	target.RawQuery = q.Encode()

	body, status, err := s.syncer.cognito.get(r.Context(), target.String())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if json.Valid(body) {
		w.Write(body)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"raw": string(body)})
}
