// api/webhook.go
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// WebhookResponse is the success payload for a processed webhook push.
// ProductNumericID is the plain id out of the product GID, for callers that
// build admin links or store references without parsing GIDs themselves.
type WebhookResponse struct {
	OK               bool   `json:"ok"`
	ProductID        string `json:"productId,omitempty"`
	ProductNumericID int64  `json:"productNumericId,omitempty"`
	Handle           string `json:"handle,omitempty"`
	DogName          string `json:"dogName,omitempty"`
	Skipped          bool   `json:"skipped,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// WebhookHandler receives real-time entry pushes from Cognito Forms and syncs
// the single entry in the payload.
func (s *Server) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}

	if secret := s.cfg.Cognito.WebhookSecret; secret != "" {
		if r.Header.Get("X-Cognito-Signature") != secret {
			respondError(w, http.StatusUnauthorized, fmt.Errorf("invalid signature"))
			return
		}
	}

	var entry Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	entry.normalize()

	if entry.DogName == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("missing DogName"))
		return
	}

	log.Printf("Processing Cognito entry: %d %s", entry.ID, entry.DogName)

	res, err := s.syncer.SyncOne(r.Context(), &entry)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, WebhookResponse{
		OK:               true,
		ProductID:        res.ProductID,
		ProductNumericID: ExtractNumericID(res.ProductID),
		Handle:           res.Handle,
		DogName:          res.DogName,
		Skipped:          res.Skipped,
		Reason:           res.Reason,
	})
}
