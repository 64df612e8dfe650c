// api/sync-run.go
package api

import (
	"fmt"
	"net/http"
	"strings"
)

// RunResponse reports the outcome of a manual full sync.
type RunResponse struct {
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// RunHandler triggers a full pull-and-sync of every form entry.
func (s *Server) RunHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}

	batch, err := s.syncer.SyncAll(r.Context())
	if err != nil {
		s.syncer.notifier.Notify(ErrorNotification, "Sync run failed", err.Error())
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	if batch.Failed > 0 {
		s.syncer.notifier.Notify(WarningNotification,
			fmt.Sprintf("Sync run finished with %d failures", batch.Failed),
			strings.Join(batch.Errors, "\n"))
	} else {
		s.syncer.notifier.Notify(SuccessNotification,
			fmt.Sprintf("Sync run processed %d entries", batch.Processed), "")
	}

	respondJSON(w, http.StatusOK, RunResponse{
		Processed: batch.Processed,
		Skipped:   batch.Skipped,
		Failed:    batch.Failed,
		Errors:    batch.Errors,
	})
}
