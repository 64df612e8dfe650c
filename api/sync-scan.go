// api/sync-scan.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
)

// ScanResponse reports what a sequential-id scan found and synced.
type ScanResponse struct {
	Processed    int      `json:"processed"`
	Skipped      int      `json:"skipped"`
	Failed       int      `json:"failed"`
	CheckedRange [2]int   `json:"checkedRange"`
	FoundNumbers []int    `json:"foundNumbers"`
	Errors       []string `json:"errors,omitempty"`
}

// ScanHandler probes entries by sequential number for forms without a working
// bulk list. Query parameters: start (first number to probe), stopAfter
// (consecutive misses before giving up), max (absolute probe cap).
func (s *Server) ScanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}

	opts := ScanOptions{
		StartFrom:       queryInt(r, "start", 1),
		StopAfterMisses: queryInt(r, "stopAfter", 50),
		MaxToCheck:      queryInt(r, "max", 2000),
	}

	scan, batch, err := s.syncer.SyncScan(r.Context(), opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	found := scan.FoundNumbers
	if found == nil {
		found = []int{}
	}
	respondJSON(w, http.StatusOK, ScanResponse{
		Processed:    batch.Processed,
		Skipped:      batch.Skipped,
		Failed:       batch.Failed,
		CheckedRange: [2]int{opts.StartFrom, scan.LastChecked},
		FoundNumbers: found,
		Errors:       batch.Errors,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
