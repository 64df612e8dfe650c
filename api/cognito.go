// api/cognito.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// FileRef is one uploaded file on a Cognito entry. Id may arrive as a number
// or a string depending on the form version, so it is kept raw. A ref with
// neither Id nor Url cannot be fetched and is treated as absent.
type FileRef struct {
	ID       json.RawMessage `json:"Id,omitempty"`
	FileName string          `json:"FileName,omitempty"`
	URL      string          `json:"Url,omitempty"`
}

// Usable reports whether the ref carries enough to locate the file.
func (f *FileRef) Usable() bool {
	return f != nil && (f.URL != "" || len(f.ID) > 0)
}

// IDString returns the file id as a plain string, stripping JSON quoting.
func (f *FileRef) IDString() string {
	if f == nil || len(f.ID) == 0 {
		return ""
	}
	return strings.Trim(string(f.ID), `"`)
}

// Entry is one dog listing from Cognito Forms. Older webhook payloads use
// "Name" where the form schema says "DogName"; normalize() resolves that at
// the boundary so everything downstream reads DogName only.
type Entry struct {
	ID      int    `json:"Id"`
	DogName string `json:"DogName"`
	Name    string `json:"Name,omitempty"`
	MyStory string `json:"MyStory,omitempty"`
	Code    string `json:"Code,omitempty"`

	LitterName             string `json:"LitterName,omitempty"`
	PupBirthday            string `json:"PupBirthday,omitempty"`
	Breed                  string `json:"Breed,omitempty"`
	Gender                 string `json:"Gender,omitempty"`
	EstimatedSizeWhenGrown string `json:"EstimatedSizeWhenGrown,omitempty"`
	Availability           string `json:"Availability,omitempty"`

	MainPhoto        *FileRef `json:"MainPhoto,omitempty"`
	AdditionalPhoto1 *FileRef `json:"AdditionalPhoto1,omitempty"`
	AdditionalPhoto2 *FileRef `json:"AdditionalPhoto2,omitempty"`
	AdditionalPhoto3 *FileRef `json:"AdditionalPhoto3,omitempty"`
	AdditionalPhoto4 *FileRef `json:"AdditionalPhoto4,omitempty"`
}

// normalize produces the canonical record shape: DogName carries the display
// name regardless of which field the payload used.
func (e *Entry) normalize() {
	if e.DogName == "" && e.Name != "" {
		e.DogName = e.Name
	}
	e.Name = ""
}

// CognitoClient talks to the Cognito Forms API for one form.
type CognitoClient struct {
	cfg    CognitoConfig
	client *http.Client
}

// NewCognitoClient builds a client from explicit configuration.
func NewCognitoClient(cfg CognitoConfig) *CognitoClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &CognitoClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// DiscoveryError is returned when every entry-discovery strategy failed. It
// keeps each attempt's detail for operator debugging and wraps the last
// underlying error.
type DiscoveryError struct {
	Attempts []string
	Last     error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("all entry discovery strategies failed: %s", strings.Join(e.Attempts, "; "))
}

func (e *DiscoveryError) Unwrap() error { return e.Last }

// fetchStrategy is one way of obtaining the full entry list. Strategies are
// attempted in order; the first success wins.
type fetchStrategy struct {
	name    string
	attempt func(ctx context.Context) ([]Entry, error)
}

// FetchEntries returns all entries for the configured form. It tries a paged
// fetch first, then an unpaged fetch, then this deployment's own proxy route
// for environments where the direct Cognito call is blocked.
func (c *CognitoClient) FetchEntries(ctx context.Context) ([]Entry, error) {
	strategies := []fetchStrategy{
		{name: "paged", attempt: c.fetchEntriesPaged},
		{name: "unpaged", attempt: c.fetchEntriesUnpaged},
	}
	if c.cfg.SelfBaseURL != "" {
		strategies = append(strategies, fetchStrategy{name: "self-proxy", attempt: c.fetchEntriesViaProxy})
	}

	var attempts []string
	var lastErr error
	for _, s := range strategies {
		entries, err := s.attempt(ctx)
		if err == nil {
			return entries, nil
		}
		attempts = append(attempts, fmt.Sprintf("%s: %v", s.name, err))
		lastErr = err
	}
	return nil, &DiscoveryError{Attempts: attempts, Last: lastErr}
}

const (
	fetchPageSize = 100
	maxFetchPages = 100
)

// fetchEntriesPaged walks the entry list page by page until a short page. A
// provider that ignores the pagination parameters returns the same full list
// for every page; that shows up as page 2 repeating page 1's first entry, and
// the strategy fails so the fallback chain can take over instead of looping.
func (c *CognitoClient) fetchEntriesPaged(ctx context.Context) ([]Entry, error) {
	var all []Entry
	for page := 1; page <= maxFetchPages; page++ {
		url := fmt.Sprintf("%s/forms/%s/entries?page=%d&pageSize=%d", c.cfg.BaseURL, c.cfg.FormID, page, fetchPageSize)
		batch, err := c.getEntryList(ctx, url)
		if err != nil {
			return nil, err
		}
		if page > 1 && len(batch) > 0 && len(all) > 0 && batch[0].ID == all[0].ID {
			return nil, fmt.Errorf("page %d repeated entry %d; pagination appears to be ignored", page, batch[0].ID)
		}
		all = append(all, batch...)
		if len(batch) < fetchPageSize {
			return all, nil
		}
	}
	return nil, fmt.Errorf("entry list did not end after %d pages", maxFetchPages)
}

func (c *CognitoClient) fetchEntriesUnpaged(ctx context.Context) ([]Entry, error) {
	url := fmt.Sprintf("%s/forms/%s/entries", c.cfg.BaseURL, c.cfg.FormID)
	return c.getEntryList(ctx, url)
}

// fetchEntriesViaProxy hits this deployment's own passthrough route, which is
// useful when the previously-verified proxy path works but the direct call
// does not (DNS or egress restrictions on the runtime).
func (c *CognitoClient) fetchEntriesViaProxy(ctx context.Context) ([]Entry, error) {
	url := fmt.Sprintf("%s/api/cognito/entries", strings.TrimRight(c.cfg.SelfBaseURL, "/"))
	return c.getEntryList(ctx, url)
}

func (c *CognitoClient) getEntryList(ctx context.Context, url string) ([]Entry, error) {
	body, status, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned status %d: %s", url, status, preview(body))
	}
	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("error parsing entries from %s: %w. Body: %s", url, err, preview(body))
	}
	for i := range entries {
		entries[i].normalize()
	}
	return entries, nil
}

// FetchEntry fetches a single entry by number. A 404 means the entry does not
// exist and returns (nil, nil); any other failure is an error.
func (c *CognitoClient) FetchEntry(ctx context.Context, number int) (*Entry, error) {
	url := fmt.Sprintf("%s/forms/%s/entries/%d", c.cfg.BaseURL, c.cfg.FormID, number)
	body, status, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned status %d: %s", url, status, preview(body))
	}
	var entry Entry
	if err := json.Unmarshal(body, &entry); err != nil {
		return nil, fmt.Errorf("error parsing entry %d: %w", number, err)
	}
	entry.normalize()
	return &entry, nil
}

// DownloadFile fetches the raw bytes for a file ref, preferring the direct
// URL and falling back to the id-keyed files endpoint.
func (c *CognitoClient) DownloadFile(ctx context.Context, ref *FileRef) ([]byte, error) {
	var url string
	switch {
	case ref == nil || !ref.Usable():
		return nil, fmt.Errorf("file ref has neither url nor id")
	case ref.URL != "":
		url = ref.URL
	default:
		url = fmt.Sprintf("%s/files/%s", c.cfg.BaseURL, ref.IDString())
	}

	body, status, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("file download %s returned status %d", url, status)
	}
	return body, nil
}

// ScanOptions bound a sequential-id scan.
type ScanOptions struct {
	StartFrom       int
	MaxToCheck      int
	StopAfterMisses int
}

// ScanResult is what a scan found, in probe order.
type ScanResult struct {
	FoundNumbers []int
	Entries      []Entry
	LastChecked  int
}

// Scan probes entries by sequential number for forms where bulk listing is
// unavailable. It gives up once a run of consecutive 404s exceeds
// StopAfterMisses (a hit resets the counter), so a gap of exactly
// StopAfterMisses ids between two hits does not end the scan before the next
// id is probed. The scan also stops once MaxToCheck ids have been probed.
// Any non-404 failure aborts immediately since it signals a broken token or
// endpoint rather than an absent record.
func (c *CognitoClient) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	if opts.StartFrom < 1 {
		opts.StartFrom = 1
	}
	if opts.StopAfterMisses < 1 {
		opts.StopAfterMisses = 50
	}
	if opts.MaxToCheck < 1 {
		opts.MaxToCheck = 2000
	}

	res := &ScanResult{}
	misses := 0
	n := opts.StartFrom
	for misses <= opts.StopAfterMisses && n-opts.StartFrom < opts.MaxToCheck {
		entry, err := c.FetchEntry(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("scan aborted at entry %d: %w", n, err)
		}
		if entry == nil {
			misses++
		} else {
			misses = 0
			res.FoundNumbers = append(res.FoundNumbers, n)
			res.Entries = append(res.Entries, *entry)
		}
		res.LastChecked = n
		n++
	}
	return res, nil
}

func (c *CognitoClient) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("error creating request for %s: %w", url, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("error calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("error reading response from %s: %w", url, err)
	}
	return body, resp.StatusCode, nil
}

// preview truncates a body for error messages so logs stay readable.
func preview(b []byte) string {
	const max = 500
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
