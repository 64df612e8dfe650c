// api/sync.go
package api

import (
	"context"
	"fmt"
	"log"
)

// SyncResult reports what happened to one entry.
type SyncResult struct {
	EntryID   int    `json:"entryId"`
	DogName   string `json:"dogName,omitempty"`
	Handle    string `json:"handle,omitempty"`
	ProductID string `json:"productId,omitempty"`
	Created   bool   `json:"created"`
	Skipped   bool   `json:"skipped"`
	Reason    string `json:"reason,omitempty"`
}

// BatchResult summarizes a run over many entries. Per-record failures are
// collected rather than aborting the batch.
type BatchResult struct {
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// Syncer drives the one-directional Cognito -> Shopify sync. It owns no
// state of its own; everything lives in the two remote systems.
type Syncer struct {
	cfg      *Config
	cognito  *CognitoClient
	shopify  *ShopifyClient
	notifier *Notifier
}

// NewSyncer wires the sync engine from explicit configuration.
func NewSyncer(cfg *Config) *Syncer {
	return &Syncer{
		cfg:      cfg,
		cognito:  NewCognitoClient(cfg.Cognito),
		shopify:  NewShopifyClient(cfg.Shopify),
		notifier: NewNotifier(cfg.Mailgun),
	}
}

// SyncOne upserts the product for a single entry and reconciles its
// metafields and images. Re-running with an unchanged entry converges to the
// same product state, so every discovery path (webhook, bulk run, scan) can
// process the same entry safely.
func (sy *Syncer) SyncOne(ctx context.Context, entry *Entry) (*SyncResult, error) {
	entry.normalize()
	res := &SyncResult{EntryID: entry.ID, DogName: entry.DogName}

	if entry.DogName == "" {
		res.Skipped = true
		res.Reason = "missing-name"
		log.Printf("Skipping entry %d: no dog name", entry.ID)
		return res, nil
	}

	handle := ToHandle(entry.DogName, sy.cfg.HandleSuffix)
	res.Handle = handle

	existing, err := sy.shopify.FindProductByHandle(ctx, handle)
	if err != nil {
		return res, err
	}

	input := ProductInput{
		Title:           entry.DogName,
		DescriptionHTML: entry.MyStory,
		Tags:            TagsForCode(entry.Code),
		Handle:          handle,
		Status:          "ACTIVE",
	}
	if existing != nil {
		input.ID = existing.ID
	}

	productID, err := sy.shopify.UpsertProduct(ctx, input)
	if err != nil {
		return res, err
	}
	res.ProductID = productID
	res.Created = existing == nil

	if metas := MapMetafields(entry); len(metas) > 0 {
		if err := sy.shopify.SetMetafields(ctx, productID, metas); err != nil {
			return res, err
		}
	}

	if err := sy.reconcileImages(ctx, productID, entry); err != nil {
		return res, err
	}

	log.Printf("Synced entry %d (%s) -> %s (created=%v)", entry.ID, entry.DogName, productID, res.Created)
	return res, nil
}

// reconcileImages replaces the product's image set from the entry's photos.
// When every ref carries a direct URL, Shopify fetches them itself; a mix of
// URL-less refs forces the staged-upload byte relay. No photos at all leaves
// the product's existing images alone.
func (sy *Syncer) reconcileImages(ctx context.Context, productID string, entry *Entry) error {
	refs := CollectFileRefs(entry)
	if len(refs) == 0 {
		return nil
	}

	var urls []string
	for _, ref := range refs {
		if ref.URL != "" {
			urls = append(urls, ref.URL)
		}
	}

	if len(urls) == len(refs) {
		return sy.shopify.ReplaceImagesWithURLs(ctx, productID, urls)
	}
	return sy.shopify.ReplaceImagesFromFiles(ctx, productID, refs, sy.cognito.DownloadFile)
}

// SyncAll pulls every entry via the discovery strategy chain and syncs each
// in order. One entry's failure is logged and counted but does not stop the
// batch.
func (sy *Syncer) SyncAll(ctx context.Context) (*BatchResult, error) {
	entries, err := sy.cognito.FetchEntries(ctx)
	if err != nil {
		return nil, err
	}
	return sy.syncBatch(ctx, entries), nil
}

// SyncScan discovers entries by sequential-number probing and syncs each hit.
func (sy *Syncer) SyncScan(ctx context.Context, opts ScanOptions) (*ScanResult, *BatchResult, error) {
	scan, err := sy.cognito.Scan(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return scan, sy.syncBatch(ctx, scan.Entries), nil
}

func (sy *Syncer) syncBatch(ctx context.Context, entries []Entry) *BatchResult {
	batch := &BatchResult{}
	for i := range entries {
		entry := &entries[i]
		res, err := sy.SyncOne(ctx, entry)
		switch {
		case err != nil:
			batch.Failed++
			batch.Errors = append(batch.Errors, fmt.Sprintf("entry %d (%s): %v", entry.ID, entry.DogName, err))
			log.Printf("Error syncing entry %d (%s): %v", entry.ID, entry.DogName, err)
		case res.Skipped:
			batch.Skipped++
		default:
			batch.Processed++
		}
	}
	return batch
}
