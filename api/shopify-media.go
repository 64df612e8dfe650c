// api/shopify-media.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Image reconciliation is always a whole-set replace: list what the product
// currently has, delete it, create the new set. Deletion and creation are
// separate remote calls, so a failure in between leaves the product without
// images until the next successful sync re-lists and converges.

// ListMediaIDs returns the ids of the product's current media.
func (s *ShopifyClient) ListMediaIDs(ctx context.Context, productID string) ([]string, error) {
	query := `
		query GetMedia($id: ID!) {
			product(id: $id) {
				id
				media(first: 100) {
					nodes { id }
				}
			}
		}
	`
	data, err := s.graphql(ctx, query, map[string]interface{}{"id": productID})
	if err != nil {
		return nil, fmt.Errorf("media listing for %s failed: %w", productID, err)
	}

	var out struct {
		Product *struct {
			Media struct {
				Nodes []struct {
					ID string `json:"id"`
				} `json:"nodes"`
			} `json:"media"`
		} `json:"product"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("error parsing media listing: %w", err)
	}
	if out.Product == nil {
		return nil, nil
	}

	var ids []string
	for _, n := range out.Product.Media.Nodes {
		if n.ID != "" {
			ids = append(ids, n.ID)
		}
	}
	return ids, nil
}

// DeleteMedia removes the given media ids in one batched call.
func (s *ShopifyClient) DeleteMedia(ctx context.Context, productID string, mediaIDs []string) error {
	mutation := `
		mutation ProductDeleteMedia($productId: ID!, $mediaIds: [ID!]!) {
			productDeleteMedia(productId: $productId, mediaIds: $mediaIds) {
				deletedMediaIds
				mediaUserErrors { code field message }
			}
		}
	`
	data, err := s.graphql(ctx, mutation, map[string]interface{}{
		"productId": productID,
		"mediaIds":  mediaIDs,
	})
	if err != nil {
		return fmt.Errorf("productDeleteMedia failed: %w", err)
	}

	var out struct {
		ProductDeleteMedia struct {
			MediaUserErrors []UserError `json:"mediaUserErrors"`
		} `json:"productDeleteMedia"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("error parsing productDeleteMedia response: %w", err)
	}
	return userErrorsToError("productDeleteMedia", out.ProductDeleteMedia.MediaUserErrors)
}

// createMedia attaches new images in one batched call. Each source is either
// a public URL Shopify fetches itself or a staged-upload resource url.
func (s *ShopifyClient) createMedia(ctx context.Context, productID string, sources []string) error {
	mutation := `
		mutation ProductCreateMedia($productId: ID!, $media: [CreateMediaInput!]!) {
			productCreateMedia(productId: $productId, media: $media) {
				media { id }
				mediaUserErrors { code field message }
				product { id }
			}
		}
	`
	media := make([]map[string]interface{}, 0, len(sources))
	for _, src := range sources {
		media = append(media, map[string]interface{}{
			"originalSource":   src,
			"mediaContentType": "IMAGE",
		})
	}

	data, err := s.graphql(ctx, mutation, map[string]interface{}{
		"productId": productID,
		"media":     media,
	})
	if err != nil {
		return fmt.Errorf("productCreateMedia failed: %w", err)
	}

	var out struct {
		ProductCreateMedia struct {
			MediaUserErrors []UserError `json:"mediaUserErrors"`
		} `json:"productCreateMedia"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("error parsing productCreateMedia response: %w", err)
	}
	return userErrorsToError("productCreateMedia", out.ProductCreateMedia.MediaUserErrors)
}

// ReplaceImagesWithURLs swaps the product's image set for the given remote
// URLs. Shopify fetches the bytes itself, so the URLs must be publicly
// reachable.
func (s *ShopifyClient) ReplaceImagesWithURLs(ctx context.Context, productID string, urls []string) error {
	mediaIDs, err := s.ListMediaIDs(ctx, productID)
	if err != nil {
		return err
	}
	if len(mediaIDs) > 0 {
		if err := s.DeleteMedia(ctx, productID, mediaIDs); err != nil {
			return err
		}
	}
	if len(urls) == 0 {
		return nil
	}
	return s.createMedia(ctx, productID, urls)
}

// stagedTarget is one upload slot returned by stagedUploadsCreate.
type stagedTarget struct {
	URL         string `json:"url"`
	ResourceURL string `json:"resourceUrl"`
	Parameters  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"parameters"`
}

// stagedUploadCreate requests one upload slot for an image file.
func (s *ShopifyClient) stagedUploadCreate(ctx context.Context, filename string) (*stagedTarget, error) {
	mutation := `
		mutation StagedUploadsCreate($input: [StagedUploadInput!]!) {
			stagedUploadsCreate(input: $input) {
				stagedTargets {
					url
					resourceUrl
					parameters { name value }
				}
				userErrors { field message }
			}
		}
	`
	data, err := s.graphql(ctx, mutation, map[string]interface{}{
		"input": []map[string]interface{}{{
			"filename":   filename,
			"mimeType":   mimeTypeFor(filename),
			"httpMethod": "POST",
			"resource":   "IMAGE",
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("stagedUploadsCreate failed: %w", err)
	}

	var out struct {
		StagedUploadsCreate struct {
			StagedTargets []stagedTarget `json:"stagedTargets"`
			UserErrors    []UserError    `json:"userErrors"`
		} `json:"stagedUploadsCreate"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("error parsing stagedUploadsCreate response: %w", err)
	}
	if err := userErrorsToError("stagedUploadsCreate", out.StagedUploadsCreate.UserErrors); err != nil {
		return nil, err
	}
	if len(out.StagedUploadsCreate.StagedTargets) == 0 {
		return nil, fmt.Errorf("stagedUploadsCreate returned no staged targets")
	}
	return &out.StagedUploadsCreate.StagedTargets[0], nil
}

// uploadToStagedTarget relays the file bytes to the staged slot. The target's
// parameters go first in the multipart body, then the file part, as the
// upload endpoint requires.
func (s *ShopifyClient) uploadToStagedTarget(ctx context.Context, target *stagedTarget, filename string, contents []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, p := range target.Parameters {
		if err := writer.WriteField(p.Name, p.Value); err != nil {
			return fmt.Errorf("error writing upload parameter %s: %w", p.Name, err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("error creating upload file part: %w", err)
	}
	if _, err := part.Write(contents); err != nil {
		return fmt.Errorf("error writing upload file bytes: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("error finalizing upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, &body)
	if err != nil {
		return fmt.Errorf("error creating staged upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("error posting to staged upload target: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("staged upload returned status %d: %s", resp.StatusCode, preview(respBody))
	}
	return nil
}

// DownloadFunc fetches the source bytes for one file ref.
type DownloadFunc func(ctx context.Context, ref *FileRef) ([]byte, error)

// ReplaceImagesFromFiles swaps the product's image set using refs that need a
// byte relay: each file is downloaded from the source system, pushed to a
// staged upload slot, and the staged resources are attached in one batch at
// the end. Any single download or upload failure aborts the whole
// reconciliation for this product so a partial image set is never committed.
func (s *ShopifyClient) ReplaceImagesFromFiles(ctx context.Context, productID string, refs []*FileRef, download DownloadFunc) error {
	mediaIDs, err := s.ListMediaIDs(ctx, productID)
	if err != nil {
		return err
	}
	if len(mediaIDs) > 0 {
		if err := s.DeleteMedia(ctx, productID, mediaIDs); err != nil {
			return err
		}
	}

	var resourceURLs []string
	for _, ref := range refs {
		if !ref.Usable() {
			continue
		}
		filename := ref.FileName
		if filename == "" {
			filename = "photo-" + uuid.NewString() + ".jpg"
		}

		target, err := s.stagedUploadCreate(ctx, filename)
		if err != nil {
			return fmt.Errorf("staging upload for %s: %w", filename, err)
		}
		contents, err := download(ctx, ref)
		if err != nil {
			return fmt.Errorf("downloading source file %s: %w", filename, err)
		}
		if err := s.uploadToStagedTarget(ctx, target, filename, contents); err != nil {
			return fmt.Errorf("relaying %s: %w", filename, err)
		}
		resourceURLs = append(resourceURLs, target.ResourceURL)
	}

	if len(resourceURLs) == 0 {
		return nil
	}
	return s.createMedia(ctx, productID, resourceURLs)
}

func mimeTypeFor(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if typ := mime.TypeByExtension(ext); typ != "" {
		return typ
	}
	return "image/jpeg"
}
