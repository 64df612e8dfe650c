// api/shopify.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// GraphQL query structure
type GraphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// GraphQL response structure
type GraphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message   string `json:"message"`
		Locations []struct {
			Line   int `json:"line"`
			Column int `json:"column"`
		} `json:"locations,omitempty"`
		Path       []interface{}          `json:"path,omitempty"`
		Extensions map[string]interface{} `json:"extensions,omitempty"`
	} `json:"errors,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// UserError is Shopify's validation error shape. A non-empty list means the
// mutation failed even when the HTTP call itself returned 200.
type UserError struct {
	Field   []string `json:"field,omitempty"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message"`
}

func userErrorsToError(op string, errs []UserError) error {
	if len(errs) == 0 {
		return nil
	}
	payload, _ := json.Marshal(errs)
	return fmt.Errorf("%s returned user errors: %s", op, payload)
}

// Product is the slice of a Shopify product this service cares about.
type Product struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Title  string `json:"title,omitempty"`
	Status string `json:"status,omitempty"`
}

// ProductInput is the upsert payload. ID is set only for updates.
type ProductInput struct {
	ID              string   `json:"id,omitempty"`
	Title           string   `json:"title"`
	DescriptionHTML string   `json:"descriptionHtml"`
	Tags            []string `json:"tags"`
	Handle          string   `json:"handle"`
	Status          string   `json:"status"`
}

// ShopifyClient talks to one store's Admin GraphQL API.
type ShopifyClient struct {
	cfg    ShopifyConfig
	client *http.Client
}

// NewShopifyClient builds a client from explicit configuration.
func NewShopifyClient(cfg ShopifyConfig) *ShopifyClient {
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	return &ShopifyClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// endpoint builds the Admin GraphQL URL. Store is normally a bare
// my-store.myshopify.com host; a full URL is accepted too so local harnesses
// can point at a stand-in server.
func (s *ShopifyClient) endpoint() string {
	store := s.cfg.Store
	if strings.Contains(store, "://") {
		return fmt.Sprintf("%s/admin/api/%s/graphql.json", strings.TrimRight(store, "/"), s.cfg.APIVersion)
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", store, s.cfg.APIVersion)
}

// graphql executes one query/mutation and returns the raw data payload.
// Non-2xx statuses and top-level GraphQL errors are both failures, with the
// full error payload preserved for diagnostics.
func (s *ShopifyClient) graphql(ctx context.Context, query string, variables map[string]interface{}) (json.RawMessage, error) {
	requestJSON, err := json.Marshal(GraphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), bytes.NewReader(requestJSON))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", s.cfg.AdminToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling Shopify GraphQL API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Shopify API request failed with status %d: %s", resp.StatusCode, preview(body))
	}

	var graphqlResp GraphQLResponse
	if err := json.Unmarshal(body, &graphqlResp); err != nil {
		return nil, fmt.Errorf("error parsing JSON response: %w. Response body: %s", err, preview(body))
	}

	if len(graphqlResp.Errors) > 0 {
		var msgs []string
		for _, gqlErr := range graphqlResp.Errors {
			msgs = append(msgs, gqlErr.Message)
		}
		return nil, fmt.Errorf("GraphQL errors encountered: %s", strings.Join(msgs, "; "))
	}

	if len(graphqlResp.Data) == 0 {
		return nil, fmt.Errorf("received nil data in GraphQL response")
	}
	return graphqlResp.Data, nil
}

// FindProductByHandle looks up a product by its handle. Absence is not an
// error; it returns (nil, nil).
func (s *ShopifyClient) FindProductByHandle(ctx context.Context, handle string) (*Product, error) {
	query := `
		query ProductByHandle($handle: String!) {
			productByHandle(handle: $handle) {
				id
				handle
				title
				status
			}
		}
	`
	data, err := s.graphql(ctx, query, map[string]interface{}{"handle": handle})
	if err != nil {
		return nil, fmt.Errorf("product lookup for handle %q failed: %w", handle, err)
	}

	var out struct {
		ProductByHandle *Product `json:"productByHandle"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("error parsing productByHandle response: %w", err)
	}
	return out.ProductByHandle, nil
}

// UpsertProduct creates the product when input.ID is empty, updates it in
// place otherwise. User errors propagate; they are not retried.
func (s *ShopifyClient) UpsertProduct(ctx context.Context, input ProductInput) (string, error) {
	op := "productCreate"
	mutation := `
		mutation CreateProduct($input: ProductInput!) {
			productCreate(input: $input) {
				product { id handle status title }
				userErrors { field message }
			}
		}
	`
	if input.ID != "" {
		op = "productUpdate"
		mutation = `
			mutation UpdateProduct($input: ProductInput!) {
				productUpdate(input: $input) {
					product { id handle status title }
					userErrors { field message }
				}
			}
		`
	}
	if input.Status == "" {
		input.Status = "ACTIVE"
	}
	if input.Tags == nil {
		input.Tags = []string{}
	}

	data, err := s.graphql(ctx, mutation, map[string]interface{}{"input": input})
	if err != nil {
		return "", fmt.Errorf("%s failed: %w", op, err)
	}

	var out map[string]struct {
		Product    *Product    `json:"product"`
		UserErrors []UserError `json:"userErrors"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("error parsing %s response: %w", op, err)
	}

	res := out[op]
	if err := userErrorsToError(op, res.UserErrors); err != nil {
		return "", err
	}
	if res.Product == nil || res.Product.ID == "" {
		return "", fmt.Errorf("%s returned no product id", op)
	}
	return res.Product.ID, nil
}

// SetMetafields pushes the metafields as one batched metafieldsSet call.
// Callers must not invoke it with an empty list; the engine skips the call
// instead of sending an empty batch.
func (s *ShopifyClient) SetMetafields(ctx context.Context, ownerID string, metafields []Metafield) error {
	mutation := `
		mutation MetafieldsSet($metafields: [MetafieldsSetInput!]!) {
			metafieldsSet(metafields: $metafields) {
				metafields { id namespace key type value }
				userErrors { field message }
			}
		}
	`
	inputs := make([]map[string]interface{}, 0, len(metafields))
	for _, m := range metafields {
		inputs = append(inputs, map[string]interface{}{
			"ownerId":   ownerID,
			"namespace": m.Namespace,
			"key":       m.Key,
			"type":      m.Type,
			"value":     m.Value,
		})
	}

	data, err := s.graphql(ctx, mutation, map[string]interface{}{"metafields": inputs})
	if err != nil {
		return fmt.Errorf("metafieldsSet failed: %w", err)
	}

	var out struct {
		MetafieldsSet struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"metafieldsSet"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("error parsing metafieldsSet response: %w", err)
	}
	return userErrorsToError("metafieldsSet", out.MetafieldsSet.UserErrors)
}

// ExtractNumericID pulls the trailing numeric id out of a Shopify GID
// (e.g. "gid://shopify/Product/12345" -> 12345). Returns 0 when the GID
// cannot be parsed.
func ExtractNumericID(gid string) int64 {
	if gid == "" {
		return 0
	}
	parts := strings.Split(gid, "/")
	idStr := strings.Split(parts[len(parts)-1], "?")[0]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
