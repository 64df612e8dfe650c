package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeShopify is an in-memory stand-in for the Admin GraphQL API. It keys off
// the operation name in the query text and records every operation so tests
// can assert which remote calls a sync performed.
type fakeShopify struct {
	t  *testing.T
	mu sync.Mutex

	nextID     int
	products   map[string]*fakeProduct // keyed by handle
	metafields map[string][]Metafield  // keyed by product GID
	media      map[string][]fakeMedia  // keyed by product GID
	uploads    []fakeUpload
	ops        []string

	failCreateTitle string // productCreate for this title returns userErrors

	srv       *httptest.Server
	uploadSrv *httptest.Server
}

type fakeProduct struct {
	ID          string
	Handle      string
	Title       string
	Status      string
	Description string
	Tags        []string
}

type fakeMedia struct {
	ID     string
	Source string
}

type fakeUpload struct {
	Filename string
	Size     int
}

func newFakeShopify(t *testing.T) *fakeShopify {
	f := &fakeShopify{
		t:          t,
		products:   make(map[string]*fakeProduct),
		metafields: make(map[string][]Metafield),
		media:      make(map[string][]fakeMedia),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handleGraphQL))
	f.uploadSrv = httptest.NewServer(http.HandlerFunc(f.handleUpload))
	t.Cleanup(f.srv.Close)
	t.Cleanup(f.uploadSrv.Close)
	return f
}

func (f *fakeShopify) config() ShopifyConfig {
	return ShopifyConfig{Store: f.srv.URL, AdminToken: "test-token", APIVersion: defaultAPIVersion}
}

func (f *fakeShopify) productByHandle(handle string) *fakeProduct {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[handle]
}

func (f *fakeShopify) productByID(gid string) *fakeProduct {
	for _, p := range f.products {
		if p.ID == gid {
			return p
		}
	}
	return nil
}

func (f *fakeShopify) opCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, op := range f.ops {
		if op == name {
			n++
		}
	}
	return n
}

func (f *fakeShopify) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()
	contents, _ := io.ReadAll(file)

	f.mu.Lock()
	f.uploads = append(f.uploads, fakeUpload{Filename: header.Filename, Size: len(contents)})
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeShopify) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Shopify-Access-Token") == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	var req GraphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var data map[string]interface{}
	switch {
	case strings.Contains(req.Query, "ProductByHandle"):
		f.ops = append(f.ops, "productByHandle")
		data = f.doProductByHandle(req.Variables)
	case strings.Contains(req.Query, "CreateProduct"):
		f.ops = append(f.ops, "productCreate")
		data = f.doProductCreate(req.Variables)
	case strings.Contains(req.Query, "UpdateProduct"):
		f.ops = append(f.ops, "productUpdate")
		data = f.doProductUpdate(req.Variables)
	case strings.Contains(req.Query, "MetafieldsSet"):
		f.ops = append(f.ops, "metafieldsSet")
		data = f.doMetafieldsSet(req.Variables)
	case strings.Contains(req.Query, "GetMedia"):
		f.ops = append(f.ops, "mediaList")
		data = f.doMediaList(req.Variables)
	case strings.Contains(req.Query, "ProductDeleteMedia"):
		f.ops = append(f.ops, "mediaDelete")
		data = f.doMediaDelete(req.Variables)
	case strings.Contains(req.Query, "ProductCreateMedia"):
		f.ops = append(f.ops, "mediaCreate")
		data = f.doMediaCreate(req.Variables)
	case strings.Contains(req.Query, "StagedUploadsCreate"):
		f.ops = append(f.ops, "stagedUploadsCreate")
		data = f.doStagedUploadsCreate(req.Variables)
	default:
		http.Error(w, "unrecognized query: "+req.Query, http.StatusBadRequest)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func (f *fakeShopify) doProductByHandle(vars map[string]interface{}) map[string]interface{} {
	handle, _ := vars["handle"].(string)
	p := f.products[handle]
	if p == nil {
		return map[string]interface{}{"productByHandle": nil}
	}
	return map[string]interface{}{"productByHandle": map[string]interface{}{
		"id": p.ID, "handle": p.Handle, "title": p.Title, "status": p.Status,
	}}
}

func productFields(vars map[string]interface{}) (input map[string]interface{}, tags []string) {
	input, _ = vars["input"].(map[string]interface{})
	if raw, ok := input["tags"].([]interface{}); ok {
		for _, t := range raw {
			tags = append(tags, t.(string))
		}
	}
	return input, tags
}

func (f *fakeShopify) doProductCreate(vars map[string]interface{}) map[string]interface{} {
	input, tags := productFields(vars)
	title, _ := input["title"].(string)

	if f.failCreateTitle != "" && title == f.failCreateTitle {
		return map[string]interface{}{"productCreate": map[string]interface{}{
			"product":    nil,
			"userErrors": []map[string]interface{}{{"field": []string{"title"}, "message": "rejected by test"}},
		}}
	}

	f.nextID++
	p := &fakeProduct{
		ID:          fmt.Sprintf("gid://shopify/Product/%d", f.nextID),
		Handle:      input["handle"].(string),
		Title:       title,
		Status:      input["status"].(string),
		Description: input["descriptionHtml"].(string),
		Tags:        tags,
	}
	f.products[p.Handle] = p
	return map[string]interface{}{"productCreate": map[string]interface{}{
		"product":    map[string]interface{}{"id": p.ID, "handle": p.Handle, "status": p.Status, "title": p.Title},
		"userErrors": []interface{}{},
	}}
}

func (f *fakeShopify) doProductUpdate(vars map[string]interface{}) map[string]interface{} {
	input, tags := productFields(vars)
	id, _ := input["id"].(string)
	p := f.productByID(id)
	if p == nil {
		return map[string]interface{}{"productUpdate": map[string]interface{}{
			"product":    nil,
			"userErrors": []map[string]interface{}{{"message": "product not found"}},
		}}
	}
	p.Title = input["title"].(string)
	p.Description = input["descriptionHtml"].(string)
	p.Tags = tags
	return map[string]interface{}{"productUpdate": map[string]interface{}{
		"product":    map[string]interface{}{"id": p.ID, "handle": p.Handle, "status": p.Status, "title": p.Title},
		"userErrors": []interface{}{},
	}}
}

func (f *fakeShopify) doMetafieldsSet(vars map[string]interface{}) map[string]interface{} {
	raw, _ := vars["metafields"].([]interface{})
	for _, item := range raw {
		m := item.(map[string]interface{})
		owner := m["ownerId"].(string)
		meta := Metafield{
			Namespace: m["namespace"].(string),
			Key:       m["key"].(string),
			Type:      m["type"].(string),
			Value:     m["value"].(string),
		}
		// metafieldsSet upserts by (namespace, key)
		replaced := false
		for i, existing := range f.metafields[owner] {
			if existing.Namespace == meta.Namespace && existing.Key == meta.Key {
				f.metafields[owner][i] = meta
				replaced = true
				break
			}
		}
		if !replaced {
			f.metafields[owner] = append(f.metafields[owner], meta)
		}
	}
	return map[string]interface{}{"metafieldsSet": map[string]interface{}{
		"metafields": []interface{}{},
		"userErrors": []interface{}{},
	}}
}

func (f *fakeShopify) doMediaList(vars map[string]interface{}) map[string]interface{} {
	id, _ := vars["id"].(string)
	nodes := []map[string]interface{}{}
	for _, m := range f.media[id] {
		nodes = append(nodes, map[string]interface{}{"id": m.ID})
	}
	return map[string]interface{}{"product": map[string]interface{}{
		"id":    id,
		"media": map[string]interface{}{"nodes": nodes},
	}}
}

func (f *fakeShopify) doMediaDelete(vars map[string]interface{}) map[string]interface{} {
	productID, _ := vars["productId"].(string)
	doomed := map[string]bool{}
	for _, raw := range vars["mediaIds"].([]interface{}) {
		doomed[raw.(string)] = true
	}
	var kept []fakeMedia
	var deleted []string
	for _, m := range f.media[productID] {
		if doomed[m.ID] {
			deleted = append(deleted, m.ID)
		} else {
			kept = append(kept, m)
		}
	}
	f.media[productID] = kept
	return map[string]interface{}{"productDeleteMedia": map[string]interface{}{
		"deletedMediaIds": deleted,
		"mediaUserErrors": []interface{}{},
	}}
}

func (f *fakeShopify) doMediaCreate(vars map[string]interface{}) map[string]interface{} {
	productID, _ := vars["productId"].(string)
	for _, raw := range vars["media"].([]interface{}) {
		m := raw.(map[string]interface{})
		f.nextID++
		f.media[productID] = append(f.media[productID], fakeMedia{
			ID:     fmt.Sprintf("gid://shopify/MediaImage/%d", f.nextID),
			Source: m["originalSource"].(string),
		})
	}
	return map[string]interface{}{"productCreateMedia": map[string]interface{}{
		"media":           []interface{}{},
		"mediaUserErrors": []interface{}{},
		"product":         map[string]interface{}{"id": productID},
	}}
}

func (f *fakeShopify) doStagedUploadsCreate(vars map[string]interface{}) map[string]interface{} {
	f.nextID++
	return map[string]interface{}{"stagedUploadsCreate": map[string]interface{}{
		"stagedTargets": []map[string]interface{}{{
			"url":         f.uploadSrv.URL,
			"resourceUrl": fmt.Sprintf("https://shopify-staged-uploads.test/tmp/%d", f.nextID),
			"parameters": []map[string]interface{}{
				{"name": "key", "value": fmt.Sprintf("tmp/%d", f.nextID)},
			},
		}},
		"userErrors": []interface{}{},
	}}
}

// fakeCognito serves a set of entries over the provider's REST shape: the
// bulk list, per-number lookups (404 on absent numbers), and /files bytes.
type fakeCognito struct {
	mu      sync.Mutex
	formID  string
	entries map[int]Entry
	files   map[string][]byte

	failPaged    bool // paged list requests return 500
	failUnpaged  bool // unpaged list requests return 500
	brokenNumber int  // this entry number returns 500 instead of 404/200
	requests     []string

	srv *httptest.Server
}

func newFakeCognito(t *testing.T) *fakeCognito {
	f := &fakeCognito{
		formID:  "test-form",
		entries: make(map[int]Entry),
		files:   make(map[string][]byte),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeCognito) config() CognitoConfig {
	return CognitoConfig{
		BaseURL: f.srv.URL,
		FormID:  f.formID,
		APIKey:  "test-key",
	}
}

func (f *fakeCognito) add(e Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.ID] = e
}

func (f *fakeCognito) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.URL.String())

	listPath := fmt.Sprintf("/forms/%s/entries", f.formID)
	switch {
	case r.URL.Path == listPath:
		paged := r.URL.Query().Get("page") != ""
		if (paged && f.failPaged) || (!paged && f.failUnpaged) {
			http.Error(w, "upstream unavailable", http.StatusInternalServerError)
			return
		}
		var list []Entry
		for i := 1; i <= 10000; i++ {
			if e, ok := f.entries[i]; ok {
				list = append(list, e)
			}
		}
		if list == nil {
			list = []Entry{}
		}
		json.NewEncoder(w).Encode(list)

	case strings.HasPrefix(r.URL.Path, listPath+"/"):
		var number int
		fmt.Sscanf(strings.TrimPrefix(r.URL.Path, listPath+"/"), "%d", &number)
		if number == f.brokenNumber && number != 0 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		e, ok := f.entries[number]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(e)

	case strings.HasPrefix(r.URL.Path, "/files/"):
		contents, ok := f.files[strings.TrimPrefix(r.URL.Path, "/files/")]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Write(contents)

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// serveHTTP exposes a Server over a real listener and returns its base URL.
func serveHTTP(t *testing.T, s *Server) string {
	mux := http.NewServeMux()
	s.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

// testConfig assembles a full Config pointed at the two fakes.
func testConfig(shop *fakeShopify, cog *fakeCognito) *Config {
	return &Config{
		Cognito:      cog.config(),
		Shopify:      shop.config(),
		HandleSuffix: defaultHandleSuffix,
	}
}
