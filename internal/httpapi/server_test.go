package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/bundlefeed/internal/catalog"
	"horse.fit/bundlefeed/internal/store"
)

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	cat := catalog.Assemble([]catalog.Item{
		{ID: "a1", Bundle: "Tech", Title: "Vision Pro ships", Source: "Pub Daily", PublishedTS: 1771000300},
		{ID: "a2", Bundle: "Tech", Title: "Chip shortage eases", Source: "Wire", PublishedTS: 1771000200},
		{ID: "b1", Bundle: "Climate", Title: "Wetlands absorb carbon", Source: "Science Desk", PublishedTS: 1771000100},
	}, catalog.Meta{RetentionDays: 90, BundlesCount: 2, QueriesCount: 3}, time.Unix(1771001000, 0))
	if err := store.Save(path, cat); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	return NewServer(path, zerolog.Nop(), Options{}), path
}

func get(t *testing.T, s *Server, target string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, env
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	code, env := get(t, s, "/api/v1/health")
	if code != http.StatusOK || env.Status != "success" {
		t.Fatalf("unexpected health response %d %+v", code, env)
	}
}

func TestMetaAndBundles(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	code, env := get(t, s, "/api/v1/meta")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var meta catalog.Meta
	if err := json.Unmarshal(env.Data, &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.ItemsCount != 3 || meta.BundlesCount != 2 {
		t.Fatalf("unexpected meta %+v", meta)
	}

	code, env = get(t, s, "/api/v1/bundles")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var bundles struct {
		Items []catalog.BundleCount `json:"items"`
	}
	if err := json.Unmarshal(env.Data, &bundles); err != nil {
		t.Fatalf("decode bundles: %v", err)
	}
	if len(bundles.Items) != 2 || bundles.Items[0].Bundle != "Climate" || bundles.Items[1].Items != 2 {
		t.Fatalf("unexpected bundles %+v", bundles.Items)
	}
}

func TestItemsFilterAndPaginate(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	tests := []struct {
		target  string
		wantIDs []string
		total   int
	}{
		{"/api/v1/items", []string{"a1", "a2", "b1"}, 3},
		{"/api/v1/items?bundle=tech", []string{"a1", "a2"}, 2},
		{"/api/v1/items?q=WIRE", []string{"a2"}, 1},
		{"/api/v1/items?page=2&page_size=2", []string{"b1"}, 3},
		{"/api/v1/items?page=5&page_size=2", []string{}, 3},
		{"/api/v1/items?since=2026-02-13T16:29:00Z", []string{"a1", "a2"}, 2},
	}
	for _, tt := range tests {
		code, env := get(t, s, tt.target)
		if code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d (%s)", tt.target, code, env.Message)
		}
		var page itemListResponse
		if err := json.Unmarshal(env.Data, &page); err != nil {
			t.Fatalf("%s: decode: %v", tt.target, err)
		}
		if page.Total != tt.total || len(page.Items) != len(tt.wantIDs) {
			t.Fatalf("%s: expected %d/%d items, got %d/%d", tt.target, len(tt.wantIDs), tt.total, len(page.Items), page.Total)
		}
		for i, id := range tt.wantIDs {
			if page.Items[i].ID != id {
				t.Fatalf("%s: expected item %d to be %s, got %s", tt.target, i, id, page.Items[i].ID)
			}
		}
	}
}

func TestItemsRejectsBadParams(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	for _, target := range []string{
		"/api/v1/items?page=0",
		"/api/v1/items?page_size=500",
		"/api/v1/items?page=abc",
		"/api/v1/items?since=last-week",
	} {
		code, env := get(t, s, target)
		if code != http.StatusBadRequest || env.Status != "fail" {
			t.Fatalf("%s: expected 400 fail, got %d %s", target, code, env.Status)
		}
	}
}

func TestItemDetail(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	code, env := get(t, s, "/api/v1/items/b1")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var it catalog.Item
	if err := json.Unmarshal(env.Data, &it); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	if it.Title != "Wetlands absorb carbon" {
		t.Fatalf("unexpected item %+v", it)
	}

	code, env = get(t, s, "/api/v1/items/missing")
	if code != http.StatusNotFound || env.Status != "fail" {
		t.Fatalf("expected 404 fail, got %d %s", code, env.Status)
	}
}

func TestCorruptCatalogIsServerError(t *testing.T) {
	t.Parallel()

	s, path := newTestServer(t)
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("corrupt catalog: %v", err)
	}

	code, env := get(t, s, "/api/v1/meta")
	if code != http.StatusInternalServerError || env.Status != "error" {
		t.Fatalf("expected 500 error, got %d %s", code, env.Status)
	}
}

func TestMissingCatalogIsEmpty(t *testing.T) {
	t.Parallel()

	s := NewServer(filepath.Join(t.TempDir(), "none.json"), zerolog.Nop(), Options{})
	code, env := get(t, s, "/api/v1/items")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var page itemListResponse
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 0 || page.TotalPages != 0 {
		t.Fatalf("expected empty page, got %+v", page)
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	code, env := get(t, s, "/api/v1/nope")
	if code != http.StatusNotFound || env.Status != "fail" {
		t.Fatalf("expected 404 fail envelope, got %d %+v", code, env)
	}
}
