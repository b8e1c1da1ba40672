package index

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/verdantlabs/curator/internal/record"
)

func newTestClient(handler http.Handler) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewHTTPClient(srv.URL, "test-key", Options{})
	return client, srv
}

func TestHTTPClient_Query(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any

	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Api-Key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(QueryResponse{
			Matches: []Match{
				{ID: "a", Score: 0.9, Metadata: record.Metadata{"product_name": "Heritage"}},
				{ID: "b", Score: 0.8},
			},
		})
	}))
	defer srv.Close()

	resp, err := client.Query(context.Background(), QueryRequest{
		Vector:          make([]float32, 4),
		TopK:            100,
		Filter:          In("type", "pesticide_product", "pesticide_label"),
		IncludeMetadata: true,
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if gotPath != "/query" {
		t.Errorf("path = %q, want /query", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("Api-Key = %q, want test-key", gotKey)
	}
	if gotBody["topK"] != float64(100) {
		t.Errorf("topK = %v, want 100", gotBody["topK"])
	}
	if gotBody["includeMetadata"] != true {
		t.Error("includeMetadata not forwarded")
	}
	if _, ok := gotBody["filter"].(map[string]any); !ok {
		t.Errorf("filter not forwarded: %v", gotBody["filter"])
	}
	if len(resp.Matches) != 2 || resp.Matches[0].ID != "a" {
		t.Errorf("matches = %+v", resp.Matches)
	}
	if resp.Matches[0].Metadata.GetString("product_name") != "Heritage" {
		t.Errorf("metadata not decoded: %+v", resp.Matches[0].Metadata)
	}
}

func TestHTTPClient_Query_TopKLimit(t *testing.T) {
	client := NewHTTPClient("http://unused", "k", Options{})
	_, err := client.Query(context.Background(), QueryRequest{TopK: MaxTopK + 1})
	if err == nil {
		t.Fatal("Query() should reject top_k above the store limit")
	}
}

func TestHTTPClient_Fetch(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/fetch" {
			t.Errorf("path = %q", r.URL.Path)
		}
		ids := r.URL.Query()["ids"]
		if len(ids) != 2 {
			t.Errorf("ids = %v, want 2 entries", ids)
		}
		// One requested id is stale and absent from the result.
		json.NewEncoder(w).Encode(map[string]any{
			"vectors": map[string]record.Record{
				"a": {ID: "a", Values: []float32{0.1, 0.2}, Metadata: record.Metadata{"type": "pesticide_product"}},
			},
		})
	}))
	defer srv.Close()

	got, err := client.Fetch(context.Background(), []string{"a", "gone"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Fetch() returned %d records, want 1", len(got))
	}
	if _, ok := got["gone"]; ok {
		t.Error("absent id should be missing from the result, not present")
	}
	if got["a"].Metadata.GetString("type") != "pesticide_product" {
		t.Errorf("record a = %+v", got["a"])
	}
}

func TestHTTPClient_Fetch_Empty(t *testing.T) {
	client := NewHTTPClient("http://unused", "k", Options{})
	got, err := client.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Fetch(nil) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Fetch(nil) = %v, want empty", got)
	}
}

func TestHTTPClient_Upsert_RoundTripsEmbedding(t *testing.T) {
	var gotBody struct {
		Vectors []record.Record `json:"vectors"`
	}
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/upsert" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"upsertedCount":1}`))
	}))
	defer srv.Close()

	rec := record.Record{
		ID:       "a",
		Values:   []float32{0.25, 0.5},
		Metadata: record.Metadata{"label_url": "https://example.gov/x.pdf"},
	}
	if err := client.Upsert(context.Background(), []record.Record{rec}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if len(gotBody.Vectors) != 1 {
		t.Fatalf("upserted %d vectors, want 1", len(gotBody.Vectors))
	}
	if len(gotBody.Vectors[0].Values) != 2 || gotBody.Vectors[0].Values[0] != 0.25 {
		t.Errorf("embedding not round-tripped: %v", gotBody.Vectors[0].Values)
	}
}

func TestHTTPClient_Delete_BatchLimit(t *testing.T) {
	client := NewHTTPClient("http://unused", "k", Options{})

	ids := make([]string, MaxDeleteBatch+1)
	for i := range ids {
		ids[i] = "id"
	}
	err := client.Delete(context.Background(), ids)
	if !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("Delete() error = %v, want ErrBatchTooLarge", err)
	}
}

func TestHTTPClient_Delete_EmptyIsNoop(t *testing.T) {
	called := false
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	if err := client.Delete(context.Background(), nil); err != nil {
		t.Fatalf("Delete(nil) error = %v", err)
	}
	if called {
		t.Error("Delete(nil) should not hit the store")
	}
}

func TestHTTPClient_DescribeIndexStats(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/describe_index_stats" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(IndexStats{Dimension: 1536, TotalVectorCount: 4321})
	}))
	defer srv.Close()

	stats, err := client.DescribeIndexStats(context.Background())
	if err != nil {
		t.Fatalf("DescribeIndexStats() error = %v", err)
	}
	if stats.TotalVectorCount != 4321 || stats.Dimension != 1536 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHTTPClient_Unauthorized(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := client.DescribeIndexStats(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestHTTPClient_ServerErrorIncludesBody(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("index is scaling"))
	}))
	defer srv.Close()

	_, err := client.DescribeIndexStats(context.Background())
	if err == nil {
		t.Fatal("expected error for 503")
	}
	if got := err.Error(); !strings.Contains(got, "503") || !strings.Contains(got, "index is scaling") {
		t.Errorf("error = %q, want status and body snippet", got)
	}
}

func TestFilterHelpers(t *testing.T) {
	eq := Eq("type", "pesticide_label")
	if eq["type"] != "pesticide_label" {
		t.Errorf("Eq = %v", eq)
	}

	in := In("type", "a", "b")
	inner, ok := in["type"].(map[string]any)
	if !ok {
		t.Fatalf("In = %v", in)
	}
	values, ok := inner["$in"].([]any)
	if !ok || len(values) != 2 || values[0] != "a" {
		t.Errorf("In values = %v", inner["$in"])
	}
}
