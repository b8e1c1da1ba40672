package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/verdantlabs/curator/internal/record"
)

// fakeIndex is an in-memory stand-in for the remote vector store, served
// over httptest so commands exercise the real HTTP client end to end.
type fakeIndex struct {
	mu      sync.Mutex
	records map[string]record.Record
	upserts [][]record.Record
	deletes [][]string
}

func newFakeIndex(records ...record.Record) *fakeIndex {
	f := &fakeIndex{records: make(map[string]record.Record)}
	for _, r := range records {
		f.records[r.ID] = r
	}
	return f
}

func (f *fakeIndex) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /describe_index_stats", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"dimension":        1536,
			"totalVectorCount": len(f.records),
		})
	})

	mux.HandleFunc("POST /query", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var matches []map[string]any
		for _, rec := range f.records {
			matches = append(matches, map[string]any{
				"id":       rec.ID,
				"score":    0.0,
				"metadata": rec.Metadata,
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"matches": matches})
	})

	mux.HandleFunc("GET /vectors/fetch", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		vectors := make(map[string]record.Record)
		for _, id := range r.URL.Query()["ids"] {
			if rec, ok := f.records[id]; ok {
				vectors[id] = rec
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"vectors": vectors})
	})

	mux.HandleFunc("POST /vectors/upsert", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Vectors []record.Record `json:"vectors"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.upserts = append(f.upserts, body.Vectors)
		for _, rec := range body.Vectors {
			f.records[rec.ID] = rec
		}
		w.Write([]byte("{}"))
	})

	mux.HandleFunc("POST /vectors/delete", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.deletes = append(f.deletes, body.IDs)
		for _, id := range body.IDs {
			delete(f.records, id)
		}
		w.Write([]byte("{}"))
	})

	return mux
}

// executeCmd runs one curator command against the fake index with captured
// output. Package-level flag variables are reset so stale values from
// previous tests do not leak.
func executeCmd(t *testing.T, f *fakeIndex, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("CURATOR_CONFIG_PATH", filepath.Join(dir, "no-such-config.yaml"))
	t.Setenv("PINECONE_API_KEY", "test-key")
	t.Setenv("CURATOR_INDEX_HOST", srv.URL)
	// Tests that span two invocations pre-set the journal path so both
	// share one database.
	if os.Getenv("CURATOR_JOURNAL_PATH") == "" {
		t.Setenv("CURATOR_JOURNAL_PATH", filepath.Join(dir, "journal.db"))
	}
	t.Setenv("CURATOR_SNAPSHOT_DIR", filepath.Join(dir, "snapshots"))

	configPath = ""
	dryRun = false
	purgeKeywords = nil
	purgeForce = false
	statsJSONOutput = false
	historyLimit = 20
	historyRunID = ""
	historyJSONOutput = false
	searchTopK = 10
	searchType = ""

	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	rootCmd.SetOut(outBuf)
	rootCmd.SetErr(errBuf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err = rootCmd.Execute()

	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)
	rootCmd.SetIn(nil)
	rootCmd.SetArgs(nil)

	return outBuf.String(), errBuf.String(), err
}

func pesticideRecord(id, name, labelURL, pdfPath string) record.Record {
	meta := record.Metadata{
		"type":         record.TypePesticideProduct,
		"product_name": name,
	}
	if labelURL != "" {
		meta["label_url"] = labelURL
	}
	if pdfPath != "" {
		meta["pdf_path"] = pdfPath
	}
	return record.Record{ID: id, Values: []float32{0.1, 0.2}, Metadata: meta}
}

func TestUnlinkRemovesDisallowedLinks(t *testing.T) {
	f := newFakeIndex(
		pesticideRecord("rec-epa", "Scythe", "https://www.epa.gov/label/scythe.pdf", "scythe.txt"),
		pesticideRecord("rec-ok", "Tenacity", "https://labels.example.com/tenacity.pdf", "tenacity.pdf"),
	)

	stdout, _, err := executeCmd(t, f, "", "unlink")
	if err != nil {
		t.Fatalf("unlink failed: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(f.upserts))
	}
	got := f.records["rec-epa"]
	if got.Metadata.Has("label_url") || got.Metadata.Has("pdf_path") {
		t.Errorf("disallowed links not removed: %v", got.Metadata)
	}
	if len(got.Values) != 2 {
		t.Errorf("embedding not round-tripped: %v", got.Values)
	}
	if ok := f.records["rec-ok"]; ok.Metadata.GetString("label_url") != "https://labels.example.com/tenacity.pdf" {
		t.Errorf("clean record modified: %v", ok.Metadata)
	}
	if !strings.Contains(stdout, "Updated:") {
		t.Errorf("summary not printed:\n%s", stdout)
	}
}

func TestUnlinkDryRunWritesNothing(t *testing.T) {
	f := newFakeIndex(
		pesticideRecord("rec-epa", "Scythe", "https://www.epa.gov/label/scythe.pdf", ""),
	)

	stdout, _, err := executeCmd(t, f, "", "unlink", "--dry-run")
	if err != nil {
		t.Fatalf("unlink --dry-run failed: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.upserts) != 0 {
		t.Fatalf("dry run wrote %d upserts", len(f.upserts))
	}
	if !f.records["rec-epa"].Metadata.Has("label_url") {
		t.Error("dry run mutated the record")
	}
	if !strings.Contains(stdout, "dry-run") {
		t.Errorf("dry-run mode not reported:\n%s", stdout)
	}
}

func TestPurgeForceDeletesWithoutPrompt(t *testing.T) {
	f := newFakeIndex(
		pesticideRecord("rec-old", "OBSOLETE Turf Guide", "", ""),
		pesticideRecord("rec-keep", "Tenacity", "", ""),
	)

	_, _, err := executeCmd(t, f, "", "purge", "--keyword", "OBSOLETE", "--force")
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.deletes) != 1 || len(f.deletes[0]) != 1 || f.deletes[0][0] != "rec-old" {
		t.Fatalf("unexpected deletes: %v", f.deletes)
	}
	if _, ok := f.records["rec-keep"]; !ok {
		t.Error("unmatched record deleted")
	}
}

func TestPurgeDeclinedDeletesNothing(t *testing.T) {
	f := newFakeIndex(
		pesticideRecord("rec-old", "OBSOLETE Turf Guide", "", ""),
	)

	stdout, stderr, err := executeCmd(t, f, "no\n", "purge", "--keyword", "OBSOLETE")
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.deletes) != 0 {
		t.Fatalf("declined purge deleted records: %v", f.deletes)
	}
	if !strings.Contains(stdout, "Cancelled:") {
		t.Errorf("cancellation not reported:\n%s", stdout)
	}
	if !strings.Contains(stderr, "yes") {
		t.Errorf("confirmation prompt not shown:\n%s", stderr)
	}
}

func TestStatsJSON(t *testing.T) {
	f := newFakeIndex(
		pesticideRecord("rec-1", "Tenacity", "", ""),
	)

	stdout, _, err := executeCmd(t, f, "", "stats", "--json")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	var got struct {
		Dimension        int   `json:"dimension"`
		TotalVectorCount int64 `json:"totalVectorCount"`
	}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("stats output not JSON: %v\n%s", err, stdout)
	}
	if got.Dimension != 1536 || got.TotalVectorCount != 1 {
		t.Errorf("unexpected stats: %+v", got)
	}
}

func TestHistoryListsCompletedRuns(t *testing.T) {
	f := newFakeIndex(
		pesticideRecord("rec-epa", "Scythe", "https://www.epa.gov/label/scythe.pdf", ""),
	)

	dir := t.TempDir()
	journalPath := filepath.Join(dir, "journal.db")
	t.Setenv("CURATOR_JOURNAL_PATH", journalPath)

	if _, _, err := executeCmd(t, f, "", "unlink"); err != nil {
		t.Fatalf("unlink failed: %v", err)
	}

	stdout, _, err := executeCmd(t, f, "", "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(stdout, "unlink") {
		t.Errorf("run not listed:\n%s", stdout)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"warn", "WARN"},
		{"error", "ERROR"},
		{"info", "INFO"},
		{"unknown", "INFO"},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.input).String(); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}
