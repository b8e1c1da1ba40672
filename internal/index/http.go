package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/verdantlabs/curator/internal/record"
)

// Compile-time interface check
var _ Client = (*HTTPClient)(nil)

// httpDoer defines the minimal http.Client surface used by HTTPClient.
// This abstraction enables testing without a live index.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClient talks to the index's REST data plane. Calls share a rate
// limiter so maintenance runs cannot starve the serving path.
type HTTPClient struct {
	http    httpDoer
	host    string
	apiKey  string
	limiter *rate.Limiter
}

// Options configures an HTTPClient.
type Options struct {
	// CallTimeout bounds each store call. Zero means 30s.
	CallTimeout time.Duration
	// RateLimit is the sustained store calls per second. Zero disables limiting.
	RateLimit float64
}

// NewHTTPClient creates a client for the index at host, authenticating with
// apiKey on every request.
func NewHTTPClient(host, apiKey string, opts Options) *HTTPClient {
	timeout := opts.CallTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return &HTTPClient{
		http:    &http.Client{Timeout: timeout},
		host:    strings.TrimRight(host, "/"),
		apiKey:  apiKey,
		limiter: limiter,
	}
}

// Query issues one similarity query and returns matches in store order.
func (c *HTTPClient) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	if req.TopK > MaxTopK {
		return nil, fmt.Errorf("top_k %d exceeds store limit %d", req.TopK, MaxTopK)
	}
	var resp QueryResponse
	if err := c.post(ctx, "/query", req, &resp); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return &resp, nil
}

// fetchResponse mirrors the store's fetch payload.
type fetchResponse struct {
	Vectors map[string]record.Record `json:"vectors"`
}

// Fetch returns the authoritative current records for ids. Ids absent from
// the index are simply missing from the result, not an error.
func (c *HTTPClient) Fetch(ctx context.Context, ids []string) (map[string]record.Record, error) {
	if len(ids) == 0 {
		return map[string]record.Record{}, nil
	}

	q := url.Values{}
	for _, id := range ids {
		q.Add("ids", id)
	}

	var resp fetchResponse
	if err := c.get(ctx, "/vectors/fetch?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if resp.Vectors == nil {
		resp.Vectors = map[string]record.Record{}
	}
	return resp.Vectors, nil
}

// Upsert writes records, embedding and metadata together. The store
// overwrites whole records, so callers must round-trip the embedding.
func (c *HTTPClient) Upsert(ctx context.Context, records []record.Record) error {
	if len(records) == 0 {
		return nil
	}
	body := map[string]any{"vectors": records}
	if err := c.post(ctx, "/vectors/upsert", body, nil); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// Delete removes ids from the index. The batch must respect the store's
// limit; callers split larger sets before calling.
func (c *HTTPClient) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > MaxDeleteBatch {
		return fmt.Errorf("%w: %d ids, limit %d", ErrBatchTooLarge, len(ids), MaxDeleteBatch)
	}
	body := map[string]any{"ids": ids}
	if err := c.post(ctx, "/vectors/delete", body, nil); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// DescribeIndexStats reports aggregate statistics. Also serves as the
// startup credential check: an auth failure here aborts before any scan.
func (c *HTTPClient) DescribeIndexStats(ctx context.Context) (*IndexStats, error) {
	var stats IndexStats
	if err := c.post(ctx, "/describe_index_stats", map[string]any{}, &stats); err != nil {
		return nil, fmt.Errorf("describe index stats: %w", err)
	}
	return &stats, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}

	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("store returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
