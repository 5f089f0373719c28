package rest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/michalovjan/depalign/internal/cache"
)

const lookupPath = "/lookup/gavs"

// Stats counts translator work during one run.
type Stats struct {
	Requests    int64 `json:"requests"`
	Splits      int64 `json:"splits"`
	CacheHits   int64 `json:"cache_hits,omitempty"`
	CacheMisses int64 `json:"cache_misses,omitempty"`
}

type Option func(*DefaultTranslator)

func WithHTTPClient(client *http.Client) Option {
	return func(t *DefaultTranslator) {
		if client != nil {
			t.client = client
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *DefaultTranslator) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithCache consults store before posting and remembers fresh results,
// including "no recommendation" outcomes.
func WithCache(store cache.Store) Option {
	return func(t *DefaultTranslator) {
		t.store = store
	}
}

// DefaultTranslator posts lookup batches to the service, splitting and
// retrying batches the service times out on (HTTP 504).
type DefaultTranslator struct {
	settings    Settings
	fingerprint string
	client      *http.Client
	logger      *slog.Logger
	store       cache.Store

	requests    atomic.Int64
	splits      atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

var _ Translator = (*DefaultTranslator)(nil)

func NewDefaultTranslator(settings Settings, opts ...Option) *DefaultTranslator {
	t := &DefaultTranslator{
		settings:    settings,
		fingerprint: settingsFingerprint(settings),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		t.client = NewHTTPClient(settings.ConnectionTimeout, nil)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// NewHTTPClient builds the translator's HTTP client: connTimeout bounds the
// dial and TLS handshake. A non-nil wrap decorates the transport (used for
// tracing instrumentation).
func NewHTTPClient(connTimeout time.Duration, wrap func(http.RoundTripper) http.RoundTripper) *http.Client {
	if connTimeout <= 0 {
		connTimeout = DefaultConnectionTimeout
	}
	var transport http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: connTimeout,
		}).DialContext,
		TLSHandshakeTimeout: connTimeout,
	}
	if wrap != nil {
		transport = wrap(transport)
	}
	return &http.Client{Transport: transport}
}

func (t *DefaultTranslator) Stats() Stats {
	return Stats{
		Requests:    t.requests.Load(),
		Splits:      t.splits.Load(),
		CacheHits:   t.cacheHits.Load(),
		CacheMisses: t.cacheMisses.Load(),
	}
}

func (t *DefaultTranslator) LookupVersions(ctx context.Context, gavs []GAV) (map[GAV]string, error) {
	if strings.TrimSpace(t.settings.URL) == "" {
		return nil, ErrDisabled
	}

	result := make(map[GAV]string, len(gavs))
	remaining := gavs
	if t.store != nil {
		remaining = t.fromCache(ctx, gavs, result)
	}
	if len(remaining) == 0 {
		return result, nil
	}

	queue := t.partition(remaining)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk := queue[0]
		queue = queue[1:]

		reports, status, err := t.post(ctx, chunk)
		if status == http.StatusGatewayTimeout && t.canSplit(chunk) {
			t.splits.Add(1)
			t.logger.Warn("lookup_chunk_split",
				"chunk", len(chunk),
				"pieces", t.settings.MinSize,
				"wait", t.settings.RetryDuration.String(),
			)
			if err := t.waitRetry(ctx); err != nil {
				return nil, err
			}
			queue = append(queue, splitChunk(chunk, t.settings.MinSize)...)
			continue
		}
		if err != nil {
			return nil, err
		}

		fresh := make(map[GAV]string, len(reports))
		for _, rep := range reports {
			if rep.BestMatchVersion == "" {
				continue
			}
			fresh[rep.gav()] = rep.BestMatchVersion
		}
		for g, v := range fresh {
			result[g] = v
		}
		t.storeResults(ctx, chunk, fresh)
	}
	return result, nil
}

func (t *DefaultTranslator) post(ctx context.Context, chunk []GAV) ([]LookupReport, int, error) {
	t.requests.Add(1)

	body, err := json.Marshal(lookupRequest{
		Artifacts:      chunk,
		Mode:           t.settings.Mode,
		BrewPullActive: t.settings.BrewPullActive,
		Constraints:    t.settings.Constraints,
	})
	if err != nil {
		return nil, 0, err
	}

	if t.settings.SocketTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.settings.SocketTimeout)
		defer cancel()
	}

	endpoint := strings.TrimRight(t.settings.URL, "/") + lookupPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for _, h := range t.settings.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("lookup of %d gavs: %w", len(chunk), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, resp.StatusCode, fmt.Errorf("lookup of %d gavs: status %d: %s", len(chunk), resp.StatusCode, msg)
	}

	var reports []LookupReport
	if err := json.NewDecoder(resp.Body).Decode(&reports); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode lookup response: %w", err)
	}
	return reports, resp.StatusCode, nil
}

// partition cuts the initial request into chunks of at most MaxSize.
func (t *DefaultTranslator) partition(gavs []GAV) [][]GAV {
	limit := t.settings.MaxSize
	if limit <= 0 || len(gavs) <= limit {
		return [][]GAV{gavs}
	}
	out := make([][]GAV, 0, (len(gavs)+limit-1)/limit)
	for start := 0; start < len(gavs); start += limit {
		end := start + limit
		if end > len(gavs) {
			end = len(gavs)
		}
		out = append(out, gavs[start:end])
	}
	return out
}

// canSplit requires the split to shrink the chunk, otherwise a timed-out
// request would requeue itself forever.
func (t *DefaultTranslator) canSplit(chunk []GAV) bool {
	return t.settings.MinSize >= 2 && len(chunk) >= t.settings.MinSize
}

func splitChunk(gavs []GAV, pieces int) [][]GAV {
	if pieces > len(gavs) {
		pieces = len(gavs)
	}
	out := make([][]GAV, 0, pieces)
	size := len(gavs) / pieces
	rem := len(gavs) % pieces
	start := 0
	for i := 0; i < pieces; i++ {
		end := start + size
		if i < rem {
			end++
		}
		out = append(out, gavs[start:end])
		start = end
	}
	return out
}

func (t *DefaultTranslator) waitRetry(ctx context.Context) error {
	if t.settings.RetryDuration <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(t.settings.RetryDuration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *DefaultTranslator) cacheKey(g GAV) string {
	return t.fingerprint + "|" + g.String()
}

// fromCache fills result from cached best matches and returns the GAVs that
// still need the network. Cache failures degrade to misses.
func (t *DefaultTranslator) fromCache(ctx context.Context, gavs []GAV, result map[GAV]string) []GAV {
	remaining := make([]GAV, 0, len(gavs))
	for _, g := range gavs {
		ent, err := t.store.Get(ctx, t.cacheKey(g))
		if err != nil {
			if !errors.Is(err, cache.ErrNotFound) {
				t.logger.Warn("lookup_cache_get_failed", "gav", g.String(), "error", err.Error())
			}
			t.cacheMisses.Add(1)
			remaining = append(remaining, g)
			continue
		}
		t.cacheHits.Add(1)
		if ent.Value != "" {
			result[g] = ent.Value
		}
	}
	return remaining
}

func (t *DefaultTranslator) storeResults(ctx context.Context, chunk []GAV, fresh map[GAV]string) {
	if t.store == nil {
		return
	}
	for _, g := range chunk {
		if err := t.store.Put(ctx, cache.Entry{Key: t.cacheKey(g), Value: fresh[g]}); err != nil {
			t.logger.Warn("lookup_cache_put_failed", "gav", g.String(), "error", err.Error())
		}
	}
}

// settingsFingerprint hashes the request-shaping settings so cache entries
// written under one mode or constraint set are invisible to another.
func settingsFingerprint(s Settings) string {
	payload, _ := json.Marshal(struct {
		Mode           string       `json:"mode"`
		BrewPullActive bool         `json:"brewPullActive"`
		Constraints    []Constraint `json:"constraints"`
	}{s.Mode, s.BrewPullActive, s.Constraints})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}
