package index

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/hashicorp/go-multierror"

	"openaleph.org/search/es"
	"openaleph.org/search/settings"
)

// ErrBulk is the sentinel wrapped by every failure the bulk pipeline
// accumulates.
var ErrBulk = errors.New("bulk indexing failed")

const indexerProgressEvery = 10_000

// Indexer ships actions to the cluster over the bulk API. Actions queue
// on a bounded channel and a fixed set of workers drains it, batching by
// action count and payload size. Failures accumulate and surface when
// the indexer is closed.
type Indexer struct {
	client  *elasticsearch.Client
	cfg     *settings.Config
	refresh string

	actions chan *Action
	wg      sync.WaitGroup
	started time.Time

	queued  atomic.Int64
	success atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64

	mu   sync.Mutex
	errs *multierror.Error
}

// NewIndexer starts the bulk pipeline with the configured number of
// workers. The context bounds every request the workers make; cancel it
// and the pipeline drains with errors instead of writes.
func NewIndexer(ctx context.Context, client *elasticsearch.Client, cfg *settings.Config) *Indexer {
	ix := &Indexer{
		client:  client,
		cfg:     cfg,
		refresh: refreshParam(RefreshSync(cfg, false)),
		actions: make(chan *Action, cfg.IndexerChunkSize),
		started: time.Now(),
	}

	for range cfg.IndexerConcurrency {
		ix.wg.Add(1)
		go ix.work(ctx)
	}

	return ix
}

// Index queues one action, blocking while the pipeline is saturated.
// Must not be called after Close.
func (ix *Indexer) Index(ctx context.Context, action *Action) error {
	if action == nil {
		return fmt.Errorf("%w: nil action", ErrInvalidAction)
	}

	if err := action.Validate(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case ix.actions <- action:
	case <-ctx.Done():
		return ctx.Err()
	}

	if n := ix.queued.Add(1); n%indexerProgressEvery == 0 {
		slog.InfoContext(ctx, "indexing", slog.Int64("queued", n))
	}

	return nil
}

// Close flushes queued actions, stops the workers, and reports every
// accumulated failure.
func (ix *Indexer) Close() error {
	close(ix.actions)
	ix.wg.Wait()

	slog.Info("bulk indexing completed",
		slog.Int64("indexed", ix.success.Load()),
		slog.Int64("dropped", ix.dropped.Load()),
		slog.Int64("failed", ix.failed.Load()),
		slog.Duration("took", time.Since(ix.started)),
	)

	return ix.errs.ErrorOrNil()
}

// Stats returns the running counts of indexed, dropped, and failed
// actions.
func (ix *Indexer) Stats() (indexed, dropped, failed int64) {
	return ix.success.Load(), ix.dropped.Load(), ix.failed.Load()
}

func (ix *Indexer) work(ctx context.Context) {
	defer ix.wg.Done()

	chunk := make([]*Action, 0, ix.cfg.IndexerChunkSize)
	size := 0

	flush := func() {
		if len(chunk) == 0 {
			return
		}

		ix.flush(ctx, chunk)
		chunk = chunk[:0]
		size = 0
	}

	for action := range ix.actions {
		chunk = append(chunk, action)
		size += len(action.Source)

		if len(chunk) >= ix.cfg.IndexerChunkSize || size >= ix.cfg.IndexerMaxChunkBytes {
			flush()
		}
	}

	flush()
}

// flush submits one chunk, retrying rejected actions with backoff until
// they stick or the retry budget runs out.
func (ix *Indexer) flush(ctx context.Context, chunk []*Action) {
	for attempt := 0; ; attempt++ {
		retry, err := ix.submit(ctx, chunk)
		if err != nil {
			ix.failed.Add(int64(len(chunk)))
			ix.record(err)

			return
		}

		if len(retry) == 0 {
			return
		}

		if attempt >= ix.cfg.MaxRetries {
			ix.failed.Add(int64(len(retry)))
			ix.record(fmt.Errorf("%w: %d actions still rejected after %d attempts", ErrBulk, len(retry), attempt+1))

			return
		}

		select {
		case <-time.After(es.Backoff(attempt + 1)):
		case <-ctx.Done():
			ix.failed.Add(int64(len(retry)))
			ix.record(ctx.Err())

			return
		}

		chunk = retry
	}
}

// submit sends one bulk request and sorts the per-item results: rejected
// actions come back for retry, conflicts and stale deletes are dropped,
// the rest counts as indexed or failed.
func (ix *Indexer) submit(ctx context.Context, chunk []*Action) ([]*Action, error) {
	var body []byte

	live := make([]*Action, 0, len(chunk))
	for _, action := range chunk {
		encoded, err := action.AppendBulk(body)
		if err != nil {
			ix.failed.Add(1)
			ix.record(err)

			continue
		}

		body = encoded
		live = append(live, action)
	}

	if len(live) == 0 {
		return nil, nil
	}

	res, err := ix.client.Bulk(bytes.NewReader(body),
		ix.client.Bulk.WithContext(ctx),
		ix.client.Bulk.WithRefresh(ix.refresh),
	)
	if err != nil {
		return nil, fmt.Errorf("bulk request: %w", err)
	}

	out, err := es.DecodeResponse(res)
	if err != nil {
		return nil, fmt.Errorf("bulk request: %w", err)
	}

	if errored, _ := out["errors"].(bool); !errored {
		ix.success.Add(int64(len(live)))

		return nil, nil
	}

	items, _ := out["items"].([]any)

	var retry []*Action

	failures := 0

	for i, raw := range items {
		if i >= len(live) {
			break
		}

		item, _ := raw.(map[string]any)
		op, info := bulkItem(item)
		status, _ := info["status"].(float64)

		switch {
		case info["error"] == nil && int(status) < http.StatusBadRequest:
			ix.success.Add(1)
		case op == OpDelete && int(status) == http.StatusNotFound:
			// Deleting something already gone is fine.
			ix.dropped.Add(1)
		case int(status) == http.StatusConflict:
			// A newer version won the race; this write is stale.
			ix.dropped.Add(1)
		case int(status) == http.StatusTooManyRequests || int(status) == http.StatusRequestTimeout:
			retry = append(retry, live[i])
		default:
			failures++

			ix.failed.Add(1)
			slog.WarnContext(ctx, "bulk action failed",
				slog.String("op", op),
				slog.String("id", live[i].ID),
				slog.Int("status", int(status)),
				slog.Any("error", info["error"]),
			)
		}
	}

	if failures > 0 {
		ix.record(fmt.Errorf("%w: %d of %d actions failed", ErrBulk, failures, len(live)))
	}

	return retry, nil
}

func (ix *Indexer) record(err error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.errs = multierror.Append(ix.errs, err)
}

// bulkItem unwraps the single-pair {op: result} wrapper of a bulk
// response item.
func bulkItem(item map[string]any) (string, map[string]any) {
	for op, raw := range item {
		info, _ := raw.(map[string]any)

		return op, info
	}

	return "", nil
}

// RefreshSync reports whether a write should make its documents visible
// to search before returning: always under test, otherwise on request.
func RefreshSync(cfg *settings.Config, sync bool) bool {
	return cfg.Testing || sync
}

func refreshParam(refresh bool) string {
	if refresh {
		return "true"
	}

	return "false"
}
