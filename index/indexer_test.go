package index_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openaleph.org/search/index"
	"openaleph.org/search/settings"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func stubClient(t *testing.T, rt roundTripperFunc) *elasticsearch.Client {
	t.Helper()

	client, err := elasticsearch.NewClient(elasticsearch.Config{Transport: rt})
	require.NoError(t, err)

	return client
}

func stubResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header: http.Header{
			"X-Elastic-Product": []string{"Elasticsearch"},
			"Content-Type":      []string{"application/json"},
		},
		Body: io.NopCloser(strings.NewReader(body)),
	}
}

func indexerConfig() *settings.Config {
	cfg := settings.New()
	cfg.Testing = true
	cfg.IndexerConcurrency = 1
	cfg.IndexerChunkSize = 2

	return cfg
}

func thingAction(id string) *index.Action {
	return &index.Action{
		ID:      id,
		Index:   "openaleph-entity-things-v1",
		Routing: "test_dataset",
		Source:  []byte(`{"schema":"Person"}`),
	}
}

// bulkStub records request bodies and plays back canned responses, the
// last one repeating.
type bulkStub struct {
	mu        sync.Mutex
	bodies    []string
	responses []string
}

func (s *bulkStub) roundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}

	s.bodies = append(s.bodies, string(body))

	response := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}

	return stubResponse(http.StatusOK, response), nil
}

func (s *bulkStub) requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.bodies...)
}

func TestIndexer(t *testing.T) {
	t.Parallel()

	stub := &bulkStub{responses: []string{`{"errors":false,"items":[]}`}}
	ix := index.NewIndexer(t.Context(), stubClient(t, stub.roundTrip), indexerConfig())

	for i := range 3 {
		require.NoError(t, ix.Index(t.Context(), thingAction(fmt.Sprintf("doc-%d", i))))
	}

	require.NoError(t, ix.Close())

	indexed, dropped, failed := ix.Stats()
	assert.Equal(t, int64(3), indexed)
	assert.Zero(t, dropped)
	assert.Zero(t, failed)

	// Two actions fill the first chunk, the third flushes at Close.
	requests := stub.requests()
	require.Len(t, requests, 2)
	assert.Equal(t, 4, strings.Count(requests[0], "\n"))
	assert.Equal(t, 2, strings.Count(requests[1], "\n"))
	assert.Contains(t, requests[0], `"routing":"test_dataset"`)
}

func TestIndexerDroppedItems(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		action   *index.Action
		response string
	}{
		"delete missing document": {
			action: &index.Action{
				ID:     "gone",
				Index:  "openaleph-entity-things-v1",
				OpType: index.OpDelete,
			},
			response: `{"errors":true,"items":[{"delete":{"_id":"gone","status":404,"result":"not_found"}}]}`,
		},
		"version conflict": {
			action: thingAction("stale"),
			response: `{"errors":true,"items":[{"index":{"_id":"stale","status":409,` +
				`"error":{"type":"version_conflict_engine_exception"}}}]}`,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			stub := &bulkStub{responses: []string{tc.response}}
			ix := index.NewIndexer(t.Context(), stubClient(t, stub.roundTrip), indexerConfig())

			require.NoError(t, ix.Index(t.Context(), tc.action))
			require.NoError(t, ix.Close())

			indexed, dropped, failed := ix.Stats()
			assert.Zero(t, indexed)
			assert.Equal(t, int64(1), dropped)
			assert.Zero(t, failed)
		})
	}
}

func TestIndexerRetriesRejections(t *testing.T) {
	t.Parallel()

	stub := &bulkStub{responses: []string{
		`{"errors":true,"items":[{"index":{"_id":"doc-0","status":429,` +
			`"error":{"type":"es_rejected_execution_exception"}}}]}`,
		`{"errors":false,"items":[]}`,
	}}

	ix := index.NewIndexer(t.Context(), stubClient(t, stub.roundTrip), indexerConfig())

	require.NoError(t, ix.Index(t.Context(), thingAction("doc-0")))
	require.NoError(t, ix.Close())

	indexed, _, failed := ix.Stats()
	assert.Equal(t, int64(1), indexed)
	assert.Zero(t, failed)
	assert.Len(t, stub.requests(), 2)
}

func TestIndexerRecordsFailures(t *testing.T) {
	t.Parallel()

	stub := &bulkStub{responses: []string{
		`{"errors":true,"items":[{"index":{"_id":"doc-0","status":400,` +
			`"error":{"type":"document_parsing_exception"}}}]}`,
	}}

	ix := index.NewIndexer(t.Context(), stubClient(t, stub.roundTrip), indexerConfig())

	require.NoError(t, ix.Index(t.Context(), thingAction("doc-0")))
	require.ErrorIs(t, ix.Close(), index.ErrBulk)

	indexed, _, failed := ix.Stats()
	assert.Zero(t, indexed)
	assert.Equal(t, int64(1), failed)
}

func TestIndexerRejectsInvalidActions(t *testing.T) {
	t.Parallel()

	stub := &bulkStub{responses: []string{`{"errors":false,"items":[]}`}}
	ix := index.NewIndexer(t.Context(), stubClient(t, stub.roundTrip), indexerConfig())

	err := ix.Index(t.Context(), &index.Action{ID: "no-index"})
	require.ErrorIs(t, err, index.ErrInvalidAction)

	err = ix.Index(t.Context(), nil)
	require.ErrorIs(t, err, index.ErrInvalidAction)

	require.NoError(t, ix.Close())

	assert.Empty(t, stub.requests())
}

func TestIndexerCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	stub := &bulkStub{responses: []string{`{"errors":false,"items":[]}`}}

	cfg := indexerConfig()
	cfg.IndexerChunkSize = 1

	ix := index.NewIndexer(t.Context(), stubClient(t, stub.roundTrip), cfg)

	err := ix.Index(ctx, thingAction("doc-0"))
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, ix.Close())
	assert.Empty(t, stub.requests())
}
