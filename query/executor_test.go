package query_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openaleph.org/search/ftm"
	"openaleph.org/search/index"
	"openaleph.org/search/query"
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

func TestSearch(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "q=banana&filter:schema=Company&filter:dataset=d1", nil)

	var (
		path    string
		routing string
		reqBody string
	)
	client := stubClient(t, func(req *http.Request) (*http.Response, error) {
		path = req.URL.Path
		routing = req.URL.Query().Get("routing")

		raw, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		reqBody = string(raw)

		return stubResponse(http.StatusOK, `{
			"took": 3,
			"hits": {"total": {"value": 1, "relation": "eq"}, "hits": [
				{"_id": "e1", "_source": {"caption": "ACME", "properties": {"name": ["ACME"]}}}
			]}
		}`), nil
	})

	result, err := query.Search(context.Background(), client, cfg, q)
	require.NoError(t, err)

	assert.Equal(t, "/openaleph-entity-things-v1/_search", path)
	assert.Equal(t, "d1", routing)
	assert.JSONEq(t, marshal(t, query.Body(q)), reqBody)

	hits := result["hits"].(map[string]any)["hits"].([]any)
	source := hits[0].(map[string]any)["_source"].(map[string]any)
	assert.Contains(t, source, "properties")
}

func TestSearchDehydrates(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "q=banana&dehydrate=true", nil)

	client := stubClient(t, func(*http.Request) (*http.Response, error) {
		return stubResponse(http.StatusOK, `{
			"hits": {"hits": [
				{"_id": "e1", "_source": {"caption": "ACME", "properties": {"name": ["ACME"]}}}
			]}
		}`), nil
	})

	result, err := query.Search(context.Background(), client, cfg, q)
	require.NoError(t, err)

	hits := result["hits"].(map[string]any)["hits"].([]any)
	source := hits[0].(map[string]any)["_source"].(map[string]any)
	assert.Equal(t, "ACME", source["caption"])
	assert.NotContains(t, source, "properties")
}

func TestSearchWithoutIndexes(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "filter:schema=Banana", nil)

	client := stubClient(t, func(*http.Request) (*http.Response, error) {
		t.Error("no request expected")

		return nil, nil
	})

	result, err := query.Search(context.Background(), client, cfg, q)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"hits": {"total": {"value": 0, "relation": "eq"}, "hits": []}
	}`, marshal(t, result))
}

func TestCount(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "q=banana", nil)

	client := stubClient(t, func(req *http.Request) (*http.Response, error) {
		assert.True(t, strings.HasSuffix(req.URL.Path, "/_count"))

		return stubResponse(http.StatusOK, `{"count": 42}`), nil
	})

	count, err := query.Count(context.Background(), client, q)
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	cfg := settings.New()

	var path, reqBody string
	client := stubClient(t, func(req *http.Request) (*http.Response, error) {
		path = req.URL.Path

		raw, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		reqBody = string(raw)

		return stubResponse(http.StatusOK, `{"tokens": [
			{"token": "jane", "position": 0},
			{"token": "smith", "position": 1},
			{"token": "jane", "position": 2}
		]}`), nil
	})

	tokens, err := query.Analyze(context.Background(), client, cfg, ftm.Default(), "Person", "name_parts", "Jane Smith Jane")
	require.NoError(t, err)

	assert.Equal(t, "/openaleph-entity-things-v1/_analyze", path)
	assert.JSONEq(t, `{"field": "name_parts", "text": "Jane Smith Jane"}`, reqBody)
	assert.Equal(t, []string{"jane", "smith"}, tokens)
}

func TestAnalyzeUnknownSchema(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	client := stubClient(t, func(*http.Request) (*http.Response, error) {
		t.Error("no request expected")

		return nil, nil
	})

	_, err := query.Analyze(context.Background(), client, cfg, ftm.Default(), "Banana", "name_parts", "x")
	assert.ErrorIs(t, err, ftm.ErrUnknownSchema)
}

// exportStub plays a one-page scroll: a search response with two hits,
// an empty continuation, and the final cleanup.
type exportStub struct {
	mu       sync.Mutex
	searches []string
	scrolls  int
	cleared  bool
}

func (s *exportStub) roundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case req.Method == http.MethodDelete && strings.HasPrefix(req.URL.Path, "/_search/scroll"):
		s.cleared = true

		return stubResponse(http.StatusOK, `{"succeeded": true}`), nil
	case strings.HasPrefix(req.URL.Path, "/_search/scroll"):
		s.scrolls++

		return stubResponse(http.StatusOK, `{"_scroll_id": "scroll-1", "hits": {"hits": []}}`), nil
	default:
		s.searches = append(s.searches, req.URL.Path)

		return stubResponse(http.StatusOK, `{
			"_scroll_id": "scroll-1",
			"hits": {"hits": [
				{"_id": "e1", "_index": "openaleph-entity-things-v1", "_routing": "d1", "_source": {"schema": "Person"}},
				{"_id": "e2", "_index": "openaleph-entity-things-v1", "_routing": "d1", "_source": {"schema": "Company"}}
			]}
		}`), nil
	}
}

func TestExport(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	stub := &exportStub{}
	client := stubClient(t, stub.roundTrip)

	var actions []*index.Action
	err := query.Export(context.Background(), client, cfg, ftm.Default(), nil, func(a *index.Action) error {
		actions = append(actions, a)

		return nil
	})
	require.NoError(t, err)

	require.Len(t, actions, 2)
	assert.Equal(t, "e1", actions[0].ID)
	assert.Equal(t, "openaleph-entity-things-v1", actions[0].Index)
	assert.Equal(t, "d1", actions[0].Routing)
	assert.JSONEq(t, `{"schema": "Person"}`, string(actions[0].Source))

	// A nil parser exports the whole cluster state.
	assert.Equal(t, []string{"/openaleph-entity-*/_search"}, stub.searches)
	assert.Equal(t, 1, stub.scrolls)
	assert.True(t, stub.cleared)
}

func TestExportStopsOnCallbackError(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	stub := &exportStub{}
	client := stubClient(t, stub.roundTrip)

	seen := 0
	err := query.Export(context.Background(), client, cfg, ftm.Default(), nil, func(*index.Action) error {
		seen++

		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, seen)
	assert.True(t, stub.cleared)
}
