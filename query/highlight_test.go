package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"openaleph.org/search/settings"
)

func TestHighlightDisabled(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "q=x", nil)
	assert.Nil(t, q.Highlight())
}

func TestHighlightFVH(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "q=accountability&highlight=true", nil)

	// Term vectors are on by default, so content uses the fast vector
	// highlighter; the name fields suppress emphasis tags.
	assert.JSONEq(t, `{
		"fields": {
			"content": {
				"type": "fvh",
				"fragment_size": 200,
				"number_of_fragments": 3,
				"fragmenter": "span",
				"order": "score",
				"phrase_limit": 64,
				"boundary_scanner": "chars",
				"boundary_chars": ".\t\n ,!?;_-=(){}[]<>|\"",
				"boundary_max_scan": 100,
				"no_match_size": 300,
				"max_analyzed_offset": 999999,
				"pre_tags": ["<em>"],
				"post_tags": ["</em>"],
				"highlight_query": {"query_string": {"query": "accountability", "default_operator": "AND", "lenient": true}}
			},
			"name": {
				"type": "unified",
				"fragment_size": 200,
				"number_of_fragments": 3,
				"fragmenter": "simple",
				"pre_tags": [""],
				"post_tags": [""]
			},
			"names": {
				"type": "plain",
				"number_of_fragments": 3,
				"max_analyzed_offset": 999999,
				"pre_tags": [""],
				"post_tags": [""]
			},
			"text": {
				"type": "plain",
				"fragment_size": 150,
				"number_of_fragments": 1,
				"highlight_query": {"query_string": {"query": "accountability", "default_operator": "AND", "lenient": true}}
			}
		}
	}`, marshal(t, q.Highlight()))
}

func TestHighlightUnifiedFallback(t *testing.T) {
	t.Parallel()

	tcs := map[string]func(*settings.Config){
		"no term vectors": func(cfg *settings.Config) { cfg.ContentTermVectors = false },
		"fvh disabled":    func(cfg *settings.Config) { cfg.HighlighterFVHEnabled = false },
	}

	for name, tweak := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := settings.New()
			tweak(cfg)

			q := entitiesQuery(t, cfg, "q=x&highlight=true", nil)
			fields := q.Highlight()["fields"].(map[string]any)
			content := fields["content"].(map[string]any)
			assert.Equal(t, "unified", content["type"])
			assert.Equal(t, "sentence", content["boundary_scanner"])
			assert.NotContains(t, content, "phrase_limit")
		})
	}
}

func TestHighlightOverrides(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "q=x&highlight=true&highlight_count=7&max_highlight_analyzed_offset=5000", nil)

	fields := q.Highlight()["fields"].(map[string]any)
	content := fields["content"].(map[string]any)
	assert.Equal(t, 7, content["number_of_fragments"])
	assert.Equal(t, 5000, content["max_analyzed_offset"])
}

func TestHighlightQueryFromFilters(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "q=putin&highlight=true&filter:names=Vladimir+Putin&filter:dataset=d1", nil)

	// Group-field filters join the highlight query; plain filters like
	// dataset contribute nothing.
	fields := q.Highlight()["fields"].(map[string]any)
	content := fields["content"].(map[string]any)
	assert.JSONEq(t, `{
		"bool": {"should": [
			{"query_string": {"query": "putin", "default_operator": "AND", "lenient": true}},
			{"multi_match": {"query": "Vladimir Putin", "fields": ["content", "text", "name"]}}
		]}
	}`, marshal(t, content["highlight_query"]))
}

func TestHighlightQueryFiltersOnly(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "highlight=true&filter:names=ACME", nil)

	fields := q.Highlight()["fields"].(map[string]any)
	content := fields["content"].(map[string]any)
	assert.JSONEq(t, `{
		"bool": {"should": [
			{"multi_match": {"query": "ACME", "fields": ["content", "text", "name"]}}
		]}
	}`, marshal(t, content["highlight_query"]))
}

func TestHighlightQueryAbsent(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "highlight=true&filter:dataset=d1", nil)

	fields := q.Highlight()["fields"].(map[string]any)
	content := fields["content"].(map[string]any)
	assert.NotContains(t, content, "highlight_query")
}
