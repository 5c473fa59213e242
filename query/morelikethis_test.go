package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openaleph.org/search/ftm"
	"openaleph.org/search/query"
	"openaleph.org/search/settings"
)

func TestMoreLikeThisBody(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	cfg.QueryFunctionScore = false
	p := mustParser(t, cfg, "", nil)

	entity := &ftm.Entity{ID: "doc-1", Schema: "Pages"}
	q, err := query.NewMoreLikeThisQuery(cfg, ftm.Default(), p, entity)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"openaleph-entity-documents-v1",
		"openaleph-entity-pages-v1",
	}, q.Indexes())
	assert.Equal(t, []any{"_score"}, q.Sort())

	assert.JSONEq(t, `{
		"bool": {
			"must": [{"more_like_this": {
				"fields": ["content", "text", "name", "names"],
				"like": [{"_id": "doc-1"}],
				"min_term_freq": 1,
				"max_query_terms": 200,
				"min_doc_freq": 1,
				"max_doc_freq": 500,
				"min_word_length": 5,
				"boost_terms": 1,
				"minimum_should_match": "10%"
			}}],
			"filter": [
				{"terms": {"schema": [
					"Audio", "Document", "Email", "Folder", "HyperText", "Image", "Package",
					"Page", "Pages", "PlainText", "Table", "Video", "Workbook"
				]}}
			],
			"must_not": [{"ids": {"values": ["doc-1"]}}]
		}
	}`, marshal(t, q.InnerQuery()))
}

func TestMoreLikeThisKnobs(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	cfg.QueryFunctionScore = false
	p := mustParser(t, cfg, "mlt_min_doc_freq=2&mlt_max_query_terms=50&mlt_minimum_should_match=30%25&filter:dataset=d1", nil)

	q, err := query.NewMoreLikeThisQuery(cfg, ftm.Default(), p, &ftm.Entity{ID: "doc-1", Schema: "Pages"})
	require.NoError(t, err)

	body := q.InnerQuery()
	bq := body["bool"].(map[string]any)

	must := bq["must"].([]any)
	mlt := must[0].(map[string]any)["more_like_this"].(map[string]any)
	assert.Equal(t, 2, mlt["min_doc_freq"])
	assert.Equal(t, 50, mlt["max_query_terms"])
	assert.Equal(t, "30%", mlt["minimum_should_match"])

	filter := bq["filter"].([]any)
	assert.Equal(t, map[string]any{"term": map[string]any{"dataset": "d1"}}, filter[len(filter)-1])
}

func TestMoreLikeThisFunctionScore(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	p := mustParser(t, cfg, "", nil)

	q, err := query.NewMoreLikeThisQuery(cfg, ftm.Default(), p, &ftm.Entity{ID: "doc-1", Schema: "Pages"})
	require.NoError(t, err)

	assert.Contains(t, q.InnerQuery(), "function_score")
}

func TestMoreLikeThisErrors(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	p := mustParser(t, cfg, "", nil)
	model := ftm.Default()

	_, err := query.NewMoreLikeThisQuery(cfg, model, p, &ftm.Entity{ID: "x", Schema: "Banana"})
	assert.ErrorIs(t, err, ftm.ErrUnknownSchema)

	_, err = query.NewMoreLikeThisQuery(cfg, model, p, &ftm.Entity{Schema: "Pages"})
	assert.ErrorIs(t, err, query.ErrUnmatchable)
}
