package query

import (
	"fmt"

	"openaleph.org/search/ftm"
	"openaleph.org/search/index"
	"openaleph.org/search/mapping"
	"openaleph.org/search/parse"
	"openaleph.org/search/settings"
)

// MoreLikeThisQuery finds documents whose text resembles an already
// indexed entity. The source document is referenced by id, so the
// cluster extracts the interesting terms from its stored fields.
type MoreLikeThisQuery struct {
	base
	entity *ftm.Entity
}

// NewMoreLikeThisQuery builds the similar-documents search. The source
// entity must carry the id it was indexed under; [ErrUnmatchable]
// reports one that does not.
func NewMoreLikeThisQuery(cfg *settings.Config, model *ftm.Model, parser *parse.Parser, entity *ftm.Entity) (*MoreLikeThisQuery, error) {
	b, err := newBase(cfg, model, parser)
	if err != nil {
		return nil, err
	}
	if _, err := model.Get(entity.Schema); err != nil {
		return nil, err
	}
	if entity.ID == "" {
		return nil, fmt.Errorf("%w: more-like-this needs an indexed entity id", ErrUnmatchable)
	}

	return &MoreLikeThisQuery{base: b, entity: entity}, nil
}

// Indexes targets the document buckets only; similarity over structured
// things is what [MatchQuery] is for.
func (q *MoreLikeThisQuery) Indexes() []string {
	return index.BucketIndexes(q.cfg, mapping.BucketDocuments, mapping.BucketPages)
}

// Sort orders by score only.
func (q *MoreLikeThisQuery) Sort() []any {
	return []any{"_score"}
}

// InnerQuery assembles the more-like-this query with the tuning knobs
// the request may override, excluding the source document itself.
func (q *MoreLikeThisQuery) InnerQuery() map[string]any {
	msm := q.parser.MLTMinimumShouldMatch
	if msm == "" {
		msm = "10%"
	}

	mlt := map[string]any{
		"fields": []string{
			mapping.FieldContent,
			mapping.FieldText,
			mapping.FieldName,
			mapping.FieldNames,
		},
		"like":                 []any{map[string]any{"_id": q.entity.ID}},
		"min_term_freq":        intOr(q.parser.MLTMinTermFreq, 1),
		"max_query_terms":      intOr(q.parser.MLTMaxQueryTerms, 200),
		"min_doc_freq":         intOr(q.parser.MLTMinDocFreq, 1),
		"max_doc_freq":         500,
		"min_word_length":      5,
		"boost_terms":          1,
		"minimum_should_match": msm,
	}

	filter := []any{FieldFilter(mapping.FieldSchema, q.documentSchemata())}
	if scope := q.datasetClause(); scope != nil {
		filter = append(filter, scope)
	}

	bq := map[string]any{
		"must":     []any{map[string]any{"more_like_this": mlt}},
		"filter":   filter,
		"must_not": []any{map[string]any{"ids": map[string]any{"values": []string{q.entity.ID}}}},
	}

	return q.wrapScore(map[string]any{"bool": bq})
}

// documentSchemata lists every concrete schema living in the document
// buckets.
func (q *MoreLikeThisQuery) documentSchemata() []string {
	var out []string
	for _, s := range q.model.Schemata() {
		if s.Abstract {
			continue
		}
		switch mapping.SchemaBucket(s) {
		case mapping.BucketDocuments, mapping.BucketPages:
			out = append(out, s.Name)
		}
	}

	return out
}

func intOr(value, fallback int) int {
	if value > 0 {
		return value
	}

	return fallback
}
