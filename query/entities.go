package query

import (
	"openaleph.org/search/ftm"
	"openaleph.org/search/index"
	"openaleph.org/search/mapping"
	"openaleph.org/search/parse"
	"openaleph.org/search/settings"
)

// EntitiesQuery is the full-text entity search: a query string over the
// indexed text, filters in filter context, facets with post-filter
// isolation, and optional highlighting.
type EntitiesQuery struct {
	base
}

// NewEntitiesQuery builds the full-text search for a parsed request.
func NewEntitiesQuery(cfg *settings.Config, model *ftm.Model, parser *parse.Parser) (*EntitiesQuery, error) {
	b, err := newBase(cfg, model, parser)
	if err != nil {
		return nil, err
	}

	return &EntitiesQuery{base: b}, nil
}

// Indexes picks the read indices from the schema filters. An exact
// schema filter pins its indices without descendant expansion, a
// schemata filter expands to descendants, and the default covers every
// concrete Thing.
func (q *EntitiesQuery) Indexes() []string {
	if schemata := q.parser.Filters.Get(mapping.FieldSchema); len(schemata) > 0 {
		return index.ReadIndexes(q.model, q.cfg, schemata, false)
	}

	schemata := q.parser.Filters.Get(mapping.FieldSchemata)
	if len(schemata) == 0 {
		schemata = []string{"Thing"}
	}

	return index.ReadIndexes(q.model, q.cfg, schemata, true)
}

// InnerQuery assembles the scored query: the query string, the name
// prefix, and the filter context, wrapped in function scoring when
// enabled.
func (q *EntitiesQuery) InnerQuery() map[string]any {
	bq := map[string]any{}
	if q.parser.Text != "" {
		bq["must"] = []any{queryString(q.parser.Text)}
	}
	if q.parser.Prefix != "" {
		bq["should"] = []any{map[string]any{"prefix": map[string]any{mapping.FieldName: q.parser.Prefix}}}
	}
	if filters := q.mainFilters(); len(filters) > 0 {
		bq["filter"] = filters
	}

	return q.wrapScore(map[string]any{"bool": bq})
}
