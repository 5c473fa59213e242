package query

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"openaleph.org/search/auth"
	"openaleph.org/search/ftm"
	"openaleph.org/search/mapping"
	"openaleph.org/search/parse"
	"openaleph.org/search/settings"
)

// ErrAuthRequired is returned when search authorization is enabled and
// a query is built without credentials.
var ErrAuthRequired = errors.New("authorization required")

// SkipFilters are filter fields that never become query clauses: schema
// selection is expressed through the set of indices searched instead.
var SkipFilters = []string{mapping.FieldSchema, mapping.FieldSchemata}

// Builder produces the parts of a search request. Implementations
// validate their inputs at construction, so the part getters are pure
// and never contact the cluster.
type Builder interface {
	// Indexes returns the indices the request reads from.
	Indexes() []string
	// InnerQuery returns the scored query.
	InnerQuery() map[string]any
	// Aggregations returns the aggregation tree, empty when no facet is
	// requested.
	Aggregations() map[string]any
	// Highlight returns the highlight block, nil when not requested.
	Highlight() map[string]any
	// PostFilter returns the filter applied to hits after aggregation,
	// nil when no faceted field is filtered.
	PostFilter() map[string]any
	// Sort returns the sort clauses.
	Sort() []any
	// Parser returns the parsed request the builder was built from.
	Parser() *parse.Parser
}

// Body assembles the complete request body for a builder.
func Body(b Builder) map[string]any {
	p := b.Parser()

	body := map[string]any{
		"query":            b.InnerQuery(),
		"from":             p.Offset,
		"size":             p.Limit,
		"sort":             b.Sort(),
		"track_total_hits": true,
		"_source":          map[string]any{"excludes": mapping.SourceExcludes()},
	}
	if aggs := b.Aggregations(); len(aggs) > 0 {
		body["aggregations"] = aggs
	}
	if post := b.PostFilter(); post != nil {
		body["post_filter"] = post
	}
	if highlight := b.Highlight(); highlight != nil {
		body["highlight"] = highlight
	}

	return body
}

// base carries what every builder needs and implements the request
// parts all of them share.
type base struct {
	cfg         *settings.Config
	model       *ftm.Model
	parser      *parse.Parser
	sampleCount int
}

func newBase(cfg *settings.Config, model *ftm.Model, parser *parse.Parser) (base, error) {
	if cfg.SearchAuth && parser.Auth == nil {
		return base{}, fmt.Errorf("%w: no credentials on an access-controlled search", ErrAuthRequired)
	}

	return base{cfg: cfg, model: model, parser: parser}, nil
}

func (b *base) Parser() *parse.Parser { return b.parser }

// PostFilter collects the constraints on faceted fields, which stay out
// of the scored query so their facets keep showing alternatives.
func (b *base) PostFilter() map[string]any {
	clauses := b.postFilterClauses("")
	if len(clauses) == 0 {
		return nil
	}

	return map[string]any{"bool": map[string]any{"filter": clauses}}
}

// skipFields returns the filter fields excluded from the main filter
// context: the schema routing fields plus every faceted field, whose
// constraints move to the post filter.
func (b *base) skipFields() []string {
	return append(slices.Clone(SkipFilters), b.parser.Facets...)
}

// mainFilters assembles the filter context of the scored query: the
// authorization scope plus every constraint that neither routes indices
// nor belongs to a faceted field.
func (b *base) mainFilters() []any {
	var clauses []any
	if scope := b.scopeClause(); scope != nil {
		clauses = append(clauses, scope)
	}

	return append(clauses, b.filterClauses(b.skipFields()...)...)
}

// filterClauses builds filter-context clauses for the active filters,
// ranges, exclusions and empty-field requests, skipping the named
// fields.
func (b *base) filterClauses(skip ...string) []any {
	p := b.parser

	var clauses []any
	for _, field := range p.Filters.Fields() {
		if slices.Contains(skip, field) {
			continue
		}
		clauses = append(clauses, FieldFilter(field, p.Filters.Get(field)))
	}
	for _, field := range rangeFields(p.Ranges) {
		if slices.Contains(skip, field) {
			continue
		}
		clauses = append(clauses, RangeFilter(field, rangeOps(p.Ranges, field)))
	}
	for _, field := range p.Excludes.Fields() {
		if slices.Contains(skip, field) {
			continue
		}
		clauses = append(clauses, map[string]any{
			"bool": map[string]any{"must_not": []any{FieldFilter(field, p.Excludes.Get(field))}},
		})
	}
	for _, field := range p.Empties {
		if slices.Contains(skip, field) {
			continue
		}
		clauses = append(clauses, map[string]any{
			"bool": map[string]any{"must_not": []any{map[string]any{"exists": map[string]any{"field": field}}}},
		})
	}

	return clauses
}

// postFilterClauses collects the constraints on faceted fields other
// than exclude. The exclusion is what isolates facets from their own
// filters: the aggregation for a field runs against the other facets'
// constraints only.
func (b *base) postFilterClauses(exclude string) []any {
	p := b.parser

	var clauses []any
	for _, field := range p.Facets {
		if field == exclude || slices.Contains(SkipFilters, field) {
			continue
		}
		if p.Filters.Has(field) {
			clauses = append(clauses, FieldFilter(field, p.Filters.Get(field)))
		}
		if ops := rangeOps(p.Ranges, field); len(ops) > 0 {
			clauses = append(clauses, RangeFilter(field, ops))
		}
		if p.Excludes.Has(field) {
			clauses = append(clauses, map[string]any{
				"bool": map[string]any{"must_not": []any{FieldFilter(field, p.Excludes.Get(field))}},
			})
		}
		if slices.Contains(p.Empties, field) {
			clauses = append(clauses, map[string]any{
				"bool": map[string]any{"must_not": []any{map[string]any{"exists": map[string]any{"field": field}}}},
			})
		}
	}

	return clauses
}

// scopeClause returns the authorization clause on the auth field, nil
// when scoping is off or the caller sees everything.
func (b *base) scopeClause() map[string]any {
	if !b.cfg.SearchAuth {
		return nil
	}

	values, all := b.parser.Scope()
	if all {
		return nil
	}

	return auth.ScopeQuery(b.cfg.SearchAuthField, values, false)
}

// datasetClause returns the dataset constraint for queries that do not
// carry the full filter context: the authorization scope when scoping
// is on, else the plain dataset filters.
func (b *base) datasetClause() map[string]any {
	if b.cfg.SearchAuth {
		return b.scopeClause()
	}

	values, _ := b.parser.Scope()
	if len(values) == 0 {
		return nil
	}

	return FieldFilter(b.cfg.SearchAuthField, values)
}

// Sort maps the request sort keys, preferring the numeric duplicate
// field for numeric and date properties, and appends the score
// tie-break.
func (b *base) Sort() []any {
	sorts := make([]any, 0, len(b.parser.Sorts)+1)
	for _, s := range b.parser.Sorts {
		field := b.sortField(s.Field)
		if field == "_score" || field == "_doc" {
			sorts = append(sorts, map[string]any{field: map[string]any{"order": s.Order}})
			continue
		}
		sorts = append(sorts, map[string]any{field: map[string]any{
			"order":         s.Order,
			"missing":       "_last",
			"unmapped_type": "keyword",
			"mode":          "min",
		}})
	}

	return append(sorts, "_score")
}

// sortField rewrites score aliases and property paths whose property
// has a numeric duplicate.
func (b *base) sortField(field string) string {
	if field == "score" || field == "_score" {
		return "_score"
	}

	name, ok := strings.CutPrefix(field, mapping.FieldProperties+".")
	if !ok {
		return field
	}
	for _, prop := range b.model.Properties() {
		if prop.Name == name && prop.IsNumeric() {
			return mapping.NumericField(name)
		}
	}

	return field
}

// wrapScore applies the function-score wrapper when configured.
func (b *base) wrapScore(query map[string]any) map[string]any {
	if !b.cfg.QueryFunctionScore {
		return query
	}

	return FunctionScore(query, b.scoreFunctions())
}

// scoreFunctions weights results by their value count and by the bucket
// they live in. Buckets boosted to 1 contribute no function.
func (b *base) scoreFunctions() []any {
	functions := []any{map[string]any{
		"field_value_factor": map[string]any{
			"field":    mapping.FieldNumValues,
			"factor":   0.5,
			"modifier": "sqrt",
		},
	}}
	for _, bucket := range mapping.Buckets {
		boost := b.cfg.BoostFor(string(bucket))
		if boost == 1 {
			continue
		}
		functions = append(functions, map[string]any{
			"filter": term(mapping.FieldIndexBucket, string(bucket)),
			"weight": boost,
		})
	}

	return functions
}

// rangeFields returns the fields carrying range bounds, in request
// order without duplicates.
func rangeFields(ranges []parse.Range) []string {
	var fields []string
	for _, r := range ranges {
		if !slices.Contains(fields, r.Field) {
			fields = append(fields, r.Field)
		}
	}

	return fields
}

// rangeOps merges every bound on a field into one operator map.
func rangeOps(ranges []parse.Range, field string) map[string]string {
	var ops map[string]string
	for _, r := range ranges {
		if r.Field != field {
			continue
		}
		if ops == nil {
			ops = make(map[string]string)
		}
		ops[r.Op] = r.Value
	}

	return ops
}
