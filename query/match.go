package query

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"openaleph.org/search/ftm"
	"openaleph.org/search/index"
	"openaleph.org/search/mapping"
	"openaleph.org/search/names"
	"openaleph.org/search/parse"
	"openaleph.org/search/settings"
)

// ErrUnmatchable is returned when a similarity query is requested for
// an entity that cannot drive one: a schema without matchable peers, or
// a more-like-this source that was never indexed.
var ErrUnmatchable = errors.New("unmatchable entity")

// MaxClauses caps the total clause count of a matching query. Clauses
// fill the budget in block order (names, identifiers, property
// scoring); within each block they append in the order built, so the
// tail past the cap is dropped.
const MaxClauses = 500

// Boost weights of the name representations: exact normalized keys rank
// above fuzzy name matches, token and phonetic overlap below. Shared
// identifier values weigh like a name hit; shared exact-valued
// properties rank above mere geographic or temporal overlap.
const (
	boostNames        = 3.0
	boostNameKeys     = 4.0
	boostNameParts    = 1.0
	boostNamePhonetic = 0.8
	boostIdentifiers  = 3.0
	boostPrecise      = 2.0
)

// preciseGroups are the exact-valued type groups carrying the
// boostPrecise weight.
var preciseGroups = []string{
	ftm.TypeIP.Group,
	ftm.TypeURL.Group,
	ftm.TypeEmail.Group,
	ftm.TypePhone.Group,
}

// MatchQuery finds entities resembling a given entity. Overlap on name
// representations and shared property values drives the score; at least
// one name or identifier feature must match.
type MatchQuery struct {
	base
	entity  *ftm.Entity
	schema  *ftm.Schema
	exclude []string
}

// NewMatchQuery builds the similarity search for an entity. The
// entity's schema must be known and have matchable peers;
// [ftm.ErrUnknownSchema] and [ErrUnmatchable] report violations before
// any cluster contact. Results with an id in exclude are suppressed on
// top of the entity itself.
func NewMatchQuery(cfg *settings.Config, model *ftm.Model, parser *parse.Parser, entity *ftm.Entity, exclude ...string) (*MatchQuery, error) {
	b, err := newBase(cfg, model, parser)
	if err != nil {
		return nil, err
	}
	schema, err := model.Get(entity.Schema)
	if err != nil {
		return nil, err
	}
	if len(schema.MatchableSchemata()) == 0 {
		return nil, fmt.Errorf("%w: %s has no matchable peers", ErrUnmatchable, schema.Name)
	}

	return &MatchQuery{base: b, entity: entity, schema: schema, exclude: exclude}, nil
}

// Indexes restricts the search to indices holding matchable peers of
// the entity's schema.
func (q *MatchQuery) Indexes() []string {
	return index.ReadIndexes(q.model, q.cfg, q.schema.MatchableSchemata(), true)
}

// Sort orders by score only; field sorts make no sense for similarity.
func (q *MatchQuery) Sort() []any {
	return []any{"_score"}
}

// InnerQuery assembles the matching query. The name block is required;
// identifier clauses score on top when names exist, and become the
// required block for entities that only carry identifiers. An entity
// with neither matches nothing. The result carries the function-score
// wrapper when configured.
func (q *MatchQuery) InnerQuery() map[string]any {
	budget := MaxClauses
	nameClauses := q.nameClauses(budget)
	budget -= len(nameClauses)
	idClauses := q.identifierClauses(budget)
	budget -= len(idClauses)
	if len(nameClauses) == 0 && len(idClauses) == 0 {
		return NoneQuery()
	}

	var must []any
	if q.parser.Text != "" {
		must = append(must, queryString(q.parser.Text))
	}
	if len(nameClauses) > 0 {
		must = append(must, shouldBlock(nameClauses, 1))
		if len(idClauses) > 0 {
			must = append(must, shouldBlock(idClauses, 0))
		}
	} else {
		must = append(must, shouldBlock(idClauses, 1))
	}

	bq := map[string]any{"must": must}
	if should := q.scoringClauses(budget); len(should) > 0 {
		bq["should"] = should
	}

	filter := []any{FieldFilter(mapping.FieldSchemata, q.schema.MatchableSchemata())}
	filter = append(filter, q.mainFilters()...)
	bq["filter"] = filter

	var blocked []string
	if q.entity.ID != "" {
		blocked = append(blocked, q.entity.ID)
	}
	blocked = append(blocked, q.exclude...)
	if len(blocked) > 0 {
		bq["must_not"] = []any{map[string]any{"ids": map[string]any{"values": blocked}}}
	}

	return q.wrapScore(map[string]any{"bool": bq})
}

// nameClauses expands the entity's names into the required name block:
// fuzzy matches on the picked representative names plus exact terms for
// every derived representation. Alias-heavy entities can outgrow the
// clause budget on names alone, so the representations fill it in
// order (picked names, keys, parts, phonetics, symbols) and the tail
// drops.
func (q *MatchQuery) nameClauses(budget int) []any {
	nameValues := q.entity.Names(q.schema)

	var clauses []any
	add := func(clause map[string]any) bool {
		if len(clauses) >= budget {
			return false
		}
		clauses = append(clauses, clause)

		return true
	}

	for _, name := range names.Pick(nameValues, 0) {
		if !add(map[string]any{"match": map[string]any{
			mapping.FieldNames: map[string]any{
				"query":     name,
				"operator":  "AND",
				"fuzziness": "AUTO",
				"boost":     boostNames,
			},
		}}) {
			return clauses
		}
	}
	for _, key := range names.Keys(q.schema, nameValues) {
		if !add(boostedTerm(mapping.FieldNameKeys, key, boostNameKeys)) {
			return clauses
		}
	}
	for _, part := range names.Parts(q.schema, nameValues) {
		if !add(boostedTerm(mapping.FieldNameParts, part, boostNameParts)) {
			return clauses
		}
	}
	for _, code := range names.Phonetics(q.schema, nameValues) {
		if !add(boostedTerm(mapping.FieldNamePhonetic, code, boostNamePhonetic)) {
			return clauses
		}
	}
	for _, symbol := range names.Symbols(q.schema, nameValues) {
		if !add(term(mapping.FieldNameSymbols, symbol)) {
			return clauses
		}
	}

	return clauses
}

// identifierClauses scores shared identifier values on their concrete
// property fields, within the remaining clause budget.
func (q *MatchQuery) identifierClauses(budget int) []any {
	var clauses []any
	for _, prop := range q.schema.Properties() {
		if prop.Type != ftm.TypeIdentifier {
			continue
		}
		for _, value := range q.entity.Values(prop.Name) {
			if len(clauses) >= budget {
				return clauses
			}
			clauses = append(clauses, boostedTerm(prop.Field(), value, boostIdentifiers))
		}
	}

	return clauses
}

// scoringClauses turns the remaining matchable property values into
// optional term clauses on their group fields, most specific types
// first, trimmed to the clause budget.
func (q *MatchQuery) scoringClauses(budget int) []any {
	if budget <= 0 {
		return nil
	}

	type groupValue struct {
		specificity float64
		group       string
		value       string
	}

	seen := make(map[string]bool)
	var values []groupValue
	for _, prop := range q.schema.Properties() {
		t := prop.Type
		if !t.Matchable || t.Group == "" || t == ftm.TypeName || t == ftm.TypeIdentifier {
			continue
		}
		for _, value := range q.entity.Values(prop.Name) {
			key := t.Group + "\x00" + value
			if seen[key] {
				continue
			}
			seen[key] = true
			values = append(values, groupValue{t.Specificity, t.Group, value})
		}
	}
	slices.SortStableFunc(values, func(a, b groupValue) int {
		return cmp.Compare(b.specificity, a.specificity)
	})

	clauses := make([]any, 0, min(budget, len(values)))
	for _, v := range values {
		if len(clauses) == budget {
			break
		}
		if slices.Contains(preciseGroups, v.group) {
			clauses = append(clauses, boostedTerm(v.group, v.value, boostPrecise))
			continue
		}
		clauses = append(clauses, term(v.group, v.value))
	}

	return clauses
}

// BlockingQuery builds an unscored candidate filter for an entity: any
// overlap on normalized name keys, phonetic codes, cross-alphabet
// symbols or identifier values qualifies, restricted to matchable
// schemata and optionally to a set of datasets. Entities that cannot be
// matched yield a query matching nothing, so deduplication workers can
// send the result unchecked.
func BlockingQuery(model *ftm.Model, entity *ftm.Entity, datasets []string) map[string]any {
	schema, err := model.Get(entity.Schema)
	if err != nil {
		return NoneQuery()
	}
	matchable := schema.MatchableSchemata()
	if len(matchable) == 0 {
		return NoneQuery()
	}

	nameValues := entity.Names(schema)

	var should []any
	if keys := names.Keys(schema, nameValues); len(keys) > 0 {
		should = append(should, FieldFilter(mapping.FieldNameKeys, keys))
	}
	if codes := names.Phonetics(schema, nameValues); len(codes) > 0 {
		should = append(should, FieldFilter(mapping.FieldNamePhonetic, codes))
	}
	if symbols := names.Symbols(schema, nameValues); len(symbols) > 0 {
		should = append(should, FieldFilter(mapping.FieldNameSymbols, symbols))
	}
	if ids := identifierValues(schema, entity); len(ids) > 0 {
		should = append(should, FieldFilter(ftm.TypeIdentifier.Group, ids))
	}
	if len(should) == 0 {
		return NoneQuery()
	}

	filter := []any{
		shouldBlock(should, 1),
		FieldFilter(mapping.FieldSchemata, matchable),
	}
	if len(datasets) > 0 {
		filter = append(filter, FieldFilter(mapping.FieldDataset, datasets))
	}

	bq := map[string]any{"filter": filter}
	if entity.ID != "" {
		bq["must_not"] = []any{map[string]any{"ids": map[string]any{"values": []string{entity.ID}}}}
	}

	return map[string]any{"bool": bq}
}

// identifierValues collects the distinct identifier-typed values of an
// entity.
func identifierValues(schema *ftm.Schema, entity *ftm.Entity) []string {
	var values []string
	for _, prop := range schema.Properties() {
		if prop.Type != ftm.TypeIdentifier {
			continue
		}
		for _, v := range entity.Values(prop.Name) {
			if !slices.Contains(values, v) {
				values = append(values, v)
			}
		}
	}

	return values
}
