package query

// MatchAllQuery returns the query matching every document.
func MatchAllQuery() map[string]any {
	return map[string]any{"match_all": map[string]any{}}
}

// NoneQuery returns the query matching no document at all.
func NoneQuery() map[string]any {
	return map[string]any{"match_none": map[string]any{}}
}

// FieldFilter builds the filter clause for values of one field: an ids
// query for the id pseudo-fields, a term for a single value, terms for
// several. Without values the clause matches everything, so callers can
// pass filter sets through unchecked.
func FieldFilter(field string, values []string) map[string]any {
	switch {
	case len(values) == 0:
		return MatchAllQuery()
	case field == "id" || field == "_id":
		return map[string]any{"ids": map[string]any{"values": values}}
	case len(values) == 1:
		return map[string]any{"term": map[string]any{field: values[0]}}
	default:
		return map[string]any{"terms": map[string]any{field: values}}
	}
}

// RangeFilter builds a range clause from comparison operators, e.g.
// {"gte": "2023-01-01", "lt": "2024-01-01"}.
func RangeFilter(field string, ops map[string]string) map[string]any {
	return map[string]any{"range": map[string]any{field: ops}}
}

// FunctionScore wraps a query with scoring functions whose results are
// added onto the relevance score.
func FunctionScore(query map[string]any, functions []any) map[string]any {
	return map[string]any{"function_score": map[string]any{
		"query":      query,
		"functions":  functions,
		"boost_mode": "sum",
	}}
}

func term(field, value string) map[string]any {
	return map[string]any{"term": map[string]any{field: value}}
}

func boostedTerm(field, value string, boost float64) map[string]any {
	return map[string]any{"term": map[string]any{field: map[string]any{
		"value": value,
		"boost": boost,
	}}}
}

// shouldBlock groups clauses into a bool should with an explicit match
// requirement.
func shouldBlock(clauses []any, minimum int) map[string]any {
	return map[string]any{"bool": map[string]any{
		"should":               clauses,
		"minimum_should_match": minimum,
	}}
}

func queryString(text string) map[string]any {
	return map[string]any{"query_string": map[string]any{
		"query":            text,
		"default_operator": "AND",
		"lenient":          true,
	}}
}
