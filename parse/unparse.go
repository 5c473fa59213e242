package parse

import (
	"maps"
	"slices"
	"strconv"
)

// Unparse emits the canonical parameter list for the parsed state.
// Defaults are omitted, filters on the auth field reappear as the plain
// filters they arrived as, and parsing the result yields the same state
// again.
func (p *Parser) Unparse() Args {
	var out Args

	if p.Text != "" {
		out = append(out, Pair{"q", p.Text})
	}
	if p.Prefix != "" {
		out = append(out, Pair{"prefix", p.Prefix})
	}
	if p.Offset > 0 {
		out = append(out, Pair{"offset", strconv.Itoa(p.Offset)})
	}
	if p.Limit != DefaultLimit {
		out = append(out, Pair{"limit", strconv.Itoa(p.Limit)})
	}
	if p.NextLimit != p.Limit {
		out = append(out, Pair{"next_limit", strconv.Itoa(p.NextLimit)})
	}
	for _, sort := range p.Sorts {
		out = append(out, Pair{"sort", sort.Field + ":" + sort.Order})
	}

	out = p.unparseFilters(out)
	out = p.unparseFacets(out)

	if p.Highlight {
		out = append(out, Pair{"highlight", "true"})
	}
	if p.HighlightCount != 0 {
		out = append(out, Pair{"highlight_count", strconv.Itoa(p.HighlightCount)})
	}
	if p.MaxHighlightAnalyzedOffset != 0 {
		out = append(out, Pair{"max_highlight_analyzed_offset", strconv.Itoa(p.MaxHighlightAnalyzedOffset)})
	}

	if p.MLTMinDocFreq != 0 {
		out = append(out, Pair{"mlt_min_doc_freq", strconv.Itoa(p.MLTMinDocFreq)})
	}
	if p.MLTMinTermFreq != 0 {
		out = append(out, Pair{"mlt_min_term_freq", strconv.Itoa(p.MLTMinTermFreq)})
	}
	if p.MLTMaxQueryTerms != 0 {
		out = append(out, Pair{"mlt_max_query_terms", strconv.Itoa(p.MLTMaxQueryTerms)})
	}
	if p.MLTMinimumShouldMatch != "" {
		out = append(out, Pair{"mlt_minimum_should_match", p.MLTMinimumShouldMatch})
	}

	if p.Dehydrate {
		out = append(out, Pair{"dehydrate", "true"})
	}

	return out
}

func (p *Parser) unparseFilters(out Args) Args {
	if p.cfg.SearchAuth {
		for _, value := range p.authFilters {
			out = append(out, Pair{"filter:" + p.cfg.SearchAuthField, value})
		}
	}
	for _, field := range p.Filters.Fields() {
		for _, value := range p.Filters.Get(field) {
			out = append(out, Pair{"filter:" + field, value})
		}
	}
	for _, r := range p.Ranges {
		out = append(out, Pair{"filter:" + r.Op + ":" + r.Field, r.Value})
	}
	for _, field := range p.Excludes.Fields() {
		for _, value := range p.Excludes.Get(field) {
			out = append(out, Pair{"exclude:" + field, value})
		}
	}
	for _, field := range p.Empties {
		out = append(out, Pair{"empty:" + field, "true"})
	}

	return out
}

func (p *Parser) unparseFacets(out Args) Args {
	for _, field := range p.Facets {
		out = append(out, Pair{"facet", field})
	}
	out = appendIntParams(out, "facet_size:", p.facetSize, p.Facets)
	out = appendBoolParams(out, "facet_total:", p.facetTotal, p.Facets)
	out = appendBoolParams(out, "facet_values:", p.facetValues, p.Facets)
	out = appendStringParams(out, "facet_type:", p.facetType, p.Facets)
	out = appendStringParams(out, "facet_interval:", p.facetInterval, p.Facets)

	for _, field := range p.SignificantTerms {
		out = append(out, Pair{"facet_significant", field})
	}
	out = appendIntParams(out, "facet_significant_size:", p.sigSize, p.SignificantTerms)
	out = appendBoolParams(out, "facet_significant_total:", p.sigTotal, p.SignificantTerms)
	out = appendBoolParams(out, "facet_significant_values:", p.sigValues, p.SignificantTerms)
	out = appendStringParams(out, "facet_significant_type:", p.sigType, p.SignificantTerms)

	if p.SignificantText != "" {
		out = append(out, Pair{"facet_significant_text", p.SignificantText})
		if p.sigTextSize != 0 {
			out = append(out, Pair{"facet_significant_text_size", strconv.Itoa(p.sigTextSize)})
		}
		if p.sigTextMinDocCount != 0 {
			out = append(out, Pair{"facet_significant_text_min_doc_count", strconv.Itoa(p.sigTextMinDocCount)})
		}
		if p.sigTextShardSize != 0 {
			out = append(out, Pair{"facet_significant_text_shard_size", strconv.Itoa(p.sigTextShardSize)})
		}
	}

	return out
}

func appendIntParams(out Args, prefix string, params map[string]int, order []string) Args {
	for _, field := range paramFields(params, order) {
		out = append(out, Pair{prefix + field, strconv.Itoa(params[field])})
	}

	return out
}

func appendBoolParams(out Args, prefix string, params map[string]bool, order []string) Args {
	for _, field := range paramFields(params, order) {
		out = append(out, Pair{prefix + field, strconv.FormatBool(params[field])})
	}

	return out
}

func appendStringParams(out Args, prefix string, params map[string]string, order []string) Args {
	for _, field := range paramFields(params, order) {
		out = append(out, Pair{prefix + field, params[field]})
	}

	return out
}

// paramFields orders map keys for emission: fields in the facet order
// first, stragglers without a matching facet after, sorted.
func paramFields[V any](params map[string]V, order []string) []string {
	fields := make([]string, 0, len(params))
	for _, field := range order {
		if _, ok := params[field]; ok {
			fields = append(fields, field)
		}
	}
	for _, field := range slices.Sorted(maps.Keys(params)) {
		if !slices.Contains(fields, field) {
			fields = append(fields, field)
		}
	}

	return fields
}
