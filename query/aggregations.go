package query

import (
	"maps"
	"slices"

	"openaleph.org/search/ftm"
	"openaleph.org/search/mapping"
	"openaleph.org/search/parse"
)

// SmallFacets are low-cardinality fields whose facets stay fully
// visible to unauthenticated callers.
var SmallFacets = []string{
	mapping.FieldSchema,
	mapping.FieldSchemata,
	mapping.FieldDataset,
	ftm.TypeCountry.Group,
	ftm.TypeLanguage.Group,
}

// unauthFacetCap caps bucket counts for anonymous callers on fields not
// in [SmallFacets].
const unauthFacetCap = 50

// calendarIntervals are the date histogram intervals Elasticsearch
// accepts as calendar units; everything else is a fixed interval.
var calendarIntervals = []string{"minute", "hour", "day", "week", "month", "quarter", "year"}

// Aggregations assembles the aggregation tree for the requested facets,
// significant terms and significant text.
func (b *base) Aggregations() map[string]any {
	aggs := map[string]any{}
	for _, field := range b.parser.Facets {
		b.facetAggs(aggs, field)
	}
	for _, field := range b.parser.SignificantTerms {
		b.significantAggs(aggs, field)
	}
	if b.parser.SignificantText != "" {
		b.significantTextAggs(aggs)
	}

	return aggs
}

// facetAggs adds the aggregations for one faceted field. When other
// faceted fields carry constraints, the field's aggregations run under
// a filter wrapper so each facet sees every other facet's filters but
// never its own.
func (b *base) facetAggs(aggs map[string]any, field string) {
	inner := map[string]any{}
	if b.parser.FacetValues(field) {
		inner[field+".values"] = b.facetValuesAgg(field)
	}
	if b.parser.FacetTotal(field) && !b.unauthLimited(field) {
		inner[field+".cardinality"] = map[string]any{"cardinality": map[string]any{"field": field}}
	}
	if len(inner) == 0 {
		return
	}

	isolation := b.postFilterClauses(field)
	if len(isolation) == 0 {
		maps.Copy(aggs, inner)
		return
	}
	aggs[field+".filtered"] = map[string]any{
		"filter":       map[string]any{"bool": map[string]any{"filter": isolation}},
		"aggregations": inner,
	}
}

// facetValuesAgg builds the bucket aggregation for a facet: a terms
// aggregation, or a date histogram when an interval is requested.
func (b *base) facetValuesAgg(field string) map[string]any {
	if interval := b.parser.FacetInterval(field); interval != "" {
		return b.histogramAgg(field, interval)
	}

	return map[string]any{"terms": map[string]any{
		"field":          field,
		"size":           b.facetSize(field),
		"execution_hint": "map",
	}}
}

// histogramAgg buckets a date field by interval, carrying the filtered
// range as extended bounds so empty buckets appear across the whole
// window.
func (b *base) histogramAgg(field, interval string) map[string]any {
	agg := map[string]any{
		"field":         field,
		"min_doc_count": 0,
		"format":        "yyyy-MM-dd",
	}
	if slices.Contains(calendarIntervals, interval) {
		agg["calendar_interval"] = interval
	} else {
		agg["fixed_interval"] = interval
	}
	if bounds := histogramBounds(b.parser.Ranges, field); len(bounds) > 0 {
		agg["extended_bounds"] = bounds
	}

	return map[string]any{"date_histogram": agg}
}

// histogramBounds derives extended bounds from the range filters on a
// field. Exclusive bounds shift by one day so the bucket window stays
// inside the filtered range; values that are not plain dates (date
// math, malformed input) contribute nothing.
func histogramBounds(ranges []parse.Range, field string) map[string]any {
	bounds := map[string]any{}
	for _, r := range ranges {
		if r.Field != field {
			continue
		}
		t, ok := ftm.ParseDate(r.Value)
		if !ok {
			continue
		}
		switch r.Op {
		case "gte":
			bounds["min"] = t.Format("2006-01-02")
		case "gt":
			bounds["min"] = t.AddDate(0, 0, 1).Format("2006-01-02")
		case "lte":
			bounds["max"] = t.Format("2006-01-02")
		case "lt":
			bounds["max"] = t.AddDate(0, 0, -1).Format("2006-01-02")
		}
	}

	return bounds
}

// significantAggs adds the sampled significant-terms aggregation for
// one field.
func (b *base) significantAggs(aggs map[string]any, field string) {
	inner := map[string]any{}
	if b.parser.SignificantValues(field) {
		size := b.parser.SignificantSize(field)
		if b.unauthLimited(field) {
			size = min(size, unauthFacetCap)
		}
		agg := map[string]any{
			"field":               field,
			"size":                size,
			"min_doc_count":       b.cfg.SignificantMinDocCount,
			"shard_min_doc_count": b.cfg.SignificantShardMinDocCount,
			"shard_size":          max(100, size*5),
			"execution_hint":      "map",
		}
		if bg := b.backgroundFilter(); bg != nil {
			agg["background_filter"] = bg
		}
		inner[field+".values"] = map[string]any{"significant_terms": agg}
	}
	if b.parser.SignificantTotal(field) && !b.unauthLimited(field) {
		inner[field+".cardinality"] = map[string]any{"cardinality": map[string]any{"field": field}}
	}
	if len(inner) == 0 {
		return
	}

	aggs[field+".sampled"] = b.samplerAgg(inner)
}

// significantTextAggs adds the sampled significant-text aggregation
// over a free-text field.
func (b *base) significantTextAggs(aggs map[string]any) {
	field := b.parser.SignificantText
	size := b.parser.SignificantTextSize()

	minDocCount := b.parser.SignificantTextMinDocCount()
	if minDocCount == 0 {
		minDocCount = b.cfg.SignificantMinDocCount
	}
	shardSize := b.parser.SignificantTextShardSize()
	if shardSize == 0 {
		shardSize = max(100, size*5)
	}

	agg := map[string]any{
		"field":                 field,
		"size":                  size,
		"min_doc_count":         minDocCount,
		"shard_size":            shardSize,
		"filter_duplicate_text": true,
	}
	if bg := b.backgroundFilter(); bg != nil {
		agg["background_filter"] = bg
	}

	aggs[field+".sampled"] = b.samplerAgg(map[string]any{
		field + ".values": map[string]any{"significant_text": agg},
	})
}

// samplerAgg wraps significance internals in the configured sampler: a
// random sample when enabled, a plain sample when the request is
// scoped to datasets, and otherwise a sample diversified across the
// scoping field so one large dataset cannot drown out the statistics.
func (b *base) samplerAgg(inner map[string]any) map[string]any {
	if b.cfg.SignificantRandomSampler {
		return map[string]any{
			"random_sampler": map[string]any{"probability": b.sampleProbability()},
			"aggregations":   inner,
		}
	}

	if values, _ := b.parser.Scope(); len(values) > 0 {
		return map[string]any{
			"sampler":      map[string]any{"shard_size": b.cfg.SignificantSamplerSize},
			"aggregations": inner,
		}
	}

	return map[string]any{
		"diversified_sampler": map[string]any{
			"shard_size": b.cfg.SignificantSamplerSize,
			"field":      b.cfg.SearchAuthField,
		},
		"aggregations": inner,
	}
}

// backgroundFilter scopes significance statistics to the datasets the
// request can see; an unconstrained request uses whole-index
// statistics.
func (b *base) backgroundFilter() map[string]any {
	values, _ := b.parser.Scope()
	if len(values) == 0 {
		return nil
	}

	return FieldFilter(b.cfg.SearchAuthField, values)
}

// facetSize caps the requested bucket count for anonymous callers.
func (b *base) facetSize(field string) int {
	size := b.parser.FacetSize(field)
	if b.unauthLimited(field) {
		size = min(size, unauthFacetCap)
	}

	return size
}

// unauthLimited reports whether the anonymous-caller cap applies to a
// field. Without search authorization there is no notion of an
// anonymous caller, so nothing is capped.
func (b *base) unauthLimited(field string) bool {
	if !b.cfg.SearchAuth {
		return false
	}
	if b.parser.Auth != nil && b.parser.Auth.LoggedIn {
		return false
	}

	return !slices.Contains(SmallFacets, field)
}

// SetSampleCount feeds the foreground document count used to derive the
// random-sampler probability. [Search] counts before assembling the
// body when random sampling is on.
func (b *base) SetSampleCount(count int) { b.sampleCount = count }

func (b *base) sampleProbability() float64 {
	return SampleProbability(b.cfg.SignificantRandomTarget, b.sampleCount)
}

// SampleProbability derives the random-sampler probability from a
// target sample size and the foreground document count. The sampler
// accepts probabilities up to 0.5 or exactly 1, so anything above that
// threshold rounds up to sampling everything.
func SampleProbability(target, count int) float64 {
	if count <= 0 {
		return 1
	}
	p := float64(target) / float64(count)
	if p >= 0.5 {
		return 1
	}

	return p
}
