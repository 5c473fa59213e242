package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"openaleph.org/search/auth"
	"openaleph.org/search/query"
	"openaleph.org/search/settings"
)

func TestFacetAggregations(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "facet=countries&facet_size:countries=10&facet_total:countries=true", nil)

	assert.JSONEq(t, `{
		"countries.values": {"terms": {"field": "countries", "size": 10, "execution_hint": "map"}},
		"countries.cardinality": {"cardinality": {"field": "countries"}}
	}`, marshal(t, q.Aggregations()))
}

func TestFacetIsolation(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "facet=dataset&filter:dataset=d1&facet=names", nil)

	// The dataset facet must not see its own filter, so it stays inline;
	// the names facet runs under the dataset constraint.
	assert.JSONEq(t, `{
		"dataset.values": {"terms": {"field": "dataset", "size": 20, "execution_hint": "map"}},
		"names.filtered": {
			"filter": {"bool": {"filter": [{"term": {"dataset": "d1"}}]}},
			"aggregations": {
				"names.values": {"terms": {"field": "names", "size": 20, "execution_hint": "map"}}
			}
		}
	}`, marshal(t, q.Aggregations()))

	assert.JSONEq(t, `{
		"bool": {"filter": [{"term": {"dataset": "d1"}}]}
	}`, marshal(t, q.PostFilter()))
}

func TestFacetValuesDisabled(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "facet=countries&facet_values:countries=false&facet_total:countries=true", nil)

	assert.JSONEq(t, `{
		"countries.cardinality": {"cardinality": {"field": "countries"}}
	}`, marshal(t, q.Aggregations()))
}

func TestFacetDateHistogram(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	field := "properties.incorporationDate"
	q := entitiesQuery(t, cfg, "facet="+field+
		"&facet_interval:"+field+"=month"+
		"&filter:gte:"+field+"=2023-01-01&filter:lt:"+field+"=2024-01-01", nil)

	// Exclusive upper bounds pull in by one day so the histogram spans
	// exactly the filtered year.
	assert.JSONEq(t, `{
		"properties.incorporationDate.values": {"date_histogram": {
			"field": "properties.incorporationDate",
			"calendar_interval": "month",
			"min_doc_count": 0,
			"format": "yyyy-MM-dd",
			"extended_bounds": {"min": "2023-01-01", "max": "2023-12-31"}
		}}
	}`, marshal(t, q.Aggregations()))

	assert.JSONEq(t, `{
		"bool": {"filter": [
			{"range": {"properties.incorporationDate": {"gte": "2023-01-01", "lt": "2024-01-01"}}}
		]}
	}`, marshal(t, q.PostFilter()))
}

func TestFacetDateHistogramFixedInterval(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "facet=dates&facet_interval:dates=90d&filter:gte:dates=now-1y", nil)

	// Date math passes through to the filter but contributes no bounds.
	assert.JSONEq(t, `{
		"dates.values": {"date_histogram": {
			"field": "dates",
			"fixed_interval": "90d",
			"min_doc_count": 0,
			"format": "yyyy-MM-dd"
		}}
	}`, marshal(t, q.Aggregations()))
}

func TestAnonymousFacetCaps(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	cfg.SearchAuth = true

	au := &auth.Auth{}
	q := entitiesQuery(t, cfg, "facet=names&facet_size:names=500&facet_total:names=true"+
		"&facet=schema&facet_size:schema=500", au)

	// Anonymous callers get large facets capped and cardinality dropped;
	// the small schema facet keeps its requested size.
	assert.JSONEq(t, `{
		"names.values": {"terms": {"field": "names", "size": 50, "execution_hint": "map"}},
		"schema.values": {"terms": {"field": "schema", "size": 500, "execution_hint": "map"}}
	}`, marshal(t, q.Aggregations()))
}

func TestSignificantTerms(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "q=x&facet_significant=names", nil)

	// Unscoped requests diversify the sample across datasets and use
	// whole-index background statistics.
	assert.JSONEq(t, `{
		"names.sampled": {
			"diversified_sampler": {"shard_size": 10000, "field": "dataset"},
			"aggregations": {
				"names.values": {"significant_terms": {
					"field": "names",
					"size": 20,
					"min_doc_count": 3,
					"shard_min_doc_count": 1,
					"shard_size": 100,
					"execution_hint": "map"
				}}
			}
		}
	}`, marshal(t, q.Aggregations()))
}

func TestSignificantTermsScoped(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "q=x&facet_significant=names&facet_significant_size:names=40&filter:dataset=d1", nil)

	assert.JSONEq(t, `{
		"names.sampled": {
			"sampler": {"shard_size": 10000},
			"aggregations": {
				"names.values": {"significant_terms": {
					"field": "names",
					"size": 40,
					"min_doc_count": 3,
					"shard_min_doc_count": 1,
					"shard_size": 200,
					"execution_hint": "map",
					"background_filter": {"term": {"dataset": "d1"}}
				}}
			}
		}
	}`, marshal(t, q.Aggregations()))
}

func TestSignificantText(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	q := entitiesQuery(t, cfg, "q=x&facet_significant_text=content"+
		"&facet_significant_text_size=30&facet_significant_text_min_doc_count=5"+
		"&facet_significant_text_shard_size=400", nil)

	assert.JSONEq(t, `{
		"content.sampled": {
			"diversified_sampler": {"shard_size": 10000, "field": "dataset"},
			"aggregations": {
				"content.values": {"significant_text": {
					"field": "content",
					"size": 30,
					"min_doc_count": 5,
					"shard_size": 400,
					"filter_duplicate_text": true
				}}
			}
		}
	}`, marshal(t, q.Aggregations()))
}

func TestSignificantRandomSampler(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	cfg.SignificantRandomSampler = true

	q := entitiesQuery(t, cfg, "q=x&facet_significant=names", nil)
	q.SetSampleCount(200000)

	aggs := q.Aggregations()
	sampled, ok := aggs["names.sampled"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"probability": 0.25}, sampled["random_sampler"])
}

func TestSampleProbability(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		target, count int
		want          float64
	}{
		"empty foreground samples everything": {target: 50000, count: 0, want: 1},
		"small foreground samples everything": {target: 50000, count: 60000, want: 1},
		"quarter":                             {target: 50000, count: 200000, want: 0.25},
		"tenth":                               {target: 50000, count: 500000, want: 0.1},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.InDelta(t, tc.want, query.SampleProbability(tc.target, tc.count), 1e-9)
		})
	}
}
