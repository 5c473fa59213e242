package parse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openaleph.org/search/auth"
	"openaleph.org/search/parse"
	"openaleph.org/search/settings"
)

func TestUnparseCanonical(t *testing.T) {
	t.Parallel()

	p := mustParse(t, settings.New(),
		"limit=30&q=acme&filter:schema=Person&facet=countries&facet_size:countries=50&offset=60&highlight=true",
		nil)

	assert.Equal(t, parse.Args{
		{Key: "q", Value: "acme"},
		{Key: "offset", Value: "60"},
		{Key: "limit", Value: "30"},
		{Key: "filter:schema", Value: "Person"},
		{Key: "facet", Value: "countries"},
		{Key: "facet_size:countries", Value: "50"},
		{Key: "highlight", Value: "true"},
	}, p.Unparse())
}

func TestUnparseOmitsDefaults(t *testing.T) {
	t.Parallel()

	p := mustParse(t, settings.New(), "", nil)

	assert.Empty(t, p.Unparse())
}

func TestUnparseRoundTrip(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		query  string
		au     *auth.Auth
		authOn bool
	}{
		"everything": {
			query: "q=acme+bank&offset=50&limit=30&next_limit=60" +
				"&sort=properties.date:desc&sort=caption" +
				"&filter:schema=Person&filter:countries=de&filter:countries=fr" +
				"&filter:gte:properties.date=2020&exclude:dataset=test_b" +
				"&empty:properties.birthDate=true" +
				"&facet=countries&facet=dataset&facet_size:countries=50" +
				"&facet_total:countries=true&facet_values:dataset=false" +
				"&facet_type:properties.date=date_histogram&facet_interval:properties.date=year" +
				"&facet_significant=names&facet_significant_size:names=25" +
				"&facet_significant_text=content&facet_significant_text_size=12" +
				"&highlight=true&highlight_count=2&max_highlight_analyzed_offset=5000" +
				"&mlt_min_doc_freq=3&mlt_minimum_should_match=25%25&dehydrate=true",
		},
		"empty": {
			query: "",
		},
		"clamped_paging": {
			query: "offset=9990&limit=100",
		},
		"straggler_subparams": {
			query: "facet_size:countries=9&facet=languages",
		},
		"auth_scope": {
			query:  "q=x&filter:dataset=test_a&filter:dataset=test_c&filter:schema=Company",
			au:     &auth.Auth{Datasets: []string{"test_a", "test_b"}, LoggedIn: true},
			authOn: true,
		},
		"admin_scope": {
			query:  "filter:dataset=test_a",
			au:     &auth.Auth{Admin: true, LoggedIn: true},
			authOn: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := settings.New()
			cfg.SearchAuth = tc.authOn

			first := mustParse(t, cfg, tc.query, tc.au)
			second, err := parse.NewParser(cfg, first.Unparse(), tc.au)
			require.NoError(t, err)

			assert.Equal(t, stripArgs(first), stripArgs(second))
			assert.Equal(t, first.Unparse(), second.Unparse())
		})
	}
}

// stripArgs drops the raw pair list, which legitimately differs between
// a request and its canonical form.
func stripArgs(p *parse.Parser) parse.Parser {
	q := *p
	q.Args = nil

	return q
}
