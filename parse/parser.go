package parse

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"openaleph.org/search/auth"
	"openaleph.org/search/settings"
)

// ErrParam marks a request parameter that could not be interpreted,
// such as a non-numeric limit or a malformed boolean.
var ErrParam = errors.New("invalid parameter")

// DefaultLimit is the page size used when the request does not name
// one.
const DefaultLimit = 20

// DefaultFacetSize is the bucket count for a facet without an explicit
// facet_size.
const DefaultFacetSize = 20

// DefaultSignificantText is the field sampled when facet_significant_text
// is requested without naming one.
const DefaultSignificantText = "content"

// rangeOps are the comparison operators accepted in "filter:<op>:<field>"
// keys, mirroring the range query operators of the index.
var rangeOps = []string{"gt", "gte", "lt", "lte"}

// Sort is one sort key of a request, split from the "field:order" form.
type Sort struct {
	Field string
	Order string
}

// Range is one half-open bound on a field, parsed from a
// "filter:<op>:<field>" parameter.
type Range struct {
	Field string
	Op    string
	Value string
}

// Parser is the typed view of a request's parameters. Fields hold what
// the request asked for after validation and clamping; the raw pair
// list stays available as Args for round-tripping.
type Parser struct {
	Args Args
	Auth *auth.Auth

	Text      string
	Prefix    string
	Offset    int
	Limit     int
	NextLimit int
	Sorts     []Sort

	Filters  *FieldValues
	Excludes *FieldValues
	Empties  []string
	Ranges   []Range

	Facets           []string
	SignificantTerms []string
	SignificantText  string

	Highlight                  bool
	HighlightCount             int
	MaxHighlightAnalyzedOffset int

	MLTMinDocFreq         int
	MLTMinTermFreq        int
	MLTMaxQueryTerms      int
	MLTMinimumShouldMatch string

	Dehydrate bool

	cfg *settings.Config

	// Scope state under search authorization: filters on the auth field
	// are pulled out of Filters and intersected with the caller's
	// access.
	authFilters []string
	scopeValues []string
	scopeAll    bool

	facetSize     map[string]int
	facetTotal    map[string]bool
	facetValues   map[string]bool
	facetType     map[string]string
	facetInterval map[string]string

	sigSize   map[string]int
	sigTotal  map[string]bool
	sigValues map[string]bool
	sigType   map[string]string

	sigTextSize        int
	sigTextMinDocCount int
	sigTextShardSize   int
}

// NewParser interprets the parameter list against the configuration and
// the caller's access. Unknown keys are ignored; a malformed value for
// a known key fails with [ErrParam].
func NewParser(cfg *settings.Config, args Args, au *auth.Auth) (*Parser, error) {
	p := &Parser{
		Args:     args,
		Auth:     au,
		Filters:  NewFieldValues(),
		Excludes: NewFieldValues(),
		cfg:      cfg,

		facetSize:     map[string]int{},
		facetTotal:    map[string]bool{},
		facetValues:   map[string]bool{},
		facetType:     map[string]string{},
		facetInterval: map[string]string{},

		sigSize:   map[string]int{},
		sigTotal:  map[string]bool{},
		sigValues: map[string]bool{},
		sigType:   map[string]string{},
	}

	if err := p.parse(); err != nil {
		return nil, err
	}
	p.computeScope()

	return p, nil
}

func (p *Parser) parse() error {
	p.Text = strings.TrimSpace(p.Args.First("q"))
	p.Prefix = strings.TrimSpace(p.Args.First("prefix"))

	if err := p.parsePaging(); err != nil {
		return err
	}

	for _, value := range p.Args.Get("sort") {
		if value == "" {
			continue
		}
		p.Sorts = append(p.Sorts, parseSort(value))
	}

	if err := p.parseFilters(); err != nil {
		return err
	}
	if err := p.parseFacets(); err != nil {
		return err
	}

	var err error
	if p.Highlight, err = p.getBool("highlight"); err != nil {
		return err
	}
	if p.HighlightCount, err = p.getInt("highlight_count", 0); err != nil {
		return err
	}
	if p.MaxHighlightAnalyzedOffset, err = p.getInt("max_highlight_analyzed_offset", 0); err != nil {
		return err
	}

	if p.MLTMinDocFreq, err = p.getInt("mlt_min_doc_freq", 0); err != nil {
		return err
	}
	if p.MLTMinTermFreq, err = p.getInt("mlt_min_term_freq", 0); err != nil {
		return err
	}
	if p.MLTMaxQueryTerms, err = p.getInt("mlt_max_query_terms", 0); err != nil {
		return err
	}
	p.MLTMinimumShouldMatch = p.Args.First("mlt_minimum_should_match")

	if p.Dehydrate, err = p.getBool("dehydrate"); err != nil {
		return err
	}

	return nil
}

// parsePaging reads offset and limit and clamps them into the
// index's result window: offset+limit never exceeds
// [settings.MaxPage], trimming the limit when the offset leaves no
// room.
func (p *Parser) parsePaging() error {
	offset, err := p.getInt("offset", 0)
	if err != nil {
		return err
	}
	limit, err := p.getInt("limit", DefaultLimit)
	if err != nil {
		return err
	}

	p.Offset = max(0, offset)
	p.Limit = max(0, limit)
	if p.Offset+p.Limit > settings.MaxPage {
		p.Limit = max(0, settings.MaxPage-p.Offset)
	}

	if p.NextLimit, err = p.getInt("next_limit", p.Limit); err != nil {
		return err
	}
	p.NextLimit = max(0, p.NextLimit)

	return nil
}

func (p *Parser) parseFilters() error {
	for _, pair := range p.Args {
		switch {
		case strings.HasPrefix(pair.Key, "filter:"):
			rest := strings.TrimPrefix(pair.Key, "filter:")
			if rest == "" {
				continue
			}
			if op, field, ok := splitRangeKey(rest); ok {
				p.Ranges = append(p.Ranges, Range{Field: field, Op: op, Value: pair.Value})
				continue
			}
			p.Filters.Add(rest, pair.Value)

		case strings.HasPrefix(pair.Key, "exclude:"):
			field := strings.TrimPrefix(pair.Key, "exclude:")
			if field == "" {
				continue
			}
			p.Excludes.Add(field, pair.Value)

		case strings.HasPrefix(pair.Key, "empty:"):
			field := strings.TrimPrefix(pair.Key, "empty:")
			if field == "" {
				continue
			}
			on, err := parseBool(pair.Key, pair.Value)
			if err != nil {
				return err
			}
			if on && !slices.Contains(p.Empties, field) {
				p.Empties = append(p.Empties, field)
			}
		}
	}

	return nil
}

func (p *Parser) parseFacets() error {
	for _, field := range p.Args.Get("facet") {
		if field != "" && !slices.Contains(p.Facets, field) {
			p.Facets = append(p.Facets, field)
		}
	}
	for _, field := range p.Args.Get("facet_significant") {
		if field != "" && !slices.Contains(p.SignificantTerms, field) {
			p.SignificantTerms = append(p.SignificantTerms, field)
		}
	}
	if p.Args.Has("facet_significant_text") {
		p.SignificantText = p.Args.First("facet_significant_text")
		if p.SignificantText == "" {
			p.SignificantText = DefaultSignificantText
		}

		var err error
		if p.sigTextSize, err = p.getInt("facet_significant_text_size", 0); err != nil {
			return err
		}
		if p.sigTextMinDocCount, err = p.getInt("facet_significant_text_min_doc_count", 0); err != nil {
			return err
		}
		if p.sigTextShardSize, err = p.getInt("facet_significant_text_shard_size", 0); err != nil {
			return err
		}
	}

	for _, pair := range p.Args {
		name, field, ok := strings.Cut(pair.Key, ":")
		if !ok || field == "" {
			continue
		}

		var err error
		switch name {
		case "facet_size":
			err = putInt(p.facetSize, field, pair)
		case "facet_total":
			err = putBool(p.facetTotal, field, pair)
		case "facet_values":
			err = putBool(p.facetValues, field, pair)
		case "facet_type":
			p.facetType[field] = pair.Value
		case "facet_interval":
			p.facetInterval[field] = pair.Value
		case "facet_significant_size":
			err = putInt(p.sigSize, field, pair)
		case "facet_significant_total":
			err = putBool(p.sigTotal, field, pair)
		case "facet_significant_values":
			err = putBool(p.sigValues, field, pair)
		case "facet_significant_type":
			p.sigType[field] = pair.Value
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// computeScope intersects filters on the auth field with the caller's
// access. Out-of-scope filter values are dropped silently; admins keep
// whatever they filtered on, or see everything when they filtered on
// nothing.
func (p *Parser) computeScope() {
	if !p.cfg.SearchAuth {
		return
	}

	field := p.cfg.SearchAuthField
	p.authFilters = p.Filters.Get(field)
	p.Filters.Delete(field)

	if p.Auth == nil {
		return
	}
	if p.Auth.Admin {
		if len(p.authFilters) == 0 {
			p.scopeAll = true
			return
		}
		p.scopeValues = slices.Clone(p.authFilters)
		return
	}

	allowed := p.Auth.Datasets
	if field == "collection_id" {
		allowed = p.Auth.CollectionStrings()
	}
	if len(p.authFilters) == 0 {
		p.scopeValues = slices.Clone(allowed)
		return
	}

	for _, value := range p.authFilters {
		if slices.Contains(allowed, value) {
			p.scopeValues = append(p.scopeValues, value)
		}
	}
}

// Scope returns the values constraining the configured auth field, and
// whether the caller may see everything without a constraint. With
// search authorization off the values are the plain filters on the
// field.
func (p *Parser) Scope() ([]string, bool) {
	if !p.cfg.SearchAuth {
		return p.Filters.Get(p.cfg.SearchAuthField), false
	}

	return slices.Clone(p.scopeValues), p.scopeAll
}

// Datasets returns the dataset values the request is limited to, empty
// when unconstrained.
func (p *Parser) Datasets() []string {
	if p.cfg.SearchAuthField == "collection_id" {
		return p.Filters.Get("dataset")
	}

	values, _ := p.Scope()

	return values
}

// CollectionIDs returns the collection ids the request is limited to,
// as strings, empty when unconstrained.
func (p *Parser) CollectionIDs() []string {
	if p.cfg.SearchAuthField == "collection_id" {
		values, _ := p.Scope()

		return values
	}

	return p.Filters.Get("collection_id")
}

// RoutingKey returns the value to route the search by when the request
// is scoped to exactly one dataset or collection. Wider scopes,
// unconstrained requests and the catch-all routing pool yield "".
func (p *Parser) RoutingKey() string {
	values, all := p.Scope()
	if all || len(values) != 1 {
		return ""
	}
	if values[0] == "" || values[0] == "default" {
		return ""
	}

	return values[0]
}

// Page returns the 1-based page number implied by offset and limit.
func (p *Parser) Page() int {
	if p.Limit <= 0 {
		return 1
	}

	return p.Offset/p.Limit + 1
}

// FacetSize returns the bucket count requested for a facet field.
func (p *Parser) FacetSize(field string) int {
	if size, ok := p.facetSize[field]; ok {
		return size
	}

	return DefaultFacetSize
}

// FacetTotal reports whether the facet wants a cardinality count.
func (p *Parser) FacetTotal(field string) bool {
	return p.facetTotal[field]
}

// FacetValues reports whether the facet wants value buckets. On unless
// switched off, so a pure cardinality facet can skip them.
func (p *Parser) FacetValues(field string) bool {
	if on, ok := p.facetValues[field]; ok {
		return on
	}

	return true
}

// FacetType returns the aggregation type override for a facet field,
// or "" for a plain terms facet.
func (p *Parser) FacetType(field string) string {
	return p.facetType[field]
}

// FacetInterval returns the histogram interval requested for a facet
// field, or "" when none was named.
func (p *Parser) FacetInterval(field string) string {
	return p.facetInterval[field]
}

// SignificantSize returns the bucket count for a significant-terms
// facet field.
func (p *Parser) SignificantSize(field string) int {
	if size, ok := p.sigSize[field]; ok {
		return size
	}

	return DefaultFacetSize
}

// SignificantTotal reports whether the significant-terms facet wants a
// cardinality count.
func (p *Parser) SignificantTotal(field string) bool {
	return p.sigTotal[field]
}

// SignificantValues reports whether the significant-terms facet wants
// value buckets.
func (p *Parser) SignificantValues(field string) bool {
	if on, ok := p.sigValues[field]; ok {
		return on
	}

	return true
}

// SignificantType returns the aggregation type override for a
// significant-terms facet field.
func (p *Parser) SignificantType(field string) string {
	return p.sigType[field]
}

// SignificantTextSize returns the bucket count for the significant-text
// aggregation.
func (p *Parser) SignificantTextSize() int {
	if p.sigTextSize > 0 {
		return p.sigTextSize
	}

	return DefaultFacetSize
}

// SignificantTextMinDocCount returns the per-request override for the
// significant-text minimum document count, 0 when unset.
func (p *Parser) SignificantTextMinDocCount() int {
	return p.sigTextMinDocCount
}

// SignificantTextShardSize returns the per-request override for the
// significant-text shard size, 0 when unset.
func (p *Parser) SignificantTextShardSize() int {
	return p.sigTextShardSize
}

func (p *Parser) getInt(key string, fallback int) (int, error) {
	value := p.Args.First(key)
	if value == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", ErrParam, key, value)
	}

	return n, nil
}

func (p *Parser) getBool(key string) (bool, error) {
	return parseBool(key, p.Args.First(key))
}

func parseBool(key, value string) (bool, error) {
	if value == "" {
		return false, nil
	}

	on, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", ErrParam, key, value)
	}

	return on, nil
}

func putInt(dst map[string]int, field string, pair Pair) error {
	n, err := strconv.Atoi(pair.Value)
	if err != nil {
		return fmt.Errorf("%w: %s must be a number, got %q", ErrParam, pair.Key, pair.Value)
	}
	dst[field] = n

	return nil
}

func putBool(dst map[string]bool, field string, pair Pair) error {
	on, err := parseBool(pair.Key, pair.Value)
	if err != nil {
		return err
	}
	dst[field] = on

	return nil
}

// parseSort splits a "field:order" sort parameter on the last colon.
// Values without an explicit asc or desc suffix sort ascending on the
// whole value, so property paths containing colons stay intact.
func parseSort(value string) Sort {
	if idx := strings.LastIndex(value, ":"); idx >= 0 {
		field, order := value[:idx], value[idx+1:]
		if (order == "asc" || order == "desc") && field != "" {
			return Sort{Field: field, Order: order}
		}
	}

	return Sort{Field: value, Order: "asc"}
}

// splitRangeKey splits "gte:dates" style keys into operator and field.
func splitRangeKey(rest string) (op, field string, ok bool) {
	op, field, found := strings.Cut(rest, ":")
	if !found || field == "" {
		return "", "", false
	}
	if !slices.Contains(rangeOps, op) {
		return "", "", false
	}

	return op, field, true
}
