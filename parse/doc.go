// Package parse turns the URL-style parameter list of a search request
// into a typed view: text query, paging, sort keys, filters and
// exclusions, range bounds, facet selections with their per-field
// sub-parameters, highlight and more-like-this knobs.
//
// Parameters arrive as an ordered pair list; repetition is meaningful
// (every "filter:schema" pair adds a value) and unknown keys are
// ignored. [Unparse] emits the canonical pair list back, so a request
// can round-trip through its parsed form.
//
// When search authorization is enabled, filters on the configured auth
// field are not regular filters: they intersect with the caller's
// access. The parser consumes them and exposes the effective scope.
package parse
