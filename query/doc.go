// Package query builds Elasticsearch request bodies from parsed search
// requests: full-text entity search, entity-to-entity matching,
// more-like-this similarity, and the filter, aggregation, highlight and
// sort blocks they share.
//
// Builders validate their inputs at construction and are pure
// afterwards; assembling a request body never touches the cluster. The
// round-trips live in [Search], [Count], [Analyze] and [Export], which
// pick the read indices, apply shard routing and decode the response.
package query
