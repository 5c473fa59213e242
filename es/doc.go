// Package es constructs the Elasticsearch client and normalizes its
// responses.
//
// [New] builds a [github.com/elastic/go-elasticsearch/v8.Client] from
// [openaleph.org/search/settings]: node addresses, basic auth, and a retry
// policy that backs off exponentially on gateway errors and throttling
// (and, when configured, timeouts). [CheckResponse] turns cluster error
// responses into [ClusterError] values carrying status and body verbatim;
// [DecodeResponse] additionally decodes successful JSON bodies.
package es
