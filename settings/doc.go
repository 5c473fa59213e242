// Package settings carries the runtime configuration for the search
// layer: cluster connection, index layout and scaling, indexer pipeline
// limits, query behavior toggles, and highlighter/significant-terms
// defaults.
//
// Every key binds to an environment variable under the OPENALEPH_SEARCH_
// prefix (flag "index-shards" reads OPENALEPH_SEARCH_INDEX_SHARDS) and to
// a pflag of the same name for CLI use. [Load] layers an optional YAML
// file under the environment.
package settings
