package index

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"openaleph.org/search/ftm"
	"openaleph.org/search/mapping"
	"openaleph.org/search/settings"
)

// ErrAbstractSchema is returned when an operation needs a concrete
// schema but got an abstract one. Abstract schemata hold no entities.
var ErrAbstractSchema = errors.New("abstract schema")

// Name composes a concrete index name from the configured prefix, a base
// name, and a version, e.g. "openaleph-entity-things-v1".
func Name(cfg *settings.Config, base, version string) string {
	return strings.Join([]string{cfg.IndexPrefix, base, version}, "-")
}

// Pattern returns the wildcard matching every entity index regardless of
// bucket and version.
func Pattern(cfg *settings.Config) string {
	return cfg.IndexPrefix + "-entity-*"
}

// BucketIndex returns the entity index for one bucket at a version.
func BucketIndex(cfg *settings.Config, bucket mapping.Bucket, version string) string {
	return Name(cfg, "entity-"+string(bucket), version)
}

// SchemaIndex returns the entity index holding entities of a schema at a
// version.
func SchemaIndex(cfg *settings.Config, s *ftm.Schema, version string) (string, error) {
	if s.Abstract {
		return "", fmt.Errorf("%w: %s", ErrAbstractSchema, s.Name)
	}

	return BucketIndex(cfg, mapping.SchemaBucket(s), version), nil
}

// WriteIndex returns the index entities of a schema are written to.
func WriteIndex(cfg *settings.Config, s *ftm.Schema) (string, error) {
	return SchemaIndex(cfg, s, cfg.IndexWrite)
}

// WriteIndexes returns the write-side index of every bucket.
func WriteIndexes(cfg *settings.Config) []string {
	out := make([]string, 0, len(mapping.Buckets))
	for _, bucket := range mapping.Buckets {
		out = append(out, BucketIndex(cfg, bucket, cfg.IndexWrite))
	}

	return out
}

// ReadIndexes expands a schema selection into the sorted set of indices
// a query should target. Schemata map to their buckets, crossed with
// every configured read version. When expand is set each schema also
// pulls in its descendants, so filtering on "Thing" covers companies and
// people too. An empty selection means everything; unknown names are
// skipped.
func ReadIndexes(m *ftm.Model, cfg *settings.Config, schemata []string, expand bool) []string {
	scope := make(map[string]*ftm.Schema)

	if len(schemata) == 0 {
		for _, s := range m.Schemata() {
			scope[s.Name] = s
		}
	}

	for _, name := range schemata {
		s, err := m.Get(name)
		if err != nil {
			continue
		}

		scope[s.Name] = s
		if !expand {
			continue
		}

		for _, descendant := range s.Descendants() {
			if d, err := m.Get(descendant); err == nil {
				scope[d.Name] = d
			}
		}
	}

	seen := make(map[string]bool)
	out := make([]string, 0, len(mapping.Buckets)*len(cfg.IndexRead))

	for _, s := range scope {
		if s.Abstract {
			continue
		}

		bucket := mapping.SchemaBucket(s)
		for _, version := range cfg.IndexRead {
			name := BucketIndex(cfg, bucket, version)
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}

	slices.Sort(out)

	return out
}

// BucketIndexes returns the sorted read-side indices for a fixed set of
// buckets, for queries that scope by bucket rather than schema.
func BucketIndexes(cfg *settings.Config, buckets ...mapping.Bucket) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(buckets)*len(cfg.IndexRead))

	for _, bucket := range buckets {
		for _, version := range cfg.IndexRead {
			name := BucketIndex(cfg, bucket, version)
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}

	slices.Sort(out)

	return out
}

// AllIndexes returns every read-side entity index.
func AllIndexes(cfg *settings.Config) []string {
	return BucketIndexes(cfg, mapping.Buckets...)
}
