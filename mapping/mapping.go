package mapping

import (
	"slices"
	"strconv"

	"openaleph.org/search/ftm"
	"openaleph.org/search/settings"
)

// Settings returns the index settings for a bucket: shard count scaled by
// bucket weight, replicas, refresh interval, the analysis block, and the
// weak length norm similarity used by the name field. Testing mode
// collapses to one shard without replicas.
func Settings(bucket Bucket, cfg *settings.Config) map[string]any {
	shards := scaledShards(bucket, cfg.IndexShards)
	replicas := cfg.IndexReplicas

	if cfg.Testing {
		shards, replicas = 1, 0
	}

	// The cluster reports settings values as strings; emitting them the
	// same way keeps change detection a plain comparison.
	return map[string]any{
		"index": map[string]any{
			"number_of_shards":   strconv.Itoa(shards),
			"number_of_replicas": strconv.Itoa(replicas),
			"refresh_interval":   cfg.IndexRefreshInterval,
			"similarity": map[string]any{
				SimilarityWeakLengthNorm: map[string]any{
					"type": "BM25",
					"b":    0.25,
				},
			},
		},
		"analysis": Analysis(),
	}
}

// scaledShards weights the configured shard count by bucket: document
// buckets carry the bulk of the data, things half of it, intervals a
// third.
func scaledShards(bucket Bucket, shards int) int {
	switch bucket {
	case BucketThings:
		shards /= 2
	case BucketIntervals:
		shards /= 3
	}

	return max(shards, 1)
}

// ForBucket builds the full document mapping for one bucket from the
// catalog: static base fields, one field per type group, the typed
// properties.* object with copy_to wiring, and the numeric.* duplicates.
func ForBucket(m *ftm.Model, bucket Bucket, cfg *settings.Config) map[string]any {
	props := baseProperties(bucket, cfg)

	for _, group := range ftm.GroupNames() {
		if group == FieldNames {
			// Defined with its normalizer in the base mapping.
			continue
		}

		if ftm.Groups()[group] == ftm.TypeDate {
			props[group] = partialDate()
		} else {
			props[group] = keyword()
		}
	}

	props[FieldProperties] = objectOf(propertyMapping(m, bucket))
	props[FieldNumeric] = objectOf(numericMapping(m))

	return map[string]any{
		"date_detection": false,
		"dynamic":        false,
		"_source":        map[string]any{"excludes": SourceExcludes()},
		"properties":     props,
	}
}

func keyword() map[string]any {
	return map[string]any{"type": "keyword"}
}

func date() map[string]any {
	return map[string]any{"type": "date"}
}

func partialDate() map[string]any {
	return map[string]any{"type": "date", "format": DateFormat}
}

func objectOf(properties map[string]any) map[string]any {
	return map[string]any{"type": "object", "properties": properties}
}

func baseProperties(bucket Bucket, cfg *settings.Config) map[string]any {
	content := map[string]any{
		"type":          "text",
		"analyzer":      AnalyzerDefault,
		"index_phrases": true,
		// Pages keep their text retrievable for previews.
		"store": bucket == BucketPages,
	}

	if cfg.ContentTermVectors {
		content["term_vector"] = "with_positions_offsets"
	}

	return map[string]any{
		FieldDataset:      keyword(),
		FieldCollectionID: keyword(),
		FieldSchema:       keyword(),
		FieldSchemata:     keyword(),
		FieldCaption:      keyword(),

		FieldName: map[string]any{
			"type":       "text",
			"analyzer":   AnalyzerDefault,
			"similarity": SimilarityWeakLengthNorm,
			"store":      true,
		},
		FieldNames: map[string]any{
			"type":       "keyword",
			"normalizer": NormalizerNameKW,
		},
		FieldNameKeys: keyword(),
		FieldNameParts: map[string]any{
			"type":    "keyword",
			"copy_to": []string{FieldText},
		},
		FieldNamePhonetic: keyword(),
		FieldNameSymbols:  keyword(),

		FieldContent: content,
		FieldText: map[string]any{
			"type":     "text",
			"analyzer": AnalyzerStripHTML,
		},

		FieldGeoPoint: map[string]any{"type": "geo_point"},

		FieldCreatedAt:    date(),
		FieldUpdatedAt:    date(),
		FieldFirstSeen:    date(),
		FieldLastSeen:     date(),
		FieldLastChange:   date(),
		FieldIndexedAt:    date(),
		FieldNumValues:    map[string]any{"type": "long"},
		FieldReferents:    keyword(),
		FieldOrigin:       keyword(),
		FieldRoleID:       keyword(),
		FieldProfileID:    keyword(),
		FieldIndexBucket:  keyword(),
		FieldIndexVersion: keyword(),
	}
}

// propertyEntry accumulates the merged mapping of one property name
// across every schema in the bucket.
type propertyEntry struct {
	config map[string]any
	copyTo map[string]bool
}

// propertyMapping types every property of the bucket's schemata. When
// schemata disagree on a property's type, keyword wins and the copy_to
// sets merge.
func propertyMapping(m *ftm.Model, bucket Bucket) map[string]any {
	entries := make(map[string]*propertyEntry)

	for _, s := range m.Schemata() {
		if SchemaBucket(s) != bucket {
			continue
		}

		captioned := make(map[string]bool, len(s.Caption))
		for _, name := range s.CaptionProperties() {
			captioned[name] = true
		}

		for _, prop := range s.Properties() {
			config := propertyConfig(prop)
			copyTo := propertyCopyTo(prop, captioned[prop.Name])

			entry, ok := entries[prop.Name]
			if !ok {
				entry = &propertyEntry{config: config, copyTo: make(map[string]bool)}
				entries[prop.Name] = entry
			} else if config["type"] == "keyword" {
				entry.config = config
			}

			for _, field := range copyTo {
				entry.copyTo[field] = true
			}
		}
	}

	out := make(map[string]any, len(entries))

	for name, entry := range entries {
		fields := make([]string, 0, len(entry.copyTo))
		for field := range entry.copyTo {
			fields = append(fields, field)
		}

		slices.Sort(fields)

		entry.config["copy_to"] = fields
		out[name] = entry.config
	}

	return out
}

// propertyConfig picks the field type: text types stay unindexed text
// (searched through content), dates accept partial formats, everything
// else is keyword.
func propertyConfig(prop ftm.Property) map[string]any {
	switch {
	case prop.IsText():
		return map[string]any{"type": "text", "index": false}
	case prop.Type == ftm.TypeDate:
		return partialDate()
	default:
		return keyword()
	}
}

// propertyCopyTo wires a property's values into the derived fields: text
// types feed content, everything else feeds text plus its group field,
// name-group values additionally feed the scored name field when the
// property captions its schema.
func propertyCopyTo(prop ftm.Property, captioned bool) []string {
	if prop.IsText() {
		return []string{FieldContent}
	}

	fields := []string{FieldText}

	if group := prop.Type.Group; group != "" {
		fields = append(fields, group)
	}

	if captioned {
		fields = append(fields, FieldName)
	}

	return fields
}

// numericMapping duplicates every number- and date-typed property as a
// double for sorting and aggregation, plus the dates group itself.
func numericMapping(m *ftm.Model) map[string]any {
	out := make(map[string]any)

	for _, prop := range m.Properties() {
		if prop.IsNumeric() {
			out[prop.Name] = map[string]any{"type": "double"}
		}
	}

	out["dates"] = map[string]any{"type": "double"}

	return out
}
