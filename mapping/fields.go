package mapping

import (
	"slices"

	"openaleph.org/search/ftm"
)

// Document field names shared across the indexing and query layers.
const (
	FieldDataset      = "dataset"
	FieldCollectionID = "collection_id"
	FieldSchema       = "schema"
	FieldSchemata     = "schemata"
	FieldCaption      = "caption"

	FieldName         = "name"
	FieldNames        = "names"
	FieldNameKeys     = "name_keys"
	FieldNameParts    = "name_parts"
	FieldNamePhonetic = "name_phonetic"
	FieldNameSymbols  = "name_symbols"

	FieldContent = "content"
	FieldText    = "text"

	FieldProperties = "properties"
	FieldNumeric    = "numeric"
	FieldGeoPoint   = "geo_point"

	FieldCreatedAt    = "created_at"
	FieldUpdatedAt    = "updated_at"
	FieldFirstSeen    = "first_seen"
	FieldLastSeen     = "last_seen"
	FieldLastChange   = "last_change"
	FieldNumValues    = "num_values"
	FieldReferents    = "referents"
	FieldOrigin       = "origin"
	FieldRoleID       = "role_id"
	FieldProfileID    = "profile_id"
	FieldIndexBucket  = "index_bucket"
	FieldIndexVersion = "index_version"
	FieldIndexedAt    = "indexed_at"
)

// DateFormat lists the accepted date input alternatives for every date
// field.
const DateFormat = "yyyy-MM-dd'T'HH||yyyy-MM-dd'T'HH:mm||yyyy-MM-dd'T'HH:mm:ss||" +
	"yyyy-MM-dd||yyyy-MM||yyyy||strict_date_optional_time"

// PropertyField returns the document field holding a property's values.
func PropertyField(name string) string {
	return "properties." + name
}

// NumericField returns the document field holding a property's numeric
// duplicate.
func NumericField(name string) string {
	return "numeric." + name
}

// SourceExcludes lists the fields reconstructed via copy_to at index time
// and therefore stripped from _source: every group field plus the content
// and derived name fields.
func SourceExcludes() []string {
	excludes := slices.Clone(ftm.GroupNames())

	return append(excludes,
		FieldContent,
		FieldText,
		FieldName,
		FieldNameKeys,
		FieldNameParts,
		FieldNameSymbols,
		FieldNamePhonetic,
	)
}
