package mapping

import "openaleph.org/search/ftm"

// Bucket identifies one of the four entity index partitions.
type Bucket string

const (
	BucketThings    Bucket = "things"
	BucketIntervals Bucket = "intervals"
	BucketDocuments Bucket = "documents"
	BucketPages     Bucket = "pages"
)

// Buckets lists every bucket.
var Buckets = []Bucket{BucketThings, BucketIntervals, BucketDocuments, BucketPages}

// SchemaBucket maps a schema to its index bucket. Abstract schemata
// classify too; they contribute inherited properties to their bucket's
// mapping even though no entity carries them directly.
func SchemaBucket(s *ftm.Schema) Bucket {
	switch {
	case s.Name == "Page" || s.Name == "Pages":
		return BucketPages
	case s.IsA("Document"):
		return BucketDocuments
	case s.IsA("Thing"):
		return BucketThings
	case s.IsA("Interval"):
		return BucketIntervals
	}

	// Schemata outside the four families still need a home.
	return BucketThings
}
