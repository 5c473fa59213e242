// Package index manages the entity indices: naming and version layout,
// creation and in-place reconfiguration, deletion, and the bulk
// ingestion pipeline.
//
// Entities live in four bucket indices per version, named
// "{prefix}-entity-{bucket}-{version}". Reads fan out over every
// configured read version while writes go to the single write version,
// so a mapping upgrade can fill a fresh version behind the running
// search before the read set flips over.
package index
