// Package transform denormalizes FtM entities into the documents the
// entity indexes store. [Format] is the whole surface: it validates the
// schema, derives the name and numeric features, stamps the write
// context and returns the bulk action that persists the entity.
//
// Derived group fields (countries, emails, ...) and the scored name
// fields are not part of the emitted source; the index mapping
// reconstructs them from properties.* through copy_to at index time.
// The document only carries what cannot be reconstructed there: cast
// numeric duplicates, name keys, parts, phonetics and symbols.
package transform
