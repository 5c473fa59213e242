// Package mapping builds the index mappings and settings for the four
// entity buckets. It owns the document field names shared by the entity
// transformer and the query assemblers, the analysis block (ICU analyzers,
// keyword normalizers, the weak length norm similarity), and the
// per-bucket property mapping derived from the FtM catalog, including the
// copy_to wiring that feeds the content, text, name, and group fields.
package mapping
