// Package names derives matching features from entity names: fingerprint
// keys, name parts, phonetic codes, and symbol tags, plus representative
// name selection for entities that carry too many spellings.
//
// All operations are pure functions over strings. Schema awareness is
// limited to the tokenization rules: organization-type words are
// canonicalized for organizations, leading honorifics are stripped for
// people.
package names
