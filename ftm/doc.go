// Package ftm provides a compact adapter for the FollowTheMoney (FtM)
// entity schema catalog: schema lookup by name, ancestor and descendant
// sets, matchable-schemata resolution, and typed property descriptors.
//
// The catalog is immutable after load. [Default] returns the built-in
// model, parsed once from an embedded YAML document covering the FtM core
// schemata. [LoadModel] parses a caller-provided catalog in the same
// format, for deployments that extend the model.
//
// All derived data (ancestor closures, inherited property tables,
// matchable sets) is precomputed at load time so that lookups on the hot
// query path are plain map reads.
//
// [Entity] is the wire-level entity proxy consumed by the indexing
// pipeline: an id, a schema name, a multi-valued property map, and the
// dataset it belongs to.
package ftm
