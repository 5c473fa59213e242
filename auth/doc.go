// Package auth models per-request authorization for search: an allow-list
// of datasets (or collection ids) plus an admin bypass.
//
// An [Auth] value is attached to a parsed query and narrows every request
// to the caller's scope. [Auth.DatasetsQuery] yields the corresponding
// filter clause. The zero value is a logged-out caller with no datasets;
// a nil *Auth disables authorization (the query layer rejects that when
// the deployment requires auth).
package auth
