package auth

import "strconv"

// Auth describes the slice of the index a caller is allowed to see. A nil
// Auth means authorization is not in play for the request; whether that is
// acceptable is decided by the query layer based on configuration.
//
// Datasets and CollectionIDs are allow-lists: a caller sees a document only
// when its scoping field value is in the respective list. Admin bypasses
// scoping entirely.
type Auth struct {
	Datasets      []string
	CollectionIDs []int64
	LoggedIn      bool
	Admin         bool
}

// Allowed reports whether the named dataset is within scope.
func (a *Auth) Allowed(dataset string) bool {
	if a == nil || a.Admin {
		return true
	}

	for _, d := range a.Datasets {
		if d == dataset {
			return true
		}
	}

	return false
}

// AllowedCollection reports whether the collection id is within scope.
func (a *Auth) AllowedCollection(id int64) bool {
	if a == nil || a.Admin {
		return true
	}

	for _, c := range a.CollectionIDs {
		if c == id {
			return true
		}
	}

	return false
}

// CollectionStrings returns the allowed collection ids as strings, the form
// they take in filter clauses.
func (a *Auth) CollectionStrings() []string {
	if a == nil {
		return nil
	}

	ids := make([]string, 0, len(a.CollectionIDs))
	for _, id := range a.CollectionIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}

	return ids
}

// DatasetsQuery produces the filter clause scoping a request to the
// caller's datasets: match_all for admins, match_none for callers with no
// datasets, and a terms clause otherwise. The field is the document field
// the deployment scopes on, usually "dataset" or "collection_id".
func (a *Auth) DatasetsQuery(field string) map[string]any {
	values := a.scopeValues(field)

	return ScopeQuery(field, values, a != nil && a.Admin)
}

func (a *Auth) scopeValues(field string) []string {
	if a == nil {
		return nil
	}

	if field == "collection_id" {
		return a.CollectionStrings()
	}

	return a.Datasets
}

// ScopeQuery builds a dataset scoping clause from resolved values:
// match_all when the caller is admin, match_none when the value list is
// empty, and a terms clause otherwise.
func ScopeQuery(field string, values []string, admin bool) map[string]any {
	if admin {
		return map[string]any{"match_all": map[string]any{}}
	}

	if len(values) == 0 {
		return map[string]any{"match_none": map[string]any{}}
	}

	return map[string]any{"terms": map[string]any{field: values}}
}
