package ftm

// Entity is one FtM entity as produced by upstream stores: a schema name,
// multi-valued string properties, and the write context carried through to
// the index. Values stay raw strings; typed interpretation is driven by the
// schema's property table.
type Entity struct {
	ID         string              `json:"id"`
	Schema     string              `json:"schema"`
	Properties map[string][]string `json:"properties"`

	Dataset      string   `json:"dataset,omitempty"`
	CollectionID string   `json:"collection_id,omitempty"`
	RoleID       string   `json:"role_id,omitempty"`
	ProfileID    string   `json:"profile_id,omitempty"`
	Origin       string   `json:"origin,omitempty"`
	Referents    []string `json:"referents,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
	FirstSeen    string   `json:"first_seen,omitempty"`
	LastSeen     string   `json:"last_seen,omitempty"`
	LastChange   string   `json:"last_change,omitempty"`
}

// Values returns the values of the named property, nil when unset.
func (e *Entity) Values(name string) []string {
	if e.Properties == nil {
		return nil
	}

	return e.Properties[name]
}

// First returns the first value of the named property, or "".
func (e *Entity) First(name string) string {
	values := e.Values(name)
	if len(values) == 0 {
		return ""
	}

	return values[0]
}

// NumValues counts all property values across the entity.
func (e *Entity) NumValues() int {
	var n int
	for _, values := range e.Properties {
		n += len(values)
	}

	return n
}

// Names collects the values of every name-typed property of the schema,
// deduplicated in property order.
func (e *Entity) Names(s *Schema) []string {
	var names []string

	seen := make(map[string]bool)

	for _, prop := range s.Properties() {
		if prop.Type != TypeName {
			continue
		}

		for _, value := range e.Values(prop.Name) {
			if value == "" || seen[value] {
				continue
			}

			seen[value] = true
			names = append(names, value)
		}
	}

	return names
}

// Caption returns the first value of the schema's first caption property
// that has one, falling back to the schema label.
func (e *Entity) Caption(s *Schema) string {
	for _, name := range s.Caption {
		if value := e.First(name); value != "" {
			return value
		}
	}

	return s.Label
}
