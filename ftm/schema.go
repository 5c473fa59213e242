package ftm

import "slices"

// Property is a typed property descriptor attached to a schema.
type Property struct {
	Name   string
	Label  string
	Type   Type
	Hidden bool
}

// IsText reports whether values index into long-form text fields.
func (p Property) IsText() bool { return p.Type.Text }

// IsNumeric reports whether values duplicate into the numeric mapping.
func (p Property) IsNumeric() bool { return p.Type.Numeric }

// Matchable reports whether the property participates in entity matching.
func (p Property) Matchable() bool { return p.Type.Matchable }

// Field returns the full index field name, "properties.<name>".
func (p Property) Field() string { return "properties." + p.Name }

// Schema is a single FtM schema with its derived tables precomputed at
// model load. Instances are shared and must not be mutated.
type Schema struct {
	Name      string
	Label     string
	Abstract  bool
	Matchable bool
	Extends   []string
	Caption   []string

	names       []string
	ancestors   map[string]bool
	descendants []string
	matchable   []string
	properties  map[string]Property
	propNames   []string
}

// Names returns the schema name plus all ancestor names, sorted.
func (s *Schema) Names() []string {
	return slices.Clone(s.names)
}

// IsA reports whether the schema is the named schema or descends from it.
func (s *Schema) IsA(name string) bool {
	return s.ancestors[name]
}

// Property looks up an own or inherited property by name.
func (s *Schema) Property(name string) (Property, bool) {
	p, ok := s.properties[name]
	return p, ok
}

// PropertyNames returns all own and inherited property names, sorted.
func (s *Schema) PropertyNames() []string {
	return slices.Clone(s.propNames)
}

// Properties returns all own and inherited properties in name order.
func (s *Schema) Properties() []Property {
	props := make([]Property, 0, len(s.propNames))
	for _, name := range s.propNames {
		props = append(props, s.properties[name])
	}

	return props
}

// Descendants returns the names of all proper descendants, sorted.
func (s *Schema) Descendants() []string {
	return slices.Clone(s.descendants)
}

// MatchableSchemata returns the names of schemata it makes sense to
// compare entities of this schema against: every matchable schema on the
// same branch of the inheritance tree, in both directions. Non-matchable
// schemata have no matchable peers.
func (s *Schema) MatchableSchemata() []string {
	return slices.Clone(s.matchable)
}

// CaptionProperties returns the caption property names in priority order.
func (s *Schema) CaptionProperties() []string {
	return slices.Clone(s.Caption)
}
