package ftm

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/goccy/go-yaml"
)

var (
	// ErrUnknownSchema indicates a schema name not present in the catalog.
	ErrUnknownSchema = errors.New("unknown schema")
	// ErrInvalidModel indicates a catalog document that cannot be loaded.
	ErrInvalidModel = errors.New("invalid model")
)

//go:embed model.yaml
var defaultModelYAML []byte

var (
	defaultModel     *Model
	defaultModelOnce sync.Once
)

// Default returns the built-in catalog. The embedded document is parsed on
// first use; the model panics only if the embedded data is broken, which is
// a build defect rather than a runtime condition.
func Default() *Model {
	defaultModelOnce.Do(func() {
		m, err := LoadModel(defaultModelYAML)
		if err != nil {
			panic(fmt.Sprintf("ftm: embedded model: %v", err))
		}

		defaultModel = m
	})

	return defaultModel
}

// Model is an immutable schema catalog.
type Model struct {
	schemata map[string]*Schema
	names    []string
}

type propertySpec struct {
	Label  string `yaml:"label"`
	Type   string `yaml:"type"`
	Hidden bool   `yaml:"hidden"`
}

type schemaSpec struct {
	Label      string                  `yaml:"label"`
	Abstract   bool                    `yaml:"abstract"`
	Matchable  bool                    `yaml:"matchable"`
	Extends    []string                `yaml:"extends"`
	Caption    []string                `yaml:"caption"`
	Properties map[string]propertySpec `yaml:"properties"`
}

type modelSpec struct {
	Schemata map[string]schemaSpec `yaml:"schemata"`
}

// LoadModel parses a catalog document and precomputes all derived tables.
// The document format matches the embedded model.yaml: a `schemata` map of
// schema specs with label, abstract/matchable flags, extends, caption
// priority list, and typed properties.
func LoadModel(data []byte) (*Model, error) {
	var spec modelSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}

	if len(spec.Schemata) == 0 {
		return nil, fmt.Errorf("%w: no schemata defined", ErrInvalidModel)
	}

	m := &Model{schemata: make(map[string]*Schema, len(spec.Schemata))}

	for name, ss := range spec.Schemata {
		label := ss.Label
		if label == "" {
			label = name
		}

		m.schemata[name] = &Schema{
			Name:      name,
			Label:     label,
			Abstract:  ss.Abstract,
			Matchable: ss.Matchable,
			Extends:   slices.Clone(ss.Extends),
			Caption:   slices.Clone(ss.Caption),
		}
	}

	m.names = make([]string, 0, len(m.schemata))
	for name := range m.schemata {
		m.names = append(m.names, name)
	}

	slices.Sort(m.names)

	if err := m.resolve(spec); err != nil {
		return nil, err
	}

	return m, nil
}

// Get looks up a schema by name.
func (m *Model) Get(name string) (*Schema, error) {
	s, ok := m.schemata[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}

	return s, nil
}

// Has reports whether the catalog contains the named schema.
func (m *Model) Has(name string) bool {
	_, ok := m.schemata[name]
	return ok
}

// Schemata returns all schemata in name order.
func (m *Model) Schemata() []*Schema {
	out := make([]*Schema, 0, len(m.names))
	for _, name := range m.names {
		out = append(out, m.schemata[name])
	}

	return out
}

// Properties returns every property defined anywhere in the catalog,
// deduplicated by name. When two schemata declare the same property name
// with different types, the declaration of the alphabetically first schema
// wins; mapping-level conflicts are resolved separately by the mapping
// builder.
func (m *Model) Properties() []Property {
	seen := make(map[string]bool)

	var props []Property

	for _, name := range m.names {
		for _, p := range m.schemata[name].Properties() {
			if seen[p.Name] {
				continue
			}

			seen[p.Name] = true

			props = append(props, p)
		}
	}

	slices.SortFunc(props, func(a, b Property) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}

		return 0
	})

	return props
}

// resolve computes ancestor closures, inherited property tables,
// descendant lists, and matchable sets for every schema.
func (m *Model) resolve(spec modelSpec) error {
	resolved := make(map[string]bool, len(m.schemata))
	visiting := make(map[string]bool, len(m.schemata))

	var walk func(name string) error

	walk = func(name string) error {
		if resolved[name] {
			return nil
		}

		if visiting[name] {
			return fmt.Errorf("%w: inheritance cycle at %q", ErrInvalidModel, name)
		}

		visiting[name] = true
		defer delete(visiting, name)

		s := m.schemata[name]
		s.ancestors = map[string]bool{name: true}
		s.properties = make(map[string]Property)

		// Own properties first: a schema's own declaration beats any
		// inherited one.
		ownProps := spec.Schemata[name].Properties

		ownNames := make([]string, 0, len(ownProps))
		for propName := range ownProps {
			ownNames = append(ownNames, propName)
		}

		slices.Sort(ownNames)

		for _, propName := range ownNames {
			ps := ownProps[propName]

			t, ok := TypeByName(ps.Type)
			if !ok {
				return fmt.Errorf("%w: schema %q property %q: unknown type %q",
					ErrInvalidModel, name, propName, ps.Type)
			}

			label := ps.Label
			if label == "" {
				label = propName
			}

			s.properties[propName] = Property{
				Name:   propName,
				Label:  label,
				Type:   t,
				Hidden: ps.Hidden,
			}
		}

		for _, parent := range s.Extends {
			ps, ok := m.schemata[parent]
			if !ok {
				return fmt.Errorf("%w: schema %q extends unknown schema %q",
					ErrInvalidModel, name, parent)
			}

			if err := walk(parent); err != nil {
				return err
			}

			for ancestor := range ps.ancestors {
				s.ancestors[ancestor] = true
			}

			// First parent wins on inherited collisions; the listed
			// order of extends is significant.
			for propName, prop := range ps.properties {
				if _, exists := s.properties[propName]; !exists {
					s.properties[propName] = prop
				}
			}
		}

		// Schemata without their own caption list take the first
		// parent's, so Thing's [name] default reaches the whole tree.
		if len(s.Caption) == 0 {
			for _, parent := range s.Extends {
				if pc := m.schemata[parent].Caption; len(pc) > 0 {
					s.Caption = slices.Clone(pc)
					break
				}
			}
		}

		s.names = make([]string, 0, len(s.ancestors))
		for ancestor := range s.ancestors {
			s.names = append(s.names, ancestor)
		}

		slices.Sort(s.names)

		s.propNames = make([]string, 0, len(s.properties))
		for propName := range s.properties {
			s.propNames = append(s.propNames, propName)
		}

		slices.Sort(s.propNames)

		resolved[name] = true

		return nil
	}

	for _, name := range m.names {
		if err := walk(name); err != nil {
			return err
		}
	}

	// Second pass: descendants and matchable peers need the full
	// ancestor closure of every schema.
	for _, name := range m.names {
		s := m.schemata[name]

		for _, otherName := range m.names {
			if otherName == name {
				continue
			}

			other := m.schemata[otherName]
			if other.IsA(name) {
				s.descendants = append(s.descendants, otherName)
			}
		}

		if !s.Matchable {
			continue
		}

		for _, otherName := range m.names {
			other := m.schemata[otherName]
			if other.Matchable && (s.IsA(otherName) || other.IsA(name)) {
				s.matchable = append(s.matchable, otherName)
			}
		}
	}

	return nil
}
