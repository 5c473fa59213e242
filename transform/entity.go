package transform

import (
	"cmp"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"openaleph.org/search/ftm"
	"openaleph.org/search/index"
	"openaleph.org/search/mapping"
	"openaleph.org/search/names"
	"openaleph.org/search/settings"
	"openaleph.org/search/version"
)

// indexTextProp is the magic property whose values leave the property
// map and index straight into the text field.
const indexTextProp = "indexText"

// bodyTextProp receives the page text preview on Pages entities.
const bodyTextProp = "bodyText"

// Format applies the final denormalisations turning one entity into the
// bulk action that stores it. Entities of an abstract schema are
// skipped with a warning (nil action, nil error): fragment stores
// produce them when an entity's concrete parts went missing.
func Format(m *ftm.Model, cfg *settings.Config, entity *ftm.Entity) (*index.Action, error) {
	s, err := m.Get(entity.Schema)
	if err != nil {
		return nil, err
	}
	if s.Abstract {
		slog.Warn("skipping abstract entity",
			slog.String("id", entity.ID), slog.String("schema", s.Name))

		return nil, nil
	}
	if entity.ID == "" {
		return nil, fmt.Errorf("%w: missing entity id", index.ErrInvalidAction)
	}

	name, err := index.SchemaIndex(cfg, s, cfg.IndexWrite)
	if err != nil {
		return nil, err
	}
	routing, err := index.RoutingKey(routingValue(cfg, entity))
	if err != nil {
		return nil, err
	}

	source, err := json.Marshal(document(s, entity))
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}

	id := entity.ID
	if cfg.IndexNamespaceIDs {
		id = SignedID(entity.Dataset, id)
	}

	return &index.Action{ID: id, Index: name, Routing: routing, Source: source}, nil
}

// document assembles the indexed source for an entity.
func document(s *ftm.Schema, entity *ftm.Entity) map[string]any {
	properties := make(map[string][]string, len(entity.Properties))
	for name, values := range entity.Properties {
		if name == indexTextProp || len(values) == 0 {
			continue
		}
		if _, ok := s.Property(name); !ok {
			continue
		}
		properties[name] = values
	}

	// Page documents keep a joined copy of their text as a property, so
	// result lists can show a preview without fetching the pages.
	if s.Name == "Pages" {
		if joined := strings.Join(entity.Values(indexTextProp), " "); joined != "" {
			properties[bodyTextProp] = append(slices.Clone(properties[bodyTextProp]), joined)
		}
	}

	doc := map[string]any{
		mapping.FieldSchema:       s.Name,
		mapping.FieldSchemata:     s.Names(),
		mapping.FieldCaption:      entity.Caption(s),
		mapping.FieldProperties:   properties,
		mapping.FieldNumValues:    entity.NumValues(),
		mapping.FieldIndexBucket:  string(mapping.SchemaBucket(s)),
		mapping.FieldIndexVersion: version.Short(),
		mapping.FieldIndexedAt:    time.Now().UTC().Format(time.RFC3339),
	}

	if entity.Dataset != "" {
		doc[mapping.FieldDataset] = entity.Dataset
	}
	if text := entity.Values(indexTextProp); len(text) > 0 {
		doc[mapping.FieldText] = text
	}

	nameValues := entity.Names(s)
	setNonEmpty(doc, mapping.FieldNameKeys, names.Keys(s, nameValues))
	setNonEmpty(doc, mapping.FieldNameParts, names.Parts(s, nameValues))
	setNonEmpty(doc, mapping.FieldNamePhonetic, names.Phonetics(s, nameValues))
	setNonEmpty(doc, mapping.FieldNameSymbols, names.Symbols(s, nameValues))

	if numeric := numericValues(s, entity); len(numeric) > 0 {
		doc[mapping.FieldNumeric] = numeric
	}
	if _, ok := s.Property("latitude"); ok {
		if points := geoPoints(entity); len(points) > 0 {
			doc[mapping.FieldGeoPoint] = points
		}
	}

	if entity.CollectionID != "" {
		doc[mapping.FieldCollectionID] = entity.CollectionID
	}
	if entity.RoleID != "" {
		doc[mapping.FieldRoleID] = entity.RoleID
	}
	if entity.ProfileID != "" {
		doc[mapping.FieldProfileID] = entity.ProfileID
	}
	if entity.Origin != "" {
		doc[mapping.FieldOrigin] = []string{entity.Origin}
	}
	if len(entity.Referents) > 0 {
		doc[mapping.FieldReferents] = entity.Referents
	}

	if entity.CreatedAt != "" {
		doc[mapping.FieldCreatedAt] = entity.CreatedAt
	}
	if updated := cmp.Or(entity.UpdatedAt, entity.CreatedAt); updated != "" {
		doc[mapping.FieldUpdatedAt] = updated
	}
	if entity.FirstSeen != "" {
		doc[mapping.FieldFirstSeen] = entity.FirstSeen
	}
	if entity.LastSeen != "" {
		doc[mapping.FieldLastSeen] = entity.LastSeen
	}
	if entity.LastChange != "" {
		doc[mapping.FieldLastChange] = entity.LastChange
	}

	return doc
}

func setNonEmpty(doc map[string]any, field string, values []string) {
	if len(values) > 0 {
		doc[field] = values
	}
}

// numericValues casts every numeric property into its double duplicate,
// plus the dates group collecting all date-typed values.
func numericValues(s *ftm.Schema, entity *ftm.Entity) map[string][]float64 {
	numeric := make(map[string][]float64)
	for _, prop := range s.Properties() {
		if !prop.IsNumeric() {
			continue
		}
		if values := castNumbers(prop.Type, entity.Values(prop.Name)); len(values) > 0 {
			numeric[prop.Name] = values
		}
	}
	if dates := castNumbers(ftm.TypeDate, dateValues(s, entity)); len(dates) > 0 {
		numeric[ftm.TypeDate.Group] = dates
	}

	return numeric
}

func castNumbers(t ftm.Type, values []string) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := t.ToNumber(v); ok {
			out = append(out, f)
		}
	}

	return out
}

// dateValues collects the distinct values of every date-typed property,
// in property order.
func dateValues(s *ftm.Schema, entity *ftm.Entity) []string {
	var values []string

	seen := make(map[string]bool)
	for _, prop := range s.Properties() {
		if prop.Type.Group != ftm.TypeDate.Group {
			continue
		}
		for _, v := range entity.Values(prop.Name) {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			values = append(values, v)
		}
	}

	return values
}

// geoPoints pairs every longitude value with every latitude value.
func geoPoints(entity *ftm.Entity) []map[string]string {
	var points []map[string]string
	for _, lon := range entity.Values("longitude") {
		for _, lat := range entity.Values("latitude") {
			points = append(points, map[string]string{"lon": lon, "lat": lat})
		}
	}

	return points
}

// routingValue picks the shard routing for an entity: the dataset, or
// the collection id when the deployment scopes access by collection.
func routingValue(cfg *settings.Config, entity *ftm.Entity) string {
	if cfg.SearchAuthField == mapping.FieldCollectionID && entity.CollectionID != "" {
		return entity.CollectionID
	}

	return entity.Dataset
}
