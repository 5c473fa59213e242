package transform_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openaleph.org/search/ftm"
	"openaleph.org/search/index"
	"openaleph.org/search/settings"
	"openaleph.org/search/transform"
	"openaleph.org/search/version"
)

func decodeSource(t *testing.T, action *index.Action) map[string]any {
	t.Helper()

	var doc map[string]any
	require.NoError(t, json.Unmarshal(action.Source, &doc))

	return doc
}

func marshal(t *testing.T, v any) string {
	t.Helper()

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	return string(raw)
}

func TestFormatPerson(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	cfg.IndexNamespaceIDs = false

	entity := &ftm.Entity{
		ID:      "jane-1",
		Schema:  "Person",
		Dataset: "test_ds",
		Properties: map[string][]string{
			"name":           {"Jane Smith"},
			"passportNumber": {"C01X00T14"},
			"birthDate":      {"1982-04-12"},
			"nationality":    {"de"},
		},
	}

	action, err := transform.Format(ftm.Default(), cfg, entity)
	require.NoError(t, err)
	require.NotNil(t, action)

	assert.Equal(t, "jane-1", action.ID)
	assert.Equal(t, "openaleph-entity-things-v1", action.Index)
	assert.Equal(t, "test_ds", action.Routing)
	assert.Equal(t, index.OpIndex, action.Op())

	doc := decodeSource(t, action)

	indexedAt, _ := doc["indexed_at"].(string)
	_, err = time.Parse(time.RFC3339, indexedAt)
	assert.NoError(t, err)
	assert.Equal(t, version.Short(), doc["index_version"])

	delete(doc, "indexed_at")
	delete(doc, "index_version")

	assert.JSONEq(t, `{
		"schema": "Person",
		"schemata": ["LegalEntity", "Person", "Thing"],
		"caption": "Jane Smith",
		"dataset": "test_ds",
		"properties": {
			"name": ["Jane Smith"],
			"passportNumber": ["C01X00T14"],
			"birthDate": ["1982-04-12"],
			"nationality": ["de"]
		},
		"name_keys": ["janesmith"],
		"name_parts": ["jane", "smith"],
		"name_phonetic": ["SM0"],
		"numeric": {"birthDate": [387417600], "dates": [387417600]},
		"num_values": 4,
		"index_bucket": "things"
	}`, marshal(t, doc))
}

func TestFormatPages(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	cfg.IndexNamespaceIDs = false

	entity := &ftm.Entity{
		ID:      "pages-1",
		Schema:  "Pages",
		Dataset: "d1",
		Properties: map[string][]string{
			"fileName":  {"doc.pdf"},
			"indexText": {"first page", "second page"},
		},
	}

	action, err := transform.Format(ftm.Default(), cfg, entity)
	require.NoError(t, err)
	require.NotNil(t, action)

	assert.Equal(t, "openaleph-entity-pages-v1", action.Index)

	doc := decodeSource(t, action)
	assert.Equal(t, "Pages", doc["schema"])
	assert.Equal(t, "doc.pdf", doc["caption"])
	assert.Equal(t, "pages", doc["index_bucket"])
	assert.Equal(t, []any{"first page", "second page"}, doc["text"])

	// The page text lands twice: joined as a preview property and in
	// the text field, while the entity itself stays untouched.
	assert.JSONEq(t, `{
		"fileName": ["doc.pdf"],
		"bodyText": ["first page second page"]
	}`, marshal(t, doc["properties"]))
	assert.NotContains(t, entity.Properties, "bodyText")
	assert.Equal(t, float64(3), doc["num_values"])
}

func TestFormatAddress(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	cfg.IndexNamespaceIDs = false

	entity := &ftm.Entity{
		ID:      "addr-1",
		Schema:  "Address",
		Dataset: "d1",
		Properties: map[string][]string{
			"full":      {"1 Main St"},
			"latitude":  {"52.5"},
			"longitude": {"13.4"},
		},
	}

	action, err := transform.Format(ftm.Default(), cfg, entity)
	require.NoError(t, err)
	require.NotNil(t, action)

	doc := decodeSource(t, action)
	assert.Equal(t, "1 Main St", doc["caption"])
	assert.JSONEq(t, `[{"lon": "13.4", "lat": "52.5"}]`, marshal(t, doc["geo_point"]))
	assert.JSONEq(t, `{"latitude": [52.5], "longitude": [13.4]}`, marshal(t, doc["numeric"]))
}

func TestFormatContext(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	cfg.IndexNamespaceIDs = false

	entity := &ftm.Entity{
		ID:           "com-1",
		Schema:       "Company",
		Dataset:      "d2",
		Properties:   map[string][]string{"name": {"Acme GmbH"}},
		CollectionID: "7",
		RoleID:       "11",
		ProfileID:    "prof-1",
		Origin:       "ingest",
		Referents:    []string{"old-1"},
		CreatedAt:    "2024-01-02T00:00:00",
		FirstSeen:    "2023-12-31",
		LastSeen:     "2024-02-02",
		LastChange:   "2024-01-15",
	}

	action, err := transform.Format(ftm.Default(), cfg, entity)
	require.NoError(t, err)
	require.NotNil(t, action)

	assert.Equal(t, "d2", action.Routing)

	doc := decodeSource(t, action)
	assert.Equal(t, "7", doc["collection_id"])
	assert.Equal(t, "11", doc["role_id"])
	assert.Equal(t, "prof-1", doc["profile_id"])
	assert.Equal(t, []any{"ingest"}, doc["origin"])
	assert.Equal(t, []any{"old-1"}, doc["referents"])
	assert.Equal(t, "2024-01-02T00:00:00", doc["created_at"])
	assert.Equal(t, "2024-01-02T00:00:00", doc["updated_at"])
	assert.Equal(t, "2023-12-31", doc["first_seen"])
	assert.Equal(t, "2024-02-02", doc["last_seen"])
	assert.Equal(t, "2024-01-15", doc["last_change"])
}

func TestFormatNamespacedID(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	require.True(t, cfg.IndexNamespaceIDs)

	entity := &ftm.Entity{
		ID:         "com-1",
		Schema:     "Company",
		Dataset:    "d1",
		Properties: map[string][]string{"name": {"Acme"}},
	}

	action, err := transform.Format(ftm.Default(), cfg, entity)
	require.NoError(t, err)
	require.NotNil(t, action)

	assert.Equal(t, transform.SignedID("d1", "com-1"), action.ID)

	entity.Dataset = "d2"
	other, err := transform.Format(ftm.Default(), cfg, entity)
	require.NoError(t, err)
	assert.NotEqual(t, action.ID, other.ID)
}

func TestFormatCollectionRouting(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	cfg.SearchAuthField = "collection_id"

	entity := &ftm.Entity{
		ID:           "com-1",
		Schema:       "Company",
		Dataset:      "d1",
		CollectionID: "9",
		Properties:   map[string][]string{"name": {"Acme"}},
	}

	action, err := transform.Format(ftm.Default(), cfg, entity)
	require.NoError(t, err)
	require.NotNil(t, action)

	assert.Equal(t, "9", action.Routing)
	// Id signing stays keyed by the dataset either way.
	assert.Equal(t, transform.SignedID("d1", "com-1"), action.ID)

	entity.CollectionID = ""
	action, err = transform.Format(ftm.Default(), cfg, entity)
	require.NoError(t, err)
	assert.Equal(t, "d1", action.Routing)
}

func TestFormatDroppedProperties(t *testing.T) {
	t.Parallel()

	cfg := settings.New()
	cfg.IndexNamespaceIDs = false

	entity := &ftm.Entity{
		ID:      "jane-1",
		Schema:  "Person",
		Dataset: "d1",
		Properties: map[string][]string{
			"name":   {"Jane Smith"},
			"alias":  {},
			"banana": {"not a person property"},
		},
	}

	action, err := transform.Format(ftm.Default(), cfg, entity)
	require.NoError(t, err)
	require.NotNil(t, action)

	doc := decodeSource(t, action)
	assert.JSONEq(t, `{"name": ["Jane Smith"]}`, marshal(t, doc["properties"]))
}

func TestFormatSkipsAbstract(t *testing.T) {
	t.Parallel()

	cfg := settings.New()

	for _, schema := range []string{"Thing", "Asset"} {
		entity := &ftm.Entity{ID: "x", Schema: schema, Dataset: "d1"}

		action, err := transform.Format(ftm.Default(), cfg, entity)
		require.NoError(t, err)
		assert.Nil(t, action)
	}
}

func TestFormatErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		entity *ftm.Entity
		want   error
	}{
		"unknown schema": {
			entity: &ftm.Entity{ID: "x", Schema: "Banana", Dataset: "d1"},
			want:   ftm.ErrUnknownSchema,
		},
		"missing id": {
			entity: &ftm.Entity{Schema: "Person", Dataset: "d1"},
			want:   index.ErrInvalidAction,
		},
		"missing dataset": {
			entity: &ftm.Entity{ID: "x", Schema: "Person"},
			want:   index.ErrInvalidRouting,
		},
		"reserved dataset": {
			entity: &ftm.Entity{ID: "x", Schema: "Person", Dataset: "default"},
			want:   index.ErrInvalidRouting,
		},
	}

	cfg := settings.New()

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := transform.Format(ftm.Default(), cfg, tc.entity)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
