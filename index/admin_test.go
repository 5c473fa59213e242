package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openaleph.org/search/index"
)

func TestMergeMapping(t *testing.T) {
	t.Parallel()

	pending := map[string]any{
		"properties": map[string]any{
			"name": map[string]any{
				"type":     "text",
				"analyzer": "icu-default",
				"copy_to":  []any{"text"},
			},
			"added": map[string]any{"type": "keyword"},
		},
	}

	existing := map[string]any{
		"properties": map[string]any{
			"name": map[string]any{
				"type":     "keyword",
				"analyzer": "legacy",
				"fields":   map[string]any{"kw": map[string]any{"type": "keyword"}},
			},
			"legacy": map[string]any{"type": "long"},
		},
	}

	merged, ok := index.MergeMapping(pending, existing).(map[string]any)
	require.True(t, ok)

	props, ok := merged["properties"].(map[string]any)
	require.True(t, ok)

	name, ok := props["name"].(map[string]any)
	require.True(t, ok)

	// Live immutable attributes win; mutable ones update; live extras stay.
	assert.Equal(t, "keyword", name["type"])
	assert.Equal(t, "legacy", name["analyzer"])
	assert.Equal(t, []any{"text"}, name["copy_to"])
	assert.Contains(t, name, "fields")

	// Fields only one side knows about survive on both sides.
	assert.Contains(t, props, "added")
	assert.Contains(t, props, "legacy")
}

func TestMergeMappingFreshIndex(t *testing.T) {
	t.Parallel()

	pending := map[string]any{
		"properties": map[string]any{"name": map[string]any{"type": "text"}},
	}

	merged := index.MergeMapping(pending, nil)
	assert.Equal(t, pending, merged)
}

func TestSettingsChanged(t *testing.T) {
	t.Parallel()

	live := map[string]any{
		"index": map[string]any{
			"number_of_replicas": "0",
			"refresh_interval":   "1s",
			"uuid":               "aFcZ3", // cluster-assigned, never submitted
		},
	}

	tcs := map[string]struct {
		updated map[string]any
		want    bool
	}{
		"identical subset": {
			updated: map[string]any{
				"index": map[string]any{"refresh_interval": "1s"},
			},
			want: false,
		},
		"changed value": {
			updated: map[string]any{
				"index": map[string]any{"refresh_interval": "30s"},
			},
			want: true,
		},
		"new key": {
			updated: map[string]any{
				"index": map[string]any{"translog.durability": "async"},
			},
			want: true,
		},
		"empty update": {
			updated: map[string]any{},
			want:    false,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, index.SettingsChanged(tc.updated, live))
		})
	}
}

func TestSettingsChangedScalars(t *testing.T) {
	t.Parallel()

	assert.False(t, index.SettingsChanged("1s", "1s"))
	assert.True(t, index.SettingsChanged("1s", "2s"))
	assert.True(t, index.SettingsChanged(map[string]any{"a": "b"}, nil))
}
