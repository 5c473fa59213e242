package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"slices"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"openaleph.org/search/es"
	"openaleph.org/search/ftm"
	"openaleph.org/search/mapping"
	"openaleph.org/search/settings"
)

// Index management runs under a generous deadline; a close/open cycle on
// a large index can take a while.
const adminTimeout = 700 * time.Minute

// immutableMappingKeys are field attributes that cannot change on a live
// index without a reindex.
var immutableMappingKeys = []string{"type", "analyzer", "normalizer", "index", "store"}

// Configure creates or updates the write-side index of every bucket,
// bringing settings and mappings in line with the current model and
// configuration.
func Configure(ctx context.Context, client *elasticsearch.Client, m *ftm.Model, cfg *settings.Config) error {
	for _, bucket := range mapping.Buckets {
		name := BucketIndex(cfg, bucket, cfg.IndexWrite)

		err := Ensure(ctx, client, name, mapping.ForBucket(m, bucket, cfg), mapping.Settings(bucket, cfg))
		if err != nil {
			return err
		}
	}

	return nil
}

// Ensure creates the named index, or updates it in place when it already
// exists. Changed settings force a close/open cycle; the mapping update
// keeps immutable attributes at their live values so it never conflicts
// with existing fields.
func Ensure(ctx context.Context, client *elasticsearch.Client, name string, mappings, indexSettings map[string]any) error {
	exists, err := indexExists(ctx, client, name)
	if err != nil {
		return err
	}

	if !exists {
		return createIndex(ctx, client, name, mappings, indexSettings)
	}

	slog.InfoContext(ctx, "configuring index", slog.String("index", name))

	current, err := getIndex(ctx, client, name)
	if err != nil {
		return err
	}

	// The shard count is fixed at creation time.
	if idx, ok := indexSettings["index"].(map[string]any); ok {
		delete(idx, "number_of_shards")
	}

	currentSettings, _ := current["settings"].(map[string]any)
	if SettingsChanged(indexSettings, currentSettings) {
		if err := closeIndex(ctx, client, name); err != nil {
			return err
		}

		if err := putSettings(ctx, client, indexSettings, name); err != nil {
			return err
		}
	}

	currentMappings, _ := current["mappings"].(map[string]any)
	merged, _ := MergeMapping(mappings, currentMappings).(map[string]any)

	if err := putMapping(ctx, client, name, merged); err != nil {
		return err
	}

	return openIndex(ctx, client, name)
}

// MergeMapping overlays a pending mapping onto the live one: immutable
// attributes keep their live values, and live keys the pending mapping
// does not mention are preserved. The pending value is modified in place
// and returned.
func MergeMapping(pending, existing any) any {
	pendingMap, ok := pending.(map[string]any)
	existingMap, okExisting := existing.(map[string]any)

	if !ok || !okExisting {
		return pending
	}

	for key, value := range pendingMap {
		old, present := existingMap[key]
		value = MergeMapping(value, old)

		if present && old != nil && slices.Contains(immutableMappingKeys, key) {
			value = old
		}

		pendingMap[key] = value
	}

	for key, value := range existingMap {
		if _, present := pendingMap[key]; !present {
			pendingMap[key] = value
		}
	}

	return pendingMap
}

// SettingsChanged reports whether applying updated would change a value
// currently in effect. Keys only the live index carries do not count;
// applying settings requires closing the index, so equality means skip.
func SettingsChanged(updated, existing any) bool {
	updatedMap, ok := updated.(map[string]any)
	existingMap, okExisting := existing.(map[string]any)

	if !ok || !okExisting {
		return !reflect.DeepEqual(updated, existing)
	}

	for key, value := range updatedMap {
		if SettingsChanged(value, existingMap[key]) {
			return true
		}
	}

	return false
}

// Delete drops every entity index across all read versions. There is no
// way back except a full reindex.
func Delete(ctx context.Context, client *elasticsearch.Client, cfg *settings.Config) error {
	names := AllIndexes(cfg)
	slog.WarnContext(ctx, "deleting all entity indices", slog.Any("indices", names))

	res, err := client.Indices.Delete(names,
		client.Indices.Delete.WithContext(ctx),
		client.Indices.Delete.WithIgnoreUnavailable(true),
	)

	return acknowledge(res, err, "deleting indices")
}

// Clear removes every document from the entity indices but keeps their
// configuration in place.
func Clear(ctx context.Context, client *elasticsearch.Client, cfg *settings.Config) error {
	query := map[string]any{"match_all": map[string]any{}}

	_, err := DeleteByQuery(ctx, client, cfg, AllIndexes(cfg), query, true)
	if err != nil {
		return fmt.Errorf("clearing indices: %w", err)
	}

	return nil
}

// DeleteByQuery removes every document matching query from the given
// indices. Version conflicts from concurrent writes are skipped rather
// than retried. When sync is set the call waits for completion and
// refreshes the affected shards.
func DeleteByQuery(ctx context.Context, client *elasticsearch.Client, cfg *settings.Config, indexes []string, query map[string]any, sync bool) (map[string]any, error) {
	body, err := json.Marshal(map[string]any{"query": query})
	if err != nil {
		return nil, fmt.Errorf("encoding delete query: %w", err)
	}

	res, err := client.DeleteByQuery(indexes, bytes.NewReader(body),
		client.DeleteByQuery.WithContext(ctx),
		client.DeleteByQuery.WithConflicts("proceed"),
		client.DeleteByQuery.WithSlices("auto"),
		client.DeleteByQuery.WithWaitForCompletion(sync),
		client.DeleteByQuery.WithRefresh(RefreshSync(cfg, sync)),
		client.DeleteByQuery.WithScrollSize(cfg.IndexDeleteByQueryBatch),
	)
	if err != nil {
		return nil, fmt.Errorf("delete by query: %w", err)
	}

	out, err := es.DecodeResponse(res)
	if err != nil {
		return nil, fmt.Errorf("delete by query: %w", err)
	}

	return out, nil
}

// Refresh makes all pending writes to the given indices visible to
// search.
func Refresh(ctx context.Context, client *elasticsearch.Client, indexes ...string) error {
	res, err := client.Indices.Refresh(
		client.Indices.Refresh.WithContext(ctx),
		client.Indices.Refresh.WithIndex(indexes...),
		client.Indices.Refresh.WithIgnoreUnavailable(true),
	)

	return acknowledge(res, err, "refreshing indices")
}

func indexExists(ctx context.Context, client *elasticsearch.Client, name string) (bool, error) {
	res, err := client.Indices.Exists([]string{name},
		client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("checking index %s: %w", name, err)
	}

	defer es.CloseBody(res)

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("checking index %s: %w", name, es.CheckResponse(res))
	}
}

func createIndex(ctx context.Context, client *elasticsearch.Client, name string, mappings, indexSettings map[string]any) error {
	slog.InfoContext(ctx, "creating index", slog.String("index", name))

	body, err := json.Marshal(map[string]any{
		"settings": indexSettings,
		"mappings": mappings,
	})
	if err != nil {
		return fmt.Errorf("encoding index body: %w", err)
	}

	res, err := client.Indices.Create(name,
		client.Indices.Create.WithContext(ctx),
		client.Indices.Create.WithBody(bytes.NewReader(body)),
	)

	return acknowledge(res, err, "creating index "+name)
}

// getIndex fetches the live settings and mappings of an index.
func getIndex(ctx context.Context, client *elasticsearch.Client, name string) (map[string]any, error) {
	res, err := client.Indices.Get([]string{name},
		client.Indices.Get.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching index %s: %w", name, err)
	}

	out, err := es.DecodeResponse(res)
	if err != nil {
		return nil, fmt.Errorf("fetching index %s: %w", name, err)
	}

	config, _ := out[name].(map[string]any)

	return config, nil
}

func closeIndex(ctx context.Context, client *elasticsearch.Client, name string) error {
	res, err := client.Indices.Close([]string{name},
		client.Indices.Close.WithContext(ctx),
		client.Indices.Close.WithIgnoreUnavailable(true),
		client.Indices.Close.WithTimeout(adminTimeout),
		client.Indices.Close.WithMasterTimeout(adminTimeout),
	)

	return acknowledge(res, err, "closing index "+name)
}

func openIndex(ctx context.Context, client *elasticsearch.Client, name string) error {
	res, err := client.Indices.Open([]string{name},
		client.Indices.Open.WithContext(ctx),
		client.Indices.Open.WithTimeout(adminTimeout),
		client.Indices.Open.WithMasterTimeout(adminTimeout),
	)

	return acknowledge(res, err, "opening index "+name)
}

func putSettings(ctx context.Context, client *elasticsearch.Client, indexSettings map[string]any, indexes ...string) error {
	body, err := json.Marshal(indexSettings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	res, err := client.Indices.PutSettings(bytes.NewReader(body),
		client.Indices.PutSettings.WithContext(ctx),
		client.Indices.PutSettings.WithIndex(indexes...),
		client.Indices.PutSettings.WithTimeout(adminTimeout),
		client.Indices.PutSettings.WithMasterTimeout(adminTimeout),
	)

	return acknowledge(res, err, "updating settings")
}

func putMapping(ctx context.Context, client *elasticsearch.Client, name string, mappings map[string]any) error {
	body, err := json.Marshal(mappings)
	if err != nil {
		return fmt.Errorf("encoding mapping: %w", err)
	}

	res, err := client.Indices.PutMapping([]string{name}, bytes.NewReader(body),
		client.Indices.PutMapping.WithContext(ctx),
		client.Indices.PutMapping.WithTimeout(adminTimeout),
		client.Indices.PutMapping.WithMasterTimeout(adminTimeout),
	)

	return acknowledge(res, err, "updating mapping of "+name)
}

// acknowledge folds the transport error and response status of a
// management call into one error.
func acknowledge(res *esapi.Response, err error, what string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}

	defer es.CloseBody(res)

	if err := es.CheckResponse(res); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}

	return nil
}
