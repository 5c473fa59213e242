package index

import (
	"context"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"

	"openaleph.org/search/settings"
)

// SetRefreshInterval updates the refresh interval of the given indices.
// "-1" turns refresh off entirely for the duration of a large load.
func SetRefreshInterval(ctx context.Context, client *elasticsearch.Client, interval string, indexes ...string) error {
	body := map[string]any{
		"index": map[string]any{"refresh_interval": interval},
	}

	return putSettings(ctx, client, body, indexes...)
}

// BulkMode relaxes every entity index for a large load: refresh slowed
// to the given interval (or disabled with "-1"), the translog flushed
// asynchronously once a minute, replication off. The returned restore
// function reinstates the configured values; run it even when the load
// fails, or the indices stay in the relaxed state.
func BulkMode(ctx context.Context, client *elasticsearch.Client, cfg *settings.Config, interval string) (func(context.Context) error, error) {
	relaxed := map[string]any{
		"index": map[string]any{
			"refresh_interval":       interval,
			"translog.durability":    "async",
			"translog.sync_interval": "60s",
			"number_of_replicas":     "0",
		},
	}

	if err := putSettings(ctx, client, relaxed, Pattern(cfg)); err != nil {
		return nil, err
	}

	restore := func(ctx context.Context) error {
		configured := map[string]any{
			"index": map[string]any{
				"refresh_interval":    cfg.IndexRefreshInterval,
				"translog.durability": "request",
				"number_of_replicas":  strconv.Itoa(cfg.IndexReplicas),
			},
		}

		return putSettings(ctx, client, configured, Pattern(cfg))
	}

	return restore, nil
}
