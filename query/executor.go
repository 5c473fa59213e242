package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"openaleph.org/search/es"
	"openaleph.org/search/ftm"
	"openaleph.org/search/index"
	"openaleph.org/search/mapping"
	"openaleph.org/search/parse"
	"openaleph.org/search/settings"
)

const (
	exportScroll    = 5 * time.Minute
	exportBatchSize = 500
)

// Search executes a builder against the cluster and returns the decoded
// response, dehydrated when the request asks for slim hits. A request
// whose schema selection matches no index returns an empty result
// without a round-trip.
func Search(ctx context.Context, client *elasticsearch.Client, cfg *settings.Config, b Builder) (map[string]any, error) {
	indexes := b.Indexes()
	if len(indexes) == 0 {
		return emptyResult(), nil
	}

	p := b.Parser()
	if cfg.SignificantRandomSampler && (len(p.SignificantTerms) > 0 || p.SignificantText != "") {
		count, err := Count(ctx, client, b)
		if err != nil {
			return nil, err
		}
		if counter, ok := b.(interface{ SetSampleCount(int) }); ok {
			counter.SetSampleCount(count)
		}
	}

	body, err := json.Marshal(Body(b))
	if err != nil {
		return nil, fmt.Errorf("encoding search body: %w", err)
	}

	opts := []func(*esapi.SearchRequest){
		client.Search.WithContext(ctx),
		client.Search.WithIndex(indexes...),
		client.Search.WithBody(bytes.NewReader(body)),
	}
	if key := p.RoutingKey(); key != "" {
		opts = append(opts, client.Search.WithRouting(key))
	}

	res, err := client.Search(opts...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	result, err := es.DecodeResponse(res)
	if err != nil {
		return nil, err
	}
	if p.Dehydrate {
		Dehydrate(result)
	}

	return result, nil
}

// Count runs the builder's scored query through the count API.
func Count(ctx context.Context, client *elasticsearch.Client, b Builder) (int, error) {
	indexes := b.Indexes()
	if len(indexes) == 0 {
		return 0, nil
	}

	body, err := json.Marshal(map[string]any{"query": b.InnerQuery()})
	if err != nil {
		return 0, fmt.Errorf("encoding count body: %w", err)
	}

	res, err := client.Count(
		client.Count.WithContext(ctx),
		client.Count.WithIndex(indexes...),
		client.Count.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	result, err := es.DecodeResponse(res)
	if err != nil {
		return 0, err
	}

	count, _ := result["count"].(float64)

	return int(count), nil
}

// Dehydrate strips the property map out of every hit's source, leaving
// the lightweight feature fields for result lists.
func Dehydrate(result map[string]any) {
	for _, item := range hitList(result) {
		hit, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if source, ok := hit["_source"].(map[string]any); ok {
			delete(source, mapping.FieldProperties)
		}
	}
}

// Analyze runs text through the analyzer of a field on the write index
// of a schema's bucket, returning the distinct tokens in emission
// order. It answers what the cluster actually indexes for a value.
func Analyze(ctx context.Context, client *elasticsearch.Client, cfg *settings.Config, model *ftm.Model, schemaName, field, text string) ([]string, error) {
	s, err := model.Get(schemaName)
	if err != nil {
		return nil, err
	}
	name, err := index.SchemaIndex(cfg, s, cfg.IndexWrite)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{"field": field, "text": text})
	if err != nil {
		return nil, fmt.Errorf("encoding analyze body: %w", err)
	}

	res, err := client.Indices.Analyze(
		client.Indices.Analyze.WithContext(ctx),
		client.Indices.Analyze.WithIndex(name),
		client.Indices.Analyze.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	result, err := es.DecodeResponse(res)
	if err != nil {
		return nil, err
	}

	raw, _ := result["tokens"].([]any)
	seen := make(map[string]bool, len(raw))
	tokens := make([]string, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		token, _ := entry["token"].(string)
		if token == "" || seen[token] {
			continue
		}
		seen[token] = true
		tokens = append(tokens, token)
	}

	return tokens, nil
}

// Export streams every indexed document matching a parsed request as
// replayable bulk actions, or the whole cluster state with a nil
// parser. The callback owns each action; returning an error stops the
// scroll.
func Export(ctx context.Context, client *elasticsearch.Client, cfg *settings.Config, model *ftm.Model, p *parse.Parser, fn func(*index.Action) error) error {
	query := MatchAllQuery()
	indexes := []string{index.Pattern(cfg)}
	if p != nil {
		eq, err := NewEntitiesQuery(cfg, model, p)
		if err != nil {
			return err
		}
		query = eq.InnerQuery()
		if idx := eq.Indexes(); len(idx) > 0 {
			indexes = idx
		}
	}

	body, err := json.Marshal(map[string]any{
		"query": query,
		"sort":  []any{"_doc"},
	})
	if err != nil {
		return fmt.Errorf("encoding export body: %w", err)
	}

	result, err := scrollPage(client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(indexes...),
		client.Search.WithBody(bytes.NewReader(body)),
		client.Search.WithScroll(exportScroll),
		client.Search.WithSize(exportBatchSize),
	))
	if err != nil {
		return err
	}

	var scrollID string
	defer func() { clearScroll(client, scrollID) }()

	for {
		scrollID, _ = result["_scroll_id"].(string)
		hits := hitList(result)
		if len(hits) == 0 {
			return nil
		}

		for _, item := range hits {
			hit, ok := item.(map[string]any)
			if !ok {
				continue
			}
			action, err := hitAction(hit)
			if err != nil {
				return err
			}
			if err := fn(action); err != nil {
				return err
			}
		}

		if scrollID == "" {
			return nil
		}
		result, err = scrollPage(client.Scroll(
			client.Scroll.WithContext(ctx),
			client.Scroll.WithScrollID(scrollID),
			client.Scroll.WithScroll(exportScroll),
		))
		if err != nil {
			return err
		}
	}
}

// hitAction converts one search hit back into the bulk action that
// would recreate it.
func hitAction(hit map[string]any) (*index.Action, error) {
	source, err := json.Marshal(hit["_source"])
	if err != nil {
		return nil, fmt.Errorf("encoding hit source: %w", err)
	}

	id, _ := hit["_id"].(string)
	idx, _ := hit["_index"].(string)
	routing, _ := hit["_routing"].(string)

	return &index.Action{ID: id, Index: idx, Routing: routing, Source: source}, nil
}

func scrollPage(res *esapi.Response, err error) (map[string]any, error) {
	if err != nil {
		return nil, fmt.Errorf("scroll: %w", err)
	}

	return es.DecodeResponse(res)
}

func clearScroll(client *elasticsearch.Client, scrollID string) {
	if scrollID == "" {
		return
	}

	res, err := client.ClearScroll(client.ClearScroll.WithScrollID(scrollID))
	if err != nil {
		return
	}
	es.CloseBody(res)
}

func hitList(result map[string]any) []any {
	hits, _ := result["hits"].(map[string]any)
	list, _ := hits["hits"].([]any)

	return list
}

func emptyResult() map[string]any {
	return map[string]any{
		"hits": map[string]any{
			"total": map[string]any{"value": 0, "relation": "eq"},
			"hits":  []any{},
		},
	}
}
