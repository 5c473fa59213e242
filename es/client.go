package es

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"openaleph.org/search/settings"
)

const (
	retryBackoffBase = 250 * time.Millisecond
	retryBackoffMax  = 8 * time.Second
)

// RetryStatuses are the response codes the client retries before giving
// up: gateway errors and throttling.
var RetryStatuses = []int{502, 503, 504, 429}

// New creates an Elasticsearch client from configuration. Transient
// failures (gateway errors, throttling, and optionally timeouts) are
// retried with exponential backoff up to the configured attempt count.
func New(cfg *settings.Config) (*elasticsearch.Client, error) {
	esCfg := elasticsearch.Config{
		Addresses:               cfg.Addresses(),
		Username:                cfg.Username,
		Password:                cfg.Password,
		RetryOnStatus:           RetryStatuses,
		MaxRetries:              cfg.MaxRetries,
		RetryBackoff:            Backoff,
		EnableCompatibilityMode: true,
	}

	if cfg.RetryOnTimeout {
		esCfg.RetryOnError = func(_ *http.Request, err error) bool {
			return os.IsTimeout(err)
		}
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}

	return client, nil
}

// Backoff returns the wait before retry attempt n (1-based), doubling each
// attempt up to a fixed ceiling.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := retryBackoffBase << uint(attempt-1)
	if d > retryBackoffMax || d <= 0 {
		return retryBackoffMax
	}

	return d
}

// Ping verifies connectivity by fetching cluster info, logging the masked
// node addresses on success.
func Ping(ctx context.Context, client *elasticsearch.Client, cfg *settings.Config) error {
	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("pinging cluster: %w", err)
	}

	defer CloseBody(res)

	if err := CheckResponse(res); err != nil {
		return fmt.Errorf("pinging cluster: %w", err)
	}

	masked := make([]string, 0, len(cfg.Addresses()))
	for _, addr := range cfg.Addresses() {
		masked = append(masked, MaskAddr(addr))
	}

	slog.InfoContext(ctx, "connected to elasticsearch", slog.Any("nodes", masked))

	return nil
}

// MaskAddr hides credentials embedded in a node address so it can be
// logged. Unparseable addresses are returned unchanged.
func MaskAddr(addr string) string {
	u, err := url.Parse(addr)
	if err != nil {
		return addr
	}

	return u.Redacted()
}
