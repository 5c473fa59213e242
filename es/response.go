package es

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ErrCluster is the sentinel matched by every [ClusterError].
var ErrCluster = errors.New("cluster error")

// ClusterError is a non-retryable error response from the cluster,
// carrying the status code and the raw body for diagnosis.
type ClusterError struct {
	Body       string
	StatusCode int
}

func (e *ClusterError) Error() string {
	return fmt.Sprintf("cluster error: status %d: %s", e.StatusCode, e.Body)
}

// Is reports whether target is [ErrCluster], so callers can match any
// cluster-reported failure with [errors.Is].
func (e *ClusterError) Is(target error) bool {
	return target == ErrCluster
}

// CheckResponse converts an error response into a [*ClusterError],
// consuming the body. It returns nil for successful responses without
// touching the body.
func CheckResponse(res *esapi.Response) error {
	if res == nil {
		return fmt.Errorf("%w: no response", ErrCluster)
	}

	if !res.IsError() {
		return nil
	}

	var body string
	if res.Body != nil {
		raw, err := io.ReadAll(res.Body)
		if err == nil {
			body = string(raw)
		}
	}

	return &ClusterError{StatusCode: res.StatusCode, Body: body}
}

// DecodeResponse checks the response status and decodes the JSON body into
// a generic map. The body is closed in all cases.
func DecodeResponse(res *esapi.Response) (map[string]any, error) {
	defer CloseBody(res)

	if err := CheckResponse(res); err != nil {
		return nil, err
	}

	var out map[string]any

	err := json.NewDecoder(res.Body).Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("decoding response body: %w", err)
	}

	return out, nil
}

// CloseBody drains and closes a response body so the underlying
// connection can be reused.
func CloseBody(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
