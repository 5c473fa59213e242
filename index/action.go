package index

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Bulk operation kinds.
const (
	OpIndex  = "index"
	OpDelete = "delete"
)

// Sentinel errors for malformed work items.
var (
	ErrInvalidAction  = errors.New("invalid action")
	ErrInvalidRouting = errors.New("invalid routing key")
)

// Action is one bulk operation against an entity index: a document to
// store under an id, or a deletion when OpType says so. Its JSON form is
// one line of an action stream, the shape emitted by dump and consumed
// by load.
type Action struct {
	ID      string          `json:"_id"`
	Index   string          `json:"_index"`
	Routing string          `json:"_routing,omitempty"`
	OpType  string          `json:"_op_type,omitempty"`
	Source  json.RawMessage `json:"_source,omitempty"`
}

// Op returns the operation kind, defaulting to indexing.
func (a *Action) Op() string {
	if a.OpType == "" {
		return OpIndex
	}

	return a.OpType
}

// Validate checks the action can be submitted.
func (a *Action) Validate() error {
	switch {
	case a.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidAction)
	case a.Index == "":
		return fmt.Errorf("%w: missing index", ErrInvalidAction)
	case a.Op() != OpIndex && a.Op() != OpDelete:
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidAction, a.OpType)
	case a.Op() == OpIndex && len(a.Source) == 0:
		return fmt.Errorf("%w: missing source", ErrInvalidAction)
	}

	return nil
}

// bulkMeta is the header line preceding each operation in a _bulk body.
type bulkMeta struct {
	Index   string `json:"_index"`
	ID      string `json:"_id"`
	Routing string `json:"routing,omitempty"`
}

// AppendBulk appends the action's wire form to a _bulk body: the header
// line, then the document line for index operations.
func (a *Action) AppendBulk(buf []byte) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return buf, err
	}

	meta := bulkMeta{Index: a.Index, ID: a.ID, Routing: a.Routing}

	header, err := json.Marshal(map[string]bulkMeta{a.Op(): meta})
	if err != nil {
		return buf, fmt.Errorf("encoding bulk header: %w", err)
	}

	buf = append(buf, header...)
	buf = append(buf, '\n')

	if a.Op() == OpDelete {
		return buf, nil
	}

	buf = append(buf, a.Source...)
	buf = append(buf, '\n')

	return buf, nil
}

// RoutingKey validates a dataset for use as a shard routing key. Every
// document of a dataset routes to the same shards, keeping per-dataset
// queries local.
func RoutingKey(dataset string) (string, error) {
	if dataset == "" || dataset == "default" {
		return "", fmt.Errorf("%w: %q", ErrInvalidRouting, dataset)
	}

	return dataset, nil
}
