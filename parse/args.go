package parse

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Pair is one key=value parameter of a request.
type Pair struct {
	Key   string
	Value string
}

// Args is the ordered parameter list of a request. Unlike [url.Values]
// it preserves the order pairs arrived in, across keys.
type Args []Pair

// ParseQuery parses a URL-encoded query string into an ordered
// parameter list. It follows [url.ParseQuery]: pairs split on "&", a
// key without "=" gets an empty value, and blank values are kept.
// Escape errors and semicolon separators fail the parse.
func ParseQuery(query string) (Args, error) {
	var args Args
	for query != "" {
		var component string
		component, query, _ = strings.Cut(query, "&")
		if component == "" {
			continue
		}
		if strings.Contains(component, ";") {
			return nil, fmt.Errorf("%w: invalid semicolon separator in query", ErrParam)
		}

		rawKey, rawValue, _ := strings.Cut(component, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParam, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParam, err)
		}

		args = append(args, Pair{Key: key, Value: value})
	}

	return args, nil
}

// FromValues flattens [url.Values] into an ordered parameter list. The
// map carries no order across keys, so keys are sorted; order within
// one key is preserved.
func FromValues(values url.Values) Args {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var args Args
	for _, key := range keys {
		for _, value := range values[key] {
			args = append(args, Pair{Key: key, Value: value})
		}
	}

	return args
}

// Get returns every value of key, in order.
func (a Args) Get(key string) []string {
	var values []string
	for _, pair := range a {
		if pair.Key == key {
			values = append(values, pair.Value)
		}
	}

	return values
}

// First returns the first value of key, or "" when the key is absent.
func (a Args) First(key string) string {
	for _, pair := range a {
		if pair.Key == key {
			return pair.Value
		}
	}

	return ""
}

// Has reports whether key appears in the list, with any value.
func (a Args) Has(key string) bool {
	return slices.ContainsFunc(a, func(pair Pair) bool {
		return pair.Key == key
	})
}

// PrefixedFields collects every "<prefix><field>" key into a
// field-to-values multimap, keeping insertion order.
func (a Args) PrefixedFields(prefix string) *FieldValues {
	fields := NewFieldValues()
	for _, pair := range a {
		if field, ok := strings.CutPrefix(pair.Key, prefix); ok && field != "" {
			fields.Add(field, pair.Value)
		}
	}

	return fields
}

// Encode serializes the list back into URL-encoded form, preserving
// pair order.
func (a Args) Encode() string {
	var b strings.Builder
	for i, pair := range a {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(pair.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(pair.Value))
	}

	return b.String()
}
