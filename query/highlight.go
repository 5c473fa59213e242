package query

import (
	"openaleph.org/search/ftm"
	"openaleph.org/search/mapping"
)

// Highlight returns the highlight block when the request asks for one:
// snippets from the extracted content, echo-free fragments for the name
// fields, and a minimal fallback for the remaining text.
func (b *base) Highlight() map[string]any {
	if !b.parser.Highlight {
		return nil
	}

	query := b.highlightQuery()

	return map[string]any{"fields": map[string]any{
		mapping.FieldContent: b.contentHighlighter(query),
		mapping.FieldName:    nameHighlighter(),
		mapping.FieldNames:   namesHighlighter(),
		mapping.FieldText:    plainHighlighter(query),
	}}
}

// contentHighlighter picks the fast vector highlighter when the content
// field carries term vectors, falling back to the unified highlighter
// with sentence boundaries.
func (b *base) contentHighlighter(query map[string]any) map[string]any {
	count := b.parser.HighlightCount
	if count == 0 {
		count = b.cfg.HighlighterNumberOfFragments
	}
	maxOffset := b.parser.MaxHighlightAnalyzedOffset
	if maxOffset == 0 {
		maxOffset = b.cfg.HighlighterMaxAnalyzedOffset
	}

	var config map[string]any
	if b.cfg.HighlighterFVHEnabled && b.cfg.ContentTermVectors {
		config = map[string]any{
			"type":                "fvh",
			"fragment_size":       b.cfg.HighlighterFragmentSize,
			"number_of_fragments": count,
			"fragmenter":          "span",
			"order":               "score",
			"phrase_limit":        b.cfg.HighlighterPhraseLimit,
			"boundary_scanner":    "chars",
			"boundary_chars":      ".\t\n ,!?;_-=(){}[]<>|\"",
			"boundary_max_scan":   b.cfg.HighlighterBoundaryMaxScan,
			"no_match_size":       b.cfg.HighlighterNoMatchSize,
			"max_analyzed_offset": maxOffset,
			"pre_tags":            []string{"<em>"},
			"post_tags":           []string{"</em>"},
		}
	} else {
		config = map[string]any{
			"type":                "unified",
			"fragment_size":       b.cfg.HighlighterFragmentSize,
			"number_of_fragments": count,
			"order":               "score",
			"boundary_scanner":    "sentence",
			"no_match_size":       b.cfg.HighlighterNoMatchSize,
			"max_analyzed_offset": maxOffset,
			"pre_tags":            []string{"<em>"},
			"post_tags":           []string{"</em>"},
		}
	}
	if query != nil {
		config["highlight_query"] = query
	}

	return config
}

// nameHighlighter fragments the analyzed name without emphasis tags;
// result lists render the matched name themselves.
func nameHighlighter() map[string]any {
	return map[string]any{
		"type":                "unified",
		"fragment_size":       200,
		"number_of_fragments": 3,
		"fragmenter":          "simple",
		"pre_tags":            []string{""},
		"post_tags":           []string{""},
	}
}

// namesHighlighter surfaces which of the many name values matched. The
// plain highlighter re-analyzes the field, so the offset cap guards
// entities with absurd name counts.
func namesHighlighter() map[string]any {
	return map[string]any{
		"type":                "plain",
		"number_of_fragments": 3,
		"max_analyzed_offset": 999999,
		"pre_tags":            []string{""},
		"post_tags":           []string{""},
	}
}

func plainHighlighter(query map[string]any) map[string]any {
	config := map[string]any{
		"type":                "plain",
		"fragment_size":       150,
		"number_of_fragments": 1,
	}
	if query != nil {
		config["highlight_query"] = query
	}

	return config
}

// highlightQuery rebuilds a scoring query for the highlighter: the
// query string alone, or combined with the values filtered on name and
// group fields so the terms a result was filtered by light up too.
func (b *base) highlightQuery() map[string]any {
	groups := ftm.Groups()

	var should []any
	for _, field := range b.parser.Filters.Fields() {
		if _, isGroup := groups[field]; !isGroup && field != mapping.FieldName {
			continue
		}
		for _, value := range b.parser.Filters.Get(field) {
			should = append(should, map[string]any{"multi_match": map[string]any{
				"query":  value,
				"fields": []string{mapping.FieldContent, mapping.FieldText, mapping.FieldName},
			}})
		}
	}

	var text map[string]any
	if b.parser.Text != "" {
		text = queryString(b.parser.Text)
	}

	switch {
	case text == nil && len(should) == 0:
		return nil
	case len(should) == 0:
		return text
	default:
		if text != nil {
			should = append([]any{text}, should...)
		}

		return map[string]any{"bool": map[string]any{"should": should}}
	}
}
