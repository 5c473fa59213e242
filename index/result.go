package index

import "slices"

// UnpackResult flattens a search hit into its source document: the hit
// id and index move to the top level, a non-zero score is carried over
// unless the document brought its own, highlight fragments collapse into
// one list, and the sort key surfaces as "_sort". Returns nil for a
// get-by-id miss.
func UnpackResult(hit map[string]any) map[string]any {
	if hit == nil {
		return nil
	}

	if found, ok := hit["found"].(bool); ok && !found {
		return nil
	}

	data, _ := hit["_source"].(map[string]any)
	if data == nil {
		data = make(map[string]any)
	}

	data["id"] = hit["_id"]
	data["_index"] = hit["_index"]

	if score, ok := hit["_score"].(float64); ok && score != 0 {
		if _, present := data["score"]; !present {
			data["score"] = score
		}
	}

	if highlight, ok := hit["highlight"].(map[string]any); ok {
		fields := make([]string, 0, len(highlight))
		for field := range highlight {
			fields = append(fields, field)
		}

		slices.Sort(fields)

		fragments := make([]string, 0)
		for _, field := range fields {
			values, _ := highlight[field].([]any)
			for _, value := range values {
				if fragment, ok := value.(string); ok {
					fragments = append(fragments, fragment)
				}
			}
		}

		data["highlight"] = fragments
	}

	sort, _ := hit["sort"].([]any)
	if sort == nil {
		sort = make([]any, 0)
	}

	data["_sort"] = sort

	return data
}
