package mapping

// Analyzer, normalizer, and similarity names referenced across mappings
// and queries.
const (
	AnalyzerDefault   = "icu-default"
	AnalyzerStripHTML = "strip-html"

	NormalizerDefault = "icu-default"
	NormalizerNameKW  = "name-kw-normalizer"
	NormalizerKW      = "kw-normalizer"

	SimilarityWeakLengthNorm = "weak_length_norm"
)

// Analysis returns the shared analysis block: the ICU analyzer for text
// fields, an HTML-stripping fallback analyzer, and the keyword
// normalizers used on name-ish fields.
func Analysis() map[string]any {
	return map[string]any{
		"char_filter": map[string]any{
			"remove_punctuation": map[string]any{
				"type":        "pattern_replace",
				"pattern":     `[^\p{L}\p{N}]`,
				"replacement": " ",
			},
			"squash_spaces": map[string]any{
				"type":        "pattern_replace",
				"pattern":     `\s+`,
				"replacement": " ",
			},
			"remove_html_tags": map[string]any{
				"type":        "pattern_replace",
				"pattern":     `<[^>]*>`,
				"replacement": " ",
			},
		},
		"analyzer": map[string]any{
			AnalyzerDefault: map[string]any{
				"type":        "custom",
				"tokenizer":   "icu_tokenizer",
				"char_filter": []string{"html_strip"},
				"filter":      []string{"icu_folding", "icu_normalizer"},
			},
			AnalyzerStripHTML: map[string]any{
				"type":        "custom",
				"tokenizer":   "standard",
				"char_filter": []string{"html_strip"},
				"filter":      []string{"lowercase", "asciifolding", "trim"},
			},
		},
		"normalizer": map[string]any{
			NormalizerDefault: map[string]any{
				"type":   "custom",
				"filter": []string{"icu_folding"},
			},
			NormalizerNameKW: map[string]any{
				"type":        "custom",
				"char_filter": []string{"remove_punctuation", "squash_spaces"},
				"filter":      []string{"lowercase", "asciifolding", "trim"},
			},
			NormalizerKW: map[string]any{
				"type":        "custom",
				"char_filter": []string{"remove_html_tags", "squash_spaces"},
				"filter":      []string{"trim"},
			},
		},
	}
}
