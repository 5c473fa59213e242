package names

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"openaleph.org/search/ftm"
)

// Preprocess normalizes a raw name for feature generation: Unicode NFC,
// lowercased, whitespace collapsed.
func Preprocess(name string) string {
	name = norm.NFC.String(name)
	name = strings.ToLower(name)

	return strings.Join(strings.Fields(name), " ")
}

// orgReplacements canonicalizes clipped organization-type words so that
// "Acme Corp" and "Acme Corporation" produce the same features.
var orgReplacements = map[string]string{
	"assn":  "association",
	"assoc": "association",
	"bros":  "brothers",
	"cie":   "compagnie",
	"co":    "company",
	"corp":  "corporation",
	"grp":   "group",
	"inc":   "incorporated",
	"intl":  "international",
	"ltd":   "limited",
	"mfg":   "manufacturing",
	"svcs":  "services",
}

// honorifics are leading personal titles dropped during tokenization.
var honorifics = map[string]bool{
	"dame": true,
	"dr":   true,
	"frau": true,
	"herr": true,
	"lady": true,
	"lord": true,
	"miss": true,
	"mlle": true,
	"mme":  true,
	"mr":   true,
	"mrs":  true,
	"ms":   true,
	"mx":   true,
	"prof": true,
	"sir":  true,
}

// Tokenize splits a name into tokens at Unicode word boundaries after
// schema-aware cleanup. A nil schema applies no cleanup.
func Tokenize(schema *ftm.Schema, name string) []string {
	tokens := splitWords(Preprocess(name))

	if schema == nil {
		return tokens
	}

	switch {
	case schema.IsA("Organization"):
		for i, token := range tokens {
			if canonical, ok := orgReplacements[token]; ok {
				tokens[i] = canonical
			}
		}
	case schema.IsA("Person"):
		for len(tokens) > 0 && honorifics[tokens[0]] {
			tokens = tokens[1:]
		}
	}

	return tokens
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// foldReplacer transliterates latin characters that survive mark
// stripping.
var foldReplacer = strings.NewReplacer(
	"ß", "ss",
	"æ", "ae",
	"ø", "o",
	"œ", "oe",
	"ð", "d",
	"þ", "th",
	"ł", "l",
	"đ", "d",
	"ħ", "h",
	"ı", "i",
)

// Fold strips diacritics and transliterates latin specials to ASCII.
// Characters from non-latin scripts pass through unchanged.
func Fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}

	return foldReplacer.Replace(folded)
}

func sortedSet(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}

	slices.Sort(out)

	return out
}
