package names_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openaleph.org/search/ftm"
	"openaleph.org/search/names"
)

func schema(t *testing.T, name string) *ftm.Schema {
	t.Helper()

	s, err := ftm.Default().Get(name)
	require.NoError(t, err)

	return s
}

func TestPreprocess(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		in   string
		want string
	}{
		"whitespace": {
			in:   "  Jane \t DOE ",
			want: "jane doe",
		},
		"case": {
			in:   "ACME Corporation",
			want: "acme corporation",
		},
		"diacritics survive": {
			in:   "Müller",
			want: "müller",
		},
		"cyrillic": {
			in:   "Владимир  ПУТИН",
			want: "владимир путин",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, names.Preprocess(tc.in))
		})
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		schema string
		in     string
		want   []string
	}{
		"plain": {
			schema: "LegalEntity",
			in:     "Jane Doe",
			want:   []string{"jane", "doe"},
		},
		"punctuation": {
			schema: "LegalEntity",
			in:     "Siemens-AG (München)",
			want:   []string{"siemens", "ag", "münchen"},
		},
		"person honorific": {
			schema: "Person",
			in:     "Dr. Jane Doe",
			want:   []string{"jane", "doe"},
		},
		"person stacked honorifics": {
			schema: "Person",
			in:     "Prof. Dr. Hans Gruber",
			want:   []string{"hans", "gruber"},
		},
		"org type words": {
			schema: "Company",
			in:     "ACME Corp.",
			want:   []string{"acme", "corporation"},
		},
		"org ltd": {
			schema: "Company",
			in:     "Banana Trading Ltd",
			want:   []string{"banana", "trading", "limited"},
		},
		"no org rewrite for people": {
			schema: "Person",
			in:     "Laura Corp",
			want:   []string{"laura", "corp"},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := names.Tokenize(schema(t, tc.schema), tc.in)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFold(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		in   string
		want string
	}{
		"umlaut":     {in: "müller", want: "muller"},
		"eszett":     {in: "straße", want: "strasse"},
		"accents":    {in: "séville", want: "seville"},
		"slash o":    {in: "søren", want: "soren"},
		"polish l":   {in: "wałęsa", want: "walesa"},
		"ascii":      {in: "doe", want: "doe"},
		"cyrillic":   {in: "владимир", want: "владимир"},
		"mixed text": {in: "josé maría", want: "jose maria"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, names.Fold(tc.in))
		})
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	person := schema(t, "Person")

	// Token order and titles must not affect the key.
	keys := names.Keys(person, []string{"Jane Doe", "Doe, Jane", "Dr. Jane Doe"})
	assert.Equal(t, []string{"doejane"}, keys)

	// Folding joins spellings across diacritics.
	keys = names.Keys(person, []string{"José María", "Jose Maria"})
	assert.Equal(t, []string{"josemaria"}, keys)

	// Short keys carry no signal.
	assert.Empty(t, names.Keys(person, []string{"Jo Li"}))
}

func TestParts(t *testing.T) {
	t.Parallel()

	person := schema(t, "Person")

	parts := names.Parts(person, []string{"Jane Müller"})
	assert.ElementsMatch(t, []string{"jane", "müller", "muller"}, parts)

	// Single-character tokens are dropped.
	parts = names.Parts(person, []string{"J Doe"})
	assert.Equal(t, []string{"doe"}, parts)
}

func TestLevenshtein(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		a, b string
		want int
	}{
		"empty left":  {a: "", b: "abc", want: 3},
		"empty right": {a: "abc", b: "", want: 3},
		"equal":       {a: "putin", b: "putin", want: 0},
		"classic":     {a: "kitten", b: "sitting", want: 3},
		"shift":       {a: "flaw", b: "lawn", want: 2},
		"unicode":     {a: "пётр", b: "петр", want: 1},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, names.Levenshtein(tc.a, tc.b))
		})
	}
}

func TestPick(t *testing.T) {
	t.Parallel()

	// Centroid first (ties resolve to input order), then the most
	// distant candidate.
	picked := names.Pick([]string{"aaaa", "aaab", "zzzz"}, 2)
	assert.Equal(t, []string{"aaaa", "zzzz"}, picked)

	// Small inputs come back whole.
	picked = names.Pick([]string{"a", "b"}, 5)
	assert.Equal(t, []string{"a", "b"}, picked)

	// Zero limit falls back to the default.
	input := []string{"anna", "anne", "annie", "bob", "robert", "roberto", "rob"}
	assert.Len(t, names.Pick(input, 0), names.PickLimit)
}
