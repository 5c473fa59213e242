package names_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"openaleph.org/search/names"
)

func TestDoubleMetaphone(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		in   string
		want string
	}{
		"smith":       {in: "smith", want: "SM0"},
		"smythe":      {in: "smythe", want: "SM0"},
		"catherine":   {in: "catherine", want: "K0RN"},
		"katherine":   {in: "katherine", want: "K0RN"},
		"vladimir":    {in: "vladimir", want: "FLTMR"},
		"alexander":   {in: "alexander", want: "ALKSNTR"},
		"mohammed":    {in: "mohammed", want: "MHMT"},
		"muhammad":    {in: "muhammad", want: "MHMT"},
		"sergei":      {in: "sergei", want: "SRJ"},
		"sergey":      {in: "sergey", want: "SRJ"},
		"christopher": {in: "christopher", want: "KRSTFR"},
		"philip":      {in: "philip", want: "FLP"},
		"thompson":    {in: "thompson", want: "0MPSN"},
		"school":      {in: "school", want: "SKL"},
		"knight":      {in: "knight", want: "NT"},
		"wright":      {in: "wright", want: "RT"},
		"xavier":      {in: "xavier", want: "SFR"},
		"walter":      {in: "walter", want: "ALTR"},
		"ghost":       {in: "ghost", want: "KST"},
		"sign":        {in: "sign", want: "SN"},
		"lamb":        {in: "lamb", want: "LM"},
		"quinn":       {in: "quinn", want: "KN"},
		"ivan":        {in: "ivan", want: "AFN"},
		"short jane":  {in: "jane", want: "JN"},
		"empty":       {in: "", want: ""},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, names.DoubleMetaphone(tc.in))
		})
	}
}

func TestPhonetics(t *testing.T) {
	t.Parallel()

	person := schema(t, "Person")

	// Spelling variants collapse to one code; short codes are dropped.
	codes := names.Phonetics(person, []string{"Jane Smith", "Jane Smythe"})
	assert.Equal(t, []string{"SM0"}, codes)

	// Diacritics fold before encoding.
	codes = names.Phonetics(person, []string{"Vladimír"})
	assert.Equal(t, []string{"FLTMR"}, codes)

	// Non-latin scripts are not encoded.
	assert.Empty(t, names.Phonetics(person, []string{"Владимир"}))

	// Tokens under three characters are skipped.
	assert.Empty(t, names.Phonetics(person, []string{"Al B"}))
}
