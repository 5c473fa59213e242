package names

import "strings"

// DoubleMetaphone encodes a lowercase ASCII word (see [Fold]) into its
// primary Double Metaphone code. Only the primary code is produced; the
// branches of the published algorithm that cannot fire on folded name
// tokens are left out.
func DoubleMetaphone(word string) string {
	w := strings.ToUpper(word)
	n := len(w)

	var out strings.Builder

	at := func(i int) byte {
		if i < 0 || i >= n {
			return 0
		}

		return w[i]
	}

	has := func(i int, parts ...string) bool {
		for _, p := range parts {
			if i >= 0 && i+len(p) <= n && w[i:i+len(p)] == p {
				return true
			}
		}

		return false
	}

	isVowel := func(b byte) bool {
		switch b {
		case 'A', 'E', 'I', 'O', 'U', 'Y':
			return true
		}

		return false
	}

	i := 0

	// Silent initial clusters: gnome, knight, pneumonia, wrap, psyche.
	if has(0, "GN", "KN", "PN", "WR", "PS") {
		i = 1
	}

	// Initial X sounds like S: Xavier.
	if at(0) == 'X' {
		out.WriteByte('S')

		i = 1
	}

	for i < n {
		c := at(i)

		switch {
		case isVowel(c):
			// Vowels only count word-initially.
			if i == 0 {
				out.WriteByte('A')
			}

			i++

		case c == 'B':
			out.WriteByte('P')
			i += skipDouble(at(i+1), 'B')

		case c == 'C':
			switch {
			case has(i, "CIA"):
				out.WriteByte('X')
				i += 2
			case has(i, "CH"):
				if i == 0 && n > 2 && !isVowel(at(2)) {
					// chris, chrome
					out.WriteByte('K')
				} else {
					out.WriteByte('X')
				}

				i += 2
			case has(i, "CC", "CK", "CQ"):
				out.WriteByte('K')
				i += 2
			case has(i, "CI", "CE", "CY"):
				out.WriteByte('S')
				i += 2
			default:
				out.WriteByte('K')
				i++
			}

		case c == 'D':
			if has(i, "DGE", "DGI", "DGY") {
				// edge, judge
				out.WriteByte('J')
				i += 3
			} else {
				out.WriteByte('T')
				if has(i, "DD", "DT") {
					i += 2
				} else {
					i++
				}
			}

		case c == 'F':
			out.WriteByte('F')
			i += skipDouble(at(i+1), 'F')

		case c == 'G':
			switch {
			case at(i+1) == 'H':
				if i > 0 && isVowel(at(i-1)) {
					// night, haughty: silent
					i += 2
				} else {
					// ghost
					out.WriteByte('K')
					i += 2
				}
			case at(i+1) == 'N':
				// sign, cologne
				out.WriteByte('N')
				i += 2
			case at(i+1) == 'E' || at(i+1) == 'I' || at(i+1) == 'Y':
				// george, sergei
				out.WriteByte('J')
				i += 2
			case at(i+1) == 'G':
				out.WriteByte('K')
				i += 2
			default:
				out.WriteByte('K')
				i++
			}

		case c == 'H':
			// H is only audible leading or between vowels.
			if (i == 0 || isVowel(at(i-1))) && isVowel(at(i+1)) {
				out.WriteByte('H')
			}

			i++

		case c == 'J':
			out.WriteByte('J')
			i += skipDouble(at(i+1), 'J')

		case c == 'K':
			out.WriteByte('K')
			i += skipDouble(at(i+1), 'K')

		case c == 'L':
			out.WriteByte('L')
			i += skipDouble(at(i+1), 'L')

		case c == 'M':
			out.WriteByte('M')

			switch {
			case has(i, "MB") && i+2 == n:
				// lamb
				i += 2
			default:
				i += skipDouble(at(i+1), 'M')
			}

		case c == 'N':
			out.WriteByte('N')
			i += skipDouble(at(i+1), 'N')

		case c == 'P':
			if at(i+1) == 'H' {
				out.WriteByte('F')
				i += 2
			} else {
				out.WriteByte('P')
				i += skipDouble(at(i+1), 'P')
			}

		case c == 'Q':
			out.WriteByte('K')
			i += skipDouble(at(i+1), 'Q')

		case c == 'R':
			out.WriteByte('R')
			i += skipDouble(at(i+1), 'R')

		case c == 'S':
			switch {
			case has(i, "SH"):
				out.WriteByte('X')
				i += 2
			case has(i, "SCH"):
				// school
				out.WriteString("SK")
				i += 3
			case has(i, "SIO", "SIA"):
				// mission, asia
				out.WriteByte('X')
				i++
			case has(i, "SCI", "SCE", "SCY"):
				// science
				out.WriteByte('S')
				i += 2
			case has(i, "SC"):
				// scott
				out.WriteString("SK")
				i += 2
			default:
				out.WriteByte('S')
				i += skipDouble(at(i+1), 'S')
			}

		case c == 'T':
			switch {
			case has(i, "TIO", "TIA"):
				// nation
				out.WriteByte('X')
				i++
			case has(i, "TH"):
				// thompson
				out.WriteByte('0')
				i += 2
			default:
				out.WriteByte('T')
				i += skipDouble(at(i+1), 'T')
			}

		case c == 'V':
			out.WriteByte('F')
			i += skipDouble(at(i+1), 'V')

		case c == 'W':
			// Audible only leading a vowel: Walter. Otherwise silent.
			if i == 0 && isVowel(at(1)) {
				out.WriteByte('A')
			}

			i++

		case c == 'X':
			out.WriteString("KS")
			i++

		case c == 'Z':
			out.WriteByte('S')
			i += skipDouble(at(i+1), 'Z')

		default:
			i++
		}
	}

	return out.String()
}

func skipDouble(next, c byte) int {
	if next == c {
		return 2
	}

	return 1
}
