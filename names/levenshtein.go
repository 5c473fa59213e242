package names

import (
	"math"
	"slices"
)

// PickLimit is the default cap on representative names per entity.
const PickLimit = 5

// Levenshtein returns the edit distance between two strings, counted in
// runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}

	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i

		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// Pick selects up to limit representative names from a larger set. The
// first pick is the centroid, the name with the smallest summed edit
// distance to all others. Every further pick maximizes the summed
// distance to the names already picked, spreading the selection across
// spellings and scripts. Ties resolve to input order.
func Pick(names []string, limit int) []string {
	if limit <= 0 {
		limit = PickLimit
	}

	if len(names) <= limit {
		return slices.Clone(names)
	}

	dist := make([][]int, len(names))
	for i := range dist {
		dist[i] = make([]int, len(names))
	}

	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			d := Levenshtein(names[i], names[j])
			dist[i][j], dist[j][i] = d, d
		}
	}

	used := make([]bool, len(names))
	picked := make([]int, 0, limit)

	centroid, best := 0, math.MaxInt
	for i := range names {
		var sum int
		for j := range names {
			sum += dist[i][j]
		}

		if sum < best {
			centroid, best = i, sum
		}
	}

	picked = append(picked, centroid)
	used[centroid] = true

	for len(picked) < limit {
		next, far := -1, -1

		for i := range names {
			if used[i] {
				continue
			}

			var sum int
			for _, p := range picked {
				sum += dist[i][p]
			}

			if sum > far {
				next, far = i, sum
			}
		}

		if next < 0 {
			break
		}

		picked = append(picked, next)
		used[next] = true
	}

	out := make([]string, len(picked))
	for i, idx := range picked {
		out[i] = names[idx]
	}

	return out
}
