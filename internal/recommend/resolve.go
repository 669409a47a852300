package recommend

import (
	"strings"
)

// fuzzyCutoff is the minimum similarity for a fuzzy title match to count.
const fuzzyCutoff = 0.7

// resolve maps a query title to the anchor row index. Resolution order:
// exact name match via the O(1) title map, then a catalog scan for an
// artist-substring or name-prefix match, then the single best fuzzy name
// match above the cutoff. A miss is an ordinary (0, false), never an error.
func (e *Engine) resolve(query string) (int, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0, false
	}

	if row, ok := e.titles[q]; ok {
		return row, true
	}

	for i := range e.cat.Tracks {
		t := &e.cat.Tracks[i]
		if strings.Contains(strings.ToLower(t.Artists), q) ||
			strings.HasPrefix(strings.ToLower(t.Name), q) {
			return i, true
		}
	}

	best := -1
	bestSim := fuzzyCutoff
	for i := range e.cat.Tracks {
		sim := similarity(q, strings.ToLower(e.cat.Tracks[i].Name))
		if sim > bestSim || (sim == bestSim && best < 0) {
			best = i
			bestSim = sim
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// similarity is an edit-distance similarity in [0,1]: 1 minus the
// Levenshtein distance normalized by the longer string.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
