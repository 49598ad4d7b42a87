package trie

import (
	"slices"
	"strings"
)

// Distance returns the Levenshtein distance between a and b when it is at
// most limit. Any larger distance is reported as exactly limit+1, so callers can
// treat limit+1 as "too far" without knowing the true value.
//
// Two shortcuts keep this cheap for search: a length difference above limit
// returns immediately, and the DP stops as soon as a whole row exceeds limit.
func Distance(a, b string, limit int) int {
	if limit < 0 {
		limit = 0
	}
	ra, rb := []rune(a), []rune(b)
	if abs(len(ra)-len(rb)) > limit {
		return limit + 1
	}
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i, ca := range ra {
		curr[0] = i + 1
		rowMin := curr[0]
		for j, cb := range rb {
			cost := 1
			if ca == cb {
				cost = 0
			}
			v := min(prev[j+1]+1, curr[j]+1, prev[j]+cost)
			curr[j+1] = v
			if v < rowMin {
				rowMin = v
			}
		}
		if rowMin > limit {
			return limit + 1
		}
		prev, curr = curr, prev
	}

	if d := prev[len(rb)]; d <= limit {
		return d
	}
	return limit + 1
}

// FuzzySearch returns the IDs of tokens whose prefix lies within maxDistance
// edits of prefix, sorted ascending. The walk compares each trie path against
// the same-length slice of prefix and stops descending once a path is too far
// and already as long as prefix. An empty prefix matches nothing.
func (t *Trie) FuzzySearch(prefix string, maxDistance int) []int64 {
	target := []rune(strings.ToLower(prefix))
	if len(target) == 0 {
		return nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	type frame struct {
		n    *Node
		path []rune
	}

	seen := make(map[int64]struct{})
	stack := []frame{{n: t.root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		cut := min(len(f.path), len(target))
		d := Distance(string(f.path), string(target[:cut]), maxDistance)

		if len(f.path) >= len(target) && d <= maxDistance {
			for id := range f.n.postings {
				seen[id] = struct{}{}
			}
		}
		if d > maxDistance && len(f.path) >= len(target) {
			continue
		}
		for _, e := range f.n.children {
			stack = append(stack, frame{n: e.child, path: append(slices.Clip(f.path), e.r)})
		}
	}
	return sortedIDs(seen)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
