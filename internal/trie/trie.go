// Package trie provides the character trie behind file search: tokens map to
// posting lists of record IDs, every node counts how often it was traversed,
// and bounded edit-distance lookups walk the same structure.
package trie

import (
	"slices"
	"strings"
	"sync"
)

// Node is a single character position in the trie.
// Children are owned exclusively by their parent and kept sorted by rune.
type Node struct {
	children  []edge
	endOfWord bool
	postings  map[int64]struct{}
	frequency uint64
}

type edge struct {
	r     rune
	child *Node
}

func newNode() *Node {
	return &Node{postings: make(map[int64]struct{})}
}

// child returns the child reached through r, or nil.
func (n *Node) child(r rune) *Node {
	i, ok := slices.BinarySearchFunc(n.children, r, func(e edge, target rune) int {
		return int(e.r) - int(target)
	})
	if !ok {
		return nil
	}
	return n.children[i].child
}

// childOrCreate returns the child reached through r, inserting it in rune order
// when missing.
func (n *Node) childOrCreate(r rune) *Node {
	i, ok := slices.BinarySearchFunc(n.children, r, func(e edge, target rune) int {
		return int(e.r) - int(target)
	})
	if ok {
		return n.children[i].child
	}
	c := newNode()
	n.children = slices.Insert(n.children, i, edge{r: r, child: c})
	return c
}

// EndOfWord reports whether an indexed token ends at this node.
func (n *Node) EndOfWord() bool { return n.endOfWord }

// Frequency returns how many insertions traversed this node.
func (n *Node) Frequency() uint64 { return n.frequency }

// Trie maps lowercase tokens to record IDs.
// Safe for concurrent readers and a single writer at a time.
type Trie struct {
	mu     sync.RWMutex
	root   *Node
	tokens int
}

// New creates an empty trie.
func New() *Trie {
	return &Trie{root: newNode()}
}

// Insert adds token for id. Every node on the path gains id in its postings
// and has its frequency incremented, so re-inserting the same pair leaves the
// structure unchanged but keeps counting.
func (t *Trie) Insert(token string, id int64) {
	token = strings.ToLower(token)
	if token == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	node := t.root
	for _, r := range token {
		node = node.childOrCreate(r)
		node.frequency++
		node.postings[id] = struct{}{}
	}
	if !node.endOfWord {
		node.endOfWord = true
		t.tokens++
	}
}

// PrefixSearch returns the IDs of every token starting with prefix, sorted
// ascending. An empty prefix matches everything indexed.
func (t *Trie) PrefixSearch(prefix string) []int64 {
	prefix = strings.ToLower(prefix)

	t.mu.RLock()
	defer t.mu.RUnlock()

	node := t.walk(prefix)
	if node == nil {
		return nil
	}

	seen := make(map[int64]struct{})
	stack := []*Node{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for id := range n.postings {
			seen[id] = struct{}{}
		}
		for _, e := range n.children {
			stack = append(stack, e.child)
		}
	}
	return sortedIDs(seen)
}

// Contains reports whether token was inserted as a whole word.
func (t *Trie) Contains(token string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node := t.walk(strings.ToLower(token))
	return node != nil && node.endOfWord
}

// Frequency returns the traversal counter of the node at prefix, 0 if absent.
func (t *Trie) Frequency(prefix string) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node := t.walk(strings.ToLower(prefix))
	if node == nil || node == t.root {
		return 0
	}
	return node.frequency
}

// Depth returns the length of the longest path from the root.
func (t *Trie) Depth() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	type frame struct {
		n     *Node
		depth int
	}
	maxDepth := 0
	stack := []frame{{t.root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.depth > maxDepth {
			maxDepth = f.depth
		}
		for _, e := range f.n.children {
			stack = append(stack, frame{e.child, f.depth + 1})
		}
	}
	return maxDepth
}

// Tokens returns the number of distinct tokens inserted.
func (t *Trie) Tokens() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tokens
}

// walk follows prefix from the root. Caller holds the read lock.
func (t *Trie) walk(prefix string) *Node {
	node := t.root
	for _, r := range prefix {
		node = node.child(r)
		if node == nil {
			return nil
		}
	}
	return node
}

func sortedIDs(set map[int64]struct{}) []int64 {
	if len(set) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
