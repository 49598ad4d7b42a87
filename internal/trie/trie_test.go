package trie

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrie_PrefixSearch_EveryPrefixFindsID(t *testing.T) {
	tr := New()
	words := map[int64]string{
		1: "vacation",
		2: "vacuum",
		3: "report",
		4: "résumé",
	}
	for id, w := range words {
		tr.Insert(w, id)
	}

	for id, w := range words {
		runes := []rune(w)
		for k := 1; k <= len(runes); k++ {
			got := tr.PrefixSearch(string(runes[:k]))
			assert.Contains(t, got, id, "prefix %q of %q", string(runes[:k]), w)
		}
	}
}

func TestTrie_PrefixSearch_CollectsSubtree(t *testing.T) {
	tr := New()
	tr.Insert("vacation", 1)
	tr.Insert("vacuum", 2)
	tr.Insert("van", 3)
	tr.Insert("report", 4)

	assert.Equal(t, []int64{1, 2, 3}, tr.PrefixSearch("va"))
	assert.Equal(t, []int64{1, 2}, tr.PrefixSearch("vac"))
	assert.Equal(t, []int64{1}, tr.PrefixSearch("VACAT"))
	assert.Empty(t, tr.PrefixSearch("vacx"))
	assert.Empty(t, tr.PrefixSearch("zebra"))
}

func TestTrie_PrefixSearch_EmptyPrefixReturnsAll(t *testing.T) {
	tr := New()
	tr.Insert("b", 2)
	tr.Insert("a", 1)

	assert.Equal(t, []int64{1, 2}, tr.PrefixSearch(""))
	assert.Empty(t, New().PrefixSearch(""))
}

func TestTrie_Insert_IdempotentStructureMonotonicFrequency(t *testing.T) {
	tr := New()
	tr.Insert("photo", 7)
	tr.Insert("photo", 7)
	tr.Insert("Photo", 7)

	assert.Equal(t, []int64{7}, tr.PrefixSearch("pho"))
	assert.Equal(t, 1, tr.Tokens())
	assert.Equal(t, uint64(3), tr.Frequency("p"))
	assert.Equal(t, uint64(3), tr.Frequency("photo"))
	assert.Equal(t, uint64(0), tr.Frequency("photos"))
	assert.True(t, tr.Contains("photo"))
	assert.False(t, tr.Contains("phot"))
}

func TestTrie_Insert_EmptyTokenIgnored(t *testing.T) {
	tr := New()
	tr.Insert("", 1)

	assert.Equal(t, 0, tr.Tokens())
	assert.Equal(t, 0, tr.Depth())
	assert.Empty(t, tr.PrefixSearch(""))
}

func TestTrie_Depth(t *testing.T) {
	tr := New()
	assert.Equal(t, 0, tr.Depth())

	tr.Insert("ab", 1)
	tr.Insert("abcde", 2)
	tr.Insert("xyz", 3)
	assert.Equal(t, 5, tr.Depth())
}

func TestTrie_ChildrenStaySorted(t *testing.T) {
	tr := New()
	for i, w := range []string{"d", "b", "a", "c"} {
		tr.Insert(w, int64(i))
	}

	var order []rune
	for _, e := range tr.root.children {
		order = append(order, e.r)
	}
	assert.Equal(t, []rune{'a', 'b', 'c', 'd'}, order)
}

func TestTrie_ConcurrentReadersAndWriter(t *testing.T) {
	tr := New()
	tr.Insert("seed", 0)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int64(1); i <= 200; i++ {
			tr.Insert("token", i)
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = tr.PrefixSearch("to")
				_ = tr.FuzzySearch("tokn", 2)
			}
		}()
	}
	wg.Wait()

	require.Len(t, tr.PrefixSearch("token"), 200)
}
