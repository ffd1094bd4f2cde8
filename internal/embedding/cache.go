package embedding

import (
	"container/list"
	"sync"
)

// VectorCache is a bounded LRU of embeddings keyed by input text. Stored and
// returned slices are copies, so callers may mutate them freely.
type VectorCache struct {
	mu      sync.Mutex
	limit   int
	order   *list.List // front is most recently used
	entries map[string]*list.Element

	hits, misses uint64
}

type cachedVector struct {
	text string
	vec  []float32
}

// NewVectorCache returns a cache holding at most limit vectors. A limit
// below 1 disables it: Add is a no-op and Get always misses.
func NewVectorCache(limit int) *VectorCache {
	return &VectorCache{
		limit:   limit,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Get returns the vector cached for text.
func (c *VectorCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[text]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return cloneVector(el.Value.(*cachedVector).vec), true
}

// Add caches vec for text, dropping the least recently used entry when full.
func (c *VectorCache) Add(text string, vec []float32) {
	if c.limit < 1 {
		return
	}
	vec = cloneVector(vec)

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[text]; ok {
		el.Value.(*cachedVector).vec = vec
		c.order.MoveToFront(el)
		return
	}
	c.entries[text] = c.order.PushFront(&cachedVector{text: text, vec: vec})
	for c.order.Len() > c.limit {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.entries, last.Value.(*cachedVector).text)
	}
}

// Len returns the number of cached vectors.
func (c *VectorCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the hit and miss counts since creation.
func (c *VectorCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func cloneVector(v []float32) []float32 {
	return append([]float32(nil), v...)
}
