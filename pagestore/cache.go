package pagestore

import "container/list"

// Cache is an optional bounded read-through cache over a Store. It never
// participates in write visibility: it is consulted only after the WAL scan
// in the read path misses, and it is invalidated wholesale whenever recovery
// or checkpoint mutates the store. No example or library in the retrieval
// pack ships a generic LRU, so this is hand-rolled the way small embedded
// caches are in this corpus's pagers.
type Cache struct {
	st       *Store
	capacity int
	entries  map[uint32]*list.Element
	order    *list.List // front = most recently used
}

type cacheEntry struct {
	pageID uint32
	data   []byte
}

// NewCache wraps st with a read-through cache holding up to capacity pages.
func NewCache(st *Store, capacity int) *Cache {
	return &Cache{
		st:       st,
		capacity: capacity,
		entries:  make(map[uint32]*list.Element),
		order:    list.New(),
	}
}

// ReadPage returns a cached copy of the page if present, otherwise reads
// through to the underlying store and caches the result.
func (c *Cache) ReadPage(pageID uint32) ([]byte, error) {
	if elem, ok := c.entries[pageID]; ok {
		c.order.MoveToFront(elem)
		data := elem.Value.(*cacheEntry).data
		return append([]byte(nil), data...), nil
	}

	data, err := c.st.ReadPage(pageID)
	if err != nil {
		return nil, err
	}
	c.insert(pageID, data)
	return append([]byte(nil), data...), nil
}

func (c *Cache) insert(pageID uint32, data []byte) {
	if c.capacity <= 0 {
		return
	}
	if elem, ok := c.entries[pageID]; ok {
		elem.Value.(*cacheEntry).data = data
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&cacheEntry{pageID: pageID, data: data})
	c.entries[pageID] = elem

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).pageID)
	}
}

// Invalidate drops every cached page. Called after recovery or checkpoint
// writes new images into the store.
func (c *Cache) Invalidate() {
	c.entries = make(map[uint32]*list.Element)
	c.order.Init()
}
