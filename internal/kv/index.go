package kv

// extent locates one record: the segment that holds it, its starting byte
// offset within that segment, and its total length including framing.
type extent struct {
	segmentID uint64
	offset    int64
	length    int64
}

// index is the in-memory key -> extent map described by C3. It is rebuilt
// from scratch by replay on every Engine.Open and is never persisted.
type index struct {
	entries map[string]extent
}

func newIndex() *index {
	return &index{entries: make(map[string]extent)}
}

func (i *index) get(key string) (extent, bool) {
	e, ok := i.entries[key]
	return e, ok
}

// insert records a new extent for key and returns the extent it replaced,
// if any. The caller uses the replaced extent's length for stale-byte
// accounting.
func (i *index) insert(key string, e extent) (extent, bool) {
	old, existed := i.entries[key]
	i.entries[key] = e
	return old, existed
}

// remove deletes key's entry and returns the extent it referenced, if any.
func (i *index) remove(key string) (extent, bool) {
	old, existed := i.entries[key]
	if existed {
		delete(i.entries, key)
	}
	return old, existed
}

func (i *index) len() int {
	return len(i.entries)
}
