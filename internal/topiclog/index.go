package topiclog

import "sort"

// indexEntry maps a record's offset to its starting byte position in the
// data log.
type indexEntry struct {
	offset   uint64
	position uint64
}

// offsetIndex is the in-memory offset→byte-position index_map spec.md §4
// describes. Offsets are only ever inserted in increasing order — by
// append() as records commit, and by the startup recovery scan as it walks
// the data log front-to-back — so a single ascending slice gives O(log n)
// lookup by binary search without needing a balanced tree.
type offsetIndex struct {
	entries []indexEntry
}

func newOffsetIndex() *offsetIndex {
	return &offsetIndex{}
}

// insert appends a new (offset, position) pair. Callers must insert in
// strictly increasing offset order; this is never violated because offsets
// are assigned monotonically and the recovery scan walks the log in order.
func (idx *offsetIndex) insert(offset, position uint64) {
	idx.entries = append(idx.entries, indexEntry{offset: offset, position: position})
}

func (idx *offsetIndex) reset() {
	idx.entries = idx.entries[:0]
}

func (idx *offsetIndex) len() int {
	return len(idx.entries)
}

// lookup returns the exact position recorded for offset, if any.
func (idx *offsetIndex) lookup(offset uint64) (uint64, bool) {
	i := idx.search(offset)
	if i < len(idx.entries) && idx.entries[i].offset == offset {
		return idx.entries[i].position, true
	}
	return 0, false
}

// lowerBound returns the first entry whose offset is >= target, matching
// the semantics of index_map.lower_bound in spec.md §4.1's read operation.
func (idx *offsetIndex) lowerBound(target uint64) (indexEntry, bool) {
	i := idx.search(target)
	if i < len(idx.entries) {
		return idx.entries[i], true
	}
	return indexEntry{}, false
}

// max returns the entry with the highest offset, if the index is non-empty.
func (idx *offsetIndex) max() (indexEntry, bool) {
	if len(idx.entries) == 0 {
		return indexEntry{}, false
	}
	return idx.entries[len(idx.entries)-1], true
}

func (idx *offsetIndex) search(target uint64) int {
	return sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].offset >= target
	})
}
