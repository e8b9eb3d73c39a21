package engine

type evalCacheEntry struct {
	key   uint64
	score int
	valid bool
}

// EvalCache is a direct-mapped memo of evaluator scores keyed by Zobrist
// hash. Colliding keys overwrite each other. Not safe for concurrent use;
// each search owns its own cache.
type EvalCache struct {
	mask    uint64
	entries []evalCacheEntry
}

func NewEvalCache(size int) *EvalCache {
	if size <= 0 {
		return nil
	}
	n := nextPowerOfTwo(uint64(size))
	return &EvalCache{mask: n - 1, entries: make([]evalCacheEntry, n)}
}

func (ec *EvalCache) Get(key uint64) (int, bool) {
	if ec == nil {
		return 0, false
	}
	entry := ec.entries[key&ec.mask]
	if !entry.valid || entry.key != key {
		return 0, false
	}
	return entry.score, true
}

func (ec *EvalCache) Put(key uint64, score int) {
	if ec == nil {
		return
	}
	ec.entries[key&ec.mask] = evalCacheEntry{key: key, score: score, valid: true}
}

func nextPowerOfTwo(v uint64) uint64 {
	if v <= 1 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	return v + 1
}
