package world

import "github.com/dm-vev/regolith/internal/chunkindex"

// Chunk is a dense W×H tile of cells: a unit of locality, of persistence,
// and (under the checkerboard scheduler) of parallelism. Its three arrays
// are sized W*H (material ids), W*H*P (payload bytes) and ceil(W*H/8)
// (updated bitmap) and never reallocated for the life of the chunk.
type Chunk struct {
	pos ChunkPos

	materialIDs []MaterialID
	payload     []byte // len == cellsPerChunk * payloadSize, cell i at [i*P, i*P+P)
	updated     []byte // bitmap, bit i set once cell i has been written this tick

	liveCells uint32
	idleSteps uint32
	awake     bool
}

func newChunk(pos ChunkPos, cellsPerChunk uint32, payloadSize uint16) *Chunk {
	return &Chunk{
		pos:         pos,
		materialIDs: make([]MaterialID, cellsPerChunk),
		payload:     make([]byte, uint64(cellsPerChunk)*uint64(payloadSize)),
		updated:     make([]byte, (cellsPerChunk+7)/8),
	}
}

// Pos returns the chunk's coordinates.
func (c *Chunk) Pos() ChunkPos { return c.pos }

// LiveCells returns the number of non-empty cells in the chunk.
func (c *Chunk) LiveCells() uint32 { return c.liveCells }

// Awake reports whether the chunk is scheduled for stepping under
// chunk-scan and checkerboard modes.
func (c *Chunk) Awake() bool { return c.awake }

func (c *Chunk) payloadAt(w *World, idx uint32) []byte {
	if w.payloadSize == 0 {
		return nil
	}
	off := uint64(idx) * uint64(w.payloadSize)
	return c.payload[off : off+uint64(w.payloadSize)]
}

func (c *Chunk) maskTest(idx uint32) bool {
	return c.updated[idx/8]&(1<<(idx%8)) != 0
}

func (c *Chunk) maskSet(idx uint32) {
	c.updated[idx/8] |= 1 << (idx % 8)
}

func (c *Chunk) clearMask() {
	clear(c.updated)
}

func packChunkKey(pos ChunkPos) int64 {
	return int64(uint64(uint32(pos.X))<<32 | uint64(uint32(pos.Y)))
}

// chunkEntry is one slot of the canonical, sorted chunk registry.
type chunkEntry struct {
	pos   ChunkPos
	chunk *Chunk
}

// chunkRegistry holds every loaded chunk, sorted and de-duplicated by
// (cy, cx) (invariants I5/I6). The backing slice is the single source of
// truth for ordering and iteration; index accelerates point lookups with
// an int64->int hash map keyed by the packed chunk coordinate, rebuilt
// from the slice after every insert or remove.
type chunkRegistry struct {
	entries []chunkEntry
	index   *chunkindex.Index
}

func newChunkRegistry(initialCapacity uint32) *chunkRegistry {
	cap := int(initialCapacity)
	if cap <= 0 {
		cap = 16
	}
	return &chunkRegistry{
		entries: make([]chunkEntry, 0, cap),
		index:   chunkindex.New(cap),
	}
}

// find returns the registry slot for pos, or (-1, false).
func (r *chunkRegistry) find(pos ChunkPos) (int, bool) {
	i, ok := r.index.Get(packChunkKey(pos))
	if !ok {
		return -1, false
	}
	return i, true
}

// reindex rebuilds the accelerator map from the canonical slice. Called
// after any structural change (insert/remove) since every removal shifts
// the indices of subsequent entries.
func (r *chunkRegistry) reindex() {
	r.index.Reset(len(r.entries))
	for i, e := range r.entries {
		r.index.Put(packChunkKey(e.pos), i)
	}
}

// insert places chunk into its sorted position. Returns false if pos is
// already loaded.
func (r *chunkRegistry) insert(pos ChunkPos, chunk *Chunk) bool {
	if _, ok := r.find(pos); ok {
		return false
	}
	i := 0
	for i < len(r.entries) && chunkLess(r.entries[i].pos, pos) {
		i++
	}
	r.entries = append(r.entries, chunkEntry{})
	copy(r.entries[i+1:], r.entries[i:])
	r.entries[i] = chunkEntry{pos: pos, chunk: chunk}
	r.reindex()
	return true
}

// remove deletes the entry at pos, if present, preserving sort order.
func (r *chunkRegistry) remove(pos ChunkPos) (*Chunk, bool) {
	i, ok := r.find(pos)
	if !ok {
		return nil, false
	}
	c := r.entries[i].chunk
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	r.reindex()
	return c, true
}

func (r *chunkRegistry) len() int { return len(r.entries) }
