package world

// Salts partition the per-invocation PRNG draws made while stepping a
// single cell so that the scan-direction coin flip, a custom hook's random
// draws, and anything else never collide on the same (tick, chunk, cell)
// key. saltUser is the starting point for UpdateContext.RandomUint32; each
// call increments a per-invocation counter seeded from it.
const (
	saltPrimarySide uint32 = 0
	saltRowScan     uint32 = 1
	saltUser        uint32 = 1000
)

// UpdateContext is handed to a material's UpdateFunc for the duration of a
// single cell's update. It is the hook's only channel for observing or
// mutating the world: exactly one of TryMove, TrySwap, or Transform may
// succeed per invocation, and RandomUint32 draws are deterministic given
// the enclosing (seed, tick, chunk, cell).
type UpdateContext struct {
	w     *World
	tick  uint64
	out   *taskOutput
	chunk *Chunk
	lx, ly int32
	idx   uint32

	mutated  bool
	drawSalt uint32
}

func newUpdateContext(w *World, tick uint64, out *taskOutput, chunk *Chunk, lx, ly int32, idx uint32) *UpdateContext {
	return &UpdateContext{
		w: w, tick: tick, out: out, chunk: chunk,
		lx: lx, ly: ly, idx: idx,
		drawSalt: saltUser,
	}
}

func (c *UpdateContext) invoke(fn UpdateFunc, id MaterialID) {
	fn(c, CellCoord{
		X: c.chunk.pos.X*c.w.chunkWidth + c.lx,
		Y: c.chunk.pos.Y*c.w.chunkHeight + c.ly,
	}, id, c.chunk.payloadAt(c.w, c.idx))
}

// RandomUint32 draws the next deterministic pseudo-random value available
// to this invocation. Successive calls within the same UpdateFunc
// invocation always advance the salt, so they never repeat a draw, but the
// sequence only ever depends on (seed, tick, chunk, cell) plus the ordinal
// of the call - never on wall-clock time or goroutine scheduling.
func (c *UpdateContext) RandomUint32() uint32 {
	v := stepRandom(c.w, c.tick, c.chunk.pos, c.lx, c.ly, c.drawSalt)
	c.drawSalt++
	return v
}

// TryMove attempts to relocate the cell under update by (dx, dy). It
// behaves like the builtin movement kernel with lateral displacement
// enabled: an empty destination always succeeds, and a non-empty one
// succeeds only if canDisplace allows the mover to trade places with it
// (denser-into-lighter when falling, lighter-into-denser when rising, or
// unequal density laterally). It is a no-op returning false if this
// invocation already performed a mutating operation, or if dx/dy are both
// zero, or if the destination is out of bounds of a loaded chunk.
func (c *UpdateContext) TryMove(dx, dy int32) bool {
	if c.mutated || (dx == 0 && dy == 0) {
		return false
	}
	id := c.chunk.materialIDs[c.idx]
	mat := c.w.materials.get(id)
	if mat == nil {
		return false
	}
	return c.w.tryDirected(c, dx, dy, mat, id, false)
}

// TrySwap attempts to exchange the cell under update with its (dx, dy)
// neighbor regardless of relative density, succeeding only if the neighbor
// is non-empty and not Static. Subject to the same one-mutation-per-invocation rule as
// TryMove.
func (c *UpdateContext) TrySwap(dx, dy int32) bool {
	if c.mutated || (dx == 0 && dy == 0) {
		return false
	}
	id := c.chunk.materialIDs[c.idx]
	mat := c.w.materials.get(id)
	if mat == nil {
		return false
	}
	return c.w.tryDirected(c, dx, dy, mat, id, true)
}

// tryDirected implements the shared mechanics of TryMove/TrySwap: resolve
// the neighbor, check occupancy against requireSwap, and either apply the
// change in place (same chunk) or buffer a crossIntent (foreign chunk).
func (w *World) tryDirected(c *UpdateContext, dx, dy int32, mat *material, id MaterialID, requireSwap bool) bool {
	tpos, tlx, tly := w.neighbor(c.chunk.pos, c.lx, c.ly, dx, dy)
	sameChunk := tpos == c.chunk.pos
	var tgt *Chunk
	if sameChunk {
		tgt = c.chunk
	} else {
		ti, ok := w.registry.find(tpos)
		if !ok {
			return false
		}
		tgt = w.registry.entries[ti].chunk
	}

	tIdx := w.cellIndex(tlx, tly)
	if sameChunk && tgt.maskTest(tIdx) {
		return false
	}

	occupantID := tgt.materialIDs[tIdx]
	if requireSwap {
		if occupantID == 0 {
			return false
		}
		if occupant := w.materials.get(occupantID); occupant == nil || occupant.flags&Static != 0 {
			return false
		}
	} else if occupantID != 0 {
		occupant := w.materials.get(occupantID)
		if occupant == nil || !canDisplace(mat, occupant, dy, true) {
			return false
		}
	}

	if !sameChunk {
		c.out.push(crossIntent{
			sourcePos: c.chunk.pos, targetPos: tpos,
			sourceCell: c.idx, targetCell: tIdx,
			sourceMaterial: id, targetMaterial: occupantID,
		})
		c.out.emittedMoves++
		c.mutated = true
		return true
	}

	if occupantID == 0 {
		tgt.materialIDs[tIdx] = id
		c.chunk.materialIDs[c.idx] = 0
		movePayload(w, c.chunk, c.idx, tgt, tIdx, mat)
		c.chunk.liveCells--
		tgt.liveCells++
	} else {
		tgt.materialIDs[tIdx] = id
		c.chunk.materialIDs[c.idx] = occupantID
		swapPayload(w, c.chunk, c.idx, tgt, tIdx)
	}
	tgt.maskSet(tIdx)
	c.out.changed = true
	c.out.emittedMoves++
	c.mutated = true
	return true
}

// Transform replaces the cell under update's material in place, running the
// old material's dtor (if any) on its payload before running the new
// material's ctor (if any) on the now-reinitialized payload. Subject to the
// same one-mutation-per-invocation rule as TryMove/TrySwap.
func (c *UpdateContext) Transform(id MaterialID) error {
	const op = "UpdateContext.Transform"
	if c.mutated {
		return newErr(op, StatusConflict, "invocation already performed a mutating operation")
	}
	newMat := c.w.materials.get(id)
	if id != 0 && newMat == nil {
		return newErr(op, StatusNotFound, "material not registered")
	}

	oldID := c.chunk.materialIDs[c.idx]
	oldMat := c.w.materials.get(oldID)
	payload := c.chunk.payloadAt(c.w, c.idx)

	if oldMat != nil && oldMat.dtor != nil {
		oldMat.dtor(payload)
	}
	if payload != nil {
		clear(payload)
	}
	if newMat != nil && newMat.ctor != nil {
		newMat.ctor(payload)
	}

	c.chunk.materialIDs[c.idx] = id
	if oldID == 0 && id != 0 {
		c.chunk.liveCells++
	} else if oldID != 0 && id == 0 {
		c.chunk.liveCells--
	}
	c.chunk.maskSet(c.idx)
	c.out.changed = true
	c.mutated = true
	return nil
}
