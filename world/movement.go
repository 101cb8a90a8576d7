package world

// delta is a single (dx, dy) candidate offset considered by the movement
// kernel, in priority order.
type delta struct{ dx, dy int32 }

var (
	powderDeltas = []delta{{0, 1}, {-1, 1}, {1, 1}}
	liquidDeltas = []delta{{0, 1}, {-1, 0}, {1, 0}, {-1, 1}, {1, 1}}
	gasDeltas    = []delta{{0, -1}, {-1, 0}, {1, 0}, {-1, -1}, {1, -1}}
)

// movePayload relocates src's payload into dst, invoking the material's
// InstanceMove hook if one is registered, then clears src back to its
// zero state (ctor of nothing, since the source cell is now empty).
func movePayload(w *World, srcChunk *Chunk, srcIdx uint32, dstChunk *Chunk, dstIdx uint32, mat *material) {
	if w.payloadSize == 0 {
		return
	}
	src := srcChunk.payloadAt(w, srcIdx)
	dst := dstChunk.payloadAt(w, dstIdx)
	if mat.move != nil {
		mat.move(dst, src)
	} else {
		copy(dst, src)
	}
	clear(src)
}

// swapPayload exchanges the raw payload bytes of two cells without invoking
// any material hook: a swap preserves both instances, it doesn't construct
// or destroy either.
func swapPayload(w *World, aChunk *Chunk, aIdx uint32, bChunk *Chunk, bIdx uint32) {
	if w.payloadSize == 0 {
		return
	}
	a := aChunk.payloadAt(w, aIdx)
	b := bChunk.payloadAt(w, bIdx)
	for i := range a {
		a[i], b[i] = b[i], a[i]
	}
}

// canDisplace decides whether a cell of material "mover" is allowed to
// either move into or swap with a cell of material "occupant" when stepping
// in direction dy (relative vertical component of the candidate delta):
//
//   - dy > 0 (mover is heading down): occupant must be strictly less dense.
//   - dy < 0 (mover is heading up):   occupant must be strictly more dense.
//   - dy == 0 (lateral):              only legal at all when
//     allowLateralDisplace is set, and then only onto an unequal-density
//     occupant. The builtin movement kernel always passes false here (the
//     reference implementation never displaces sideways, only flows into
//     empty cells that way); UpdateContext.TryMove passes true.
//
// A Static occupant can never be displaced regardless of density.
func canDisplace(mover, occupant *material, dy int32, allowLateralDisplace bool) bool {
	if occupant.flags&Static != 0 {
		return false
	}
	switch {
	case dy > 0:
		return occupant.density < mover.density
	case dy < 0:
		return occupant.density > mover.density
	default:
		if !allowLateralDisplace {
			return false
		}
		return occupant.density != mover.density
	}
}

// attemptMove is the shared core of the three builtin behaviors: given an
// ordered list of candidate deltas, it walks them in order and performs the
// first legal move or swap it finds, reporting whether it changed anything.
// A candidate targeting a foreign chunk is buffered as a crossIntent instead
// of applied immediately, and is only realized once the scheduler resolves
// the intent buffer: right after this chunk's scan in full-scan and
// chunk-scan, after every task in the phase has run in checkerboard mode.
// Every move, applied in place or buffered, counts toward out.emittedMoves.
func (w *World) attemptMove(tick uint64, out *taskOutput, chunk *Chunk, lx, ly int32, idx uint32, id MaterialID, mat *material, deltas []delta) bool {
	primarySide := stepRandom(w, tick, chunk.pos, lx, ly, saltPrimarySide)&1 == 0

	for _, d := range deltas {
		dx := d.dx
		if dx != 0 && !primarySide {
			dx = -dx
		}

		tpos, tlx, tly := w.neighbor(chunk.pos, lx, ly, dx, d.dy)
		sameChunk := tpos == chunk.pos
		var tgt *Chunk
		if sameChunk {
			tgt = chunk
		} else {
			ti, ok := w.registry.find(tpos)
			if !ok {
				continue
			}
			tgt = w.registry.entries[ti].chunk
		}

		tIdx := w.cellIndex(tlx, tly)
		if sameChunk && tgt.maskTest(tIdx) {
			continue
		}

		occupantID := tgt.materialIDs[tIdx]
		if occupantID == id && d.dy == 0 {
			// Lateral moves never trade a material for an identical one.
			continue
		}
		if occupantID != 0 {
			occupant := w.materials.get(occupantID)
			if occupant == nil || !canDisplace(mat, occupant, d.dy, false) {
				continue
			}
		}

		if !sameChunk {
			out.push(crossIntent{
				sourcePos: chunk.pos, targetPos: tpos,
				sourceCell: idx, targetCell: tIdx,
				sourceMaterial: id, targetMaterial: occupantID,
			})
			out.emittedMoves++
			return true
		}

		if occupantID == 0 {
			tgt.materialIDs[tIdx] = id
			chunk.materialIDs[idx] = 0
			movePayload(w, chunk, idx, tgt, tIdx, mat)
			chunk.liveCells--
			tgt.liveCells++
		} else {
			tgt.materialIDs[tIdx] = id
			chunk.materialIDs[idx] = occupantID
			swapPayload(w, chunk, idx, tgt, tIdx)
		}
		tgt.maskSet(tIdx)
		out.changed = true
		out.emittedMoves++
		return true
	}
	return false
}

// stepCell dispatches a single non-empty, non-Static cell to either its
// registered UpdateFunc (if CustomUpdate is set) or one of the three builtin
// movement behaviors, in that priority order. Static cells, CustomUpdate
// cells without an UpdateFunc, and cells with none of Powder/Liquid/Gas/
// CustomUpdate set are immobile and are skipped entirely.
func (w *World) stepCell(tick uint64, out *taskOutput, chunk *Chunk, lx, ly int32) {
	idx := w.cellIndex(lx, ly)
	if chunk.maskTest(idx) {
		return
	}
	id := chunk.materialIDs[idx]
	if id == 0 {
		return
	}
	mat := w.materials.get(id)
	if mat == nil {
		return
	}

	if mat.flags&Static != 0 {
		return
	}
	if mat.flags&CustomUpdate != 0 {
		if mat.update != nil {
			ctx := newUpdateContext(w, tick, out, chunk, lx, ly, idx)
			ctx.invoke(mat.update, id)
		}
		return
	}

	switch {
	case mat.flags&Powder != 0:
		w.attemptMove(tick, out, chunk, lx, ly, idx, id, mat, powderDeltas)
	case mat.flags&Liquid != 0:
		w.attemptMove(tick, out, chunk, lx, ly, idx, id, mat, liquidDeltas)
	case mat.flags&Gas != 0:
		w.attemptMove(tick, out, chunk, lx, ly, idx, id, mat, gasDeltas)
	}
}
