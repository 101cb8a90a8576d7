package world

import "sort"

// crossIntent is a deferred record of a cross-chunk move or swap, emitted by
// a chunk stepper running under the checkerboard scheduler instead of
// mutating a foreign chunk directly.
type crossIntent struct {
	sourcePos, targetPos         ChunkPos
	sourceCell, targetCell       uint32
	sourceMaterial, targetMaterial MaterialID
}

// taskOutput is the per-task (per-chunk, per-phase) accumulator a chunk
// stepper writes into when running in parallel: emitted intents plus the
// counters the scheduler folds back into World once the phase completes.
type taskOutput struct {
	intents      []crossIntent
	emittedMoves uint64
	changed      bool
}

func (o *taskOutput) push(intent crossIntent) {
	o.intents = append(o.intents, intent)
}

// intentLess implements the resolver's total order over targets, breaking
// ties by source so that the surviving intent per target is independent of
// which worker produced it first (the determinism guarantee of §5).
func intentLess(a, b crossIntent) bool {
	if a.targetPos != b.targetPos {
		return chunkLess(a.targetPos, b.targetPos)
	}
	if a.targetCell != b.targetCell {
		return a.targetCell < b.targetCell
	}
	if a.sourcePos != b.sourcePos {
		return chunkLess(a.sourcePos, b.sourcePos)
	}
	return a.sourceCell < b.sourceCell
}

// mergeCrossIntents concatenates every task's emitted intents, sorts them by
// target, and applies at most one intent per target cell. It returns the
// number of rejected duplicates (conflicts), which the caller folds into
// World.intentConflictsLastStep.
func (w *World) mergeCrossIntents(outputs []taskOutput) uint64 {
	total := 0
	for i := range outputs {
		total += len(outputs[i].intents)
	}
	if total == 0 {
		return 0
	}

	merged := make([]crossIntent, 0, total)
	for i := range outputs {
		merged = append(merged, outputs[i].intents...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return intentLess(merged[i], merged[j]) })

	var conflicts uint64
	i := 0
	for i < len(merged) {
		j := i + 1
		for j < len(merged) && merged[j].targetPos == merged[i].targetPos && merged[j].targetCell == merged[i].targetCell {
			j++
		}
		if j > i+1 {
			conflicts += uint64(j - i - 1)
		}
		applied := false
		for k := i; k < j; k++ {
			if !applied && w.applyCrossIntent(&merged[k]) {
				applied = true
			}
		}
		i = j
	}
	return conflicts
}

// applyCrossIntent re-validates an intent's preconditions against the
// world's current state (they may have been invalidated by an earlier
// intent in the same run targeting the same source cell) and, if still
// valid, performs the move or swap it describes.
func (w *World) applyCrossIntent(intent *crossIntent) bool {
	srcIdx, ok := w.registry.find(intent.sourcePos)
	if !ok {
		return false
	}
	tgtIdx, ok := w.registry.find(intent.targetPos)
	if !ok {
		return false
	}
	src := w.registry.entries[srcIdx].chunk
	tgt := w.registry.entries[tgtIdx].chunk

	if src.materialIDs[intent.sourceCell] != intent.sourceMaterial ||
		tgt.materialIDs[intent.targetCell] != intent.targetMaterial {
		return false
	}

	if intent.targetMaterial == 0 {
		mat := w.materials.get(intent.sourceMaterial)
		if mat == nil {
			return false
		}
		tgt.materialIDs[intent.targetCell] = intent.sourceMaterial
		src.materialIDs[intent.sourceCell] = 0
		movePayload(w, src, intent.sourceCell, tgt, intent.targetCell, mat)

		if src != tgt {
			if src.liveCells > 0 {
				src.liveCells--
			}
			tgt.liveCells++
		}
	} else {
		tgt.materialIDs[intent.targetCell] = intent.sourceMaterial
		src.materialIDs[intent.sourceCell] = intent.targetMaterial
		swapPayload(w, src, intent.sourceCell, tgt, intent.targetCell)
	}

	tgt.maskSet(intent.targetCell)
	src.idleSteps = 0
	tgt.idleSteps = 0
	src.awake = src.liveCells > 0
	tgt.awake = tgt.liveCells > 0
	return true
}
