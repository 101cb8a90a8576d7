package world

// StepMode selects the scheduling strategy World.Step uses to advance one
// tick. The modes differ in which chunks get visited, in what order, and
// how the visiting is parallelized, so two modes can reach different states
// from the same input. Each mode on its own is deterministic for a given
// seed, whatever the worker count (Law L1).
type StepMode uint8

const (
	// StepModeFullScan visits every loaded chunk every tick, awake or not.
	StepModeFullScan StepMode = iota
	// StepModeChunkScan visits only chunks currently marked awake, serially.
	StepModeChunkScan
	// StepModeCheckerboardParallel partitions awake chunks into four fixed
	// (cx mod 2, cy mod 2) color classes and steps each class's chunks
	// concurrently via the configured ParallelRunner, resolving cross-chunk
	// moves between classes through the intent buffer.
	StepModeCheckerboardParallel
)

// sleepThreshold is the number of consecutive idle ticks (no intra-chunk
// change, no emitted cross-chunk intent) a chunk tolerates before it is
// marked asleep and skipped by chunk-scan and checkerboard scheduling.
const sleepThreshold = 8

// stepChunkSerial scans one chunk bottom-up, row by row, choosing each
// row's scan direction from the deterministic PRNG so that left- and
// right-leaning diagonal ties don't accumulate a directional bias over
// many ticks.
func (w *World) stepChunkSerial(tick uint64, chunk *Chunk, out *taskOutput) {
	for ly := w.chunkHeight - 1; ly >= 0; ly-- {
		leftToRight := stepRandom(w, tick, chunk.pos, 0, ly, saltRowScan)&1 == 0
		if leftToRight {
			for lx := int32(0); lx < w.chunkWidth; lx++ {
				w.stepCell(tick, out, chunk, lx, ly)
			}
		} else {
			for lx := w.chunkWidth - 1; lx >= 0; lx-- {
				w.stepCell(tick, out, chunk, lx, ly)
			}
		}
	}
}

// updateSleepState folds a chunk's outcome for the tick just completed into
// its idle-step counter and awake flag.
func (c *Chunk) updateSleepState(out *taskOutput) {
	if out.changed || out.emittedMoves > 0 {
		c.idleSteps = 0
	} else {
		c.idleSteps++
	}
	c.awake = c.liveCells > 0 && c.idleSteps < sleepThreshold
}

// colorOf returns the checkerboard color class (0-3) of a chunk position,
// used to partition awake chunks into four phases that never contain two
// mutually adjacent chunks in the same phase.
func colorOf(pos ChunkPos) int {
	cx := int(uint32(pos.X) & 1)
	cy := int(uint32(pos.Y) & 1)
	return cy*2 + cx
}

// checkerboardPhaseOrder is the fixed phase order (00, 10, 01, 11) the
// parallel scheduler always uses, so that which phase runs first never
// depends on worker count or runtime scheduling.
var checkerboardPhaseOrder = [4]int{0, 1, 2, 3}

// StepOptions configures a single call to World.Step. The zero value steps
// exactly one tick.
type StepOptions struct {
	// Substeps is the number of internal ticks folded into this one Step
	// call. They run back to back under the same lock, and the per-step
	// counters on Stats (LastStepConflicts, IntentsEmittedLastStep) report
	// the sum across all of them rather than just the last - the caller
	// asked for one step, not Substeps independent ones.
	Substeps int
}

// Step advances the world by one logical step using the configured
// StepMode, running Substeps internal ticks and advancing the internal tick
// counter once per tick. opts is optional; omitting it steps exactly one
// tick. It returns the number of cross-chunk intent conflicts observed
// across the step. Every mode buffers a move into a foreign chunk as an
// intent: full-scan and chunk-scan resolve a chunk's intents right after
// that chunk's scan, checkerboard after each color phase. Cross-chunk moves
// are never applied in place, so conflicts can occur in any mode whenever
// two cells aim at the same foreign cell before their intents are resolved.
func (w *World) Step(opts ...StepOptions) uint64 {
	o := StepOptions{Substeps: 1}
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Substeps <= 0 {
		o.Substeps = 1
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var totalConflicts, totalIntents uint64
	for i := 0; i < o.Substeps; i++ {
		conflicts, intents := w.runStepMode(w.tick)
		totalConflicts += conflicts
		totalIntents += intents
		w.tick++
	}

	w.stats.LastStepConflicts = totalConflicts
	w.stats.TotalConflicts += totalConflicts
	w.stats.IntentsEmittedLastStep = totalIntents
	return totalConflicts
}

// runStepMode runs exactly one internal tick under the caller's already-held
// lock, dispatching to the configured StepMode, and reports the conflicts it
// produced and its emitted-move count (moves applied in place plus
// cross-chunk intents emitted).
func (w *World) runStepMode(tick uint64) (conflicts, intents uint64) {
	switch w.stepMode {
	case StepModeFullScan:
		for i := range w.registry.entries {
			w.registry.entries[i].chunk.clearMask()
		}
		for i := range w.registry.entries {
			chunk := w.registry.entries[i].chunk
			out := taskOutput{}
			w.stepChunkSerial(tick, chunk, &out)
			conflicts += w.mergeCrossIntents([]taskOutput{out})
			intents += out.emittedMoves
			chunk.updateSleepState(&out)
		}

	case StepModeChunkScan:
		var awake []int
		for i := range w.registry.entries {
			if w.registry.entries[i].chunk.awake {
				awake = append(awake, i)
			}
		}
		for _, i := range awake {
			w.registry.entries[i].chunk.clearMask()
		}
		for _, i := range awake {
			chunk := w.registry.entries[i].chunk
			out := taskOutput{}
			w.stepChunkSerial(tick, chunk, &out)
			conflicts += w.mergeCrossIntents([]taskOutput{out})
			intents += out.emittedMoves
			chunk.updateSleepState(&out)
		}

	case StepModeCheckerboardParallel:
		conflicts, intents = w.stepCheckerboard(tick)
	}
	return conflicts, intents
}

// stepCheckerboard partitions every awake chunk into its four color
// classes and steps each class concurrently, merging that class's
// cross-chunk intents before the next class begins so that a later phase
// always observes the fully-resolved effect of an earlier one. Every awake
// chunk's mask is cleared up front, before the first phase runs, so that a
// cross-chunk move landing in a chunk belonging to a later phase can never
// be wiped by that chunk's own mask clear.
func (w *World) stepCheckerboard(tick uint64) (conflicts, intents uint64) {
	var classes [4][]int
	for i := range w.registry.entries {
		chunk := w.registry.entries[i].chunk
		if !chunk.awake {
			continue
		}
		c := colorOf(chunk.pos)
		classes[c] = append(classes[c], i)
		chunk.clearMask()
	}

	for _, color := range checkerboardPhaseOrder {
		idxs := classes[color]
		if len(idxs) == 0 {
			continue
		}
		outputs := make([]taskOutput, len(idxs))
		w.runner.RunParallel(len(idxs), func(j int) {
			chunk := w.registry.entries[idxs[j]].chunk
			w.stepChunkSerial(tick, chunk, &outputs[j])
		})
		conflicts += w.mergeCrossIntents(outputs)
		for j, i := range idxs {
			intents += outputs[j].emittedMoves
			w.registry.entries[i].chunk.updateSleepState(&outputs[j])
		}
	}
	return conflicts, intents
}
