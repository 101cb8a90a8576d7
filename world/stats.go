package world

// Stats is a read-only snapshot of engine-level counters, refreshed as a
// side effect of Step and returned by World.Stats. It exists for
// observability (logging, the console, the snapshot recorder) and is never
// consulted by the engine itself.
type Stats struct {
	Tick         uint64
	LoadedChunks int
	AwakeChunks  int
	LiveCells    uint64

	// LastStepConflicts and IntentsEmittedLastStep cover the most recent
	// Step call (summed across its Substeps, if more than one); Law L3
	// (at-most-one application per target) is checked against them.
	LastStepConflicts      uint64
	IntentsEmittedLastStep uint64
	TotalConflicts         uint64

	// PayloadOverflowAllocs and PayloadOverflowFrees are reserved for a
	// future variable-size payload path; this engine's payload is a fixed
	// per-cell byte budget with no overflow allocation, so both are always
	// 0.
	PayloadOverflowAllocs uint64
	PayloadOverflowFrees  uint64
}

// Stats computes a fresh snapshot of the world's current state.
func (w *World) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.stats
	s.Tick = w.tick
	s.LoadedChunks = w.registry.len()
	var awake int
	var live uint64
	for i := range w.registry.entries {
		c := w.registry.entries[i].chunk
		if c.awake {
			awake++
		}
		live += uint64(c.liveCells)
	}
	s.AwakeChunks = awake
	s.LiveCells = live
	return s
}
