package world

import "testing"

func TestMergeCrossIntentsAppliesAtMostOnePerTarget(t *testing.T) {
	w := newTestWorld(t, StepModeFullScan)
	w.Load(ChunkPos{0, 0})
	w.Load(ChunkPos{1, 0})
	sand := registerMaterial(t, w, "sand", Powder, 2)

	src0, _ := w.registry.find(ChunkPos{0, 0})
	src1, _ := w.registry.find(ChunkPos{1, 0})
	chunk0 := w.registry.entries[src0].chunk
	chunk1 := w.registry.entries[src1].chunk

	// Two distinct source cells, in two different chunks, both "claim" the
	// same target cell in chunk1. Only one may win.
	chunk0.materialIDs[w.cellIndex(3, 0)] = sand
	chunk0.liveCells++
	chunk1.materialIDs[w.cellIndex(1, 1)] = sand
	chunk1.liveCells++

	outputs := []taskOutput{
		{intents: []crossIntent{{
			sourcePos: ChunkPos{0, 0}, targetPos: ChunkPos{1, 0},
			sourceCell: w.cellIndex(3, 0), targetCell: w.cellIndex(0, 0),
			sourceMaterial: sand, targetMaterial: 0,
		}}},
		{intents: []crossIntent{{
			sourcePos: ChunkPos{1, 0}, targetPos: ChunkPos{1, 0},
			sourceCell: w.cellIndex(1, 1), targetCell: w.cellIndex(0, 0),
			sourceMaterial: sand, targetMaterial: 0,
		}}},
	}

	conflicts := w.mergeCrossIntents(outputs)
	if conflicts != 1 {
		t.Fatalf("expected exactly one conflict, got %d", conflicts)
	}

	if chunk1.materialIDs[w.cellIndex(0, 0)] != sand {
		t.Fatalf("target cell was not filled by the surviving intent")
	}

	emptiedA := chunk0.materialIDs[w.cellIndex(3, 0)] == 0
	emptiedB := chunk1.materialIDs[w.cellIndex(1, 1)] == 0
	if emptiedA == emptiedB {
		t.Fatalf("expected exactly one source cell to be emptied, got emptiedA=%v emptiedB=%v", emptiedA, emptiedB)
	}
}

func TestApplyCrossIntentRejectsStaleSourceMaterial(t *testing.T) {
	w := newTestWorld(t, StepModeFullScan)
	w.Load(ChunkPos{0, 0})
	w.Load(ChunkPos{0, 1})
	sand := registerMaterial(t, w, "sand", Powder, 2)
	stone := registerMaterial(t, w, "stone", Static, 5)

	src, _ := w.registry.find(ChunkPos{0, 0})
	chunk := w.registry.entries[src].chunk
	chunk.materialIDs[w.cellIndex(0, 3)] = stone // changed since the intent was recorded

	intent := crossIntent{
		sourcePos: ChunkPos{0, 0}, targetPos: ChunkPos{0, 1},
		sourceCell: w.cellIndex(0, 3), targetCell: w.cellIndex(0, 0),
		sourceMaterial: sand, targetMaterial: 0,
	}
	if w.applyCrossIntent(&intent) {
		t.Fatal("expected a stale intent (source material changed) to be rejected")
	}
}
