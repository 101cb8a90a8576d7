package world

import "testing"

// newTestWorld builds a small, deterministic World suited to unit tests:
// small chunks so cross-chunk behavior is reachable without huge grids, a
// fixed seed, and a byte-sized payload so move/swap exercise the payload
// path too.
func newTestWorld(t *testing.T, stepMode StepMode) *World {
	t.Helper()
	conf := Config{
		UserConfig: UserConfig{
			ChunkWidth:        4,
			ChunkHeight:       4,
			PayloadSize:       1,
			MaxMaterials:      16,
			DeterministicMode: true,
			Seed:              12345,
			StepMode:          stepMode,
			Workers:           4,
		},
	}
	w := conf.New()
	t.Cleanup(w.Close)
	return w
}

func registerMaterial(t *testing.T, w *World, name string, flags MaterialFlags, density float32) MaterialID {
	t.Helper()
	id, err := w.RegisterMaterial(MaterialDesc{Name: name, Flags: flags, Density: density})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return id
}

// assertInvariants checks the registry-level invariants (I5/I6: sorted,
// de-duplicated chunk order) that must hold after any sequence of
// Load/Unload/Step calls.
func assertInvariants(t *testing.T, w *World) {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[ChunkPos]bool, len(w.registry.entries))
	for i, e := range w.registry.entries {
		if seen[e.pos] {
			t.Fatalf("chunk %v appears more than once in registry", e.pos)
		}
		seen[e.pos] = true
		if i > 0 && !chunkLess(w.registry.entries[i-1].pos, e.pos) {
			t.Fatalf("registry not sorted at index %d: %v should precede %v", i, w.registry.entries[i-1].pos, e.pos)
		}
		if idx, ok := w.registry.find(e.pos); !ok || idx != i {
			t.Fatalf("index accelerator out of sync for %v: got (%d, %v), want (%d, true)", e.pos, idx, ok, i)
		}
	}
}
