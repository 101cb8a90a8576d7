// Package world implements the engine: a chunked, sparse, deterministic
// cellular-automaton grid of typed materials stepped by one of three
// interchangeable scheduling strategies.
package world

import (
	"log/slog"
	"sync"
)

// UserConfig holds the subset of World configuration meant to be loaded
// from a scenario file (see cmd/regolithsim) rather than wired up in code.
// Zero values mean "use the engine default" and are filled in by New.
type UserConfig struct {
	ChunkWidth   int32
	ChunkHeight  int32
	PayloadSize  uint16
	MaxMaterials uint16

	DeterministicMode bool
	Seed              uint64

	StepMode StepMode
	Workers  int
}

// Config is the full configuration surface of a World, split from
// UserConfig the way a long-lived server config separates serializable
// user settings from in-process wiring (a logger, an explicit runner)
// that has no business living in a config file.
type Config struct {
	Log *slog.Logger

	UserConfig

	// Runner, if set, overrides the pool New constructs from Workers.
	// Supplying a custom ParallelRunner is how a caller shares one pool
	// across multiple worlds.
	Runner ParallelRunner

	InitialChunkCapacity uint32
}

const (
	defaultChunkWidth   int32 = 64
	defaultChunkHeight  int32 = 64
	defaultMaxMaterials uint16 = 256
	defaultPayloadSize  uint16 = 16
)

// New fills in any zero-valued fields of conf with engine defaults and
// constructs a ready-to-use World.
func (conf Config) New() *World {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.ChunkWidth <= 0 {
		conf.ChunkWidth = defaultChunkWidth
	}
	if conf.ChunkHeight <= 0 {
		conf.ChunkHeight = defaultChunkHeight
	}
	if conf.MaxMaterials == 0 {
		conf.MaxMaterials = defaultMaxMaterials
	}
	if conf.PayloadSize == 0 {
		conf.PayloadSize = defaultPayloadSize
	}
	ownsRunner := false
	if conf.Runner == nil {
		if conf.Workers > 1 {
			conf.Runner = NewWorkerPoolRunner(conf.Workers)
			ownsRunner = true
		} else {
			conf.Runner = sequentialRunner{}
		}
	}

	w := &World{
		conf:              conf,
		log:               conf.Log,
		chunkWidth:        conf.ChunkWidth,
		chunkHeight:       conf.ChunkHeight,
		payloadSize:       conf.PayloadSize,
		materials:         newMaterialRegistry(conf.MaxMaterials),
		registry:          newChunkRegistry(conf.InitialChunkCapacity),
		stepMode:          conf.StepMode,
		runner:            conf.Runner,
		ownsRunner:        ownsRunner,
		deterministicMode: conf.DeterministicMode,
		deterministicSeed: conf.Seed,
	}
	if !w.deterministicMode {
		w.instanceID = instanceIdentity()
	}

	w.log.Debug("world created",
		"chunk_width", w.chunkWidth, "chunk_height", w.chunkHeight,
		"payload_size", w.payloadSize, "max_materials", conf.MaxMaterials,
		"deterministic", w.deterministicMode, "step_mode", w.stepMode)
	return w
}

// World is the engine's top-level handle: a sparse set of loaded chunks, a
// material registry, and the scheduling configuration used to step them.
// A World is safe for concurrent use by multiple goroutines.
type World struct {
	conf Config
	log  *slog.Logger

	mu sync.Mutex

	chunkWidth, chunkHeight int32
	payloadSize             uint16

	materials *materialRegistry
	registry  *chunkRegistry

	stepMode   StepMode
	runner     ParallelRunner
	ownsRunner bool

	deterministicMode bool
	deterministicSeed uint64
	instanceID        uint64

	tick  uint64
	stats Stats
}

// Close releases any pooled resources the World owns (a WorkerPoolRunner it
// constructed itself from conf.Workers). It is a no-op if the caller
// supplied their own Runner.
func (w *World) Close() {
	if pool, ok := w.runner.(*WorkerPoolRunner); ok && w.ownsRunner {
		pool.Close()
	}
}

// Tick returns the number of internal ticks run so far: each Step call adds
// its Substeps count (1 by default).
func (w *World) Tick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

// ChunkWidth and ChunkHeight report the fixed per-chunk cell dimensions.
func (w *World) ChunkWidth() int32  { return w.chunkWidth }
func (w *World) ChunkHeight() int32 { return w.chunkHeight }

// RegisterMaterial validates and installs a material, returning its
// assigned id. Unlike materialRegistry.register, this also enforces that
// the material's instance payload fits the world's fixed per-cell payload
// budget, a check the registry alone can't perform since it doesn't carry
// the world's payload size.
func (w *World) RegisterMaterial(desc MaterialDesc) (MaterialID, error) {
	const op = "World.RegisterMaterial"
	if desc.InstanceSize > w.payloadSize {
		return 0, newErr(op, StatusUnsupported, "instance payload larger than world payload budget")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.materials.register(desc)
}

// MaterialCount returns the number of registered materials (excluding the
// reserved empty id).
func (w *World) MaterialCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.materials.count()
}

// Load ensures the chunk at pos exists, allocating and registering a fresh
// one if it doesn't. It returns the chunk and whether it was newly
// created.
func (w *World) Load(pos ChunkPos) (*Chunk, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i, ok := w.registry.find(pos); ok {
		return w.registry.entries[i].chunk, false
	}
	cells := uint32(w.chunkWidth) * uint32(w.chunkHeight)
	chunk := newChunk(pos, cells, w.payloadSize)
	w.registry.insert(pos, chunk)
	w.log.Debug("chunk loaded", "x", pos.X, "y", pos.Y)
	return chunk, true
}

// Unload removes the chunk at pos, running every live cell's dtor hook (if
// any) first. It reports StatusNotFound if no chunk is loaded there.
func (w *World) Unload(pos ChunkPos) error {
	const op = "World.Unload"
	w.mu.Lock()
	defer w.mu.Unlock()

	chunk, ok := w.registry.remove(pos)
	if !ok {
		return newErr(op, StatusNotFound, "chunk not loaded")
	}
	if w.payloadSize > 0 {
		for i, id := range chunk.materialIDs {
			if id == 0 {
				continue
			}
			mat := w.materials.get(id)
			if mat != nil && mat.dtor != nil {
				mat.dtor(chunk.payloadAt(w, uint32(i)))
			}
		}
	}
	w.log.Debug("chunk unloaded", "x", pos.X, "y", pos.Y)
	return nil
}

// ForEachChunk calls fn once per loaded chunk, in the registry's canonical
// (cy, cx) order, passing read-only views of its material ids and payload
// bytes. fn must not retain the slices past the call.
func (w *World) ForEachChunk(fn func(pos ChunkPos, materialIDs []MaterialID, payload []byte)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.registry.entries {
		c := w.registry.entries[i].chunk
		fn(c.pos, c.materialIDs, c.payload)
	}
}

// ChunkAt returns the chunk loaded at pos, if any.
func (w *World) ChunkAt(pos ChunkPos) (*Chunk, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	i, ok := w.registry.find(pos)
	if !ok {
		return nil, false
	}
	return w.registry.entries[i].chunk, true
}

// LoadedChunks returns the number of currently loaded chunks.
func (w *World) LoadedChunks() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.registry.len()
}

// Get returns the material id and a read-only view of the payload at cell.
// It reports StatusNotFound if cell's chunk isn't loaded.
func (w *World) Get(cell CellCoord) (MaterialID, []byte, error) {
	const op = "World.Get"
	w.mu.Lock()
	defer w.mu.Unlock()

	pos, lx, ly := w.locate(cell)
	i, ok := w.registry.find(pos)
	if !ok {
		return 0, nil, newErr(op, StatusNotFound, "chunk not loaded")
	}
	chunk := w.registry.entries[i].chunk
	idx := w.cellIndex(lx, ly)
	return chunk.materialIDs[idx], chunk.payloadAt(w, idx), nil
}

// Set overwrites cell's material, running the previous material's dtor (if
// any) and the new material's ctor (if any). It reports StatusNotFound if
// cell's chunk isn't loaded, or if id is non-zero and unregistered.
func (w *World) Set(cell CellCoord, id MaterialID) error {
	const op = "World.Set"
	w.mu.Lock()
	defer w.mu.Unlock()

	var mat *material
	if id != 0 {
		mat = w.materials.get(id)
		if mat == nil {
			return newErr(op, StatusNotFound, "material not registered")
		}
	}

	pos, lx, ly := w.locate(cell)
	i, ok := w.registry.find(pos)
	if !ok {
		return newErr(op, StatusNotFound, "chunk not loaded")
	}
	chunk := w.registry.entries[i].chunk
	idx := w.cellIndex(lx, ly)

	oldID := chunk.materialIDs[idx]
	payload := chunk.payloadAt(w, idx)
	if oldID != 0 {
		if old := w.materials.get(oldID); old != nil && old.dtor != nil {
			old.dtor(payload)
		}
	}
	if payload != nil {
		clear(payload)
	}
	if mat != nil && mat.ctor != nil {
		mat.ctor(payload)
	}

	chunk.materialIDs[idx] = id
	if oldID == 0 && id != 0 {
		chunk.liveCells++
	} else if oldID != 0 && id == 0 {
		chunk.liveCells--
	}
	chunk.idleSteps = 0
	chunk.awake = chunk.liveCells > 0
	return nil
}

// Clear is shorthand for Set(cell, 0).
func (w *World) Clear(cell CellCoord) error {
	return w.Set(cell, 0)
}
