package world

import (
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// mix64 is the splitmix64 finalizer: a fixed, stateless bit-mixing step that
// turns a XOR-folded key into a well-distributed 64-bit value. Identical
// inputs always yield identical outputs; there is no hidden state anywhere
// in this function.
func mix64(v uint64) uint64 {
	v ^= v >> 30
	v *= 0xbf58476d1ce4e5b9
	v ^= v >> 27
	v *= 0x94d049bb133111eb
	v ^= v >> 31
	return v
}

// instanceIdentity derives a reproducible-within-process, documented
// non-reproducible-across-runs salt for a world instance from a randomly
// generated UUID. It is only consulted when Config.DeterministicMode is
// false (see stepRandom and spec §4.B/§9).
func instanceIdentity() uint64 {
	id := uuid.New()
	return xxhash.Sum64(id[:])
}

// stepRandom is the deterministic PRNG specified by the engine: a pure
// function of (seed, tick, chunk, local cell, salt) with no hidden state.
// Given identical inputs it always returns identical output, which is what
// lets a checkerboard-parallel step reproduce a serial step bit-for-bit.
func stepRandom(w *World, tick uint64, pos ChunkPos, lx, ly int32, salt uint32) uint32 {
	seed := w.deterministicSeed
	if !w.deterministicMode {
		seed ^= w.instanceID
	}

	key := seed
	key ^= tick * 0x9e3779b97f4a7c15
	key ^= (uint64(uint32(pos.X)) << 32) ^ uint64(uint32(pos.Y))
	key ^= (uint64(uint32(lx)) << 32) ^ uint64(uint32(ly))
	key ^= uint64(salt) * 0xd6e8feb86659fd93

	return uint32(mix64(key))
}
