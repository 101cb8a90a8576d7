// Package snapshot records a digest of world state at chosen ticks to an
// embedded key-value store, so that two runs (e.g. the same scenario under
// different StepModes or worker counts) can be compared tick-for-tick
// without holding every intermediate state in memory. It sits outside the
// engine proper: nothing in package world depends on it.
package snapshot

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/df-mc/goleveldb/leveldb"

	"github.com/dm-vev/regolith/world"
)

// Recorder persists a per-tick digest of a world's material layout to a
// leveldb database on disk, keyed by tick number.
type Recorder struct {
	db *leveldb.DB
}

// Open creates or reuses a leveldb database at path for recording digests.
func Open(path string) (*Recorder, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	return &Recorder{db: db}, nil
}

// Close releases the underlying database handle.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// tickKey encodes a tick number as a fixed-width big-endian key so that
// leveldb's natural key ordering is also tick ordering.
func tickKey(tick uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], tick)
	return b[:]
}

// Digest computes a stable hash of every loaded chunk's material ids and
// payload bytes, in the chunk registry's canonical order. Two worlds with
// identical digests at the same tick have identical visible state,
// regardless of how many workers or which StepMode produced them - this is
// the property Law L1 (determinism) is checked against.
func Digest(w *world.World) uint64 {
	h := xxhash.New()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], w.Tick())
	h.Write(buf[:])

	w.ForEachChunk(func(pos world.ChunkPos, materialIDs []world.MaterialID, payload []byte) {
		binary.LittleEndian.PutUint32(buf[0:4], uint32(pos.X))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(pos.Y))
		h.Write(buf[:])
		for _, id := range materialIDs {
			binary.LittleEndian.PutUint16(buf[:2], uint16(id))
			h.Write(buf[:2])
		}
		h.Write(payload)
	})
	return h.Sum64()
}

// Record stores w's current digest under its current tick.
func (r *Recorder) Record(w *world.World) error {
	digest := Digest(w)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], digest)
	return r.db.Put(tickKey(w.Tick()), b[:], nil)
}

// At returns the digest recorded for tick, and whether one was found.
func (r *Recorder) At(tick uint64) (uint64, bool) {
	v, err := r.db.Get(tickKey(tick), nil)
	if err != nil {
		return 0, false
	}
	return binary.LittleEndian.Uint64(v), true
}
