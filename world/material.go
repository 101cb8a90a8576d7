package world

import "github.com/segmentio/fasthash/fnv1a"

// MaterialID is a stable, dense 16-bit identifier for a registered
// Material. Id 0 is reserved and always denotes an empty cell.
type MaterialID uint16

// MaterialFlags is a non-exclusive set of behavior tags attached to a
// Material. They select which builtin movement behavior (if any) the
// movement kernel dispatches a cell to.
type MaterialFlags uint32

const (
	// Static materials never move, are never dispatched through the
	// movement kernel or an UpdateFunc, and are never displaced: no builtin
	// move, TryMove or TrySwap moves into or swaps with a Static cell.
	Static MaterialFlags = 1 << iota
	// Solid materials participate in displacement as a target but are not
	// given builtin fall/flow behavior unless combined with Powder/Liquid/
	// Gas.
	Solid
	// Powder materials fall straight down, then diagonally down-left or
	// down-right.
	Powder
	// Liquid materials fall straight down, then spread laterally, then
	// diagonally down.
	Liquid
	// Gas materials rise straight up, then spread laterally, then
	// diagonally up.
	Gas
	// CustomUpdate routes the cell through the registered UpdateFunc instead
	// of the builtin movement kernel.
	CustomUpdate
)

// InstanceCtor initializes a newly written payload slot in place.
type InstanceCtor func(dst []byte)

// InstanceDtor releases any resources referenced by a payload slot before it
// is overwritten or the owning chunk is unloaded.
type InstanceDtor func(dst []byte)

// InstanceMove relocates a payload's logical contents from src to dst ahead
// of a move (as opposed to a swap). If nil, a move does a flat byte copy.
type InstanceMove func(dst, src []byte)

// UpdateFunc is consulted once per cell per tick for materials flagged
// CustomUpdate, in place of the builtin movement kernel. It performs its
// work exclusively through the UpdateContext handed to it.
type UpdateFunc func(ctx *UpdateContext, cell CellCoord, id MaterialID, instance []byte)

// MaterialDesc describes a material to register with a World. The zero
// value of every field except Name is a legal default (an inert, massless,
// zero-payload material).
type MaterialDesc struct {
	Name         string
	Flags        MaterialFlags
	Density      float32
	Friction     float32
	Dispersion   float32
	InstanceSize uint16
	// InstanceAlign must be a power of two; 0 means 1 (unaligned).
	InstanceAlign uint16
	InstanceCtor  InstanceCtor
	InstanceDtor  InstanceDtor
	InstanceMove  InstanceMove
	UpdateFunc    UpdateFunc
}

// material is the resolved, owned record stored in the registry.
type material struct {
	name          string
	flags         MaterialFlags
	density       float32
	friction      float32
	dispersion    float32
	instanceSize  uint16
	instanceAlign uint16
	ctor          InstanceCtor
	dtor          InstanceDtor
	move          InstanceMove
	update        UpdateFunc
}

// materialRegistry is a fixed-capacity, append-only table of materials. Slot
// 0 is never populated: it is the reserved "empty" id.
type materialRegistry struct {
	slots []material
	// byName accelerates the required-unique-name check using an
	// fnv1a-hashed bucket map instead of the reference implementation's
	// linear scan over every registered material.
	byName map[uint64][]MaterialID
	max    uint16
}

func newMaterialRegistry(max uint16) *materialRegistry {
	return &materialRegistry{
		slots:  make([]material, 1, int(max)+1),
		byName: make(map[uint64][]MaterialID),
		max:    max,
	}
}

func isPowerOfTwoU16(v uint16) bool {
	return v != 0 && v&(v-1) == 0
}

func (r *materialRegistry) nameTaken(name string) bool {
	h := fnv1a.HashString64(name)
	for _, id := range r.byName[h] {
		if r.slots[id].name == name {
			return true
		}
	}
	return false
}

// register validates and installs desc, returning its newly assigned id.
func (r *materialRegistry) register(desc MaterialDesc) (MaterialID, error) {
	const op = "material.register"
	if desc.Name == "" {
		return 0, newErr(op, StatusInvalidArgument, "name must not be empty")
	}
	if uint16(len(r.slots)-1) >= r.max {
		return 0, newErr(op, StatusCapacityReached, "material registry full")
	}
	if r.nameTaken(desc.Name) {
		return 0, newErr(op, StatusAlreadyExists, desc.Name)
	}

	align := desc.InstanceAlign
	if align == 0 {
		align = 1
	}
	if !isPowerOfTwoU16(align) {
		return 0, newErr(op, StatusInvalidArgument, "instance alignment must be a power of two")
	}

	id := MaterialID(len(r.slots))
	r.slots = append(r.slots, material{
		name:          desc.Name,
		flags:         desc.Flags,
		density:       desc.Density,
		friction:      desc.Friction,
		dispersion:    desc.Dispersion,
		instanceSize:  desc.InstanceSize,
		instanceAlign: align,
		ctor:          desc.InstanceCtor,
		dtor:          desc.InstanceDtor,
		move:          desc.InstanceMove,
		update:        desc.UpdateFunc,
	})
	h := fnv1a.HashString64(desc.Name)
	r.byName[h] = append(r.byName[h], id)
	return id, nil
}

// get returns the material record for id, or nil if id is 0 or unregistered.
func (r *materialRegistry) get(id MaterialID) *material {
	if id == 0 || int(id) >= len(r.slots) {
		return nil
	}
	return &r.slots[id]
}

func (r *materialRegistry) count() int {
	return len(r.slots) - 1
}
