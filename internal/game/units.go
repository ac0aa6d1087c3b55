package game

import "github.com/arlott/railfront/internal/world"

// UnitID indexes the unit arena.
type UnitID int

// NoUnit marks absent unit references.
const NoUnit UnitID = -1

// UnitKind enumerates the unit types this core builds or validates.
type UnitKind uint8

const (
	UnitCity UnitKind = iota
	UnitPort
	UnitFactory
	UnitTrainEngine
	UnitTrainCar
	UnitTradeShip
)

// Strategic reports whether a unit kind survives owner elimination cleanup.
// Structures are strategic; mobile agents are not.
func (k UnitKind) Strategic() bool {
	switch k {
	case UnitCity, UnitPort, UnitFactory:
		return true
	}
	return false
}

// Unit is one placed or mobile game unit.
type Unit struct {
	ID            UnitID     `json:"id"`
	Kind          UnitKind   `json:"kind"`
	Owner         PlayerID   `json:"owner"`
	Tile          world.Tile `json:"tile"`
	Level         int        `json:"level"`
	Active        bool       `json:"active"`
	Loaded        bool       `json:"loaded"`         // Cargo flag, cosmetic
	TargetReached bool       `json:"target_reached"` // Set when the route completed
}

// Units is the unit lifecycle arena.
type Units struct {
	grid  *world.Grid
	units []Unit
}

// NewUnits creates the arena bound to a terrain grid for build validation.
func NewUnits(grid *world.Grid) *Units {
	return &Units{grid: grid}
}

// canPlace validates terrain for a unit kind. Structures and trains need
// open land; ports additionally need adjacent water; ships need water.
func (u *Units) canPlace(kind UnitKind, t world.Tile) bool {
	switch kind {
	case UnitTradeShip:
		return u.grid.IsWater(t)
	case UnitPort:
		if u.grid.Terrain(t) != world.TerrainPlains {
			return false
		}
		for _, n := range t.Neighbors() {
			if u.grid.IsWater(n) {
				return true
			}
		}
		return false
	default:
		return u.grid.Terrain(t) == world.TerrainPlains
	}
}

// Build constructs a unit at the tile. The boolean reports "cannot build
// here"; callers log a warning and stop the requesting execution on false.
func (u *Units) Build(owner PlayerID, kind UnitKind, t world.Tile) (UnitID, bool) {
	if !u.canPlace(kind, t) {
		return NoUnit, false
	}
	id := UnitID(len(u.units))
	u.units = append(u.units, Unit{
		ID:     id,
		Kind:   kind,
		Owner:  owner,
		Tile:   t,
		Active: true,
	})
	return id, true
}

// Get returns the unit record, or nil.
func (u *Units) Get(id UnitID) *Unit {
	if id < 0 || int(id) >= len(u.units) {
		return nil
	}
	return &u.units[id]
}

// Move relocates an active unit.
func (u *Units) Move(id UnitID, t world.Tile) {
	if unit := u.Get(id); unit != nil && unit.Active {
		unit.Tile = t
	}
}

// Delete deactivates a unit. Idempotent.
func (u *Units) Delete(id UnitID) {
	if unit := u.Get(id); unit != nil {
		unit.Active = false
	}
}

// IsActive reports whether the unit exists and is active.
func (u *Units) IsActive(id UnitID) bool {
	unit := u.Get(id)
	return unit != nil && unit.Active
}

// OwnedBy returns the active units of a player.
func (u *Units) OwnedBy(p PlayerID) []UnitID {
	var out []UnitID
	for i := range u.units {
		if u.units[i].Active && u.units[i].Owner == p {
			out = append(out, u.units[i].ID)
		}
	}
	return out
}

// CountKind counts the active units of one kind, optionally filtered by
// owner (pass NoPlayer for all owners).
func (u *Units) CountKind(kind UnitKind, owner PlayerID) int {
	count := 0
	for i := range u.units {
		unit := &u.units[i]
		if unit.Active && unit.Kind == kind && (owner == NoPlayer || unit.Owner == owner) {
			count++
		}
	}
	return count
}

// Each calls fn for every active unit.
func (u *Units) Each(fn func(*Unit)) {
	for i := range u.units {
		if u.units[i].Active {
			fn(&u.units[i])
		}
	}
}
