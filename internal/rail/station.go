// Package rail maintains stations, railroads, and the cluster partition of
// the rail network. Stations and clusters live in arenas addressed by stable
// integer IDs; membership is an index on the station record, so there are no
// reference cycles and snapshots are plain values.
package rail

import (
	"github.com/arlott/railfront/internal/game"
	"github.com/arlott/railfront/internal/world"
)

// StationID indexes the station arena.
type StationID int

// ClusterID indexes the cluster arena.
type ClusterID int

// RailroadID indexes the railroad arena.
type RailroadID int

const (
	NoStation StationID = -1
	NoCluster ClusterID = -1
)

// StationKind is the production unit a station wraps.
type StationKind uint8

const (
	StationCity StationKind = iota
	StationPort
	StationFactory
)

// KindName returns a human-readable station kind label.
func KindName(k StationKind) string {
	switch k {
	case StationCity:
		return "city"
	case StationPort:
		return "port"
	case StationFactory:
		return "factory"
	}
	return "unknown"
}

// Station wraps one production unit participating in the network.
// A station belongs to exactly one cluster while active.
type Station struct {
	ID      StationID     `json:"id"`
	Kind    StationKind   `json:"kind"`
	Unit    game.UnitID   `json:"unit"`
	Owner   game.PlayerID `json:"owner"`
	Level   int           `json:"level"`
	Tile    world.Tile    `json:"tile"`
	Active  bool          `json:"active"`
	Cluster ClusterID     `json:"cluster"`
	Rails   []RailroadID  `json:"rails"`
}

// Railroad is a concrete tile path between two stations. At most one active
// railroad exists per station pair.
type Railroad struct {
	ID     RailroadID   `json:"id"`
	A      StationID    `json:"a"`
	B      StationID    `json:"b"`
	Path   []world.Tile `json:"path"`
	Active bool         `json:"active"`
}

// Other returns the opposite endpoint of the railroad.
func (r *Railroad) Other(s StationID) StationID {
	if r.A == s {
		return r.B
	}
	return r.A
}

// Cluster is a maximal set of mutually rail-connected stations.
type Cluster struct {
	ID       ClusterID
	Stations map[StationID]struct{}
	Active   bool
}

// Registry is the bookkeeping of live stations.
type Registry struct {
	stations []Station
	byTile   map[world.Tile]StationID
	byUnit   map[game.UnitID]StationID
}

// NewRegistry creates an empty station registry.
func NewRegistry() *Registry {
	return &Registry{
		byTile: make(map[world.Tile]StationID),
		byUnit: make(map[game.UnitID]StationID),
	}
}

// Add registers a new station. It starts active but clusterless; the caller
// is expected to connect it into the network next.
func (r *Registry) Add(kind StationKind, unit game.UnitID, owner game.PlayerID, tile world.Tile) StationID {
	id := StationID(len(r.stations))
	r.stations = append(r.stations, Station{
		ID:      id,
		Kind:    kind,
		Unit:    unit,
		Owner:   owner,
		Tile:    tile,
		Active:  true,
		Cluster: NoCluster,
	})
	r.byTile[tile] = id
	r.byUnit[unit] = id
	return id
}

// Get returns the station record, or nil for an unknown ID.
func (r *Registry) Get(id StationID) *Station {
	if id < 0 || int(id) >= len(r.stations) {
		return nil
	}
	return &r.stations[id]
}

// ByUnit resolves the station wrapping the given unit.
func (r *Registry) ByUnit(unit game.UnitID) *Station {
	id, ok := r.byUnit[unit]
	if !ok {
		return nil
	}
	return r.Get(id)
}

// ByTile resolves the station at the given tile.
func (r *Registry) ByTile(tile world.Tile) *Station {
	id, ok := r.byTile[tile]
	if !ok {
		return nil
	}
	return r.Get(id)
}

// drop removes the lookup entries of a deactivated station.
func (r *Registry) drop(st *Station) {
	delete(r.byTile, st.Tile)
	delete(r.byUnit, st.Unit)
}

// Active returns the IDs of all active stations.
func (r *Registry) Active() []StationID {
	ids := make([]StationID, 0, len(r.stations))
	for i := range r.stations {
		if r.stations[i].Active {
			ids = append(ids, r.stations[i].ID)
		}
	}
	return ids
}

// Len returns the total arena size including inactive records.
func (r *Registry) Len() int {
	return len(r.stations)
}
