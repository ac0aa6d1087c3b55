package rail

import (
	"github.com/arlott/railfront/internal/game"
	"github.com/arlott/railfront/internal/world"
)

// Snapshot is a read-only value copy of the network topology, safe to hand
// to rendering, analytics, or the persistence layer.
type Snapshot struct {
	Stations  []StationSnap  `json:"stations"`
	Railroads []RailroadSnap `json:"railroads"`
	Clusters  []ClusterSnap  `json:"clusters"`
}

// StationSnap is one station in a topology snapshot.
type StationSnap struct {
	ID      StationID     `json:"id"`
	Kind    StationKind   `json:"kind"`
	Unit    game.UnitID   `json:"unit"`
	Owner   game.PlayerID `json:"owner"`
	Level   int           `json:"level"`
	Tile    world.Tile    `json:"tile"`
	Cluster ClusterID     `json:"cluster"`
}

// RailroadSnap is one railroad in a topology snapshot.
type RailroadSnap struct {
	A    StationID    `json:"a"`
	B    StationID    `json:"b"`
	Path []world.Tile `json:"path"`
}

// ClusterSnap is one cluster in a topology snapshot.
type ClusterSnap struct {
	ID       ClusterID   `json:"id"`
	Stations []StationID `json:"stations"`
}

// Snapshot captures the active topology.
func (n *Network) Snapshot() Snapshot {
	var snap Snapshot
	for _, id := range n.reg.Active() {
		st := n.reg.Get(id)
		snap.Stations = append(snap.Stations, StationSnap{
			ID:      st.ID,
			Kind:    st.Kind,
			Unit:    st.Unit,
			Owner:   st.Owner,
			Level:   st.Level,
			Tile:    st.Tile,
			Cluster: st.Cluster,
		})
	}
	for i := range n.railroads {
		r := &n.railroads[i]
		if !r.Active {
			continue
		}
		path := make([]world.Tile, len(r.Path))
		copy(path, r.Path)
		snap.Railroads = append(snap.Railroads, RailroadSnap{A: r.A, B: r.B, Path: path})
	}
	for _, cid := range n.ActiveClusters() {
		snap.Clusters = append(snap.Clusters, ClusterSnap{
			ID:       cid,
			Stations: n.ClusterStations(cid),
		})
	}
	return snap
}

// Restore rebuilds stations and railroads from a snapshot into an empty
// network. Clusters are recomputed from the restored adjacency rather than
// trusted from the snapshot, so the partition invariant holds by
// construction.
func (n *Network) Restore(snap Snapshot) {
	idMap := make(map[StationID]StationID, len(snap.Stations))
	for _, s := range snap.Stations {
		id := n.reg.Add(s.Kind, s.Unit, s.Owner, s.Tile)
		st := n.reg.Get(id)
		st.Level = s.Level
		idMap[s.ID] = id
	}

	for _, r := range snap.Railroads {
		a, okA := idMap[r.A]
		b, okB := idMap[r.B]
		if !okA || !okB {
			continue
		}
		path := make([]world.Tile, len(r.Path))
		copy(path, r.Path)
		rid := RailroadID(len(n.railroads))
		n.railroads = append(n.railroads, Railroad{ID: rid, A: a, B: b, Path: path, Active: true})
		n.reg.Get(a).Rails = append(n.reg.Get(a).Rails, rid)
		n.reg.Get(b).Rails = append(n.reg.Get(b).Rails, rid)
	}

	// Recompute the partition by flooding from every unassigned station.
	for _, id := range n.reg.Active() {
		if n.reg.Get(id).Cluster != NoCluster {
			continue
		}
		cl := n.newCluster()
		queue := []StationID{id}
		n.addToCluster(id, cl)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nb := range n.Neighbors(cur) {
				if n.reg.Get(nb).Cluster == NoCluster {
					n.addToCluster(nb, cl)
					queue = append(queue, nb)
				}
			}
		}
	}
}
