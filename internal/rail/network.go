package rail

import (
	"log/slog"
	"sort"

	"github.com/arlott/railfront/internal/econ"
	"github.com/arlott/railfront/internal/game"
	"github.com/arlott/railfront/internal/pathfind"
	"github.com/arlott/railfront/internal/world"
)

// Network owns the cluster partition and the railroads. All mutation happens
// inside ConnectStation and RemoveStation, each of which completes within a
// single tick before any other entity observes the result.
type Network struct {
	cfg  econ.Config
	grid *world.Grid
	reg  *Registry

	clusters  []Cluster
	railroads []Railroad

	// OnRailroadBuilt is the fire-and-forget hook toward the rendering side.
	OnRailroadBuilt func(*Railroad)
}

// NewNetwork creates an empty network over the given terrain.
func NewNetwork(cfg econ.Config, grid *world.Grid, reg *Registry) *Network {
	return &Network{cfg: cfg, grid: grid, reg: reg}
}

// Registry exposes the station bookkeeping.
func (n *Network) Registry() *Registry { return n.reg }

// Cluster returns the cluster record, or nil.
func (n *Network) Cluster(id ClusterID) *Cluster {
	if id < 0 || int(id) >= len(n.clusters) {
		return nil
	}
	return &n.clusters[id]
}

// Railroad returns the railroad record, or nil.
func (n *Network) Railroad(id RailroadID) *Railroad {
	if id < 0 || int(id) >= len(n.railroads) {
		return nil
	}
	return &n.railroads[id]
}

// RailroadBetween finds the active railroad connecting two stations.
func (n *Network) RailroadBetween(a, b StationID) *Railroad {
	sa := n.reg.Get(a)
	if sa == nil {
		return nil
	}
	for _, rid := range sa.Rails {
		r := &n.railroads[rid]
		if r.Active && r.Other(a) == b {
			return r
		}
	}
	return nil
}

// Neighbors returns the stations directly rail-connected to id.
func (n *Network) Neighbors(id StationID) []StationID {
	st := n.reg.Get(id)
	if st == nil {
		return nil
	}
	out := make([]StationID, 0, len(st.Rails))
	for _, rid := range st.Rails {
		r := &n.railroads[rid]
		if r.Active {
			out = append(out, r.Other(id))
		}
	}
	return out
}

// railBuildable reports whether a railroad may cross the tile.
func (n *Network) railBuildable(t world.Tile) bool {
	return n.grid.Terrain(t) == world.TerrainPlains
}

// ConnectStation wires a freshly registered station into the network:
// nearby stations are scanned closest-first and a railroad is laid toward
// each candidate that is not already cheaply reachable through the station
// graph. Clusters touched by new railroads absorb the station and are merged
// with one another; with no connection the station founds a singleton
// cluster.
func (n *Network) ConnectStation(id StationID) {
	st := n.reg.Get(id)
	if st == nil || !st.Active {
		return
	}

	type candidate struct {
		id   StationID
		dist float64
	}
	var candidates []candidate
	for _, other := range n.reg.Active() {
		if other == id {
			continue
		}
		d := world.EuclideanDist(st.Tile, n.reg.Get(other).Tile)
		if d <= n.cfg.TrainStationMaxRange {
			candidates = append(candidates, candidate{id: other, dist: d})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	for _, c := range candidates {
		cand := n.reg.Get(c.id)
		if cand.Cluster == NoCluster {
			continue
		}

		// Skip short-circuit links: the candidate is already close by rail.
		hops := n.hopDistance(id, c.id, n.cfg.MaxConnectionDistance)
		if c.dist <= n.cfg.TrainStationMinRange {
			continue
		}
		if hops != -1 && hops <= n.cfg.MaxConnectionDistance {
			continue
		}

		if !n.buildRailroad(id, c.id) {
			continue
		}

		// Absorb into the candidate's cluster, merging if the station already
		// sits in a different one.
		if st.Cluster == NoCluster {
			n.addToCluster(id, cand.Cluster)
		} else if st.Cluster != cand.Cluster {
			n.mergeClusters(st.Cluster, cand.Cluster)
		}
	}

	if st.Cluster == NoCluster {
		n.addToCluster(id, n.newCluster())
	}
}

// RemoveStation deletes the station wrapping unit along with its railroads,
// re-clustering the remainder. This is the only point where clusters split.
func (n *Network) RemoveStation(unit game.UnitID) {
	st := n.reg.ByUnit(unit)
	if st == nil || !st.Active {
		return
	}

	neighbors := n.Neighbors(st.ID)

	for _, rid := range st.Rails {
		r := &n.railroads[rid]
		if !r.Active {
			continue
		}
		r.Active = false
		other := n.reg.Get(r.Other(st.ID))
		other.Rails = removeRail(other.Rails, rid)
	}
	st.Rails = nil

	old := st.Cluster
	if old != NoCluster {
		delete(n.clusters[old].Stations, st.ID)
	}
	st.Cluster = NoCluster
	st.Active = false
	n.reg.drop(st)

	switch {
	case len(neighbors) == 0:
		// Isolated station: its singleton cluster dies with it.
		if old != NoCluster && len(n.clusters[old].Stations) == 0 {
			n.clusters[old].Active = false
		}
	case len(neighbors) > 1:
		// The station was a hub; the remainder may have fallen apart.
		n.reclusterComponents(old, neighbors)
	}
}

// reclusterComponents dissolves the old cluster and rebuilds one cluster per
// connected component found from the former neighbors.
func (n *Network) reclusterComponents(old ClusterID, seeds []StationID) {
	if old != NoCluster {
		for sid := range n.clusters[old].Stations {
			n.reg.Get(sid).Cluster = NoCluster
		}
		n.clusters[old].Stations = make(map[StationID]struct{})
		n.clusters[old].Active = false
	}

	for _, seed := range seeds {
		if n.reg.Get(seed).Cluster != NoCluster {
			continue // already absorbed by an earlier component
		}
		cl := n.newCluster()
		queue := []StationID{seed}
		n.addToCluster(seed, cl)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nb := range n.Neighbors(cur) {
				if n.reg.Get(nb).Cluster == cl {
					continue
				}
				n.addToCluster(nb, cl)
				queue = append(queue, nb)
			}
		}
	}
	slog.Debug("recluster complete", "seeds", len(seeds))
}

// buildRailroad lays a tile path between two stations. Refused when the pair
// is already linked, no rail-buildable path exists, or the path is too long.
func (n *Network) buildRailroad(a, b StationID) bool {
	if n.RailroadBetween(a, b) != nil {
		return false
	}

	sa, sb := n.reg.Get(a), n.reg.Get(b)
	graph := pathfind.GridGraph{Grid: n.grid, Passable: n.railBuildable}
	opts := pathfind.Options{
		Iterations:  n.cfg.PathIterations,
		MaxTries:    n.cfg.PathMaxTries,
		TurnPenalty: 1,
	}
	nodes, res := pathfind.FindPath(graph, []int{n.grid.Index(sa.Tile)}, n.grid.Index(sb.Tile), opts)
	if res != pathfind.Completed {
		return false
	}
	if len(nodes) >= n.cfg.RailroadMaxSize {
		return false
	}

	path := make([]world.Tile, len(nodes))
	for i, node := range nodes {
		path[i] = n.grid.TileAt(node)
	}

	rid := RailroadID(len(n.railroads))
	n.railroads = append(n.railroads, Railroad{ID: rid, A: a, B: b, Path: path, Active: true})
	sa.Rails = append(sa.Rails, rid)
	sb.Rails = append(sb.Rails, rid)

	if n.OnRailroadBuilt != nil {
		n.OnRailroadBuilt(&n.railroads[rid])
	}
	return true
}

// hopDistance returns the number of railroad edges between two stations,
// or -1 when b is not reachable within limit hops.
func (n *Network) hopDistance(a, b StationID, limit int) int {
	if a == b {
		return 0
	}
	depth := map[StationID]int{a: 0}
	queue := []StationID{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		d := depth[cur]
		if d >= limit {
			continue
		}
		for _, nb := range n.Neighbors(cur) {
			if _, seen := depth[nb]; seen {
				continue
			}
			if nb == b {
				return d + 1
			}
			depth[nb] = d + 1
			queue = append(queue, nb)
		}
	}
	return -1
}

func (n *Network) newCluster() ClusterID {
	id := ClusterID(len(n.clusters))
	n.clusters = append(n.clusters, Cluster{
		ID:       id,
		Stations: make(map[StationID]struct{}),
		Active:   true,
	})
	return id
}

func (n *Network) addToCluster(sid StationID, cid ClusterID) {
	st := n.reg.Get(sid)
	if st.Cluster == cid {
		return
	}
	if st.Cluster != NoCluster {
		delete(n.clusters[st.Cluster].Stations, sid)
	}
	st.Cluster = cid
	n.clusters[cid].Stations[sid] = struct{}{}
}

// mergeClusters folds src into dst and retires src.
func (n *Network) mergeClusters(dst, src ClusterID) {
	if dst == src {
		return
	}
	for sid := range n.clusters[src].Stations {
		n.reg.Get(sid).Cluster = dst
		n.clusters[dst].Stations[sid] = struct{}{}
	}
	n.clusters[src].Stations = make(map[StationID]struct{})
	n.clusters[src].Active = false
}

// ClusterStations returns the station IDs of a cluster.
func (n *Network) ClusterStations(id ClusterID) []StationID {
	cl := n.Cluster(id)
	if cl == nil || !cl.Active {
		return nil
	}
	out := make([]StationID, 0, len(cl.Stations))
	for sid := range cl.Stations {
		out = append(out, sid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ActiveClusters returns the IDs of live clusters.
func (n *Network) ActiveClusters() []ClusterID {
	var out []ClusterID
	for i := range n.clusters {
		if n.clusters[i].Active {
			out = append(out, n.clusters[i].ID)
		}
	}
	return out
}

// stationGraph adapts the station adjacency to the pathfinder. Edges carry
// no heading, so turn penalties never apply; cost is one hop.
type stationGraph struct{ n *Network }

func (g stationGraph) Neighbors(node int, buf []pathfind.Edge) []pathfind.Edge {
	for _, nb := range g.n.Neighbors(StationID(node)) {
		buf = append(buf, pathfind.Edge{To: int(nb), Cost: 1, Dir: pathfind.NoDirection})
	}
	return buf
}

func (g stationGraph) Heuristic(from, to int) float64 { return 0 }

// StationPath returns the hop-by-hop station route from src to dst, or nil
// when the stations are not connected. Both endpoints are included.
func (n *Network) StationPath(src, dst StationID) []StationID {
	if n.reg.Get(src) == nil || n.reg.Get(dst) == nil {
		return nil
	}
	opts := pathfind.Options{
		Iterations:  n.cfg.PathIterations,
		MaxTries:    n.cfg.PathMaxTries,
		TurnPenalty: 0,
	}
	nodes, res := pathfind.FindPath(stationGraph{n: n}, []int{int(src)}, int(dst), opts)
	if res != pathfind.Completed {
		return nil
	}
	out := make([]StationID, len(nodes))
	for i, node := range nodes {
		out[i] = StationID(node)
	}
	return out
}

func removeRail(rails []RailroadID, rid RailroadID) []RailroadID {
	out := rails[:0]
	for _, r := range rails {
		if r != rid {
			out = append(out, r)
		}
	}
	return out
}
