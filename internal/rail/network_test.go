package rail

import (
	"testing"

	"github.com/arlott/railfront/internal/econ"
	"github.com/arlott/railfront/internal/game"
	"github.com/arlott/railfront/internal/world"
)

func testNetwork(w, h int) *Network {
	g := world.NewGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.SetTerrain(world.Tile{X: x, Y: y}, world.TerrainPlains)
		}
	}
	return NewNetwork(econ.DefaultConfig(), g, NewRegistry())
}

var nextUnit game.UnitID

func addStation(n *Network, kind StationKind, tile world.Tile) StationID {
	nextUnit++
	id := n.Registry().Add(kind, nextUnit, game.PlayerID(1), tile)
	n.ConnectStation(id)
	return id
}

// checkPartition asserts the cluster invariant: active stations belong to
// exactly one active cluster, cluster sets are disjoint, and every railroad
// connects stations of the same cluster.
func checkPartition(t *testing.T, n *Network) {
	t.Helper()

	seen := make(map[StationID]ClusterID)
	for _, cid := range n.ActiveClusters() {
		for _, sid := range n.ClusterStations(cid) {
			if prev, dup := seen[sid]; dup {
				t.Fatalf("station %d in clusters %d and %d", sid, prev, cid)
			}
			seen[sid] = cid
			if n.Registry().Get(sid).Cluster != cid {
				t.Fatalf("station %d membership index disagrees with cluster set", sid)
			}
		}
	}
	for _, sid := range n.Registry().Active() {
		if _, ok := seen[sid]; !ok {
			t.Fatalf("active station %d not in any cluster", sid)
		}
	}
	for i := range n.railroads {
		r := &n.railroads[i]
		if !r.Active {
			continue
		}
		if n.Registry().Get(r.A).Cluster != n.Registry().Get(r.B).Cluster {
			t.Fatalf("railroad %d bridges two clusters", r.ID)
		}
	}
}

func activeRailCount(n *Network) int {
	count := 0
	for i := range n.railroads {
		if n.railroads[i].Active {
			count++
		}
	}
	return count
}

func TestConnectTwoStationsInRange(t *testing.T) {
	n := testNetwork(120, 20)
	a := addStation(n, StationFactory, world.Tile{X: 10, Y: 10})
	b := addStation(n, StationCity, world.Tile{X: 50, Y: 10})

	if n.RailroadBetween(a, b) == nil {
		t.Fatal("expected a railroad between the two stations")
	}
	if activeRailCount(n) != 1 {
		t.Fatalf("expected exactly one railroad, got %d", activeRailCount(n))
	}
	if n.Registry().Get(a).Cluster != n.Registry().Get(b).Cluster {
		t.Fatal("stations should share one cluster")
	}
	if got := len(n.ClusterStations(n.Registry().Get(a).Cluster)); got != 2 {
		t.Fatalf("cluster size = %d, want 2", got)
	}
	checkPartition(t, n)
}

func TestConnectIsIdempotent(t *testing.T) {
	n := testNetwork(120, 20)
	a := addStation(n, StationCity, world.Tile{X: 10, Y: 10})
	b := addStation(n, StationCity, world.Tile{X: 50, Y: 10})

	n.ConnectStation(b)
	n.ConnectStation(a)

	if activeRailCount(n) != 1 {
		t.Fatalf("reconnect created duplicate railroads: %d", activeRailCount(n))
	}
	checkPartition(t, n)
}

func TestTooCloseStationsStaySeparate(t *testing.T) {
	n := testNetwork(120, 20)
	// 10 < TrainStationMinRange, so no physical connection is allowed.
	a := addStation(n, StationCity, world.Tile{X: 10, Y: 10})
	b := addStation(n, StationCity, world.Tile{X: 20, Y: 10})

	if activeRailCount(n) != 0 {
		t.Fatal("stations inside min range must not connect")
	}
	if n.Registry().Get(a).Cluster == n.Registry().Get(b).Cluster {
		t.Fatal("unconnected stations should found separate clusters")
	}
	checkPartition(t, n)
}

func TestOutOfRangeStationFoundsSingleton(t *testing.T) {
	n := testNetwork(300, 20)
	a := addStation(n, StationCity, world.Tile{X: 10, Y: 10})
	b := addStation(n, StationCity, world.Tile{X: 250, Y: 10})

	if activeRailCount(n) != 0 {
		t.Fatal("out-of-range stations must not connect")
	}
	for _, id := range []StationID{a, b} {
		cl := n.Registry().Get(id).Cluster
		if got := len(n.ClusterStations(cl)); got != 1 {
			t.Fatalf("station %d cluster size = %d, want singleton", id, got)
		}
	}
	checkPartition(t, n)
}

func TestHopDistanceGatePreventsShortCircuits(t *testing.T) {
	n := testNetwork(200, 20)
	addStation(n, StationCity, world.Tile{X: 10, Y: 10})
	addStation(n, StationCity, world.Tile{X: 40, Y: 10})
	c := addStation(n, StationCity, world.Tile{X: 70, Y: 10})

	// C is within range of both A and B, but once the B–C railroad exists,
	// A is two hops away — well under the connection cap — so no direct
	// A–C link is laid.
	if activeRailCount(n) != 2 {
		t.Fatalf("expected a chain of 2 railroads, got %d", activeRailCount(n))
	}
	if got := len(n.ClusterStations(n.Registry().Get(c).Cluster)); got != 3 {
		t.Fatalf("cluster size = %d, want 3", got)
	}
	checkPartition(t, n)
}

func TestConnectMergesClusters(t *testing.T) {
	n := testNetwork(300, 20)
	a := addStation(n, StationCity, world.Tile{X: 10, Y: 10})
	b := addStation(n, StationCity, world.Tile{X: 190, Y: 10})

	if n.Registry().Get(a).Cluster == n.Registry().Get(b).Cluster {
		t.Fatal("setup: clusters should start separate")
	}

	// The middle station reaches both and must merge the two clusters.
	m := addStation(n, StationCity, world.Tile{X: 100, Y: 10})
	if n.Registry().Get(a).Cluster != n.Registry().Get(b).Cluster ||
		n.Registry().Get(a).Cluster != n.Registry().Get(m).Cluster {
		t.Fatal("middle station should merge both clusters into one")
	}
	if got := len(n.ClusterStations(n.Registry().Get(m).Cluster)); got != 3 {
		t.Fatalf("merged cluster size = %d, want 3", got)
	}
	checkPartition(t, n)
}

func TestRemoveLeafStationKeepsCluster(t *testing.T) {
	n := testNetwork(200, 20)
	a := addStation(n, StationCity, world.Tile{X: 10, Y: 10})
	b := addStation(n, StationCity, world.Tile{X: 40, Y: 10})
	c := addStation(n, StationCity, world.Tile{X: 70, Y: 10})

	n.RemoveStation(n.Registry().Get(c).Unit)

	if n.Registry().Get(c).Active {
		t.Fatal("removed station should be inactive")
	}
	cl := n.Registry().Get(a).Cluster
	if got := len(n.ClusterStations(cl)); got != 2 {
		t.Fatalf("cluster size after leaf removal = %d, want 2", got)
	}
	if n.Registry().Get(b).Cluster != cl {
		t.Fatal("survivors should stay in one cluster")
	}
	checkPartition(t, n)
}

func TestRemoveIsolatedStationDeletesCluster(t *testing.T) {
	n := testNetwork(100, 20)
	a := addStation(n, StationCity, world.Tile{X: 10, Y: 10})
	before := len(n.ActiveClusters())

	n.RemoveStation(n.Registry().Get(a).Unit)

	if got := len(n.ActiveClusters()); got != before-1 {
		t.Fatalf("active clusters = %d, want %d", got, before-1)
	}
	checkPartition(t, n)
}

func TestRemoveHubSplitsCluster(t *testing.T) {
	n := testNetwork(300, 300)
	// A hub with two far-apart arms: removing the hub must split the
	// remainder into two clusters.
	left := addStation(n, StationCity, world.Tile{X: 10, Y: 150})
	hub := addStation(n, StationCity, world.Tile{X: 100, Y: 150})
	right := addStation(n, StationCity, world.Tile{X: 190, Y: 150})

	if n.Registry().Get(left).Cluster != n.Registry().Get(right).Cluster {
		t.Fatal("setup: all three should share a cluster")
	}

	n.RemoveStation(n.Registry().Get(hub).Unit)

	if n.Registry().Get(left).Cluster == n.Registry().Get(right).Cluster {
		t.Fatal("hub removal should split the cluster")
	}
	for _, id := range []StationID{left, right} {
		if got := len(n.ClusterStations(n.Registry().Get(id).Cluster)); got != 1 {
			t.Fatalf("post-split cluster size = %d, want 1", got)
		}
	}
	checkPartition(t, n)
}

func TestRailroadRejectedWhenTooLong(t *testing.T) {
	n := testNetwork(200, 20)
	// Just inside connection range, but the tile path would need at least
	// 100 tiles, which is over the railroad size cap.
	a := addStation(n, StationCity, world.Tile{X: 10, Y: 10})
	b := addStation(n, StationCity, world.Tile{X: 109, Y: 10})

	if activeRailCount(n) != 0 {
		t.Fatal("railroad at the size cap must be rejected")
	}
	if n.Registry().Get(a).Cluster == n.Registry().Get(b).Cluster {
		t.Fatal("unconnectable stations should stay in separate clusters")
	}
	checkPartition(t, n)
}

func TestRailroadRejectedWithoutLandPath(t *testing.T) {
	n := testNetwork(120, 20)
	// A water channel between the stations blocks rail construction.
	for y := 0; y < 20; y++ {
		n.grid.SetTerrain(world.Tile{X: 30, Y: y}, world.TerrainOcean)
	}
	a := addStation(n, StationCity, world.Tile{X: 10, Y: 10})
	b := addStation(n, StationCity, world.Tile{X: 50, Y: 10})

	if activeRailCount(n) != 0 {
		t.Fatal("no railroad should cross water")
	}
	if n.Registry().Get(a).Cluster == n.Registry().Get(b).Cluster {
		t.Fatal("blocked stations should stay in separate clusters")
	}
	checkPartition(t, n)
}

func TestStationPathFollowsChain(t *testing.T) {
	n := testNetwork(220, 20)
	a := addStation(n, StationCity, world.Tile{X: 10, Y: 10})
	b := addStation(n, StationCity, world.Tile{X: 40, Y: 10})
	c := addStation(n, StationCity, world.Tile{X: 70, Y: 10})
	d := addStation(n, StationCity, world.Tile{X: 100, Y: 10})

	path := n.StationPath(a, d)
	want := []StationID{a, b, c, d}
	if len(path) != len(want) {
		t.Fatalf("path = %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("path = %v, want %v", path, want)
		}
	}

	// Disconnected stations yield no path.
	lone := addStation(n, StationCity, world.Tile{X: 210, Y: 10})
	if got := n.StationPath(a, lone); got != nil {
		t.Fatalf("disconnected path = %v, want nil", got)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	n := testNetwork(200, 20)
	addStation(n, StationFactory, world.Tile{X: 10, Y: 10})
	addStation(n, StationCity, world.Tile{X: 40, Y: 10})
	addStation(n, StationPort, world.Tile{X: 70, Y: 10})

	snap := n.Snapshot()

	restored := testNetwork(200, 20)
	restored.Restore(snap)

	if len(restored.Registry().Active()) != 3 {
		t.Fatal("restore lost stations")
	}
	if activeRailCount(restored) != activeRailCount(n) {
		t.Fatal("restore lost railroads")
	}
	if len(restored.ActiveClusters()) != len(n.ActiveClusters()) {
		t.Fatal("restore changed the cluster count")
	}
	checkPartition(t, restored)
}

func TestPartitionSurvivesChurn(t *testing.T) {
	n := testNetwork(400, 400)

	tiles := []world.Tile{
		{X: 50, Y: 50}, {X: 90, Y: 50}, {X: 130, Y: 50},
		{X: 50, Y: 120}, {X: 90, Y: 120}, {X: 130, Y: 120},
		{X: 300, Y: 300}, {X: 340, Y: 300},
	}
	var ids []StationID
	for _, tile := range tiles {
		ids = append(ids, addStation(n, StationCity, tile))
		checkPartition(t, n)
	}

	// Remove in an order that exercises leaf, hub, and isolated cases.
	for _, i := range []int{1, 4, 0, 7, 2, 6, 3, 5} {
		n.RemoveStation(n.Registry().Get(ids[i]).Unit)
		checkPartition(t, n)
	}
	if got := len(n.ActiveClusters()); got != 0 {
		t.Fatalf("all stations removed but %d clusters remain", got)
	}
}
