package persistence

import (
	"path/filepath"
	"testing"

	"github.com/arlott/railfront/internal/econ"
	"github.com/arlott/railfront/internal/game"
	"github.com/arlott/railfront/internal/rail"
	"github.com/arlott/railfront/internal/world"
)

func testGrid() *world.Grid {
	grid := world.NewGrid(64, 64)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			grid.SetTerrain(world.Tile{X: x, Y: y}, world.TerrainPlains)
		}
	}
	return grid
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "world.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPlayerRoundTrip(t *testing.T) {
	db := openTestDB(t)

	p := game.NewPlayer(1, "Aldora", 5000)
	p.Gold = 123456
	p.Troops = 42.5
	p.AddTile(world.Tile{X: 3, Y: 7})
	p.AddTile(world.Tile{X: 4, Y: 7})
	p.Alliances[2] = 900
	p.Embargoes[3] = 450

	dead := game.NewPlayer(2, "Borche", 5000)
	dead.Alive = false

	if err := db.SavePlayers([]game.Player{*p, *dead}); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := db.LoadPlayers()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d players, want 2", len(loaded))
	}

	got := loaded[1]
	if got.Name != "Aldora" || got.Gold != 123456 || got.Troops != 42.5 {
		t.Errorf("player fields mangled: %+v", got)
	}
	if !got.OwnsTile(world.Tile{X: 3, Y: 7}) || !got.OwnsTile(world.Tile{X: 4, Y: 7}) {
		t.Error("territory lost in round trip")
	}
	if got.Alliances[2] != 900 || got.Embargoes[3] != 450 {
		t.Error("relations lost in round trip")
	}
	if loaded[2].Alive {
		t.Error("dead player revived by round trip")
	}
}

func TestTopologyRoundTrip(t *testing.T) {
	db := openTestDB(t)

	snap := rail.Snapshot{
		Stations: []rail.StationSnap{
			{ID: 0, Kind: rail.StationFactory, Unit: 10, Owner: 1, Level: 2, Tile: world.Tile{X: 5, Y: 5}, Cluster: 0},
			{ID: 1, Kind: rail.StationCity, Unit: 11, Owner: 2, Level: 0, Tile: world.Tile{X: 40, Y: 5}, Cluster: 0},
		},
		Railroads: []rail.RailroadSnap{
			{A: 0, B: 1, Path: []world.Tile{{X: 5, Y: 5}, {X: 6, Y: 5}, {X: 7, Y: 5}}},
		},
	}

	if err := db.SaveTopology(snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := db.LoadTopology()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(got.Stations) != 2 || len(got.Railroads) != 1 {
		t.Fatalf("got %d stations, %d railroads", len(got.Stations), len(got.Railroads))
	}
	if got.Stations[0].Kind != rail.StationFactory || got.Stations[0].Tile != (world.Tile{X: 5, Y: 5}) {
		t.Errorf("station 0 mangled: %+v", got.Stations[0])
	}
	if len(got.Railroads[0].Path) != 3 || got.Railroads[0].Path[1] != (world.Tile{X: 6, Y: 5}) {
		t.Errorf("railroad path mangled: %+v", got.Railroads[0])
	}

	// Saved topology restores into a working network with clusters rebuilt.
	net := rail.NewNetwork(econ.DefaultConfig(), testGrid(), rail.NewRegistry())
	net.Restore(got)
	a := net.Registry().Get(0)
	b := net.Registry().Get(1)
	if a == nil || b == nil || a.Cluster != b.Cluster {
		t.Error("restored stations should share a cluster")
	}
}

func TestEventsAndMeta(t *testing.T) {
	db := openTestDB(t)

	events := []game.Event{
		{Tick: 1, Category: "rail", Message: "railroad built", Player: 1},
		{Tick: 2, Category: "trade", Message: "trade completed", Player: 2, Agent: "abc"},
	}
	if err := db.SaveEvents(events); err != nil {
		t.Fatalf("save events: %v", err)
	}

	got, err := db.RecentEvents(10)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(got) != 2 || got[0].Tick != 2 || got[0].Category != "trade" {
		t.Errorf("events mangled: %+v", got)
	}

	if err := db.SaveMeta("last_tick", "77"); err != nil {
		t.Fatalf("save meta: %v", err)
	}
	v, err := db.GetMeta("last_tick")
	if err != nil || v != "77" {
		t.Errorf("meta = %q, %v; want 77", v, err)
	}
}
