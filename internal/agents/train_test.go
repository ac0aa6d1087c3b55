package agents

import (
	"testing"

	"github.com/arlott/railfront/internal/econ"
	"github.com/arlott/railfront/internal/game"
	"github.com/arlott/railfront/internal/rail"
	"github.com/arlott/railfront/internal/world"
)

// testEnv builds a small world: a land band on top (rail country) over a sea
// band below it, with two players and an empty network.
func testEnv(t *testing.T) (*Env, map[game.PlayerID]*game.Player) {
	t.Helper()

	grid := world.NewGrid(120, 30)
	for y := 0; y < 30; y++ {
		for x := 0; x < 120; x++ {
			terr := world.TerrainPlains
			if y >= 18 {
				terr = world.TerrainOcean
			}
			grid.SetTerrain(world.Tile{X: x, Y: y}, terr)
		}
	}
	grid.DeriveShores()

	players := map[game.PlayerID]*game.Player{
		1: game.NewPlayer(1, "Aldora", 10000),
		2: game.NewPlayer(2, "Borche", 10000),
		3: game.NewPlayer(3, "Cassel", 10000),
	}

	cfg := econ.DefaultConfig()
	env := &Env{
		Cfg:      cfg,
		Grid:     grid,
		Units:    game.NewUnits(grid),
		Net:      rail.NewNetwork(cfg, grid, rail.NewRegistry()),
		Player:   func(id game.PlayerID) *game.Player { return players[id] },
		Notifier: game.NopNotifier{},
	}
	return env, players
}

// buildStation places the structure unit and wires the station in.
func buildStation(t *testing.T, env *Env, owner game.PlayerID, kind rail.StationKind, tile world.Tile) rail.StationID {
	t.Helper()
	unitKind := game.UnitCity
	switch kind {
	case rail.StationPort:
		unitKind = game.UnitPort
	case rail.StationFactory:
		unitKind = game.UnitFactory
	}
	unit, ok := env.Units.Build(owner, unitKind, tile)
	if !ok {
		t.Fatalf("cannot build station at %v", tile)
	}
	id := env.Net.Registry().Add(kind, unit, owner, tile)
	env.Net.ConnectStation(id)
	return id
}

func runTrain(t *testing.T, env *Env, tr *Train, maxTicks int) {
	t.Helper()
	for i := 0; i < maxTicks && !tr.Done(); i++ {
		tr.Tick(env)
	}
}

func activeUnitCount(env *Env) int {
	count := 0
	env.Units.Each(func(*game.Unit) { count++ })
	return count
}

func TestFactoryToCityScenario(t *testing.T) {
	env, players := testEnv(t)

	// Factory and city within range: exactly one railroad, one cluster of 2.
	factory := buildStation(t, env, 1, rail.StationFactory, world.Tile{X: 10, Y: 10})
	city := buildStation(t, env, 2, rail.StationCity, world.Tile{X: 50, Y: 10})

	if env.Net.RailroadBetween(factory, city) == nil {
		t.Fatal("expected one railroad between factory and city")
	}
	fs := env.Net.Registry().Get(factory)
	if got := len(env.Net.ClusterStations(fs.Cluster)); got != 2 {
		t.Fatalf("cluster size = %d, want 2", got)
	}

	// City at level 2; a non-friendly stop pays (level+1) × 25000 to the
	// train owner only.
	env.Net.Registry().Get(city).Level = 2

	tr := NewTrain(env, 1, factory, city)
	if tr.State != TrainRouteAcquired {
		t.Fatalf("train state = %d, want route acquired", tr.State)
	}
	runTrain(t, env, tr, 100)

	if tr.State != TrainCompleted {
		t.Fatalf("train state = %d, want completed", tr.State)
	}
	wantGold := env.Cfg.TrainGold(false) * 3
	if players[1].Gold != wantGold {
		t.Errorf("train owner gold = %d, want %d", players[1].Gold, wantGold)
	}
	if players[2].Gold != 0 {
		t.Errorf("hostile station owner gold = %d, want 0", players[2].Gold)
	}
	if activeUnitCount(env) != 2 {
		t.Errorf("train units should be deleted after completion, %d active units remain", activeUnitCount(env))
	}
}

func TestFactoryStopIgnoresLevel(t *testing.T) {
	env, players := testEnv(t)

	factory := buildStation(t, env, 2, rail.StationFactory, world.Tile{X: 10, Y: 10})
	city := buildStation(t, env, 2, rail.StationCity, world.Tile{X: 50, Y: 10})
	env.Net.Registry().Get(factory).Level = 4

	// Hostile train from the city into the leveled factory: flat payout.
	tr := NewTrain(env, 1, city, factory)
	runTrain(t, env, tr, 100)

	if tr.State != TrainCompleted {
		t.Fatalf("train state = %d, want completed", tr.State)
	}
	if players[1].Gold != env.Cfg.TrainGold(false) {
		t.Errorf("factory stop gold = %d, want flat %d", players[1].Gold, env.Cfg.TrainGold(false))
	}
}

func TestFriendlyStopPaysBothInFull(t *testing.T) {
	env, players := testEnv(t)

	factory := buildStation(t, env, 1, rail.StationFactory, world.Tile{X: 10, Y: 10})
	city := buildStation(t, env, 2, rail.StationCity, world.Tile{X: 50, Y: 10})
	env.Net.Registry().Get(city).Level = 1
	game.Ally(players[1], players[2], 1_000_000)

	tr := NewTrain(env, 1, factory, city)
	runTrain(t, env, tr, 100)

	want := env.Cfg.TrainGold(true) * 2 // level 1 → ×2
	if players[1].Gold != want {
		t.Errorf("train owner gold = %d, want %d", players[1].Gold, want)
	}
	if players[2].Gold != want {
		t.Errorf("allied station owner gold = %d, want full %d (not split)", players[2].Gold, want)
	}
}

func TestTrainNeverSpawnsWithoutRoute(t *testing.T) {
	env, _ := testEnv(t)

	a := buildStation(t, env, 1, rail.StationCity, world.Tile{X: 10, Y: 10})
	// Out of connection range: no railroad, no route.
	b := buildStation(t, env, 1, rail.StationCity, world.Tile{X: 115, Y: 10})

	before := activeUnitCount(env)
	tr := NewTrain(env, 1, a, b)
	if tr.State != TrainDeleted {
		t.Fatalf("train state = %d, want deleted", tr.State)
	}
	if activeUnitCount(env) != before {
		t.Error("an unspawnable train must not leave units behind")
	}
}

func TestTrainUnitBudgetAndCarSpacing(t *testing.T) {
	env, _ := testEnv(t)

	a := buildStation(t, env, 1, rail.StationCity, world.Tile{X: 10, Y: 10})
	b := buildStation(t, env, 1, rail.StationCity, world.Tile{X: 80, Y: 10})

	before := activeUnitCount(env)
	tr := NewTrain(env, 1, a, b)
	spawned := activeUnitCount(env) - before
	if spawned != env.Cfg.NumCars+2 {
		t.Fatalf("train spawned %d units, want %d", spawned, env.Cfg.NumCars+2)
	}

	// Fill the visited buffer, then check the cars ride monotonically
	// increasing offsets behind the engine.
	for i := 0; i < 12; i++ {
		tr.Tick(env)
	}
	head := env.Units.Get(tr.engine).Tile
	prev := -1
	for _, car := range tr.cars {
		d := world.ManhattanDist(head, env.Units.Get(car).Tile)
		if d <= prev {
			t.Fatalf("car offsets not monotonically increasing: %d after %d", d, prev)
		}
		prev = d
	}
}

func TestTrainTearsDownOnStaleStation(t *testing.T) {
	env, _ := testEnv(t)

	a := buildStation(t, env, 1, rail.StationCity, world.Tile{X: 10, Y: 10})
	b := buildStation(t, env, 1, rail.StationCity, world.Tile{X: 80, Y: 10})

	tr := NewTrain(env, 1, a, b)
	tr.Tick(env)
	if tr.Done() {
		t.Fatal("train should still be traveling")
	}

	// Destination disappears between ticks.
	env.Net.RemoveStation(env.Net.Registry().Get(b).Unit)
	tr.Tick(env)

	if tr.State != TrainDeleted {
		t.Fatalf("train state = %d, want deleted after stale station", tr.State)
	}
	// Both structure units survive; only the train's own units are deleted.
	if activeUnitCount(env) != 2 {
		t.Errorf("stale teardown left %d active units, want 2", activeUnitCount(env))
	}
}
