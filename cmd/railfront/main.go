// Command railfront runs the rail-network economic simulation.
package main

import (
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"

	"github.com/arlott/railfront/internal/api"
	"github.com/arlott/railfront/internal/econ"
	"github.com/arlott/railfront/internal/engine"
	"github.com/arlott/railfront/internal/game"
	"github.com/arlott/railfront/internal/persistence"
	"github.com/arlott/railfront/internal/rail"
	"github.com/arlott/railfront/internal/world"
)

func main() {
	var (
		seed     = flag.Int64("seed", 42, "world seed")
		dbPath   = flag.String("db", "data/railfront.db", "sqlite snapshot path")
		cfgPath  = flag.String("config", "railfront.yaml", "economy tunables file")
		apiPort  = flag.Int("port", 8080, "HTTP API port")
		speed    = flag.Float64("speed", 1.0, "tick speed multiplier")
		autosave = flag.Uint64("autosave", 600, "snapshot cadence in ticks (0 disables)")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("railfront — rail-network economic simulation")

	cfg, err := econ.Load(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "path", *cfgPath, "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(*dbPath), 0755)
	db, err := persistence.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", *dbPath)

	// ── World (always regenerated — deterministic from seed) ──────────
	slog.Info("generating world...")
	genCfg := world.DefaultGenConfig()
	genCfg.Seed = *seed
	grid := world.Generate(genCfg)

	for t, c := range world.TerrainCounts(grid) {
		slog.Info("terrain", "type", world.TerrainName(t), "count", c)
	}

	// ── Load or seed game state ───────────────────────────────────────
	players, err := db.LoadPlayers()
	if err != nil {
		slog.Error("failed to load players", "error", err)
		os.Exit(1)
	}

	var startTick uint64
	fresh := len(players) == 0
	if fresh {
		slog.Info("no saved state found, seeding new world")
		players = seedPlayers()
	} else {
		if tickStr, err := db.GetMeta("last_tick"); err == nil {
			if t, err := strconv.ParseUint(tickStr, 10, 64); err == nil {
				startTick = t
			}
		}
		slog.Info("world state restored", "players", len(players), "tick", startTick)
	}

	sim := engine.NewSimulation(cfg, grid, players, *seed)
	sim.LastTick = startTick

	if fresh {
		seedStations(sim, grid, *seed)
	} else {
		topo, err := db.LoadTopology()
		if err != nil {
			slog.Error("failed to load topology", "error", err)
			os.Exit(1)
		}
		// Structure units are not persisted; rebuild them before restoring
		// the topology so every station wraps a live unit again.
		for i := range topo.Stations {
			st := &topo.Stations[i]
			if unit, ok := sim.Units.Build(st.Owner, unitKindFor(st.Kind), st.Tile); ok {
				st.Unit = unit
			} else {
				slog.Warn("could not rebuild station unit", "station", st.ID, "tile", st.Tile)
			}
		}
		sim.Net.Restore(topo)
		slog.Info("topology restored",
			"stations", len(topo.Stations), "railroads", len(topo.Railroads))
	}

	// ── Engine + API ──────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Tick = startTick
	eng.Speed = *speed
	eng.AutosaveEvery = *autosave
	eng.OnTick = sim.TickOnce
	eng.OnAutosave = func(tick uint64) {
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("autosave failed", "tick", tick, "error", err)
		}
	}

	hub := api.NewHub()
	go hub.Run()
	sim.Broadcast = hub.Publish

	apiServer := &api.Server{Sim: sim, Eng: eng, Hub: hub, Port: *apiPort}
	apiServer.Start()

	// ── Run until signaled ────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		eng.Stop()
	}()

	eng.Run()

	if err := db.SaveWorldState(sim); err != nil {
		slog.Error("final save failed", "error", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete", "tick", eng.Tick)
}

func unitKindFor(kind rail.StationKind) game.UnitKind {
	switch kind {
	case rail.StationPort:
		return game.UnitPort
	case rail.StationFactory:
		return game.UnitFactory
	default:
		return game.UnitCity
	}
}

// seedPlayers builds the demo roster.
func seedPlayers() map[game.PlayerID]*game.Player {
	names := []string{"Aldora", "Borche", "Cassel", "Drava"}
	players := make(map[game.PlayerID]*game.Player, len(names))
	for i, name := range names {
		p := game.NewPlayer(game.PlayerID(i+1), name, 10000)
		p.AddGold(5_000_000)
		players[p.ID] = p
	}
	return players
}

// seedStations scatters starting stations over the generated continent so
// the spawn rolls have something to work with: cities and factories on
// plains, ports on coastal plains.
func seedStations(sim *engine.Simulation, grid *world.Grid, seed int64) {
	rng := rand.New(rand.NewSource(seed + 1))

	var plains, coast []world.Tile
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			t := world.Tile{X: x, Y: y}
			if grid.Terrain(t) != world.TerrainPlains {
				continue
			}
			coastal := false
			for _, n := range t.Neighbors() {
				if grid.IsWater(n) {
					coastal = true
					break
				}
			}
			if coastal {
				coast = append(coast, t)
			} else {
				plains = append(plains, t)
			}
		}
	}
	if len(plains) == 0 {
		slog.Warn("generated world has no open plains; skipping station seed")
		return
	}

	kinds := []rail.StationKind{
		rail.StationCity, rail.StationCity, rail.StationFactory,
		rail.StationCity, rail.StationFactory, rail.StationPort, rail.StationPort,
	}
	ids := make([]game.PlayerID, 0, len(sim.Players))
	for id := range sim.Players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		for _, kind := range kinds {
			pool := plains
			if kind == rail.StationPort {
				if len(coast) == 0 {
					continue
				}
				pool = coast
			}
			tile := pool[rng.Intn(len(pool))]
			if _, err := sim.BuildStation(id, kind, tile); err != nil {
				slog.Warn("station seed skipped", "player", id, "error", err)
			}
		}
	}

	topo := sim.Topology()
	slog.Info("world seeded",
		"stations", len(topo.Stations),
		"railroads", len(topo.Railroads),
		"clusters", len(topo.Clusters))
}
