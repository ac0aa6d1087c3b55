package agents

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/arlott/railfront/internal/game"
	"github.com/arlott/railfront/internal/rail"
	"github.com/arlott/railfront/internal/world"
)

// TrainState is the lifecycle phase of a train.
type TrainState uint8

const (
	TrainUninitialized TrainState = iota
	TrainRouteAcquired
	TrainTraveling
	TrainStopped
	TrainCompleted
	TrainDeleted
)

// Train is one engine, one cosmetic tail engine, and a fixed number of cargo
// cars advancing along railroad tile paths. The train exclusively owns its
// spawned units and deletes them when the route is exhausted or breaks.
type Train struct {
	ID    uuid.UUID
	Owner game.PlayerID
	State TrainState

	route []rail.StationID // stations still to traverse; route[0] is the last one reached
	from  rail.StationID   // station the active segment departs

	segPath []world.Tile // tile path of the active railroad segment
	segIdx  int          // current tile index along segPath

	engine game.UnitID
	tail   game.UnitID
	cars   []game.UnitID

	// visited buffers the most recent head tiles so trailing cars ride fixed
	// offsets behind the engine without per-car paths.
	visited []world.Tile
	loaded  bool
}

// NewTrain acquires a station route and spawns the train units at the source
// station. A route of fewer than 2 stations or a failed unit build means the
// train never spawns and the returned train is already in TrainDeleted.
func NewTrain(env *Env, owner game.PlayerID, src, dst rail.StationID) *Train {
	t := &Train{
		ID:     uuid.New(),
		Owner:  owner,
		State:  TrainUninitialized,
		from:   rail.NoStation,
		engine: game.NoUnit,
		tail:   game.NoUnit,
	}

	route := env.Net.StationPath(src, dst)
	if len(route) < 2 {
		t.State = TrainDeleted
		return t
	}

	start := env.Net.Registry().Get(src)
	if start == nil || !start.Active {
		t.State = TrainDeleted
		return t
	}

	if !t.spawnUnits(env, start.Tile) {
		slog.Warn("train build failed", "train", t.ID, "tile", start.Tile)
		t.deleteUnits(env)
		t.State = TrainDeleted
		return t
	}

	t.route = route
	t.State = TrainRouteAcquired
	return t
}

// spawnUnits builds engine, tail, and cargo cars at the start tile.
func (t *Train) spawnUnits(env *Env, at world.Tile) bool {
	var ok bool
	if t.engine, ok = env.Units.Build(t.Owner, game.UnitTrainEngine, at); !ok {
		return false
	}
	if t.tail, ok = env.Units.Build(t.Owner, game.UnitTrainEngine, at); !ok {
		return false
	}
	for i := 0; i < env.Cfg.NumCars; i++ {
		car, ok := env.Units.Build(t.Owner, game.UnitTrainCar, at)
		if !ok {
			return false
		}
		t.cars = append(t.cars, car)
	}
	return true
}

// Tick advances the train by one simulation step.
func (t *Train) Tick(env *Env) {
	switch t.State {
	case TrainCompleted, TrainDeleted, TrainUninitialized:
		return
	}

	if !t.healthy(env) {
		t.teardown(env)
		return
	}

	if t.State == TrainRouteAcquired || t.State == TrainStopped {
		if !t.spliceNextSegment(env) {
			t.teardown(env)
			return
		}
		t.State = TrainTraveling
	}

	for step := 0; step < env.Cfg.TrainSpeed; step++ {
		if t.segIdx+1 < len(t.segPath) {
			t.segIdx++
			t.advanceTo(env, t.segPath[t.segIdx])
			continue
		}
		// Segment exhausted: the next station is reached.
		t.arrive(env)
		return
	}
}

// healthy re-checks the stale references a tick may have invalidated.
func (t *Train) healthy(env *Env) bool {
	if !env.Units.IsActive(t.engine) {
		return false
	}
	from := env.Net.Registry().Get(t.from)
	if t.from != rail.NoStation && (from == nil || !from.Active) {
		return false
	}
	if len(t.route) > 0 {
		next := env.Net.Registry().Get(t.route[0])
		if next == nil || !next.Active {
			return false
		}
	}
	return true
}

// spliceNextSegment loads the tile path of the railroad toward the next
// station in the route. Returns false when the railroad is gone.
func (t *Train) spliceNextSegment(env *Env) bool {
	if len(t.route) < 2 {
		return false
	}
	from, next := t.route[0], t.route[1]
	r := env.Net.RailroadBetween(from, next)
	if r == nil {
		return false
	}

	t.segPath = r.Path
	if len(r.Path) > 0 && r.Path[0] != env.Net.Registry().Get(from).Tile {
		t.segPath = reverseTiles(r.Path)
	}
	t.segIdx = 0
	t.from = from
	t.route = t.route[1:]

	// Cargo loads exactly once, on the first departure.
	if !t.loaded {
		t.loaded = true
		for _, car := range t.cars {
			if u := env.Units.Get(car); u != nil {
				u.Loaded = true
			}
		}
	}
	return true
}

// advanceTo moves the engine one tile and drags tail and cars along the
// visited-tile buffer at fixed spacing offsets.
func (t *Train) advanceTo(env *Env, tile world.Tile) {
	env.Units.Move(t.engine, tile)

	keep := env.Cfg.NumCars*env.Cfg.CarSpacing + 3
	t.visited = append(t.visited, tile)
	if len(t.visited) > keep {
		t.visited = t.visited[len(t.visited)-keep:]
	}

	for i, car := range t.cars {
		offset := (i+1)*env.Cfg.CarSpacing + 2
		env.Units.Move(car, t.buffered(offset))
	}
	// The cosmetic tail engine rides the oldest buffered tile.
	env.Units.Move(t.tail, t.visited[0])
}

// buffered returns the tile offset steps behind the head, clamped to the
// oldest buffered tile while the buffer is still filling.
func (t *Train) buffered(offset int) world.Tile {
	idx := len(t.visited) - 1 - offset
	if idx < 0 {
		idx = 0
	}
	return t.visited[idx]
}

// arrive runs the stop handler at the reached station and either splices the
// next segment or completes the trip.
func (t *Train) arrive(env *Env) {
	st := env.Net.Registry().Get(t.route[0])
	if st == nil || !st.Active {
		t.teardown(env)
		return
	}

	t.distributeGold(env, st)

	if len(t.route) >= 2 {
		t.State = TrainStopped
		return
	}

	// Destination reached.
	for _, id := range t.allUnits() {
		if u := env.Units.Get(id); u != nil {
			u.TargetReached = true
		}
	}
	t.deleteUnits(env)
	t.State = TrainCompleted
}

// distributeGold pays the stop bonus. Cities and ports scale by station
// level; factories pay flat. A friendly stop pays the full amount to both
// the station owner and the train owner — deliberately not split.
func (t *Train) distributeGold(env *Env, st *rail.Station) {
	owner := env.Player(t.Owner)
	stOwner := env.Player(st.Owner)
	friendly := owner != nil && owner.FriendlyWith(stOwner)

	gold := env.Cfg.TrainGold(friendly)
	if st.Kind != rail.StationFactory {
		gold *= uint64(st.Level + 1)
	}

	env.Credit(t.Owner, gold)
	if friendly && st.Owner != t.Owner {
		env.Credit(st.Owner, gold)
	}

	env.Notify(game.Event{
		Tick:     env.Tick,
		Category: "rail",
		Message:  fmt.Sprintf("train stopped at %s, %d gold", rail.KindName(st.Kind), gold),
		Player:   t.Owner,
		Agent:    t.ID.String(),
	})
}

// teardown deletes all owned units; a train that cannot continue simply
// stops existing.
func (t *Train) teardown(env *Env) {
	t.deleteUnits(env)
	t.State = TrainDeleted
}

func (t *Train) deleteUnits(env *Env) {
	for _, id := range t.allUnits() {
		if id != game.NoUnit {
			env.Units.Delete(id)
		}
	}
}

func (t *Train) allUnits() []game.UnitID {
	out := make([]game.UnitID, 0, len(t.cars)+2)
	out = append(out, t.engine, t.tail)
	out = append(out, t.cars...)
	return out
}

// Done reports whether the train has left the simulation.
func (t *Train) Done() bool {
	return t.State == TrainCompleted || t.State == TrainDeleted
}

func reverseTiles(in []world.Tile) []world.Tile {
	out := make([]world.Tile, len(in))
	for i, t := range in {
		out[len(in)-1-i] = t
	}
	return out
}
