// Simulation ties the world, the rail network, and the economic agents
// together and runs them each tick.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"

	"github.com/arlott/railfront/internal/agents"
	"github.com/arlott/railfront/internal/econ"
	"github.com/arlott/railfront/internal/game"
	"github.com/arlott/railfront/internal/rail"
	"github.com/arlott/railfront/internal/world"
)

// maxEvents bounds the in-memory display event log.
const maxEvents = 1000

// PlayerDelta is the per-tick change of a player's balances, kept for the
// observation dashboards.
type PlayerDelta struct {
	Player game.PlayerID `json:"player"`
	Gold   int64         `json:"gold"`
	Troops float64       `json:"troops"`
}

// Simulation holds the complete world state and wires systems together.
// All mutation happens inside TickOnce on the engine goroutine; readers
// use the snapshot accessors.
type Simulation struct {
	mu sync.RWMutex

	Cfg     econ.Config
	Grid    *world.Grid
	Units   *game.Units
	Net     *rail.Network
	Players map[game.PlayerID]*game.Player

	Trains []*agents.Train
	Ships  []*agents.TradeShip

	Events   []game.Event
	LastTick uint64

	deltas map[game.PlayerID]*PlayerDelta
	rng    *rand.Rand
	env    *agents.Env

	// Broadcast receives every display event, if set (websocket hub).
	Broadcast func(game.Event)
}

// NewSimulation assembles a world from its parts. The seed fixes every
// spawn roll, so two simulations with identical inputs replay identically.
func NewSimulation(cfg econ.Config, grid *world.Grid, players map[game.PlayerID]*game.Player, seed int64) *Simulation {
	s := &Simulation{
		Cfg:     cfg,
		Grid:    grid,
		Units:   game.NewUnits(grid),
		Players: players,
		deltas:  make(map[game.PlayerID]*PlayerDelta),
		rng:     rand.New(rand.NewSource(seed)),
	}
	s.Net = rail.NewNetwork(cfg, grid, rail.NewRegistry())
	s.Net.OnRailroadBuilt = func(r *rail.Railroad) {
		a, b := s.Net.Registry().Get(r.A), s.Net.Registry().Get(r.B)
		s.Notify(game.Event{
			Tick:     s.LastTick,
			Category: "rail",
			Message:  fmt.Sprintf("railroad built: %s to %s, %d tiles", rail.KindName(a.Kind), rail.KindName(b.Kind), len(r.Path)),
			Player:   a.Owner,
		})
	}
	s.env = &agents.Env{
		Cfg:      cfg,
		Grid:     grid,
		Units:    s.Units,
		Net:      s.Net,
		Player:   s.player,
		Notifier: s,
		OnCredit: func(pid game.PlayerID, amount uint64) {
			s.delta(pid).Gold += int64(amount)
		},
	}
	return s
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastTick
}

func (s *Simulation) player(id game.PlayerID) *game.Player {
	return s.Players[id]
}

func (s *Simulation) delta(id game.PlayerID) *PlayerDelta {
	d, ok := s.deltas[id]
	if !ok {
		d = &PlayerDelta{Player: id}
		s.deltas[id] = d
	}
	return d
}

// Notify implements game.Notifier: events are appended to a bounded log and
// fanned out to the broadcast hook.
func (s *Simulation) Notify(ev game.Event) {
	s.Events = append(s.Events, ev)
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
	if s.Broadcast != nil {
		s.Broadcast(ev)
	}
}

// TickOnce advances the whole world by one tick: spawn rolls, agent moves,
// then the per-player economy pass. The order is fixed; nothing else may
// mutate shared state while it runs.
func (s *Simulation) TickOnce(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastTick = tick
	s.env.Tick = tick
	for _, d := range s.deltas {
		d.Gold, d.Troops = 0, 0
	}

	s.spawnAgents()

	for _, t := range s.Trains {
		t.Tick(s.env)
	}
	for _, sh := range s.Ships {
		sh.Tick(s.env)
	}
	s.sweepAgents()

	for _, id := range s.playerOrder() {
		s.playerEconomyTick(s.Players[id], tick)
	}
}

// playerOrder fixes the economy pass order; map iteration would make ticks
// replay differently run to run.
func (s *Simulation) playerOrder() []game.PlayerID {
	ids := make([]game.PlayerID, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BuildStation constructs a station unit for a player, charging the
// doubling unit cost, and wires it into the rail network.
func (s *Simulation) BuildStation(owner game.PlayerID, kind rail.StationKind, tile world.Tile) (rail.StationID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildStation(owner, kind, tile)
}

func (s *Simulation) buildStation(owner game.PlayerID, kind rail.StationKind, tile world.Tile) (rail.StationID, error) {
	p := s.player(owner)
	if p == nil || !p.Alive {
		return rail.NoStation, fmt.Errorf("build station: no live player %d", owner)
	}

	unitKind := game.UnitCity
	switch kind {
	case rail.StationPort:
		unitKind = game.UnitPort
	case rail.StationFactory:
		unitKind = game.UnitFactory
	}

	cost := s.Cfg.UnitCost(s.Units.CountKind(unitKind, owner))
	if !p.RemoveGold(cost) {
		return rail.NoStation, fmt.Errorf("build station: player %d cannot afford %d gold", owner, cost)
	}

	unit, ok := s.Units.Build(owner, unitKind, tile)
	if !ok {
		p.AddGold(cost) // refund
		slog.Warn("station build failed", "player", owner, "kind", rail.KindName(kind), "tile", tile)
		return rail.NoStation, fmt.Errorf("build station: cannot place %s at %v", rail.KindName(kind), tile)
	}

	id := s.Net.Registry().Add(kind, unit, owner, tile)
	s.Net.ConnectStation(id)
	return id, nil
}

// DemolishStation removes a station and its unit from the world.
func (s *Simulation) DemolishStation(unit game.UnitID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Net.RemoveStation(unit)
	s.Units.Delete(unit)
}

// SpawnTrain launches a train between two stations outside the random
// spawn rolls, reporting whether it spawned.
func (s *Simulation) SpawnTrain(owner game.PlayerID, src, dst rail.StationID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.Trains)
	s.spawnTrain(owner, src, dst)
	return len(s.Trains) > before
}

// SpawnShip launches a trade ship between two ports outside the random
// spawn rolls, reporting whether it spawned.
func (s *Simulation) SpawnShip(src, dst rail.StationID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.Ships)
	s.spawnShip(src, dst)
	return len(s.Ships) > before
}

// spawnAgents rolls the per-station spawn chances. Any station may launch a
// train toward a random station elsewhere in its cluster; ports additionally
// roll for trade ships toward a foreign port.
func (s *Simulation) spawnAgents() {
	ports := s.activePorts()

	for _, sid := range s.Net.Registry().Active() {
		st := s.Net.Registry().Get(sid)
		cluster := s.Net.ClusterStations(st.Cluster)

		if len(cluster) > 1 && s.chance(s.Cfg.TrainSpawnRate(len(cluster))) {
			if dst, ok := s.pickOther(cluster, sid); ok {
				s.spawnTrain(st.Owner, sid, dst)
			}
		}

		if st.Kind == rail.StationPort && s.chance(s.Cfg.TradeShipSpawnRate(len(s.Ships))) {
			if dst, ok := s.pickTradeTarget(ports, st); ok {
				s.spawnShip(sid, dst)
			}
		}
	}
}

func (s *Simulation) spawnTrain(owner game.PlayerID, src, dst rail.StationID) {
	t := agents.NewTrain(s.env, owner, src, dst)
	if !t.Done() {
		s.Trains = append(s.Trains, t)
	}
}

func (s *Simulation) spawnShip(src, dst rail.StationID) {
	sh := agents.NewTradeShip(s.env, src, dst)
	if !sh.Done() {
		s.Ships = append(s.Ships, sh)
	}
}

// chance rolls a spawn rate against the shared scale.
func (s *Simulation) chance(rate int) bool {
	return s.rng.Intn(econ.ChanceScale) < rate
}

func (s *Simulation) activePorts() []rail.StationID {
	var ports []rail.StationID
	for _, sid := range s.Net.Registry().Active() {
		if s.Net.Registry().Get(sid).Kind == rail.StationPort {
			ports = append(ports, sid)
		}
	}
	return ports
}

// pickOther picks a random cluster member other than src.
func (s *Simulation) pickOther(cluster []rail.StationID, src rail.StationID) (rail.StationID, bool) {
	candidates := cluster[:0:0]
	for _, sid := range cluster {
		if sid != src {
			candidates = append(candidates, sid)
		}
	}
	if len(candidates) == 0 {
		return rail.NoStation, false
	}
	return candidates[s.rng.Intn(len(candidates))], true
}

// pickTradeTarget picks a random foreign port the owner may legally trade
// with.
func (s *Simulation) pickTradeTarget(ports []rail.StationID, src *rail.Station) (rail.StationID, bool) {
	owner := s.player(src.Owner)
	var candidates []rail.StationID
	for _, sid := range ports {
		st := s.Net.Registry().Get(sid)
		if st.Owner == src.Owner {
			continue
		}
		if owner != nil && !owner.CanTradeWith(s.player(st.Owner)) {
			continue
		}
		candidates = append(candidates, sid)
	}
	if len(candidates) == 0 {
		return rail.NoStation, false
	}
	return candidates[s.rng.Intn(len(candidates))], true
}

// sweepAgents drops completed and deleted agents from the live slices.
func (s *Simulation) sweepAgents() {
	live := s.Trains[:0]
	for _, t := range s.Trains {
		if !t.Done() {
			live = append(live, t)
		}
	}
	s.Trains = live

	liveShips := s.Ships[:0]
	for _, sh := range s.Ships {
		if !sh.Done() {
			liveShips = append(liveShips, sh)
		}
	}
	s.Ships = liveShips
}

// AgentCounts reports the live train and ship counts.
func (s *Simulation) AgentCounts() (trains, ships int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Trains), len(s.Ships)
}

// Deltas returns a copy of the last tick's per-player balance changes.
func (s *Simulation) Deltas() []PlayerDelta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PlayerDelta, 0, len(s.deltas))
	for _, d := range s.deltas {
		out = append(out, *d)
	}
	return out
}

// RecentEvents returns a copy of the trailing display events, newest last.
func (s *Simulation) RecentEvents(n int) []game.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.Events) {
		n = len(s.Events)
	}
	out := make([]game.Event, n)
	copy(out, s.Events[len(s.Events)-n:])
	return out
}

// Topology returns a value snapshot of the rail network.
func (s *Simulation) Topology() rail.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Net.Snapshot()
}

// PlayerList returns the players copied by value, ordered by ID.
func (s *Simulation) PlayerList() []game.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]game.Player, 0, len(s.Players))
	for _, p := range s.Players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
