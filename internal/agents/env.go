// Package agents implements the mobile economic agents: trains running the
// rail network and trade ships crossing water. Each agent is a per-tick
// state machine owned by the simulation.
package agents

import (
	"github.com/arlott/railfront/internal/econ"
	"github.com/arlott/railfront/internal/game"
	"github.com/arlott/railfront/internal/rail"
	"github.com/arlott/railfront/internal/world"
)

// Env is the slice of simulation state an agent tick may touch. The
// simulation fills it once and passes it to every agent, keeping agents free
// of back-references into the aggregate.
type Env struct {
	Cfg      econ.Config
	Grid     *world.Grid
	Units    *game.Units
	Net      *rail.Network
	Tick     uint64
	Player   func(game.PlayerID) *game.Player
	Notifier game.Notifier

	// OnCredit observes every gold credit for delta accounting. Optional.
	OnCredit func(game.PlayerID, uint64)
}

// Notify forwards a display event. Safe with a nil notifier.
func (e *Env) Notify(ev game.Event) {
	if e.Notifier != nil {
		e.Notifier.Notify(ev)
	}
}

// Credit pays gold to a player and reports it to the delta hook.
func (e *Env) Credit(pid game.PlayerID, amount uint64) {
	p := e.Player(pid)
	if p == nil {
		return
	}
	p.AddGold(amount)
	if e.OnCredit != nil {
		e.OnCredit(pid, amount)
	}
}

// PortCount counts the active ports a player owns.
func (e *Env) PortCount(pid game.PlayerID) int {
	count := 0
	for _, sid := range e.Net.Registry().Active() {
		st := e.Net.Registry().Get(sid)
		if st.Kind == rail.StationPort && st.Owner == pid {
			count++
		}
	}
	return count
}

// NearestShore returns a water tile adjacent to t, used as the sea-side
// anchor of a port. The boolean is false when the tile has no water
// neighbor.
func (e *Env) NearestShore(t world.Tile) (world.Tile, bool) {
	for _, n := range t.Neighbors() {
		if e.Grid.IsWater(n) {
			return n, true
		}
	}
	return world.Tile{}, false
}
