package agents

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/arlott/railfront/internal/game"
	"github.com/arlott/railfront/internal/pathfind"
	"github.com/arlott/railfront/internal/rail"
	"github.com/arlott/railfront/internal/world"
)

// ShipState is the lifecycle phase of a trade ship.
type ShipState uint8

const (
	ShipUninitialized ShipState = iota
	ShipTraveling
	ShipCompleted
	ShipDeleted
)

// TradeShip sails from a source port to a destination port, paying out gold
// on arrival. Capture transfers ownership mid-transit and redirects the ship
// to the captor's nearest port.
type TradeShip struct {
	ID    uuid.UUID
	Owner game.PlayerID // current owner; changes on capture

	Src rail.StationID
	Dst rail.StationID // mutable: redirected after capture

	Tiles    int  // accumulated tiles traveled
	Captured bool // owner changed mid-transit
	Safe     bool // reached shoreline water; piracy risk suppressed

	State   ShipState
	unit    game.UnitID
	pos     world.Tile
	dstTile world.Tile
	pather  *pathfind.TilePather
}

// NewTradeShip spawns a ship at the water anchor of the source port. The
// returned ship is ShipDeleted when the ports have no usable water anchors
// or the ship unit cannot be built.
func NewTradeShip(env *Env, src, dst rail.StationID) *TradeShip {
	s := &TradeShip{
		ID:    uuid.New(),
		Src:   src,
		Dst:   dst,
		State: ShipUninitialized,
		unit:  game.NoUnit,
	}

	srcPort := env.Net.Registry().Get(src)
	dstPort := env.Net.Registry().Get(dst)
	if srcPort == nil || dstPort == nil || !srcPort.Active || !dstPort.Active {
		s.State = ShipDeleted
		return s
	}
	s.Owner = srcPort.Owner

	anchor, ok := env.NearestShore(srcPort.Tile)
	if !ok {
		s.State = ShipDeleted
		return s
	}
	target, ok := env.NearestShore(dstPort.Tile)
	if !ok {
		s.State = ShipDeleted
		return s
	}

	unit, ok := env.Units.Build(s.Owner, game.UnitTradeShip, anchor)
	if !ok {
		slog.Warn("trade ship build failed", "ship", s.ID, "tile", anchor)
		s.State = ShipDeleted
		return s
	}

	s.unit = unit
	s.pos = anchor
	s.dstTile = target
	s.pather = pathfind.NewTilePather(env.Grid, env.Grid.IsWater, pathfind.Options{
		Iterations:  env.Cfg.PathIterations,
		MaxTries:    env.Cfg.PathMaxTries,
		TurnPenalty: 1,
	})
	s.State = ShipTraveling
	return s
}

// Capture transfers the ship to a new owner mid-transit. The next tick
// redirects it when the original trade is no longer valid for the captor.
func (s *TradeShip) Capture(env *Env, captor game.PlayerID) {
	if s.State != ShipTraveling || captor == s.Owner {
		return
	}
	prev := s.Owner
	s.Owner = captor
	s.Captured = true
	if u := env.Units.Get(s.unit); u != nil {
		u.Owner = captor
	}
	env.Notify(game.Event{
		Tick:     env.Tick,
		Category: "capture",
		Message:  fmt.Sprintf("trade ship captured from player %d", prev),
		Player:   captor,
		Agent:    s.ID.String(),
	})
}

// Tick advances the ship by one simulation step.
func (s *TradeShip) Tick(env *Env) {
	if s.State != ShipTraveling {
		return
	}

	if !env.Units.IsActive(s.unit) {
		s.State = ShipDeleted
		return
	}

	if !s.validateTrade(env) {
		return // validateTrade already tore down or redirected
	}

	next, res := s.pather.Next(s.pos, s.dstTile)
	switch res {
	case pathfind.NextTile:
		s.pos = next
		env.Units.Move(s.unit, next)
		s.Tiles++
		if env.Grid.IsShore(s.pos) {
			s.Safe = true
		}
	case pathfind.Pending:
		// Search still running; try again next tick.
	case pathfind.Completed:
		s.arrive(env)
	case pathfind.PathNotFound:
		s.teardown(env)
	}
}

// validateTrade re-checks the legality of the trade every tick, redirecting
// a captured ship or tearing down an invalid one. Returns false when the
// ship may not move this tick.
func (s *TradeShip) validateTrade(env *Env) bool {
	src := env.Net.Registry().Get(s.Src)
	dst := env.Net.Registry().Get(s.Dst)

	// A trade into the source owner's own port is pointless.
	if src != nil && dst != nil && dst.Active && !s.Captured && dst.Owner == src.Owner {
		s.teardown(env)
		return false
	}

	valid := dst != nil && dst.Active
	if valid {
		if s.Captured {
			valid = dst.Owner == s.Owner
		} else {
			owner := env.Player(s.Owner)
			valid = owner != nil && owner.CanTradeWith(env.Player(dst.Owner))
		}
	}
	if valid {
		return true
	}

	if !s.Captured {
		s.teardown(env)
		return false
	}
	return s.redirect(env)
}

// redirect points a captured ship at the captor's nearest owned port.
// Without one the ship is deleted.
func (s *TradeShip) redirect(env *Env) bool {
	var best *rail.Station
	bestDist := math.MaxFloat64
	for _, sid := range env.Net.Registry().Active() {
		st := env.Net.Registry().Get(sid)
		if st.Kind != rail.StationPort || st.Owner != s.Owner {
			continue
		}
		if d := world.EuclideanDist(s.pos, st.Tile); d < bestDist {
			bestDist = d
			best = st
		}
	}
	if best == nil {
		s.teardown(env)
		return false
	}

	anchor, ok := env.NearestShore(best.Tile)
	if !ok {
		s.teardown(env)
		return false
	}
	s.Dst = best.ID
	s.dstTile = anchor
	return true
}

// arrive pays out the trade. Uncaptured trades pay the full amount to both
// port owners — deliberately double-counted, not split. Captured trades pay
// only the current owner: capture is a zero-sum transfer.
func (s *TradeShip) arrive(env *Env) {
	src := env.Net.Registry().Get(s.Src)
	dst := env.Net.Registry().Get(s.Dst)
	if dst == nil {
		s.teardown(env)
		return
	}

	gold := env.Cfg.TradeShipGold(s.Tiles, env.PortCount(dst.Owner))

	if s.Captured {
		env.Credit(s.Owner, gold)
	} else {
		if src != nil {
			env.Credit(src.Owner, gold)
		}
		env.Credit(dst.Owner, gold)
	}

	env.Notify(game.Event{
		Tick:     env.Tick,
		Category: "trade",
		Message:  fmt.Sprintf("trade completed over %d tiles, %d gold", s.Tiles, gold),
		Player:   dst.Owner,
		Agent:    s.ID.String(),
	})

	env.Units.Delete(s.unit)
	s.State = ShipCompleted
}

func (s *TradeShip) teardown(env *Env) {
	if s.unit != game.NoUnit {
		env.Units.Delete(s.unit)
	}
	s.State = ShipDeleted
}

// Done reports whether the ship has left the simulation.
func (s *TradeShip) Done() bool {
	return s.State == ShipCompleted || s.State == ShipDeleted
}

// Position returns the ship's current water tile.
func (s *TradeShip) Position() world.Tile { return s.pos }
