package engine

import (
	"fmt"
	"hash/fnv"

	"github.com/arlott/railfront/internal/game"
	"github.com/arlott/railfront/internal/world"
)

// relationDecay shrinks stance values toward neutral each tick.
const relationDecay = 0.999

// playerEconomyTick runs the per-player economic pass. The order is load
// bearing: stale units are resolved before income so a dead player earns
// nothing this tick.
func (s *Simulation) playerEconomyTick(p *game.Player, tick uint64) {
	decayRelations(p)
	s.validateUnits(p)

	if !p.Alive {
		p.Gold = 0
		s.deleteMobileUnits(p)
		return
	}

	growth := s.Cfg.TroopIncreaseRate(p.Troops, p.MaxTroops)
	p.AddTroops(growth)
	s.delta(p.ID).Troops += growth

	income := s.Cfg.GoldAdditionRate()
	p.AddGold(income)
	s.delta(p.ID).Gold += int64(income)

	expireRelations(p.Alliances, tick)
	expireRelations(p.Embargoes, tick)

	if (tick+nameHash(p.Name))%TerritoryCheckInterval == 0 {
		s.checkTerritory(p)
	}
}

func decayRelations(p *game.Player) {
	for id, v := range p.Relations {
		v *= relationDecay
		if v > -0.001 && v < 0.001 {
			delete(p.Relations, id)
			continue
		}
		p.Relations[id] = v
	}
}

func expireRelations(m map[game.PlayerID]uint64, tick uint64) {
	for id, expires := range m {
		if expires <= tick {
			delete(m, id)
		}
	}
}

// validateUnits resolves structures sitting on tiles that have become
// another player's territory: the structure transfers to the tile's new
// owner. Unclaimed ground is not foreign and leaves the unit alone.
func (s *Simulation) validateUnits(p *game.Player) {
	for _, uid := range s.Units.OwnedBy(p.ID) {
		unit := s.Units.Get(uid)
		if unit == nil || !unit.Kind.Strategic() || p.OwnsTile(unit.Tile) {
			continue
		}

		newOwner := s.tileOwner(unit.Tile)
		if newOwner == nil || newOwner.ID == p.ID {
			continue
		}
		if !p.Alive {
			// A dead player's structures on conquered ground are razed
			// rather than handed over.
			s.Net.RemoveStation(uid)
			s.Units.Delete(uid)
			continue
		}

		unit.Owner = newOwner.ID
		if st := s.Net.Registry().ByUnit(uid); st != nil {
			st.Owner = newOwner.ID
		}
		s.Notify(game.Event{
			Tick:     s.LastTick,
			Category: "player",
			Message:  fmt.Sprintf("%s lost a structure to %s", p.Name, newOwner.Name),
			Player:   newOwner.ID,
		})
	}
}

// deleteMobileUnits strips a dead player's trains and ships; the owning
// agents observe the missing units next tick and tear themselves down.
func (s *Simulation) deleteMobileUnits(p *game.Player) {
	for _, uid := range s.Units.OwnedBy(p.ID) {
		if unit := s.Units.Get(uid); unit != nil && !unit.Kind.Strategic() {
			s.Units.Delete(uid)
		}
	}
}

// tileOwner finds the living player owning a tile, nil when unclaimed.
func (s *Simulation) tileOwner(t world.Tile) *game.Player {
	for _, q := range s.Players {
		if q.Alive && q.OwnsTile(t) {
			return q
		}
	}
	return nil
}

// nameHash offsets the territory check per player so the roster never
// recomputes in lockstep.
func nameHash(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64() % TerritoryCheckInterval
}
