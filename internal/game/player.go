// Package game is the boundary to the surrounding game state: players, unit
// lifecycle, and the display notification channel. The rail economy mutates
// this state but does not own its lifecycle.
package game

import "github.com/arlott/railfront/internal/world"

// PlayerID identifies a player.
type PlayerID int

// NoPlayer marks unowned entities.
const NoPlayer PlayerID = -1

// Player is the game-state record the economy reads and mutates.
type Player struct {
	ID   PlayerID `json:"id"`
	Name string   `json:"name"`

	Gold      uint64  `json:"gold"`
	Troops    float64 `json:"troops"`
	MaxTroops float64 `json:"max_troops"`
	Alive     bool    `json:"alive"`

	// Territory tiles owned by the player.
	Territory map[world.Tile]struct{} `json:"-"`

	// Alliances and temporary embargoes map the other player to the tick at
	// which the relation expires.
	Alliances map[PlayerID]uint64 `json:"-"`
	Embargoes map[PlayerID]uint64 `json:"-"`

	// Relations holds a decaying stance value per other player.
	Relations map[PlayerID]float64 `json:"-"`
}

// NewPlayer creates a live player with empty relation state.
func NewPlayer(id PlayerID, name string, maxTroops float64) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		MaxTroops: maxTroops,
		Alive:     true,
		Territory: make(map[world.Tile]struct{}),
		Alliances: make(map[PlayerID]uint64),
		Embargoes: make(map[PlayerID]uint64),
		Relations: make(map[PlayerID]float64),
	}
}

// AddGold credits the player.
func (p *Player) AddGold(amount uint64) {
	p.Gold += amount
}

// RemoveGold debits the player, reporting whether the balance covered it.
func (p *Player) RemoveGold(amount uint64) bool {
	if p.Gold < amount {
		return false
	}
	p.Gold -= amount
	return true
}

// AddTroops grows the troop count, clamped at MaxTroops.
func (p *Player) AddTroops(n float64) {
	p.Troops += n
	if p.Troops > p.MaxTroops {
		p.Troops = p.MaxTroops
	}
	if p.Troops < 0 {
		p.Troops = 0
	}
}

// OwnsTile reports territory ownership.
func (p *Player) OwnsTile(t world.Tile) bool {
	_, ok := p.Territory[t]
	return ok
}

// AddTile claims a territory tile.
func (p *Player) AddTile(t world.Tile) {
	p.Territory[t] = struct{}{}
}

// RemoveTile releases a territory tile.
func (p *Player) RemoveTile(t world.Tile) {
	delete(p.Territory, t)
}

// AlliedWith reports an unexpired alliance with other.
func (p *Player) AlliedWith(other PlayerID) bool {
	_, ok := p.Alliances[other]
	return ok
}

// FriendlyWith reports whether traffic between the two players pays the
// friendly rate: same player or allied.
func (p *Player) FriendlyWith(other *Player) bool {
	if other == nil {
		return false
	}
	return p.ID == other.ID || p.AlliedWith(other.ID)
}

// CanTradeWith reports whether trade is legal: neither side embargoes the
// other.
func (p *Player) CanTradeWith(other *Player) bool {
	if other == nil {
		return false
	}
	if _, ok := p.Embargoes[other.ID]; ok {
		return false
	}
	if _, ok := other.Embargoes[p.ID]; ok {
		return false
	}
	return true
}

// Ally records an alliance expiring at the given tick, on both sides.
func Ally(a, b *Player, expires uint64) {
	a.Alliances[b.ID] = expires
	b.Alliances[a.ID] = expires
}

// Embargo records a temporary embargo of other by p, expiring at the tick.
func (p *Player) Embargo(other PlayerID, expires uint64) {
	p.Embargoes[other] = expires
}
