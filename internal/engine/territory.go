package engine

import (
	"fmt"

	"github.com/arlott/railfront/internal/game"
	"github.com/arlott/railfront/internal/world"
)

// bounds is an axis-aligned tile bounding box.
type bounds struct {
	minX, minY, maxX, maxY int
}

func newBounds() bounds {
	return bounds{minX: 1 << 30, minY: 1 << 30, maxX: -(1 << 30), maxY: -(1 << 30)}
}

func (b *bounds) add(t world.Tile) {
	if t.X < b.minX {
		b.minX = t.X
	}
	if t.Y < b.minY {
		b.minY = t.Y
	}
	if t.X > b.maxX {
		b.maxX = t.X
	}
	if t.Y > b.maxY {
		b.maxY = t.Y
	}
}

// contains reports whether other fits strictly inside b. Touching edges do
// not count as enclosure.
func (b bounds) contains(other bounds) bool {
	return b.minX < other.minX && b.minY < other.minY &&
		b.maxX > other.maxX && b.maxY > other.maxY
}

// checkTerritory recomputes the player's territory clusters and hands over
// any cluster fully enclosed by a single hostile neighbor. Bounding-box
// inclusion is an approximation of true enclosure; it is the intended
// behavior, not a shortcut to fix.
func (s *Simulation) checkTerritory(p *game.Player) {
	if len(p.Territory) == 0 {
		return
	}

	clusters := s.territoryClusters(p)
	mainIdx := 0
	for i, c := range clusters {
		if len(c) > len(clusters[mainIdx]) {
			mainIdx = i
		}
	}

	for i, cluster := range clusters {
		enemy := s.enclosingPlayer(p, cluster)
		if enemy == nil {
			continue
		}
		s.transferCluster(p, enemy, cluster, i == mainIdx && len(clusters) == 1)
	}
}

// territoryClusters partitions the player's border tiles into connected
// components via BFS, then floods each component out to the full territory
// region it borders.
func (s *Simulation) territoryClusters(p *game.Player) [][]world.Tile {
	border := make(map[world.Tile]struct{})
	for t := range p.Territory {
		for _, n := range t.Neighbors() {
			if !p.OwnsTile(n) {
				border[t] = struct{}{}
				break
			}
		}
	}

	visited := make(map[world.Tile]struct{})
	var clusters [][]world.Tile
	for seed := range border {
		if _, ok := visited[seed]; ok {
			continue
		}
		// Flood over the whole owned region, not just its border ring, so
		// a transferred cluster hands over interior tiles too.
		var cluster []world.Tile
		queue := []world.Tile{seed}
		visited[seed] = struct{}{}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			cluster = append(cluster, cur)
			for _, n := range cur.Neighbors() {
				if _, seen := visited[n]; seen || !p.OwnsTile(n) {
					continue
				}
				visited[n] = struct{}{}
				queue = append(queue, n)
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

// enclosingPlayer returns the single hostile neighbor whose territory
// bounding box encloses the cluster's, or nil. The closed-border scan is
// stricter than the bounding-box proxy alone: any unclaimed or second-owner
// neighbor disqualifies the cluster before the boxes are compared.
func (s *Simulation) enclosingPlayer(p *game.Player, cluster []world.Tile) *game.Player {
	var enemy *game.Player
	for _, t := range cluster {
		for _, n := range t.Neighbors() {
			if p.OwnsTile(n) || !s.Grid.InBounds(n) {
				continue
			}
			q := s.tileOwner(n)
			if q == nil {
				return nil // open ground: not enclosed
			}
			if enemy == nil {
				enemy = q
			} else if enemy.ID != q.ID {
				return nil // more than one neighbor: not a single encloser
			}
		}
	}
	if enemy == nil || p.AlliedWith(enemy.ID) {
		return nil
	}

	cb := newBounds()
	for _, t := range cluster {
		cb.add(t)
	}
	eb := newBounds()
	for t := range enemy.Territory {
		eb.add(t)
	}
	if !eb.contains(cb) {
		return nil
	}
	return enemy
}

// transferCluster hands the cluster's tiles to the enclosing player. Losing
// the only territory eliminates the player outright.
func (s *Simulation) transferCluster(p, enemy *game.Player, cluster []world.Tile, wholeTerritory bool) {
	for _, t := range cluster {
		p.RemoveTile(t)
		enemy.AddTile(t)
	}

	if wholeTerritory || len(p.Territory) == 0 {
		for t := range p.Territory {
			p.RemoveTile(t)
			enemy.AddTile(t)
		}
		p.Alive = false
		s.Notify(game.Event{
			Tick:     s.LastTick,
			Category: "player",
			Message:  fmt.Sprintf("%s was absorbed by %s", p.Name, enemy.Name),
			Player:   enemy.ID,
		})
		return
	}

	s.Notify(game.Event{
		Tick:     s.LastTick,
		Category: "player",
		Message:  fmt.Sprintf("%s lost %d tiles to %s", p.Name, len(cluster), enemy.Name),
		Player:   enemy.ID,
	})
}
