// Package pathfind provides a bidirectional, resumable A* search over an
// abstract graph adapter. The same engine serves the terrain tile grid
// (directly and through a half-resolution coarse overlay) and the
// station-adjacency graph.
package pathfind

import "github.com/arlott/railfront/internal/world"

// NoDirection marks edges without a meaningful heading (station graph edges);
// they never incur a turn penalty.
const NoDirection world.Direction = 0xFF

// Edge is one outgoing connection from a graph node.
type Edge struct {
	To   int             // Destination node index
	Cost float64         // Traversal cost
	Dir  world.Direction // Heading index, or NoDirection
}

// Graph is the adapter the search runs over. Node identity is a dense int
// index owned by the adapter. Edges must be symmetric: the search expands
// from both endpoints and meets in the middle.
type Graph interface {
	// Neighbors appends the edges leaving node to buf and returns it.
	Neighbors(node int, buf []Edge) []Edge
	// Heuristic estimates remaining cost between two nodes.
	Heuristic(from, to int) float64
}

// Result is the outcome of one pathfinding step.
type Result uint8

const (
	Pending      Result = iota // Iteration budget spent, tries remain — call again next tick
	Completed                  // Frontiers met, Path() is valid
	PathNotFound               // Search space or retry budget exhausted
	NextTile                   // Tile stepper: path exists, a step was produced
)

func (r Result) String() string {
	switch r {
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	case PathNotFound:
		return "not-found"
	case NextTile:
		return "next-tile"
	}
	return "unknown"
}

// GridGraph adapts a terrain grid to the search. Passable decides which
// tiles the caller's mover may enter (rail: open land; ships: water).
type GridGraph struct {
	Grid     *world.Grid
	Passable func(world.Tile) bool
}

// Neighbors enumerates the four cardinal moves from node.
func (g GridGraph) Neighbors(node int, buf []Edge) []Edge {
	tile := g.Grid.TileAt(node)
	for i, d := range world.NeighborDirections {
		n := world.Tile{X: tile.X + d.X, Y: tile.Y + d.Y}
		if !g.Grid.InBounds(n) || !g.Passable(n) {
			continue
		}
		buf = append(buf, Edge{To: g.Grid.Index(n), Cost: 1, Dir: world.Direction(i)})
	}
	return buf
}

// Heuristic is the weighted Manhattan distance 2*(|dx|+|dy|). The weight
// deliberately overestimates to pull the frontiers together faster.
func (g GridGraph) Heuristic(from, to int) float64 {
	return 2 * float64(world.ManhattanDist(g.Grid.TileAt(from), g.Grid.TileAt(to)))
}

// CoarseGraph is a half-resolution overlay of a terrain grid used for
// long-distance searches. A coarse node is passable when any of the up to
// four covered tiles is passable; the overlay is optimistic and its paths
// are refined at full resolution afterwards.
type CoarseGraph struct {
	grid     *world.Grid
	width    int
	height   int
	passable func(world.Tile) bool
}

// NewCoarseGraph builds the overlay for a grid and passability predicate.
func NewCoarseGraph(g *world.Grid, passable func(world.Tile) bool) *CoarseGraph {
	return &CoarseGraph{
		grid:     g,
		width:    (g.Width + 1) / 2,
		height:   (g.Height + 1) / 2,
		passable: passable,
	}
}

// Index converts a full-resolution tile to its coarse node index.
func (c *CoarseGraph) Index(t world.Tile) int {
	return (t.Y/2)*c.width + t.X/2
}

// TileAt converts a coarse node index to its top-left full-resolution tile.
func (c *CoarseGraph) TileAt(idx int) world.Tile {
	return world.Tile{X: (idx % c.width) * 2, Y: (idx / c.width) * 2}
}

func (c *CoarseGraph) open(cx, cy int) bool {
	if cx < 0 || cx >= c.width || cy < 0 || cy >= c.height {
		return false
	}
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			t := world.Tile{X: cx*2 + dx, Y: cy*2 + dy}
			if c.grid.InBounds(t) && c.passable(t) {
				return true
			}
		}
	}
	return false
}

// Neighbors enumerates the four cardinal coarse moves. Each coarse step
// covers two full-resolution tiles.
func (c *CoarseGraph) Neighbors(node int, buf []Edge) []Edge {
	cx, cy := node%c.width, node/c.width
	for i, d := range world.NeighborDirections {
		nx, ny := cx+d.X, cy+d.Y
		if !c.open(nx, ny) {
			continue
		}
		buf = append(buf, Edge{To: ny*c.width + nx, Cost: 2, Dir: world.Direction(i)})
	}
	return buf
}

// Heuristic mirrors GridGraph's weighting in full-resolution units.
func (c *CoarseGraph) Heuristic(from, to int) float64 {
	return 2 * float64(world.ManhattanDist(c.TileAt(from), c.TileAt(to)))
}
