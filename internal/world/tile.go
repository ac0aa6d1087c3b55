// Package world provides the square tile grid, terrain kinds, and spatial
// queries the rail network and the agents run on.
package world

// Tile is a position on the grid.
type Tile struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Terrain kinds for tiles.
type Terrain uint8

const (
	TerrainOcean    Terrain = iota // Deep water — ships only
	TerrainShore                   // Water adjacent to land — ships, suppresses piracy
	TerrainPlains                  // Buildable, rail-passable
	TerrainMountain                // Land, impassable for rail
)

// TerrainName returns a human-readable terrain label.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainOcean:
		return "ocean"
	case TerrainShore:
		return "shore"
	case TerrainPlains:
		return "plains"
	case TerrainMountain:
		return "mountain"
	}
	return "unknown"
}

// Direction indexes into NeighborDirections. Stored per search edge so the
// pathfinder can penalize turns.
type Direction uint8

// NeighborDirections defines the four cardinal neighbor offsets.
var NeighborDirections = [4]Tile{
	{X: 1, Y: 0},
	{X: -1, Y: 0},
	{X: 0, Y: 1},
	{X: 0, Y: -1},
}

// Neighbors returns the four adjacent tile coordinates.
func (t Tile) Neighbors() [4]Tile {
	var result [4]Tile
	for i, d := range NeighborDirections {
		result[i] = Tile{X: t.X + d.X, Y: t.Y + d.Y}
	}
	return result
}

// ManhattanDist returns |dx| + |dy| between two tiles.
func ManhattanDist(a, b Tile) int {
	dx := a.X - b.X
	dy := a.Y - b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// EuclideanDist returns the straight-line distance between two tiles.
func EuclideanDist(a, b Tile) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return sqrt(dx*dx + dy*dy)
}
