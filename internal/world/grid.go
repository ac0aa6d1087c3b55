package world

import (
	"fmt"
	"math"
)

func sqrt(v float64) float64 { return math.Sqrt(v) }

// Grid holds the terrain of a rectangular tile world.
type Grid struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	cells []Terrain
}

// NewGrid creates an all-ocean grid of the given dimensions.
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		cells:  make([]Terrain, width*height),
	}
}

// InBounds reports whether the tile lies on the grid.
func (g *Grid) InBounds(t Tile) bool {
	return t.X >= 0 && t.X < g.Width && t.Y >= 0 && t.Y < g.Height
}

// OnEdge reports whether the tile touches the map border.
func (g *Grid) OnEdge(t Tile) bool {
	return t.X == 0 || t.Y == 0 || t.X == g.Width-1 || t.Y == g.Height-1
}

// Terrain returns the terrain at t. Out-of-bounds tiles read as ocean.
func (g *Grid) Terrain(t Tile) Terrain {
	if !g.InBounds(t) {
		return TerrainOcean
	}
	return g.cells[t.Y*g.Width+t.X]
}

// SetTerrain writes the terrain at t. Out-of-bounds writes are ignored.
func (g *Grid) SetTerrain(t Tile, terrain Terrain) {
	if !g.InBounds(t) {
		return
	}
	g.cells[t.Y*g.Width+t.X] = terrain
}

// IsWater reports whether t is ocean or shore.
func (g *Grid) IsWater(t Tile) bool {
	terr := g.Terrain(t)
	return terr == TerrainOcean || terr == TerrainShore
}

// IsShore reports whether t is a shoreline water tile.
func (g *Grid) IsShore(t Tile) bool {
	return g.Terrain(t) == TerrainShore
}

// IsLand reports whether t is in bounds and not water.
func (g *Grid) IsLand(t Tile) bool {
	if !g.InBounds(t) {
		return false
	}
	return !g.IsWater(t)
}

// Index converts a tile to a dense node index for graph searches.
func (g *Grid) Index(t Tile) int {
	return t.Y*g.Width + t.X
}

// TileAt converts a dense node index back to a tile.
func (g *Grid) TileAt(idx int) Tile {
	return Tile{X: idx % g.Width, Y: idx / g.Width}
}

// DeriveShores converts every ocean tile with a land neighbor to shore.
// Called once after terrain is written.
func (g *Grid) DeriveShores() {
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			t := Tile{X: x, Y: y}
			if g.Terrain(t) != TerrainOcean {
				continue
			}
			for _, n := range t.Neighbors() {
				if g.IsLand(n) {
					g.SetTerrain(t, TerrainShore)
					break
				}
			}
		}
	}
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d)", g.Width, g.Height)
}

// TerrainCounts tallies tiles per terrain kind.
func TerrainCounts(g *Grid) map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, c := range g.cells {
		counts[c]++
	}
	return counts
}
