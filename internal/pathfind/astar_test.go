package pathfind

import (
	"testing"

	"github.com/arlott/railfront/internal/world"
)

// openGrid returns an all-plains grid.
func openGrid(w, h int) *world.Grid {
	g := world.NewGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.SetTerrain(world.Tile{X: x, Y: y}, world.TerrainPlains)
		}
	}
	return g
}

func landGraph(g *world.Grid) GridGraph {
	return GridGraph{Grid: g, Passable: g.IsLand}
}

func checkContiguous(t *testing.T, g *world.Grid, nodes []int) {
	t.Helper()
	for i := 1; i < len(nodes); i++ {
		a := g.TileAt(nodes[i-1])
		b := g.TileAt(nodes[i])
		if world.ManhattanDist(a, b) != 1 {
			t.Fatalf("path not contiguous between %v and %v", a, b)
		}
	}
}

func TestFindPathStraightLine(t *testing.T) {
	g := openGrid(20, 20)
	src := g.Index(world.Tile{X: 2, Y: 10})
	dst := g.Index(world.Tile{X: 17, Y: 10})

	path, res := FindPath(landGraph(g), []int{src}, dst, DefaultOptions())
	if res != Completed {
		t.Fatalf("result = %v, want completed", res)
	}
	if path[0] != src || path[len(path)-1] != dst {
		t.Fatal("path endpoints wrong")
	}
	checkContiguous(t, g, path)
	if len(path) != 16 {
		t.Errorf("open-grid path has %d nodes, want 16 (no detours)", len(path))
	}
}

func TestFindPathAroundWall(t *testing.T) {
	g := openGrid(20, 20)
	// Vertical wall at x=10 with a gap at y=18.
	for y := 0; y < 18; y++ {
		g.SetTerrain(world.Tile{X: 10, Y: y}, world.TerrainOcean)
	}

	src := g.Index(world.Tile{X: 2, Y: 2})
	dst := g.Index(world.Tile{X: 17, Y: 2})
	path, res := FindPath(landGraph(g), []int{src}, dst, DefaultOptions())
	if res != Completed {
		t.Fatalf("result = %v, want completed", res)
	}
	checkContiguous(t, g, path)

	through := false
	for _, n := range path {
		tile := g.TileAt(n)
		if tile.X == 10 && tile.Y >= 18 {
			through = true
		}
		if !g.IsLand(tile) {
			t.Fatalf("path crosses water at %v", tile)
		}
	}
	if !through {
		t.Error("path should route through the wall gap")
	}
}

func TestFindPathUnreachable(t *testing.T) {
	g := openGrid(20, 20)
	// Seal off the right half entirely.
	for y := 0; y < 20; y++ {
		g.SetTerrain(world.Tile{X: 10, Y: y}, world.TerrainOcean)
	}

	src := g.Index(world.Tile{X: 2, Y: 2})
	dst := g.Index(world.Tile{X: 17, Y: 2})
	if _, res := FindPath(landGraph(g), []int{src}, dst, DefaultOptions()); res != PathNotFound {
		t.Fatalf("result = %v, want not-found", res)
	}
}

func TestSearchResumesAcrossSteps(t *testing.T) {
	g := openGrid(40, 40)
	src := g.Index(world.Tile{X: 1, Y: 1})
	dst := g.Index(world.Tile{X: 38, Y: 38})

	// A budget too small for one step but enough over several.
	s := NewSearch(landGraph(g), []int{src}, dst, Options{Iterations: 40, MaxTries: 200, TurnPenalty: 1})

	steps := 0
	for {
		res := s.Step()
		steps++
		if res == Completed {
			break
		}
		if res == PathNotFound {
			t.Fatal("search failed on an open grid")
		}
		if steps > 200 {
			t.Fatal("search never completed")
		}
	}
	if steps < 2 {
		t.Error("search should have suspended at least once")
	}
	checkContiguous(t, g, s.Path())
}

func TestSearchExhaustsTries(t *testing.T) {
	g := openGrid(60, 60)
	src := g.Index(world.Tile{X: 0, Y: 0})
	dst := g.Index(world.Tile{X: 59, Y: 59})

	s := NewSearch(landGraph(g), []int{src}, dst, Options{Iterations: 5, MaxTries: 3, TurnPenalty: 1})
	var res Result
	for i := 0; i < 10; i++ {
		res = s.Step()
		if res != Pending {
			break
		}
	}
	if res != PathNotFound {
		t.Fatalf("result = %v, want not-found after retry budget", res)
	}
	// Terminal state is sticky.
	if s.Step() != PathNotFound {
		t.Error("completed search should keep returning its terminal state")
	}
}

func TestSearchSourceEqualsDestination(t *testing.T) {
	g := openGrid(5, 5)
	n := g.Index(world.Tile{X: 2, Y: 2})
	path, res := FindPath(landGraph(g), []int{n}, n, DefaultOptions())
	if res != Completed || len(path) != 1 || path[0] != n {
		t.Fatalf("trivial search: res=%v path=%v", res, path)
	}
}

func TestMultiSourcePicksNearest(t *testing.T) {
	g := openGrid(30, 10)
	far := g.Index(world.Tile{X: 0, Y: 5})
	near := g.Index(world.Tile{X: 20, Y: 5})
	dst := g.Index(world.Tile{X: 25, Y: 5})

	path, res := FindPath(landGraph(g), []int{far, near}, dst, DefaultOptions())
	if res != Completed {
		t.Fatalf("result = %v", res)
	}
	if path[0] != near {
		t.Errorf("path should start from the nearest source, got %v", g.TileAt(path[0]))
	}
}

func TestTilePatherWalksToDestination(t *testing.T) {
	g := openGrid(30, 30)
	p := NewTilePather(g, g.IsLand, DefaultOptions())

	cur := world.Tile{X: 3, Y: 3}
	dst := world.Tile{X: 20, Y: 25}
	moves := 0
	for {
		next, res := p.Next(cur, dst)
		switch res {
		case NextTile:
			if world.ManhattanDist(cur, next) != 1 {
				t.Fatalf("non-adjacent step %v -> %v", cur, next)
			}
			cur = next
			moves++
		case Pending:
			// keep ticking
		case Completed:
			if cur != dst {
				t.Fatalf("completed away from destination at %v", cur)
			}
			if moves != world.ManhattanDist(world.Tile{X: 3, Y: 3}, dst) {
				t.Errorf("took %d moves, expected a monotone walk", moves)
			}
			return
		case PathNotFound:
			t.Fatal("open grid should be walkable")
		}
		if moves > 500 {
			t.Fatal("stepper never arrived")
		}
	}
}

func TestTilePatherRedirect(t *testing.T) {
	g := openGrid(30, 30)
	p := NewTilePather(g, g.IsLand, DefaultOptions())

	cur := world.Tile{X: 5, Y: 5}
	first := world.Tile{X: 25, Y: 5}
	for i := 0; i < 5; i++ {
		next, res := p.Next(cur, first)
		if res == NextTile {
			cur = next
		}
	}

	// Redirect mid-route; the stepper must discard the old path.
	second := world.Tile{X: 5, Y: 25}
	for i := 0; i < 200; i++ {
		next, res := p.Next(cur, second)
		switch res {
		case NextTile:
			if world.ManhattanDist(cur, next) != 1 {
				t.Fatalf("non-adjacent step after redirect: %v -> %v", cur, next)
			}
			cur = next
		case Completed:
			if cur != second {
				t.Fatalf("completed at %v, want %v", cur, second)
			}
			return
		case PathNotFound:
			t.Fatal("redirect target should be reachable")
		}
	}
	t.Fatal("never reached redirected destination")
}

func TestTilePatherUsesCoarseOverlayForLongRoutes(t *testing.T) {
	g := openGrid(300, 300)
	p := NewTilePather(g, g.IsLand, DefaultOptions())

	cur := world.Tile{X: 4, Y: 4}
	dst := world.Tile{X: 280, Y: 270}
	if world.ManhattanDist(cur, dst) <= MinimapThreshold {
		t.Fatal("test route must exceed the minimap threshold")
	}

	refined := false
	for i := 0; i < 5000; i++ {
		next, res := p.Next(cur, dst)
		if !refined {
			// On an all-open grid the overlay search must stay up until it
			// hands out the first step. A fall-through to full resolution
			// clears coarse while still reporting Pending.
			switch {
			case res == Pending && p.coarse == nil:
				t.Fatal("coarse overlay result was discarded on an open grid")
			case res == NextTile:
				refined = true
			}
		}
		switch res {
		case NextTile:
			if world.ManhattanDist(cur, next) != 1 {
				t.Fatalf("non-adjacent step %v -> %v", cur, next)
			}
			cur = next
		case Completed:
			if cur != dst {
				t.Fatalf("completed at %v, want %v", cur, dst)
			}
			return
		case PathNotFound:
			t.Fatal("open grid should be routable at coarse resolution")
		}
	}
	t.Fatal("long route never completed")
}

func TestGreedyWalkZeroLengthGap(t *testing.T) {
	g := openGrid(10, 10)
	p := NewTilePather(g, g.IsLand, DefaultOptions())

	at := world.Tile{X: 3, Y: 3}
	seg := p.walk(at, at)
	if seg == nil {
		t.Fatal("zero-length gap reported as blocked")
	}
	if len(seg) != 0 {
		t.Fatalf("zero-length gap took %d steps", len(seg))
	}
}

func TestRefineCollapsesRepeatedWaypoints(t *testing.T) {
	g := openGrid(300, 300)
	p := NewTilePather(g, g.IsLand, DefaultOptions())
	p.coarse = NewCoarseGraph(g, g.IsLand)

	// cur sits inside the first coarse block and dst inside the last, so both
	// end waypoints resolve onto tiles the stitcher is already standing on.
	cur := world.Tile{X: 4, Y: 4}
	dst := world.Tile{X: 280, Y: 270}
	nodes := []int{p.coarse.Index(cur), p.coarse.Index(dst)}

	path := p.refine(cur, dst, nodes)
	if path == nil {
		t.Fatal("refine rejected a walkable waypoint sequence")
	}
	if last := path[len(path)-1]; last != dst {
		t.Fatalf("refined path ends at %v, want %v", last, dst)
	}
	for i, tile := range path {
		prev := cur
		if i > 0 {
			prev = path[i-1]
		}
		if world.ManhattanDist(prev, tile) != 1 {
			t.Fatalf("refined path not contiguous between %v and %v", prev, tile)
		}
	}
}
