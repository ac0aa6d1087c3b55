package pathfind

import "github.com/arlott/railfront/internal/world"

// MinimapThreshold is the Manhattan distance above which the tile stepper
// routes on the coarse overlay first.
const MinimapThreshold = 100

// TilePather is the higher-level tile stepper used by mobile agents. It owns
// an in-flight Search (possibly on the coarse overlay), upscales and refines
// coarse results, and hands out one tile per NextTile call.
type TilePather struct {
	grid     *world.Grid
	passable func(world.Tile) bool
	opts     Options

	dst    world.Tile
	path   []world.Tile
	idx    int
	search *Search
	coarse *CoarseGraph
}

// NewTilePather creates a stepper over the grid for movers admitted by
// passable.
func NewTilePather(grid *world.Grid, passable func(world.Tile) bool, opts Options) *TilePather {
	return &TilePather{grid: grid, passable: passable, opts: opts}
}

// Next returns the next tile toward dst from cur. A changed dst discards any
// previous route. Returns NextTile with a step, Pending while the underlying
// search still runs, Completed when cur already is dst, or PathNotFound.
func (p *TilePather) Next(cur, dst world.Tile) (world.Tile, Result) {
	if cur == dst {
		p.reset()
		return cur, Completed
	}
	if dst != p.dst {
		p.reset()
		p.dst = dst
	}

	if p.path != nil {
		// Skip tiles already reached (agents may be nudged externally).
		for p.idx < len(p.path) && p.path[p.idx] == cur {
			p.idx++
		}
		if p.idx < len(p.path) {
			next := p.path[p.idx]
			p.idx++
			return next, NextTile
		}
		// Route exhausted short of dst (refined coarse path ended early):
		// fall through and search again from cur.
		p.path = nil
	}

	if p.search == nil {
		p.start(cur, dst)
	}

	switch p.search.Step() {
	case Pending:
		return world.Tile{}, Pending
	case PathNotFound:
		if p.coarse != nil {
			// Coarse overlay failed; retry once at full resolution.
			p.coarse = nil
			p.search = NewSearch(GridGraph{Grid: p.grid, Passable: p.passable},
				[]int{p.grid.Index(cur)}, p.grid.Index(dst), p.opts)
			return world.Tile{}, Pending
		}
		p.reset()
		return world.Tile{}, PathNotFound
	}

	// Completed: materialize the tile path.
	nodes := p.search.Path()
	if p.coarse != nil {
		p.path = p.refine(cur, dst, nodes)
		if p.path == nil {
			// Stitching hit a blocked block; redo at full resolution.
			p.coarse = nil
			p.search = NewSearch(GridGraph{Grid: p.grid, Passable: p.passable},
				[]int{p.grid.Index(cur)}, p.grid.Index(dst), p.opts)
			return world.Tile{}, Pending
		}
	} else {
		p.path = make([]world.Tile, 0, len(nodes))
		for _, n := range nodes {
			p.path = append(p.path, p.grid.TileAt(n))
		}
	}
	p.search = nil
	p.coarse = nil

	// Drop the leading tile when it is the current position.
	p.idx = 0
	if len(p.path) > 0 && p.path[0] == cur {
		p.idx = 1
	}
	if p.idx >= len(p.path) {
		return cur, Completed
	}
	next := p.path[p.idx]
	p.idx++
	return next, NextTile
}

func (p *TilePather) start(cur, dst world.Tile) {
	if world.ManhattanDist(cur, dst) > MinimapThreshold {
		p.coarse = NewCoarseGraph(p.grid, p.passable)
		p.search = NewSearch(p.coarse, []int{p.coarse.Index(cur)}, p.coarse.Index(dst), p.opts)
		return
	}
	p.search = NewSearch(GridGraph{Grid: p.grid, Passable: p.passable},
		[]int{p.grid.Index(cur)}, p.grid.Index(dst), p.opts)
}

func (p *TilePather) reset() {
	p.path = nil
	p.idx = 0
	p.search = nil
	p.coarse = nil
	p.dst = world.Tile{}
}

// refine upscales a coarse node path and stitches the gaps with short greedy
// walks at full resolution. Returns nil when a gap cannot be walked.
func (p *TilePather) refine(cur, dst world.Tile, nodes []int) []world.Tile {
	waypoints := make([]world.Tile, 0, len(nodes)+1)
	for _, n := range nodes {
		wp := p.nearestOpen(p.coarse.TileAt(n))
		if wp == (world.Tile{X: -1, Y: -1}) {
			return nil
		}
		waypoints = append(waypoints, wp)
	}
	waypoints = append(waypoints, dst)

	path := []world.Tile{}
	at := cur
	for _, wp := range waypoints {
		// Consecutive waypoints can collapse onto the same tile (the first
		// block often contains cur, the last contains dst); nothing to walk.
		if wp == at {
			continue
		}
		seg := p.walk(at, wp)
		if seg == nil {
			return nil
		}
		path = append(path, seg...)
		at = wp
	}
	return path
}

// nearestOpen picks a passable tile inside the 2x2 block anchored at t.
func (p *TilePather) nearestOpen(t world.Tile) world.Tile {
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			c := world.Tile{X: t.X + dx, Y: t.Y + dy}
			if p.grid.InBounds(c) && p.passable(c) {
				return c
			}
		}
	}
	return world.Tile{X: -1, Y: -1}
}

// walk greedily steps from a to b through passable tiles, always reducing
// Manhattan distance. Gaps between refined waypoints are a few tiles, so a
// greedy walk suffices; nil means the gap is blocked. A zero-length gap
// returns an empty, non-nil segment.
func (p *TilePather) walk(a, b world.Tile) []world.Tile {
	seg := []world.Tile{}
	cur := a
	for cur != b {
		stepped := false
		bestDist := world.ManhattanDist(cur, b)
		for _, n := range cur.Neighbors() {
			if world.ManhattanDist(n, b) >= bestDist {
				continue
			}
			if !p.grid.InBounds(n) || (!p.passable(n) && n != b) {
				continue
			}
			cur = n
			seg = append(seg, n)
			stepped = true
			break
		}
		if !stepped {
			return nil
		}
	}
	return seg
}
