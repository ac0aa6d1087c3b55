package pathfind

import (
	"container/heap"

	"github.com/arlott/railfront/internal/world"
)

// Options bounds a search. Iterations is the number of node expansions one
// Step call may spend; MaxTries is how many Step calls may run before the
// search gives up; TurnPenalty is added when an edge's heading differs from
// the heading used to reach the current node.
type Options struct {
	Iterations  int
	MaxTries    int
	TurnPenalty float64
}

// DefaultOptions suits mid-size tile searches resolved within a tick or two.
func DefaultOptions() Options {
	return Options{Iterations: 2500, MaxTries: 20, TurnPenalty: 1}
}

type heapNode struct {
	node int
	f    float64
	g    float64
}

type nodeHeap []heapNode

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h nodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)        { *h = append(*h, x.(heapNode)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// frontier is one direction of the bidirectional search.
type frontier struct {
	open     nodeHeap
	cameFrom map[int]int
	gScore   map[int]float64
	heading  map[int]world.Direction
}

func newFrontier() frontier {
	return frontier{
		cameFrom: make(map[int]int),
		gScore:   make(map[int]float64),
		heading:  make(map[int]world.Direction),
	}
}

// Search is a suspended bidirectional A* computation. Step advances it by a
// bounded number of expansions; the frontiers survive between calls so a
// search can span several ticks without blocking any of them.
type Search struct {
	graph   Graph
	sources []int
	dst     int
	opts    Options

	fwd   frontier
	bwd   frontier
	tries int
	meet  int
	state Result

	edgeBuf []Edge
}

// NewSearch prepares a search from any of sources to dst. With multiple
// sources the forward frontier starts from all of them and the backward
// heuristic aims at the nearest one.
func NewSearch(g Graph, sources []int, dst int, opts Options) *Search {
	if len(sources) == 0 {
		panic("pathfind: search with no sources")
	}
	if opts.Iterations <= 0 || opts.MaxTries <= 0 {
		panic("pathfind: non-positive search budget")
	}

	s := &Search{
		graph:   g,
		sources: sources,
		dst:     dst,
		opts:    opts,
		fwd:     newFrontier(),
		bwd:     newFrontier(),
		meet:    -1,
		state:   Pending,
		edgeBuf: make([]Edge, 0, 8),
	}

	for _, src := range sources {
		s.fwd.gScore[src] = 0
		s.fwd.heading[src] = NoDirection
		heap.Push(&s.fwd.open, heapNode{node: src, f: g.Heuristic(src, dst)})
	}
	s.bwd.gScore[dst] = 0
	s.bwd.heading[dst] = NoDirection
	heap.Push(&s.bwd.open, heapNode{node: dst, f: s.heuristicToSources(dst)})

	return s
}

// heuristicToSources estimates cost to the nearest source node.
func (s *Search) heuristicToSources(node int) float64 {
	best := s.graph.Heuristic(node, s.sources[0])
	for _, src := range s.sources[1:] {
		if h := s.graph.Heuristic(node, src); h < best {
			best = h
		}
	}
	return best
}

// Step resumes the search for one tick's worth of work.
func (s *Search) Step() Result {
	if s.state != Pending {
		return s.state
	}

	s.tries++
	if s.tries > s.opts.MaxTries {
		s.state = PathNotFound
		return s.state
	}

	for i := 0; i < s.opts.Iterations; i++ {
		// Alternate frontiers; fall through to the other when one drains.
		forward := i%2 == 0
		if forward && s.fwd.open.Len() == 0 {
			forward = false
		}
		if !forward && s.bwd.open.Len() == 0 {
			if s.fwd.open.Len() == 0 {
				s.state = PathNotFound
				return s.state
			}
			forward = true
		}

		if forward {
			if s.expand(&s.fwd, &s.bwd, true) {
				return s.state
			}
		} else {
			if s.expand(&s.bwd, &s.fwd, false) {
				return s.state
			}
		}
	}

	return Pending
}

// expand pops the best node from one frontier and relaxes its edges.
// Returns true when the search reached a terminal state.
func (s *Search) expand(own, other *frontier, forward bool) bool {
	current := heap.Pop(&own.open).(heapNode)

	// Lazy deletion: skip entries superseded by a better path.
	if best, ok := own.gScore[current.node]; ok && current.g > best {
		return false
	}

	// The frontiers met: the opposite direction already settled this node.
	if _, ok := other.gScore[current.node]; ok {
		s.meet = current.node
		s.state = Completed
		return true
	}

	s.edgeBuf = s.graph.Neighbors(current.node, s.edgeBuf[:0])
	curHeading := own.heading[current.node]

	for _, e := range s.edgeBuf {
		g := current.g + e.Cost
		if e.Dir != curHeading && e.Dir != NoDirection && curHeading != NoDirection {
			g += s.opts.TurnPenalty
		}
		if best, ok := own.gScore[e.To]; ok && g >= best {
			continue
		}
		own.gScore[e.To] = g
		own.cameFrom[e.To] = current.node
		own.heading[e.To] = e.Dir

		var h float64
		if forward {
			h = s.graph.Heuristic(e.To, s.dst)
		} else {
			h = s.heuristicToSources(e.To)
		}
		heap.Push(&own.open, heapNode{node: e.To, f: g + h, g: g})
	}

	return false
}

// Path reconstructs the node sequence from the chosen source to dst.
// Only valid after Step returned Completed.
func (s *Search) Path() []int {
	if s.state != Completed {
		panic("pathfind: Path on incomplete search")
	}

	// Forward chain: meet back to a source, then reversed.
	var head []int
	node := s.meet
	for {
		head = append(head, node)
		prev, ok := s.fwd.cameFrom[node]
		if !ok {
			break
		}
		node = prev
	}
	for i, j := 0, len(head)-1; i < j; i, j = i+1, j-1 {
		head[i], head[j] = head[j], head[i]
	}

	// Backward chain: meet toward dst.
	node = s.meet
	for {
		prev, ok := s.bwd.cameFrom[node]
		if !ok {
			break
		}
		node = prev
		head = append(head, node)
	}

	return head
}

// FindPath runs a search to completion synchronously. Used where a result is
// needed within the current tick, such as railroad construction.
func FindPath(g Graph, sources []int, dst int, opts Options) ([]int, Result) {
	s := NewSearch(g, sources, dst, opts)
	for {
		switch s.Step() {
		case Completed:
			return s.Path(), Completed
		case PathNotFound:
			return nil, PathNotFound
		}
	}
}
