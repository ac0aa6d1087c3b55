// Package engine provides the tick-based simulation loop and the Simulation
// aggregate that wires the rail economy together.
package engine

import (
	"log/slog"
	"time"
)

// TerritoryCheckInterval is how often a player's territory clusters are
// recomputed. The check is offset per player by a hash of the name so the
// whole roster never recomputes on the same tick.
const TerritoryCheckInterval = 20

// Engine drives the simulation forward.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Speed    float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // Base tick interval (default 1 second)
	Running  bool

	// Callbacks — populated during setup.
	OnTick     func(tick uint64) // Every tick
	OnAutosave func(tick uint64) // Every AutosaveEvery ticks

	// AutosaveEvery is the snapshot cadence in ticks; 0 disables it.
	AutosaveEvery uint64
}

// NewEngine creates a simulation engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Speed:    1.0,
		Interval: time.Second,
	}
}

// Run starts the simulation loop. Blocks until Stop() is called.
func (e *Engine) Run() {
	e.Running = true
	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.Speed)

	for e.Running {
		if e.Speed <= 0 {
			// Paused — sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / e.Speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation engine stopped", "tick", e.Tick)
}

// Stop halts the simulation loop.
func (e *Engine) Stop() {
	e.Running = false
}

// step advances the simulation by one tick. All world mutation happens on
// this goroutine; readers get value snapshots.
func (e *Engine) step() {
	e.Tick++

	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}

	if e.AutosaveEvery > 0 && e.Tick%e.AutosaveEvery == 0 && e.OnAutosave != nil {
		e.OnAutosave(e.Tick)
	}
}
