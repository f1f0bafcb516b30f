package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Engine drives a Simulation in wall-clock time for live viewing. Batch runs
// call Simulation.Run directly and skip pacing entirely.
type Engine struct {
	Sim      *Simulation
	Sink     Sink
	Interval time.Duration // Base tick interval; 0 runs as fast as possible

	mu    sync.Mutex
	speed float64 // Multiplier: 1.0 = real-time, 0 = paused
	ticks uint64  // Tick limit; 0 means unbounded
	err   error
}

// NewEngine creates an engine with default pacing.
func NewEngine(sim *Simulation, sink Sink) *Engine {
	return &Engine{
		Sim:      sim,
		Sink:     sink,
		Interval: 100 * time.Millisecond,
		speed:    1.0,
	}
}

// SetSpeed changes the pacing multiplier. Zero pauses the loop.
func (e *Engine) SetSpeed(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v < 0 {
		v = 0
	}
	e.speed = v
}

// Speed returns the current pacing multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// Err returns the error that stopped the last Run, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Run steps the simulation until maxTicks ticks have completed (0 means no
// limit), ctx is cancelled or a step fails. Blocks until then.
func (e *Engine) Run(ctx context.Context, maxTicks uint64) error {
	e.ticks = maxTicks
	slog.Info("simulation engine started", "tick", e.Sim.Tick, "speed", e.Speed(), "max_ticks", maxTicks)

	err := e.loop(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	e.mu.Lock()
	e.err = err
	e.mu.Unlock()

	if err != nil {
		slog.Error("simulation engine stopped", "tick", e.Sim.Tick, "error", err)
	} else {
		slog.Info("simulation engine stopped", "tick", e.Sim.Tick)
	}
	return err
}

func (e *Engine) loop(ctx context.Context) error {
	for e.ticks == 0 || e.Sim.Tick < e.ticks {
		if err := ctx.Err(); err != nil {
			return err
		}

		speed := e.Speed()
		if speed <= 0 {
			// Paused; check again shortly.
			if err := sleepCtx(ctx, 100*time.Millisecond); err != nil {
				return err
			}
			continue
		}

		start := time.Now()
		r, err := e.Sim.Step()
		if err != nil {
			return err
		}
		if e.Sink != nil {
			e.Sink.Record(r)
		}

		// Sleep for the remainder of the tick interval, adjusted for speed.
		if e.Interval > 0 {
			target := time.Duration(float64(e.Interval) / speed)
			if elapsed := time.Since(start); elapsed < target {
				if err := sleepCtx(ctx, target-elapsed); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
