// The Engine owns the simulation goroutine: a ticker-driven loop that
// drains queued commands, steps the world, seals the delta, and hands it
// to the broadcast callback. Readers (HTTP handlers, the hub) access the
// simulation only through View and SnapshotJSON, which take the read lock.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueFull is returned when the command queue cannot take more
// commands this tick.
var ErrQueueFull = errors.New("command queue full")

const commandQueueSize = 256

// Engine drives the simulation at a configurable speed.
type Engine struct {
	mu  sync.RWMutex
	sim *Simulation
	seq uint64

	speed  int
	paused bool

	commands chan Command
	logger   *slog.Logger

	// OnDelta is invoked after every tick with the sealed delta. It runs
	// on the engine goroutine and must not block.
	OnDelta func(*TickDelta)

	// OnSnapshot is invoked every AutosavePeriod ticks for persistence.
	OnSnapshot     func(*Snapshot)
	AutosavePeriod uint64
}

// New creates an engine over a simulation.
func New(sim *Simulation, logger *slog.Logger) *Engine {
	return &Engine{
		sim:      sim,
		speed:    1,
		commands: make(chan Command, commandQueueSize),
		logger:   logger,
	}
}

// Submit queues a command for the next tick. Non-blocking; a full queue
// rejects the command rather than stalling the caller.
func (e *Engine) Submit(cmd Command) error {
	select {
	case e.commands <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// SetSpeed changes the tick rate multiplier (1, 2, or 4).
func (e *Engine) SetSpeed(speed int) {
	if speed < 1 {
		speed = 1
	}
	if speed > 4 {
		speed = 4
	}
	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()
}

// SetPaused stops or resumes ticking without stopping the loop.
func (e *Engine) SetPaused(p bool) {
	e.mu.Lock()
	e.paused = p
	e.mu.Unlock()
}

// Paused reports whether ticking is suspended.
func (e *Engine) Paused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.paused
}

// Speed returns the current tick rate multiplier.
func (e *Engine) Speed() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.speed
}

// Seq returns the sequence number of the last broadcast delta.
func (e *Engine) Seq() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.seq
}

// Tick returns the current simulation tick.
func (e *Engine) Tick() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sim.Tick
}

// View runs f with the simulation under the read lock. f must not retain
// references past its return.
func (e *Engine) View(f func(*Simulation)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	f(e.sim)
}

// SnapshotJSON serializes the full world state under the read lock.
func (e *Engine) SnapshotJSON() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return json.Marshal(e.sim.Export(e.seq))
}

// Run ticks the simulation until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	base := time.Duration(e.sim.Params.TickMS) * time.Millisecond
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	ticker := time.NewTicker(base)
	defer ticker.Stop()
	curSpeed := 1

	e.logger.Info("engine started", "tick_interval", base, "tick", e.sim.Tick)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped", "tick", e.Tick())
			return
		case <-ticker.C:
			if speed := e.Speed(); speed != curSpeed {
				curSpeed = speed
				ticker.Reset(base / time.Duration(curSpeed))
			}
			if e.Paused() {
				continue
			}
			e.step()
		}
	}
}

// step drains the queue and advances one tick.
func (e *Engine) step() {
	var cmds []Command
	for {
		select {
		case cmd := <-e.commands:
			cmds = append(cmds, cmd)
		default:
			goto drained
		}
	}
drained:

	e.mu.Lock()
	d := e.sim.Step(cmds)
	if pr := e.sim.takePauseRequest(); pr != nil {
		e.paused = *pr
	}
	e.seq++
	d.Seq = e.seq
	if err := d.Seal(); err != nil {
		e.logger.Error("delta seal failed", "tick", d.Tick, "error", err)
	}
	var snap *Snapshot
	if e.OnSnapshot != nil && e.AutosavePeriod > 0 && e.sim.Tick%e.AutosavePeriod == 0 {
		snap = e.sim.Export(e.seq)
	}
	e.mu.Unlock()

	if e.OnDelta != nil {
		e.OnDelta(d)
	}
	if snap != nil {
		e.OnSnapshot(snap)
	}
}

// StepOnce advances exactly one tick with the given commands, bypassing
// the ticker. Used by tests and headless tools.
func (e *Engine) StepOnce(cmds []Command) *TickDelta {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.sim.Step(cmds)
	if pr := e.sim.takePauseRequest(); pr != nil {
		e.paused = *pr
	}
	e.seq++
	d.Seq = e.seq
	_ = d.Seal()
	return d
}
