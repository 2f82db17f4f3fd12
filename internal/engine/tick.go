// Package engine provides the monthly simulation loop and the orchestrator that runs
// every diplomacy stage in a fixed order.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MonthsPerYear is the calendar length; yearly work runs when the month counter crosses it.
const MonthsPerYear = 12

// Engine drives the simulation forward one month at a time.
type Engine struct {
	Month    int           // Current month (monotonic, never resets)
	Interval time.Duration // Real time per month at speed 1

	// Callbacks populated during setup.
	OnMonth func(month int)
	OnYear  func(month int)

	mu      sync.Mutex
	speed   float64 // 1.0 = real-time, 0 = paused
	running bool
	cancel  context.CancelFunc
}

// NewEngine creates an engine at month 0 running at normal speed.
func NewEngine() *Engine {
	return &Engine{
		Interval: time.Second,
		speed:    1.0,
	}
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero pauses; negative values are treated as zero.
func (e *Engine) SetSpeed(s float64) {
	e.mu.Lock()
	e.speed = max(0, s)
	e.mu.Unlock()
	slog.Info("speed changed", "speed", s)
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run advances months until ctx is cancelled or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.running = true
	e.cancel = cancel
	e.mu.Unlock()
	defer func() {
		cancel()
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	slog.Info("simulation engine started", "month", e.Month, "speed", e.Speed())
	for {
		speed := e.Speed()
		if speed <= 0 {
			// Paused: check again shortly.
			if !sleep(ctx, 100*time.Millisecond) {
				break
			}
			continue
		}

		start := time.Now()
		e.Step()

		target := time.Duration(float64(e.Interval) / speed)
		if !sleep(ctx, target-time.Since(start)) {
			break
		}
	}
	slog.Info("simulation engine stopped", "month", e.Month)
}

// Stop halts a running loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Step advances the simulation by one month.
func (e *Engine) Step() {
	e.Month++
	if e.OnMonth != nil {
		e.OnMonth(e.Month)
	}
	if e.Month%MonthsPerYear == 0 && e.OnYear != nil {
		e.OnYear(e.Month)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

var monthNames = [MonthsPerYear]string{
	"Thawmoon", "Seedmoon", "Bloommoon", "Greenmoon", "Sunmoon", "Highsun",
	"Harvestmoon", "Reapmoon", "Leafall", "Mistmoon", "Frostmoon", "Deepwinter",
}

// SimTime renders a month counter as a calendar date. Month 0 is the eve of year 1.
func SimTime(month int) string {
	if month <= 0 {
		return "Year 1, before the first month"
	}
	m := month - 1
	return fmt.Sprintf("%s, Year %d", monthNames[m%MonthsPerYear], m/MonthsPerYear+1)
}

// Year returns the calendar year a month falls in.
func Year(month int) int {
	if month <= 0 {
		return 1
	}
	return (month-1)/MonthsPerYear + 1
}
