// Package telemetry collects per-round loop timing and writes it out as CSV.
package telemetry

import (
	"log/slog"
	"sort"
)

// LoopPerf accumulates per-tick timing for one round. All methods are
// nil-safe so the game loop can carry a disabled collector, and they are
// only called from the simulation goroutine.
type LoopPerf struct {
	frames       []float64
	fixedUpdates int
	elapsed      float64
	maxFixed     int
}

// NewLoopPerf returns a collector for one round.
func NewLoopPerf() *LoopPerf {
	return &LoopPerf{}
}

// RecordTick records one loop iteration: the clamped frame time in seconds
// and how many fixed updates it drained.
func (p *LoopPerf) RecordTick(frameSec float64, fixedCount int) {
	if p == nil {
		return
	}
	p.frames = append(p.frames, frameSec)
	p.fixedUpdates += fixedCount
	p.elapsed += frameSec
	if fixedCount > p.maxFixed {
		p.maxFixed = fixedCount
	}
}

// LoopStats aggregates one round of tick timing.
type LoopStats struct {
	Ticks           int     `csv:"ticks"`
	FixedUpdates    int     `csv:"fixed_updates"`
	MaxFixedPerTick int     `csv:"max_fixed_per_tick"`
	ElapsedSec      float64 `csv:"elapsed_sec"`
	AvgFrameMs      float64 `csv:"avg_frame_ms"`
	P95FrameMs      float64 `csv:"p95_frame_ms"`
	MaxFrameMs      float64 `csv:"max_frame_ms"`
}

// Stats computes the round aggregate.
func (p *LoopPerf) Stats() LoopStats {
	if p == nil || len(p.frames) == 0 {
		return LoopStats{}
	}

	sorted := make([]float64, len(p.frames))
	copy(sorted, p.frames)
	sort.Float64s(sorted)

	var sum float64
	for _, f := range sorted {
		sum += f
	}

	return LoopStats{
		Ticks:           len(p.frames),
		FixedUpdates:    p.fixedUpdates,
		MaxFixedPerTick: p.maxFixed,
		ElapsedSec:      p.elapsed,
		AvgFrameMs:      sum / float64(len(sorted)) * 1000,
		P95FrameMs:      Percentile(sorted, 0.95) * 1000,
		MaxFrameMs:      sorted[len(sorted)-1] * 1000,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s LoopStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("ticks", s.Ticks),
		slog.Int("fixed_updates", s.FixedUpdates),
		slog.Int("max_fixed_per_tick", s.MaxFixedPerTick),
		slog.Float64("elapsed_sec", s.ElapsedSec),
		slog.Float64("avg_frame_ms", s.AvgFrameMs),
		slog.Float64("p95_frame_ms", s.P95FrameMs),
		slog.Float64("max_frame_ms", s.MaxFrameMs),
	)
}

// Percentile returns the p-th percentile (p in [0,1]) of an ascending-sorted
// slice, with linear interpolation between ranks.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
