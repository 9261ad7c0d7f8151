package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/cmdgraph/internal/argument"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/config"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/graph"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/metrics"
)

var (
	ErrQueueFull = errors.New("engine: compile queue full")
	ErrClosed    = errors.New("engine: shut down")
)

// BuildResult is the outcome of one Rebuild.
type BuildResult struct {
	Snapshot *Snapshot
	// Changed is false when the new graph is identical to the active one; the
	// active snapshot is then kept and nothing needs to be rebroadcast.
	Changed bool
}

// Engine owns the active compiled command graph. All compilations run on a
// single worker, so registration into a graph.Builder is never concurrent.
type Engine struct {
	snapshot atomic.Pointer[Snapshot]
	registry *argument.Registry
	pool     *workerPool[*config.CommandSet, BuildResult]
	logger   *slog.Logger
}

// New creates an Engine and starts its compile worker. queueDepth bounds the
// number of rebuilds waiting behind the one in progress.
func New(ctx context.Context, reg *argument.Registry, queueDepth int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if queueDepth < 1 {
		queueDepth = 1
	}
	e := &Engine{
		registry: reg,
		logger:   logger.With("component", "engine"),
	}
	e.pool = newWorkerPool(ctx, 1, queueDepth, e.compile)
	return e
}

// Current returns the active snapshot, or nil before the first successful build.
func (e *Engine) Current() *Snapshot {
	return e.snapshot.Load()
}

// Rebuild compiles set on the engine's worker and swaps it in unless it is
// identical to the active graph. A failed build leaves the active graph untouched.
func (e *Engine) Rebuild(ctx context.Context, set *config.CommandSet) (BuildResult, error) {
	res, err := e.pool.Do(ctx, set)
	metrics.CompileQueueUtilization.Set(e.QueueUtilization())
	return res, err
}

// QueueUtilization returns queue used / capacity (0 to 1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

func (e *Engine) compile(ctx context.Context, set *config.CommandSet) (BuildResult, error) {
	if err := ctx.Err(); err != nil {
		return BuildResult{}, err
	}
	start := time.Now()
	snap, err := Compile(set, e.registry)
	metrics.BuildDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.GraphBuilds.WithLabelValues("error").Inc()
		var ue *graph.UnresolvedError
		if errors.As(err, &ue) {
			metrics.UnresolvedRedirects.Add(float64(len(ue.Failed)))
		}
		e.logger.Error("command graph build failed", "err", err)
		return BuildResult{}, err
	}

	if cur := e.snapshot.Load(); cur != nil && cur.Fingerprint == snap.Fingerprint {
		metrics.GraphBuilds.WithLabelValues("unchanged").Inc()
		e.logger.Info("command graph unchanged", "fingerprint", cur.Fingerprint, "nodes", cur.NodeCount)
		return BuildResult{Snapshot: cur, Changed: false}, nil
	}

	e.snapshot.Store(snap)
	metrics.GraphBuilds.WithLabelValues("swapped").Inc()
	metrics.GraphNodes.Set(float64(snap.NodeCount))
	metrics.GraphRedirects.Set(float64(snap.Redirects))
	metrics.PacketBytes.WithLabelValues("payload").Set(float64(len(snap.Payload)))
	metrics.PacketBytes.WithLabelValues("framed").Set(float64(len(snap.Packet)))
	e.logger.Info("command graph built",
		"id", snap.ID,
		"fingerprint", snap.Fingerprint,
		"nodes", snap.NodeCount,
		"redirects", snap.Redirects,
		"unreachable", len(snap.Unreachable),
		"packet_bytes", len(snap.Packet),
		"duration", time.Since(start))
	return BuildResult{Snapshot: snap, Changed: true}, nil
}

// Shutdown stops accepting rebuilds and waits for the one in progress.
func (e *Engine) Shutdown() {
	e.pool.Drain()
}
