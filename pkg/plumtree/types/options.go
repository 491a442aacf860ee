package types

import (
	"time"

	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/definition"
	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/metrics"
)

// NodeOptions configures a Node's timing and tree-optimization
// behavior, plus the ambient logging/metrics collaborators. Mirrors
// the teacher's plain-struct-with-defaults configuration style
// (types.PeerConfiguration / types.Configuration).
type NodeOptions struct {
	// IhaveTimeout is the duration after which an outstanding IHAVE
	// triggers a GRAFT.
	IhaveTimeout time.Duration

	// OptimizationThreshold is the minimum hop-count savings required
	// to trigger the §3.8 tree-reconfiguration optimization.
	OptimizationThreshold uint16

	// Logger receives diagnostic traces. Never participates in control
	// flow (spec §7 — the core is infallible).
	Logger definition.Logger

	// Recorder receives instrumentation callbacks. Never participates
	// in control flow.
	Recorder metrics.Recorder
}

// DefaultNodeOptions returns the paper's recommended defaults: a
// 500ms IHAVE timeout and an optimization threshold of 2 hops, with a
// stderr logger and no-op metrics.
func DefaultNodeOptions() NodeOptions {
	return NodeOptions{
		IhaveTimeout:          500 * time.Millisecond,
		OptimizationThreshold: 2,
		Logger:                definition.NewDefaultLogger(),
		Recorder:              metrics.NopRecorder{},
	}
}
