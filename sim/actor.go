package sim

import (
	"sync"
	"time"

	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/core"
	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/definition"
	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/types"
)

// Actor wraps a core.Node with its own goroutine, giving it a concurrent,
// long-running embedding instead of the synchronous Cluster's
// caller-driven Pump loop. It mirrors the teacher's Peer: a poll loop
// reading off a Transport, draining the node's action queue after every
// state change, and a Stop/Command surface for the outside world.
//
// Node itself stays single-threaded internally (spec §5); Actor is the
// serialization boundary that makes that safe to embed concurrently.
type Actor[N comparable, M comparable, P any] struct {
	node      *core.Node[N, M, P]
	transport Transport[N]
	log       definition.Logger

	mu       sync.Mutex
	commands chan func()
	done     chan struct{}
	stopOnce sync.Once
}

// NewActor constructs an Actor around node, wired to transport. The
// actor does not start polling until Start is called.
func NewActor[N comparable, M comparable, P any](node *core.Node[N, M, P], transport Transport[N], log definition.Logger) *Actor[N, M, P] {
	if log == nil {
		log = definition.NopLogger{}
	}
	return &Actor[N, M, P]{
		node:      node,
		transport: transport,
		log:       log,
		commands:  make(chan func()),
		done:      make(chan struct{}),
	}
}

// Start spawns the actor's poll loop on invoker, mirroring the teacher's
// Invoker.Spawn(p.poll) wiring in NewPeer.
func (a *Actor[N, M, P]) Start(invoker Invoker) {
	invoker.Spawn(a.poll)
}

// poll is the actor's single-threaded core: every iteration it either
// services one inbound protocol message, one queued command (used by
// Broadcast/NeighborUp/NeighborDown/Snapshot to hop onto the actor's
// own goroutine), or a tick of the timer that advances the node's clock
// and flushes expiry-driven actions even when nothing else is happening.
func (a *Actor[N, M, P]) poll() {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			a.transport.Close()
			return
		case msg, ok := <-a.transport.Listen():
			if !ok {
				return
			}
			a.mu.Lock()
			a.node.HandleProtocolMessage(msg)
			a.drain()
			a.mu.Unlock()
		case cmd := <-a.commands:
			a.mu.Lock()
			cmd()
			a.drain()
			a.mu.Unlock()
		case <-ticker.C:
			a.mu.Lock()
			a.node.Tick(20 * time.Millisecond)
			a.drain()
			a.mu.Unlock()
		}
	}
}

// drain flushes every currently-queued action out to the transport.
// Must be called with a.mu held.
func (a *Actor[N, M, P]) drain() {
	for {
		action, ok := a.node.PollAction()
		if !ok {
			return
		}
		switch act := action.(type) {
		case types.SendAction[N, M, P]:
			if err := a.transport.Unicast(act.Destination, act.Message); err != nil {
				a.log.Debugf("actor %v: unicast to %v failed: %v", a.node.ID(), act.Destination, err)
			}
		case types.DeliverAction[N, M, P]:
			a.log.Debugf("actor %v: delivered message %v", a.node.ID(), act.Message.ID)
		}
	}
}

// Broadcast originates msg from this actor's node, hopping onto the
// actor's own goroutine so it never races with poll's handling of
// inbound messages.
func (a *Actor[N, M, P]) Broadcast(msg types.Message[M, P]) {
	done := make(chan struct{})
	a.commands <- func() {
		a.node.BroadcastMessage(msg)
		close(done)
	}
	<-done
}

// NeighborUp and NeighborDown expose the node's membership hooks across
// the actor boundary the same way.
func (a *Actor[N, M, P]) NeighborUp(peer N) {
	done := make(chan struct{})
	a.commands <- func() {
		a.node.HandleNeighborUp(peer)
		close(done)
	}
	<-done
}

func (a *Actor[N, M, P]) NeighborDown(peer N) {
	done := make(chan struct{})
	a.commands <- func() {
		a.node.HandleNeighborDown(peer)
		close(done)
	}
	<-done
}

// Snapshot reports a point-in-time view of the actor's peer sets and
// delivery count, hopping onto the actor's goroutine so it never reads
// node state concurrently with poll.
type Snapshot[N comparable] struct {
	Eager     []N
	Lazy      []N
	Delivered int
	Waiting   int
}

func (a *Actor[N, M, P]) Snapshot() Snapshot[N] {
	result := make(chan Snapshot[N], 1)
	a.commands <- func() {
		result <- Snapshot[N]{
			Eager:     a.node.EagerPushPeers().Slice(),
			Lazy:      a.node.LazyPushPeers().Slice(),
			Delivered: len(a.node.Messages()),
			Waiting:   a.node.WaitingMessages(),
		}
	}
	return <-result
}

// Stop terminates the poll loop and closes the underlying transport.
// Safe to call more than once.
func (a *Actor[N, M, P]) Stop() {
	a.stopOnce.Do(func() {
		close(a.done)
	})
}
