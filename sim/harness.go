// Package sim provides a synchronous, in-process embedding of
// pkg/plumtree/core.Node: a routing helper that matches Send actions
// to their destination's HandleProtocolMessage, and a uniform clock
// tick — exactly the harness spec.md §8 describes for exercising
// end-to-end scenarios. It mirrors the teacher's
// test.UnityCluster/test.CreateCluster shape, adapted from a
// consensus-cluster harness to a gossip-cluster one.
package sim

import (
	"time"

	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/core"
	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/types"
)

// Cluster is a fixed set of Plumtree nodes sharing one synchronous
// router. It performs no I/O of its own — Pump is the only thing that
// moves actions between nodes, which keeps the harness as deterministic
// as the nodes it drives.
type Cluster[N comparable, M comparable, P any] struct {
	nodes     map[N]*core.Node[N, M, P]
	delivered map[N][]types.Message[M, P]
}

// NewCluster returns an empty cluster.
func NewCluster[N comparable, M comparable, P any]() *Cluster[N, M, P] {
	return &Cluster[N, M, P]{
		nodes:     make(map[N]*core.Node[N, M, P]),
		delivered: make(map[N][]types.Message[M, P]),
	}
}

// AddNode registers a node under its own id. The node must already
// have been constructed (core.NewNode / core.NewNodeWithOptions).
func (c *Cluster[N, M, P]) AddNode(node *core.Node[N, M, P]) {
	c.nodes[node.ID()] = node
	if _, ok := c.delivered[node.ID()]; !ok {
		c.delivered[node.ID()] = nil
	}
}

// Node returns the node registered under id, if any.
func (c *Cluster[N, M, P]) Node(id N) (*core.Node[N, M, P], bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// Connect establishes an undirected neighbor edge between a and b:
// each calls HandleNeighborUp for the other.
func (c *Cluster[N, M, P]) Connect(a, b N) {
	if na, ok := c.nodes[a]; ok {
		na.HandleNeighborUp(b)
	}
	if nb, ok := c.nodes[b]; ok {
		nb.HandleNeighborUp(a)
	}
}

// Disconnect tears down the edge between a and b.
func (c *Cluster[N, M, P]) Disconnect(a, b N) {
	if na, ok := c.nodes[a]; ok {
		na.HandleNeighborDown(b)
	}
	if nb, ok := c.nodes[b]; ok {
		nb.HandleNeighborDown(a)
	}
}

// Delivered returns the messages delivered so far to the node
// registered under id, in delivery order.
func (c *Cluster[N, M, P]) Delivered(id N) []types.Message[M, P] {
	return c.delivered[id]
}

// Tick advances every node's logical clock by d.
func (c *Cluster[N, M, P]) Tick(d time.Duration) {
	for _, n := range c.nodes {
		n.Tick(d)
	}
}

// Pump drains every node's action queue until no node has any action
// left to emit, routing Send actions to their destination's
// HandleProtocolMessage (silently discarding sends to unregistered
// destinations, per spec §4.4's fire-and-forget failure semantics) and
// recording Deliver actions. It caps at maxRounds full sweeps to avoid
// spinning forever if the caller's scenario never quiesces.
func (c *Cluster[N, M, P]) Pump(maxRounds int) {
	for round := 0; round < maxRounds; round++ {
		progressed := false
		for _, n := range c.nodes {
			for {
				action, ok := n.PollAction()
				if !ok {
					break
				}
				progressed = true
				c.apply(n.ID(), action)
			}
		}
		if !progressed {
			return
		}
	}
}

func (c *Cluster[N, M, P]) apply(from N, action types.Action[N, M, P]) {
	switch a := action.(type) {
	case types.SendAction[N, M, P]:
		dest, ok := c.nodes[a.Destination]
		if !ok {
			return
		}
		dest.HandleProtocolMessage(a.Message)
	case types.DeliverAction[N, M, P]:
		c.delivered[from] = append(c.delivered[from], a.Message)
	}
}
