// Package core implements the Plumtree node: the peer-set manager,
// message store, missing-message tracker, and the state machine that
// ties them together into the reactive action emitter described by
// the Epidemic Broadcast Trees paper (Leitão et al., SRDS 2007).
package core

import (
	"time"

	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/definition"
	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/metrics"
	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/types"
)

// Node is a single Plumtree actor. It performs no I/O and no work
// between calls: every public method mutates state synchronously and
// pushes zero or more outbound Actions, which the embedder drains via
// PollAction. Concurrent access to one Node from multiple goroutines
// is undefined — the embedder must serialize access (spec §5).
type Node[N comparable, M comparable, P any] struct {
	id      N
	options types.NodeOptions

	peers   *PeerSet[N]
	store   *Store[M, P]
	tracker *Tracker[N, M]
	actions *types.ActionQueue[N, M, P]
	clock   *types.Clock

	log      definition.Logger
	recorder metrics.Recorder
}

// NewNode returns a Node with default options.
func NewNode[N comparable, M comparable, P any](id N) *Node[N, M, P] {
	return NewNodeWithOptions[N, M, P](id, types.DefaultNodeOptions())
}

// NewNodeWithOptions returns a Node configured with options.
func NewNodeWithOptions[N comparable, M comparable, P any](id N, options types.NodeOptions) *Node[N, M, P] {
	log := options.Logger
	if log == nil {
		log = definition.NewDefaultLogger()
	}
	recorder := options.Recorder
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &Node[N, M, P]{
		id:       id,
		options:  options,
		peers:    NewPeerSet[N](id),
		store:    NewStore[M, P](),
		tracker:  NewTracker[N, M](),
		actions:  types.NewActionQueue[N, M, P](),
		clock:    types.NewClock(),
		log:      log,
		recorder: recorder,
	}
}

// ID returns the node's own identifier.
func (n *Node[N, M, P]) ID() N { return n.id }

// Options returns the node's current options.
func (n *Node[N, M, P]) Options() types.NodeOptions { return n.options }

// SetOptions replaces the node's options (e.g. to retune timeouts at
// runtime).
func (n *Node[N, M, P]) SetOptions(options types.NodeOptions) { n.options = options }

// EagerPushPeers returns the current tree-neighbor set.
func (n *Node[N, M, P]) EagerPushPeers() *Set[N] { return n.peers.Eager() }

// LazyPushPeers returns the current advertise-only peer set.
func (n *Node[N, M, P]) LazyPushPeers() *Set[N] { return n.peers.Lazy() }

// Messages returns the live message-id-to-payload map. Callers must
// treat it as read-only.
func (n *Node[N, M, P]) Messages() map[M]P { return n.store.All() }

// WaitingMessages returns the number of distinct ids the
// missing-message tracker currently holds.
func (n *Node[N, M, P]) WaitingMessages() int { return n.tracker.WaitingMessages() }

// Clock returns the node's logical clock.
func (n *Node[N, M, P]) Clock() *types.Clock { return n.clock }

// NextExpiryTime returns the tracker's next pending deadline, if any.
func (n *Node[N, M, P]) NextExpiryTime() (types.NodeTime, bool) {
	return n.tracker.NextExpiryTime()
}

// BroadcastMessage originates msg locally: it is delivered immediately,
// diffused to every peer via eager-push (full payload) and lazy-push
// (advertisement), and stored.
func (n *Node[N, M, P]) BroadcastMessage(msg types.Message[M, P]) {
	n.actions.Deliver(msg)

	gossip := types.GossipMessage[N, M, P]{Sender: n.id, Msg: msg, Round: 0}
	n.eagerPush(gossip)
	n.lazyPush(gossip)
	n.store.Put(msg.ID, msg.Payload)
}

// ForgetMessage removes id from the store, reporting whether it was
// present. The embedder is responsible for calling this to bound
// memory growth; the core never forgets on its own.
func (n *Node[N, M, P]) ForgetMessage(id M) bool {
	return n.store.Forget(id)
}

// PollAction first drives any pending tracker expiry at the current
// clock time, then pops and returns the oldest queued action.
//
// Driving expiry here (Tick never does) matches spec §4.4:
// effective per-call order is (expiry-derived actions, then
// pre-existing queued actions).
func (n *Node[N, M, P]) PollAction() (types.Action[N, M, P], bool) {
	n.driveExpiry()
	n.recorder.TrackerDepth(n.tracker.WaitingMessages())
	n.recorder.PeerCounts(n.peers.Eager().Len(), n.peers.Lazy().Len())
	action, ok := n.actions.Pop()
	if ok {
		switch action.(type) {
		case types.SendAction[N, M, P]:
			n.recorder.ActionEmitted("send")
		case types.DeliverAction[N, M, P]:
			n.recorder.ActionEmitted("deliver")
		}
	}
	return action, ok
}

func (n *Node[N, M, P]) driveExpiry() {
	for {
		ihave, ok := n.tracker.PopExpired(n.clock.Now())
		if !ok {
			return
		}
		if !n.peers.IsKnown(ihave.Sender) {
			// The advertiser left the picture since this IHAVE arrived.
			continue
		}
		n.peers.InsertEager(ihave.Sender)
		id := ihave.MessageID
		n.actions.Send(ihave.Sender, types.GraftMessage[N, M]{
			Sender:    n.id,
			MessageID: &id,
			Round:     ihave.Round,
		})
	}
}

// Tick advances the node's logical clock by d. Expiry is driven
// lazily on the next PollAction.
func (n *Node[N, M, P]) Tick(d time.Duration) {
	n.clock.Tick(d)
}

// HandleProtocolMessage dispatches an inbound protocol message.
// Returns false without any state change if the sender is not a known
// peer (spec §7 — unknown-sender protocol input is silently ignored).
func (n *Node[N, M, P]) HandleProtocolMessage(message types.ProtocolMessage[N]) bool {
	if !n.peers.IsKnown(message.SenderID()) {
		n.log.Debugf("rejecting protocol message from unknown sender %v", message.SenderID())
		return false
	}
	switch m := message.(type) {
	case types.GossipMessage[N, M, P]:
		n.recorder.ProtocolMessageReceived("gossip")
		n.handleGossip(m)
	case types.IhaveMessage[N, M]:
		n.recorder.ProtocolMessageReceived("ihave")
		n.handleIhave(m)
	case types.GraftMessage[N, M]:
		n.recorder.ProtocolMessageReceived("graft")
		n.handleGraft(m)
	case types.PruneMessage[N]:
		n.recorder.ProtocolMessageReceived("prune")
		n.handlePrune(m)
	default:
		n.log.Warnf("unrecognized protocol message %#v", message)
		return false
	}
	return true
}

func (n *Node[N, M, P]) handleGossip(g types.GossipMessage[N, M, P]) {
	if n.store.Contains(g.Msg.ID) {
		// g.Sender was wastefully acting as an eager parent for a
		// message we already have; demote it.
		n.log.Debugf("duplicate GOSSIP for %v from eager parent %v; pruning", g.Msg.ID, g.Sender)
		n.peers.InsertLazy(g.Sender)
		n.actions.Send(g.Sender, types.PruneMessage[N]{Sender: n.id})
		return
	}

	n.actions.Deliver(g.Msg)
	n.eagerPush(g)
	n.lazyPush(g)
	n.peers.InsertEager(g.Sender)
	n.considerOptimization(g)
	n.tracker.Remove(g.Msg.ID)
	n.store.Put(g.Msg.ID, g.Msg.Payload)
}

func (n *Node[N, M, P]) handleIhave(i types.IhaveMessage[N, M]) {
	if n.store.Contains(i.MessageID) {
		return
	}
	if n.peers.Eager().Len() == 0 {
		// No eager parent to fall back on; treat this advertisement as
		// immediately actionable instead of waiting out a full timeout.
		i.Realtime = true
	}
	n.tracker.Push(i, n.clock.Now(), n.options.IhaveTimeout)
}

func (n *Node[N, M, P]) handleGraft(g types.GraftMessage[N, M]) {
	n.peers.InsertEager(g.Sender)
	if g.MessageID == nil {
		return
	}
	payload, ok := n.store.Get(*g.MessageID)
	if !ok {
		// Requester recovers on the next IHAVE expiry (spec §7).
		return
	}
	n.actions.Send(g.Sender, types.GossipMessage[N, M, P]{
		Sender: n.id,
		Msg:    types.Message[M, P]{ID: *g.MessageID, Payload: payload},
		Round:  g.Round,
	})
}

func (n *Node[N, M, P]) handlePrune(p types.PruneMessage[N]) {
	n.peers.InsertLazy(p.Sender)
}

// HandleNeighborUp admits a newly-up peer into the eager set and
// backfills it with an IHAVE (round=0) for every message currently
// held. A no-op for the node's own id or an already-known peer.
func (n *Node[N, M, P]) HandleNeighborUp(peer N) {
	if peer == n.id || n.peers.IsKnown(peer) {
		return
	}
	for id := range n.store.All() {
		n.actions.Send(peer, types.IhaveMessage[N, M]{
			Sender:    n.id,
			MessageID: id,
			Round:     0,
			Realtime:  false,
		})
	}
	n.peers.InsertEager(peer)
}

// HandleNeighborDown drops a departed peer from both peer sets. If
// this empties the eager set, the node proactively heals by forcing
// tracked advertisements to expire until one comes from a still-known
// peer, which it GRAFTs; at most one GRAFT is sent, and none if the
// tracker drains first (spec §4.4 no-eager-peers fallback).
func (n *Node[N, M, P]) HandleNeighborDown(peer N) {
	if !n.peers.IsKnown(peer) {
		return
	}
	n.peers.Remove(peer)
	if n.peers.Eager().Len() == 0 {
		n.healNoEagerPeers()
	}
}

// healNoEagerPeers repeatedly forces the tracker to expire its next
// advertisement (via the "infinitely future" sentinel) and grafts to
// it, stopping at the first advertiser that's still known — or when
// the tracker drains entirely.
func (n *Node[N, M, P]) healNoEagerPeers() {
	for {
		ihave, ok := n.tracker.PopExpired(types.MaxNodeTime())
		if !ok {
			return
		}
		if !n.peers.IsKnown(ihave.Sender) {
			continue
		}
		n.log.Debugf("no eager peers left; healing by grafting %v for %v", ihave.Sender, ihave.MessageID)
		n.peers.InsertEager(ihave.Sender)
		id := ihave.MessageID
		n.actions.Send(ihave.Sender, types.GraftMessage[N, M]{
			Sender:    n.id,
			MessageID: &id,
			Round:     ihave.Round,
		})
		return
	}
}

// eagerPush forwards the full payload of g to every eager peer other
// than g.Sender, at hop count g.Round+1 (saturating).
func (n *Node[N, M, P]) eagerPush(g types.GossipMessage[N, M, P]) {
	round := saturatingAdd1(g.Round)
	n.peers.Eager().Each(func(peer N) {
		if peer == g.Sender {
			return
		}
		n.actions.Send(peer, types.GossipMessage[N, M, P]{
			Sender: n.id,
			Msg:    g.Msg,
			Round:  round,
		})
	})
}

// lazyPush advertises g to every lazy peer other than g.Sender, at hop
// count g.Round+1 (saturating).
func (n *Node[N, M, P]) lazyPush(g types.GossipMessage[N, M, P]) {
	round := saturatingAdd1(g.Round)
	n.peers.Lazy().Each(func(peer N) {
		if peer == g.Sender {
			return
		}
		n.actions.Send(peer, types.IhaveMessage[N, M]{
			Sender:    n.id,
			MessageID: g.Msg.ID,
			Round:     round,
			Realtime:  true,
		})
	})
}

func saturatingAdd1(round uint16) uint16 {
	if round == ^uint16(0) {
		return round
	}
	return round + 1
}

func (n *Node[N, M, P]) considerOptimization(g types.GossipMessage[N, M, P]) {
	ihaveRound, ihaveOwner, ok := n.tracker.GetIhave(g.Msg.ID)
	if !ok {
		return
	}
	if g.Round < ihaveRound {
		return
	}
	if g.Round-ihaveRound >= n.options.OptimizationThreshold {
		n.actions.Send(ihaveOwner, types.GraftMessage[N, M]{
			Sender:    n.id,
			MessageID: nil,
			Round:     ihaveRound,
		})
		n.actions.Send(g.Sender, types.PruneMessage[N]{Sender: n.id})
	}
}
