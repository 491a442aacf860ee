package core

import (
	"testing"
	"time"

	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/types"
)

func drainSends(t *testing.T, n *Node[string, string, string]) []types.SendAction[string, string, string] {
	t.Helper()
	var sends []types.SendAction[string, string, string]
	for {
		action, ok := n.PollAction()
		if !ok {
			return sends
		}
		if send, isSend := action.(types.SendAction[string, string, string]); isSend {
			sends = append(sends, send)
		}
	}
}

func TestNode_BroadcastMessageDiffusesToEagerAndLazyPeers(t *testing.T) {
	node := NewNode[string, string, string]("a")
	node.HandleNeighborUp("b")
	node.HandleNeighborUp("c")
	drainSends(t, node) // discard the backfill IHAVEs from HandleNeighborUp (empty store)

	node.peers.InsertLazy("c")

	node.BroadcastMessage(types.Message[string, string]{ID: "m1", Payload: "hello"})

	sends := drainSends(t, node)
	var sawGossipTo, sawIhaveTo string
	for _, s := range sends {
		switch msg := s.Message.(type) {
		case types.GossipMessage[string, string, string]:
			sawGossipTo = s.Destination
			if msg.Round != 0 {
				t.Errorf("expected the originating GOSSIP to carry round 0, got %d", msg.Round)
			}
		case types.IhaveMessage[string, string]:
			sawIhaveTo = s.Destination
		}
	}
	if sawGossipTo != "b" {
		t.Errorf("expected GOSSIP sent to eager peer b, sends=%+v", sends)
	}
	if sawIhaveTo != "c" {
		t.Errorf("expected IHAVE sent to lazy peer c, sends=%+v", sends)
	}
	if !node.store.Contains("m1") {
		t.Errorf("expected m1 to be stored after broadcasting")
	}
}

func TestNode_HandleGossipDuplicatePrunesSender(t *testing.T) {
	node := NewNode[string, string, string]("a")
	node.HandleNeighborUp("b")
	drainSends(t, node)

	node.store.Put("m1", "hello")

	node.HandleProtocolMessage(types.GossipMessage[string, string, string]{
		Sender: "b",
		Msg:    types.Message[string, string]{ID: "m1", Payload: "hello"},
		Round:  1,
	})

	sends := drainSends(t, node)
	if len(sends) != 1 {
		t.Fatalf("expected exactly one action (a PRUNE) for a duplicate GOSSIP, got %+v", sends)
	}
	if _, ok := sends[0].Message.(types.PruneMessage[string]); !ok {
		t.Errorf("expected a PruneMessage, got %#v", sends[0].Message)
	}
	if !node.peers.Lazy().Contains("b") {
		t.Errorf("expected b demoted to lazy after advertising a duplicate")
	}
}

func TestNode_HandleGossipNewMessageDelivers(t *testing.T) {
	node := NewNode[string, string, string]("a")
	node.HandleNeighborUp("b")
	drainSends(t, node)

	node.HandleProtocolMessage(types.GossipMessage[string, string, string]{
		Sender: "b",
		Msg:    types.Message[string, string]{ID: "m1", Payload: "hello"},
		Round:  1,
	})

	delivered := false
	for {
		action, ok := node.PollAction()
		if !ok {
			break
		}
		if d, isDeliver := action.(types.DeliverAction[string, string, string]); isDeliver {
			delivered = true
			if d.Message.Payload != "hello" {
				t.Errorf("expected delivered payload hello, got %s", d.Message.Payload)
			}
		}
	}
	if !delivered {
		t.Errorf("expected a DeliverAction for a newly-seen GOSSIP")
	}
	if !node.peers.Eager().Contains("b") {
		t.Errorf("expected b promoted to eager after sending a new GOSSIP")
	}
	if !node.store.Contains("m1") {
		t.Errorf("expected m1 stored after delivery")
	}
}

func TestNode_RejectsProtocolMessageFromUnknownSender(t *testing.T) {
	node := NewNode[string, string, string]("a")
	ok := node.HandleProtocolMessage(types.GossipMessage[string, string, string]{
		Sender: "stranger",
		Msg:    types.Message[string, string]{ID: "m1", Payload: "hello"},
	})
	if ok {
		t.Errorf("expected HandleProtocolMessage to reject a message from an unknown sender")
	}
	if node.store.Contains("m1") {
		t.Errorf("expected the message to not be stored when rejected")
	}
}

func TestNode_HandleGraftResendsStoredPayload(t *testing.T) {
	node := NewNode[string, string, string]("a")
	node.HandleNeighborUp("b")
	drainSends(t, node)
	node.store.Put("m1", "hello")

	id := "m1"
	node.HandleProtocolMessage(types.GraftMessage[string, string]{Sender: "b", MessageID: &id, Round: 2})

	sends := drainSends(t, node)
	if len(sends) != 1 {
		t.Fatalf("expected exactly one resend action, got %+v", sends)
	}
	gossip, ok := sends[0].Message.(types.GossipMessage[string, string, string])
	if !ok || gossip.Msg.Payload != "hello" || sends[0].Destination != "b" {
		t.Errorf("expected GOSSIP(hello) resent to b, got %#v", sends[0])
	}
	if !node.peers.Eager().Contains("b") {
		t.Errorf("expected GRAFT to promote b into the eager set regardless of payload presence")
	}
}

func TestNode_HandleGraftWithoutPayloadOnlyPromotes(t *testing.T) {
	node := NewNode[string, string, string]("a")
	node.HandleNeighborUp("b")
	drainSends(t, node)

	node.HandleProtocolMessage(types.GraftMessage[string, string]{Sender: "b", MessageID: nil, Round: 2})

	if sends := drainSends(t, node); len(sends) != 0 {
		t.Errorf("expected no resend when GRAFT carries no message id, got %+v", sends)
	}
	if !node.peers.Eager().Contains("b") {
		t.Errorf("expected b promoted to eager")
	}
}

func TestNode_HandlePrunePutsSenderInLazy(t *testing.T) {
	node := NewNode[string, string, string]("a")
	node.HandleNeighborUp("b")
	drainSends(t, node)

	node.HandleProtocolMessage(types.PruneMessage[string]{Sender: "b"})

	if !node.peers.Lazy().Contains("b") || node.peers.Eager().Contains("b") {
		t.Errorf("expected b moved from eager to lazy after PRUNE")
	}
}

func TestNode_HandleIhaveSchedulesGraftOnExpiry(t *testing.T) {
	node := NewNode[string, string, string]("a")
	node.SetOptions(types.NodeOptions{IhaveTimeout: 100 * time.Millisecond, OptimizationThreshold: 2, Logger: node.log, Recorder: node.recorder})
	node.HandleNeighborUp("b")
	drainSends(t, node)

	node.HandleProtocolMessage(types.IhaveMessage[string, string]{Sender: "b", MessageID: "m1", Round: 1, Realtime: false})
	if sends := drainSends(t, node); len(sends) != 0 {
		t.Errorf("expected no GRAFT before the IHAVE timeout elapses, got %+v", sends)
	}

	node.Tick(100 * time.Millisecond)
	sends := drainSends(t, node)
	if len(sends) != 1 {
		t.Fatalf("expected exactly one GRAFT once the timeout elapses, got %+v", sends)
	}
	graft, ok := sends[0].Message.(types.GraftMessage[string, string])
	if !ok || graft.MessageID == nil || *graft.MessageID != "m1" || sends[0].Destination != "b" {
		t.Errorf("expected GRAFT(m1) sent to b, got %#v", sends[0])
	}
}

func TestNode_HandleIhaveForKnownMessageIsIgnored(t *testing.T) {
	node := NewNode[string, string, string]("a")
	node.HandleNeighborUp("b")
	drainSends(t, node)
	node.store.Put("m1", "hello")

	node.HandleProtocolMessage(types.IhaveMessage[string, string]{Sender: "b", MessageID: "m1", Round: 1, Realtime: false})
	if node.WaitingMessages() != 0 {
		t.Errorf("expected an IHAVE for an already-held message to not be tracked")
	}
}

func TestNode_NeighborDownHealsEmptyEagerSet(t *testing.T) {
	node := NewNode[string, string, string]("a")
	node.HandleNeighborUp("b")
	node.HandleNeighborUp("c")
	drainSends(t, node)

	// c advertises m1 over lazy; b stays a's sole eager parent, so the
	// advertisement is a plain backfill (not coerced to realtime) and
	// sits in the tracker until something forces it to expire.
	node.peers.InsertLazy("c")
	node.HandleProtocolMessage(types.IhaveMessage[string, string]{Sender: "c", MessageID: "m1", Round: 1, Realtime: false})
	drainSends(t, node)

	node.HandleNeighborDown("b")

	var sawGraftToC bool
	for _, s := range drainSends(t, node) {
		if _, ok := s.Message.(types.GraftMessage[string, string]); ok && s.Destination == "c" {
			sawGraftToC = true
		}
	}
	if !sawGraftToC {
		t.Errorf("expected losing the only eager peer to trigger a GRAFT to the tracked advertiser c")
	}
	if !node.peers.Eager().Contains("c") {
		t.Errorf("expected c promoted into the eager set by the healing fallback")
	}
}

func TestNode_NeighborDownWithNoAdvertiserSendsNothing(t *testing.T) {
	node := NewNode[string, string, string]("a")
	node.HandleNeighborUp("b")
	drainSends(t, node)

	node.HandleNeighborDown("b")
	if sends := drainSends(t, node); len(sends) != 0 {
		t.Errorf("expected no GRAFT when no advertisement is tracked, got %+v", sends)
	}
}

func TestNode_ConsiderOptimizationTriggersPastThreshold(t *testing.T) {
	node := NewNode[string, string, string]("a")
	node.SetOptions(types.NodeOptions{IhaveTimeout: time.Second, OptimizationThreshold: 2, Logger: node.log, Recorder: node.recorder})
	node.HandleNeighborUp("b")
	node.HandleNeighborUp("c")
	drainSends(t, node)

	node.HandleProtocolMessage(types.IhaveMessage[string, string]{Sender: "c", MessageID: "m1", Round: 1, Realtime: true})
	drainSends(t, node)

	node.HandleProtocolMessage(types.GossipMessage[string, string, string]{
		Sender: "b",
		Msg:    types.Message[string, string]{ID: "m1", Payload: "hello"},
		Round:  4,
	})

	var sawGraftToC, sawPruneToB bool
	for _, s := range drainSends(t, node) {
		switch msg := s.Message.(type) {
		case types.GraftMessage[string, string]:
			if s.Destination == "c" && msg.MessageID == nil {
				sawGraftToC = true
			}
		case types.PruneMessage[string]:
			if s.Destination == "b" {
				sawPruneToB = true
			}
		}
	}
	if !sawGraftToC || !sawPruneToB {
		t.Errorf("expected optimization to GRAFT the shorter path (c) and PRUNE the longer one (b)")
	}
}
