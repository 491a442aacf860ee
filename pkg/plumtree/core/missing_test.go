package core

import (
	"testing"
	"time"

	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/types"
)

func TestTracker_RealtimeExpiresImmediately(t *testing.T) {
	tracker := NewTracker[string, string]()
	now := types.NodeTime(0)

	tracker.Push(types.IhaveMessage[string, string]{Sender: "b", MessageID: "m1", Round: 1, Realtime: true}, now, time.Second)

	ihave, ok := tracker.PopExpired(now)
	if !ok {
		t.Fatalf("expected a realtime IHAVE to be immediately expired")
	}
	if ihave.Sender != "b" || ihave.MessageID != "m1" {
		t.Errorf("unexpected popped ihave: %+v", ihave)
	}
}

func TestTracker_BackfillWaitsForTimeout(t *testing.T) {
	tracker := NewTracker[string, string]()
	now := types.NodeTime(0)
	timeout := time.Second

	tracker.Push(types.IhaveMessage[string, string]{Sender: "b", MessageID: "m1", Round: 1, Realtime: false}, now, timeout)

	if _, ok := tracker.PopExpired(now); ok {
		t.Errorf("expected a backfill IHAVE to not expire before its timeout")
	}

	later := now.Add(timeout)
	ihave, ok := tracker.PopExpired(later)
	if !ok || ihave.Sender != "b" {
		t.Errorf("expected the IHAVE to expire once its timeout elapsed, got ok=%v ihave=%+v", ok, ihave)
	}
}

func TestTracker_RemoveDiscardsPendingEntry(t *testing.T) {
	tracker := NewTracker[string, string]()
	now := types.NodeTime(0)

	tracker.Push(types.IhaveMessage[string, string]{Sender: "b", MessageID: "m1", Round: 1, Realtime: true}, now, time.Second)
	tracker.Remove("m1")

	if _, ok := tracker.PopExpired(now); ok {
		t.Errorf("expected Remove to discard the entry before it could expire")
	}
	if tracker.WaitingMessages() != 0 {
		t.Errorf("expected WaitingMessages to be 0 after Remove, got %d", tracker.WaitingMessages())
	}
}

func TestTracker_MultipleOwnersRotate(t *testing.T) {
	tracker := NewTracker[string, string]()
	now := types.NodeTime(0)
	timeout := time.Second

	tracker.Push(types.IhaveMessage[string, string]{Sender: "b", MessageID: "m1", Round: 1, Realtime: false}, now, timeout)
	tracker.Push(types.IhaveMessage[string, string]{Sender: "c", MessageID: "m1", Round: 2, Realtime: false}, now, timeout)

	first, ok := tracker.PopExpired(now.Add(timeout))
	if !ok || first.Sender != "b" {
		t.Fatalf("expected the first-recorded advertiser (b) to expire first, got ok=%v ihave=%+v", ok, first)
	}

	if tracker.WaitingMessages() != 1 {
		t.Errorf("expected m1 to remain tracked after one of two advertisements expired, got %d waiting", tracker.WaitingMessages())
	}

	second, ok := tracker.PopExpired(now.Add(2 * timeout))
	if !ok || second.Sender != "c" {
		t.Errorf("expected the second advertiser (c) to expire next, got ok=%v ihave=%+v", ok, second)
	}
}

func TestTracker_GetIhaveReflectsLatestHead(t *testing.T) {
	tracker := NewTracker[string, string]()
	now := types.NodeTime(0)

	tracker.Push(types.IhaveMessage[string, string]{Sender: "b", MessageID: "m1", Round: 3, Realtime: true}, now, time.Second)

	round, owner, ok := tracker.GetIhave("m1")
	if !ok || owner != "b" || round != 3 {
		t.Errorf("expected (round=3, owner=b, ok=true), got (%d, %s, %v)", round, owner, ok)
	}

	if _, _, ok := tracker.GetIhave("unknown"); ok {
		t.Errorf("expected GetIhave to report false for an untracked id")
	}
}

func TestTracker_NextExpiryTime(t *testing.T) {
	tracker := NewTracker[string, string]()
	if _, ok := tracker.NextExpiryTime(); ok {
		t.Errorf("expected no pending expiry on an empty tracker")
	}

	now := types.NodeTime(0)
	tracker.Push(types.IhaveMessage[string, string]{Sender: "b", MessageID: "m1", Round: 1, Realtime: false}, now, time.Second)

	expiry, ok := tracker.NextExpiryTime()
	if !ok || expiry != now.Add(time.Second) {
		t.Errorf("expected next expiry at now+timeout, got %v (ok=%v)", expiry, ok)
	}
}
