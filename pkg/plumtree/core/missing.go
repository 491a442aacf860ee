package core

import (
	"container/heap"
	"time"

	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/types"
)

// trackerEntry is the per-id metadata the Tracker keeps: the best
// (most recently rotated) advertiser, how many outstanding
// advertisements remain, and the expiry the next advertisement of
// this id will be given.
type trackerEntry[N comparable] struct {
	seqno      uint64
	headRound  uint16
	headOwner  N
	owners     int
	nextExpiry types.NodeTime
}

// Tracker is the missing-message tracker (spec §4.3): a min-heap of
// advertisement/entry timeouts plus a per-id map of metadata. It
// answers which advertisement has expired, who the best known
// advertiser for an id is, and when the next expiry is due.
//
// The seqno/map-filter combination substitutes for a decrease-key
// primitive on the heap: removing an id is O(1) (just delete the map
// entry), and stale heap items are discarded lazily at pop time.
type Tracker[N comparable, M comparable] struct {
	queue     itemHeap[N, M]
	entries   map[M]*trackerEntry[N]
	nextSeqno uint64
}

// NewTracker returns an empty tracker.
func NewTracker[N comparable, M comparable]() *Tracker[N, M] {
	return &Tracker[N, M]{
		entries: make(map[M]*trackerEntry[N]),
	}
}

// Push records a newly-arrived IHAVE. If no entry exists yet for
// ihave.MessageID one is created; the first advertisement of a
// non-realtime (backfill) IHAVE is scheduled for `now+timeout`, a
// realtime one expires immediately (now) so the node can move on to
// the next advertiser without delay if no GOSSIP arrives meanwhile.
// Successive advertisements of the same id are spaced `timeout` apart.
func (t *Tracker[N, M]) Push(ihave types.IhaveMessage[N, M], now types.NodeTime, timeout time.Duration) {
	seqno := t.nextSeqno
	entry, existed := t.entries[ihave.MessageID]
	if !existed {
		expiry := now
		if !ihave.Realtime {
			expiry = now.Add(timeout)
		}
		entry = &trackerEntry[N]{
			seqno:      seqno,
			headRound:  ihave.Round,
			headOwner:  ihave.Sender,
			owners:     0,
			nextExpiry: expiry,
		}
		t.entries[ihave.MessageID] = entry
	}

	expiry := entry.nextExpiry
	entry.nextExpiry = entry.nextExpiry.Add(timeout)
	entry.owners++
	if entry.owners == 1 {
		t.nextSeqno++
	}

	heap.Push(&t.queue, &queueItem[N, M]{
		kind:      kindMessage,
		expiry:    expiry,
		seqno:     entry.seqno,
		messageID: ihave.MessageID,
		ihave:     ihave,
	})
}

// PopExpired inspects the heap top; if it has expired as of now, it is
// popped and processed (discarding stale generations along the way)
// and the IHAVE whose timeout fired is returned so the caller can
// GRAFT on it. Returns false if nothing has expired yet.
func (t *Tracker[N, M]) PopExpired(now types.NodeTime) (types.IhaveMessage[N, M], bool) {
	for t.queue.Len() > 0 {
		top := t.queue[0]
		if !(top.expiry.Before(now) || top.expiry == now) {
			break
		}
		item := heap.Pop(&t.queue).(*queueItem[N, M])

		entry, ok := t.entries[item.messageID]
		if !ok {
			// (a) removed since the IHAVE arrived — e.g. the GOSSIP landed.
			continue
		}
		if entry.seqno != item.seqno {
			// (b) a stale generation — the id was forgotten and re-tracked.
			continue
		}

		switch item.kind {
		case kindMessage:
			entry.owners--
			entry.headRound = item.ihave.Round
			entry.headOwner = item.ihave.Sender
			if entry.owners == 0 {
				heap.Push(&t.queue, &queueItem[N, M]{
					kind:      kindEntry,
					expiry:    entry.nextExpiry,
					seqno:     entry.seqno,
					messageID: item.messageID,
				})
			}
			return item.ihave, true
		case kindEntry:
			if entry.owners == 0 {
				delete(t.entries, item.messageID)
			}
			// else: a later advertisement extended this entry's life; ignore.
		}
	}
	var zero types.IhaveMessage[N, M]
	return zero, false
}

// Remove deletes the tracked entry for id, if any. Heap items
// referencing it are filtered out lazily at pop time.
func (t *Tracker[N, M]) Remove(id M) {
	delete(t.entries, id)
}

// WaitingMessages returns the number of distinct ids currently tracked.
func (t *Tracker[N, M]) WaitingMessages() int {
	return len(t.entries)
}

// NextExpiryTime returns the earliest pending deadline, if any.
func (t *Tracker[N, M]) NextExpiryTime() (types.NodeTime, bool) {
	if t.queue.Len() == 0 {
		var zero types.NodeTime
		return zero, false
	}
	return t.queue[0].expiry, true
}

// GetIhave returns the current best (round, owner) for id, if tracked.
func (t *Tracker[N, M]) GetIhave(id M) (uint16, N, bool) {
	entry, ok := t.entries[id]
	if !ok {
		var zeroN N
		return 0, zeroN, false
	}
	return entry.headRound, entry.headOwner, true
}
