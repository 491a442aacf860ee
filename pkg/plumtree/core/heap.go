package core

import "github.com/chaitanyaphalak/plumtree/pkg/plumtree/types"

// itemKind distinguishes the two flavors of timeout-queue entries: the
// advertisement's own deadline, and the deadline at which a retired
// entry's metadata itself expires.
type itemKind int

const (
	kindMessage itemKind = iota
	kindEntry
)

// queueItem is one element of the tracker's min-heap. For kindMessage
// it carries the IHAVE that produced it; for kindEntry it only carries
// the message id whose metadata is up for retirement.
type queueItem[N comparable, M comparable] struct {
	kind      itemKind
	expiry    types.NodeTime
	seqno     uint64
	messageID M
	ihave     types.IhaveMessage[N, M]
}

// itemHeap implements container/heap.Interface over queueItem pointers,
// ordered by expiry (earliest first).
type itemHeap[N comparable, M comparable] []*queueItem[N, M]

func (h itemHeap[N, M]) Len() int { return len(h) }

func (h itemHeap[N, M]) Less(i, j int) bool {
	return h[i].expiry.Before(h[j].expiry)
}

func (h itemHeap[N, M]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap[N, M]) Push(x any) {
	*h = append(*h, x.(*queueItem[N, M]))
}

func (h *itemHeap[N, M]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
