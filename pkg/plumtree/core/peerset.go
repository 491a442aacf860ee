package core

// Set is a minimal hash-set view exposed read-only to embedders via
// Node.EagerPushPeers/Node.LazyPushPeers.
type Set[N comparable] struct {
	m map[N]struct{}
}

func newSet[N comparable]() *Set[N] {
	return &Set[N]{m: make(map[N]struct{})}
}

func (s *Set[N]) insert(n N) { s.m[n] = struct{}{} }

func (s *Set[N]) remove(n N) { delete(s.m, n) }

// Contains reports whether n is a member of the set.
func (s *Set[N]) Contains(n N) bool {
	_, ok := s.m[n]
	return ok
}

// Len returns the number of members.
func (s *Set[N]) Len() int { return len(s.m) }

// Slice returns the members in unspecified order.
func (s *Set[N]) Slice() []N {
	out := make([]N, 0, len(s.m))
	for n := range s.m {
		out = append(out, n)
	}
	return out
}

// Each calls f for every member.
func (s *Set[N]) Each(f func(N)) {
	for n := range s.m {
		f(n)
	}
}

// PeerSet maintains the two disjoint partitions of known peers: the
// eager-push (tree) set and the lazy-push (advertise-only) set (spec
// §4.1). Every insert maintains disjointness by removing from the
// other set first.
type PeerSet[N comparable] struct {
	self  N
	eager *Set[N]
	lazy  *Set[N]
}

// NewPeerSet returns an empty PeerSet for the given node identity. self
// is excluded from ever being inserted into either partition (spec
// invariant 2).
func NewPeerSet[N comparable](self N) *PeerSet[N] {
	return &PeerSet[N]{
		self:  self,
		eager: newSet[N](),
		lazy:  newSet[N](),
	}
}

// IsKnown reports whether peer is in the eager or lazy set.
func (p *PeerSet[N]) IsKnown(peer N) bool {
	return p.eager.Contains(peer) || p.lazy.Contains(peer)
}

// InsertEager adds peer to eager, removing it from lazy if present.
// A no-op if peer is the node's own id.
func (p *PeerSet[N]) InsertEager(peer N) {
	if peer == p.self {
		return
	}
	p.lazy.remove(peer)
	p.eager.insert(peer)
}

// InsertLazy adds peer to lazy, removing it from eager if present. A
// no-op if peer is the node's own id.
func (p *PeerSet[N]) InsertLazy(peer N) {
	if peer == p.self {
		return
	}
	p.eager.remove(peer)
	p.lazy.insert(peer)
}

// Remove drops peer from both sets.
func (p *PeerSet[N]) Remove(peer N) {
	p.eager.remove(peer)
	p.lazy.remove(peer)
}

// Eager returns the eager-push peer set.
func (p *PeerSet[N]) Eager() *Set[N] { return p.eager }

// Lazy returns the lazy-push peer set.
func (p *PeerSet[N]) Lazy() *Set[N] { return p.lazy }
