package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/definition"
	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/types"
)

// ErrUnknownDestination mirrors the teacher's fire-and-forget unicast
// failures (core.Transport.Unicast): the caller never gets a payload
// back, only whether handing it off to the wire succeeded.
var ErrUnknownDestination = errors.New("plumtree/sim: destination not registered on this network")

// Transport is the pluggable send/receive boundary an Actor uses,
// shaped after the teacher's core.Transport interface (Unicast /
// Listen / Close) — minus Broadcast, since Plumtree's diffuse step
// already expands one gossip into many per-peer Sends at the protocol
// layer.
type Transport[N comparable] interface {
	// Unicast hands message to destination. Not required to be
	// reliable: losing it is equivalent to a dropped packet, which the
	// protocol's GRAFT/timeout machinery already tolerates.
	Unicast(destination N, message types.ProtocolMessage[N]) error

	// Listen returns the channel of inbound messages addressed to this
	// transport's owner.
	Listen() <-chan types.ProtocolMessage[N]

	// Close shuts the transport down.
	Close()
}

// Network is an in-memory medium connecting a set of in-memory
// transports (created by NewTransport) by node id, the way a real deployment would connect nodes over a
// socket fabric. It is the sim package's stand-in for the teacher's
// relt-backed ReliableTransport (see DESIGN.md for why relt itself
// isn't vendored).
type Network[N comparable] struct {
	mu       sync.RWMutex
	registry map[N]chan types.ProtocolMessage[N]
	log      definition.Logger
}

// NewNetwork returns an empty network.
func NewNetwork[N comparable](log definition.Logger) *Network[N] {
	if log == nil {
		log = definition.NopLogger{}
	}
	return &Network[N]{
		registry: make(map[N]chan types.ProtocolMessage[N]),
		log:      log,
	}
}

// NewTransport registers and returns a new transport for id.
func (net *Network[N]) NewTransport(id N) Transport[N] {
	inbox := make(chan types.ProtocolMessage[N], 256)
	net.mu.Lock()
	net.registry[id] = inbox
	net.mu.Unlock()
	return &inMemoryTransport[N]{id: id, net: net, inbox: inbox}
}

type inMemoryTransport[N comparable] struct {
	id    N
	net   *Network[N]
	inbox chan types.ProtocolMessage[N]
}

func (t *inMemoryTransport[N]) Unicast(destination N, message types.ProtocolMessage[N]) error {
	t.net.mu.RLock()
	dest, ok := t.net.registry[destination]
	t.net.mu.RUnlock()
	if !ok {
		return ErrUnknownDestination
	}
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	select {
	case dest <- message:
		return nil
	case <-ctx.Done():
		t.net.log.Warnf("dropped message to %v: destination not draining its inbox", destination)
		return ctx.Err()
	}
}

func (t *inMemoryTransport[N]) Listen() <-chan types.ProtocolMessage[N] {
	return t.inbox
}

// Close deregisters the transport so no further Unicast can reach it.
// It deliberately does not close the inbox channel: a concurrent
// Unicast may already be mid-send, and closing out from under it would
// turn a harmless dropped packet into a panic.
func (t *inMemoryTransport[N]) Close() {
	t.net.mu.Lock()
	delete(t.net.registry, t.id)
	t.net.mu.Unlock()
}
