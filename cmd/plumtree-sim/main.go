// Command plumtree-sim runs a small in-memory Plumtree cluster and
// broadcasts a handful of messages across it, then prints each node's
// eager/lazy peer sets and delivered/waiting counts once the
// broadcasts have had time to settle.
// It exists to give the actor-based sim package (as opposed to the
// synchronous test harness) a runnable demonstration, the way the
// teacher's test/testing.go gave its cluster a CreateCluster helper.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/core"
	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/definition"
	"github.com/chaitanyaphalak/plumtree/pkg/plumtree/types"
	"github.com/chaitanyaphalak/plumtree/sim"
)

func main() {
	nodes := flag.Int("nodes", 8, "number of nodes in the simulated cluster")
	broadcasts := flag.Int("broadcasts", 5, "number of messages to broadcast")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := definition.NewDefaultLogger()
	log.ToggleDebug(*debug)

	if *nodes < 2 {
		fmt.Fprintln(os.Stderr, "plumtree-sim: need at least 2 nodes")
		os.Exit(1)
	}

	net := sim.NewNetwork[string](log)
	invoker := sim.NewInvoker()

	ids := make([]string, *nodes)
	actors := make(map[string]*sim.Actor[string, string, string], *nodes)
	for i := range ids {
		ids[i] = fmt.Sprintf("node-%02d", i)
	}
	for _, id := range ids {
		node := core.NewNode[string, string, string](id)
		transport := net.NewTransport(id)
		actor := sim.NewActor[string, string, string](node, transport, log)
		actor.Start(invoker)
		actors[id] = actor
	}

	// Ring topology: every node connects to its two neighbors.
	for i, id := range ids {
		next := ids[(i+1)%len(ids)]
		actors[id].NeighborUp(next)
		actors[next].NeighborUp(id)
	}

	origin := actors[ids[0]]
	for i := 0; i < *broadcasts; i++ {
		msgID := uuid.NewString()
		origin.Broadcast(types.Message[string, string]{
			ID:      msgID,
			Payload: fmt.Sprintf("payload-%d", i),
		})
		log.Infof("broadcast %s from %s", msgID, ids[0])
		time.Sleep(50 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)

	for _, id := range ids {
		snap := actors[id].Snapshot()
		fmt.Printf("%s: eager=%v lazy=%v delivered=%d waiting=%d\n", id, snap.Eager, snap.Lazy, snap.Delivered, snap.Waiting)
	}

	for _, id := range ids {
		actors[id].Stop()
	}
	invoker.Wait()
}
