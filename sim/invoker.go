package sim

import "sync"

// Invoker spawns a function to run independently, in the teacher's
// (core.Invoker) sense: something that can run f "in the background"
// while letting the caller track and later wait for completion.
type Invoker interface {
	Spawn(f func())
	Wait()
}

// goroutineInvoker is the default Invoker: every Spawn call starts a
// goroutine tracked by a WaitGroup, mirroring the teacher's
// TestInvoker (test/testing.go).
type goroutineInvoker struct {
	group sync.WaitGroup
}

// NewInvoker returns the default goroutine-backed Invoker.
func NewInvoker() Invoker {
	return &goroutineInvoker{}
}

func (g *goroutineInvoker) Spawn(f func()) {
	g.group.Add(1)
	go func() {
		defer g.group.Done()
		f()
	}()
}

func (g *goroutineInvoker) Wait() {
	g.group.Wait()
}
