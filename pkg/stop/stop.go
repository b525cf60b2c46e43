// Package stop implements a pattern for shutting down the long-running parts
// of the server (frontend, torrent store, metrics) as one unit.
package stop

import (
	"sync"
)

// Channel is used to return zero or more errors asynchronously. Call Done()
// once to pass errors to the Channel.
type Channel chan []error

// Result is a receive-only version of Channel. Call Wait() once to receive any
// returned errors.
type Result <-chan []error

// Done sends any non-nil errors to the Channel and closes it, indicating the
// caller has finished stopping. It must be called exactly once.
func (ch Channel) Done(errs ...error) {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}

	if len(nonNil) > 0 {
		ch <- nonNil
	}
	close(ch)
}

// Result converts a Channel to a Result.
func (ch Channel) Result() Result {
	return Result((chan []error)(ch))
}

// Wait blocks until Done() is called on the underlying Channel and returns any
// errors.
func (r Result) Wait() []error {
	return <-r
}

// AlreadyStopped is a closed Result for components with nothing to shut down.
var AlreadyStopped Result

func init() {
	closed := make(Channel)
	close(closed)
	AlreadyStopped = closed.Result()
}

// Stopper is implemented by components that support a clean shutdown.
//
// Stop must return immediately and perform the shutdown in a separate
// goroutine, reporting through the returned Result.
type Stopper interface {
	Stop() Result
}

// Func is a function that can be used to provide a clean shutdown.
type Func func() Result

// Group is a collection of Stoppers that are stopped together.
type Group struct {
	mu    sync.Mutex
	funcs []Func
}

// NewGroup allocates a new Group.
func NewGroup() *Group {
	return &Group{}
}

// Add appends a Stopper to the Group.
func (g *Group) Add(s Stopper) {
	g.AddFunc(s.Stop)
}

// AddFunc appends a Func to the Group.
func (g *Group) AddFunc(f Func) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.funcs = append(g.funcs, f)
}

// Stop stops all members of the Group concurrently. The returned Result
// carries every error reported by the members.
func (g *Group) Stop() Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	results := make([]Result, 0, len(g.funcs))
	for _, f := range g.funcs {
		r := f()
		if r == nil {
			panic("stop: received a nil Result from Stop")
		}
		results = append(results, r)
	}

	c := make(Channel)
	go func() {
		var errs []error
		for _, r := range results {
			errs = append(errs, r.Wait()...)
		}
		c.Done(errs...)
	}()

	return c.Result()
}
