package util

import "fmt"

// NameGen hands out unique LLVM function/global names for generated
// closures and labeled lambdas. Requests are served by a single
// goroutine reading off a channel, so one generator can be shared
// across goroutines without a mutex in every call site.
type NameGen struct {
	requests chan string
	replies  chan string
}

// NewNameGen starts the generator's serving goroutine and returns a
// handle. The goroutine runs until the process exits; callers never
// need to close it.
func NewNameGen() *NameGen {
	g := &NameGen{
		requests: make(chan string),
		replies:  make(chan string),
	}
	go g.serve()
	return g
}

func (g *NameGen) serve() {
	counters := make(map[string]uint64)
	for prefix := range g.requests {
		n := counters[prefix]
		counters[prefix] = n + 1
		g.replies <- fmt.Sprintf("%s.%d", prefix, n)
	}
}

// Next returns the next unique name for prefix, e.g. Next("closure")
// yields "closure.0", "closure.1", ...
func (g *NameGen) Next(prefix string) string {
	g.requests <- prefix
	return <-g.replies
}
