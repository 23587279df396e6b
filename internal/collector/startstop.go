package collector

import (
	"context"

	"github.com/dshills/buildmarkers/internal/marker"
	"github.com/dshills/buildmarkers/internal/matcher"
)

// StartStopCollector collects the markers of a task that runs to completion.
//
// When it is created, every resource the sink holds for one of the matchers'
// owners is marked stale. Resources reported during the run are unmarked, and
// Done removes the ones still marked.
type StartStopCollector struct {
	*base
}

// NewStartStopCollector creates a collector for one run. ctx bounds resource
// resolution.
func NewStartStopCollector(ctx context.Context, matchers []*matcher.ProblemMatcher, sink marker.Service, opts ...Option) *StartStopCollector {
	c := &StartStopCollector{base: newBase(ctx, matchers, sink, "startstop", opts)}
	for _, owner := range c.owners() {
		c.recordResourcesToClean(owner)
	}
	return c
}

// ProcessLine submits a line. It returns ErrCollectorDone after Done.
func (c *StartStopCollector) ProcessLine(line string) error {
	return c.queue.push(func() {
		c.processLine(line)
	})
}

func (c *StartStopCollector) processLine(line string) {
	if m := c.tryFindMarker(line); m != nil {
		c.recordMatch(m)
	}
}

// Done waits for submitted lines, delivers all pending markers and removes
// stale resources. The collector cannot be used afterwards.
func (c *StartStopCollector) Done() error {
	return c.queue.close(c.finish)
}
