package collector

import (
	"context"

	"github.com/dlclark/regexp2"

	"github.com/dshills/buildmarkers/internal/marker"
	"github.com/dshills/buildmarkers/internal/matcher"
)

type background struct {
	key     int
	matcher *matcher.ProblemMatcher
	begin   matcher.WatchingPattern
	end     matcher.WatchingPattern
}

// WatchingCollector collects the markers of a background task whose output
// is divided into cycles by the matchers' begin and end patterns.
//
// A begin line starts a cycle: recorded markers are forgotten and the
// owner's resources in the sink are marked stale. An end line finishes it:
// stale resources that were not reported again are removed from the sink.
// Begin and end lines are not matched for markers.
type WatchingCollector struct {
	*base
	backgrounds []background
	active      map[int]bool
}

// NewWatchingCollector creates a collector for a background task. Matchers
// without a watching pair still produce markers but never start a cycle.
func NewWatchingCollector(ctx context.Context, matchers []*matcher.ProblemMatcher, sink marker.Service, opts ...Option) *WatchingCollector {
	c := &WatchingCollector{
		base:   newBase(ctx, matchers, sink, "watching", opts),
		active: make(map[int]bool),
	}
	for _, m := range matchers {
		if m.Watching == nil {
			continue
		}
		c.backgrounds = append(c.backgrounds, background{
			key:     len(c.backgrounds),
			matcher: m,
			begin:   m.Watching.BeginsPattern,
			end:     m.Watching.EndsPattern,
		})
	}
	return c
}

// AboutToStart starts a cycle for every matcher that is active on start.
func (c *WatchingCollector) AboutToStart() error {
	return c.queue.push(func() {
		for _, bg := range c.backgrounds {
			if !bg.matcher.Watching.ActiveOnStart {
				continue
			}
			c.active[bg.key] = true
			c.emit(BackgroundProcessingBegins, bg.matcher)
			c.recordResourcesToClean(bg.matcher.Owner)
		}
	})
}

// ProcessLine submits a line. It returns ErrCollectorDone after Done.
func (c *WatchingCollector) ProcessLine(line string) error {
	return c.queue.push(func() {
		c.processLine(line)
	})
}

// ForceDelivery delivers the markers of the current resource without
// waiting for output to move on.
func (c *WatchingCollector) ForceDelivery() error {
	return c.queue.push(c.reportMarkersForCurrentResource)
}

// Done waits for submitted lines, delivers all pending markers and removes
// stale resources. The collector cannot be used afterwards.
func (c *WatchingCollector) Done() error {
	return c.queue.close(c.finish)
}

// IsActive reports whether any watching matcher is inside a cycle.
func (c *WatchingCollector) IsActive() bool {
	active := false
	if err := c.queue.push(func() { active = len(c.active) > 0 }); err != nil {
		return false
	}
	_ = c.queue.wait()
	return active
}

func (c *WatchingCollector) processLine(line string) {
	if c.tryBegin(line) || c.tryFinish(line) {
		return
	}
	if m := c.tryFindMarker(line); m != nil {
		c.recordMatch(m)
	}
}

func (c *WatchingCollector) tryBegin(line string) bool {
	result := false
	for _, bg := range c.backgrounds {
		match := findMatch(bg.begin.Regexp, line)
		if match == nil || c.active[bg.key] {
			continue
		}
		c.active[bg.key] = true
		result = true

		c.emit(BackgroundProcessingBegins, bg.matcher)
		c.resetCurrentResource()
		c.cleanMarkerCaches()

		owner := bg.matcher.Owner
		if file := groupValue(match, bg.begin.File); file != "" {
			resource, err := c.resolver.Resolve(c.ctx, bg.matcher, file)
			if err != nil {
				c.log.Warn("cannot resolve %q for %s: %v", file, owner, err)
				continue
			}
			c.recordResourceToClean(owner, resource)
		} else {
			c.recordResourcesToClean(owner)
		}
	}
	return result
}

func (c *WatchingCollector) tryFinish(line string) bool {
	result := false
	for _, bg := range c.backgrounds {
		if findMatch(bg.end.Regexp, line) == nil || !c.active[bg.key] {
			continue
		}
		delete(c.active, bg.key)
		result = true

		c.resetCurrentResource()
		c.emit(BackgroundProcessingEnds, bg.matcher)
		c.cleanMarkers(bg.matcher.Owner)
		c.cleanMarkerCaches()
	}
	return result
}

func findMatch(re *regexp2.Regexp, line string) *regexp2.Match {
	if re == nil {
		return nil
	}
	m, err := re.FindStringMatch(line)
	if err != nil {
		return nil
	}
	return m
}

func groupValue(m *regexp2.Match, g matcher.Group) string {
	i, ok := g.Index()
	if !ok {
		return ""
	}
	group := m.GroupByNumber(i)
	if group == nil || len(group.Captures) == 0 {
		return ""
	}
	return group.String()
}
