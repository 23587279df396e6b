package collector

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/buildmarkers/internal/logging"
	"github.com/dshills/buildmarkers/internal/marker"
	"github.com/dshills/buildmarkers/internal/matcher"
	"github.com/dshills/buildmarkers/internal/resolve"
)

// Option configures a collector.
type Option func(*options)

type options struct {
	log      *logging.Logger
	resolver resolve.Resolver
	onEvent  EventHandler
	runID    string
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithResolver sets how captured file names become resources. The default
// is a resolve.FileResolver rooted at the current directory.
func WithResolver(r resolve.Resolver) Option {
	return func(o *options) {
		if r != nil {
			o.resolver = r
		}
	}
}

// WithEventHandler sets the handler for background processing events.
func WithEventHandler(h EventHandler) Option {
	return func(o *options) {
		o.onEvent = h
	}
}

// WithRunID sets the run id attached to log output. The default is a
// random UUID.
func WithRunID(id string) Option {
	return func(o *options) {
		if id != "" {
			o.runID = id
		}
	}
}

// base is the matching and delivery state shared by both collectors. All
// fields below queue are owned by the worker goroutine.
type base struct {
	ctx      context.Context
	log      *logging.Logger
	runID    string
	sink     marker.Service
	resolver resolve.Resolver
	onEvent  EventHandler
	matchers []*matcher.ProblemMatcher

	queue *serialQueue

	lineMatchers map[int][]matcher.LineMatcher
	bufferLength int
	buffer       []string
	active       matcher.LineMatcher

	// owner -> resource
	resourcesToClean map[string]map[string]struct{}
	markers          map[string]map[string]*marker.Set
	delivered        map[string]map[string]int

	currentOwner    string
	currentResource string

	statsMu         sync.Mutex
	numberOfMatches int
	maxSeverity     marker.Severity
}

func newBase(ctx context.Context, matchers []*matcher.ProblemMatcher, sink marker.Service, kind string, opts []Option) *base {
	o := options{
		log:      logging.Nop(),
		resolver: resolve.NewFileResolver(),
		runID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	b := &base{
		ctx:              ctx,
		log:              o.log.WithComponent(kind).WithField("run", o.runID),
		runID:            o.runID,
		sink:             sink,
		resolver:         o.resolver,
		onEvent:          o.onEvent,
		matchers:         matchers,
		lineMatchers:     make(map[int][]matcher.LineMatcher),
		bufferLength:     1,
		resourcesToClean: make(map[string]map[string]struct{}),
		markers:          make(map[string]map[string]*marker.Set),
		delivered:        make(map[string]map[string]int),
	}

	for _, m := range matchers {
		lm := matcher.NewLineMatcher(m, b.log)
		length := lm.MatchLength()
		if length > b.bufferLength {
			b.bufferLength = length
		}
		b.lineMatchers[length] = append(b.lineMatchers[length], lm)
	}
	b.buffer = make([]string, 0, b.bufferLength)
	b.queue = newSerialQueue()
	b.log.Debug("collector started with %d matchers, window %d", len(matchers), b.bufferLength)
	return b
}

// RunID returns the id attached to the collector's log output.
func (b *base) RunID() string {
	return b.runID
}

// NumberOfMatches returns the number of matches since the run started or the
// marker caches were last cleared.
func (b *base) NumberOfMatches() int {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	return b.numberOfMatches
}

// MaxMarkerSeverity returns the highest severity matched, or zero if there
// were no matches.
func (b *base) MaxMarkerSeverity() marker.Severity {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	return b.maxSeverity
}

// Wait blocks until every line submitted so far has been processed.
func (b *base) Wait() error {
	return b.queue.wait()
}

// tryFindMarker offers line to the active looping matcher, then to every
// matcher whose window fits the buffered lines.
func (b *base) tryFindMarker(line string) *matcher.ProblemMatch {
	if b.active != nil {
		if m := b.active.Next(line); m != nil {
			b.captureMatch(m)
			return m
		}
		b.clearBuffer()
		b.active = nil
	}

	if len(b.buffer) < b.bufferLength {
		b.buffer = append(b.buffer, line)
	} else {
		copy(b.buffer, b.buffer[1:])
		b.buffer[len(b.buffer)-1] = line
	}

	result := b.tryMatchers()
	if result != nil {
		b.clearBuffer()
	}
	return result
}

// tryMatchers tries the longest windows first and, within a length, the
// matchers in configuration order.
func (b *base) tryMatchers() *matcher.ProblemMatch {
	b.active = nil
	n := len(b.buffer)
	for start := 0; start < n; start++ {
		for _, lm := range b.lineMatchers[n-start] {
			result := lm.Handle(b.buffer[start:])
			if result.Match == nil {
				continue
			}
			b.captureMatch(result.Match)
			if result.Continue {
				b.active = lm
			}
			return result.Match
		}
	}
	return nil
}

func (b *base) clearBuffer() {
	b.buffer = b.buffer[:0]
}

func (b *base) captureMatch(m *matcher.ProblemMatch) {
	b.statsMu.Lock()
	b.numberOfMatches++
	if m.Marker.Severity > b.maxSeverity {
		b.maxSeverity = m.Marker.Severity
	}
	b.statsMu.Unlock()
}

// recordMatch resolves the match's resource and records its marker. The
// markers of the previous resource are delivered when the resource changes.
func (b *base) recordMatch(m *matcher.ProblemMatch) {
	owner := m.Matcher.Owner
	resource, err := b.resolver.Resolve(b.ctx, m.Matcher, m.File)
	if err != nil {
		b.log.Warn("cannot resolve %q for %s: %v", m.File, owner, err)
		return
	}

	b.removeResourceToClean(owner, resource)
	b.recordMarker(m.Marker, owner, resource)
	if b.currentOwner != owner || b.currentResource != resource {
		b.reportMarkersForCurrentResource()
		b.currentOwner = owner
		b.currentResource = resource
	}
}

func (b *base) recordMarker(d marker.Data, owner, resource string) {
	byResource := b.markers[owner]
	if byResource == nil {
		byResource = make(map[string]*marker.Set)
		b.markers[owner] = byResource
	}
	set := byResource[resource]
	if set == nil {
		set = marker.NewSet()
		byResource[resource] = set
	}
	set.Add(d)
}

// deliver pushes the markers of owner and resource to the sink unless the
// same number of markers was already delivered.
func (b *base) deliver(owner, resource string) {
	set := b.markers[owner][resource]
	if set == nil {
		return
	}
	delivered := b.delivered[owner]
	if delivered == nil {
		delivered = make(map[string]int)
		b.delivered[owner] = delivered
	}
	if n, ok := delivered[resource]; ok && n == set.Len() {
		return
	}
	b.sink.ChangeOne(owner, resource, set.Items())
	delivered[resource] = set.Len()
}

func (b *base) reportMarkersForCurrentResource() {
	if b.currentOwner != "" && b.currentResource != "" {
		b.deliver(b.currentOwner, b.currentResource)
	}
}

func (b *base) resetCurrentResource() {
	b.reportMarkersForCurrentResource()
	b.currentOwner = ""
	b.currentResource = ""
}

// reportMarkers delivers every pending resource.
func (b *base) reportMarkers() {
	for _, owner := range sortedKeys(b.markers) {
		for _, resource := range sortedKeys(b.markers[owner]) {
			b.deliver(owner, resource)
		}
	}
}

// recordResourcesToClean marks every resource the sink holds for owner as
// stale until a marker for it is recorded.
func (b *base) recordResourcesToClean(owner string) {
	for _, m := range b.sink.Read(marker.Filter{Owner: owner}) {
		b.recordResourceToClean(owner, m.Resource)
	}
}

func (b *base) recordResourceToClean(owner, resource string) {
	set := b.resourcesToClean[owner]
	if set == nil {
		set = make(map[string]struct{})
		b.resourcesToClean[owner] = set
	}
	set[resource] = struct{}{}
}

func (b *base) removeResourceToClean(owner, resource string) {
	if set := b.resourcesToClean[owner]; set != nil {
		delete(set, resource)
	}
}

// cleanMarkers removes the stale resources of owner from the sink.
func (b *base) cleanMarkers(owner string) {
	set := b.resourcesToClean[owner]
	if len(set) > 0 {
		resources := sortedKeys(set)
		b.log.Debug("removing %d stale resources for %s", len(resources), owner)
		b.sink.Remove(owner, resources)
	}
	delete(b.resourcesToClean, owner)
}

// cleanAllMarkers removes the stale resources of every owner.
func (b *base) cleanAllMarkers() {
	for _, owner := range sortedKeys(b.resourcesToClean) {
		b.cleanMarkers(owner)
	}
}

// cleanMarkerCaches forgets recorded markers and resets the statistics.
func (b *base) cleanMarkerCaches() {
	b.statsMu.Lock()
	b.numberOfMatches = 0
	b.maxSeverity = 0
	b.statsMu.Unlock()
	b.markers = make(map[string]map[string]*marker.Set)
	b.delivered = make(map[string]map[string]int)
}

// finish delivers everything pending, removes stale resources and clears
// all state.
func (b *base) finish() {
	b.reportMarkers()
	b.cleanAllMarkers()
	b.resourcesToClean = make(map[string]map[string]struct{})
	b.markers = make(map[string]map[string]*marker.Set)
	b.delivered = make(map[string]map[string]int)
	b.currentOwner = ""
	b.currentResource = ""
	b.log.Debug("collector done after %d matches", b.NumberOfMatches())
}

func (b *base) emit(kind EventKind, m *matcher.ProblemMatcher) {
	if b.onEvent != nil {
		b.onEvent(Event{Kind: kind, Owner: m.Owner, Matcher: m.Name})
	}
}

func (b *base) owners() []string {
	seen := make(map[string]struct{})
	var owners []string
	for _, m := range b.matchers {
		if _, ok := seen[m.Owner]; ok {
			continue
		}
		seen[m.Owner] = struct{}{}
		owners = append(owners, m.Owner)
	}
	return owners
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
