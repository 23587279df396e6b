package collector

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/buildmarkers/internal/marker"
	"github.com/dshills/buildmarkers/internal/matcher"
	"github.com/dshills/buildmarkers/internal/resolve"
)

type sinkCall struct {
	op        string
	owner     string
	resources []string
	markers   []marker.Data
}

// recordingSink is a MemoryService that remembers every mutation.
type recordingSink struct {
	*marker.MemoryService
	mu    sync.Mutex
	calls []sinkCall
}

func newRecordingSink() *recordingSink {
	return &recordingSink{MemoryService: marker.NewMemoryService()}
}

func (s *recordingSink) ChangeOne(owner, resource string, markers []marker.Data) {
	s.mu.Lock()
	s.calls = append(s.calls, sinkCall{op: "change", owner: owner, resources: []string{resource}, markers: markers})
	s.mu.Unlock()
	s.MemoryService.ChangeOne(owner, resource, markers)
}

func (s *recordingSink) Remove(owner string, resources []string) {
	s.mu.Lock()
	s.calls = append(s.calls, sinkCall{op: "remove", owner: owner, resources: resources})
	s.mu.Unlock()
	s.MemoryService.Remove(owner, resources)
}

func (s *recordingSink) Calls() []sinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkCall(nil), s.calls...)
}

func (s *recordingSink) changedResources() []string {
	var out []string
	for _, c := range s.Calls() {
		if c.op == "change" {
			out = append(out, c.resources[0])
		}
	}
	return out
}

func compileMatcher(t *testing.T, src string) *matcher.ProblemMatcher {
	t.Helper()
	var cfg matcher.MatcherConfig
	require.NoError(t, json.Unmarshal([]byte(src), &cfg))
	bag := matcher.NewBagReporter()
	m, err := matcher.NewRegistry().Compile(cfg, bag)
	require.NoError(t, err, "reports: %v", bag.Messages(matcher.StateInfo))
	return m
}

const simpleMatcher = `{
	"owner": "lint",
	"source": "lint",
	"fileLocation": ["relative", "/ws"],
	"pattern": {"regexp": "^(\\S+):(\\d+):(\\d+): (.*)$", "file": 1, "line": 2, "column": 3, "message": 4}
}`

func feed(t *testing.T, c interface{ ProcessLine(string) error }, lines ...string) {
	t.Helper()
	for _, line := range lines {
		require.NoError(t, c.ProcessLine(line))
	}
}

func TestStartStopCollector_SingleLine(t *testing.T) {
	sink := newRecordingSink()
	c := NewStartStopCollector(context.Background(), []*matcher.ProblemMatcher{compileMatcher(t, simpleMatcher)}, sink)

	feed(t, c, "building...", "a.go:10:3: undefined: foo", "done")
	require.NoError(t, c.Wait())
	assert.Equal(t, 1, c.NumberOfMatches())
	assert.Equal(t, marker.SeverityError, c.MaxMarkerSeverity())
	require.NoError(t, c.Done())

	markers := sink.Read(marker.Filter{})
	require.Len(t, markers, 1)
	assert.Equal(t, marker.Marker{
		Owner:    "lint",
		Resource: "file:///ws/a.go",
		Data: marker.Data{
			Severity:    marker.SeverityError,
			StartLine:   10,
			StartColumn: 3,
			EndLine:     10,
			EndColumn:   3,
			Message:     "undefined: foo",
			Source:      "lint",
		},
	}, markers[0])
}

func TestStartStopCollector_Retraction(t *testing.T) {
	sink := newRecordingSink()
	sink.MemoryService.ChangeOne("lint", "file:///ws/r1.go", []marker.Data{{Severity: marker.SeverityError, StartLine: 1, StartColumn: 1, EndLine: 1, EndColumn: 1, Message: "old"}})
	sink.MemoryService.ChangeOne("lint", "file:///ws/r2.go", []marker.Data{{Severity: marker.SeverityError, StartLine: 1, StartColumn: 1, EndLine: 1, EndColumn: 1, Message: "old"}})
	sink.MemoryService.ChangeOne("other", "file:///ws/r1.go", []marker.Data{{Severity: marker.SeverityError, Message: "unrelated"}})

	c := NewStartStopCollector(context.Background(), []*matcher.ProblemMatcher{compileMatcher(t, simpleMatcher)}, sink)
	feed(t, c, "r2.go:4:1: still broken")
	require.NoError(t, c.Done())

	var removes []sinkCall
	for _, call := range sink.Calls() {
		if call.op == "remove" {
			removes = append(removes, call)
		}
	}
	require.Len(t, removes, 1)
	assert.Equal(t, "lint", removes[0].owner)
	assert.Equal(t, []string{"file:///ws/r1.go"}, removes[0].resources)

	assert.Equal(t, []string{"file:///ws/r2.go"}, sink.Resources("lint"))
	assert.Equal(t, []string{"file:///ws/r1.go"}, sink.Resources("other"))
	assert.Equal(t, "still broken", sink.Read(marker.Filter{Owner: "lint"})[0].Message)
}

// slowResolver delays resolution of one file name.
type slowResolver struct {
	inner resolve.Resolver
	slow  string
	delay time.Duration

	mu    sync.Mutex
	order []string
}

func (r *slowResolver) Resolve(ctx context.Context, m *matcher.ProblemMatcher, filename string) (string, error) {
	if filename == r.slow {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	r.order = append(r.order, filename)
	r.mu.Unlock()
	return r.inner.Resolve(ctx, m, filename)
}

func TestStartStopCollector_PreservesOrder(t *testing.T) {
	sink := newRecordingSink()
	resolver := &slowResolver{inner: resolve.NewFileResolver(), slow: "l1.go", delay: 50 * time.Millisecond}
	c := NewStartStopCollector(context.Background(), []*matcher.ProblemMatcher{compileMatcher(t, simpleMatcher)}, sink, WithResolver(resolver))

	start := time.Now()
	feed(t, c, "l1.go:1:1: first", "l2.go:2:2: second", "l3.go:3:3: third")
	assert.Less(t, time.Since(start), 50*time.Millisecond, "ProcessLine must not wait for resolution")
	require.NoError(t, c.Done())

	assert.Equal(t, []string{"l1.go", "l2.go", "l3.go"}, resolver.order)
	assert.Equal(t, []string{"file:///ws/l1.go", "file:///ws/l2.go", "file:///ws/l3.go"}, sink.changedResources())
}

func TestStartStopCollector_Dedup(t *testing.T) {
	for _, order := range [][]string{
		{"a.go:1:1: a", "a.go:1:1: abcdef"},
		{"a.go:1:1: abcdef", "a.go:1:1: a"},
	} {
		sink := newRecordingSink()
		c := NewStartStopCollector(context.Background(), []*matcher.ProblemMatcher{compileMatcher(t, simpleMatcher)}, sink)
		feed(t, c, order...)
		require.NoError(t, c.Done())

		markers := sink.Read(marker.Filter{})
		require.Len(t, markers, 1)
		assert.Equal(t, "abcdef", markers[0].Message)
	}
}

func TestStartStopCollector_DeliversOnlyChangedCounts(t *testing.T) {
	sink := newRecordingSink()
	c := NewStartStopCollector(context.Background(), []*matcher.ProblemMatcher{compileMatcher(t, simpleMatcher)}, sink)
	feed(t, c,
		"a.go:1:1: one",
		"b.go:1:1: two",
		"a.go:1:1: one",
		"c.go:1:1: three",
	)
	require.NoError(t, c.Done())

	assert.Equal(t, []string{"file:///ws/a.go", "file:///ws/b.go", "file:///ws/c.go"}, sink.changedResources())
}

func TestStartStopCollector_Loop(t *testing.T) {
	reg := matcher.NewRegistry()
	stylish, err := reg.Lookup("eslint-stylish")
	require.NoError(t, err)

	sink := newRecordingSink()
	c := NewStartStopCollector(context.Background(), []*matcher.ProblemMatcher{stylish}, sink)
	feed(t, c,
		"/repo/app.js",
		"  1:2  error  first problem  rule-a",
		"  3:4  warning  second problem  rule-b",
		"  5:6  error  third problem  rule-c",
		"x 3 problems",
		"  7:8  error  orphan  rule-d",
	)
	require.NoError(t, c.Wait())
	assert.Equal(t, 3, c.NumberOfMatches())
	require.NoError(t, c.Done())

	markers := sink.Read(marker.Filter{Owner: "eslint"})
	require.Len(t, markers, 3)
	for _, m := range markers {
		assert.Equal(t, "file:///repo/app.js", m.Resource)
	}
	assert.Equal(t, []string{"first problem", "second problem", "third problem"},
		[]string{markers[0].Message, markers[1].Message, markers[2].Message})
	assert.Equal(t, "rule-b", markers[1].Code)
}

func TestStartStopCollector_PrefersLongerWindow(t *testing.T) {
	single := compileMatcher(t, `{
		"owner": "single",
		"fileLocation": ["relative", "/ws"],
		"pattern": {"regexp": "^(\\S+):(\\d+): (.*)$", "file": 1, "line": 2, "message": 3}
	}`)
	double := compileMatcher(t, `{
		"owner": "double",
		"fileLocation": ["relative", "/ws"],
		"pattern": [
			{"regexp": "^In (\\S+):$", "file": 1},
			{"regexp": "^\\S+:(\\d+): (.*)$", "line": 1, "message": 2}
		]
	}`)

	sink := newRecordingSink()
	c := NewStartStopCollector(context.Background(), []*matcher.ProblemMatcher{single, double}, sink)
	feed(t, c, "In header.h:", "x.c:4: included from here", "y.c:5: alone")
	require.NoError(t, c.Done())

	doubles := sink.Read(marker.Filter{Owner: "double"})
	require.Len(t, doubles, 1)
	assert.Equal(t, "file:///ws/header.h", doubles[0].Resource)

	singles := sink.Read(marker.Filter{Owner: "single"})
	require.Len(t, singles, 1)
	assert.Equal(t, "file:///ws/y.c", singles[0].Resource)
}

func TestStartStopCollector_ResolutionFailureContinues(t *testing.T) {
	auto := compileMatcher(t, `{
		"owner": "auto",
		"fileLocation": "autodetect",
		"pattern": {"regexp": "^AUTO (\\S+):(\\d+): (.*)$", "file": 1, "line": 2, "message": 3}
	}`)

	sink := newRecordingSink()
	c := NewStartStopCollector(context.Background(), []*matcher.ProblemMatcher{auto, compileMatcher(t, simpleMatcher)}, sink)
	feed(t, c, "AUTO a.go:1: lost", "b.go:1:1: kept")
	require.NoError(t, c.Done())

	assert.Empty(t, sink.Read(marker.Filter{Owner: "auto"}))
	assert.Len(t, sink.Read(marker.Filter{Owner: "lint"}), 1)
}

func TestStartStopCollector_UseAfterDone(t *testing.T) {
	c := NewStartStopCollector(context.Background(), []*matcher.ProblemMatcher{compileMatcher(t, simpleMatcher)}, newRecordingSink(), WithRunID("run-1"))
	assert.Equal(t, "run-1", c.RunID())
	require.NoError(t, c.Done())

	assert.ErrorIs(t, c.Done(), ErrCollectorDone)
	assert.ErrorIs(t, c.ProcessLine("a.go:1:1: x"), ErrCollectorDone)
	assert.ErrorIs(t, c.Wait(), ErrCollectorDone)
}

func TestStartStopCollector_NoMatchers(t *testing.T) {
	sink := newRecordingSink()
	c := NewStartStopCollector(context.Background(), nil, sink)
	feed(t, c, "anything")
	require.NoError(t, c.Done())
	assert.Empty(t, sink.Calls())
}
