package matcher

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/buildmarkers/internal/logging"
)

var (
	// ErrUnknownMatcher is returned when a matcher name is not registered.
	ErrUnknownMatcher = errors.New("unknown problem matcher")

	// ErrInvalidMatcher is returned when a matcher description is rejected.
	ErrInvalidMatcher = errors.New("invalid problem matcher")
)

// Registry holds named patterns and matchers. The built-in set is added on
// first use unless disabled with WithoutDefaults.
type Registry struct {
	mu       sync.RWMutex
	patterns map[string]*NamedPattern
	matchers map[string]*ProblemMatcher

	seed     sync.Once
	defaults bool
	log      *logging.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithoutDefaults creates an empty registry.
func WithoutDefaults() RegistryOption {
	return func(r *Registry) {
		r.defaults = false
	}
}

// WithRegistryLogger sets the logger for registry events.
func WithRegistryLogger(log *logging.Logger) RegistryOption {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRegistry creates a registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		patterns: make(map[string]*NamedPattern),
		matchers: make(map[string]*ProblemMatcher),
		defaults: true,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) ensureSeeded() {
	r.seed.Do(func() {
		if !r.defaults {
			return
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, p := range defaultPatterns() {
			if _, exists := r.patterns[p.Name]; !exists {
				r.patterns[p.Name] = p
			}
		}
		for _, m := range defaultMatchers(r.patterns) {
			if _, exists := r.matchers[m.Name]; !exists {
				r.matchers[m.Name] = m
			}
		}
		r.log.Debug("registered %d built-in patterns and %d built-in matchers", len(r.patterns), len(r.matchers))
	})
}

// Pattern returns the named pattern. A leading "$" is ignored.
func (r *Registry) Pattern(name string) (*NamedPattern, bool) {
	r.ensureSeeded()
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patterns[strings.TrimPrefix(name, "$")]
	return p, ok
}

// Matcher returns the named matcher. A leading "$" is ignored.
func (r *Registry) Matcher(name string) (*ProblemMatcher, bool) {
	r.ensureSeeded()
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matchers[strings.TrimPrefix(name, "$")]
	return m, ok
}

// Lookup is like Matcher but returns ErrUnknownMatcher for missing names.
func (r *Registry) Lookup(name string) (*ProblemMatcher, error) {
	m, ok := r.Matcher(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMatcher, name)
	}
	return m, nil
}

// AddPattern registers p, replacing any pattern with the same name.
func (r *Registry) AddPattern(p *NamedPattern) {
	r.ensureSeeded()
	r.mu.Lock()
	r.patterns[p.Name] = p
	r.mu.Unlock()
}

// AddMatcher registers m under its name, replacing any previous matcher.
func (r *Registry) AddMatcher(m *ProblemMatcher) error {
	if m.Name == "" {
		return fmt.Errorf("%w: matcher has no name", ErrInvalidMatcher)
	}
	r.ensureSeeded()
	r.mu.Lock()
	r.matchers[m.Name] = m
	r.mu.Unlock()
	return nil
}

// RemoveMatcher unregisters the named matcher.
func (r *Registry) RemoveMatcher(name string) {
	r.ensureSeeded()
	r.mu.Lock()
	delete(r.matchers, strings.TrimPrefix(name, "$"))
	r.mu.Unlock()
}

// PatternNames returns the registered pattern names in sorted order.
func (r *Registry) PatternNames() []string {
	r.ensureSeeded()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.patterns)
}

// MatcherNames returns the registered matcher names in sorted order.
func (r *Registry) MatcherNames() []string {
	r.ensureSeeded()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.matchers)
}

// Matchers returns the registered matchers sorted by name.
func (r *Registry) Matchers() []*ProblemMatcher {
	names := r.MatcherNames()
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*ProblemMatcher, 0, len(names))
	for _, name := range names {
		if m, ok := r.matchers[name]; ok {
			result = append(result, m)
		}
	}
	return result
}

// Compile parses a single matcher description against the registry without
// registering it.
func (r *Registry) Compile(cfg MatcherConfig, rep Reporter) (*ProblemMatcher, error) {
	m := NewMatcherParser(r, rep).Parse(cfg)
	if m == nil {
		return nil, ErrInvalidMatcher
	}
	return m, nil
}

// LoadResult lists what a contribution registered.
type LoadResult struct {
	Patterns []string
	Matchers []string
}

// Load registers the patterns and then the matchers of c. Invalid entries
// are reported to rep and skipped.
func (r *Registry) Load(c Contribution, rep Reporter) LoadResult {
	var result LoadResult

	patternParser := NewPatternParser(rep)
	for _, cfg := range c.ProblemPatterns {
		p := patternParser.ParseNamed(cfg)
		if p == nil {
			continue
		}
		r.AddPattern(p)
		result.Patterns = append(result.Patterns, p.Name)
	}

	matcherParser := NewMatcherParser(r, rep)
	for _, cfg := range c.ProblemMatchers {
		if cfg.Name == "" {
			matcherParser.errorf("Error: a contributed problem matcher must have a name:\n%s", cfg.describe())
			continue
		}
		m := matcherParser.Parse(cfg)
		if m == nil {
			continue
		}
		if err := r.AddMatcher(m); err != nil {
			matcherParser.errorf("%v", err)
			continue
		}
		result.Matchers = append(result.Matchers, m.Name)
	}

	r.log.Debug("loaded %d patterns and %d matchers", len(result.Patterns), len(result.Matchers))
	return result
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
