package marker

import (
	"sort"
	"sync"
)

// Service is the sink markers are delivered to.
type Service interface {
	// ChangeOne replaces all markers of owner for resource.
	ChangeOne(owner, resource string, markers []Data)

	// Remove deletes all markers of owner for each of resources.
	Remove(owner string, resources []string)

	// Read returns the markers matching filter.
	Read(filter Filter) []Marker
}

// Filter selects markers in Read. Empty fields match anything.
type Filter struct {
	Owner    string
	Resource string
}

// ChangeKind describes a mutation reported to a change handler.
type ChangeKind int

const (
	// ChangeSet means the markers of a resource were replaced.
	ChangeSet ChangeKind = iota
	// ChangeRemove means the markers of a resource were removed.
	ChangeRemove
)

// String returns the change kind name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeSet:
		return "set"
	case ChangeRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Change describes one mutation of a MemoryService.
type Change struct {
	Kind     ChangeKind
	Owner    string
	Resource string
	Markers  []Data
}

// Summary holds marker counts across a MemoryService.
type Summary struct {
	Resources int
	Errors    int
	Warnings  int
	Infos     int
	Hints     int
}

// Total returns the number of markers counted.
func (s Summary) Total() int {
	return s.Errors + s.Warnings + s.Infos + s.Hints
}

// MemoryService is an in-memory Service.
type MemoryService struct {
	mu sync.RWMutex

	// owner -> resource -> markers
	markers map[string]map[string][]Data

	onChange func(Change)
}

// MemoryServiceOption configures a MemoryService.
type MemoryServiceOption func(*MemoryService)

// WithChangeHandler registers a callback invoked after every mutation.
// The callback runs without the service lock held.
func WithChangeHandler(handler func(Change)) MemoryServiceOption {
	return func(s *MemoryService) {
		s.onChange = handler
	}
}

// NewMemoryService creates an empty MemoryService.
func NewMemoryService(opts ...MemoryServiceOption) *MemoryService {
	s := &MemoryService{
		markers: make(map[string]map[string][]Data),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ChangeOne implements Service. An empty slice removes the resource.
func (s *MemoryService) ChangeOne(owner, resource string, markers []Data) {
	stored := make([]Data, len(markers))
	copy(stored, markers)

	s.mu.Lock()
	byResource := s.markers[owner]
	if byResource == nil {
		byResource = make(map[string][]Data)
		s.markers[owner] = byResource
	}
	if len(stored) == 0 {
		delete(byResource, resource)
	} else {
		byResource[resource] = stored
	}
	if len(byResource) == 0 {
		delete(s.markers, owner)
	}
	handler := s.onChange
	s.mu.Unlock()

	if handler != nil {
		handler(Change{Kind: ChangeSet, Owner: owner, Resource: resource, Markers: stored})
	}
}

// Remove implements Service.
func (s *MemoryService) Remove(owner string, resources []string) {
	s.mu.Lock()
	var removed []string
	if byResource, ok := s.markers[owner]; ok {
		for _, r := range resources {
			if _, ok := byResource[r]; ok {
				delete(byResource, r)
				removed = append(removed, r)
			}
		}
		if len(byResource) == 0 {
			delete(s.markers, owner)
		}
	}
	handler := s.onChange
	s.mu.Unlock()

	if handler != nil {
		for _, r := range removed {
			handler(Change{Kind: ChangeRemove, Owner: owner, Resource: r})
		}
	}
}

// Read implements Service. Results are ordered by owner, then resource,
// then delivery order.
func (s *MemoryService) Read(filter Filter) []Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Marker
	for _, owner := range sortedKeys(s.markers) {
		if filter.Owner != "" && filter.Owner != owner {
			continue
		}
		byResource := s.markers[owner]
		for _, resource := range sortedKeys(byResource) {
			if filter.Resource != "" && filter.Resource != resource {
				continue
			}
			for _, d := range byResource[resource] {
				result = append(result, Marker{Data: d, Owner: owner, Resource: resource})
			}
		}
	}
	return result
}

// Resources returns the resources that currently have markers for owner.
func (s *MemoryService) Resources(owner string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.markers[owner])
}

// Summary counts the stored markers by severity.
func (s *MemoryService) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum Summary
	for _, byResource := range s.markers {
		sum.Resources += len(byResource)
		for _, markers := range byResource {
			for _, d := range markers {
				switch d.Severity {
				case SeverityError:
					sum.Errors++
				case SeverityWarning:
					sum.Warnings++
				case SeverityInfo:
					sum.Infos++
				case SeverityHint:
					sum.Hints++
				}
			}
		}
	}
	return sum
}

// Clear removes every marker without notifying the change handler.
func (s *MemoryService) Clear() {
	s.mu.Lock()
	s.markers = make(map[string]map[string][]Data)
	s.mu.Unlock()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
