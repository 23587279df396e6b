package collector

// EventKind identifies a collector state change.
type EventKind int

const (
	// BackgroundProcessingBegins is emitted when a watching matcher's begin
	// pattern matches, or on AboutToStart for matchers active on start.
	BackgroundProcessingBegins EventKind = iota + 1

	// BackgroundProcessingEnds is emitted when an active watching matcher's
	// end pattern matches.
	BackgroundProcessingEnds
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case BackgroundProcessingBegins:
		return "backgroundProcessingBegins"
	case BackgroundProcessingEnds:
		return "backgroundProcessingEnds"
	default:
		return "unknown"
	}
}

// Event is a state change reported to the handler set with WithEventHandler.
type Event struct {
	Kind EventKind

	// Owner and Matcher identify the watching matcher that changed state.
	Owner   string
	Matcher string
}

// EventHandler receives collector events on the collector's worker
// goroutine. It must not call Wait or Done.
type EventHandler func(Event)
