package bridge

// Lifecycle events that are never rate limited unless explicitly tracked.
var defaultExcludedEvents = map[string]struct{}{
	"disconnect":    {},
	"disconnecting": {},
	"error":         {},
	"connect":       {},
	"connect_error": {},
}

// EventFilter decides which event names are subject to admission checks.
// A non-empty tracked list is an exclusive allow-list and takes precedence
// over the excluded list; otherwise a non-empty excluded list is a deny-list;
// otherwise the built-in lifecycle exclusions apply.
type EventFilter struct {
	tracked  map[string]struct{}
	excluded map[string]struct{}
}

// NewEventFilter builds a filter from the configured allow and deny lists.
func NewEventFilter(tracked, excluded []string) EventFilter {
	f := EventFilter{}
	if len(tracked) > 0 {
		f.tracked = make(map[string]struct{}, len(tracked))
		for _, event := range tracked {
			f.tracked[event] = struct{}{}
		}
	}
	if len(excluded) > 0 {
		f.excluded = make(map[string]struct{}, len(excluded))
		for _, event := range excluded {
			f.excluded[event] = struct{}{}
		}
	}
	return f
}

// ShouldCheck reports whether the named event must pass the limiter.
func (f EventFilter) ShouldCheck(event string) bool {
	if len(f.tracked) > 0 {
		_, ok := f.tracked[event]
		return ok
	}
	if len(f.excluded) > 0 {
		_, ok := f.excluded[event]
		return !ok
	}
	_, ok := defaultExcludedEvents[event]
	return !ok
}
