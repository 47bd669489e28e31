package chat

import (
	"errors"
	"fmt"
)

// ErrInvalidFilterKind is returned for a filter name outside of Filters().
var ErrInvalidFilterKind = errors.New("invalid filter kind")

// FilterKind names one of the five view toggles.
type FilterKind string

const (
	FilterRadiant   FilterKind = "radiant"
	FilterDire      FilterKind = "dire"
	FilterChat      FilterKind = "chat"
	FilterChatWheel FilterKind = "chatwheel"
	FilterSpam      FilterKind = "spam"
)

// filterOrder is also the display order of the filter badges.
var filterOrder = []FilterKind{FilterRadiant, FilterDire, FilterChat, FilterChatWheel, FilterSpam}

var predicates = map[FilterKind]func(Event) bool{
	FilterRadiant:   func(e Event) bool { return e.Team() == TeamRadiant },
	FilterDire:      func(e Event) bool { return e.Team() == TeamDire },
	FilterChat:      func(e Event) bool { return e.Kind == KindChat },
	FilterChatWheel: func(e Event) bool { return e.Kind == KindChatWheel },
	FilterSpam:      func(e Event) bool { return e.Spam },
}

// Filters returns the filter kinds in display order.
func Filters() []FilterKind {
	out := make([]FilterKind, len(filterOrder))
	copy(out, filterOrder)
	return out
}

// ParseFilterKind validates a filter name.
func ParseFilterKind(name string) (FilterKind, error) {
	k := FilterKind(name)
	if _, ok := predicates[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilterKind, name)
	}
	return k, nil
}

// Matches reports whether e is matched by filter k.
func (k FilterKind) Matches(e Event) bool {
	p, ok := predicates[k]
	return ok && p(e)
}

// FilterState holds the five toggles. An off toggle hides every event its
// filter matches.
type FilterState struct {
	ShowRadiant   bool `json:"radiant"`
	ShowDire      bool `json:"dire"`
	ShowChat      bool `json:"chat"`
	ShowChatWheel bool `json:"chatwheel"`
	ShowSpam      bool `json:"spam"`
}

// DefaultFilterState shows everything but spam.
func DefaultFilterState() FilterState {
	return FilterState{
		ShowRadiant:   true,
		ShowDire:      true,
		ShowChat:      true,
		ShowChatWheel: true,
		ShowSpam:      false,
	}
}

// Enabled reports the toggle for k. Unknown kinds report false.
func (s FilterState) Enabled(k FilterKind) bool {
	if p := s.field(k); p != nil {
		return *p
	}
	return false
}

// Set returns a copy of s with toggle k set to on.
func (s FilterState) Set(k FilterKind, on bool) (FilterState, error) {
	p := s.field(k)
	if p == nil {
		return s, fmt.Errorf("%w: %q", ErrInvalidFilterKind, string(k))
	}
	*p = on
	return s, nil
}

// field returns the toggle for k, nil for unknown kinds.
func (s *FilterState) field(k FilterKind) *bool {
	switch k {
	case FilterRadiant:
		return &s.ShowRadiant
	case FilterDire:
		return &s.ShowDire
	case FilterChat:
		return &s.ShowChat
	case FilterChatWheel:
		return &s.ShowChatWheel
	case FilterSpam:
		return &s.ShowSpam
	default:
		return nil
	}
}

// ApplyFilters returns the events of raw that no disabled filter matches,
// in raw order. Each predicate looks at the raw event itself, so an event
// matched by several disabled filters is dropped once and enabling a filter
// never brings back an event another disabled filter still matches.
func ApplyFilters(state FilterState, raw []Event) []Event {
	var off []func(Event) bool
	for _, k := range filterOrder {
		if !state.Enabled(k) {
			off = append(off, predicates[k])
		}
	}

	out := make([]Event, 0, len(raw))
next:
	for _, e := range raw {
		for _, match := range off {
			if match(e) {
				continue next
			}
		}
		out = append(out, e)
	}
	return out
}

// CountMatches returns how many events in raw filter k matches.
func CountMatches(k FilterKind, raw []Event) int {
	p, ok := predicates[k]
	if !ok {
		return 0
	}
	n := 0
	for _, e := range raw {
		if p(e) {
			n++
		}
	}
	return n
}
