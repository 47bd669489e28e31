package chat

import (
	"log/slog"
)

// FilterCount is the badge shown next to a toggle.
type FilterCount struct {
	Kind    FilterKind `json:"filter"`
	Count   int        `json:"count"`
	Enabled bool       `json:"enabled"`
}

// Engine is one view over one match's chat.
type Engine struct {
	raw     []Event
	state   FilterState
	visible []Event
	logger  *slog.Logger
}

// EngineOption configures NewEngine.
type EngineOption func(*Engine)

// WithFilterState seeds the toggles instead of DefaultFilterState.
func WithFilterState(state FilterState) EngineOption {
	return func(e *Engine) { e.state = state }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine runs spam detection once over raw and computes the initial view.
// The engine keeps its own copy; later changes to raw are not observed.
func NewEngine(raw []Event, opts ...EngineOption) *Engine {
	e := &Engine{
		raw:    DetectSpam(raw),
		state:  DefaultFilterState(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.recompute()
	e.logger.Debug("chat view initialized",
		slog.String("component", "chat_engine"),
		slog.Int("events", len(e.raw)),
		slog.Int("spam", CountMatches(FilterSpam, e.raw)),
		slog.Int("visible", len(e.visible)))
	return e
}

// Toggle flips the named filter and returns the new view. An unknown name
// returns ErrInvalidFilterKind and leaves the view as it was.
func (e *Engine) Toggle(name string) ([]Event, error) {
	k, err := ParseFilterKind(name)
	if err != nil {
		return nil, err
	}
	next, err := e.state.Set(k, !e.state.Enabled(k))
	if err != nil {
		return nil, err
	}
	e.state = next
	e.recompute()
	return e.Visible(), nil
}

// Visible returns the current view. The slice is a copy.
func (e *Engine) Visible() []Event {
	out := make([]Event, len(e.visible))
	copy(out, e.visible)
	return out
}

// CountFor returns how many raw events the named filter matches, whatever
// the toggles are.
func (e *Engine) CountFor(name string) (int, error) {
	k, err := ParseFilterKind(name)
	if err != nil {
		return 0, err
	}
	return CountMatches(k, e.raw), nil
}

// Counts returns every filter's count in display order.
func (e *Engine) Counts() []FilterCount {
	out := make([]FilterCount, 0, len(filterOrder))
	for _, k := range filterOrder {
		out = append(out, FilterCount{Kind: k, Count: CountMatches(k, e.raw), Enabled: e.state.Enabled(k)})
	}
	return out
}

// State returns the current toggles.
func (e *Engine) State() FilterState { return e.state }

// Raw returns the flagged events in received order. The slice is a copy.
func (e *Engine) Raw() []Event {
	out := make([]Event, len(e.raw))
	copy(out, e.raw)
	return out
}

func (e *Engine) recompute() {
	e.visible = SortEvents(ApplyFilters(e.state, e.raw))
}
