package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/onnwee/match-chat/backend/chat"
	"github.com/onnwee/match-chat/backend/db"
	"github.com/onnwee/match-chat/backend/telemetry"
)

// Store is the read side of the match chat database.
type Store interface {
	Ping(ctx context.Context) error
	LoadMatchChat(ctx context.Context, matchID int64) ([]chat.Event, error)
	ListMatches(ctx context.Context, limit, offset int) ([]db.MatchSummary, error)
}

// Importer fetches a match from the source and stores its chat.
type Importer interface {
	Import(ctx context.Context, matchID int64) (int, error)
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	store         Store
	importer      Importer
	views         *ViewStore
	importTimeout time.Duration
}

// eventDTO is an event as sent to clients. Time is null for untimed events.
type eventDTO struct {
	PlayerSlot *int     `json:"player_slot"`
	Time       *float64 `json:"time"`
	Clock      string   `json:"clock"`
	Type       string   `json:"type"`
	Key        string   `json:"key"`
	HeroID     int      `json:"hero_id,omitempty"`
	AccountID  int64    `json:"account_id,omitempty"`
	Name       string   `json:"name,omitempty"`
	Team       string   `json:"team"`
	Target     string   `json:"target"`
	VoiceLine  bool     `json:"voice_line"`
	Spam       bool     `json:"spam"`
}

func toEventDTO(e chat.Event) eventDTO {
	d := eventDTO{
		Clock:     chat.FormatSeconds(e.Time),
		Type:      string(e.Kind),
		Key:       e.Key,
		HeroID:    e.HeroID,
		AccountID: e.AccountID,
		Name:      e.Name,
		Team:      e.Team().String(),
		Target:    string(chat.TargetOf(e)),
		VoiceLine: chat.HasVoiceLine(e),
		Spam:      e.Spam,
	}
	if e.PlayerSlot != chat.NoSlot {
		slot := e.PlayerSlot
		d.PlayerSlot = &slot
	}
	if e.HasTime() {
		t := e.Time
		d.Time = &t
	}
	return d
}

func toEventDTOs(events []chat.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, toEventDTO(e))
	}
	return out
}

// viewResponse is the body of every chat view endpoint.
type viewResponse struct {
	ViewID  string             `json:"view_id,omitempty"`
	MatchID int64              `json:"match_id"`
	Total   int                `json:"total"`
	State   chat.FilterState   `json:"state"`
	Counts  []chat.FilterCount `json:"counts"`
	Events  []eventDTO         `json:"events"`
}

func newViewResponse(viewID string, matchID int64, e *chat.Engine) viewResponse {
	return viewResponse{
		ViewID:  viewID,
		MatchID: matchID,
		Total:   len(e.Raw()),
		State:   e.State(),
		Counts:  e.Counts(),
		Events:  toEventDTOs(e.Visible()),
	}
}

// buildEngine runs spam detection and the initial filter pass for raw.
func buildEngine(ctx context.Context, raw []chat.Event, state chat.FilterState) *chat.Engine {
	var e *chat.Engine
	telemetry.TimeFunc(telemetry.ViewRecomputeDuration, func() {
		e = chat.NewEngine(raw, chat.WithFilterState(state), chat.WithLogger(telemetry.LoggerWithCorr(ctx)))
	})
	n, _ := e.CountFor(string(chat.FilterSpam))
	telemetry.AddSpamFlagged(n)
	return e
}

// filterStateFromQuery seeds toggles from ?radiant=&dire=&chat=&chatwheel=&spam=.
// Absent parameters keep their default.
func filterStateFromQuery(r *http.Request) (chat.FilterState, error) {
	state := chat.DefaultFilterState()
	q := r.URL.Query()
	for _, k := range chat.Filters() {
		v := q.Get(string(k))
		if v == "" {
			continue
		}
		on, err := strconv.ParseBool(v)
		if err != nil {
			return state, err
		}
		if state, err = state.Set(k, on); err != nil {
			return state, err
		}
	}
	return state, nil
}

func matchIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "matchID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.Any("err", err), slog.String("component", "http"))
	}
}
