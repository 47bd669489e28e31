package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/onnwee/match-chat/backend/chat"
	"github.com/onnwee/match-chat/backend/db"
	"github.com/onnwee/match-chat/backend/match"
	"github.com/onnwee/match-chat/backend/telemetry"
)

// HandleMatchesList returns imported matches, newest first.
func (h *Handlers) HandleMatchesList(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset := parseIntQuery(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	list, err := h.store.ListMatches(r.Context(), limit, offset)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("list matches", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "failed to list matches", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleMatchChat returns a one-off view of a match's chat with toggles from the query.
func (h *Handlers) HandleMatchChat(w http.ResponseWriter, r *http.Request) {
	matchID, ok := matchIDParam(r)
	if !ok {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}
	state, err := filterStateFromQuery(r)
	if err != nil {
		http.Error(w, "invalid filter value: "+err.Error(), http.StatusBadRequest)
		return
	}
	raw, ok := h.loadChat(w, r, matchID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newViewResponse("", matchID, buildEngine(r.Context(), raw, state)))
}

// HandleAdminImport fetches a match from the source and stores its chat.
func (h *Handlers) HandleAdminImport(w http.ResponseWriter, r *http.Request) {
	if h.importer == nil {
		http.Error(w, "import disabled", http.StatusServiceUnavailable)
		return
	}
	matchID, ok := matchIDParam(r)
	if !ok {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	if h.importTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.importTimeout)
		defer cancel()
	}

	n, err := h.importer.Import(ctx, matchID)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Warn("match import failed",
			slog.Int64("match_id", matchID), slog.Any("err", err), slog.String("component", "http"))
		switch {
		case errors.Is(err, match.ErrMatchNotFound):
			http.Error(w, "match not found at source", http.StatusNotFound)
		case errors.Is(err, match.ErrNoChat):
			http.Error(w, "match has no chat yet", http.StatusUnprocessableEntity)
		case errors.Is(err, context.DeadlineExceeded):
			http.Error(w, "import timed out", http.StatusGatewayTimeout)
		default:
			http.Error(w, "import failed", http.StatusBadGateway)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "match_id": matchID, "events": n})
}

// loadChat writes the error response itself and reports false on failure.
func (h *Handlers) loadChat(w http.ResponseWriter, r *http.Request, matchID int64) ([]chat.Event, bool) {
	raw, err := h.store.LoadMatchChat(r.Context(), matchID)
	if err != nil {
		if errors.Is(err, db.ErrMatchNotFound) {
			http.Error(w, "match not imported", http.StatusNotFound)
			return nil, false
		}
		telemetry.LoggerWithCorr(r.Context()).Error("load match chat",
			slog.Int64("match_id", matchID), slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "failed to load match chat", http.StatusInternalServerError)
		return nil, false
	}
	return raw, true
}
