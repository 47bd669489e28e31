package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/onnwee/match-chat/backend/chat"
	"github.com/onnwee/match-chat/backend/telemetry"
)

// HandleViewCreate builds a stateful view of a match's chat. Query toggles
// seed the initial state.
func (h *Handlers) HandleViewCreate(w http.ResponseWriter, r *http.Request) {
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

	engine := buildEngine(r.Context(), raw, state)
	id, err := h.views.Create(matchID, engine)
	if err != nil {
		if errors.Is(err, ErrTooManyViews) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	telemetry.LoggerWithCorr(r.Context()).Info("chat view created",
		slog.String("view_id", id),
		slog.Int64("match_id", matchID),
		slog.String("component", "views"))
	w.Header().Set("Location", "/views/"+id)
	writeJSON(w, http.StatusCreated, newViewResponse(id, matchID, engine))
}

// HandleViewGet returns the current state of a view.
func (h *Handlers) HandleViewGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "viewID")
	var resp viewResponse
	err := h.views.With(id, func(matchID int64, e *chat.Engine) error {
		resp = newViewResponse(id, matchID, e)
		return nil
	})
	if err != nil {
		h.writeViewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleViewToggle flips one filter of a view and returns the new view.
func (h *Handlers) HandleViewToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "viewID")
	kind, err := chat.ParseFilterKind(chi.URLParam(r, "filter"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var resp viewResponse
	err = h.views.With(id, func(matchID int64, e *chat.Engine) error {
		var terr error
		telemetry.TimeFunc(telemetry.ViewRecomputeDuration, func() {
			_, terr = e.Toggle(string(kind))
		})
		if terr != nil {
			return terr
		}
		resp = newViewResponse(id, matchID, e)
		return nil
	})
	if err != nil {
		h.writeViewError(w, err)
		return
	}
	telemetry.RecordToggle(string(kind))
	writeJSON(w, http.StatusOK, resp)
}

// HandleViewDelete drops a view.
func (h *Handlers) HandleViewDelete(w http.ResponseWriter, r *http.Request) {
	if !h.views.Delete(chi.URLParam(r, "viewID")) {
		http.Error(w, ErrViewNotFound.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) writeViewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrViewNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, chat.ErrInvalidFilterKind):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
