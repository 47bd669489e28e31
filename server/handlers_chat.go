package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/match-chat/backend/telemetry"
)

// maxReplayDelay caps the pause between two replayed events.
const maxReplayDelay = 30 * time.Second

// HandleChatReplay replays the visible view with Server-Sent Events at a given
// playback speed. With ?from= set, events before it are skipped and playback
// starts there; otherwise it starts at the first timed event, pre-horn chat
// included. Untimed events are sent last without delay. A final "end" event closes the stream.
func (h *Handlers) HandleChatReplay(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
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
	hasFrom := r.URL.Query().Has("from")
	from := parseFloat64Query(r, "from", 0)
	speed := parseFloat64Query(r, "speed", 1.0)
	if speed <= 0 {
		speed = 1.0
	}
	raw, ok := h.loadChat(w, r, matchID)
	if !ok {
		return
	}
	events := buildEngine(r.Context(), raw, state).Visible()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	logger := telemetry.LoggerWithCorr(ctx)
	enc := json.NewEncoder(w)
	prev, started := from, hasFrom
	sent := 0
	for _, e := range events {
		if e.HasTime() {
			if hasFrom && e.Time < from {
				continue
			}
			if !started {
				prev, started = e.Time, true
			}
			// sleep for the delta scaled by speed
			if e.Time > prev {
				delay := time.Duration(((e.Time - prev) / speed) * float64(time.Second))
				if delay > maxReplayDelay {
					delay = maxReplayDelay
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(delay):
				}
			}
			prev = e.Time
		}
		if _, err := w.Write([]byte("data: ")); err != nil {
			logger.Warn("failed to write SSE data prefix", slog.Any("err", err), slog.String("component", "replay"))
			return
		}
		if err := enc.Encode(toEventDTO(e)); err != nil {
			logger.Warn("failed to encode SSE event", slog.Any("err", err), slog.String("component", "replay"))
			return
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			logger.Warn("failed to write SSE newline", slog.Any("err", err), slog.String("component", "replay"))
			return
		}
		flusher.Flush()
		sent++
	}
	_, _ = w.Write([]byte("event: end\ndata: {}\n\n"))
	flusher.Flush()
	logger.Debug("chat replay finished",
		slog.Int64("match_id", matchID),
		slog.Int("sent", sent),
		slog.String("component", "replay"))
}
