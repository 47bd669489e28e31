package match

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/match-chat/backend/chat"
	"github.com/onnwee/match-chat/backend/telemetry"
)

// Fetcher returns raw match documents.
type Fetcher interface {
	Fetch(ctx context.Context, matchID int64) ([]byte, error)
}

// Saver persists the raw chat log of a match, replacing any previous copy.
type Saver interface {
	SaveMatchChat(ctx context.Context, matchID int64, events []chat.Event) error
}

// Importer pulls a match from the source and stores its chat.
type Importer struct {
	fetcher  Fetcher
	saver    Saver
	attempts int
	backoff  time.Duration
}

// ImporterOption configures NewImporter.
type ImporterOption func(*Importer)

// WithRetry sets how many times a retryable fetch is attempted and the
// initial pause between attempts, doubled after each failure.
func WithRetry(attempts int, backoff time.Duration) ImporterOption {
	return func(im *Importer) {
		if attempts > 0 {
			im.attempts = attempts
		}
		if backoff >= 0 {
			im.backoff = backoff
		}
	}
}

// NewImporter wires a fetcher to a saver. Fetches are attempted 3 times by default.
func NewImporter(f Fetcher, s Saver, opts ...ImporterOption) *Importer {
	im := &Importer{fetcher: f, saver: s, attempts: 3, backoff: 500 * time.Millisecond}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import fetches, parses and stores the chat of matchID and returns the
// number of events stored. Spam flags are not stored; they are derived
// again for every view.
func (im *Importer) Import(ctx context.Context, matchID int64) (n int, err error) {
	ctx, span := telemetry.StartSpan(ctx, "match-import", "match.Import", telemetry.MatchIDAttr(matchID))
	defer span.End()

	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "match_import"), slog.Int64("match_id", matchID))
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
			if telemetry.MatchImportsFailed != nil {
				telemetry.MatchImportsFailed.Inc()
			}
			logger.Warn("match import failed", slog.Any("err", err))
			return
		}
		telemetry.SetSpanSuccess(span)
	}()

	telemetry.TimeFunc(telemetry.ImportDuration, func() {
		n, err = im.importOnce(ctx, matchID, logger)
	})
	return n, err
}

func (im *Importer) importOnce(ctx context.Context, matchID int64, logger *slog.Logger) (int, error) {
	body, err := im.fetchWithRetry(ctx, matchID, logger)
	if err != nil {
		return 0, err
	}
	m, err := ParsePayload(body)
	if err != nil {
		return 0, fmt.Errorf("match %d: %w", matchID, err)
	}
	if m.ID != 0 && m.ID != matchID {
		return 0, fmt.Errorf("match %d: source returned match %d", matchID, m.ID)
	}
	if m.Skipped > 0 {
		logger.Debug("skipped non-chat entries", slog.Int("skipped", m.Skipped))
	}
	if err := im.saver.SaveMatchChat(ctx, matchID, m.Events); err != nil {
		return 0, fmt.Errorf("store match %d: %w", matchID, err)
	}

	if telemetry.MatchesImported != nil {
		telemetry.MatchesImported.Inc()
	}
	if telemetry.ChatEventsImported != nil {
		telemetry.ChatEventsImported.Add(float64(len(m.Events)))
	}
	logger.Info("match chat imported", slog.Int("events", len(m.Events)))
	return len(m.Events), nil
}

// fetchWithRetry retries retryable fetch errors with exponential backoff.
func (im *Importer) fetchWithRetry(ctx context.Context, matchID int64, logger *slog.Logger) ([]byte, error) {
	delay := im.backoff
	var lastErr error
	for attempt := 1; attempt <= im.attempts; attempt++ {
		body, err := im.fetcher.Fetch(ctx, matchID)
		if err == nil {
			return body, nil
		}
		lastErr = err
		class := ClassifyFetchError(err)
		if class == ErrorClassFatal || attempt == im.attempts || ctx.Err() != nil {
			break
		}
		logger.Warn("match fetch failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.String("class", class.String()),
			slog.Any("err", err))
		if telemetry.ImportRetries != nil {
			telemetry.ImportRetries.Inc()
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("match %d: %w", matchID, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, lastErr
}
