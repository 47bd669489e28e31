package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/onnwee/match-chat/backend/chat"
)

// ErrMatchNotFound is returned when a match has not been imported.
var ErrMatchNotFound = errors.New("match not imported")

// MatchSummary is one row of the imported matches listing.
type MatchSummary struct {
	ImportedAt time.Time `json:"imported_at"`
	MatchID    int64     `json:"match_id"`
	EventCount int       `json:"event_count"`
}

// Store reads and writes raw match chat.
type Store struct {
	DB *sql.DB
}

// NewStore wraps an open database.
func NewStore(db *sql.DB) *Store { return &Store{DB: db} }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

// SaveMatchChat replaces the stored chat of matchID with events, keeping their order.
func (s *Store) SaveMatchChat(ctx context.Context, matchID int64, events []chat.Event) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Warn("failed to rollback match chat tx", slog.Any("err", err), slog.Int64("match_id", matchID))
		}
	}()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO matches (match_id, event_count, imported_at) VALUES ($1, $2, NOW())
		ON CONFLICT (match_id) DO UPDATE SET event_count = EXCLUDED.event_count, imported_at = EXCLUDED.imported_at`,
		matchID, len(events)); err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM match_chat WHERE match_id=$1`, matchID); err != nil {
		return fmt.Errorf("clear match chat: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO match_chat (match_id, seq, player_slot, time, kind, key, hero_id, account_id, name) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`)
	if err != nil {
		return fmt.Errorf("prepare insert chat: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Warn("failed to close prepared statement", slog.Any("err", err))
		}
	}()

	for i, e := range events {
		if _, err := stmt.ExecContext(ctx, matchID, i, nullSlot(e.PlayerSlot), nullTime(e), string(e.Kind), e.Key, e.HeroID, e.AccountID, e.Name); err != nil {
			return fmt.Errorf("insert chat event %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit match chat: %w", err)
	}
	return nil
}

// LoadMatchChat returns the stored chat of matchID in received order.
func (s *Store) LoadMatchChat(ctx context.Context, matchID int64) ([]chat.Event, error) {
	var exists bool
	if err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM matches WHERE match_id=$1)`, matchID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("lookup match: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("match %d: %w", matchID, ErrMatchNotFound)
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT player_slot, time, kind, key, hero_id, account_id, name FROM match_chat WHERE match_id=$1 ORDER BY seq ASC`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query match chat: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()

	out := make([]chat.Event, 0)
	for rows.Next() {
		var (
			slot sql.NullInt64
			t    sql.NullFloat64
			kind string
			e    chat.Event
		)
		if err := rows.Scan(&slot, &t, &kind, &e.Key, &e.HeroID, &e.AccountID, &e.Name); err != nil {
			return nil, fmt.Errorf("scan match chat: %w", err)
		}
		e.PlayerSlot = chat.NoSlot
		if slot.Valid {
			e.PlayerSlot = int(slot.Int64)
		}
		e.Time = math.NaN()
		if t.Valid {
			e.Time = t.Float64
		}
		e.Kind = chat.Kind(kind)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match chat: %w", err)
	}
	return out, nil
}

// ListMatches returns imported matches, most recent first.
func (s *Store) ListMatches(ctx context.Context, limit, offset int) ([]MatchSummary, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT match_id, event_count, imported_at FROM matches ORDER BY imported_at DESC, match_id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	list := make([]MatchSummary, 0)
	for rows.Next() {
		var m MatchSummary
		if err := rows.Scan(&m.MatchID, &m.EventCount, &m.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func nullSlot(slot int) sql.NullInt64 {
	if slot < 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(slot), Valid: true}
}

func nullTime(e chat.Event) sql.NullFloat64 {
	if !e.HasTime() {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: e.Time, Valid: true}
}
