package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetentionPolicy defines which imported matches are kept.
// A match is kept when either rule keeps it.
type RetentionPolicy struct {
	// KeepLastNDays keeps matches imported within this many days (0 = disabled)
	KeepLastNDays int
	// KeepLastNMatches keeps the N most recently imported matches (0 = disabled)
	KeepLastNMatches int
	// DryRun logs what would be removed without deleting
	DryRun bool
	// Interval between cleanup runs
	Interval time.Duration
}

// Enabled reports whether any rule is configured.
func (p RetentionPolicy) Enabled() bool {
	return p.KeepLastNDays > 0 || p.KeepLastNMatches > 0
}

// StartRetentionJob prunes imported matches on start and then every policy.Interval.
func StartRetentionJob(ctx context.Context, s *Store, policy RetentionPolicy) {
	if !policy.Enabled() {
		slog.Info("retention job disabled (no policy configured)", slog.String("component", "retention"))
		return
	}
	slog.Info("retention job starting",
		slog.Int("keep_days", policy.KeepLastNDays),
		slog.Int("keep_count", policy.KeepLastNMatches),
		slog.Bool("dry_run", policy.DryRun),
		slog.Duration("interval", policy.Interval),
		slog.String("component", "retention"))

	if _, err := s.PruneMatches(ctx, policy, time.Now()); err != nil {
		slog.Warn("retention cleanup failed", slog.Any("err", err), slog.String("component", "retention"))
	}

	ticker := time.NewTicker(policy.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("retention job stopped", slog.String("component", "retention"))
			return
		case <-ticker.C:
			if _, err := s.PruneMatches(ctx, policy, time.Now()); err != nil {
				slog.Warn("retention cleanup failed", slog.Any("err", err), slog.String("component", "retention"))
			}
		}
	}
}

// PruneMatches deletes matches no retention rule keeps, with their chat, and
// returns how many were (or in dry-run mode would be) removed.
func (s *Store) PruneMatches(ctx context.Context, policy RetentionPolicy, now time.Time) (int, error) {
	if !policy.Enabled() {
		return 0, nil
	}
	logger := slog.Default().With(slog.String("component", "retention"), slog.Bool("dry_run", policy.DryRun))

	retained := make(map[int64]struct{})
	if policy.KeepLastNDays > 0 {
		cutoff := now.Add(-time.Duration(policy.KeepLastNDays) * 24 * time.Hour)
		if err := s.collectIDs(ctx, retained, `SELECT match_id FROM matches WHERE imported_at >= $1`, cutoff); err != nil {
			return 0, fmt.Errorf("query recent matches: %w", err)
		}
	}
	if policy.KeepLastNMatches > 0 {
		if err := s.collectIDs(ctx, retained, `SELECT match_id FROM matches ORDER BY imported_at DESC, match_id DESC LIMIT $1`, policy.KeepLastNMatches); err != nil {
			return 0, fmt.Errorf("query last n matches: %w", err)
		}
	}

	all := make(map[int64]struct{})
	if err := s.collectIDs(ctx, all, `SELECT match_id FROM matches`); err != nil {
		return 0, fmt.Errorf("query matches: %w", err)
	}

	removed := 0
	for id := range all {
		if _, keep := retained[id]; keep {
			continue
		}
		if policy.DryRun {
			logger.Info("would remove match (dry-run)", slog.Int64("match_id", id))
			removed++
			continue
		}
		if _, err := s.DB.ExecContext(ctx, `DELETE FROM matches WHERE match_id=$1`, id); err != nil {
			logger.Warn("failed to remove match", slog.Int64("match_id", id), slog.Any("err", err))
			continue
		}
		removed++
	}
	logger.Info("retention cleanup finished",
		slog.Int("removed", removed),
		slog.Int("retained", len(retained)))
	return removed, nil
}

func (s *Store) collectIDs(ctx context.Context, into map[int64]struct{}, query string, args ...any) error {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		into[id] = struct{}{}
	}
	return rows.Err()
}
