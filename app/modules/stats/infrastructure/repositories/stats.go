package statsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new stats repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) get(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, lock bool) (*UserStats, error) {
	row := new(UserStats)
	q := db.NewSelect().
		Model(row).
		Where("channel_id = ?", channelID).
		Where("user_id = ?", userID)
	if lock {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return row, nil
}

// GetForUpdate reads and row-locks a user's stats.
func (r *Impl) GetForUpdate(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (*UserStats, error) {
	return r.get(ctx, r.resolveDB(db), channelID, userID, true)
}

// Get reads a user's stats.
func (r *Impl) Get(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (*UserStats, error) {
	return r.get(ctx, r.resolveDB(db), channelID, userID, false)
}

// Upsert writes every aggregate of a user's stats.
func (r *Impl) Upsert(ctx context.Context, db bun.IDB, stats *UserStats) error {
	db = r.resolveDB(db)
	stats.UpdatedAt = time.Now().UTC()
	_, err := db.NewInsert().
		Model(stats).
		On("CONFLICT (channel_id, user_id) DO UPDATE").
		Set("contributions = EXCLUDED.contributions").
		Set("current_streak = EXCLUDED.current_streak").
		Set("highest_streak = EXCLUDED.highest_streak").
		Set("total_numbers_counted = EXCLUDED.total_numbers_counted").
		Set("errors_count = EXCLUDED.errors_count").
		Set("accuracy = EXCLUDED.accuracy").
		Set("total_time_spent_ms = EXCLUDED.total_time_spent_ms").
		Set("last_contribution = EXCLUDED.last_contribution").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert user stats: %w", err)
	}
	return nil
}

// Leaderboard orders a channel's rows by orderExpr with user_id as the final
// tiebreak.
func (r *Impl) Leaderboard(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, orderExpr string, limit int) ([]UserStats, error) {
	db = r.resolveDB(db)
	var rows []UserStats
	q := db.NewSelect().
		Model(&rows).
		Where("channel_id = ?", channelID).
		OrderExpr(orderExpr).
		OrderExpr("user_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	return rows, nil
}

// CountAhead counts rows strictly ahead of key under
// (contributions, highest_streak, accuracy) descending.
func (r *Impl) CountAhead(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, key RankKey) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().
		Model((*UserStats)(nil)).
		Where("channel_id = ?", channelID).
		Where("(contributions, highest_streak, accuracy) > (?, ?, ?)", key.Contributions, key.HighestStreak, key.Accuracy).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count users ahead: %w", err)
	}
	return n, nil
}

// Summary aggregates a channel's rows.
func (r *Impl) Summary(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*Summary, error) {
	db = r.resolveDB(db)
	out := new(Summary)
	err := db.NewSelect().
		Model((*UserStats)(nil)).
		ColumnExpr("COUNT(*) AS participants").
		ColumnExpr("COALESCE(SUM(contributions), 0) AS total_contributions").
		ColumnExpr("COALESCE(SUM(errors_count), 0) AS total_errors").
		Where("channel_id = ?", channelID).
		Scan(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize channel stats: %w", err)
	}
	return out, nil
}

// ListByChannel returns every row of a channel.
func (r *Impl) ListByChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) ([]UserStats, error) {
	db = r.resolveDB(db)
	var rows []UserStats
	if err := db.NewSelect().
		Model(&rows).
		Where("channel_id = ?", channelID).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list channel stats: %w", err)
	}
	return rows, nil
}

// ListChannels returns every channel with at least one stats row.
func (r *Impl) ListChannels(ctx context.Context, db bun.IDB) ([]sharedtypes.ChannelID, error) {
	db = r.resolveDB(db)
	var ids []sharedtypes.ChannelID
	if err := db.NewSelect().
		Model((*UserStats)(nil)).
		Distinct().
		Column("channel_id").
		Scan(ctx, &ids); err != nil {
		return nil, fmt.Errorf("failed to list stats channels: %w", err)
	}
	return ids, nil
}

// InsertSnapshot stores a leaderboard snapshot.
func (r *Impl) InsertSnapshot(ctx context.Context, db bun.IDB, snapshot *LeaderboardSnapshot) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(snapshot).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert leaderboard snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the newest snapshot of a channel.
func (r *Impl) LatestSnapshot(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*LeaderboardSnapshot, error) {
	db = r.resolveDB(db)
	row := new(LeaderboardSnapshot)
	err := db.NewSelect().
		Model(row).
		Where("channel_id = ?", channelID).
		OrderExpr("taken_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return row, nil
}

// DeleteByChannel removes stats and snapshots of a channel.
func (r *Impl) DeleteByChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	db = r.resolveDB(db)
	if _, err := db.NewDelete().
		Model((*UserStats)(nil)).
		Where("channel_id = ?", channelID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete channel stats: %w", err)
	}
	if _, err := db.NewDelete().
		Model((*LeaderboardSnapshot)(nil)).
		Where("channel_id = ?", channelID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete channel snapshots: %w", err)
	}
	return nil
}
