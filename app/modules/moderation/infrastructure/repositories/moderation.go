package moderationdb

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

// NewRepository creates a new moderation repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// --- Wrong-count windows ---

// FindOpenWindowForUpdate locks the newest window that started at or after
// horizon.
func (r *Impl) FindOpenWindowForUpdate(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, horizon time.Time) (*WrongCountWindow, error) {
	db = r.resolveDB(db)
	window := new(WrongCountWindow)
	err := db.NewSelect().
		Model(window).
		Where("channel_id = ?", channelID).
		Where("user_id = ?", userID).
		Where("window_start >= ?", horizon).
		OrderExpr("window_start DESC").
		Limit(1).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find wrong-count window: %w", err)
	}
	return window, nil
}

func (r *Impl) InsertWindow(ctx context.Context, db bun.IDB, window *WrongCountWindow) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(window).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert wrong-count window: %w", err)
	}
	return nil
}

func (r *Impl) UpdateWindow(ctx context.Context, db bun.IDB, window *WrongCountWindow) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model(window).
		Column("count", "last_wrong_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update wrong-count window: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// --- Tiered punishments ---

// UpsertTier inserts or replaces the tier at (guild, channel, trigger).
func (r *Impl) UpsertTier(ctx context.Context, db bun.IDB, tier *TieredPunishment) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(tier).
		On("CONFLICT (guild_id, (COALESCE(channel_id, '')), trigger_count) DO UPDATE").
		Set("action = EXCLUDED.action").
		Set("duration_minutes = EXCLUDED.duration_minutes").
		Set("role_id = EXCLUDED.role_id").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert tiered punishment: %w", err)
	}
	return nil
}

func (r *Impl) DeleteTier(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID *sharedtypes.ChannelID, triggerCount int) error {
	db = r.resolveDB(db)
	q := db.NewDelete().
		Model((*TieredPunishment)(nil)).
		Where("guild_id = ?", guildID).
		Where("trigger_count = ?", triggerCount)
	if channelID == nil {
		q = q.Where("channel_id IS NULL")
	} else {
		q = q.Where("channel_id = ?", *channelID)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete tiered punishment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTiers returns every tier of the guild, or only the guild-wide tiers
// and the channel's own when channelID is set.
func (r *Impl) ListTiers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID *sharedtypes.ChannelID) ([]TieredPunishment, error) {
	db = r.resolveDB(db)
	var tiers []TieredPunishment
	q := db.NewSelect().
		Model(&tiers).
		Where("guild_id = ?", guildID)
	if channelID != nil {
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("channel_id = ?", *channelID).WhereOr("channel_id IS NULL")
		})
	}
	err := q.OrderExpr("trigger_count ASC, channel_id ASC NULLS LAST").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tiered punishments: %w", err)
	}
	return tiers, nil
}

// FindTiers returns the tiers matching triggerCount exactly, channel-specific
// rows first.
func (r *Impl) FindTiers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, triggerCount int) ([]TieredPunishment, error) {
	db = r.resolveDB(db)
	var tiers []TieredPunishment
	err := db.NewSelect().
		Model(&tiers).
		Where("guild_id = ?", guildID).
		Where("trigger_count = ?", triggerCount).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("channel_id = ?", channelID).WhereOr("channel_id IS NULL")
		}).
		OrderExpr("channel_id ASC NULLS LAST").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find tiered punishments: %w", err)
	}
	return tiers, nil
}

// --- Applied punishments ---

func (r *Impl) InsertApplied(ctx context.Context, db bun.IDB, punishment *AppliedPunishment) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(punishment).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert applied punishment: %w", err)
	}
	return nil
}

func (r *Impl) CountApplied(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, since *time.Time) (int64, error) {
	db = r.resolveDB(db)
	q := db.NewSelect().
		Model((*AppliedPunishment)(nil)).
		Where("channel_id = ?", channelID)
	if since != nil {
		q = q.Where("applied_at >= ?", *since)
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count applied punishments: %w", err)
	}
	return int64(n), nil
}

// --- Bans ---

func (r *Impl) InsertBan(ctx context.Context, db bun.IDB, ban *UserBan) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(ban).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert ban: %w", err)
	}
	return nil
}

// LatestBan returns the newest ban row for the pair, active or not.
func (r *Impl) LatestBan(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (*UserBan, error) {
	db = r.resolveDB(db)
	ban := new(UserBan)
	err := db.NewSelect().
		Model(ban).
		Where("channel_id = ?", channelID).
		Where("user_id = ?", userID).
		OrderExpr("created_at DESC, id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest ban: %w", err)
	}
	return ban, nil
}

// DeactivateBans flips every active ban of the pair and returns how many.
func (r *Impl) DeactivateBans(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (int, error) {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*UserBan)(nil)).
		Set("active = FALSE").
		Where("channel_id = ?", channelID).
		Where("user_id = ?", userID).
		Where("active").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate bans: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *Impl) DeactivateBan(ctx context.Context, db bun.IDB, id int64) error {
	db = r.resolveDB(db)
	_, err := db.NewUpdate().
		Model((*UserBan)(nil)).
		Set("active = FALSE").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to deactivate ban %d: %w", id, err)
	}
	return nil
}

// CountActiveBans counts active bans that have not expired by now.
func (r *Impl) CountActiveBans(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, now time.Time) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().
		Model((*UserBan)(nil)).
		Where("channel_id = ?", channelID).
		Where("active").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("expires_at IS NULL").WhereOr("expires_at > ?", now)
		}).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count active bans: %w", err)
	}
	return n, nil
}

func (r *Impl) ListBannedUsers(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) ([]sharedtypes.UserID, error) {
	db = r.resolveDB(db)
	var users []sharedtypes.UserID
	err := db.NewSelect().
		Model((*UserBan)(nil)).
		Distinct().
		Column("user_id").
		Where("channel_id = ?", channelID).
		Where("active").
		Scan(ctx, &users)
	if err != nil {
		return nil, fmt.Errorf("failed to list banned users: %w", err)
	}
	return users, nil
}

// DeleteByChannel removes windows, applied punishments, bans and the
// channel's own tiers.
func (r *Impl) DeleteByChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	db = r.resolveDB(db)
	models := []any{
		(*WrongCountWindow)(nil),
		(*AppliedPunishment)(nil),
		(*UserBan)(nil),
		(*TieredPunishment)(nil),
	}
	for _, model := range models {
		if _, err := db.NewDelete().Model(model).Where("channel_id = ?", channelID).Exec(ctx); err != nil {
			return fmt.Errorf("failed to purge moderation rows: %w", err)
		}
	}
	return nil
}
