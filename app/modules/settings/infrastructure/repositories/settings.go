package settingsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// overrideColumns lists the Columns fields for upserts.
var overrideColumns = []string{
	"allow_repeat_user", "cooldown_seconds", "max_number", "reset_on_error",
	"delete_wrong", "notation", "base", "success_template", "error_template",
	"milestone_template", "max_reached_template", "failure_template",
	"milestones", "failure_threshold", "success_reaction", "error_reaction",
	"notification_channel_id", "threshold", "window_hours", "punishment_action",
	"punishment_duration", "punishment_role_id", "ignore_roles",
	"required_roles", "banned_roles", "delete_non_number", "punish_non_number",
	"delete_edited", "punish_edited", "edit_hint",
}

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new settings repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// GetChannel returns the channel override row.
func (r *Impl) GetChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*ChannelSettings, error) {
	db = r.resolveDB(db)
	row := new(ChannelSettings)
	err := db.NewSelect().
		Model(row).
		Where("channel_id = ?", channelID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get channel settings: %w", err)
	}
	return row, nil
}

// GetGuild returns the guild default row.
func (r *Impl) GetGuild(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (*GuildSettings, error) {
	db = r.resolveDB(db)
	row := new(GuildSettings)
	err := db.NewSelect().
		Model(row).
		Where("guild_id = ?", guildID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get guild settings: %w", err)
	}
	return row, nil
}

// InsertChannel creates the channel row unless it already exists.
func (r *Impl) InsertChannel(ctx context.Context, db bun.IDB, row *ChannelSettings) (bool, error) {
	db = r.resolveDB(db)
	res, err := db.NewInsert().
		Model(row).
		On("CONFLICT (channel_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to insert channel settings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// UpdateChannel overwrites every override column of an existing channel row.
func (r *Impl) UpdateChannel(ctx context.Context, db bun.IDB, row *ChannelSettings) error {
	db = r.resolveDB(db)
	row.UpdatedAt = time.Now().UTC()
	res, err := db.NewUpdate().
		Model(row).
		Column(append(overrideColumns, "updated_at")...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update channel settings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteChannel removes the channel row. Missing rows are not an error.
func (r *Impl) DeleteChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	db = r.resolveDB(db)
	if _, err := db.NewDelete().
		Model((*ChannelSettings)(nil)).
		Where("channel_id = ?", channelID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete channel settings: %w", err)
	}
	return nil
}

// UpsertGuild inserts the guild row or overwrites its override columns.
func (r *Impl) UpsertGuild(ctx context.Context, db bun.IDB, row *GuildSettings) error {
	db = r.resolveDB(db)
	row.UpdatedAt = time.Now().UTC()
	q := db.NewInsert().
		Model(row).
		On("CONFLICT (guild_id) DO UPDATE")
	for _, col := range overrideColumns {
		q = q.Set("? = EXCLUDED.?", bun.Ident(col), bun.Ident(col))
	}
	q = q.Set("updated_at = EXCLUDED.updated_at")
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert guild settings: %w", err)
	}
	return nil
}
