package countingdb

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

// NewRepository creates a new counting repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) get(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, lock bool) (*CountingChannel, error) {
	row := new(CountingChannel)
	q := db.NewSelect().Model(row).Where("channel_id = ?", channelID)
	if lock {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get counting channel: %w", err)
	}
	return row, nil
}

// Get reads a channel.
func (r *Impl) Get(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*CountingChannel, error) {
	return r.get(ctx, r.resolveDB(db), channelID, false)
}

// GetForUpdate reads and row-locks a channel.
func (r *Impl) GetForUpdate(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*CountingChannel, error) {
	return r.get(ctx, r.resolveDB(db), channelID, true)
}

// Setup inserts the channel or re-arms it. highest_number, its timestamp and
// total_counts survive a re-setup.
func (r *Impl) Setup(ctx context.Context, db bun.IDB, channel *CountingChannel) error {
	db = r.resolveDB(db)
	channel.IsActive = true
	channel.UpdatedAt = time.Now().UTC()
	_, err := db.NewInsert().
		Model(channel).
		On("CONFLICT (channel_id) DO UPDATE").
		Set("guild_id = EXCLUDED.guild_id").
		Set("current_number = EXCLUDED.current_number").
		Set("increment = EXCLUDED.increment").
		Set("start_number = EXCLUDED.start_number").
		Set("last_contributor_id = NULL").
		Set("last_message_id = NULL").
		Set("is_active = TRUE").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set up counting channel: %w", err)
	}
	return nil
}

// Advance is a conditional update keyed on the previous number.
func (r *Impl) Advance(ctx context.Context, db bun.IDB, p AdvanceParams) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*CountingChannel)(nil)).
		Set("current_number = ?", p.Next).
		Set("last_contributor_id = ?", p.UserID).
		Set("last_message_id = ?", p.MessageID).
		Set("total_counts = total_counts + 1").
		Set("highest_reached_at = CASE WHEN ? > highest_number THEN ?::timestamptz ELSE highest_reached_at END", p.Next, p.At).
		Set("highest_number = GREATEST(highest_number, ?)", p.Next).
		Set("updated_at = ?", p.At).
		Where("channel_id = ?", p.ChannelID).
		Where("current_number = ?", p.Prev).
		Where("is_active").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to advance counting channel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// SetCurrentNumber moves an active channel to value.
func (r *Impl) SetCurrentNumber(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, value int64) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*CountingChannel)(nil)).
		Set("current_number = ?", value).
		Set("last_contributor_id = NULL").
		Set("last_message_id = NULL").
		Set("updated_at = ?", time.Now().UTC()).
		Where("channel_id = ?", channelID).
		Where("is_active").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set current number: %w", err)
	}
	return notFoundIfNone(res)
}

// Deactivate soft-deletes a channel.
func (r *Impl) Deactivate(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*CountingChannel)(nil)).
		Set("is_active = FALSE").
		Set("updated_at = ?", time.Now().UTC()).
		Where("channel_id = ?", channelID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to deactivate counting channel: %w", err)
	}
	return notFoundIfNone(res)
}

// UpsertSavePoint creates a save point or overwrites one with the same name.
func (r *Impl) UpsertSavePoint(ctx context.Context, db bun.IDB, save *SavePoint) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(save).
		On("CONFLICT (channel_id, name) DO UPDATE").
		Set("number = EXCLUDED.number").
		Set("created_by = EXCLUDED.created_by").
		Set("created_at = EXCLUDED.created_at").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert save point: %w", err)
	}
	return nil
}

// GetSavePoint reads one save point by name.
func (r *Impl) GetSavePoint(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, name string) (*SavePoint, error) {
	db = r.resolveDB(db)
	row := new(SavePoint)
	err := db.NewSelect().
		Model(row).
		Where("channel_id = ?", channelID).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get save point: %w", err)
	}
	return row, nil
}

// ListSavePoints returns a channel's save points, newest first.
func (r *Impl) ListSavePoints(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) ([]SavePoint, error) {
	db = r.resolveDB(db)
	var rows []SavePoint
	if err := db.NewSelect().
		Model(&rows).
		Where("channel_id = ?", channelID).
		OrderExpr("created_at DESC").
		OrderExpr("id DESC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list save points: %w", err)
	}
	return rows, nil
}

// Delete removes the channel and its save points.
func (r *Impl) Delete(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	db = r.resolveDB(db)
	if _, err := db.NewDelete().
		Model((*SavePoint)(nil)).
		Where("channel_id = ?", channelID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete save points: %w", err)
	}
	if _, err := db.NewDelete().
		Model((*CountingChannel)(nil)).
		Where("channel_id = ?", channelID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete counting channel: %w", err)
	}
	return nil
}

func notFoundIfNone(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
