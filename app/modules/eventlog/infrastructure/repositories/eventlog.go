package eventlogdb

import (
	"context"
	"fmt"
	"time"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new event log repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// Insert appends an event.
func (r *Impl) Insert(ctx context.Context, db bun.IDB, event *Event) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// List returns a channel's events, newest first.
func (r *Impl) List(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, filter ListFilter) ([]Event, error) {
	db = r.resolveDB(db)
	var events []Event
	q := db.NewSelect().
		Model(&events).
		Where("channel_id = ?", channelID).
		OrderExpr("created_at DESC")
	if len(filter.Kinds) > 0 {
		q = q.Where("kind IN (?)", bun.In(filter.Kinds))
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Since != nil {
		q = q.Where("created_at >= ?", *filter.Since)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// CountByKind counts a channel's events per kind.
func (r *Impl) CountByKind(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, kinds []string, since *time.Time) ([]KindCount, error) {
	db = r.resolveDB(db)
	var rows []KindCount
	q := db.NewSelect().
		Model((*Event)(nil)).
		Column("kind").
		ColumnExpr("COUNT(*) AS count").
		Where("channel_id = ?", channelID).
		Group("kind")
	if len(kinds) > 0 {
		q = q.Where("kind IN (?)", bun.In(kinds))
	}
	if since != nil {
		q = q.Where("created_at >= ?", *since)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to count events by kind: %w", err)
	}
	return rows, nil
}

// TopUsers ranks users by number of events of the given kinds.
func (r *Impl) TopUsers(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, kinds []string, since *time.Time, limit int) ([]UserCount, error) {
	db = r.resolveDB(db)
	var rows []UserCount
	q := db.NewSelect().
		Model((*Event)(nil)).
		Column("user_id").
		ColumnExpr("COUNT(*) AS count").
		Where("channel_id = ?", channelID).
		Where("user_id IS NOT NULL").
		Group("user_id").
		OrderExpr("count DESC, user_id ASC")
	if len(kinds) > 0 {
		q = q.Where("kind IN (?)", bun.In(kinds))
	}
	if since != nil {
		q = q.Where("created_at >= ?", *since)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to rank users by events: %w", err)
	}
	return rows, nil
}

// DeleteByChannel removes every event of a channel.
func (r *Impl) DeleteByChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (int64, error) {
	db = r.resolveDB(db)
	res, err := db.NewDelete().
		Model((*Event)(nil)).
		Where("channel_id = ?", channelID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete channel events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
