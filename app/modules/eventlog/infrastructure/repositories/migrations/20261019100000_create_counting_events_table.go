package eventlogmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating counting_events table...")

		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS counting_events (
				id UUID PRIMARY KEY,
				guild_id VARCHAR(20) NOT NULL,
				channel_id VARCHAR(20) NOT NULL,
				kind VARCHAR(32) NOT NULL,
				user_id VARCHAR(20),
				message_id VARCHAR(20),
				old_number BIGINT,
				new_number BIGINT,
				details JSONB,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_counting_events_channel_created ON counting_events(channel_id, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_counting_events_channel_kind ON counting_events(channel_id, kind, created_at);
		`); err != nil {
			return fmt.Errorf("failed to create counting_events table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping counting_events table...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS counting_events;`); err != nil {
			return fmt.Errorf("failed to drop counting_events table: %w", err)
		}
		return nil
	})
}
