package moderationmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating moderation tables...")

		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS wrong_count_windows (
				id BIGSERIAL PRIMARY KEY,
				channel_id VARCHAR(20) NOT NULL,
				user_id VARCHAR(20) NOT NULL,
				window_start TIMESTAMPTZ NOT NULL,
				last_wrong_at TIMESTAMPTZ NOT NULL,
				count INTEGER NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS idx_wrong_count_windows_lookup
				ON wrong_count_windows(channel_id, user_id, window_start DESC);

			CREATE TABLE IF NOT EXISTS tiered_punishments (
				id BIGSERIAL PRIMARY KEY,
				guild_id VARCHAR(20) NOT NULL,
				channel_id VARCHAR(20),
				trigger_count INTEGER NOT NULL CHECK (trigger_count > 0),
				action VARCHAR(20) NOT NULL,
				duration_minutes INTEGER NOT NULL DEFAULT 0,
				role_id VARCHAR(20),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE UNIQUE INDEX IF NOT EXISTS uq_tiered_punishments_scope
				ON tiered_punishments(guild_id, (COALESCE(channel_id, '')), trigger_count);

			CREATE TABLE IF NOT EXISTS applied_punishments (
				id BIGSERIAL PRIMARY KEY,
				guild_id VARCHAR(20) NOT NULL,
				channel_id VARCHAR(20) NOT NULL,
				user_id VARCHAR(20) NOT NULL,
				action VARCHAR(20) NOT NULL,
				duration_minutes INTEGER NOT NULL DEFAULT 0,
				role_id VARCHAR(20),
				trigger_count INTEGER NOT NULL,
				tiered BOOLEAN NOT NULL DEFAULT FALSE,
				reason TEXT NOT NULL DEFAULT '',
				applied_at TIMESTAMPTZ NOT NULL,
				expires_at TIMESTAMPTZ
			);
			CREATE INDEX IF NOT EXISTS idx_applied_punishments_channel
				ON applied_punishments(channel_id, applied_at DESC);

			CREATE TABLE IF NOT EXISTS user_bans (
				id BIGSERIAL PRIMARY KEY,
				guild_id VARCHAR(20) NOT NULL,
				channel_id VARCHAR(20) NOT NULL,
				user_id VARCHAR(20) NOT NULL,
				reason TEXT NOT NULL DEFAULT '',
				banned_by VARCHAR(20) NOT NULL,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				expires_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_user_bans_lookup
				ON user_bans(channel_id, user_id, created_at DESC);
		`); err != nil {
			return fmt.Errorf("failed to create moderation tables: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping moderation tables...")
		if _, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS user_bans;
			DROP TABLE IF EXISTS applied_punishments;
			DROP TABLE IF EXISTS tiered_punishments;
			DROP TABLE IF EXISTS wrong_count_windows;
		`); err != nil {
			return fmt.Errorf("failed to drop moderation tables: %w", err)
		}
		return nil
	})
}
