package statsmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating user_stats and leaderboard_snapshots tables...")

		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS user_stats (
				channel_id VARCHAR(20) NOT NULL,
				user_id VARCHAR(20) NOT NULL,
				guild_id VARCHAR(20) NOT NULL,
				contributions BIGINT NOT NULL DEFAULT 0,
				current_streak BIGINT NOT NULL DEFAULT 0,
				highest_streak BIGINT NOT NULL DEFAULT 0,
				total_numbers_counted BIGINT NOT NULL DEFAULT 0,
				errors_count BIGINT NOT NULL DEFAULT 0,
				accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,
				total_time_spent_ms BIGINT NOT NULL DEFAULT 0,
				last_contribution TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (channel_id, user_id)
			);
			CREATE INDEX IF NOT EXISTS idx_user_stats_rank
				ON user_stats(channel_id, contributions DESC, highest_streak DESC, accuracy DESC);

			CREATE TABLE IF NOT EXISTS leaderboard_snapshots (
				id BIGSERIAL PRIMARY KEY,
				channel_id VARCHAR(20) NOT NULL,
				taken_at TIMESTAMPTZ NOT NULL,
				entries JSONB NOT NULL DEFAULT '[]'
			);
			CREATE INDEX IF NOT EXISTS idx_leaderboard_snapshots_channel
				ON leaderboard_snapshots(channel_id, taken_at DESC);
		`); err != nil {
			return fmt.Errorf("failed to create stats tables: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping stats tables...")
		if _, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS leaderboard_snapshots;
			DROP TABLE IF EXISTS user_stats;
		`); err != nil {
			return fmt.Errorf("failed to drop stats tables: %w", err)
		}
		return nil
	})
}
