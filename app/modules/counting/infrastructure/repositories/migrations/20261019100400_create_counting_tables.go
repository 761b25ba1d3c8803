package countingmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating counting_channels and save_points tables...")

		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS counting_channels (
				channel_id VARCHAR(20) PRIMARY KEY,
				guild_id VARCHAR(20) NOT NULL,
				current_number BIGINT NOT NULL,
				increment BIGINT NOT NULL CHECK (increment <> 0),
				start_number BIGINT NOT NULL,
				last_contributor_id VARCHAR(20),
				last_message_id VARCHAR(20),
				highest_number BIGINT NOT NULL,
				highest_reached_at TIMESTAMPTZ,
				total_counts BIGINT NOT NULL DEFAULT 0,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_counting_channels_guild
				ON counting_channels(guild_id);

			CREATE TABLE IF NOT EXISTS save_points (
				id BIGSERIAL PRIMARY KEY,
				channel_id VARCHAR(20) NOT NULL,
				name VARCHAR(64) NOT NULL,
				number BIGINT NOT NULL,
				created_by VARCHAR(20),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE (channel_id, name)
			);
		`); err != nil {
			return fmt.Errorf("failed to create counting tables: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping counting tables...")
		if _, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS save_points;
			DROP TABLE IF EXISTS counting_channels;
		`); err != nil {
			return fmt.Errorf("failed to drop counting tables: %w", err)
		}
		return nil
	})
}
