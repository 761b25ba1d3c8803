package settingsmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

const overrideColumnsDDL = `
	allow_repeat_user BOOLEAN,
	cooldown_seconds INTEGER,
	max_number BIGINT,
	reset_on_error BOOLEAN,
	delete_wrong BOOLEAN,
	notation VARCHAR(16),
	base INTEGER,
	success_template TEXT,
	error_template TEXT,
	milestone_template TEXT,
	max_reached_template TEXT,
	failure_template TEXT,
	milestones BIGINT[],
	failure_threshold INTEGER,
	success_reaction VARCHAR(64),
	error_reaction VARCHAR(64),
	notification_channel_id VARCHAR(20),
	threshold INTEGER,
	window_hours INTEGER,
	punishment_action VARCHAR(16),
	punishment_duration INTEGER,
	punishment_role_id VARCHAR(20),
	ignore_roles VARCHAR(20)[],
	required_roles VARCHAR(20)[],
	banned_roles VARCHAR(20)[],
	delete_non_number BOOLEAN,
	punish_non_number BOOLEAN,
	delete_edited BOOLEAN,
	punish_edited BOOLEAN,
	edit_hint BOOLEAN,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()`

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating guild_settings and channel_settings tables...")

		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS guild_settings (
				guild_id VARCHAR(20) PRIMARY KEY,`+overrideColumnsDDL+`
			);
			CREATE TABLE IF NOT EXISTS channel_settings (
				channel_id VARCHAR(20) PRIMARY KEY,
				guild_id VARCHAR(20) NOT NULL,`+overrideColumnsDDL+`
			);
			CREATE INDEX IF NOT EXISTS idx_channel_settings_guild ON channel_settings(guild_id);
		`); err != nil {
			return fmt.Errorf("failed to create settings tables: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping settings tables...")
		if _, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS channel_settings;
			DROP TABLE IF EXISTS guild_settings;
		`); err != nil {
			return fmt.Errorf("failed to drop settings tables: %w", err)
		}
		return nil
	})
}
