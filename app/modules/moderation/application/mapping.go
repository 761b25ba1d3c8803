package moderationservice

import (
	moderationdb "github.com/Black-And-White-Club/counting-bot/app/modules/moderation/infrastructure/repositories"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
)

func derefRole(id *sharedtypes.RoleID) sharedtypes.RoleID {
	if id == nil {
		return ""
	}
	return *id
}

func rolePtr(id sharedtypes.RoleID) *sharedtypes.RoleID {
	if id == "" {
		return nil
	}
	return &id
}

func tierToRow(t moderationtypes.TieredPunishment) *moderationdb.TieredPunishment {
	return &moderationdb.TieredPunishment{
		ID:              t.ID,
		GuildID:         t.GuildID,
		ChannelID:       t.ChannelID,
		TriggerCount:    t.TriggerCount,
		Action:          t.Action,
		DurationMinutes: t.DurationMinutes,
		RoleID:          rolePtr(t.RoleID),
	}
}

func tierFromRow(row moderationdb.TieredPunishment) moderationtypes.TieredPunishment {
	return moderationtypes.TieredPunishment{
		ID:              row.ID,
		GuildID:         row.GuildID,
		ChannelID:       row.ChannelID,
		TriggerCount:    row.TriggerCount,
		Action:          row.Action,
		DurationMinutes: row.DurationMinutes,
		RoleID:          derefRole(row.RoleID),
		CreatedAt:       row.CreatedAt,
	}
}

func appliedToRow(p moderationtypes.AppliedPunishment) *moderationdb.AppliedPunishment {
	return &moderationdb.AppliedPunishment{
		GuildID:         p.GuildID,
		ChannelID:       p.ChannelID,
		UserID:          p.UserID,
		Action:          p.Action,
		DurationMinutes: p.DurationMinutes,
		RoleID:          rolePtr(p.RoleID),
		TriggerCount:    p.TriggerCount,
		Tiered:          p.Tiered,
		Reason:          p.Reason,
		AppliedAt:       p.AppliedAt,
		ExpiresAt:       p.ExpiresAt,
	}
}

func banFromRow(row *moderationdb.UserBan) moderationtypes.Ban {
	return moderationtypes.Ban{
		ID:        row.ID,
		GuildID:   row.GuildID,
		ChannelID: row.ChannelID,
		UserID:    row.UserID,
		Reason:    row.Reason,
		BannedBy:  row.BannedBy,
		Active:    row.Active,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
	}
}
