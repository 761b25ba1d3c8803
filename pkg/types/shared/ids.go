package sharedtypes

// GuildID is a Discord guild snowflake.
type GuildID string

// ChannelID is a Discord channel snowflake.
type ChannelID string

// UserID is a Discord user snowflake.
type UserID string

// MessageID is a Discord message snowflake.
type MessageID string

// RoleID is a Discord role snowflake.
type RoleID string

func (id GuildID) String() string   { return string(id) }
func (id ChannelID) String() string { return string(id) }
func (id UserID) String() string    { return string(id) }
func (id MessageID) String() string { return string(id) }
func (id RoleID) String() string    { return string(id) }
